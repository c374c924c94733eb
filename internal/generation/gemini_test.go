package generation

import (
	"context"
	"errors"
	"testing"

	"interview-rehearsal-service/internal/domain"
)

func TestParseItemsStripsFencesAndTruncates(t *testing.T) {
	raw := "```json\n[{\"question\":\"q1\",\"expected_answer\":\"a1\"},{\"question\":\"q2\",\"expected_answer\":\"a2\"},{\"question\":\"q3\",\"expected_answer\":\"a3\"}]\n```"
	items, err := ParseItems(raw, 2)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected truncation to 2, got %d", len(items))
	}
	if items[0].Question != "q1" || items[0].ReferenceAnswer != "a1" {
		t.Fatalf("unexpected first item %+v", items[0])
	}
}

func TestParseItemsRejectsMalformedPayloads(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"not json", "here are your questions!"},
		{"empty array", "[]"},
		{"missing field", `[{"question":"q1"}]`},
		{"blank field", `[{"question":"q1","expected_answer":"  "}]`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseItems(tc.raw, 5); !errors.Is(err, domain.ErrGeneration) {
				t.Fatalf("expected generation error, got %v", err)
			}
		})
	}
}

func TestStaticGeneratorServesBuiltinPools(t *testing.T) {
	g := NewStaticGenerator(nil)
	items, err := g.Generate(context.Background(), "hr-interview", 5)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(items) != 5 {
		t.Fatalf("expected 5 items, got %d", len(items))
	}

	if _, err := g.Generate(context.Background(), "nope", 5); !errors.Is(err, domain.ErrGeneration) {
		t.Fatalf("expected generation error for unknown topic, got %v", err)
	}
}
