package sampler_test

import (
	"context"
	"math/rand"
	"testing"

	"interview-rehearsal-service/internal/domain"
	"interview-rehearsal-service/internal/infra/memory"
	"interview-rehearsal-service/internal/sampler"
)

func pool(n int) []domain.QuestionItem {
	items := make([]domain.QuestionItem, n)
	for i := range items {
		items[i] = domain.QuestionItem{Question: "q", ReferenceAnswer: "a"}
	}
	return items
}

func indexSet(indices []int) map[int]struct{} {
	set := make(map[int]struct{}, len(indices))
	for _, idx := range indices {
		set[idx] = struct{}{}
	}
	return set
}

func TestConsecutiveSelectionsDisjointWhenPoolLargeEnough(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStateStore()
	s := sampler.New(store, rand.New(rand.NewSource(1)))

	first := s.Select(ctx, "hr-interview", pool(10), "u1", 5)
	if len(first.Indices) != 5 {
		t.Fatalf("expected 5 indices, got %d", len(first.Indices))
	}

	second := s.Select(ctx, "hr-interview", pool(10), "u1", 5)
	firstSet := indexSet(first.Indices)
	for _, idx := range second.Indices {
		if _, overlap := firstSet[idx]; overlap {
			t.Fatalf("pool of 10 with count 5 must not repeat, but index %d appeared twice", idx)
		}
	}
}

func TestPriorSelectionForcesExactComplement(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStateStore()
	if err := store.PutHistory(ctx, "u1", "hr-interview", domain.SelectionHistory{Indices: []int{0, 1, 2, 3, 4}}); err != nil {
		t.Fatalf("seed history: %v", err)
	}

	s := sampler.New(store, rand.New(rand.NewSource(7)))
	sel := s.Select(ctx, "hr-interview", pool(10), "u1", 5)

	got := indexSet(sel.Indices)
	for idx := 5; idx < 10; idx++ {
		if _, ok := got[idx]; !ok {
			t.Fatalf("expected selection to be exactly {5..9}, got %v", sel.Indices)
		}
	}
}

func TestSmallPoolMinimizesOverlap(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStateStore()
	s := sampler.New(store, rand.New(rand.NewSource(3)))

	// Pool of 6 with count 5 leaves only one fresh index after the first
	// selection; it must appear in the second selection before any repeat.
	first := s.Select(ctx, "topic", pool(6), "u1", 5)
	second := s.Select(ctx, "topic", pool(6), "u1", 5)

	firstSet := indexSet(first.Indices)
	freshUsed := 0
	for _, idx := range second.Indices {
		if _, seen := firstSet[idx]; !seen {
			freshUsed++
		}
	}
	if freshUsed != 1 {
		t.Fatalf("expected the single fresh index to be used, fresh=%d indices=%v", freshUsed, second.Indices)
	}
}

func TestCountClampedToPoolSize(t *testing.T) {
	ctx := context.Background()
	s := sampler.New(memory.NewStateStore(), rand.New(rand.NewSource(5)))

	sel := s.Select(ctx, "topic", pool(3), "u1", 5)
	if len(sel.Items) != 3 || len(sel.Indices) != 3 {
		t.Fatalf("expected selection clamped to 3, got %d items", len(sel.Items))
	}

	empty := s.Select(ctx, "topic", nil, "u1", 5)
	if len(empty.Items) != 0 {
		t.Fatalf("expected empty selection for empty pool, got %d items", len(empty.Items))
	}
}

func TestNoDuplicateIndices(t *testing.T) {
	ctx := context.Background()
	s := sampler.New(memory.NewStateStore(), rand.New(rand.NewSource(11)))

	for i := 0; i < 20; i++ {
		sel := s.Select(ctx, "topic", pool(7), "u1", 5)
		if len(indexSet(sel.Indices)) != len(sel.Indices) {
			t.Fatalf("selection contains duplicate indices: %v", sel.Indices)
		}
	}
}

func TestHistoryOverwrittenPerKey(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStateStore()
	s := sampler.New(store, rand.New(rand.NewSource(9)))

	sel := s.Select(ctx, "topic", pool(10), "", 4)

	// Empty userID maps to the anonymous sentinel.
	h, ok, err := store.GetHistory(ctx, domain.AnonymousUserID, "topic")
	if err != nil || !ok {
		t.Fatalf("expected anon history, ok=%v err=%v", ok, err)
	}
	if len(h.Indices) != len(sel.Indices) {
		t.Fatalf("history does not reflect the selection: %v vs %v", h.Indices, sel.Indices)
	}
	for i, idx := range sel.Indices {
		if h.Indices[i] != idx {
			t.Fatalf("history mismatch at %d: %v vs %v", i, h.Indices, sel.Indices)
		}
	}
}

func TestSeededSamplerIsReproducible(t *testing.T) {
	ctx := context.Background()
	a := sampler.New(memory.NewStateStore(), rand.New(rand.NewSource(42)))
	b := sampler.New(memory.NewStateStore(), rand.New(rand.NewSource(42)))

	selA := a.Select(ctx, "topic", pool(10), "u1", 5)
	selB := b.Select(ctx, "topic", pool(10), "u1", 5)
	for i := range selA.Indices {
		if selA.Indices[i] != selB.Indices[i] {
			t.Fatalf("same seed produced different selections: %v vs %v", selA.Indices, selB.Indices)
		}
	}
}
