package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"interview-rehearsal-service/internal/domain"
)

// Generator produces question/reference-answer pairs for a topic.
type Generator interface {
	Generate(ctx context.Context, topic string, count int) ([]domain.QuestionItem, error)
}

const defaultModel = "gemini-2.0-flash"

// GeminiGenerator asks Gemini for interview questions with concise expected
// answers. Responses are parsed strictly: a malformed or empty payload is a
// generation error, never a silently shortened pool.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	if model == "" {
		model = defaultModel
	}
	return &GeminiGenerator{client: client, model: model}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, topic string, count int) ([]domain.QuestionItem, error) {
	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(0.1)
	model.ResponseMIMEType = "application/json"

	resp, err := model.GenerateContent(ctx, genai.Text(prompt(topic, count)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGeneration, err)
	}
	text, err := extractText(resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGeneration, err)
	}
	items, err := ParseItems(text, count)
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (g *GeminiGenerator) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func prompt(topic string, count int) string {
	return fmt.Sprintf(`You are an expert interview question generator. Generate %d high-quality %s interview questions for a candidate. For each question, provide a concise and accurate expected answer that a strong candidate would give.

Return ONLY a strict JSON array with exactly %d objects, each of the form:
[
  { "question": "...", "expected_answer": "..." }
]

Constraints:
- Avoid duplicates and ensure variety across topics.
- Keep expected_answer concise (1-2 sentences), objective, and non-personal.
- Do not include explanations outside of JSON.
`, count, topic, count)
}

type generatedItem struct {
	Question       string `json:"question"`
	ExpectedAnswer string `json:"expected_answer"`
}

// ParseItems validates a raw generation payload and returns the usable
// items, truncated to count. Entries without both fields fail the whole
// payload rather than being dropped.
func ParseItems(raw string, count int) ([]domain.QuestionItem, error) {
	raw = stripCodeFences(raw)
	var parsed []generatedItem
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", domain.ErrGeneration, err)
	}
	if len(parsed) == 0 {
		return nil, fmt.Errorf("%w: empty response", domain.ErrGeneration)
	}

	items := make([]domain.QuestionItem, 0, len(parsed))
	for i, it := range parsed {
		if strings.TrimSpace(it.Question) == "" || strings.TrimSpace(it.ExpectedAnswer) == "" {
			return nil, fmt.Errorf("%w: item %d missing question or expected_answer", domain.ErrGeneration, i)
		}
		items = append(items, domain.QuestionItem{
			Question:        it.Question,
			ReferenceAnswer: it.ExpectedAnswer,
		})
	}
	if count > 0 && count < len(items) {
		items = items[:count]
	}
	return items, nil
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}
	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in response")
	}
	return strings.Join(parts, ""), nil
}

func stripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
