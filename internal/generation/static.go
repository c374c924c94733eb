package generation

import (
	"context"
	"fmt"

	"interview-rehearsal-service/internal/domain"
)

// BuiltinPools returns the curated topic pools shipped with the service.
// They double as the fallback lists when generation is unavailable.
func BuiltinPools() map[string]domain.Pool {
	return map[string]domain.Pool{
		"hr-interview": {
			TopicID: "hr-interview",
			Items: []domain.QuestionItem{
				{Question: "Tell me about yourself.", ReferenceAnswer: "Introduce yourself briefly and professionally"},
				{Question: "Why do you want to join our company?", ReferenceAnswer: "Explain your motivation to join the company"},
				{Question: "What are your strengths and weaknesses?", ReferenceAnswer: "List your strengths and weaknesses honestly"},
				{Question: "Where do you see yourself in 5 years?", ReferenceAnswer: "Talk about your 5-year plan"},
				{Question: "Describe a challenging situation and how you handled it.", ReferenceAnswer: "Describe a challenging situation and your solution"},
				{Question: "How do you handle conflict in a team?", ReferenceAnswer: "Describe constructive communication and resolution steps"},
				{Question: "Tell me about a time you showed leadership.", ReferenceAnswer: "Provide a concrete leadership example and impact"},
				{Question: "Describe a failure and what you learned.", ReferenceAnswer: "Explain failure, take ownership, and describe learnings"},
				{Question: "How do you prioritize tasks when everything is urgent?", ReferenceAnswer: "Discuss frameworks and examples of prioritization"},
				{Question: "What motivates you at work?", ReferenceAnswer: "Share intrinsic and extrinsic motivators with examples"},
			},
		},
		"mock-interview": {
			TopicID: "mock-interview",
			Items: []domain.QuestionItem{
				{Question: "What motivates you to work hard?", ReferenceAnswer: "Discuss what motivates you"},
				{Question: "How do you handle stress and pressure?", ReferenceAnswer: "Explain how you manage stress"},
				{Question: "Explain a time you worked in a team.", ReferenceAnswer: "Give an example of teamwork"},
				{Question: "What's your biggest professional achievement?", ReferenceAnswer: "Highlight your professional achievement"},
				{Question: "Why should we hire you?", ReferenceAnswer: "Explain why you are the best fit"},
				{Question: "Tell me about a time you disagreed with a decision.", ReferenceAnswer: "Show constructive dissent and alignment after decision"},
				{Question: "Describe a situation where you went above and beyond.", ReferenceAnswer: "Quantify impact and initiative"},
				{Question: "How do you stay current in your field?", ReferenceAnswer: "Mention courses, reading, projects, communities"},
				{Question: "Describe your ideal work environment.", ReferenceAnswer: "Explain collaboration, focus, autonomy, psychological safety"},
				{Question: "What do you expect from your manager?", ReferenceAnswer: "Clarity, feedback, support, growth, autonomy"},
			},
		},
		"technical-interview": {
			TopicID: "technical-interview",
			Items: []domain.QuestionItem{
				{Question: "Explain OOP principles with examples.", ReferenceAnswer: "Explain OOP concepts like inheritance, polymorphism, encapsulation, abstraction"},
				{Question: "What is the difference between HTTP and HTTPS?", ReferenceAnswer: "Describe HTTP vs HTTPS"},
				{Question: "How do you optimize a slow SQL query?", ReferenceAnswer: "Explain SQL query optimization techniques"},
				{Question: "What is the time complexity of binary search?", ReferenceAnswer: "State binary search time complexity"},
				{Question: "Explain how React's useState works internally.", ReferenceAnswer: "Explain React's useState internal working"},
				{Question: "What is a race condition and how do you prevent it?", ReferenceAnswer: "Define race conditions and use locks/transactions/atomics"},
				{Question: "Explain indexing and its trade-offs in databases.", ReferenceAnswer: "Cover B-tree indexes, selective columns, write overhead"},
				{Question: "What is the CAP theorem?", ReferenceAnswer: "Consistency, Availability, Partition tolerance trade-offs"},
				{Question: "Explain caching strategies for web apps.", ReferenceAnswer: "Client/server caching, TTL, validation, CDN, cache-busting"},
				{Question: "Describe common OWASP Top 10 vulnerabilities.", ReferenceAnswer: "List examples like SQLi, XSS, CSRF, auth issues"},
			},
		},
	}
}

// StaticGenerator serves built-in pools without calling any external
// service. It stands in when no API key is configured and in tests.
type StaticGenerator struct {
	pools map[string]domain.Pool
}

func NewStaticGenerator(pools map[string]domain.Pool) *StaticGenerator {
	if pools == nil {
		pools = BuiltinPools()
	}
	return &StaticGenerator{pools: pools}
}

func (g *StaticGenerator) Generate(_ context.Context, topic string, count int) ([]domain.QuestionItem, error) {
	pool, ok := g.pools[topic]
	if !ok {
		return nil, fmt.Errorf("%w: unknown topic %q", domain.ErrGeneration, topic)
	}
	items := pool.Items
	if count > 0 && count < len(items) {
		items = items[:count]
	}
	return append([]domain.QuestionItem(nil), items...), nil
}
