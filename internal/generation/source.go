package generation

import (
	"context"
	"fmt"
	"log"

	"interview-rehearsal-service/internal/domain"
)

// PoolSource produces the question pool for a topic: generated when a
// Generator is configured, otherwise (or on any generation failure) the
// fallback pool truncated to size. Generation failures are recovered
// locally and logged; callers never see them as errors unless no fallback
// exists either.
type PoolSource struct {
	gen      Generator
	fallback map[string]domain.Pool
	size     int
}

// NewPoolSource builds a source. gen may be nil to serve fallback pools
// only; fallback may be nil to default to the built-in pools.
func NewPoolSource(gen Generator, fallback map[string]domain.Pool, size int) *PoolSource {
	if fallback == nil {
		fallback = BuiltinPools()
	}
	return &PoolSource{gen: gen, fallback: fallback, size: size}
}

func (s *PoolSource) LoadPool(ctx context.Context, topicID string) (domain.Pool, error) {
	if s.gen != nil {
		items, err := s.gen.Generate(ctx, topicID, s.size)
		if err == nil {
			return domain.Pool{TopicID: topicID, Items: items}, nil
		}
		log.Printf("generation: %s failed, using fallback pool: %v", topicID, err)
	}

	fb, ok := s.fallback[topicID]
	if !ok {
		return domain.Pool{}, fmt.Errorf("%w: no fallback pool for topic %q", domain.ErrGeneration, topicID)
	}
	items := fb.Items
	if s.size > 0 && s.size < len(items) {
		items = items[:s.size]
	}
	return domain.Pool{TopicID: topicID, Items: append([]domain.QuestionItem(nil), items...)}, nil
}
