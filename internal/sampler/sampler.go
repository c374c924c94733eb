package sampler

import (
	"context"
	"log"
	"math/rand"
	"time"

	"interview-rehearsal-service/internal/domain"
)

// HistoryStore persists the last selection per (userID, topicID) key.
// Reads and writes are best-effort: history only steers repeat avoidance.
type HistoryStore interface {
	GetHistory(ctx context.Context, userID, topicID string) (domain.SelectionHistory, bool, error)
	PutHistory(ctx context.Context, userID, topicID string, h domain.SelectionHistory) error
}

// Sampler picks a non-repeating question subset per user and topic across
// sessions. The random source is injected so selections are reproducible
// in tests.
type Sampler struct {
	history HistoryStore
	rnd     *rand.Rand
	now     func() time.Time
}

func New(history HistoryStore, rnd *rand.Rand) *Sampler {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Sampler{history: history, rnd: rnd, now: time.Now}
}

// Select returns min(count, len(pool)) items, preferring pool indices the
// user has not seen in their previous selection for this topic. Fresh
// indices are exhausted before any repeat is introduced, so a pool at least
// twice the requested size guarantees zero overlap between consecutive
// selections. The new index set overwrites the stored history.
//
// Select is total: it never fails, and store errors degrade to an empty
// history. Concurrent callers on the same key are not coordinated; one
// active session per (user, topic) is a stated precondition.
func (s *Sampler) Select(ctx context.Context, topicID string, pool []domain.QuestionItem, userID string, count int) domain.Selection {
	if userID == "" {
		userID = domain.AnonymousUserID
	}
	effective := count
	if len(pool) < effective {
		effective = len(pool)
	}
	if effective <= 0 {
		return domain.Selection{Items: []domain.QuestionItem{}, Indices: []int{}}
	}

	perm := s.rnd.Perm(len(pool))

	lastSet := map[int]struct{}{}
	if prev, ok, err := s.history.GetHistory(ctx, userID, topicID); err != nil {
		log.Printf("sampler: history read for %s/%s failed, treating as empty: %v", userID, topicID, err)
	} else if ok {
		for _, idx := range prev.Indices {
			lastSet[idx] = struct{}{}
		}
	}

	// Fresh indices first, stale ones after, shuffle order preserved
	// within each partition.
	ordered := make([]int, 0, len(perm))
	for _, idx := range perm {
		if _, seen := lastSet[idx]; !seen {
			ordered = append(ordered, idx)
		}
	}
	for _, idx := range perm {
		if _, seen := lastSet[idx]; seen {
			ordered = append(ordered, idx)
		}
	}

	indices := ordered[:effective]
	items := make([]domain.QuestionItem, effective)
	for i, idx := range indices {
		items[i] = pool[idx]
	}

	if err := s.history.PutHistory(ctx, userID, topicID, domain.SelectionHistory{
		Indices:   indices,
		UpdatedAt: s.now(),
	}); err != nil {
		log.Printf("sampler: history write for %s/%s failed: %v", userID, topicID, err)
	}

	return domain.Selection{Items: items, Indices: indices}
}
