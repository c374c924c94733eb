package memory

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"interview-rehearsal-service/internal/domain"
)

// InterviewStore is an in-memory interview archive, useful for tests and
// for running without Postgres.
type InterviewStore struct {
	mu     sync.RWMutex
	nextID int64
	byUser map[string][]domain.InterviewDetail
	clock  func() time.Time
}

func NewInterviewStore() *InterviewStore {
	return &InterviewStore{
		nextID: 1,
		byUser: make(map[string][]domain.InterviewDetail),
		clock:  time.Now,
	}
}

// Save appends the interview and computes improved against the user's
// immediately preceding record. A tie counts as improved; the first record
// has no comparison at all.
func (s *InterviewStore) Save(ctx context.Context, draft domain.InterviewDraft) (domain.InterviewSummary, error) {
	if draft.UserID == "" {
		return domain.InterviewSummary{}, domain.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var improved *bool
	if prev := s.latestLocked(draft.UserID); prev != nil {
		v := draft.OverallScore >= prev.OverallScore
		improved = &v
	}

	detail := domain.InterviewDetail{
		InterviewSummary: domain.InterviewSummary{
			ID:             s.nextID,
			Topic:          draft.Topic,
			TotalQuestions: len(draft.Items),
			OverallScore:   draft.OverallScore,
			Improved:       improved,
			CreatedAt:      s.clock(),
		},
		Items: append([]domain.InterviewItem(nil), draft.Items...),
	}
	s.nextID++
	s.byUser[draft.UserID] = append(s.byUser[draft.UserID], detail)
	return detail.InterviewSummary, nil
}

func (s *InterviewStore) List(_ context.Context, userID string) ([]domain.InterviewSummary, error) {
	if userID == "" {
		return nil, domain.ErrValidation
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.byUser[userID]
	out := make([]domain.InterviewSummary, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.InterviewSummary)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *InterviewStore) Get(_ context.Context, id int64, userID string) (domain.InterviewDetail, error) {
	if userID == "" || id <= 0 {
		return domain.InterviewDetail{}, domain.ErrValidation
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.byUser[userID] {
		if rec.ID == id {
			return rec, nil
		}
	}
	return domain.InterviewDetail{}, domain.ErrInterviewNotFound
}

func (s *InterviewStore) Delete(_ context.Context, id int64, userID string) error {
	if userID == "" || id <= 0 {
		return domain.ErrValidation
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.byUser[userID]
	for i, rec := range records {
		if rec.ID == id {
			s.byUser[userID] = append(records[:i], records[i+1:]...)
			return nil
		}
	}
	return domain.ErrInterviewNotFound
}

func (s *InterviewStore) Stats(_ context.Context, userID string) (domain.Stats, error) {
	if userID == "" {
		return domain.Stats{}, domain.ErrValidation
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.byUser[userID]
	stats := domain.Stats{TotalInterviews: len(records)}
	if len(records) == 0 {
		return stats, nil
	}

	sum := 0
	stats.WorstScore = math.MaxInt
	for _, rec := range records {
		sum += rec.OverallScore
		if rec.OverallScore > stats.BestScore {
			stats.BestScore = rec.OverallScore
		}
		if rec.OverallScore < stats.WorstScore {
			stats.WorstScore = rec.OverallScore
		}
		if rec.Improved != nil {
			if *rec.Improved {
				stats.ImprovedCount++
			} else {
				stats.DeclinedCount++
			}
		}
	}
	stats.AverageScore = int(math.Round(float64(sum) / float64(len(records))))
	return stats, nil
}

func (s *InterviewStore) latestLocked(userID string) *domain.InterviewDetail {
	records := s.byUser[userID]
	if len(records) == 0 {
		return nil
	}
	// Records are appended in save order, so the last one is the most recent.
	return &records[len(records)-1]
}
