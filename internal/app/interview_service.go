package app

import (
	"context"
	"fmt"

	"interview-rehearsal-service/internal/domain"
	"interview-rehearsal-service/internal/sampler"
	"interview-rehearsal-service/internal/scoring"
	"interview-rehearsal-service/internal/session"
)

// PoolRepository loads question pools (cached generation or fallback content).
type PoolRepository interface {
	GetPool(ctx context.Context, topicID string) (domain.Pool, error)
}

// InterviewStore archives completed interviews (in-memory, Postgres, etc).
type InterviewStore interface {
	Save(ctx context.Context, draft domain.InterviewDraft) (domain.InterviewSummary, error)
	List(ctx context.Context, userID string) ([]domain.InterviewSummary, error)
	Get(ctx context.Context, id int64, userID string) (domain.InterviewDetail, error)
	Delete(ctx context.Context, id int64, userID string) error
	Stats(ctx context.Context, userID string) (domain.Stats, error)
}

// InterviewService wires the core pieces together: pool loading, question
// sampling, the per-session state machine, and scoring plus archiving on
// completion.
type InterviewService struct {
	pools         PoolRepository
	sampler       *sampler.Sampler
	store         InterviewStore
	progress      session.ProgressStore
	questionCount int
	machineOpts   []session.Option
}

func NewInterviewService(pools PoolRepository, smp *sampler.Sampler, store InterviewStore, progress session.ProgressStore, questionCount int, machineOpts ...session.Option) *InterviewService {
	if questionCount <= 0 {
		questionCount = 5
	}
	return &InterviewService{
		pools:         pools,
		sampler:       smp,
		store:         store,
		progress:      progress,
		questionCount: questionCount,
		machineOpts:   machineOpts,
	}
}

// StartSession samples a selection for (userID, topicID) and starts the
// session state machine against the given capture collaborator. onComplete,
// if non-nil, receives the archived summary (or the store error) exactly
// once when the session finishes or is force-finalized.
func (s *InterviewService) StartSession(ctx context.Context, topicID, userID string, capture session.Capture, onComplete func(domain.InterviewSummary, error)) (*session.Machine, error) {
	if topicID == "" {
		return nil, fmt.Errorf("%w: topicId required", domain.ErrValidation)
	}
	if userID == "" {
		userID = domain.AnonymousUserID
	}

	pool, err := s.pools.GetPool(ctx, topicID)
	if err != nil {
		return nil, err
	}
	sel := s.sampler.Select(ctx, topicID, pool.Items, userID, s.questionCount)
	if len(sel.Items) == 0 {
		return nil, fmt.Errorf("%w: no questions available for topic %q", domain.ErrValidation, topicID)
	}

	finalize := func(ctx context.Context, out session.Outcome) error {
		summary, err := s.Complete(ctx, out.UserID, out.TopicID, out.Questions, out.Answers, out.ReferenceAnswers)
		if onComplete != nil {
			onComplete(summary, err)
		}
		return err
	}

	m := session.NewMachine(userID, topicID, sel, s.progress, capture, finalize, s.machineOpts...)
	if err := m.Start(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

// Complete scores every answer against its reference answer, aggregates the
// overall score, and archives the interview. It is the single completion
// path for normal finishes and forced terminations alike.
func (s *InterviewService) Complete(ctx context.Context, userID, topic string, questions, answers, references []string) (domain.InterviewSummary, error) {
	if userID == "" || len(questions) == 0 {
		return domain.InterviewSummary{}, fmt.Errorf("%w: userId and questions required", domain.ErrValidation)
	}
	if len(answers) != len(questions) {
		return domain.InterviewSummary{}, fmt.Errorf("%w: questions and answers length mismatch", domain.ErrValidation)
	}

	items := make([]domain.InterviewItem, len(questions))
	scores := make([]int, len(questions))
	for i := range questions {
		ref := ""
		if i < len(references) {
			ref = references[i]
		}
		rec := scoring.Evaluate(answers[i], ref)
		scores[i] = rec.Score
		items[i] = domain.InterviewItem{
			QuestionIdx:     i,
			Question:        questions[i],
			ReferenceAnswer: ref,
			Answer:          answers[i],
			Score:           rec.Score,
			Feedback:        rec.Feedback,
		}
	}

	return s.store.Save(ctx, domain.InterviewDraft{
		UserID:       userID,
		Topic:        topic,
		Items:        items,
		OverallScore: scoring.Overall(scores),
	})
}

// ListInterviews returns the user's archive, newest first.
func (s *InterviewService) ListInterviews(ctx context.Context, userID string) ([]domain.InterviewSummary, error) {
	return s.store.List(ctx, userID)
}

// GetInterview returns one archived interview with its items.
func (s *InterviewService) GetInterview(ctx context.Context, id int64, userID string) (domain.InterviewDetail, error) {
	return s.store.Get(ctx, id, userID)
}

// DeleteInterview removes one archived interview.
func (s *InterviewService) DeleteInterview(ctx context.Context, id int64, userID string) error {
	return s.store.Delete(ctx, id, userID)
}

// UserStats aggregates the user's archive.
func (s *InterviewService) UserStats(ctx context.Context, userID string) (domain.Stats, error) {
	return s.store.Stats(ctx, userID)
}
