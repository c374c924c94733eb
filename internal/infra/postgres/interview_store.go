package postgres

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"interview-rehearsal-service/internal/domain"
)

// InterviewStore archives completed interviews in Postgres.
type InterviewStore struct {
	pool *pgxpool.Pool
}

func NewInterviewStore(pool *pgxpool.Pool) *InterviewStore {
	return &InterviewStore{pool: pool}
}

// Save inserts the interview and its items in one transaction and computes
// improved against the user's immediately preceding record (tie counts as
// improved, nil for the first record).
func (s *InterviewStore) Save(ctx context.Context, draft domain.InterviewDraft) (domain.InterviewSummary, error) {
	if draft.UserID == "" {
		return domain.InterviewSummary{}, domain.ErrValidation
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.InterviewSummary{}, fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback(ctx)

	summary := domain.InterviewSummary{
		Topic:          draft.Topic,
		TotalQuestions: len(draft.Items),
		OverallScore:   draft.OverallScore,
	}
	err = tx.QueryRow(ctx,
		`INSERT INTO interviews (user_id, topic, total_questions, overall_score)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		draft.UserID, draft.Topic, len(draft.Items), draft.OverallScore,
	).Scan(&summary.ID, &summary.CreatedAt)
	if err != nil {
		return domain.InterviewSummary{}, fmt.Errorf("insert interview: %w", err)
	}

	for _, item := range draft.Items {
		_, err = tx.Exec(ctx,
			`INSERT INTO interview_items (interview_id, question_idx, question, reference_answer, answer, score, feedback)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			summary.ID, item.QuestionIdx, item.Question, item.ReferenceAnswer, item.Answer, item.Score, item.Feedback,
		)
		if err != nil {
			return domain.InterviewSummary{}, fmt.Errorf("insert item %d: %w", item.QuestionIdx, err)
		}
	}

	var prevOverall int
	err = tx.QueryRow(ctx,
		`SELECT overall_score FROM interviews
		 WHERE user_id=$1 AND id<>$2
		 ORDER BY created_at DESC, id DESC LIMIT 1`,
		draft.UserID, summary.ID,
	).Scan(&prevOverall)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		// first record for this user: no comparison
	case err != nil:
		return domain.InterviewSummary{}, fmt.Errorf("load previous overall: %w", err)
	default:
		v := draft.OverallScore >= prevOverall
		summary.Improved = &v
		if _, err := tx.Exec(ctx, `UPDATE interviews SET improved=$1 WHERE id=$2`, v, summary.ID); err != nil {
			return domain.InterviewSummary{}, fmt.Errorf("update improved: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.InterviewSummary{}, fmt.Errorf("commit save: %w", err)
	}
	return summary, nil
}

func (s *InterviewStore) List(ctx context.Context, userID string) ([]domain.InterviewSummary, error) {
	if userID == "" {
		return nil, domain.ErrValidation
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, topic, total_questions, overall_score, improved, created_at
		 FROM interviews WHERE user_id=$1
		 ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list interviews: %w", err)
	}
	defer rows.Close()

	out := []domain.InterviewSummary{}
	for rows.Next() {
		var sum domain.InterviewSummary
		if err := rows.Scan(&sum.ID, &sum.Topic, &sum.TotalQuestions, &sum.OverallScore, &sum.Improved, &sum.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan interview: %w", err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *InterviewStore) Get(ctx context.Context, id int64, userID string) (domain.InterviewDetail, error) {
	if userID == "" || id <= 0 {
		return domain.InterviewDetail{}, domain.ErrValidation
	}

	var detail domain.InterviewDetail
	err := s.pool.QueryRow(ctx,
		`SELECT id, topic, total_questions, overall_score, improved, created_at
		 FROM interviews WHERE id=$1 AND user_id=$2`, id, userID,
	).Scan(&detail.ID, &detail.Topic, &detail.TotalQuestions, &detail.OverallScore, &detail.Improved, &detail.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.InterviewDetail{}, domain.ErrInterviewNotFound
	}
	if err != nil {
		return domain.InterviewDetail{}, fmt.Errorf("get interview: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT question_idx, question, reference_answer, answer, score, feedback
		 FROM interview_items WHERE interview_id=$1 ORDER BY question_idx ASC`, id)
	if err != nil {
		return domain.InterviewDetail{}, fmt.Errorf("get items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.InterviewItem
		if err := rows.Scan(&item.QuestionIdx, &item.Question, &item.ReferenceAnswer, &item.Answer, &item.Score, &item.Feedback); err != nil {
			return domain.InterviewDetail{}, fmt.Errorf("scan item: %w", err)
		}
		detail.Items = append(detail.Items, item)
	}
	return detail, rows.Err()
}

func (s *InterviewStore) Delete(ctx context.Context, id int64, userID string) error {
	if userID == "" || id <= 0 {
		return domain.ErrValidation
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM interviews WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete interview: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInterviewNotFound
	}
	// items go with the interview via ON DELETE CASCADE
	return nil
}

func (s *InterviewStore) Stats(ctx context.Context, userID string) (domain.Stats, error) {
	if userID == "" {
		return domain.Stats{}, domain.ErrValidation
	}
	var (
		stats domain.Stats
		avg   *float64
		best  *int
		worst *int
	)
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        AVG(overall_score),
		        MAX(overall_score),
		        MIN(overall_score),
		        COUNT(*) FILTER (WHERE improved IS TRUE),
		        COUNT(*) FILTER (WHERE improved IS FALSE)
		 FROM interviews WHERE user_id=$1`, userID,
	).Scan(&stats.TotalInterviews, &avg, &best, &worst, &stats.ImprovedCount, &stats.DeclinedCount)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("stats: %w", err)
	}
	if avg != nil {
		stats.AverageScore = int(math.Round(*avg))
	}
	if best != nil {
		stats.BestScore = *best
	}
	if worst != nil {
		stats.WorstScore = *worst
	}
	return stats, nil
}
