package domain

import "time"

// QuestionItem pairs an interview question with the reference answer it is
// scored against.
type QuestionItem struct {
	Question        string `json:"question"`
	ReferenceAnswer string `json:"referenceAnswer"`
}

// Pool is the full candidate set of question/reference-answer pairs for a topic.
type Pool struct {
	TopicID string         `json:"topicId"`
	Items   []QuestionItem `json:"items"`
}

// Selection is the subset of a pool chosen for one rehearsal session.
type Selection struct {
	Items   []QuestionItem `json:"items"`
	Indices []int          `json:"indices"`
}

// SelectionHistory remembers which pool indices a user last received for a
// topic, so the next selection can avoid repeats.
type SelectionHistory struct {
	Indices   []int     `json:"indices"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Progress is the persisted mid-session snapshot used for crash/reload
// recovery. Answers always has one slot per selected question; an empty
// string means unanswered.
type Progress struct {
	CurrentIndex int       `json:"currentIndex"`
	Answers      []string  `json:"answers"`
	SavedAt      time.Time `json:"savedAt"`
}

// Tier is the discrete feedback bucket derived from a numeric score.
type Tier string

const (
	TierStrong           Tier = "strong"
	TierGood             Tier = "good"
	TierPartial          Tier = "partial"
	TierNeedsImprovement Tier = "needs improvement"
)

// ScoreRecord is the evaluation of one answer against its reference answer.
type ScoreRecord struct {
	Score    int    `json:"score"`
	Tier     Tier   `json:"tier"`
	Feedback string `json:"feedback"`
}

// InterviewItem is one scored question inside a stored interview.
type InterviewItem struct {
	QuestionIdx     int    `json:"questionIdx"`
	Question        string `json:"question"`
	ReferenceAnswer string `json:"referenceAnswer"`
	Answer          string `json:"answer"`
	Score           int    `json:"score"`
	Feedback        string `json:"feedback"`
}

// InterviewSummary is the list view of a stored interview. Improved is nil
// for the user's first recorded interview, otherwise it reports whether the
// overall score held or rose versus the immediately preceding one.
type InterviewSummary struct {
	ID             int64     `json:"id"`
	Topic          string    `json:"topic"`
	TotalQuestions int       `json:"totalQuestions"`
	OverallScore   int       `json:"overallScore"`
	Improved       *bool     `json:"improved"`
	CreatedAt      time.Time `json:"createdAt"`
}

// InterviewDetail is the full record of one stored interview.
type InterviewDetail struct {
	InterviewSummary
	Items []InterviewItem `json:"items"`
}

// InterviewDraft is a scored, completed session ready to be persisted.
// The store assigns the id, timestamp, and the improved comparison.
type InterviewDraft struct {
	UserID       string
	Topic        string
	Items        []InterviewItem
	OverallScore int
}

// Stats aggregates a user's stored interviews.
type Stats struct {
	TotalInterviews int `json:"totalInterviews"`
	AverageScore    int `json:"averageScore"`
	BestScore       int `json:"bestScore"`
	WorstScore      int `json:"worstScore"`
	ImprovedCount   int `json:"improvedCount"`
	DeclinedCount   int `json:"declinedCount"`
}

// AnonymousUserID is the sentinel identity used when no authenticated user
// is available.
const AnonymousUserID = "anon"
