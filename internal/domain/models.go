package domain

import "time"

// QuizKind distinguishes auto-graded quizzes from manually reviewed ones.
type QuizKind string

const (
	KindMultipleChoice QuizKind = "multiple_choice"
	KindPractical      QuizKind = "practical"
)

// Quiz is the metadata of an assessment. It is immutable for the lifetime of an attempt.
type Quiz struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Kind            QuizKind  `json:"kind"`
	DurationMinutes *int      `json:"durationMinutes,omitempty"` // nil means untimed
	CreatedAt       time.Time `json:"createdAt"`
}

// Timed reports whether the quiz carries a countdown.
func (q Quiz) Timed() bool {
	return q.DurationMinutes != nil && *q.DurationMinutes > 0
}

// Question belongs to a quiz; Position defines display and scoring order.
type Question struct {
	ID       string `json:"id"`
	QuizID   string `json:"quizId"`
	Title    string `json:"title"`
	Body     string `json:"body,omitempty"`
	Position int    `json:"position"`
}

// Option is a possible answer for a multiple-choice question.
type Option struct {
	ID         string `json:"id"`
	QuestionID string `json:"questionId"`
	Position   int    `json:"position"`
	Text       string `json:"text"`
	Correct    bool   `json:"correct"`
}

// QuizContent is the snapshot a session works against: the quiz, its ordered
// questions and, for multiple-choice quizzes, options grouped by question ID.
type QuizContent struct {
	Quiz      Quiz                `json:"quiz"`
	Questions []Question          `json:"questions"`
	Options   map[string][]Option `json:"options,omitempty"`
}

// Attempt is one graded submission. Created once, never mutated.
type Attempt struct {
	ID                  string    `json:"id"`
	QuizID              string    `json:"quizId"`
	UserID              string    `json:"userId"`
	Score               int       `json:"score"`
	Total               int       `json:"total"`
	DurationUsedSeconds *int      `json:"durationUsedSeconds,omitempty"`
	CreatedAt           time.Time `json:"createdAt"`

	// Read-side fields filled by stores that join quiz metadata.
	QuizTitle string   `json:"quizTitle,omitempty"`
	QuizKind  QuizKind `json:"quizKind,omitempty"`
}

// AttemptAnswer is the per-question detail row of an attempt.
// Correct is nil when the answer was not graded (practical).
type AttemptAnswer struct {
	AttemptID        string  `json:"attemptId"`
	QuestionID       string  `json:"questionId"`
	SelectedOptionID *string `json:"selectedOptionId,omitempty"`
	AnswerText       *string `json:"answerText,omitempty"`
	Correct          *bool   `json:"correct"`
}

// QuizPerformance is a per-quiz rollup row.
type QuizPerformance struct {
	QuizID            string   `json:"quizId"`
	Title             string   `json:"title"`
	Kind              QuizKind `json:"kind,omitempty"`
	AttemptsCount     int      `json:"attemptsCount"`
	AveragePercentage float64  `json:"averagePercentage"`
	PassRate          float64  `json:"passRate"`
}

// AttemptFilter narrows attempt listings. Zero values mean "any".
type AttemptFilter struct {
	QuizID string
	UserID string
	Since  time.Time
}

// AttemptOrder is the ordering of attempt listings by creation time.
type AttemptOrder int

const (
	NewestFirst AttemptOrder = iota
	OldestFirst
)

// AttemptQuery is a filtered, ordered, optionally limited listing request.
type AttemptQuery struct {
	Filter AttemptFilter
	Order  AttemptOrder
	Limit  int // 0 means no limit
}

// Identity is the authenticated user a session acts on behalf of.
type Identity struct {
	UserID string `json:"userId"`
	Email  string `json:"email,omitempty"`
}

// Anonymous reports whether no user was identified.
func (i Identity) Anonymous() bool {
	return i.UserID == ""
}

// EventType names attempt lifecycle notifications.
type EventType string

const (
	EventAttemptRecorded EventType = "attempt.recorded"
	EventAttemptPartial  EventType = "attempt.partial"
)

// AttemptEvent is emitted once an attempt header has been persisted.
type AttemptEvent struct {
	Type       EventType `json:"type"`
	Attempt    Attempt   `json:"attempt"`
	AnswerRows int       `json:"answerRows"`
	OccurredAt time.Time `json:"occurredAt"`
}
