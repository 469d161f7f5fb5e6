package app

import (
	"context"
	"log/slog"
	"time"

	"quiz-assessment-service/internal/domain"
	"quiz-assessment-service/internal/metrics"
)

// AttemptWriter is the write side of the storage collaborator.
type AttemptWriter interface {
	InsertAttempt(ctx context.Context, attempt domain.Attempt) (string, error)
	InsertAttemptAnswers(ctx context.Context, rows []domain.AttemptAnswer) error
}

// AttemptObserver is notified after an attempt header has been persisted.
type AttemptObserver interface {
	ObserveAttempt(ctx context.Context, event domain.AttemptEvent) error
}

// Submission is what a session hands to the recorder.
type Submission struct {
	QuizID              string
	QuizTitle           string
	QuizKind            domain.QuizKind
	Identity            domain.Identity
	Grade               Grade
	DurationUsedSeconds *int
}

// Recorder persists a graded submission.
type Recorder interface {
	Record(ctx context.Context, sub Submission) (domain.Attempt, error)
}

// SubmissionRecorder writes the attempt header, then its answer rows.
// A failure of the second step leaves the header in place and is reported as
// a PartialSubmissionError.
type SubmissionRecorder struct {
	store     AttemptWriter
	observers []AttemptObserver
	now       func() time.Time
	logger    *slog.Logger
}

func NewSubmissionRecorder(store AttemptWriter, observers ...AttemptObserver) *SubmissionRecorder {
	return &SubmissionRecorder{
		store:     store,
		observers: observers,
		now:       time.Now,
		logger:    slog.Default(),
	}
}

// NewSubmissionRecorderWithClock is test-only for deterministic timestamps.
func NewSubmissionRecorderWithClock(store AttemptWriter, now func() time.Time, observers ...AttemptObserver) *SubmissionRecorder {
	r := NewSubmissionRecorder(store, observers...)
	r.now = now
	return r
}

func (r *SubmissionRecorder) Record(ctx context.Context, sub Submission) (domain.Attempt, error) {
	attempt := domain.Attempt{
		QuizID:              sub.QuizID,
		UserID:              sub.Identity.UserID,
		Score:               sub.Grade.Score,
		Total:               sub.Grade.Total,
		DurationUsedSeconds: sub.DurationUsedSeconds,
		CreatedAt:           r.now().UTC(),
		QuizTitle:           sub.QuizTitle,
		QuizKind:            sub.QuizKind,
	}

	id, err := r.store.InsertAttempt(ctx, attempt)
	if err != nil {
		metrics.RecordSubmission(metrics.SubmissionPersistenceError)
		return domain.Attempt{}, &domain.PersistenceError{Op: "attempt", Err: err}
	}
	attempt.ID = id

	rows := make([]domain.AttemptAnswer, 0, len(sub.Grade.Answers))
	for _, a := range sub.Grade.Answers {
		rows = append(rows, domain.AttemptAnswer{
			AttemptID:        id,
			QuestionID:       a.QuestionID,
			SelectedOptionID: a.SelectedOptionID,
			AnswerText:       a.AnswerText,
			Correct:          a.Correct,
		})
	}

	if len(rows) > 0 {
		if err := r.store.InsertAttemptAnswers(ctx, rows); err != nil {
			metrics.RecordSubmission(metrics.SubmissionPartial)
			r.logger.Error("attempt recorded without answer rows",
				"attempt_id", id, "quiz_id", sub.QuizID, "user_id", sub.Identity.UserID, "error", err)
			r.notify(ctx, domain.EventAttemptPartial, attempt, 0)
			return attempt, &domain.PartialSubmissionError{AttemptID: id, Err: err}
		}
	}

	metrics.RecordSubmission(metrics.SubmissionRecorded)
	r.notify(ctx, domain.EventAttemptRecorded, attempt, len(rows))
	return attempt, nil
}

func (r *SubmissionRecorder) notify(ctx context.Context, typ domain.EventType, attempt domain.Attempt, rows int) {
	event := domain.AttemptEvent{
		Type:       typ,
		Attempt:    attempt,
		AnswerRows: rows,
		OccurredAt: r.now().UTC(),
	}
	for _, o := range r.observers {
		if err := o.ObserveAttempt(ctx, event); err != nil {
			r.logger.Error("attempt observer failed", "event", typ, "attempt_id", attempt.ID, "error", err)
		}
	}
}
