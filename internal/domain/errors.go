package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuestionNotFound indicates a submitted question ID is invalid.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrOptionNotFound indicates a submitted option ID is invalid.
	ErrOptionNotFound = errors.New("option not found")
	// ErrAuthenticationRequired is returned when a submission has no identified user.
	ErrAuthenticationRequired = errors.New("authentication required")
	// ErrSessionNotFound is returned when an attempt session is not registered.
	ErrSessionNotFound = errors.New("attempt session not found")
	// ErrSessionClosed is returned for operations on a torn down or terminal session.
	ErrSessionClosed = errors.New("attempt session closed")
	// ErrSessionNotActive is returned when answers arrive outside the active state.
	ErrSessionNotActive = errors.New("attempt session not active")
	// ErrRollupUnavailable means no precomputed quiz performance exists.
	ErrRollupUnavailable = errors.New("quiz performance rollup unavailable")
)

// IncompleteAnswersError lists the multiple-choice questions still unanswered.
type IncompleteAnswersError struct {
	Missing []string
}

func (e *IncompleteAnswersError) Error() string {
	return fmt.Sprintf("incomplete answers: %d unanswered (%s)", len(e.Missing), strings.Join(e.Missing, ", "))
}

// PersistenceError wraps a failed write of the attempt header. Captured answers are kept.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// PartialSubmissionError means the attempt header exists but its answer rows do not.
type PartialSubmissionError struct {
	AttemptID string
	Err       error
}

func (e *PartialSubmissionError) Error() string {
	return fmt.Sprintf("attempt %s recorded without answers: %v", e.AttemptID, e.Err)
}

func (e *PartialSubmissionError) Unwrap() error { return e.Err }
