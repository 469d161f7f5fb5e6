package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"quiz-assessment-service/internal/domain"
	"quiz-assessment-service/internal/metrics"
)

// State is the lifecycle position of an attempt session.
type State string

const (
	StateLoading    State = "loading"
	StateActive     State = "active"
	StateSubmitting State = "submitting"
	StateCompleted  State = "completed"
	StateNotFound   State = "not_found"
	StateExpired    State = "expired"
)

// Trigger tells whether a submission came from the user or the deadline.
type Trigger string

const (
	TriggerManual   Trigger = "manual"
	TriggerDeadline Trigger = "deadline"
)

// Outcome is the result of the single submission a session performs.
type Outcome struct {
	Attempt domain.Attempt `json:"attempt"`
	Grade   Grade          `json:"grade"`
	Trigger Trigger        `json:"trigger"`
	Partial bool           `json:"partial"`
}

// OptionView is an option as shown to the learner (no correctness flag).
type OptionView struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// QuestionStatus is the per-question rendering state.
type QuestionStatus struct {
	QuestionID string       `json:"questionId"`
	Title      string       `json:"title"`
	Body       string       `json:"body,omitempty"`
	Position   int          `json:"position"`
	Options    []OptionView `json:"options,omitempty"`
	Answered   bool         `json:"answered"`
	Value      string       `json:"value,omitempty"`
}

// Snapshot is a read-only view of a session for rendering. SubmitError is set
// when the deadline submission failed and the learner has to retry manually.
type Snapshot struct {
	SessionID        string           `json:"sessionId"`
	QuizID           string           `json:"quizId"`
	Title            string           `json:"title,omitempty"`
	Kind             domain.QuizKind  `json:"kind,omitempty"`
	State            State            `json:"state"`
	RemainingSeconds *int             `json:"remainingSeconds,omitempty"`
	Questions        []QuestionStatus `json:"questions"`
	Answered         int              `json:"answered"`
	Total            int              `json:"total"`
	Closed           bool             `json:"closed"`
	Outcome          *Outcome         `json:"outcome,omitempty"`
	SubmitError      string           `json:"submitError,omitempty"`
	DeadlineErr      error            `json:"-"`
}

// SessionDeps are the collaborators a session needs.
type SessionDeps struct {
	Quizzes   QuizRepository
	Recorder  Recorder
	NewTicker TickerFunc
	Now       func() time.Time
	Logger    *slog.Logger
}

// Session runs one timed attempt: load, answer capture, grading and submission.
type Session struct {
	id        string
	quizID    string
	identity  domain.Identity
	quizzes   QuizRepository
	recorder  Recorder
	newTicker TickerFunc
	now       func() time.Time
	logger    *slog.Logger

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	halt     chan struct{}
	haltOnce sync.Once

	mu          sync.Mutex
	state       State
	content     domain.QuizContent
	answers     *AnswerStore
	timed       bool
	remaining   int
	expired     bool
	autoFired   bool
	ticker      Ticker
	inflight    *flight
	outcome     *Outcome
	outcomeErr  error
	deadlineErr error
	closed      bool
	subscribers map[chan Snapshot]struct{}
}

// NewSession builds a session in the loading state. Call Start to load content.
func NewSession(id, quizID string, identity domain.Identity, deps SessionDeps) *Session {
	if deps.NewTicker == nil {
		deps.NewTicker = NewWallTicker
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		id:          id,
		quizID:      quizID,
		identity:    identity,
		quizzes:     deps.Quizzes,
		recorder:    deps.Recorder,
		newTicker:   deps.NewTicker,
		now:         deps.Now,
		logger:      deps.Logger.With("session_id", id, "quiz_id", quizID),
		ctx:         ctx,
		cancel:      cancel,
		halt:        make(chan struct{}),
		state:       StateLoading,
		answers:     NewAnswerStore(),
		subscribers: make(map[chan Snapshot]struct{}),
	}
}

func (s *Session) ID() string     { return s.id }
func (s *Session) QuizID() string { return s.quizID }

// Start loads the quiz snapshot and activates the session, starting the
// countdown when the quiz is timed.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrSessionClosed
	}
	if s.state != StateLoading {
		s.mu.Unlock()
		return fmt.Errorf("session %s already started", s.id)
	}
	s.mu.Unlock()

	content, err := s.quizzes.GetContent(ctx, s.quizID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrSessionClosed
	}
	if err != nil {
		if errors.Is(err, domain.ErrQuizNotFound) {
			s.state = StateNotFound
			s.broadcastLocked()
			return err
		}
		return fmt.Errorf("load quiz %s: %w", s.quizID, err)
	}

	s.content = content
	s.state = StateActive
	if content.Quiz.Timed() {
		s.timed = true
		s.remaining = *content.Quiz.DurationMinutes * 60
		s.ticker = s.newTicker(time.Second)
		s.wg.Add(1)
		go s.runCountdown(s.ticker)
	}
	s.logger.Info("attempt session started", "timed", s.timed, "questions", len(content.Questions))
	s.broadcastLocked()
	return nil
}

func (s *Session) runCountdown(t Ticker) {
	defer s.wg.Done()
	for {
		select {
		case <-s.halt:
			return
		case <-t.C():
			if !s.tick() {
				continue
			}
			metrics.RecordAutoSubmission()
			if _, err := s.submit(s.ctx, TriggerDeadline); err != nil {
				s.logger.Warn("automatic submission failed", "error", err)
			}
		}
	}
}

// tick applies exactly one second to the countdown and reports whether the
// deadline-triggered submission should run now.
func (s *Session) tick() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || (s.state != StateActive && s.state != StateSubmitting) {
		return false
	}
	if s.remaining > 0 {
		s.remaining--
	}
	if s.remaining == 0 {
		s.expired = true
	}
	s.broadcastLocked()
	if s.expired && s.state == StateActive && !s.autoFired {
		s.autoFired = true
		return true
	}
	return false
}

// RecordAnswer captures the answer for a question. Last write wins.
func (s *Session) RecordAnswer(questionID, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrSessionClosed
	}
	if s.state != StateActive {
		return domain.ErrSessionNotActive
	}
	slot, err := s.answerSlotLocked(questionID, value)
	if err != nil {
		return err
	}
	s.answers.Set(slot, value)
	s.broadcastLocked()
	return nil
}

func (s *Session) answerSlotLocked(questionID, value string) (string, error) {
	if s.content.Quiz.Kind == domain.KindPractical {
		if len(s.content.Questions) == 0 {
			return "", domain.ErrQuestionNotFound
		}
		slot := s.content.Questions[0].ID
		if questionID != "" && questionID != slot {
			return "", domain.ErrQuestionNotFound
		}
		return slot, nil
	}

	found := false
	for _, q := range s.content.Questions {
		if q.ID == questionID {
			found = true
			break
		}
	}
	if !found {
		return "", domain.ErrQuestionNotFound
	}
	for _, opt := range s.content.Options[questionID] {
		if opt.ID == value {
			return questionID, nil
		}
	}
	return "", domain.ErrOptionNotFound
}

// Submit grades and records the attempt. At most one submission proceeds per
// session; concurrent or repeated calls share the in-flight or completed outcome.
func (s *Session) Submit(ctx context.Context) (Outcome, error) {
	return s.submit(ctx, TriggerManual)
}

func (s *Session) submit(ctx context.Context, trigger Trigger) (Outcome, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Outcome{}, domain.ErrSessionClosed
	}
	switch s.state {
	case StateActive:
	case StateSubmitting:
		f := s.inflight
		s.mu.Unlock()
		return f.wait(ctx)
	case StateCompleted:
		out, err := *s.outcome, s.outcomeErr
		s.mu.Unlock()
		return out, err
	case StateNotFound:
		s.mu.Unlock()
		return Outcome{}, domain.ErrQuizNotFound
	case StateExpired:
		s.mu.Unlock()
		return Outcome{}, domain.ErrSessionClosed
	default:
		s.mu.Unlock()
		return Outcome{}, domain.ErrSessionNotActive
	}

	if s.identity.Anonymous() {
		if trigger == TriggerDeadline {
			s.state = StateExpired
			s.haltLocked()
			s.broadcastLocked()
		}
		s.mu.Unlock()
		return Outcome{}, domain.ErrAuthenticationRequired
	}

	answers := s.answers.Snapshot()
	forced := trigger == TriggerDeadline || s.expired
	if !forced && s.content.Quiz.Kind == domain.KindMultipleChoice {
		if missing := s.missingLocked(answers); len(missing) > 0 {
			s.mu.Unlock()
			return Outcome{}, &domain.IncompleteAnswersError{Missing: missing}
		}
	}

	f := newFlight()
	s.inflight = f
	s.state = StateSubmitting
	var used *int
	if s.timed {
		u := max(*s.content.Quiz.DurationMinutes*60-s.remaining, 0)
		used = &u
	}
	content := s.content
	s.broadcastLocked()
	s.mu.Unlock()

	grade := GradeAttempt(content, answers)
	attempt, err := s.recorder.Record(ctx, Submission{
		QuizID:              content.Quiz.ID,
		QuizTitle:           content.Quiz.Title,
		QuizKind:            content.Quiz.Kind,
		Identity:            s.identity,
		Grade:               grade,
		DurationUsedSeconds: used,
	})
	outcome := Outcome{Attempt: attempt, Grade: grade, Trigger: trigger}
	var partial *domain.PartialSubmissionError
	if errors.As(err, &partial) {
		outcome.Partial = true
	}

	s.mu.Lock()
	if !s.closed {
		if err == nil || outcome.Partial {
			s.state = StateCompleted
			s.outcome = &outcome
			s.outcomeErr = err
			s.deadlineErr = nil
			s.haltLocked()
		} else {
			s.state = StateActive
			if trigger == TriggerDeadline {
				// auto-submit never fires twice; the countdown has nothing left to do
				s.deadlineErr = err
				s.haltLocked()
			}
		}
		s.inflight = nil
		s.broadcastLocked()
	}
	s.mu.Unlock()

	f.resolve(outcome, err)
	if err == nil {
		s.logger.Info("attempt submitted", "attempt_id", attempt.ID, "score", grade.Score, "total", grade.Total, "trigger", trigger)
	}
	return outcome, err
}

func (s *Session) missingLocked(answers map[string]string) []string {
	var missing []string
	for _, q := range s.content.Questions {
		if _, ok := answers[q.ID]; !ok {
			missing = append(missing, q.ID)
		}
	}
	return missing
}

// Close tears the session down: the countdown stops, no further transitions
// happen and in-flight completions are ignored.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.haltLocked()
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}

func (s *Session) haltLocked() {
	if s.ticker != nil {
		s.ticker.Stop()
	}
	s.haltOnce.Do(func() { close(s.halt) })
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe returns a channel that receives snapshots on every change.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 8)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subscribers[ch] = struct{}{}
	ch <- s.snapshotLocked()
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcastLocked() {
	if len(s.subscribers) == 0 {
		return
	}
	snap := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// slow subscriber: drop its oldest snapshot
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		SessionID: s.id,
		QuizID:    s.quizID,
		Title:     s.content.Quiz.Title,
		Kind:      s.content.Quiz.Kind,
		State:     s.state,
		Questions: make([]QuestionStatus, 0, len(s.content.Questions)),
		Total:     len(s.content.Questions),
		Closed:    s.closed,
	}
	if s.timed {
		remaining := s.remaining
		snap.RemainingSeconds = &remaining
	}
	for _, q := range s.content.Questions {
		value, answered := s.answers.Get(q.ID)
		status := QuestionStatus{
			QuestionID: q.ID,
			Title:      q.Title,
			Body:       q.Body,
			Position:   q.Position,
			Answered:   answered,
			Value:      value,
		}
		for _, opt := range s.content.Options[q.ID] {
			status.Options = append(status.Options, OptionView{ID: opt.ID, Text: opt.Text})
		}
		if answered {
			snap.Answered++
		}
		snap.Questions = append(snap.Questions, status)
	}
	sort.SliceStable(snap.Questions, func(i, j int) bool {
		return snap.Questions[i].Position < snap.Questions[j].Position
	})
	if s.outcome != nil {
		out := *s.outcome
		snap.Outcome = &out
	}
	if s.deadlineErr != nil {
		snap.DeadlineErr = s.deadlineErr
		snap.SubmitError = s.deadlineErr.Error()
	}
	return snap
}

// flight is the shared handle of the one in-progress submission.
type flight struct {
	done    chan struct{}
	outcome Outcome
	err     error
}

func newFlight() *flight {
	return &flight{done: make(chan struct{})}
}

func (f *flight) resolve(outcome Outcome, err error) {
	f.outcome = outcome
	f.err = err
	close(f.done)
}

func (f *flight) wait(ctx context.Context) (Outcome, error) {
	select {
	case <-f.done:
		return f.outcome, f.err
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}
