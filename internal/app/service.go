package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"quiz-assessment-service/internal/domain"
	"quiz-assessment-service/internal/metrics"
)

// SessionRepository abstracts where live attempt sessions are kept (in-memory, Redis, etc).
type SessionRepository interface {
	Put(session *Session)
	Get(sessionID string) (*Session, bool)
	// Delete reports whether the session was registered.
	Delete(sessionID string) bool
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetContent(ctx context.Context, quizID string) (domain.QuizContent, error)
}

// AttemptService contains the attempt-taking use cases.
type AttemptService struct {
	sessions  SessionRepository
	quizzes   QuizRepository
	recorder  Recorder
	newTicker TickerFunc
	now       func() time.Time
	logger    *slog.Logger
}

// ServiceOption customises an AttemptService.
type ServiceOption func(*AttemptService)

// WithTicker replaces the wall-clock countdown ticker.
func WithTicker(fn TickerFunc) ServiceOption {
	return func(s *AttemptService) { s.newTicker = fn }
}

// WithClock is test-only for deterministic timestamps.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *AttemptService) { s.now = now }
}

func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *AttemptService) { s.logger = logger }
}

func NewAttemptService(sessions SessionRepository, quizzes QuizRepository, recorder Recorder, opts ...ServiceOption) *AttemptService {
	s := &AttemptService{
		sessions:  sessions,
		quizzes:   quizzes,
		recorder:  recorder,
		newTicker: NewWallTicker,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartSession loads a quiz and opens an attempt session for the identity.
// On failure the returned snapshot still reports the terminal state.
func (s *AttemptService) StartSession(ctx context.Context, quizID string, identity domain.Identity) (Snapshot, error) {
	session := NewSession(uuid.NewString(), quizID, identity, SessionDeps{
		Quizzes:   s.quizzes,
		Recorder:  s.recorder,
		NewTicker: s.newTicker,
		Now:       s.now,
		Logger:    s.logger,
	})
	if err := session.Start(ctx); err != nil {
		snap := session.Snapshot()
		session.Close()
		return snap, err
	}
	s.sessions.Put(session)
	metrics.SessionsActive.Inc()
	return session.Snapshot(), nil
}

// RecordAnswer captures an answer in the session's answer store.
func (s *AttemptService) RecordAnswer(_ context.Context, sessionID, questionID, value string) (Snapshot, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return Snapshot{}, domain.ErrSessionNotFound
	}
	if err := session.RecordAnswer(questionID, value); err != nil {
		return Snapshot{}, err
	}
	return session.Snapshot(), nil
}

// Submit grades and persists the attempt once.
func (s *AttemptService) Submit(ctx context.Context, sessionID string) (Outcome, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return Outcome{}, domain.ErrSessionNotFound
	}
	return session.Submit(ctx)
}

func (s *AttemptService) Snapshot(_ context.Context, sessionID string) (Snapshot, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return Snapshot{}, domain.ErrSessionNotFound
	}
	return session.Snapshot(), nil
}

// Subscribe returns a channel that receives session snapshots.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *AttemptService) Subscribe(_ context.Context, sessionID string) (<-chan Snapshot, func(), error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	ch, cancel := session.Subscribe()
	return ch, cancel, nil
}

// Teardown stops the session's countdown and drops it from the registry.
func (s *AttemptService) Teardown(_ context.Context, sessionID string) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return
	}
	session.Close()
	if s.sessions.Delete(sessionID) {
		metrics.SessionsActive.Dec()
	}
}
