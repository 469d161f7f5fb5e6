package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"quiz-assessment-service/internal/app"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Sessions own goroutines and timers, so they stay in a local map; Redis only
// carries a liveness marker per session (quiz:session:{id} -> quizID) that
// operators can count across instances.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) Put(session *app.Session) {
	s.mu.Lock()
	s.sessions[session.ID()] = session
	s.mu.Unlock()
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), sessionKey(session.ID()), session.QuizID(), s.ttl).Err()
}

func (s *SessionStore) Get(sessionID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	return session, ok
}

func (s *SessionStore) Delete(sessionID string) bool {
	s.mu.Lock()
	_, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	if !ok {
		return false
	}
	_ = s.client.Del(context.Background(), sessionKey(sessionID)).Err()
	return true
}

func sessionKey(sessionID string) string {
	return "quiz:session:" + sessionID
}
