package app

import "sync"

// AnswerStore holds the in-progress response per question of one attempt.
// Values are option IDs for multiple-choice questions and free text for practical ones.
type AnswerStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewAnswerStore() *AnswerStore {
	return &AnswerStore{values: make(map[string]string)}
}

// Set overwrites any prior value for the question.
func (a *AnswerStore) Set(questionID, value string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.values[questionID] = value
}

func (a *AnswerStore) Get(questionID string) (string, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	v, ok := a.values[questionID]
	return v, ok
}

// Snapshot returns a copy safe to hand to the scoring step.
func (a *AnswerStore) Snapshot() map[string]string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make(map[string]string, len(a.values))
	for k, v := range a.values {
		out[k] = v
	}
	return out
}
