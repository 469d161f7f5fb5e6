package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"quiz-assessment-service/internal/domain"
)

// Store keeps quizzes, attempts and answer rows in memory. It serves the content
// reads, the attempt writes and the attempt history reads, and is what tests and
// the demo server run against.
type Store struct {
	mu        sync.RWMutex
	quizzes   map[string]domain.Quiz
	questions map[string][]domain.Question
	options   map[string][]domain.Option
	attempts  []domain.Attempt
	answers   []domain.AttemptAnswer

	failAttempt error
	failAnswers error
}

func NewStore() *Store {
	return &Store{
		quizzes:   make(map[string]domain.Quiz),
		questions: make(map[string][]domain.Question),
		options:   make(map[string][]domain.Option),
	}
}

// SeedContent registers a quiz with its questions and options.
func (s *Store) SeedContent(content domain.QuizContent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	quiz := content.Quiz
	if quiz.CreatedAt.IsZero() {
		quiz.CreatedAt = time.Now().UTC()
	}
	s.quizzes[quiz.ID] = quiz
	questions := make([]domain.Question, len(content.Questions))
	copy(questions, content.Questions)
	for i := range questions {
		questions[i].QuizID = quiz.ID
	}
	s.questions[quiz.ID] = questions
	for qid, opts := range content.Options {
		cp := make([]domain.Option, len(opts))
		copy(cp, opts)
		for i := range cp {
			cp[i].QuestionID = qid
		}
		s.options[qid] = cp
	}
}

// SeedAttempt stores a historical attempt as-is, assigning an ID when missing.
func (s *Store) SeedAttempt(a domain.Attempt) domain.Attempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	s.attempts = append(s.attempts, a)
	return a
}

// FailAttemptInserts makes subsequent attempt header writes fail with err. Nil clears it.
func (s *Store) FailAttemptInserts(err error) {
	s.mu.Lock()
	s.failAttempt = err
	s.mu.Unlock()
}

// FailAnswerInserts makes subsequent answer row writes fail with err. Nil clears it.
func (s *Store) FailAnswerInserts(err error) {
	s.mu.Lock()
	s.failAnswers = err
	s.mu.Unlock()
}

func (s *Store) GetQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return quiz, nil
}

func (s *Store) ListQuestions(_ context.Context, quizID string) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	questions := make([]domain.Question, len(s.questions[quizID]))
	copy(questions, s.questions[quizID])
	return questions, nil
}

func (s *Store) ListOptions(_ context.Context, questionIDs []string) ([]domain.Option, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Option
	for _, id := range questionIDs {
		out = append(out, s.options[id]...)
	}
	return out, nil
}

func (s *Store) InsertAttempt(_ context.Context, a domain.Attempt) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAttempt != nil {
		return "", s.failAttempt
	}
	a.ID = uuid.NewString()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	s.attempts = append(s.attempts, a)
	return a.ID, nil
}

func (s *Store) InsertAttemptAnswers(_ context.Context, rows []domain.AttemptAnswer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAnswers != nil {
		return s.failAnswers
	}
	s.answers = append(s.answers, rows...)
	return nil
}

// AttemptAnswers returns the stored answer rows for an attempt.
func (s *Store) AttemptAnswers(attemptID string) []domain.AttemptAnswer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.AttemptAnswer
	for _, row := range s.answers {
		if row.AttemptID == attemptID {
			out = append(out, row)
		}
	}
	return out
}

func (s *Store) ListAttempts(_ context.Context, q domain.AttemptQuery) ([]domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Attempt, 0)
	for _, a := range s.attempts {
		if !matches(a, q.Filter) {
			continue
		}
		if quiz, ok := s.quizzes[a.QuizID]; ok {
			a.QuizTitle = quiz.Title
			a.QuizKind = quiz.Kind
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if q.Order == domain.OldestFirst {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *Store) CountAttempts(_ context.Context, f domain.AttemptFilter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, a := range s.attempts {
		if matches(a, f) {
			n++
		}
	}
	return n, nil
}

func matches(a domain.Attempt, f domain.AttemptFilter) bool {
	if f.QuizID != "" && a.QuizID != f.QuizID {
		return false
	}
	if f.UserID != "" && a.UserID != f.UserID {
		return false
	}
	if !f.Since.IsZero() && a.CreatedAt.Before(f.Since) {
		return false
	}
	return true
}
