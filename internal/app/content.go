package app

import (
	"context"
	"fmt"
	"sort"

	"quiz-assessment-service/internal/domain"
)

// ContentStore is the read side of the storage collaborator used at session start.
type ContentStore interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	ListQuestions(ctx context.Context, quizID string) ([]domain.Question, error)
	ListOptions(ctx context.Context, questionIDs []string) ([]domain.Option, error)
}

// StoreLoader assembles QuizContent from a ContentStore. Each step awaits the
// previous one: options need the question IDs.
type StoreLoader struct {
	store ContentStore
}

func NewStoreLoader(store ContentStore) *StoreLoader {
	return &StoreLoader{store: store}
}

func (l *StoreLoader) LoadContent(ctx context.Context, quizID string) (domain.QuizContent, error) {
	quiz, err := l.store.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.QuizContent{}, err
	}

	questions, err := l.store.ListQuestions(ctx, quizID)
	if err != nil {
		return domain.QuizContent{}, fmt.Errorf("list questions: %w", err)
	}
	sort.SliceStable(questions, func(i, j int) bool { return questions[i].Position < questions[j].Position })

	content := domain.QuizContent{Quiz: quiz, Questions: questions}
	if quiz.Kind != domain.KindMultipleChoice || len(questions) == 0 {
		return content, nil
	}

	ids := make([]string, 0, len(questions))
	for _, q := range questions {
		ids = append(ids, q.ID)
	}
	options, err := l.store.ListOptions(ctx, ids)
	if err != nil {
		return domain.QuizContent{}, fmt.Errorf("list options: %w", err)
	}
	content.Options = make(map[string][]domain.Option, len(questions))
	for _, opt := range options {
		content.Options[opt.QuestionID] = append(content.Options[opt.QuestionID], opt)
	}
	for qid := range content.Options {
		opts := content.Options[qid]
		sort.SliceStable(opts, func(i, j int) bool { return opts[i].Position < opts[j].Position })
	}
	return content, nil
}
