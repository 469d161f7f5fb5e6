package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"quiz-assessment-service/internal/app"
	"quiz-assessment-service/internal/domain"
)

func TestQuizRepositoryCaches(t *testing.T) {
	store := NewStore()
	store.SeedContent(sampleContent())
	loader := &countingLoader{ContentLoader: app.NewStoreLoader(store)}
	repo := NewQuizRepository(loader, time.Minute)

	content, err := repo.GetContent(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("get content: %v", err)
	}
	if len(content.Questions) != 2 || content.Questions[0].ID != "q1" {
		t.Fatalf("unexpected questions: %+v", content.Questions)
	}
	if loader.calls.Load() != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls.Load())
	}

	if _, err := repo.GetContent(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get content 2: %v", err)
	}
	if loader.calls.Load() != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls.Load())
	}
}

func TestQuizRepositoryExpires(t *testing.T) {
	store := NewStore()
	store.SeedContent(sampleContent())
	loader := &countingLoader{ContentLoader: app.NewStoreLoader(store)}
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	repo := NewQuizRepositoryWithClock(loader, time.Minute, func() time.Time { return now })

	if _, err := repo.GetContent(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get content: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := repo.GetContent(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get content after expiry: %v", err)
	}
	if loader.calls.Load() != 2 {
		t.Fatalf("expected reload after ttl, loader calls %d", loader.calls.Load())
	}
}

func TestQuizRepositoryInvalidateForcesReload(t *testing.T) {
	store := NewStore()
	store.SeedContent(sampleContent())
	loader := &countingLoader{ContentLoader: app.NewStoreLoader(store)}
	repo := NewQuizRepository(loader, time.Minute)

	if _, err := repo.GetContent(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get content: %v", err)
	}
	if err := repo.Invalidate(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, err := repo.GetContent(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get content after invalidate: %v", err)
	}
	if loader.calls.Load() != 2 {
		t.Fatalf("expected reload after invalidate, loader calls %d", loader.calls.Load())
	}
}

func TestQuizRepositoryNotFoundIsNotCached(t *testing.T) {
	loader := &countingLoader{ContentLoader: app.NewStoreLoader(NewStore())}
	repo := NewQuizRepository(loader, time.Minute)

	for range 2 {
		if _, err := repo.GetContent(context.Background(), "missing"); !errors.Is(err, domain.ErrQuizNotFound) {
			t.Fatalf("expected ErrQuizNotFound, got %v", err)
		}
	}
	if loader.calls.Load() != 2 {
		t.Fatalf("expected misses to reach the loader, got %d", loader.calls.Load())
	}
}

func TestQuizRepositoryCollapsesConcurrentLoads(t *testing.T) {
	release := make(chan struct{})
	loader := &blockingLoader{release: release, content: sampleContent()}
	repo := NewQuizRepository(loader, time.Minute)

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.GetContent(context.Background(), "quiz-1"); err != nil {
				t.Errorf("get content: %v", err)
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if loader.calls.Load() != 1 {
		t.Fatalf("expected one load for concurrent callers, got %d", loader.calls.Load())
	}
}

type countingLoader struct {
	ContentLoader
	calls atomic.Int32
}

func (l *countingLoader) LoadContent(ctx context.Context, quizID string) (domain.QuizContent, error) {
	l.calls.Add(1)
	return l.ContentLoader.LoadContent(ctx, quizID)
}

type blockingLoader struct {
	release chan struct{}
	content domain.QuizContent
	calls   atomic.Int32
}

func (l *blockingLoader) LoadContent(_ context.Context, _ string) (domain.QuizContent, error) {
	l.calls.Add(1)
	<-l.release
	return l.content, nil
}

func sampleContent() domain.QuizContent {
	return domain.QuizContent{
		Quiz: domain.Quiz{ID: "quiz-1", Title: "Arithmetic", Kind: domain.KindMultipleChoice},
		Questions: []domain.Question{
			{ID: "q2", Title: "What is 3 + 3?", Position: 2},
			{ID: "q1", Title: "What is 2 + 2?", Position: 1},
		},
		Options: map[string][]domain.Option{
			"q1": {
				{ID: "o1", Text: "3", Position: 1},
				{ID: "o2", Text: "4", Position: 2, Correct: true},
			},
			"q2": {
				{ID: "o3", Text: "6", Position: 1, Correct: true},
				{ID: "o4", Text: "9", Position: 2},
			},
		},
	}
}
