package redis

import (
	"context"
	"errors"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"

	"quiz-assessment-service/internal/domain"
)

func TestRollupStoreAccumulatesAttempts(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewRollupStore(newClient(mr))
	ctx := context.Background()

	if _, err := store.QuizPerformance(ctx, 3); !errors.Is(err, domain.ErrRollupUnavailable) {
		t.Fatalf("expected ErrRollupUnavailable on empty rollup, got %v", err)
	}

	attempts := []domain.Attempt{
		{ID: "a1", QuizID: "quiz-a", QuizTitle: "Algebra", Score: 10, Total: 10},
		{ID: "a2", QuizID: "quiz-a", QuizTitle: "Algebra", Score: 0, Total: 20},
		{ID: "a3", QuizID: "quiz-b", QuizTitle: "Biology", Score: 5, Total: 10},
	}
	for _, a := range attempts {
		if err := store.ObserveAttempt(ctx, domain.AttemptEvent{Type: domain.EventAttemptRecorded, Attempt: a}); err != nil {
			t.Fatalf("observe: %v", err)
		}
	}

	rows, err := store.QuizPerformance(ctx, 3)
	if err != nil {
		t.Fatalf("performance: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].QuizID != "quiz-a" || rows[0].AttemptsCount != 2 {
		t.Fatalf("expected quiz-a ranked first, got %+v", rows[0])
	}
	if rows[0].AveragePercentage != 50 || rows[0].PassRate != 50 {
		t.Fatalf("unexpected quiz-a figures: %+v", rows[0])
	}
	if rows[1].Title != "Biology" || rows[1].PassRate != 100 {
		t.Fatalf("unexpected quiz-b figures: %+v", rows[1])
	}

	top, err := store.QuizPerformance(ctx, 1)
	if err != nil || len(top) != 1 {
		t.Fatalf("expected single top row, got %v %v", top, err)
	}
}

func TestRollupStoreRebuildReplacesCounters(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewRollupStore(newClient(mr))
	ctx := context.Background()

	stale := domain.Attempt{ID: "old", QuizID: "quiz-gone", Score: 1, Total: 1}
	if err := store.ObserveAttempt(ctx, domain.AttemptEvent{Attempt: stale}); err != nil {
		t.Fatalf("observe: %v", err)
	}

	err = store.Rebuild(ctx, []domain.Attempt{
		{ID: "a1", QuizID: "quiz-a", QuizTitle: "Algebra", Score: 3, Total: 4},
	})
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if mr.Exists("quiz:perf:quiz-gone") {
		t.Fatalf("expected stale counters removed")
	}

	rows, err := store.QuizPerformance(ctx, 0)
	if err != nil {
		t.Fatalf("performance: %v", err)
	}
	if len(rows) != 1 || rows[0].QuizID != "quiz-a" || rows[0].AveragePercentage != 75 {
		t.Fatalf("unexpected rows after rebuild: %+v", rows)
	}
}

func TestRollupStoreBreaksTiesOnTitle(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewRollupStore(newClient(mr))
	ctx := context.Background()

	// equal scores come back from the sorted set in reverse member order
	attempts := []domain.Attempt{
		{ID: "a1", QuizID: "quiz-a", QuizTitle: "Alpha", Score: 1, Total: 1},
		{ID: "a2", QuizID: "quiz-z", QuizTitle: "Zulu", Score: 1, Total: 1},
	}
	for _, a := range attempts {
		if err := store.ObserveAttempt(ctx, domain.AttemptEvent{Type: domain.EventAttemptRecorded, Attempt: a}); err != nil {
			t.Fatalf("observe: %v", err)
		}
	}

	top, err := store.QuizPerformance(ctx, 1)
	if err != nil {
		t.Fatalf("performance: %v", err)
	}
	if len(top) != 1 || top[0].QuizID != "quiz-a" || top[0].Title != "Alpha" {
		t.Fatalf("expected Alpha to win the tie, got %+v", top)
	}
}
