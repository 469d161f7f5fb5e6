package analytics_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quiz-assessment-service/internal/analytics"
	"quiz-assessment-service/internal/domain"
	"quiz-assessment-service/internal/infra/memory"
	"quiz-assessment-service/internal/metrics"
)

var now = time.Date(2026, 6, 10, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return now }

type stubRollups struct {
	rows  []domain.QuizPerformance
	err   error
	calls int
}

func (s *stubRollups) QuizPerformance(_ context.Context, limit int) ([]domain.QuizPerformance, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return analytics.Top(s.rows, limit), nil
}

func seededStore() *memory.Store {
	store := memory.NewStore()
	store.SeedContent(domain.QuizContent{Quiz: domain.Quiz{ID: "quiz-a", Title: "Algebra", Kind: domain.KindMultipleChoice}})
	store.SeedContent(domain.QuizContent{Quiz: domain.Quiz{ID: "quiz-b", Title: "Biology", Kind: domain.KindMultipleChoice}})
	store.SeedContent(domain.QuizContent{Quiz: domain.Quiz{ID: "quiz-e", Title: "Essay", Kind: domain.KindPractical}})

	seed := []struct {
		quiz, user   string
		score, total int
		age          time.Duration
	}{
		{"quiz-a", "u-1", 10, 10, time.Hour},
		{"quiz-a", "u-2", 0, 20, 2 * time.Hour},
		{"quiz-a", "u-1", 1, 2, 30 * time.Hour},
		{"quiz-b", "u-2", 1, 4, 3 * 24 * time.Hour},
		{"quiz-b", "u-1", 3, 4, 9 * 24 * time.Hour},
		{"quiz-e", "u-3", 0, 1, 10 * time.Minute},
	}
	for _, s := range seed {
		store.SeedAttempt(domain.Attempt{
			QuizID:    s.quiz,
			UserID:    s.user,
			Score:     s.score,
			Total:     s.total,
			CreatedAt: now.Add(-s.age),
		})
	}
	return store
}

func TestComputePlatformAggregate(t *testing.T) {
	engine := analytics.NewEngine(seededStore(), nil, analytics.WithClock(fixedClock))

	agg, err := engine.Compute(context.Background(), analytics.Scope{}, analytics.Window{})
	require.NoError(t, err)

	assert.Equal(t, 6, agg.TotalAttempts)
	assert.Equal(t, 6, agg.SampledAttempts)
	// (100 + 0 + 50 + 25 + 75 + 0) / 6
	assert.Equal(t, 42, agg.AveragePercentage)
	assert.Equal(t, 3, agg.Passed)
	assert.Equal(t, 3, agg.Failed)
	assert.Equal(t, 50, agg.PassRate)
	assert.Equal(t, analytics.DefaultWindowDays, agg.WindowDays)

	require.Len(t, agg.Daily, 7)
	assert.Equal(t, 3, agg.Daily[6].Count)
	assert.Equal(t, 1, agg.Daily[5].Count)
	assert.Equal(t, 1, agg.Daily[3].Count)

	require.Len(t, agg.TopQuizzes, 3)
	assert.Equal(t, "quiz-a", agg.TopQuizzes[0].QuizID)
	assert.Equal(t, "Algebra", agg.TopQuizzes[0].Title)
	assert.Equal(t, 3, agg.TopQuizzes[0].AttemptsCount)

	require.Len(t, agg.Recent, 5)
	assert.Equal(t, "quiz-e", agg.Recent[0].QuizID)
	assert.Equal(t, now, agg.GeneratedAt)
}

func TestComputeScopedToUser(t *testing.T) {
	engine := analytics.NewEngine(seededStore(), nil, analytics.WithClock(fixedClock))

	agg, err := engine.Compute(context.Background(), analytics.Scope{UserID: "u-1"}, analytics.Window{Days: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, agg.TotalAttempts)
	assert.Equal(t, 75, agg.AveragePercentage)
	assert.Equal(t, 3, agg.Passed)
	require.Len(t, agg.Daily, 3)
	assert.Equal(t, 1, agg.Daily[2].Count)
	assert.Equal(t, 1, agg.Daily[1].Count)
	for _, row := range agg.TopQuizzes {
		assert.NotEqual(t, "quiz-e", row.QuizID)
	}
}

func TestComputeScopedToQuizSkipsPerQuizFigures(t *testing.T) {
	rollups := &stubRollups{}
	engine := analytics.NewEngine(seededStore(), rollups, analytics.WithClock(fixedClock))

	agg, err := engine.Compute(context.Background(), analytics.Scope{QuizID: "quiz-b"}, analytics.Window{})
	require.NoError(t, err)
	assert.Equal(t, 2, agg.TotalAttempts)
	assert.Equal(t, 50, agg.AveragePercentage)
	assert.Nil(t, agg.TopQuizzes)
	assert.Zero(t, rollups.calls)
}

func TestComputeEmptyHistory(t *testing.T) {
	engine := analytics.NewEngine(memory.NewStore(), nil, analytics.WithClock(fixedClock))

	agg, err := engine.Compute(context.Background(), analytics.Scope{}, analytics.Window{})
	require.NoError(t, err)
	assert.Zero(t, agg.TotalAttempts)
	assert.Zero(t, agg.AveragePercentage)
	assert.Zero(t, agg.PassRate)
	assert.Len(t, agg.Daily, 7)
	assert.Empty(t, agg.Recent)
}

func TestQuizPerformancePrefersRollup(t *testing.T) {
	rollups := &stubRollups{rows: []domain.QuizPerformance{
		{QuizID: "quiz-b", Title: "Biology", AttemptsCount: 40},
		{QuizID: "quiz-a", Title: "Algebra", AttemptsCount: 12},
	}}
	engine := analytics.NewEngine(seededStore(), rollups, analytics.WithClock(fixedClock))

	rows, err := engine.QuizPerformance(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 40, rows[0].AttemptsCount)
	assert.Equal(t, 1, rollups.calls)
}

func TestQuizPerformanceFallsBackToAttempts(t *testing.T) {
	rollups := &stubRollups{err: domain.ErrRollupUnavailable}
	engine := analytics.NewEngine(seededStore(), rollups, analytics.WithClock(fixedClock))

	before := testutil.ToFloat64(metrics.RollupFallbackTotal)
	rows, err := engine.QuizPerformance(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "quiz-a", rows[0].QuizID)
	assert.InDelta(t, 50.0, rows[0].AveragePercentage, 1e-9)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.RollupFallbackTotal))
}

type failingSource struct {
	*memory.Store
}

func (failingSource) CountAttempts(context.Context, domain.AttemptFilter) (int, error) {
	return 0, errors.New("connection reset")
}

func TestComputePropagatesReadErrors(t *testing.T) {
	engine := analytics.NewEngine(failingSource{seededStore()}, nil, analytics.WithClock(fixedClock))

	_, err := engine.Compute(context.Background(), analytics.Scope{}, analytics.Window{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "count attempts")
}

func TestHistoryAndUserSummary(t *testing.T) {
	engine := analytics.NewEngine(seededStore(), nil, analytics.WithClock(fixedClock))
	ctx := context.Background()

	history, err := engine.History(ctx, "u-2", 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.True(t, history[0].CreatedAt.After(history[1].CreatedAt))
	assert.Equal(t, "Algebra", history[0].QuizTitle)

	summary, err := engine.UserSummary(ctx, "u-2")
	require.NoError(t, err)
	assert.Equal(t, analytics.UserSummary{UserID: "u-2", Completed: 2, Passed: 0, Failed: 2, PassPercentage: 0}, summary)

	summary, err = engine.UserSummary(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Passed)
	assert.Equal(t, 100, summary.PassPercentage)

	quizAttempts, err := engine.QuizAttempts(ctx, "quiz-b", 1)
	require.NoError(t, err)
	require.Len(t, quizAttempts, 1)
	assert.Equal(t, "u-2", quizAttempts[0].UserID)
}
