package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"quiz-assessment-service/internal/domain"
	"quiz-assessment-service/internal/metrics"
)

// AttemptSource reads the raw attempt history.
type AttemptSource interface {
	ListAttempts(ctx context.Context, q domain.AttemptQuery) ([]domain.Attempt, error)
	CountAttempts(ctx context.Context, f domain.AttemptFilter) (int, error)
}

// RollupSource serves precomputed per-quiz performance, ranked by attempt count.
// It returns domain.ErrRollupUnavailable when nothing has been precomputed.
type RollupSource interface {
	QuizPerformance(ctx context.Context, limit int) ([]domain.QuizPerformance, error)
}

// Limits bounds how much history a single aggregation reads.
type Limits struct {
	AverageSample   int
	FallbackSample  int
	TopQuizzes      int
	PassRateQuizzes int
	Recent          int
}

func DefaultLimits() Limits {
	return Limits{
		AverageSample:   1000,
		FallbackSample:  500,
		TopQuizzes:      3,
		PassRateQuizzes: 6,
		Recent:          5,
	}
}

// Scope selects the attempts an aggregate covers. Empty fields mean platform-wide.
type Scope struct {
	QuizID string `json:"quizId,omitempty"`
	UserID string `json:"userId,omitempty"`
}

func (s Scope) filter() domain.AttemptFilter {
	return domain.AttemptFilter{QuizID: s.QuizID, UserID: s.UserID}
}

func (s Scope) platform() bool {
	return s.QuizID == "" && s.UserID == ""
}

// Window is the trailing period for daily counts.
type Window struct {
	Days int `json:"days"`
}

// Aggregate is the statistics report for a scope.
type Aggregate struct {
	Scope             Scope                    `json:"scope"`
	WindowDays        int                      `json:"windowDays"`
	TotalAttempts     int                      `json:"totalAttempts"`
	SampledAttempts   int                      `json:"sampledAttempts"`
	AveragePercentage int                      `json:"averagePercentage"`
	Passed            int                      `json:"passed"`
	Failed            int                      `json:"failed"`
	PassRate          int                      `json:"passRate"`
	Daily             []DayCount               `json:"daily"`
	TopQuizzes        []domain.QuizPerformance `json:"topQuizzes,omitempty"`
	PassRateByQuiz    []domain.QuizPerformance `json:"passRateByQuiz,omitempty"`
	Recent            []domain.Attempt         `json:"recent"`
	GeneratedAt       time.Time                `json:"generatedAt"`
}

// Engine computes statistics on demand from attempt history, preferring a
// precomputed rollup for per-quiz figures when one is available.
type Engine struct {
	attempts AttemptSource
	rollups  RollupSource
	limits   Limits
	loc      *time.Location
	now      func() time.Time
	logger   *slog.Logger
}

// Option customises an Engine.
type Option func(*Engine)

func WithLimits(l Limits) Option {
	return func(e *Engine) { e.limits = l }
}

func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// WithClock is test-only for deterministic windows.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// NewEngine builds an engine. rollups may be nil, in which case per-quiz figures
// are always recomputed from raw attempts.
func NewEngine(attempts AttemptSource, rollups RollupSource, opts ...Option) *Engine {
	e := &Engine{
		attempts: attempts,
		rollups:  rollups,
		limits:   DefaultLimits(),
		loc:      time.UTC,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Compute builds the aggregate for scope over the trailing window.
func (e *Engine) Compute(ctx context.Context, scope Scope, window Window) (Aggregate, error) {
	days := window.Days
	if days <= 0 {
		days = DefaultWindowDays
	}
	now := e.now()
	filter := scope.filter()

	var (
		total   int
		sample  []domain.Attempt
		inRange []domain.Attempt
		perQuiz []domain.QuizPerformance
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := e.attempts.CountAttempts(gctx, filter)
		if err != nil {
			return fmt.Errorf("count attempts: %w", err)
		}
		total = n
		return nil
	})
	g.Go(func() error {
		rows, err := e.attempts.ListAttempts(gctx, domain.AttemptQuery{
			Filter: filter,
			Order:  domain.NewestFirst,
			Limit:  e.limits.AverageSample,
		})
		if err != nil {
			return fmt.Errorf("sample attempts: %w", err)
		}
		sample = rows
		return nil
	})
	g.Go(func() error {
		windowFilter := filter
		windowFilter.Since = WindowStart(now, days, e.loc)
		rows, err := e.attempts.ListAttempts(gctx, domain.AttemptQuery{Filter: windowFilter, Order: domain.OldestFirst})
		if err != nil {
			return fmt.Errorf("window attempts: %w", err)
		}
		inRange = rows
		return nil
	})
	if scope.QuizID == "" {
		g.Go(func() error {
			rows, err := e.quizPerformance(gctx, scope, max(e.limits.TopQuizzes, e.limits.PassRateQuizzes))
			if err != nil {
				return err
			}
			perQuiz = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Aggregate{}, err
	}

	passed := 0
	for _, a := range sample {
		if AttemptPassed(a) {
			passed++
		}
	}
	agg := Aggregate{
		Scope:             scope,
		WindowDays:        days,
		TotalAttempts:     total,
		SampledAttempts:   len(sample),
		AveragePercentage: int(math.Round(AveragePercentage(sample))),
		Passed:            passed,
		Failed:            len(sample) - passed,
		Daily:             DailyCounts(inRange, now, days, e.loc),
		TopQuizzes:        Top(perQuiz, e.limits.TopQuizzes),
		PassRateByQuiz:    Top(perQuiz, e.limits.PassRateQuizzes),
		Recent:            sample[:min(len(sample), e.limits.Recent)],
		GeneratedAt:       now.UTC(),
	}
	if len(sample) > 0 {
		agg.PassRate = int(math.Round(float64(passed) / float64(len(sample)) * 100))
	}
	return agg, nil
}

// QuizPerformance returns platform-wide per-quiz rollups, ranked by attempt count.
func (e *Engine) QuizPerformance(ctx context.Context, limit int) ([]domain.QuizPerformance, error) {
	return e.quizPerformance(ctx, Scope{}, limit)
}

func (e *Engine) quizPerformance(ctx context.Context, scope Scope, limit int) ([]domain.QuizPerformance, error) {
	if scope.platform() && e.rollups != nil {
		rows, err := e.rollups.QuizPerformance(ctx, limit)
		if err == nil {
			return rows, nil
		}
		metrics.RecordRollupFallback()
		e.logger.Warn("quiz performance rollup unavailable, recomputing from attempts", "error", err)
	}

	attempts, err := e.attempts.ListAttempts(ctx, domain.AttemptQuery{
		Filter: scope.filter(),
		Order:  domain.NewestFirst,
		Limit:  e.limits.FallbackSample,
	})
	if err != nil {
		return nil, fmt.Errorf("fallback attempts: %w", err)
	}
	return Top(RollupByQuiz(attempts), limit), nil
}

// History lists a user's attempts, newest first.
func (e *Engine) History(ctx context.Context, userID string, limit int) ([]domain.Attempt, error) {
	return e.attempts.ListAttempts(ctx, domain.AttemptQuery{
		Filter: domain.AttemptFilter{UserID: userID},
		Order:  domain.NewestFirst,
		Limit:  limit,
	})
}

// QuizAttempts lists the attempts of one quiz, newest first.
func (e *Engine) QuizAttempts(ctx context.Context, quizID string, limit int) ([]domain.Attempt, error) {
	return e.attempts.ListAttempts(ctx, domain.AttemptQuery{
		Filter: domain.AttemptFilter{QuizID: quizID},
		Order:  domain.NewestFirst,
		Limit:  limit,
	})
}

// UserSummary is a learner's dashboard header.
type UserSummary struct {
	UserID         string `json:"userId"`
	Completed      int    `json:"completed"`
	Passed         int    `json:"passed"`
	Failed         int    `json:"failed"`
	PassPercentage int    `json:"passPercentage"`
}

// UserSummary counts every attempt of a user and how many passed.
func (e *Engine) UserSummary(ctx context.Context, userID string) (UserSummary, error) {
	attempts, err := e.attempts.ListAttempts(ctx, domain.AttemptQuery{
		Filter: domain.AttemptFilter{UserID: userID},
		Order:  domain.NewestFirst,
	})
	if err != nil {
		return UserSummary{}, fmt.Errorf("user attempts: %w", err)
	}
	s := UserSummary{UserID: userID, Completed: len(attempts)}
	for _, a := range attempts {
		if AttemptPassed(a) {
			s.Passed++
		}
	}
	s.Failed = s.Completed - s.Passed
	if s.Completed > 0 {
		s.PassPercentage = Percentage(s.Passed, s.Completed)
	}
	return s, nil
}
