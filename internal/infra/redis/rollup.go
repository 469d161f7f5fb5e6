package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"quiz-assessment-service/internal/analytics"
	"quiz-assessment-service/internal/domain"
)

const rankKey = "quiz:perf:rank"

// RollupStore keeps per-quiz performance counters incrementally.
//
//	HINCRBY quiz:perf:{quizID} attempts 1
//	HINCRBYFLOAT quiz:perf:{quizID} pct_sum {percentage}
//	HINCRBY quiz:perf:{quizID} passed 0|1
//	ZINCRBY quiz:perf:rank 1 {quizID}
type RollupStore struct {
	client *redis.Client
}

func NewRollupStore(client *redis.Client) *RollupStore {
	return &RollupStore{client: client}
}

// ObserveAttempt folds a persisted attempt into the counters of its quiz.
func (s *RollupStore) ObserveAttempt(ctx context.Context, event domain.AttemptEvent) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		addAttempt(ctx, pipe, event.Attempt)
		return nil
	})
	if err != nil {
		return fmt.Errorf("rollup attempt %s: %w", event.Attempt.ID, err)
	}
	return nil
}

// Rebuild replaces every counter with totals computed from attempts.
func (s *RollupStore) Rebuild(ctx context.Context, attempts []domain.Attempt) error {
	known, err := s.client.ZRange(ctx, rankKey, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("list rollup quizzes: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, quizID := range known {
			pipe.Del(ctx, perfKey(quizID))
		}
		pipe.Del(ctx, rankKey)
		for _, a := range attempts {
			addAttempt(ctx, pipe, a)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("rebuild rollup: %w", err)
	}
	return nil
}

// QuizPerformance returns the most attempted quizzes. It reports
// domain.ErrRollupUnavailable when no counters exist yet.
// The whole ranking is read so ties break on title, not on member order.
func (s *RollupStore) QuizPerformance(ctx context.Context, limit int) ([]domain.QuizPerformance, error) {
	ids, err := s.client.ZRevRange(ctx, rankKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("rank quizzes: %w", err)
	}
	if len(ids) == 0 {
		return nil, domain.ErrRollupUnavailable
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, perfKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("read rollup counters: %w", err)
	}

	rows := make([]domain.QuizPerformance, 0, len(ids))
	for i, id := range ids {
		fields := cmds[i].Val()
		count, _ := strconv.Atoi(fields["attempts"])
		if count == 0 {
			continue
		}
		sum, _ := strconv.ParseFloat(fields["pct_sum"], 64)
		passed, _ := strconv.Atoi(fields["passed"])
		title := fields["title"]
		if title == "" {
			title = "Quiz"
		}
		rows = append(rows, domain.QuizPerformance{
			QuizID:            id,
			Title:             title,
			Kind:              domain.QuizKind(fields["kind"]),
			AttemptsCount:     count,
			AveragePercentage: sum / float64(count),
			PassRate:          float64(passed) / float64(count) * 100,
		})
	}
	if len(rows) == 0 {
		return nil, domain.ErrRollupUnavailable
	}
	analytics.SortByAttempts(rows)
	return analytics.Top(rows, limit), nil
}

func addAttempt(ctx context.Context, pipe redis.Pipeliner, a domain.Attempt) {
	key := perfKey(a.QuizID)
	pct := 0.0
	if a.Total > 0 {
		pct = float64(a.Score) / float64(a.Total) * 100
	}
	passed := int64(0)
	if analytics.AttemptPassed(a) {
		passed = 1
	}
	pipe.HIncrBy(ctx, key, "attempts", 1)
	pipe.HIncrByFloat(ctx, key, "pct_sum", pct)
	pipe.HIncrBy(ctx, key, "passed", passed)
	if a.QuizTitle != "" {
		pipe.HSet(ctx, key, "title", a.QuizTitle)
	}
	if a.QuizKind != "" {
		pipe.HSet(ctx, key, "kind", string(a.QuizKind))
	}
	pipe.ZIncrBy(ctx, rankKey, 1, a.QuizID)
}

func perfKey(quizID string) string {
	return "quiz:perf:" + quizID
}
