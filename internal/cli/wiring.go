package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"

	"quiz-assessment-service/internal/analytics"
	"quiz-assessment-service/internal/app"
	"quiz-assessment-service/internal/config"
	"quiz-assessment-service/internal/domain"
	amqppub "quiz-assessment-service/internal/infra/amqp"
	"quiz-assessment-service/internal/infra/memory"
	"quiz-assessment-service/internal/infra/postgres"
	infraredis "quiz-assessment-service/internal/infra/redis"
	"quiz-assessment-service/internal/infra/sqlite"
)

// attemptStore is everything the service needs from persistent storage.
type attemptStore interface {
	app.ContentStore
	app.AttemptWriter
	analytics.AttemptSource
}

// backend holds the storage collaborators chosen by configuration.
type backend struct {
	store     attemptStore
	rollups   analytics.RollupSource
	redis     *redis.Client
	rollup    *infraredis.RollupStore
	observers []app.AttemptObserver
	closers   []func()
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// openBackend picks Postgres, then SQLite, then a seeded in-memory store.
// Redis and AMQP are optional add-ons.
func openBackend(ctx context.Context, cfg config.Config) (*backend, error) {
	b := &backend{}

	switch {
	case cfg.Postgres.URL != "":
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		b.closers = append(b.closers, pool.Close)
		store := postgres.NewStore(pool)
		b.store = store
		b.rollups = store
	case cfg.SQLite.Path != "":
		store, err := sqlite.NewStore(cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		b.closers = append(b.closers, func() { _ = store.Close() })
		b.store = store
	default:
		store := memory.NewStore()
		for _, content := range sampleQuizzes() {
			store.SeedContent(content)
		}
		slog.Warn("no database configured, serving in-memory sample quizzes")
		b.store = store
	}

	if cfg.Redis.Addr != "" {
		b.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		b.closers = append(b.closers, func() { _ = b.redis.Close() })
		b.rollup = infraredis.NewRollupStore(b.redis)
		b.rollups = b.rollup
		b.observers = append(b.observers, b.rollup)
	}

	if cfg.AMQP.URL != "" {
		pub, err := amqppub.Dial(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.closers = append(b.closers, func() { _ = pub.Close() })
		b.observers = append(b.observers, pub)
	}
	return b, nil
}

func (b *backend) quizRepository(cfg config.Config) app.QuizRepository {
	loader := app.NewStoreLoader(b.store)
	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	if b.redis != nil {
		return infraredis.NewQuizRepository(b.redis, loader, quizTTL)
	}
	return memory.NewQuizRepository(loader, quizTTL)
}

func (b *backend) sessionRepository(cfg config.Config) app.SessionRepository {
	if b.redis != nil {
		return infraredis.NewSessionStore(b.redis, config.TTLDuration(cfg.Redis.TTL, 10*time.Minute))
	}
	return memory.NewSessionStore()
}

func (b *backend) engine(cfg config.Config) *analytics.Engine {
	return analytics.NewEngine(b.store, b.rollups,
		analytics.WithLimits(cfg.Analytics.Limits()),
		analytics.WithLocation(cfg.Analytics.Location()),
		analytics.WithLogger(slog.Default()),
	)
}

// sampleQuizzes provides demo content when no database is configured.
func sampleQuizzes() []domain.QuizContent {
	five := 5
	return []domain.QuizContent{
		{
			Quiz: domain.Quiz{ID: "quiz-1", Title: "Arithmetic basics", Kind: domain.KindMultipleChoice, DurationMinutes: &five},
			Questions: []domain.Question{
				{ID: "q1", Title: "What is 2 + 2?", Position: 1},
				{ID: "q2", Title: "What is 3 x 3?", Position: 2},
			},
			Options: map[string][]domain.Option{
				"q1": {
					{ID: "q1-o1", Text: "3", Position: 1},
					{ID: "q1-o2", Text: "4", Position: 2, Correct: true},
					{ID: "q1-o3", Text: "5", Position: 3},
				},
				"q2": {
					{ID: "q2-o1", Text: "6", Position: 1},
					{ID: "q2-o2", Text: "9", Position: 2, Correct: true},
				},
			},
		},
		{
			Quiz: domain.Quiz{ID: "quiz-2", Title: "Explain recursion", Kind: domain.KindPractical},
			Questions: []domain.Question{
				{ID: "p1", Title: "Explain recursion", Body: "Describe recursion with an example.", Position: 1},
			},
		},
	}
}
