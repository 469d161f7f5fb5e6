package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"quiz-assessment-service/internal/analytics"
	"quiz-assessment-service/internal/app"
	"quiz-assessment-service/internal/domain"
	"quiz-assessment-service/internal/infra/postgres"
	pgmigrations "quiz-assessment-service/internal/infra/postgres/migrations"
	infraredis "quiz-assessment-service/internal/infra/redis"
)

func TestSubmitAttemptEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	migrateSchema(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	store := postgres.NewStore(pool)
	if err := store.SeedContent(ctx, sampleContent()); err != nil {
		t.Fatalf("seed content: %v", err)
	}

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	rollup := infraredis.NewRollupStore(redisClient)
	quizRepo := infraredis.NewQuizRepository(redisClient, app.NewStoreLoader(store), 5*time.Minute)
	sessionStore := infraredis.NewSessionStore(redisClient, 5*time.Minute)
	service := app.NewAttemptService(sessionStore, quizRepo, app.NewSubmissionRecorder(store, rollup))

	submit := func(userID string, answers map[string]string) app.Outcome {
		t.Helper()
		snap, err := service.StartSession(ctx, "quiz-1", domain.Identity{UserID: userID})
		if err != nil {
			t.Fatalf("start session: %v", err)
		}
		defer service.Teardown(ctx, snap.SessionID)
		for qid, value := range answers {
			if _, err := service.RecordAnswer(ctx, snap.SessionID, qid, value); err != nil {
				t.Fatalf("answer %s: %v", qid, err)
			}
		}
		outcome, err := service.Submit(ctx, snap.SessionID)
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
		return outcome
	}

	first := submit("u1", map[string]string{"q1": "o2", "q2": "o3"})
	if first.Grade.Score != 2 || first.Grade.Total != 2 {
		t.Fatalf("expected 2/2, got %d/%d", first.Grade.Score, first.Grade.Total)
	}
	second := submit("u2", map[string]string{"q1": "o1", "q2": "o4"})
	if second.Grade.Score != 0 {
		t.Fatalf("expected 0/2, got %d", second.Grade.Score)
	}

	var rows int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM attempt_answers WHERE attempt_id = $1`, first.Attempt.ID).Scan(&rows); err != nil {
		t.Fatalf("count answers: %v", err)
	}
	if rows != 2 {
		t.Fatalf("expected 2 answer rows, got %d", rows)
	}

	perf, err := store.QuizPerformance(ctx, 10)
	if err != nil {
		t.Fatalf("performance view: %v", err)
	}
	if len(perf) != 1 || perf[0].AttemptsCount != 2 || perf[0].PassRate != 50 || perf[0].AveragePercentage != 50 {
		t.Fatalf("unexpected view rows: %+v", perf)
	}

	cached, err := rollup.QuizPerformance(ctx, 10)
	if err != nil {
		t.Fatalf("redis rollup: %v", err)
	}
	if len(cached) != 1 || cached[0].AttemptsCount != 2 || cached[0].Title != "Arithmetic" {
		t.Fatalf("unexpected rollup rows: %+v", cached)
	}

	engine := analytics.NewEngine(store, rollup)
	agg, err := engine.Compute(ctx, analytics.Scope{}, analytics.Window{})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if agg.TotalAttempts != 2 || agg.AveragePercentage != 50 || agg.Passed != 1 {
		t.Fatalf("unexpected aggregate: %+v", agg)
	}
	if agg.Daily[len(agg.Daily)-1].Count != 2 {
		t.Fatalf("expected today's bucket to hold both attempts, got %+v", agg.Daily)
	}

	history, err := engine.History(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 || history[0].QuizTitle != "Arithmetic" {
		t.Fatalf("unexpected history: %+v", history)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

// migrateSchema applies the embedded migrations; postgres may still be
// finishing startup, so the first attempts are retried.
func migrateSchema(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	var err error
	for i := 0; i < 10; i++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("ping postgres: %v", err)
	}

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func sampleContent() domain.QuizContent {
	return domain.QuizContent{
		Quiz: domain.Quiz{ID: "quiz-1", Title: "Arithmetic", Kind: domain.KindMultipleChoice},
		Questions: []domain.Question{
			{ID: "q1", Title: "What is 2 + 2?", Position: 1},
			{ID: "q2", Title: "What is 3 + 3?", Position: 2},
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

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
