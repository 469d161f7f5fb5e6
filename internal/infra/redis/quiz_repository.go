package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quiz-assessment-service/internal/domain"
)

// ContentLoader fetches quiz content from the backing store.
type ContentLoader interface {
	LoadContent(ctx context.Context, quizID string) (domain.QuizContent, error)
}

// QuizRepository caches quiz content in Redis and falls back to a loader on miss.
// Content is stored as JSON: SET quiz:{quizID}:content {json} EX ttl.
// Redis failures degrade to a direct load.
type QuizRepository struct {
	client *redis.Client
	loader ContentLoader
	ttl    time.Duration
	sf     singleflight.Group
	logger *slog.Logger

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuizRepository(client *redis.Client, loader ContentLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		logger: slog.Default(),
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuizRepository) GetContent(ctx context.Context, quizID string) (domain.QuizContent, error) {
	if content, ok := r.cached(ctx, quizID); ok {
		return content, nil
	}

	result, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if content, ok := r.cached(ctx, quizID); ok {
			return content, nil
		}

		content, err := r.loader.LoadContent(ctx, quizID)
		if err != nil {
			return domain.QuizContent{}, err
		}

		payload, err := json.Marshal(content)
		if err != nil {
			return content, nil
		}
		if err := r.client.Set(ctx, contentKey(quizID), payload, r.ttlWithJitter()).Err(); err != nil {
			r.logger.Warn("cache quiz content", "quiz_id", quizID, "error", err)
		}
		return content, nil
	})
	if err != nil {
		return domain.QuizContent{}, err
	}
	return result.(domain.QuizContent), nil
}

// Invalidate removes the cached content of a quiz.
func (r *QuizRepository) Invalidate(ctx context.Context, quizID string) error {
	return r.client.Del(ctx, contentKey(quizID)).Err()
}

func (r *QuizRepository) cached(ctx context.Context, quizID string) (domain.QuizContent, bool) {
	raw, err := r.client.Get(ctx, contentKey(quizID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn("read cached quiz content", "quiz_id", quizID, "error", err)
		}
		return domain.QuizContent{}, false
	}
	var content domain.QuizContent
	if err := json.Unmarshal(raw, &content); err != nil {
		return domain.QuizContent{}, false
	}
	return content, true
}

func contentKey(quizID string) string {
	return "quiz:" + quizID + ":content"
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
