package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quiz-assessment-service/internal/domain"
)

// ContentLoader fetches quiz content from the backing store.
type ContentLoader interface {
	LoadContent(ctx context.Context, quizID string) (domain.QuizContent, error)
}

// QuizRepository caches quiz content with a TTL so concurrent session starts for
// the same quiz share one load.
type QuizRepository struct {
	loader ContentLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.RWMutex
	rnd   *rand.Rand
	cache map[string]cachedContent
}

type cachedContent struct {
	content   domain.QuizContent
	expiresAt time.Time
}

func NewQuizRepository(loader ContentLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedContent),
	}
}

// NewQuizRepositoryWithClock is test-only for deterministic expiry.
func NewQuizRepositoryWithClock(loader ContentLoader, ttl time.Duration, clock func() time.Time) *QuizRepository {
	r := NewQuizRepository(loader, ttl)
	r.clock = clock
	return r
}

func (r *QuizRepository) GetContent(ctx context.Context, quizID string) (domain.QuizContent, error) {
	if content, ok := r.lookup(quizID); ok {
		return content, nil
	}

	result, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		if content, ok := r.lookup(quizID); ok {
			return content, nil
		}

		content, err := r.loader.LoadContent(ctx, quizID)
		if err != nil {
			return domain.QuizContent{}, err
		}
		if r.ttl <= 0 {
			return content, nil
		}

		r.mu.Lock()
		r.cache[quizID] = cachedContent{
			content:   content,
			expiresAt: r.clock().Add(r.ttlWithJitterLocked()),
		}
		r.mu.Unlock()
		return content, nil
	})
	if err != nil {
		return domain.QuizContent{}, err
	}
	return result.(domain.QuizContent), nil
}

// Invalidate drops a cached quiz so the next session start reloads it.
func (r *QuizRepository) Invalidate(_ context.Context, quizID string) error {
	r.mu.Lock()
	delete(r.cache, quizID)
	r.mu.Unlock()
	return nil
}

func (r *QuizRepository) lookup(quizID string) (domain.QuizContent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[quizID]
	if !ok || !entry.expiresAt.After(r.clock()) {
		return domain.QuizContent{}, false
	}
	return entry.content, true
}

func (r *QuizRepository) ttlWithJitterLocked() time.Duration {
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
