package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"interview-rehearsal-service/internal/domain"
)

// PoolLoader fetches a topic's question pool from a backing source.
type PoolLoader interface {
	LoadPool(ctx context.Context, topicID string) (domain.Pool, error)
}

// PoolRepository caches generated pools in Redis as JSON under
// interview:pool:{topicID} and falls back to the loader on cache miss.
type PoolRepository struct {
	client *redis.Client
	loader PoolLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewPoolRepository(client *redis.Client, loader PoolLoader, ttl time.Duration) *PoolRepository {
	return &PoolRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *PoolRepository) GetPool(ctx context.Context, topicID string) (domain.Pool, error) {
	key := r.key(topicID)

	if pool, ok := r.cached(ctx, key); ok {
		return pool, nil
	}

	result, err, _ := r.sf.Do(topicID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if pool, ok := r.cached(ctx, key); ok {
			return pool, nil
		}

		pool, err := r.loader.LoadPool(ctx, topicID)
		if err != nil {
			return domain.Pool{}, err
		}

		if data, err := json.Marshal(pool); err == nil {
			// best-effort cache fill
			_ = r.client.Set(ctx, key, data, r.ttlWithJitter()).Err()
		}
		return pool, nil
	})
	if err != nil {
		return domain.Pool{}, err
	}
	return result.(domain.Pool), nil
}

func (r *PoolRepository) cached(ctx context.Context, key string) (domain.Pool, bool) {
	raw, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) || err != nil {
		return domain.Pool{}, false
	}
	var pool domain.Pool
	if err := json.Unmarshal([]byte(raw), &pool); err != nil || len(pool.Items) == 0 {
		return domain.Pool{}, false
	}
	return pool, true
}

func (r *PoolRepository) key(topicID string) string {
	return "interview:pool:" + topicID
}

func (r *PoolRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
