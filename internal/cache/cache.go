package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	urlKeyPrefix   = "url:"
	hitsCounterKey = "metrics:cache:hits"
	missCounterKey = "metrics:cache:misses"
)

// Connect creates a Redis client and verifies the connection.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	const op = "cache.Connect"

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("%s: failed to connect to redis: %w", op, err)
	}

	return rdb, nil
}

// URLCache holds a transient shadow copy of slug to long URL mappings.
// Entries carry a TTL and can be dropped at any time without data loss.
type URLCache struct {
	rdb *redis.Client
}

func NewURLCache(rdb *redis.Client) *URLCache {
	return &URLCache{
		rdb: rdb,
	}
}

// Get retrieves the cached long URL for a slug. The boolean result
// distinguishes a miss from a hit; a non-nil error means the cache is
// unavailable, which callers must treat separately from a miss.
func (c *URLCache) Get(ctx context.Context, slug string) (string, bool, error) {
	const op = "cache.URLCache.Get"

	longURL, err := c.rdb.Get(ctx, urlKeyPrefix+slug).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}

		return "", false, fmt.Errorf("%s: failed to get cached url: %w", op, err)
	}

	return longURL, true, nil
}

func (c *URLCache) Set(ctx context.Context, slug, longURL string, ttl time.Duration) error {
	const op = "cache.URLCache.Set"

	if err := c.rdb.Set(ctx, urlKeyPrefix+slug, longURL, ttl).Err(); err != nil {
		return fmt.Errorf("%s: failed to cache url: %w", op, err)
	}

	return nil
}

func (c *URLCache) Delete(ctx context.Context, slug string) error {
	const op = "cache.URLCache.Delete"

	if err := c.rdb.Del(ctx, urlKeyPrefix+slug).Err(); err != nil {
		return fmt.Errorf("%s: failed to delete cached url: %w", op, err)
	}

	return nil
}

// IncrHits increments the cache hit counter.
func (c *URLCache) IncrHits(ctx context.Context) error {
	return c.rdb.Incr(ctx, hitsCounterKey).Err()
}

// IncrMisses increments the cache miss counter.
func (c *URLCache) IncrMisses(ctx context.Context) error {
	return c.rdb.Incr(ctx, missCounterKey).Err()
}

// Stats returns the accumulated hit and miss counters.
func (c *URLCache) Stats(ctx context.Context) (hits, misses int64, err error) {
	const op = "cache.URLCache.Stats"

	hits, err = c.rdb.Get(ctx, hitsCounterKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, 0, fmt.Errorf("%s: failed to get hits counter: %w", op, err)
	}

	misses, err = c.rdb.Get(ctx, missCounterKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, 0, fmt.Errorf("%s: failed to get misses counter: %w", op, err)
	}

	return hits, misses, nil
}
