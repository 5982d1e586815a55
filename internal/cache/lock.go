package cache

import (
	"context"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/redis/go-redis/v9"
)

const lockKeyPrefix = "lock:"

// releaseScript deletes the lock key only if it still holds our token,
// so a lease that expired and was re-acquired elsewhere is never released
// by the old holder.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// TryLock attempts to take a distributed lease lock without blocking.
// The lease expires after ttl even if the holder crashes. On success the
// returned function releases the lock; ok is false when the lock is held
// elsewhere.
func (c *URLCache) TryLock(ctx context.Context, name string, ttl time.Duration) (release func(context.Context) error, ok bool, err error) {
	const op = "cache.URLCache.TryLock"

	token, err := gonanoid.New()
	if err != nil {
		return nil, false, fmt.Errorf("%s: failed to generate lock token: %w", op, err)
	}

	key := lockKeyPrefix + name

	ok, err = c.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("%s: failed to acquire lock: %w", op, err)
	}
	if !ok {
		return nil, false, nil
	}

	release = func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, c.rdb, []string{key}, token).Err(); err != nil {
			return fmt.Errorf("%s: failed to release lock: %w", op, err)
		}
		return nil
	}

	return release, true, nil
}
