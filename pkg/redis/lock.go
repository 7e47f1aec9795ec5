package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only if we still own it
var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// TryLock acquires a best-effort cluster lock named name for ttl.
// ok=false means another worker holds it. A disabled client always acquires.
// release is never nil.
func (c *Client) TryLock(ctx context.Context, name string, ttl time.Duration) (release func(context.Context) error, ok bool, err error) {
	noop := func(context.Context) error { return nil }
	if !c.Enabled() {
		return noop, true, nil
	}

	key := fmt.Sprintf("%s:lock:%s", KeyPrefix, name)
	token := uuid.NewString()

	acquired, err := c.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return noop, false, fmt.Errorf("lock %s: %w", name, err)
	}
	if !acquired {
		return noop, false, nil
	}

	release = func(ctx context.Context) error {
		return releaseScript.Run(ctx, c.rdb, []string{key}, token).Err()
	}
	return release, true, nil
}
