// Package ratelimit bounds repeated payment calls per client using shared
// counters with expiry, so the limit holds across horizontally scaled
// instances.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Limiter interface {
	// Allow reports whether clientID may make another call on route within
	// the current window.
	Allow(ctx context.Context, clientID, route string) (bool, error)
}

type RedisLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

func NewRedisLimiter(client *redis.Client, limit int64, window time.Duration) *RedisLimiter {
	if window == 0 {
		window = 15 * time.Minute
	}
	return &RedisLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, clientID, route string) (bool, error) {
	key := limiterKey(clientID, route)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis incr failed: %w", err)
	}

	// First hit in a window owns the expiry.
	if count == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return false, fmt.Errorf("redis expire failed: %w", err)
		}
	}

	return count <= l.limit, nil
}

func limiterKey(clientID, route string) string {
	return fmt.Sprintf("ratelimit:%s:%s", route, clientID)
}
