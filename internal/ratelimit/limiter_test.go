package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestLimiter(t *testing.T, limit int64, window time.Duration) (*RedisLimiter, *miniredis.Miniredis, func()) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	limiter := NewRedisLimiter(client, limit, window)

	cleanup := func() {
		client.Close()
		mr.Close()
	}

	return limiter, mr, cleanup
}

func TestAllow_UnderLimit(t *testing.T) {
	limiter, _, cleanup := setupTestLimiter(t, 3, time.Minute)
	defer cleanup()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		ok, err := limiter.Allow(ctx, "client-1", "initiate")
		require.NoError(t, err)
		assert.True(t, ok, "call %d should be allowed", i+1)
	}
}

func TestAllow_OverLimit(t *testing.T) {
	limiter, _, cleanup := setupTestLimiter(t, 2, time.Minute)
	defer cleanup()

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		ok, err := limiter.Allow(ctx, "client-1", "initiate")
		require.NoError(t, err)
		require.True(t, ok)
	}

	ok, err := limiter.Allow(ctx, "client-1", "initiate")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAllow_SeparateClientsAndRoutes(t *testing.T) {
	limiter, _, cleanup := setupTestLimiter(t, 1, time.Minute)
	defer cleanup()

	ctx := context.Background()

	ok, err := limiter.Allow(ctx, "client-1", "initiate")
	require.NoError(t, err)
	require.True(t, ok)

	// Another client and another route both get their own window.
	ok, err = limiter.Allow(ctx, "client-2", "initiate")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = limiter.Allow(ctx, "client-1", "verify")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = limiter.Allow(ctx, "client-1", "initiate")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAllow_WindowExpiry(t *testing.T) {
	limiter, mr, cleanup := setupTestLimiter(t, 1, time.Minute)
	defer cleanup()

	ctx := context.Background()

	ok, err := limiter.Allow(ctx, "client-1", "initiate")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = limiter.Allow(ctx, "client-1", "initiate")
	require.NoError(t, err)
	require.False(t, ok)

	// After the window passes the counter resets.
	mr.FastForward(time.Minute + time.Second)

	ok, err = limiter.Allow(ctx, "client-1", "initiate")
	require.NoError(t, err)
	assert.True(t, ok)
}
