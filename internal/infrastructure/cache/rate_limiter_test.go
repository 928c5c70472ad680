package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestLimiter(t *testing.T) (RateLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisRateLimiter(client, zap.NewNop()), mr
}

func TestRateLimiter_Allow(t *testing.T) {
	limiter, _ := newTestLimiter(t)
	ctx := context.Background()

	t.Run("allows up to the limit", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			allowed, err := limiter.Allow(ctx, "caller-a", 5, time.Minute)
			require.NoError(t, err)
			assert.True(t, allowed, "request %d should be allowed", i)
		}

		allowed, err := limiter.Allow(ctx, "caller-a", 5, time.Minute)
		require.NoError(t, err)
		assert.False(t, allowed)
	})

	t.Run("keys are independent", func(t *testing.T) {
		allowed, err := limiter.Allow(ctx, "caller-b", 5, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	})
}

func TestRateLimiter_Remaining(t *testing.T) {
	limiter, _ := newTestLimiter(t)
	ctx := context.Background()

	remaining, err := limiter.Remaining(ctx, "caller-c", 10, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 10, remaining)

	for i := 0; i < 3; i++ {
		_, err := limiter.Allow(ctx, "caller-c", 10, time.Minute)
		require.NoError(t, err)
	}

	remaining, err = limiter.Remaining(ctx, "caller-c", 10, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 7, remaining)
}

func TestRateLimiter_Reset(t *testing.T) {
	limiter, _ := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := limiter.Allow(ctx, "caller-d", 3, time.Minute)
		require.NoError(t, err)
	}
	allowed, err := limiter.Allow(ctx, "caller-d", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)

	require.NoError(t, limiter.Reset(ctx, "caller-d"))

	allowed, err = limiter.Allow(ctx, "caller-d", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}
