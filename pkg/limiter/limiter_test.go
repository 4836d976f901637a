package limiter

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redispkg "github.com/whatisboom/blendroom-sub001/pkg/redis"
)

func setupTestLimiter(t *testing.T) (*RateLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redispkg.NewClientFromUniversal(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	return NewRateLimiter(client), mr
}

func TestAllowUnderLimit(t *testing.T) {
	rl, _ := setupTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := rl.Allow(ctx, "k", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok, "request %d should pass", i)
	}

	ok, err := rl.Allow(ctx, "k", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "fourth request should exceed limit of 3")
}

func TestAllowSeparateKeys(t *testing.T) {
	rl, _ := setupTestLimiter(t)
	ctx := context.Background()

	ok, err := rl.Allow(ctx, "a", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = rl.Allow(ctx, "b", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "keys count independently")
}

func TestWindowExpiry(t *testing.T) {
	rl, mr := setupTestLimiter(t)
	ctx := context.Background()

	ok, err := rl.Allow(ctx, "k", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = rl.Allow(ctx, "k", 1, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	mr.FastForward(2 * time.Minute)

	ok, err = rl.Allow(ctx, "k", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "counter should reset after the window")
}

func TestRemaining(t *testing.T) {
	rl, _ := setupTestLimiter(t)
	ctx := context.Background()

	remaining, err := rl.Remaining(ctx, "k", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), remaining, "untouched key has the full budget")

	for i := 0; i < 2; i++ {
		_, err := rl.Allow(ctx, "k", 5, time.Minute)
		require.NoError(t, err)
	}

	remaining, err = rl.Remaining(ctx, "k", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(3), remaining)
}

func TestReset(t *testing.T) {
	rl, _ := setupTestLimiter(t)
	ctx := context.Background()

	_, err := rl.Allow(ctx, "k", 1, time.Minute)
	require.NoError(t, err)
	ok, err := rl.Allow(ctx, "k", 1, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, rl.Reset(ctx, "k"))

	ok, err = rl.Allow(ctx, "k", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIPRateLimiter(t *testing.T) {
	_, mr := setupTestLimiter(t)
	client := redispkg.NewClientFromUniversal(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	ipl := NewIPRateLimiter(client, 2, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := ipl.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := ipl.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, ok)

	// A different IP has its own counter.
	ok, err = ipl.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, ok)
}
