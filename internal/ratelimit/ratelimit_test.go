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

func TestMemoryLimitsPerKey(t *testing.T) {
	lim := NewMemory(2, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, _, err := lim.Allow(ctx, "u1")
		require.NoError(t, err)
		assert.True(t, ok)
	}

	ok, retry, err := lim.Allow(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Greater(t, retry, time.Duration(0))

	ok, _, err = lim.Allow(ctx, "u2")
	require.NoError(t, err)
	assert.True(t, ok, "other keys keep their own budget")

	require.NoError(t, lim.Reset(ctx, "u1"))
	ok, _, _ = lim.Allow(ctx, "u1")
	assert.True(t, ok)
}

func TestRedisWindow(t *testing.T) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	lim := NewRedis(client, 2, 500*time.Millisecond, "test:")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, _, err := lim.Allow(ctx, "u1")
		require.NoError(t, err)
		assert.True(t, ok)
	}

	ok, retry, err := lim.Allow(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Greater(t, retry, time.Duration(0))

	s.FastForward(600 * time.Millisecond)
	ok, _, err = lim.Allow(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, lim.Reset(ctx, "u1"))
	assert.False(t, s.Exists("test:u1"))
}

func TestNewRedisFromURL(t *testing.T) {
	s := miniredis.RunT(t)
	lim, err := NewRedisFromURL(context.Background(), "redis://"+s.Addr(), 5, time.Minute)
	require.NoError(t, err)
	ok, _, err := lim.Allow(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = NewRedisFromURL(context.Background(), "://bad", 5, time.Minute)
	assert.Error(t, err)
}
