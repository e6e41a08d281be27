package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedWindowCapsAndResets(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewFixedWindow(Config{Limit: 2, Window: time.Minute})
	l.now = func() time.Time { return now }
	ctx := context.Background()

	r, _ := l.Allow(ctx, "ip:1")
	assert.True(t, r.Allowed)
	assert.Equal(t, 1, r.Remaining)
	r, _ = l.Allow(ctx, "ip:1")
	assert.True(t, r.Allowed)
	r, _ = l.Allow(ctx, "ip:1")
	assert.False(t, r.Allowed)
	assert.Equal(t, 0, r.Remaining)

	other, _ := l.Allow(ctx, "ip:2")
	assert.True(t, other.Allowed)

	now = now.Add(time.Minute)
	r, _ = l.Allow(ctx, "ip:1")
	assert.True(t, r.Allowed)
}

func TestFixedWindowCleanup(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewFixedWindow(Config{Limit: 1, Window: time.Minute})
	l.now = func() time.Time { return now }

	_, _ = l.Allow(context.Background(), "k")
	now = now.Add(2 * time.Minute)
	l.Cleanup()
	assert.Empty(t, l.windows)
}

func TestRedisFixedWindow(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	l := NewRedisFixedWindow(client, Config{Limit: 2, Window: 5 * time.Minute}, "login")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		r, err := l.Allow(ctx, "ip:1")
		require.NoError(t, err)
		assert.True(t, r.Allowed)
	}
	r, err := l.Allow(ctx, "ip:1")
	require.NoError(t, err)
	assert.False(t, r.Allowed)
	assert.True(t, mr.TTL("login:ip:1") > 0)

	mr.FastForward(5 * time.Minute)
	r, err = l.Allow(ctx, "ip:1")
	require.NoError(t, err)
	assert.True(t, r.Allowed)
}

func TestRedisFixedWindowError(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	mr.Close()

	_, err = NewRedisFixedWindow(client, Config{Limit: 1, Window: time.Minute}, "").Allow(context.Background(), "k")
	assert.Error(t, err)
}
