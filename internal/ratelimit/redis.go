package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisFixedWindow shares counters between instances through Redis.
type RedisFixedWindow struct {
	client *redis.Client
	cfg    Config
	prefix string
}

// NewRedisFixedWindow returns a Redis-backed limiter storing keys under prefix.
func NewRedisFixedWindow(client *redis.Client, cfg Config, prefix string) *RedisFixedWindow {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisFixedWindow{client: client, cfg: cfg, prefix: prefix}
}

// Allow increments the window counter for key, starting the window on the first hit.
func (l *RedisFixedWindow) Allow(ctx context.Context, key string) (Result, error) {
	redisKey := fmt.Sprintf("%s:%s", l.prefix, key)

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return Result{}, fmt.Errorf("redis incr: %w", err)
	}

	ttl, err := l.client.PTTL(ctx, redisKey).Result()
	if err != nil {
		return Result{}, fmt.Errorf("redis pttl: %w", err)
	}
	if count == 1 || ttl < 0 {
		if err := l.client.PExpire(ctx, redisKey, l.cfg.Window).Err(); err != nil {
			return Result{}, fmt.Errorf("redis expire: %w", err)
		}
		ttl = l.cfg.Window
	}
	return result(l.cfg, int(count), time.Now().Add(ttl)), nil
}
