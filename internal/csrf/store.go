package csrf

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Store keeps one anti-forgery token per browser session.
type Store interface {
	Get(ctx context.Context, sessionID string) (string, bool, error)
	Set(ctx context.Context, sessionID, token string) error
}

// MemoryStore is a bounded in-process Store whose entries expire after ttl.
type MemoryStore struct {
	cache *expirable.LRU[string, string]
}

// NewMemoryStore returns a store holding at most size sessions.
func NewMemoryStore(size int, ttl time.Duration) *MemoryStore {
	return &MemoryStore{cache: expirable.NewLRU[string, string](size, nil, ttl)}
}

func (s *MemoryStore) Get(_ context.Context, sessionID string) (string, bool, error) {
	token, ok := s.cache.Get(sessionID)
	return token, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, sessionID, token string) error {
	s.cache.Add(sessionID, token)
	return nil
}

// RedisStore shares tokens between instances.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisStore returns a Redis-backed store.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, prefix: "csrf"}
}

func (s *RedisStore) Get(ctx context.Context, sessionID string) (string, bool, error) {
	token, err := s.client.Get(ctx, s.key(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get: %w", err)
	}
	return token, true, nil
}

func (s *RedisStore) Set(ctx context.Context, sessionID, token string) error {
	if err := s.client.Set(ctx, s.key(sessionID), token, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) key(sessionID string) string {
	return s.prefix + ":" + sessionID
}
