// Package ratelimit implements fixed-window request counters.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Config caps a key at Limit hits per Window.
type Config struct {
	Limit  int
	Window time.Duration
}

// Result describes the state of a key after a hit.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter counts a hit for key and reports whether it is allowed.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

type window struct {
	count   int
	resetAt time.Time
}

// FixedWindow is an in-process Limiter.
type FixedWindow struct {
	cfg     Config
	now     func() time.Time
	mu      sync.Mutex
	windows map[string]*window
}

// NewFixedWindow returns an in-process limiter.
func NewFixedWindow(cfg Config) *FixedWindow {
	return &FixedWindow{cfg: cfg, now: time.Now, windows: make(map[string]*window)}
}

// Allow counts one hit for key.
func (l *FixedWindow) Allow(_ context.Context, key string) (Result, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(l.cfg.Window)}
		l.windows[key] = w
	}
	w.count++
	return result(l.cfg, w.count, w.resetAt), nil
}

// Cleanup drops windows that have already reset.
func (l *FixedWindow) Cleanup() {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, key)
		}
	}
}

// StartCleanup runs Cleanup once per window until ctx is done.
func (l *FixedWindow) StartCleanup(ctx context.Context) {
	ticker := time.NewTicker(l.cfg.Window)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.Cleanup()
			case <-ctx.Done():
				return
			}
		}
	}()
}

func result(cfg Config, count int, resetAt time.Time) Result {
	remaining := cfg.Limit - count
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:   count <= cfg.Limit,
		Limit:     cfg.Limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
}
