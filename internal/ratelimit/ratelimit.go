// Package ratelimit bounds how often a key may attempt an operation.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter reports whether another attempt for key is allowed now, and if not,
// how long until the next one would be.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
}

// Memory keeps one token bucket per key in process memory. Buckets refill
// continuously at limit per window.
type Memory struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

// NewMemory allows limit attempts per window for each key
func NewMemory(limit int, window time.Duration) *Memory {
	return &Memory{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(float64(limit) / window.Seconds()),
		burst:    limit,
	}
}

func (m *Memory) limiter(key string) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.limiters[key]
	if !ok {
		l = rate.NewLimiter(m.rate, m.burst)
		m.limiters[key] = l
	}
	return l
}

func (m *Memory) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	r := m.limiter(key).Reserve()
	if !r.OK() {
		return false, 0, nil
	}
	if delay := r.Delay(); delay > 0 {
		r.Cancel()
		return false, delay, nil
	}
	return true, 0, nil
}

// Reset drops the bucket for key, e.g. after a successful attempt
func (m *Memory) Reset(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.limiters, key)
	m.mu.Unlock()
	return nil
}
