// Package ratelimit holds the in-process rate limiter used when no shared
// counter store is configured.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/avatarctic/checkout-system/internal/core/ports"
)

// TokenBucketLimiter keeps one token bucket (x/time/rate) per client key and
// forgets keys that stay idle for longer than idleTTL.
type TokenBucketLimiter struct {
	mu           sync.Mutex
	entries      map[string]*bucketEntry
	rps          rate.Limit
	burst        int
	idleTTL      time.Duration
	cleanupEvery time.Duration
	now          func() time.Time
}

type bucketEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

type Option func(*TokenBucketLimiter)

func WithIdleTTL(d time.Duration) Option {
	return func(l *TokenBucketLimiter) { l.idleTTL = d }
}

func WithCleanupEvery(d time.Duration) Option {
	return func(l *TokenBucketLimiter) { l.cleanupEvery = d }
}

func WithClock(now func() time.Time) Option {
	return func(l *TokenBucketLimiter) { l.now = now }
}

// NewTokenBucketLimiter allows requestsPerMinute on average with bursts of up to burst.
func NewTokenBucketLimiter(requestsPerMinute int, burst int, opts ...Option) *TokenBucketLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 120
	}
	if burst <= 0 {
		burst = 1
	}
	l := &TokenBucketLimiter{
		entries:      make(map[string]*bucketEntry),
		rps:          rate.Limit(float64(requestsPerMinute) / 60),
		burst:        burst,
		idleTTL:      15 * time.Minute,
		cleanupEvery: 2 * time.Minute,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *TokenBucketLimiter) get(key string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if ent, ok := l.entries[key]; ok {
		ent.lastSeen = now
		return ent.lim
	}
	lim := rate.NewLimiter(l.rps, l.burst)
	l.entries[key] = &bucketEntry{lim: lim, lastSeen: now}
	return lim
}

// Allow implements ports.RateLimiterService. It never returns an error.
func (l *TokenBucketLimiter) Allow(_ context.Context, key string) (bool, int, int, time.Time, error) {
	now := l.now()
	lim := l.get(key, now)
	allowed := lim.AllowN(now, 1)

	tokens := lim.TokensAt(now)
	remaining := int(tokens)
	if remaining < 0 {
		remaining = 0
	}
	missing := float64(l.burst) - tokens
	reset := now
	if missing > 0 && l.rps > 0 {
		reset = now.Add(time.Duration(missing / float64(l.rps) * float64(time.Second)))
	}
	return allowed, remaining, l.burst, reset, nil
}

// Cleanup drops buckets idle for longer than idleTTL.
func (l *TokenBucketLimiter) Cleanup() {
	cutoff := l.now().Add(-l.idleTTL)

	l.mu.Lock()
	defer l.mu.Unlock()

	for k, ent := range l.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(l.entries, k)
		}
	}
}

// StartJanitor runs Cleanup periodically until ctx is done.
func (l *TokenBucketLimiter) StartJanitor(ctx context.Context) {
	if l.cleanupEvery <= 0 {
		return
	}
	t := time.NewTicker(l.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				l.Cleanup()
			}
		}
	}()
}

// Len returns the number of tracked client keys.
func (l *TokenBucketLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

var _ ports.RateLimiterService = (*TokenBucketLimiter)(nil)
