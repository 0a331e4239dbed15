package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/avatarctic/checkout-system/internal/core/ports"
)

const (
	DefaultMaxEntries   = 10000
	DefaultTTL          = 30 * time.Minute
	DefaultCleanupEvery = time.Minute
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// Stats is a snapshot of MemoryCache counters.
type Stats struct {
	Entries   int   `json:"entries"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
}

// MemoryCache implements ports.Cache in process memory. It is bounded by an LRU:
// when full, the least recently used entry is dropped, which callers observe as
// a plain miss. Expired entries are dropped on access and by the janitor.
type MemoryCache struct {
	lru          *lru.Cache[string, memoryEntry]
	defaultTTL   time.Duration
	cleanupEvery time.Duration
	now          func() time.Time

	// writeMu orders writes against expiry removal; reads stay lock-free
	writeMu sync.Mutex

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

type Option func(*MemoryCache)

func WithDefaultTTL(d time.Duration) Option {
	return func(c *MemoryCache) { c.defaultTTL = d }
}

func WithCleanupEvery(d time.Duration) Option {
	return func(c *MemoryCache) { c.cleanupEvery = d }
}

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *MemoryCache) { c.now = now }
}

func NewMemoryCache(maxEntries int, opts ...Option) (*MemoryCache, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	l, err := lru.New[string, memoryEntry](maxEntries)
	if err != nil {
		return nil, err
	}
	c := &MemoryCache{
		lru:          l,
		defaultTTL:   DefaultTTL,
		cleanupEvery: DefaultCleanupEvery,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	e, ok := c.lru.Get(key)
	if !ok {
		c.misses.Add(1)
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt) {
		c.removeIfUnchanged(key, e.expiresAt)
		c.misses.Add(1)
		return nil, false, nil
	}
	c.hits.Add(1)
	return cloneBytes(e.value), true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = c.now().Add(ttl)
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if evicted := c.lru.Add(key, memoryEntry{value: cloneBytes(value), expiresAt: expiresAt}); evicted {
		c.evictions.Add(1)
	}
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.lru.Remove(key)
	return nil
}

// removeIfUnchanged drops key only while it still holds the entry that was
// seen expiring, so a value written in between survives.
func (c *MemoryCache) removeIfUnchanged(key string, expiresAt time.Time) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if cur, ok := c.lru.Peek(key); ok && cur.expiresAt.Equal(expiresAt) {
		c.lru.Remove(key)
	}
}

// Cleanup drops every expired entry.
func (c *MemoryCache) Cleanup() {
	now := c.now()
	for _, k := range c.lru.Keys() {
		if e, ok := c.lru.Peek(k); ok && !e.expiresAt.IsZero() && !now.Before(e.expiresAt) {
			c.removeIfUnchanged(k, e.expiresAt)
		}
	}
}

// StartJanitor runs Cleanup periodically until ctx is done.
func (c *MemoryCache) StartJanitor(ctx context.Context) {
	if c.cleanupEvery <= 0 {
		return
	}
	t := time.NewTicker(c.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				c.Cleanup()
			}
		}
	}()
}

func (c *MemoryCache) Len() int { return c.lru.Len() }

func (c *MemoryCache) Stats() Stats {
	return Stats{
		Entries:   c.lru.Len(),
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

var _ ports.Cache = (*MemoryCache)(nil)
