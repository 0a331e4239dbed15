package ports

import (
	"context"
	"time"
)

// Cache is a byte-oriented TTL cache used as a disposable shadow of a primary store.
// Losing entries (eviction, expiry, restart) must never lose data; callers treat
// every error as a miss and fall back to the primary store.
type Cache interface {
	// Get returns the raw bytes for key. ok=false if absent or expired.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value for key, replacing any previous value. ttl <= 0 selects the
	// implementation default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes the key; absence is not an error.
	Delete(ctx context.Context, key string) error
}
