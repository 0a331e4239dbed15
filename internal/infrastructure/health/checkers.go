package health

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/avatarctic/checkout-system/internal/core/ports"
	"github.com/avatarctic/checkout-system/internal/infrastructure/cache"
)

// redisHealthChecker wraps the redis client for health checks.
type redisHealthChecker struct{ client redis.Cmdable }

func (r *redisHealthChecker) Name() string                    { return "redis" }
func (r *redisHealthChecker) Check(ctx context.Context) error { return r.client.Ping(ctx).Err() }

// NewRedisHealthChecker creates a health checker for Redis.
func NewRedisHealthChecker(client redis.Cmdable) ports.HealthChecker {
	return &redisHealthChecker{client: client}
}

// checkoutHealthChecker reports admission slot usage. A full pool is not
// unhealthy, it only means new checkouts are being turned away.
type checkoutHealthChecker struct{ slots ports.SlotPool }

func (c *checkoutHealthChecker) Name() string { return "checkout" }

func (c *checkoutHealthChecker) Check(context.Context) error {
	if c.slots.Capacity() <= 0 {
		return fmt.Errorf("checkout admission has no capacity")
	}
	return nil
}

func (c *checkoutHealthChecker) Details() map[string]any {
	return map[string]any{"slots_in_use": c.slots.InUse(), "capacity": c.slots.Capacity()}
}

// NewCheckoutHealthChecker reports on the checkout admission pool.
func NewCheckoutHealthChecker(slots ports.SlotPool) ports.HealthChecker {
	return &checkoutHealthChecker{slots: slots}
}

// memoryCacheHealthChecker exposes in-process cache statistics.
type memoryCacheHealthChecker struct{ cache *cache.MemoryCache }

func (m *memoryCacheHealthChecker) Name() string                { return "cart_cache" }
func (m *memoryCacheHealthChecker) Check(context.Context) error { return nil }
func (m *memoryCacheHealthChecker) Details() map[string]any {
	s := m.cache.Stats()
	return map[string]any{"entries": s.Entries, "hits": s.Hits, "misses": s.Misses, "evictions": s.Evictions}
}

// NewMemoryCacheHealthChecker creates a checker that reports cart cache stats.
func NewMemoryCacheHealthChecker(c *cache.MemoryCache) ports.HealthChecker {
	return &memoryCacheHealthChecker{cache: c}
}

var (
	_ ports.HealthDetailer = (*checkoutHealthChecker)(nil)
	_ ports.HealthDetailer = (*memoryCacheHealthChecker)(nil)
)
