package repositories

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/checkout-system/internal/core/domain/cart"
	"github.com/avatarctic/checkout-system/internal/core/ports"
)

const (
	DefaultCartCacheTTL       = 30 * time.Minute
	DefaultCartCacheKeyPrefix = "basket_"

	cartKeyLocks = 64
)

// Utility helpers
func cacheSetSilently(c ports.Cache, ctx context.Context, key string, v any, ttl time.Duration) error {
	if c == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Set(ctx, key, b, ttl)
}

func cacheGet[T any](c ports.Cache, ctx context.Context, key string) (*T, bool) {
	if c == nil {
		return nil, false
	}
	b, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return nil, false
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, false
	}
	return &v, true
}

// CachingCartRepository decorates a CartRepository with cache-aside.
//
// Reads consult the cache first and populate it on a miss that finds a cart;
// absent carts are never cached. Writes go to the backing store first and then
// refresh the cache. Mutations and miss-populates for the same user are
// serialized on a striped lock so a slow populate can never overwrite a newer
// Store with the value it read earlier.
type CachingCartRepository struct {
	inner     ports.CartRepository
	cache     ports.Cache
	ttl       time.Duration
	keyPrefix string
	observer  ports.CacheObserver
	logger    *logrus.Logger
	locks     [cartKeyLocks]sync.Mutex
}

type CachingCartOption func(*CachingCartRepository)

func WithCartCacheKeyPrefix(prefix string) CachingCartOption {
	return func(c *CachingCartRepository) { c.keyPrefix = prefix }
}

func WithCacheObserver(o ports.CacheObserver) CachingCartOption {
	return func(c *CachingCartRepository) { c.observer = o }
}

func NewCachingCartRepository(inner ports.CartRepository, cache ports.Cache, ttl time.Duration, logger *logrus.Logger, opts ...CachingCartOption) *CachingCartRepository {
	if ttl <= 0 {
		ttl = DefaultCartCacheTTL
	}
	c := &CachingCartRepository{
		inner:     inner,
		cache:     cache,
		ttl:       ttl,
		keyPrefix: DefaultCartCacheKeyPrefix,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *CachingCartRepository) cacheKey(userID string) string {
	return c.keyPrefix + userID
}

func (c *CachingCartRepository) lockFor(userID string) *sync.Mutex {
	return &c.locks[xxhash.Sum64String(userID)%cartKeyLocks]
}

func (c *CachingCartRepository) Retrieve(ctx context.Context, userID string) (*cart.Cart, bool, error) {
	key := c.cacheKey(userID)
	if v, ok := cacheGet[cart.Cart](c.cache, ctx, key); ok {
		c.hit(userID)
		return v, true, nil
	}

	mu := c.lockFor(userID)
	mu.Lock()
	defer mu.Unlock()

	// another caller may have populated the entry while we waited
	if v, ok := cacheGet[cart.Cart](c.cache, ctx, key); ok {
		c.hit(userID)
		return v, true, nil
	}
	c.miss(userID)

	v, found, err := c.inner.Retrieve(ctx, userID)
	if err != nil || !found {
		return nil, false, err
	}
	if err := cacheSetSilently(c.cache, ctx, key, v, c.ttl); err != nil {
		c.warn(userID, err, "failed to populate cart cache")
	}
	return v, true, nil
}

func (c *CachingCartRepository) Store(ctx context.Context, in *cart.Cart) (*cart.Cart, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	mu := c.lockFor(in.UserID)
	mu.Lock()
	defer mu.Unlock()

	stored, err := c.inner.Store(ctx, in)
	if err != nil {
		return nil, err
	}
	// the store already changed, so the cache must follow even if the caller is gone
	cacheCtx := context.WithoutCancel(ctx)
	key := c.cacheKey(in.UserID)
	if err := cacheSetSilently(c.cache, cacheCtx, key, stored, c.ttl); err != nil {
		// an old entry must not outlive the write it failed to mirror
		c.warn(in.UserID, err, "failed to refresh cart cache; evicting")
		if c.cache != nil {
			if derr := c.cache.Delete(cacheCtx, key); derr != nil {
				c.warn(in.UserID, derr, "failed to evict stale cart cache entry")
			}
		}
	} else if c.logger != nil {
		c.logger.WithField("user_id", in.UserID).Debug("updated cache for cart")
	}
	return stored, nil
}

func (c *CachingCartRepository) Delete(ctx context.Context, userID string) (bool, error) {
	mu := c.lockFor(userID)
	mu.Lock()
	defer mu.Unlock()

	existed, err := c.inner.Delete(ctx, userID)
	if err != nil {
		return false, err
	}
	if existed && c.cache != nil {
		if err := c.cache.Delete(context.WithoutCancel(ctx), c.cacheKey(userID)); err != nil {
			c.warn(userID, err, "failed to evict cart cache entry")
		} else if c.logger != nil {
			c.logger.WithField("user_id", userID).Debug("removed cart from cache")
		}
	}
	return existed, nil
}

func (c *CachingCartRepository) hit(userID string) {
	if c.observer != nil {
		c.observer.CacheHit()
	}
	if c.logger != nil {
		c.logger.WithField("user_id", userID).Debug("cache hit for cart")
	}
}

func (c *CachingCartRepository) miss(userID string) {
	if c.observer != nil {
		c.observer.CacheMiss()
	}
	if c.logger != nil {
		c.logger.WithField("user_id", userID).Debug("cache miss for cart")
	}
}

func (c *CachingCartRepository) warn(userID string, err error, msg string) {
	if c.logger != nil {
		c.logger.WithField("user_id", userID).WithError(err).Warn(msg)
	}
}

var _ ports.CartRepository = (*CachingCartRepository)(nil)
