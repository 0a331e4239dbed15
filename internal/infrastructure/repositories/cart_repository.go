package repositories

import (
	"context"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/checkout-system/internal/core/domain/cart"
	"github.com/avatarctic/checkout-system/internal/core/ports"
)

const defaultCartShards = 32

type cartShard struct {
	mu    sync.RWMutex
	carts map[string]*cart.Cart
}

// CartRepository is the in-memory source of truth for carts. Keys are spread over
// independently locked shards so unrelated users never contend on one mutex.
// Carts are cloned on the way in and out; callers never share the stored slice.
type CartRepository struct {
	shards []*cartShard
	logger *logrus.Logger
}

func NewCartRepository(shardCount int, logger *logrus.Logger) *CartRepository {
	if shardCount <= 0 {
		shardCount = defaultCartShards
	}
	shards := make([]*cartShard, shardCount)
	for i := range shards {
		shards[i] = &cartShard{carts: make(map[string]*cart.Cart)}
	}
	return &CartRepository{shards: shards, logger: logger}
}

func (r *CartRepository) shardFor(userID string) *cartShard {
	return r.shards[xxhash.Sum64String(userID)%uint64(len(r.shards))]
}

func (r *CartRepository) Retrieve(ctx context.Context, userID string) (*cart.Cart, bool, error) {
	if r.logger != nil {
		r.logger.WithField("user_id", userID).Debug("getting cart")
	}
	s := r.shardFor(userID)
	s.mu.RLock()
	c, ok := s.carts[userID]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	// stored carts are never mutated in place, cloning outside the lock is safe
	return c.Clone(), true, nil
}

func (r *CartRepository) Store(ctx context.Context, c *cart.Cart) (*cart.Cart, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if r.logger != nil {
		r.logger.WithFields(logrus.Fields{"user_id": c.UserID, "items": len(c.Items)}).Info("storing cart")
	}
	stored := c.Clone()
	s := r.shardFor(c.UserID)
	s.mu.Lock()
	s.carts[c.UserID] = stored
	s.mu.Unlock()
	return stored.Clone(), nil
}

func (r *CartRepository) Delete(ctx context.Context, userID string) (bool, error) {
	s := r.shardFor(userID)
	s.mu.Lock()
	_, ok := s.carts[userID]
	if ok {
		delete(s.carts, userID)
	}
	s.mu.Unlock()
	if r.logger != nil {
		r.logger.WithFields(logrus.Fields{"user_id": userID, "existed": ok}).Info("deleting cart")
	}
	return ok, nil
}

// Len returns the number of stored carts.
func (r *CartRepository) Len() int {
	n := 0
	for _, s := range r.shards {
		s.mu.RLock()
		n += len(s.carts)
		s.mu.RUnlock()
	}
	return n
}

var _ ports.CartRepository = (*CartRepository)(nil)
