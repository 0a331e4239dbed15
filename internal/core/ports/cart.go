package ports

import (
	"context"

	"github.com/avatarctic/checkout-system/internal/core/domain/cart"
)

// CartRepository is the storage capability for carts. Implementations MUST be safe for
// concurrent use with per-key atomicity: a Retrieve racing a Store or Delete on the same
// user sees either the old or the new cart, never a mix.
//
// A missing cart is not an error: Retrieve reports found=false and Delete reports
// existed=false.
type CartRepository interface {
	Retrieve(ctx context.Context, userID string) (c *cart.Cart, found bool, err error)
	// Store replaces any existing cart for c.UserID in full (last write wins).
	Store(ctx context.Context, c *cart.Cart) (*cart.Cart, error)
	Delete(ctx context.Context, userID string) (existed bool, err error)
}

// CartService is the application-level entry point used by the HTTP layer.
type CartService interface {
	StoreCart(ctx context.Context, req *cart.StoreCartRequest) (*cart.Cart, error)
	GetCart(ctx context.Context, userID string) (*cart.Cart, bool, error)
	DeleteCart(ctx context.Context, userID string) (bool, error)
}

// CacheObserver receives cache hit/miss notifications (metrics).
type CacheObserver interface {
	CacheHit()
	CacheMiss()
}
