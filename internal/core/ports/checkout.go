package ports

import (
	"context"
	"time"

	"github.com/avatarctic/checkout-system/internal/core/domain/cart"
	"github.com/avatarctic/checkout-system/internal/core/domain/checkout"
)

// CheckoutService runs a checkout for one user under the global admission bound.
//
// The returned outcome is never nil. err is non-nil only when the attempt was
// cancelled or an underlying dependency failed; the outcome category tells which.
type CheckoutService interface {
	Checkout(ctx context.Context, userID string) (*checkout.Outcome, error)
}

// SlotPool is a fixed-capacity admission resource.
//
// TryAcquire never waits: it either takes a slot immediately or reports ok=false.
// The returned release func must be called once; extra calls are no-ops.
type SlotPool interface {
	TryAcquire() (release func(), ok bool)
	Capacity() int
	InUse() int
}

// OrderProcessor performs the (external) order processing for a validated cart.
// It must return promptly with ctx.Err() when ctx is cancelled.
type OrderProcessor interface {
	Process(ctx context.Context, c *cart.Cart) error
}

// CheckoutNotifier is told about completed checkouts (confirmation email, etc).
type CheckoutNotifier interface {
	NotifyCheckout(ctx context.Context, outcome *checkout.Outcome) error
}

// CheckoutObserver receives checkout lifecycle signals (metrics).
type CheckoutObserver interface {
	SlotAcquired()
	SlotReleased()
	CheckoutFinished(outcome string, elapsed time.Duration)
}
