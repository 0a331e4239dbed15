package cart

import (
	"errors"
	"strings"
)

// ErrInvalidCart is returned when a cart cannot be stored (missing user ID).
var ErrInvalidCart = errors.New("invalid cart")

// Cart is the per-user basket. Items keep the order they were submitted in and
// may contain duplicates.
type Cart struct {
	UserID string   `json:"user_id"`
	Items  []string `json:"items"`
}

// New builds a cart holding its own copy of items.
func New(userID string, items []string) *Cart {
	return &Cart{UserID: userID, Items: copyItems(items)}
}

// Clone returns a deep copy so stored carts are never shared with callers.
func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	return &Cart{UserID: c.UserID, Items: copyItems(c.Items)}
}

// IsEmpty reports whether the cart holds no items. A nil cart is empty.
func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}

func (c *Cart) Validate() error {
	if c == nil {
		return ErrInvalidCart
	}
	if strings.TrimSpace(c.UserID) == "" {
		return errors.Join(ErrInvalidCart, errors.New("user id is required"))
	}
	return nil
}

func copyItems(items []string) []string {
	out := make([]string, len(items))
	copy(out, items)
	return out
}

type StoreCartRequest struct {
	UserID string   `json:"user_id" validate:"required"`
	Items  []string `json:"items" validate:"required,min=1,dive,required"`
}

type CheckoutRequest struct {
	UserID string `json:"user_id" validate:"required"`
}
