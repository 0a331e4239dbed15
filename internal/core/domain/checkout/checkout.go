package checkout

import (
	"time"

	"github.com/google/uuid"
)

// State is the position of a single checkout attempt in its lifecycle.
type State string

const (
	StateRequested        State = "requested"
	StateAdmissionPending State = "admission_pending"
	StateAdmitted         State = "admitted"
	StateValidating       State = "validating"
	StateProcessing       State = "processing"
	StateCompleted        State = "completed"
	StateRejected         State = "rejected"
	StateEmptyCart        State = "empty_cart"
	StateCancelled        State = "cancelled"
	StateFailed           State = "failed"
)

// IsTerminal reports whether no further transition can happen from s.
func (s State) IsTerminal() bool {
	switch s {
	case StateCompleted, StateRejected, StateEmptyCart, StateCancelled, StateFailed:
		return true
	}
	return false
}

// FailureCategory lets callers branch on why a checkout failed without
// looking at the message text.
type FailureCategory string

const (
	CategoryNone             FailureCategory = ""
	CategoryCapacityExceeded FailureCategory = "capacity_exceeded"
	CategoryEmptyCart        FailureCategory = "empty_cart"
	CategoryCancelled        FailureCategory = "cancelled"
	CategoryFailed           FailureCategory = "failed"
)

const (
	MessageCompleted        = "Checkout completed successfully."
	MessageCapacityExceeded = "Too Many Checkout Requests. Please try again later."
	MessageEmptyCart        = "Cart is empty or does not exist."
	MessageCancelled        = "Checkout was cancelled before completion."
	MessageFailed           = "Checkout could not be completed."
)

// Outcome is the result of one checkout attempt.
type Outcome struct {
	UserID       string          `json:"user_id"`
	Success      bool            `json:"success"`
	Category     FailureCategory `json:"category,omitempty"`
	State        State           `json:"state"`
	Message      string          `json:"message"`
	Items        []string        `json:"items"`
	OrderID      uuid.UUID       `json:"order_id"`
	CheckoutTime *time.Time      `json:"checkout_time,omitempty"`
}

// Label is the low-cardinality outcome name used for metrics.
func (o *Outcome) Label() string {
	if o == nil {
		return string(CategoryFailed)
	}
	if o.Success {
		return "success"
	}
	return string(o.Category)
}

func Completed(userID string, orderID uuid.UUID, items []string, at time.Time) *Outcome {
	return &Outcome{
		UserID:       userID,
		Success:      true,
		State:        StateCompleted,
		Message:      MessageCompleted,
		Items:        items,
		OrderID:      orderID,
		CheckoutTime: &at,
	}
}

func Rejected(userID string) *Outcome {
	return failure(userID, StateRejected, CategoryCapacityExceeded, MessageCapacityExceeded)
}

func EmptyCart(userID string) *Outcome {
	return failure(userID, StateEmptyCart, CategoryEmptyCart, MessageEmptyCart)
}

func Cancelled(userID string) *Outcome {
	return failure(userID, StateCancelled, CategoryCancelled, MessageCancelled)
}

func Failed(userID string) *Outcome {
	return failure(userID, StateFailed, CategoryFailed, MessageFailed)
}

func failure(userID string, state State, category FailureCategory, msg string) *Outcome {
	return &Outcome{
		UserID:   userID,
		State:    state,
		Category: category,
		Message:  msg,
		Items:    []string{},
	}
}
