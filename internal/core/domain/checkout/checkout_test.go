package checkout_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/avatarctic/checkout-system/internal/core/domain/checkout"
)

func TestCompleted(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	id := uuid.New()
	o := checkout.Completed("alice", id, []string{"a", "b"}, at)
	require.True(t, o.Success)
	require.Equal(t, checkout.StateCompleted, o.State)
	require.Equal(t, checkout.CategoryNone, o.Category)
	require.Equal(t, checkout.MessageCompleted, o.Message)
	require.Equal(t, []string{"a", "b"}, o.Items)
	require.Equal(t, id, o.OrderID)
	require.NotNil(t, o.CheckoutTime)
	require.True(t, at.Equal(*o.CheckoutTime))
	require.Equal(t, "success", o.Label())
}

func TestFailureOutcomes(t *testing.T) {
	cases := []struct {
		name     string
		outcome  *checkout.Outcome
		state    checkout.State
		category checkout.FailureCategory
		message  string
	}{
		{"rejected", checkout.Rejected("u"), checkout.StateRejected, checkout.CategoryCapacityExceeded, checkout.MessageCapacityExceeded},
		{"empty", checkout.EmptyCart("u"), checkout.StateEmptyCart, checkout.CategoryEmptyCart, checkout.MessageEmptyCart},
		{"cancelled", checkout.Cancelled("u"), checkout.StateCancelled, checkout.CategoryCancelled, checkout.MessageCancelled},
		{"failed", checkout.Failed("u"), checkout.StateFailed, checkout.CategoryFailed, checkout.MessageFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o := tc.outcome
			require.False(t, o.Success)
			require.Equal(t, tc.state, o.State)
			require.Equal(t, tc.category, o.Category)
			require.Equal(t, tc.message, o.Message)
			require.NotNil(t, o.Items)
			require.Empty(t, o.Items)
			require.Nil(t, o.CheckoutTime)
			require.Equal(t, uuid.Nil, o.OrderID)
			require.Equal(t, string(tc.category), o.Label())
			require.True(t, o.State.IsTerminal())
		})
	}
}

func TestStateIsTerminal(t *testing.T) {
	for _, s := range []checkout.State{checkout.StateRequested, checkout.StateAdmissionPending, checkout.StateAdmitted, checkout.StateValidating, checkout.StateProcessing} {
		require.False(t, s.IsTerminal(), s)
	}
}

func TestLabel_NilOutcome(t *testing.T) {
	var o *checkout.Outcome
	require.Equal(t, "failed", o.Label())
}
