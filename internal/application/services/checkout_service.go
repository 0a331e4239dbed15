package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/checkout-system/internal/core/domain/checkout"
	"github.com/avatarctic/checkout-system/internal/core/ports"
)

// CheckoutService admits at most SlotPool.Capacity() checkouts at once and
// rejects the rest immediately. An admitted checkout validates the cart, hands it
// to the order processor and finally removes it from the store.
type CheckoutService struct {
	carts     ports.CartRepository
	slots     ports.SlotPool
	processor ports.OrderProcessor
	notifier  ports.CheckoutNotifier
	observer  ports.CheckoutObserver
	logger    *logrus.Logger
	now       func() time.Time
	newID     func() uuid.UUID
}

type CheckoutOption func(*CheckoutService)

func WithCheckoutNotifier(n ports.CheckoutNotifier) CheckoutOption {
	return func(s *CheckoutService) { s.notifier = n }
}

func WithCheckoutObserver(o ports.CheckoutObserver) CheckoutOption {
	return func(s *CheckoutService) { s.observer = o }
}

func WithCheckoutClock(now func() time.Time) CheckoutOption {
	return func(s *CheckoutService) { s.now = now }
}

func NewCheckoutService(carts ports.CartRepository, slots ports.SlotPool, processor ports.OrderProcessor, logger *logrus.Logger, opts ...CheckoutOption) *CheckoutService {
	s := &CheckoutService{
		carts:     carts,
		slots:     slots,
		processor: processor,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.New,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *CheckoutService) Checkout(ctx context.Context, userID string) (*checkout.Outcome, error) {
	start := s.now()
	outcome, err := s.run(ctx, userID)
	if s.observer != nil {
		s.observer.CheckoutFinished(outcome.Label(), s.now().Sub(start))
	}
	// the slot is already released here, a slow notifier never holds capacity
	if outcome.Success && s.notifier != nil {
		if nerr := s.notifier.NotifyCheckout(context.WithoutCancel(ctx), outcome); nerr != nil {
			s.log(userID).WithError(nerr).Warn("failed to send checkout confirmation")
		}
	}
	return outcome, err
}

func (s *CheckoutService) run(ctx context.Context, userID string) (outcome *checkout.Outcome, err error) {
	s.enter(userID, checkout.StateRequested)
	defer func() {
		if outcome != nil {
			s.enter(userID, outcome.State)
		}
	}()

	if err := ctx.Err(); err != nil {
		return checkout.Cancelled(userID), fmt.Errorf("checkout cancelled: %w", err)
	}

	s.enter(userID, checkout.StateAdmissionPending)
	release, ok := s.slots.TryAcquire()
	if !ok {
		s.log(userID).WithField("capacity", s.slots.Capacity()).Warn("too many concurrent checkouts, rejecting")
		return checkout.Rejected(userID), nil
	}
	if s.observer != nil {
		s.observer.SlotAcquired()
	}
	defer func() {
		release()
		if s.observer != nil {
			s.observer.SlotReleased()
		}
		s.log(userID).Debug("released checkout slot")
	}()

	s.enter(userID, checkout.StateAdmitted)
	s.log(userID).Info("processing checkout")

	s.enter(userID, checkout.StateValidating)

	c, found, err := s.carts.Retrieve(ctx, userID)
	if err != nil {
		if ctx.Err() != nil {
			return checkout.Cancelled(userID), fmt.Errorf("checkout cancelled: %w", ctx.Err())
		}
		s.log(userID).WithError(err).Error("failed to load cart for checkout")
		return checkout.Failed(userID), fmt.Errorf("failed to load cart: %w", err)
	}
	if !found || c.IsEmpty() {
		s.log(userID).Info("checkout rejected: cart is empty or does not exist")
		return checkout.EmptyCart(userID), nil
	}
	items := c.Clone().Items

	s.enter(userID, checkout.StateProcessing)
	if err := s.processor.Process(ctx, c); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			s.log(userID).WithError(err).Warn("checkout cancelled during order processing; cart kept")
			return checkout.Cancelled(userID), fmt.Errorf("checkout cancelled: %w", err)
		}
		s.log(userID).WithError(err).Error("order processing failed")
		return checkout.Failed(userID), fmt.Errorf("failed to process order: %w", err)
	}

	// once processing has finished the cart removal must run to completion
	existed, err := s.carts.Delete(context.WithoutCancel(ctx), userID)
	if err != nil {
		s.log(userID).WithError(err).Error("order processed but cart could not be removed")
		return checkout.Failed(userID), fmt.Errorf("failed to remove cart after checkout: %w", err)
	}
	if !existed {
		s.log(userID).Warn("cart was removed concurrently during checkout")
	}

	orderID := s.newID()
	s.log(userID).WithField("order_id", orderID).Info("order processed")
	return checkout.Completed(userID, orderID, items, s.now().UTC()), nil
}

// enter records a lifecycle transition of one checkout attempt.
func (s *CheckoutService) enter(userID string, state checkout.State) {
	s.log(userID).WithField("state", state).Debug("checkout state changed")
}

func (s *CheckoutService) log(userID string) *logrus.Entry {
	logger := s.logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return logger.WithField("user_id", userID)
}

var _ ports.CheckoutService = (*CheckoutService)(nil)
