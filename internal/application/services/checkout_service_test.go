package services_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	impl "github.com/avatarctic/checkout-system/internal/application/services"
	"github.com/avatarctic/checkout-system/internal/core/domain/cart"
	"github.com/avatarctic/checkout-system/internal/core/domain/checkout"
	"github.com/avatarctic/checkout-system/internal/infrastructure/admission"
	"github.com/avatarctic/checkout-system/internal/infrastructure/repositories"
	"github.com/avatarctic/checkout-system/internal/mocks"
)

// gatedProcessor blocks every Process call until release is closed (or ctx ends).
type gatedProcessor struct {
	entered chan string
	release chan struct{}
}

func newGatedProcessor() *gatedProcessor {
	return &gatedProcessor{entered: make(chan string, 16), release: make(chan struct{})}
}

func (g *gatedProcessor) Process(ctx context.Context, c *cart.Cart) error {
	g.entered <- c.UserID
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-g.release:
		return nil
	}
}

type checkoutObserverStub struct {
	mu       sync.Mutex
	acquired int
	released int
	outcomes []string
}

func (o *checkoutObserverStub) SlotAcquired() { o.mu.Lock(); o.acquired++; o.mu.Unlock() }
func (o *checkoutObserverStub) SlotReleased() { o.mu.Lock(); o.released++; o.mu.Unlock() }
func (o *checkoutObserverStub) CheckoutFinished(outcome string, _ time.Duration) {
	o.mu.Lock()
	o.outcomes = append(o.outcomes, outcome)
	o.mu.Unlock()
}

func seedCart(t *testing.T, repo *repositories.CartRepository, userID string, items ...string) {
	t.Helper()
	_, err := repo.Store(context.Background(), cart.New(userID, items))
	require.NoError(t, err)
}

func TestCheckout_Success(t *testing.T) {
	repo := repositories.NewCartRepository(1, nil)
	seedCart(t, repo, "alice", "apple", "pear")
	slots := admission.NewSlotPool(3)
	notifier := &mocks.CheckoutNotifierMock{}
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("X", 3600))

	svc := impl.NewCheckoutService(repo, slots, &mocks.OrderProcessorMock{}, logrus.New(),
		impl.WithCheckoutNotifier(notifier),
		impl.WithCheckoutClock(func() time.Time { return fixed }),
	)

	out, err := svc.Checkout(context.Background(), "alice")
	require.NoError(t, err)
	require.True(t, out.Success)
	require.Equal(t, checkout.StateCompleted, out.State)
	require.Equal(t, []string{"apple", "pear"}, out.Items)
	require.NotEqual(t, uuid.Nil, out.OrderID)
	require.NotNil(t, out.CheckoutTime)
	require.True(t, fixed.Equal(*out.CheckoutTime))
	require.Equal(t, time.UTC, out.CheckoutTime.Location())

	_, found, err := repo.Retrieve(context.Background(), "alice")
	require.NoError(t, err)
	require.False(t, found)
	require.Equal(t, 0, slots.InUse())
	require.Equal(t, 1, notifier.CallCount())
}

func TestCheckout_EmptyOrMissingCart(t *testing.T) {
	repo := repositories.NewCartRepository(1, nil)
	seedCart(t, repo, "empty")
	slots := admission.NewSlotPool(1)
	processed := false
	svc := impl.NewCheckoutService(repo, slots, &mocks.OrderProcessorMock{ProcessFn: func(ctx context.Context, c *cart.Cart) error {
		processed = true
		return nil
	}}, nil)

	for _, user := range []string{"nobody", "empty"} {
		out, err := svc.Checkout(context.Background(), user)
		require.NoError(t, err)
		require.False(t, out.Success)
		require.Equal(t, checkout.CategoryEmptyCart, out.Category)
		require.Equal(t, checkout.MessageEmptyCart, out.Message)
		require.Equal(t, 0, slots.InUse())
	}
	require.False(t, processed)
	_, found, _ := repo.Retrieve(context.Background(), "empty")
	require.True(t, found)
}

func TestCheckout_RejectsBeyondCapacity(t *testing.T) {
	repo := repositories.NewCartRepository(4, nil)
	users := []string{"u1", "u2", "u3", "u4"}
	for _, u := range users {
		seedCart(t, repo, u, "item")
	}
	slots := admission.NewSlotPool(3)
	proc := newGatedProcessor()
	obs := &checkoutObserverStub{}
	svc := impl.NewCheckoutService(repo, slots, proc, nil, impl.WithCheckoutObserver(obs))

	results := make(chan *checkout.Outcome, 3)
	for _, u := range users[:3] {
		go func(u string) {
			out, _ := svc.Checkout(context.Background(), u)
			results <- out
		}(u)
	}
	for i := 0; i < 3; i++ {
		<-proc.entered
	}
	require.Equal(t, 3, slots.InUse())

	start := time.Now()
	out, err := svc.Checkout(context.Background(), "u4")
	require.NoError(t, err)
	require.Less(t, time.Since(start), time.Second)
	require.False(t, out.Success)
	require.Equal(t, checkout.CategoryCapacityExceeded, out.Category)
	require.Equal(t, checkout.MessageCapacityExceeded, out.Message)
	require.Empty(t, out.Items)

	// a rejected checkout never touches the cart
	_, found, _ := repo.Retrieve(context.Background(), "u4")
	require.True(t, found)

	close(proc.release)
	for i := 0; i < 3; i++ {
		require.True(t, (<-results).Success)
	}
	require.Equal(t, 0, slots.InUse())

	// capacity is available again
	out, err = svc.Checkout(context.Background(), "u4")
	require.NoError(t, err)
	require.True(t, out.Success)

	obs.mu.Lock()
	defer obs.mu.Unlock()
	require.Equal(t, 4, obs.acquired)
	require.Equal(t, 4, obs.released)
	require.ElementsMatch(t, []string{"success", "success", "success", "capacity_exceeded", "success"}, obs.outcomes)
}

func TestCheckout_CancelledDuringProcessingKeepsCart(t *testing.T) {
	repo := repositories.NewCartRepository(1, nil)
	seedCart(t, repo, "bob", "a")
	slots := admission.NewSlotPool(1)
	proc := newGatedProcessor()
	notifier := &mocks.CheckoutNotifierMock{}
	svc := impl.NewCheckoutService(repo, slots, proc, nil, impl.WithCheckoutNotifier(notifier))

	ctx, cancel := context.WithCancel(context.Background())
	type result struct {
		out *checkout.Outcome
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := svc.Checkout(ctx, "bob")
		done <- result{out, err}
	}()
	<-proc.entered
	cancel()

	r := <-done
	require.Error(t, r.err)
	require.True(t, errors.Is(r.err, context.Canceled))
	require.Equal(t, checkout.CategoryCancelled, r.out.Category)
	require.Equal(t, checkout.StateCancelled, r.out.State)
	require.Equal(t, 0, slots.InUse())
	require.Equal(t, 0, notifier.CallCount())

	_, found, _ := repo.Retrieve(context.Background(), "bob")
	require.True(t, found)
}

func TestCheckout_AlreadyCancelledTakesNoSlot(t *testing.T) {
	var acquired atomic.Int32
	slots := &mocks.SlotPoolMock{TryAcquireFn: func() (func(), bool) {
		acquired.Add(1)
		return func() {}, true
	}}
	svc := impl.NewCheckoutService(&mocks.CartRepositoryMock{}, slots, &mocks.OrderProcessorMock{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out, err := svc.Checkout(ctx, "carol")
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, checkout.CategoryCancelled, out.Category)
	require.EqualValues(t, 0, acquired.Load())
}

func TestCheckout_StoreReadFailure(t *testing.T) {
	slots := admission.NewSlotPool(1)
	repo := &mocks.CartRepositoryMock{RetrieveFn: func(ctx context.Context, userID string) (*cart.Cart, bool, error) {
		return nil, false, errors.New("store down")
	}}
	svc := impl.NewCheckoutService(repo, slots, &mocks.OrderProcessorMock{}, nil)

	out, err := svc.Checkout(context.Background(), "dave")
	require.Error(t, err)
	require.Equal(t, checkout.CategoryFailed, out.Category)
	require.Equal(t, 0, slots.InUse())
}

func TestCheckout_ProcessorFailureKeepsCart(t *testing.T) {
	repo := repositories.NewCartRepository(1, nil)
	seedCart(t, repo, "erin", "a")
	svc := impl.NewCheckoutService(repo, admission.NewSlotPool(1), &mocks.OrderProcessorMock{ProcessFn: func(ctx context.Context, c *cart.Cart) error {
		return errors.New("order system rejected")
	}}, nil)

	out, err := svc.Checkout(context.Background(), "erin")
	require.Error(t, err)
	require.Equal(t, checkout.CategoryFailed, out.Category)
	_, found, _ := repo.Retrieve(context.Background(), "erin")
	require.True(t, found)
}

func TestCheckout_DeleteFailure(t *testing.T) {
	repo := &mocks.CartRepositoryMock{
		RetrieveFn: func(ctx context.Context, userID string) (*cart.Cart, bool, error) {
			return cart.New(userID, []string{"a"}), true, nil
		},
		DeleteFn: func(ctx context.Context, userID string) (bool, error) { return false, errors.New("delete failed") },
	}
	slots := admission.NewSlotPool(1)
	svc := impl.NewCheckoutService(repo, slots, &mocks.OrderProcessorMock{}, nil)

	out, err := svc.Checkout(context.Background(), "frank")
	require.Error(t, err)
	require.Equal(t, checkout.CategoryFailed, out.Category)
	require.Equal(t, 0, slots.InUse())
}

func TestCheckout_DeleteRunsEvenIfCancelledAfterProcessing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var deleteCtxErr error
	repo := &mocks.CartRepositoryMock{
		RetrieveFn: func(ctx context.Context, userID string) (*cart.Cart, bool, error) {
			return cart.New(userID, []string{"a"}), true, nil
		},
		DeleteFn: func(ctx context.Context, userID string) (bool, error) {
			deleteCtxErr = ctx.Err()
			return true, nil
		},
	}
	proc := &mocks.OrderProcessorMock{ProcessFn: func(context.Context, *cart.Cart) error {
		// the request goes away right as processing finishes
		cancel()
		return nil
	}}
	svc := impl.NewCheckoutService(repo, admission.NewSlotPool(1), proc, nil)

	out, err := svc.Checkout(ctx, "gina")
	require.NoError(t, err)
	require.True(t, out.Success)
	require.NoError(t, deleteCtxErr)
}

func TestCheckout_NotifierFailureDoesNotChangeOutcome(t *testing.T) {
	repo := repositories.NewCartRepository(1, nil)
	seedCart(t, repo, "hank", "a")
	slots := admission.NewSlotPool(1)
	notifier := &mocks.CheckoutNotifierMock{NotifyCheckoutFn: func(ctx context.Context, o *checkout.Outcome) error {
		// the slot is already free when confirmations go out
		require.Equal(t, 0, slots.InUse())
		return errors.New("smtp down")
	}}
	svc := impl.NewCheckoutService(repo, slots, &mocks.OrderProcessorMock{}, logrus.New(), impl.WithCheckoutNotifier(notifier))

	out, err := svc.Checkout(context.Background(), "hank")
	require.NoError(t, err)
	require.True(t, out.Success)
	require.Equal(t, 1, notifier.CallCount())
}

func TestCheckout_ConcurrentOverwriteReturnsValidatedItems(t *testing.T) {
	repo := repositories.NewCartRepository(1, nil)
	seedCart(t, repo, "ivy", "old")
	proc := newGatedProcessor()
	svc := impl.NewCheckoutService(repo, admission.NewSlotPool(1), proc, nil)

	done := make(chan *checkout.Outcome, 1)
	go func() {
		out, _ := svc.Checkout(context.Background(), "ivy")
		done <- out
	}()
	<-proc.entered
	seedCart(t, repo, "ivy", "new", "newer")
	close(proc.release)

	out := <-done
	require.True(t, out.Success)
	require.Equal(t, []string{"old"}, out.Items)
	_, found, _ := repo.Retrieve(context.Background(), "ivy")
	require.False(t, found)
}

func TestCheckout_DifferentUsersRunInParallel(t *testing.T) {
	repo := repositories.NewCartRepository(4, nil)
	for _, u := range []string{"a", "b", "c"} {
		seedCart(t, repo, u, "x")
	}
	proc := newGatedProcessor()
	svc := impl.NewCheckoutService(repo, admission.NewSlotPool(3), proc, nil)

	var wg sync.WaitGroup
	var ok atomic.Int32
	for _, u := range []string{"a", "b", "c"} {
		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			if out, err := svc.Checkout(context.Background(), u); err == nil && out.Success {
				ok.Add(1)
			}
		}(u)
	}
	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		seen[<-proc.entered] = true
	}
	require.Len(t, seen, 3)
	close(proc.release)
	wg.Wait()
	require.EqualValues(t, 3, ok.Load())
}

func checkoutStates(hook *test.Hook, userID string) []checkout.State {
	var states []checkout.State
	for _, e := range hook.AllEntries() {
		if st, ok := e.Data["state"].(checkout.State); ok && e.Data["user_id"] == userID {
			states = append(states, st)
		}
	}
	return states
}

func TestCheckout_RecordsLifecycleStates(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	repo := repositories.NewCartRepository(1, nil)
	seedCart(t, repo, "alice", "apple")
	svc := impl.NewCheckoutService(repo, admission.NewSlotPool(1), &mocks.OrderProcessorMock{}, logger)

	_, err := svc.Checkout(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, []checkout.State{
		checkout.StateRequested,
		checkout.StateAdmissionPending,
		checkout.StateAdmitted,
		checkout.StateValidating,
		checkout.StateProcessing,
		checkout.StateCompleted,
	}, checkoutStates(hook, "alice"))

	_, err = svc.Checkout(context.Background(), "bob")
	require.NoError(t, err)
	require.Equal(t, []checkout.State{
		checkout.StateRequested,
		checkout.StateAdmissionPending,
		checkout.StateAdmitted,
		checkout.StateValidating,
		checkout.StateEmptyCart,
	}, checkoutStates(hook, "bob"))

	busy := impl.NewCheckoutService(repo, &mocks.SlotPoolMock{
		TryAcquireFn: func() (func(), bool) { return nil, false },
	}, &mocks.OrderProcessorMock{}, logger)
	_, err = busy.Checkout(context.Background(), "carol")
	require.NoError(t, err)
	require.Equal(t, []checkout.State{
		checkout.StateRequested,
		checkout.StateAdmissionPending,
		checkout.StateRejected,
	}, checkoutStates(hook, "carol"))
}
