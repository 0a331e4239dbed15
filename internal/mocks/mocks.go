package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/avatarctic/checkout-system/internal/core/domain/cart"
	"github.com/avatarctic/checkout-system/internal/core/domain/checkout"
	"github.com/avatarctic/checkout-system/internal/core/ports"
)

// CartRepositoryMock is a lightweight mock for CartRepository
type CartRepositoryMock struct {
	RetrieveFn func(ctx context.Context, userID string) (*cart.Cart, bool, error)
	StoreFn    func(ctx context.Context, c *cart.Cart) (*cart.Cart, error)
	DeleteFn   func(ctx context.Context, userID string) (bool, error)
}

func (m *CartRepositoryMock) Retrieve(ctx context.Context, userID string) (*cart.Cart, bool, error) {
	if m.RetrieveFn != nil {
		return m.RetrieveFn(ctx, userID)
	}
	return nil, false, nil
}
func (m *CartRepositoryMock) Store(ctx context.Context, c *cart.Cart) (*cart.Cart, error) {
	if m.StoreFn != nil {
		return m.StoreFn(ctx, c)
	}
	return c.Clone(), nil
}
func (m *CartRepositoryMock) Delete(ctx context.Context, userID string) (bool, error) {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, userID)
	}
	return false, nil
}

// CartServiceMock is a lightweight mock for CartService
type CartServiceMock struct {
	StoreCartFn  func(ctx context.Context, req *cart.StoreCartRequest) (*cart.Cart, error)
	GetCartFn    func(ctx context.Context, userID string) (*cart.Cart, bool, error)
	DeleteCartFn func(ctx context.Context, userID string) (bool, error)
}

func (m *CartServiceMock) StoreCart(ctx context.Context, req *cart.StoreCartRequest) (*cart.Cart, error) {
	if m.StoreCartFn != nil {
		return m.StoreCartFn(ctx, req)
	}
	return cart.New(req.UserID, req.Items), nil
}
func (m *CartServiceMock) GetCart(ctx context.Context, userID string) (*cart.Cart, bool, error) {
	if m.GetCartFn != nil {
		return m.GetCartFn(ctx, userID)
	}
	return nil, false, nil
}
func (m *CartServiceMock) DeleteCart(ctx context.Context, userID string) (bool, error) {
	if m.DeleteCartFn != nil {
		return m.DeleteCartFn(ctx, userID)
	}
	return false, nil
}

// CheckoutServiceMock is a lightweight mock for CheckoutService
type CheckoutServiceMock struct {
	CheckoutFn func(ctx context.Context, userID string) (*checkout.Outcome, error)
}

func (m *CheckoutServiceMock) Checkout(ctx context.Context, userID string) (*checkout.Outcome, error) {
	if m.CheckoutFn != nil {
		return m.CheckoutFn(ctx, userID)
	}
	return checkout.EmptyCart(userID), nil
}

// RateLimiterServiceMock is a lightweight mock for RateLimiterService
type RateLimiterServiceMock struct {
	AllowFn func(ctx context.Context, key string) (bool, int, int, time.Time, error)
}

func (m *RateLimiterServiceMock) Allow(ctx context.Context, key string) (bool, int, int, time.Time, error) {
	if m.AllowFn != nil {
		return m.AllowFn(ctx, key)
	}
	return true, 1, 1, time.Now(), nil
}

// RateLimitRepositoryMock is a lightweight mock for RateLimitRepository
type RateLimitRepositoryMock struct {
	IncrementWindowFn func(ctx context.Context, key string, window time.Duration, keyPrefix string, ttl time.Duration) (int, time.Time, error)
}

func (m *RateLimitRepositoryMock) IncrementWindow(ctx context.Context, key string, window time.Duration, keyPrefix string, ttl time.Duration) (int, time.Time, error) {
	if m.IncrementWindowFn != nil {
		return m.IncrementWindowFn(ctx, key, window, keyPrefix, ttl)
	}
	return 1, time.Now().Truncate(window), nil
}

// SlotPoolMock is a lightweight mock for SlotPool
type SlotPoolMock struct {
	TryAcquireFn func() (func(), bool)
	CapacityFn   func() int
	InUseFn      func() int
}

func (m *SlotPoolMock) TryAcquire() (func(), bool) {
	if m.TryAcquireFn != nil {
		return m.TryAcquireFn()
	}
	return func() {}, true
}
func (m *SlotPoolMock) Capacity() int {
	if m.CapacityFn != nil {
		return m.CapacityFn()
	}
	return 1
}
func (m *SlotPoolMock) InUse() int {
	if m.InUseFn != nil {
		return m.InUseFn()
	}
	return 0
}

// OrderProcessorMock is a lightweight mock for OrderProcessor
type OrderProcessorMock struct {
	ProcessFn func(ctx context.Context, c *cart.Cart) error
}

func (m *OrderProcessorMock) Process(ctx context.Context, c *cart.Cart) error {
	if m.ProcessFn != nil {
		return m.ProcessFn(ctx, c)
	}
	return nil
}

// CheckoutNotifierMock records every notification it receives.
type CheckoutNotifierMock struct {
	NotifyCheckoutFn func(ctx context.Context, outcome *checkout.Outcome) error

	mu    sync.Mutex
	Calls []*checkout.Outcome
}

func (m *CheckoutNotifierMock) NotifyCheckout(ctx context.Context, outcome *checkout.Outcome) error {
	m.mu.Lock()
	m.Calls = append(m.Calls, outcome)
	m.mu.Unlock()
	if m.NotifyCheckoutFn != nil {
		return m.NotifyCheckoutFn(ctx, outcome)
	}
	return nil
}

func (m *CheckoutNotifierMock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// CacheMock is a map-backed Cache whose calls can be overridden or failed.
type CacheMock struct {
	GetFn    func(ctx context.Context, key string) ([]byte, bool, error)
	SetFn    func(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeleteFn func(ctx context.Context, key string) error

	mu      sync.Mutex
	data    map[string][]byte
	Gets    int
	Sets    int
	Deletes int
}

func (m *CacheMock) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	m.Gets++
	m.mu.Unlock()
	if m.GetFn != nil {
		return m.GetFn(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}
func (m *CacheMock) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	m.Sets++
	m.mu.Unlock()
	if m.SetFn != nil {
		return m.SetFn(ctx, key, value, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = make(map[string][]byte)
	}
	m.data[key] = value
	return nil
}
func (m *CacheMock) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	m.Deletes++
	m.mu.Unlock()
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Has reports whether key is currently held in the backing map.
func (m *CacheMock) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}

// HealthCheckerMock is a lightweight mock for HealthChecker
type HealthCheckerMock struct {
	NameValue string
	CheckFn   func(ctx context.Context) error
}

func (m *HealthCheckerMock) Name() string { return m.NameValue }
func (m *HealthCheckerMock) Check(ctx context.Context) error {
	if m.CheckFn != nil {
		return m.CheckFn(ctx)
	}
	return nil
}

var (
	_ ports.CartRepository      = (*CartRepositoryMock)(nil)
	_ ports.CartService         = (*CartServiceMock)(nil)
	_ ports.CheckoutService     = (*CheckoutServiceMock)(nil)
	_ ports.RateLimiterService  = (*RateLimiterServiceMock)(nil)
	_ ports.RateLimitRepository = (*RateLimitRepositoryMock)(nil)
	_ ports.SlotPool            = (*SlotPoolMock)(nil)
	_ ports.OrderProcessor      = (*OrderProcessorMock)(nil)
	_ ports.CheckoutNotifier    = (*CheckoutNotifierMock)(nil)
	_ ports.Cache               = (*CacheMock)(nil)
	_ ports.HealthChecker       = (*HealthCheckerMock)(nil)
)
