package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/avatarctic/checkout-system/internal/core/ports"
)

// CartMetrics holds the cart cache and checkout collectors.
type CartMetrics struct {
	CacheRequests    *prometheus.CounterVec
	CheckoutAttempts *prometheus.CounterVec
	CheckoutInFlight prometheus.Gauge
	CheckoutDuration *prometheus.HistogramVec
}

// NewCartMetrics creates the collectors and registers them on reg.
func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	m := &CartMetrics{
		CacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cart_cache_requests_total",
			Help: "Cart cache lookups by result (hit or miss).",
		}, []string{"result"}),
		CheckoutAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "checkout_attempts_total",
			Help: "Checkout attempts by outcome.",
		}, []string{"outcome"}),
		CheckoutInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "checkout_in_flight",
			Help: "Checkouts currently holding an admission slot.",
		}),
		CheckoutDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "checkout_duration_seconds",
			Help:    "Checkout latency in seconds by outcome.",
			Buckets: []float64{0.005, 0.05, 0.25, 0.5, 1, 2.5, 3, 5, 10},
		}, []string{"outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.CacheRequests, m.CheckoutAttempts, m.CheckoutInFlight, m.CheckoutDuration)
	}
	return m
}

func (m *CartMetrics) CacheHit()  { m.CacheRequests.WithLabelValues("hit").Inc() }
func (m *CartMetrics) CacheMiss() { m.CacheRequests.WithLabelValues("miss").Inc() }

func (m *CartMetrics) SlotAcquired() { m.CheckoutInFlight.Inc() }
func (m *CartMetrics) SlotReleased() { m.CheckoutInFlight.Dec() }

func (m *CartMetrics) CheckoutFinished(outcome string, elapsed time.Duration) {
	m.CheckoutAttempts.WithLabelValues(outcome).Inc()
	m.CheckoutDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

var (
	_ ports.CacheObserver    = (*CartMetrics)(nil)
	_ ports.CheckoutObserver = (*CartMetrics)(nil)
)
