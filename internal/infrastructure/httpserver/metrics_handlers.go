package httpserver

import (
	"errors"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPMetrics are the per-request collectors fed by the metrics middleware.
type HTTPMetrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewHTTPMetrics registers the HTTP collectors on reg. If an identical
// collector is already registered (a second server on the same registry) the
// existing one is reused.
func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	m := &HTTPMetrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "The total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "http_request_duration_seconds",
				Help: "The HTTP request latencies in seconds",
			},
			[]string{"method", "endpoint"},
		),
	}
	if reg == nil {
		return m
	}
	m.RequestsTotal = registerOrExisting(reg, m.RequestsTotal)
	m.RequestDuration = registerOrExisting(reg, m.RequestDuration)
	return m
}

func registerOrExisting[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// LogMetricsInitialization logs that metrics have been initialized
func (s *Server) LogMetricsInitialization() {
	if s.logger != nil {
		s.logger.Info("Prometheus metrics initialized and registered")
		s.logger.WithFields(map[string]interface{}{
			"http_requests_total":       "Counter for HTTP requests by method, endpoint, status",
			"http_request_duration":     "Histogram for HTTP request duration by method, endpoint",
			"cart_cache_requests_total": "Counter for cart cache lookups by result",
			"checkout_attempts_total":   "Counter for checkout attempts by outcome",
			"metrics_endpoint":          "/metrics",
		}).Debug("Available Prometheus metrics")
	}
}

// metricsEndpoint serves the configured gatherer in the Prometheus text format.
func (s *Server) metricsEndpoint(c echo.Context) error {
	if s.logger != nil {
		s.logger.Debug("Serving Prometheus metrics")
	}
	promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}).ServeHTTP(c.Response(), c.Request())
	return nil
}
