package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/avatarctic/checkout-system/internal/infrastructure/httpserver/helpers"
	"github.com/avatarctic/checkout-system/internal/infrastructure/httpserver/middleware"
	"github.com/avatarctic/checkout-system/internal/mocks"
)

func okHandler(c echo.Context) error { return c.NoContent(http.StatusOK) }

func TestRateLimit_AllowedSetsHeaders(t *testing.T) {
	reset := time.Unix(1700000000, 0)
	var gotKey string
	rl := &mocks.RateLimiterServiceMock{AllowFn: func(ctx context.Context, key string) (bool, int, int, time.Time, error) {
		gotKey = key
		return true, 4, 5, reset, nil
	}}
	h := middleware.NewRateLimitMiddleware(rl, logrus.New()).Handler()(okHandler)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(helpers.ClientIDHeader, "client-42")
	rec := httptest.NewRecorder()
	require.NoError(t, h(e.NewContext(req, rec)))
	require.Equal(t, "client-42", gotKey)
	require.Equal(t, "5", rec.Header().Get("X-RateLimit-Limit"))
	require.Equal(t, "4", rec.Header().Get("X-RateLimit-Remaining"))
	require.Equal(t, "1700000000", rec.Header().Get("X-RateLimit-Reset"))
}

func TestRateLimit_RejectsWith429(t *testing.T) {
	rl := &mocks.RateLimiterServiceMock{AllowFn: func(ctx context.Context, key string) (bool, int, int, time.Time, error) {
		return false, 0, 5, time.Now(), nil
	}}
	h := middleware.NewRateLimitMiddleware(rl, nil).Handler()(okHandler)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	err := h(e.NewContext(req, rec))
	require.Error(t, err)
	htErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusTooManyRequests, htErr.Code)
}

func TestRateLimit_FailsOpenOnLimiterError(t *testing.T) {
	rl := &mocks.RateLimiterServiceMock{AllowFn: func(ctx context.Context, key string) (bool, int, int, time.Time, error) {
		return false, 0, 0, time.Time{}, errors.New("redis down")
	}}
	logger, hook := test.NewNullLogger()
	h := middleware.NewRateLimitMiddleware(rl, logger).Handler()(okHandler)

	e := echo.New()
	rec := httptest.NewRecorder()
	require.NoError(t, h(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestRateLimit_NilLimiterPassesThrough(t *testing.T) {
	h := middleware.NewRateLimitMiddleware(nil, nil).Handler()(okHandler)
	e := echo.New()
	rec := httptest.NewRecorder()
	require.NoError(t, h(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)))
	require.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
}

func TestClientKey_FallsBackToRealIP(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	c := e.NewContext(req, httptest.NewRecorder())
	require.Equal(t, "10.1.2.3", helpers.GetClientKey(c))

	// memoised for the rest of the request
	req.Header.Set(helpers.ClientIDHeader, "late")
	require.Equal(t, "10.1.2.3", helpers.GetClientKey(c))
}

func TestMetricsMiddleware_RecordsStatusFromHTTPError(t *testing.T) {
	total := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "t_requests_total"}, []string{"method", "endpoint", "status"})
	dur := prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: "t_duration_seconds"}, []string{"method", "endpoint"})
	m := middleware.NewMetricsMiddleware(total, dur)

	e := echo.New()
	e.Use(m.CollectHTTPMetrics())
	e.GET("/cart/:userId", func(c echo.Context) error { return echo.NewHTTPError(http.StatusNotFound, "cart not found") })
	e.POST("/cart/store", okHandler)

	for _, r := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/cart/a", nil),
		httptest.NewRequest(http.MethodGet, "/cart/b", nil),
		httptest.NewRequest(http.MethodPost, "/cart/store", nil),
	} {
		e.ServeHTTP(httptest.NewRecorder(), r)
	}
	require.Equal(t, 2.0, testutil.ToFloat64(total.WithLabelValues("GET", "/cart/:userId", "404")))
	require.Equal(t, 1.0, testutil.ToFloat64(total.WithLabelValues("POST", "/cart/store", "200")))
}

func TestLoggingMiddleware_LogsAtDebug(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	h := middleware.NewLoggingMiddleware(logger).RequestLogging()(okHandler)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(helpers.ClientIDHeader, "client-1")
	require.NoError(t, h(e.NewContext(req, httptest.NewRecorder())))
	require.Len(t, hook.Entries, 1)
	require.Equal(t, "client-1", hook.LastEntry().Data["client_id"])

	hook.Reset()
	logger.SetLevel(logrus.InfoLevel)
	require.NoError(t, h(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())))
	require.Empty(t, hook.Entries)
}
