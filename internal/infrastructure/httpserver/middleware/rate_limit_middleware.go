package middleware

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/checkout-system/internal/core/ports"
	"github.com/avatarctic/checkout-system/internal/infrastructure/httpserver/helpers"
)

type RateLimitMiddleware struct {
	rateLimiter ports.RateLimiterService
	logger      *logrus.Logger
}

func NewRateLimitMiddleware(rateLimiter ports.RateLimiterService, logger *logrus.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{rateLimiter: rateLimiter, logger: logger}
}

// Handler limits requests per client key (see helpers.GetClientKey). Limiter
// errors let the request through.
func (r *RateLimitMiddleware) Handler() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if r.rateLimiter == nil {
			return next
		}
		return func(c echo.Context) error {
			clientKey := helpers.GetClientKey(c)

			allowed, remaining, limit, reset, rlErr := r.rateLimiter.Allow(c.Request().Context(), clientKey)
			if rlErr != nil {
				if r.logger != nil {
					r.logger.WithError(rlErr).WithField("client_id", clientKey).Warn("rate limiter error; allowing request (fail-open)")
				}
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

			if !allowed {
				if r.logger != nil {
					r.logger.WithFields(logrus.Fields{"client_id": clientKey, "limit": limit}).Info("rate limit exceeded")
				}
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
