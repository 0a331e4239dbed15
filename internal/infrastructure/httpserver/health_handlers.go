package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/avatarctic/checkout-system/internal/core/ports"
)

// healthCheck probes every dependency. Any failing probe degrades the service
// and turns the response into a 503.
func (s *Server) healthCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	deps := make(map[string]string)
	details := make(map[string]map[string]any)
	overall := "healthy"
	for _, hc := range s.healthCheckers {
		if hc == nil {
			continue
		}
		if err := hc.Check(ctx); err != nil {
			deps[hc.Name()] = "unhealthy"
			overall = "degraded"
			if s.logger != nil {
				s.logger.WithError(err).WithField("dependency", hc.Name()).Warn("health check failed")
			}
		} else {
			deps[hc.Name()] = "healthy"
		}
		if d, ok := hc.(ports.HealthDetailer); ok {
			details[hc.Name()] = d.Details()
		}
	}
	health := map[string]interface{}{
		"status":       overall,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
		"version":      "1.0.0",
		"service":      "checkout-system",
		"dependencies": deps,
	}
	if len(details) > 0 {
		health["details"] = details
	}
	code := http.StatusOK
	if overall != "healthy" {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, health)
}
