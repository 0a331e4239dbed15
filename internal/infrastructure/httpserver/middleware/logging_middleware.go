package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/checkout-system/internal/infrastructure/httpserver/helpers"
)

type LoggingMiddleware struct {
	logger *logrus.Logger
}

func NewLoggingMiddleware(logger *logrus.Logger) *LoggingMiddleware {
	return &LoggingMiddleware{logger: logger}
}

func (m *LoggingMiddleware) RequestLogging() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m.logger != nil && m.logger.IsLevelEnabled(logrus.DebugLevel) {
				m.logger.WithFields(logrus.Fields{
					"method":     c.Request().Method,
					"path":       c.Path(),
					"client_id":  helpers.GetClientKey(c),
					"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
				}).Debug("incoming request")
			}
			return next(c)
		}
	}
}
