package httpserver

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/checkout-system/internal/core/ports"
	customMiddleware "github.com/avatarctic/checkout-system/internal/infrastructure/httpserver/middleware"
)

type ServerConfig struct {
	Host           string
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	TLSCertFile    string
	TLSKeyFile     string
	AllowedOrigins []string
}

type ServerDeps struct {
	CartService     ports.CartService
	CheckoutService ports.CheckoutService
	// RateLimiterService may be nil, in which case requests are not limited.
	RateLimiterService ports.RateLimiterService
	HealthCheckers     []ports.HealthChecker
	// Registerer and Gatherer default to the prometheus globals.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

type Server struct {
	echo           *echo.Echo
	config         *ServerConfig
	logger         *logrus.Logger
	cartService    ports.CartService
	checkoutSvc    ports.CheckoutService
	middleware     *customMiddleware.MiddlewareCollection
	healthCheckers []ports.HealthChecker
	gatherer       prometheus.Gatherer
}

func NewServer(serverConfig *ServerConfig, logger *logrus.Logger, deps ServerDeps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Validator = NewRequestValidator()

	reg := deps.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	httpMetrics := NewHTTPMetrics(reg)

	server := &Server{
		echo:           e,
		config:         serverConfig,
		logger:         logger,
		cartService:    deps.CartService,
		checkoutSvc:    deps.CheckoutService,
		healthCheckers: deps.HealthCheckers,
		gatherer:       gatherer,
		middleware: customMiddleware.NewMiddlewareCollection(
			deps.RateLimiterService,
			logger,
			httpMetrics.RequestsTotal,
			httpMetrics.RequestDuration,
		),
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}
