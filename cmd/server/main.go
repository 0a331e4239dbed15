package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	config "github.com/avatarctic/checkout-system/configs"
	"github.com/avatarctic/checkout-system/internal/application/services"
	"github.com/avatarctic/checkout-system/internal/core/ports"
	"github.com/avatarctic/checkout-system/internal/infrastructure/admission"
	"github.com/avatarctic/checkout-system/internal/infrastructure/cache"
	"github.com/avatarctic/checkout-system/internal/infrastructure/email"
	"github.com/avatarctic/checkout-system/internal/infrastructure/health"
	"github.com/avatarctic/checkout-system/internal/infrastructure/httpserver"
	"github.com/avatarctic/checkout-system/internal/infrastructure/metrics"
	"github.com/avatarctic/checkout-system/internal/infrastructure/orders"
	"github.com/avatarctic/checkout-system/internal/infrastructure/ratelimit"
	"github.com/avatarctic/checkout-system/internal/infrastructure/redis"
	"github.com/avatarctic/checkout-system/internal/infrastructure/repositories"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}

	logger := newLogger(&cfg.Log)
	logger.Info("Starting checkout system...")

	// background janitors stop with this context
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	var redisClient *goredis.Client
	if cfg.UsesRedis() {
		redisClient, err = redis.NewRedisClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal("Failed to connect to Redis: ", err)
		}
		defer redisClient.Close()
		logger.Info("Connected to Redis successfully")
	}

	cartMetrics := metrics.NewCartMetrics(prometheus.DefaultRegisterer)
	healthCheckers := []ports.HealthChecker{}

	// Cart store, decorated with the cache-aside layer
	baseCartRepo := repositories.NewCartRepository(cfg.Cart.StoreShards, logger)
	var cartCache ports.Cache
	switch cfg.Cart.CacheBackend {
	case config.BackendRedis:
		cartCache = redis.NewRedisCache(redisClient, cfg.Redis.KeyPrefix, cfg.Cart.CacheTTL)
	default:
		memCache, err := cache.NewMemoryCache(cfg.Cart.CacheMaxEntries, cache.WithDefaultTTL(cfg.Cart.CacheTTL))
		if err != nil {
			logger.Fatal("Failed to create cart cache: ", err)
		}
		memCache.StartJanitor(ctx)
		healthCheckers = append(healthCheckers, health.NewMemoryCacheHealthChecker(memCache))
		cartCache = memCache
	}
	cartRepo := repositories.NewCachingCartRepository(baseCartRepo, cartCache, cfg.Cart.CacheTTL, logger,
		repositories.WithCartCacheKeyPrefix(cfg.Cart.CacheKeyPrefix),
		repositories.WithCacheObserver(cartMetrics),
	)

	// Checkout pipeline
	slots := admission.NewSlotPool(cfg.Checkout.MaxConcurrent)
	processor := orders.NewSimulatedProcessor(cfg.Checkout.ProcessingDelay, logger)
	notifier := newNotifier(&cfg.Notify, logger)

	cartService := services.NewCartService(cartRepo, logger)
	checkoutService := services.NewCheckoutService(cartRepo, slots, processor, logger,
		services.WithCheckoutNotifier(notifier),
		services.WithCheckoutObserver(cartMetrics),
	)

	var rateLimiter ports.RateLimiterService
	if cfg.RateLimit.Enabled {
		rateLimiter = newRateLimiter(ctx, &cfg.RateLimit, redisClient, logger)
	}

	healthCheckers = append(healthCheckers, health.NewCheckoutHealthChecker(slots))
	if redisClient != nil {
		healthCheckers = append(healthCheckers, health.NewRedisHealthChecker(redisClient))
	}

	serverConfig := &httpserver.ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		TLSCertFile:    cfg.Server.TLSCertFile,
		TLSKeyFile:     cfg.Server.TLSKeyFile,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}

	server := httpserver.NewServer(serverConfig, logger, httpserver.ServerDeps{
		CartService:        cartService,
		CheckoutService:    checkoutService,
		RateLimiterService: rateLimiter,
		HealthCheckers:     healthCheckers,
	})

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server: ", err)
		}
	}()

	logger.WithFields(logrus.Fields{
		"checkout_capacity": slots.Capacity(),
		"cache_backend":     cfg.Cart.CacheBackend,
		"processing_delay":  processor.Delay().String(),
	}).Infof("Server started on %s:%s", cfg.Server.Host, cfg.Server.Port)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	stop()

	// in-flight checkouts hold the processor for CHECKOUT_PROCESSING_DELAY
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Checkout.ProcessingDelay+10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown: ", err)
	}

	logger.Info("Server exited")
}

func newLogger(cfg *config.LogConfig) *logrus.Logger {
	logger := logrus.New()
	if cfg.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(level)
	}
	return logger
}

func newNotifier(cfg *config.NotifyConfig, logger *logrus.Logger) ports.CheckoutNotifier {
	notifyConfig := &email.NotifierConfig{
		SendGridAPIKey: cfg.SendGridAPIKey,
		FromEmail:      cfg.FromEmail,
		FromName:       cfg.FromName,
		ToEmail:        cfg.ToEmail,
	}
	if !notifyConfig.Enabled() {
		return email.NewLogNotifier(logger)
	}
	notifier, err := email.NewSendGridNotifier(notifyConfig, logger)
	if err != nil {
		logger.WithError(err).Warn("SendGrid notifier unavailable, logging confirmations instead")
		return email.NewLogNotifier(logger)
	}
	return notifier
}

func newRateLimiter(ctx context.Context, cfg *config.RateLimitConfig, redisClient *goredis.Client, logger *logrus.Logger) ports.RateLimiterService {
	if cfg.Backend == config.BackendRedis {
		return services.NewRateLimiterService(repositories.NewRateLimitRedisRepository(redisClient), &services.RateLimiterConfig{
			RequestsPerMinute: cfg.RequestsPerMinute,
			BurstMultiplier:   cfg.BurstMultiplier,
			Window:            cfg.Window,
			KeyPrefix:         cfg.KeyPrefix,
		}, logger)
	}
	burst := int(float64(cfg.RequestsPerMinute) * cfg.BurstMultiplier)
	limiter := ratelimit.NewTokenBucketLimiter(cfg.RequestsPerMinute, burst)
	limiter.StartJanitor(ctx)
	return limiter
}
