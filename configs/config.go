package configs

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

type Config struct {
	Server    ServerConfig
	Cart      CartConfig
	Checkout  CheckoutConfig
	Redis     RedisConfig
	Log       LogConfig
	RateLimit RateLimitConfig
	Notify    NotifyConfig
}

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

type CartConfig struct {
	CacheBackend    string // memory or redis
	CacheTTL        time.Duration
	CacheKeyPrefix  string
	CacheMaxEntries int
	StoreShards     int
}

type CheckoutConfig struct {
	MaxConcurrent   int
	ProcessingDelay time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	// Pool and timeout settings
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolTimeout  time.Duration
	IdleTimeout  time.Duration
	KeyPrefix    string
}

type LogConfig struct {
	Level  string
	Format string // json or text
}

type RateLimitConfig struct {
	Enabled           bool
	Backend           string // memory or redis
	RequestsPerMinute int
	BurstMultiplier   float64
	Window            time.Duration
	KeyPrefix         string
}

type NotifyConfig struct {
	SendGridAPIKey string
	FromEmail      string
	FromName       string
	ToEmail        string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnv("SERVER_PORT", "8080"),
			ReadTimeout:    getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:   getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:    getDurationEnv("SERVER_IDLE_TIMEOUT", 120*time.Second),
			TLSCertFile:    getEnv("TLS_CERT_FILE", ""),
			TLSKeyFile:     getEnv("TLS_KEY_FILE", ""),
			AllowedOrigins: getListEnv("ALLOWED_ORIGINS", []string{"*"}),
		},
		Cart: CartConfig{
			CacheBackend:    strings.ToLower(getEnv("CART_CACHE_BACKEND", BackendMemory)),
			CacheTTL:        getDurationEnv("CART_CACHE_TTL", 30*time.Minute),
			CacheKeyPrefix:  getEnv("CART_CACHE_KEY_PREFIX", "basket_"),
			CacheMaxEntries: getIntEnv("CART_CACHE_MAX_ENTRIES", 10000),
			StoreShards:     getIntEnv("CART_STORE_SHARDS", 32),
		},
		Checkout: CheckoutConfig{
			MaxConcurrent:   getIntEnv("CHECKOUT_MAX_CONCURRENT", 3),
			ProcessingDelay: getDurationEnv("CHECKOUT_PROCESSING_DELAY", 3000*time.Millisecond),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnv("REDIS_PORT", "6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getIntEnv("REDIS_DB", 0),
			PoolSize:     getIntEnv("REDIS_POOL_SIZE", 10),
			MinIdleConns: getIntEnv("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDurationEnv("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDurationEnv("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDurationEnv("REDIS_WRITE_TIMEOUT", 3*time.Second),
			PoolTimeout:  getDurationEnv("REDIS_POOL_TIMEOUT", 4*time.Second),
			IdleTimeout:  getDurationEnv("REDIS_IDLE_TIMEOUT", 5*time.Minute),
			KeyPrefix:    getEnv("REDIS_KEY_PREFIX", "checkout"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		RateLimit: RateLimitConfig{
			Enabled:           getBoolEnv("RATE_LIMIT_ENABLED", true),
			Backend:           strings.ToLower(getEnv("RATE_LIMIT_BACKEND", BackendMemory)),
			RequestsPerMinute: getIntEnv("RATE_LIMIT_RPM", 120),
			BurstMultiplier:   getFloatEnv("RATE_LIMIT_BURST", 2.0),
			Window:            getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),
			KeyPrefix:         getEnv("RATE_LIMIT_KEY_PREFIX", "ratelimit:client"),
		},
		Notify: NotifyConfig{
			SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
			FromEmail:      getEnv("NOTIFY_FROM_EMAIL", "noreply@example.com"),
			FromName:       getEnv("NOTIFY_FROM_NAME", "Checkout"),
			ToEmail:        getEnv("NOTIFY_TO_EMAIL", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Checkout.MaxConcurrent <= 0 {
		errs = append(errs, errors.New("CHECKOUT_MAX_CONCURRENT must be > 0"))
	}
	if c.Checkout.ProcessingDelay < 0 {
		errs = append(errs, errors.New("CHECKOUT_PROCESSING_DELAY must be >= 0"))
	}
	if c.Cart.CacheTTL <= 0 {
		errs = append(errs, errors.New("CART_CACHE_TTL must be > 0"))
	}
	if c.Cart.StoreShards <= 0 {
		errs = append(errs, errors.New("CART_STORE_SHARDS must be > 0"))
	}
	if c.Cart.CacheMaxEntries <= 0 {
		errs = append(errs, errors.New("CART_CACHE_MAX_ENTRIES must be > 0"))
	}
	if !validBackend(c.Cart.CacheBackend) {
		errs = append(errs, fmt.Errorf("CART_CACHE_BACKEND must be %q or %q, got %q", BackendMemory, BackendRedis, c.Cart.CacheBackend))
	}
	if c.RateLimit.Enabled && !validBackend(c.RateLimit.Backend) {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_BACKEND must be %q or %q, got %q", BackendMemory, BackendRedis, c.RateLimit.Backend))
	}
	return errors.Join(errs...)
}

// UsesRedis reports whether any component needs a Redis connection.
func (c *Config) UsesRedis() bool {
	return c.Cart.CacheBackend == BackendRedis || (c.RateLimit.Enabled && c.RateLimit.Backend == BackendRedis)
}

func validBackend(b string) bool {
	return b == BackendMemory || b == BackendRedis
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
