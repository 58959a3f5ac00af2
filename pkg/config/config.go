package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	// Application
	AppEnv   string
	LogLevel string
	UserID   string
	Email    string

	// Database
	DatabaseURL string
	SQLitePath  string

	// Redis
	RedisURL          string
	OfferingsCacheTTL time.Duration

	// RabbitMQ
	RabbitMQURL string

	// Billing provider
	BillingProvider string
	CatalogPath     string
	StripeAPIKey    string
	StripeProductID string
	PortalReturnURL string

	// Catalog
	Currency          string
	FreeTierPackageID string
	FreeTierName      string

	// Circuit breaker
	BreakerMaxRequests      int
	BreakerInterval         time.Duration
	BreakerTimeout          time.Duration
	BreakerFailureThreshold int
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		UserID:   getEnv("SUBSCRIPTIONS_USER_ID", ""),
		Email:    getEnv("SUBSCRIPTIONS_USER_EMAIL", ""),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		SQLitePath:  getEnv("SQLITE_PATH", "subscriptions.db"),

		RedisURL:          getEnv("REDIS_URL", ""),
		OfferingsCacheTTL: getDurationEnv("OFFERINGS_CACHE_TTL", 24*time.Hour),

		RabbitMQURL: getEnv("RABBITMQ_URL", ""),

		BillingProvider: getEnv("BILLING_PROVIDER", "static"),
		CatalogPath:     getEnv("CATALOG_PATH", "catalog.json"),
		StripeAPIKey:    getEnv("STRIPE_API_KEY", ""),
		StripeProductID: getEnv("STRIPE_PRODUCT_ID", ""),
		PortalReturnURL: getEnv("PORTAL_RETURN_URL", ""),

		Currency:          getEnv("CURRENCY", ""),
		FreeTierPackageID: getEnv("FREE_TIER_PACKAGE_ID", "free"),
		FreeTierName:      getEnv("FREE_TIER_NAME", "Free"),

		BreakerMaxRequests:      getIntEnv("BREAKER_MAX_REQUESTS", 3),
		BreakerInterval:         getDurationEnv("BREAKER_INTERVAL", 10*time.Second),
		BreakerTimeout:          getDurationEnv("BREAKER_TIMEOUT", 30*time.Second),
		BreakerFailureThreshold: getIntEnv("BREAKER_FAILURE_THRESHOLD", 5),
	}

	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
