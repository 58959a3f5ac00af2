package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnvVars clears all service-related environment variables.
func clearEnvVars() {
	envVars := []string{
		"APP_ENV", "LOG_LEVEL", "SUBSCRIPTIONS_USER_ID", "SUBSCRIPTIONS_USER_EMAIL",
		"DATABASE_URL", "SQLITE_PATH",
		"REDIS_URL", "OFFERINGS_CACHE_TTL",
		"RABBITMQ_URL",
		"BILLING_PROVIDER", "CATALOG_PATH",
		"STRIPE_API_KEY", "STRIPE_PRODUCT_ID", "PORTAL_RETURN_URL",
		"CURRENCY", "FREE_TIER_PACKAGE_ID", "FREE_TIER_NAME",
		"BREAKER_MAX_REQUESTS", "BREAKER_INTERVAL", "BREAKER_TIMEOUT",
		"BREAKER_FAILURE_THRESHOLD",
	}
	for _, v := range envVars {
		os.Unsetenv(v)
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	clearEnvVars()
	defer clearEnvVars()

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "", cfg.DatabaseURL)
	assert.Equal(t, "subscriptions.db", cfg.SQLitePath)
	assert.Equal(t, "", cfg.RedisURL)
	assert.Equal(t, 24*time.Hour, cfg.OfferingsCacheTTL)
	assert.Equal(t, "static", cfg.BillingProvider)
	assert.Equal(t, "catalog.json", cfg.CatalogPath)
	assert.Equal(t, "free", cfg.FreeTierPackageID)
	assert.Equal(t, "Free", cfg.FreeTierName)
	assert.Equal(t, 3, cfg.BreakerMaxRequests)
	assert.Equal(t, 10*time.Second, cfg.BreakerInterval)
	assert.Equal(t, 30*time.Second, cfg.BreakerTimeout)
	assert.Equal(t, 5, cfg.BreakerFailureThreshold)
}

func TestLoad_WithCustomEnvVars(t *testing.T) {
	clearEnvVars()
	defer clearEnvVars()

	os.Setenv("APP_ENV", "production")
	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("BILLING_PROVIDER", "stripe")
	os.Setenv("STRIPE_API_KEY", "sk_test_123")
	os.Setenv("OFFERINGS_CACHE_TTL", "1h")
	os.Setenv("BREAKER_FAILURE_THRESHOLD", "10")
	os.Setenv("CURRENCY", "EUR")

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "production", cfg.AppEnv)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "stripe", cfg.BillingProvider)
	assert.Equal(t, "sk_test_123", cfg.StripeAPIKey)
	assert.Equal(t, time.Hour, cfg.OfferingsCacheTTL)
	assert.Equal(t, 10, cfg.BreakerFailureThreshold)
	assert.Equal(t, "EUR", cfg.Currency)
	assert.True(t, cfg.IsProduction())
	assert.False(t, cfg.IsDevelopment())
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	clearEnvVars()
	defer clearEnvVars()

	os.Setenv("OFFERINGS_CACHE_TTL", "not-a-duration")
	os.Setenv("BREAKER_MAX_REQUESTS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 24*time.Hour, cfg.OfferingsCacheTTL)
	assert.Equal(t, 3, cfg.BreakerMaxRequests)
}
