// Package app wires configuration, storage, brokers, and billing providers
// into a running subscription service.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	_ "modernc.org/sqlite"

	"github.com/johnqh/subscription-lib/internal/shared/infrastructure/eventbus"
	"github.com/johnqh/subscription-lib/internal/subscription/application"
	"github.com/johnqh/subscription-lib/internal/subscription/domain"
	"github.com/johnqh/subscription-lib/internal/subscription/infrastructure/persistence"
	"github.com/johnqh/subscription-lib/internal/subscription/infrastructure/providers"
	staticProvider "github.com/johnqh/subscription-lib/internal/subscription/infrastructure/providers/static"
	stripeProvider "github.com/johnqh/subscription-lib/internal/subscription/infrastructure/providers/stripe"
	"github.com/johnqh/subscription-lib/pkg/config"
	"github.com/johnqh/subscription-lib/pkg/observability"
)

// Container holds all application dependencies.
type Container struct {
	Config *config.Config
	Logger *slog.Logger

	// Database
	DB       *pgxpool.Pool
	SQLiteDB *sql.DB

	// Redis
	RedisClient *redis.Client

	// Repositories
	SnapshotRepo domain.SnapshotRepository

	// Publishers and bus
	EventPublisher eventbus.Publisher
	EventBus       *eventbus.InProcessBus

	// Metrics
	Metrics observability.Metrics

	// Provider chain and service
	Provider domain.BillingProvider
	Service  *application.Service
}

// NewContainer creates and wires all dependencies.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	c := &Container{
		Config:  cfg,
		Logger:  logger,
		Metrics: observability.NewInMemoryMetrics(),
	}

	if err := c.initStorage(ctx); err != nil {
		return nil, err
	}
	c.initRedis(ctx)
	c.initPublisher()

	provider, err := c.buildProvider()
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Provider = provider

	c.EventBus = eventbus.NewInProcessBus(logger)
	c.Service = application.NewService(provider, application.Config{
		FreeTierPackageID: cfg.FreeTierPackageID,
		FreeTierName:      cfg.FreeTierName,
		Currency:          cfg.Currency,
	}, application.Deps{
		Snapshots: c.SnapshotRepo,
		Bus:       c.EventBus,
		Publisher: c.EventPublisher,
		Logger:    logger,
		Metrics:   c.Metrics,
	})

	return c, nil
}

// initStorage connects the snapshot repository: PostgreSQL when DATABASE_URL
// is set, an embedded SQLite file otherwise.
func (c *Container) initStorage(ctx context.Context) error {
	cfg := c.Config

	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return fmt.Errorf("failed to ping database: %w", err)
		}

		repo := persistence.NewPostgresSnapshotRepository(pool)
		if err := repo.Init(ctx); err != nil {
			pool.Close()
			return fmt.Errorf("failed to initialize snapshot table: %w", err)
		}

		c.DB = pool
		c.SnapshotRepo = repo
		c.Logger.Info("connected to database", "driver", "postgres")
		return nil
	}

	dbConn, err := sql.Open("sqlite", cfg.SQLitePath)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}

	repo := persistence.NewSQLiteSnapshotRepository(dbConn)
	if err := repo.Init(ctx); err != nil {
		dbConn.Close()
		return fmt.Errorf("failed to initialize snapshot table: %w", err)
	}

	c.SQLiteDB = dbConn
	c.SnapshotRepo = repo
	c.Logger.Info("connected to database", "driver", "sqlite", "path", cfg.SQLitePath)
	return nil
}

// initRedis connects the offerings cache. Redis is optional; the cache
// decorator is simply skipped when it is absent.
func (c *Container) initRedis(ctx context.Context) {
	cfg := c.Config
	if cfg.RedisURL == "" {
		return
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		c.Logger.Warn("invalid Redis URL, offerings cache disabled", "error", err)
		return
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		c.Logger.Warn("Redis not available, offerings cache disabled", "error", err)
		_ = client.Close()
		return
	}

	c.RedisClient = client
	c.Logger.Info("connected to Redis")
}

// initPublisher connects RabbitMQ, falling back to a noop publisher when no
// broker is reachable.
func (c *Container) initPublisher() {
	cfg := c.Config
	if cfg.RabbitMQURL == "" {
		c.EventPublisher = eventbus.NewNoopPublisher(c.Logger)
		return
	}

	publisher, err := eventbus.NewRabbitMQPublisher(cfg.RabbitMQURL, c.Logger)
	if err != nil {
		c.Logger.Warn("RabbitMQ not available, using noop publisher", "error", err)
		c.EventPublisher = eventbus.NewNoopPublisher(c.Logger)
		return
	}
	c.EventPublisher = publisher
}

// buildProvider constructs the billing provider and wraps it with the cache
// and circuit-breaker decorators.
func (c *Container) buildProvider() (domain.BillingProvider, error) {
	cfg := c.Config

	var provider domain.BillingProvider
	switch cfg.BillingProvider {
	case "stripe":
		p, err := stripeProvider.NewProvider(stripeProvider.Config{
			APIKey:          cfg.StripeAPIKey,
			ProductID:       cfg.StripeProductID,
			PortalReturnURL: cfg.PortalReturnURL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create stripe provider: %w", err)
		}
		provider = p
	case "static":
		catalog, err := staticProvider.LoadCatalog(cfg.CatalogPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load catalog: %w", err)
		}
		provider = staticProvider.NewProvider(catalog)
	default:
		return nil, fmt.Errorf("unknown billing provider %q", cfg.BillingProvider)
	}

	if c.RedisClient != nil {
		provider = providers.NewCachingProvider(provider, c.RedisClient, cfg.OfferingsCacheTTL, c.Logger)
	}

	provider = providers.NewResilientProvider(provider, providers.BreakerConfig{
		MaxRequests:      uint32(cfg.BreakerMaxRequests),
		Interval:         cfg.BreakerInterval,
		Timeout:          cfg.BreakerTimeout,
		FailureThreshold: uint32(cfg.BreakerFailureThreshold),
	}, c.Logger)

	return provider, nil
}

// Close releases all held connections.
func (c *Container) Close() {
	if c.EventPublisher != nil {
		if err := c.EventPublisher.Close(); err != nil {
			c.Logger.Warn("error closing event publisher", "error", err)
		}
	}

	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			c.Logger.Warn("error closing Redis connection", "error", err)
		}
	}

	if c.SQLiteDB != nil {
		if err := c.SQLiteDB.Close(); err != nil {
			c.Logger.Warn("error closing sqlite database", "error", err)
		}
	}

	if c.DB != nil {
		c.DB.Close()
	}
}
