// Package persistence stores subscription snapshots so entitlement checks
// survive restarts and provider outages.
package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/johnqh/subscription-lib/internal/subscription/domain"
)

// PostgresSnapshotRepository implements SnapshotRepository with PostgreSQL.
type PostgresSnapshotRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresSnapshotRepository creates a new repository.
func NewPostgresSnapshotRepository(pool *pgxpool.Pool) *PostgresSnapshotRepository {
	return &PostgresSnapshotRepository{pool: pool}
}

// Init creates the snapshot table if it does not exist.
func (r *PostgresSnapshotRepository) Init(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS subscription_snapshots (
			user_id TEXT PRIMARY KEY,
			active BOOLEAN NOT NULL,
			product_id TEXT NOT NULL DEFAULT '',
			package_id TEXT NOT NULL DEFAULT '',
			entitlements TEXT[] NOT NULL DEFAULT '{}',
			period TEXT NOT NULL DEFAULT '',
			expires_at TIMESTAMPTZ,
			will_renew BOOLEAN NOT NULL DEFAULT FALSE,
			management_url TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	_, err := r.pool.Exec(ctx, query)
	return err
}

// Save upserts the user's snapshot. A nil snapshot clears the stored row,
// matching a user with no active subscription.
func (r *PostgresSnapshotRepository) Save(ctx context.Context, userID string, snapshot *domain.CurrentSubscription) error {
	if snapshot == nil {
		_, err := r.pool.Exec(ctx, `DELETE FROM subscription_snapshots WHERE user_id = $1`, userID)
		return err
	}

	query := `
		INSERT INTO subscription_snapshots (
			user_id, active, product_id, package_id, entitlements,
			period, expires_at, will_renew, management_url, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			active = EXCLUDED.active,
			product_id = EXCLUDED.product_id,
			package_id = EXCLUDED.package_id,
			entitlements = EXCLUDED.entitlements,
			period = EXCLUDED.period,
			expires_at = EXCLUDED.expires_at,
			will_renew = EXCLUDED.will_renew,
			management_url = EXCLUDED.management_url,
			updated_at = NOW()
	`
	_, err := r.pool.Exec(ctx, query,
		userID,
		snapshot.Active,
		snapshot.ProductID,
		snapshot.PackageID,
		snapshot.Entitlements,
		string(snapshot.Period),
		snapshot.ExpiresAt,
		snapshot.WillRenew,
		snapshot.ManagementURL,
	)
	return err
}

// FindByUserID returns the stored snapshot, or nil when none exists.
func (r *PostgresSnapshotRepository) FindByUserID(ctx context.Context, userID string) (*domain.CurrentSubscription, error) {
	query := `
		SELECT active, product_id, package_id, entitlements,
		       period, expires_at, will_renew, management_url
		FROM subscription_snapshots
		WHERE user_id = $1
	`

	var (
		active        bool
		productID     string
		packageID     string
		entitlements  []string
		period        string
		expiresAt     *time.Time
		willRenew     bool
		managementURL string
	)

	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&active,
		&productID,
		&packageID,
		&entitlements,
		&period,
		&expiresAt,
		&willRenew,
		&managementURL,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &domain.CurrentSubscription{
		Active:        active,
		ProductID:     productID,
		PackageID:     packageID,
		Entitlements:  entitlements,
		Period:        domain.Period(period),
		ExpiresAt:     expiresAt,
		WillRenew:     willRenew,
		ManagementURL: managementURL,
	}, nil
}

var _ domain.SnapshotRepository = (*PostgresSnapshotRepository)(nil)
