package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/johnqh/subscription-lib/internal/subscription/domain"
)

// SQLiteSnapshotRepository implements SnapshotRepository with SQLite.
// Entitlements are stored as a JSON array, timestamps as RFC3339 strings.
type SQLiteSnapshotRepository struct {
	dbConn *sql.DB
}

// NewSQLiteSnapshotRepository creates a new repository.
func NewSQLiteSnapshotRepository(dbConn *sql.DB) *SQLiteSnapshotRepository {
	return &SQLiteSnapshotRepository{dbConn: dbConn}
}

// Init creates the snapshot table if it does not exist.
func (r *SQLiteSnapshotRepository) Init(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS subscription_snapshots (
			user_id TEXT PRIMARY KEY,
			active INTEGER NOT NULL,
			product_id TEXT NOT NULL DEFAULT '',
			package_id TEXT NOT NULL DEFAULT '',
			entitlements TEXT NOT NULL DEFAULT '[]',
			period TEXT NOT NULL DEFAULT '',
			expires_at TEXT,
			will_renew INTEGER NOT NULL DEFAULT 0,
			management_url TEXT NOT NULL DEFAULT '',
			updated_at TEXT NOT NULL
		)
	`
	_, err := r.dbConn.ExecContext(ctx, query)
	return err
}

// Save upserts the user's snapshot. A nil snapshot clears the stored row.
func (r *SQLiteSnapshotRepository) Save(ctx context.Context, userID string, snapshot *domain.CurrentSubscription) error {
	if snapshot == nil {
		_, err := r.dbConn.ExecContext(ctx, `DELETE FROM subscription_snapshots WHERE user_id = ?`, userID)
		return err
	}

	entitlements, err := json.Marshal(snapshot.Entitlements)
	if err != nil {
		return fmt.Errorf("encode entitlements: %w", err)
	}

	var expiresAt sql.NullString
	if snapshot.ExpiresAt != nil {
		expiresAt = sql.NullString{String: snapshot.ExpiresAt.UTC().Format(time.RFC3339), Valid: true}
	}

	query := `
		INSERT INTO subscription_snapshots (
			user_id, active, product_id, package_id, entitlements,
			period, expires_at, will_renew, management_url, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			active = excluded.active,
			product_id = excluded.product_id,
			package_id = excluded.package_id,
			entitlements = excluded.entitlements,
			period = excluded.period,
			expires_at = excluded.expires_at,
			will_renew = excluded.will_renew,
			management_url = excluded.management_url,
			updated_at = excluded.updated_at
	`
	_, err = r.dbConn.ExecContext(ctx, query,
		userID,
		snapshot.Active,
		snapshot.ProductID,
		snapshot.PackageID,
		string(entitlements),
		string(snapshot.Period),
		expiresAt,
		snapshot.WillRenew,
		snapshot.ManagementURL,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// FindByUserID returns the stored snapshot, or nil when none exists.
func (r *SQLiteSnapshotRepository) FindByUserID(ctx context.Context, userID string) (*domain.CurrentSubscription, error) {
	query := `
		SELECT active, product_id, package_id, entitlements,
		       period, expires_at, will_renew, management_url
		FROM subscription_snapshots
		WHERE user_id = ?
	`

	var (
		active           bool
		productID        string
		packageID        string
		entitlementsJSON string
		period           string
		expiresAtStr     sql.NullString
		willRenew        bool
		managementURL    string
	)

	err := r.dbConn.QueryRowContext(ctx, query, userID).Scan(
		&active,
		&productID,
		&packageID,
		&entitlementsJSON,
		&period,
		&expiresAtStr,
		&willRenew,
		&managementURL,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	var entitlements []string
	if err := json.Unmarshal([]byte(entitlementsJSON), &entitlements); err != nil {
		return nil, fmt.Errorf("decode entitlements: %w", err)
	}

	var expiresAt *time.Time
	if expiresAtStr.Valid {
		t, perr := time.Parse(time.RFC3339, expiresAtStr.String)
		if perr == nil {
			expiresAt = &t
		}
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

var _ domain.SnapshotRepository = (*SQLiteSnapshotRepository)(nil)
