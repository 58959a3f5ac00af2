package domain

import "context"

// SnapshotRepository persists the last-known subscription snapshot per user.
// Saves happen best-effort after a successful customer-info reload; the
// stored copy lets callers show entitlement state before the first reload
// of a session completes.
type SnapshotRepository interface {
	Save(ctx context.Context, userID string, snapshot *CurrentSubscription) error
	FindByUserID(ctx context.Context, userID string) (*CurrentSubscription, error)
}
