package domain

import "time"

// CurrentSubscription is a snapshot of the user's entitlement state, derived
// from provider customer info and the currently cached catalog. It is
// replaced wholesale on every customer-info reload and cleared independently
// of the catalog when the active user identity changes.
type CurrentSubscription struct {
	Active        bool
	ProductID     string
	PackageID     string
	Entitlements  []string
	Period        Period
	ExpiresAt     *time.Time
	WillRenew     bool
	ManagementURL string
}

// Ref returns the selector used for upgrade resolution, or nil when there is
// no snapshot.
func (s *CurrentSubscription) Ref() *SubscriptionRef {
	if s == nil {
		return nil
	}
	return &SubscriptionRef{PackageID: s.PackageID, ProductID: s.ProductID}
}
