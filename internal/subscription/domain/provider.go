package domain

import (
	"context"
	"time"
)

// OfferingsParams filters an offerings fetch.
type OfferingsParams struct {
	// Currency optionally requests prices in a specific currency code.
	Currency string
}

// OfferingsResult is the normalized catalog returned by a billing provider.
type OfferingsResult struct {
	All       map[string]Offering
	CurrentID string
}

// EntitlementInfo describes one active entitlement reported by the provider.
type EntitlementInfo struct {
	Identifier        string
	ProductIdentifier string
	ExpirationDate    *time.Time
	WillRenew         bool
}

// CustomerInfo is the provider's view of the current customer.
type CustomerInfo struct {
	ActiveSubscriptions []string
	ActiveEntitlements  map[string]EntitlementInfo
	ManagementURL       string
}

// PurchaseParams identifies the package to buy.
type PurchaseParams struct {
	PackageID     string
	OfferingID    string
	CustomerEmail string
}

// PurchaseResult carries the refreshed customer info after a purchase.
type PurchaseResult struct {
	CustomerInfo CustomerInfo
}

// BillingProvider adapts an external commerce SDK to the normalized catalog
// and customer shapes the subscription service consumes. Implementations own
// authentication, receipt validation and timeouts; the service never
// references a concrete SDK.
type BillingProvider interface {
	// GetOfferings fetches the full catalog of offerings.
	GetOfferings(ctx context.Context, params OfferingsParams) (OfferingsResult, error)

	// GetCustomerInfo fetches the current customer's subscriptions and
	// active entitlements.
	GetCustomerInfo(ctx context.Context) (CustomerInfo, error)

	// Purchase buys a package. It must fail when the package cannot be
	// located by the provider.
	Purchase(ctx context.Context, params PurchaseParams) (PurchaseResult, error)
}

// UserSwitcher is implemented by providers that track the active user
// identity. The service calls SetUser on login and logout when available.
type UserSwitcher interface {
	SetUser(ctx context.Context, userID, email string) error
}
