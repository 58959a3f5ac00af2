package domain

import (
	shared "github.com/johnqh/subscription-lib/internal/shared/domain"
)

// Routing keys for subscription lifecycle events.
const (
	EventSubscriptionPurchased = "subscription.purchased"
	EventUserChanged           = "subscription.user_changed"
	EventCatalogReloaded       = "catalog.reloaded"
)

// SubscriptionPurchased is published after a successful purchase.
type SubscriptionPurchased struct {
	shared.BaseEvent
	PackageID  string `json:"package_id"`
	OfferingID string `json:"offering_id"`
	ProductID  string `json:"product_id"`
}

// NewSubscriptionPurchased creates a purchase event.
func NewSubscriptionPurchased(userID, packageID, offeringID, productID string) SubscriptionPurchased {
	return SubscriptionPurchased{
		BaseEvent:  shared.NewBaseEvent(userID, EventSubscriptionPurchased),
		PackageID:  packageID,
		OfferingID: offeringID,
		ProductID:  productID,
	}
}

// UserChanged is published when the active user identity changes. The
// subscription snapshot has already been cleared when listeners run.
type UserChanged struct {
	shared.BaseEvent
	UserID string `json:"user_id"`
}

// NewUserChanged creates a user-changed event.
func NewUserChanged(userID string) UserChanged {
	return UserChanged{
		BaseEvent: shared.NewBaseEvent(userID, EventUserChanged),
		UserID:    userID,
	}
}

// CatalogReloaded is published after an offerings reload completes.
type CatalogReloaded struct {
	shared.BaseEvent
	OfferingCount int `json:"offering_count"`
}

// NewCatalogReloaded creates a catalog-reloaded event.
func NewCatalogReloaded(offeringCount int) CatalogReloaded {
	return CatalogReloaded{
		BaseEvent:     shared.NewBaseEvent("catalog", EventCatalogReloaded),
		OfferingCount: offeringCount,
	}
}
