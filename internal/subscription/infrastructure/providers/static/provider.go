// Package static provides a fixture-backed billing provider for development
// and tests. Catalogs are loaded from a JSON file in the raw provider shape
// and normalized once at load time; purchases and user switches mutate only
// in-memory state.
package static

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/johnqh/subscription-lib/internal/subscription/domain"
)

// Catalog is a normalized fixture catalog.
type Catalog struct {
	Offerings map[string]domain.Offering
	CurrentID string
}

// Provider serves a fixed catalog and tracks purchases in memory.
type Provider struct {
	mu      sync.Mutex
	catalog Catalog
	userID  string
	email   string
	subs    []string
	active  map[string]domain.EntitlementInfo
}

// NewProvider creates a provider around the given catalog.
func NewProvider(catalog Catalog) *Provider {
	if catalog.Offerings == nil {
		catalog.Offerings = make(map[string]domain.Offering)
	}
	return &Provider{
		catalog: catalog,
		active:  make(map[string]domain.EntitlementInfo),
	}
}

// GetOfferings returns the fixture catalog. The currency filter is ignored;
// fixtures carry a single currency.
func (p *Provider) GetOfferings(ctx context.Context, params domain.OfferingsParams) (domain.OfferingsResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return domain.OfferingsResult{All: p.catalog.Offerings, CurrentID: p.catalog.CurrentID}, nil
}

// GetCustomerInfo reports the in-memory purchase state.
func (p *Provider) GetCustomerInfo(ctx context.Context) (domain.CustomerInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	info := domain.CustomerInfo{
		ActiveSubscriptions: append([]string(nil), p.subs...),
		ActiveEntitlements:  make(map[string]domain.EntitlementInfo, len(p.active)),
	}
	for id, ent := range p.active {
		info.ActiveEntitlements[id] = ent
	}
	return info, nil
}

// Purchase activates the package's entitlements. It fails when the package
// cannot be located in any offering.
func (p *Provider) Purchase(ctx context.Context, params domain.PurchaseParams) (domain.PurchaseResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pkg, ok := p.findPackage(params.PackageID, params.OfferingID)
	if !ok {
		return domain.PurchaseResult{}, fmt.Errorf("%w: %s", domain.ErrPackageNotFound, params.PackageID)
	}
	if pkg.Product == nil {
		return domain.PurchaseResult{}, fmt.Errorf("package %s has no product to purchase", params.PackageID)
	}

	expires := expirationFor(pkg.Product.Period)
	p.subs = []string{pkg.Product.Identifier}
	p.active = make(map[string]domain.EntitlementInfo, len(pkg.Entitlements))
	for _, ent := range pkg.Entitlements {
		p.active[ent] = domain.EntitlementInfo{
			Identifier:        ent,
			ProductIdentifier: pkg.Product.Identifier,
			ExpirationDate:    expires,
			WillRenew:         expires != nil,
		}
	}

	info := domain.CustomerInfo{
		ActiveSubscriptions: append([]string(nil), p.subs...),
		ActiveEntitlements:  make(map[string]domain.EntitlementInfo, len(p.active)),
	}
	for id, ent := range p.active {
		info.ActiveEntitlements[id] = ent
	}
	return domain.PurchaseResult{CustomerInfo: info}, nil
}

// SetUser switches the tracked identity. Changing users drops the previous
// user's in-memory purchase state.
func (p *Provider) SetUser(ctx context.Context, userID, email string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if userID != p.userID {
		p.subs = nil
		p.active = make(map[string]domain.EntitlementInfo)
	}
	p.userID = userID
	p.email = email
	return nil
}

func (p *Provider) findPackage(packageID, offeringID string) (domain.Package, bool) {
	if offeringID != "" {
		if offering, ok := p.catalog.Offerings[offeringID]; ok {
			if pkg, found := offering.FindPackage(packageID); found {
				return pkg, true
			}
		}
	}
	for _, offering := range p.catalog.Offerings {
		if pkg, found := offering.FindPackage(packageID); found {
			return pkg, true
		}
	}
	return domain.Package{}, false
}

// expirationFor derives a fixture expiration from the billing period.
// Lifetime purchases never expire.
func expirationFor(period domain.Period) *time.Time {
	var d time.Duration
	switch period {
	case domain.PeriodWeekly:
		d = 7 * 24 * time.Hour
	case domain.PeriodMonthly:
		d = 30 * 24 * time.Hour
	case domain.PeriodQuarterly:
		d = 91 * 24 * time.Hour
	case domain.PeriodYearly:
		d = 365 * 24 * time.Hour
	default:
		return nil
	}
	t := time.Now().UTC().Add(d)
	return &t
}

var (
	_ domain.BillingProvider = (*Provider)(nil)
	_ domain.UserSwitcher    = (*Provider)(nil)
)
