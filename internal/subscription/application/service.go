// Package application provides the subscription orchestration service: it
// caches the normalized catalog and the user's entitlement snapshot and
// answers purchase-eligibility queries over them.
package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	shared "github.com/johnqh/subscription-lib/internal/shared/domain"
	"github.com/johnqh/subscription-lib/internal/shared/infrastructure/eventbus"
	"github.com/johnqh/subscription-lib/internal/subscription/domain"
	"github.com/johnqh/subscription-lib/pkg/observability"
)

// Config carries the service's startup configuration.
type Config struct {
	// FreeTierPackageID identifies the synthesized zero-cost package.
	FreeTierPackageID string
	// FreeTierName is its display name.
	FreeTierName string
	// Currency is the default currency for offerings fetches.
	Currency string
}

// Deps holds optional collaborators. Nil fields are replaced with defaults
// (Bus, Logger) or simply not used (Snapshots, Publisher).
type Deps struct {
	Snapshots domain.SnapshotRepository
	Bus       *eventbus.InProcessBus
	Publisher eventbus.Publisher
	Logger    *slog.Logger
	Metrics   observability.Metrics
}

// Service holds the normalized offering cache and the current-subscription
// snapshot. The pure eligibility core is lock-free; the cached state is
// guarded by a RWMutex. Each of the two reload operations carries its own
// in-flight flag: a reload already in progress makes a duplicate call an
// immediate no-op rather than queuing a second fetch.
type Service struct {
	provider  domain.BillingProvider
	snapshots domain.SnapshotRepository
	bus       *eventbus.InProcessBus
	publisher eventbus.Publisher
	logger    *slog.Logger
	metrics   observability.Metrics
	cfg       Config

	mu                 sync.RWMutex
	offerings          map[string]domain.Offering
	currentOfferingID  string
	current            *domain.CurrentSubscription
	userID             string
	loadedOfferings    bool
	loadedCustomerInfo bool
	reloadingOfferings bool
	reloadingCustomer  bool
}

// NewService creates the orchestration service around a billing provider.
func NewService(provider domain.BillingProvider, cfg Config, deps Deps) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Bus == nil {
		deps.Bus = eventbus.NewInProcessBus(deps.Logger)
	}
	if deps.Metrics == nil {
		deps.Metrics = observability.NoopMetrics{}
	}
	if cfg.FreeTierPackageID == "" {
		cfg.FreeTierPackageID = "free"
	}
	if cfg.FreeTierName == "" {
		cfg.FreeTierName = "Free"
	}
	return &Service{
		provider:  provider,
		snapshots: deps.Snapshots,
		bus:       deps.Bus,
		publisher: deps.Publisher,
		logger:    deps.Logger,
		metrics:   deps.Metrics,
		cfg:       cfg,
		offerings: make(map[string]domain.Offering),
	}
}

// LoadOfferings fetches the catalog and replaces the cache wholesale. A
// reload already in progress makes this call an immediate no-op. A fetch
// failure degrades to an empty catalog instead of an error, so derived
// queries keep operating; callers distinguish "still loading" from "loaded
// but empty" via HasLoadedOfferings.
func (s *Service) LoadOfferings(ctx context.Context, params domain.OfferingsParams) error {
	if s == nil || s.provider == nil {
		return domain.ErrNotConfigured
	}

	s.mu.Lock()
	if s.reloadingOfferings {
		s.mu.Unlock()
		s.metrics.Counter(observability.MetricOfferingsReloadSkipped, 1)
		return nil
	}
	s.reloadingOfferings = true
	s.mu.Unlock()

	if params.Currency == "" {
		params.Currency = s.cfg.Currency
	}

	s.metrics.Counter(observability.MetricOfferingsReloads, 1)
	result, err := s.provider.GetOfferings(ctx, params)
	if err != nil {
		s.logger.Warn("offerings fetch failed, caching empty catalog", "error", err)
		s.metrics.Counter(observability.MetricOfferingsReloadErrors, 1)
		result = domain.OfferingsResult{}
	}
	if result.All == nil {
		result.All = make(map[string]domain.Offering)
	}

	s.mu.Lock()
	s.offerings = result.All
	s.currentOfferingID = result.CurrentID
	s.loadedOfferings = true
	s.reloadingOfferings = false
	s.mu.Unlock()

	s.publish(ctx, domain.NewCatalogReloaded(len(result.All)))
	return nil
}

// RefreshCustomerInfo fetches customer info and replaces the subscription
// snapshot. Concurrency and failure policies match LoadOfferings: duplicate
// calls are no-ops and a fetch failure is treated as "no active
// subscription" rather than surfaced.
func (s *Service) RefreshCustomerInfo(ctx context.Context) error {
	if s == nil || s.provider == nil {
		return domain.ErrNotConfigured
	}

	s.mu.Lock()
	if s.reloadingCustomer {
		s.mu.Unlock()
		s.metrics.Counter(observability.MetricCustomerRefreshSkipped, 1)
		return nil
	}
	s.reloadingCustomer = true
	s.mu.Unlock()

	s.metrics.Counter(observability.MetricCustomerRefreshes, 1)
	info, err := s.provider.GetCustomerInfo(ctx)
	if err != nil {
		s.logger.Warn("customer info fetch failed, treating as unsubscribed", "error", err)
		s.metrics.Counter(observability.MetricCustomerRefreshErrors, 1)
		info = domain.CustomerInfo{}
	}

	snapshot := s.normalize(info)

	s.mu.Lock()
	s.current = snapshot
	s.loadedCustomerInfo = true
	s.reloadingCustomer = false
	userID := s.userID
	s.mu.Unlock()

	s.persistSnapshot(ctx, userID, snapshot)
	return nil
}

// Purchase buys a package from the cached catalog and replaces the snapshot
// with the customer info returned by the provider. This is the one path that
// fails loudly: silently purchasing nothing would be worse than an error.
func (s *Service) Purchase(ctx context.Context, params domain.PurchaseParams) (*domain.CurrentSubscription, error) {
	if s == nil || s.provider == nil {
		return nil, domain.ErrNotConfigured
	}

	offeringID, pkg, ok := s.locatePackage(params.PackageID, params.OfferingID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrPackageNotFound, params.PackageID)
	}
	if params.OfferingID == "" {
		params.OfferingID = offeringID
	}

	result, err := s.provider.Purchase(ctx, params)
	if err != nil {
		s.metrics.Counter(observability.MetricPurchaseErrors, 1)
		return nil, fmt.Errorf("purchase %s: %w", params.PackageID, err)
	}
	s.metrics.Counter(observability.MetricPurchases, 1)

	snapshot := s.normalize(result.CustomerInfo)

	s.mu.Lock()
	s.current = snapshot
	s.loadedCustomerInfo = true
	userID := s.userID
	s.mu.Unlock()

	s.persistSnapshot(ctx, userID, snapshot)

	productID := ""
	if pkg.Product != nil {
		productID = pkg.Product.Identifier
	}
	s.publish(ctx, domain.NewSubscriptionPurchased(userID, params.PackageID, params.OfferingID, productID))
	return snapshot, nil
}

// ChangeUser switches the active user identity. Only the subscription
// snapshot is cleared; the catalog is user-independent and stays cached. A
// snapshot stored for the new user is restored so entitlement state is
// visible before the first provider refresh of the session completes.
// Listeners registered via OnUserChanged run synchronously, in registration
// order, before this method returns.
func (s *Service) ChangeUser(ctx context.Context, userID, email string) error {
	if s == nil || s.provider == nil {
		return domain.ErrNotConfigured
	}

	if switcher, ok := s.provider.(domain.UserSwitcher); ok {
		if err := switcher.SetUser(ctx, userID, email); err != nil {
			return fmt.Errorf("set user: %w", err)
		}
	}

	s.mu.Lock()
	s.userID = userID
	s.current = nil
	s.loadedCustomerInfo = false
	s.mu.Unlock()

	if userID != "" {
		s.seedSnapshot(ctx, userID)
	}

	s.metrics.Counter(observability.MetricUserChanges, 1)
	s.publish(ctx, domain.NewUserChanged(userID))
	return nil
}

// seedSnapshot restores the stored snapshot for a user. The seeded copy is a
// stale placeholder: HasLoadedCustomerInfo stays false and the next refresh
// replaces it with provider truth.
func (s *Service) seedSnapshot(ctx context.Context, userID string) {
	if s.snapshots == nil {
		return
	}
	snapshot, err := s.snapshots.FindByUserID(ctx, userID)
	if err != nil {
		s.logger.Warn("load stored subscription snapshot failed", "user_id", userID, "error", err)
		return
	}
	if snapshot == nil {
		return
	}

	s.mu.Lock()
	if s.userID == userID && !s.loadedCustomerInfo {
		s.current = snapshot
	}
	s.mu.Unlock()
}

// OnUserChanged registers a listener for identity changes and returns its
// unsubscribe function. A listener may unsubscribe itself while being
// notified without affecting the rest of the dispatch.
func (s *Service) OnUserChanged(fn func(userID string)) (unsubscribe func()) {
	return s.bus.Subscribe(domain.EventUserChanged, func(_ context.Context, event eventbus.Event) {
		var payload domain.UserChanged
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			s.logger.Error("decode user-changed event", "error", err)
			return
		}
		fn(payload.UserID)
	})
}

// Offer returns a cached offering by id. It never triggers a fetch.
func (s *Service) Offer(id string) (domain.Offering, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	offering, ok := s.offerings[id]
	return offering, ok
}

// OfferIDs returns the ids of all cached offerings, sorted.
func (s *Service) OfferIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.offerings))
	for id := range s.offerings {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// CurrentOfferID returns the provider-designated current offering id.
func (s *Service) CurrentOfferID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentOfferingID
}

// CurrentSubscription returns a copy of the snapshot, or nil when the user
// has no active subscription or none has been loaded yet.
func (s *Service) CurrentSubscription() *domain.CurrentSubscription {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	snapshot := *s.current
	snapshot.Entitlements = append([]string(nil), s.current.Entitlements...)
	return &snapshot
}

// FreeTierPackage synthesizes the configured zero-cost package. It is never
// fetched from the provider and carries no product.
func (s *Service) FreeTierPackage() domain.Package {
	return domain.Package{
		Identifier:  s.cfg.FreeTierPackageID,
		DisplayName: s.cfg.FreeTierName,
	}
}

// HasLoadedOfferings reports whether an offerings reload has completed.
func (s *Service) HasLoadedOfferings() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedOfferings
}

// HasLoadedCustomerInfo reports whether a customer-info reload has completed
// for the active user.
func (s *Service) HasLoadedCustomerInfo() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedCustomerInfo
}

// UpgradeablePackageIDs returns the package ids the current user may
// purchase from the given offering (the provider's current offering when
// offerID is empty). With no subscription snapshot every package qualifies.
func (s *Service) UpgradeablePackageIDs(offerID string) []string {
	s.mu.RLock()
	if offerID == "" {
		offerID = s.currentOfferingID
	}
	offering, ok := s.offerings[offerID]
	ref := s.current.Ref()
	s.mu.RUnlock()

	if !ok {
		return nil
	}
	return domain.UpgradeablePackages(ref, offering.Packages)
}

// normalize derives a snapshot from provider customer info, resolving the
// package id from the product id against the cached catalog.
func (s *Service) normalize(info domain.CustomerInfo) *domain.CurrentSubscription {
	if len(info.ActiveSubscriptions) == 0 && len(info.ActiveEntitlements) == 0 {
		return nil
	}

	productID := ""
	if len(info.ActiveSubscriptions) > 0 {
		productID = info.ActiveSubscriptions[0]
	}

	entitlementIDs := make([]string, 0, len(info.ActiveEntitlements))
	for id := range info.ActiveEntitlements {
		entitlementIDs = append(entitlementIDs, id)
		if productID == "" {
			productID = info.ActiveEntitlements[id].ProductIdentifier
		}
	}
	sort.Strings(entitlementIDs)

	snapshot := &domain.CurrentSubscription{
		Active:        true,
		ProductID:     productID,
		Entitlements:  entitlementIDs,
		Period:        domain.PeriodMonthly,
		ManagementURL: info.ManagementURL,
	}
	for _, ent := range info.ActiveEntitlements {
		if ent.ProductIdentifier == productID {
			snapshot.ExpiresAt = ent.ExpirationDate
			snapshot.WillRenew = ent.WillRenew
			break
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, offering := range s.offerings {
		for _, pkg := range offering.Packages {
			if pkg.Product != nil && pkg.Product.Identifier == productID {
				snapshot.PackageID = pkg.Identifier
				snapshot.Period = pkg.Product.Period
				return snapshot
			}
		}
	}
	return snapshot
}

// locatePackage finds a package in the cache, searching the named offering
// first and then every other one.
func (s *Service) locatePackage(packageID, offeringID string) (string, domain.Package, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if offeringID != "" {
		if offering, ok := s.offerings[offeringID]; ok {
			if pkg, found := offering.FindPackage(packageID); found {
				return offeringID, pkg, true
			}
		}
	}
	for id, offering := range s.offerings {
		if pkg, found := offering.FindPackage(packageID); found {
			return id, pkg, true
		}
	}
	return "", domain.Package{}, false
}

// persistSnapshot stores the snapshot best-effort; failures are logged and
// never surfaced to the caller.
func (s *Service) persistSnapshot(ctx context.Context, userID string, snapshot *domain.CurrentSubscription) {
	if s.snapshots == nil {
		return
	}
	if err := s.snapshots.Save(ctx, userID, snapshot); err != nil {
		s.logger.Warn("persist subscription snapshot failed", "user_id", userID, "error", err)
	}
}

// publish dispatches the event on the in-process bus and, when configured,
// to the external publisher.
func (s *Service) publish(ctx context.Context, event shared.DomainEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("marshal event", "routing_key", event.RoutingKey(), "error", err)
		return
	}
	s.metrics.Counter(observability.MetricEventsPublished, 1, observability.T("routing_key", event.RoutingKey()))
	if s.bus != nil {
		_ = s.bus.Publish(ctx, event.RoutingKey(), payload)
	}
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, event.RoutingKey(), payload); err != nil {
			s.logger.Warn("publish event", "routing_key", event.RoutingKey(), "error", err)
		}
	}
}
