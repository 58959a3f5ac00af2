package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnqh/subscription-lib/internal/subscription/domain"
	"github.com/johnqh/subscription-lib/pkg/observability"
)

type fakeProvider struct {
	mu            sync.Mutex
	offerings     domain.OfferingsResult
	offeringsErr  error
	customerInfo  domain.CustomerInfo
	customerErr   error
	purchaseErr   error
	purchaseInfo  domain.CustomerInfo
	setUserCalls  []string
	offeringsGate chan struct{} // when set, GetOfferings blocks until closed
	offeringCalls int
}

func (f *fakeProvider) GetOfferings(ctx context.Context, params domain.OfferingsParams) (domain.OfferingsResult, error) {
	f.mu.Lock()
	gate := f.offeringsGate
	f.offeringCalls++
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return f.offerings, f.offeringsErr
}

func (f *fakeProvider) GetCustomerInfo(ctx context.Context) (domain.CustomerInfo, error) {
	return f.customerInfo, f.customerErr
}

func (f *fakeProvider) Purchase(ctx context.Context, params domain.PurchaseParams) (domain.PurchaseResult, error) {
	if f.purchaseErr != nil {
		return domain.PurchaseResult{}, f.purchaseErr
	}
	return domain.PurchaseResult{CustomerInfo: f.purchaseInfo}, nil
}

func (f *fakeProvider) SetUser(ctx context.Context, userID, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setUserCalls = append(f.setUserCalls, userID)
	return nil
}

type fakeSnapshotRepo struct {
	mu      sync.Mutex
	stored  map[string]*domain.CurrentSubscription
	findErr error
}

func (f *fakeSnapshotRepo) Save(ctx context.Context, userID string, snapshot *domain.CurrentSubscription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stored == nil {
		f.stored = make(map[string]*domain.CurrentSubscription)
	}
	if snapshot == nil {
		delete(f.stored, userID)
		return nil
	}
	clone := *snapshot
	f.stored[userID] = &clone
	return nil
}

func (f *fakeSnapshotRepo) FindByUserID(ctx context.Context, userID string) (*domain.CurrentSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	snapshot, ok := f.stored[userID]
	if !ok {
		return nil, nil
	}
	clone := *snapshot
	return &clone, nil
}

func testCatalog() domain.OfferingsResult {
	packages := []domain.Package{
		{Identifier: "free", DisplayName: "Free"},
		{
			Identifier: "basic_monthly",
			Product: &domain.Product{
				Identifier: "prod_basic_m",
				Price:      5,
				Period:     domain.PeriodMonthly,
			},
			Entitlements: []string{"premium"},
		},
		{
			Identifier: "pro_monthly",
			Product: &domain.Product{
				Identifier: "prod_pro_m",
				Price:      10,
				Period:     domain.PeriodMonthly,
			},
			Entitlements: []string{"premium", "pro"},
		},
		{
			Identifier: "pro_yearly",
			Product: &domain.Product{
				Identifier: "prod_pro_y",
				Price:      100,
				Period:     domain.PeriodYearly,
			},
			Entitlements: []string{"premium", "pro"},
		},
	}
	return domain.OfferingsResult{
		All: map[string]domain.Offering{
			"default": {Identifier: "default", Packages: packages},
		},
		CurrentID: "default",
	}
}

func newTestService(provider domain.BillingProvider) *Service {
	return NewService(provider, Config{}, Deps{})
}

func TestLoadOfferings_CachesCatalog(t *testing.T) {
	svc := newTestService(&fakeProvider{offerings: testCatalog()})

	require.False(t, svc.HasLoadedOfferings())
	require.NoError(t, svc.LoadOfferings(context.Background(), domain.OfferingsParams{}))

	assert.True(t, svc.HasLoadedOfferings())
	assert.Equal(t, []string{"default"}, svc.OfferIDs())
	assert.Equal(t, "default", svc.CurrentOfferID())

	offering, ok := svc.Offer("default")
	require.True(t, ok)
	assert.Len(t, offering.Packages, 4)
}

func TestLoadOfferings_FetchFailureFallsBackToEmpty(t *testing.T) {
	svc := newTestService(&fakeProvider{offeringsErr: errors.New("network down")})

	require.NoError(t, svc.LoadOfferings(context.Background(), domain.OfferingsParams{}))

	assert.True(t, svc.HasLoadedOfferings())
	assert.Empty(t, svc.OfferIDs())
}

func TestLoadOfferings_ConcurrentReloadIsNoOp(t *testing.T) {
	gate := make(chan struct{})
	provider := &fakeProvider{offerings: testCatalog(), offeringsGate: gate}
	svc := newTestService(provider)

	done := make(chan struct{})
	go func() {
		_ = svc.LoadOfferings(context.Background(), domain.OfferingsParams{})
		close(done)
	}()

	// Wait for the first reload to reach the provider.
	require.Eventually(t, func() bool {
		provider.mu.Lock()
		defer provider.mu.Unlock()
		return provider.offeringCalls == 1
	}, time.Second, time.Millisecond)

	// Duplicate call returns immediately without a second fetch.
	require.NoError(t, svc.LoadOfferings(context.Background(), domain.OfferingsParams{}))
	provider.mu.Lock()
	assert.Equal(t, 1, provider.offeringCalls)
	provider.mu.Unlock()
	assert.False(t, svc.HasLoadedOfferings())

	close(gate)
	<-done
	assert.True(t, svc.HasLoadedOfferings())

	// The flag resets once the in-flight reload completes.
	provider.mu.Lock()
	provider.offeringsGate = nil
	provider.mu.Unlock()
	require.NoError(t, svc.LoadOfferings(context.Background(), domain.OfferingsParams{}))
	provider.mu.Lock()
	assert.Equal(t, 2, provider.offeringCalls)
	provider.mu.Unlock()
}

func TestRefreshCustomerInfo_ResolvesPackageFromCatalog(t *testing.T) {
	expires := time.Now().Add(30 * 24 * time.Hour).UTC()
	provider := &fakeProvider{
		offerings: testCatalog(),
		customerInfo: domain.CustomerInfo{
			ActiveSubscriptions: []string{"prod_pro_m"},
			ActiveEntitlements: map[string]domain.EntitlementInfo{
				"pro": {
					Identifier:        "pro",
					ProductIdentifier: "prod_pro_m",
					ExpirationDate:    &expires,
					WillRenew:         true,
				},
				"premium": {
					Identifier:        "premium",
					ProductIdentifier: "prod_pro_m",
					ExpirationDate:    &expires,
					WillRenew:         true,
				},
			},
			ManagementURL: "https://billing.example.com",
		},
	}
	svc := newTestService(provider)
	require.NoError(t, svc.LoadOfferings(context.Background(), domain.OfferingsParams{}))
	require.NoError(t, svc.RefreshCustomerInfo(context.Background()))

	sub := svc.CurrentSubscription()
	require.NotNil(t, sub)
	assert.True(t, sub.Active)
	assert.Equal(t, "prod_pro_m", sub.ProductID)
	assert.Equal(t, "pro_monthly", sub.PackageID)
	assert.Equal(t, domain.PeriodMonthly, sub.Period)
	assert.Equal(t, []string{"premium", "pro"}, sub.Entitlements)
	assert.True(t, sub.WillRenew)
	assert.Equal(t, "https://billing.example.com", sub.ManagementURL)
	assert.True(t, svc.HasLoadedCustomerInfo())
}

func TestRefreshCustomerInfo_FetchFailureMeansUnsubscribed(t *testing.T) {
	svc := newTestService(&fakeProvider{customerErr: errors.New("boom")})

	require.NoError(t, svc.RefreshCustomerInfo(context.Background()))

	assert.Nil(t, svc.CurrentSubscription())
	assert.True(t, svc.HasLoadedCustomerInfo())
}

func TestRefreshCustomerInfo_EmptyInfoMeansNoSnapshot(t *testing.T) {
	svc := newTestService(&fakeProvider{})
	require.NoError(t, svc.RefreshCustomerInfo(context.Background()))
	assert.Nil(t, svc.CurrentSubscription())
}

func TestPurchase_UnknownPackageFailsLoudly(t *testing.T) {
	svc := newTestService(&fakeProvider{offerings: testCatalog()})
	require.NoError(t, svc.LoadOfferings(context.Background(), domain.OfferingsParams{}))

	_, err := svc.Purchase(context.Background(), domain.PurchaseParams{PackageID: "nope"})
	require.ErrorIs(t, err, domain.ErrPackageNotFound)
}

func TestPurchase_UpdatesSnapshot(t *testing.T) {
	provider := &fakeProvider{
		offerings: testCatalog(),
		purchaseInfo: domain.CustomerInfo{
			ActiveSubscriptions: []string{"prod_basic_m"},
			ActiveEntitlements: map[string]domain.EntitlementInfo{
				"premium": {Identifier: "premium", ProductIdentifier: "prod_basic_m", WillRenew: true},
			},
		},
	}
	svc := newTestService(provider)
	require.NoError(t, svc.LoadOfferings(context.Background(), domain.OfferingsParams{}))

	sub, err := svc.Purchase(context.Background(), domain.PurchaseParams{PackageID: "basic_monthly"})
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, "basic_monthly", sub.PackageID)
	assert.Equal(t, sub, svc.CurrentSubscription())
}

func TestPurchase_ProviderErrorPropagates(t *testing.T) {
	provider := &fakeProvider{offerings: testCatalog(), purchaseErr: errors.New("card declined")}
	svc := newTestService(provider)
	require.NoError(t, svc.LoadOfferings(context.Background(), domain.OfferingsParams{}))

	_, err := svc.Purchase(context.Background(), domain.PurchaseParams{PackageID: "basic_monthly"})
	require.ErrorContains(t, err, "card declined")
}

func TestChangeUser_ClearsSnapshotKeepsCatalog(t *testing.T) {
	provider := &fakeProvider{
		offerings: testCatalog(),
		customerInfo: domain.CustomerInfo{
			ActiveSubscriptions: []string{"prod_basic_m"},
			ActiveEntitlements: map[string]domain.EntitlementInfo{
				"premium": {Identifier: "premium", ProductIdentifier: "prod_basic_m"},
			},
		},
	}
	svc := newTestService(provider)
	require.NoError(t, svc.LoadOfferings(context.Background(), domain.OfferingsParams{}))
	require.NoError(t, svc.RefreshCustomerInfo(context.Background()))
	require.NotNil(t, svc.CurrentSubscription())

	require.NoError(t, svc.ChangeUser(context.Background(), "user-2", "two@example.com"))

	assert.Nil(t, svc.CurrentSubscription())
	assert.False(t, svc.HasLoadedCustomerInfo())
	assert.True(t, svc.HasLoadedOfferings(), "catalog is user-independent")
	assert.Equal(t, []string{"user-2"}, provider.setUserCalls)
}

func TestChangeUser_SeedsStoredSnapshot(t *testing.T) {
	repo := &fakeSnapshotRepo{
		stored: map[string]*domain.CurrentSubscription{
			"user-2": {
				Active:       true,
				ProductID:    "prod_pro_m",
				PackageID:    "pro_monthly",
				Entitlements: []string{"premium", "pro"},
				Period:       domain.PeriodMonthly,
			},
		},
	}
	provider := &fakeProvider{offerings: testCatalog()}
	svc := NewService(provider, Config{}, Deps{Snapshots: repo})

	require.NoError(t, svc.ChangeUser(context.Background(), "user-2", ""))

	// The stored copy is visible immediately but does not count as a
	// completed refresh.
	sub := svc.CurrentSubscription()
	require.NotNil(t, sub)
	assert.Equal(t, "pro_monthly", sub.PackageID)
	assert.False(t, svc.HasLoadedCustomerInfo())

	// The next refresh replaces the seeded copy with provider truth; this
	// user has no active subscription anymore.
	require.NoError(t, svc.RefreshCustomerInfo(context.Background()))
	assert.Nil(t, svc.CurrentSubscription())
	assert.True(t, svc.HasLoadedCustomerInfo())
}

func TestChangeUser_NoStoredSnapshotStaysEmpty(t *testing.T) {
	svc := NewService(&fakeProvider{}, Config{}, Deps{Snapshots: &fakeSnapshotRepo{}})

	require.NoError(t, svc.ChangeUser(context.Background(), "user-9", ""))

	assert.Nil(t, svc.CurrentSubscription())
	assert.False(t, svc.HasLoadedCustomerInfo())
}

func TestChangeUser_SnapshotLoadFailureIsIgnored(t *testing.T) {
	repo := &fakeSnapshotRepo{findErr: errors.New("db down")}
	svc := NewService(&fakeProvider{}, Config{}, Deps{Snapshots: repo})

	require.NoError(t, svc.ChangeUser(context.Background(), "user-2", ""))
	assert.Nil(t, svc.CurrentSubscription())
}

func TestChangeUser_ListenersRunInRegistrationOrder(t *testing.T) {
	svc := newTestService(&fakeProvider{offerings: testCatalog()})

	var order []string
	svc.OnUserChanged(func(userID string) { order = append(order, "first:"+userID) })
	svc.OnUserChanged(func(userID string) { order = append(order, "second:"+userID) })

	require.NoError(t, svc.ChangeUser(context.Background(), "u1", ""))
	assert.Equal(t, []string{"first:u1", "second:u1"}, order)
}

func TestChangeUser_ListenerMayUnsubscribeItselfMidDispatch(t *testing.T) {
	svc := newTestService(&fakeProvider{offerings: testCatalog()})

	var order []string
	var unsubscribe func()
	unsubscribe = svc.OnUserChanged(func(userID string) {
		order = append(order, "self-removing")
		unsubscribe()
	})
	svc.OnUserChanged(func(userID string) { order = append(order, "survivor") })

	require.NoError(t, svc.ChangeUser(context.Background(), "u1", ""))
	assert.Equal(t, []string{"self-removing", "survivor"}, order)

	// The removed listener does not run again.
	require.NoError(t, svc.ChangeUser(context.Background(), "u2", ""))
	assert.Equal(t, []string{"self-removing", "survivor", "survivor"}, order)
}

func TestUpgradeablePackageIDs_UsesCurrentSnapshot(t *testing.T) {
	provider := &fakeProvider{
		offerings: testCatalog(),
		customerInfo: domain.CustomerInfo{
			ActiveSubscriptions: []string{"prod_basic_m"},
			ActiveEntitlements: map[string]domain.EntitlementInfo{
				"premium": {Identifier: "premium", ProductIdentifier: "prod_basic_m"},
			},
		},
	}
	svc := newTestService(provider)
	require.NoError(t, svc.LoadOfferings(context.Background(), domain.OfferingsParams{}))
	require.NoError(t, svc.RefreshCustomerInfo(context.Background()))

	assert.Equal(t, []string{"pro_monthly", "pro_yearly"}, svc.UpgradeablePackageIDs(""))
}

func TestUpgradeablePackageIDs_NoSnapshotReturnsAll(t *testing.T) {
	svc := newTestService(&fakeProvider{offerings: testCatalog()})
	require.NoError(t, svc.LoadOfferings(context.Background(), domain.OfferingsParams{}))

	assert.Equal(t, []string{"free", "basic_monthly", "pro_monthly", "pro_yearly"}, svc.UpgradeablePackageIDs("default"))
}

func TestUpgradeablePackageIDs_UnknownOffer(t *testing.T) {
	svc := newTestService(&fakeProvider{offerings: testCatalog()})
	require.NoError(t, svc.LoadOfferings(context.Background(), domain.OfferingsParams{}))

	assert.Nil(t, svc.UpgradeablePackageIDs("missing"))
}

func TestFreeTierPackage_Synthesized(t *testing.T) {
	svc := NewService(&fakeProvider{}, Config{FreeTierPackageID: "starter", FreeTierName: "Starter"}, Deps{})

	pkg := svc.FreeTierPackage()
	assert.Equal(t, "starter", pkg.Identifier)
	assert.Equal(t, "Starter", pkg.DisplayName)
	assert.True(t, pkg.IsFreeTier())
}

func TestService_NotConfigured(t *testing.T) {
	svc := NewService(nil, Config{}, Deps{})

	assert.ErrorIs(t, svc.LoadOfferings(context.Background(), domain.OfferingsParams{}), domain.ErrNotConfigured)
	assert.ErrorIs(t, svc.RefreshCustomerInfo(context.Background()), domain.ErrNotConfigured)
	_, err := svc.Purchase(context.Background(), domain.PurchaseParams{PackageID: "x"})
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
	assert.ErrorIs(t, svc.ChangeUser(context.Background(), "u", ""), domain.ErrNotConfigured)
}

func TestService_RecordsMetrics(t *testing.T) {
	metrics := observability.NewInMemoryMetrics()
	svc := NewService(&fakeProvider{offerings: testCatalog()}, Config{}, Deps{Metrics: metrics})
	ctx := context.Background()

	require.NoError(t, svc.LoadOfferings(ctx, domain.OfferingsParams{}))
	assert.Equal(t, int64(1), metrics.GetCounter(observability.MetricOfferingsReloads))

	_, err := svc.Purchase(ctx, domain.PurchaseParams{PackageID: "pro_monthly"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), metrics.GetCounter(observability.MetricPurchases))
	assert.Equal(t, int64(0), metrics.GetCounter(observability.MetricPurchaseErrors))

	require.NoError(t, svc.ChangeUser(ctx, "user-2", ""))
	assert.Equal(t, int64(1), metrics.GetCounter(observability.MetricUserChanges))
}
