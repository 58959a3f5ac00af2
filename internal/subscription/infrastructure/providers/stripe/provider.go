// Package stripe adapts the Stripe billing API to the domain's provider
// contract. Recurring prices become packages, price metadata drives package
// identity and entitlements, and the customer's active subscriptions map
// onto entitlement state.
package stripe

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/client"

	"github.com/johnqh/subscription-lib/internal/subscription/domain"
)

// Metadata keys recognized on Stripe prices.
const (
	metaPackage      = "package"
	metaOffering     = "offering"
	metaEntitlements = "entitlements"
	metaVisible      = "visible"
)

const defaultOfferingID = "default"

// Config holds the Stripe adapter settings.
type Config struct {
	// APIKey is the Stripe secret key.
	APIKey string
	// ProductID, when set, restricts the catalog to prices of one product.
	ProductID string
	// PortalReturnURL enables billing-portal links on customer info when set.
	PortalReturnURL string
}

// Provider implements the billing contract on top of Stripe.
type Provider struct {
	api *client.API
	cfg Config

	// mu guards the user identity; SetUser may run concurrently with the
	// customer-facing calls.
	mu     sync.RWMutex
	userID string
	email  string
}

// NewProvider creates a Stripe-backed provider.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("stripe: %w: missing API key", domain.ErrNotConfigured)
	}
	return &Provider{api: client.New(cfg.APIKey, nil), cfg: cfg}, nil
}

// GetOfferings lists active recurring prices and groups them into offerings
// by the "offering" metadata key, defaulting to a single offering.
func (p *Provider) GetOfferings(ctx context.Context, params domain.OfferingsParams) (domain.OfferingsResult, error) {
	listParams := &stripe.PriceListParams{}
	listParams.Context = ctx
	listParams.Active = stripe.Bool(true)
	listParams.Type = stripe.String("recurring")
	listParams.AddExpand("data.product")
	if params.Currency != "" {
		listParams.Currency = stripe.String(strings.ToLower(params.Currency))
	}

	offerings := make(map[string]domain.Offering)

	iter := p.api.Prices.List(listParams)
	for iter.Next() {
		price := iter.Price()
		if !price.Active || price.Recurring == nil || price.Product == nil || !price.Product.Active {
			continue
		}
		if p.cfg.ProductID != "" && price.Product.ID != p.cfg.ProductID {
			continue
		}
		if price.Metadata[metaVisible] == "false" {
			continue
		}

		offeringID := price.Metadata[metaOffering]
		if offeringID == "" {
			offeringID = defaultOfferingID
		}
		offering, ok := offerings[offeringID]
		if !ok {
			offering = domain.Offering{Identifier: offeringID}
		}
		offering.Packages = append(offering.Packages, packageFromPrice(price))
		offerings[offeringID] = offering
	}
	if err := iter.Err(); err != nil {
		return domain.OfferingsResult{}, fmt.Errorf("list stripe prices: %w", err)
	}

	currentID := ""
	if _, ok := offerings[defaultOfferingID]; ok {
		currentID = defaultOfferingID
	}
	return domain.OfferingsResult{All: offerings, CurrentID: currentID}, nil
}

// GetCustomerInfo resolves the current user's Stripe customer by email and
// maps their active subscriptions to entitlement state.
func (p *Provider) GetCustomerInfo(ctx context.Context) (domain.CustomerInfo, error) {
	_, email := p.identity()
	customer, err := p.findCustomer(ctx, email)
	if err != nil {
		return domain.CustomerInfo{}, err
	}
	if customer == nil {
		return domain.CustomerInfo{}, nil
	}

	listParams := &stripe.SubscriptionListParams{
		Customer: stripe.String(customer.ID),
		Status:   stripe.String(string(stripe.SubscriptionStatusActive)),
	}
	listParams.Context = ctx
	listParams.AddExpand("data.items.data.price.product")

	info := domain.CustomerInfo{
		ActiveEntitlements: make(map[string]domain.EntitlementInfo),
	}

	iter := p.api.Subscriptions.List(listParams)
	for iter.Next() {
		sub := iter.Subscription()
		if sub.Items == nil || len(sub.Items.Data) == 0 || sub.Items.Data[0].Price == nil {
			continue
		}
		price := sub.Items.Data[0].Price

		productID := price.ID
		if price.Product != nil {
			productID = price.Product.ID
		}
		info.ActiveSubscriptions = append(info.ActiveSubscriptions, productID)

		expires := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
		for _, ent := range entitlementIDs(price) {
			info.ActiveEntitlements[ent] = domain.EntitlementInfo{
				Identifier:        ent,
				ProductIdentifier: productID,
				ExpirationDate:    &expires,
				WillRenew:         !sub.CancelAtPeriodEnd,
			}
		}
	}
	if err := iter.Err(); err != nil {
		return domain.CustomerInfo{}, fmt.Errorf("list stripe subscriptions: %w", err)
	}

	if p.cfg.PortalReturnURL != "" && (len(info.ActiveSubscriptions) > 0 || len(info.ActiveEntitlements) > 0) {
		portalParams := &stripe.BillingPortalSessionParams{
			Customer:  stripe.String(customer.ID),
			ReturnURL: stripe.String(p.cfg.PortalReturnURL),
		}
		portalParams.Context = ctx
		if portal, perr := p.api.BillingPortalSessions.New(portalParams); perr == nil {
			info.ManagementURL = portal.URL
		}
	}
	return info, nil
}

// Purchase subscribes the current customer to the package's price. The
// package identifier is the price's "package" metadata value or, absent
// that, the price ID itself.
func (p *Provider) Purchase(ctx context.Context, params domain.PurchaseParams) (domain.PurchaseResult, error) {
	price, err := p.findPrice(ctx, params.PackageID)
	if err != nil {
		return domain.PurchaseResult{}, err
	}

	customer, err := p.ensureCustomer(ctx, params.CustomerEmail)
	if err != nil {
		return domain.PurchaseResult{}, err
	}

	subParams := &stripe.SubscriptionParams{
		Customer: stripe.String(customer.ID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(price.ID)},
		},
	}
	subParams.Context = ctx
	if _, err := p.api.Subscriptions.New(subParams); err != nil {
		return domain.PurchaseResult{}, fmt.Errorf("create stripe subscription: %w", err)
	}

	info, err := p.GetCustomerInfo(ctx)
	if err != nil {
		return domain.PurchaseResult{}, err
	}
	return domain.PurchaseResult{CustomerInfo: info}, nil
}

// SetUser records the identity used to resolve the Stripe customer.
func (p *Provider) SetUser(ctx context.Context, userID, email string) error {
	p.mu.Lock()
	p.userID = userID
	p.email = email
	p.mu.Unlock()
	return nil
}

// identity returns a consistent view of the active user.
func (p *Provider) identity() (userID, email string) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.userID, p.email
}

func (p *Provider) findCustomer(ctx context.Context, email string) (*stripe.Customer, error) {
	if email == "" {
		return nil, nil
	}

	listParams := &stripe.CustomerListParams{Email: stripe.String(email)}
	listParams.Context = ctx
	listParams.Limit = stripe.Int64(1)

	iter := p.api.Customers.List(listParams)
	for iter.Next() {
		return iter.Customer(), nil
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("find stripe customer: %w", err)
	}
	return nil, nil
}

func (p *Provider) ensureCustomer(ctx context.Context, email string) (*stripe.Customer, error) {
	userID, stored := p.identity()
	if email == "" {
		email = stored
	} else if email != stored {
		p.mu.Lock()
		p.email = email
		p.mu.Unlock()
	}
	if email == "" {
		return nil, fmt.Errorf("stripe: %w: no customer email set", domain.ErrNotConfigured)
	}

	customer, err := p.findCustomer(ctx, email)
	if err != nil {
		return nil, err
	}
	if customer != nil {
		return customer, nil
	}

	createParams := &stripe.CustomerParams{Email: stripe.String(email)}
	createParams.Context = ctx
	if userID != "" {
		createParams.Metadata = map[string]string{"user_id": userID}
	}
	customer, err = p.api.Customers.New(createParams)
	if err != nil {
		return nil, fmt.Errorf("create stripe customer: %w", err)
	}
	return customer, nil
}

func (p *Provider) findPrice(ctx context.Context, packageID string) (*stripe.Price, error) {
	listParams := &stripe.PriceListParams{}
	listParams.Context = ctx
	listParams.Active = stripe.Bool(true)
	listParams.Type = stripe.String("recurring")

	iter := p.api.Prices.List(listParams)
	for iter.Next() {
		price := iter.Price()
		if packageIdentifier(price) == packageID {
			return price, nil
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("list stripe prices: %w", err)
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrPackageNotFound, packageID)
}

func packageFromPrice(price *stripe.Price) domain.Package {
	duration := intervalDuration(price.Recurring)
	product := &domain.Product{
		Identifier:     price.Product.ID,
		DisplayName:    price.Product.Name,
		Description:    price.Product.Description,
		Price:          float64(price.UnitAmount) / 100.0,
		PriceString:    formatAmount(price.UnitAmount, string(price.Currency)),
		CurrencyCode:   strings.ToUpper(string(price.Currency)),
		Period:         domain.ClassifyPeriod(duration),
		PeriodDuration: duration,
	}

	displayName := price.Product.Name
	if v := price.Metadata[metaPackage]; v != "" {
		displayName = v
	}
	return domain.Package{
		Identifier:   packageIdentifier(price),
		DisplayName:  displayName,
		Product:      product,
		Entitlements: entitlementIDs(price),
	}
}

func packageIdentifier(price *stripe.Price) string {
	if v := price.Metadata[metaPackage]; v != "" {
		return v
	}
	return price.ID
}

func entitlementIDs(price *stripe.Price) []string {
	raw := price.Metadata[metaEntitlements]
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			ids = append(ids, trimmed)
		}
	}
	return ids
}

// intervalDuration renders a Stripe recurring interval as an ISO-8601
// duration so period classification has a single input format.
func intervalDuration(recurring *stripe.PriceRecurring) string {
	if recurring == nil {
		return ""
	}
	count := recurring.IntervalCount
	if count <= 0 {
		count = 1
	}
	switch recurring.Interval {
	case stripe.PriceRecurringIntervalDay:
		return fmt.Sprintf("P%dD", count)
	case stripe.PriceRecurringIntervalWeek:
		return fmt.Sprintf("P%dW", count)
	case stripe.PriceRecurringIntervalMonth:
		return fmt.Sprintf("P%dM", count)
	case stripe.PriceRecurringIntervalYear:
		return fmt.Sprintf("P%dY", count)
	default:
		return ""
	}
}

func formatAmount(unitAmount int64, currency string) string {
	return fmt.Sprintf("%.2f %s", float64(unitAmount)/100.0, strings.ToUpper(currency))
}

var (
	_ domain.BillingProvider = (*Provider)(nil)
	_ domain.UserSwitcher    = (*Provider)(nil)
)
