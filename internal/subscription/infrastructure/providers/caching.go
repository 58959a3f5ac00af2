package providers

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/johnqh/subscription-lib/internal/subscription/domain"
)

const offeringsKeyPrefix = "subscriptions:offerings:"

// CachingProvider keeps the last successful offerings payload in Redis and
// serves it when the underlying fetch fails, so a transient provider outage
// does not empty the catalog. Customer info and purchases are never cached.
type CachingProvider struct {
	inner  domain.BillingProvider
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachingProvider creates the cache-backed decorator.
func NewCachingProvider(inner domain.BillingProvider, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachingProvider {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CachingProvider{inner: inner, client: client, ttl: ttl, logger: logger}
}

// GetOfferings fetches from the wrapped provider, refreshing the cache on
// success and falling back to the cached copy on failure.
func (p *CachingProvider) GetOfferings(ctx context.Context, params domain.OfferingsParams) (domain.OfferingsResult, error) {
	key := p.cacheKey(params)

	result, err := p.inner.GetOfferings(ctx, params)
	if err == nil {
		if payload, merr := json.Marshal(result); merr == nil {
			if serr := p.client.Set(ctx, key, payload, p.ttl).Err(); serr != nil {
				p.logger.Debug("offerings cache write failed", "key", key, "error", serr)
			}
		}
		return result, nil
	}

	payload, gerr := p.client.Get(ctx, key).Bytes()
	if gerr != nil {
		return domain.OfferingsResult{}, err
	}
	var cached domain.OfferingsResult
	if uerr := json.Unmarshal(payload, &cached); uerr != nil {
		p.logger.Warn("discarding undecodable offerings cache entry", "key", key, "error", uerr)
		return domain.OfferingsResult{}, err
	}

	p.logger.Info("serving cached offerings after fetch failure", "key", key, "error", err)
	return cached, nil
}

// GetCustomerInfo delegates; entitlement state is always fetched fresh.
func (p *CachingProvider) GetCustomerInfo(ctx context.Context) (domain.CustomerInfo, error) {
	return p.inner.GetCustomerInfo(ctx)
}

// Purchase delegates.
func (p *CachingProvider) Purchase(ctx context.Context, params domain.PurchaseParams) (domain.PurchaseResult, error) {
	return p.inner.Purchase(ctx, params)
}

// SetUser delegates when the wrapped provider tracks identity.
func (p *CachingProvider) SetUser(ctx context.Context, userID, email string) error {
	if switcher, ok := p.inner.(domain.UserSwitcher); ok {
		return switcher.SetUser(ctx, userID, email)
	}
	return nil
}

func (p *CachingProvider) cacheKey(params domain.OfferingsParams) string {
	currency := params.Currency
	if currency == "" {
		currency = "default"
	}
	return offeringsKeyPrefix + currency
}

var (
	_ domain.BillingProvider = (*CachingProvider)(nil)
	_ domain.UserSwitcher    = (*CachingProvider)(nil)
)
