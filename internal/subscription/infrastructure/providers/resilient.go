// Package providers contains decorators shared by the concrete billing
// adapters: a circuit breaker and a Redis offerings cache.
package providers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/johnqh/subscription-lib/internal/subscription/domain"
)

// BreakerConfig tunes the circuit breaker around a billing provider.
type BreakerConfig struct {
	// MaxRequests is the number of probe requests allowed in half-open state.
	MaxRequests uint32
	// Interval is the cyclic period of the closed state.
	Interval time.Duration
	// Timeout is how long the breaker stays open before probing.
	Timeout time.Duration
	// FailureThreshold is the consecutive-failure count that trips the breaker.
	FailureThreshold uint32
}

// DefaultBreakerConfig returns sensible defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      3,
		Interval:         10 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// ResilientProvider wraps a billing provider with a circuit breaker so a
// misbehaving commerce backend fails fast instead of piling up slow calls.
type ResilientProvider struct {
	inner   domain.BillingProvider
	breaker *gobreaker.CircuitBreaker[any]
	logger  *slog.Logger
}

// NewResilientProvider creates the breaker-wrapped provider.
func NewResilientProvider(inner domain.BillingProvider, cfg BreakerConfig, logger *slog.Logger) *ResilientProvider {
	if logger == nil {
		logger = slog.Default()
	}

	settings := gobreaker.Settings{
		Name:        "billing-provider",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	return &ResilientProvider{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker[any](settings),
		logger:  logger,
	}
}

func (p *ResilientProvider) execute(fn func() (any, error)) (any, error) {
	result, err := p.breaker.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	return result, err
}

// GetOfferings fetches offerings through the breaker.
func (p *ResilientProvider) GetOfferings(ctx context.Context, params domain.OfferingsParams) (domain.OfferingsResult, error) {
	result, err := p.execute(func() (any, error) {
		return p.inner.GetOfferings(ctx, params)
	})
	if err != nil {
		return domain.OfferingsResult{}, err
	}
	return result.(domain.OfferingsResult), nil
}

// GetCustomerInfo fetches customer info through the breaker.
func (p *ResilientProvider) GetCustomerInfo(ctx context.Context) (domain.CustomerInfo, error) {
	result, err := p.execute(func() (any, error) {
		return p.inner.GetCustomerInfo(ctx)
	})
	if err != nil {
		return domain.CustomerInfo{}, err
	}
	return result.(domain.CustomerInfo), nil
}

// Purchase runs through the breaker as well: a provider that cannot serve
// catalog reads is in no state to take money.
func (p *ResilientProvider) Purchase(ctx context.Context, params domain.PurchaseParams) (domain.PurchaseResult, error) {
	result, err := p.execute(func() (any, error) {
		return p.inner.Purchase(ctx, params)
	})
	if err != nil {
		return domain.PurchaseResult{}, err
	}
	return result.(domain.PurchaseResult), nil
}

// SetUser delegates to the wrapped provider when it tracks identity.
// Identity switches are local bookkeeping and bypass the breaker.
func (p *ResilientProvider) SetUser(ctx context.Context, userID, email string) error {
	if switcher, ok := p.inner.(domain.UserSwitcher); ok {
		return switcher.SetUser(ctx, userID, email)
	}
	return nil
}

var (
	_ domain.BillingProvider = (*ResilientProvider)(nil)
	_ domain.UserSwitcher    = (*ResilientProvider)(nil)
)
