package domain

// PricingPhase describes a trial or introductory pricing phase attached to
// a product's subscription option.
type PricingPhase struct {
	PeriodDuration string
	Price          *float64
	PriceString    string
	CycleCount     int
}

// Product is the billing unit behind a paid package: the provider's pricing
// and display metadata for one purchasable plan. Immutable once constructed
// from provider data; owned exclusively by the package that contains it.
type Product struct {
	Identifier     string
	DisplayName    string
	Description    string
	Price          float64
	PriceString    string
	CurrencyCode   string
	Period         Period
	PeriodDuration string
	Trial          *PricingPhase
	IntroPrice     *PricingPhase
}
