package static

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/johnqh/subscription-lib/internal/subscription/domain"
)

// Raw catalog shapes mirror the billing provider's wire format. Period
// classification happens here, once, so the rest of the system only sees
// normalized packages.

type rawCatalog struct {
	Current   string                 `json:"current"`
	Offerings map[string]rawOffering `json:"offerings"`
}

type rawOffering struct {
	Identifier string         `json:"identifier"`
	Metadata   map[string]any `json:"metadata"`
	Packages   []rawPackage   `json:"availablePackages"`
}

type rawPackage struct {
	Identifier   string      `json:"identifier"`
	DisplayName  string      `json:"displayName"`
	Entitlements []string    `json:"entitlements"`
	Product      *rawProduct `json:"product"`
}

type rawProduct struct {
	Identifier           string           `json:"identifier"`
	Title                string           `json:"title"`
	Description          string           `json:"description"`
	Price                float64          `json:"price"`
	PriceString          string           `json:"priceString"`
	CurrencyCode         string           `json:"currencyCode"`
	NormalPeriodDuration string           `json:"normalPeriodDuration"`
	Trial                *rawPricingPhase `json:"trial"`
	IntroPrice           *rawPricingPhase `json:"introPrice"`
}

type rawPricingPhase struct {
	PeriodDuration string   `json:"periodDuration"`
	Price          *float64 `json:"price"`
	PriceString    string   `json:"priceString"`
	CycleCount     int      `json:"cycleCount"`
}

// LoadCatalog reads a JSON fixture catalog from disk.
func LoadCatalog(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and normalizes a raw JSON catalog.
func ParseCatalog(data []byte) (Catalog, error) {
	var raw rawCatalog
	if err := json.Unmarshal(data, &raw); err != nil {
		return Catalog{}, fmt.Errorf("decode catalog: %w", err)
	}

	catalog := Catalog{
		CurrentID: raw.Current,
		Offerings: make(map[string]domain.Offering, len(raw.Offerings)),
	}
	for id, offering := range raw.Offerings {
		if offering.Identifier == "" {
			offering.Identifier = id
		}
		catalog.Offerings[id] = normalizeOffering(offering)
	}
	return catalog, nil
}

func normalizeOffering(raw rawOffering) domain.Offering {
	offering := domain.Offering{
		Identifier: raw.Identifier,
		Metadata:   raw.Metadata,
		Packages:   make([]domain.Package, 0, len(raw.Packages)),
	}
	for _, pkg := range raw.Packages {
		offering.Packages = append(offering.Packages, domain.Package{
			Identifier:   pkg.Identifier,
			DisplayName:  pkg.DisplayName,
			Entitlements: pkg.Entitlements,
			Product:      normalizeProduct(pkg.Product),
		})
	}
	return offering
}

func normalizeProduct(raw *rawProduct) *domain.Product {
	if raw == nil {
		return nil
	}
	return &domain.Product{
		Identifier:     raw.Identifier,
		DisplayName:    raw.Title,
		Description:    raw.Description,
		Price:          raw.Price,
		PriceString:    raw.PriceString,
		CurrencyCode:   raw.CurrencyCode,
		Period:         domain.ClassifyPeriod(raw.NormalPeriodDuration),
		PeriodDuration: raw.NormalPeriodDuration,
		Trial:          normalizePhase(raw.Trial),
		IntroPrice:     normalizePhase(raw.IntroPrice),
	}
}

func normalizePhase(raw *rawPricingPhase) *domain.PricingPhase {
	if raw == nil {
		return nil
	}
	return &domain.PricingPhase{
		PeriodDuration: raw.PeriodDuration,
		Price:          raw.Price,
		PriceString:    raw.PriceString,
		CycleCount:     raw.CycleCount,
	}
}
