package domain

// Package is a purchasable offer: a product (absent only for the designated
// free tier) plus the entitlement ids an active subscription grants.
type Package struct {
	Identifier   string
	DisplayName  string
	Product      *Product
	Entitlements []string
}

// IsFreeTier reports whether the package has no billable product.
func (p Package) IsFreeTier() bool {
	return p.Product == nil
}

// price treats a missing product as price zero.
func (p Package) price() float64 {
	if p.Product == nil {
		return 0
	}
	return p.Product.Price
}

// Offering is a named catalog of packages. Multiple offerings may coexist
// (regional catalogs, experiments); each is cached independently.
type Offering struct {
	Identifier string
	Metadata   map[string]any
	Packages   []Package
}

// FindPackage returns the package with the given identifier.
func (o Offering) FindPackage(id string) (Package, bool) {
	for _, pkg := range o.Packages {
		if pkg.Identifier == id {
			return pkg, true
		}
	}
	return Package{}, false
}
