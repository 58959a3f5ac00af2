package domain

// SubscriptionRef identifies a user's current package by package id, product
// id, or both. A nil ref means no current subscription.
type SubscriptionRef struct {
	PackageID string
	ProductID string
}

// UpgradeablePackages returns the ids of the packages the current subscriber
// may move to, in catalog order.
//
// With no current subscription every package is eligible. An unknown current
// package also imposes no restriction: ambiguous state must never block a
// purchase. From the free tier every paid package is an upgrade. Otherwise a
// target qualifies when its period is the same or longer and its level within
// that period is the same or higher; the current package itself and the free
// tier are never targets.
func UpgradeablePackages(current *SubscriptionRef, packages []Package) []string {
	if current == nil || (current.PackageID == "" && current.ProductID == "") {
		return allPackageIDs(packages)
	}

	matched, ok := findCurrent(*current, packages)
	if !ok {
		return allPackageIDs(packages)
	}

	if matched.Product == nil {
		ids := make([]string, 0, len(packages))
		for _, pkg := range packages {
			if pkg.Product != nil {
				ids = append(ids, pkg.Identifier)
			}
		}
		return ids
	}

	levels := ComputeLevels(packages)
	currentLevel := levels[matched.Identifier]
	currentPeriod := matched.Product.Period

	ids := make([]string, 0, len(packages))
	for _, pkg := range packages {
		if pkg.Identifier == matched.Identifier || pkg.Product == nil {
			continue
		}
		if pkg.Product.Period.AtLeast(currentPeriod) && levels[pkg.Identifier] >= currentLevel {
			ids = append(ids, pkg.Identifier)
		}
	}
	return ids
}

// findCurrent locates the subscriber's package, preferring an exact package
// id match and falling back to the product id.
func findCurrent(ref SubscriptionRef, packages []Package) (Package, bool) {
	if ref.PackageID != "" {
		for _, pkg := range packages {
			if pkg.Identifier == ref.PackageID {
				return pkg, true
			}
		}
	}
	if ref.ProductID != "" {
		for _, pkg := range packages {
			if pkg.Product != nil && pkg.Product.Identifier == ref.ProductID {
				return pkg, true
			}
		}
	}
	return Package{}, false
}

func allPackageIDs(packages []Package) []string {
	ids := make([]string, 0, len(packages))
	for _, pkg := range packages {
		ids = append(ids, pkg.Identifier)
	}
	return ids
}
