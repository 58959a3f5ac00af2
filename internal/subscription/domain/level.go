package domain

import "sort"

// LeveledPackage pairs a package with its computed level.
type LeveledPackage struct {
	Package
	Level int
}

// ComputeLevels assigns each package an integer level relative to the other
// packages billed on the same period. The free tier (no product) is always
// level 0. Within a period group packages are ranked by ascending price: the
// cheapest paid package is level 1, equal prices share a level, and each
// strictly higher price increments the level. Levels are never persisted;
// callers recompute from the current package set. Every input package id
// appears in the result.
func ComputeLevels(packages []Package) map[string]int {
	levels := make(map[string]int, len(packages))
	groups := make(map[Period][]Package)

	for _, pkg := range packages {
		if pkg.Product == nil {
			levels[pkg.Identifier] = 0
			continue
		}
		groups[pkg.Product.Period] = append(groups[pkg.Product.Period], pkg)
	}

	for _, group := range groups {
		// Stable sort: equal prices keep input order, which cannot change
		// their level anyway since equal price means equal level.
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].price() < group[j].price()
		})

		level := 0
		lastPrice := 0.0
		for i, pkg := range group {
			if i == 0 || pkg.price() > lastPrice {
				level++
				lastPrice = pkg.price()
			}
			levels[pkg.Identifier] = level
		}
	}

	return levels
}

// PackageLevel recomputes levels over the full package set and returns the
// level for the given package id, or 0 when the id is absent.
func PackageLevel(id string, packages []Package) int {
	return ComputeLevels(packages)[id]
}

// WithLevels attaches computed levels to the input packages, preserving order.
func WithLevels(packages []Package) []LeveledPackage {
	levels := ComputeLevels(packages)
	out := make([]LeveledPackage, 0, len(packages))
	for _, pkg := range packages {
		out = append(out, LeveledPackage{Package: pkg, Level: levels[pkg.Identifier]})
	}
	return out
}
