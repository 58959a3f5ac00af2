package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpgradeablePackages_NoSubscriptionReturnsAll(t *testing.T) {
	pkgs := exampleCatalog()
	all := []string{"free", "basic_monthly", "pro_monthly", "basic_yearly", "pro_yearly"}

	assert.Equal(t, all, UpgradeablePackages(nil, pkgs))
	assert.Equal(t, all, UpgradeablePackages(&SubscriptionRef{}, pkgs))
}

func TestUpgradeablePackages_FromBasicMonthly(t *testing.T) {
	got := UpgradeablePackages(&SubscriptionRef{PackageID: "basic_monthly"}, exampleCatalog())
	assert.Equal(t, []string{"pro_monthly", "basic_yearly", "pro_yearly"}, got)
}

func TestUpgradeablePackages_FromCeiling(t *testing.T) {
	got := UpgradeablePackages(&SubscriptionRef{PackageID: "pro_yearly"}, exampleCatalog())
	assert.Empty(t, got)
}

func TestUpgradeablePackages_UnknownCurrentFailsOpen(t *testing.T) {
	pkgs := exampleCatalog()
	got := UpgradeablePackages(&SubscriptionRef{PackageID: "nonexistent"}, pkgs)
	assert.Equal(t, allPackageIDs(pkgs), got)
}

func TestUpgradeablePackages_FromFreeTier(t *testing.T) {
	got := UpgradeablePackages(&SubscriptionRef{PackageID: "free"}, exampleCatalog())
	assert.Equal(t, []string{"basic_monthly", "pro_monthly", "basic_yearly", "pro_yearly"}, got)
}

func TestUpgradeablePackages_ProductIDFallback(t *testing.T) {
	got := UpgradeablePackages(&SubscriptionRef{ProductID: "basic_monthly_product"}, exampleCatalog())
	assert.Equal(t, []string{"pro_monthly", "basic_yearly", "pro_yearly"}, got)
}

func TestUpgradeablePackages_PackageIDWinsOverProductID(t *testing.T) {
	ref := &SubscriptionRef{PackageID: "pro_yearly", ProductID: "basic_monthly_product"}
	got := UpgradeablePackages(ref, exampleCatalog())
	assert.Empty(t, got)
}

func TestUpgradeablePackages_NeverDowngradesToFree(t *testing.T) {
	got := UpgradeablePackages(&SubscriptionRef{PackageID: "basic_monthly"}, exampleCatalog())
	assert.NotContains(t, got, "free")
}

func TestUpgradeablePackages_SamePeriodSameLevelEligible(t *testing.T) {
	pkgs := []Package{
		paidPackage("a_monthly", 5, PeriodMonthly),
		paidPackage("b_monthly", 5, PeriodMonthly),
	}
	got := UpgradeablePackages(&SubscriptionRef{PackageID: "a_monthly"}, pkgs)
	assert.Equal(t, []string{"b_monthly"}, got)
}

func TestUpgradeablePackages_ShorterPeriodExcluded(t *testing.T) {
	pkgs := []Package{
		paidPackage("weekly", 2, PeriodWeekly),
		paidPackage("monthly", 5, PeriodMonthly),
	}
	got := UpgradeablePackages(&SubscriptionRef{PackageID: "monthly"}, pkgs)
	assert.Empty(t, got)
}

func TestUpgradeablePackages_LowerLevelExcludedEvenOnLongerPeriod(t *testing.T) {
	pkgs := []Package{
		paidPackage("cheap_monthly", 5, PeriodMonthly),
		paidPackage("pro_monthly", 10, PeriodMonthly),
		paidPackage("cheap_yearly", 40, PeriodYearly),
		paidPackage("pro_yearly", 90, PeriodYearly),
	}
	got := UpgradeablePackages(&SubscriptionRef{PackageID: "pro_monthly"}, pkgs)
	// cheap_yearly is level 1, below pro_monthly's level 2
	assert.Equal(t, []string{"pro_yearly"}, got)
}

func TestUpgradeablePackages_OrderFollowsInput(t *testing.T) {
	pkgs := []Package{
		paidPackage("z_yearly", 100, PeriodYearly),
		paidPackage("a_yearly", 100, PeriodYearly),
		paidPackage("base_monthly", 1, PeriodMonthly),
	}
	got := UpgradeablePackages(&SubscriptionRef{PackageID: "base_monthly"}, pkgs)
	assert.Equal(t, []string{"z_yearly", "a_yearly"}, got)
}
