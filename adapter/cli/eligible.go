package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/johnqh/subscription-lib/internal/subscription/domain"
)

var eligibleOfferID string

var eligibleCmd = &cobra.Command{
	Use:   "eligible",
	Short: "List packages the current user may upgrade to",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.Service == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "Eligibility requires a configured billing provider.")
			return nil
		}

		if !app.Service.HasLoadedOfferings() {
			if err := app.Service.LoadOfferings(cmd.Context(), domain.OfferingsParams{}); err != nil {
				return err
			}
		}
		if !app.Service.HasLoadedCustomerInfo() {
			if err := app.Service.RefreshCustomerInfo(cmd.Context()); err != nil {
				return err
			}
		}

		ids := app.Service.UpgradeablePackageIDs(eligibleOfferID)
		if ids == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "Offering not found.")
			return nil
		}
		if len(ids) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "Already on the highest package.")
			return nil
		}

		for _, id := range ids {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	},
}

func init() {
	eligibleCmd.Flags().StringVar(&eligibleOfferID, "offer", "", "offering to check (defaults to the current offering)")
	AddCommand(eligibleCmd)
}
