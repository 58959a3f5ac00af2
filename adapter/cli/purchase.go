package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/johnqh/subscription-lib/internal/subscription/domain"
)

var purchaseOfferID string

var purchaseCmd = &cobra.Command{
	Use:   "purchase <package-id>",
	Short: "Purchase a package",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.Service == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "Purchasing requires a configured billing provider.")
			return nil
		}

		if !app.Service.HasLoadedOfferings() {
			if err := app.Service.LoadOfferings(cmd.Context(), domain.OfferingsParams{}); err != nil {
				return err
			}
		}

		snapshot, err := app.Service.Purchase(cmd.Context(), domain.PurchaseParams{
			PackageID:     args[0],
			OfferingID:    purchaseOfferID,
			CustomerEmail: app.CurrentEmail,
		})
		if err != nil {
			return err
		}

		if snapshot == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "Purchase completed.")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Purchased %s (%s)\n", snapshot.PackageID, snapshot.ProductID)
		return nil
	},
}

func init() {
	purchaseCmd.Flags().StringVar(&purchaseOfferID, "offer", "", "offering to purchase from")
	AddCommand(purchaseCmd)
}
