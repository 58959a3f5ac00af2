package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/johnqh/subscription-lib/internal/subscription/domain"
)

var offeringsCmd = &cobra.Command{
	Use:   "offerings",
	Short: "List the offering catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.Service == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "Offerings require a configured billing provider.")
			return nil
		}

		if err := app.Service.LoadOfferings(cmd.Context(), domain.OfferingsParams{}); err != nil {
			return err
		}

		ids := app.Service.OfferIDs()
		if len(ids) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No offerings available.")
			return nil
		}

		currentID := app.Service.CurrentOfferID()
		for _, id := range ids {
			offering, ok := app.Service.Offer(id)
			if !ok {
				continue
			}

			marker := ""
			if id == currentID {
				marker = " (current)"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s%s\n", id, marker)

			for _, pkg := range domain.WithLevels(offering.Packages) {
				price := "free"
				period := ""
				if pkg.Product != nil {
					price = pkg.Product.PriceString
					if price == "" {
						price = fmt.Sprintf("%.2f %s", pkg.Product.Price, pkg.Product.CurrencyCode)
					}
					period = string(pkg.Product.Period)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "  %-20s level %d  %-10s %s\n",
					pkg.Identifier, pkg.Level, period, price)
			}
		}
		return nil
	},
}

func init() {
	AddCommand(offeringsCmd)
}
