package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show subscription status",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.Service == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "Status requires a configured billing provider.")
			return nil
		}

		if err := app.Service.RefreshCustomerInfo(cmd.Context()); err != nil {
			return err
		}

		subscription := app.Service.CurrentSubscription()
		if subscription == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "No active subscription.")
			return nil
		}

		statusLine := subscription.ProductID
		if subscription.PackageID != "" {
			statusLine = fmt.Sprintf("%s (%s)", subscription.PackageID, subscription.ProductID)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Subscription: %s\n", statusLine)
		fmt.Fprintf(cmd.OutOrStdout(), "Period: %s\n", subscription.Period)
		if len(subscription.Entitlements) > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "Entitlements: %s\n", strings.Join(subscription.Entitlements, ", "))
		}
		if subscription.ExpiresAt != nil {
			verb := "Expires"
			if subscription.WillRenew {
				verb = "Renews"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", verb, subscription.ExpiresAt.Local().Format(time.RFC1123))
		}
		if subscription.ManagementURL != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "Manage: %s\n", subscription.ManagementURL)
		}

		return nil
	},
}

func init() {
	AddCommand(statusCmd)
}
