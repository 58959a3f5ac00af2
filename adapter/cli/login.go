package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var loginEmail string

var loginCmd = &cobra.Command{
	Use:   "login <user-id>",
	Short: "Switch the active user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.Service == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "Login requires a configured billing provider.")
			return nil
		}

		if err := app.Service.ChangeUser(cmd.Context(), args[0], loginEmail); err != nil {
			return err
		}
		app.SetCurrentUser(args[0], loginEmail)

		fmt.Fprintf(cmd.OutOrStdout(), "Active user: %s\n", args[0])
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear the active user",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.Service == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "Logout requires a configured billing provider.")
			return nil
		}

		if err := app.Service.ChangeUser(cmd.Context(), "", ""); err != nil {
			return err
		}
		app.SetCurrentUser("", "")

		fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "email for the billing provider customer")
	AddCommand(loginCmd)
	AddCommand(logoutCmd)
}
