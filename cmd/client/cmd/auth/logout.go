package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var LogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out and reset sync progress",
	Long: `Revokes the server session and clears every pull cursor, so the
next login starts from a clean initial pull. Local records stay on disk.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := appFromContext(cmd)
		if err != nil {
			return err
		}
		if !app.IsAuthenticated() {
			fmt.Println("Not logged in.")
			return nil
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		if err := app.Logout(ctx); err != nil {
			return fmt.Errorf("logout failed: %w", err)
		}
		fmt.Println("Logged out.")
		return nil
	},
}
