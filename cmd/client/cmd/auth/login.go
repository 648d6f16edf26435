package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var LoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to the server",
	Long: `Authenticates against the reconciliation server and stores the
session token locally. After login the full sync runs once, so the local
database catches up immediately.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := appFromContext(cmd)
		if err != nil {
			return err
		}

		email, password, err := promptCredentials()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		if err := app.Login(ctx, email, password); err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
		fmt.Println("Logged in.")

		fmt.Println("Synchronizing records...")
		if result, err := app.SyncAll(cmd.Context()); err != nil {
			fmt.Printf("Warning: sync finished with errors: %v\n", err)
			fmt.Println("You can keep working offline; pending records upload on the next sync.")
		} else {
			fmt.Printf("Synchronized: %d uploaded, %d downloaded.\n",
				result.Uploaded, result.Downloaded)
		}
		return nil
	},
}
