package auth

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var RegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a server account",
	Long: `Registers a new account on the reconciliation server and opens a
session. Records created before registering are kept and uploaded on the
first sync.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := appFromContext(cmd)
		if err != nil {
			return err
		}

		email, password, err := promptCredentials()
		if err != nil {
			return err
		}

		fmt.Print("Repeat password: ")
		confirm, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		if password != string(confirm) {
			return fmt.Errorf("passwords do not match")
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		if err := app.Register(ctx, email, password); err != nil {
			return fmt.Errorf("registration failed: %w", err)
		}

		fmt.Println("Account created, session opened.")
		return nil
	},
}
