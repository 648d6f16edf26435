package auth

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"medisync/cmd/client/cmd/types"
	"medisync/internal/app/client"
)

// AuthCmd is the parent command for account operations.
var AuthCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the server account",
	Long:  `Register, log in, and log out of the reconciliation server.`,
}

func appFromContext(cmd *cobra.Command) (*client.App, error) {
	app, ok := cmd.Context().Value(types.ClientAppKey).(*client.App)
	if !ok || app == nil {
		return nil, fmt.Errorf("application is not initialized")
	}
	return app, nil
}

func promptCredentials() (email, password string, err error) {
	fmt.Print("Email: ")
	if _, err := fmt.Scanln(&email); err != nil {
		return "", "", fmt.Errorf("read email: %w", err)
	}

	fmt.Print("Password: ")
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", "", fmt.Errorf("read password: %w", err)
	}
	return email, string(raw), nil
}
