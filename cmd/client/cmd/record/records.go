package record

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"medisync/cmd/client/cmd/types"
	"medisync/internal/app/client"
	"medisync/internal/domain/record"
	"medisync/internal/sync"
)

// RecordCmd is the parent command for local record operations.
var RecordCmd = &cobra.Command{
	Use:   "record",
	Short: "Manage local clinical records",
	Long: `Create, list, and delete clinical records in the local database.
Every change is queued for upload and reaches the server on the next sync.

Known record types: ` + strings.Join(typeNames(), ", ") + `.`,
}

func typeNames() []string {
	var names []string
	for _, t := range record.Types() {
		names = append(names, string(t))
	}
	return names
}

func appFromContext(cmd *cobra.Command) (*client.App, error) {
	app, ok := cmd.Context().Value(types.ClientAppKey).(*client.App)
	if !ok || app == nil {
		return nil, fmt.Errorf("application is not initialized")
	}
	return app, nil
}

func repoFromContext(cmd *cobra.Command, rawType string) (*client.RecordRepository, record.Type, error) {
	app, err := appFromContext(cmd)
	if err != nil {
		return nil, "", err
	}
	recordType, err := record.ParseType(rawType)
	if err != nil {
		return nil, "", fmt.Errorf("%w (known: %s)", err, strings.Join(typeNames(), ", "))
	}
	repo, err := app.Repository(recordType)
	if err != nil {
		return nil, "", err
	}
	return repo, recordType, nil
}

func colorStatus(status sync.Status) string {
	switch status {
	case sync.StatusDone:
		return color.GreenString(string(status))
	case sync.StatusPending, sync.StatusInFlight:
		return color.YellowString(string(status))
	case sync.StatusInvalid:
		return color.RedString(string(status))
	default:
		return string(status)
	}
}
