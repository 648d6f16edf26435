package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"medisync/cmd/client/cmd/types"
	"medisync/internal/app/client"
	"medisync/internal/domain/record"
	syncengine "medisync/internal/sync"
)

var (
	syncType   string
	pushOnly   bool
	pullOnly   bool
	showStatus bool
	watch      bool
)

var SyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronize records with the server",
	Long: `Pushes locally changed records to the server and pulls server-side
changes into the local database. Without flags every record type is synced
once, in both directions.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, ok := cmd.Context().Value(types.ClientAppKey).(*client.App)
		if !ok || app == nil {
			return fmt.Errorf("application is not initialized")
		}

		if showStatus {
			return printStatus(cmd.Context(), app)
		}

		if !app.IsAuthenticated() {
			return fmt.Errorf("authentication required, run: medisync auth login")
		}

		if watch {
			fmt.Println("Auto-sync running, press Ctrl+C to stop.")
			return app.StartAutoSync(cmd.Context())
		}

		if syncType != "" {
			return syncOne(cmd.Context(), app)
		}

		result, err := app.SyncAll(cmd.Context())
		printResult(result)
		return err
	},
}

func syncOne(ctx context.Context, app *client.App) error {
	recordType, err := record.ParseType(syncType)
	if err != nil {
		return err
	}
	syncer, err := app.SyncerFor(recordType)
	if err != nil {
		return err
	}

	var result *syncengine.Result
	switch {
	case pushOnly:
		result, err = syncer.Push(ctx)
	case pullOnly:
		result, err = syncer.Pull(ctx)
	default:
		result, err = syncer.Sync(ctx)
	}
	printResult(result)
	return err
}

func printResult(result *syncengine.Result) {
	if result == nil {
		return
	}

	fmt.Println()
	color.Green("Sync finished in %v", result.Duration.Round(time.Millisecond))
	fmt.Printf("  Uploaded:   %d records\n", result.Uploaded)
	fmt.Printf("  Downloaded: %d records (%d pages)\n", result.Downloaded, result.Pages)

	if result.Rejected > 0 {
		color.Red("  Rejected:   %d records", result.Rejected)
		for i, rej := range result.Rejections {
			if i == 3 {
				fmt.Printf("    ... and %d more\n", len(result.Rejections)-3)
				break
			}
			fmt.Printf("    %s: %s: %s\n", rej.ID, rej.Field, rej.Message)
		}
		fmt.Println("  Rejected records are kept locally and excluded from future uploads.")
	}
}

func printStatus(ctx context.Context, app *client.App) error {
	fmt.Println("Sync status")

	pending, err := app.PendingTotal(ctx)
	if err != nil {
		return fmt.Errorf("count pending records: %w", err)
	}
	fmt.Printf("  Pending upload: %d records\n", pending)

	fmt.Print("  Server: ")
	if err := app.CheckConnection(ctx); err != nil {
		color.Red("unreachable (%v)", err)
	} else {
		color.Green("reachable")
	}

	fmt.Print("  Session: ")
	if app.IsAuthenticated() {
		color.Green("active")
	} else {
		color.Yellow("not logged in")
	}
	return nil
}

func init() {
	SyncCmd.Flags().StringVarP(&syncType, "type", "t", "", "sync only this record type")
	SyncCmd.Flags().BoolVar(&pushOnly, "push", false, "push only (requires --type)")
	SyncCmd.Flags().BoolVar(&pullOnly, "pull", false, "pull only (requires --type)")
	SyncCmd.Flags().BoolVar(&showStatus, "status", false, "show sync status and exit")
	SyncCmd.Flags().BoolVar(&watch, "watch", false, "keep running and sync on schedule")
	SyncCmd.MarkFlagsMutuallyExclusive("push", "pull")
}
