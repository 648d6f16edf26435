package record

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var deleteType string

var DeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a local record",
	Long: `Marks the record deleted. The tombstone is queued for upload like
any other edit, so the deletion propagates to the server on the next sync.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, recordType, err := repoFromContext(cmd, deleteType)
		if err != nil {
			return err
		}

		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid record id: %w", err)
		}

		env, _, err := repo.Get(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("load record: %w", err)
		}

		env.SoftDelete()
		if err := repo.Update(cmd.Context(), *env); err != nil {
			return fmt.Errorf("delete record: %w", err)
		}

		fmt.Printf("Deleted %s %s (tombstone queued for upload).\n", recordType, id)
		return nil
	},
}

func init() {
	DeleteCmd.Flags().StringVarP(&deleteType, "type", "t", "", "record type")
	DeleteCmd.MarkFlagRequired("type")
}
