package record

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var listType string

const payloadPreviewLen = 60

var ListCmd = &cobra.Command{
	Use:   "list",
	Short: "List local records of one type",
	RunE: func(cmd *cobra.Command, _ []string) error {
		repo, recordType, err := repoFromContext(cmd, listType)
		if err != nil {
			return err
		}

		records, statuses, err := repo.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("list records: %w", err)
		}
		if len(records) == 0 {
			fmt.Printf("No %s records.\n", recordType)
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tPATIENT\tUPDATED\tSTATUS\tPAYLOAD")
		for i, rec := range records {
			payload := string(rec.Payload)
			if len(payload) > payloadPreviewLen {
				payload = payload[:payloadPreviewLen] + "..."
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				rec.ID, rec.PatientID,
				rec.UpdatedAt.Format("2006-01-02 15:04"),
				colorStatus(statuses[i]), payload)
		}
		return w.Flush()
	},
}

func init() {
	ListCmd.Flags().StringVarP(&listType, "type", "t", "", "record type")
	ListCmd.MarkFlagRequired("type")
}
