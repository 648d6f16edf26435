package record

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"medisync/internal/domain/record"
)

var (
	addType    string
	addPatient string
	addData    string
)

var AddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a record to the local database",
	Long: `Stores a new record locally. The payload is validated before it is
saved, so a record that would be rejected by the server never enters the
upload queue.

Example:
  medisync record add --type blood_pressure --patient 6e1f... \
      --data '{"systolic":120,"diastolic":80,"recorded_at":"2026-08-30T09:00:00Z"}'`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		repo, recordType, err := repoFromContext(cmd, addType)
		if err != nil {
			return err
		}

		patientID, err := uuid.Parse(addPatient)
		if err != nil {
			return fmt.Errorf("invalid patient id: %w", err)
		}
		if !json.Valid([]byte(addData)) {
			return fmt.Errorf("--data is not valid JSON")
		}
		if field, msg, ok := record.ValidatePayload(recordType, []byte(addData)); !ok {
			return fmt.Errorf("invalid payload: %s: %s", field, msg)
		}

		env, err := record.NewEnvelope(patientID, json.RawMessage(addData))
		if err != nil {
			return fmt.Errorf("build record: %w", err)
		}
		if err := repo.Save(cmd.Context(), env); err != nil {
			return fmt.Errorf("save record: %w", err)
		}

		fmt.Printf("Saved %s %s (queued for upload).\n", recordType, env.ID)
		return nil
	},
}

func init() {
	AddCmd.Flags().StringVarP(&addType, "type", "t", "", "record type")
	AddCmd.Flags().StringVarP(&addPatient, "patient", "p", "", "patient id (UUID)")
	AddCmd.Flags().StringVarP(&addData, "data", "d", "", "record payload as JSON")
	AddCmd.MarkFlagRequired("type")
	AddCmd.MarkFlagRequired("patient")
	AddCmd.MarkFlagRequired("data")
}
