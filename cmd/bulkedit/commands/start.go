package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"

	"github.com/spf13/cobra"
)

// start <entity-type> <identifier-file>: schedule a bulk operation.
func startCmd() *cobra.Command {
	var (
		identifierType string
		rulesFile      string
	)

	cmd := &cobra.Command{
		Use:   "start <entity-type> <identifier-file>",
		Short: "Upload an identifier file and schedule a bulk operation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			entityType, path := args[0], args[1]

			file, err := os.Open(path)
			if err != nil {
				return err
			}
			defer file.Close()

			var body bytes.Buffer
			mw := multipart.NewWriter(&body)
			if err := mw.WriteField("entityType", entityType); err != nil {
				return err
			}
			if err := mw.WriteField("identifierType", identifierType); err != nil {
				return err
			}
			if rulesFile != "" {
				rules, err := os.ReadFile(rulesFile)
				if err != nil {
					return err
				}
				if err := mw.WriteField("rules", string(rules)); err != nil {
					return err
				}
			}
			part, err := mw.CreateFormFile("file", "identifiers.csv")
			if err != nil {
				return err
			}
			if _, err := io.Copy(part, file); err != nil {
				return err
			}
			if err := mw.Close(); err != nil {
				return err
			}

			resp, err := api.do(http.MethodPost, "/bulk-operations", &body, mw.FormDataContentType())
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode >= 400 {
				return apiError(resp)
			}

			var op struct {
				ID     string `json:"id"`
				Status string `json:"status"`
				Total  int    `json:"totalNumOfRecords"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&op); err != nil {
				return err
			}
			fmt.Printf("operation %s scheduled (%d records)\n", op.ID, op.Total)
			return nil
		},
	}

	cmd.Flags().StringVar(&identifierType, "identifier-type", "ID", "identifier field: ID, BARCODE, HRID, FORMER_IDS, ACCESSION_NUMBER, USERNAME, EXTERNAL_SYSTEM_ID")
	cmd.Flags().StringVar(&rulesFile, "rules", "", "JSON file with patch rules to apply")
	return cmd
}
