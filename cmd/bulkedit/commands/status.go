package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// status <operation-id>: show operation progress.
func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <operation-id>",
		Short: "Show the state and counters of a bulk operation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var op struct {
				ID        string   `json:"id"`
				Status    string   `json:"status"`
				Total     int      `json:"totalNumOfRecords"`
				Processed int      `json:"processedNumOfRecords"`
				Matched   int      `json:"matchedNumOfRecords"`
				Errors    int      `json:"matchedNumOfErrors"`
				Warnings  int      `json:"matchedNumOfWarnings"`
				Tenants   []string `json:"usedTenants"`
				Message   string   `json:"errorMessage"`
			}
			if err := api.getJSON("/bulk-operations/"+args[0], &op); err != nil {
				return err
			}

			fmt.Printf("operation: %s\n", op.ID)
			fmt.Printf("status:    %s\n", op.Status)
			fmt.Printf("progress:  %d/%d processed, %d matched\n", op.Processed, op.Total, op.Matched)
			fmt.Printf("issues:    %d errors, %d warnings\n", op.Errors, op.Warnings)
			if len(op.Tenants) > 0 {
				fmt.Printf("tenants:   %v\n", op.Tenants)
			}
			if op.Message != "" {
				fmt.Printf("failure:   %s\n", op.Message)
			}
			return nil
		},
	}
}
