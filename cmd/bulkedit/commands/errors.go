package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// errors <operation-id>: page through the operation error log.
func errorsCmd() *cobra.Command {
	var (
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:   "errors <operation-id>",
		Short: "List the error log of a bulk operation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var page struct {
				Errors []struct {
					Identifier string `json:"identifier"`
					Message    string `json:"message"`
					Severity   string `json:"type"`
				} `json:"errors"`
				TotalRecords int `json:"totalRecords"`
			}
			path := fmt.Sprintf("/bulk-operations/%s/errors?limit=%d&offset=%d", args[0], limit, offset)
			if err := api.getJSON(path, &page); err != nil {
				return err
			}

			if page.TotalRecords == 0 {
				fmt.Println("no errors recorded")
				return nil
			}
			for _, e := range page.Errors {
				fmt.Printf("%-7s %s: %s\n", e.Severity, e.Identifier, e.Message)
			}
			fmt.Printf("showing %d of %d\n", len(page.Errors), page.TotalRecords)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "entries per page")
	cmd.Flags().IntVar(&offset, "offset", 0, "entries to skip")
	return cmd
}
