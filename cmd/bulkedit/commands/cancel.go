package commands

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

// cancel <operation-id>: request cooperative cancellation.
func cancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <operation-id>",
		Short: "Request cancellation of a running bulk operation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := api.do(http.MethodPost, "/bulk-operations/"+args[0]+"/cancel", nil, "")
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode >= 400 {
				return apiError(resp)
			}
			fmt.Println("cancellation requested")
			return nil
		},
	}
}
