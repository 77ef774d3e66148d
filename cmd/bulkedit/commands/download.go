package commands

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"
)

// download <operation-id>: fetch the consolidated matched-records CSV.
func downloadCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "download <operation-id>",
		Short: "Download the matched-records CSV of a finished operation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := api.do(http.MethodGet, "/bulk-operations/"+args[0]+"/download", nil, "")
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode >= 400 {
				return apiError(resp)
			}

			out := os.Stdout
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			n, err := io.Copy(out, resp.Body)
			if err != nil {
				return err
			}
			if output != "" {
				fmt.Printf("wrote %d bytes to %s\n", n, output)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write the CSV to a file instead of stdout")
	return cmd
}
