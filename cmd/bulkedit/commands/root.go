// Package commands implements the bulkedit CLI, a thin client for the
// bulk-operations HTTP API.
package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	tenantID  string
	userID    string
	token     string

	api *apiClient
)

func Execute() error {
	root := &cobra.Command{
		Use:           "bulkedit",
		Short:         "Drive bulk record-edit operations from the command line",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if tenantID == "" {
				return fmt.Errorf("tenant required (--tenant)")
			}
			api = &apiClient{
				base:   serverURL,
				tenant: tenantID,
				user:   userID,
				token:  token,
				http:   &http.Client{Timeout: 2 * time.Minute},
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&serverURL, "server", "http://127.0.0.1:8080", "bulk-edit server base URL")
	root.PersistentFlags().StringVar(&tenantID, "tenant", "", "tenant to act in")
	root.PersistentFlags().StringVar(&userID, "user", "", "acting user id")
	root.PersistentFlags().StringVar(&token, "token", "", "bearer token for remote services")

	root.AddCommand(startCmd(), statusCmd(), errorsCmd(), cancelCmd(), downloadCmd())
	return root.Execute()
}

// apiClient wraps the HTTP API with the identity headers every call needs.
type apiClient struct {
	base   string
	tenant string
	user   string
	token  string
	http   *http.Client
}

func (c *apiClient) do(method, path string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequest(method, c.base+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Tenant", c.tenant)
	if c.user != "" {
		req.Header.Set("X-User-Id", c.user)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return c.http.Do(req)
}

// getJSON performs a GET and decodes the response body into out,
// surfacing API error payloads as readable errors.
func (c *apiClient) getJSON(path string, out any) error {
	resp, err := c.do(http.MethodGet, path, nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return apiError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func apiError(resp *http.Response) error {
	var payload struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil && payload.Message != "" {
		return fmt.Errorf("%s (%s)", payload.Message, payload.Code)
	}
	return fmt.Errorf("server returned %s", resp.Status)
}
