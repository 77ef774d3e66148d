// Package consortia resolves consortium topology: which tenant is the
// central one, which member tenants a user is affiliated with, and
// which member tenant owns a given record identifier.
package consortia

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/JonMunkholm/bulkedit/internal/core"
	"github.com/JonMunkholm/bulkedit/internal/tenant"
)

// Client talks to the consortium configuration and search services.
type Client struct {
	http *http.Client
}

// NewClient creates a consortia client with the given call timeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{http: &http.Client{Timeout: timeout}}
}

// CentralTenant returns the consortium's central tenant id, or an empty
// string for a non-consortial deployment.
func (c *Client) CentralTenant(ctx context.Context, tctx tenant.Context) (string, error) {
	var body struct {
		CentralTenantID string `json:"centralTenantId"`
	}
	err := c.getJSON(ctx, tctx, "/consortia-configuration", &body)
	if err != nil {
		// Standalone deployments do not mount the consortia module.
		var httpErr *statusError
		if errors.As(err, &httpErr) && httpErr.status == http.StatusNotFound {
			return "", nil
		}
		return "", err
	}
	return body.CentralTenantID, nil
}

// IsCentral reports whether the acting tenant is the consortium's
// central tenant. False for standalone deployments.
func (c *Client) IsCentral(ctx context.Context, tctx tenant.Context) (bool, error) {
	central, err := c.CentralTenant(ctx, tctx)
	if err != nil {
		return false, err
	}
	return central != "" && central == tctx.TenantID, nil
}

// UserTenants returns the tenant ids the user is affiliated with.
func (c *Client) UserTenants(ctx context.Context, tctx tenant.Context, userID string) ([]string, error) {
	var body struct {
		UserTenants []struct {
			TenantID string `json:"tenantId"`
		} `json:"userTenants"`
	}
	path := "/user-tenants?userId=" + url.QueryEscape(userID) + "&limit=1000"
	if err := c.getJSON(ctx, tctx, path, &body); err != nil {
		return nil, err
	}
	tenants := make([]string, 0, len(body.UserTenants))
	for _, ut := range body.UserTenants {
		tenants = append(tenants, ut.TenantID)
	}
	return tenants, nil
}

// OwningTenants searches the consortium for the member tenants holding
// a record with the given identifier. More than one hit means the
// identifier is ambiguous across the consortium.
func (c *Client) OwningTenants(ctx context.Context, tctx tenant.Context, kind core.EntityKind, idType core.IdentifierType, identifier string) ([]string, error) {
	var resource string
	switch kind {
	case core.KindItem:
		resource = "/search/consortium/items"
	case core.KindHoldings:
		resource = "/search/consortium/holdings"
	default:
		return []string{tctx.TenantID}, nil
	}

	path := fmt.Sprintf("%s?identifierType=%s&identifier=%s",
		resource, url.QueryEscape(string(idType)), url.QueryEscape(identifier))

	var body struct {
		Holdings []ownedRecord `json:"holdings"`
		Items    []ownedRecord `json:"items"`
	}
	if err := c.getJSON(ctx, tctx, path, &body); err != nil {
		return nil, err
	}

	records := body.Items
	if kind == core.KindHoldings {
		records = body.Holdings
	}
	seen := make(map[string]bool, len(records))
	tenants := make([]string, 0, len(records))
	for _, rec := range records {
		if rec.TenantID != "" && !seen[rec.TenantID] {
			seen[rec.TenantID] = true
			tenants = append(tenants, rec.TenantID)
		}
	}
	return tenants, nil
}

// TenantName resolves a tenant id to its display name. Falls back to
// the id itself so exports never lose the tenant column value.
func (c *Client) TenantName(ctx context.Context, tctx tenant.Context, tenantID string) string {
	var body struct {
		Name string `json:"name"`
	}
	path := "/consortia/tenants/" + url.PathEscape(tenantID)
	if err := c.getJSON(ctx, tctx, path, &body); err != nil || body.Name == "" {
		return tenantID
	}
	return body.Name
}

type ownedRecord struct {
	ID       string `json:"id"`
	TenantID string `json:"tenantId"`
}

type statusError struct {
	status int
	path   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("consortia service returned %d for %s", e.status, e.path)
}

func (c *Client) getJSON(ctx context.Context, tctx tenant.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tctx.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Tenant", tctx.TenantID)
	if tctx.Token != "" {
		req.Header.Set("Authorization", "Bearer "+tctx.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &statusError{status: resp.StatusCode, path: path}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
