// Package refdata resolves reference-data ids (locations, note types,
// statistical codes, ...) into display names against per-tenant remote
// metadata services.
//
// Lookups are cached with a short TTL so bursts within one operation
// hit the remote service once per id, and failures surface as WARNING
// entries in the operation error log instead of aborting a conversion.
package refdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/JonMunkholm/bulkedit/internal/tenant"
)

// ErrNotFound reports a reference id the remote service does not know.
var ErrNotFound = errors.New("reference record not found")

// Kind identifies one remote reference-data catalog.
type Kind struct {
	name    string // cache namespace
	path    string // remote service base path
	collKey string // array key in get-by-query responses
}

// Name returns the catalog name, used for cache keys and log fields.
func (k Kind) Name() string { return k.name }

// The reference catalogs the entity adapters resolve against.
var (
	Locations         = Kind{"locations", "/locations", "locations"}
	ItemNoteTypes     = Kind{"item-note-types", "/item-note-types", "itemNoteTypes"}
	HoldingsNoteTypes = Kind{"holdings-note-types", "/holdings-note-types", "holdingsNoteTypes"}
	InstanceNoteTypes = Kind{"instance-note-types", "/instance-note-types", "instanceNoteTypes"}
	StatisticalCodes  = Kind{"statistical-codes", "/statistical-codes", "statisticalCodes"}
	CallNumberTypes   = Kind{"call-number-types", "/call-number-types", "callNumberTypes"}
	DamagedStatuses   = Kind{"item-damaged-statuses", "/item-damaged-statuses", "itemDamageStatuses"}
	ServicePoints     = Kind{"service-points", "/service-points", "servicepoints"}
	Departments       = Kind{"departments", "/departments", "departments"}
	PatronGroups      = Kind{"patron-groups", "/groups", "usergroups"}
	CustomFields      = Kind{"custom-fields", "/custom-fields", "customFields"}
	LoanTypes         = Kind{"loan-types", "/loan-types", "loantypes"}
	MaterialTypes     = Kind{"material-types", "/material-types", "mtypes"}
)

// Record is one reference record as returned by the remote services.
// Patron groups name themselves under "group" instead of "name".
type Record struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Group string `json:"group"`
}

// DisplayName returns the human-readable name of the record.
func (r Record) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	return r.Group
}

// HTTPError carries the upstream status so infrastructure failures can
// be told apart from content failures during triage.
type HTTPError struct {
	Status int
	Path   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("remote service returned %d for %s", e.Status, e.Path)
}

// Client talks to the per-tenant reference-data services.
type Client struct {
	http *http.Client
}

// NewClient creates a reference-data client with the given call timeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{http: &http.Client{Timeout: timeout}}
}

// GetByID fetches one reference record by id.
func (c *Client) GetByID(ctx context.Context, tctx tenant.Context, kind Kind, id string) (Record, error) {
	var rec Record
	err := c.getJSON(ctx, tctx, kind.path+"/"+url.PathEscape(id), &rec)
	return rec, err
}

// GetByQuery fetches a page of reference records matching a query.
func (c *Client) GetByQuery(ctx context.Context, tctx tenant.Context, kind Kind, query string, offset, limit int) ([]Record, int, error) {
	path := fmt.Sprintf("%s?query=%s&offset=%d&limit=%d", kind.path, url.QueryEscape(query), offset, limit)

	raw := map[string]json.RawMessage{}
	if err := c.getJSON(ctx, tctx, path, &raw); err != nil {
		return nil, 0, err
	}

	var total int
	if tr, ok := raw["totalRecords"]; ok {
		_ = json.Unmarshal(tr, &total)
	}
	var records []Record
	if coll, ok := raw[kind.collKey]; ok {
		if err := json.Unmarshal(coll, &records); err != nil {
			return nil, 0, fmt.Errorf("decode %s collection: %w", kind.name, err)
		}
	}
	return records, total, nil
}

// getJSON performs an authenticated GET against the tenant's base URL.
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

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode >= 400:
		return &HTTPError{Status: resp.StatusCode, Path: path}
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
