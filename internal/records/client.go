// Package records fetches domain records from the per-tenant record
// services by identifier or query.
package records

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
	"github.com/JonMunkholm/bulkedit/internal/schema"
	"github.com/JonMunkholm/bulkedit/internal/tenant"
)

// ErrNoRecord reports an identifier the record service cannot match.
var ErrNoRecord = errors.New("no record found")

// ErrDuplicateMatch reports an identifier matching more than one record
// within a single tenant.
var ErrDuplicateMatch = errors.New("identifier matched more than one record")

// Client talks to the record services for all entity kinds.
type Client struct {
	http *http.Client
}

// NewClient creates a record-service client with the given call timeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{http: &http.Client{Timeout: timeout}}
}

// searchField maps an identifier type to the record field it matches.
func searchField(idType core.IdentifierType) (string, error) {
	switch idType {
	case core.IdentifierID:
		return "id", nil
	case core.IdentifierBarcode:
		return "barcode", nil
	case core.IdentifierHRID:
		return "hrid", nil
	case core.IdentifierFormerIDs:
		return "formerIds", nil
	case core.IdentifierAccessionNumber:
		return "accessionNumber", nil
	case core.IdentifierUsername:
		return "username", nil
	case core.IdentifierExternalID:
		return "externalSystemId", nil
	}
	return "", fmt.Errorf("unsupported identifier type %s", idType)
}

// FetchOne resolves a single record by identifier. Exactly one match is
// required: zero matches yields ErrNoRecord, several yield
// ErrDuplicateMatch. The returned value is the schema struct for the
// entity kind.
func (c *Client) FetchOne(ctx context.Context, tctx tenant.Context, kind core.EntityKind, idType core.IdentifierType, identifier string) (any, error) {
	field, err := searchField(idType)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("%s==%q", field, identifier)

	switch kind {
	case core.KindUser:
		coll, err := c.Users(ctx, tctx, query, 0, 2)
		if err != nil {
			return nil, err
		}
		return one(coll.Users, identifier)
	case core.KindItem:
		coll, err := c.Items(ctx, tctx, query, 0, 2)
		if err != nil {
			return nil, err
		}
		return one(coll.Items, identifier)
	case core.KindHoldings:
		coll, err := c.Holdings(ctx, tctx, query, 0, 2)
		if err != nil {
			return nil, err
		}
		return one(coll.HoldingsRecords, identifier)
	case core.KindInstance:
		coll, err := c.Instances(ctx, tctx, query, 0, 2)
		if err != nil {
			return nil, err
		}
		return one(coll.Instances, identifier)
	}
	return nil, fmt.Errorf("unsupported entity kind %s", kind)
}

func one[T any](matches []T, identifier string) (any, error) {
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrNoRecord, identifier)
	case 1:
		return matches[0], nil
	}
	return nil, fmt.Errorf("%w: %s", ErrDuplicateMatch, identifier)
}

// Users fetches a page of user records.
func (c *Client) Users(ctx context.Context, tctx tenant.Context, query string, offset, limit int) (schema.UserCollection, error) {
	var coll schema.UserCollection
	err := c.getJSON(ctx, tctx, "/users", query, offset, limit, &coll)
	return coll, err
}

// Items fetches a page of item records.
func (c *Client) Items(ctx context.Context, tctx tenant.Context, query string, offset, limit int) (schema.ItemCollection, error) {
	var coll schema.ItemCollection
	err := c.getJSON(ctx, tctx, "/item-storage/items", query, offset, limit, &coll)
	return coll, err
}

// Holdings fetches a page of holdings records.
func (c *Client) Holdings(ctx context.Context, tctx tenant.Context, query string, offset, limit int) (schema.HoldingsCollection, error) {
	var coll schema.HoldingsCollection
	err := c.getJSON(ctx, tctx, "/holdings-storage/holdings", query, offset, limit, &coll)
	return coll, err
}

// Instances fetches a page of instance records.
func (c *Client) Instances(ctx context.Context, tctx tenant.Context, query string, offset, limit int) (schema.InstanceCollection, error) {
	var coll schema.InstanceCollection
	err := c.getJSON(ctx, tctx, "/instance-storage/instances", query, offset, limit, &coll)
	return coll, err
}

func (c *Client) getJSON(ctx context.Context, tctx tenant.Context, path, query string, offset, limit int, out any) error {
	full := fmt.Sprintf("%s%s?query=%s&offset=%d&limit=%d",
		tctx.BaseURL, path, url.QueryEscape(query), offset, limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, full, nil)
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
		return fmt.Errorf("record service returned %d for %s", resp.StatusCode, path)
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
