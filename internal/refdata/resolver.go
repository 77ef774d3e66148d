package refdata

// resolver.go wraps the reference-data client with a short-TTL cache
// and the non-fatal failure contract: an id that cannot be resolved is
// passed through unchanged, and the failure is reported through the
// operation error sink when one is supplied (commit mode). Preview
// calls pass a nil sink and persist nothing.

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/JonMunkholm/bulkedit/internal/core"
	"github.com/JonMunkholm/bulkedit/internal/tenant"
	gocache "github.com/patrickmn/go-cache"
)

// DefaultTTL bounds how long a resolved name is reused. Short enough to
// absorb bursts within one operation without staleness risk.
const DefaultTTL = 5 * time.Minute

// Resolver is the cached id -> display-name lookup shared by all
// entity adapters. Safe for concurrent use.
type Resolver struct {
	client *Client
	cache  *gocache.Cache
	ttl    time.Duration
}

// NewResolver creates a resolver over the given client.
func NewResolver(client *Client, ttl time.Duration) *Resolver {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Resolver{
		client: client,
		cache:  gocache.New(ttl, 2*ttl),
		ttl:    ttl,
	}
}

// Resolve maps a reference id to its display name.
//
// Empty id yields an empty string without a remote call. An id the
// remote service cannot resolve is returned unchanged so no data is
// dropped; when sink is non-nil the failure is additionally recorded
// against recordID (WARNING for a missing record, ERROR for an
// infrastructure failure). Resolve never returns an error.
func (r *Resolver) Resolve(ctx context.Context, tctx tenant.Context, kind Kind, id string, sink core.ErrorSink, recordID string) string {
	if id == "" {
		return ""
	}

	key := cacheKey(kind, tctx.TenantID, id)
	if name, ok := r.cache.Get(key); ok {
		return name.(string)
	}

	rec, err := r.client.GetByID(ctx, tctx, kind, id)
	if err != nil {
		if sink != nil {
			severity := core.SeverityError
			msg := kind.name + " lookup failed for " + id + ": " + err.Error()
			if errors.Is(err, ErrNotFound) {
				severity = core.SeverityWarning
				msg = kind.name + " not found: " + id
			}
			sink.Record(recordID, msg, severity)
		}
		return id
	}

	name := rec.DisplayName()
	r.cache.Set(key, name, r.ttl)
	return name
}

// ResolveAll resolves a list of ids, preserving order.
func (r *Resolver) ResolveAll(ctx context.Context, tctx tenant.Context, kind Kind, ids []string, sink core.ErrorSink, recordID string) []string {
	if len(ids) == 0 {
		return nil
	}
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = r.Resolve(ctx, tctx, kind, id, sink, recordID)
	}
	return names
}

// NoteTypeNames lists the note-type names active in the tenant for one
// entity kind. Used by the note consolidation processor, which merges
// catalogs across tenants in a consortial run.
func (r *Resolver) NoteTypeNames(ctx context.Context, tctx tenant.Context, kind Kind) ([]string, error) {
	records, _, err := r.client.GetByQuery(ctx, tctx, kind, "cql.allRecords=1", 0, 1000)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(records))
	for _, rec := range records {
		if n := rec.DisplayName(); n != "" {
			names = append(names, n)
		}
	}
	return names, nil
}

// Query exposes paginated reference lookups for adapter ByQuery paths.
func (r *Resolver) Query(ctx context.Context, tctx tenant.Context, kind Kind, query string, offset, limit int) ([]Record, int, error) {
	return r.client.GetByQuery(ctx, tctx, kind, query, offset, limit)
}

// InvalidateTenant drops every cached entry scoped to the tenant.
// Required before reusing the resolver after a mid-run tenant switch.
func (r *Resolver) InvalidateTenant(tenantID string) {
	marker := ":" + tenantID + ":"
	for key := range r.cache.Items() {
		if strings.Contains(key, marker) {
			r.cache.Delete(key)
		}
	}
}

func cacheKey(kind Kind, tenantID, id string) string {
	return kind.name + ":" + tenantID + ":" + id
}
