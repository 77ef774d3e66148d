package refdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/JonMunkholm/bulkedit/internal/core"
	"github.com/JonMunkholm/bulkedit/internal/tenant"
)

type recordedError struct {
	identifier string
	message    string
	severity   core.Severity
}

type captureSink struct {
	records []recordedError
}

func (s *captureSink) Record(identifier, message string, severity core.Severity) {
	s.records = append(s.records, recordedError{identifier, message, severity})
}

func newTestResolver(t *testing.T, handler http.HandlerFunc) (*Resolver, tenant.Context) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	resolver := NewResolver(NewClient(5*time.Second), time.Minute)
	tctx := tenant.Context{TenantID: "diku", UserID: "u1", BaseURL: srv.URL}
	return resolver, tctx
}

func TestResolve_CachesWithinTTL(t *testing.T) {
	var calls atomic.Int32
	resolver, tctx := newTestResolver(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/locations/loc-1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("X-Tenant"); got != "diku" {
			t.Errorf("X-Tenant = %q, want diku", got)
		}
		w.Write([]byte(`{"id":"loc-1","name":"Main Library"}`))
	})

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if got := resolver.Resolve(ctx, tctx, Locations, "loc-1", nil, "rec"); got != "Main Library" {
			t.Fatalf("Resolve() = %q, want Main Library", got)
		}
	}

	if got := calls.Load(); got != 1 {
		t.Errorf("remote calls = %d, want 1 within TTL", got)
	}
}

func TestResolve_NotFoundPassesThroughWithWarning(t *testing.T) {
	resolver, tctx := newTestResolver(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	sink := &captureSink{}
	got := resolver.Resolve(context.Background(), tctx, Locations, "loc-missing", sink, "barcode-1")

	if got != "loc-missing" {
		t.Errorf("Resolve() = %q, want raw id passthrough", got)
	}
	if len(sink.records) != 1 {
		t.Fatalf("sink records = %d, want 1", len(sink.records))
	}
	if sink.records[0].severity != core.SeverityWarning {
		t.Errorf("severity = %s, want WARNING", sink.records[0].severity)
	}
	if sink.records[0].identifier != "barcode-1" {
		t.Errorf("identifier = %q, want barcode-1", sink.records[0].identifier)
	}
}

func TestResolve_InfrastructureFailureIsError(t *testing.T) {
	resolver, tctx := newTestResolver(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	sink := &captureSink{}
	got := resolver.Resolve(context.Background(), tctx, Locations, "loc-1", sink, "barcode-1")

	if got != "loc-1" {
		t.Errorf("Resolve() = %q, want raw id passthrough", got)
	}
	if len(sink.records) != 1 {
		t.Fatalf("sink records = %d, want 1", len(sink.records))
	}
	if sink.records[0].severity != core.SeverityError {
		t.Errorf("severity = %s, want ERROR for a 5xx", sink.records[0].severity)
	}
}

func TestResolve_NilSinkPersistsNothing(t *testing.T) {
	resolver, tctx := newTestResolver(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	// Preview mode: no sink, still degrades to the raw id.
	if got := resolver.Resolve(context.Background(), tctx, Locations, "x", nil, "rec"); got != "x" {
		t.Errorf("Resolve() = %q, want x", got)
	}
}

func TestResolve_EmptyIDNeedsNoRemoteCall(t *testing.T) {
	var calls atomic.Int32
	resolver, tctx := newTestResolver(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	if got := resolver.Resolve(context.Background(), tctx, Locations, "", nil, "rec"); got != "" {
		t.Errorf("Resolve(empty) = %q, want empty", got)
	}
	if calls.Load() != 0 {
		t.Errorf("remote calls = %d, want 0", calls.Load())
	}
}

func TestResolve_CacheIsTenantScoped(t *testing.T) {
	resolver, tctx := newTestResolver(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Tenant") == "member-a" {
			w.Write([]byte(`{"id":"loc-1","name":"Member A Stacks"}`))
			return
		}
		w.Write([]byte(`{"id":"loc-1","name":"Central Stacks"}`))
	})

	ctx := context.Background()
	if got := resolver.Resolve(ctx, tctx, Locations, "loc-1", nil, "rec"); got != "Central Stacks" {
		t.Fatalf("central resolve = %q", got)
	}

	member := tctx.With("member-a")
	if got := resolver.Resolve(ctx, member, Locations, "loc-1", nil, "rec"); got != "Member A Stacks" {
		t.Errorf("member resolve = %q, want Member A Stacks (not the central cache entry)", got)
	}
}

func TestInvalidateTenant(t *testing.T) {
	var calls atomic.Int32
	resolver, tctx := newTestResolver(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"id":"loc-1","name":"Main Library"}`))
	})

	ctx := context.Background()
	resolver.Resolve(ctx, tctx, Locations, "loc-1", nil, "rec")
	resolver.InvalidateTenant("diku")
	resolver.Resolve(ctx, tctx, Locations, "loc-1", nil, "rec")

	if got := calls.Load(); got != 2 {
		t.Errorf("remote calls = %d, want 2 after invalidation", got)
	}
}

func TestNoteTypeNames(t *testing.T) {
	resolver, tctx := newTestResolver(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/item-note-types" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"itemNoteTypes":[{"id":"1","name":"Action note"},{"id":"2","name":"Note"}],"totalRecords":2}`))
	})

	names, err := resolver.NoteTypeNames(context.Background(), tctx, ItemNoteTypes)
	if err != nil {
		t.Fatalf("NoteTypeNames() error = %v", err)
	}
	if len(names) != 2 || names[0] != "Action note" || names[1] != "Note" {
		t.Errorf("NoteTypeNames() = %v", names)
	}
}
