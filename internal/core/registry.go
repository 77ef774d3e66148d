package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/JonMunkholm/bulkedit/internal/tenant"
)

// EntityAdapter converts domain records of one entity kind into the
// unified table form. Implementations live in core/adapters and are
// registered once at startup; dispatch is by EntityKind, no reflection.
type EntityAdapter interface {
	// Kind returns the entity kind this adapter handles.
	Kind() EntityKind

	// Header returns the canonical column order for this kind.
	Header() []Cell

	// Convert turns one fetched record into a single-row unified table.
	// sink receives non-fatal reference-resolution failures; a nil sink
	// means preview mode and nothing is persisted. idType selects the
	// human-facing identifier used for error attribution only.
	Convert(ctx context.Context, tctx tenant.Context, entity any, sink ErrorSink, idType IdentifierType) (*UnifiedTable, error)

	// ByQuery maps a remote paginated result set into a unified table
	// with no error attribution. An empty result set yields a
	// header-only table.
	ByQuery(ctx context.Context, tctx tenant.Context, query string, offset, limit int) (*UnifiedTable, error)

	// Identifier computes the human-facing identifier string for a
	// record per the identifier type. Used for error attribution,
	// never for lookups.
	Identifier(entity any, idType IdentifierType) string
}

// Registry holds one adapter per entity kind. It is built once at
// startup and read-only afterwards; the mutex only guards misuse
// during wiring.
type Registry struct {
	mu       sync.RWMutex
	adapters map[EntityKind]EntityAdapter
}

// NewRegistry returns an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[EntityKind]EntityAdapter)}
}

// Register adds an adapter. Panics if the kind is already registered;
// double registration is always a wiring bug.
func (r *Registry) Register(a EntityAdapter) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.adapters[a.Kind()]; exists {
		panic(fmt.Sprintf("adapter already registered: %s", a.Kind()))
	}
	r.adapters[a.Kind()] = a
}

// Get returns the adapter for a kind. Returns false if not registered.
func (r *Registry) Get(kind EntityKind) (EntityAdapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.adapters[kind]
	return a, ok
}

// Kinds returns the registered entity kinds in stable order.
func (r *Registry) Kinds() []EntityKind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ordered := []EntityKind{KindUser, KindItem, KindHoldings, KindInstance}
	result := make([]EntityKind, 0, len(r.adapters))
	for _, k := range ordered {
		if _, ok := r.adapters[k]; ok {
			result = append(result, k)
		}
	}
	return result
}
