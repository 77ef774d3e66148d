package core

// stores.go declares the persistence and collaborator contracts the
// pipeline depends on. Implementations live in internal/database and
// the remote-service client packages; tests substitute in-memory
// fakes.

import (
	"context"

	"github.com/JonMunkholm/bulkedit/internal/tenant"
	"github.com/google/uuid"
)

// OperationStore persists the BulkOperation aggregate.
type OperationStore interface {
	Insert(ctx context.Context, op BulkOperation) error
	Get(ctx context.Context, id uuid.UUID) (BulkOperation, error)

	// TransitionStatus moves the operation to next, guarded so a
	// terminal state is never regressed. errorMessage is persisted
	// only for failure transitions.
	TransitionStatus(ctx context.Context, id uuid.UUID, next OperationStatus, errorMessage string) error

	// UpdateCounters persists phase counters. Counters are
	// monotonically non-decreasing; the store must not let a late
	// write lower a counter.
	UpdateCounters(ctx context.Context, id uuid.UUID, total, processed, matched, errs, warnings int) error

	SetMatchedCSVLink(ctx context.Context, id uuid.UUID, link string) error
	SetUsedTenants(ctx context.Context, id uuid.UUID, tenants []string) error
}

// ErrorStore persists the append-only per-record error log.
type ErrorStore interface {
	Insert(ctx context.Context, e BulkOperationError) error
	Page(ctx context.Context, opID uuid.UUID, limit, offset int) ([]BulkOperationError, int, error)
}

// ChunkStore persists per-chunk execution bookkeeping.
type ChunkStore interface {
	Insert(ctx context.Context, chunk ExecutionChunk) error
	Update(ctx context.Context, id uuid.UUID, state ChunkState, failureReason string) error
}

// RecordFetcher resolves one identifier to its domain record.
type RecordFetcher interface {
	FetchOne(ctx context.Context, tctx tenant.Context, kind EntityKind, idType IdentifierType, identifier string) (any, error)
}

// AccessValidator gates record access and resolves the owning tenant.
type AccessValidator interface {
	ValidateWrite(ctx context.Context, tctx tenant.Context, kind EntityKind, idType IdentifierType, identifier string) (string, error)
	ValidateRead(ctx context.Context, tctx tenant.Context, kind EntityKind, idType IdentifierType, identifier string) (string, error)
}
