package core

// pipeline.go drives chunks of an identifier stream through
// validate -> fetch -> adapt/patch. Any stage failure skips only that
// record: the skip handler appends one error-log row and the shared
// processed counter advances exactly once per attempted record,
// whether or not error persistence succeeds.

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/JonMunkholm/bulkedit/internal/tenant"
	"github.com/google/uuid"
)

// operationHandle is the in-memory state of one running operation.
type operationHandle struct {
	id        uuid.UUID
	cancelFn  context.CancelFunc
	cancelled atomic.Bool

	processed atomic.Int64
	matched   atomic.Int64
	errCount  atomic.Int64
	warnCount atomic.Int64

	mu          sync.Mutex
	table       *UnifiedTable
	usedTenants map[string]struct{}

	done       chan struct{}
	finishedAt atomic.Int64 // unix seconds, 0 while running
}

func newOperationHandle(id uuid.UUID, header []Cell, cancel context.CancelFunc) *operationHandle {
	return &operationHandle{
		id:          id,
		cancelFn:    cancel,
		table:       NewUnifiedTable(header),
		usedTenants: make(map[string]struct{}),
		done:        make(chan struct{}),
	}
}

func (h *operationHandle) appendRows(rows *UnifiedTable) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.table.Append(rows)
}

func (h *operationHandle) addTenant(tenantID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.usedTenants[tenantID] = struct{}{}
}

func (h *operationHandle) tenants() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.usedTenants))
	for t := range h.usedTenants {
		out = append(out, t)
	}
	return out
}

func (h *operationHandle) snapshot() *UnifiedTable {
	h.mu.Lock()
	defer h.mu.Unlock()
	copied := NewUnifiedTable(h.table.Header)
	copied.Rows = append(copied.Rows, h.table.Rows...)
	return copied
}

// storeSink persists error-log rows. Persistence failure is logged and
// swallowed: the error log is best-effort, the counters are not.
type storeSink struct {
	ctx   context.Context
	store ErrorStore
	opID  uuid.UUID
}

// NewErrorSink returns a sink that appends to the operation error log.
func NewErrorSink(ctx context.Context, store ErrorStore, opID uuid.UUID) ErrorSink {
	return &storeSink{ctx: ctx, store: store, opID: opID}
}

func (s *storeSink) Record(identifier, message string, severity Severity) {
	e := BulkOperationError{
		ID:              uuid.New(),
		BulkOperationID: s.opID,
		Identifier:      identifier,
		Message:         SanitizeMessage(message),
		Severity:        severity,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.store.Insert(s.ctx, e); err != nil {
		slog.Error("persist operation error",
			"operation_id", s.opID, "identifier", identifier, "error", err)
	}
}

// recordSink tracks which severities one record produced while
// forwarding every entry to the persisted log. The operation counters
// advance at most once per record, so their sum stays bounded by the
// record total no matter how many log entries a record generates.
type recordSink struct {
	inner   ErrorSink
	errored bool
	warned  bool
}

func (s *recordSink) Record(identifier, message string, severity Severity) {
	if severity == SeverityWarning {
		s.warned = true
	} else {
		s.errored = true
	}
	s.inner.Record(identifier, message, severity)
}

// run executes one operation end to end. It is the only writer of the
// operation's terminal state.
func (s *Service) run(ctx context.Context, handle *operationHandle, op BulkOperation, tctx tenant.Context, ids []string, rules []Rule) {
	logger := slog.With("operation_id", op.ID.String(), "entity_type", string(op.EntityKind))

	defer func() {
		handle.finishedAt.Store(time.Now().Unix())
		close(handle.done)
		s.limiter.Release()
	}()

	adapter, ok := s.registry.Get(op.EntityKind)
	if !ok {
		s.finishFailed(ctx, op.ID, ErrUnknownEntityKind, logger)
		return
	}

	// Before-hook: seed counters from the job state before any chunk runs.
	if err := s.operations.UpdateCounters(ctx, op.ID, len(ids), 0, 0, 0, 0); err != nil {
		s.finishFailed(ctx, op.ID, err, logger)
		return
	}
	if err := s.operations.TransitionStatus(ctx, op.ID, StatusInProgress, ""); err != nil {
		if handle.cancelled.Load() {
			// Cancel won the race to the status row; settle without failing.
			if terr := s.operations.TransitionStatus(ctx, op.ID, StatusCancelled, ""); terr == nil {
				logger.Info("operation cancelled before first chunk")
				return
			}
		}
		s.finishFailed(ctx, op.ID, err, logger)
		return
	}

	sink := NewErrorSink(ctx, s.errors, op.ID)

	var (
		wg      sync.WaitGroup
		fatalMu sync.Mutex
		fatal   error
	)
	recordFatal := func(err error) {
		fatalMu.Lock()
		if fatal == nil {
			fatal = err
		}
		fatalMu.Unlock()
	}

	for start := 0; start < len(ids); start += s.chunkSize {
		end := min(start+s.chunkSize, len(ids))

		chunk := ExecutionChunk{
			ID:              uuid.New(),
			BulkOperationID: op.ID,
			FirstRecord:     start,
			LastRecord:      end - 1,
			State:           ChunkPending,
		}
		if err := s.chunks.Insert(ctx, chunk); err != nil {
			logger.Error("persist execution chunk", "chunk_id", chunk.ID.String(), "error", err)
		}

		chunkIDs := ids[start:end]
		snapshot := tctx // explicit copy travels with the dispatched unit of work

		wg.Add(1)
		s.pool.Submit(func() {
			defer wg.Done()
			s.runChunk(ctx, handle, op, snapshot, adapter, chunk, chunkIDs, rules, sink, recordFatal)
		})
	}
	wg.Wait()

	// After-hook: persist final totals and map the terminal state.
	processed := int(handle.processed.Load())
	matched := int(handle.matched.Load())
	errTotal := int(handle.errCount.Load())
	warnTotal := int(handle.warnCount.Load())

	if err := s.operations.UpdateCounters(ctx, op.ID, len(ids), processed, matched, errTotal, warnTotal); err != nil {
		logger.Error("persist final counters", "error", err)
	}
	if tenants := handle.tenants(); len(tenants) > 0 {
		if err := s.operations.SetUsedTenants(ctx, op.ID, tenants); err != nil {
			logger.Error("persist used tenants", "error", err)
		}
	}

	fatalMu.Lock()
	failure := fatal
	fatalMu.Unlock()

	switch {
	case failure != nil:
		s.finishFailed(ctx, op.ID, failure, logger)
	case handle.cancelled.Load():
		if err := s.operations.TransitionStatus(ctx, op.ID, StatusCancelled, ""); err != nil {
			logger.Error("persist cancelled status", "error", err)
		}
		logger.Info("operation cancelled", "processed", processed, "matched", matched)
	default:
		link, err := s.writeMatchedCSV(op.ID, handle.snapshot())
		if err != nil {
			s.finishFailed(ctx, op.ID, err, logger)
			return
		}
		if err := s.operations.SetMatchedCSVLink(ctx, op.ID, link); err != nil {
			logger.Error("persist output file link", "error", err)
		}
		if err := s.operations.TransitionStatus(ctx, op.ID, StatusDataModification, ""); err != nil {
			s.finishFailed(ctx, op.ID, err, logger)
			return
		}
		logger.Info("operation ready for data modification",
			"processed", processed, "matched", matched,
			"errors", errTotal, "warnings", warnTotal)
	}
}

// runChunk processes one chunk's records in input order. Ordering
// matters only for error reporting; nothing is ordered across chunks.
func (s *Service) runChunk(ctx context.Context, handle *operationHandle, op BulkOperation, tctx tenant.Context, adapter EntityAdapter, chunk ExecutionChunk, ids []string, rules []Rule, sink ErrorSink, recordFatal func(error)) {
	state := ChunkCompleted
	reason := ""

	for _, identifier := range ids {
		// The cancel flag is observed between records, never mid-record.
		if handle.cancelled.Load() {
			break
		}
		if err := ctx.Err(); err != nil {
			recordFatal(err)
			state, reason = ChunkFailed, err.Error()
			break
		}

		rec := &recordSink{inner: sink}
		err := s.processRecord(ctx, handle, op, tctx, adapter, identifier, rules, rec)
		if err != nil {
			var fe *FatalError
			if errors.As(err, &fe) {
				recordFatal(fe.Err)
				state, reason = ChunkFailed, fe.Err.Error()
				break
			}
			rec.Record(identifier, err.Error(), SeverityError)
		}
		// Exactly once per attempted record, skip or not. A skipped
		// record counts as an error even when it also warned.
		handle.processed.Add(1)
		switch {
		case rec.errored:
			handle.errCount.Add(1)
		case rec.warned:
			handle.warnCount.Add(1)
		}
	}

	if err := s.chunks.Update(ctx, chunk.ID, state, SanitizeMessage(reason)); err != nil {
		slog.Error("persist chunk outcome",
			"operation_id", op.ID.String(), "chunk_id", chunk.ID.String(), "error", err)
	}
}

// processRecord runs the per-record stages. A returned error means
// skip this record; wrap with Fatal to abort the operation.
func (s *Service) processRecord(ctx context.Context, handle *operationHandle, op BulkOperation, tctx tenant.Context, adapter EntityAdapter, identifier string, rules []Rule, sink ErrorSink) error {
	owning := tctx.TenantID
	if s.validator != nil {
		var err error
		owning, err = s.validator.ValidateWrite(ctx, tctx, op.EntityKind, op.IdentifierType, identifier)
		if err != nil {
			return err
		}
	}
	handle.addTenant(owning)

	// The record lives in its owning tenant; fetch and convert there.
	rtctx := tctx
	if owning != tctx.TenantID {
		rtctx = tctx.With(owning)
	}

	entity, err := s.fetcher.FetchOne(ctx, rtctx, op.EntityKind, op.IdentifierType, identifier)
	if err != nil {
		return err
	}

	rows, err := adapter.Convert(ctx, rtctx, entity, sink, op.IdentifierType)
	if err != nil {
		return err
	}

	applyRules(rows, rules)

	if err := handle.appendRows(rows); err != nil {
		return Fatal(err)
	}
	handle.matched.Add(1)
	return nil
}

// applyRules applies the operation's patch instructions to converted
// rows. Options address columns by label; unknown options are ignored
// here because rule validation happened in the authoring phase.
func applyRules(table *UnifiedTable, rules []Rule) {
	for _, rule := range rules {
		for _, detail := range rule.Details {
			col := table.ColumnIndex(detail.Option)
			if col < 0 {
				continue
			}
			for _, action := range detail.Actions {
				for _, row := range table.Rows {
					switch action.Type {
					case ActionReplaceWith:
						row[col] = action.Updated
					case ActionClearField:
						row[col] = ""
					}
				}
			}
		}
	}
}
