package core

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/JonMunkholm/bulkedit/internal/tenant"
	"github.com/google/uuid"
)

const (
	// DefaultChunkSize is how many identifiers one dispatched chunk carries.
	DefaultChunkSize = 100

	// DefaultOperationTimeout bounds one operation end to end.
	DefaultOperationTimeout = 30 * time.Minute
)

// Service coordinates bulk operations: it accepts identifier streams,
// schedules the chunk pipeline, and answers status, preview, and
// error-log queries.
type Service struct {
	registry   *Registry
	fetcher    RecordFetcher
	validator  AccessValidator
	operations OperationStore
	errors     ErrorStore
	chunks     ChunkStore

	pool    *WorkerPool
	limiter *OperationLimiter

	chunkSize  int
	storageDir string
	opTimeout  time.Duration

	mu     sync.Mutex
	active map[uuid.UUID]*operationHandle
}

// ServiceOptions tunes the pipeline. Zero values fall back to defaults.
type ServiceOptions struct {
	ChunkSize        int
	Workers          int
	MaxConcurrent    int
	MaxWait          time.Duration
	OperationTimeout time.Duration
	StorageDir       string
}

// NewService wires a Service from its collaborators.
func NewService(registry *Registry, fetcher RecordFetcher, validator AccessValidator, operations OperationStore, errs ErrorStore, chunks ChunkStore, opts ServiceOptions) *Service {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = DefaultMaxConcurrentOperations
	}
	if opts.OperationTimeout <= 0 {
		opts.OperationTimeout = DefaultOperationTimeout
	}
	if opts.StorageDir == "" {
		opts.StorageDir = os.TempDir()
	}
	return &Service{
		registry:   registry,
		fetcher:    fetcher,
		validator:  validator,
		operations: operations,
		errors:     errs,
		chunks:     chunks,
		pool:       NewWorkerPool(opts.Workers),
		limiter:    NewOperationLimiter(opts.MaxConcurrent, opts.MaxWait),
		chunkSize:  opts.ChunkSize,
		storageDir: opts.StorageDir,
		opTimeout:  opts.OperationTimeout,
		active:     make(map[uuid.UUID]*operationHandle),
	}
}

// Start reads an identifier stream, records the operation as
// SCHEDULED, and launches the pipeline in the background. The returned
// operation reflects the state at scheduling time.
func (s *Service) Start(ctx context.Context, tctx tenant.Context, kind EntityKind, idType IdentifierType, input io.Reader, rules []Rule) (BulkOperation, error) {
	adapter, ok := s.registry.Get(kind)
	if !ok {
		return BulkOperation{}, ErrUnknownEntityKind
	}

	ids, err := readIdentifiers(input)
	if err != nil {
		return BulkOperation{}, fmt.Errorf("read identifier file: %w", err)
	}
	if len(ids) == 0 {
		return BulkOperation{}, ErrNoIdentifiers
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return BulkOperation{}, err
	}

	op := BulkOperation{
		ID:             uuid.New(),
		EntityKind:     kind,
		IdentifierType: idType,
		Status:         StatusScheduled,
		TotalRecords:   len(ids),
		StartedAt:      time.Now().UTC(),
	}
	if err := s.operations.Insert(ctx, op); err != nil {
		s.limiter.Release()
		return BulkOperation{}, fmt.Errorf("persist bulk operation: %w", err)
	}

	// The request context dies with the HTTP exchange; the job gets
	// its own bounded lifetime.
	jobCtx, cancel := context.WithTimeout(context.Background(), s.opTimeout)
	handle := newOperationHandle(op.ID, adapter.Header(), cancel)

	s.mu.Lock()
	s.active[op.ID] = handle
	s.mu.Unlock()

	go func() {
		defer cancel()
		s.run(jobCtx, handle, op, tctx, ids, rules)
	}()

	slog.Info("bulk operation scheduled",
		"operation_id", op.ID.String(),
		"entity_type", string(kind),
		"identifier_type", string(idType),
		"total_records", len(ids))
	return op, nil
}

// Cancel requests cooperative cancellation. The operation settles into
// CANCELLED at the next record boundary.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	handle, ok := s.active[id]
	s.mu.Unlock()
	if !ok {
		return ErrOperationNotFound
	}
	handle.cancelled.Store(true)
	if err := s.operations.TransitionStatus(ctx, id, StatusCancelling, ""); err != nil {
		return err
	}
	slog.Info("bulk operation cancellation requested", "operation_id", id.String())
	return nil
}

// Get returns the persisted operation state.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (BulkOperation, error) {
	return s.operations.Get(ctx, id)
}

// Errors pages through the operation error log.
func (s *Service) Errors(ctx context.Context, id uuid.UUID, limit, offset int) ([]BulkOperationError, int, error) {
	if _, err := s.operations.Get(ctx, id); err != nil {
		return nil, 0, err
	}
	return s.errors.Page(ctx, id, limit, offset)
}

// Preview runs a query against the live record source and maps the
// result into a unified table. Nothing is persisted and reference
// resolution failures degrade to raw ids silently.
func (s *Service) Preview(ctx context.Context, tctx tenant.Context, kind EntityKind, query string, offset, limit int) (*UnifiedTable, error) {
	adapter, ok := s.registry.Get(kind)
	if !ok {
		return nil, ErrUnknownEntityKind
	}
	return adapter.ByQuery(ctx, tctx, query, offset, limit)
}

// MatchedCSV opens the stored output file of a finished operation.
// The caller owns closing the reader.
func (s *Service) MatchedCSV(ctx context.Context, id uuid.UUID) (io.ReadCloser, BulkOperation, error) {
	op, err := s.operations.Get(ctx, id)
	if err != nil {
		return nil, BulkOperation{}, err
	}
	if op.LinkToMatchedCSV == "" {
		return nil, op, fmt.Errorf("operation %s has no output file: %w", id, ErrOperationNotFound)
	}
	f, err := os.Open(op.LinkToMatchedCSV)
	if err != nil {
		return nil, op, fmt.Errorf("open output file: %w", err)
	}
	return f, op, nil
}

// Wait blocks until the operation's pipeline goroutine has finished.
// Returns immediately for operations with no in-memory handle.
func (s *Service) Wait(id uuid.UUID) {
	s.mu.Lock()
	handle, ok := s.active[id]
	s.mu.Unlock()
	if !ok {
		return
	}
	<-handle.done
}

// Shutdown stops accepting work and drains in-flight operations.
func (s *Service) Shutdown(ctx context.Context) error {
	err := s.limiter.WaitForDrain(ctx)
	s.pool.Stop()
	return err
}

func (s *Service) finishFailed(ctx context.Context, id uuid.UUID, cause error, logger *slog.Logger) {
	logger.Error("bulk operation failed", "error", cause)
	if err := s.operations.TransitionStatus(ctx, id, StatusFailed, SanitizeMessage(cause.Error())); err != nil {
		logger.Error("persist failed status", "error", err)
	}
}

func (s *Service) writeMatchedCSV(id uuid.UUID, table *UnifiedTable) (string, error) {
	data, err := table.CSV()
	if err != nil {
		return "", fmt.Errorf("render output file: %w", err)
	}
	if err := os.MkdirAll(s.storageDir, 0o755); err != nil {
		return "", fmt.Errorf("create storage dir: %w", err)
	}
	path := filepath.Join(s.storageDir, id.String()+"-matched.csv")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write output file: %w", err)
	}
	return path, nil
}

// readIdentifiers parses the uploaded file: one identifier per line,
// blank lines and surrounding whitespace ignored.
func readIdentifiers(r io.Reader) ([]string, error) {
	var ids []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		ids = append(ids, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}
