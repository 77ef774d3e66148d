package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/JonMunkholm/bulkedit/internal/tenant"
	"github.com/google/uuid"
)

// ---- in-memory fakes ----

type fakeOperationStore struct {
	mu  sync.Mutex
	ops map[uuid.UUID]BulkOperation
}

func newFakeOperationStore() *fakeOperationStore {
	return &fakeOperationStore{ops: make(map[uuid.UUID]BulkOperation)}
}

func (s *fakeOperationStore) Insert(_ context.Context, op BulkOperation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops[op.ID] = op
	return nil
}

func (s *fakeOperationStore) Get(_ context.Context, id uuid.UUID) (BulkOperation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	op, ok := s.ops[id]
	if !ok {
		return BulkOperation{}, ErrOperationNotFound
	}
	return op, nil
}

func (s *fakeOperationStore) TransitionStatus(_ context.Context, id uuid.UUID, next OperationStatus, errorMessage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	op, ok := s.ops[id]
	if !ok {
		return ErrOperationNotFound
	}
	if !op.Status.CanTransition(next) {
		return fmt.Errorf("operation %s cannot move to %s from %s", id, next, op.Status)
	}
	op.Status = next
	if errorMessage != "" {
		op.ErrorMessage = errorMessage
	}
	s.ops[id] = op
	return nil
}

func (s *fakeOperationStore) UpdateCounters(_ context.Context, id uuid.UUID, total, processed, matched, errs, warnings int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	op := s.ops[id]
	op.TotalRecords = max(op.TotalRecords, total)
	op.ProcessedRecords = max(op.ProcessedRecords, processed)
	op.MatchedRecords = max(op.MatchedRecords, matched)
	op.MatchedErrors = max(op.MatchedErrors, errs)
	op.MatchedWarnings = max(op.MatchedWarnings, warnings)
	s.ops[id] = op
	return nil
}

func (s *fakeOperationStore) SetMatchedCSVLink(_ context.Context, id uuid.UUID, link string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	op := s.ops[id]
	op.LinkToMatchedCSV = link
	s.ops[id] = op
	return nil
}

func (s *fakeOperationStore) SetUsedTenants(_ context.Context, id uuid.UUID, tenants []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	op := s.ops[id]
	op.UsedTenants = tenants
	s.ops[id] = op
	return nil
}

type fakeErrorStore struct {
	mu      sync.Mutex
	rows    []BulkOperationError
	failing bool
}

func (s *fakeErrorStore) Insert(_ context.Context, e BulkOperationError) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return errors.New("error store unavailable")
	}
	s.rows = append(s.rows, e)
	return nil
}

func (s *fakeErrorStore) Page(_ context.Context, opID uuid.UUID, limit, offset int) ([]BulkOperationError, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []BulkOperationError
	for _, e := range s.rows {
		if e.BulkOperationID == opID {
			out = append(out, e)
		}
	}
	return out, len(out), nil
}

type fakeChunkStore struct {
	mu     sync.Mutex
	chunks map[uuid.UUID]ExecutionChunk
}

func newFakeChunkStore() *fakeChunkStore {
	return &fakeChunkStore{chunks: make(map[uuid.UUID]ExecutionChunk)}
}

func (s *fakeChunkStore) Insert(_ context.Context, chunk ExecutionChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks[chunk.ID] = chunk
	return nil
}

func (s *fakeChunkStore) Update(_ context.Context, id uuid.UUID, state ChunkState, failureReason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.chunks[id]
	c.State = state
	c.FailureReason = failureReason
	s.chunks[id] = c
	return nil
}

// fakeFetcher returns a record map keyed by identifier; missing
// identifiers fail the fetch.
type fakeFetcher struct {
	mu      sync.Mutex
	records map[string]string
	calls   int
}

func (f *fakeFetcher) FetchOne(_ context.Context, _ tenant.Context, _ EntityKind, _ IdentifierType, identifier string) (any, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	rec, ok := f.records[identifier]
	if !ok {
		return nil, fmt.Errorf("no record found for %s", identifier)
	}
	return rec, nil
}

// fakeValidator routes each identifier to a fixed owning tenant.
type fakeValidator struct {
	owning map[string]string
	deny   map[string]error
}

func (v *fakeValidator) ValidateWrite(_ context.Context, tctx tenant.Context, _ EntityKind, _ IdentifierType, identifier string) (string, error) {
	if err, bad := v.deny[identifier]; bad {
		return "", err
	}
	if owner, ok := v.owning[identifier]; ok {
		return owner, nil
	}
	return tctx.TenantID, nil
}

func (v *fakeValidator) ValidateRead(ctx context.Context, tctx tenant.Context, kind EntityKind, idType IdentifierType, identifier string) (string, error) {
	return v.ValidateWrite(ctx, tctx, kind, idType, identifier)
}

// fakeAdapter maps the fetched string into a two-column row. The
// optional fields simulate conversions that log entries or skip.
type fakeAdapter struct {
	warnings   int   // WARNING entries recorded per converted record
	convertErr error // returned after recording, skipping the record
}

func (fakeAdapter) Kind() EntityKind { return KindItem }

func (fakeAdapter) Header() []Cell {
	return []Cell{Column("Barcode"), Column("Status")}
}

func (a fakeAdapter) Convert(_ context.Context, _ tenant.Context, entity any, sink ErrorSink, _ IdentifierType) (*UnifiedTable, error) {
	for i := 0; i < a.warnings; i++ {
		sink.Record(entity.(string), fmt.Sprintf("reference %d unresolved", i+1), SeverityWarning)
	}
	if a.convertErr != nil {
		return nil, a.convertErr
	}
	tbl := NewUnifiedTable(fakeAdapter{}.Header())
	tbl.AddRow(entity.(string), "Available")
	return tbl, nil
}

func (fakeAdapter) ByQuery(_ context.Context, _ tenant.Context, _ string, _, _ int) (*UnifiedTable, error) {
	return NewUnifiedTable(fakeAdapter{}.Header()), nil
}

func (fakeAdapter) Identifier(entity any, _ IdentifierType) string {
	return entity.(string)
}

// ---- harness ----

type pipelineEnv struct {
	service    *Service
	operations *fakeOperationStore
	errors     *fakeErrorStore
	chunks     *fakeChunkStore
	fetcher    *fakeFetcher
}

func newPipelineEnv(t *testing.T, fetcher *fakeFetcher, validator AccessValidator, opts ServiceOptions) *pipelineEnv {
	t.Helper()
	return newPipelineEnvWithAdapter(t, fakeAdapter{}, fetcher, validator, opts)
}

func newPipelineEnvWithAdapter(t *testing.T, adapter EntityAdapter, fetcher *fakeFetcher, validator AccessValidator, opts ServiceOptions) *pipelineEnv {
	t.Helper()

	registry := NewRegistry()
	registry.Register(adapter)

	ops := newFakeOperationStore()
	errs := &fakeErrorStore{}
	chunks := newFakeChunkStore()

	if opts.StorageDir == "" {
		opts.StorageDir = t.TempDir()
	}
	svc := NewService(registry, fetcher, validator, ops, errs, chunks, opts)
	return &pipelineEnv{service: svc, operations: ops, errors: errs, chunks: chunks, fetcher: fetcher}
}

func identifiers(n int) (string, map[string]string) {
	var b strings.Builder
	records := make(map[string]string, n)
	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("barcode-%02d", i)
		fmt.Fprintln(&b, id)
		records[id] = id
	}
	return b.String(), records
}

func tctxForTest() tenant.Context {
	return tenant.Context{TenantID: "diku", UserID: "user-1", BaseURL: "http://example.invalid"}
}

// ---- tests ----

func TestRun_AllRecordsMatch(t *testing.T) {
	input, records := identifiers(10)
	env := newPipelineEnv(t, &fakeFetcher{records: records}, nil, ServiceOptions{ChunkSize: 3})

	op, err := env.service.Start(context.Background(), tctxForTest(), KindItem, IdentifierBarcode, strings.NewReader(input), nil)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	env.service.Wait(op.ID)

	got, _ := env.operations.Get(context.Background(), op.ID)
	if got.Status != StatusDataModification {
		t.Errorf("status = %s, want %s", got.Status, StatusDataModification)
	}
	if got.ProcessedRecords != 10 || got.MatchedRecords != 10 {
		t.Errorf("processed/matched = %d/%d, want 10/10", got.ProcessedRecords, got.MatchedRecords)
	}
	if got.LinkToMatchedCSV == "" {
		t.Error("no output file link persisted")
	}
}

func TestRun_FailedFetchSkipsOnlyThatRecord(t *testing.T) {
	input, records := identifiers(10)
	delete(records, "barcode-04")
	env := newPipelineEnv(t, &fakeFetcher{records: records}, nil, ServiceOptions{ChunkSize: 4})

	op, err := env.service.Start(context.Background(), tctxForTest(), KindItem, IdentifierBarcode, strings.NewReader(input), nil)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	env.service.Wait(op.ID)

	got, _ := env.operations.Get(context.Background(), op.ID)
	if got.Status != StatusDataModification {
		t.Errorf("status = %s, want %s", got.Status, StatusDataModification)
	}
	if got.ProcessedRecords != 10 {
		t.Errorf("processed = %d, want 10 (skips still count)", got.ProcessedRecords)
	}
	if got.MatchedRecords != 9 {
		t.Errorf("matched = %d, want 9", got.MatchedRecords)
	}
	if got.MatchedErrors != 1 {
		t.Errorf("errors = %d, want 1", got.MatchedErrors)
	}

	rows, _, _ := env.errors.Page(context.Background(), op.ID, 50, 0)
	if len(rows) != 1 {
		t.Fatalf("error log rows = %d, want 1", len(rows))
	}
	if rows[0].Identifier != "barcode-04" {
		t.Errorf("error identifier = %q, want barcode-04", rows[0].Identifier)
	}
	if rows[0].Severity != SeverityError {
		t.Errorf("error severity = %s, want ERROR", rows[0].Severity)
	}
}

func TestRun_MultipleWarningsCountOncePerRecord(t *testing.T) {
	input, records := identifiers(1)
	env := newPipelineEnvWithAdapter(t, fakeAdapter{warnings: 2}, &fakeFetcher{records: records}, nil, ServiceOptions{ChunkSize: 10})

	op, err := env.service.Start(context.Background(), tctxForTest(), KindItem, IdentifierBarcode, strings.NewReader(input), nil)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	env.service.Wait(op.ID)

	got, _ := env.operations.Get(context.Background(), op.ID)
	if got.TotalRecords != 1 || got.ProcessedRecords != 1 || got.MatchedRecords != 1 {
		t.Fatalf("total/processed/matched = %d/%d/%d, want 1/1/1",
			got.TotalRecords, got.ProcessedRecords, got.MatchedRecords)
	}
	if got.MatchedWarnings != 1 {
		t.Errorf("warnings = %d, want 1 (counted per record, not per log entry)", got.MatchedWarnings)
	}
	if got.MatchedErrors != 0 {
		t.Errorf("errors = %d, want 0", got.MatchedErrors)
	}
	if got.MatchedErrors+got.MatchedWarnings > got.TotalRecords {
		t.Errorf("errors+warnings = %d, exceeds total %d",
			got.MatchedErrors+got.MatchedWarnings, got.TotalRecords)
	}

	rows, _, _ := env.errors.Page(context.Background(), op.ID, 50, 0)
	if len(rows) != 2 {
		t.Errorf("error log rows = %d, want 2 (every entry is kept)", len(rows))
	}
}

func TestRun_SkippedRecordWithWarningCountsAsError(t *testing.T) {
	input, records := identifiers(1)
	adapter := fakeAdapter{warnings: 1, convertErr: errors.New("malformed record")}
	env := newPipelineEnvWithAdapter(t, adapter, &fakeFetcher{records: records}, nil, ServiceOptions{ChunkSize: 10})

	op, err := env.service.Start(context.Background(), tctxForTest(), KindItem, IdentifierBarcode, strings.NewReader(input), nil)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	env.service.Wait(op.ID)

	got, _ := env.operations.Get(context.Background(), op.ID)
	if got.ProcessedRecords != 1 || got.MatchedRecords != 0 {
		t.Fatalf("processed/matched = %d/%d, want 1/0", got.ProcessedRecords, got.MatchedRecords)
	}
	if got.MatchedErrors != 1 || got.MatchedWarnings != 0 {
		t.Errorf("errors/warnings = %d/%d, want 1/0 (a skip outranks its warnings)",
			got.MatchedErrors, got.MatchedWarnings)
	}
	if got.MatchedErrors+got.MatchedWarnings > got.TotalRecords {
		t.Errorf("errors+warnings = %d, exceeds total %d",
			got.MatchedErrors+got.MatchedWarnings, got.TotalRecords)
	}

	rows, _, _ := env.errors.Page(context.Background(), op.ID, 50, 0)
	if len(rows) != 2 {
		t.Errorf("error log rows = %d, want 2 (warning plus skip reason)", len(rows))
	}
}

func TestRun_ProcessedAdvancesWhenErrorStoreFails(t *testing.T) {
	input, records := identifiers(6)
	delete(records, "barcode-02")
	delete(records, "barcode-05")

	env := newPipelineEnv(t, &fakeFetcher{records: records}, nil, ServiceOptions{ChunkSize: 2})
	env.errors.failing = true

	op, err := env.service.Start(context.Background(), tctxForTest(), KindItem, IdentifierBarcode, strings.NewReader(input), nil)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	env.service.Wait(op.ID)

	got, _ := env.operations.Get(context.Background(), op.ID)
	if got.ProcessedRecords != 6 {
		t.Errorf("processed = %d, want 6 even with a failing error store", got.ProcessedRecords)
	}
	if got.MatchedRecords != 4 {
		t.Errorf("matched = %d, want 4", got.MatchedRecords)
	}
	if got.Status != StatusDataModification {
		t.Errorf("status = %s, want %s", got.Status, StatusDataModification)
	}
}

func TestRun_ValidatorFailureIsNonFatal(t *testing.T) {
	input, records := identifiers(4)
	validator := &fakeValidator{
		deny: map[string]error{"barcode-03": errors.New("permission denied in tenant diku")},
	}
	env := newPipelineEnv(t, &fakeFetcher{records: records}, validator, ServiceOptions{ChunkSize: 2})

	op, err := env.service.Start(context.Background(), tctxForTest(), KindItem, IdentifierBarcode, strings.NewReader(input), nil)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	env.service.Wait(op.ID)

	got, _ := env.operations.Get(context.Background(), op.ID)
	if got.MatchedRecords != 3 {
		t.Errorf("matched = %d, want 3", got.MatchedRecords)
	}
	if got.MatchedErrors != 1 {
		t.Errorf("errors = %d, want 1", got.MatchedErrors)
	}
}

func TestRun_RecordsUsedTenants(t *testing.T) {
	input, records := identifiers(3)
	validator := &fakeValidator{
		owning: map[string]string{
			"barcode-01": "member-a",
			"barcode-02": "member-b",
			"barcode-03": "member-a",
		},
	}
	env := newPipelineEnv(t, &fakeFetcher{records: records}, validator, ServiceOptions{ChunkSize: 10})

	op, err := env.service.Start(context.Background(), tctxForTest(), KindItem, IdentifierBarcode, strings.NewReader(input), nil)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	env.service.Wait(op.ID)

	got, _ := env.operations.Get(context.Background(), op.ID)
	if len(got.UsedTenants) != 2 {
		t.Errorf("used tenants = %v, want member-a and member-b", got.UsedTenants)
	}
}

func TestRun_AppliesRules(t *testing.T) {
	input, records := identifiers(2)
	env := newPipelineEnv(t, &fakeFetcher{records: records}, nil, ServiceOptions{ChunkSize: 10})

	rules := []Rule{{
		ID: uuid.New(),
		Details: []RuleDetails{{
			Option: "Status",
			Actions: []RuleAction{{
				Type:    ActionReplaceWith,
				Updated: "Missing",
			}},
		}},
	}}

	op, err := env.service.Start(context.Background(), tctxForTest(), KindItem, IdentifierBarcode, strings.NewReader(input), rules)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	env.service.Wait(op.ID)

	raw, _, err := env.service.MatchedCSV(context.Background(), op.ID)
	if err != nil {
		t.Fatalf("MatchedCSV() error = %v", err)
	}
	defer raw.Close()
	data, err := io.ReadAll(raw)
	if err != nil {
		t.Fatalf("read CSV: %v", err)
	}
	if !strings.Contains(string(data), ",Missing") {
		t.Errorf("rules not applied to output:\n%s", data)
	}
	if strings.Contains(string(data), ",Available") {
		t.Errorf("original status survived REPLACE_WITH:\n%s", data)
	}
}

func TestStart_EmptyFile(t *testing.T) {
	env := newPipelineEnv(t, &fakeFetcher{records: map[string]string{}}, nil, ServiceOptions{})

	_, err := env.service.Start(context.Background(), tctxForTest(), KindItem, IdentifierBarcode, strings.NewReader("\n \n"), nil)
	if !errors.Is(err, ErrNoIdentifiers) {
		t.Errorf("Start() error = %v, want ErrNoIdentifiers", err)
	}
}

func TestStart_UnknownKind(t *testing.T) {
	env := newPipelineEnv(t, &fakeFetcher{records: map[string]string{}}, nil, ServiceOptions{})

	_, err := env.service.Start(context.Background(), tctxForTest(), EntityKind("SERIAL"), IdentifierBarcode, strings.NewReader("a\n"), nil)
	if !errors.Is(err, ErrUnknownEntityKind) {
		t.Errorf("Start() error = %v, want ErrUnknownEntityKind", err)
	}
}

func TestCancel_SettlesIntoCancelled(t *testing.T) {
	input, records := identifiers(20)

	// The first fetch blocks until released, so the cancel request
	// lands while the chunk loop is mid-run.
	slow := &slowFetcher{
		inner:   &fakeFetcher{records: records},
		gate:    make(chan struct{}),
		started: make(chan struct{}),
	}
	env := newPipelineEnv(t, &fakeFetcher{records: records}, nil, ServiceOptions{ChunkSize: 1, Workers: 1})
	env.service.fetcher = slow

	op, err := env.service.Start(context.Background(), tctxForTest(), KindItem, IdentifierBarcode, strings.NewReader(input), nil)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	<-slow.started
	if err := env.service.Cancel(context.Background(), op.ID); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	close(slow.gate)
	env.service.Wait(op.ID)

	got, _ := env.operations.Get(context.Background(), op.ID)
	if got.Status != StatusCancelled {
		t.Errorf("status = %s, want %s", got.Status, StatusCancelled)
	}
	if got.ProcessedRecords >= 20 {
		t.Errorf("processed = %d, want fewer than 20 after cancellation", got.ProcessedRecords)
	}
}

// slowFetcher blocks the first fetch until its gate opens.
type slowFetcher struct {
	inner   RecordFetcher
	gate    chan struct{}
	started chan struct{}
	once    sync.Once
}

func (f *slowFetcher) FetchOne(ctx context.Context, tctx tenant.Context, kind EntityKind, idType IdentifierType, identifier string) (any, error) {
	f.once.Do(func() {
		close(f.started)
		select {
		case <-f.gate:
		case <-time.After(5 * time.Second):
		}
	})
	return f.inner.FetchOne(ctx, tctx, kind, idType, identifier)
}
