package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/JonMunkholm/bulkedit/internal/core"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const operationsTable = "bulk_operations"

var operationColumns = []string{
	"id", "entity_type", "identifier_type", "status",
	"total_records", "processed_records", "matched_records",
	"committed_records", "matched_errors", "matched_warnings",
	"link_to_matched_csv", "link_to_committed_csv",
	"used_tenants", "error_message", "started_at", "ended_at",
}

// OperationRepo implements core.OperationStore on PostgreSQL.
type OperationRepo struct{ *Repo }

func NewOperationRepo(db DBTX) *OperationRepo { return &OperationRepo{NewRepo(db)} }

func (r *OperationRepo) Insert(ctx context.Context, op core.BulkOperation) error {
	q := r.SQ.Insert(operationsTable).Columns(operationColumns...).Values(
		op.ID, string(op.EntityKind), string(op.IdentifierType), string(op.Status),
		op.TotalRecords, op.ProcessedRecords, op.MatchedRecords,
		op.CommittedRecords, op.MatchedErrors, op.MatchedWarnings,
		op.LinkToMatchedCSV, op.LinkToCommittedCSV,
		usedTenants(op.UsedTenants), op.ErrorMessage, op.StartedAt, endedAt(op.EndedAt),
	)
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return err
	}
	_, err = r.DB.Exec(ctx, sqlStr, args...)
	return err
}

func (r *OperationRepo) Get(ctx context.Context, id uuid.UUID) (core.BulkOperation, error) {
	q := r.SQ.Select(operationColumns...).From(operationsTable).Where(sq.Eq{"id": id})
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return core.BulkOperation{}, err
	}

	var (
		op     core.BulkOperation
		kind   string
		idType string
		status string
		ended  *time.Time
	)
	row := r.DB.QueryRow(ctx, sqlStr, args...)
	err = row.Scan(
		&op.ID, &kind, &idType, &status,
		&op.TotalRecords, &op.ProcessedRecords, &op.MatchedRecords,
		&op.CommittedRecords, &op.MatchedErrors, &op.MatchedWarnings,
		&op.LinkToMatchedCSV, &op.LinkToCommittedCSV,
		&op.UsedTenants, &op.ErrorMessage, &op.StartedAt, &ended,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.BulkOperation{}, core.ErrOperationNotFound
	}
	if err != nil {
		return core.BulkOperation{}, err
	}
	op.EntityKind = core.EntityKind(kind)
	op.IdentifierType = core.IdentifierType(idType)
	op.Status = core.OperationStatus(status)
	if ended != nil {
		op.EndedAt = *ended
	}
	return op, nil
}

// TransitionStatus moves the operation to next. The WHERE clause only
// matches statuses allowed to precede next, so an illegal or late
// worker write never lands and a terminal state is never resurrected.
func (r *OperationRepo) TransitionStatus(ctx context.Context, id uuid.UUID, next core.OperationStatus, errorMessage string) error {
	legal := core.TransitionSources(next)
	sources := make([]string, len(legal))
	for i, s := range legal {
		sources[i] = string(s)
	}

	q := r.SQ.Update(operationsTable).
		Set("status", string(next)).
		Where(sq.Eq{"id": id, "status": sources})
	if errorMessage != "" {
		q = q.Set("error_message", errorMessage)
	}
	if next.IsTerminal() || next == core.StatusDataModification {
		q = q.Set("ended_at", time.Now().UTC())
	}

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return err
	}
	tag, err := r.DB.Exec(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("operation %s cannot move to %s from its current state", id, next)
	}
	return nil
}

// UpdateCounters persists phase counters. GREATEST keeps each counter
// monotonic even if writes land out of order.
func (r *OperationRepo) UpdateCounters(ctx context.Context, id uuid.UUID, total, processed, matched, errs, warnings int) error {
	q := r.SQ.Update(operationsTable).
		Set("total_records", sq.Expr("GREATEST(total_records, ?)", total)).
		Set("processed_records", sq.Expr("GREATEST(processed_records, ?)", processed)).
		Set("matched_records", sq.Expr("GREATEST(matched_records, ?)", matched)).
		Set("matched_errors", sq.Expr("GREATEST(matched_errors, ?)", errs)).
		Set("matched_warnings", sq.Expr("GREATEST(matched_warnings, ?)", warnings)).
		Where(sq.Eq{"id": id})
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return err
	}
	_, err = r.DB.Exec(ctx, sqlStr, args...)
	return err
}

func (r *OperationRepo) SetMatchedCSVLink(ctx context.Context, id uuid.UUID, link string) error {
	return r.setColumn(ctx, id, "link_to_matched_csv", link)
}

func (r *OperationRepo) SetUsedTenants(ctx context.Context, id uuid.UUID, tenants []string) error {
	return r.setColumn(ctx, id, "used_tenants", usedTenants(tenants))
}

func (r *OperationRepo) setColumn(ctx context.Context, id uuid.UUID, column string, value any) error {
	q := r.SQ.Update(operationsTable).Set(column, value).Where(sq.Eq{"id": id})
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return err
	}
	_, err = r.DB.Exec(ctx, sqlStr, args...)
	return err
}

// usedTenants normalizes nil to an empty array so the NOT NULL column
// never sees a NULL parameter.
func usedTenants(tenants []string) []string {
	if tenants == nil {
		return []string{}
	}
	return tenants
}

func endedAt(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
