package database

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/JonMunkholm/bulkedit/internal/core"
	"github.com/google/uuid"
)

const errorsTable = "bulk_operation_errors"

// ErrorRepo implements core.ErrorStore on PostgreSQL. The error log is
// append-only; rows are never updated or deleted individually.
type ErrorRepo struct{ *Repo }

func NewErrorRepo(db DBTX) *ErrorRepo { return &ErrorRepo{NewRepo(db)} }

func (r *ErrorRepo) Insert(ctx context.Context, e core.BulkOperationError) error {
	q := r.SQ.Insert(errorsTable).
		Columns("id", "bulk_operation_id", "identifier", "message", "severity", "created_at").
		Values(e.ID, e.BulkOperationID, e.Identifier, e.Message, string(e.Severity), e.CreatedAt)
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return err
	}
	_, err = r.DB.Exec(ctx, sqlStr, args...)
	return err
}

// Page returns one page of the error log in insertion order plus the
// total count for pagination headers.
func (r *ErrorRepo) Page(ctx context.Context, opID uuid.UUID, limit, offset int) ([]core.BulkOperationError, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	countQ := r.SQ.Select("COUNT(*)").From(errorsTable).Where(sq.Eq{"bulk_operation_id": opID})
	sqlStr, args, err := countQ.ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := r.DB.QueryRow(ctx, sqlStr, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := r.SQ.Select("id", "bulk_operation_id", "identifier", "message", "severity", "created_at").
		From(errorsTable).
		Where(sq.Eq{"bulk_operation_id": opID}).
		OrderBy("created_at", "id").
		Limit(uint64(limit)).
		Offset(uint64(offset))
	sqlStr, args, err = q.ToSql()
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.DB.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []core.BulkOperationError
	for rows.Next() {
		var (
			e        core.BulkOperationError
			severity string
		)
		if err := rows.Scan(&e.ID, &e.BulkOperationID, &e.Identifier, &e.Message, &severity, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		e.Severity = core.Severity(severity)
		out = append(out, e)
	}
	return out, total, rows.Err()
}
