package database

import (
	"context"

	"github.com/JonMunkholm/bulkedit/internal/core"
	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

const chunksTable = "execution_chunks"

// ChunkRepo implements core.ChunkStore on PostgreSQL.
type ChunkRepo struct{ *Repo }

func NewChunkRepo(db DBTX) *ChunkRepo { return &ChunkRepo{NewRepo(db)} }

func (r *ChunkRepo) Insert(ctx context.Context, chunk core.ExecutionChunk) error {
	q := r.SQ.Insert(chunksTable).
		Columns("id", "bulk_operation_id", "first_record", "last_record", "state", "failure_reason").
		Values(chunk.ID, chunk.BulkOperationID, chunk.FirstRecord, chunk.LastRecord,
			string(chunk.State), chunk.FailureReason)
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return err
	}
	_, err = r.DB.Exec(ctx, sqlStr, args...)
	return err
}

func (r *ChunkRepo) Update(ctx context.Context, id uuid.UUID, state core.ChunkState, failureReason string) error {
	q := r.SQ.Update(chunksTable).
		Set("state", string(state)).
		Set("failure_reason", failureReason).
		Where(sq.Eq{"id": id})
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return err
	}
	_, err = r.DB.Exec(ctx, sqlStr, args...)
	return err
}

// ByOperation lists an operation's chunks in record order.
func (r *ChunkRepo) ByOperation(ctx context.Context, opID uuid.UUID) ([]core.ExecutionChunk, error) {
	q := r.SQ.Select("id", "bulk_operation_id", "first_record", "last_record", "state", "failure_reason").
		From(chunksTable).
		Where(sq.Eq{"bulk_operation_id": opID}).
		OrderBy("first_record")
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.DB.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.ExecutionChunk
	for rows.Next() {
		var (
			c     core.ExecutionChunk
			state string
		)
		if err := rows.Scan(&c.ID, &c.BulkOperationID, &c.FirstRecord, &c.LastRecord, &state, &c.FailureReason); err != nil {
			return nil, err
		}
		c.State = core.ChunkState(state)
		out = append(out, c)
	}
	return out, rows.Err()
}
