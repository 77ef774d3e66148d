// Package database persists bulk operations, their error logs, and
// chunk bookkeeping in PostgreSQL.
package database

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the querying surface the repositories need. Both *pgxpool.Pool
// and pgx.Tx satisfy it, so repositories work inside or outside a
// transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repo provides a base for Squirrel-based repositories.
type Repo struct {
	DB DBTX
	SQ sq.StatementBuilderType
}

func NewRepo(db DBTX) *Repo {
	return &Repo{DB: db, SQ: sq.StatementBuilder.PlaceholderFormat(sq.Dollar)}
}
