package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var ErrNoDatabase = errors.New("database not connected")

// Querier is what every service needs from Postgres. *pgxpool.Pool satisfies
// it in production and pgxmock pools in tests.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Ping runs a trivial query through q.
func Ping(ctx context.Context, q Querier) error {
	if q == nil {
		return ErrNoDatabase
	}
	var one int
	return q.QueryRow(ctx, "SELECT 1").Scan(&one)
}
