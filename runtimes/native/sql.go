package native

import (
	"context"
	"database/sql"
)

// SQLResult reports the outcome of a statement execution.
type SQLResult struct {
	RowsAffected int64
	LastInsertID int64
}

// SQLTx is a handle to an open transaction.
type SQLTx interface {
	Exec(ctx context.Context, query string, args ...any) (*SQLResult, error)
	Query(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	Commit() error
	Rollback() error
}

// SQL is the native SQL capability, backed by a database/sql pool.
type SQL interface {
	Exec(ctx context.Context, query string, args ...any) (*SQLResult, error)
	Query(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) (*sql.Row, error)
	Begin(ctx context.Context) (SQLTx, error)
	Ping(ctx context.Context) error
	Close() error
}
