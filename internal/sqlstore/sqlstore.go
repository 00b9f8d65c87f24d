// Package sqlstore implements the native SQL capability on an embedded
// SQLite database.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure Go driver

	"github.com/cloud-runtimes/cloudruntimes-go/runtimes/native"
)

// Config holds SQLite operational parameters.
type Config struct {
	BusyTimeout  time.Duration
	MaxOpenConns int
}

// DefaultConfig returns the pool settings used when none are given.
func DefaultConfig() Config {
	return Config{
		BusyTimeout:  5 * time.Second,
		MaxOpenConns: 25,
	}
}

// Service wraps a database/sql pool behind the SQL capability.
type Service struct {
	db *sql.DB
}

var _ native.SQL = (*Service)(nil)

// Open initializes the SQLite pool. The PRAGMAs ride in the DSN so they
// apply to every connection in the pool, not just the first.
func Open(dbPath string, cfg Config) (*Service, error) {
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = DefaultConfig().BusyTimeout
	}
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = DefaultConfig().MaxOpenConns
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)",
		dbPath, cfg.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open failed: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxOpenConns)
	db.SetConnMaxLifetime(1 * time.Hour)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlstore: ping failed: %w", err)
	}
	return &Service{db: db}, nil
}

// NewFromDB wraps an existing pool, for tests.
func NewFromDB(db *sql.DB) *Service { return &Service{db: db} }

func (s *Service) Exec(ctx context.Context, query string, args ...any) (*native.SQLResult, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return resultFrom(res), nil
}

func (s *Service) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, query, args...)
}

func (s *Service) QueryRow(ctx context.Context, query string, args ...any) (*sql.Row, error) {
	return s.db.QueryRowContext(ctx, query, args...), nil
}

func (s *Service) Begin(ctx context.Context) (native.SQLTx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &serviceTx{tx: tx}, nil
}

func (s *Service) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Service) Close() error { return s.db.Close() }

type serviceTx struct {
	tx *sql.Tx
}

func (t *serviceTx) Exec(ctx context.Context, query string, args ...any) (*native.SQLResult, error) {
	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return resultFrom(res), nil
}

func (t *serviceTx) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, query, args...)
}

func (t *serviceTx) Commit() error   { return t.tx.Commit() }
func (t *serviceTx) Rollback() error { return t.tx.Rollback() }

func resultFrom(res sql.Result) *native.SQLResult {
	out := &native.SQLResult{}
	// SQLite supports both; errors here mean the statement had no rows.
	if n, err := res.RowsAffected(); err == nil {
		out.RowsAffected = n
	}
	if id, err := res.LastInsertId(); err == nil {
		out.LastInsertID = id
	}
	return out
}
