// Package pg implements the user and audit stores over PostgreSQL.
package pg

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"jobdesk.org/internal/obs"
)

// Store bundles the user and audit persistence over one pool.
type Store struct {
	db *sql.DB
	q  querier
}

// Open connects to PostgreSQL with pool settings tuned for the API.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return NewStore(db), nil
}

// NewStore wraps an existing pool. Tests hand in a sqlmock pool here.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, q: instrumented{db: db}}
}

func (s *Store) Close() error { return s.db.Close() }

// DB exposes the pool for readiness probes.
func (s *Store) DB() *sql.DB { return s.db }

// querier is the statement surface the stores run against.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// instrumented decorates the pool with duration metrics. It composes
// the underlying statement surface explicitly instead of swapping
// methods on a live connection.
type instrumented struct {
	db *sql.DB
}

func (i instrumented) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := i.db.QueryContext(ctx, query, args...)
	obs.ObserveQuery("query", outcome(err), time.Since(start))
	return rows, err
}

func (i instrumented) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	start := time.Now()
	row := i.db.QueryRowContext(ctx, query, args...)
	obs.ObserveQuery("query_row", "ok", time.Since(start))
	return row
}

func (i instrumented) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	res, err := i.db.ExecContext(ctx, query, args...)
	obs.ObserveQuery("exec", outcome(err), time.Since(start))
	return res, err
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
