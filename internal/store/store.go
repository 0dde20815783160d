// Package store implements persistence against Postgres: schema
// creation, the IndexingJob claim operation (row-lock with
// SKIP LOCKED), CRUD for every entity in internal/model, and the
// pgvector / full-text-search queries internal/retrieve builds on.
//
// A Store owns one *sql.DB connection pool, sized to worker
// concurrency, and creates its schema idempotently on construction —
// the same idiom the teacher uses for its task store.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Store is the Postgres-backed persistence layer. The zero value is not
// usable; construct with Open.
type Store struct {
	db *sql.DB
}

// Open connects to dsn, applies pool sizing, verifies connectivity, and
// creates the schema if it does not already exist.
func Open(ctx context.Context, dsn string, poolSize, maxIdle int) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}

	if poolSize > 0 {
		db.SetMaxOpenConns(poolSize)
	}
	if maxIdle > 0 {
		db.SetMaxIdleConns(maxIdle)
	}
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: init schema: %w", err)
	}
	return s, nil
}

// StatementTimeoutOption returns a libpq connection-string fragment that
// sets a per-session statement_timeout, for callers building the DSN
// passed to Open. Postgres applies "options" session parameters to
// every connection the pool opens, which is the only way to bound
// per-query runtime without round-tripping a SET on each checkout.
func StatementTimeoutOption(ms int) string {
	if ms <= 0 {
		return ""
	}
	return fmt.Sprintf("options='-c statement_timeout=%d'", ms)
}

// DB exposes the underlying pool for callers (e.g. internal/retrieve)
// that need to build ad-hoc queries this package doesn't expose.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) initSchema(ctx context.Context) error {
	schemaCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(schemaCtx, stmt); err != nil {
			return fmt.Errorf("exec schema statement: %w", err)
		}
	}
	return nil
}
