// Package repository is the PostgreSQL implementation of store.Store, built
// on sqlx and lib/pq. Each store.Tx maps to one database transaction; rows
// that a unit of work mutates are read with SELECT … FOR UPDATE.
package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/evetabi/easybet/internal/config"
	"github.com/evetabi/easybet/internal/store"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// queries holds every read and write statement. It runs against either the
// pool (committed reads) or a transaction.
type queries struct {
	q         sqlx.ExtContext
	forUpdate bool
}

// lock appends FOR UPDATE inside transactions.
func (r *queries) lock() string {
	if r.forUpdate {
		return " FOR UPDATE"
	}
	return ""
}

// limitArg maps a non-positive limit to SQL NULL, which PostgreSQL treats as
// no limit.
func limitArg(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}

// ──────────────────────────────────────────────────────────────────────────────
// Store
// ──────────────────────────────────────────────────────────────────────────────

// Store is the PostgreSQL store.Store.
type Store struct {
	queries
	db *sqlx.DB
}

// Tx is the store.Tx for one database transaction.
type Tx struct {
	queries
}

var (
	_ store.Store = (*Store)(nil)
	_ store.Tx    = (*Tx)(nil)
)

// New wraps an open connection pool.
func New(db *sqlx.DB) *Store {
	return &Store{queries: queries{q: db}, db: db}
}

// Open connects, applies pool limits and pings the database.
func Open(ctx context.Context, cfg config.DBConfig) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("repository.Open: connect: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("repository.Open: ping: %w", err)
	}
	return New(db), nil
}

// Ping checks that the database answers.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("repository.Ping: %w", err)
	}
	return nil
}

// Close closes the pool.
func (s *Store) Close() error { return s.db.Close() }

// WithTx runs fn inside a database transaction, committing only when fn
// returns nil.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("repository.WithTx: begin: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&Tx{queries{q: tx, forUpdate: true}}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("repository.WithTx: commit: %w", err)
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Migrations
// ──────────────────────────────────────────────────────────────────────────────

// Migrate reads all *.sql files from dir, sorted by name, and executes them
// sequentially. Files must be idempotent (IF NOT EXISTS / ON CONFLICT).
func (s *Store) Migrate(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("repository.Migrate: read dir %q: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("repository.Migrate: read %q: %w", f, err)
		}
		if _, err = s.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("repository.Migrate: exec %q: %w", f, err)
		}
		slog.Info("migration applied", "file", filepath.Base(f))
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────────────────────────────────

// nextID allocates the next gap-free id for a table. The counter row stays
// locked until the surrounding transaction ends, so a rollback returns the id.
func (r *queries) nextID(ctx context.Context, name string) (int64, error) {
	var id int64
	err := sqlx.GetContext(ctx, r.q, &id,
		`UPDATE id_counters SET next_id = next_id + 1 WHERE name = $1 RETURNING next_id - 1`, name)
	if err != nil {
		return 0, fmt.Errorf("nextID %s: %w", name, err)
	}
	return id, nil
}

// isPgUniqueViolation checks whether err is a PostgreSQL unique constraint
// violation for the given constraint name.
func isPgUniqueViolation(err error, constraintName string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == "23505" && pqErr.Constraint == constraintName
}
