// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// modernc.org/sqlite is a pure Go translation of SQLite, so no C toolchain is
// needed and ":memory:" databases make tests fast and isolated.
//
// TIMESTAMPS:
// created_at/updated_at are stored as INTEGER Unix nanoseconds. Integer
// comparison gives a total order for "newest first" regardless of the time
// zone the value was produced in.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DB wraps a sql.DB connection pool and implements the repository interfaces.
type DB struct {
	conn *sql.DB
	now  func() time.Time
}

// New opens the SQLite database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/hypeshelf.db"  → file-based database (persistent)
//   - ":memory:"           → in-memory database (tests)
//
// SINGLE CONNECTION:
// The pool is capped at one connection. SQLite allows a single writer at a
// time anyway, every mutation here is one transaction, and an in-memory
// database only exists on the connection that created it.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while a write is in progress on file databases.
	// In-memory databases report "memory" and ignore it.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting busy timeout: %w", err)
	}

	db := &DB{conn: conn, now: time.Now}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks that the database is reachable. Used by the health endpoint.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// migrate creates the schema. CREATE ... IF NOT EXISTS keeps it idempotent.
func (db *DB) migrate() error {
	// external_subject is UNIQUE: one provider account → one internal user.
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id               TEXT PRIMARY KEY,
			external_subject TEXT NOT NULL UNIQUE,
			display_name     TEXT NOT NULL,
			image_url        TEXT NOT NULL DEFAULT '',
			role             TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('admin', 'user')),
			created_at       INTEGER NOT NULL,
			updated_at       INTEGER NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS recommendations (
			id            TEXT PRIMARY KEY,
			owner_id      TEXT NOT NULL REFERENCES users(id),
			title         TEXT NOT NULL,
			genre         TEXT NOT NULL CHECK (genre IN (
				'horror', 'action', 'comedy', 'drama', 'sci-fi',
				'thriller', 'documentary', 'animation', 'other'
			)),
			link          TEXT,
			blurb         TEXT NOT NULL,
			is_staff_pick INTEGER NOT NULL DEFAULT 0,
			created_at    INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_recommendations_created_at ON recommendations(created_at DESC, id DESC);
		CREATE INDEX IF NOT EXISTS idx_recommendations_owner_id ON recommendations(owner_id);
		CREATE INDEX IF NOT EXISTS idx_recommendations_genre ON recommendations(genre);
	`)
	if err != nil {
		return fmt.Errorf("creating recommendations table: %w", err)
	}

	// At most one staff pick across the whole table. The partial unique index
	// makes the store reject a second flagged row even if a caller skips the
	// clear step.
	_, err = db.conn.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_recommendations_single_staff_pick
			ON recommendations(is_staff_pick) WHERE is_staff_pick = 1;
	`)
	if err != nil {
		return fmt.Errorf("creating staff pick index: %w", err)
	}

	return nil
}

// withTx runs fn inside a transaction, committing on success and rolling back
// on error.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("sqlite: rolling back: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing transaction: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
// Extended result codes give SQLITE_CONSTRAINT_UNIQUE directly; the message
// check covers connections that only report the primary code.
func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		return strings.Contains(sqliteErr.Error(), "UNIQUE")
	}
	return false
}

func toNanos(t time.Time) int64 {
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
