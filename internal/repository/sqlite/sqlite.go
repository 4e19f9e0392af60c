// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY SQLITE?
// SQLite is an embedded database; it lives inside your Go binary as a single file.
// No separate database server to install, configure, or manage. Perfect for:
//   - Single-server deployments (which is most apps, honestly)
//   - Development and testing (use ":memory:" for in-memory DB)
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo (calls C code from Go), which means you need a C compiler
// installed and cross-compilation becomes painful. modernc.org/sqlite is a pure Go
// translation of the SQLite C code; no C compiler needed, works everywhere Go works.
//
// DATABASE/SQL OVERVIEW:
// Go's standard library provides "database/sql"; a generic interface for SQL databases.
// It works with any database through "drivers" (SQLite, Postgres, MySQL, etc.).
// Key types:
//   - sql.DB     : a connection pool (NOT a single connection!)
//   - sql.Tx     : a transaction
//   - sql.Row    : a single result row
//   - sql.Rows   : multiple result rows (must be closed!)
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/pressly/goose/v3"
	moderncsqlite "modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"
)

// MIGRATIONS:
// The schema lives in migrations/*.sql, embedded into the binary at compile
// time. goose records which files have run in its goose_db_version table,
// so New is safe to call against an existing database file.
//
//go:embed migrations/*.sql
var migrations embed.FS

// DB wraps a sql.DB connection pool and provides repository methods.
//
// It implements both repository.UserRepository and repository.NoteRepository.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) a SQLite database and brings its schema up to date.
//
// dbPath examples:
//   - "data/notes.db"  → file-based database (persistent)
//   - ":memory:"       → in-memory database (great for tests, lost on close)
//
// ONE CONNECTION:
// SQLite allows a single writer at a time, and each ":memory:" connection is
// a separate, empty database. Capping the pool at one connection serialises
// writes inside Go (instead of "database is locked" errors) and keeps every
// query on the same in-memory database.
func New(ctx context.Context, dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	// Ping verifies the connection actually works.
	// Without this, a bad path or permissions issue would only surface
	// on the first query, which is much harder to debug.
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while a write is in progress (no-op for :memory:).
	// Foreign keys are OFF by default in SQLite; notes.owner_id relies on them.
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}

	if err := migrate(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return &DB{conn: conn}, nil
}

// NewFromConn wraps an already-open pool without touching its schema.
// Tests use it with go-sqlmock to simulate driver failures.
func NewFromConn(conn *sql.DB) *DB {
	return &DB{conn: conn}
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks the database is reachable. Used by the health probe.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func migrate(ctx context.Context, conn *sql.DB) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}

	return goose.UpContext(ctx, conn, "migrations")
}

// isUniqueViolation reports whether err is SQLite's UNIQUE constraint error.
//
// The driver exposes the extended result code on *sqlite.Error; the string
// check covers errors that reach us already flattened by a wrapper.
func isUniqueViolation(err error) bool {
	var se *moderncsqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlitelib.SQLITE_CONSTRAINT_UNIQUE ||
			se.Code() == sqlitelib.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
