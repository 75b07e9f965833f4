package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"
)

var sqliteDialect = dialect{
	name: "sqlite",
	createTable: `CREATE TABLE IF NOT EXISTS registrations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		primary_address TEXT NOT NULL UNIQUE,
		secondary_address TEXT NOT NULL,
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	)`,
	insert: `INSERT INTO registrations (primary_address, secondary_address) VALUES (?, ?)
		ON CONFLICT (primary_address) DO NOTHING`,
	lookup: `SELECT secondary_address FROM registrations WHERE primary_address = ?`,
	all:    `SELECT primary_address, secondary_address FROM registrations ORDER BY id`,
}

// NewSQLiteBackend opens the SQLite database at path. ":memory:" opens a
// private in-memory database.
func NewSQLiteBackend(ctx context.Context, path string, log *slog.Logger) (*SQLBackend, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	return newSQLBackend(ctx, db, sqliteDialect, fmt.Sprintf("sqlite://%s", path), log)
}
