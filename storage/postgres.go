package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	_ "github.com/lib/pq"
)

var postgresDialect = dialect{
	name: "postgres",
	createTable: `CREATE TABLE IF NOT EXISTS registrations (
		id BIGSERIAL,
		primary_address TEXT PRIMARY KEY,
		secondary_address TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	insert: `INSERT INTO registrations (primary_address, secondary_address) VALUES ($1, $2)
		ON CONFLICT (primary_address) DO NOTHING`,
	lookup: `SELECT secondary_address FROM registrations WHERE primary_address = $1`,
	all:    `SELECT primary_address, secondary_address FROM registrations ORDER BY id`,
}

// NewPostgresBackend connects to PostgreSQL using a postgres:// connection URL.
func NewPostgresBackend(ctx context.Context, u *url.URL, log *slog.Logger) (*SQLBackend, error) {
	db, err := sql.Open("postgres", u.String())
	if err != nil {
		return nil, fmt.Errorf("open postgres db: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return newSQLBackend(ctx, db, postgresDialect, u.Redacted(), log)
}
