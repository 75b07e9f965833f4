package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ruteri/holder-address-registry/interfaces"
)

// dialect holds the statements that differ between SQL engines.
type dialect struct {
	name        string
	createTable string
	insert      string
	lookup      string
	all         string
}

// SQLBackend stores registrations in a SQL table with a unique primary_address column.
type SQLBackend struct {
	db          *sql.DB
	dialect     dialect
	log         *slog.Logger
	locationURI string
}

// newSQLBackend takes ownership of db and creates the table if missing.
func newSQLBackend(ctx context.Context, db *sql.DB, d dialect, locationURI string, log *slog.Logger) (*SQLBackend, error) {
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", d.name, err)
	}
	if _, err := db.ExecContext(ctx, d.createTable); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create registrations table: %w", err)
	}
	return &SQLBackend{
		db:          db,
		dialect:     d,
		log:         log,
		locationURI: locationURI,
	}, nil
}

func (b *SQLBackend) Lookup(ctx context.Context, primaryAddress string) (interfaces.Registration, error) {
	reg := interfaces.Registration{PrimaryAddress: primaryAddress}
	err := b.db.QueryRowContext(ctx, b.dialect.lookup, primaryAddress).Scan(&reg.SecondaryAddress)
	if errors.Is(err, sql.ErrNoRows) {
		return interfaces.Registration{}, interfaces.ErrNotFound
	}
	if err != nil {
		return interfaces.Registration{}, fmt.Errorf("failed to query registration: %w", err)
	}
	return reg, nil
}

func (b *SQLBackend) Append(ctx context.Context, reg interfaces.Registration) error {
	res, err := b.db.ExecContext(ctx, b.dialect.insert, reg.PrimaryAddress, reg.SecondaryAddress)
	if err != nil {
		return fmt.Errorf("failed to insert registration: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n > 0 {
		return nil
	}

	// The insert lost to an existing row.
	existing, err := b.Lookup(ctx, reg.PrimaryAddress)
	if err != nil {
		return fmt.Errorf("insert conflicted but existing row is unreadable: %w", err)
	}
	return &interfaces.ConflictError{PrimaryAddress: reg.PrimaryAddress, Existing: existing.SecondaryAddress}
}

func (b *SQLBackend) All(ctx context.Context) ([]interfaces.Registration, error) {
	rows, err := b.db.QueryContext(ctx, b.dialect.all)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	defer rows.Close()

	var records []interfaces.Registration
	for rows.Next() {
		var reg interfaces.Registration
		if err := rows.Scan(&reg.PrimaryAddress, &reg.SecondaryAddress); err != nil {
			return nil, fmt.Errorf("failed to scan registration: %w", err)
		}
		records = append(records, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	return records, nil
}

func (b *SQLBackend) Available(ctx context.Context) bool {
	if err := b.db.PingContext(ctx); err != nil {
		b.log.Warn("SQL backend unavailable", slog.String("backend", b.dialect.name), "err", err)
		return false
	}
	return true
}

func (b *SQLBackend) Name() string {
	return b.dialect.name
}

func (b *SQLBackend) LocationURI() string {
	return b.locationURI
}

func (b *SQLBackend) Close() error {
	return b.db.Close()
}
