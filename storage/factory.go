package storage

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/ruteri/holder-address-registry/interfaces"
)

// StoreFactory creates registration stores from URI strings.
type StoreFactory struct {
	log *slog.Logger
}

// NewStoreFactory creates a new factory instance that can create registration stores.
func NewStoreFactory(logger *slog.Logger) *StoreFactory {
	return &StoreFactory{log: logger}
}

// StoreFor opens a registration store from a location URI.
// The URI format should be [scheme]://[auth@]host[:port][/path][?params]
//
// Supported schemes:
//   - memory:// - Process-local store
//   - file:// - CSV file on the local filesystem
//   - sqlite:// - Embedded SQLite database
//   - postgres://, postgresql:// - PostgreSQL
//   - redis://, rediss:// - Redis
//
// The returned store owns its connection; the caller must Close it.
func (sf *StoreFactory) StoreFor(ctx context.Context, locationURI string) (interfaces.RegistrationStore, error) {
	u, err := url.Parse(locationURI)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrInvalidLocationURI, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "memory":
		sf.log.Warn("Using in-memory registration store, registrations will not survive a restart")
		return NewMemoryStore(), nil
	case "file":
		return sf.createFileBackend(u)
	case "sqlite":
		return sf.createSQLiteBackend(ctx, u)
	case "postgres", "postgresql":
		sf.log.Debug("Creating postgres backend", slog.String("uri", u.Redacted()))
		return NewPostgresBackend(ctx, u, sf.log)
	case "redis", "rediss":
		sf.log.Debug("Creating redis backend", slog.String("uri", u.Redacted()))
		return NewRedisBackend(ctx, u, sf.log)
	default:
		return nil, fmt.Errorf("%w: unsupported backend scheme: %s", interfaces.ErrInvalidLocationURI, u.Scheme)
	}
}

// localPath extracts a filesystem path from file:// and sqlite:// URIs.
// Both file:///absolute/path and file://./relative/path are accepted.
func localPath(u *url.URL) string {
	path := u.Path
	if u.Host != "" {
		path = u.Host + "/" + strings.TrimPrefix(path, "/")
	}
	return path
}

// createFileBackend creates a CSV file backend.
// URI format: file:///absolute/path/addresses.csv or file://./relative/addresses.csv
func (sf *StoreFactory) createFileBackend(u *url.URL) (interfaces.RegistrationStore, error) {
	sf.log.Debug("Creating file backend", slog.String("uri", u.String()))

	path := localPath(u)
	if path == "" || strings.HasSuffix(path, "/") {
		return nil, fmt.Errorf("%w: file URI must name a file: %s", interfaces.ErrInvalidLocationURI, u.String())
	}
	return NewFileBackend(path, sf.log)
}

// createSQLiteBackend creates a SQLite backend.
// URI format: sqlite:///absolute/path/registry.db, sqlite://./registry.db or sqlite::memory:
func (sf *StoreFactory) createSQLiteBackend(ctx context.Context, u *url.URL) (interfaces.RegistrationStore, error) {
	sf.log.Debug("Creating sqlite backend", slog.String("uri", u.String()))

	path := localPath(u)
	if u.Opaque == ":memory:" {
		path = ":memory:"
	}
	if path == "" {
		return nil, fmt.Errorf("%w: empty path in sqlite URI: %s", interfaces.ErrInvalidLocationURI, u.String())
	}
	return NewSQLiteBackend(ctx, path, sf.log)
}
