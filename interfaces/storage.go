package interfaces

import (
	"context"
	"errors"
)

var (
	// ErrBackendUnavailable is returned when a storage backend is not accessible.
	// This could be due to network issues, authentication failures, or service outages.
	ErrBackendUnavailable = errors.New("storage backend unavailable")

	// ErrInvalidLocationURI is returned when a storage location URI is malformed or unsupported.
	// URIs must follow the format: [scheme]://[auth@]host[:port][/path][?params]
	ErrInvalidLocationURI = errors.New("invalid storage location URI")
)

// RegistrationStore is a keyed, append-only collection of registrations.
type RegistrationStore interface {
	// Lookup returns the registration for a primary address, or ErrNotFound.
	Lookup(ctx context.Context, primaryAddress string) (Registration, error)

	// Append inserts a registration unless one already exists for its primary address.
	// The check and the insert are atomic; a duplicate yields *ConflictError
	// carrying the stored secondary address.
	Append(ctx context.Context, reg Registration) error

	// All returns every registration in insertion order.
	All(ctx context.Context) ([]Registration, error)

	// Available checks if backend is accessible.
	Available(ctx context.Context) bool

	// Name returns identifier for logging.
	Name() string

	// LocationURI returns URI identifying this backend, with credentials redacted.
	LocationURI() string

	// Close releases the underlying connection or file handles.
	Close() error
}

// Archiver stores export snapshots. It is write-only from the registry's point of view.
type Archiver interface {
	// Put stores data under name and returns where it ended up.
	Put(ctx context.Context, name string, data []byte) (string, error)

	// Available checks if the archive is accessible.
	Available(ctx context.Context) bool

	// Name returns identifier for logging.
	Name() string

	// LocationURI returns URI identifying this archive.
	LocationURI() string
}
