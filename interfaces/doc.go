// Package interfaces defines the core interfaces and types for the holder
// address registry, separating interface definitions from implementations.
//
// # Registration Types
//
// Registration: a mapping from a primary (EVM wallet) address to a secondary
// (base58, ed25519) address. At most one registration exists per primary address.
//
// # Storage Interfaces
//
// RegistrationStore: keyed, append-only collection of registrations with an
// atomic conditional insert. Backends are selected by URI (memory, file, sqlite,
// postgres, redis).
//
// Archiver: write-only sink for export snapshots (file, S3, IPFS).
//
// # Validation and Eligibility
//
// AddressValidator: decides whether a candidate secondary address is acceptable.
//
// OwnershipChecker: decides whether a wallet holds at least one qualifying asset.
//
// # Errors
//
// Sentinel errors (ErrInvalidAddress, ErrNotFound, ErrUnauthorized, ...) are
// matched with errors.Is. ConflictError carries the already registered secondary
// address and StoreError wraps datastore failures.
package interfaces
