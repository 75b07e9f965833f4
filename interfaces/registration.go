package interfaces

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ConflictDelimiter precedes the existing secondary address in conflict messages.
// Clients split on it to display the address the wallet is already registered with.
const ConflictDelimiter = "secondary address: "

// Registration maps a primary (first-chain) address to a secondary (second-chain) address.
type Registration struct {
	PrimaryAddress   string `json:"primaryAddress"`
	SecondaryAddress string `json:"secondaryAddress"`
}

var (
	// ErrInvalidAddress is returned when the secondary address fails validation.
	ErrInvalidAddress = errors.New("invalid secondary address")

	// ErrInvalidPrimaryAddress is returned when the primary address is not a 20-byte hex address.
	ErrInvalidPrimaryAddress = errors.New("invalid primary address")

	// ErrAlreadyRegistered matches any *ConflictError.
	ErrAlreadyRegistered = errors.New("primary address already registered")

	// ErrNotFound is returned when no registration exists for a primary address.
	ErrNotFound = errors.New("registration not found")

	// ErrUnauthorized is returned when the export credential does not match.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotEligible is returned when ownership is enforced and the wallet holds no qualifying asset.
	ErrNotEligible = errors.New("wallet does not hold a qualifying asset")
)

// ConflictError reports that a primary address is already registered.
// Existing holds the secondary address of the first writer.
type ConflictError struct {
	PrimaryAddress string
	Existing       string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("Primary address %s is already registered with %s%s", e.PrimaryAddress, ConflictDelimiter, e.Existing)
}

// Is makes errors.Is(err, ErrAlreadyRegistered) hold for conflicts.
func (e *ConflictError) Is(target error) bool {
	return target == ErrAlreadyRegistered
}

// StoreError wraps a datastore failure (unreachable backend, failed write).
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// AddressValidator decides whether a candidate secondary address is valid.
// Implementations must be pure and fail closed.
type AddressValidator interface {
	Validate(candidate string) bool
}

// OwnershipChecker reports whether a wallet holds at least one qualifying asset.
// Query failures are never surfaced; they count as "no balance".
type OwnershipChecker interface {
	OwnsAsset(ctx context.Context, wallet common.Address) bool
}
