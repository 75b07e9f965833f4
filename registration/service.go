// Package registration implements the register and lookup flows of the registry.
//
// A registration moves through validation, an optional ownership re-check,
// a uniqueness check and the conditional insert. The store's insert is atomic,
// so two concurrent requests for the same primary address yield exactly one
// success and one conflict.
package registration

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ruteri/holder-address-registry/interfaces"
	"github.com/ruteri/holder-address-registry/metrics"
	"github.com/ruteri/holder-address-registry/validator"
)

// Service coordinates validation, the ownership gate and the store.
type Service struct {
	validator interfaces.AddressValidator
	store     interfaces.RegistrationStore
	gate      interfaces.OwnershipChecker
	log       *slog.Logger
}

// NewService creates a registration service. A nil gate trusts the client's
// ownership check.
func NewService(v interfaces.AddressValidator, store interfaces.RegistrationStore, gate interfaces.OwnershipChecker, log *slog.Logger) *Service {
	return &Service{
		validator: v,
		store:     store,
		gate:      gate,
		log:       log,
	}
}

// Register records primary -> secondary. It returns the stored registration,
// or one of ErrInvalidPrimaryAddress, ErrInvalidAddress, ErrNotEligible,
// *ConflictError or *StoreError.
func (s *Service) Register(ctx context.Context, primary, secondary string) (*interfaces.Registration, error) {
	wallet, err := validator.ParsePrimaryAddress(primary)
	if err != nil {
		metrics.Registrations.WithLabelValues("invalid_primary").Inc()
		return nil, err
	}

	if !s.validator.Validate(secondary) {
		metrics.Registrations.WithLabelValues("invalid_address").Inc()
		return nil, interfaces.ErrInvalidAddress
	}

	if s.gate != nil && !s.gate.OwnsAsset(ctx, wallet) {
		metrics.Registrations.WithLabelValues("not_eligible").Inc()
		return nil, interfaces.ErrNotEligible
	}

	reg := interfaces.Registration{
		PrimaryAddress:   wallet.Hex(),
		SecondaryAddress: secondary,
	}

	existing, err := s.store.Lookup(ctx, reg.PrimaryAddress)
	switch {
	case err == nil:
		metrics.Registrations.WithLabelValues("conflict").Inc()
		return nil, &interfaces.ConflictError{PrimaryAddress: reg.PrimaryAddress, Existing: existing.SecondaryAddress}
	case !errors.Is(err, interfaces.ErrNotFound):
		metrics.Registrations.WithLabelValues("store_error").Inc()
		s.log.Error("Registration lookup failed", "err", err, "store", s.store.Name(), "primary", reg.PrimaryAddress)
		return nil, &interfaces.StoreError{Op: "lookup", Err: err}
	}

	if err := s.store.Append(ctx, reg); err != nil {
		var conflict *interfaces.ConflictError
		if errors.As(err, &conflict) {
			metrics.Registrations.WithLabelValues("conflict").Inc()
			return nil, conflict
		}
		metrics.Registrations.WithLabelValues("store_error").Inc()
		s.log.Error("Registration append failed", "err", err, "store", s.store.Name(), "primary", reg.PrimaryAddress)
		return nil, &interfaces.StoreError{Op: "append", Err: err}
	}

	metrics.Registrations.WithLabelValues("success").Inc()
	s.log.Info("Registered address", "primary", reg.PrimaryAddress, "secondary", reg.SecondaryAddress)
	return &reg, nil
}

// Lookup returns the registration of a primary address, or ErrNotFound.
func (s *Service) Lookup(ctx context.Context, primary string) (*interfaces.Registration, error) {
	wallet, err := validator.ParsePrimaryAddress(primary)
	if err != nil {
		return nil, err
	}

	reg, err := s.store.Lookup(ctx, wallet.Hex())
	if errors.Is(err, interfaces.ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, &interfaces.StoreError{Op: "lookup", Err: err}
	}
	return &reg, nil
}
