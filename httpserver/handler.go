package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ruteri/holder-address-registry/api"
	"github.com/ruteri/holder-address-registry/export"
	"github.com/ruteri/holder-address-registry/interfaces"
	"github.com/ruteri/holder-address-registry/registration"
	"github.com/ruteri/holder-address-registry/validator"
)

// maxBodySize is the maximum allowed request body size (1MB).
const maxBodySize = 1024 * 1024

// RequestError provides structured error information for HTTP responses.
// It includes both an HTTP status code and the underlying error.
type RequestError struct {
	// StatusCode is the HTTP status code to return.
	StatusCode int

	// Err is the underlying error.
	Err error
}

// Error returns the error message from the underlying error.
func (e *RequestError) Error() string {
	return e.Err.Error()
}

// Handler processes HTTP requests for the registry.
type Handler struct {
	registrations *registration.Service
	exports       *export.Service
	gate          interfaces.OwnershipChecker
	info          api.ConfigResponse
	log           *slog.Logger
}

// NewHandler creates a new HTTP request handler.
//
// Parameters:
//   - registrations: register and lookup flows
//   - exports: credential-gated CSV export
//   - gate: ownership gate backing /api/eligibility, nil when no RPC is configured
//   - info: deployment details served by /api/config
//   - log: Structured logger for operational insights
func NewHandler(registrations *registration.Service, exports *export.Service, gate interfaces.OwnershipChecker, info api.ConfigResponse, log *slog.Logger) *Handler {
	return &Handler{
		registrations: registrations,
		exports:       exports,
		gate:          gate,
		info:          info,
		log:           log,
	}
}

// HandleRegister stores a primary -> secondary mapping.
//
// URL format: POST /api/save-address
// Request body: {"primaryAddress": "0x...", "secondaryAddress": "<base58>"}
//
// Responses:
//   - 200 {"success": true}
//   - 400 invalid address or already registered (message names the existing secondary address)
//   - 403 wallet holds no qualifying asset (only when ownership is enforced)
//   - 500 "Failed to save address: <reason>"
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req api.RegisterRequest
	if err := decodeBody(w, r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	_, err := h.registrations.Register(r.Context(), req.PrimaryAddress, req.SecondaryAddress)
	if err != nil {
		reqErr := registrationError(err)
		if reqErr.StatusCode >= http.StatusInternalServerError {
			h.log.Error("Registration failed", "err", err, "primary", req.PrimaryAddress)
		} else {
			h.log.Debug("Registration rejected", "err", err, "primary", req.PrimaryAddress)
		}
		http.Error(w, reqErr.Error(), reqErr.StatusCode)
		return
	}

	writeJSON(w, h.log, http.StatusOK, api.RegisterResponse{Success: true})
}

// HandleLookup returns the secondary address registered for a primary address.
//
// URL format: GET /api/get-address?primaryAddress=0x...
// or GET /api/registrations/{primaryAddress}
func (h *Handler) HandleLookup(w http.ResponseWriter, r *http.Request) {
	primary := chi.URLParam(r, "primaryAddress")
	if primary == "" {
		primary = r.URL.Query().Get("primaryAddress")
	}

	reg, err := h.registrations.Lookup(r.Context(), primary)
	switch {
	case errors.Is(err, interfaces.ErrInvalidPrimaryAddress):
		http.Error(w, "Invalid primary address", http.StatusBadRequest)
		return
	case errors.Is(err, interfaces.ErrNotFound):
		http.Error(w, "Address not registered", http.StatusNotFound)
		return
	case err != nil:
		h.log.Error("Lookup failed", "err", err, "primary", primary)
		http.Error(w, "Failed to look up address", http.StatusInternalServerError)
		return
	}

	writeJSON(w, h.log, http.StatusOK, api.LookupResponse{SecondaryAddress: reg.SecondaryAddress})
}

// HandleExport returns every registration as a CSV download.
//
// URL format: POST /api/export-csv
// Request body: {"credential": "<shared secret>"}
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	var req api.ExportRequest
	if err := decodeBody(w, r, &req); err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	data, err := h.exports.Export(r.Context(), req.Secret())
	if errors.Is(err, interfaces.ErrUnauthorized) {
		h.log.Warn("Export rejected", "remote", r.RemoteAddr)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	} else if err != nil {
		http.Error(w, fmt.Sprintf("Failed to export addresses: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.log.Error("Failed to write export", "err", err)
	}
}

// HandleEligibility reports whether a wallet holds a qualifying asset.
//
// URL format: GET /api/eligibility?address=0x...
func (h *Handler) HandleEligibility(w http.ResponseWriter, r *http.Request) {
	if h.gate == nil {
		http.Error(w, "Ownership checks are not configured", http.StatusServiceUnavailable)
		return
	}

	wallet, err := validator.ParsePrimaryAddress(r.URL.Query().Get("address"))
	if err != nil {
		http.Error(w, "Invalid primary address", http.StatusBadRequest)
		return
	}

	writeJSON(w, h.log, http.StatusOK, api.EligibilityResponse{
		Address:  wallet.Hex(),
		Eligible: h.gate.OwnsAsset(r.Context(), wallet),
	})
}

// HandleConfig serves the chain and contract details the UI needs.
//
// URL format: GET /api/config
func (h *Handler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.log, http.StatusOK, h.info)
}

// registrationError maps a registration failure to its HTTP status and message.
func registrationError(err error) *RequestError {
	var conflict *interfaces.ConflictError
	switch {
	case errors.As(err, &conflict):
		return &RequestError{StatusCode: http.StatusBadRequest, Err: conflict}
	case errors.Is(err, interfaces.ErrInvalidAddress):
		return &RequestError{StatusCode: http.StatusBadRequest, Err: errors.New("Invalid secondary address")}
	case errors.Is(err, interfaces.ErrInvalidPrimaryAddress):
		return &RequestError{StatusCode: http.StatusBadRequest, Err: errors.New("Invalid primary address")}
	case errors.Is(err, interfaces.ErrNotEligible):
		return &RequestError{StatusCode: http.StatusForbidden, Err: errors.New("Wallet does not hold a qualifying asset")}
	default:
		var storeErr *interfaces.StoreError
		if errors.As(err, &storeErr) {
			err = storeErr.Err
		}
		return &RequestError{StatusCode: http.StatusInternalServerError, Err: fmt.Errorf("Failed to save address: %w", err)}
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	return json.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, log *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Failed to encode response", "err", err)
	}
}
