package api

import (
	"errors"
	"strings"

	"github.com/ruteri/holder-address-registry/interfaces"
)

// Route paths served by the registry.
const (
	SaveAddressPath  = "/api/save-address"
	RegisterPath     = "/api/register"
	GetAddressPath   = "/api/get-address"
	RegistrationPath = "/api/registrations/{primaryAddress}"
	ExportPath       = "/api/export-csv"
	EligibilityPath  = "/api/eligibility"
	ConfigPath       = "/api/config"
)

// RegisterRequest is the body of a registration.
type RegisterRequest struct {
	PrimaryAddress   string `json:"primaryAddress"`
	SecondaryAddress string `json:"secondaryAddress"`
}

// RegisterResponse is returned when a registration was stored.
type RegisterResponse struct {
	Success bool `json:"success"`
}

// LookupResponse carries the secondary address registered for a primary address.
type LookupResponse struct {
	SecondaryAddress string `json:"secondaryAddress"`
}

// ExportRequest carries the operator's export credential. Password is an
// alias accepted for older dashboards.
type ExportRequest struct {
	Credential string `json:"credential"`
	Password   string `json:"password,omitempty"`
}

// Secret returns the supplied credential, preferring Credential over Password.
func (r ExportRequest) Secret() string {
	if r.Credential != "" {
		return r.Credential
	}
	return r.Password
}

// EligibilityResponse reports whether a wallet holds a qualifying asset.
type EligibilityResponse struct {
	Address  string `json:"address"`
	Eligible bool   `json:"eligible"`
}

// ConfigResponse lists what the wallet-connection UI needs to know.
type ConfigResponse struct {
	SupportedChainIDs []uint64 `json:"supportedChainIds"`
	AssetContracts    []string `json:"assetContracts"`
	ValidationMode    string   `json:"validationMode"`
	OwnershipEnforced bool     `json:"ownershipEnforced"`
}

// ParseConflict extracts the already registered secondary address from a
// conflict message. ok is false when msg is not a conflict message.
func ParseConflict(msg string) (existing string, ok bool) {
	_, existing, ok = strings.Cut(msg, interfaces.ConflictDelimiter)
	if !ok {
		return "", false
	}
	existing = strings.TrimSpace(existing)
	return existing, existing != ""
}

// ErrServerError is wrapped by client errors for 5xx responses.
var ErrServerError = errors.New("registry server error")
