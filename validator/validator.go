// Package validator decides whether user-supplied addresses are acceptable.
//
// Secondary addresses are base58 text. In ModeLength an address is valid when it
// decodes to exactly AddressSize bytes; in ModeOnCurve the decoded bytes must in
// addition be a valid compressed ed25519 point, i.e. a usable public key.
//
// Validation fails closed: empty, whitespace-only and undecodable input is invalid.
package validator

import (
	"fmt"
	"strings"

	"filippo.io/edwards25519"
	"github.com/ethereum/go-ethereum/common"
	"github.com/mr-tron/base58"
	"github.com/ruteri/holder-address-registry/interfaces"
)

// AddressSize is the decoded size of a secondary address.
const AddressSize = 32

// Mode selects how strictly secondary addresses are checked.
type Mode int

const (
	// ModeLength accepts any base58 string decoding to AddressSize bytes.
	ModeLength Mode = iota
	// ModeOnCurve additionally requires the bytes to be an ed25519 point.
	ModeOnCurve
)

func (m Mode) String() string {
	switch m {
	case ModeLength:
		return "length"
	case ModeOnCurve:
		return "on-curve"
	default:
		return "unknown"
	}
}

// ParseMode parses the configuration spelling of a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "length":
		return ModeLength, nil
	case "on-curve", "oncurve", "":
		return ModeOnCurve, nil
	default:
		return 0, fmt.Errorf("unknown validation mode: %q", s)
	}
}

// Validator checks secondary addresses.
type Validator struct {
	mode Mode
}

var _ interfaces.AddressValidator = (*Validator)(nil)

// New returns a validator for the given mode.
func New(mode Mode) *Validator {
	return &Validator{mode: mode}
}

// Mode returns the configured validation mode.
func (v *Validator) Mode() Mode {
	return v.mode
}

// Validate reports whether candidate is an acceptable secondary address.
func (v *Validator) Validate(candidate string) bool {
	if strings.TrimSpace(candidate) == "" {
		return false
	}

	decoded, err := base58.Decode(candidate)
	if err != nil || len(decoded) != AddressSize {
		return false
	}

	if v.mode == ModeOnCurve {
		return IsOnCurve(decoded)
	}
	return true
}

// IsOnCurve reports whether key decodes to an ed25519 point. Non-canonical
// encodings of a valid y coordinate are accepted.
func IsOnCurve(key []byte) bool {
	if len(key) != AddressSize {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(key)
	return err == nil
}

// ParsePrimaryAddress parses a 20-byte hex wallet address, with or without the 0x prefix.
// Case variants of the same address parse to the same value.
func ParsePrimaryAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: %q", interfaces.ErrInvalidPrimaryAddress, s)
	}
	return common.HexToAddress(s), nil
}
