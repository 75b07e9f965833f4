package validator

import (
	"crypto/ed25519"
	"crypto/rand"
	"strings"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/ruteri/holder-address-registry/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func newPubkeyAddress(t *testing.T) string {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return base58.Encode(pub)
}

func TestValidate_RejectsBlankInput(t *testing.T) {
	for _, mode := range []Mode{ModeLength, ModeOnCurve} {
		v := New(mode)
		assert.False(t, v.Validate(""), mode.String())
		assert.False(t, v.Validate("   "), mode.String())
		assert.False(t, v.Validate("\t\n"), mode.String())
	}
}

func TestValidate(t *testing.T) {
	pubkey := newPubkeyAddress(t)

	// y = 2 has no matching x on edwards25519; y = 3 does.
	offCurve := make([]byte, AddressSize)
	offCurve[0] = 2
	onCurve := make([]byte, AddressSize)
	onCurve[0] = 3

	tests := []struct {
		name      string
		candidate string
		length    bool
		onCurve   bool
	}{
		{"ed25519 public key", pubkey, true, true},
		{"padded public key", " " + pubkey + " ", false, false},
		{"32 bytes off curve", base58.Encode(offCurve), true, false},
		{"32 bytes on curve", base58.Encode(onCurve), true, true},
		{"too short", base58.Encode(make([]byte, 31)), false, false},
		{"too long", base58.Encode(make([]byte, 33)), false, false},
		{"invalid base58 alphabet", "0OIl" + pubkey[4:], false, false},
		{"hex address", "0xc0aD5B5bAbe71C7b1664A4B301673333ecaAF582", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.length, New(ModeLength).Validate(tt.candidate))
			assert.Equal(t, tt.onCurve, New(ModeOnCurve).Validate(tt.candidate))
		})
	}
}

func TestIsOnCurve_NonCanonicalEncoding(t *testing.T) {
	// p + 3 little-endian, a non-canonical encoding of y = 3.
	nonCanonical := make([]byte, AddressSize)
	for i := range nonCanonical {
		nonCanonical[i] = 0xff
	}
	nonCanonical[0] = 0xf0
	nonCanonical[31] = 0x7f

	assert.True(t, IsOnCurve(nonCanonical))
	assert.True(t, New(ModeOnCurve).Validate(base58.Encode(nonCanonical)))
}

func TestValidate_SystemProgramAddressLength(t *testing.T) {
	assert.True(t, New(ModeLength).Validate("11111111111111111111111111111111"))
	assert.False(t, New(ModeLength).Validate("1111111111111111111111111111111"))
}

func TestValidate_WrongLengthNeverValid(t *testing.T) {
	rapid.Check(t, func(r *rapid.T) {
		n := rapid.IntRange(1, 64).Filter(func(n int) bool { return n != AddressSize }).Draw(r, "n")
		data := rapid.SliceOfN(rapid.Byte(), n, n).Draw(r, "data")
		candidate := base58.Encode(data)

		if New(ModeLength).Validate(candidate) {
			r.Fatalf("length mode accepted %d-byte address %q", n, candidate)
		}
		if New(ModeOnCurve).Validate(candidate) {
			r.Fatalf("on-curve mode accepted %d-byte address %q", n, candidate)
		}
	})
}

func TestValidate_Any32BytesPassLengthMode(t *testing.T) {
	rapid.Check(t, func(r *rapid.T) {
		data := rapid.SliceOfN(rapid.Byte(), AddressSize, AddressSize).Draw(r, "data")
		if !New(ModeLength).Validate(base58.Encode(data)) {
			r.Fatalf("length mode rejected 32-byte address %x", data)
		}
	})
}

func TestValidate_PublicKeysPassOnCurveMode(t *testing.T) {
	rapid.Check(t, func(r *rapid.T) {
		seed := rapid.SliceOfN(rapid.Byte(), ed25519.SeedSize, ed25519.SeedSize).Draw(r, "seed")
		pub := ed25519.NewKeyFromSeed(seed).Public().(ed25519.PublicKey)
		if !New(ModeOnCurve).Validate(base58.Encode(pub)) {
			r.Fatalf("on-curve mode rejected public key %x", []byte(pub))
		}
	})
}

func TestParseMode(t *testing.T) {
	mode, err := ParseMode("length")
	require.NoError(t, err)
	assert.Equal(t, ModeLength, mode)

	mode, err = ParseMode("ON-CURVE")
	require.NoError(t, err)
	assert.Equal(t, ModeOnCurve, mode)

	mode, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeOnCurve, mode)

	_, err = ParseMode("bech32")
	assert.Error(t, err)
}

func TestParsePrimaryAddress(t *testing.T) {
	lower := "0xc0ad5b5babe71c7b1664a4b301673333ecaaf582"
	addr, err := ParsePrimaryAddress(lower)
	require.NoError(t, err)
	assert.True(t, strings.EqualFold(lower, addr.Hex()))

	upper, err := ParsePrimaryAddress("0x" + strings.ToUpper(lower[2:]))
	require.NoError(t, err)
	assert.Equal(t, addr, upper)

	noPrefix, err := ParsePrimaryAddress("c0ad5b5babe71c7b1664a4b301673333ecaaf582")
	require.NoError(t, err)
	assert.Equal(t, addr, noPrefix)

	for _, bad := range []string{"", "0x1234", "not-an-address", "0xzz" + lower[4:]} {
		_, err := ParsePrimaryAddress(bad)
		assert.ErrorIs(t, err, interfaces.ErrInvalidPrimaryAddress, bad)
	}
}
