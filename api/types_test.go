package api

import (
	"testing"

	"github.com/ruteri/holder-address-registry/interfaces"
	"github.com/stretchr/testify/assert"
)

func TestParseConflict(t *testing.T) {
	err := &interfaces.ConflictError{PrimaryAddress: "0xabc", Existing: "11111111111111111111111111111111"}

	existing, ok := ParseConflict(err.Error() + "\n")
	assert.True(t, ok)
	assert.Equal(t, "11111111111111111111111111111111", existing)

	_, ok = ParseConflict("Invalid secondary address")
	assert.False(t, ok)

	_, ok = ParseConflict("registered with secondary address: ")
	assert.False(t, ok)
}

func TestExportRequest_Secret(t *testing.T) {
	assert.Equal(t, "a", ExportRequest{Credential: "a", Password: "b"}.Secret())
	assert.Equal(t, "b", ExportRequest{Password: "b"}.Secret())
	assert.Equal(t, "", ExportRequest{}.Secret())
}
