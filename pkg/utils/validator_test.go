package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("budi@example.co.id"))
	assert.Error(t, ValidateEmail("budi@"))
	assert.Error(t, ValidateEmail(""))
}

func TestValidateOneOf(t *testing.T) {
	assert.NoError(t, ValidateOneOf("role", "approver", "approver", "requester"))
	assert.EqualError(t, ValidateOneOf("role", "boss", "approver"), `invalid role: "boss"`)
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "line1\nline2\ttab", SanitizeString("line1\nline2\ttab\x00\x07"))
}
