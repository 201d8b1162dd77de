package utils

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSecureOTP_Range(t *testing.T) {
	for i := 0; i < 500; i++ {
		code, err := GenerateSecureOTP()
		require.NoError(t, err)
		require.Len(t, code, 6)

		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 100000)
		assert.LessOrEqual(t, n, 999999)
		assert.True(t, IsValidOTP(code))
	}
}

func TestGenerateSecureID(t *testing.T) {
	now := time.Unix(1700000000, 0)
	id, err := GenerateSecureID("ORC", now)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(id, "ORC1700000000"))
	assert.Len(t, id, len("ORC1700000000")+6)
}

func TestIsValidPhoneNumber(t *testing.T) {
	tests := []struct {
		number string
		valid  bool
	}{
		{"9876543210", true},
		{"6000000000", true},
		{"5876543210", false},
		{"987654321", false},
		{"98765432101", false},
		{"+919876543210", false},
		{"98765x3210", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.number, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsValidPhoneNumber(tt.number))
		})
	}
}

func TestIsValidOTP(t *testing.T) {
	assert.True(t, IsValidOTP("012345"))
	assert.False(t, IsValidOTP("12345"))
	assert.False(t, IsValidOTP("1234567"))
	assert.False(t, IsValidOTP("12a456"))
	assert.False(t, IsValidOTP(""))
}
