package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("Secret42", 4) // min cost keeps the test fast
	require.NoError(t, err)
	assert.True(t, VerifyPassword(hash, "Secret42"))
	assert.False(t, VerifyPassword(hash, "secret42"))
}

func TestValidatePasswordPolicy(t *testing.T) {
	cases := []struct {
		name     string
		password string
		wantOK   bool
	}{
		{"valid mixed case", "Secret42", true},
		{"valid letters only", "SecretPass", true},
		{"too short", "Abc1234", false},
		{"no uppercase", "secret42", false},
		{"no lowercase", "SECRET42", false},
		{"symbol rejected", "Secret42!", false},
		{"multibyte rejected", "Secretパス42", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePasswordPolicy(tc.password)
			if tc.wantOK {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestRefreshTokenHashIsStable(t *testing.T) {
	tok, err := NewRefreshToken(7)
	require.NoError(t, err)
	assert.Len(t, tok.Raw, 96) // 48 random bytes, hex encoded

	h1 := HashRefreshRaw(tok.Raw)
	h2 := HashRefreshRaw(tok.Raw)
	assert.Equal(t, h1, h2)
	assert.NotEqual(t, tok.Raw, h1)
}
