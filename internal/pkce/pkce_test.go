package pkce

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-social/internal/core/domain"
)

func TestGenerateVerifier_ValidRange(t *testing.T) {
	for n := MinVerifierBytes; n <= MaxVerifierBytes; n++ {
		v, err := GenerateVerifier(n)
		require.NoError(t, err, "byte length %d", n)
		assert.GreaterOrEqual(t, len(v), 43)
		assert.LessOrEqual(t, len(v), 128)
		assert.True(t, IsValidVerifier(v), "verifier %q should be valid", v)
	}
}

func TestGenerateVerifier_InvalidLength(t *testing.T) {
	for _, n := range []int{-1, 0, 31, 97, 200} {
		_, err := GenerateVerifier(n)
		assert.True(t, errors.Is(err, domain.ErrInvalidLength), "byte length %d", n)
	}
}

func TestGenerateVerifier_Unique(t *testing.T) {
	a, err := GenerateVerifier(DefaultVerifierBytes)
	require.NoError(t, err)
	b, err := GenerateVerifier(DefaultVerifierBytes)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestChallengeFromVerifier(t *testing.T) {
	// RFC 7636 appendix B
	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	assert.Equal(t, "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM", ChallengeFromVerifier(verifier))

	v, err := GenerateVerifier(48)
	require.NoError(t, err)
	sum := sha256.Sum256([]byte(v))
	assert.Equal(t, base64.RawURLEncoding.EncodeToString(sum[:]), ChallengeFromVerifier(v))
}

func TestIsValidVerifier(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"too short", strings.Repeat("a", 42), false},
		{"min length", strings.Repeat("a", 43), true},
		{"max length", strings.Repeat("Z", 128), true},
		{"too long", strings.Repeat("a", 129), false},
		{"unreserved punctuation", strings.Repeat("a", 40) + "-._~", true},
		{"plus sign", strings.Repeat("a", 42) + "+", false},
		{"padding", strings.Repeat("a", 42) + "=", false},
		{"space", strings.Repeat("a", 42) + " ", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidVerifier(tt.in))
		})
	}
}

func TestNewState(t *testing.T) {
	a, err := NewState()
	require.NoError(t, err)
	b, err := NewState()
	require.NoError(t, err)
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}
