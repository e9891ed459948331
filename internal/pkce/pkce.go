// Package pkce generates and checks Proof Key for Code Exchange values.
package pkce

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/custodia-labs/sercha-social/internal/core/domain"
)

const (
	// MinVerifierBytes encodes to a 43 character verifier.
	MinVerifierBytes = 32

	// MaxVerifierBytes encodes to a 128 character verifier.
	MaxVerifierBytes = 96

	// DefaultVerifierBytes is used by the authorization flow.
	DefaultVerifierBytes = 64

	minVerifierLen = 43
	maxVerifierLen = 128
)

// GenerateVerifier returns a URL-safe, unpadded base64 encoding of byteLength
// random bytes.
func GenerateVerifier(byteLength int) (string, error) {
	if byteLength < MinVerifierBytes || byteLength > MaxVerifierBytes {
		return "", fmt.Errorf("%w: %d bytes, want %d-%d", domain.ErrInvalidLength, byteLength, MinVerifierBytes, MaxVerifierBytes)
	}
	b := make([]byte, byteLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// ChallengeFromVerifier derives the S256 code challenge.
func ChallengeFromVerifier(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// IsValidVerifier reports whether s has a legal verifier length and uses only
// unreserved characters.
func IsValidVerifier(s string) bool {
	if len(s) < minVerifierLen || len(s) > maxVerifierLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		case c == '-', c == '.', c == '_', c == '~':
		default:
			return false
		}
	}
	return true
}

// NewState returns a random state token for CSRF protection.
func NewState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
