package mocks

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/custodia-labs/sercha-social/internal/core/domain"
	"github.com/custodia-labs/sercha-social/internal/core/ports/driven"
)

// Ensure MockSessionSigner implements SessionSigner
var _ driven.SessionSigner = (*MockSessionSigner)(nil)

// MockSessionSigner encodes claims as base64 JSON without a signature.
// NOT secure - only for testing.
type MockSessionSigner struct{}

// NewMockSessionSigner creates a new MockSessionSigner
func NewMockSessionSigner() *MockSessionSigner {
	return &MockSessionSigner{}
}

// GenerateToken encodes claims as base64 JSON
func (m *MockSessionSigner) GenerateToken(claims *domain.SessionClaims) (string, error) {
	data, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// ParseToken decodes base64 JSON claims
func (m *MockSessionSigner) ParseToken(token string) (*domain.SessionClaims, error) {
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed token", domain.ErrUnauthorized)
	}
	var claims domain.SessionClaims
	if err := json.Unmarshal(data, &claims); err != nil || claims.OwnerID == "" {
		return nil, fmt.Errorf("%w: malformed token", domain.ErrUnauthorized)
	}
	return &claims, nil
}
