package driven

import "github.com/custodia-labs/sercha-social/internal/core/domain"

// SessionSigner signs and verifies session tokens carried in the session cookie.
type SessionSigner interface {
	// GenerateToken creates a signed token from claims.
	GenerateToken(claims *domain.SessionClaims) (string, error)

	// ParseToken verifies a token and extracts its claims.
	ParseToken(token string) (*domain.SessionClaims, error)
}
