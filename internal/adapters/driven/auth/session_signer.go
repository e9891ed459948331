package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/custodia-labs/sercha-social/internal/core/domain"
	"github.com/custodia-labs/sercha-social/internal/core/ports/driven"
)

// Ensure Signer implements SessionSigner
var _ driven.SessionSigner = (*Signer)(nil)

// sessionIssuer is stamped on every session token and required on parse.
const sessionIssuer = "sercha-social"

// jwtClaims wraps domain.SessionClaims for JWT compatibility
type jwtClaims struct {
	jwt.RegisteredClaims
}

// Signer issues and verifies HS256 session tokens
type Signer struct {
	secret []byte
}

// NewSigner creates a session signer keyed with secret
func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// GenerateToken creates a signed JWT from domain claims.
// The owner is carried in the subject claim.
func (s *Signer) GenerateToken(claims *domain.SessionClaims) (string, error) {
	if claims.OwnerID == "" {
		return "", fmt.Errorf("session claims: owner is required")
	}
	jc := jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessionIssuer,
			Subject:   claims.OwnerID,
			IssuedAt:  jwt.NewNumericDate(time.Unix(claims.IssuedAt, 0)),
			ExpiresAt: jwt.NewNumericDate(time.Unix(claims.ExpiresAt, 0)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jc)
	return token.SignedString(s.secret)
}

// ParseToken validates a JWT and extracts domain claims
func (s *Signer) ParseToken(tokenString string) (*domain.SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwtClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(sessionIssuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}

	claims, ok := token.Claims.(*jwtClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("%w: invalid session claims", domain.ErrUnauthorized)
	}

	parsed := &domain.SessionClaims{OwnerID: claims.Subject}
	if claims.IssuedAt != nil {
		parsed.IssuedAt = claims.IssuedAt.Unix()
	}
	if claims.ExpiresAt != nil {
		parsed.ExpiresAt = claims.ExpiresAt.Unix()
	}
	return parsed, nil
}
