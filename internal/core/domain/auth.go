package domain

import "time"

// AuthContext identifies the caller of a request. It is produced by an
// AuthSource and carried on the request context.
type AuthContext struct {
	OwnerID string `json:"owner_id"`

	// Source names the AuthSource that vouched for the caller ("cookie" or "header").
	Source string `json:"source"`
}

// SessionClaims is the payload of a signed session cookie.
type SessionClaims struct {
	OwnerID   string `json:"owner_id"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// NewSessionClaims builds claims for owner valid for ttl from now.
func NewSessionClaims(ownerID string, now time.Time, ttl time.Duration) *SessionClaims {
	return &SessionClaims{
		OwnerID:   ownerID,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(ttl).Unix(),
	}
}
