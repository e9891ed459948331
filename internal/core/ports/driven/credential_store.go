package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/sercha-social/internal/core/domain"
)

// CredentialStore persists encrypted OAuth grants, unique per (owner, provider).
type CredentialStore interface {
	// Get returns the owner's credential for provider.
	// Returns domain.ErrNotFound if none is stored.
	Get(ctx context.Context, ownerID string, provider domain.Provider) (*domain.StoredCredential, error)

	// Upsert inserts the credential or replaces the existing one for the same
	// (owner, provider).
	Upsert(ctx context.Context, cred *domain.StoredCredential) error

	// UpdateTokens rotates token material after a refresh. A nil refresh blob
	// leaves the stored refresh token unchanged; an empty scope leaves the
	// stored scope unchanged.
	UpdateTokens(ctx context.Context, ownerID string, provider domain.Provider, update TokenUpdate) error

	// Delete removes the credential. Returns domain.ErrNotFound if none existed.
	Delete(ctx context.Context, ownerID string, provider domain.Provider) error
}

// TokenUpdate carries re-encrypted token material produced by a refresh.
type TokenUpdate struct {
	EncryptedAccessToken  []byte
	EncryptedRefreshToken []byte // nil keeps the existing refresh token
	TokenExpiresAt        *time.Time
	GrantedScope          string // empty keeps the existing scope
}
