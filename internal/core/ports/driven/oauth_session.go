package driven

import (
	"context"

	"github.com/custodia-labs/sercha-social/internal/core/domain"
)

// OAuthSessionStore keeps the transient state of in-flight authorizations.
// There is at most one session per owner; saving a new one replaces the old.
type OAuthSessionStore interface {
	// Save stores the session, replacing any pending one for the same owner.
	Save(ctx context.Context, session *domain.OAuthSession) error

	// Get returns the owner's pending session.
	// Returns domain.ErrNotFound if none exists or it has expired.
	Get(ctx context.Context, ownerID string) (*domain.OAuthSession, error)

	// Delete removes the owner's session. Deleting a missing session is not an error.
	Delete(ctx context.Context, ownerID string) error

	// Cleanup removes expired sessions and reports how many were removed.
	Cleanup(ctx context.Context) (int64, error)
}
