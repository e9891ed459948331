package driving

import (
	"context"

	"github.com/custodia-labs/sercha-social/internal/core/domain"
)

// TokenService hands out usable access tokens for stored credentials.
type TokenService interface {
	// EnsureValidAccessToken decrypts the credential's access token, refreshing
	// and persisting new tokens first when it is about to expire.
	// Returns domain.ErrTokenDecryptFailed when stored tokens are unreadable.
	EnsureValidAccessToken(ctx context.Context, cred *domain.StoredCredential) (string, error)
}
