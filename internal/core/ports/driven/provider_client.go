package driven

import (
	"context"

	"github.com/custodia-labs/sercha-social/internal/core/domain"
)

// ProviderClient talks to the social provider's OAuth and content APIs.
// Failed responses surface as *domain.ExternalAPIError.
type ProviderClient interface {
	// AuthorizationURL builds the browser URL that starts an authorization.
	AuthorizationURL(redirectURI, state, codeChallenge string) string

	// ExchangeCode trades an authorization code for tokens. redirectURI must be
	// the exact value used to build the authorization URL.
	ExchangeCode(ctx context.Context, code, codeVerifier, redirectURI string) (*domain.OAuthToken, error)

	// RefreshToken obtains a new access token.
	RefreshToken(ctx context.Context, refreshToken string) (*domain.OAuthToken, error)

	// GetIdentity looks up the account behind accessToken.
	GetIdentity(ctx context.Context, accessToken string) (*domain.ProviderIdentity, error)

	// PostContent publishes text with optional media IDs.
	PostContent(ctx context.Context, accessToken, text string, mediaIDs []string) (*domain.PublishedPost, error)

	// UploadMedia uploads media and returns its media ID.
	// Returns domain.ErrMediaUploadDisabled when the feature is off.
	UploadMedia(ctx context.Context, accessToken string, data []byte, mimeType, category string) (string, error)
}
