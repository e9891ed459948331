package domain

import "time"

// OAuthSessionTTL bounds how long an issued authorization URL stays usable.
const OAuthSessionTTL = 10 * time.Minute

// OAuthSession is the single-use, per-owner state of an in-flight
// authorization. It is deleted on every callback outcome.
type OAuthSession struct {
	OwnerID  string   `json:"owner_id"`
	Provider Provider `json:"provider"`

	// State is the random CSRF token echoed back by the provider.
	State string `json:"state"`

	// CodeVerifier is the PKCE secret sent during token exchange.
	CodeVerifier string `json:"code_verifier"`

	// RedirectURI is exactly the value used to build the authorization URL.
	// Token exchange must reuse it verbatim.
	RedirectURI string `json:"redirect_uri"`

	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired reports whether the session is past its expiry.
func (s *OAuthSession) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// OAuthToken is a token endpoint response.
type OAuthToken struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	Scope        string
	ExpiresIn    int // seconds, 0 when the provider sent none
}

// ExpiresAt converts ExpiresIn to an absolute time relative to now.
func (t *OAuthToken) ExpiresAt(now time.Time) *time.Time {
	if t.ExpiresIn <= 0 {
		return nil
	}
	exp := now.Add(time.Duration(t.ExpiresIn) * time.Second)
	return &exp
}

// ProviderIdentity is the account behind an access token.
type ProviderIdentity struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}
