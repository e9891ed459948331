package domain

import (
	"fmt"
	"strings"
	"time"
)

// Provider identifies the social platform a credential or post belongs to.
type Provider string

const (
	// ProviderX is the only provider currently wired.
	ProviderX Provider = "x"
)

// RefreshSkew treats a token as expiring this long before its literal expiry.
const RefreshSkew = 30 * time.Second

// StoredCredential holds the encrypted OAuth grant for one (owner, provider) pair.
// Token fields are vault blobs; plaintext tokens never live on this struct.
type StoredCredential struct {
	OwnerID               string     `json:"owner_id"`
	Provider              Provider   `json:"provider"`
	EncryptedAccessToken  []byte     `json:"-"`
	EncryptedRefreshToken []byte     `json:"-"` // nil when the provider issued none
	TokenExpiresAt        *time.Time `json:"token_expires_at,omitempty"`
	GrantedScope          string     `json:"granted_scope"`
	ProviderHandle        string     `json:"provider_handle,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// HasRefreshToken reports whether a refresh token blob is stored.
func (c *StoredCredential) HasRefreshToken() bool {
	return len(c.EncryptedRefreshToken) > 0
}

// NeedsRefresh reports whether the access token is within RefreshSkew of
// expiring and can be refreshed. Credentials without expiry never refresh.
func (c *StoredCredential) NeedsRefresh(now time.Time) bool {
	if c.TokenExpiresAt == nil || !c.HasRefreshToken() {
		return false
	}
	return c.TokenExpiresAt.Sub(now) < RefreshSkew
}

// Scopes splits GrantedScope into its tokens.
func (c *StoredCredential) Scopes() []string {
	return strings.Fields(c.GrantedScope)
}

// Permalink builds the public URL of a published post. Without a known
// handle it falls back to the handle-less form.
func (c *StoredCredential) Permalink(postID string) string {
	if c.ProviderHandle != "" {
		return fmt.Sprintf("https://x.com/%s/status/%s", c.ProviderHandle, postID)
	}
	return fmt.Sprintf("https://x.com/i/web/status/%s", postID)
}

// ConnectionStatus is the token-free view of a credential.
type ConnectionStatus struct {
	Connected      bool       `json:"connected"`
	Provider       Provider   `json:"provider"`
	ProviderHandle string     `json:"provider_handle,omitempty"`
	Scopes         []string   `json:"scopes,omitempty"`
	TokenExpiresAt *time.Time `json:"token_expires_at,omitempty"`
	ConnectedAt    *time.Time `json:"connected_at,omitempty"`
}

// ToStatus converts a credential to its public status. A nil credential is
// reported as disconnected.
func (c *StoredCredential) ToStatus(provider Provider) *ConnectionStatus {
	if c == nil {
		return &ConnectionStatus{Provider: provider}
	}
	connectedAt := c.CreatedAt
	return &ConnectionStatus{
		Connected:      true,
		Provider:       c.Provider,
		ProviderHandle: c.ProviderHandle,
		Scopes:         c.Scopes(),
		TokenExpiresAt: c.TokenExpiresAt,
		ConnectedAt:    &connectedAt,
	}
}
