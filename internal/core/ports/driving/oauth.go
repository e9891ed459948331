package driving

import (
	"context"

	"github.com/custodia-labs/sercha-social/internal/core/domain"
)

// OAuthService runs the interactive PKCE authorization that connects an
// owner's social account, and manages the resulting connection.
type OAuthService interface {
	// Authorize starts an authorization flow for the owner.
	// It replaces any pending flow and returns the provider authorization URL.
	Authorize(ctx context.Context, req AuthorizeRequest) (*AuthorizeResponse, error)

	// Callback completes the flow: validates state, exchanges the code and
	// stores the encrypted credential. The pending session is always consumed.
	Callback(ctx context.Context, req CallbackRequest) (*CallbackResponse, error)

	// Status reports whether the owner has a stored credential.
	Status(ctx context.Context, ownerID string) (*domain.ConnectionStatus, error)

	// Disconnect deletes the owner's credential.
	Disconnect(ctx context.Context, ownerID string) error
}

// AuthorizeRequest represents a request to start an OAuth flow.
// @Description Request to start OAuth authorization flow
type AuthorizeRequest struct {
	// OwnerID is the authenticated caller. Set by the transport, never by the client.
	OwnerID string `json:"-"`
}

// AuthorizeResponse contains the authorization URL.
// @Description Response containing the OAuth authorization URL
type AuthorizeResponse struct {
	// AuthorizationURL is the URL to send the user to.
	AuthorizationURL string `json:"authorization_url" example:"https://x.com/i/oauth2/authorize?response_type=code&client_id=..."`

	// ExpiresAt is when the pending authorization expires.
	ExpiresAt string `json:"expires_at" example:"2026-01-15T10:10:00Z"`
}

// CallbackRequest represents the OAuth callback from the provider.
// @Description OAuth callback parameters from provider redirect
type CallbackRequest struct {
	OwnerID string `json:"-"`

	// Code is the authorization code from the provider.
	Code string `json:"code" example:"abc123"`

	// State is the CSRF token returned by the provider.
	State string `json:"state" example:"abc123xyz"`

	// Error is set if the provider returned an error.
	Error string `json:"error,omitempty" example:"access_denied"`

	// ErrorDescription provides details about the error.
	ErrorDescription string `json:"error_description,omitempty" example:"The user denied access"`
}

// CallbackResponse contains the result of the OAuth callback.
// @Description Response after successful OAuth authorization
type CallbackResponse struct {
	Connection *domain.ConnectionStatus `json:"connection"`

	// Message provides a human-readable status message.
	Message string `json:"message" example:"Connected as @alice"`
}

// OAuthError represents an error reported by the provider on the callback,
// or a failed code exchange.
type OAuthError struct {
	Code        string `json:"error" example:"access_denied"`
	Description string `json:"error_description" example:"The user denied access"`
}

func (e *OAuthError) Error() string {
	if e.Description != "" {
		return e.Code + ": " + e.Description
	}
	return e.Code
}
