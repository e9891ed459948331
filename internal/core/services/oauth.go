package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/custodia-labs/sercha-social/internal/core/domain"
	"github.com/custodia-labs/sercha-social/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-social/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-social/internal/pkce"
)

// Ensure oauthService implements OAuthService
var _ driving.OAuthService = (*oauthService)(nil)

// OAuthServiceConfig holds configuration for the OAuth service.
type OAuthServiceConfig struct {
	// Sessions keeps the pending authorization per owner.
	Sessions driven.OAuthSessionStore

	// Credentials persists the encrypted grant.
	Credentials driven.CredentialStore

	// Vault encrypts tokens before they are stored.
	Vault driven.SecretVault

	// Client talks to the provider.
	Client driven.ProviderClient

	// Provider is the provider this service connects.
	Provider domain.Provider

	// RedirectURI is the registered callback URL.
	// Example: "https://app.example.com/api/v1/oauth/callback"
	RedirectURI string

	Logger *slog.Logger
	Now    func() time.Time
}

// oauthService implements the OAuthService interface.
type oauthService struct {
	sessions    driven.OAuthSessionStore
	credentials driven.CredentialStore
	vault       driven.SecretVault
	client      driven.ProviderClient
	provider    domain.Provider
	redirectURI string
	logger      *slog.Logger
	now         func() time.Time
}

// NewOAuthService creates a new OAuth service.
func NewOAuthService(cfg OAuthServiceConfig) driving.OAuthService {
	if cfg.Provider == "" {
		cfg.Provider = domain.ProviderX
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &oauthService{
		sessions:    cfg.Sessions,
		credentials: cfg.Credentials,
		vault:       cfg.Vault,
		client:      cfg.Client,
		provider:    cfg.Provider,
		redirectURI: cfg.RedirectURI,
		logger:      cfg.Logger,
		now:         cfg.Now,
	}
}

// Authorize starts an OAuth authorization flow.
// It generates PKCE credentials, stores the session, and returns the authorization URL.
func (s *oauthService) Authorize(ctx context.Context, req driving.AuthorizeRequest) (*driving.AuthorizeResponse, error) {
	if req.OwnerID == "" {
		return nil, domain.ErrUnauthorized
	}

	verifier, err := pkce.GenerateVerifier(pkce.DefaultVerifierBytes)
	if err != nil {
		return nil, fmt.Errorf("generate verifier: %w", err)
	}
	state, err := pkce.NewState()
	if err != nil {
		return nil, fmt.Errorf("generate state: %w", err)
	}

	now := s.now().UTC()
	session := &domain.OAuthSession{
		OwnerID:      req.OwnerID,
		Provider:     s.provider,
		State:        state,
		CodeVerifier: verifier,
		RedirectURI:  s.redirectURI,
		CreatedAt:    now,
		ExpiresAt:    now.Add(domain.OAuthSessionTTL),
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save oauth session: %w", err)
	}

	authURL := s.client.AuthorizationURL(session.RedirectURI, state, pkce.ChallengeFromVerifier(verifier))

	return &driving.AuthorizeResponse{
		AuthorizationURL: authURL,
		ExpiresAt:        session.ExpiresAt.Format(time.RFC3339),
	}, nil
}

// Callback handles the provider redirect.
// The pending session is consumed whatever the outcome.
func (s *oauthService) Callback(ctx context.Context, req driving.CallbackRequest) (*driving.CallbackResponse, error) {
	if req.OwnerID == "" {
		return nil, domain.ErrUnauthorized
	}
	logger := s.logger.With("owner_id", req.OwnerID, "provider", s.provider)

	if req.Error != "" {
		s.discardSession(ctx, req.OwnerID)
		return nil, &driving.OAuthError{Code: req.Error, Description: req.ErrorDescription}
	}

	session, err := s.sessions.Get(ctx, req.OwnerID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrMissingOAuthSession
	}
	if err != nil {
		return nil, fmt.Errorf("get oauth session: %w", err)
	}

	// Any callback ends the round trip, successful or not.
	defer s.discardSession(ctx, req.OwnerID)

	if req.State == "" || req.State != session.State {
		logger.Warn("oauth state mismatch")
		return nil, domain.ErrOAuthStateMismatch
	}
	if req.Code == "" {
		return nil, domain.NewValidationError("code", "authorization code is required")
	}

	token, err := s.client.ExchangeCode(ctx, req.Code, session.CodeVerifier, session.RedirectURI)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	// Identity needs users.read; a narrower grant just means no handle.
	var handle string
	identity, err := s.client.GetIdentity(ctx, token.AccessToken)
	if err != nil {
		logger.Info("identity lookup failed, continuing without handle", "error", err)
	} else if identity != nil {
		handle = identity.Username
	}

	cred, err := s.sealCredential(req.OwnerID, token, handle)
	if err != nil {
		return nil, err
	}
	if err := s.credentials.Upsert(ctx, cred); err != nil {
		return nil, fmt.Errorf("store credential: %w", err)
	}

	logger.Info("account connected", "handle", handle, "scope", cred.GrantedScope)

	message := "Connected"
	if handle != "" {
		message = "Connected as @" + handle
	}
	return &driving.CallbackResponse{
		Connection: cred.ToStatus(s.provider),
		Message:    message,
	}, nil
}

func (s *oauthService) sealCredential(ownerID string, token *domain.OAuthToken, handle string) (*domain.StoredCredential, error) {
	access, err := s.vault.Encrypt(token.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("encrypt access token: %w", err)
	}

	var refresh []byte
	if token.RefreshToken != "" {
		refresh, err = s.vault.Encrypt(token.RefreshToken)
		if err != nil {
			return nil, fmt.Errorf("encrypt refresh token: %w", err)
		}
	}

	now := s.now().UTC()
	return &domain.StoredCredential{
		OwnerID:               ownerID,
		Provider:              s.provider,
		EncryptedAccessToken:  access,
		EncryptedRefreshToken: refresh,
		TokenExpiresAt:        token.ExpiresAt(now),
		GrantedScope:          token.Scope,
		ProviderHandle:        handle,
		CreatedAt:             now,
		UpdatedAt:             now,
	}, nil
}

func (s *oauthService) discardSession(ctx context.Context, ownerID string) {
	if err := s.sessions.Delete(ctx, ownerID); err != nil {
		s.logger.Warn("failed to delete oauth session", "owner_id", ownerID, "error", err)
	}
}

// Status reports the owner's connection without exposing tokens.
func (s *oauthService) Status(ctx context.Context, ownerID string) (*domain.ConnectionStatus, error) {
	cred, err := s.credentials.Get(ctx, ownerID, s.provider)
	if errors.Is(err, domain.ErrNotFound) {
		return (*domain.StoredCredential)(nil).ToStatus(s.provider), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get credential: %w", err)
	}
	return cred.ToStatus(s.provider), nil
}

// Disconnect deletes the owner's credential.
func (s *oauthService) Disconnect(ctx context.Context, ownerID string) error {
	if err := s.credentials.Delete(ctx, ownerID, s.provider); err != nil {
		return err
	}
	s.logger.Info("account disconnected", "owner_id", ownerID, "provider", s.provider)
	return nil
}
