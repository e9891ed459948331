package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/custodia-labs/sercha-social/internal/core/domain"
	"github.com/custodia-labs/sercha-social/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-social/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-social/internal/metrics"
)

// Ensure tokenService implements TokenService
var _ driving.TokenService = (*tokenService)(nil)

// Token refresh outcomes
const (
	refreshOutcomeRefreshed    = "refreshed"
	refreshOutcomeFailed       = "failed"
	refreshOutcomeDecryptError = "decrypt_failed"
)

// TokenServiceConfig holds dependencies for the token service.
type TokenServiceConfig struct {
	Credentials driven.CredentialStore
	Vault       driven.SecretVault
	Client      driven.ProviderClient
	Logger      *slog.Logger
	Now         func() time.Time
}

// tokenService is the single place access tokens are decrypted and refreshed.
type tokenService struct {
	credentials driven.CredentialStore
	vault       driven.SecretVault
	client      driven.ProviderClient
	logger      *slog.Logger
	now         func() time.Time
}

// NewTokenService creates a new token service.
func NewTokenService(cfg TokenServiceConfig) driving.TokenService {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &tokenService{
		credentials: cfg.Credentials,
		vault:       cfg.Vault,
		client:      cfg.Client,
		logger:      cfg.Logger,
		now:         cfg.Now,
	}
}

// EnsureValidAccessToken returns a usable access token for cred.
// Nothing is written unless a refresh happens.
func (s *tokenService) EnsureValidAccessToken(ctx context.Context, cred *domain.StoredCredential) (string, error) {
	accessToken, err := s.vault.Decrypt(cred.EncryptedAccessToken)
	if err != nil {
		return "", fmt.Errorf("%w: access token: %v", domain.ErrTokenDecryptFailed, err)
	}

	now := s.now()
	if !cred.NeedsRefresh(now) {
		return accessToken, nil
	}

	refreshToken, err := s.vault.Decrypt(cred.EncryptedRefreshToken)
	if err != nil {
		metrics.TokenRefreshesTotal.WithLabelValues(refreshOutcomeDecryptError).Inc()
		return "", fmt.Errorf("%w: refresh token: %v", domain.ErrTokenDecryptFailed, err)
	}

	token, err := s.client.RefreshToken(ctx, refreshToken)
	if err != nil {
		metrics.TokenRefreshesTotal.WithLabelValues(refreshOutcomeFailed).Inc()
		return "", fmt.Errorf("refresh token: %w", err)
	}

	update := driven.TokenUpdate{
		TokenExpiresAt: token.ExpiresAt(now.UTC()),
		GrantedScope:   token.Scope,
	}
	update.EncryptedAccessToken, err = s.vault.Encrypt(token.AccessToken)
	if err != nil {
		return "", fmt.Errorf("encrypt access token: %w", err)
	}
	if token.RefreshToken != "" {
		update.EncryptedRefreshToken, err = s.vault.Encrypt(token.RefreshToken)
		if err != nil {
			return "", fmt.Errorf("encrypt refresh token: %w", err)
		}
	}

	if err := s.credentials.UpdateTokens(ctx, cred.OwnerID, cred.Provider, update); err != nil {
		metrics.TokenRefreshesTotal.WithLabelValues(refreshOutcomeFailed).Inc()
		return "", fmt.Errorf("store refreshed tokens: %w", err)
	}
	metrics.TokenRefreshesTotal.WithLabelValues(refreshOutcomeRefreshed).Inc()

	s.logger.Debug("access token refreshed",
		"owner_id", cred.OwnerID,
		"provider", cred.Provider,
		"rotated_refresh_token", token.RefreshToken != "",
	)

	return token.AccessToken, nil
}
