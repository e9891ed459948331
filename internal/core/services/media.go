package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/custodia-labs/sercha-social/internal/core/domain"
	"github.com/custodia-labs/sercha-social/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-social/internal/core/ports/driving"
)

// Ensure mediaService implements MediaService
var _ driving.MediaService = (*mediaService)(nil)

// MaxMediaBytes caps a single upload.
const MaxMediaBytes = 5 << 20

// MediaServiceConfig holds dependencies for the media service.
type MediaServiceConfig struct {
	Credentials driven.CredentialStore
	Tokens      driving.TokenService
	Client      driven.ProviderClient
	Provider    domain.Provider
	Enabled     bool
	Logger      *slog.Logger
}

type mediaService struct {
	credentials driven.CredentialStore
	tokens      driving.TokenService
	client      driven.ProviderClient
	provider    domain.Provider
	enabled     bool
	logger      *slog.Logger
}

// NewMediaService creates a new media service.
func NewMediaService(cfg MediaServiceConfig) driving.MediaService {
	if cfg.Provider == "" {
		cfg.Provider = domain.ProviderX
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &mediaService{
		credentials: cfg.Credentials,
		tokens:      cfg.Tokens,
		client:      cfg.Client,
		provider:    cfg.Provider,
		enabled:     cfg.Enabled,
		logger:      cfg.Logger,
	}
}

// Upload sends media with the owner's freshly validated token.
func (s *mediaService) Upload(ctx context.Context, req driving.MediaUploadRequest) (*driving.MediaUploadResponse, error) {
	if !s.enabled {
		return nil, domain.ErrMediaUploadDisabled
	}
	if len(req.Data) == 0 {
		return nil, domain.NewValidationError("media", "media is required")
	}
	if len(req.Data) > MaxMediaBytes {
		return nil, domain.NewValidationError("media", "media exceeds 5 MiB")
	}

	cred, err := s.credentials.Get(ctx, req.OwnerID, s.provider)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NewValidationError("connection", "no connected account")
	}
	if err != nil {
		return nil, fmt.Errorf("get credential: %w", err)
	}

	accessToken, err := s.tokens.EnsureValidAccessToken(ctx, cred)
	if err != nil {
		return nil, err
	}

	mediaID, err := s.client.UploadMedia(ctx, accessToken, req.Data, req.MimeType, req.Category)
	if err != nil {
		return nil, fmt.Errorf("upload media: %w", err)
	}

	s.logger.Info("media uploaded", "owner_id", req.OwnerID, "media_id", mediaID, "bytes", len(req.Data))
	return &driving.MediaUploadResponse{MediaID: mediaID}, nil
}
