package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/custodia-labs/sercha-social/internal/core/domain"
	"github.com/custodia-labs/sercha-social/internal/core/ports/driven"
)

var _ driven.ProviderClient = (*MockProviderClient)(nil)

// MockProviderClient is a testify mock of ProviderClient
type MockProviderClient struct {
	mock.Mock
}

func (m *MockProviderClient) AuthorizationURL(redirectURI, state, codeChallenge string) string {
	args := m.Called(redirectURI, state, codeChallenge)
	return args.String(0)
}

func (m *MockProviderClient) ExchangeCode(ctx context.Context, code, codeVerifier, redirectURI string) (*domain.OAuthToken, error) {
	args := m.Called(ctx, code, codeVerifier, redirectURI)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OAuthToken), args.Error(1)
}

func (m *MockProviderClient) RefreshToken(ctx context.Context, refreshToken string) (*domain.OAuthToken, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OAuthToken), args.Error(1)
}

func (m *MockProviderClient) GetIdentity(ctx context.Context, accessToken string) (*domain.ProviderIdentity, error) {
	args := m.Called(ctx, accessToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProviderIdentity), args.Error(1)
}

func (m *MockProviderClient) PostContent(ctx context.Context, accessToken, text string, mediaIDs []string) (*domain.PublishedPost, error) {
	args := m.Called(ctx, accessToken, text, mediaIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PublishedPost), args.Error(1)
}

func (m *MockProviderClient) UploadMedia(ctx context.Context, accessToken string, data []byte, mimeType, category string) (string, error) {
	args := m.Called(ctx, accessToken, data, mimeType, category)
	return args.String(0), args.Error(1)
}
