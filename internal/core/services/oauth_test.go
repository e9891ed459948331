package services

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-social/internal/core/domain"
	"github.com/custodia-labs/sercha-social/internal/core/ports/driven/mocks"
	"github.com/custodia-labs/sercha-social/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-social/internal/pkce"
)

const testRedirectURI = "https://app.example.com/api/v1/oauth/callback"

type oauthFixture struct {
	now         time.Time
	svc         driving.OAuthService
	sessions    *mocks.MockOAuthSessionStore
	credentials *mocks.MockCredentialStore
	vault       *mocks.MockVault
	client      *mocks.MockProviderClient
}

func newOAuthFixture(t *testing.T) *oauthFixture {
	t.Helper()
	f := &oauthFixture{
		now:         time.Now().UTC().Truncate(time.Second),
		sessions:    mocks.NewMockOAuthSessionStore(),
		credentials: mocks.NewMockCredentialStore(),
		vault:       mocks.NewMockVault(),
		client:      &mocks.MockProviderClient{},
	}
	f.svc = NewOAuthService(OAuthServiceConfig{
		Sessions:    f.sessions,
		Credentials: f.credentials,
		Vault:       f.vault,
		Client:      f.client,
		Provider:    domain.ProviderX,
		RedirectURI: testRedirectURI,
		Now:         func() time.Time { return f.now },
	})
	t.Cleanup(func() { f.client.AssertExpectations(t) })
	return f
}

// seedSession stores a pending authorization as Authorize would.
func (f *oauthFixture) seedSession(t *testing.T, owner, state string) {
	t.Helper()
	require.NoError(t, f.sessions.Save(context.Background(), &domain.OAuthSession{
		OwnerID:      owner,
		Provider:     domain.ProviderX,
		State:        state,
		CodeVerifier: "verifier-abc",
		RedirectURI:  testRedirectURI,
		CreatedAt:    time.Now(),
		ExpiresAt:    time.Now().Add(domain.OAuthSessionTTL),
	}))
}

func TestAuthorize_PersistsSessionAndBuildsURL(t *testing.T) {
	f := newOAuthFixture(t)

	var gotState, gotChallenge string
	f.client.On("AuthorizationURL", testRedirectURI, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			gotState = args.String(1)
			gotChallenge = args.String(2)
		}).
		Return("https://x.com/i/oauth2/authorize?state=s")

	resp, err := f.svc.Authorize(context.Background(), driving.AuthorizeRequest{OwnerID: "owner-1"})
	require.NoError(t, err)
	assert.Equal(t, "https://x.com/i/oauth2/authorize?state=s", resp.AuthorizationURL)
	assert.Equal(t, f.now.Add(10*time.Minute).Format(time.RFC3339), resp.ExpiresAt)

	session, err := f.sessions.Get(context.Background(), "owner-1")
	require.NoError(t, err)
	assert.Equal(t, gotState, session.State)
	assert.True(t, pkce.IsValidVerifier(session.CodeVerifier))
	assert.Equal(t, pkce.ChallengeFromVerifier(session.CodeVerifier), gotChallenge)
	assert.Equal(t, testRedirectURI, session.RedirectURI)
}

func TestAuthorize_RequiresOwner(t *testing.T) {
	f := newOAuthFixture(t)

	_, err := f.svc.Authorize(context.Background(), driving.AuthorizeRequest{})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestCallback_Success(t *testing.T) {
	f := newOAuthFixture(t)
	f.seedSession(t, "owner-1", "state-1")

	f.client.On("ExchangeCode", mock.Anything, "code-1", "verifier-abc", testRedirectURI).
		Return(&domain.OAuthToken{AccessToken: "at-1", RefreshToken: "rt-1", Scope: "tweet.read tweet.write", ExpiresIn: 7200}, nil)
	f.client.On("GetIdentity", mock.Anything, "at-1").
		Return(&domain.ProviderIdentity{ID: "42", Username: "alice"}, nil)

	resp, err := f.svc.Callback(context.Background(), driving.CallbackRequest{OwnerID: "owner-1", Code: "code-1", State: "state-1"})
	require.NoError(t, err)
	assert.Equal(t, "Connected as @alice", resp.Message)
	assert.True(t, resp.Connection.Connected)
	assert.Equal(t, "alice", resp.Connection.ProviderHandle)

	cred, err := f.credentials.Get(context.Background(), "owner-1", domain.ProviderX)
	require.NoError(t, err)
	access, err := f.vault.Decrypt(cred.EncryptedAccessToken)
	require.NoError(t, err)
	assert.Equal(t, "at-1", access)
	refresh, err := f.vault.Decrypt(cred.EncryptedRefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "rt-1", refresh)
	require.NotNil(t, cred.TokenExpiresAt)
	assert.Equal(t, f.now.Add(2*time.Hour), *cred.TokenExpiresAt)
	assert.Equal(t, []string{"tweet.read", "tweet.write"}, cred.Scopes())

	assert.Equal(t, 0, f.sessions.Len(), "session must be consumed")
}

func TestCallback_IdentityFailureIsNonFatal(t *testing.T) {
	f := newOAuthFixture(t)
	f.seedSession(t, "owner-1", "state-1")

	f.client.On("ExchangeCode", mock.Anything, "code-1", "verifier-abc", testRedirectURI).
		Return(&domain.OAuthToken{AccessToken: "at-1"}, nil)
	f.client.On("GetIdentity", mock.Anything, "at-1").
		Return(nil, &domain.ExternalAPIError{Operation: "get identity", Status: 403, Body: "forbidden"})

	resp, err := f.svc.Callback(context.Background(), driving.CallbackRequest{OwnerID: "owner-1", Code: "code-1", State: "state-1"})
	require.NoError(t, err)
	assert.Equal(t, "Connected", resp.Message)

	cred, err := f.credentials.Get(context.Background(), "owner-1", domain.ProviderX)
	require.NoError(t, err)
	assert.Empty(t, cred.ProviderHandle)
	assert.False(t, cred.HasRefreshToken())
	assert.Nil(t, cred.TokenExpiresAt)
}

func TestCallback_ProviderError(t *testing.T) {
	f := newOAuthFixture(t)
	f.seedSession(t, "owner-1", "state-1")

	_, err := f.svc.Callback(context.Background(), driving.CallbackRequest{
		OwnerID:          "owner-1",
		Error:            "access_denied",
		ErrorDescription: "The user denied access",
	})

	var oauthErr *driving.OAuthError
	require.True(t, errors.As(err, &oauthErr))
	assert.Equal(t, "access_denied", oauthErr.Code)
	assert.Equal(t, 0, f.sessions.Len())
}

func TestCallback_MissingSession(t *testing.T) {
	f := newOAuthFixture(t)

	_, err := f.svc.Callback(context.Background(), driving.CallbackRequest{OwnerID: "owner-1", Code: "code-1", State: "state-1"})
	assert.ErrorIs(t, err, domain.ErrMissingOAuthSession)
}

func TestCallback_StateMismatchDiscardsSession(t *testing.T) {
	f := newOAuthFixture(t)
	f.seedSession(t, "owner-1", "state-1")

	_, err := f.svc.Callback(context.Background(), driving.CallbackRequest{OwnerID: "owner-1", Code: "code-1", State: "forged"})
	assert.ErrorIs(t, err, domain.ErrOAuthStateMismatch)
	assert.Equal(t, 0, f.sessions.Len())

	// The correct state no longer works either.
	_, err = f.svc.Callback(context.Background(), driving.CallbackRequest{OwnerID: "owner-1", Code: "code-1", State: "state-1"})
	assert.ErrorIs(t, err, domain.ErrMissingOAuthSession)
	assert.Equal(t, 0, f.credentials.Writes)
}

func TestCallback_ExchangeFailure(t *testing.T) {
	f := newOAuthFixture(t)
	f.seedSession(t, "owner-1", "state-1")

	apiErr := &domain.ExternalAPIError{Operation: "exchange code", Status: 400, Body: "invalid_grant"}
	f.client.On("ExchangeCode", mock.Anything, "code-1", "verifier-abc", testRedirectURI).Return(nil, apiErr)

	_, err := f.svc.Callback(context.Background(), driving.CallbackRequest{OwnerID: "owner-1", Code: "code-1", State: "state-1"})
	var got *domain.ExternalAPIError
	require.True(t, errors.As(err, &got))
	assert.Equal(t, 400, got.Status)
	assert.Equal(t, 0, f.sessions.Len())
	assert.Equal(t, 0, f.credentials.Writes)
}

func TestCallback_UsesStoredRedirectURI(t *testing.T) {
	f := newOAuthFixture(t)
	const issuedWith = "https://old-host.example.com/api/v1/oauth/callback"
	require.NoError(t, f.sessions.Save(context.Background(), &domain.OAuthSession{
		OwnerID:      "owner-1",
		State:        "state-1",
		CodeVerifier: "verifier-abc",
		RedirectURI:  issuedWith,
		ExpiresAt:    time.Now().Add(time.Minute),
	}))

	f.client.On("ExchangeCode", mock.Anything, "code-1", "verifier-abc", issuedWith).
		Return(&domain.OAuthToken{AccessToken: "at-1"}, nil)
	f.client.On("GetIdentity", mock.Anything, "at-1").Return(nil, errors.New("scope"))

	_, err := f.svc.Callback(context.Background(), driving.CallbackRequest{OwnerID: "owner-1", Code: "code-1", State: "state-1"})
	require.NoError(t, err)
}

func TestStatusAndDisconnect(t *testing.T) {
	f := newOAuthFixture(t)
	ctx := context.Background()

	status, err := f.svc.Status(ctx, "owner-1")
	require.NoError(t, err)
	assert.False(t, status.Connected)

	require.NoError(t, f.credentials.Upsert(ctx, &domain.StoredCredential{
		OwnerID:              "owner-1",
		Provider:             domain.ProviderX,
		EncryptedAccessToken: f.vault.Seal("at"),
		ProviderHandle:       "alice",
	}))

	status, err = f.svc.Status(ctx, "owner-1")
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.Equal(t, "alice", status.ProviderHandle)

	require.NoError(t, f.svc.Disconnect(ctx, "owner-1"))
	assert.ErrorIs(t, f.svc.Disconnect(ctx, "owner-1"), domain.ErrNotFound)
}

func TestAuthorizeThenCallback_EndToEnd(t *testing.T) {
	sessions := mocks.NewMockOAuthSessionStore()
	credentials := mocks.NewMockCredentialStore()
	client := &mocks.MockProviderClient{}
	svc := NewOAuthService(OAuthServiceConfig{
		Sessions:    sessions,
		Credentials: credentials,
		Vault:       mocks.NewMockVault(),
		Client:      client,
		RedirectURI: testRedirectURI,
	})

	var authURL string
	client.On("AuthorizationURL", testRedirectURI, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			q := url.Values{"state": {args.String(1)}, "code_challenge": {args.String(2)}}
			authURL = "https://x.com/i/oauth2/authorize?" + q.Encode()
		}).
		Return("https://x.com/i/oauth2/authorize")

	_, err := svc.Authorize(context.Background(), driving.AuthorizeRequest{OwnerID: "owner-1"})
	require.NoError(t, err)

	u, err := url.Parse(authURL)
	require.NoError(t, err)
	state := u.Query().Get("state")
	require.NotEmpty(t, state)

	session, err := sessions.Get(context.Background(), "owner-1")
	require.NoError(t, err)
	assert.Equal(t, pkce.ChallengeFromVerifier(session.CodeVerifier), u.Query().Get("code_challenge"))

	client.On("ExchangeCode", mock.Anything, "code-1", session.CodeVerifier, testRedirectURI).
		Return(&domain.OAuthToken{AccessToken: "at-1"}, nil)
	client.On("GetIdentity", mock.Anything, "at-1").Return(&domain.ProviderIdentity{Username: "alice"}, nil)

	_, err = svc.Callback(context.Background(), driving.CallbackRequest{OwnerID: "owner-1", Code: "code-1", State: state})
	require.NoError(t, err)
	client.AssertExpectations(t)
}
