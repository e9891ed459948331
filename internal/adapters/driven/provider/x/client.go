// Package x implements the provider client for the X API (OAuth 2.0 + v2 endpoints).
package x

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/sercha-social/internal/core/domain"
	"github.com/custodia-labs/sercha-social/internal/core/ports/driven"
)

// Ensure Client implements ProviderClient
var _ driven.ProviderClient = (*Client)(nil)

// Default endpoints
const (
	DefaultAuthURL   = "https://x.com/i/oauth2/authorize"
	DefaultTokenURL  = "https://api.x.com/2/oauth2/token"
	DefaultAPIURL    = "https://api.x.com/2"
	DefaultUploadURL = "https://upload.twitter.com/1.1/media/upload.json"
)

// DefaultScopes are requested on every authorization.
var DefaultScopes = []string{"tweet.read", "tweet.write", "users.read", "offline.access"}

// Config holds client configuration.
type Config struct {
	ClientID     string
	ClientSecret string // optional; public clients omit it

	AuthURL   string
	TokenURL  string
	APIURL    string
	UploadURL string
	Scopes    []string

	// MediaUploadEnabled gates UploadMedia. Off by default.
	MediaUploadEnabled bool

	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client provides X OAuth and content operations.
type Client struct {
	oauth        oauth2.Config
	clientSecret string
	apiURL       string
	uploadURL    string
	mediaEnabled bool

	httpClient *http.Client
	logger     *slog.Logger
	sleep      sleepFunc
}

// NewClient creates a new X API client.
func NewClient(cfg Config) *Client {
	if cfg.AuthURL == "" {
		cfg.AuthURL = DefaultAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.UploadURL == "" {
		cfg.UploadURL = DefaultUploadURL
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = DefaultScopes
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		oauth: oauth2.Config{
			ClientID: cfg.ClientID,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
			Scopes: cfg.Scopes,
		},
		clientSecret: cfg.ClientSecret,
		apiURL:       strings.TrimSuffix(cfg.APIURL, "/"),
		uploadURL:    cfg.UploadURL,
		mediaEnabled: cfg.MediaUploadEnabled,
		httpClient:   httpClient,
		logger:       logger,
		sleep:        sleepContext,
	}
}

// AuthorizationURL builds the authorization URL with response_type=code,
// client_id, redirect_uri, scope, state and the S256 code challenge.
func (c *Client) AuthorizationURL(redirectURI, state, codeChallenge string) string {
	cfg := c.oauth
	cfg.RedirectURL = redirectURI
	return cfg.AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

// tokenResponse is the token endpoint payload.
type tokenResponse struct {
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	AccessToken  string `json:"access_token"`
	Scope        string `json:"scope"`
	RefreshToken string `json:"refresh_token"`
}

// ExchangeCode exchanges an authorization code for tokens.
func (c *Client) ExchangeCode(ctx context.Context, code, codeVerifier, redirectURI string) (*domain.OAuthToken, error) {
	params := url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {c.oauth.ClientID},
		"redirect_uri":  {redirectURI},
		"code":          {code},
		"code_verifier": {codeVerifier},
	}
	return c.requestToken(ctx, "exchange code", params)
}

// RefreshToken refreshes an access token.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*domain.OAuthToken, error) {
	params := url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {c.oauth.ClientID},
		"refresh_token": {refreshToken},
	}
	return c.requestToken(ctx, "refresh token", params)
}

func (c *Client) requestToken(ctx context.Context, operation string, params url.Values) (*domain.OAuthToken, error) {
	if c.clientSecret != "" {
		params.Set("client_secret", c.clientSecret)
	}
	encoded := params.Encode()

	resp, err := c.do(ctx, operation, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.oauth.Endpoint.TokenURL, strings.NewReader(encoded))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apiError(operation, resp)
	}

	var tr tokenResponse
	if err := json.Unmarshal(resp.Body, &tr); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("%s: response has no access_token", operation)
	}

	return &domain.OAuthToken{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		TokenType:    tr.TokenType,
		Scope:        tr.Scope,
		ExpiresIn:    tr.ExpiresIn,
	}, nil
}

// GetIdentity fetches the authenticated account.
func (c *Client) GetIdentity(ctx context.Context, accessToken string) (*domain.ProviderIdentity, error) {
	resp, err := c.do(ctx, "get identity", func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"/users/me", nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+accessToken)
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apiError("get identity", resp)
	}

	var body struct {
		Data domain.ProviderIdentity `json:"data"`
	}
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, fmt.Errorf("decode identity: %w", err)
	}
	return &body.Data, nil
}

type postRequest struct {
	Text  string     `json:"text"`
	Media *postMedia `json:"media,omitempty"`
}

type postMedia struct {
	MediaIDs []string `json:"media_ids"`
}

// PostContent creates a post.
func (c *Client) PostContent(ctx context.Context, accessToken, text string, mediaIDs []string) (*domain.PublishedPost, error) {
	payload := postRequest{Text: text}
	if len(mediaIDs) > 0 {
		payload.Media = &postMedia{MediaIDs: mediaIDs}
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal post: %w", err)
	}

	resp, err := c.do(ctx, "post content", func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/tweets", bytes.NewReader(encoded))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+accessToken)
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, apiError("post content", resp)
	}

	var body struct {
		Data domain.PublishedPost `json:"data"`
	}
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, fmt.Errorf("decode post response: %w", err)
	}
	if body.Data.ID == "" {
		return nil, fmt.Errorf("post content: response has no id")
	}
	return &body.Data, nil
}

// UploadMedia uploads base64-encoded media and returns its media ID.
func (c *Client) UploadMedia(ctx context.Context, accessToken string, data []byte, mimeType, category string) (string, error) {
	if !c.mediaEnabled {
		return "", domain.ErrMediaUploadDisabled
	}

	params := url.Values{"media_data": {base64.StdEncoding.EncodeToString(data)}}
	if category != "" {
		params.Set("media_category", category)
	}
	encoded := params.Encode()

	resp, err := c.do(ctx, "upload media", func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, strings.NewReader(encoded))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+accessToken)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		if mimeType != "" {
			req.Header.Set("X-Media-Type", mimeType)
		}
		return req, nil
	})
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", apiError("upload media", resp)
	}

	var body struct {
		MediaIDString string `json:"media_id_string"`
	}
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if body.MediaIDString == "" {
		return "", fmt.Errorf("upload media: response has no media_id_string")
	}
	return body.MediaIDString, nil
}

func apiError(operation string, resp *response) error {
	return &domain.ExternalAPIError{
		Operation: operation,
		Status:    resp.StatusCode,
		Body:      truncate(string(resp.Body), 512),
	}
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
