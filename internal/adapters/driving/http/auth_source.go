package http

import (
	"net/http"
	"strings"

	"github.com/custodia-labs/sercha-social/internal/core/domain"
	"github.com/custodia-labs/sercha-social/internal/core/ports/driven"
)

// AuthSource identifies the caller of a request. Session issuance lives
// outside this service; an AuthSource only verifies what it is handed.
type AuthSource interface {
	Authenticate(r *http.Request) (*domain.AuthContext, error)
}

// CookieAuthSource reads a signed session token from a cookie, falling back
// to an Authorization: Bearer header for non-browser clients.
type CookieAuthSource struct {
	signer     driven.SessionSigner
	cookieName string
}

// NewCookieAuthSource creates a CookieAuthSource.
func NewCookieAuthSource(signer driven.SessionSigner, cookieName string) *CookieAuthSource {
	return &CookieAuthSource{signer: signer, cookieName: cookieName}
}

func (s *CookieAuthSource) Authenticate(r *http.Request) (*domain.AuthContext, error) {
	token := ""
	if cookie, err := r.Cookie(s.cookieName); err == nil {
		token = cookie.Value
	}
	if token == "" {
		token = extractBearerToken(r)
	}
	if token == "" {
		return nil, domain.ErrUnauthorized
	}

	claims, err := s.signer.ParseToken(token)
	if err != nil {
		return nil, err
	}
	return &domain.AuthContext{OwnerID: claims.OwnerID, Source: "cookie"}, nil
}

// HeaderAuthSource trusts a plain header naming the owner. Development only.
type HeaderAuthSource struct {
	header string
}

// NewHeaderAuthSource creates a HeaderAuthSource reading the given header.
func NewHeaderAuthSource(header string) *HeaderAuthSource {
	return &HeaderAuthSource{header: header}
}

func (s *HeaderAuthSource) Authenticate(r *http.Request) (*domain.AuthContext, error) {
	owner := strings.TrimSpace(r.Header.Get(s.header))
	if owner == "" {
		return nil, domain.ErrUnauthorized
	}
	return &domain.AuthContext{OwnerID: owner, Source: "header"}, nil
}
