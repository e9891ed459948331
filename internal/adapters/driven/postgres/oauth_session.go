package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/sercha-social/internal/core/domain"
	"github.com/custodia-labs/sercha-social/internal/core/ports/driven"
)

// Ensure OAuthSessionStore implements the interface.
var _ driven.OAuthSessionStore = (*OAuthSessionStore)(nil)

// OAuthSessionStore implements driven.OAuthSessionStore using PostgreSQL.
// One row per owner; a new authorization replaces the pending one.
type OAuthSessionStore struct {
	db  *DB
	ttl time.Duration
	now func() time.Time
}

// NewOAuthSessionStore creates a new PostgreSQL-backed OAuth session store.
func NewOAuthSessionStore(db *DB) *OAuthSessionStore {
	return NewOAuthSessionStoreWithTTL(db, domain.OAuthSessionTTL)
}

// NewOAuthSessionStoreWithTTL creates an OAuth session store with custom TTL.
func NewOAuthSessionStoreWithTTL(db *DB, ttl time.Duration) *OAuthSessionStore {
	return &OAuthSessionStore{
		db:  db,
		ttl: ttl,
		now: time.Now,
	}
}

// Save stores the session, replacing any pending one for the owner.
func (s *OAuthSessionStore) Save(ctx context.Context, session *domain.OAuthSession) error {
	now := s.now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	if session.ExpiresAt.IsZero() {
		session.ExpiresAt = session.CreatedAt.Add(s.ttl)
	}

	query := `
		INSERT INTO oauth_sessions (owner_id, provider, state, code_verifier, redirect_uri, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (owner_id) DO UPDATE SET
			provider = EXCLUDED.provider,
			state = EXCLUDED.state,
			code_verifier = EXCLUDED.code_verifier,
			redirect_uri = EXCLUDED.redirect_uri,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at
	`

	_, err := s.db.ExecContext(ctx, query,
		session.OwnerID,
		string(session.Provider),
		session.State,
		session.CodeVerifier,
		session.RedirectURI,
		session.CreatedAt,
		session.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("save oauth session: %w", err)
	}

	return nil
}

// Get returns the owner's unexpired session.
func (s *OAuthSessionStore) Get(ctx context.Context, ownerID string) (*domain.OAuthSession, error) {
	query := `
		SELECT owner_id, provider, state, code_verifier, redirect_uri, created_at, expires_at
		FROM oauth_sessions
		WHERE owner_id = $1 AND expires_at > $2
	`

	var session domain.OAuthSession
	err := s.db.QueryRowContext(ctx, query, ownerID, s.now().UTC()).Scan(
		&session.OwnerID,
		&session.Provider,
		&session.State,
		&session.CodeVerifier,
		&session.RedirectURI,
		&session.CreatedAt,
		&session.ExpiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get oauth session: %w", err)
	}

	return &session, nil
}

// Delete removes the owner's session.
func (s *OAuthSessionStore) Delete(ctx context.Context, ownerID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM oauth_sessions WHERE owner_id = $1`, ownerID)
	if err != nil {
		return fmt.Errorf("delete oauth session: %w", err)
	}
	return nil
}

// Cleanup removes expired sessions.
func (s *OAuthSessionStore) Cleanup(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM oauth_sessions WHERE expires_at <= $1`, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("cleanup oauth sessions: %w", err)
	}

	return result.RowsAffected()
}
