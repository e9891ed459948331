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

// Verify interface compliance
var _ driven.CredentialStore = (*CredentialStore)(nil)

// CredentialStore implements driven.CredentialStore using PostgreSQL
type CredentialStore struct {
	db  *DB
	now func() time.Time
}

// NewCredentialStore creates a new CredentialStore
func NewCredentialStore(db *DB) *CredentialStore {
	return &CredentialStore{db: db, now: time.Now}
}

// Get retrieves the credential for an owner and provider
func (s *CredentialStore) Get(ctx context.Context, ownerID string, provider domain.Provider) (*domain.StoredCredential, error) {
	query := `
		SELECT owner_id, provider, encrypted_access_token, encrypted_refresh_token,
		       token_expires_at, granted_scope, provider_handle, created_at, updated_at
		FROM social_credentials
		WHERE owner_id = $1 AND provider = $2
	`

	var cred domain.StoredCredential
	var expiresAt sql.NullTime

	err := s.db.QueryRowContext(ctx, query, ownerID, string(provider)).Scan(
		&cred.OwnerID,
		&cred.Provider,
		&cred.EncryptedAccessToken,
		&cred.EncryptedRefreshToken,
		&expiresAt,
		&cred.GrantedScope,
		&cred.ProviderHandle,
		&cred.CreatedAt,
		&cred.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get credential: %w", err)
	}

	cred.TokenExpiresAt = TimePtr(expiresAt)
	return &cred, nil
}

// Upsert inserts a credential or replaces the one stored for the same owner and provider.
// created_at is preserved across reconnects.
func (s *CredentialStore) Upsert(ctx context.Context, cred *domain.StoredCredential) error {
	now := s.now().UTC()
	if cred.CreatedAt.IsZero() {
		cred.CreatedAt = now
	}
	cred.UpdatedAt = now

	query := `
		INSERT INTO social_credentials (
			owner_id, provider, encrypted_access_token, encrypted_refresh_token,
			token_expires_at, granted_scope, provider_handle, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (owner_id, provider) DO UPDATE SET
			encrypted_access_token = EXCLUDED.encrypted_access_token,
			encrypted_refresh_token = EXCLUDED.encrypted_refresh_token,
			token_expires_at = EXCLUDED.token_expires_at,
			granted_scope = EXCLUDED.granted_scope,
			provider_handle = EXCLUDED.provider_handle,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		cred.OwnerID,
		string(cred.Provider),
		cred.EncryptedAccessToken,
		NullBytes(cred.EncryptedRefreshToken),
		NullTime(cred.TokenExpiresAt),
		cred.GrantedScope,
		cred.ProviderHandle,
		cred.CreatedAt,
		cred.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert credential: %w", err)
	}
	return nil
}

// UpdateTokens stores refreshed token material.
// A nil refresh blob and an empty scope keep the stored values.
func (s *CredentialStore) UpdateTokens(ctx context.Context, ownerID string, provider domain.Provider, update driven.TokenUpdate) error {
	query := `
		UPDATE social_credentials SET
			encrypted_access_token = $3,
			encrypted_refresh_token = COALESCE($4, encrypted_refresh_token),
			token_expires_at = $5,
			granted_scope = COALESCE(NULLIF($6, ''), granted_scope),
			updated_at = $7
		WHERE owner_id = $1 AND provider = $2
	`

	result, err := s.db.ExecContext(ctx, query,
		ownerID,
		string(provider),
		update.EncryptedAccessToken,
		NullBytes(update.EncryptedRefreshToken),
		NullTime(update.TokenExpiresAt),
		update.GrantedScope,
		s.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("update tokens: %w", err)
	}

	return requireRow(result)
}

// Delete removes the credential for an owner and provider
func (s *CredentialStore) Delete(ctx context.Context, ownerID string, provider domain.Provider) error {
	query := `DELETE FROM social_credentials WHERE owner_id = $1 AND provider = $2`
	result, err := s.db.ExecContext(ctx, query, ownerID, string(provider))
	if err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}

	return requireRow(result)
}

// requireRow maps a zero-row write to domain.ErrNotFound.
func requireRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
