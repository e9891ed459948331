package postgres

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-social/internal/core/domain"
	"github.com/custodia-labs/sercha-social/internal/core/ports/driven"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return &DB{DB: db}, mock
}

var credentialColumns = []string{
	"owner_id", "provider", "encrypted_access_token", "encrypted_refresh_token",
	"token_expires_at", "granted_scope", "provider_handle", "created_at", "updated_at",
}

func TestCredentialStore_Get(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewCredentialStore(db)

	expires := fixedNow.Add(2 * time.Hour)
	mock.ExpectQuery(`SELECT .+ FROM social_credentials`).
		WithArgs("owner-1", "x").
		WillReturnRows(sqlmock.NewRows(credentialColumns).
			AddRow("owner-1", "x", []byte("at"), []byte("rt"), expires, "tweet.read tweet.write", "alice", fixedNow, fixedNow))

	cred, err := store.Get(context.Background(), "owner-1", domain.ProviderX)
	require.NoError(t, err)
	assert.Equal(t, "owner-1", cred.OwnerID)
	assert.Equal(t, domain.ProviderX, cred.Provider)
	assert.Equal(t, []byte("at"), cred.EncryptedAccessToken)
	assert.Equal(t, []byte("rt"), cred.EncryptedRefreshToken)
	require.NotNil(t, cred.TokenExpiresAt)
	assert.True(t, expires.Equal(*cred.TokenExpiresAt))
	assert.Equal(t, "alice", cred.ProviderHandle)
}

func TestCredentialStore_Get_NoRefreshTokenNoExpiry(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewCredentialStore(db)

	mock.ExpectQuery(`SELECT .+ FROM social_credentials`).
		WithArgs("owner-1", "x").
		WillReturnRows(sqlmock.NewRows(credentialColumns).
			AddRow("owner-1", "x", []byte("at"), nil, nil, "", "", fixedNow, fixedNow))

	cred, err := store.Get(context.Background(), "owner-1", domain.ProviderX)
	require.NoError(t, err)
	assert.False(t, cred.HasRefreshToken())
	assert.Nil(t, cred.TokenExpiresAt)
}

func TestCredentialStore_Get_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewCredentialStore(db)

	mock.ExpectQuery(`SELECT .+ FROM social_credentials`).
		WithArgs("nobody", "x").
		WillReturnRows(sqlmock.NewRows(credentialColumns))

	_, err := store.Get(context.Background(), "nobody", domain.ProviderX)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCredentialStore_Upsert(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewCredentialStore(db)
	store.now = func() time.Time { return fixedNow }

	cred := &domain.StoredCredential{
		OwnerID:              "owner-1",
		Provider:             domain.ProviderX,
		EncryptedAccessToken: []byte("at"),
		GrantedScope:         "tweet.write",
	}

	mock.ExpectExec(`INSERT INTO social_credentials .+ ON CONFLICT \(owner_id, provider\) DO UPDATE`).
		WithArgs("owner-1", "x", []byte("at"), nil, nil, "tweet.write", "", fixedNow, fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Upsert(context.Background(), cred))
	assert.Equal(t, fixedNow, cred.CreatedAt)
	assert.Equal(t, fixedNow, cred.UpdatedAt)
}

func TestCredentialStore_UpdateTokens(t *testing.T) {
	expires := fixedNow.Add(time.Hour)

	tests := []struct {
		name        string
		refresh     []byte
		wantRefresh driver.Value
	}{
		{name: "rotated refresh token is written", refresh: []byte("rt-2"), wantRefresh: []byte("rt-2")},
		{name: "nil refresh token keeps the stored one", refresh: nil, wantRefresh: nil},
		{name: "empty refresh token keeps the stored one", refresh: []byte{}, wantRefresh: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			store := NewCredentialStore(db)
			store.now = func() time.Time { return fixedNow }

			mock.ExpectExec(`UPDATE social_credentials SET .+ COALESCE\(\$4, encrypted_refresh_token\)`).
				WithArgs("owner-1", "x", []byte("at-2"), tt.wantRefresh, expires, "", fixedNow).
				WillReturnResult(sqlmock.NewResult(0, 1))

			err := store.UpdateTokens(context.Background(), "owner-1", domain.ProviderX, driven.TokenUpdate{
				EncryptedAccessToken:  []byte("at-2"),
				EncryptedRefreshToken: tt.refresh,
				TokenExpiresAt:        &expires,
			})
			require.NoError(t, err)
		})
	}
}

func TestNullBytes(t *testing.T) {
	assert.Nil(t, NullBytes(nil))
	assert.Nil(t, NullBytes([]byte{}))
	assert.Equal(t, []byte("blob"), NullBytes([]byte("blob")))
}

func TestCredentialStore_UpdateTokens_Missing(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewCredentialStore(db)

	mock.ExpectExec(`UPDATE social_credentials`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.UpdateTokens(context.Background(), "owner-1", domain.ProviderX, driven.TokenUpdate{EncryptedAccessToken: []byte("x")})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCredentialStore_Delete(t *testing.T) {
	tests := []struct {
		name    string
		rows    int64
		execErr error
		wantErr error
	}{
		{"deleted", 1, nil, nil},
		{"missing", 0, nil, domain.ErrNotFound},
		{"db error", 0, errors.New("connection reset"), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			store := NewCredentialStore(db)

			exp := mock.ExpectExec(`DELETE FROM social_credentials`).WithArgs("owner-1", "x")
			var result driver.Result = sqlmock.NewResult(0, tt.rows)
			if tt.execErr != nil {
				exp.WillReturnError(tt.execErr)
			} else {
				exp.WillReturnResult(result)
			}

			err := store.Delete(context.Background(), "owner-1", domain.ProviderX)
			switch {
			case tt.execErr != nil:
				assert.ErrorContains(t, err, "connection reset")
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			default:
				assert.NoError(t, err)
			}
		})
	}
}
