package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/sercha-social/internal/core/domain"
	"github.com/custodia-labs/sercha-social/internal/core/ports/driven"
)

var _ driven.CredentialStore = (*MockCredentialStore)(nil)

// MockCredentialStore is an in-memory CredentialStore for testing
type MockCredentialStore struct {
	mu          sync.RWMutex
	credentials map[string]*domain.StoredCredential

	// Writes counts Upsert and UpdateTokens calls.
	Writes int

	// GetErr, if set, is returned by Get.
	GetErr error
}

// NewMockCredentialStore creates a new MockCredentialStore
func NewMockCredentialStore() *MockCredentialStore {
	return &MockCredentialStore{
		credentials: make(map[string]*domain.StoredCredential),
	}
}

func credentialKey(ownerID string, provider domain.Provider) string {
	return string(provider) + ":" + ownerID
}

func (m *MockCredentialStore) Get(ctx context.Context, ownerID string, provider domain.Provider) (*domain.StoredCredential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.GetErr != nil {
		return nil, m.GetErr
	}
	cred, ok := m.credentials[credentialKey(ownerID, provider)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *cred
	return &cp, nil
}

func (m *MockCredentialStore) Upsert(ctx context.Context, cred *domain.StoredCredential) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *cred
	if existing, ok := m.credentials[credentialKey(cred.OwnerID, cred.Provider)]; ok {
		cp.CreatedAt = existing.CreatedAt
	}
	m.credentials[credentialKey(cred.OwnerID, cred.Provider)] = &cp
	m.Writes++
	return nil
}

func (m *MockCredentialStore) UpdateTokens(ctx context.Context, ownerID string, provider domain.Provider, update driven.TokenUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cred, ok := m.credentials[credentialKey(ownerID, provider)]
	if !ok {
		return domain.ErrNotFound
	}
	cred.EncryptedAccessToken = update.EncryptedAccessToken
	if len(update.EncryptedRefreshToken) > 0 {
		cred.EncryptedRefreshToken = update.EncryptedRefreshToken
	}
	cred.TokenExpiresAt = update.TokenExpiresAt
	if update.GrantedScope != "" {
		cred.GrantedScope = update.GrantedScope
	}
	m.Writes++
	return nil
}

func (m *MockCredentialStore) Delete(ctx context.Context, ownerID string, provider domain.Provider) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := credentialKey(ownerID, provider)
	if _, ok := m.credentials[key]; !ok {
		return domain.ErrNotFound
	}
	delete(m.credentials, key)
	return nil
}
