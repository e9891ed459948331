package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-social/internal/core/domain"
	"github.com/custodia-labs/sercha-social/internal/core/ports/driven"
)

var _ driven.OAuthSessionStore = (*MockOAuthSessionStore)(nil)

// MockOAuthSessionStore is an in-memory OAuthSessionStore for testing
type MockOAuthSessionStore struct {
	mu       sync.Mutex
	sessions map[string]*domain.OAuthSession
}

// NewMockOAuthSessionStore creates a new MockOAuthSessionStore
func NewMockOAuthSessionStore() *MockOAuthSessionStore {
	return &MockOAuthSessionStore{
		sessions: make(map[string]*domain.OAuthSession),
	}
}

func (m *MockOAuthSessionStore) Save(ctx context.Context, session *domain.OAuthSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *session
	m.sessions[session.OwnerID] = &cp
	return nil
}

func (m *MockOAuthSessionStore) Get(ctx context.Context, ownerID string) (*domain.OAuthSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[ownerID]
	if !ok || s.IsExpired(time.Now()) {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MockOAuthSessionStore) Delete(ctx context.Context, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, ownerID)
	return nil
}

func (m *MockOAuthSessionStore) Cleanup(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	var n int64
	for k, s := range m.sessions {
		if s.IsExpired(now) {
			delete(m.sessions, k)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored sessions, expired ones included.
func (m *MockOAuthSessionStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
