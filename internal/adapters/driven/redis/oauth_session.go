package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/sercha-social/internal/core/domain"
	"github.com/custodia-labs/sercha-social/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.OAuthSessionStore = (*OAuthSessionStore)(nil)

const oauthSessionPrefix = "sercha-social:oauth:session:"

// OAuthSessionStore implements driven.OAuthSessionStore using Redis.
// Sessions expire through key TTL, so Cleanup has nothing to do.
type OAuthSessionStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewOAuthSessionStore creates a new Redis-backed OAuth session store.
func NewOAuthSessionStore(client *redis.Client) *OAuthSessionStore {
	return &OAuthSessionStore{client: client, now: time.Now}
}

// Save stores the session with a TTL derived from ExpiresAt.
func (s *OAuthSessionStore) Save(ctx context.Context, session *domain.OAuthSession) error {
	now := s.now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	if session.ExpiresAt.IsZero() {
		session.ExpiresAt = session.CreatedAt.Add(domain.OAuthSessionTTL)
	}

	ttl := session.ExpiresAt.Sub(now)
	if ttl <= 0 {
		return fmt.Errorf("save oauth session: already expired")
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal oauth session: %w", err)
	}

	if err := s.client.Set(ctx, oauthSessionPrefix+session.OwnerID, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save oauth session: %w", err)
	}
	return nil
}

// Get retrieves the owner's pending session.
func (s *OAuthSessionStore) Get(ctx context.Context, ownerID string) (*domain.OAuthSession, error) {
	data, err := s.client.Get(ctx, oauthSessionPrefix+ownerID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get oauth session: %w", err)
	}

	var session domain.OAuthSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal oauth session: %w", err)
	}
	if session.IsExpired(s.now()) {
		return nil, domain.ErrNotFound
	}
	return &session, nil
}

// Delete removes the owner's session.
func (s *OAuthSessionStore) Delete(ctx context.Context, ownerID string) error {
	if err := s.client.Del(ctx, oauthSessionPrefix+ownerID).Err(); err != nil {
		return fmt.Errorf("failed to delete oauth session: %w", err)
	}
	return nil
}

// Cleanup is a no-op; Redis expires sessions on its own.
func (s *OAuthSessionStore) Cleanup(ctx context.Context) (int64, error) {
	return 0, nil
}

// Ping checks Redis connectivity for readiness probes.
func (s *OAuthSessionStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
