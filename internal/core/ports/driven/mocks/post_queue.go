package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-social/internal/core/domain"
	"github.com/custodia-labs/sercha-social/internal/core/ports/driven"
)

var _ driven.PostQueue = (*MockPostQueue)(nil)

// MockPostQueue is an in-memory PostQueue for testing.
// Transitions are guarded on the current status like the SQL implementation.
type MockPostQueue struct {
	mu    sync.Mutex
	posts map[string]*domain.ScheduledPost

	// Error hooks
	RevertErr  error
	PurgeErr   error
	ListDueErr error
	MarkErr    error
}

// NewMockPostQueue creates a new MockPostQueue
func NewMockPostQueue() *MockPostQueue {
	return &MockPostQueue{
		posts: make(map[string]*domain.ScheduledPost),
	}
}

func clonePost(p *domain.ScheduledPost) *domain.ScheduledPost {
	cp := *p
	return &cp
}

func (m *MockPostQueue) Enqueue(ctx context.Context, post *domain.ScheduledPost) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.posts[post.ID] = clonePost(post)
	return nil
}

func (m *MockPostQueue) Get(ctx context.Context, id string) (*domain.ScheduledPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.posts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clonePost(p), nil
}

func (m *MockPostQueue) ListByOwner(ctx context.Context, ownerID string, provider domain.Provider, limit int) ([]*domain.ScheduledPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*domain.ScheduledPost
	for _, p := range m.posts {
		if p.OwnerID == ownerID && p.Provider == provider {
			out = append(out, clonePost(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockPostQueue) StatsByOwner(ctx context.Context, ownerID string, provider domain.Provider) (*domain.PostStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := &domain.PostStats{}
	for _, p := range m.posts {
		if p.OwnerID == ownerID && p.Provider == provider {
			stats.Add(p.Status, 1)
		}
	}
	return stats, nil
}

func (m *MockPostQueue) ListDue(ctx context.Context, provider domain.Provider, now time.Time, limit int) ([]*domain.ScheduledPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ListDueErr != nil {
		return nil, m.ListDueErr
	}
	var out []*domain.ScheduledPost
	for _, p := range m.posts {
		if p.Provider == provider && p.Status == domain.PostStatusScheduled && p.IsDue(now) {
			out = append(out, clonePost(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockPostQueue) Claim(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.posts[id]
	if !ok || p.Status != domain.PostStatusScheduled {
		return false, nil
	}
	p.Status = domain.PostStatusProcessing
	p.UpdatedAt = time.Now()
	return true, nil
}

func (m *MockPostQueue) MarkPosted(ctx context.Context, id string, result driven.PostedResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.MarkErr != nil {
		return m.MarkErr
	}
	p, ok := m.posts[id]
	if !ok || p.Status != domain.PostStatusProcessing {
		return domain.ErrNotFound
	}
	postedAt := result.PostedAt
	postID := result.ProviderPostID
	postURL := result.ProviderPostURL
	p.Status = domain.PostStatusPosted
	p.PostedAt = &postedAt
	p.ErrorMsg = nil
	p.ProviderPostID = &postID
	p.ProviderPostURL = &postURL
	p.UpdatedAt = time.Now()
	return nil
}

func (m *MockPostQueue) MarkFailed(ctx context.Context, id string, errorMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.MarkErr != nil {
		return m.MarkErr
	}
	p, ok := m.posts[id]
	if !ok || p.Status != domain.PostStatusProcessing {
		return domain.ErrNotFound
	}
	msg := errorMsg
	p.Status = domain.PostStatusFailed
	p.ErrorMsg = &msg
	p.UpdatedAt = time.Now()
	return nil
}

func (m *MockPostQueue) Requeue(ctx context.Context, id string, scheduledFor time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.posts[id]
	if !ok || !p.CanRetry() {
		return false, nil
	}
	at := scheduledFor
	p.Status = domain.PostStatusScheduled
	p.ErrorMsg = nil
	p.PostedAt = nil
	p.ScheduledFor = &at
	p.UpdatedAt = time.Now()
	return true, nil
}

func (m *MockPostQueue) Delete(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.posts[id]
	if !ok || !p.CanCancel() {
		return false, nil
	}
	delete(m.posts, id)
	return true, nil
}

func (m *MockPostQueue) RevertStale(ctx context.Context, provider domain.Provider, olderThan time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.RevertErr != nil {
		return 0, m.RevertErr
	}
	var n int64
	for _, p := range m.posts {
		if p.Provider == provider && p.Status == domain.PostStatusProcessing && p.CreatedAt.Before(olderThan) {
			p.Status = domain.PostStatusScheduled
			p.UpdatedAt = time.Now()
			n++
		}
	}
	return n, nil
}

func (m *MockPostQueue) PurgeTerminal(ctx context.Context, provider domain.Provider, olderThan time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.PurgeErr != nil {
		return 0, m.PurgeErr
	}
	var n int64
	for id, p := range m.posts {
		if p.Provider == provider && p.Status.IsTerminal() && p.CreatedAt.Before(olderThan) {
			delete(m.posts, id)
			n++
		}
	}
	return n, nil
}

func (m *MockPostQueue) Ping(ctx context.Context) error {
	return nil
}

// Len returns the number of stored posts.
func (m *MockPostQueue) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.posts)
}
