package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/sercha-social/internal/core/domain"
)

// PostQueue is the durable store of scheduled posts and their state machine.
// Every transition out of a status is conditional on the row still holding
// that status, so overlapping workers never double-process a post.
type PostQueue interface {
	// Enqueue inserts a new post. The post must be in status scheduled.
	Enqueue(ctx context.Context, post *domain.ScheduledPost) error

	// Get retrieves a post by ID.
	// Returns domain.ErrNotFound if it does not exist.
	Get(ctx context.Context, id string) (*domain.ScheduledPost, error)

	// ListByOwner returns the owner's posts for provider, newest first.
	ListByOwner(ctx context.Context, ownerID string, provider domain.Provider, limit int) ([]*domain.ScheduledPost, error)

	// StatsByOwner counts the owner's posts per status.
	StatsByOwner(ctx context.Context, ownerID string, provider domain.Provider) (*domain.PostStats, error)

	// ListDue returns up to limit scheduled posts whose scheduled_for is null
	// or not after now, oldest created first. It does not claim them.
	ListDue(ctx context.Context, provider domain.Provider, now time.Time, limit int) ([]*domain.ScheduledPost, error)

	// Claim moves a post from scheduled to processing. It returns false when
	// the post was no longer scheduled (claimed elsewhere); that is not an error.
	Claim(ctx context.Context, id string) (bool, error)

	// MarkPosted records a successful publication of a processing post.
	MarkPosted(ctx context.Context, id string, result PostedResult) error

	// MarkFailed records a failed attempt of a processing post.
	MarkFailed(ctx context.Context, id string, errorMsg string) error

	// Requeue resets a failed or scheduled post to scheduled, due at scheduledFor,
	// clearing error_msg and posted_at. Returns false if the post was in another status.
	Requeue(ctx context.Context, id string, scheduledFor time.Time) (bool, error)

	// Delete removes a post that is scheduled or failed. Returns false if the
	// post was in another status.
	Delete(ctx context.Context, id string) (bool, error)

	// RevertStale moves processing posts created before olderThan back to scheduled.
	RevertStale(ctx context.Context, provider domain.Provider, olderThan time.Time) (int64, error)

	// PurgeTerminal deletes posted and failed posts created before olderThan.
	PurgeTerminal(ctx context.Context, provider domain.Provider, olderThan time.Time) (int64, error)

	// Ping checks queue connectivity.
	Ping(ctx context.Context) error
}

// PostedResult is what MarkPosted stores.
type PostedResult struct {
	ProviderPostID  string
	ProviderPostURL string
	PostedAt        time.Time
}
