package driving

import (
	"context"

	"github.com/custodia-labs/sercha-social/internal/core/domain"
)

// PostService is the owner-facing side of the scheduled post queue.
type PostService interface {
	// Schedule validates and enqueues a post.
	Schedule(ctx context.Context, req ScheduleRequest) (*domain.ScheduledPost, error)

	// Retry re-queues a failed or scheduled post owned by ownerID, due now.
	Retry(ctx context.Context, id, ownerID string) (*domain.ScheduledPost, error)

	// Get returns a post owned by ownerID.
	Get(ctx context.Context, id, ownerID string) (*domain.ScheduledPost, error)

	// List returns the owner's posts, newest first.
	List(ctx context.Context, ownerID string, limit int) ([]*domain.ScheduledPost, error)

	// Stats counts the owner's posts per status.
	Stats(ctx context.Context, ownerID string) (*domain.PostStats, error)

	// Cancel removes a scheduled or failed post owned by ownerID.
	Cancel(ctx context.Context, id, ownerID string) error
}

// ScheduleRequest represents a request to queue a post.
// @Description Request to schedule a post
type ScheduleRequest struct {
	OwnerID string `json:"-"`

	// Text is the post body, at most 280 characters after trimming.
	Text string `json:"text" validate:"required" example:"Shipping the new release today"`

	// ScheduledFor is an ISO-8601 time. Absent or unparseable means now.
	ScheduledFor string `json:"scheduled_for,omitempty" example:"2026-01-15T10:00:00Z"`

	// Media is an optional JSON array of media references, stored as given.
	Media string `json:"media,omitempty" example:"[\"1460323737035677698\"]"`
}
