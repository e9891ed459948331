package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-social/internal/core/domain"
	"github.com/custodia-labs/sercha-social/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-social/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-social/internal/metrics"
)

// Ensure postService implements PostService
var _ driving.PostService = (*postService)(nil)

// Listing bounds
const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// PostServiceConfig holds dependencies for the post service.
type PostServiceConfig struct {
	Queue    driven.PostQueue
	Provider domain.Provider
	Logger   *slog.Logger
	Now      func() time.Time
}

type postService struct {
	queue    driven.PostQueue
	provider domain.Provider
	logger   *slog.Logger
	now      func() time.Time
}

// NewPostService creates a new post service.
func NewPostService(cfg PostServiceConfig) driving.PostService {
	if cfg.Provider == "" {
		cfg.Provider = domain.ProviderX
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &postService{
		queue:    cfg.Queue,
		provider: cfg.Provider,
		logger:   cfg.Logger,
		now:      cfg.Now,
	}
}

// Schedule validates the text and enqueues a post.
// An absent or unparseable scheduled time makes the post due immediately.
func (s *postService) Schedule(ctx context.Context, req driving.ScheduleRequest) (*domain.ScheduledPost, error) {
	if req.OwnerID == "" {
		return nil, domain.ErrUnauthorized
	}
	text, err := domain.ValidatePostText(req.Text)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	post := &domain.ScheduledPost{
		ID:           uuid.NewString(),
		OwnerID:      req.OwnerID,
		Provider:     s.provider,
		Text:         text,
		Media:        req.Media,
		Status:       domain.PostStatusScheduled,
		ScheduledFor: domain.ParseScheduledFor(req.ScheduledFor),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.queue.Enqueue(ctx, post); err != nil {
		return nil, fmt.Errorf("enqueue post: %w", err)
	}
	metrics.PostsScheduledTotal.Inc()

	s.logger.Info("post scheduled", "post_id", post.ID, "owner_id", post.OwnerID, "immediate", post.ScheduledFor == nil)
	return post, nil
}

// Retry re-queues a failed or scheduled post to run now.
func (s *postService) Retry(ctx context.Context, id, ownerID string) (*domain.ScheduledPost, error) {
	post, err := s.owned(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if !post.CanRetry() {
		return nil, &domain.TransitionError{Action: "retry", From: post.Status}
	}

	now := s.now().UTC()
	ok, err := s.queue.Requeue(ctx, id, now)
	if err != nil {
		return nil, fmt.Errorf("requeue post: %w", err)
	}
	if !ok {
		// Claimed or finished between the read and the write.
		current, getErr := s.queue.Get(ctx, id)
		if getErr != nil {
			return nil, fmt.Errorf("reload post: %w", getErr)
		}
		return nil, &domain.TransitionError{Action: "retry", From: current.Status}
	}

	s.logger.Info("post requeued", "post_id", id, "owner_id", ownerID, "from", post.Status)
	return s.queue.Get(ctx, id)
}

// Get returns one of the owner's posts.
func (s *postService) Get(ctx context.Context, id, ownerID string) (*domain.ScheduledPost, error) {
	return s.owned(ctx, id, ownerID)
}

// List returns the owner's posts, newest first.
func (s *postService) List(ctx context.Context, ownerID string, limit int) ([]*domain.ScheduledPost, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	posts, err := s.queue.ListByOwner(ctx, ownerID, s.provider, limit)
	if err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []*domain.ScheduledPost{}
	}
	return posts, nil
}

// Stats counts the owner's posts per status.
func (s *postService) Stats(ctx context.Context, ownerID string) (*domain.PostStats, error) {
	return s.queue.StatsByOwner(ctx, ownerID, s.provider)
}

// Cancel removes a scheduled or failed post.
func (s *postService) Cancel(ctx context.Context, id, ownerID string) error {
	post, err := s.owned(ctx, id, ownerID)
	if err != nil {
		return err
	}
	if !post.CanCancel() {
		return &domain.TransitionError{Action: "cancel", From: post.Status}
	}

	ok, err := s.queue.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if !ok {
		return &domain.TransitionError{Action: "cancel", From: domain.PostStatusProcessing}
	}

	s.logger.Info("post cancelled", "post_id", id, "owner_id", ownerID)
	return nil
}

// owned loads a post and hides it unless it belongs to ownerID on this provider.
func (s *postService) owned(ctx context.Context, id, ownerID string) (*domain.ScheduledPost, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.NewValidationError("id", "invalid post id")
	}
	post, err := s.queue.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get post: %w", err)
	}
	if post.OwnerID != ownerID || post.Provider != s.provider {
		return nil, domain.ErrNotFound
	}
	return post, nil
}
