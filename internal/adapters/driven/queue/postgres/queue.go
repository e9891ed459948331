package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	pg "github.com/custodia-labs/sercha-social/internal/adapters/driven/postgres"
	"github.com/custodia-labs/sercha-social/internal/core/domain"
	"github.com/custodia-labs/sercha-social/internal/core/ports/driven"
)

// Ensure Queue implements PostQueue
var _ driven.PostQueue = (*Queue)(nil)

// Queue implements PostQueue on the scheduled_posts table.
// Every status change is a single conditional UPDATE; the affected row count
// tells the caller whether it won the transition.
type Queue struct {
	db  *sql.DB
	now func() time.Time
}

// NewQueue creates a new PostgreSQL-backed post queue.
// Assumes the scheduled_posts table has been created via migrations.
func NewQueue(db *sql.DB) *Queue {
	return &Queue{db: db, now: time.Now}
}

const postColumns = `
	id, owner_id, provider, text, media, status, scheduled_for, posted_at,
	error_msg, provider_post_id, provider_post_url, created_at, updated_at
`

// Enqueue inserts a new scheduled post
func (q *Queue) Enqueue(ctx context.Context, post *domain.ScheduledPost) error {
	if post.Status != domain.PostStatusScheduled {
		return fmt.Errorf("enqueue post %s: status must be %s, got %q", post.ID, domain.PostStatusScheduled, post.Status)
	}
	now := q.now().UTC()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = now
	}
	post.UpdatedAt = now

	query := `
		INSERT INTO scheduled_posts (
			id, owner_id, provider, text, media, status, scheduled_for, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := q.db.ExecContext(ctx, query,
		post.ID,
		post.OwnerID,
		string(post.Provider),
		post.Text,
		post.Media,
		string(post.Status),
		pg.NullTime(post.ScheduledFor),
		post.CreatedAt,
		post.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}

	return nil
}

// Get retrieves a post by ID
func (q *Queue) Get(ctx context.Context, id string) (*domain.ScheduledPost, error) {
	query := `SELECT ` + postColumns + ` FROM scheduled_posts WHERE id = $1`

	post, err := scanPost(q.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	return post, nil
}

// ListByOwner returns the owner's posts, newest first
func (q *Queue) ListByOwner(ctx context.Context, ownerID string, provider domain.Provider, limit int) ([]*domain.ScheduledPost, error) {
	query := `SELECT ` + postColumns + `
		FROM scheduled_posts
		WHERE owner_id = $1 AND provider = $2
		ORDER BY created_at DESC
		LIMIT $3
	`

	rows, err := q.db.QueryContext(ctx, query, ownerID, string(provider), limit)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	return scanPosts(rows)
}

// StatsByOwner counts the owner's posts per status
func (q *Queue) StatsByOwner(ctx context.Context, ownerID string, provider domain.Provider) (*domain.PostStats, error) {
	query := `
		SELECT status, COUNT(*)
		FROM scheduled_posts
		WHERE owner_id = $1 AND provider = $2
		GROUP BY status
	`

	rows, err := q.db.QueryContext(ctx, query, ownerID, string(provider))
	if err != nil {
		return nil, fmt.Errorf("post stats: %w", err)
	}
	defer rows.Close()

	stats := &domain.PostStats{}
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan post stats: %w", err)
		}
		stats.Add(domain.PostStatus(status), count)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate post stats: %w", err)
	}

	return stats, nil
}

// ListDue returns scheduled posts that are due at now, oldest first
func (q *Queue) ListDue(ctx context.Context, provider domain.Provider, now time.Time, limit int) ([]*domain.ScheduledPost, error) {
	query := `SELECT ` + postColumns + `
		FROM scheduled_posts
		WHERE provider = $1
		  AND status = 'scheduled'
		  AND (scheduled_for IS NULL OR scheduled_for <= $2)
		ORDER BY created_at ASC
		LIMIT $3
	`

	rows, err := q.db.QueryContext(ctx, query, string(provider), now.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("list due posts: %w", err)
	}
	defer rows.Close()

	return scanPosts(rows)
}

// Claim moves a post from scheduled to processing
func (q *Queue) Claim(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE scheduled_posts
		SET status = 'processing', updated_at = $2
		WHERE id = $1 AND status = 'scheduled'
	`

	result, err := q.db.ExecContext(ctx, query, id, q.now().UTC())
	if err != nil {
		return false, fmt.Errorf("claim post: %w", err)
	}
	return affected(result)
}

// MarkPosted records a successful publication
func (q *Queue) MarkPosted(ctx context.Context, id string, res driven.PostedResult) error {
	query := `
		UPDATE scheduled_posts
		SET status = 'posted', posted_at = $2, provider_post_id = $3, provider_post_url = $4,
		    error_msg = NULL, updated_at = $5
		WHERE id = $1 AND status = 'processing'
	`

	result, err := q.db.ExecContext(ctx, query, id, res.PostedAt.UTC(), res.ProviderPostID, res.ProviderPostURL, q.now().UTC())
	if err != nil {
		return fmt.Errorf("mark posted: %w", err)
	}
	return requireTransition(result)
}

// MarkFailed records a failed attempt
func (q *Queue) MarkFailed(ctx context.Context, id string, errorMsg string) error {
	query := `
		UPDATE scheduled_posts
		SET status = 'failed', error_msg = $2, updated_at = $3
		WHERE id = $1 AND status = 'processing'
	`

	result, err := q.db.ExecContext(ctx, query, id, errorMsg, q.now().UTC())
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return requireTransition(result)
}

// Requeue resets a failed or scheduled post to scheduled
func (q *Queue) Requeue(ctx context.Context, id string, scheduledFor time.Time) (bool, error) {
	query := `
		UPDATE scheduled_posts
		SET status = 'scheduled', scheduled_for = $2, error_msg = NULL, posted_at = NULL, updated_at = $3
		WHERE id = $1 AND status IN ('failed', 'scheduled')
	`

	result, err := q.db.ExecContext(ctx, query, id, scheduledFor.UTC(), q.now().UTC())
	if err != nil {
		return false, fmt.Errorf("requeue post: %w", err)
	}
	return affected(result)
}

// Delete removes a scheduled or failed post
func (q *Queue) Delete(ctx context.Context, id string) (bool, error) {
	query := `DELETE FROM scheduled_posts WHERE id = $1 AND status IN ('scheduled', 'failed')`

	result, err := q.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("delete post: %w", err)
	}
	return affected(result)
}

// RevertStale returns processing posts created before olderThan to scheduled
func (q *Queue) RevertStale(ctx context.Context, provider domain.Provider, olderThan time.Time) (int64, error) {
	query := `
		UPDATE scheduled_posts
		SET status = 'scheduled', updated_at = $3
		WHERE provider = $1 AND status = 'processing' AND created_at < $2
	`

	result, err := q.db.ExecContext(ctx, query, string(provider), olderThan.UTC(), q.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("revert stale posts: %w", err)
	}
	return result.RowsAffected()
}

// PurgeTerminal deletes posted and failed posts created before olderThan
func (q *Queue) PurgeTerminal(ctx context.Context, provider domain.Provider, olderThan time.Time) (int64, error) {
	query := `
		DELETE FROM scheduled_posts
		WHERE provider = $1 AND status IN ('posted', 'failed') AND created_at < $2
	`

	result, err := q.db.ExecContext(ctx, query, string(provider), olderThan.UTC())
	if err != nil {
		return 0, fmt.Errorf("purge terminal posts: %w", err)
	}
	return result.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*domain.ScheduledPost, error) {
	var post domain.ScheduledPost
	var scheduledFor, postedAt sql.NullTime
	var errorMsg, providerPostID, providerPostURL sql.NullString

	err := row.Scan(
		&post.ID,
		&post.OwnerID,
		&post.Provider,
		&post.Text,
		&post.Media,
		&post.Status,
		&scheduledFor,
		&postedAt,
		&errorMsg,
		&providerPostID,
		&providerPostURL,
		&post.CreatedAt,
		&post.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	post.ScheduledFor = pg.TimePtr(scheduledFor)
	post.PostedAt = pg.TimePtr(postedAt)
	post.ErrorMsg = pg.StringPtr(errorMsg)
	post.ProviderPostID = pg.StringPtr(providerPostID)
	post.ProviderPostURL = pg.StringPtr(providerPostURL)
	return &post, nil
}

func scanPosts(rows *sql.Rows) ([]*domain.ScheduledPost, error) {
	var posts []*domain.ScheduledPost
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}
	return posts, nil
}

func affected(result sql.Result) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// requireTransition maps a lost terminal transition to domain.ErrNotFound.
func requireTransition(result sql.Result) error {
	ok, err := affected(result)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotFound
	}
	return nil
}
