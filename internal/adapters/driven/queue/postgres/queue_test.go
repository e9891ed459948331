package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-social/internal/core/domain"
	"github.com/custodia-labs/sercha-social/internal/core/ports/driven"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

var postRowColumns = []string{
	"id", "owner_id", "provider", "text", "media", "status", "scheduled_for", "posted_at",
	"error_msg", "provider_post_id", "provider_post_url", "created_at", "updated_at",
}

func newTestQueue(t *testing.T) (*Queue, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	q := NewQueue(db)
	q.now = func() time.Time { return now }
	return q, mock
}

func TestEnqueue(t *testing.T) {
	q, mock := newTestQueue(t)

	post := &domain.ScheduledPost{
		ID:       "post-1",
		OwnerID:  "owner-1",
		Provider: domain.ProviderX,
		Text:     "hello",
		Status:   domain.PostStatusScheduled,
	}

	mock.ExpectExec(`INSERT INTO scheduled_posts`).
		WithArgs("post-1", "owner-1", "x", "hello", "", "scheduled", nil, now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, q.Enqueue(context.Background(), post))
	assert.Equal(t, now, post.CreatedAt)
}

func TestEnqueue_RejectsNonScheduled(t *testing.T) {
	q, _ := newTestQueue(t)

	err := q.Enqueue(context.Background(), &domain.ScheduledPost{ID: "post-1", Status: domain.PostStatusPosted})
	assert.Error(t, err)
}

func TestGet(t *testing.T) {
	q, mock := newTestQueue(t)

	mock.ExpectQuery(`SELECT .+ FROM scheduled_posts WHERE id = \$1`).
		WithArgs("post-1").
		WillReturnRows(sqlmock.NewRows(postRowColumns).
			AddRow("post-1", "owner-1", "x", "hello", `["m1"]`, "failed", nil, nil,
				"rate limited", nil, nil, now, now))

	post, err := q.Get(context.Background(), "post-1")
	require.NoError(t, err)
	assert.Equal(t, domain.PostStatusFailed, post.Status)
	assert.Equal(t, []string{"m1"}, post.MediaIDs())
	require.NotNil(t, post.ErrorMsg)
	assert.Equal(t, "rate limited", *post.ErrorMsg)
	assert.Nil(t, post.ScheduledFor)
	assert.Nil(t, post.ProviderPostID)
}

func TestGet_NotFound(t *testing.T) {
	q, mock := newTestQueue(t)

	mock.ExpectQuery(`SELECT .+ FROM scheduled_posts`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(postRowColumns))

	_, err := q.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListDue(t *testing.T) {
	q, mock := newTestQueue(t)

	past := now.Add(-time.Minute)
	mock.ExpectQuery(`status = 'scheduled'\s+AND \(scheduled_for IS NULL OR scheduled_for <= \$2\)\s+ORDER BY created_at ASC`).
		WithArgs("x", now, 10).
		WillReturnRows(sqlmock.NewRows(postRowColumns).
			AddRow("p1", "o1", "x", "first", "", "scheduled", nil, nil, nil, nil, nil, now.Add(-time.Hour), now).
			AddRow("p2", "o1", "x", "second", "", "scheduled", past, nil, nil, nil, nil, now.Add(-time.Minute), now))

	posts, err := q.ListDue(context.Background(), domain.ProviderX, now, 10)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "p1", posts[0].ID)
	require.NotNil(t, posts[1].ScheduledFor)
	assert.True(t, past.Equal(*posts[1].ScheduledFor))
}

func TestClaim(t *testing.T) {
	tests := []struct {
		name string
		rows int64
		want bool
	}{
		{"won", 1, true},
		{"already claimed", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, mock := newTestQueue(t)

			mock.ExpectExec(`UPDATE scheduled_posts\s+SET status = 'processing'.+WHERE id = \$1 AND status = 'scheduled'`).
				WithArgs("post-1", now).
				WillReturnResult(sqlmock.NewResult(0, tt.rows))

			ok, err := q.Claim(context.Background(), "post-1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestMarkPosted(t *testing.T) {
	q, mock := newTestQueue(t)

	mock.ExpectExec(`SET status = 'posted'.+WHERE id = \$1 AND status = 'processing'`).
		WithArgs("post-1", now, "t1", "https://x.com/alice/status/t1", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := q.MarkPosted(context.Background(), "post-1", driven.PostedResult{
		ProviderPostID:  "t1",
		ProviderPostURL: "https://x.com/alice/status/t1",
		PostedAt:        now,
	})
	require.NoError(t, err)
}

func TestMarkFailed_NotProcessing(t *testing.T) {
	q, mock := newTestQueue(t)

	mock.ExpectExec(`SET status = 'failed'.+WHERE id = \$1 AND status = 'processing'`).
		WithArgs("post-1", "boom", now).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := q.MarkFailed(context.Background(), "post-1", "boom")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRequeue(t *testing.T) {
	q, mock := newTestQueue(t)

	mock.ExpectExec(`SET status = 'scheduled', scheduled_for = \$2, error_msg = NULL, posted_at = NULL.+status IN \('failed', 'scheduled'\)`).
		WithArgs("post-1", now, now).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := q.Requeue(context.Background(), "post-1", now)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDelete(t *testing.T) {
	q, mock := newTestQueue(t)

	mock.ExpectExec(`DELETE FROM scheduled_posts WHERE id = \$1 AND status IN \('scheduled', 'failed'\)`).
		WithArgs("post-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := q.Delete(context.Background(), "post-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRevertStaleAndPurge(t *testing.T) {
	q, mock := newTestQueue(t)

	stale := now.Add(-10 * time.Minute)
	retention := now.Add(-90 * 24 * time.Hour)

	mock.ExpectExec(`SET status = 'scheduled'.+status = 'processing' AND created_at < \$2`).
		WithArgs("x", stale, now).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM scheduled_posts\s+WHERE provider = \$1 AND status IN \('posted', 'failed'\) AND created_at < \$2`).
		WithArgs("x", retention).
		WillReturnResult(sqlmock.NewResult(0, 5))

	reverted, err := q.RevertStale(context.Background(), domain.ProviderX, stale)
	require.NoError(t, err)
	assert.Equal(t, int64(2), reverted)

	purged, err := q.PurgeTerminal(context.Background(), domain.ProviderX, retention)
	require.NoError(t, err)
	assert.Equal(t, int64(5), purged)
}

func TestStatsByOwner(t *testing.T) {
	q, mock := newTestQueue(t)

	mock.ExpectQuery(`SELECT status, COUNT\(\*\)`).
		WithArgs("owner-1", "x").
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("scheduled", 3).
			AddRow("posted", 7).
			AddRow("failed", 1))

	stats, err := q.StatsByOwner(context.Background(), "owner-1", domain.ProviderX)
	require.NoError(t, err)
	assert.Equal(t, &domain.PostStats{Scheduled: 3, Posted: 7, Failed: 1}, stats)
}
