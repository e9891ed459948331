// Package worker runs the scheduled post queue: crash recovery, claiming,
// publishing and housekeeping.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-social/internal/core/domain"
	"github.com/custodia-labs/sercha-social/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-social/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-social/internal/metrics"
)

// Ensure Worker implements QueueRunner
var _ driving.QueueRunner = (*Worker)(nil)

// Defaults
const (
	DefaultBatchSize  = 10
	DefaultStaleAfter = 10 * time.Minute
	DefaultRetention  = 90 * 24 * time.Hour
)

// Failure messages stored on posts
const (
	msgNoCredential      = "no connected account for this provider"
	msgReconnectRequired = "stored credentials are unreadable: reconnection required"
)

// Housekeeping steps, used as metric labels
const (
	stepRevertStale    = "revert_stale"
	stepPurgeTerminal  = "purge_terminal"
	stepSessionCleanup = "session_cleanup"
)

// Worker processes due posts. Every RunOnce is independent; overlapping runs
// are safe because each post is claimed with a conditional update.
type Worker struct {
	queue       driven.PostQueue
	credentials driven.CredentialStore
	tokens      driving.TokenService
	client      driven.ProviderClient
	sessions    driven.OAuthSessionStore
	logger      *slog.Logger

	provider   domain.Provider
	batchSize  int
	staleAfter time.Duration
	retention  time.Duration
	interval   time.Duration
	now        func() time.Time

	// Internal state
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// WorkerConfig holds configuration for the worker.
type WorkerConfig struct {
	Queue       driven.PostQueue
	Credentials driven.CredentialStore
	Tokens      driving.TokenService
	Client      driven.ProviderClient

	// Sessions is optional. When set, expired OAuth sessions are purged after each run.
	Sessions driven.OAuthSessionStore

	Logger   *slog.Logger
	Provider domain.Provider

	BatchSize  int           // posts claimed per run
	StaleAfter time.Duration // processing posts older than this are reverted
	Retention  time.Duration // terminal posts older than this are purged
	Interval   time.Duration // period of the optional Start loop

	Now func() time.Time
}

// NewWorker creates a new queue worker.
func NewWorker(cfg WorkerConfig) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	provider := cfg.Provider
	if provider == "" {
		provider = domain.ProviderX
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	staleAfter := cfg.StaleAfter
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	retention := cfg.Retention
	if retention <= 0 {
		retention = DefaultRetention
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Worker{
		queue:       cfg.Queue,
		credentials: cfg.Credentials,
		tokens:      cfg.Tokens,
		client:      cfg.Client,
		sessions:    cfg.Sessions,
		logger:      logger.With("component", "post_worker", "provider", provider),
		provider:    provider,
		batchSize:   batchSize,
		staleAfter:  staleAfter,
		retention:   retention,
		interval:    cfg.Interval,
		now:         now,
	}
}

// RunOnce performs one worker cycle: revert stale claims, claim a batch of
// due posts, publish them one by one, then clean up. Only a failure to list
// due posts is returned; everything else is recorded on the posts or logged.
func (w *Worker) RunOnce(ctx context.Context) (*domain.RunSummary, error) {
	start := time.Now()
	defer func() {
		metrics.WorkerRunDuration.Observe(time.Since(start).Seconds())
	}()

	summary := &domain.RunSummary{Results: []domain.PostResult{}}

	summary.Reverted = w.revertStale(ctx)

	claimed, skipped, err := w.claimBatch(ctx)
	if err != nil {
		return nil, err
	}
	summary.Results = append(summary.Results, skipped...)

	// A claimed batch always runs to completion.
	jobCtx := context.WithoutCancel(ctx)
	for _, post := range claimed {
		result := w.process(jobCtx, post)
		summary.Results = append(summary.Results, result)
		summary.Processed++
	}

	summary.Purged = w.housekeeping(jobCtx)

	if summary.Processed > 0 || summary.Reverted > 0 {
		w.logger.Info("worker run complete",
			"processed", summary.Processed,
			"skipped", len(skipped),
			"reverted", summary.Reverted,
			"purged", summary.Purged,
			"duration", time.Since(start),
		)
	}
	return summary, nil
}

func (w *Worker) revertStale(ctx context.Context) int64 {
	reverted, err := w.queue.RevertStale(ctx, w.provider, w.now().Add(-w.staleAfter))
	if err != nil {
		metrics.HousekeepingErrorsTotal.WithLabelValues(stepRevertStale).Inc()
		w.logger.Warn("failed to revert stale posts", "error", err)
		return 0
	}
	if reverted > 0 {
		w.logger.Warn("reverted stale processing posts", "count", reverted)
	}
	return reverted
}

// claimBatch lists due posts and claims each. Posts claimed by a concurrent
// run are reported as skipped.
func (w *Worker) claimBatch(ctx context.Context) (claimed []*domain.ScheduledPost, skipped []domain.PostResult, err error) {
	due, err := w.queue.ListDue(ctx, w.provider, w.now(), w.batchSize)
	if err != nil {
		return nil, nil, fmt.Errorf("list due posts: %w", err)
	}

	for _, post := range due {
		ok, err := w.queue.Claim(ctx, post.ID)
		if err != nil {
			w.logger.Error("failed to claim post", "post_id", post.ID, "error", err)
			continue
		}
		if !ok {
			metrics.PostsProcessedTotal.WithLabelValues(metrics.OutcomeClaimConflict).Inc()
			skipped = append(skipped, domain.PostResult{PostID: post.ID, Status: domain.PostStatusProcessing, Skipped: true})
			continue
		}
		post.Status = domain.PostStatusProcessing
		claimed = append(claimed, post)
	}
	return claimed, skipped, nil
}

// process publishes one claimed post and writes its terminal status.
func (w *Worker) process(ctx context.Context, post *domain.ScheduledPost) domain.PostResult {
	logger := w.logger.With("post_id", post.ID, "owner_id", post.OwnerID)

	cred, err := w.credentials.Get(ctx, post.OwnerID, w.provider)
	if errors.Is(err, domain.ErrNotFound) {
		return w.fail(ctx, logger, post, msgNoCredential, metrics.OutcomeNoCredential)
	}
	if err != nil {
		return w.fail(ctx, logger, post, err.Error(), metrics.OutcomeFailed)
	}

	accessToken, err := w.tokens.EnsureValidAccessToken(ctx, cred)
	if errors.Is(err, domain.ErrTokenDecryptFailed) {
		return w.fail(ctx, logger, post, msgReconnectRequired, metrics.OutcomeReconnect)
	}
	if err != nil {
		return w.fail(ctx, logger, post, err.Error(), metrics.OutcomeFailed)
	}

	published, err := w.client.PostContent(ctx, accessToken, domain.ClampText(post.Text), post.MediaIDs())
	if err != nil {
		return w.fail(ctx, logger, post, err.Error(), metrics.OutcomeFailed)
	}

	url := cred.Permalink(published.ID)
	err = w.queue.MarkPosted(ctx, post.ID, driven.PostedResult{
		ProviderPostID:  published.ID,
		ProviderPostURL: url,
		PostedAt:        w.now().UTC(),
	})
	if err != nil {
		// The post is live even though its row could not be updated.
		logger.Error("published but failed to record result", "provider_post_id", published.ID, "error", err)
	}

	metrics.PostsProcessedTotal.WithLabelValues(metrics.OutcomePosted).Inc()
	logger.Info("post published", "provider_post_id", published.ID)
	return domain.PostResult{PostID: post.ID, Status: domain.PostStatusPosted, URL: url}
}

func (w *Worker) fail(ctx context.Context, logger *slog.Logger, post *domain.ScheduledPost, msg, outcome string) domain.PostResult {
	metrics.PostsProcessedTotal.WithLabelValues(outcome).Inc()
	logger.Warn("post failed", "outcome", outcome, "error", msg)

	if err := w.queue.MarkFailed(ctx, post.ID, msg); err != nil {
		logger.Error("failed to record post failure", "error", err)
	}
	return domain.PostResult{PostID: post.ID, Status: domain.PostStatusFailed, Error: msg}
}

// housekeeping purges old terminal posts and expired OAuth sessions.
func (w *Worker) housekeeping(ctx context.Context) int64 {
	purged, err := w.queue.PurgeTerminal(ctx, w.provider, w.now().Add(-w.retention))
	if err != nil {
		metrics.HousekeepingErrorsTotal.WithLabelValues(stepPurgeTerminal).Inc()
		w.logger.Warn("failed to purge terminal posts", "error", err)
		purged = 0
	}

	if w.sessions != nil {
		if _, err := w.sessions.Cleanup(ctx); err != nil {
			metrics.HousekeepingErrorsTotal.WithLabelValues(stepSessionCleanup).Inc()
			w.logger.Warn("failed to clean up oauth sessions", "error", err)
		}
	}
	return purged
}

// Start runs RunOnce every Interval until Stop is called or ctx is cancelled.
// It is just another independent caller of RunOnce.
func (w *Worker) Start(ctx context.Context) error {
	if w.interval <= 0 {
		return fmt.Errorf("worker interval must be positive, got %s", w.interval)
	}

	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	stopCh, doneCh := w.stopCh, w.doneCh
	w.mu.Unlock()

	w.logger.Info("worker loop starting", "interval", w.interval, "batch_size", w.batchSize)

	go w.loop(ctx, stopCh, doneCh)
	return nil
}

func (w *Worker) loop(ctx context.Context, stopCh <-chan struct{}, doneCh chan struct{}) {
	defer close(doneCh)
	// Cleared on every exit so a cancelled loop can be started again.
	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker context cancelled")
			return
		case <-stopCh:
			w.logger.Info("worker stop signal received")
			return
		case <-ticker.C:
			if _, err := w.RunOnce(ctx); err != nil {
				w.logger.Error("worker run failed", "error", err)
			}
		}
	}
}

// Stop gracefully stops the loop and waits for the current run to finish.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running || w.stopCh == nil {
		w.mu.Unlock()
		return
	}
	close(w.stopCh)
	w.stopCh = nil
	doneCh := w.doneCh
	w.mu.Unlock()

	<-doneCh

	w.logger.Info("worker stopped")
}
