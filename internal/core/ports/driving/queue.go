package driving

import (
	"context"

	"github.com/custodia-labs/sercha-social/internal/core/domain"
)

// QueueRunner executes one worker cycle over the scheduled post queue.
type QueueRunner interface {
	RunOnce(ctx context.Context) (*domain.RunSummary, error)
}
