package cron

import (
	"context"
	"time"

	"github.com/terraed/backend/pkg/xcontext"
)

const reindexBatchSize = 100

type Reindexer interface {
	Reindex(ctx context.Context, since time.Time, limit int) (int, error)
}

// ReindexCronJob puts back into the duplicate index the hashes of accepted
// submissions whose insertion failed after the ledger commit.
type ReindexCronJob struct {
	reindexer Reindexer
	interval  time.Duration
	window    time.Duration
}

func NewReindexCronJob(reindexer Reindexer, interval, window time.Duration) *ReindexCronJob {
	return &ReindexCronJob{reindexer: reindexer, interval: interval, window: window}
}

func (job *ReindexCronJob) Do(ctx context.Context) {
	indexed, err := job.reindexer.Reindex(ctx, time.Now().Add(-job.window), reindexBatchSize)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot reindex accepted submissions: %v", err)
		return
	}

	if indexed > 0 {
		xcontext.Logger(ctx).Warnf("Reindexed %d accepted submissions", indexed)
	}
}

func (job *ReindexCronJob) RunNow() bool {
	return true
}

func (job *ReindexCronJob) Next() time.Time {
	return time.Now().Add(job.interval)
}
