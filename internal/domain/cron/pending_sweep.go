package cron

import (
	"context"
	"time"

	"github.com/terraed/backend/internal/entity"
	"github.com/terraed/backend/internal/repository"
	"github.com/terraed/backend/pkg/errorx"
	"github.com/terraed/backend/pkg/xcontext"
)

const sweepBatchSize = 100

type Verifier interface {
	Verify(ctx context.Context, submissionID string) (*entity.Submission, *entity.VerificationReport, error)
}

// PendingSweepCronJob verifies submissions stuck in pending, e.g. after a
// crash in the middle of a verification or a lost kafka message.
type PendingSweepCronJob struct {
	submissionRepo repository.SubmissionRepository
	verifier       Verifier
	interval       time.Duration
}

func NewPendingSweepCronJob(
	submissionRepo repository.SubmissionRepository,
	verifier Verifier,
	interval time.Duration,
) *PendingSweepCronJob {
	return &PendingSweepCronJob{
		submissionRepo: submissionRepo,
		verifier:       verifier,
		interval:       interval,
	}
}

func (job *PendingSweepCronJob) Do(ctx context.Context) {
	before := time.Now().Add(-job.interval)
	submissions, err := job.submissionRepo.GetStalePending(ctx, before, sweepBatchSize)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get stale pending submissions: %v", err)
		return
	}

	for _, s := range submissions {
		_, _, err := job.verifier.Verify(ctx, s.ID)
		if err != nil {
			// Another worker verified it meanwhile.
			if errorx.Is(err, errorx.InvalidTransition) {
				continue
			}

			xcontext.Logger(ctx).Warnf("Cannot verify stale submission %s: %v", s.ID, err)
		}
	}
}

func (job *PendingSweepCronJob) RunNow() bool {
	return true
}

func (job *PendingSweepCronJob) Next() time.Time {
	return time.Now().Add(job.interval)
}
