package cron

import (
	"context"
	"time"

	"github.com/terraed/backend/pkg/dateutil"
	"github.com/terraed/backend/pkg/xcontext"
)

type MonthlyResetter interface {
	ResetMonthly(ctx context.Context) error
}

// MonthlyResetCronJob zeroes the monthly points at the start of each month in
// the ledger timezone. Reads do not depend on it, a stale monthly counter is
// ignored until it runs.
type MonthlyResetCronJob struct {
	ledger   MonthlyResetter
	location *time.Location
}

func NewMonthlyResetCronJob(ledger MonthlyResetter, location *time.Location) *MonthlyResetCronJob {
	return &MonthlyResetCronJob{ledger: ledger, location: location}
}

func (job *MonthlyResetCronJob) Do(ctx context.Context) {
	if err := job.ledger.ResetMonthly(ctx); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot reset monthly points: %v", err)
	}
}

func (job *MonthlyResetCronJob) RunNow() bool {
	return true
}

func (job *MonthlyResetCronJob) Next() time.Time {
	return dateutil.NextMonth(time.Now().In(job.location))
}
