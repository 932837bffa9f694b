package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/terraed/backend/internal/domain/cron"
	"github.com/terraed/backend/pkg/xcontext"
	"github.com/urfave/cli/v2"
)

func (s *srv) startCron(cctx *cli.Context) error {
	if err := s.loadVerificationStack(cctx); err != nil {
		return err
	}
	defer s.close()

	cfg := xcontext.Configs(s.ctx)
	cronJobManager := cron.NewCronJobManager()
	cronJobManager.Register(cron.NewPendingSweepCronJob(
		s.submissionRepo, s.orchestrator, cfg.Verification.PendingSweepAfter.Duration))
	cronJobManager.Register(cron.NewReindexCronJob(
		s.orchestrator, cfg.Verification.PendingSweepAfter.Duration, cfg.Verification.ReindexWindow.Duration))
	cronJobManager.Register(cron.NewMonthlyResetCronJob(s.ledger, cfg.Ledger.Location()))

	ctx, stop := signal.NotifyContext(s.ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		cronJobManager.Cancel(s.ctx)
	}()

	cronJobManager.Start(s.ctx)
	return nil
}
