package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/terraed/backend/internal/domain/verification"
	"github.com/terraed/backend/pkg/errorx"
	"github.com/terraed/backend/pkg/kafka"
	"github.com/terraed/backend/pkg/pubsub"
	"github.com/terraed/backend/pkg/xcontext"
	"github.com/urfave/cli/v2"
)

func (s *srv) startWorker(cctx *cli.Context) error {
	if err := s.loadVerificationStack(cctx); err != nil {
		return err
	}
	defer s.close()

	cfg := xcontext.Configs(s.ctx).Kafka
	subscriber, err := kafka.NewSubscriber(
		cfg.GroupID,
		strings.Split(cfg.Addr, ","),
		[]string{cfg.VerificationTopic},
		s.handleVerificationRequest,
	)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(s.ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		if err := subscriber.Stop(s.ctx); err != nil {
			xcontext.Logger(s.ctx).Errorf("Cannot stop subscriber: %v", err)
		}
	}()

	xcontext.Logger(s.ctx).Infof("Verification worker started")
	subscriber.Subscribe(ctx)
	xcontext.Logger(s.ctx).Infof("Verification worker stopped")
	return nil
}

func (s *srv) handleVerificationRequest(ctx context.Context, pack *pubsub.Pack, t time.Time) {
	var req verification.Request
	if err := json.Unmarshal(pack.Msg, &req); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot unmarshal verification request: %v", err)
		return
	}

	_, _, err := s.orchestrator.Verify(ctx, req.SubmissionID)
	if err != nil {
		if errorx.Is(err, errorx.InvalidTransition) {
			return
		}

		// The sweep job picks it up later.
		xcontext.Logger(ctx).Warnf("Cannot verify submission %s requested at %s: %v", req.SubmissionID, t, err)
	}
}
