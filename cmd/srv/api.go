package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"
	"github.com/terraed/backend/internal/middleware"
	"github.com/terraed/backend/pkg/prometheus"
	"github.com/terraed/backend/pkg/router"
	"github.com/terraed/backend/pkg/xcontext"
	"github.com/urfave/cli/v2"
)

func (s *srv) startApi(cctx *cli.Context) error {
	if err := s.loadVerificationStack(cctx); err != nil {
		return err
	}
	defer s.close()

	s.loadDomains()
	s.loadRouter()

	cfg := xcontext.Configs(s.ctx).ApiServer
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Handler:           corsHandler.Handler(s.router.Handler()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(s.ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			xcontext.Logger(s.ctx).Errorf("Cannot shutdown server: %v", err)
		}
	}()

	xcontext.Logger(s.ctx).Infof("Starting server on %s", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	xcontext.Logger(s.ctx).Infof("Server stopped")
	return nil
}

func (s *srv) loadRouter() {
	s.router = router.New(s.ctx)
	s.router.Before(middleware.WithStartTime())
	s.router.Before(middleware.WithUserID())
	s.router.After(middleware.Logger())
	s.router.After(middleware.Prometheus())

	s.router.Handle(http.MethodGet, "/metrics", prometheus.NewHandler())

	// These following APIs need the gateway to forward the caller id.
	authRouter := s.router.Branch()
	authRouter.Before(middleware.Authenticate())
	{
		router.POST(authRouter, "/submitProof", s.submissionDomain.SubmitProof)
		router.GET(authRouter, "/getSubmission", s.submissionDomain.GetSubmission)
		router.GET(authRouter, "/getVerificationReport", s.submissionDomain.GetVerificationReport)
		router.GET(authRouter, "/getWallet", s.walletDomain.GetWallet)

		// Reviewer and partner service API
		router.GET(authRouter, "/getPendingReviews", s.submissionDomain.GetPendingReviews)
		router.POST(authRouter, "/resolveReview", s.submissionDomain.ResolveReview)
		router.POST(authRouter, "/appendTransaction", s.walletDomain.AppendTransaction)
	}

	// Public API.
	router.GET(s.router, "/getLeaderboard", s.leaderboardDomain.GetLeaderboard)
}
