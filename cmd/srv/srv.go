package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/terraed/backend/config"
	"github.com/terraed/backend/internal/client"
	"github.com/terraed/backend/internal/common"
	"github.com/terraed/backend/internal/domain"
	"github.com/terraed/backend/internal/domain/dupindex"
	"github.com/terraed/backend/internal/domain/integrity"
	"github.com/terraed/backend/internal/domain/ledger"
	"github.com/terraed/backend/internal/domain/verification"
	"github.com/terraed/backend/internal/repository"
	"github.com/terraed/backend/pkg/idutil"
	"github.com/terraed/backend/pkg/kafka"
	"github.com/terraed/backend/pkg/logger"
	"github.com/terraed/backend/pkg/pubsub"
	"github.com/terraed/backend/pkg/router"
	"github.com/terraed/backend/pkg/storage"
	"github.com/terraed/backend/pkg/xcontext"
	"github.com/terraed/backend/pkg/xredis"
	"github.com/urfave/cli/v2"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type srv struct {
	app *cli.App
	ctx context.Context

	redisClient xredis.Client
	locker      common.Locker
	storage     storage.Storage
	publisher   pubsub.Publisher

	questRepo      repository.QuestRepository
	submissionRepo repository.SubmissionRepository
	reportRepo     repository.VerificationReportRepository
	walletRepo     repository.WalletTransactionRepository
	ledgerRepo     repository.UserLedgerRepository
	mediaHashRepo  repository.MediaHashRepository
	userRepo       repository.UserRepository

	ledger       *ledger.Engine
	orchestrator *verification.Orchestrator

	submissionDomain  domain.SubmissionDomain
	walletDomain      domain.WalletDomain
	leaderboardDomain domain.LeaderboardDomain

	router *router.Router
	server *http.Server
}

func (s *srv) loadConfig(cctx *cli.Context) error {
	cfg, err := config.Load(cctx.String("config"))
	if err != nil {
		return err
	}

	s.ctx = xcontext.WithConfigs(cctx.Context, cfg)
	s.ctx = xcontext.WithHTTPClient(s.ctx, &http.Client{Timeout: 30 * time.Second})
	return nil
}

func (s *srv) loadLogger() {
	level := logger.ParseLevel(xcontext.Configs(s.ctx).Log.Level)
	s.ctx = xcontext.WithLogger(s.ctx, logger.NewLogger(level))
}

func (s *srv) newDatabase() (*gorm.DB, error) {
	cfg := xcontext.Configs(s.ctx).Database
	return gorm.Open(mysql.New(mysql.Config{
		DSN:                       cfg.ConnectionString(),
		DefaultStringSize:         256,
		DisableDatetimePrecision:  true,
		DontSupportRenameIndex:    true,
		DontSupportRenameColumn:   true,
		SkipInitializeWithVersion: false,
	}), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
}

func (s *srv) loadDatabase() error {
	db, err := s.newDatabase()
	if err != nil {
		return err
	}

	s.ctx = xcontext.WithDB(s.ctx, db)
	return nil
}

// loadLocker uses redis locks when redis is configured, otherwise locks only
// hold within this process.
func (s *srv) loadLocker() error {
	cfg := xcontext.Configs(s.ctx).Redis
	if cfg.Addr == "" {
		xcontext.Logger(s.ctx).Warnf("Redis is not configured, use in-process locks")
		s.locker = common.NewLocalLocker()
		return nil
	}

	var err error
	s.redisClient, err = xredis.NewClient(s.ctx, cfg.Addr)
	if err != nil {
		return err
	}

	s.locker = common.NewRedisLocker(s.redisClient, cfg.LockTTL.Duration)
	return nil
}

func (s *srv) loadPublisher() error {
	cfg := xcontext.Configs(s.ctx).Kafka
	if cfg.Addr == "" {
		xcontext.Logger(s.ctx).Warnf("Kafka is not configured, submission events are not published")
		return nil
	}

	p, err := kafka.NewPublisher(cfg.ClientID, strings.Split(cfg.Addr, ","))
	if err != nil {
		return err
	}

	s.publisher = p
	return nil
}

func (s *srv) loadStorage() error {
	var err error
	s.storage, err = storage.NewS3Storage(xcontext.Configs(s.ctx).Storage)
	return err
}

func (s *srv) loadRepos() {
	s.questRepo = repository.NewQuestRepository()
	s.submissionRepo = repository.NewSubmissionRepository()
	s.reportRepo = repository.NewVerificationReportRepository()
	s.walletRepo = repository.NewWalletTransactionRepository()
	s.ledgerRepo = repository.NewUserLedgerRepository()
	s.mediaHashRepo = repository.NewMediaHashRepository()
	s.userRepo = repository.NewUserRepository()
}

func (s *srv) loadVerification(cctx *cli.Context) error {
	idGenerator, err := idutil.NewSnowflakeGenerator(cctx.Int64("node"))
	if err != nil {
		return err
	}

	cfg := xcontext.Configs(s.ctx)
	fetcher, err := client.NewMediaFetcher(s.storage, cfg.Verification.MediaCacheSize)
	if err != nil {
		return err
	}

	index := dupindex.New(s.mediaHashRepo)
	checkers := []integrity.Checker{
		integrity.NewExifChecker(client.NewExifExtractor()),
		integrity.NewGPSChecker(),
		integrity.NewDuplicateChecker(client.NewDifferenceHasher(), index),
		integrity.NewContentChecker(client.NewHTTPClassifier(cfg.Classifier)),
	}

	s.ledger = ledger.NewEngine(s.ledgerRepo, s.walletRepo, s.locker, idGenerator)
	s.orchestrator = verification.NewOrchestrator(
		s.questRepo,
		s.submissionRepo,
		s.reportRepo,
		fetcher,
		checkers,
		index,
		s.ledger,
		s.locker,
		s.publisher,
	)

	return nil
}

func (s *srv) loadDomains() {
	s.submissionDomain = domain.NewSubmissionDomain(
		s.questRepo, s.submissionRepo, s.reportRepo, s.userRepo, s.orchestrator, s.publisher)
	s.walletDomain = domain.NewWalletDomain(s.walletRepo, s.userRepo, s.ledger)
	s.leaderboardDomain = domain.NewLeaderboardDomain(s.ledgerRepo, s.ledger)
}

// loadVerificationStack loads everything a process verifying submissions
// needs.
func (s *srv) loadVerificationStack(cctx *cli.Context) error {
	if err := s.loadConfig(cctx); err != nil {
		return err
	}

	s.loadLogger()

	loaders := []func() error{
		s.loadDatabase,
		s.loadLocker,
		s.loadPublisher,
		s.loadStorage,
	}
	for _, load := range loaders {
		if err := load(); err != nil {
			return err
		}
	}

	s.loadRepos()
	return s.loadVerification(cctx)
}

func (s *srv) close() {
	if s.publisher != nil {
		if stopper, ok := s.publisher.(interface{ Stop(context.Context) error }); ok {
			if err := stopper.Stop(s.ctx); err != nil {
				xcontext.Logger(s.ctx).Warnf("Cannot stop publisher: %v", err)
			}
		}
	}

	if db := xcontext.DB(s.ctx); db != nil {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}
}
