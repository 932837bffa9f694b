package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/terraed/backend/config"
	"github.com/terraed/backend/internal/entity"
	"github.com/terraed/backend/pkg/logger"
	"github.com/terraed/backend/pkg/xcontext"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func NewMockConfigs() config.Configs {
	cfg := config.Default()
	cfg.Verification.RetryBackoff = config.Duration{Duration: time.Millisecond}
	cfg.Verification.ClassifyTimeout = config.Duration{Duration: 200 * time.Millisecond}
	return cfg
}

// NewMockContext returns a context holding a fresh in-memory database. Each
// call gets its own database so tests can run in parallel.
func NewMockContext() context.Context {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		panic(err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		panic(err)
	}

	// sqlite only has one writer, a single connection makes every concurrent
	// transaction wait instead of failing with a lock error.
	sqlDB.SetMaxOpenConns(1)

	if err := entity.MigrateTable(db); err != nil {
		panic(err)
	}

	ctx := context.Background()
	ctx = xcontext.WithConfigs(ctx, NewMockConfigs())
	ctx = xcontext.WithLogger(ctx, logger.NewLogger(logger.SILENCE))
	ctx = xcontext.WithDB(ctx, db)

	return ctx
}

func NewMockContextWithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = NewMockContext()
	}

	return xcontext.WithRequestUserID(ctx, userID)
}

// WithConfigs replaces the configs of ctx after applying modify.
func WithConfigs(ctx context.Context, modify func(cfg *config.Configs)) context.Context {
	cfg := xcontext.Configs(ctx)
	modify(&cfg)
	return xcontext.WithConfigs(ctx, cfg)
}
