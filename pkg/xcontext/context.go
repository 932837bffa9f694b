package xcontext

import (
	"context"
	"net/http"
	"time"

	"github.com/terraed/backend/config"
	"github.com/terraed/backend/pkg/logger"
	"gorm.io/gorm"
)

type (
	loggerKey        struct{}
	configsKey       struct{}
	dbKey            struct{}
	dbTransactionKey struct{}
	userIDKey        struct{}
	httpClientKey    struct{}
	httpRequestKey   struct{}
	errorKey         struct{}
	startTimeKey     struct{}
)

func WithLogger(ctx context.Context, logger logger.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

func Logger(ctx context.Context) logger.Logger {
	l := ctx.Value(loggerKey{})
	if l == nil {
		return logger.NewLogger(logger.SILENCE)
	}

	return l.(logger.Logger)
}

func WithConfigs(ctx context.Context, cfg config.Configs) context.Context {
	return context.WithValue(ctx, configsKey{}, cfg)
}

func Configs(ctx context.Context) config.Configs {
	cfg := ctx.Value(configsKey{})
	if cfg == nil {
		return config.Default()
	}

	return cfg.(config.Configs)
}

func WithDB(ctx context.Context, db *gorm.DB) context.Context {
	return context.WithValue(ctx, dbKey{}, db)
}

// DB returns the current transaction if any, otherwise the root database.
func DB(ctx context.Context) *gorm.DB {
	if tx := ctx.Value(dbTransactionKey{}); tx != nil {
		return tx.(*gorm.DB).WithContext(ctx)
	}

	db := ctx.Value(dbKey{})
	if db == nil {
		return nil
	}

	return db.(*gorm.DB).WithContext(ctx)
}

// WithDBTransaction begins a transaction, every repository call using the
// returned context runs inside it.
func WithDBTransaction(ctx context.Context) context.Context {
	tx := ctx.Value(dbTransactionKey{})
	if tx != nil {
		// Nested transactions are flattened into the outer one.
		return ctx
	}

	return context.WithValue(ctx, dbTransactionKey{}, ctx.Value(dbKey{}).(*gorm.DB).Begin())
}

func WithCommitDBTransaction(ctx context.Context) error {
	tx := ctx.Value(dbTransactionKey{})
	if tx == nil {
		return nil
	}

	return tx.(*gorm.DB).Commit().Error
}

// WithRollbackDBTransaction is safe to call after a commit, it is meant to be
// deferred right after WithDBTransaction.
func WithRollbackDBTransaction(ctx context.Context) {
	tx := ctx.Value(dbTransactionKey{})
	if tx == nil {
		return
	}

	tx.(*gorm.DB).Rollback()
}

func WithRequestUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

func RequestUserID(ctx context.Context) string {
	id := ctx.Value(userIDKey{})
	if id == nil {
		return ""
	}

	return id.(string)
}

func WithHTTPClient(ctx context.Context, client *http.Client) context.Context {
	return context.WithValue(ctx, httpClientKey{}, client)
}

func HTTPClient(ctx context.Context) *http.Client {
	client := ctx.Value(httpClientKey{})
	if client == nil {
		return http.DefaultClient
	}

	return client.(*http.Client)
}

func WithHTTPRequest(ctx context.Context, req *http.Request) context.Context {
	return context.WithValue(ctx, httpRequestKey{}, req)
}

func HTTPRequest(ctx context.Context) *http.Request {
	req := ctx.Value(httpRequestKey{})
	if req == nil {
		return nil
	}

	return req.(*http.Request)
}

func WithError(ctx context.Context, err error) context.Context {
	return context.WithValue(ctx, errorKey{}, err)
}

func Error(ctx context.Context) error {
	err := ctx.Value(errorKey{})
	if err == nil {
		return nil
	}

	return err.(error)
}

func WithStartTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, startTimeKey{}, t)
}

func StartTime(ctx context.Context) time.Time {
	t := ctx.Value(startTimeKey{})
	if t == nil {
		return time.Time{}
	}

	return t.(time.Time)
}
