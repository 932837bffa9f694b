package middleware

import (
	"context"

	"github.com/terraed/backend/pkg/errorx"
	"github.com/terraed/backend/pkg/router"
	"github.com/terraed/backend/pkg/xcontext"
)

// UserIDHeader is set by the gateway after it authenticated the caller.
const UserIDHeader = "X-User-ID"

func WithUserID() router.MiddlewareFunc {
	return func(ctx context.Context) (context.Context, error) {
		req := xcontext.HTTPRequest(ctx)
		if req == nil {
			return ctx, nil
		}

		if userID := req.Header.Get(UserIDHeader); userID != "" {
			ctx = xcontext.WithRequestUserID(ctx, userID)
		}

		return ctx, nil
	}
}

func Authenticate() router.MiddlewareFunc {
	return func(ctx context.Context) (context.Context, error) {
		if xcontext.RequestUserID(ctx) == "" {
			return nil, errorx.New(errorx.Unauthenticated, "You need to authenticate before")
		}

		return ctx, nil
	}
}
