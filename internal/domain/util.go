package domain

import (
	"context"
	"errors"

	"github.com/terraed/backend/pkg/errorx"
	"github.com/terraed/backend/pkg/xcontext"
)

// domainError passes errorx values through to the client and hides the
// others behind errorx.Unknown.
func domainError(ctx context.Context, err error, msg string) error {
	var errx errorx.Error
	if errors.As(err, &errx) {
		return errx
	}

	xcontext.Logger(ctx).Errorf("%s: %v", msg, err)
	return errorx.Unknown
}
