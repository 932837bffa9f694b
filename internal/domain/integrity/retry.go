package integrity

import (
	"context"
	"errors"
	"time"

	"github.com/terraed/backend/internal/client"
	"github.com/terraed/backend/internal/common"
	"github.com/terraed/backend/pkg/xcontext"
)

// withRetry calls fn up to CapabilityRetries times with exponential backoff.
// Unsupported media is never retried.
func withRetry(ctx context.Context, capability string, fn func(context.Context) error) error {
	cfg := xcontext.Configs(ctx).Verification
	backoff := cfg.RetryBackoff.Duration

	var err error
	for attempt := 1; attempt <= cfg.CapabilityRetries; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}

		common.PromCounters[common.CapabilityFailureTotal].WithLabelValues(capability).Inc()
		if errors.Is(err, client.ErrUnsupportedMedia) {
			return err
		}

		xcontext.Logger(ctx).Warnf("Capability %s failed at attempt %d: %v", capability, attempt, err)
		if attempt == cfg.CapabilityRetries {
			break
		}

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
	}

	return err
}
