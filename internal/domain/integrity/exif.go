package integrity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/terraed/backend/internal/client"
	"github.com/terraed/backend/pkg/xcontext"
)

type exifChecker struct {
	extractor client.MetadataExtractor
}

// NewExifChecker fails closed: a proof without readable capture metadata is
// invalid.
func NewExifChecker(extractor client.MetadataExtractor) *exifChecker {
	return &exifChecker{extractor: extractor}
}

func (c *exifChecker) Name() string {
	return ExifChecker
}

func (c *exifChecker) Evaluate(ctx context.Context, in *Input) (*Evidence, error) {
	ev := &Evidence{Checker: ExifChecker}
	if in.Media == nil {
		if in.MediaErr != nil {
			ev.addReason("Proof media could not be downloaded")
		} else {
			ev.addReason("Proof has no media to read capture metadata from")
		}
		return ev, nil
	}

	metadata, err := c.extractor.Extract(ctx, in.Media)
	if err != nil {
		switch {
		case errors.Is(err, client.ErrUnsupportedMedia):
			ev.addReason("Capture metadata cannot be read from this media type")
		case errors.Is(err, client.ErrNoMetadata):
			ev.addReason("Proof has no capture metadata")
		default:
			xcontext.Logger(ctx).Warnf("Cannot extract metadata of %s: %v", in.Submission.ID, err)
			ev.addReason("Capture metadata is unreadable")
		}
		return ev, nil
	}

	cfg := xcontext.Configs(ctx).Verification
	submittedAt := in.Submission.SubmittedAt
	earliest := submittedAt.Add(-cfg.CaptureWindow.Duration)
	latest := submittedAt.Add(cfg.ClockSkew.Duration)

	switch {
	case metadata.CaptureTime.Before(earliest):
		ev.addReason(fmt.Sprintf("Proof was captured %s before submission, more than the allowed %s",
			roundDuration(submittedAt.Sub(metadata.CaptureTime)), cfg.CaptureWindow.Duration))
	case metadata.CaptureTime.After(latest):
		ev.addReason("Proof capture time is later than its submission")
	case in.Quest.IsExpired(metadata.CaptureTime):
		ev.addReason("Proof was captured after the quest expired")
	default:
		ev.Valid = true
	}

	return ev, nil
}

func roundDuration(d time.Duration) time.Duration {
	return d.Round(time.Minute)
}
