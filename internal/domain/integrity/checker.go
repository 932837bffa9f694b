package integrity

import (
	"context"

	"github.com/terraed/backend/internal/client"
	"github.com/terraed/backend/internal/entity"
)

const (
	ExifChecker      = "exif"
	GPSChecker       = "gps"
	DuplicateChecker = "duplicate"
	ContentChecker   = "content"
)

type Input struct {
	Submission *entity.Submission
	Quest      *entity.Quest

	// Media is nil for text proofs or if the proof could not be downloaded,
	// MediaErr holds the download error in the latter case.
	Media    *client.Media
	MediaErr error
}

// Evidence is the output of one checker. Valid is the checker verdict, the
// other fields are only filled by the checker they belong to.
type Evidence struct {
	Checker string
	Valid   bool
	Reasons []string

	// Unavailable is true if a capability failed, the evidence is then
	// inconclusive.
	Unavailable bool

	Duplicate           bool
	MatchedSubmissionID string
	Hash                string
	PHashScore          *float64

	Confidence float64
	Labels     []string
	OnTopic    bool
}

func (e *Evidence) addReason(reason string) {
	e.Reasons = append(e.Reasons, reason)
}

// Checker evaluates one integrity aspect of a submission. It must not write
// any shared state. An error means an internal failure, capability failures
// are reported as unavailable evidence instead.
type Checker interface {
	Name() string
	Evaluate(ctx context.Context, in *Input) (*Evidence, error)
}
