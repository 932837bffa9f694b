package dupindex

import (
	"context"

	"github.com/terraed/backend/internal/entity"
	"github.com/terraed/backend/internal/repository"
	"github.com/terraed/backend/pkg/xcontext"
)

// Above this threshold two near-identical hashes may not share a band, the
// lookup falls back to scanning the whole scope.
const maxBandedThreshold = 3

type Match struct {
	SubmissionID string
	Hash         uint64
	Distance     int
}

func (m *Match) Similarity() float64 {
	return Similarity(m.Distance)
}

type Index interface {
	// Nearest returns the closest indexed hash in scope, or nil if no
	// candidate was found.
	Nearest(ctx context.Context, scopeKey string, hash uint64) (*Match, error)

	// Insert adds the hash of an accepted submission. Callers must hold the
	// scope lock from their last Nearest call until Insert returns.
	Insert(ctx context.Context, scopeKey, submissionID string, hash uint64) error
}

// IsDuplicate reports whether a match is close enough to be a duplicate.
func IsDuplicate(ctx context.Context, match *Match) bool {
	return match != nil && match.Distance <= xcontext.Configs(ctx).Verification.HammingThreshold
}

type index struct {
	mediaHashRepo repository.MediaHashRepository
}

func New(mediaHashRepo repository.MediaHashRepository) *index {
	return &index{mediaHashRepo: mediaHashRepo}
}

func (idx *index) Nearest(ctx context.Context, scopeKey string, hash uint64) (*Match, error) {
	var candidates []entity.MediaHash
	var err error
	if xcontext.Configs(ctx).Verification.HammingThreshold <= maxBandedThreshold {
		candidates, err = idx.mediaHashRepo.GetByAnyBand(ctx, scopeKey, Bands(hash))
	} else {
		candidates, err = idx.mediaHashRepo.GetByScope(ctx, scopeKey)
	}
	if err != nil {
		return nil, err
	}

	var best *Match
	for _, c := range candidates {
		h, err := ParseHash(c.Hash)
		if err != nil {
			xcontext.Logger(ctx).Warnf("Invalid hash %q of submission %s: %v", c.Hash, c.SubmissionID, err)
			continue
		}

		// Candidates are sorted by insertion time, the oldest proof wins ties.
		d := Distance(hash, h)
		if best == nil || d < best.Distance {
			best = &Match{SubmissionID: c.SubmissionID, Hash: h, Distance: d}
		}
	}

	return best, nil
}

func (idx *index) Insert(ctx context.Context, scopeKey, submissionID string, hash uint64) error {
	bands := Bands(hash)
	return idx.mediaHashRepo.Create(ctx, &entity.MediaHash{
		SubmissionID: submissionID,
		Scope:        scopeKey,
		Hash:         FormatHash(hash),
		Band0:        bands[0],
		Band1:        bands[1],
		Band2:        bands[2],
		Band3:        bands[3],
	})
}
