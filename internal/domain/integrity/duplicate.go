package integrity

import (
	"context"
	"errors"
	"fmt"

	"github.com/terraed/backend/internal/client"
	"github.com/terraed/backend/internal/domain/dupindex"
	"github.com/terraed/backend/pkg/xcontext"
)

type duplicateChecker struct {
	hasher client.Hasher
	index  dupindex.Index
}

// NewDuplicateChecker only reads the index, accepted hashes are inserted by
// the orchestrator after commit.
func NewDuplicateChecker(hasher client.Hasher, index dupindex.Index) *duplicateChecker {
	return &duplicateChecker{hasher: hasher, index: index}
}

func (c *duplicateChecker) Name() string {
	return DuplicateChecker
}

func (c *duplicateChecker) Evaluate(ctx context.Context, in *Input) (*Evidence, error) {
	ev := &Evidence{Checker: DuplicateChecker}
	if in.Media == nil {
		ev.Unavailable = true
		ev.addReason("Proof has no media to compare with prior submissions")
		return ev, nil
	}

	var hash uint64
	err := withRetry(ctx, DuplicateChecker, func(ctx context.Context) error {
		var err error
		hash, err = c.hasher.Hash(ctx, in.Media)
		return err
	})
	if err != nil {
		ev.Unavailable = true
		if errors.Is(err, client.ErrUnsupportedMedia) {
			ev.addReason("Duplicate detection is not supported for this media type")
		} else {
			ev.addReason("Perceptual hash is unavailable")
		}
		return ev, nil
	}

	ev.Hash = dupindex.FormatHash(hash)

	scope := dupindex.Scope(xcontext.Configs(ctx).Verification.DuplicateScope)
	scopeKey := dupindex.ScopeKey(scope, in.Submission.QuestID, in.Submission.UserID)
	match, err := c.index.Nearest(ctx, scopeKey, hash)
	if err != nil {
		return nil, err
	}

	if match != nil {
		score := match.Similarity()
		ev.PHashScore = &score
	}

	if dupindex.IsDuplicate(ctx, match) {
		ev.Duplicate = true
		ev.MatchedSubmissionID = match.SubmissionID
		ev.addReason(fmt.Sprintf("Proof duplicates submission %s", match.SubmissionID))
		return ev, nil
	}

	ev.Valid = true
	return ev, nil
}
