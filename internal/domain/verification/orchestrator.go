package verification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/terraed/backend/internal/client"
	"github.com/terraed/backend/internal/common"
	"github.com/terraed/backend/internal/domain/dupindex"
	"github.com/terraed/backend/internal/domain/integrity"
	"github.com/terraed/backend/internal/domain/ledger"
	"github.com/terraed/backend/internal/entity"
	"github.com/terraed/backend/internal/repository"
	"github.com/terraed/backend/pkg/errorx"
	"github.com/terraed/backend/pkg/pubsub"
	"github.com/terraed/backend/pkg/xcontext"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type Orchestrator struct {
	questRepo      repository.QuestRepository
	submissionRepo repository.SubmissionRepository
	reportRepo     repository.VerificationReportRepository

	fetcher  client.MediaFetcher
	checkers []integrity.Checker
	index    dupindex.Index
	ledger   *ledger.Engine

	// locker guards the duplicate index scopes.
	locker    common.Locker
	publisher pubsub.Publisher
}

// NewOrchestrator creates the verification pipeline. The publisher may be nil
// if no other service listens to submission events.
func NewOrchestrator(
	questRepo repository.QuestRepository,
	submissionRepo repository.SubmissionRepository,
	reportRepo repository.VerificationReportRepository,
	fetcher client.MediaFetcher,
	checkers []integrity.Checker,
	index dupindex.Index,
	ledger *ledger.Engine,
	locker common.Locker,
	publisher pubsub.Publisher,
) *Orchestrator {
	return &Orchestrator{
		questRepo:      questRepo,
		submissionRepo: submissionRepo,
		reportRepo:     reportRepo,
		fetcher:        fetcher,
		checkers:       checkers,
		index:          index,
		ledger:         ledger,
		locker:         locker,
		publisher:      publisher,
	}
}

// Verify runs every checker on a pending submission, writes its report and
// moves it out of pending. It returns InvalidTransition if the submission was
// verified already, even concurrently.
func (o *Orchestrator) Verify(
	ctx context.Context, submissionID string,
) (*entity.Submission, *entity.VerificationReport, error) {
	start := time.Now()
	submission, err := o.submissionRepo.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, errorx.New(errorx.NotFound, "Not found submission")
		}

		return nil, nil, err
	}

	if submission.Status != entity.Pending {
		return nil, nil, errorx.New(errorx.InvalidTransition, "Submission was %s already", submission.Status)
	}

	quest, err := o.questRepo.GetByID(ctx, submission.QuestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, errorx.New(errorx.NotFound, "Not found quest")
		}

		return nil, nil, err
	}

	result, err := o.evaluate(ctx, submission, quest)
	if err != nil {
		return nil, nil, err
	}

	cfg := xcontext.Configs(ctx).Verification
	decision := Decide(result, cfg)

	// A pass is only final once no concurrent submission of the same scope
	// was accepted with the same media. The scope stays locked until the hash
	// is indexed.
	var hash uint64
	var scopeKey string
	indexHash := decision == entity.DecisionPass && result.Hash != ""
	if indexHash {
		hash, err = dupindex.ParseHash(result.Hash)
		if err != nil {
			return nil, nil, err
		}

		scopeKey = dupindex.ScopeKey(dupindex.Scope(cfg.DuplicateScope), submission.QuestID, submission.UserID)
		unlock, err := o.locker.Lock(ctx, common.RedisKeyScopeLock(scopeKey))
		if err != nil {
			return nil, nil, err
		}
		defer unlock()

		match, err := o.index.Nearest(ctx, scopeKey, hash)
		if err != nil {
			return nil, nil, err
		}

		if dupindex.IsDuplicate(ctx, match) {
			score := match.Similarity()
			result.Duplicate = true
			result.MatchedSubmissionID = match.SubmissionID
			result.PHashScore = &score
			result.Reasons = append(result.Reasons,
				fmt.Sprintf("Proof duplicates submission %s", match.SubmissionID))

			decision = Decide(result, cfg)
			indexHash = false
		}
	}

	report := newReport(submission.ID, result, decision)
	transition := repository.SubmissionTransition{Status: decision.Status()}
	if transition.Status.IsAccepted() {
		_, err = o.ledger.Credit(ctx, newCredit(submission, quest),
			func(ctx context.Context, points uint64) error {
				transition.PointsAwarded = points
				return o.transit(ctx, submission.ID, entity.Pending, transition, report)
			})
	} else {
		err = o.transitInTx(ctx, submission.ID, entity.Pending, transition, report)
	}
	if err != nil {
		return nil, nil, err
	}

	if indexHash {
		if err := o.index.Insert(ctx, scopeKey, submission.ID, hash); err != nil {
			common.PromCounters[common.IndexFailureTotal].WithLabelValues("verify").Inc()
			xcontext.Logger(ctx).Errorf("Cannot index hash of accepted submission %s: %v", submission.ID, err)
		}
	}

	common.PromCounters[common.VerificationDecisionTotal].WithLabelValues(string(decision)).Inc()
	common.PromHistograms[common.VerificationDurationSeconds].
		WithLabelValues(string(decision)).Observe(time.Since(start).Seconds())

	submission, err = o.submissionRepo.GetByID(ctx, submission.ID)
	if err != nil {
		return nil, nil, err
	}

	publishEvent(ctx, o.publisher, EventVerified, submission)
	return submission, report, nil
}

// Resolve applies the decision of a reviewer to a submission in review. An
// approved proof is credited and joins the duplicate index unless a
// near-identical proof was accepted meanwhile.
func (o *Orchestrator) Resolve(
	ctx context.Context,
	submissionID string,
	decision entity.SubmissionStatus,
	reviewerID string,
	notes string,
) (*entity.Submission, error) {
	if decision != entity.Approved && decision != entity.Rejected {
		return nil, errorx.New(errorx.BadRequest, "Decision must be approved or rejected")
	}

	if reviewerID == "" {
		return nil, errorx.New(errorx.BadRequest, "Reviewer is required")
	}

	submission, err := o.submissionRepo.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found submission")
		}

		return nil, err
	}

	if submission.UserID == reviewerID {
		return nil, errorx.New(errorx.PermissionDenied, "Cannot review your own submission")
	}

	if !entity.CanTransition(submission.Status, decision) {
		return nil, errorx.New(errorx.InvalidTransition, "Cannot resolve a submission in %s", submission.Status)
	}

	transition := repository.SubmissionTransition{
		Status:      decision,
		ReviewedBy:  reviewerID,
		ReviewNotes: notes,
		ReviewedAt:  time.Now(),
	}

	if decision == entity.Rejected {
		if err := o.transitInTx(ctx, submission.ID, entity.Review, transition, nil); err != nil {
			return nil, err
		}
	} else {
		if err := o.approve(ctx, submission, transition); err != nil {
			return nil, err
		}
	}

	common.PromCounters[common.ReviewResolutionTotal].WithLabelValues(string(decision)).Inc()

	submission, err = o.submissionRepo.GetByID(ctx, submission.ID)
	if err != nil {
		return nil, err
	}

	publishEvent(ctx, o.publisher, EventResolved, submission)
	return submission, nil
}

func (o *Orchestrator) approve(
	ctx context.Context, submission *entity.Submission, transition repository.SubmissionTransition,
) error {
	quest, err := o.questRepo.GetByID(ctx, submission.QuestID)
	if err != nil {
		return err
	}

	report, err := o.reportRepo.GetBySubmissionID(ctx, submission.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	var hash uint64
	var scopeKey string
	indexHash := report != nil && report.MediaHash != ""
	if indexHash {
		hash, err = dupindex.ParseHash(report.MediaHash)
		if err != nil {
			return err
		}

		scope := dupindex.Scope(xcontext.Configs(ctx).Verification.DuplicateScope)
		scopeKey = dupindex.ScopeKey(scope, submission.QuestID, submission.UserID)
		unlock, err := o.locker.Lock(ctx, common.RedisKeyScopeLock(scopeKey))
		if err != nil {
			return err
		}
		defer unlock()

		match, err := o.index.Nearest(ctx, scopeKey, hash)
		if err != nil {
			return err
		}

		// The reviewer has the last word, but the index keeps only the first
		// accepted copy.
		indexHash = !dupindex.IsDuplicate(ctx, match)
	}

	_, err = o.ledger.Credit(ctx, newCredit(submission, quest), func(ctx context.Context, points uint64) error {
		transition.PointsAwarded = points
		return o.transit(ctx, submission.ID, entity.Review, transition, nil)
	})
	if err != nil {
		return err
	}

	if indexHash {
		if err := o.index.Insert(ctx, scopeKey, submission.ID, hash); err != nil {
			common.PromCounters[common.IndexFailureTotal].WithLabelValues("resolve").Inc()
			xcontext.Logger(ctx).Errorf("Cannot index hash of approved submission %s: %v", submission.ID, err)
		}
	}

	return nil
}

// Reindex inserts the missing hashes of submissions accepted since the given
// time, which happens when the insertion after commit failed. It returns the
// number of indexed hashes. An approved proof duplicating an indexed one
// stays out of the index.
func (o *Orchestrator) Reindex(ctx context.Context, since time.Time, limit int) (int, error) {
	reports, err := o.reportRepo.GetUnindexed(ctx, since, limit)
	if err != nil {
		return 0, err
	}

	indexed := 0
	for i := range reports {
		ok, err := o.reindex(ctx, &reports[i])
		if err != nil {
			common.PromCounters[common.IndexFailureTotal].WithLabelValues("reindex").Inc()
			xcontext.Logger(ctx).Warnf("Cannot reindex hash of submission %s: %v", reports[i].SubmissionID, err)
			continue
		}

		if ok {
			indexed++
		}
	}

	return indexed, nil
}

func (o *Orchestrator) reindex(ctx context.Context, report *entity.VerificationReport) (bool, error) {
	submission, err := o.submissionRepo.GetByID(ctx, report.SubmissionID)
	if err != nil {
		return false, err
	}

	hash, err := dupindex.ParseHash(report.MediaHash)
	if err != nil {
		return false, err
	}

	scope := dupindex.Scope(xcontext.Configs(ctx).Verification.DuplicateScope)
	scopeKey := dupindex.ScopeKey(scope, submission.QuestID, submission.UserID)
	unlock, err := o.locker.Lock(ctx, common.RedisKeyScopeLock(scopeKey))
	if err != nil {
		return false, err
	}
	defer unlock()

	match, err := o.index.Nearest(ctx, scopeKey, hash)
	if err != nil {
		return false, err
	}

	if dupindex.IsDuplicate(ctx, match) {
		return false, nil
	}

	if err := o.index.Insert(ctx, scopeKey, submission.ID, hash); err != nil {
		return false, err
	}

	return true, nil
}

// evaluate fetches the proof once and runs every checker on it concurrently.
func (o *Orchestrator) evaluate(
	ctx context.Context, submission *entity.Submission, quest *entity.Quest,
) (*Result, error) {
	in := &integrity.Input{Submission: submission, Quest: quest}
	if ref := submission.MediaRef(); ref != "" {
		in.Media, in.MediaErr = o.fetcher.Fetch(ctx, ref)
		if in.MediaErr != nil {
			common.PromCounters[common.CapabilityFailureTotal].WithLabelValues("media").Inc()
			xcontext.Logger(ctx).Warnf("Cannot fetch media of %s: %v", submission.ID, in.MediaErr)
		}
	}

	evidences := make([]*integrity.Evidence, len(o.checkers))
	g, gctx := errgroup.WithContext(ctx)
	for i, checker := range o.checkers {
		i, checker := i, checker
		g.Go(func() error {
			ev, err := checker.Evaluate(gctx, in)
			if err != nil {
				return fmt.Errorf("%s checker: %w", checker.Name(), err)
			}

			evidences[i] = ev
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return Merge(evidences), nil
}

func (o *Orchestrator) transitInTx(
	ctx context.Context,
	submissionID string,
	from entity.SubmissionStatus,
	transition repository.SubmissionTransition,
	report *entity.VerificationReport,
) error {
	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	if err := o.transit(ctx, submissionID, from, transition, report); err != nil {
		return err
	}

	return xcontext.WithCommitDBTransaction(ctx)
}

// transit is the compare-and-set of the submission status, the report is
// written in the same transaction.
func (o *Orchestrator) transit(
	ctx context.Context,
	submissionID string,
	from entity.SubmissionStatus,
	transition repository.SubmissionTransition,
	report *entity.VerificationReport,
) error {
	if !entity.CanTransition(from, transition.Status) {
		return errorx.New(errorx.InvalidTransition, "Cannot move a submission from %s to %s", from, transition.Status)
	}

	if err := o.submissionRepo.Transit(ctx, submissionID, from, transition); err != nil {
		if errors.Is(err, repository.ErrNotChanged) {
			return errorx.New(errorx.InvalidTransition, "Submission is not %s anymore", from)
		}

		return err
	}

	if report != nil {
		if err := o.reportRepo.Create(ctx, report); err != nil {
			return err
		}
	}

	return nil
}

func newReport(submissionID string, result *Result, decision entity.AutoDecision) *entity.VerificationReport {
	report := &entity.VerificationReport{
		SubmissionID:        submissionID,
		Confidence:          result.Confidence,
		Labels:              result.Labels,
		Reasons:             result.Reasons,
		DuplicateCheck:      result.Duplicate,
		MatchedSubmissionID: result.MatchedSubmissionID,
		MediaHash:           result.Hash,
		ExifValid:           result.ExifValid,
		GpsValid:            result.GpsValid,
		AutoDecision:        decision,
	}

	if result.PHashScore != nil {
		report.PHashScore.Valid = true
		report.PHashScore.Float64 = *result.PHashScore
	}

	return report
}

func newCredit(submission *entity.Submission, quest *entity.Quest) ledger.Credit {
	return ledger.Credit{
		UserID:       submission.UserID,
		SubmissionID: submission.ID,
		QuestID:      quest.ID,
		QuestTitle:   quest.Title,
		BasePoints:   quest.Points,
		Difficulty:   quest.Difficulty,
		ImpactMetric: quest.ImpactMetric,
		ImpactAmount: quest.ImpactAmount,
	}
}
