package verification

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/terraed/backend/internal/client"
	"github.com/terraed/backend/internal/common"
	"github.com/terraed/backend/internal/domain/dupindex"
	"github.com/terraed/backend/internal/domain/integrity"
	"github.com/terraed/backend/internal/domain/ledger"
	"github.com/terraed/backend/internal/entity"
	"github.com/terraed/backend/internal/repository"
	"github.com/terraed/backend/pkg/errorx"
	"github.com/terraed/backend/pkg/idutil"
	"github.com/terraed/backend/pkg/testutil"
	"github.com/terraed/backend/pkg/xcontext"
)

const (
	treeHash  = uint64(0x0f0f_f0f0_3c3c_c3c3)
	otherHash = uint64(0xa5a5_5a5a_1234_8765)
)

type suite struct {
	orchestrator *Orchestrator
	ledger       *ledger.Engine
	publisher    *testutil.RecordPublisher
	reportRepo   repository.VerificationReportRepository
}

func newSuite(t *testing.T, classifier client.Classifier, hashes map[string]uint64) *suite {
	g, err := idutil.NewSnowflakeGenerator(1)
	require.NoError(t, err)

	index := dupindex.New(repository.NewMediaHashRepository())
	engine := ledger.NewEngine(
		repository.NewUserLedgerRepository(),
		repository.NewWalletTransactionRepository(),
		common.NewLocalLocker(),
		g,
	)

	checkers := []integrity.Checker{
		integrity.NewExifChecker(testutil.NewCapturedAt(time.Now().Add(-time.Hour))),
		integrity.NewGPSChecker(),
		integrity.NewDuplicateChecker(testutil.NewMapHasher(hashes), index),
		integrity.NewContentChecker(classifier),
	}

	s := &suite{
		ledger:     engine,
		publisher:  testutil.NewRecordPublisher(),
		reportRepo: repository.NewVerificationReportRepository(),
	}

	s.orchestrator = NewOrchestrator(
		repository.NewQuestRepository(),
		repository.NewSubmissionRepository(),
		s.reportRepo,
		&testutil.MockMediaFetcher{},
		checkers,
		index,
		engine,
		common.NewLocalLocker(),
		s.publisher,
	)

	return s
}

// flakyIndex fails insertions while failInsert is set.
type flakyIndex struct {
	dupindex.Index
	failInsert bool
}

func (f *flakyIndex) Insert(ctx context.Context, scopeKey, submissionID string, hash uint64) error {
	if f.failInsert {
		return errors.New("connection reset")
	}

	return f.Index.Insert(ctx, scopeKey, submissionID, hash)
}

func createSubmission(
	t *testing.T, ctx context.Context, id string, quest *entity.Quest, userID, imageURL string,
) *entity.Submission {
	submission := &entity.Submission{
		Base:        entity.Base{ID: id},
		QuestID:     quest.ID,
		UserID:      userID,
		ProofKind:   entity.ProofPhoto,
		ImageURL:    imageURL,
		Status:      entity.Pending,
		SubmittedAt: time.Now(),
	}
	require.NoError(t, repository.NewSubmissionRepository().Create(ctx, submission))
	return submission
}

func createSubmissionAt(
	t *testing.T, ctx context.Context, id string, quest *entity.Quest, userID string, lat, lng float64,
) *entity.Submission {
	submission := &entity.Submission{
		Base:        entity.Base{ID: id},
		QuestID:     quest.ID,
		UserID:      userID,
		ProofKind:   entity.ProofPhoto,
		ImageURL:    "https://cdn/" + id + ".jpg",
		Latitude:    sql.NullFloat64{Valid: true, Float64: lat},
		Longitude:   sql.NullFloat64{Valid: true, Float64: lng},
		Status:      entity.Pending,
		SubmittedAt: time.Now(),
	}
	require.NoError(t, repository.NewSubmissionRepository().Create(ctx, submission))
	return submission
}

func TestOrchestrator_AutoPass(t *testing.T) {
	ctx := testutil.NewMockContext()
	testutil.CreateFixtureDb(ctx)
	s := newSuite(t, testutil.NewStaticClassifier(0.95, "tree", "grass"),
		map[string]uint64{"https://cdn/s1.jpg": treeHash})

	createSubmission(t, ctx, "s1", testutil.Quest1, testutil.User1, "https://cdn/s1.jpg")

	submission, report, err := s.orchestrator.Verify(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, entity.AutoPass, submission.Status)
	require.Equal(t, uint64(50), submission.PointsAwarded)
	require.Equal(t, entity.DecisionPass, report.AutoDecision)
	require.True(t, report.ExifValid)
	require.True(t, report.GpsValid)
	require.False(t, report.DuplicateCheck)
	require.Equal(t, dupindex.FormatHash(treeHash), report.MediaHash)

	stored, err := s.reportRepo.GetBySubmissionID(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, entity.DecisionPass, stored.AutoDecision)

	userLedger, err := s.ledger.Snapshot(ctx, testutil.User1)
	require.NoError(t, err)
	require.Equal(t, int64(50), userLedger.Points)
	require.Equal(t, 1, userLedger.Streak)

	topic := xcontext.Configs(ctx).Kafka.SubmissionEventsTopic
	require.Equal(t, 1, s.publisher.Count(topic))

	var event Event
	require.NoError(t, json.Unmarshal(s.publisher.Packs[topic][0].Msg, &event))
	require.Equal(t, EventVerified, event.Type)
	require.Equal(t, "s1", event.SubmissionID)
	require.Equal(t, string(entity.AutoPass), event.Status)
	require.Equal(t, uint64(50), event.PointsAwarded)

	// A submission leaves pending only once.
	_, _, err = s.orchestrator.Verify(ctx, "s1")
	require.True(t, errorx.Is(err, errorx.InvalidTransition))

	userLedger, err = s.ledger.Snapshot(ctx, testutil.User1)
	require.NoError(t, err)
	require.Equal(t, int64(50), userLedger.Points)
}

func TestOrchestrator_NotFound(t *testing.T) {
	ctx := testutil.NewMockContext()
	testutil.CreateFixtureDb(ctx)
	s := newSuite(t, testutil.NewStaticClassifier(0.95, "tree"), nil)

	_, _, err := s.orchestrator.Verify(ctx, "unknown")
	require.True(t, errorx.Is(err, errorx.NotFound))
}

func TestOrchestrator_LocationTooFar(t *testing.T) {
	ctx := testutil.NewMockContext()
	testutil.CreateFixtureDb(ctx)
	s := newSuite(t, testutil.NewStaticClassifier(0.95, "litter"),
		map[string]uint64{"https://cdn/s1.jpg": treeHash})

	// About 600m north of the park.
	park := testutil.QuestPark
	createSubmissionAt(t, ctx, "s1", park, testutil.User1, park.LocationLat.Float64+0.0054, park.LocationLng.Float64)

	submission, report, err := s.orchestrator.Verify(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, entity.Review, submission.Status)
	require.Equal(t, uint64(0), submission.PointsAwarded)
	require.False(t, report.GpsValid)
	require.True(t, report.ExifValid)
	require.Equal(t, entity.DecisionReview, report.AutoDecision)
	require.NotEmpty(t, report.Reasons)

	userLedger, err := s.ledger.Snapshot(ctx, testutil.User1)
	require.NoError(t, err)
	require.Equal(t, int64(0), userLedger.Points)
}

func TestOrchestrator_Duplicate(t *testing.T) {
	ctx := testutil.NewMockContext()
	testutil.CreateFixtureDb(ctx)
	s := newSuite(t, testutil.NewStaticClassifier(0.95, "tree"), map[string]uint64{
		"https://cdn/s1.jpg": treeHash,
		"https://cdn/s2.jpg": treeHash ^ 0x1,
		"https://cdn/s3.jpg": otherHash,
	})

	createSubmission(t, ctx, "s1", testutil.Quest1, testutil.User1, "https://cdn/s1.jpg")
	createSubmission(t, ctx, "s2", testutil.Quest1, testutil.User1, "https://cdn/s2.jpg")
	createSubmission(t, ctx, "s3", testutil.Quest1, testutil.User1, "https://cdn/s3.jpg")

	submission, _, err := s.orchestrator.Verify(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, entity.AutoPass, submission.Status)

	submission, report, err := s.orchestrator.Verify(ctx, "s2")
	require.NoError(t, err)
	require.Equal(t, entity.Rejected, submission.Status)
	require.Equal(t, entity.DecisionReject, report.AutoDecision)
	require.True(t, report.DuplicateCheck)
	require.Equal(t, "s1", report.MatchedSubmissionID)
	require.True(t, report.PHashScore.Valid)
	require.InDelta(t, dupindex.Similarity(1), report.PHashScore.Float64, 1e-9)

	// A different photo of the same quest is still accepted.
	submission, _, err = s.orchestrator.Verify(ctx, "s3")
	require.NoError(t, err)
	require.Equal(t, entity.AutoPass, submission.Status)

	userLedger, err := s.ledger.Snapshot(ctx, testutil.User1)
	require.NoError(t, err)
	require.Equal(t, int64(100), userLedger.Points)
}

func TestOrchestrator_ConcurrentDuplicates(t *testing.T) {
	ctx := testutil.NewMockContext()
	testutil.CreateFixtureDb(ctx)

	hashes := map[string]uint64{}
	ids := []string{"s1", "s2", "s3", "s4"}
	for _, id := range ids {
		hashes["https://cdn/"+id+".jpg"] = treeHash
		createSubmission(t, ctx, id, testutil.Quest1, testutil.User1, "https://cdn/"+id+".jpg")
	}

	s := newSuite(t, testutil.NewStaticClassifier(0.95, "tree"), hashes)

	statuses := make([]entity.SubmissionStatus, len(ids))
	wg := sync.WaitGroup{}
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			submission, _, err := s.orchestrator.Verify(ctx, id)
			require.NoError(t, err)
			statuses[i] = submission.Status
		}(i, id)
	}
	wg.Wait()

	accepted := 0
	for _, status := range statuses {
		if status == entity.AutoPass {
			accepted++
		} else {
			require.Equal(t, entity.Rejected, status)
		}
	}
	require.Equal(t, 1, accepted)

	userLedger, err := s.ledger.Snapshot(ctx, testutil.User1)
	require.NoError(t, err)
	require.Equal(t, int64(50), userLedger.Points)
}

func TestOrchestrator_ConcurrentVerify(t *testing.T) {
	ctx := testutil.NewMockContext()
	testutil.CreateFixtureDb(ctx)
	s := newSuite(t, testutil.NewStaticClassifier(0.95, "tree"),
		map[string]uint64{"https://cdn/s1.jpg": treeHash})
	createSubmission(t, ctx, "s1", testutil.Quest1, testutil.User1, "https://cdn/s1.jpg")

	errs := make([]error, 3)
	wg := sync.WaitGroup{}
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = s.orchestrator.Verify(ctx, "s1")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			require.True(t, errorx.Is(err, errorx.InvalidTransition), err.Error())
		}
	}
	require.Equal(t, 1, succeeded)

	userLedger, err := s.ledger.Snapshot(ctx, testutil.User1)
	require.NoError(t, err)
	require.Equal(t, int64(50), userLedger.Points)
}

func TestOrchestrator_ClassifierTimeout(t *testing.T) {
	ctx := testutil.NewMockContext()
	testutil.CreateFixtureDb(ctx)
	classifier := &testutil.MockClassifier{
		ClassifyFunc: func(ctx context.Context, _ *client.Media, _ []string) (*client.Classification, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	s := newSuite(t, classifier, map[string]uint64{"https://cdn/s1.jpg": treeHash})
	createSubmission(t, ctx, "s1", testutil.Quest1, testutil.User1, "https://cdn/s1.jpg")

	submission, report, err := s.orchestrator.Verify(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, entity.Review, submission.Status)
	require.Equal(t, entity.DecisionReview, report.AutoDecision)
	require.Zero(t, report.Confidence)
}

func TestOrchestrator_LowConfidence(t *testing.T) {
	ctx := testutil.NewMockContext()
	testutil.CreateFixtureDb(ctx)
	s := newSuite(t, testutil.NewStaticClassifier(0.1, "car"),
		map[string]uint64{"https://cdn/s1.jpg": treeHash})
	createSubmission(t, ctx, "s1", testutil.Quest1, testutil.User1, "https://cdn/s1.jpg")

	submission, report, err := s.orchestrator.Verify(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, entity.Rejected, submission.Status)
	require.Equal(t, entity.DecisionReject, report.AutoDecision)

	// A rejected proof does not enter the index.
	match, err := dupindex.New(repository.NewMediaHashRepository()).
		Nearest(ctx, dupindex.ScopeKey(dupindex.ScopeQuestUser, testutil.Quest1.ID, testutil.User1), treeHash)
	require.NoError(t, err)
	require.Nil(t, match)
}

func TestOrchestrator_TextProof(t *testing.T) {
	ctx := testutil.NewMockContext()
	testutil.CreateFixtureDb(ctx)
	s := newSuite(t, testutil.NewStaticClassifier(0.95, "water"), nil)

	submission := &entity.Submission{
		Base:        entity.Base{ID: "s1"},
		QuestID:     testutil.QuestText.ID,
		UserID:      testutil.User1,
		ProofKind:   entity.ProofText,
		Caption:     "I fixed the leaking tap in our kitchen",
		Status:      entity.Pending,
		SubmittedAt: time.Now(),
	}
	require.NoError(t, repository.NewSubmissionRepository().Create(ctx, submission))

	submission, report, err := s.orchestrator.Verify(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, entity.Review, submission.Status)
	require.Equal(t, entity.DecisionReview, report.AutoDecision)
	require.Empty(t, report.MediaHash)
}

func TestOrchestrator_Resolve(t *testing.T) {
	ctx := testutil.NewMockContext()
	testutil.CreateFixtureDb(ctx)
	park := testutil.QuestPark
	s := newSuite(t, testutil.NewStaticClassifier(0.95, "litter"), map[string]uint64{
		"https://cdn/s1.jpg": treeHash,
		"https://cdn/s2.jpg": otherHash,
		"https://cdn/s3.jpg": treeHash,
	})

	far := park.LocationLat.Float64 + 0.0054
	createSubmissionAt(t, ctx, "s1", park, testutil.User1, far, park.LocationLng.Float64)
	createSubmissionAt(t, ctx, "s2", park, testutil.User1, far, park.LocationLng.Float64)
	for _, id := range []string{"s1", "s2"} {
		submission, _, err := s.orchestrator.Verify(ctx, id)
		require.NoError(t, err)
		require.Equal(t, entity.Review, submission.Status)
	}

	_, err := s.orchestrator.Resolve(ctx, "s1", entity.AutoPass, testutil.Reviewer, "")
	require.True(t, errorx.Is(err, errorx.BadRequest))

	_, err = s.orchestrator.Resolve(ctx, "s1", entity.Approved, testutil.User1, "")
	require.True(t, errorx.Is(err, errorx.PermissionDenied))

	submission, err := s.orchestrator.Resolve(ctx, "s1", entity.Approved, testutil.Reviewer, "Photo is from the park gate")
	require.NoError(t, err)
	require.Equal(t, entity.Approved, submission.Status)
	require.Equal(t, uint64(100), submission.PointsAwarded)
	require.Equal(t, testutil.Reviewer, submission.ReviewedBy.String)
	require.Equal(t, "Photo is from the park gate", submission.ReviewNotes)
	require.True(t, submission.ReviewedAt.Valid)

	_, err = s.orchestrator.Resolve(ctx, "s1", entity.Rejected, testutil.Reviewer, "")
	require.True(t, errorx.Is(err, errorx.InvalidTransition))

	submission, err = s.orchestrator.Resolve(ctx, "s2", entity.Rejected, testutil.Reviewer, "Not a park")
	require.NoError(t, err)
	require.Equal(t, entity.Rejected, submission.Status)
	require.Equal(t, uint64(0), submission.PointsAwarded)

	userLedger, err := s.ledger.Snapshot(ctx, testutil.User1)
	require.NoError(t, err)
	require.Equal(t, int64(100), userLedger.Points)
	require.Equal(t, int64(1), userLedger.QuestsCompleted)

	topic := xcontext.Configs(ctx).Kafka.SubmissionEventsTopic
	require.Equal(t, 4, s.publisher.Count(topic))

	// The approved proof joined the index.
	createSubmissionAt(t, ctx, "s3", park, testutil.User1, park.LocationLat.Float64, park.LocationLng.Float64)
	submission, report, err := s.orchestrator.Verify(ctx, "s3")
	require.NoError(t, err)
	require.Equal(t, entity.Rejected, submission.Status)
	require.Equal(t, "s1", report.MatchedSubmissionID)
}

func TestOrchestrator_ReindexAfterFailedInsert(t *testing.T) {
	ctx := testutil.NewMockContext()
	testutil.CreateFixtureDb(ctx)
	s := newSuite(t, testutil.NewStaticClassifier(0.95, "tree"), map[string]uint64{
		"https://cdn/s1.jpg": treeHash,
		"https://cdn/s2.jpg": treeHash,
	})

	index := &flakyIndex{Index: s.orchestrator.index, failInsert: true}
	s.orchestrator.index = index

	createSubmission(t, ctx, "s1", testutil.Quest1, testutil.User1, "https://cdn/s1.jpg")
	submission, _, err := s.orchestrator.Verify(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, entity.AutoPass, submission.Status)

	since := time.Now().Add(-time.Hour)
	missing, err := s.reportRepo.GetUnindexed(ctx, since, 10)
	require.NoError(t, err)
	require.Len(t, missing, 1)
	require.Equal(t, "s1", missing[0].SubmissionID)

	// Still failing, nothing is indexed and the job will try again.
	indexed, err := s.orchestrator.Reindex(ctx, since, 10)
	require.NoError(t, err)
	require.Zero(t, indexed)

	index.failInsert = false
	indexed, err = s.orchestrator.Reindex(ctx, since, 10)
	require.NoError(t, err)
	require.Equal(t, 1, indexed)

	missing, err = s.reportRepo.GetUnindexed(ctx, since, 10)
	require.NoError(t, err)
	require.Empty(t, missing)

	// The same photo is caught again.
	createSubmission(t, ctx, "s2", testutil.Quest1, testutil.User1, "https://cdn/s2.jpg")
	submission, report, err := s.orchestrator.Verify(ctx, "s2")
	require.NoError(t, err)
	require.Equal(t, entity.Rejected, submission.Status)
	require.Equal(t, "s1", report.MatchedSubmissionID)
}
