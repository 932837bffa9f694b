package domain

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/terraed/backend/config"
	"github.com/terraed/backend/internal/common"
	"github.com/terraed/backend/internal/domain/dupindex"
	"github.com/terraed/backend/internal/domain/integrity"
	"github.com/terraed/backend/internal/domain/leaderboard"
	"github.com/terraed/backend/internal/domain/ledger"
	"github.com/terraed/backend/internal/domain/verification"
	"github.com/terraed/backend/internal/entity"
	"github.com/terraed/backend/internal/model"
	"github.com/terraed/backend/internal/repository"
	"github.com/terraed/backend/pkg/errorx"
	"github.com/terraed/backend/pkg/idutil"
	"github.com/terraed/backend/pkg/testutil"
	"github.com/terraed/backend/pkg/xcontext"
)

type mockVerifier struct {
	VerifyFunc  func(context.Context, string) (*entity.Submission, *entity.VerificationReport, error)
	ResolveFunc func(context.Context, string, entity.SubmissionStatus, string, string) (*entity.Submission, error)
}

func (m *mockVerifier) Verify(
	ctx context.Context, submissionID string,
) (*entity.Submission, *entity.VerificationReport, error) {
	return m.VerifyFunc(ctx, submissionID)
}

func (m *mockVerifier) Resolve(
	ctx context.Context, submissionID string, decision entity.SubmissionStatus, reviewerID, notes string,
) (*entity.Submission, error) {
	return m.ResolveFunc(ctx, submissionID, decision, reviewerID, notes)
}

func newLedgerEngine(t *testing.T) *ledger.Engine {
	g, err := idutil.NewSnowflakeGenerator(1)
	require.NoError(t, err)

	return ledger.NewEngine(
		repository.NewUserLedgerRepository(),
		repository.NewWalletTransactionRepository(),
		common.NewLocalLocker(),
		g,
	)
}

// newOrchestrator classifies every proof as a tree with high confidence and
// hashes each media url to hashes[url].
func newOrchestrator(t *testing.T, engine *ledger.Engine, hashes map[string]uint64) *verification.Orchestrator {
	index := dupindex.New(repository.NewMediaHashRepository())
	return verification.NewOrchestrator(
		repository.NewQuestRepository(),
		repository.NewSubmissionRepository(),
		repository.NewVerificationReportRepository(),
		&testutil.MockMediaFetcher{},
		[]integrity.Checker{
			integrity.NewExifChecker(testutil.NewCapturedAt(time.Now().Add(-time.Minute))),
			integrity.NewGPSChecker(),
			integrity.NewDuplicateChecker(testutil.NewMapHasher(hashes), index),
			integrity.NewContentChecker(testutil.NewStaticClassifier(0.95, "tree", "litter")),
		},
		index,
		engine,
		common.NewLocalLocker(),
		nil,
	)
}

func newSubmissionDomain(t *testing.T, hashes map[string]uint64) (*submissionDomain, *ledger.Engine) {
	engine := newLedgerEngine(t)
	return NewSubmissionDomain(
		repository.NewQuestRepository(),
		repository.NewSubmissionRepository(),
		repository.NewVerificationReportRepository(),
		repository.NewUserRepository(),
		newOrchestrator(t, engine, hashes),
		nil,
	), engine
}

func TestSubmissionDomain_SubmitProof(t *testing.T) {
	ctx := testutil.NewMockContextWithUserID(nil, testutil.User1)
	testutil.CreateFixtureDb(ctx)
	d, engine := newSubmissionDomain(t, map[string]uint64{
		"https://cdn/a.jpg": 0x0123_4567_89ab_cdef,
		"https://cdn/b.jpg": 0x0123_4567_89ab_cdef,
	})

	resp, err := d.SubmitProof(ctx, &model.SubmitProofRequest{
		QuestID:  testutil.Quest1.ID,
		ImageURL: "https://cdn/a.jpg",
		Caption:  "New sapling near my school",
	})
	require.NoError(t, err)
	require.Equal(t, string(entity.AutoPass), resp.Submission.Status)
	require.Equal(t, uint64(50), resp.Submission.PointsAwarded)
	require.Equal(t, testutil.User1, resp.Submission.UserID)
	require.Equal(t, string(entity.ProofPhoto), resp.Submission.ProofKind)

	// The same photo again is a duplicate.
	resp, err = d.SubmitProof(ctx, &model.SubmitProofRequest{
		QuestID:  testutil.Quest1.ID,
		ImageURL: "https://cdn/b.jpg",
	})
	require.NoError(t, err)
	require.Equal(t, string(entity.Rejected), resp.Submission.Status)

	report, err := d.GetVerificationReport(ctx, &model.GetVerificationReportRequest{
		SubmissionID: resp.Submission.ID,
	})
	require.NoError(t, err)
	require.Equal(t, string(entity.Rejected), report.Status)
	require.NotNil(t, report.Report)
	require.True(t, report.Report.DuplicateCheck)
	require.Equal(t, string(entity.DecisionReject), report.Report.AutoDecision)

	userLedger, err := engine.Snapshot(ctx, testutil.User1)
	require.NoError(t, err)
	require.Equal(t, int64(50), userLedger.Points)
}

func TestSubmissionDomain_SubmitProofInvalid(t *testing.T) {
	ctx := testutil.NewMockContextWithUserID(nil, testutil.User1)
	testutil.CreateFixtureDb(ctx)
	d, _ := newSubmissionDomain(t, nil)
	lat := 10.0

	testCases := []struct {
		name string
		req  *model.SubmitProofRequest
		code errorx.Code
	}{
		{
			name: "empty quest",
			req:  &model.SubmitProofRequest{ImageURL: "https://cdn/a.jpg"},
			code: errorx.BadRequest,
		},
		{
			name: "unknown quest",
			req:  &model.SubmitProofRequest{QuestID: "unknown", ImageURL: "https://cdn/a.jpg"},
			code: errorx.NotFound,
		},
		{
			name: "expired quest",
			req:  &model.SubmitProofRequest{QuestID: testutil.QuestExpired.ID, ImageURL: "https://cdn/a.jpg"},
			code: errorx.ExpiredQuest,
		},
		{
			name: "video for a photo quest",
			req:  &model.SubmitProofRequest{QuestID: testutil.Quest1.ID, VideoURL: "https://cdn/a.mp4"},
			code: errorx.BadRequest,
		},
		{
			name: "no proof at all",
			req:  &model.SubmitProofRequest{QuestID: testutil.Quest1.ID},
			code: errorx.BadRequest,
		},
		{
			name: "two media",
			req: &model.SubmitProofRequest{
				QuestID:  testutil.QuestPark.ID,
				ImageURL: "https://cdn/a.jpg",
				VideoURL: "https://cdn/a.mp4",
			},
			code: errorx.BadRequest,
		},
		{
			name: "latitude without longitude",
			req:  &model.SubmitProofRequest{QuestID: testutil.Quest1.ID, ImageURL: "https://cdn/a.jpg", Latitude: &lat},
			code: errorx.BadRequest,
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.SubmitProof(ctx, tt.req)
			require.True(t, errorx.Is(err, tt.code), "got %v", err)
		})
	}

	// Nothing was stored for rejected requests.
	submissions, err := repository.NewSubmissionRepository().GetList(ctx, &repository.SubmissionFilter{}, 0, 10)
	require.NoError(t, err)
	require.Empty(t, submissions)
}

func TestSubmissionDomain_SubmitProofKeepsPendingOnFailure(t *testing.T) {
	ctx := testutil.NewMockContextWithUserID(nil, testutil.User1)
	testutil.CreateFixtureDb(ctx)

	d := NewSubmissionDomain(
		repository.NewQuestRepository(),
		repository.NewSubmissionRepository(),
		repository.NewVerificationReportRepository(),
		repository.NewUserRepository(),
		&mockVerifier{
			VerifyFunc: func(context.Context, string) (*entity.Submission, *entity.VerificationReport, error) {
				return nil, nil, errors.New("database is gone")
			},
		},
		nil,
	)

	resp, err := d.SubmitProof(ctx, &model.SubmitProofRequest{QuestID: testutil.Quest1.ID, ImageURL: "https://cdn/a.jpg"})
	require.NoError(t, err)
	require.Equal(t, string(entity.Pending), resp.Submission.Status)

	got, err := d.GetSubmission(ctx, &model.GetSubmissionRequest{ID: resp.Submission.ID})
	require.NoError(t, err)
	require.Equal(t, string(entity.Pending), got.Submission.Status)

	report, err := d.GetVerificationReport(ctx, &model.GetVerificationReportRequest{SubmissionID: resp.Submission.ID})
	require.NoError(t, err)
	require.Equal(t, string(entity.Pending), report.Status)
	require.Nil(t, report.Report)

	_, err = d.GetVerificationReport(ctx, &model.GetVerificationReportRequest{SubmissionID: "unknown"})
	require.True(t, errorx.Is(err, errorx.NotFound))
}

func TestSubmissionDomain_SubmitProofAsync(t *testing.T) {
	ctx := testutil.NewMockContextWithUserID(nil, testutil.User1)
	ctx = testutil.WithConfigs(ctx, func(cfg *config.Configs) { cfg.Verification.Async = true })
	testutil.CreateFixtureDb(ctx)

	publisher := testutil.NewRecordPublisher()
	d := NewSubmissionDomain(
		repository.NewQuestRepository(),
		repository.NewSubmissionRepository(),
		repository.NewVerificationReportRepository(),
		repository.NewUserRepository(),
		&mockVerifier{
			VerifyFunc: func(context.Context, string) (*entity.Submission, *entity.VerificationReport, error) {
				require.FailNow(t, "must not verify inline")
				return nil, nil, nil
			},
		},
		publisher,
	)

	resp, err := d.SubmitProof(ctx, &model.SubmitProofRequest{QuestID: testutil.Quest1.ID, ImageURL: "https://cdn/a.jpg"})
	require.NoError(t, err)
	require.Equal(t, string(entity.Pending), resp.Submission.Status)

	topic := xcontext.Configs(ctx).Kafka.VerificationTopic
	require.Equal(t, 1, publisher.Count(topic))
	require.Equal(t, resp.Submission.ID, string(publisher.Packs[topic][0].Key))
}

func TestSubmissionDomain_ResolveReview(t *testing.T) {
	ctx := testutil.NewMockContextWithUserID(nil, testutil.User1)
	testutil.CreateFixtureDb(ctx)
	d, engine := newSubmissionDomain(t, nil)

	// A text proof always needs a reviewer.
	resp, err := d.SubmitProof(ctx, &model.SubmitProofRequest{
		QuestID: testutil.QuestText.ID,
		Caption: "We collected rain water for the garden",
	})
	require.NoError(t, err)
	require.Equal(t, string(entity.Review), resp.Submission.Status)

	// Students can neither see the queue nor resolve, not even their own.
	_, err = d.GetPendingReviews(ctx, &model.GetPendingReviewsRequest{})
	require.True(t, errorx.Is(err, errorx.PermissionDenied))

	_, err = d.ResolveReview(ctx, &model.ResolveReviewRequest{
		SubmissionID: resp.Submission.ID,
		Decision:     "approved",
	})
	require.True(t, errorx.Is(err, errorx.PermissionDenied))

	otherStudentCtx := testutil.NewMockContextWithUserID(ctx, testutil.User2)
	_, err = d.ResolveReview(otherStudentCtx, &model.ResolveReviewRequest{
		SubmissionID: resp.Submission.ID,
		Decision:     "approved",
	})
	require.True(t, errorx.Is(err, errorx.PermissionDenied))

	reviewerCtx := testutil.NewMockContextWithUserID(ctx, testutil.Reviewer)
	pending, err := d.GetPendingReviews(reviewerCtx, &model.GetPendingReviewsRequest{})
	require.NoError(t, err)
	require.Len(t, pending.Submissions, 1)
	require.Equal(t, resp.Submission.ID, pending.Submissions[0].ID)

	_, err = d.GetPendingReviews(reviewerCtx, &model.GetPendingReviewsRequest{Limit: 51})
	require.True(t, errorx.Is(err, errorx.BadRequest))

	_, err = d.ResolveReview(reviewerCtx, &model.ResolveReviewRequest{
		SubmissionID: resp.Submission.ID,
		Decision:     "auto_pass",
	})
	require.True(t, errorx.Is(err, errorx.BadRequest))

	resolved, err := d.ResolveReview(reviewerCtx, &model.ResolveReviewRequest{
		SubmissionID: resp.Submission.ID,
		Decision:     "approved",
		Notes:        "Lovely garden",
	})
	require.NoError(t, err)
	require.Equal(t, string(entity.Approved), resolved.Submission.Status)
	require.Equal(t, testutil.Reviewer, resolved.Submission.ReviewedBy)
	require.Equal(t, uint64(20), resolved.Submission.PointsAwarded)

	_, err = d.ResolveReview(reviewerCtx, &model.ResolveReviewRequest{
		SubmissionID: resp.Submission.ID,
		Decision:     "rejected",
	})
	require.True(t, errorx.Is(err, errorx.InvalidTransition))

	pending, err = d.GetPendingReviews(reviewerCtx, &model.GetPendingReviewsRequest{})
	require.NoError(t, err)
	require.Empty(t, pending.Submissions)

	userLedger, err := engine.Snapshot(ctx, testutil.User1)
	require.NoError(t, err)
	require.Equal(t, int64(20), userLedger.Points)
}

func TestWalletDomain(t *testing.T) {
	ctx := testutil.NewMockContextWithUserID(nil, testutil.User1)
	testutil.CreateFixtureDb(ctx)
	sd, engine := newSubmissionDomain(t, map[string]uint64{"https://cdn/a.jpg": 0xffff_0000_ffff_0000})
	wd := NewWalletDomain(repository.NewWalletTransactionRepository(), repository.NewUserRepository(), engine)
	partnerCtx := testutil.NewMockContextWithUserID(ctx, testutil.Partner)

	_, err := sd.SubmitProof(ctx, &model.SubmitProofRequest{QuestID: testutil.Quest1.ID, ImageURL: "https://cdn/a.jpg"})
	require.NoError(t, err)

	// Students cannot grant bonuses.
	_, err = wd.AppendTransaction(ctx, &model.AppendTransactionRequest{
		UserID: testutil.User1,
		Type:   "bonus",
		Amount: 1000,
	})
	require.True(t, errorx.Is(err, errorx.PermissionDenied))

	_, err = wd.AppendTransaction(partnerCtx, &model.AppendTransactionRequest{
		UserID: testutil.User1,
		Type:   "redeemed",
		Amount: 80,
	})
	require.True(t, errorx.Is(err, errorx.InsufficientPoints))

	_, err = wd.AppendTransaction(partnerCtx, &model.AppendTransactionRequest{
		UserID: testutil.User1,
		Type:   "earned",
		Amount: 80,
	})
	require.True(t, errorx.Is(err, errorx.BadRequest))

	bonus, err := wd.AppendTransaction(partnerCtx, &model.AppendTransactionRequest{
		UserID:      testutil.User1,
		Type:        "bonus",
		Amount:      10,
		Description: "Welcome bonus",
	})
	require.NoError(t, err)
	require.Equal(t, int64(60), bonus.Points)

	redeem, err := wd.AppendTransaction(partnerCtx, &model.AppendTransactionRequest{
		UserID:      testutil.User1,
		Type:        "redeemed",
		Amount:      40,
		Description: "Coffee voucher",
		VoucherCode: "COFFEE-1",
	})
	require.NoError(t, err)
	require.Equal(t, int64(-40), redeem.Transaction.Amount)
	require.Equal(t, int64(20), redeem.Points)

	wallet, err := wd.GetWallet(ctx, &model.GetWalletRequest{})
	require.NoError(t, err)
	require.Equal(t, testutil.User1, wallet.UserID)
	require.Equal(t, int64(20), wallet.Points)
	require.Equal(t, int64(60), wallet.MonthlyPoints)
	require.Equal(t, 1, wallet.Streak)
	require.Equal(t, int64(50), wallet.TotalEarned)
	require.Equal(t, int64(40), wallet.TotalRedeemed)
	require.Equal(t, int64(10), wallet.TotalBonus)
	require.Len(t, wallet.Transactions, 3)
	require.Equal(t, "earned", wallet.Transactions[0].Type)
	require.Equal(t, "COFFEE-1", wallet.Transactions[2].VoucherCode)
	require.Equal(t, 1.0, wallet.Impact.TreesPlanted)

	otherCtx := testutil.NewMockContextWithUserID(ctx, testutil.User2)
	_, err = wd.GetWallet(otherCtx, &model.GetWalletRequest{UserID: testutil.User1})
	require.True(t, errorx.Is(err, errorx.PermissionDenied))

	wallet, err = wd.GetWallet(partnerCtx, &model.GetWalletRequest{UserID: testutil.User1})
	require.NoError(t, err)
	require.Equal(t, int64(20), wallet.Points)

	_, err = wd.GetWallet(ctx, &model.GetWalletRequest{Limit: 101})
	require.True(t, errorx.Is(err, errorx.BadRequest))
}

func TestLeaderboardDomain(t *testing.T) {
	ctx := testutil.NewMockContextWithUserID(nil, testutil.User2)
	engine := newLedgerEngine(t)
	d := NewLeaderboardDomain(repository.NewUserLedgerRepository(), engine)

	// Credited in this order, user1 reaches 50 points before user2.
	credits := []ledger.Credit{
		{UserID: testutil.User1, SubmissionID: "s1", BasePoints: 50, Difficulty: entity.Easy},
		{UserID: testutil.User2, SubmissionID: "s2", BasePoints: 50, Difficulty: entity.Easy},
		{UserID: testutil.User3, SubmissionID: "s3", BasePoints: 100, Difficulty: entity.Easy},
	}
	for _, c := range credits {
		_, err := engine.Credit(ctx, c, func(context.Context, uint64) error { return nil })
		require.NoError(t, err)
	}

	resp, err := d.GetLeaderboard(ctx, &model.GetLeaderboardRequest{})
	require.NoError(t, err)
	require.Equal(t, string(leaderboard.AllTime), resp.Period)
	require.Len(t, resp.Entries, 3)
	require.Equal(t, testutil.User3, resp.Entries[0].UserID)
	// Tie on points goes to the earlier activity.
	require.Equal(t, testutil.User1, resp.Entries[1].UserID)
	require.Equal(t, testutil.User2, resp.Entries[2].UserID)
	require.Equal(t, 3, resp.Entries[2].Rank)

	resp, err = d.GetLeaderboard(ctx, &model.GetLeaderboardRequest{Limit: 1, Period: "monthly"})
	require.NoError(t, err)
	require.Len(t, resp.Entries, 1)
	require.Equal(t, int64(100), resp.Entries[0].Points)
	require.NotNil(t, resp.Me)
	require.Equal(t, 3, resp.Me.Rank)

	_, err = d.GetLeaderboard(ctx, &model.GetLeaderboardRequest{Limit: 101})
	require.True(t, errorx.Is(err, errorx.BadRequest))

	_, err = d.GetLeaderboard(ctx, &model.GetLeaderboardRequest{Period: "weekly"})
	require.True(t, errorx.Is(err, errorx.BadRequest))
}
