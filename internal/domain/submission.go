package domain

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/terraed/backend/internal/common"
	"github.com/terraed/backend/internal/domain/verification"
	"github.com/terraed/backend/internal/entity"
	"github.com/terraed/backend/internal/model"
	"github.com/terraed/backend/internal/repository"
	"github.com/terraed/backend/pkg/errorx"
	"github.com/terraed/backend/pkg/pubsub"
	"github.com/terraed/backend/pkg/xcontext"
	"gorm.io/gorm"
)

const maxPendingReviews = 50

type Verifier interface {
	Verify(ctx context.Context, submissionID string) (*entity.Submission, *entity.VerificationReport, error)
	Resolve(ctx context.Context, submissionID string, decision entity.SubmissionStatus, reviewerID, notes string) (*entity.Submission, error)
}

type SubmissionDomain interface {
	SubmitProof(context.Context, *model.SubmitProofRequest) (*model.SubmitProofResponse, error)
	GetSubmission(context.Context, *model.GetSubmissionRequest) (*model.GetSubmissionResponse, error)
	GetVerificationReport(context.Context, *model.GetVerificationReportRequest) (*model.GetVerificationReportResponse, error)
	ResolveReview(context.Context, *model.ResolveReviewRequest) (*model.ResolveReviewResponse, error)
	GetPendingReviews(context.Context, *model.GetPendingReviewsRequest) (*model.GetPendingReviewsResponse, error)
}

type submissionDomain struct {
	questRepo      repository.QuestRepository
	submissionRepo repository.SubmissionRepository
	reportRepo     repository.VerificationReportRepository
	verifier       Verifier
	publisher      pubsub.Publisher
	roleVerifier   *common.GlobalRoleVerifier
}

func NewSubmissionDomain(
	questRepo repository.QuestRepository,
	submissionRepo repository.SubmissionRepository,
	reportRepo repository.VerificationReportRepository,
	userRepo repository.UserRepository,
	verifier Verifier,
	publisher pubsub.Publisher,
) *submissionDomain {
	return &submissionDomain{
		questRepo:      questRepo,
		submissionRepo: submissionRepo,
		reportRepo:     reportRepo,
		verifier:       verifier,
		publisher:      publisher,
		roleVerifier:   common.NewGlobalRoleVerifier(userRepo),
	}
}

func (d *submissionDomain) SubmitProof(
	ctx context.Context, req *model.SubmitProofRequest,
) (*model.SubmitProofResponse, error) {
	if req.QuestID == "" {
		return nil, errorx.New(errorx.BadRequest, "Not allow an empty quest id")
	}

	if req.ImageURL != "" && req.VideoURL != "" {
		return nil, errorx.New(errorx.BadRequest, "Only one media is allowed per proof")
	}

	if (req.Latitude == nil) != (req.Longitude == nil) {
		return nil, errorx.New(errorx.BadRequest, "Latitude and longitude must be given together")
	}

	kind := entity.ProofText
	switch {
	case req.ImageURL != "":
		kind = entity.ProofPhoto
	case req.VideoURL != "":
		kind = entity.ProofVideo
	case req.Caption == "":
		return nil, errorx.New(errorx.BadRequest, "Proof needs a media or a caption")
	}

	quest, err := d.questRepo.GetByID(ctx, req.QuestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found quest")
		}

		xcontext.Logger(ctx).Errorf("Cannot get quest: %v", err)
		return nil, errorx.Unknown
	}

	now := time.Now()
	if quest.IsExpired(now) {
		return nil, errorx.New(errorx.ExpiredQuest, "Quest expired at %s", quest.Expiry.Format(time.RFC3339))
	}

	if !quest.Accepts(kind) {
		return nil, errorx.New(errorx.BadRequest, "Quest does not accept %s proofs", kind)
	}

	submission := &entity.Submission{
		Base:        entity.Base{ID: uuid.NewString()},
		QuestID:     quest.ID,
		UserID:      xcontext.RequestUserID(ctx),
		ProofKind:   kind,
		ImageURL:    req.ImageURL,
		VideoURL:    req.VideoURL,
		Caption:     req.Caption,
		Status:      entity.Pending,
		SubmittedAt: now,
	}

	if req.Latitude != nil {
		submission.Latitude = sql.NullFloat64{Valid: true, Float64: *req.Latitude}
		submission.Longitude = sql.NullFloat64{Valid: true, Float64: *req.Longitude}
	}

	if err := d.submissionRepo.Create(ctx, submission); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot create submission: %v", err)
		return nil, errorx.Unknown
	}

	// From here the submission is stored, a failed verification leaves it
	// pending for the sweep job.
	if xcontext.Configs(ctx).Verification.Async && d.publisher != nil {
		if err := verification.PublishRequest(ctx, d.publisher, submission.ID); err != nil {
			xcontext.Logger(ctx).Warnf("Cannot enqueue verification of %s: %v", submission.ID, err)
		}
	} else {
		verified, _, err := d.verifier.Verify(ctx, submission.ID)
		if err != nil {
			xcontext.Logger(ctx).Warnf("Cannot verify submission %s: %v", submission.ID, err)
		} else {
			submission = verified
		}
	}

	return &model.SubmitProofResponse{Submission: model.ConvertSubmission(submission)}, nil
}

func (d *submissionDomain) GetSubmission(
	ctx context.Context, req *model.GetSubmissionRequest,
) (*model.GetSubmissionResponse, error) {
	submission, err := d.getSubmission(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	return &model.GetSubmissionResponse{Submission: model.ConvertSubmission(submission)}, nil
}

func (d *submissionDomain) GetVerificationReport(
	ctx context.Context, req *model.GetVerificationReportRequest,
) (*model.GetVerificationReportResponse, error) {
	submission, err := d.getSubmission(ctx, req.SubmissionID)
	if err != nil {
		return nil, err
	}

	resp := &model.GetVerificationReportResponse{
		SubmissionID: submission.ID,
		Status:       string(submission.Status),
	}

	if submission.Status == entity.Pending {
		return resp, nil
	}

	report, err := d.reportRepo.GetBySubmissionID(ctx, submission.ID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get verification report of %s: %v", submission.ID, err)
		return nil, errorx.Unknown
	}

	r := model.ConvertVerificationReport(report)
	resp.Report = &r
	return resp, nil
}

func (d *submissionDomain) ResolveReview(
	ctx context.Context, req *model.ResolveReviewRequest,
) (*model.ResolveReviewResponse, error) {
	if req.SubmissionID == "" {
		return nil, errorx.New(errorx.BadRequest, "Not allow an empty submission id")
	}

	if err := d.roleVerifier.Verify(ctx, entity.ReviewerRoles...); err != nil {
		xcontext.Logger(ctx).Debugf("Permission denied: %v", err)
		return nil, errorx.New(errorx.PermissionDenied, "Only reviewers can resolve a review")
	}

	decision, err := enumDecision(req.Decision)
	if err != nil {
		return nil, err
	}

	submission, err := d.verifier.Resolve(ctx, req.SubmissionID, decision, xcontext.RequestUserID(ctx), req.Notes)
	if err != nil {
		return nil, domainError(ctx, err, "Cannot resolve review")
	}

	return &model.ResolveReviewResponse{Submission: model.ConvertSubmission(submission)}, nil
}

func (d *submissionDomain) GetPendingReviews(
	ctx context.Context, req *model.GetPendingReviewsRequest,
) (*model.GetPendingReviewsResponse, error) {
	if err := d.roleVerifier.Verify(ctx, entity.ReviewerRoles...); err != nil {
		xcontext.Logger(ctx).Debugf("Permission denied: %v", err)
		return nil, errorx.New(errorx.PermissionDenied, "Only reviewers can see the review queue")
	}

	if req.Limit == 0 {
		req.Limit = maxPendingReviews
	}

	if req.Limit < 0 || req.Offset < 0 {
		return nil, errorx.New(errorx.BadRequest, "Offset and limit must not be negative")
	}

	if req.Limit > maxPendingReviews {
		return nil, errorx.New(errorx.BadRequest, "Exceed the maximum of limit (%d)", maxPendingReviews)
	}

	submissions, err := d.submissionRepo.GetList(ctx, &repository.SubmissionFilter{
		QuestID: req.QuestID,
		Status:  []entity.SubmissionStatus{entity.Review},
	}, req.Offset, req.Limit)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get pending reviews: %v", err)
		return nil, errorx.Unknown
	}

	result := []model.Submission{}
	for i := range submissions {
		result = append(result, model.ConvertSubmission(&submissions[i]))
	}

	return &model.GetPendingReviewsResponse{Submissions: result}, nil
}

func (d *submissionDomain) getSubmission(ctx context.Context, id string) (*entity.Submission, error) {
	if id == "" {
		return nil, errorx.New(errorx.BadRequest, "Not allow an empty submission id")
	}

	submission, err := d.submissionRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found submission")
		}

		xcontext.Logger(ctx).Errorf("Cannot get submission: %v", err)
		return nil, errorx.Unknown
	}

	return submission, nil
}

func enumDecision(decision string) (entity.SubmissionStatus, error) {
	switch entity.SubmissionStatus(decision) {
	case entity.Approved:
		return entity.Approved, nil
	case entity.Rejected:
		return entity.Rejected, nil
	default:
		return "", errorx.New(errorx.BadRequest, "Invalid decision %q", decision)
	}
}
