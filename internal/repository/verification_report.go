package repository

import (
	"context"
	"time"

	"github.com/terraed/backend/internal/entity"
	"github.com/terraed/backend/pkg/xcontext"
)

type VerificationReportRepository interface {
	Create(ctx context.Context, report *entity.VerificationReport) error
	GetBySubmissionID(ctx context.Context, submissionID string) (*entity.VerificationReport, error)

	// GetUnindexed returns reports carrying a media hash of submissions
	// accepted since the given time which have no duplicate index row.
	GetUnindexed(ctx context.Context, since time.Time, limit int) ([]entity.VerificationReport, error)
}

type verificationReportRepository struct{}

func NewVerificationReportRepository() *verificationReportRepository {
	return &verificationReportRepository{}
}

func (r *verificationReportRepository) Create(ctx context.Context, data *entity.VerificationReport) error {
	return xcontext.DB(ctx).Create(data).Error
}

func (r *verificationReportRepository) GetBySubmissionID(
	ctx context.Context, submissionID string,
) (*entity.VerificationReport, error) {
	result := entity.VerificationReport{}
	if err := xcontext.DB(ctx).Take(&result, "submission_id=?", submissionID).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *verificationReportRepository) GetUnindexed(
	ctx context.Context, since time.Time, limit int,
) ([]entity.VerificationReport, error) {
	result := []entity.VerificationReport{}
	err := xcontext.DB(ctx).
		Select("verification_reports.*").
		Joins("JOIN submissions ON submissions.id=verification_reports.submission_id").
		Joins("LEFT JOIN media_hashes ON media_hashes.submission_id=verification_reports.submission_id").
		Where("verification_reports.media_hash<>''").
		Where("submissions.status IN (?)", []entity.SubmissionStatus{entity.AutoPass, entity.Approved}).
		Where("submissions.updated_at>=?", since).
		Where("media_hashes.submission_id IS NULL").
		Order("submissions.updated_at ASC").
		Limit(limit).
		Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}
