package repository

import (
	"context"
	"time"

	"github.com/terraed/backend/internal/entity"
	"github.com/terraed/backend/pkg/xcontext"
)

type SubmissionFilter struct {
	QuestID string
	UserID  string
	Status  []entity.SubmissionStatus
}

// SubmissionTransition holds the fields written together with a status
// change. Zero fields are not written.
type SubmissionTransition struct {
	Status        entity.SubmissionStatus
	PointsAwarded uint64
	ReviewedBy    string
	ReviewNotes   string
	ReviewedAt    time.Time
}

type SubmissionRepository interface {
	Create(ctx context.Context, submission *entity.Submission) error
	GetByID(ctx context.Context, id string) (*entity.Submission, error)
	GetList(ctx context.Context, filter *SubmissionFilter, offset, limit int) ([]entity.Submission, error)
	GetStalePending(ctx context.Context, before time.Time, limit int) ([]entity.Submission, error)

	// Transit moves the submission out of the from status. It returns
	// ErrNotChanged if the submission is not in the from status anymore.
	Transit(ctx context.Context, id string, from entity.SubmissionStatus, data SubmissionTransition) error
}

type submissionRepository struct{}

func NewSubmissionRepository() *submissionRepository {
	return &submissionRepository{}
}

func (r *submissionRepository) Create(ctx context.Context, data *entity.Submission) error {
	return xcontext.DB(ctx).Create(data).Error
}

func (r *submissionRepository) GetByID(ctx context.Context, id string) (*entity.Submission, error) {
	result := entity.Submission{}
	if err := xcontext.DB(ctx).Take(&result, "id=?", id).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *submissionRepository) GetList(
	ctx context.Context, filter *SubmissionFilter, offset, limit int,
) ([]entity.Submission, error) {
	result := []entity.Submission{}
	tx := xcontext.DB(ctx).
		Offset(offset).
		Limit(limit).
		Order("submitted_at ASC")

	if len(filter.Status) > 0 {
		tx = tx.Where("status IN (?)", filter.Status)
	}

	if filter.QuestID != "" {
		tx = tx.Where("quest_id=?", filter.QuestID)
	}

	if filter.UserID != "" {
		tx = tx.Where("user_id=?", filter.UserID)
	}

	if err := tx.Find(&result).Error; err != nil {
		return nil, err
	}

	return result, nil
}

func (r *submissionRepository) GetStalePending(
	ctx context.Context, before time.Time, limit int,
) ([]entity.Submission, error) {
	result := []entity.Submission{}
	err := xcontext.DB(ctx).
		Where("status=? AND submitted_at<?", entity.Pending, before).
		Order("submitted_at ASC").
		Limit(limit).
		Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *submissionRepository) Transit(
	ctx context.Context, id string, from entity.SubmissionStatus, data SubmissionTransition,
) error {
	updates := map[string]any{"status": data.Status}
	if data.PointsAwarded != 0 {
		updates["points_awarded"] = data.PointsAwarded
	}

	if data.ReviewedBy != "" {
		updates["reviewed_by"] = data.ReviewedBy
		updates["reviewed_at"] = data.ReviewedAt
		updates["review_notes"] = data.ReviewNotes
	}

	tx := xcontext.DB(ctx).
		Model(&entity.Submission{}).
		Where("id=? AND status=?", id, from).
		Updates(updates)
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected != 1 {
		return ErrNotChanged
	}

	return nil
}
