package repository

import (
	"context"

	"github.com/terraed/backend/internal/entity"
	"github.com/terraed/backend/pkg/xcontext"
	"gorm.io/gorm/clause"
)

type MediaHashRepository interface {
	// Create ignores a second insertion for the same submission.
	Create(ctx context.Context, hash *entity.MediaHash) error

	// GetByAnyBand returns rows in scope sharing at least one band with bands.
	GetByAnyBand(ctx context.Context, scope string, bands [4]int) ([]entity.MediaHash, error)

	GetByScope(ctx context.Context, scope string) ([]entity.MediaHash, error)
}

type mediaHashRepository struct{}

func NewMediaHashRepository() *mediaHashRepository {
	return &mediaHashRepository{}
}

func (r *mediaHashRepository) Create(ctx context.Context, data *entity.MediaHash) error {
	return xcontext.DB(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(data).Error
}

func (r *mediaHashRepository) GetByAnyBand(
	ctx context.Context, scope string, bands [4]int,
) ([]entity.MediaHash, error) {
	result := []entity.MediaHash{}
	err := xcontext.DB(ctx).
		Where("scope=?", scope).
		Where("(band0=? OR band1=? OR band2=? OR band3=?)", bands[0], bands[1], bands[2], bands[3]).
		Order("created_at ASC").
		Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *mediaHashRepository) GetByScope(ctx context.Context, scope string) ([]entity.MediaHash, error) {
	result := []entity.MediaHash{}
	if err := xcontext.DB(ctx).Where("scope=?", scope).Order("created_at ASC").Find(&result).Error; err != nil {
		return nil, err
	}

	return result, nil
}
