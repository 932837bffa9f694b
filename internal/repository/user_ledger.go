package repository

import (
	"context"

	"github.com/terraed/backend/internal/entity"
	"github.com/terraed/backend/pkg/xcontext"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserLedgerRepository interface {
	Create(ctx context.Context, ledger *entity.UserLedger) error
	CreateIfNotExists(ctx context.Context, userID string) error
	Get(ctx context.Context, userID string) (*entity.UserLedger, error)
	GetAll(ctx context.Context) ([]entity.UserLedger, error)

	// UpdateWithVersion writes the counters of ledger if the stored version is
	// still ledger.Version, then increases the version. Otherwise it returns
	// ErrNotChanged.
	UpdateWithVersion(ctx context.Context, ledger *entity.UserLedger) error

	// ResetMonthlyPoints clears the monthly points of every ledger which does
	// not belong to period yet.
	ResetMonthlyPoints(ctx context.Context, period string) error
}

type userLedgerRepository struct{}

func NewUserLedgerRepository() *userLedgerRepository {
	return &userLedgerRepository{}
}

func (r *userLedgerRepository) Create(ctx context.Context, data *entity.UserLedger) error {
	return xcontext.DB(ctx).Create(data).Error
}

func (r *userLedgerRepository) CreateIfNotExists(ctx context.Context, userID string) error {
	return xcontext.DB(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&entity.UserLedger{UserID: userID}).Error
}

func (r *userLedgerRepository) Get(ctx context.Context, userID string) (*entity.UserLedger, error) {
	result := entity.UserLedger{}
	if err := xcontext.DB(ctx).Take(&result, "user_id=?", userID).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *userLedgerRepository) GetAll(ctx context.Context) ([]entity.UserLedger, error) {
	result := []entity.UserLedger{}
	if err := xcontext.DB(ctx).Find(&result).Error; err != nil {
		return nil, err
	}

	return result, nil
}

func (r *userLedgerRepository) UpdateWithVersion(ctx context.Context, data *entity.UserLedger) error {
	tx := xcontext.DB(ctx).
		Model(&entity.UserLedger{}).
		Where("user_id=? AND version=?", data.UserID, data.Version).
		Updates(map[string]any{
			"points":           data.Points,
			"monthly_points":   data.MonthlyPoints,
			"monthly_period":   data.MonthlyPeriod,
			"streak":           data.Streak,
			"last_activity":    data.LastActivity,
			"quests_completed": data.QuestsCompleted,

			"impact_trees_planted":   data.Impact.TreesPlanted,
			"impact_waste_collected": data.Impact.WasteCollected,
			"impact_carbon_saved":    data.Impact.CarbonSaved,
			"impact_water_saved":     data.Impact.WaterSaved,
			"impact_energy_saved":    data.Impact.EnergySaved,

			"version": gorm.Expr("version + 1"),
		})
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected != 1 {
		return ErrNotChanged
	}

	data.Version++
	return nil
}

func (r *userLedgerRepository) ResetMonthlyPoints(ctx context.Context, period string) error {
	return xcontext.DB(ctx).
		Model(&entity.UserLedger{}).
		Where("monthly_period <> ?", period).
		Updates(map[string]any{
			"monthly_points": 0,
			"monthly_period": period,
			"version":        gorm.Expr("version + 1"),
		}).Error
}
