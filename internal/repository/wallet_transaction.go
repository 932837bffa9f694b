package repository

import (
	"context"

	"github.com/terraed/backend/internal/entity"
	"github.com/terraed/backend/pkg/xcontext"
)

type TransactionSum struct {
	Type  entity.TransactionType
	Total int64
}

type WalletTransactionRepository interface {
	Create(ctx context.Context, tx *entity.WalletTransaction) error
	GetByUserID(ctx context.Context, userID string, offset, limit int) ([]entity.WalletTransaction, error)
	SumByUserID(ctx context.Context, userID string) ([]TransactionSum, error)
}

type walletTransactionRepository struct{}

func NewWalletTransactionRepository() *walletTransactionRepository {
	return &walletTransactionRepository{}
}

func (r *walletTransactionRepository) Create(ctx context.Context, data *entity.WalletTransaction) error {
	return xcontext.DB(ctx).Create(data).Error
}

func (r *walletTransactionRepository) GetByUserID(
	ctx context.Context, userID string, offset, limit int,
) ([]entity.WalletTransaction, error) {
	result := []entity.WalletTransaction{}
	tx := xcontext.DB(ctx).
		Where("user_id=?", userID).
		Order("id ASC").
		Offset(offset)

	if limit > 0 {
		tx = tx.Limit(limit)
	}

	if err := tx.Find(&result).Error; err != nil {
		return nil, err
	}

	return result, nil
}

func (r *walletTransactionRepository) SumByUserID(ctx context.Context, userID string) ([]TransactionSum, error) {
	result := []TransactionSum{}
	err := xcontext.DB(ctx).
		Model(&entity.WalletTransaction{}).
		Select("type, SUM(amount) AS total").
		Where("user_id=?", userID).
		Group("type").
		Scan(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}
