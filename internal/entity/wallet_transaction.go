package entity

import (
	"database/sql"
	"time"

	"github.com/terraed/backend/pkg/enum"
)

type TransactionType string

var (
	TransactionEarned   = enum.New(TransactionType("earned"))
	TransactionRedeemed = enum.New(TransactionType("redeemed"))
	TransactionBonus    = enum.New(TransactionType("bonus"))
)

// WalletTransaction is append-only. ID is a snowflake so it sorts by creation
// time.
type WalletTransaction struct {
	ID        int64 `gorm:"primaryKey;autoIncrement:false"`
	CreatedAt time.Time

	UserID      string `gorm:"index"`
	Type        TransactionType
	Amount      int64
	Description string

	QuestID sql.NullString
	// At most one transaction per submission.
	SubmissionID sql.NullString `gorm:"uniqueIndex"`
	VoucherCode  sql.NullString
}
