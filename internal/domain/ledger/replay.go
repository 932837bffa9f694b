package ledger

import (
	"context"

	"github.com/terraed/backend/internal/entity"
	"github.com/terraed/backend/pkg/dateutil"
	"github.com/terraed/backend/pkg/xcontext"
)

// Balance is the state of a ledger derived from the transaction log alone.
type Balance struct {
	Points          int64
	MonthlyPoints   int64
	QuestsCompleted int64

	Earned   int64
	Redeemed int64
	Bonus    int64
}

// Replay recomputes the counters of a user from the wallet transactions. The
// snapshot written by the engine must always match it, except for the streak
// which depends on the activity time of each submission.
func (e *Engine) Replay(ctx context.Context, userID string) (*Balance, error) {
	txs, err := e.walletRepo.GetByUserID(ctx, userID, 0, 0)
	if err != nil {
		return nil, err
	}

	loc := xcontext.Configs(ctx).Ledger.Location()
	period := e.CurrentPeriod(ctx)

	balance := &Balance{}
	for _, tx := range txs {
		balance.Points += tx.Amount

		switch tx.Type {
		case entity.TransactionEarned:
			balance.Earned += tx.Amount
			if tx.SubmissionID.Valid {
				balance.QuestsCompleted++
			}
		case entity.TransactionRedeemed:
			balance.Redeemed += tx.Amount
		case entity.TransactionBonus:
			balance.Bonus += tx.Amount
		}

		if tx.Amount > 0 && dateutil.MonthPeriod(tx.CreatedAt, loc) == period {
			balance.MonthlyPoints += tx.Amount
		}
	}

	return balance, nil
}

// Matches reports whether the snapshot agrees with the balance.
func (b *Balance) Matches(ledger *entity.UserLedger) bool {
	return b.Points == ledger.Points &&
		b.MonthlyPoints == ledger.MonthlyPoints &&
		b.QuestsCompleted == ledger.QuestsCompleted
}
