package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/terraed/backend/internal/common"
	"github.com/terraed/backend/internal/entity"
	"github.com/terraed/backend/internal/repository"
	"github.com/terraed/backend/pkg/dateutil"
	"github.com/terraed/backend/pkg/errorx"
	"github.com/terraed/backend/pkg/idutil"
	"github.com/terraed/backend/pkg/xcontext"
	"gorm.io/gorm"
)

var errConcurrentModification = errorx.New(errorx.ConcurrentModification, "Ledger was modified concurrently")

// Credit describes the points earned by an accepted submission.
type Credit struct {
	UserID       string
	SubmissionID string
	QuestID      string
	QuestTitle   string
	BasePoints   uint64
	Difficulty   entity.Difficulty

	// Impact is what the quest contributes to the impact stats of the user.
	ImpactMetric entity.ImpactMetric
	ImpactAmount float64
}

// External is a redemption or a bonus appended by another service.
type External struct {
	UserID      string
	Type        entity.TransactionType
	Amount      int64
	Description string
	QuestID     string
	VoucherCode string
}

type Engine struct {
	ledgerRepo  repository.UserLedgerRepository
	walletRepo  repository.WalletTransactionRepository
	locker      common.Locker
	idGenerator idutil.Generator
	now         func() time.Time
}

func NewEngine(
	ledgerRepo repository.UserLedgerRepository,
	walletRepo repository.WalletTransactionRepository,
	locker common.Locker,
	idGenerator idutil.Generator,
) *Engine {
	return &Engine{
		ledgerRepo:  ledgerRepo,
		walletRepo:  walletRepo,
		locker:      locker,
		idGenerator: idGenerator,
		now:         time.Now,
	}
}

// Credit awards the points of an accepted submission. The credit time is the
// activity of the user: it drives the streak and becomes LastActivity, a late
// manual approval counts for the day it is approved. The apply function runs
// in the same transaction as the ledger update and receives the awarded
// points, it is where the caller transitions the submission. If apply fails
// nothing is written.
func (e *Engine) Credit(
	ctx context.Context, c Credit, apply func(ctx context.Context, points uint64) error,
) (uint64, error) {
	var points uint64
	err := e.withUserLedger(ctx, c.UserID, "credit", func(ctx context.Context, ledger *entity.UserLedger) error {
		cfg := xcontext.Configs(ctx).Ledger
		now := e.now()
		streak := NextStreak(ledger, now, cfg.Location())
		points = Points(cfg, c.BasePoints, c.Difficulty, streak)

		if err := apply(ctx, points); err != nil {
			return err
		}

		err := e.walletRepo.Create(ctx, &entity.WalletTransaction{
			ID:           e.idGenerator.Next(),
			CreatedAt:    now,
			UserID:       c.UserID,
			Type:         entity.TransactionEarned,
			Amount:       int64(points),
			Description:  fmt.Sprintf("Completed quest %s", c.QuestTitle),
			QuestID:      sql.NullString{Valid: c.QuestID != "", String: c.QuestID},
			SubmissionID: sql.NullString{Valid: true, String: c.SubmissionID},
		})
		if err != nil {
			return err
		}

		ledger.Points += int64(points)
		addMonthly(ledger, int64(points), dateutil.MonthPeriod(now, cfg.Location()))
		ledger.Streak = streak
		ledger.QuestsCompleted++
		ledger.LastActivity = sql.NullTime{Valid: true, Time: now}
		ledger.Impact.Add(c.ImpactMetric, c.ImpactAmount)

		return nil
	})
	if err != nil {
		return 0, err
	}

	return points, nil
}

// AppendExternal appends a redemption, which cannot overdraw the points, or a
// bonus. Amount is the positive magnitude of the transaction.
func (e *Engine) AppendExternal(ctx context.Context, ext External) (*entity.WalletTransaction, error) {
	if ext.Type != entity.TransactionRedeemed && ext.Type != entity.TransactionBonus {
		return nil, errorx.New(errorx.BadRequest, "Invalid transaction type %s", ext.Type)
	}

	if ext.Amount <= 0 {
		return nil, errorx.New(errorx.BadRequest, "Amount must be positive")
	}

	var tx *entity.WalletTransaction
	err := e.withUserLedger(ctx, ext.UserID, string(ext.Type), func(ctx context.Context, ledger *entity.UserLedger) error {
		now := e.now()
		amount := ext.Amount
		if ext.Type == entity.TransactionRedeemed {
			if ledger.Points < amount {
				return errorx.New(errorx.InsufficientPoints, "Not enough points, have %d but need %d",
					ledger.Points, amount)
			}
			amount = -amount
		} else {
			addMonthly(ledger, amount, dateutil.MonthPeriod(now, xcontext.Configs(ctx).Ledger.Location()))
		}

		tx = &entity.WalletTransaction{
			ID:          e.idGenerator.Next(),
			CreatedAt:   now,
			UserID:      ext.UserID,
			Type:        ext.Type,
			Amount:      amount,
			Description: ext.Description,
			QuestID:     sql.NullString{Valid: ext.QuestID != "", String: ext.QuestID},
			VoucherCode: sql.NullString{Valid: ext.VoucherCode != "", String: ext.VoucherCode},
		}
		if err := e.walletRepo.Create(ctx, tx); err != nil {
			return err
		}

		ledger.Points += amount
		return nil
	})
	if err != nil {
		return nil, err
	}

	return tx, nil
}

// Snapshot returns the ledger of a user, a user without any activity has an
// empty ledger.
func (e *Engine) Snapshot(ctx context.Context, userID string) (*entity.UserLedger, error) {
	ledger, err := e.ledgerRepo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &entity.UserLedger{UserID: userID}, nil
		}

		return nil, err
	}

	// The monthly reset job may not have run yet.
	if ledger.MonthlyPeriod != e.CurrentPeriod(ctx) {
		ledger.MonthlyPoints = 0
	}

	return ledger, nil
}

// ResetMonthly starts a new month for every ledger.
func (e *Engine) ResetMonthly(ctx context.Context) error {
	return e.ledgerRepo.ResetMonthlyPoints(ctx, e.CurrentPeriod(ctx))
}

// CurrentPeriod returns the month monthly points are counted for.
func (e *Engine) CurrentPeriod(ctx context.Context) string {
	return dateutil.MonthPeriod(e.now(), xcontext.Configs(ctx).Ledger.Location())
}

// withUserLedger runs fn in a transaction under the lock of the user, then
// saves the ledger modified by fn. A lost optimistic update is retried with
// the refreshed ledger.
func (e *Engine) withUserLedger(
	ctx context.Context,
	userID string,
	operation string,
	fn func(ctx context.Context, ledger *entity.UserLedger) error,
) error {
	unlock, err := e.locker.Lock(ctx, common.RedisKeyUserLock(userID))
	if err != nil {
		return err
	}
	defer unlock()

	if err := e.ledgerRepo.CreateIfNotExists(ctx, userID); err != nil {
		return err
	}

	maxRetries := xcontext.Configs(ctx).Ledger.MaxRetries
	for attempt := 1; ; attempt++ {
		err := e.tryWithUserLedger(ctx, userID, fn)
		if err == nil {
			return nil
		}

		if !errorx.Is(err, errorx.ConcurrentModification) || attempt >= maxRetries {
			return err
		}

		common.PromCounters[common.LedgerRetryTotal].WithLabelValues(operation).Inc()
		xcontext.Logger(ctx).Warnf("Ledger of %s was modified concurrently, retry %d", userID, attempt)
	}
}

func (e *Engine) tryWithUserLedger(
	ctx context.Context,
	userID string,
	fn func(ctx context.Context, ledger *entity.UserLedger) error,
) error {
	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	ledger, err := e.ledgerRepo.Get(ctx, userID)
	if err != nil {
		return err
	}

	if err := fn(ctx, ledger); err != nil {
		return err
	}

	if err := e.ledgerRepo.UpdateWithVersion(ctx, ledger); err != nil {
		if errors.Is(err, repository.ErrNotChanged) {
			return errConcurrentModification
		}

		return err
	}

	return xcontext.WithCommitDBTransaction(ctx)
}
