package domain

import (
	"context"

	"github.com/terraed/backend/internal/domain/leaderboard"
	"github.com/terraed/backend/internal/domain/ledger"
	"github.com/terraed/backend/internal/model"
	"github.com/terraed/backend/internal/repository"
	"github.com/terraed/backend/pkg/enum"
	"github.com/terraed/backend/pkg/errorx"
	"github.com/terraed/backend/pkg/xcontext"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
)

type LeaderboardDomain interface {
	GetLeaderboard(context.Context, *model.GetLeaderboardRequest) (*model.GetLeaderboardResponse, error)
}

type leaderboardDomain struct {
	ledgerRepo repository.UserLedgerRepository
	ledger     *ledger.Engine
}

func NewLeaderboardDomain(ledgerRepo repository.UserLedgerRepository, ledger *ledger.Engine) *leaderboardDomain {
	return &leaderboardDomain{ledgerRepo: ledgerRepo, ledger: ledger}
}

func (d *leaderboardDomain) GetLeaderboard(
	ctx context.Context, req *model.GetLeaderboardRequest,
) (*model.GetLeaderboardResponse, error) {
	if req.Limit == 0 {
		req.Limit = defaultLeaderboardLimit
	}

	if req.Limit < 0 {
		return nil, errorx.New(errorx.BadRequest, "Limit must be positive")
	}

	if req.Limit > maxLeaderboardLimit {
		return nil, errorx.New(errorx.BadRequest, "Exceed the maximum of limit (%d)", maxLeaderboardLimit)
	}

	period := leaderboard.AllTime
	if req.Period != "" {
		var err error
		period, err = enum.ToEnum[leaderboard.Period](req.Period)
		if err != nil {
			return nil, errorx.New(errorx.BadRequest, "Invalid period %q", req.Period)
		}
	}

	ledgers, err := d.ledgerRepo.GetAll(ctx)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get ledgers: %v", err)
		return nil, errorx.Unknown
	}

	// Ledgers of a past month still hold its points until the reset job runs.
	current := d.ledger.CurrentPeriod(ctx)
	for i := range ledgers {
		if ledgers[i].MonthlyPeriod != current {
			ledgers[i].MonthlyPoints = 0
		}
	}

	entries := leaderboard.Rank(ledgers, period)
	resp := &model.GetLeaderboardResponse{Period: string(period), Entries: []model.LeaderboardEntry{}}
	for i := 0; i < len(entries) && i < req.Limit; i++ {
		resp.Entries = append(resp.Entries, model.ConvertLeaderboardEntry(entries[i]))
	}

	if me := leaderboard.Find(entries, xcontext.RequestUserID(ctx)); me != nil {
		entry := model.ConvertLeaderboardEntry(*me)
		resp.Me = &entry
	}

	return resp, nil
}
