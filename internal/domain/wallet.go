package domain

import (
	"context"

	"github.com/terraed/backend/internal/common"
	"github.com/terraed/backend/internal/domain/ledger"
	"github.com/terraed/backend/internal/entity"
	"github.com/terraed/backend/internal/model"
	"github.com/terraed/backend/internal/repository"
	"github.com/terraed/backend/pkg/enum"
	"github.com/terraed/backend/pkg/errorx"
	"github.com/terraed/backend/pkg/xcontext"
)

const maxWalletTransactions = 100

type WalletDomain interface {
	GetWallet(context.Context, *model.GetWalletRequest) (*model.GetWalletResponse, error)
	AppendTransaction(context.Context, *model.AppendTransactionRequest) (*model.AppendTransactionResponse, error)
}

type walletDomain struct {
	walletRepo   repository.WalletTransactionRepository
	ledger       *ledger.Engine
	roleVerifier *common.GlobalRoleVerifier
}

func NewWalletDomain(
	walletRepo repository.WalletTransactionRepository,
	userRepo repository.UserRepository,
	ledger *ledger.Engine,
) *walletDomain {
	return &walletDomain{
		walletRepo:   walletRepo,
		ledger:       ledger,
		roleVerifier: common.NewGlobalRoleVerifier(userRepo),
	}
}

func (d *walletDomain) GetWallet(
	ctx context.Context, req *model.GetWalletRequest,
) (*model.GetWalletResponse, error) {
	userID := req.UserID
	if userID == "" {
		userID = xcontext.RequestUserID(ctx)
	}

	if userID != xcontext.RequestUserID(ctx) {
		if err := d.roleVerifier.Verify(ctx, entity.RoleTeacher, entity.RolePartner); err != nil {
			xcontext.Logger(ctx).Debugf("Permission denied: %v", err)
			return nil, errorx.New(errorx.PermissionDenied, "Not allowed to see the wallet of another user")
		}
	}

	if req.Limit == 0 {
		req.Limit = maxWalletTransactions
	}

	if req.Limit < 0 || req.Offset < 0 {
		return nil, errorx.New(errorx.BadRequest, "Offset and limit must not be negative")
	}

	if req.Limit > maxWalletTransactions {
		return nil, errorx.New(errorx.BadRequest, "Exceed the maximum of limit (%d)", maxWalletTransactions)
	}

	userLedger, err := d.ledger.Snapshot(ctx, userID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get ledger of %s: %v", userID, err)
		return nil, errorx.Unknown
	}

	txs, err := d.walletRepo.GetByUserID(ctx, userID, req.Offset, req.Limit)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get wallet transactions: %v", err)
		return nil, errorx.Unknown
	}

	sums, err := d.walletRepo.SumByUserID(ctx, userID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot sum wallet transactions: %v", err)
		return nil, errorx.Unknown
	}

	resp := &model.GetWalletResponse{
		UserID:          userID,
		Points:          userLedger.Points,
		MonthlyPoints:   userLedger.MonthlyPoints,
		Streak:          userLedger.Streak,
		QuestsCompleted: userLedger.QuestsCompleted,
		Impact:          model.ConvertImpactStats(userLedger.Impact),
		Transactions:    []model.WalletTransaction{},
	}

	for _, sum := range sums {
		switch sum.Type {
		case entity.TransactionEarned:
			resp.TotalEarned = sum.Total
		case entity.TransactionRedeemed:
			resp.TotalRedeemed = -sum.Total
		case entity.TransactionBonus:
			resp.TotalBonus = sum.Total
		}
	}

	for i := range txs {
		resp.Transactions = append(resp.Transactions, model.ConvertWalletTransaction(&txs[i]))
	}

	return resp, nil
}

func (d *walletDomain) AppendTransaction(
	ctx context.Context, req *model.AppendTransactionRequest,
) (*model.AppendTransactionResponse, error) {
	if req.UserID == "" {
		return nil, errorx.New(errorx.BadRequest, "Not allow an empty user id")
	}

	// Bonuses and redemptions come from partner services, never from the
	// user whose balance they change.
	if err := d.roleVerifier.Verify(ctx, entity.RolePartner); err != nil {
		xcontext.Logger(ctx).Debugf("Permission denied: %v", err)
		return nil, errorx.New(errorx.PermissionDenied, "Only partners can append transactions")
	}

	txType, err := enum.ToEnum[entity.TransactionType](req.Type)
	if err != nil || txType == entity.TransactionEarned {
		return nil, errorx.New(errorx.BadRequest, "Invalid transaction type %q", req.Type)
	}

	tx, err := d.ledger.AppendExternal(ctx, ledger.External{
		UserID:      req.UserID,
		Type:        txType,
		Amount:      req.Amount,
		Description: req.Description,
		QuestID:     req.QuestID,
		VoucherCode: req.VoucherCode,
	})
	if err != nil {
		return nil, domainError(ctx, err, "Cannot append transaction")
	}

	userLedger, err := d.ledger.Snapshot(ctx, req.UserID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get ledger of %s: %v", req.UserID, err)
		return nil, errorx.Unknown
	}

	return &model.AppendTransactionResponse{
		Transaction: model.ConvertWalletTransaction(tx),
		Points:      userLedger.Points,
	}, nil
}
