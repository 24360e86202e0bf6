package transfer

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	domain "escrow-ledger/internal/domain/ledger"
	"escrow-ledger/internal/domain/uow"
	"escrow-ledger/internal/usecase"
	"escrow-ledger/internal/usecase/ledger"
	"escrow-ledger/pkg/id"
)

type Input struct {
	FromID      string          `json:"from_account_id"`
	ToID        string          `json:"to_account_id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
	UserID      string          `json:"user_id,omitempty"`
}

// Result holds both legs of a transfer. They share TransferID.
type Result struct {
	TransferID string              `json:"transfer_id"`
	Debit      *domain.Transaction `json:"debit"`
	Credit     *domain.Transaction `json:"credit"`
}

type Usecase struct{ d usecase.Deps }

func NewUsecase(d usecase.Deps) *Usecase { return &Usecase{d: d.WithDefaults()} }

// Transfer moves amount between two escrow accounts in one unit of work.
// Both accounts are locked in ascending id order; either both legs commit or
// neither does.
func (u *Usecase) Transfer(ctx context.Context, in Input) (res *Result, err error) {
	const op = "transfer"
	defer func(start time.Time) { u.d.Observe(op, start, err) }(time.Now())

	if in.FromID == "" || in.ToID == "" {
		return nil, domain.Validation(op, "both accounts are required")
	}
	if in.FromID == in.ToID {
		return nil, domain.Validation(op, "cannot transfer to the same account")
	}
	if err := domain.CheckAmount(op, in.Amount); err != nil {
		return nil, err
	}

	res = &Result{TransferID: uuid.NewString()}
	debitID, creditID := id.NewID32(), id.NewID32()
	at := u.d.Now()

	err = u.d.UoW.WithinAccountsTx(ctx, []string{in.FromID, in.ToID}, func(r uow.Repos, accts map[string]*domain.EscrowAccount) error {
		from, to := accts[in.FromID], accts[in.ToID]
		if from.Currency != to.Currency {
			return domain.Validation(op, "accounts hold different currencies")
		}

		var err error
		res.Debit, err = ledger.Post(ctx, r, from, ledger.Entry{
			ID:          debitID,
			Type:        domain.TxTransfer,
			Direction:   domain.Debit,
			Amount:      in.Amount,
			UserID:      in.UserID,
			Description: in.Description,
			Metadata:    legMeta(res.TransferID, creditID, to.ID),
			At:          at,
		}, op)
		if err != nil {
			return err
		}
		res.Credit, err = ledger.Post(ctx, r, to, ledger.Entry{
			ID:          creditID,
			Type:        domain.TxTransfer,
			Direction:   domain.Credit,
			Amount:      in.Amount,
			UserID:      in.UserID,
			Description: in.Description,
			Metadata:    legMeta(res.TransferID, debitID, from.ID),
			At:          at,
		}, op)
		return err
	})
	if err != nil {
		return nil, err
	}

	u.d.Logger.Info("transfer completed",
		zap.String("transfer_id", res.TransferID),
		zap.String("debit_id", res.Debit.ID),
		zap.String("credit_id", res.Credit.ID),
	)
	for _, leg := range []domain.Transaction{*res.Debit, *res.Credit} {
		leg := leg
		u.d.Effects.Run(ctx, "notify.transaction", func(ctx context.Context) error {
			return u.d.Notifier.NotifyTransaction(ctx, leg)
		})
	}
	return res, nil
}

func legMeta(transferID, counterpartTxID, counterpartAccountID string) map[string]any {
	return map[string]any{
		domain.MetaTransferID:         transferID,
		domain.MetaCounterpartTxID:    counterpartTxID,
		domain.MetaCounterpartAccount: counterpartAccountID,
	}
}
