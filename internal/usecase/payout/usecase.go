package payout

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	domain "escrow-ledger/internal/domain/ledger"
	"escrow-ledger/internal/domain/payout"
	"escrow-ledger/internal/domain/uow"
	"escrow-ledger/internal/port"
	"escrow-ledger/internal/usecase"
	"escrow-ledger/internal/usecase/ledger"
	"escrow-ledger/pkg/id"
)

var hundred = decimal.NewFromInt(100)

// Usecase drives payout requests through
// pending -> approved -> processing -> completed | failed.
type Usecase struct {
	d   usecase.Deps
	cfg Config
}

func NewUsecase(d usecase.Deps, cfg Config) *Usecase {
	if cfg.Currency == "" {
		cfg.Currency = "IDR"
	}
	return &Usecase{d: d.WithDefaults(), cfg: cfg}
}

// Fee returns the fee charged on amount, rounded to cents.
func (c Config) Fee(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(c.FeePercent).Div(hundred).Add(c.FeeFixed).Round(2)
}

// Create records a pending request. The balance check against a linked
// account is advisory; Process re-checks under lock.
func (u *Usecase) Create(ctx context.Context, in CreateInput) (p *payout.Request, err error) {
	const op = "payout.create"
	defer func(start time.Time) { u.d.Observe(op, start, err) }(time.Now())

	switch {
	case in.UserID == "":
		return nil, domain.Validation(op, "user is required")
	case !in.Type.Valid():
		return nil, domain.Validation(op, "unknown payout type")
	case !in.Method.Valid():
		return nil, domain.Validation(op, "unknown payout method")
	case in.Method.External() && in.Recipient.Name == "":
		return nil, domain.Validation(op, "recipient name is required")
	}
	if err := domain.CheckAmount(op, in.Amount); err != nil {
		return nil, err
	}
	fee := u.cfg.Fee(in.Amount)
	net := in.Amount.Sub(fee)
	if !net.IsPositive() {
		return nil, domain.Validation(op, "amount does not cover the payout fee")
	}

	p = &payout.Request{
		ID:              id.NewID32(),
		Number:          id.NewNumber("PAY"),
		UserID:          in.UserID,
		EscrowAccountID: in.EscrowAccountID,
		Type:            in.Type,
		Amount:          in.Amount,
		Fee:             fee,
		NetAmount:       net,
		Currency:        u.cfg.Currency,
		Method:          in.Method,
		Status:          payout.StatusPending,
		Recipient:       in.Recipient,
	}

	err = u.d.UoW.WithinTx(ctx, func(r uow.Repos) error {
		if in.EscrowAccountID != nil {
			a, err := r.Accounts.GetByID(ctx, *in.EscrowAccountID)
			if err != nil {
				return err
			}
			if err := a.EnsureActive(op); err != nil {
				return err
			}
			if in.Amount.GreaterThan(a.AvailableBalance) {
				return domain.E(domain.KindInsufficientFunds, op, "available balance is too low")
			}
			p.Currency = a.Currency
		}
		return r.Payouts.Create(ctx, p)
	})
	if err != nil {
		return nil, err
	}

	snap := *p
	u.d.Effects.Run(ctx, "notify.payout_created", func(ctx context.Context) error {
		return u.d.Notifier.NotifyPayoutCreated(ctx, snap)
	})
	return p, nil
}

func (u *Usecase) Approve(ctx context.Context, payoutID string, in ApproveInput) (p *payout.Request, err error) {
	const op = "payout.approve"
	defer func(start time.Time) { u.d.Observe(op, start, err) }(time.Now())

	if in.ApproverID == "" {
		return nil, domain.Validation(op, "approver is required")
	}
	err = u.d.UoW.WithinTx(ctx, func(r uow.Repos) error {
		var err error
		if p, err = r.Payouts.GetByIDForUpdate(ctx, payoutID); err != nil {
			return err
		}
		if p.Status != payout.StatusPending {
			return domain.InvalidState(op, "payout is %s", p.Status)
		}
		if p.EscrowAccountID != nil {
			a, err := r.Accounts.GetByIDForUpdate(ctx, *p.EscrowAccountID)
			if err != nil {
				return err
			}
			if p.Amount.GreaterThan(a.AvailableBalance) {
				return domain.E(domain.KindInsufficientFunds, op, "available balance is too low")
			}
		}
		now := u.d.Now()
		p.Status = payout.StatusApproved
		p.ApprovedBy = in.ApproverID
		p.ApprovedAt = &now
		p.ApprovalNotes = in.Notes
		return r.Payouts.Save(ctx, p)
	})
	if err != nil {
		return nil, err
	}

	snap := *p
	u.d.Effects.Run(ctx, "notify.payout_approved", func(ctx context.Context) error {
		return u.d.Notifier.NotifyPayoutApproved(ctx, snap)
	})
	return p, nil
}

func (u *Usecase) Reject(ctx context.Context, payoutID, reason string) (p *payout.Request, err error) {
	const op = "payout.reject"
	defer func(start time.Time) { u.d.Observe(op, start, err) }(time.Now())

	p, err = u.move(ctx, op, payoutID, payout.StatusRejected, func(p *payout.Request) {
		p.RejectionReason = reason
	})
	if err != nil {
		return nil, err
	}
	snap := *p
	u.d.Effects.Run(ctx, "notify.payout_rejected", func(ctx context.Context) error {
		return u.d.Notifier.NotifyPayoutRejected(ctx, snap)
	})
	return p, nil
}

// Cancel withdraws a request before processing starts.
func (u *Usecase) Cancel(ctx context.Context, payoutID, reason string) (p *payout.Request, err error) {
	const op = "payout.cancel"
	defer func(start time.Time) { u.d.Observe(op, start, err) }(time.Now())

	return u.move(ctx, op, payoutID, payout.StatusCancelled, func(p *payout.Request) {
		now := u.d.Now()
		p.CancelledAt = &now
		p.FailureReason = reason
	})
}

func (u *Usecase) move(ctx context.Context, op, payoutID string, to payout.Status, mutate func(p *payout.Request)) (*payout.Request, error) {
	var p *payout.Request
	err := u.d.UoW.WithinTx(ctx, func(r uow.Repos) error {
		var err error
		if p, err = r.Payouts.GetByIDForUpdate(ctx, payoutID); err != nil {
			return err
		}
		if !payout.CanTransition(p.Status, to) {
			return domain.InvalidState(op, "payout is %s", p.Status)
		}
		p.Status = to
		mutate(p)
		return r.Payouts.Save(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Process moves an approved payout's money out. The withdrawal commits under
// the payout and account locks before the processor is called. A processor
// failure marks the payout failed without reversing the withdrawal; an
// account short of funds marks it failed with no withdrawal. Both return the
// payout with a nil error.
func (u *Usecase) Process(ctx context.Context, payoutID string) (p *payout.Request, err error) {
	const op = "payout.process"
	defer func(start time.Time) { u.d.Observe(op, start, err) }(time.Now())

	var withdrawal *domain.Transaction
	err = u.d.UoW.WithinTx(ctx, func(r uow.Repos) error {
		var err error
		if p, err = r.Payouts.GetByIDForUpdate(ctx, payoutID); err != nil {
			return err
		}
		// status guard after the lock: a concurrent or repeated call sees processing
		if p.Status != payout.StatusApproved {
			return domain.InvalidState(op, "payout is %s", p.Status)
		}
		now := u.d.Now()

		if p.EscrowAccountID != nil {
			a, err := r.Accounts.GetByIDForUpdate(ctx, *p.EscrowAccountID)
			if err != nil {
				return err
			}
			withdrawal, err = ledger.Post(ctx, r, a, ledger.Entry{
				Type:        domain.TxWithdrawal,
				Direction:   domain.Debit,
				Amount:      p.Amount,
				UserID:      p.UserID,
				Description: "payout " + p.Number,
				Metadata: map[string]any{
					domain.MetaPayoutID: p.ID,
					"fee":               p.Fee.StringFixed(2),
					"net_amount":        p.NetAmount.StringFixed(2),
				},
				At: now,
			}, op)
			if errors.Is(err, domain.ErrInsufficientFunds) {
				p.Status = payout.StatusFailed
				p.FailureReason = "insufficient escrow balance"
				return r.Payouts.Save(ctx, p)
			}
			if err != nil {
				return err
			}
			p.TransactionID = &withdrawal.ID
		}

		p.Status = payout.StatusProcessing
		p.ProcessedAt = &now
		return r.Payouts.Save(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	if p.Status == payout.StatusFailed {
		u.d.Logger.Warn("payout failed", zap.String("payout_id", p.ID), zap.String("reason", p.FailureReason))
		return p, nil
	}
	if withdrawal != nil {
		tx := *withdrawal
		u.d.Effects.Run(ctx, "notify.transaction", func(ctx context.Context) error {
			return u.d.Notifier.NotifyTransaction(ctx, tx)
		})
	}

	var (
		res  port.PaymentResult
		perr error
	)
	if p.Method.External() {
		res, perr = u.sendToProcessor(ctx, p)
	}

	err = u.d.UoW.WithinTx(ctx, func(r uow.Repos) error {
		locked, err := r.Payouts.GetByIDForUpdate(ctx, p.ID)
		if err != nil {
			return err
		}
		if locked.Status != payout.StatusProcessing {
			return domain.InvalidState(op, "payout is %s", locked.Status)
		}
		locked.ExternalRef = res.TransactionID
		if perr != nil || res.Status == port.GatewayFailed {
			locked.Status = payout.StatusFailed
			locked.FailureReason = "payout failed at processor"
		} else {
			now := u.d.Now()
			locked.Status = payout.StatusCompleted
			locked.CompletedAt = &now
		}
		p = locked
		return r.Payouts.Save(ctx, locked)
	})
	if err != nil {
		// funds already left escrow; the payout stays processing for reconciliation
		u.d.Logger.Error("record payout outcome", zap.String("payout_id", payoutID), zap.Error(err))
		return nil, err
	}

	if p.Status == payout.StatusFailed {
		u.d.Logger.Warn("payout failed after withdrawal",
			zap.String("payout_id", p.ID),
			zap.String("external_ref", p.ExternalRef),
			zap.Error(perr),
		)
		return p, nil
	}
	snap := *p
	u.d.Effects.Run(ctx, "notify.payout_completed", func(ctx context.Context) error {
		return u.d.Notifier.NotifyPayoutCompleted(ctx, snap)
	})
	return p, nil
}

func (u *Usecase) sendToProcessor(ctx context.Context, p *payout.Request) (port.PaymentResult, error) {
	if u.d.Gateway == nil {
		return port.PaymentResult{}, errors.New("no payment gateway configured")
	}
	return u.d.Gateway.ProcessPayout(ctx, port.PayoutRequest{
		Amount:      p.NetAmount,
		Currency:    p.Currency,
		Recipient:   p.Recipient,
		Method:      p.Method,
		Description: "payout " + p.Number,
	})
}

// ProcessApproved sweeps approved payouts oldest first, one at a time.
// Failures are isolated and counted.
func (u *Usecase) ProcessApproved(ctx context.Context, limit int) (usecase.BatchResult, error) {
	var pending []payout.Request
	err := u.d.UoW.WithinTx(ctx, func(r uow.Repos) error {
		var err error
		pending, err = r.Payouts.ListByStatus(ctx, payout.StatusApproved, limit)
		return err
	})
	if err != nil {
		return usecase.BatchResult{}, err
	}

	var res usecase.BatchResult
	for i := range pending {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		p, err := u.Process(ctx, pending[i].ID)
		switch {
		case err != nil:
			res.Fail(pending[i].ID, err.Error())
		case p.Status == payout.StatusFailed:
			res.Fail(p.ID, p.FailureReason)
		default:
			res.Processed++
		}
	}
	u.d.Metrics.RecordBatch("payout.process_approved", res.Processed, res.Failed)
	u.d.Logger.Info("payout sweep finished", zap.Int("processed", res.Processed), zap.Int("failed", res.Failed))
	return res, nil
}

func (u *Usecase) Get(ctx context.Context, payoutID string) (*payout.Request, error) {
	var p *payout.Request
	err := u.d.UoW.WithinTx(ctx, func(r uow.Repos) error {
		var err error
		p, err = r.Payouts.GetByID(ctx, payoutID)
		return err
	})
	return p, err
}

func (u *Usecase) ListByStatus(ctx context.Context, st payout.Status, limit int) ([]payout.Request, error) {
	var out []payout.Request
	err := u.d.UoW.WithinTx(ctx, func(r uow.Repos) error {
		var err error
		out, err = r.Payouts.ListByStatus(ctx, st, limit)
		return err
	})
	return out, err
}
