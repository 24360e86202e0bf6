package ledger

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	domain "escrow-ledger/internal/domain/ledger"
	"escrow-ledger/internal/domain/uow"
	"escrow-ledger/internal/port"
	"escrow-ledger/internal/usecase"
)

type Config struct {
	WebhookSecret string
}

// Usecase records money movements on escrow accounts. Every balance change
// goes through Post under the account lock.
type Usecase struct {
	d   usecase.Deps
	cfg Config
}

func NewUsecase(d usecase.Deps, cfg Config) *Usecase {
	return &Usecase{d: d.WithDefaults(), cfg: cfg}
}

func (u *Usecase) Deposit(ctx context.Context, in DepositInput) (tx *domain.Transaction, err error) {
	const op = "ledger.deposit"
	defer func(start time.Time) { u.d.Observe(op, start, err) }(time.Now())
	return u.move(ctx, op, in, domain.TxDeposit, domain.Credit)
}

func (u *Usecase) Withdraw(ctx context.Context, in WithdrawInput) (tx *domain.Transaction, err error) {
	const op = "ledger.withdraw"
	defer func(start time.Time) { u.d.Observe(op, start, err) }(time.Now())
	return u.move(ctx, op, in, domain.TxWithdrawal, domain.Debit)
}

func (u *Usecase) move(ctx context.Context, op string, in DepositInput, typ domain.TransactionType, dir domain.Direction) (*domain.Transaction, error) {
	if err := domain.CheckAmount(op, in.Amount); err != nil {
		return nil, err
	}
	var tx *domain.Transaction
	err := u.d.UoW.WithinAccountTx(ctx, in.AccountID, func(r uow.Repos, a *domain.EscrowAccount) error {
		var err error
		tx, err = Post(ctx, r, a, Entry{
			Type:        typ,
			Direction:   dir,
			Amount:      in.Amount,
			UserID:      in.UserID,
			Description: in.Description,
			At:          u.d.Now(),
		}, op)
		return err
	})
	if err != nil {
		return nil, err
	}
	u.notify(ctx, *tx)
	return tx, nil
}

// Refund reverses a completed transaction's balance effect with a new refund
// row and marks the original refunded. The processor refund runs after
// commit; its failure is logged and annotated but never undoes the local refund.
func (u *Usecase) Refund(ctx context.Context, in RefundInput) (refund *domain.Transaction, err error) {
	const op = "ledger.refund"
	defer func(start time.Time) { u.d.Observe(op, start, err) }(time.Now())

	var orig *domain.Transaction
	err = u.d.UoW.WithinTx(ctx, func(r uow.Repos) error {
		o, err := r.Transactions.GetByIDForUpdate(ctx, in.TransactionID)
		if err != nil {
			return err
		}
		switch {
		case o.Status != domain.TxStatusCompleted:
			return domain.InvalidState(op, "transaction is %s", o.Status)
		case o.Type == domain.TxTransfer, o.Type == domain.TxRefund:
			return domain.InvalidState(op, "%s transactions cannot be refunded", o.Type)
		case o.EscrowAccountID == nil:
			return domain.InvalidState(op, "transaction has no escrow account")
		}

		a, err := r.Accounts.GetByIDForUpdate(ctx, *o.EscrowAccountID)
		if err != nil {
			return err
		}
		refund, err = Post(ctx, r, a, Entry{
			Type:            domain.TxRefund,
			Direction:       o.Direction.Opposite(),
			Amount:          o.Amount,
			UserID:          o.UserID,
			LoanID:          o.LoanID,
			PaymentMethodID: o.PaymentMethodID,
			Description:     in.Reason,
			Metadata: map[string]any{
				domain.MetaRefundOf:     o.ID,
				domain.MetaRefundReason: in.Reason,
			},
			At: u.d.Now(),
		}, op)
		if err != nil {
			return err
		}

		o.Status = domain.TxStatusRefunded
		o.Annotate(domain.MetaRefundedBy, refund.ID)
		orig = o
		return r.Transactions.Save(ctx, o)
	})
	if err != nil {
		return nil, err
	}

	if orig.ExternalRef != "" && u.d.Gateway != nil {
		u.refundAtProcessor(ctx, orig, refund, in.Reason)
	}
	u.notify(ctx, *refund)
	return refund, nil
}

func (u *Usecase) refundAtProcessor(ctx context.Context, orig, refund *domain.Transaction, reason string) {
	amount := orig.Amount
	res, perr := u.d.Gateway.RefundPayment(ctx, orig.ExternalRef, &amount, reason)
	if perr != nil {
		u.d.Logger.Warn("processor refund failed; local refund stands",
			zap.String("transaction_id", orig.ID),
			zap.String("refund_id", refund.ID),
			zap.Error(perr),
		)
	}

	err := u.d.UoW.WithinTx(ctx, func(r uow.Repos) error {
		t, err := r.Transactions.GetByIDForUpdate(ctx, refund.ID)
		if err != nil {
			return err
		}
		if perr != nil {
			t.Annotate(domain.MetaProcessorRefundStat, string(port.GatewayFailed))
		} else {
			t.Annotate(domain.MetaProcessorRefundID, res.RefundID)
			t.Annotate(domain.MetaProcessorRefundStat, string(res.Status))
		}
		if err := r.Transactions.Save(ctx, t); err != nil {
			return err
		}
		refund.Metadata = t.Metadata
		return nil
	})
	if err != nil {
		u.d.Logger.Error("annotate refund with processor outcome", zap.String("refund_id", refund.ID), zap.Error(err))
	}
}

// DepositFromPaymentMethod charges a verified payment method and credits the
// account with the captured amount. The charge runs outside any lock. A
// declined or failed charge is recorded as a failed deposit with no balance
// effect and returned together with an ExternalProcessor error; a pending
// charge is recorded as pending and settles through SettleCharge.
func (u *Usecase) DepositFromPaymentMethod(ctx context.Context, in ChargeInput) (tx *domain.Transaction, err error) {
	const op = "ledger.deposit_from_payment_method"
	defer func(start time.Time) { u.d.Observe(op, start, err) }(time.Now())

	if err := domain.CheckAmount(op, in.Amount); err != nil {
		return nil, err
	}
	if u.d.Gateway == nil {
		return nil, domain.E(domain.KindExternalProcessor, op, "no payment gateway configured")
	}

	var (
		pm   *domain.PaymentMethod
		acct *domain.EscrowAccount
	)
	err = u.d.UoW.WithinTx(ctx, func(r uow.Repos) error {
		var err error
		if pm, err = r.PaymentMethods.GetByID(ctx, in.PaymentMethodID); err != nil {
			return err
		}
		acct, err = r.Accounts.GetByID(ctx, in.AccountID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !pm.Usable(u.d.Now()) {
		return nil, domain.InvalidState(op, "payment method is not usable")
	}
	if err := acct.EnsureActive(op); err != nil {
		return nil, err
	}

	res, gerr := u.d.Gateway.ProcessPayment(ctx, port.PaymentRequest{
		Amount:      in.Amount,
		Currency:    acct.Currency,
		MethodToken: pm.GatewayToken,
		CustomerRef: pm.CustomerRef,
		Description: in.Description,
		Metadata:    map[string]string{"escrow_account_id": acct.ID},
	})

	entry := Entry{
		Type:            domain.TxDeposit,
		Direction:       domain.Credit,
		Amount:          in.Amount,
		UserID:          pm.UserID,
		PaymentMethodID: &pm.ID,
		ExternalRef:     res.TransactionID,
		Description:     in.Description,
		At:              u.d.Now(),
	}

	switch {
	case gerr != nil || res.Status == port.GatewayFailed:
		failed := newTransaction(acct, entry, domain.TxStatusFailed)
		failed.FailureReason = "payment declined by processor"
		if gerr != nil {
			failed.FailureReason = "payment processor error"
		}
		if err := u.d.UoW.WithinTx(ctx, func(r uow.Repos) error { return r.Transactions.Create(ctx, failed) }); err != nil {
			return nil, err
		}
		u.notify(ctx, *failed)
		if gerr == nil {
			gerr = errors.New("charge declined")
		}
		return failed, &domain.Error{Kind: domain.KindExternalProcessor, Op: op, Msg: failed.FailureReason, Err: gerr}

	case res.Status == port.GatewayPending:
		pending := newTransaction(acct, entry, domain.TxStatusPending)
		if err := u.d.UoW.WithinTx(ctx, func(r uow.Repos) error { return r.Transactions.Create(ctx, pending) }); err != nil {
			return nil, err
		}
		u.notify(ctx, *pending)
		return pending, nil
	}

	err = u.d.UoW.WithinAccountTx(ctx, acct.ID, func(r uow.Repos, a *domain.EscrowAccount) error {
		var err error
		tx, err = Post(ctx, r, a, entry, op)
		return err
	})
	if err != nil {
		// money was captured but the ledger refused it; hand it back
		u.d.Effects.Run(ctx, "gateway.refund_rejected_charge", func(ctx context.Context) error {
			_, rerr := u.d.Gateway.RefundPayment(ctx, res.TransactionID, nil, "ledger rejected deposit")
			return rerr
		})
		return nil, err
	}
	u.notify(ctx, *tx)
	return tx, nil
}

// SettleCharge resolves a pending deposit once the processor reports its
// final status. A captured charge the account can no longer take, because it
// was frozen, closed or filled meanwhile, is recorded as failed and handed
// back to the processor.
func (u *Usecase) SettleCharge(ctx context.Context, externalRef string, status port.GatewayStatus) (tx *domain.Transaction, err error) {
	const op = "ledger.settle_charge"
	defer func(start time.Time) { u.d.Observe(op, start, err) }(time.Now())

	var rejected error
	err = u.d.UoW.WithinTx(ctx, func(r uow.Repos) error {
		found, err := r.Transactions.List(ctx, domain.TxFilter{ExternalRef: externalRef, Type: domain.TxDeposit, Limit: 1})
		if err != nil {
			return err
		}
		if len(found) == 0 {
			return domain.NotFound(op, "transaction")
		}
		t, err := r.Transactions.GetByIDForUpdate(ctx, found[0].ID)
		if err != nil {
			return err
		}
		tx = t
		if t.Status != domain.TxStatusPending {
			return domain.InvalidState(op, "transaction is %s", t.Status)
		}

		switch status {
		case port.GatewaySucceeded:
			a, err := r.Accounts.GetByIDForUpdate(ctx, *t.EscrowAccountID)
			if err != nil {
				return err
			}
			if aerr := apply(ctx, r, a, t.Direction, t.Amount, op); aerr != nil {
				if k := domain.KindOf(aerr); k != domain.KindInvalidState && k != domain.KindLimitExceeded {
					return aerr
				}
				rejected = aerr
				t.Status = domain.TxStatusFailed
				t.FailureReason = "captured charge rejected by ledger"
				break
			}
			now := u.d.Now()
			t.Status = domain.TxStatusCompleted
			t.CompletedAt = &now
		case port.GatewayFailed:
			t.Status = domain.TxStatusFailed
			t.FailureReason = "payment failed at processor"
		default:
			return nil
		}
		return r.Transactions.Save(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	if rejected != nil {
		u.d.Logger.Warn("captured charge rejected; refunding at processor",
			zap.String("transaction_id", tx.ID),
			zap.String("external_ref", externalRef),
			zap.Error(rejected),
		)
		if u.d.Gateway != nil {
			u.d.Effects.Run(ctx, "gateway.refund_rejected_charge", func(ctx context.Context) error {
				_, rerr := u.d.Gateway.RefundPayment(ctx, externalRef, nil, "ledger rejected deposit")
				return rerr
			})
		}
	}
	if tx.Status.Terminal() {
		u.notify(ctx, *tx)
	}
	return tx, nil
}

// HandleWebhook verifies and acknowledges a processor event. Charge events
// settle the pending deposit they reference.
func (u *Usecase) HandleWebhook(ctx context.Context, payload []byte, signature string) (port.WebhookAck, error) {
	const op = "ledger.webhook"
	if u.d.Gateway == nil {
		return port.WebhookAck{}, domain.E(domain.KindExternalProcessor, op, "no payment gateway configured")
	}
	ev, err := u.d.Gateway.ParseWebhookEvent(payload, signature, u.cfg.WebhookSecret)
	if err != nil {
		if domain.KindOf(err) == "" {
			err = domain.Wrap(domain.KindValidation, op, err)
		}
		return port.WebhookAck{}, err
	}
	ack, err := u.d.Gateway.HandleWebhookEvent(ctx, ev)
	if err != nil {
		return ack, err
	}
	if strings.HasPrefix(ev.Type, "charge.") && ev.TransactionID != "" {
		_, serr := u.SettleCharge(ctx, ev.TransactionID, ev.Status)
		switch {
		case serr == nil:
			ack.Handled = true
		case errors.Is(serr, domain.ErrNotFound), errors.Is(serr, domain.ErrInvalidState):
			// unknown or already settled charge: acknowledged, nothing to do
		default:
			return ack, serr
		}
	}
	return ack, nil
}

func (u *Usecase) Get(ctx context.Context, id string) (*domain.Transaction, error) {
	var tx *domain.Transaction
	err := u.d.UoW.WithinTx(ctx, func(r uow.Repos) error {
		var err error
		tx, err = r.Transactions.GetByID(ctx, id)
		return err
	})
	return tx, err
}

func (u *Usecase) GetByNumber(ctx context.Context, number string) (*domain.Transaction, error) {
	var tx *domain.Transaction
	err := u.d.UoW.WithinTx(ctx, func(r uow.Repos) error {
		var err error
		tx, err = r.Transactions.GetByNumber(ctx, number)
		return err
	})
	return tx, err
}

// List takes no locks and may observe slightly stale rows.
func (u *Usecase) List(ctx context.Context, f domain.TxFilter) ([]domain.Transaction, error) {
	var out []domain.Transaction
	err := u.d.UoW.WithinTx(ctx, func(r uow.Repos) error {
		var err error
		out, err = r.Transactions.List(ctx, f)
		return err
	})
	return out, err
}

func (u *Usecase) Statistics(ctx context.Context, f domain.TxFilter) (Statistics, error) {
	f.Limit, f.Offset = 0, 0
	txs, err := u.List(ctx, f)
	if err != nil {
		return Statistics{}, err
	}
	return Summarize(txs), nil
}

// Summarize aggregates txs; see Statistics.
func Summarize(txs []domain.Transaction) Statistics {
	st := Statistics{
		ByType:   map[domain.TransactionType]TypeTotals{},
		ByStatus: map[domain.TransactionStatus]int{},
	}
	for i := range txs {
		t := &txs[i]
		st.Count++
		tt := st.ByType[t.Type]
		tt.Count++
		tt.Amount = tt.Amount.Add(t.Amount)
		st.ByType[t.Type] = tt
		st.ByStatus[t.Status]++

		if !t.Status.Settled() {
			continue
		}
		if t.Direction == domain.Debit {
			st.Debits = st.Debits.Add(t.Amount)
		} else {
			st.Credits = st.Credits.Add(t.Amount)
		}
	}
	st.Net = st.Credits.Sub(st.Debits)
	return st
}

func (u *Usecase) notify(ctx context.Context, tx domain.Transaction) {
	u.d.Effects.Run(ctx, "notify.transaction", func(ctx context.Context) error {
		return u.d.Notifier.NotifyTransaction(ctx, tx)
	})
}
