package escrow

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	domain "escrow-ledger/internal/domain/ledger"
	"escrow-ledger/internal/domain/uow"
	"escrow-ledger/internal/usecase"
	"escrow-ledger/internal/usecase/ledger"
	"escrow-ledger/pkg/id"
)

type Config struct {
	// Currency is used when OpenInput leaves it empty.
	Currency string
}

// Usecase owns the escrow account lifecycle:
// pending -> active <-> frozen -> closed.
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

// Open creates an account. A positive initial amount is booked as a completed
// deposit in the same tx so the balance always matches the ledger.
func (u *Usecase) Open(ctx context.Context, in OpenInput) (a *domain.EscrowAccount, err error) {
	const op = "escrow.open"
	defer func(start time.Time) { u.d.Observe(op, start, err) }(time.Now())

	if !in.Type.Valid() {
		return nil, domain.Validation(op, "unknown account type")
	}
	if in.OwnerID == "" {
		return nil, domain.Validation(op, "owner is required")
	}
	if in.InitialAmount.IsNegative() {
		return nil, domain.Validation(op, "initial amount must not be negative")
	}
	if in.InitialAmount.IsPositive() {
		if err := domain.CheckAmount(op, in.InitialAmount); err != nil {
			return nil, err
		}
	}
	if m := in.MaximumBalance; m != nil && (m.IsNegative() || in.InitialAmount.GreaterThan(*m)) {
		return nil, domain.E(domain.KindLimitExceeded, op, "initial amount exceeds maximum balance")
	}
	currency := in.Currency
	if currency == "" {
		currency = u.cfg.Currency
	}
	if len(currency) != 3 {
		return nil, domain.Validation(op, "currency must be a 3-letter code")
	}

	a = &domain.EscrowAccount{
		ID:               id.NewID32(),
		LoanID:           in.LoanID,
		OwnerID:          in.OwnerID,
		Type:             in.Type,
		Status:           domain.AccountStatusActive,
		Currency:         currency,
		CurrentBalance:   decimal.Zero,
		AvailableBalance: decimal.Zero,
		MaximumBalance:   in.MaximumBalance,
	}

	var funding *domain.Transaction
	err = u.d.UoW.WithinTx(ctx, func(r uow.Repos) error {
		if err := r.Accounts.Create(ctx, a); err != nil {
			return err
		}
		if in.InitialAmount.IsPositive() {
			var err error
			funding, err = ledger.Post(ctx, r, a, ledger.Entry{
				Type:        domain.TxDeposit,
				Direction:   domain.Credit,
				Amount:      in.InitialAmount,
				Description: "initial funding",
				At:          u.d.Now(),
			}, op)
			if err != nil {
				return err
			}
		}
		if in.Pending {
			a.Status = domain.AccountStatusPending
			return r.Accounts.Save(ctx, a)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.d.Logger.Info("escrow account opened",
		zap.String("account_id", a.ID),
		zap.String("type", string(a.Type)),
		zap.String("status", string(a.Status)),
	)
	if funding != nil {
		tx := *funding
		u.d.Effects.Run(ctx, "notify.transaction", func(ctx context.Context) error {
			return u.d.Notifier.NotifyTransaction(ctx, tx)
		})
	}
	return a, nil
}

func (u *Usecase) Activate(ctx context.Context, accountID string) (*domain.EscrowAccount, error) {
	return u.transition(ctx, "escrow.activate", accountID, func(a *domain.EscrowAccount, op string) error {
		if a.Status != domain.AccountStatusPending {
			return domain.InvalidState(op, "account is %s", a.Status)
		}
		a.Status = domain.AccountStatusActive
		return nil
	})
}

func (u *Usecase) Freeze(ctx context.Context, accountID, reason string) (*domain.EscrowAccount, error) {
	return u.transition(ctx, "escrow.freeze", accountID, func(a *domain.EscrowAccount, op string) error {
		if a.Status != domain.AccountStatusActive {
			return domain.InvalidState(op, "account is %s", a.Status)
		}
		now := u.d.Now()
		a.Status = domain.AccountStatusFrozen
		a.FrozenReason = reason
		a.FrozenAt = &now
		return nil
	})
}

func (u *Usecase) Unfreeze(ctx context.Context, accountID string) (*domain.EscrowAccount, error) {
	return u.transition(ctx, "escrow.unfreeze", accountID, func(a *domain.EscrowAccount, op string) error {
		if a.Status != domain.AccountStatusFrozen {
			return domain.InvalidState(op, "account is %s", a.Status)
		}
		a.Status = domain.AccountStatusActive
		a.FrozenReason = ""
		a.FrozenAt = nil
		return nil
	})
}

// Close is terminal and needs an empty account.
func (u *Usecase) Close(ctx context.Context, accountID, reason string) (*domain.EscrowAccount, error) {
	return u.transition(ctx, "escrow.close", accountID, func(a *domain.EscrowAccount, op string) error {
		if a.Status == domain.AccountStatusClosed {
			return domain.InvalidState(op, "account is already closed")
		}
		if !a.CurrentBalance.IsZero() || !a.AvailableBalance.IsZero() {
			return domain.InvalidState(op, "account still holds funds")
		}
		now := u.d.Now()
		a.Status = domain.AccountStatusClosed
		a.ClosedReason = reason
		a.ClosedAt = &now
		return nil
	})
}

func (u *Usecase) transition(ctx context.Context, op, accountID string, mutate func(a *domain.EscrowAccount, op string) error) (a *domain.EscrowAccount, err error) {
	defer func(start time.Time) { u.d.Observe(op, start, err) }(time.Now())

	err = u.d.UoW.WithinAccountTx(ctx, accountID, func(r uow.Repos, locked *domain.EscrowAccount) error {
		from := locked.Status
		if err := mutate(locked, op); err != nil {
			return err
		}
		if err := r.Accounts.Save(ctx, locked); err != nil {
			return err
		}
		u.d.Logger.Info("escrow account status changed",
			zap.String("account_id", locked.ID),
			zap.String("from", string(from)),
			zap.String("to", string(locked.Status)),
		)
		a = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (u *Usecase) Get(ctx context.Context, accountID string) (*domain.EscrowAccount, error) {
	var a *domain.EscrowAccount
	err := u.d.UoW.WithinTx(ctx, func(r uow.Repos) error {
		var err error
		a, err = r.Accounts.GetByID(ctx, accountID)
		return err
	})
	return a, err
}

func (u *Usecase) ListByLoan(ctx context.Context, loanID string) ([]domain.EscrowAccount, error) {
	return u.list(ctx, domain.AccountFilter{LoanID: loanID})
}

func (u *Usecase) list(ctx context.Context, f domain.AccountFilter) ([]domain.EscrowAccount, error) {
	var out []domain.EscrowAccount
	err := u.d.UoW.WithinTx(ctx, func(r uow.Repos) error {
		var err error
		out, err = r.Accounts.List(ctx, f)
		return err
	})
	return out, err
}

// Reconcile recomputes the ledger sum of an account and reports any drift
// from its stored balance. It takes no locks.
func (u *Usecase) Reconcile(ctx context.Context, accountID string) (rec Reconciliation, err error) {
	const op = "escrow.reconcile"
	defer func(start time.Time) { u.d.Observe(op, start, err) }(time.Now())

	var (
		a   *domain.EscrowAccount
		txs []domain.Transaction
	)
	err = u.d.UoW.WithinTx(ctx, func(r uow.Repos) error {
		var err error
		if a, err = r.Accounts.GetByID(ctx, accountID); err != nil {
			return err
		}
		txs, err = r.Transactions.List(ctx, domain.TxFilter{EscrowAccountID: accountID})
		return err
	})
	if err != nil {
		return Reconciliation{}, err
	}

	sum := domain.LedgerSum(txs)
	rec = Reconciliation{
		AccountID:        a.ID,
		CurrentBalance:   a.CurrentBalance,
		LedgerSum:        sum,
		Drift:            a.CurrentBalance.Sub(sum),
		TransactionCount: len(txs),
	}
	rec.Balanced = rec.Drift.IsZero()
	if !rec.Balanced {
		u.d.Logger.Error("escrow account out of balance",
			zap.String("account_id", a.ID),
			zap.String("drift", rec.Drift.StringFixed(2)),
		)
	}
	return rec, nil
}

// Summary totals balances over the accounts matching f.
func (u *Usecase) Summary(ctx context.Context, f domain.AccountFilter) (Summary, error) {
	accts, err := u.list(ctx, f)
	if err != nil {
		return Summary{}, err
	}
	s := Summary{
		ByType:   map[domain.AccountType]Totals{},
		ByStatus: map[domain.AccountStatus]Totals{},
	}
	for i := range accts {
		a := &accts[i]
		s.Total = s.Total.add(a)
		s.ByType[a.Type] = s.ByType[a.Type].add(a)
		s.ByStatus[a.Status] = s.ByStatus[a.Status].add(a)
	}
	return s, nil
}
