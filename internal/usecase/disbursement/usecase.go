package disbursement

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"escrow-ledger/internal/domain/disbursement"
	domain "escrow-ledger/internal/domain/ledger"
	"escrow-ledger/internal/domain/uow"
	"escrow-ledger/internal/usecase"
	"escrow-ledger/internal/usecase/ledger"
	"escrow-ledger/pkg/id"
)

// Usecase releases loan principal from escrow, in one go or by schedule.
type Usecase struct {
	d   usecase.Deps
	cfg Config
}

func NewUsecase(d usecase.Deps, cfg Config) *Usecase {
	if cfg.Window <= 0 {
		cfg.Window = 24 * time.Hour
	}
	if cfg.Currency == "" {
		cfg.Currency = "IDR"
	}
	return &Usecase{d: d.WithDefaults(), cfg: cfg}
}

// Create validates the amount against the loan's undisbursed principal and
// records a pending disbursement.
func (u *Usecase) Create(ctx context.Context, in CreateInput) (ds *disbursement.Disbursement, err error) {
	const op = "disbursement.create"
	defer func(start time.Time) { u.d.Observe(op, start, err) }(time.Now())

	if in.LoanID == "" {
		return nil, domain.Validation(op, "loan is required")
	}
	if err := domain.CheckAmount(op, in.Amount); err != nil {
		return nil, err
	}
	borrower := in.BorrowerID
	if u.d.Loans != nil {
		l, err := u.d.Loans.GetLoan(ctx, in.LoanID)
		if err != nil {
			return nil, err
		}
		if !l.Disbursable {
			return nil, domain.InvalidState(op, "loan is %s", l.State)
		}
		if in.Amount.GreaterThan(l.Principal.Sub(l.DisbursedAmount)) {
			return nil, domain.E(domain.KindLimitExceeded, op, "amount exceeds the undisbursed principal")
		}
		if borrower == "" {
			borrower = l.BorrowerID
		}
	}
	if borrower == "" {
		return nil, domain.Validation(op, "borrower is required")
	}

	ds = &disbursement.Disbursement{
		ID:              id.NewID32(),
		Number:          id.NewNumber("DSB"),
		LoanID:          in.LoanID,
		BorrowerID:      borrower,
		EscrowAccountID: in.EscrowAccountID,
		Amount:          in.Amount,
		DisbursedAmount: decimal.Zero,
		Currency:        u.cfg.Currency,
		Status:          disbursement.StatusPending,
	}
	err = u.d.UoW.WithinTx(ctx, func(r uow.Repos) error {
		if in.EscrowAccountID != nil {
			a, err := r.Accounts.GetByID(ctx, *in.EscrowAccountID)
			if err != nil {
				return err
			}
			ds.Currency = a.Currency
		}
		return r.Disbursements.Create(ctx, ds)
	})
	if err != nil {
		return nil, err
	}

	snap := *ds
	u.d.Effects.Run(ctx, "notify.disbursement_created", func(ctx context.Context) error {
		return u.d.Notifier.NotifyDisbursementCreated(ctx, snap)
	})
	return ds, nil
}

// Schedule replaces the installment plan of a pending or scheduled
// disbursement. Installments are kept in due-date order.
func (u *Usecase) Schedule(ctx context.Context, disbursementID string, items []InstallmentInput) (ds *disbursement.Disbursement, err error) {
	const op = "disbursement.schedule"
	defer func(start time.Time) { u.d.Observe(op, start, err) }(time.Now())

	if len(items) == 0 {
		return nil, domain.Validation(op, "schedule needs at least one installment")
	}
	plan := make([]disbursement.Installment, 0, len(items))
	total := decimal.Zero
	for _, it := range items {
		if err := domain.CheckAmount(op, it.Amount); err != nil {
			return nil, err
		}
		if it.DueDate.IsZero() {
			return nil, domain.Validation(op, "installment due date is required")
		}
		total = total.Add(it.Amount)
		plan = append(plan, disbursement.Installment{
			Amount:  it.Amount,
			DueDate: it.DueDate.UTC(),
			Status:  disbursement.InstallmentPending,
		})
	}
	sort.SliceStable(plan, func(i, j int) bool { return plan[i].DueDate.Before(plan[j].DueDate) })

	err = u.d.UoW.WithinTx(ctx, func(r uow.Repos) error {
		var err error
		if ds, err = r.Disbursements.GetByIDForUpdate(ctx, disbursementID); err != nil {
			return err
		}
		if ds.Status != disbursement.StatusPending && ds.Status != disbursement.StatusScheduled {
			return domain.InvalidState(op, "disbursement is %s", ds.Status)
		}
		if total.GreaterThan(ds.Amount) {
			return domain.E(domain.KindLimitExceeded, op, "installments exceed the disbursement amount")
		}
		ds.Schedule = plan
		ds.Status = disbursement.StatusScheduled
		return r.Disbursements.Save(ctx, ds)
	})
	if err != nil {
		return nil, err
	}
	return ds, nil
}

func (u *Usecase) Approve(ctx context.Context, disbursementID string, in ApproveInput) (ds *disbursement.Disbursement, err error) {
	const op = "disbursement.approve"
	defer func(start time.Time) { u.d.Observe(op, start, err) }(time.Now())

	if in.ApproverID == "" {
		return nil, domain.Validation(op, "approver is required")
	}
	err = u.d.UoW.WithinTx(ctx, func(r uow.Repos) error {
		var err error
		if ds, err = r.Disbursements.GetByIDForUpdate(ctx, disbursementID); err != nil {
			return err
		}
		if ds.Status != disbursement.StatusPending && ds.Status != disbursement.StatusScheduled {
			return domain.InvalidState(op, "disbursement is %s", ds.Status)
		}
		now := u.d.Now()
		ds.Status = disbursement.StatusApproved
		ds.ApprovedBy = in.ApproverID
		ds.ApprovedAt = &now
		ds.ApprovalNotes = in.Notes
		return r.Disbursements.Save(ctx, ds)
	})
	if err != nil {
		return nil, err
	}

	snap := *ds
	u.d.Effects.Run(ctx, "notify.disbursement_approved", func(ctx context.Context) error {
		return u.d.Notifier.NotifyDisbursementApproved(ctx, snap)
	})
	return ds, nil
}

// Process releases amount, or everything still pending when amount is nil.
// The escrow debit and the disbursement update commit together under the
// disbursement and account locks; the loan is told afterwards.
func (u *Usecase) Process(ctx context.Context, disbursementID string, amount *decimal.Decimal) (ds *disbursement.Disbursement, err error) {
	const op = "disbursement.process"
	defer func(start time.Time) { u.d.Observe(op, start, err) }(time.Now())

	var (
		released decimal.Decimal
		tx       *domain.Transaction
	)
	err = u.d.UoW.WithinTx(ctx, func(r uow.Repos) error {
		var err error
		if ds, err = r.Disbursements.GetByIDForUpdate(ctx, disbursementID); err != nil {
			return err
		}
		if !ds.Status.Processable() {
			return domain.InvalidState(op, "disbursement is %s", ds.Status)
		}
		pending := ds.PendingAmount()
		released = pending
		if amount != nil {
			released = *amount
		}
		if err := domain.CheckAmount(op, released); err != nil {
			return err
		}
		if released.GreaterThan(pending) {
			return domain.E(domain.KindLimitExceeded, op, "amount exceeds the pending disbursement")
		}

		now := u.d.Now()
		var txID string
		if ds.EscrowAccountID != nil {
			a, err := r.Accounts.GetByIDForUpdate(ctx, *ds.EscrowAccountID)
			if err != nil {
				return err
			}
			loanID := ds.LoanID
			tx, err = ledger.Post(ctx, r, a, ledger.Entry{
				Type:        domain.TxLoanDisbursement,
				Direction:   domain.Debit,
				Amount:      released,
				UserID:      ds.BorrowerID,
				LoanID:      &loanID,
				Description: "disbursement " + ds.Number,
				Metadata:    map[string]any{domain.MetaDisbursementID: ds.ID},
				At:          now,
			}, op)
			if err != nil {
				return err
			}
			txID = tx.ID
		}
		ds.Apply(released, txID, now)
		return r.Disbursements.Save(ctx, ds)
	})
	if err != nil {
		return nil, err
	}

	u.d.Logger.Info("disbursement processed",
		zap.String("disbursement_id", ds.ID),
		zap.String("status", string(ds.Status)),
	)
	if u.d.Loans != nil {
		loanID, inc := ds.LoanID, released
		u.d.Effects.Run(ctx, "loan.notify_disbursed", func(ctx context.Context) error {
			return u.d.Loans.NotifyDisbursed(ctx, loanID, inc)
		})
	}
	if tx != nil {
		snap := *tx
		u.d.Effects.Run(ctx, "notify.transaction", func(ctx context.Context) error {
			return u.d.Notifier.NotifyTransaction(ctx, snap)
		})
	}
	if ds.Status == disbursement.StatusCompleted {
		snap := *ds
		u.d.Effects.Run(ctx, "notify.disbursement_completed", func(ctx context.Context) error {
			return u.d.Notifier.NotifyDisbursementCompleted(ctx, snap)
		})
	}
	return ds, nil
}

// DueAmount is what the batch releases for ds at asOf: the cumulative
// scheduled total through the next pending installment, less what has been
// disbursed. It is zero when nothing is due inside the window.
func DueAmount(ds *disbursement.Disbursement, asOf time.Time, window time.Duration) decimal.Decimal {
	next := ds.NextInstallment()
	if next == nil || !next.DueDate.Before(asOf.Add(window)) {
		return decimal.Zero
	}
	through := decimal.Zero
	for i := range ds.Schedule {
		through = through.Add(ds.Schedule[i].Amount)
		if &ds.Schedule[i] == next {
			break
		}
	}
	due := through.Sub(ds.DisbursedAmount)
	if pending := ds.PendingAmount(); due.GreaterThan(pending) {
		due = pending
	}
	if !due.IsPositive() {
		return decimal.Zero
	}
	return due
}

// ProcessScheduledBatch releases the next due installment of every approved
// or partial disbursement with a schedule. Items run one at a time and a
// failure never stops the sweep.
func (u *Usecase) ProcessScheduledBatch(ctx context.Context, asOf time.Time) (usecase.BatchResult, error) {
	var candidates []disbursement.Disbursement
	err := u.d.UoW.WithinTx(ctx, func(r uow.Repos) error {
		var err error
		candidates, err = r.Disbursements.ListWithSchedule(ctx, []disbursement.Status{
			disbursement.StatusApproved,
			disbursement.StatusPartial,
		})
		return err
	})
	if err != nil {
		return usecase.BatchResult{}, err
	}

	var res usecase.BatchResult
	for i := range candidates {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		ds := &candidates[i]
		due := DueAmount(ds, asOf, u.cfg.Window)
		if due.IsZero() {
			res.Skipped++
			continue
		}
		if _, err := u.Process(ctx, ds.ID, &due); err != nil {
			u.d.Logger.Warn("scheduled disbursement failed", zap.String("disbursement_id", ds.ID), zap.Error(err))
			res.Fail(ds.ID, err.Error())
			continue
		}
		res.Processed++
	}
	u.d.Metrics.RecordBatch("disbursement.scheduled", res.Processed, res.Failed)
	u.d.Logger.Info("scheduled disbursements finished",
		zap.Int("processed", res.Processed),
		zap.Int("failed", res.Failed),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}

func (u *Usecase) Get(ctx context.Context, disbursementID string) (*disbursement.Disbursement, error) {
	var ds *disbursement.Disbursement
	err := u.d.UoW.WithinTx(ctx, func(r uow.Repos) error {
		var err error
		ds, err = r.Disbursements.GetByID(ctx, disbursementID)
		return err
	})
	return ds, err
}
