package mysql

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	loanDomain "escrow-ledger/internal/domain/loan"
	"escrow-ledger/internal/domain/ledger"
	"escrow-ledger/internal/port"
)

type LoanRepository struct{ db *gorm.DB }

func NewLoanRepository(db *gorm.DB) *LoanRepository { return &LoanRepository{db: db} }

var _ loanDomain.Repository = (*LoanRepository)(nil)

// Tx runs fn in a db transaction, passing a repo bound to the tx
func (r *LoanRepository) Tx(ctx context.Context, fn func(repo loanDomain.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&LoanRepository{db: tx})
	})
}

func (r *LoanRepository) Create(ctx context.Context, l *loanDomain.Loan) error {
	return translate("loan.create", "loan", r.db.WithContext(ctx).Create(l).Error)
}

func (r *LoanRepository) Save(ctx context.Context, l *loanDomain.Loan) error {
	return translate("loan.save", "loan", r.db.WithContext(ctx).Save(l).Error)
}

func (r *LoanRepository) GetByLoanID(ctx context.Context, loanID string) (*loanDomain.Loan, error) {
	var out loanDomain.Loan
	if err := r.db.WithContext(ctx).Where("loan_id = ?", loanID).First(&out).Error; err != nil {
		return nil, translate("loan.get", "loan", err)
	}
	return &out, nil
}

func (r *LoanRepository) GetByLoanIDForUpdate(ctx context.Context, loanID string) (*loanDomain.Loan, error) {
	var out loanDomain.Loan
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("loan_id = ?", loanID).
		First(&out).Error
	if err != nil {
		return nil, translate("loan.lock", "loan", err)
	}
	return &out, nil
}

// LoanStatus serves port.LoanStatus from the loans table.
type LoanStatus struct {
	db  *gorm.DB
	now func() time.Time
}

func NewLoanStatus(db *gorm.DB) *LoanStatus {
	return &LoanStatus{db: db, now: func() time.Time { return time.Now().UTC() }}
}

var _ port.LoanStatus = (*LoanStatus)(nil)

func (s *LoanStatus) GetLoan(ctx context.Context, loanID string) (port.LoanSummary, error) {
	l, err := NewLoanRepository(s.db).GetByLoanID(ctx, loanID)
	if err != nil {
		return port.LoanSummary{}, err
	}
	return port.LoanSummary{
		LoanID:          l.LoanID,
		BorrowerID:      l.BorrowerID,
		Principal:       l.Principal,
		DisbursedAmount: l.DisbursedAmount,
		State:           string(l.State),
		Disbursable:     l.State.Disbursable(),
	}, nil
}

func (s *LoanStatus) NotifyDisbursed(ctx context.Context, loanID string, incremental decimal.Decimal) error {
	const op = "loan.notify_disbursed"
	return NewLoanRepository(s.db).Tx(ctx, func(repo loanDomain.Repository) error {
		l, err := repo.GetByLoanIDForUpdate(ctx, loanID)
		if err != nil {
			return err
		}
		switch err := l.RecordDisbursement(incremental, s.now()); {
		case errors.Is(err, loanDomain.ErrInvalidTransition):
			return ledger.InvalidState(op, "loan is %s", l.State)
		case errors.Is(err, loanDomain.ErrOverDisbursed):
			return ledger.E(ledger.KindLimitExceeded, op, "loan principal would be exceeded")
		case err != nil:
			return err
		}
		return repo.Save(ctx, l)
	})
}
