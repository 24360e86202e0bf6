package loan

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrInvalidTransition = errors.New("loan not in a state that can be disbursed")
	ErrOverDisbursed     = errors.New("disbursed amount would exceed principal")
)

type State string

const (
	StateProposed  State = "proposed"
	StateApproved  State = "approved"
	StateInvested  State = "invested"
	StateDisbursed State = "disbursed"
	StateRejected  State = "rejected"
)

// Disbursable states accept principal releases from escrow.
func (s State) Disbursable() bool { return s == StateApproved || s == StateInvested }

type Loan struct {
	ID              uint64          `gorm:"primaryKey;column:id" json:"-"`
	LoanID          string          `gorm:"size:32;uniqueIndex:ux_loans_loan_id_active" json:"loan_id"`
	BorrowerID      string          `gorm:"size:32;index:idx_loans_borrower_active" json:"borrower_id"`
	Principal       decimal.Decimal `gorm:"type:decimal(20,2)" json:"principal"`
	DisbursedAmount decimal.Decimal `gorm:"type:decimal(20,2)" json:"disbursed_amount"`
	State           State           `gorm:"size:16;default:'proposed'" json:"state"`
	StateUpdatedAt  time.Time       `gorm:"autoCreateTime" json:"state_updated_at"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (Loan) TableName() string { return "loans" }

// RecordDisbursement adds amount to DisbursedAmount and moves the loan to
// disbursed once the principal is fully released.
func (l *Loan) RecordDisbursement(amount decimal.Decimal, at time.Time) error {
	if !l.State.Disbursable() {
		return ErrInvalidTransition
	}
	next := l.DisbursedAmount.Add(amount)
	if next.GreaterThan(l.Principal) {
		return ErrOverDisbursed
	}
	l.DisbursedAmount = next
	if next.Equal(l.Principal) {
		l.State = StateDisbursed
		l.StateUpdatedAt = at
	}
	return nil
}
