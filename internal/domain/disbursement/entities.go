package disbursement

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusScheduled Status = "scheduled"
	StatusApproved  Status = "approved"
	StatusPartial   Status = "partial"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

func (s Status) Processable() bool { return s == StatusApproved || s == StatusPartial }

type InstallmentStatus string

const (
	InstallmentPending   InstallmentStatus = "pending"
	InstallmentDisbursed InstallmentStatus = "disbursed"
)

type Installment struct {
	Amount        decimal.Decimal   `json:"amount"`
	DueDate       time.Time         `json:"due_date"`
	Status        InstallmentStatus `json:"status"`
	DisbursedAt   *time.Time        `json:"disbursed_at,omitempty"`
	TransactionID string            `json:"transaction_id,omitempty"`
}

// Table: disbursements
type Disbursement struct {
	ID              string          `gorm:"column:id;type:char(32);primaryKey" json:"id"`
	Number          string          `gorm:"column:number;size:40;not null;uniqueIndex" json:"number"`
	LoanID          string          `gorm:"column:loan_id;type:char(32);not null;index" json:"loan_id"`
	BorrowerID      string          `gorm:"column:borrower_id;type:char(32);not null" json:"borrower_id"`
	EscrowAccountID *string         `gorm:"column:escrow_account_id;type:char(32);index" json:"escrow_account_id,omitempty"`
	Amount          decimal.Decimal `gorm:"column:amount;type:decimal(20,2);not null" json:"amount"`
	DisbursedAmount decimal.Decimal `gorm:"column:disbursed_amount;type:decimal(20,2);not null" json:"disbursed_amount"`
	Currency        string          `gorm:"column:currency;size:3;not null" json:"currency"`
	Status          Status          `gorm:"column:status;size:16;not null;index" json:"status"`
	Schedule        []Installment   `gorm:"column:schedule;type:text;serializer:json" json:"schedule,omitempty"`
	ApprovedBy      string          `gorm:"column:approved_by;type:char(32)" json:"approved_by,omitempty"`
	ApprovedAt      *time.Time      `gorm:"column:approved_at" json:"approved_at,omitempty"`
	ApprovalNotes   string          `gorm:"column:approval_notes;type:text" json:"approval_notes,omitempty"`
	FailureReason   string          `gorm:"column:failure_reason;type:text" json:"failure_reason,omitempty"`
	CompletedAt     *time.Time      `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Disbursement) TableName() string { return "disbursements" }

func (d *Disbursement) PendingAmount() decimal.Decimal { return d.Amount.Sub(d.DisbursedAmount) }

// NextInstallment returns the first installment still pending, or nil.
func (d *Disbursement) NextInstallment() *Installment {
	for i := range d.Schedule {
		if d.Schedule[i].Status == InstallmentPending {
			return &d.Schedule[i]
		}
	}
	return nil
}

// Apply books amount against the disbursement. Installments whose cumulative
// scheduled total is covered by DisbursedAmount flip to disbursed.
func (d *Disbursement) Apply(amount decimal.Decimal, txID string, at time.Time) {
	d.DisbursedAmount = d.DisbursedAmount.Add(amount)
	if d.DisbursedAmount.Equal(d.Amount) {
		d.Status = StatusCompleted
		d.CompletedAt = &at
	} else {
		d.Status = StatusPartial
	}

	covered := decimal.Zero
	for i := range d.Schedule {
		covered = covered.Add(d.Schedule[i].Amount)
		if d.Schedule[i].Status == InstallmentPending && covered.LessThanOrEqual(d.DisbursedAmount) {
			d.Schedule[i].Status = InstallmentDisbursed
			d.Schedule[i].DisbursedAt = &at
			d.Schedule[i].TransactionID = txID
		}
	}
}
