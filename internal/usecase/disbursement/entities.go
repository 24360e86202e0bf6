package disbursement

import (
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	// Window widens the batch cut-off: installments due before asOf+Window run.
	Window   time.Duration
	Currency string
}

type CreateInput struct {
	LoanID          string          `json:"loan_id"`
	BorrowerID      string          `json:"borrower_id,omitempty"`
	EscrowAccountID *string         `json:"escrow_account_id,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
}

type InstallmentInput struct {
	Amount  decimal.Decimal `json:"amount"`
	DueDate time.Time       `json:"due_date"`
}

type ApproveInput struct {
	ApproverID string `json:"approver_id"`
	Notes      string `json:"notes,omitempty"`
}
