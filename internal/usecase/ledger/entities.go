package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	domain "escrow-ledger/internal/domain/ledger"
)

// Entry describes one balance movement on a locked account.
type Entry struct {
	// ID is generated when empty; callers preset it to cross-reference legs
	ID              string
	Type            domain.TransactionType
	Direction       domain.Direction
	Amount          decimal.Decimal
	UserID          string
	LoanID          *string
	PaymentMethodID *string
	ExternalRef     string
	Description     string
	Metadata        map[string]any
	At              time.Time
}

type DepositInput struct {
	AccountID   string          `json:"account_id"`
	Amount      decimal.Decimal `json:"amount"`
	UserID      string          `json:"user_id,omitempty"`
	Description string          `json:"description,omitempty"`
}

type WithdrawInput = DepositInput

type RefundInput struct {
	TransactionID string `json:"transaction_id"`
	Reason        string `json:"reason"`
}

type ChargeInput struct {
	AccountID       string          `json:"account_id"`
	PaymentMethodID string          `json:"payment_method_id"`
	Amount          decimal.Decimal `json:"amount"`
	Description     string          `json:"description,omitempty"`
}

type TypeTotals struct {
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// Statistics aggregates a filtered slice of the ledger. Credits, Debits and
// Net only count settled transactions.
type Statistics struct {
	Count    int                                   `json:"count"`
	ByType   map[domain.TransactionType]TypeTotals `json:"by_type"`
	ByStatus map[domain.TransactionStatus]int      `json:"by_status"`
	Credits  decimal.Decimal                       `json:"credits"`
	Debits   decimal.Decimal                       `json:"debits"`
	Net      decimal.Decimal                       `json:"net"`
}
