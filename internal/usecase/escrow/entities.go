package escrow

import (
	"github.com/shopspring/decimal"

	domain "escrow-ledger/internal/domain/ledger"
)

type OpenInput struct {
	LoanID         *string            `json:"loan_id,omitempty"`
	OwnerID        string             `json:"owner_id"`
	Type           domain.AccountType `json:"type"`
	Currency       string             `json:"currency,omitempty"`
	InitialAmount  decimal.Decimal    `json:"initial_amount"`
	MaximumBalance *decimal.Decimal   `json:"maximum_balance,omitempty"`
	// Pending opens the account inactive until Activate.
	Pending bool `json:"pending,omitempty"`
}

// Reconciliation compares an account's stored balance with its ledger.
type Reconciliation struct {
	AccountID        string          `json:"account_id"`
	CurrentBalance   decimal.Decimal `json:"current_balance"`
	LedgerSum        decimal.Decimal `json:"ledger_sum"`
	Drift            decimal.Decimal `json:"drift"`
	Balanced         bool            `json:"balanced"`
	TransactionCount int             `json:"transaction_count"`
}

type Totals struct {
	Accounts  int             `json:"accounts"`
	Current   decimal.Decimal `json:"current"`
	Available decimal.Decimal `json:"available"`
}

func (t Totals) add(a *domain.EscrowAccount) Totals {
	t.Accounts++
	t.Current = t.Current.Add(a.CurrentBalance)
	t.Available = t.Available.Add(a.AvailableBalance)
	return t
}

type Summary struct {
	Total    Totals                          `json:"total"`
	ByType   map[domain.AccountType]Totals   `json:"by_type"`
	ByStatus map[domain.AccountStatus]Totals `json:"by_status"`
}
