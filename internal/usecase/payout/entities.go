package payout

import (
	"github.com/shopspring/decimal"

	"escrow-ledger/internal/domain/payout"
)

type Config struct {
	FeePercent decimal.Decimal
	FeeFixed   decimal.Decimal
	// Currency applies to payouts without an escrow account.
	Currency string
}

type CreateInput struct {
	UserID          string           `json:"user_id"`
	EscrowAccountID *string          `json:"escrow_account_id,omitempty"`
	Type            payout.Type      `json:"type"`
	Amount          decimal.Decimal  `json:"amount"`
	Method          payout.Method    `json:"method"`
	Recipient       payout.Recipient `json:"recipient"`
}

type ApproveInput struct {
	ApproverID string `json:"approver_id"`
	Notes      string `json:"notes,omitempty"`
}
