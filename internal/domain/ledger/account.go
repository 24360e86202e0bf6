package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

type AccountType string

const (
	AccountTypeLoan       AccountType = "loan"
	AccountTypeInterest   AccountType = "interest"
	AccountTypeFee        AccountType = "fee"
	AccountTypeCollateral AccountType = "collateral"
	AccountTypeReserve    AccountType = "reserve"
)

func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeLoan, AccountTypeInterest, AccountTypeFee, AccountTypeCollateral, AccountTypeReserve:
		return true
	}
	return false
}

type AccountStatus string

const (
	AccountStatusPending AccountStatus = "pending"
	AccountStatusActive  AccountStatus = "active"
	AccountStatusFrozen  AccountStatus = "frozen"
	AccountStatusClosed  AccountStatus = "closed"
)

// Table: escrow_accounts
type EscrowAccount struct {
	ID               string           `gorm:"column:id;type:char(32);primaryKey" json:"id"`
	LoanID           *string          `gorm:"column:loan_id;type:char(32);index" json:"loan_id,omitempty"`
	OwnerID          string           `gorm:"column:owner_id;type:char(32);index" json:"owner_id"`
	Type             AccountType      `gorm:"column:type;size:16;not null" json:"type"`
	Status           AccountStatus    `gorm:"column:status;size:16;not null;index" json:"status"`
	Currency         string           `gorm:"column:currency;size:3;not null" json:"currency"`
	CurrentBalance   decimal.Decimal  `gorm:"column:current_balance;type:decimal(20,2);not null" json:"current_balance"`
	AvailableBalance decimal.Decimal  `gorm:"column:available_balance;type:decimal(20,2);not null" json:"available_balance"`
	MaximumBalance   *decimal.Decimal `gorm:"column:maximum_balance;type:decimal(20,2)" json:"maximum_balance,omitempty"`
	FrozenReason     string           `gorm:"column:frozen_reason;type:text" json:"frozen_reason,omitempty"`
	ClosedReason     string           `gorm:"column:closed_reason;type:text" json:"closed_reason,omitempty"`
	FrozenAt         *time.Time       `gorm:"column:frozen_at" json:"frozen_at,omitempty"`
	ClosedAt         *time.Time       `gorm:"column:closed_at" json:"closed_at,omitempty"`
	CreatedAt        time.Time        `gorm:"column:created_at;autoCreateTime;index" json:"created_at"`
	UpdatedAt        time.Time        `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (EscrowAccount) TableName() string { return "escrow_accounts" }

// EnsureActive guards every balance movement: pending, frozen and closed
// accounts reject deposits, withdrawals and transfers.
func (a *EscrowAccount) EnsureActive(op string) error {
	if a.Status != AccountStatusActive {
		return InvalidState(op, "account is %s", a.Status)
	}
	return nil
}

// Credit adds amount to both balances, honouring MaximumBalance.
// Nothing is mutated when an error is returned.
func (a *EscrowAccount) Credit(op string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return Validation(op, "amount must be positive")
	}
	next := a.CurrentBalance.Add(amount)
	if a.MaximumBalance != nil && next.GreaterThan(*a.MaximumBalance) {
		return E(KindLimitExceeded, op, "maximum balance would be exceeded")
	}
	a.CurrentBalance = next
	a.AvailableBalance = a.AvailableBalance.Add(amount)
	return nil
}

// Debit removes amount from both balances. Nothing is mutated when an error
// is returned.
func (a *EscrowAccount) Debit(op string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return Validation(op, "amount must be positive")
	}
	if amount.GreaterThan(a.AvailableBalance) {
		return E(KindInsufficientFunds, op, "available balance is too low")
	}
	a.CurrentBalance = a.CurrentBalance.Sub(amount)
	a.AvailableBalance = a.AvailableBalance.Sub(amount)
	return nil
}

// CheckInvariants verifies 0 <= available <= current and closed => zero.
func (a *EscrowAccount) CheckInvariants() error {
	switch {
	case a.CurrentBalance.IsNegative(), a.AvailableBalance.IsNegative():
		return InvalidState("account.invariants", "negative balance")
	case a.AvailableBalance.GreaterThan(a.CurrentBalance):
		return InvalidState("account.invariants", "available exceeds current balance")
	case a.Status == AccountStatusClosed && !a.CurrentBalance.IsZero():
		return InvalidState("account.invariants", "closed account holds funds")
	}
	return nil
}
