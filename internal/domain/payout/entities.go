package payout

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusApproved   Status = "approved"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusRejected   Status = "rejected"
	StatusCancelled  Status = "cancelled"
	StatusFailed     Status = "failed"
)

var transitions = map[Status][]Status{
	StatusPending:    {StatusApproved, StatusRejected, StatusCancelled},
	StatusApproved:   {StatusProcessing, StatusFailed, StatusCancelled},
	StatusProcessing: {StatusCompleted, StatusFailed},
}

// CanTransition reports whether from -> to is a forward edge of the payout state machine.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type Type string

const (
	TypeWithdrawal     Type = "withdrawal"
	TypeInvestorReturn Type = "investor_return"
	TypeLoanProceeds   Type = "loan_proceeds"
	TypeRefund         Type = "refund"
)

func (t Type) Valid() bool {
	switch t {
	case TypeWithdrawal, TypeInvestorReturn, TypeLoanProceeds, TypeRefund:
		return true
	}
	return false
}

type Method string

const (
	MethodBankTransfer Method = "bank_transfer"
	MethodMobileMoney  Method = "mobile_money"
	MethodCard         Method = "card"
	MethodWallet       Method = "wallet"
)

// External methods need a processor call to move the money off-platform.
func (m Method) External() bool { return m != MethodWallet }

func (m Method) Valid() bool {
	switch m {
	case MethodBankTransfer, MethodMobileMoney, MethodCard, MethodWallet:
		return true
	}
	return false
}

type Recipient struct {
	Name          string `json:"name"`
	AccountNumber string `json:"account_number,omitempty"`
	BankCode      string `json:"bank_code,omitempty"`
	PhoneNumber   string `json:"phone_number,omitempty"`
	Email         string `json:"email,omitempty"`
}

// Table: payout_requests
type Request struct {
	ID              string          `gorm:"column:id;type:char(32);primaryKey" json:"id"`
	Number          string          `gorm:"column:number;size:40;not null;uniqueIndex" json:"number"`
	UserID          string          `gorm:"column:user_id;type:char(32);not null;index" json:"user_id"`
	EscrowAccountID *string         `gorm:"column:escrow_account_id;type:char(32);index" json:"escrow_account_id,omitempty"`
	Type            Type            `gorm:"column:type;size:24;not null" json:"type"`
	Amount          decimal.Decimal `gorm:"column:amount;type:decimal(20,2);not null" json:"amount"`
	Fee             decimal.Decimal `gorm:"column:fee;type:decimal(20,2);not null" json:"fee"`
	NetAmount       decimal.Decimal `gorm:"column:net_amount;type:decimal(20,2);not null" json:"net_amount"`
	Currency        string          `gorm:"column:currency;size:3;not null" json:"currency"`
	Method          Method          `gorm:"column:method;size:16;not null" json:"method"`
	Status          Status          `gorm:"column:status;size:16;not null;index" json:"status"`
	Recipient       Recipient       `gorm:"column:recipient;type:text;serializer:json" json:"recipient"`
	ApprovedBy      string          `gorm:"column:approved_by;type:char(32)" json:"approved_by,omitempty"`
	ApprovedAt      *time.Time      `gorm:"column:approved_at" json:"approved_at,omitempty"`
	ApprovalNotes   string          `gorm:"column:approval_notes;type:text" json:"approval_notes,omitempty"`
	RejectionReason string          `gorm:"column:rejection_reason;type:text" json:"rejection_reason,omitempty"`
	FailureReason   string          `gorm:"column:failure_reason;type:text" json:"failure_reason,omitempty"`
	TransactionID   *string         `gorm:"column:transaction_id;type:char(32)" json:"transaction_id,omitempty"`
	ExternalRef     string          `gorm:"column:external_ref;size:128" json:"external_ref,omitempty"`
	ProcessedAt     *time.Time      `gorm:"column:processed_at" json:"processed_at,omitempty"`
	CompletedAt     *time.Time      `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CancelledAt     *time.Time      `gorm:"column:cancelled_at" json:"cancelled_at,omitempty"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Request) TableName() string { return "payout_requests" }
