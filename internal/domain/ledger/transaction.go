package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TxDeposit          TransactionType = "deposit"
	TxWithdrawal       TransactionType = "withdrawal"
	TxTransfer         TransactionType = "transfer"
	TxLoanPayment      TransactionType = "loan_payment"
	TxLoanDisbursement TransactionType = "loan_disbursement"
	TxEscrowDeposit    TransactionType = "escrow_deposit"
	TxEscrowRelease    TransactionType = "escrow_release"
	TxFee              TransactionType = "fee"
	TxRefund           TransactionType = "refund"
)

type TransactionStatus string

const (
	TxStatusPending    TransactionStatus = "pending"
	TxStatusProcessing TransactionStatus = "processing"
	TxStatusCompleted  TransactionStatus = "completed"
	TxStatusFailed     TransactionStatus = "failed"
	TxStatusCancelled  TransactionStatus = "cancelled"
	TxStatusRefunded   TransactionStatus = "refunded"
)

// Terminal statuses never change again, except refunded which is reached from
// completed through Refund.
func (s TransactionStatus) Terminal() bool {
	switch s {
	case TxStatusCompleted, TxStatusFailed, TxStatusCancelled, TxStatusRefunded:
		return true
	}
	return false
}

// Settled reports whether the transaction's balance effect has been applied.
// A refunded transaction moved money once; its reversal is a separate refund row.
func (s TransactionStatus) Settled() bool {
	return s == TxStatusCompleted || s == TxStatusRefunded
}

// Direction is relative to the referenced escrow account.
type Direction string

const (
	Credit Direction = "credit"
	Debit  Direction = "debit"
)

func (d Direction) Opposite() Direction {
	if d == Credit {
		return Debit
	}
	return Credit
}

// Metadata keys written by the core.
const (
	MetaTransferID          = "transfer_id"
	MetaCounterpartTxID     = "counterpart_transaction_id"
	MetaCounterpartAccount  = "counterpart_account_id"
	MetaRefundOf            = "refund_of"
	MetaRefundedBy          = "refunded_by"
	MetaRefundReason        = "refund_reason"
	MetaProcessorRefundID   = "processor_refund_id"
	MetaProcessorRefundStat = "processor_refund_status"
	MetaPayoutID            = "payout_id"
	MetaDisbursementID      = "disbursement_id"
)

// Table: transactions
type Transaction struct {
	ID              string            `gorm:"column:id;type:char(32);primaryKey" json:"id"`
	Number          string            `gorm:"column:number;size:40;not null;uniqueIndex" json:"number"`
	LoanID          *string           `gorm:"column:loan_id;type:char(32);index" json:"loan_id,omitempty"`
	EscrowAccountID *string           `gorm:"column:escrow_account_id;type:char(32);index" json:"escrow_account_id,omitempty"`
	PaymentMethodID *string           `gorm:"column:payment_method_id;type:char(32)" json:"payment_method_id,omitempty"`
	UserID          string            `gorm:"column:user_id;type:char(32);index" json:"user_id"`
	Type            TransactionType   `gorm:"column:type;size:24;not null" json:"type"`
	Direction       Direction         `gorm:"column:direction;size:8;not null" json:"direction"`
	Status          TransactionStatus `gorm:"column:status;size:16;not null;index" json:"status"`
	Amount          decimal.Decimal   `gorm:"column:amount;type:decimal(20,2);not null" json:"amount"`
	Currency        string            `gorm:"column:currency;size:3;not null" json:"currency"`
	ExternalRef     string            `gorm:"column:external_ref;size:128;index" json:"external_ref,omitempty"`
	Description     string            `gorm:"column:description;type:text" json:"description,omitempty"`
	FailureReason   string            `gorm:"column:failure_reason;type:text" json:"failure_reason,omitempty"`
	Metadata        map[string]any    `gorm:"column:metadata;type:text;serializer:json" json:"metadata,omitempty"`
	CompletedAt     *time.Time        `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Transaction) TableName() string { return "transactions" }

// SignedAmount is the transaction's effect on its escrow account balance,
// zero when the effect was never applied.
func (t *Transaction) SignedAmount() decimal.Decimal {
	if !t.Status.Settled() || t.EscrowAccountID == nil {
		return decimal.Zero
	}
	if t.Direction == Debit {
		return t.Amount.Neg()
	}
	return t.Amount
}

func (t *Transaction) Annotate(key string, v any) {
	if t.Metadata == nil {
		t.Metadata = map[string]any{}
	}
	t.Metadata[key] = v
}

// CheckAmount rejects non-positive amounts and amounts finer than the
// two-decimal storage precision.
func CheckAmount(op string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return Validation(op, "amount must be positive")
	}
	if amount.Exponent() < -2 && !amount.Equal(amount.Round(2)) {
		return Validation(op, "amount has more than two decimal places")
	}
	return nil
}

// LedgerSum folds SignedAmount over txs.
func LedgerSum(txs []Transaction) decimal.Decimal {
	sum := decimal.Zero
	for i := range txs {
		sum = sum.Add(txs[i].SignedAmount())
	}
	return sum
}
