package port

import (
	"context"

	"github.com/shopspring/decimal"

	"escrow-ledger/internal/domain/disbursement"
	"escrow-ledger/internal/domain/ledger"
	"escrow-ledger/internal/domain/payout"
)

type GatewayStatus string

const (
	GatewaySucceeded GatewayStatus = "succeeded"
	GatewayPending   GatewayStatus = "pending"
	GatewayFailed    GatewayStatus = "failed"
)

type PaymentRequest struct {
	Amount      decimal.Decimal
	Currency    string
	MethodToken string
	CustomerRef string
	Description string
	Metadata    map[string]string
}

type PaymentResult struct {
	TransactionID string
	Status        GatewayStatus
}

type PayoutRequest struct {
	Amount      decimal.Decimal
	Currency    string
	Recipient   payout.Recipient
	Method      payout.Method
	Description string
}

type RefundResult struct {
	RefundID string
	Status   GatewayStatus
}

type VerifyResult struct {
	Verified bool
	Details  map[string]string
}

type WebhookEvent struct {
	ID            string            `json:"id"`
	Type          string            `json:"type"`
	TransactionID string            `json:"transaction_id"`
	Status        GatewayStatus     `json:"status"`
	Data          map[string]string `json:"data,omitempty"`
}

type WebhookAck struct {
	Received bool
	Handled  bool
}

// PaymentGateway is the external payment processor.
type PaymentGateway interface {
	ProcessPayment(ctx context.Context, req PaymentRequest) (PaymentResult, error)
	ProcessPayout(ctx context.Context, req PayoutRequest) (PaymentResult, error)
	// amount nil refunds the full original amount
	RefundPayment(ctx context.Context, originalTxID string, amount *decimal.Decimal, reason string) (RefundResult, error)
	VerifyPaymentMethod(ctx context.Context, methodToken string) (VerifyResult, error)
	ParseWebhookEvent(payload []byte, signature, secret string) (WebhookEvent, error)
	HandleWebhookEvent(ctx context.Context, ev WebhookEvent) (WebhookAck, error)
}

type LoanSummary struct {
	LoanID          string
	BorrowerID      string
	Principal       decimal.Decimal
	DisbursedAmount decimal.Decimal
	State           string
	Disbursable     bool
}

// LoanStatus keeps the loan's outstanding view in sync without the ledger
// owning loan semantics.
type LoanStatus interface {
	GetLoan(ctx context.Context, loanID string) (LoanSummary, error)
	NotifyDisbursed(ctx context.Context, loanID string, incremental decimal.Decimal) error
}

// Notifier is fire-and-forget; its failures never touch ledger state.
type Notifier interface {
	NotifyTransaction(ctx context.Context, tx ledger.Transaction) error
	NotifyPayoutCreated(ctx context.Context, p payout.Request) error
	NotifyPayoutApproved(ctx context.Context, p payout.Request) error
	NotifyPayoutCompleted(ctx context.Context, p payout.Request) error
	NotifyPayoutRejected(ctx context.Context, p payout.Request) error
	NotifyDisbursementCreated(ctx context.Context, d disbursement.Disbursement) error
	NotifyDisbursementApproved(ctx context.Context, d disbursement.Disbursement) error
	NotifyDisbursementCompleted(ctx context.Context, d disbursement.Disbursement) error
}

// SideEffects runs work after a unit of work commits. Failures are absorbed.
type SideEffects interface {
	Run(ctx context.Context, name string, fn func(ctx context.Context) error)
}
