package notify

import (
	"context"

	"go.uber.org/zap"

	"escrow-ledger/internal/domain/disbursement"
	"escrow-ledger/internal/domain/ledger"
	"escrow-ledger/internal/domain/payout"
	"escrow-ledger/internal/infrastructure/logging"
	"escrow-ledger/internal/port"
)

// Logger is a Notifier that writes each event as a structured log line. It
// stands in for delivery, which lives outside the ledger.
type Logger struct{ log *logging.Logger }

func NewLogger(log *logging.Logger) *Logger {
	return &Logger{log: logging.OrNop(log).Named("notify")}
}

var _ port.Notifier = (*Logger)(nil)

func (n *Logger) NotifyTransaction(_ context.Context, tx ledger.Transaction) error {
	n.log.Info("transaction recorded",
		zap.String("transaction_id", tx.ID),
		zap.String("number", tx.Number),
		zap.String("type", string(tx.Type)),
		zap.String("status", string(tx.Status)),
		zap.String("user_id", tx.UserID),
	)
	return nil
}

func (n *Logger) payout(event string, p payout.Request) error {
	n.log.Info(event,
		zap.String("payout_id", p.ID),
		zap.String("number", p.Number),
		zap.String("status", string(p.Status)),
		zap.String("user_id", p.UserID),
	)
	return nil
}

func (n *Logger) NotifyPayoutCreated(_ context.Context, p payout.Request) error {
	return n.payout("payout created", p)
}

func (n *Logger) NotifyPayoutApproved(_ context.Context, p payout.Request) error {
	return n.payout("payout approved", p)
}

func (n *Logger) NotifyPayoutCompleted(_ context.Context, p payout.Request) error {
	return n.payout("payout completed", p)
}

func (n *Logger) NotifyPayoutRejected(_ context.Context, p payout.Request) error {
	return n.payout("payout rejected", p)
}

func (n *Logger) disbursement(event string, d disbursement.Disbursement) error {
	n.log.Info(event,
		zap.String("disbursement_id", d.ID),
		zap.String("number", d.Number),
		zap.String("loan_id", d.LoanID),
		zap.String("status", string(d.Status)),
	)
	return nil
}

func (n *Logger) NotifyDisbursementCreated(_ context.Context, d disbursement.Disbursement) error {
	return n.disbursement("disbursement created", d)
}

func (n *Logger) NotifyDisbursementApproved(_ context.Context, d disbursement.Disbursement) error {
	return n.disbursement("disbursement approved", d)
}

func (n *Logger) NotifyDisbursementCompleted(_ context.Context, d disbursement.Disbursement) error {
	return n.disbursement("disbursement completed", d)
}
