// Package usecase holds what every workflow package shares: its collaborators
// and the bookkeeping around each operation.
package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"escrow-ledger/internal/domain/disbursement"
	"escrow-ledger/internal/domain/ledger"
	"escrow-ledger/internal/domain/payout"
	"escrow-ledger/internal/domain/uow"
	"escrow-ledger/internal/infrastructure/logging"
	"escrow-ledger/internal/infrastructure/metrics"
	"escrow-ledger/internal/port"
)

type Deps struct {
	UoW      uow.UnitOfWork
	Gateway  port.PaymentGateway
	Notifier port.Notifier
	Loans    port.LoanStatus
	Effects  port.SideEffects
	Logger   *logging.Logger
	Metrics  metrics.Collector
	Now      func() time.Time
}

// WithDefaults fills the optional collaborators. UoW, and Gateway or Loans
// where a workflow needs them, stay the caller's responsibility.
func (d Deps) WithDefaults() Deps {
	d.Logger = logging.OrNop(d.Logger)
	d.Metrics = metrics.OrNoOp(d.Metrics)
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	if d.Notifier == nil {
		d.Notifier = nopNotifier{}
	}
	if d.Effects == nil {
		d.Effects = inline{log: d.Logger}
	}
	return d
}

// With returns a copy whose logger is named after a component.
func (d Deps) With(component string) Deps {
	d.Logger = logging.OrNop(d.Logger).Named(component)
	return d
}

// Observe records latency and outcome of op; outcome is "ok" or the error kind.
func (d Deps) Observe(op string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(ledger.KindOf(err))
		if outcome == "" {
			outcome = "error"
		}
	}
	d.Metrics.RecordOperation(op, outcome, time.Since(start))
}

type inline struct{ log *logging.Logger }

func (i inline) Run(ctx context.Context, name string, fn func(ctx context.Context) error) {
	if err := fn(context.WithoutCancel(ctx)); err != nil {
		i.log.Warn("side effect failed", zap.String("effect", name), zap.Error(err))
	}
}

type nopNotifier struct{}

func (nopNotifier) NotifyTransaction(context.Context, ledger.Transaction) error { return nil }

func (nopNotifier) NotifyPayoutCreated(context.Context, payout.Request) error { return nil }

func (nopNotifier) NotifyPayoutApproved(context.Context, payout.Request) error { return nil }

func (nopNotifier) NotifyPayoutCompleted(context.Context, payout.Request) error { return nil }

func (nopNotifier) NotifyPayoutRejected(context.Context, payout.Request) error { return nil }

func (nopNotifier) NotifyDisbursementCreated(context.Context, disbursement.Disbursement) error {
	return nil
}

func (nopNotifier) NotifyDisbursementApproved(context.Context, disbursement.Disbursement) error {
	return nil
}

func (nopNotifier) NotifyDisbursementCompleted(context.Context, disbursement.Disbursement) error {
	return nil
}
