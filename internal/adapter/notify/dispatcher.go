package notify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"escrow-ledger/internal/infrastructure/logging"
	"escrow-ledger/internal/infrastructure/metrics"
)

// Dispatcher runs side effects after a unit of work has committed. A failing
// or panicking effect is logged and counted; it never reaches the caller.
type Dispatcher struct {
	log     *logging.Logger
	metrics metrics.Collector
	timeout time.Duration
}

func NewDispatcher(log *logging.Logger, mc metrics.Collector) *Dispatcher {
	return &Dispatcher{
		log:     logging.OrNop(log).Named("dispatch"),
		metrics: metrics.OrNoOp(mc),
		timeout: 5 * time.Second,
	}
}

// Run calls fn with a context detached from the caller's cancellation.
func (d *Dispatcher) Run(ctx context.Context, name string, fn func(ctx context.Context) error) {
	if d == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	if err := d.safe(ctx, fn); err != nil {
		d.metrics.RecordSideEffectFailure(name)
		d.log.Warn("side effect failed", zap.String("effect", name), zap.Error(err))
	}
}

func (d *Dispatcher) safe(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx)
}
