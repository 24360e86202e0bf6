package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"escrow-ledger/internal/domain/payout"
	"escrow-ledger/internal/infrastructure/logging"
	"escrow-ledger/internal/infrastructure/metrics"
)

type failureCounter struct {
	metrics.NoOp
	failed map[string]int
}

func (f *failureCounter) RecordSideEffectFailure(name string) { f.failed[name]++ }

func observed() (*logging.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return &logging.Logger{Logger: zap.New(core)}, logs
}

func TestDispatcher_IsolatesFailures(t *testing.T) {
	log, logs := observed()
	mc := &failureCounter{failed: map[string]int{}}
	d := NewDispatcher(log, mc)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := false
	d.Run(ctx, "ok", func(ctx context.Context) error {
		ran = true
		if ctx.Err() != nil {
			t.Fatalf("side effects must not inherit caller cancellation")
		}
		return nil
	})
	d.Run(ctx, "err", func(context.Context) error { return errors.New("smtp down") })
	d.Run(ctx, "panic", func(context.Context) error { panic("nil map") })

	if !ran {
		t.Fatal("effect did not run")
	}
	if mc.failed["err"] != 1 || mc.failed["panic"] != 1 || mc.failed["ok"] != 0 {
		t.Fatalf("failure counts = %v", mc.failed)
	}
	if logs.FilterMessage("side effect failed").Len() != 2 {
		t.Fatalf("expected two warnings, got %d", logs.Len())
	}
}

func TestDispatcher_NilIsNoop(t *testing.T) {
	var d *Dispatcher
	d.Run(context.Background(), "x", func(context.Context) error {
		t.Fatal("nil dispatcher must not run effects")
		return nil
	})
}

func TestDispatcher_DeadlineApplied(t *testing.T) {
	d := NewDispatcher(nil, nil)
	d.Run(context.Background(), "deadline", func(ctx context.Context) error {
		dl, ok := ctx.Deadline()
		if !ok || time.Until(dl) > 5*time.Second {
			t.Fatalf("expected bounded deadline, got %v %v", dl, ok)
		}
		return nil
	})
}

func TestLogger_WritesEvents(t *testing.T) {
	log, logs := observed()
	n := NewLogger(log)
	p := payout.Request{ID: "p1", Number: "PAY-1", Status: payout.StatusCompleted}
	if err := n.NotifyPayoutCompleted(context.Background(), p); err != nil {
		t.Fatalf("NotifyPayoutCompleted: %v", err)
	}
	entries := logs.FilterMessage("payout completed").All()
	if len(entries) != 1 || entries[0].ContextMap()["payout_id"] != "p1" {
		t.Fatalf("unexpected log entries: %+v", entries)
	}
}
