package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"escrow-ledger/internal/domain/ledger"
	"escrow-ledger/internal/infrastructure/metrics"
)

type recordingMetrics struct {
	metrics.NoOp
	mu       sync.Mutex
	outcomes map[string]string
}

func (m *recordingMetrics) RecordOperation(op, outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.outcomes == nil {
		m.outcomes = map[string]string{}
	}
	m.outcomes[op] = outcome
}

func TestObserve_Outcomes(t *testing.T) {
	m := &recordingMetrics{}
	d := Deps{Metrics: m}.WithDefaults()

	tests := []struct {
		op   string
		err  error
		want string
	}{
		{"ok", nil, "ok"},
		{"kind", ledger.E(ledger.KindInsufficientFunds, "x", "low"), "insufficient_funds"},
		{"sentinel", ledger.ErrNotFound, "not_found"},
		{"plain", errors.New("boom"), "error"},
	}
	for _, tc := range tests {
		d.Observe(tc.op, time.Now(), tc.err)
		if got := m.outcomes[tc.op]; got != tc.want {
			t.Fatalf("%s outcome = %q, want %q", tc.op, got, tc.want)
		}
	}
}

func TestWithDefaults_InlineEffectsSwallowErrors(t *testing.T) {
	d := Deps{}.WithDefaults()
	if d.Logger == nil || d.Metrics == nil || d.Notifier == nil || d.Effects == nil || d.Now == nil {
		t.Fatalf("defaults not filled: %+v", d)
	}
	if loc := d.Now().Location(); loc != time.UTC {
		t.Fatalf("Now location = %v", loc)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ran := false
	d.Effects.Run(ctx, "test", func(ctx context.Context) error {
		ran = true
		if ctx.Err() != nil {
			t.Fatalf("effect saw the caller's cancellation")
		}
		return errors.New("ignored")
	})
	if !ran {
		t.Fatalf("effect did not run")
	}

	named := d.With("payout")
	if named.Logger == d.Logger {
		t.Fatalf("With must name a new logger")
	}
}

func TestBatchResult_Fail(t *testing.T) {
	var b BatchResult
	b.Processed++
	b.Fail("a", "insufficient")
	b.Fail("b", "frozen")
	if b.Failed != 2 || len(b.Errors) != 2 || b.Errors[1].ID != "b" {
		t.Fatalf("batch = %+v", b)
	}
}
