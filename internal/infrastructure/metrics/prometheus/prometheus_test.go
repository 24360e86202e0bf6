package prometheus

import (
	"testing"
	"time"

	"escrow-ledger/internal/infrastructure/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollector_RecordsAndRegisters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector("escrow")
	if err := c.Register(reg); err != nil {
		t.Fatalf("register: %v", err)
	}

	c.RecordOperation("deposit", "ok", 10*time.Millisecond)
	c.RecordOperation("deposit", "ok", 5*time.Millisecond)
	c.RecordOperation("withdraw", "insufficient_funds", time.Millisecond)
	c.RecordGatewayCall("payout", false, time.Second)
	c.RecordCircuitState("gateway", metrics.CircuitOpen)
	c.RecordSideEffectFailure("notify.payout_completed")
	c.RecordBatch("disbursement.scheduled", 3, 1)

	if got := testutil.ToFloat64(c.operations.WithLabelValues("deposit", "ok")); got != 2 {
		t.Fatalf("deposit ok = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.operations.WithLabelValues("withdraw", "insufficient_funds")); got != 1 {
		t.Fatalf("withdraw insufficient = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.circuitState.WithLabelValues("gateway")); got != float64(metrics.CircuitOpen) {
		t.Fatalf("circuit state = %v", got)
	}
	if got := testutil.ToFloat64(c.batchItems.WithLabelValues("disbursement.scheduled", "failed")); got != 1 {
		t.Fatalf("batch failed = %v", got)
	}

	// double registration must fail
	if err := c.Register(reg); err == nil {
		t.Fatal("expected duplicate registration error")
	}
}
