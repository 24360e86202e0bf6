package prometheus

import (
	"strconv"
	"time"

	"escrow-ledger/internal/infrastructure/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector implements metrics.Collector for Prometheus.
type Collector struct {
	operations   *prometheus.CounterVec
	opLatency    *prometheus.HistogramVec
	gatewayCalls *prometheus.CounterVec
	gatewayLat   *prometheus.HistogramVec
	circuitState *prometheus.GaugeVec
	sideEffects  *prometheus.CounterVec
	batchItems   *prometheus.CounterVec
}

var _ metrics.Collector = (*Collector)(nil)

func NewCollector(namespace string) *Collector {
	return &Collector{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_operations_total",
			Help:      "Ledger and workflow operations by outcome",
		}, []string{"op", "outcome"}),
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ledger_operation_duration_seconds",
			Help:      "Ledger and workflow operation latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		gatewayCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_calls_total",
			Help:      "Payment gateway calls by result",
		}, []string{"call", "success"}),
		gatewayLat: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gateway_call_duration_seconds",
			Help:      "Payment gateway call latency",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"call"}),
		circuitState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gateway_circuit_state",
			Help:      "Gateway circuit breaker state (0=closed, 1=open, 2=half-open)",
		}, []string{"name"}),
		sideEffects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "side_effect_failures_total",
			Help:      "Post-commit side effects that failed",
		}, []string{"name"}),
		batchItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_items_total",
			Help:      "Items handled by batch sweeps by result",
		}, []string{"batch", "result"}),
	}
}

// Register adds every metric to reg.
func (c *Collector) Register(reg prometheus.Registerer) error {
	for _, col := range []prometheus.Collector{
		c.operations, c.opLatency, c.gatewayCalls, c.gatewayLat,
		c.circuitState, c.sideEffects, c.batchItems,
	} {
		if err := reg.Register(col); err != nil {
			return err
		}
	}
	return nil
}

func (c *Collector) RecordOperation(op, outcome string, d time.Duration) {
	c.operations.WithLabelValues(op, outcome).Inc()
	c.opLatency.WithLabelValues(op).Observe(d.Seconds())
}

func (c *Collector) RecordGatewayCall(call string, success bool, d time.Duration) {
	c.gatewayCalls.WithLabelValues(call, strconv.FormatBool(success)).Inc()
	c.gatewayLat.WithLabelValues(call).Observe(d.Seconds())
}

func (c *Collector) RecordCircuitState(name string, state metrics.CircuitState) {
	c.circuitState.WithLabelValues(name).Set(float64(state))
}

func (c *Collector) RecordSideEffectFailure(name string) {
	c.sideEffects.WithLabelValues(name).Inc()
}

func (c *Collector) RecordBatch(name string, processed, failed int) {
	c.batchItems.WithLabelValues(name, "processed").Add(float64(processed))
	c.batchItems.WithLabelValues(name, "failed").Add(float64(failed))
}
