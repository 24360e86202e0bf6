package metrics

import "time"

// Collector records ledger and workflow activity. Implementations export to
// a backend; NoOp is used when none is configured.
type Collector interface {
	// op is e.g. "deposit", "payout.process"; outcome is "ok" or an error kind
	RecordOperation(op, outcome string, d time.Duration)
	RecordGatewayCall(call string, success bool, d time.Duration)
	RecordCircuitState(name string, state CircuitState)
	RecordSideEffectFailure(name string)
	RecordBatch(name string, processed, failed int)
}

type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

type NoOp struct{}

func (NoOp) RecordOperation(string, string, time.Duration) {}
func (NoOp) RecordGatewayCall(string, bool, time.Duration) {}
func (NoOp) RecordCircuitState(string, CircuitState)       {}
func (NoOp) RecordSideEffectFailure(string)                {}
func (NoOp) RecordBatch(string, int, int)                  {}

// OrNoOp returns c, or NoOp when c is nil.
func OrNoOp(c Collector) Collector {
	if c == nil {
		return NoOp{}
	}
	return c
}
