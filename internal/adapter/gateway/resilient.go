package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"escrow-ledger/internal/domain/ledger"
	"escrow-ledger/internal/infrastructure/logging"
	"escrow-ledger/internal/infrastructure/metrics"
	"escrow-ledger/internal/port"
)

type BreakerConfig struct {
	// requests allowed through while half-open
	MaxRequests uint32
	// closed-state count reset period; 0 never resets
	Interval time.Duration
	// how long the breaker stays open before letting trial requests through
	OpenTimeout time.Duration
	// consecutive failures that trip the breaker
	MaxFailures uint32
}

type ResilientConfig struct {
	Name    string
	Timeout time.Duration
	Breaker BreakerConfig
}

func DefaultResilientConfig() ResilientConfig {
	return ResilientConfig{
		Name:    "payment-gateway",
		Timeout: 10 * time.Second,
		Breaker: BreakerConfig{MaxRequests: 1, OpenTimeout: 30 * time.Second, MaxFailures: 5},
	}
}

// Resilient guards a PaymentGateway with a per-call timeout and a circuit
// breaker. Every failure it returns is an ExternalProcessor ledger error.
type Resilient struct {
	next    port.PaymentGateway
	cb      *gobreaker.CircuitBreaker
	timeout time.Duration
	metrics metrics.Collector
	logger  *logging.Logger
}

var _ port.PaymentGateway = (*Resilient)(nil)

func NewResilient(next port.PaymentGateway, cfg ResilientConfig, log *logging.Logger, mc metrics.Collector) *Resilient {
	logger := logging.OrNop(log).Named("gateway")
	r := &Resilient{
		next:    next,
		timeout: cfg.Timeout,
		metrics: metrics.OrNoOp(mc),
		logger:  logger,
	}

	maxFailures := cfg.Breaker.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	r.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.Breaker.MaxRequests,
		Interval:    cfg.Breaker.Interval,
		Timeout:     cfg.Breaker.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("gateway", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			r.metrics.RecordCircuitState(name, circuitState(to))
		},
	})

	logger.Info("resilient gateway initialized",
		zap.String("gateway", cfg.Name),
		zap.Duration("timeout", cfg.Timeout),
		zap.Uint32("max_failures", maxFailures),
		zap.Duration("open_timeout", cfg.Breaker.OpenTimeout),
	)
	return r
}

func circuitState(s gobreaker.State) metrics.CircuitState {
	switch s {
	case gobreaker.StateOpen:
		return metrics.CircuitOpen
	case gobreaker.StateHalfOpen:
		return metrics.CircuitHalfOpen
	default:
		return metrics.CircuitClosed
	}
}

// State exposes the breaker state for health reporting.
func (r *Resilient) State() metrics.CircuitState { return circuitState(r.cb.State()) }

func guard[T any](r *Resilient, ctx context.Context, call string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	start := time.Now()
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	res, err := r.cb.Execute(func() (interface{}, error) {
		return fn(ctx)
	})
	elapsed := time.Since(start)
	r.metrics.RecordGatewayCall(call, err == nil, elapsed)

	op := "gateway." + call
	switch {
	case err == nil:
		return res.(T), nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		r.logger.Warn("circuit breaker open - call rejected", zap.String("call", call))
		return zero, &ledger.Error{Kind: ledger.KindExternalProcessor, Op: op, Msg: "processor unavailable", Err: err}
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		r.logger.Warn("gateway call timed out",
			zap.String("call", call),
			zap.Duration("timeout", r.timeout),
			zap.Duration("elapsed", elapsed),
		)
		return zero, &ledger.Error{Kind: ledger.KindExternalProcessor, Op: op, Msg: "processor timed out", Err: err}
	default:
		r.logger.Error("gateway call failed",
			zap.String("call", call),
			zap.Duration("duration", elapsed),
			zap.Error(err),
		)
		return zero, &ledger.Error{Kind: ledger.KindExternalProcessor, Op: op, Msg: "processor call failed", Err: err}
	}
}

func (r *Resilient) ProcessPayment(ctx context.Context, req port.PaymentRequest) (port.PaymentResult, error) {
	return guard(r, ctx, "process_payment", func(ctx context.Context) (port.PaymentResult, error) {
		return r.next.ProcessPayment(ctx, req)
	})
}

func (r *Resilient) ProcessPayout(ctx context.Context, req port.PayoutRequest) (port.PaymentResult, error) {
	return guard(r, ctx, "process_payout", func(ctx context.Context) (port.PaymentResult, error) {
		return r.next.ProcessPayout(ctx, req)
	})
}

func (r *Resilient) RefundPayment(ctx context.Context, originalTxID string, amount *decimal.Decimal, reason string) (port.RefundResult, error) {
	return guard(r, ctx, "refund_payment", func(ctx context.Context) (port.RefundResult, error) {
		return r.next.RefundPayment(ctx, originalTxID, amount, reason)
	})
}

func (r *Resilient) VerifyPaymentMethod(ctx context.Context, methodToken string) (port.VerifyResult, error) {
	return guard(r, ctx, "verify_payment_method", func(ctx context.Context) (port.VerifyResult, error) {
		return r.next.VerifyPaymentMethod(ctx, methodToken)
	})
}

// ParseWebhookEvent is local work; it bypasses the breaker.
func (r *Resilient) ParseWebhookEvent(payload []byte, signature, secret string) (port.WebhookEvent, error) {
	ev, err := r.next.ParseWebhookEvent(payload, signature, secret)
	if err != nil {
		return port.WebhookEvent{}, ledger.Wrap(ledger.KindValidation, "gateway.parse_webhook", err)
	}
	return ev, nil
}

func (r *Resilient) HandleWebhookEvent(ctx context.Context, ev port.WebhookEvent) (port.WebhookAck, error) {
	return guard(r, ctx, "handle_webhook", func(ctx context.Context) (port.WebhookAck, error) {
		return r.next.HandleWebhookEvent(ctx, ev)
	})
}
