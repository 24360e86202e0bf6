package gatewaymock

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"escrow-ledger/internal/port"
)

var _ port.PaymentGateway = (*Gateway)(nil)

var errUnimplemented = errors.New("gatewaymock: method not implemented")

// Gateway is a function-backed mock that satisfies port.PaymentGateway.
// Unset functions return errUnimplemented. Calls are counted per method.
type Gateway struct {
	ProcessPaymentFn      func(ctx context.Context, req port.PaymentRequest) (port.PaymentResult, error)
	ProcessPayoutFn       func(ctx context.Context, req port.PayoutRequest) (port.PaymentResult, error)
	RefundPaymentFn       func(ctx context.Context, originalTxID string, amount *decimal.Decimal, reason string) (port.RefundResult, error)
	VerifyPaymentMethodFn func(ctx context.Context, token string) (port.VerifyResult, error)
	ParseWebhookEventFn   func(payload []byte, signature, secret string) (port.WebhookEvent, error)
	HandleWebhookEventFn  func(ctx context.Context, ev port.WebhookEvent) (port.WebhookAck, error)

	mu    sync.Mutex
	calls map[string]int
}

func (m *Gateway) hit(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = map[string]int{}
	}
	m.calls[name]++
}

// Calls reports how many times the named method ran.
func (m *Gateway) Calls(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

func (m *Gateway) ProcessPayment(ctx context.Context, req port.PaymentRequest) (port.PaymentResult, error) {
	m.hit("ProcessPayment")
	if m.ProcessPaymentFn != nil {
		return m.ProcessPaymentFn(ctx, req)
	}
	return port.PaymentResult{}, errUnimplemented
}

func (m *Gateway) ProcessPayout(ctx context.Context, req port.PayoutRequest) (port.PaymentResult, error) {
	m.hit("ProcessPayout")
	if m.ProcessPayoutFn != nil {
		return m.ProcessPayoutFn(ctx, req)
	}
	return port.PaymentResult{}, errUnimplemented
}

func (m *Gateway) RefundPayment(ctx context.Context, originalTxID string, amount *decimal.Decimal, reason string) (port.RefundResult, error) {
	m.hit("RefundPayment")
	if m.RefundPaymentFn != nil {
		return m.RefundPaymentFn(ctx, originalTxID, amount, reason)
	}
	return port.RefundResult{}, errUnimplemented
}

func (m *Gateway) VerifyPaymentMethod(ctx context.Context, token string) (port.VerifyResult, error) {
	m.hit("VerifyPaymentMethod")
	if m.VerifyPaymentMethodFn != nil {
		return m.VerifyPaymentMethodFn(ctx, token)
	}
	return port.VerifyResult{}, errUnimplemented
}

func (m *Gateway) ParseWebhookEvent(payload []byte, signature, secret string) (port.WebhookEvent, error) {
	m.hit("ParseWebhookEvent")
	if m.ParseWebhookEventFn != nil {
		return m.ParseWebhookEventFn(payload, signature, secret)
	}
	return port.WebhookEvent{}, errUnimplemented
}

func (m *Gateway) HandleWebhookEvent(ctx context.Context, ev port.WebhookEvent) (port.WebhookAck, error) {
	m.hit("HandleWebhookEvent")
	if m.HandleWebhookEventFn != nil {
		return m.HandleWebhookEventFn(ctx, ev)
	}
	return port.WebhookAck{}, errUnimplemented
}

// Succeeding returns a gateway whose money calls all succeed with fixed refs.
func Succeeding() *Gateway {
	return &Gateway{
		ProcessPaymentFn: func(context.Context, port.PaymentRequest) (port.PaymentResult, error) {
			return port.PaymentResult{TransactionID: "ch_mock", Status: port.GatewaySucceeded}, nil
		},
		ProcessPayoutFn: func(context.Context, port.PayoutRequest) (port.PaymentResult, error) {
			return port.PaymentResult{TransactionID: "po_mock", Status: port.GatewaySucceeded}, nil
		},
		RefundPaymentFn: func(context.Context, string, *decimal.Decimal, string) (port.RefundResult, error) {
			return port.RefundResult{RefundID: "re_mock", Status: port.GatewaySucceeded}, nil
		},
		VerifyPaymentMethodFn: func(context.Context, string) (port.VerifyResult, error) {
			return port.VerifyResult{Verified: true}, nil
		},
	}
}
