package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"escrow-ledger/internal/port"
	"escrow-ledger/pkg/id"
)

// Tokens and recipient accounts with this prefix are declined by the sandbox.
const DeclinePrefix = "fail_"

var (
	ErrUnknownCharge    = errors.New("sandbox: unknown charge")
	ErrRefundTooLarge   = errors.New("sandbox: refund exceeds charge")
	ErrBadSignature     = errors.New("sandbox: webhook signature mismatch")
	ErrMalformedPayload = errors.New("sandbox: malformed webhook payload")
)

// Sandbox is a deterministic in-process processor. It keeps the charges it
// accepted so refunds can be checked against them.
type Sandbox struct {
	mu      sync.Mutex
	charges map[string]decimal.Decimal
	events  map[string]struct{}
}

func NewSandbox() *Sandbox {
	return &Sandbox{charges: map[string]decimal.Decimal{}, events: map[string]struct{}{}}
}

var _ port.PaymentGateway = (*Sandbox)(nil)

func (s *Sandbox) ProcessPayment(ctx context.Context, req port.PaymentRequest) (port.PaymentResult, error) {
	if err := ctx.Err(); err != nil {
		return port.PaymentResult{}, err
	}
	if strings.HasPrefix(req.MethodToken, DeclinePrefix) {
		return port.PaymentResult{Status: port.GatewayFailed}, nil
	}
	ref := "ch_" + id.NewID32()
	s.mu.Lock()
	s.charges[ref] = req.Amount
	s.mu.Unlock()
	return port.PaymentResult{TransactionID: ref, Status: port.GatewaySucceeded}, nil
}

func (s *Sandbox) ProcessPayout(ctx context.Context, req port.PayoutRequest) (port.PaymentResult, error) {
	if err := ctx.Err(); err != nil {
		return port.PaymentResult{}, err
	}
	if strings.HasPrefix(req.Recipient.AccountNumber, DeclinePrefix) || strings.HasPrefix(req.Recipient.PhoneNumber, DeclinePrefix) {
		return port.PaymentResult{Status: port.GatewayFailed}, nil
	}
	return port.PaymentResult{TransactionID: "po_" + id.NewID32(), Status: port.GatewaySucceeded}, nil
}

func (s *Sandbox) RefundPayment(ctx context.Context, originalTxID string, amount *decimal.Decimal, _ string) (port.RefundResult, error) {
	if err := ctx.Err(); err != nil {
		return port.RefundResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	charged, ok := s.charges[originalTxID]
	if !ok {
		return port.RefundResult{}, ErrUnknownCharge
	}
	refund := charged
	if amount != nil {
		refund = *amount
	}
	if refund.GreaterThan(charged) {
		return port.RefundResult{}, ErrRefundTooLarge
	}
	s.charges[originalTxID] = charged.Sub(refund)
	return port.RefundResult{RefundID: "re_" + id.NewID32(), Status: port.GatewaySucceeded}, nil
}

func (s *Sandbox) VerifyPaymentMethod(ctx context.Context, methodToken string) (port.VerifyResult, error) {
	if err := ctx.Err(); err != nil {
		return port.VerifyResult{}, err
	}
	if methodToken == "" || strings.HasPrefix(methodToken, DeclinePrefix) {
		return port.VerifyResult{Verified: false, Details: map[string]string{"reason": "declined"}}, nil
	}
	return port.VerifyResult{Verified: true, Details: map[string]string{"checks": "passed"}}, nil
}

// Sign returns the hex HMAC-SHA256 of payload under secret, as sent in the
// webhook signature header.
func Sign(payload []byte, secret string) string { return hex.EncodeToString(mac(payload, secret)) }

func mac(payload []byte, secret string) []byte {
	m := hmac.New(sha256.New, []byte(secret))
	m.Write(payload)
	return m.Sum(nil)
}

func (s *Sandbox) ParseWebhookEvent(payload []byte, signature, secret string) (port.WebhookEvent, error) {
	got, err := hex.DecodeString(signature)
	if err != nil || !hmac.Equal(mac(payload, secret), got) {
		return port.WebhookEvent{}, ErrBadSignature
	}
	var ev port.WebhookEvent
	if err := json.Unmarshal(payload, &ev); err != nil || ev.ID == "" || ev.Type == "" {
		return port.WebhookEvent{}, ErrMalformedPayload
	}
	return ev, nil
}

// HandleWebhookEvent acknowledges every event once. Charge events are handled
// when they name a charge the sandbox issued; replays are received, not handled.
func (s *Sandbox) HandleWebhookEvent(ctx context.Context, ev port.WebhookEvent) (port.WebhookAck, error) {
	if err := ctx.Err(); err != nil {
		return port.WebhookAck{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.events[ev.ID]; dup {
		return port.WebhookAck{Received: true}, nil
	}
	s.events[ev.ID] = struct{}{}
	_, known := s.charges[ev.TransactionID]
	return port.WebhookAck{Received: true, Handled: known}, nil
}
