package gateway

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"escrow-ledger/internal/domain/payout"
	"escrow-ledger/internal/port"
)

func TestSandbox_ChargeAndRefund(t *testing.T) {
	s := NewSandbox()
	ctx := context.Background()

	res, err := s.ProcessPayment(ctx, port.PaymentRequest{Amount: decimal.NewFromInt(100), Currency: "IDR", MethodToken: "tok_ok"})
	if err != nil || res.Status != port.GatewaySucceeded || res.TransactionID == "" {
		t.Fatalf("ProcessPayment = %+v, %v", res, err)
	}

	partial := decimal.NewFromInt(40)
	if r, err := s.RefundPayment(ctx, res.TransactionID, &partial, "partial"); err != nil || r.Status != port.GatewaySucceeded {
		t.Fatalf("partial refund = %+v, %v", r, err)
	}
	tooMuch := decimal.NewFromInt(61)
	if _, err := s.RefundPayment(ctx, res.TransactionID, &tooMuch, ""); !errors.Is(err, ErrRefundTooLarge) {
		t.Fatalf("expected ErrRefundTooLarge, got %v", err)
	}
	if _, err := s.RefundPayment(ctx, res.TransactionID, nil, ""); err != nil {
		t.Fatalf("refund of remainder: %v", err)
	}
	if _, err := s.RefundPayment(ctx, "ch_missing", nil, ""); !errors.Is(err, ErrUnknownCharge) {
		t.Fatalf("expected ErrUnknownCharge, got %v", err)
	}
}

func TestSandbox_Declines(t *testing.T) {
	s := NewSandbox()
	ctx := context.Background()

	res, err := s.ProcessPayment(ctx, port.PaymentRequest{Amount: decimal.NewFromInt(1), MethodToken: DeclinePrefix + "card"})
	if err != nil || res.Status != port.GatewayFailed {
		t.Fatalf("expected declined charge, got %+v, %v", res, err)
	}
	po, err := s.ProcessPayout(ctx, port.PayoutRequest{Amount: decimal.NewFromInt(1), Recipient: payout.Recipient{AccountNumber: DeclinePrefix + "123"}})
	if err != nil || po.Status != port.GatewayFailed {
		t.Fatalf("expected declined payout, got %+v, %v", po, err)
	}
	v, err := s.VerifyPaymentMethod(ctx, DeclinePrefix+"tok")
	if err != nil || v.Verified {
		t.Fatalf("expected failed verification, got %+v, %v", v, err)
	}
}

func TestSandbox_Webhooks(t *testing.T) {
	s := NewSandbox()
	ctx := context.Background()
	charge, _ := s.ProcessPayment(ctx, port.PaymentRequest{Amount: decimal.NewFromInt(5), MethodToken: "tok"})

	payload := []byte(`{"id":"evt_1","type":"charge.succeeded","transaction_id":"` + charge.TransactionID + `","status":"succeeded"}`)
	const secret = "whsec"

	if _, err := s.ParseWebhookEvent(payload, Sign(payload, "other"), secret); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("expected ErrBadSignature, got %v", err)
	}
	if _, err := s.ParseWebhookEvent(payload, "zz-not-hex", secret); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("expected ErrBadSignature for junk signature, got %v", err)
	}
	junk := []byte(`{"type":""}`)
	if _, err := s.ParseWebhookEvent(junk, Sign(junk, secret), secret); !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload, got %v", err)
	}

	ev, err := s.ParseWebhookEvent(payload, Sign(payload, secret), secret)
	if err != nil {
		t.Fatalf("ParseWebhookEvent: %v", err)
	}
	if ev.ID != "evt_1" || ev.Status != port.GatewaySucceeded {
		t.Fatalf("unexpected event: %+v", ev)
	}

	ack, err := s.HandleWebhookEvent(ctx, ev)
	if err != nil || !ack.Received || !ack.Handled {
		t.Fatalf("first delivery ack = %+v, %v", ack, err)
	}
	ack, _ = s.HandleWebhookEvent(ctx, ev)
	if !ack.Received || ack.Handled {
		t.Fatalf("replayed delivery ack = %+v", ack)
	}
}
