package paymentmethod

import (
	"time"

	"escrow-ledger/internal/domain/ledger"
)

type AddInput struct {
	UserID       string                   `json:"user_id"`
	Type         ledger.PaymentMethodType `json:"type"`
	GatewayToken string                   `json:"gateway_token"`
	CustomerRef  string                   `json:"customer_ref,omitempty"`
	Last4        string                   `json:"last4,omitempty"`
	ExpiresAt    *time.Time               `json:"expires_at,omitempty"`
}
