package ledger

import "time"

type PaymentMethodType string

const (
	MethodCard        PaymentMethodType = "card"
	MethodBankAccount PaymentMethodType = "bank_account"
	MethodMobileMoney PaymentMethodType = "mobile_money"
)

type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationFailed   VerificationStatus = "failed"
)

// Table: payment_methods
type PaymentMethod struct {
	ID           string             `gorm:"column:id;type:char(32);primaryKey" json:"id"`
	UserID       string             `gorm:"column:user_id;type:char(32);not null;index" json:"user_id"`
	Type         PaymentMethodType  `gorm:"column:type;size:16;not null" json:"type"`
	Verification VerificationStatus `gorm:"column:verification;size:16;not null" json:"verification"`
	IsDefault    bool               `gorm:"column:is_default;not null;default:false" json:"is_default"`
	Active       bool               `gorm:"column:active;not null" json:"active"`
	GatewayToken string             `gorm:"column:gateway_token;size:128" json:"-"`
	CustomerRef  string             `gorm:"column:customer_ref;size:128" json:"-"`
	Last4        string             `gorm:"column:last4;size:4" json:"last4,omitempty"`
	ExpiresAt    *time.Time         `gorm:"column:expires_at" json:"expires_at,omitempty"`
	VerifiedAt   *time.Time         `gorm:"column:verified_at" json:"verified_at,omitempty"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time          `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (PaymentMethod) TableName() string { return "payment_methods" }

// Usable reports whether the method may be charged or made default at now.
func (m *PaymentMethod) Usable(now time.Time) bool {
	if !m.Active || m.Verification != VerificationVerified {
		return false
	}
	return m.ExpiresAt == nil || m.ExpiresAt.After(now)
}
