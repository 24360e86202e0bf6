package mysql

import (
	"context"

	"gorm.io/gorm"

	"escrow-ledger/internal/domain/ledger"
)

type PaymentMethodRepository struct{ db *gorm.DB }

func NewPaymentMethodRepository(db *gorm.DB) *PaymentMethodRepository {
	return &PaymentMethodRepository{db: db}
}

var _ ledger.PaymentMethodRepository = (*PaymentMethodRepository)(nil)

func (r *PaymentMethodRepository) Create(ctx context.Context, m *ledger.PaymentMethod) error {
	return translate("payment_method.create", "payment method", r.db.WithContext(ctx).Create(m).Error)
}

func (r *PaymentMethodRepository) Save(ctx context.Context, m *ledger.PaymentMethod) error {
	return translate("payment_method.save", "payment method", r.db.WithContext(ctx).Save(m).Error)
}

func (r *PaymentMethodRepository) GetByID(ctx context.Context, id string) (*ledger.PaymentMethod, error) {
	var out ledger.PaymentMethod
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&out).Error; err != nil {
		return nil, translate("payment_method.get", "payment method", err)
	}
	return &out, nil
}

// ListByUser returns newest first.
func (r *PaymentMethodRepository) ListByUser(ctx context.Context, userID string) ([]ledger.PaymentMethod, error) {
	var out []ledger.PaymentMethod
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&out).Error
	if err != nil {
		return nil, translate("payment_method.list", "payment method", err)
	}
	return out, nil
}

func (r *PaymentMethodRepository) ClearDefault(ctx context.Context, userID string) error {
	err := r.db.WithContext(ctx).
		Model(&ledger.PaymentMethod{}).
		Where("user_id = ? AND is_default = ?", userID, true).
		Update("is_default", false).Error
	return translate("payment_method.clear_default", "payment method", err)
}
