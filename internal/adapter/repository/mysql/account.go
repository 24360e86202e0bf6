package mysql

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"escrow-ledger/internal/domain/ledger"
)

type AccountRepository struct{ db *gorm.DB }

func NewAccountRepository(db *gorm.DB) *AccountRepository { return &AccountRepository{db: db} }

var _ ledger.AccountRepository = (*AccountRepository)(nil)

func (r *AccountRepository) Create(ctx context.Context, a *ledger.EscrowAccount) error {
	return translate("account.create", "account", r.db.WithContext(ctx).Create(a).Error)
}

func (r *AccountRepository) Save(ctx context.Context, a *ledger.EscrowAccount) error {
	return translate("account.save", "account", r.db.WithContext(ctx).Save(a).Error)
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*ledger.EscrowAccount, error) {
	var out ledger.EscrowAccount
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&out).Error; err != nil {
		return nil, translate("account.get", "account", err)
	}
	return &out, nil
}

func (r *AccountRepository) GetByIDForUpdate(ctx context.Context, id string) (*ledger.EscrowAccount, error) {
	var out ledger.EscrowAccount
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&out).Error
	if err != nil {
		return nil, translate("account.lock", "account", err)
	}
	return &out, nil
}

func (r *AccountRepository) List(ctx context.Context, f ledger.AccountFilter) ([]ledger.EscrowAccount, error) {
	q := r.db.WithContext(ctx).Model(&ledger.EscrowAccount{})
	if f.LoanID != "" {
		q = q.Where("loan_id = ?", f.LoanID)
	}
	if f.OwnerID != "" {
		q = q.Where("owner_id = ?", f.OwnerID)
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	var out []ledger.EscrowAccount
	if err := q.Order("created_at ASC, id ASC").Find(&out).Error; err != nil {
		return nil, translate("account.list", "account", err)
	}
	return out, nil
}
