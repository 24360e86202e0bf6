package mysql

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"escrow-ledger/internal/domain/payout"
)

type PayoutRepository struct{ db *gorm.DB }

func NewPayoutRepository(db *gorm.DB) *PayoutRepository { return &PayoutRepository{db: db} }

var _ payout.Repository = (*PayoutRepository)(nil)

func (r *PayoutRepository) Create(ctx context.Context, p *payout.Request) error {
	return translate("payout.create", "payout request", r.db.WithContext(ctx).Create(p).Error)
}

func (r *PayoutRepository) Save(ctx context.Context, p *payout.Request) error {
	return translate("payout.save", "payout request", r.db.WithContext(ctx).Save(p).Error)
}

func (r *PayoutRepository) GetByID(ctx context.Context, id string) (*payout.Request, error) {
	var out payout.Request
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&out).Error; err != nil {
		return nil, translate("payout.get", "payout request", err)
	}
	return &out, nil
}

func (r *PayoutRepository) GetByIDForUpdate(ctx context.Context, id string) (*payout.Request, error) {
	var out payout.Request
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&out).Error
	if err != nil {
		return nil, translate("payout.lock", "payout request", err)
	}
	return &out, nil
}

// ListByStatus returns oldest first so sweeps are FIFO.
func (r *PayoutRepository) ListByStatus(ctx context.Context, st payout.Status, limit int) ([]payout.Request, error) {
	q := r.db.WithContext(ctx).Where("status = ?", st).Order("created_at ASC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []payout.Request
	if err := q.Find(&out).Error; err != nil {
		return nil, translate("payout.list", "payout request", err)
	}
	return out, nil
}
