package mysql

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"escrow-ledger/internal/domain/disbursement"
)

type DisbursementRepository struct{ db *gorm.DB }

func NewDisbursementRepository(db *gorm.DB) *DisbursementRepository {
	return &DisbursementRepository{db: db}
}

var _ disbursement.Repository = (*DisbursementRepository)(nil)

func (r *DisbursementRepository) Create(ctx context.Context, d *disbursement.Disbursement) error {
	return translate("disbursement.create", "disbursement", r.db.WithContext(ctx).Create(d).Error)
}

func (r *DisbursementRepository) Save(ctx context.Context, d *disbursement.Disbursement) error {
	return translate("disbursement.save", "disbursement", r.db.WithContext(ctx).Save(d).Error)
}

func (r *DisbursementRepository) GetByID(ctx context.Context, id string) (*disbursement.Disbursement, error) {
	var out disbursement.Disbursement
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&out).Error; err != nil {
		return nil, translate("disbursement.get", "disbursement", err)
	}
	return &out, nil
}

func (r *DisbursementRepository) GetByIDForUpdate(ctx context.Context, id string) (*disbursement.Disbursement, error) {
	var out disbursement.Disbursement
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&out).Error
	if err != nil {
		return nil, translate("disbursement.lock", "disbursement", err)
	}
	return &out, nil
}

func (r *DisbursementRepository) ListWithSchedule(ctx context.Context, statuses []disbursement.Status) ([]disbursement.Disbursement, error) {
	var out []disbursement.Disbursement
	err := r.db.WithContext(ctx).
		Where("status IN ? AND schedule IS NOT NULL", statuses).
		Where("schedule NOT IN ?", []string{"", "null", "[]"}).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	if err != nil {
		return nil, translate("disbursement.list", "disbursement", err)
	}
	return out, nil
}
