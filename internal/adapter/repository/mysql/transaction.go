package mysql

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"escrow-ledger/internal/domain/ledger"
)

type TransactionRepository struct{ db *gorm.DB }

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

var _ ledger.TransactionRepository = (*TransactionRepository)(nil)

func (r *TransactionRepository) Create(ctx context.Context, t *ledger.Transaction) error {
	return translate("transaction.create", "transaction", r.db.WithContext(ctx).Create(t).Error)
}

func (r *TransactionRepository) Save(ctx context.Context, t *ledger.Transaction) error {
	return translate("transaction.save", "transaction", r.db.WithContext(ctx).Save(t).Error)
}

func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*ledger.Transaction, error) {
	return r.first(ctx, "transaction.get", r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *TransactionRepository) GetByIDForUpdate(ctx context.Context, id string) (*ledger.Transaction, error) {
	q := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id)
	return r.first(ctx, "transaction.lock", q)
}

func (r *TransactionRepository) GetByNumber(ctx context.Context, number string) (*ledger.Transaction, error) {
	return r.first(ctx, "transaction.get_by_number", r.db.WithContext(ctx).Where("number = ?", number))
}

func (r *TransactionRepository) first(_ context.Context, op string, q *gorm.DB) (*ledger.Transaction, error) {
	var out ledger.Transaction
	if err := q.First(&out).Error; err != nil {
		return nil, translate(op, "transaction", err)
	}
	return &out, nil
}

// List returns newest first. A zero Limit means no limit.
func (r *TransactionRepository) List(ctx context.Context, f ledger.TxFilter) ([]ledger.Transaction, error) {
	q := r.db.WithContext(ctx).Model(&ledger.Transaction{})
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.EscrowAccountID != "" {
		q = q.Where("escrow_account_id = ?", f.EscrowAccountID)
	}
	if f.LoanID != "" {
		q = q.Where("loan_id = ?", f.LoanID)
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.ExternalRef != "" {
		q = q.Where("external_ref = ?", f.ExternalRef)
	}
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at < ?", *f.To)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	var out []ledger.Transaction
	if err := q.Order("created_at DESC, id DESC").Find(&out).Error; err != nil {
		return nil, translate("transaction.list", "transaction", err)
	}
	return out, nil
}
