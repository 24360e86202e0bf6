package mysql

import (
	"context"
	"sort"

	"gorm.io/gorm"

	"escrow-ledger/internal/domain/ledger"
	"escrow-ledger/internal/domain/uow"
)

type GormUoW struct{ db *gorm.DB }

func NewGormUoW(db *gorm.DB) *GormUoW { return &GormUoW{db: db} }

var _ uow.UnitOfWork = (*GormUoW)(nil)

func reposFor(tx *gorm.DB) uow.Repos {
	return uow.Repos{
		Accounts:       &AccountRepository{db: tx},
		Transactions:   &TransactionRepository{db: tx},
		PaymentMethods: &PaymentMethodRepository{db: tx},
		Payouts:        &PayoutRepository{db: tx},
		Disbursements:  &DisbursementRepository{db: tx},
	}
}

func (u *GormUoW) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(reposFor(tx))
	})
	return translate("uow.commit", "", err)
}

func (u *GormUoW) WithinAccountTx(ctx context.Context, accountID string, fn func(r uow.Repos, a *ledger.EscrowAccount) error) error {
	return u.WithinTx(ctx, func(r uow.Repos) error {
		// lock the account row up-front to prevent races
		a, err := r.Accounts.GetByIDForUpdate(ctx, accountID)
		if err != nil {
			return err
		}
		return fn(r, a)
	})
}

func (u *GormUoW) WithinAccountsTx(ctx context.Context, accountIDs []string, fn func(r uow.Repos, accts map[string]*ledger.EscrowAccount) error) error {
	// ascending id order on every caller, so two transfers never wait on each other in a cycle
	ids := append([]string(nil), accountIDs...)
	sort.Strings(ids)

	return u.WithinTx(ctx, func(r uow.Repos) error {
		accts := make(map[string]*ledger.EscrowAccount, len(ids))
		for _, id := range ids {
			if _, seen := accts[id]; seen {
				continue
			}
			a, err := r.Accounts.GetByIDForUpdate(ctx, id)
			if err != nil {
				return err
			}
			accts[id] = a
		}
		return fn(r, accts)
	})
}
