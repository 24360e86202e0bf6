package uow

import (
	"context"

	"escrow-ledger/internal/domain/disbursement"
	"escrow-ledger/internal/domain/ledger"
	"escrow-ledger/internal/domain/payout"
)

// Repos are bound to the transaction of the enclosing unit of work.
type Repos struct {
	Accounts       ledger.AccountRepository
	Transactions   ledger.TransactionRepository
	PaymentMethods ledger.PaymentMethodRepository
	Payouts        payout.Repository
	Disbursements  disbursement.Repository
}

type UnitOfWork interface {
	// plain tx: commit when fn returns nil, roll back otherwise
	WithinTx(ctx context.Context, fn func(r Repos) error) error
	// lock one escrow account first, then pass it in
	WithinAccountTx(ctx context.Context, accountID string, fn func(r Repos, a *ledger.EscrowAccount) error) error
	// lock several accounts in ascending id order, keyed by id
	WithinAccountsTx(ctx context.Context, accountIDs []string, fn func(r Repos, accts map[string]*ledger.EscrowAccount) error) error
}
