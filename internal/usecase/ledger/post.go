package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	domain "escrow-ledger/internal/domain/ledger"
	"escrow-ledger/internal/domain/uow"
	"escrow-ledger/pkg/id"
)

// Post applies e to a, which must be locked by the enclosing unit of work,
// and appends the completed transaction row. It is the single place balances
// change; workflows call it so their legs share the caller's tx.
func Post(ctx context.Context, r uow.Repos, a *domain.EscrowAccount, e Entry, op string) (*domain.Transaction, error) {
	if err := apply(ctx, r, a, e.Direction, e.Amount, op); err != nil {
		return nil, err
	}

	tx := newTransaction(a, e, domain.TxStatusCompleted)
	if err := r.Transactions.Create(ctx, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// apply moves the balances of a locked, active account and persists it.
func apply(ctx context.Context, r uow.Repos, a *domain.EscrowAccount, dir domain.Direction, amount decimal.Decimal, op string) error {
	if err := a.EnsureActive(op); err != nil {
		return err
	}
	var err error
	switch dir {
	case domain.Credit:
		err = a.Credit(op, amount)
	case domain.Debit:
		err = a.Debit(op, amount)
	default:
		err = domain.Validation(op, "unknown direction")
	}
	if err != nil {
		return err
	}
	return r.Accounts.Save(ctx, a)
}

func newTransaction(a *domain.EscrowAccount, e Entry, st domain.TransactionStatus) *domain.Transaction {
	txID := e.ID
	if txID == "" {
		txID = id.NewID32()
	}
	userID := e.UserID
	if userID == "" {
		userID = a.OwnerID
	}
	loanID := e.LoanID
	if loanID == nil {
		loanID = a.LoanID
	}
	accountID := a.ID
	tx := &domain.Transaction{
		ID:              txID,
		Number:          id.NewNumber("TXN"),
		LoanID:          loanID,
		EscrowAccountID: &accountID,
		PaymentMethodID: e.PaymentMethodID,
		UserID:          userID,
		Type:            e.Type,
		Direction:       e.Direction,
		Status:          st,
		Amount:          e.Amount,
		Currency:        a.Currency,
		ExternalRef:     e.ExternalRef,
		Description:     e.Description,
		Metadata:        e.Metadata,
	}
	if st == domain.TxStatusCompleted {
		at := e.At
		if at.IsZero() {
			at = time.Now().UTC()
		}
		tx.CompletedAt = &at
	}
	return tx
}
