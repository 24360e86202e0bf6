package ledger

import (
	"context"
	"time"
)

type AccountFilter struct {
	LoanID  string
	OwnerID string
	Type    AccountType
	Status  AccountStatus
}

type AccountRepository interface {
	Create(ctx context.Context, a *EscrowAccount) error
	Save(ctx context.Context, a *EscrowAccount) error
	GetByID(ctx context.Context, id string) (*EscrowAccount, error)
	// GetByIDForUpdate holds an exclusive row lock until the enclosing tx ends.
	GetByIDForUpdate(ctx context.Context, id string) (*EscrowAccount, error)
	List(ctx context.Context, f AccountFilter) ([]EscrowAccount, error)
}

type TxFilter struct {
	UserID          string
	EscrowAccountID string
	LoanID          string
	Type            TransactionType
	Status          TransactionStatus
	ExternalRef     string
	From, To        *time.Time
	Limit, Offset   int
}

type TransactionRepository interface {
	Create(ctx context.Context, t *Transaction) error
	Save(ctx context.Context, t *Transaction) error
	GetByID(ctx context.Context, id string) (*Transaction, error)
	GetByIDForUpdate(ctx context.Context, id string) (*Transaction, error)
	GetByNumber(ctx context.Context, number string) (*Transaction, error)
	List(ctx context.Context, f TxFilter) ([]Transaction, error)
}

type PaymentMethodRepository interface {
	Create(ctx context.Context, m *PaymentMethod) error
	Save(ctx context.Context, m *PaymentMethod) error
	GetByID(ctx context.Context, id string) (*PaymentMethod, error)
	ListByUser(ctx context.Context, userID string) ([]PaymentMethod, error)
	// ClearDefault unsets the default flag on every method of userID.
	ClearDefault(ctx context.Context, userID string) error
}
