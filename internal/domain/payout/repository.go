package payout

import "context"

type Repository interface {
	Create(ctx context.Context, p *Request) error
	Save(ctx context.Context, p *Request) error
	GetByID(ctx context.Context, id string) (*Request, error)
	// GetByIDForUpdate locks the request row for the rest of the tx
	GetByIDForUpdate(ctx context.Context, id string) (*Request, error)
	ListByStatus(ctx context.Context, st Status, limit int) ([]Request, error)
}
