package disbursement

import "context"

type Repository interface {
	Create(ctx context.Context, d *Disbursement) error
	Save(ctx context.Context, d *Disbursement) error
	GetByID(ctx context.Context, id string) (*Disbursement, error)
	GetByIDForUpdate(ctx context.Context, id string) (*Disbursement, error)
	// ListWithSchedule returns disbursements in the given statuses that carry a schedule.
	ListWithSchedule(ctx context.Context, statuses []Status) ([]Disbursement, error)
}
