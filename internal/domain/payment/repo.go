package payment

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Payment, int, error)
	// ListByMonth returns every payment dated in the given month, oldest
	// first.
	ListByMonth(ctx context.Context, year, month int) ([]*Payment, error)
	List(ctx context.Context, limit, offset int) ([]*Payment, int, error)
}
