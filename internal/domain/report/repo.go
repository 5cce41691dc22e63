package report

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, r *Report) error
	GetByID(ctx context.Context, id uuid.UUID) (*Report, error)
	Update(ctx context.Context, r *Report) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Report, int, error)
	// ListUnsettledByPatient returns reports that are not fully paid,
	// ordered oldest first by creation time.
	ListUnsettledByPatient(ctx context.Context, patientID uuid.UUID) ([]*Report, error)
	ListUnsettled(ctx context.Context) ([]*Report, error)
}
