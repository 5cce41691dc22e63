package session

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, s *Session) error
	GetByID(ctx context.Context, id uuid.UUID) (*Session, error)
	Update(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Session, int, error)
	// ListPendingByPatient returns pending sessions ordered oldest first,
	// with the id as a deterministic tiebreak for equal dates.
	ListPendingByPatient(ctx context.Context, patientID uuid.UUID) ([]*Session, error)
	ListByMonth(ctx context.Context, year int, month int) ([]*Session, error)
}
