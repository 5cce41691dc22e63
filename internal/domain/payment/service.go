package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/practica/practica/internal/domain/ledger"
	"github.com/practica/practica/pkg/money"
)

var validConcepts = map[string]bool{
	ConceptSession: true, ConceptMonthly: true,
	ConceptDiagnostic: true, ConceptReport: true,
}

// Ledger is the slice of the billing ledger the payment service needs.
// Registering a payment settles it against the patient's open items; removing
// one requires the balance to be recomputed.
type Ledger interface {
	Settle(ctx context.Context, patientID uuid.UUID, amount float64) (*ledger.Settlement, error)
	RecomputeBalance(ctx context.Context, patientID uuid.UUID) (float64, error)
}

type Service struct {
	payments Repository
	ledger   Ledger
}

func NewService(payments Repository, l Ledger) *Service {
	return &Service{payments: payments, ledger: l}
}

// Create records the payment and settles it against the patient's pending
// sessions and unsettled reports. The payment row is persisted before
// settlement runs, so even a settlement that fails midway leaves an
// auditable record of the money received.
func (s *Service) Create(ctx context.Context, p *Payment) (*ledger.Settlement, error) {
	if p.PatientID == uuid.Nil {
		return nil, fmt.Errorf("patient_id is required")
	}
	if p.Amount <= 0 {
		return nil, ledger.ErrInvalidAmount
	}
	if p.Concept == "" {
		p.Concept = ConceptSession
	}
	if !validConcepts[p.Concept] {
		return nil, fmt.Errorf("invalid payment concept: %s", p.Concept)
	}
	if p.Date.IsZero() {
		p.Date = time.Now()
	}
	p.Amount = money.Round2(p.Amount)

	if err := s.payments.Create(ctx, p); err != nil {
		return nil, err
	}
	return s.ledger.Settle(ctx, p.PatientID, p.Amount)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Payment, error) {
	return s.payments.GetByID(ctx, id)
}

// Delete removes a payment record and recomputes the patient's balance.
// Sessions and reports the payment settled stay settled; deletion corrects
// the bookkeeping, it does not unwind allocations.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	p, err := s.payments.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.payments.Delete(ctx, id); err != nil {
		return err
	}
	_, err = s.ledger.RecomputeBalance(ctx, p.PatientID)
	return err
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Payment, int, error) {
	return s.payments.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Payment, int, error) {
	return s.payments.List(ctx, limit, offset)
}
