package report

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/practica/practica/pkg/money"
)

var validTypes = map[string]bool{
	TypeLetter: true, TypeTreatmentCertificate: true,
	TypePsychAssessment: true, TypeMeeting: true,
}

var validProductionStates = map[string]bool{
	ProductionPending: true, ProductionMissingTests: true,
	ProductionFinished: true, ProductionDelivered: true,
}

// Ledger is the slice of the billing ledger the report service needs.
// Price edits and deletions change the patient's outstanding total.
type Ledger interface {
	RecomputeBalance(ctx context.Context, patientID uuid.UUID) (float64, error)
}

type Service struct {
	reports Repository
	ledger  Ledger
}

func NewService(reports Repository) *Service {
	return &Service{reports: reports}
}

// SetLedger attaches the billing ledger to the service.
func (s *Service) SetLedger(l Ledger) {
	s.ledger = l
}

func (s *Service) Create(ctx context.Context, r *Report) error {
	if r.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if r.Type == "" {
		r.Type = TypeLetter
	}
	if !validTypes[r.Type] {
		return fmt.Errorf("invalid report type: %s", r.Type)
	}
	if r.Price < 0 {
		return fmt.Errorf("price cannot be negative")
	}
	if r.ProductionState == "" {
		r.ProductionState = ProductionPending
	}
	if !validProductionStates[r.ProductionState] {
		return fmt.Errorf("invalid production state: %s", r.ProductionState)
	}
	r.Price = money.Round2(r.Price)
	// Payment bookkeeping always starts from zero; money is applied only by
	// the ledger.
	r.AmountPaid = 0
	r.PaymentState = PaymentPending
	if err := s.reports.Create(ctx, r); err != nil {
		return err
	}
	if s.ledger != nil {
		_, err := s.ledger.RecomputeBalance(ctx, r.PatientID)
		return err
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Report, error) {
	return s.reports.GetByID(ctx, id)
}

// Update changes report metadata and production state. The paid amount is
// ledger-owned: it is carried over from the stored record, and the payment
// state is rederived in case the price moved past it.
func (s *Service) Update(ctx context.Context, r *Report) error {
	current, err := s.reports.GetByID(ctx, r.ID)
	if err != nil {
		return err
	}
	if r.Type == "" {
		r.Type = current.Type
	}
	if !validTypes[r.Type] {
		return fmt.Errorf("invalid report type: %s", r.Type)
	}
	if r.ProductionState == "" {
		r.ProductionState = current.ProductionState
	}
	if !validProductionStates[r.ProductionState] {
		return fmt.Errorf("invalid production state: %s", r.ProductionState)
	}
	if r.Price < 0 {
		return fmt.Errorf("price cannot be negative")
	}
	if r.Price == 0 {
		r.Price = current.Price
	}
	r.PatientID = current.PatientID
	r.Price = money.Round2(r.Price)
	r.AmountPaid = current.AmountPaid
	r.ResolvePaymentState()
	if err := s.reports.Update(ctx, r); err != nil {
		return err
	}
	if s.ledger != nil {
		_, err = s.ledger.RecomputeBalance(ctx, r.PatientID)
		return err
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	r, err := s.reports.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.reports.Delete(ctx, id); err != nil {
		return err
	}
	if s.ledger != nil {
		_, err = s.ledger.RecomputeBalance(ctx, r.PatientID)
		return err
	}
	return nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Report, int, error) {
	return s.reports.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListUnsettledByPatient(ctx context.Context, patientID uuid.UUID) ([]*Report, error) {
	return s.reports.ListUnsettledByPatient(ctx, patientID)
}
