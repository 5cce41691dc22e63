package session

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/practica/practica/internal/domain/patient"
	"github.com/practica/practica/pkg/money"
)

var validTypes = map[string]bool{
	TypeStandard: true, TypeTrauma: true, TypeCouples: true,
	TypeFamily: true, TypeDiagnostic: true,
}

var validStates = map[string]bool{
	StatePending: true, StatePaid: true,
}

// Ledger is the slice of the billing ledger the session service needs.
// Creating a session gives the ledger a chance to consume stored credit;
// editing or deleting one requires the patient balance to be recomputed.
type Ledger interface {
	SessionCreated(ctx context.Context, s *Session) error
	RecomputeBalance(ctx context.Context, patientID uuid.UUID) (float64, error)
}

type Service struct {
	sessions Repository
	patients patient.Repository
	ledger   Ledger
}

func NewService(sessions Repository, patients patient.Repository) *Service {
	return &Service{sessions: sessions, patients: patients}
}

// SetLedger attaches the billing ledger to the service.
func (s *Service) SetLedger(l Ledger) {
	s.ledger = l
}

func (s *Service) Create(ctx context.Context, sess *Session) error {
	if sess.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	p, err := s.patients.GetByID(ctx, sess.PatientID)
	if err != nil {
		return fmt.Errorf("patient not found")
	}
	if sess.Type == "" {
		sess.Type = TypeStandard
	}
	if !validTypes[sess.Type] {
		return fmt.Errorf("invalid session type: %s", sess.Type)
	}
	if sess.Price < 0 {
		return fmt.Errorf("price cannot be negative")
	}
	// New sessions default to the patient's agreed session price.
	if sess.Price == 0 {
		sess.Price = p.SessionPrice
	}
	sess.Price = money.Round2(sess.Price)
	sess.State = StatePending
	if sess.Date.IsZero() {
		return fmt.Errorf("date is required")
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return err
	}
	if s.ledger != nil {
		return s.ledger.SessionCreated(ctx, sess)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	return s.sessions.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, sess *Session) error {
	current, err := s.sessions.GetByID(ctx, sess.ID)
	if err != nil {
		return err
	}
	if sess.Type != "" && !validTypes[sess.Type] {
		return fmt.Errorf("invalid session type: %s", sess.Type)
	}
	if sess.State != "" && !validStates[sess.State] {
		return fmt.Errorf("invalid session state: %s", sess.State)
	}
	if sess.Price < 0 {
		return fmt.Errorf("price cannot be negative")
	}
	if sess.Type == "" {
		sess.Type = current.Type
	}
	if sess.State == "" {
		sess.State = current.State
	}
	// An omitted price keeps the stored one; zeroing it here would wipe
	// the debt off the patient's balance on the next recompute.
	if sess.Price == 0 {
		sess.Price = current.Price
	}
	if sess.Date.IsZero() {
		sess.Date = current.Date
	}
	sess.PatientID = current.PatientID
	sess.Price = money.Round2(sess.Price)
	if err := s.sessions.Update(ctx, sess); err != nil {
		return err
	}
	if s.ledger != nil {
		_, err = s.ledger.RecomputeBalance(ctx, sess.PatientID)
		return err
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	sess, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.sessions.Delete(ctx, id); err != nil {
		return err
	}
	if s.ledger != nil {
		_, err = s.ledger.RecomputeBalance(ctx, sess.PatientID)
		return err
	}
	return nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Session, int, error) {
	return s.sessions.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListPendingByPatient(ctx context.Context, patientID uuid.UUID) ([]*Session, error) {
	return s.sessions.ListPendingByPatient(ctx, patientID)
}
