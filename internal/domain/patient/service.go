package patient

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/practica/practica/pkg/money"
)

var validBillingTypes = map[string]bool{
	BillingStandard: true, BillingMonthly: true, BillingDiagnostic: true,
}

type Service struct {
	patients Repository
}

func NewService(patients Repository) *Service {
	return &Service{patients: patients}
}

func (s *Service) Create(ctx context.Context, p *Patient) error {
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if p.BillingType == "" {
		p.BillingType = BillingStandard
	}
	if !validBillingTypes[p.BillingType] {
		return fmt.Errorf("invalid billing type: %s", p.BillingType)
	}
	if p.SessionPrice < 0 {
		return fmt.Errorf("session price cannot be negative")
	}
	p.SessionPrice = money.Round2(p.SessionPrice)
	p.Balance = money.Round2(p.Balance)
	return s.patients.Create(ctx, p)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

// Update changes patient master data. The running balance is preserved from
// the stored record so that edits cannot clobber the ledger's bookkeeping.
func (s *Service) Update(ctx context.Context, p *Patient) error {
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if p.BillingType != "" && !validBillingTypes[p.BillingType] {
		return fmt.Errorf("invalid billing type: %s", p.BillingType)
	}
	if p.SessionPrice < 0 {
		return fmt.Errorf("session price cannot be negative")
	}
	current, err := s.patients.GetByID(ctx, p.ID)
	if err != nil {
		return err
	}
	p.Balance = current.Balance
	p.SessionPrice = money.Round2(p.SessionPrice)
	return s.patients.Update(ctx, p)
}

// AdjustBalance is an explicit balance correction. Everything else goes
// through the ledger.
func (s *Service) AdjustBalance(ctx context.Context, id uuid.UUID, balance float64) (*Patient, error) {
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Balance = money.Round2(balance)
	if err := s.patients.UpdateBalance(ctx, id, p.Balance); err != nil {
		return nil, err
	}
	return p, nil
}

// Delete removes a patient together with all of their sessions, payments and
// reports.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.patients.GetByID(ctx, id); err != nil {
		return err
	}
	return s.patients.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, limit, offset)
}

func (s *Service) SearchByName(ctx context.Context, name string, limit, offset int) ([]*Patient, int, error) {
	return s.patients.SearchByName(ctx, name, limit, offset)
}
