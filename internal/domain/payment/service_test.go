package payment

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/practica/practica/internal/domain/ledger"
)

type mockRepo struct {
	payments  map[uuid.UUID]*Payment
	createErr error
}

func newMockRepo() *mockRepo {
	return &mockRepo{payments: make(map[uuid.UUID]*Payment)}
}

func (m *mockRepo) Create(ctx context.Context, p *Payment) error {
	if m.createErr != nil {
		return m.createErr
	}
	p.ID = uuid.New()
	cp := *p
	m.payments[p.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(ctx context.Context, id uuid.UUID) (*Payment, error) {
	p, ok := m.payments[id]
	if !ok {
		return nil, fmt.Errorf("payment not found")
	}
	cp := *p
	return &cp, nil
}

func (m *mockRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(m.payments, id)
	return nil
}

func (m *mockRepo) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Payment, int, error) {
	var out []*Payment
	for _, p := range m.payments {
		if p.PatientID == patientID {
			out = append(out, p)
		}
	}
	return out, len(out), nil
}

func (m *mockRepo) ListByMonth(ctx context.Context, year, month int) ([]*Payment, error) {
	var out []*Payment
	for _, p := range m.payments {
		if p.Date.Year() == year && int(p.Date.Month()) == month {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockRepo) List(ctx context.Context, limit, offset int) ([]*Payment, int, error) {
	var out []*Payment
	for _, p := range m.payments {
		out = append(out, p)
	}
	return out, len(out), nil
}

type fakeLedger struct {
	settled    []float64
	recomputed []uuid.UUID
	settleErr  error
}

func (f *fakeLedger) Settle(ctx context.Context, patientID uuid.UUID, amount float64) (*ledger.Settlement, error) {
	f.settled = append(f.settled, amount)
	if f.settleErr != nil {
		return &ledger.Settlement{PatientID: patientID, Amount: amount}, f.settleErr
	}
	return &ledger.Settlement{PatientID: patientID, Amount: amount}, nil
}

func (f *fakeLedger) RecomputeBalance(ctx context.Context, patientID uuid.UUID) (float64, error) {
	f.recomputed = append(f.recomputed, patientID)
	return 0, nil
}

func TestCreate_SettlesPayment(t *testing.T) {
	repo := newMockRepo()
	led := &fakeLedger{}
	svc := NewService(repo, led)

	p := &Payment{PatientID: uuid.New(), Amount: 120.555}
	st, err := svc.Create(context.Background(), p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Concept != ConceptSession {
		t.Errorf("expected default concept session, got %s", p.Concept)
	}
	if p.Amount != 120.56 {
		t.Errorf("expected amount rounded to 120.56, got %v", p.Amount)
	}
	if p.Date.IsZero() {
		t.Error("expected date defaulted")
	}
	if len(led.settled) != 1 || led.settled[0] != 120.56 {
		t.Errorf("expected ledger settled with 120.56, got %v", led.settled)
	}
	if st == nil || st.Amount != 120.56 {
		t.Errorf("expected settlement returned, got %+v", st)
	}
	if _, ok := repo.payments[p.ID]; !ok {
		t.Error("expected payment persisted")
	}
}

func TestCreate_Validation(t *testing.T) {
	svc := NewService(newMockRepo(), &fakeLedger{})

	if _, err := svc.Create(context.Background(), &Payment{Amount: 50}); err == nil {
		t.Error("expected error for missing patient_id")
	}
	if _, err := svc.Create(context.Background(), &Payment{PatientID: uuid.New(), Amount: 0}); !errors.Is(err, ledger.ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount for zero amount, got %v", err)
	}
	if _, err := svc.Create(context.Background(), &Payment{PatientID: uuid.New(), Amount: -30}); !errors.Is(err, ledger.ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount for negative amount, got %v", err)
	}
	if _, err := svc.Create(context.Background(), &Payment{PatientID: uuid.New(), Amount: 50, Concept: "tip"}); err == nil {
		t.Error("expected error for invalid concept")
	}
}

func TestCreate_PersistsBeforeSettle(t *testing.T) {
	repo := newMockRepo()
	led := &fakeLedger{settleErr: &ledger.PartialFailure{Err: fmt.Errorf("storage unavailable")}}
	svc := NewService(repo, led)

	p := &Payment{PatientID: uuid.New(), Amount: 80}
	st, err := svc.Create(context.Background(), p)
	var pf *ledger.PartialFailure
	if !errors.As(err, &pf) {
		t.Fatalf("expected partial failure surfaced, got %v", err)
	}
	if st == nil {
		t.Error("expected settlement summary alongside the error")
	}
	if _, ok := repo.payments[p.ID]; !ok {
		t.Error("expected payment record kept despite settlement failure")
	}
}

func TestCreate_RepoErrorSkipsSettle(t *testing.T) {
	repo := newMockRepo()
	repo.createErr = fmt.Errorf("insert failed")
	led := &fakeLedger{}
	svc := NewService(repo, led)

	if _, err := svc.Create(context.Background(), &Payment{PatientID: uuid.New(), Amount: 80}); err == nil {
		t.Fatal("expected error")
	}
	if len(led.settled) != 0 {
		t.Error("expected no settlement when the payment was not persisted")
	}
}

func TestDelete_TriggersRecompute(t *testing.T) {
	repo := newMockRepo()
	led := &fakeLedger{}
	svc := NewService(repo, led)

	pid := uuid.New()
	p := &Payment{PatientID: pid, Amount: 80, Date: time.Now(), Concept: ConceptSession}
	if _, err := svc.Create(context.Background(), p); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Delete(context.Background(), p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := repo.payments[p.ID]; ok {
		t.Error("expected payment removed")
	}
	if len(led.recomputed) != 1 || led.recomputed[0] != pid {
		t.Errorf("expected recompute for patient %s, got %v", pid, led.recomputed)
	}
}

func TestDelete_Unknown(t *testing.T) {
	svc := NewService(newMockRepo(), &fakeLedger{})
	if err := svc.Delete(context.Background(), uuid.New()); err == nil {
		t.Fatal("expected error for unknown payment")
	}
}
