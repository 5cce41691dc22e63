package session

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/practica/practica/internal/domain/patient"
)

type mockRepo struct {
	sessions map[uuid.UUID]*Session
}

func newMockRepo() *mockRepo {
	return &mockRepo{sessions: make(map[uuid.UUID]*Session)}
}

func (m *mockRepo) Create(ctx context.Context, s *Session) error {
	s.ID = uuid.New()
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(ctx context.Context, id uuid.UUID) (*Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session not found")
	}
	cp := *s
	return &cp, nil
}

func (m *mockRepo) Update(ctx context.Context, s *Session) error {
	if _, ok := m.sessions[s.ID]; !ok {
		return fmt.Errorf("session not found")
	}
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *mockRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(m.sessions, id)
	return nil
}

func (m *mockRepo) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Session, int, error) {
	var out []*Session
	for _, s := range m.sessions {
		if s.PatientID == patientID {
			out = append(out, s)
		}
	}
	return out, len(out), nil
}

func (m *mockRepo) ListPendingByPatient(ctx context.Context, patientID uuid.UUID) ([]*Session, error) {
	var out []*Session
	for _, s := range m.sessions {
		if s.PatientID == patientID && s.State == StatePending {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockRepo) ListByMonth(ctx context.Context, year int, month int) ([]*Session, error) {
	return nil, nil
}

type mockPatientRepo struct {
	patients map[uuid.UUID]*patient.Patient
}

func newMockPatientRepo() *mockPatientRepo {
	return &mockPatientRepo{patients: make(map[uuid.UUID]*patient.Patient)}
}

func (m *mockPatientRepo) Create(ctx context.Context, p *patient.Patient) error {
	p.ID = uuid.New()
	m.patients[p.ID] = p
	return nil
}

func (m *mockPatientRepo) GetByID(ctx context.Context, id uuid.UUID) (*patient.Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, fmt.Errorf("patient not found")
	}
	return p, nil
}

func (m *mockPatientRepo) Update(ctx context.Context, p *patient.Patient) error { return nil }
func (m *mockPatientRepo) UpdateBalance(ctx context.Context, id uuid.UUID, balance float64) error {
	return nil
}
func (m *mockPatientRepo) Delete(ctx context.Context, id uuid.UUID) error { return nil }
func (m *mockPatientRepo) List(ctx context.Context, limit, offset int) ([]*patient.Patient, int, error) {
	return nil, 0, nil
}
func (m *mockPatientRepo) SearchByName(ctx context.Context, name string, limit, offset int) ([]*patient.Patient, int, error) {
	return nil, 0, nil
}
func (m *mockPatientRepo) ListAll(ctx context.Context) ([]*patient.Patient, error) { return nil, nil }

type fakeLedger struct {
	created    []uuid.UUID
	recomputed []uuid.UUID
}

func (f *fakeLedger) SessionCreated(ctx context.Context, s *Session) error {
	f.created = append(f.created, s.ID)
	return nil
}

func (f *fakeLedger) RecomputeBalance(ctx context.Context, patientID uuid.UUID) (float64, error) {
	f.recomputed = append(f.recomputed, patientID)
	return 0, nil
}

func setup(t *testing.T) (*Service, *mockRepo, *mockPatientRepo, *fakeLedger, *patient.Patient) {
	t.Helper()
	repo := newMockRepo()
	patients := newMockPatientRepo()
	ledger := &fakeLedger{}

	p := &patient.Patient{Name: "Ana", BillingType: patient.BillingStandard, SessionPrice: 80}
	if err := patients.Create(context.Background(), p); err != nil {
		t.Fatalf("create patient: %v", err)
	}

	svc := NewService(repo, patients)
	svc.SetLedger(ledger)
	return svc, repo, patients, ledger, p
}

func TestCreate_DefaultsPriceFromPatient(t *testing.T) {
	svc, _, _, _, p := setup(t)

	s := &Session{PatientID: p.ID, Date: time.Now()}
	if err := svc.Create(context.Background(), s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Price != 80 {
		t.Errorf("expected price defaulted to 80, got %v", s.Price)
	}
	if s.State != StatePending {
		t.Errorf("expected new session pending, got %s", s.State)
	}
	if s.Type != TypeStandard {
		t.Errorf("expected default type standard, got %s", s.Type)
	}
}

func TestCreate_ExplicitPriceKept(t *testing.T) {
	svc, _, _, _, p := setup(t)

	s := &Session{PatientID: p.ID, Date: time.Now(), Price: 120, Type: TypeCouples}
	if err := svc.Create(context.Background(), s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Price != 120 {
		t.Errorf("expected price 120, got %v", s.Price)
	}
}

func TestCreate_NotifiesLedger(t *testing.T) {
	svc, _, _, ledger, p := setup(t)

	s := &Session{PatientID: p.ID, Date: time.Now()}
	if err := svc.Create(context.Background(), s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ledger.created) != 1 || ledger.created[0] != s.ID {
		t.Errorf("expected ledger notified of session %s, got %v", s.ID, ledger.created)
	}
}

func TestCreate_UnknownPatient(t *testing.T) {
	svc, _, _, _, _ := setup(t)
	s := &Session{PatientID: uuid.New(), Date: time.Now()}
	if err := svc.Create(context.Background(), s); err == nil {
		t.Fatal("expected error for unknown patient")
	}
}

func TestCreate_InvalidType(t *testing.T) {
	svc, _, _, _, p := setup(t)
	s := &Session{PatientID: p.ID, Date: time.Now(), Type: "group"}
	if err := svc.Create(context.Background(), s); err == nil {
		t.Fatal("expected error for invalid session type")
	}
}

func TestCreate_RequiresDate(t *testing.T) {
	svc, _, _, _, p := setup(t)
	s := &Session{PatientID: p.ID}
	if err := svc.Create(context.Background(), s); err == nil {
		t.Fatal("expected error for missing date")
	}
}

func TestUpdate_TriggersRecompute(t *testing.T) {
	svc, _, _, ledger, p := setup(t)

	s := &Session{PatientID: p.ID, Date: time.Now()}
	if err := svc.Create(context.Background(), s); err != nil {
		t.Fatalf("create: %v", err)
	}

	s.Price = 95
	if err := svc.Update(context.Background(), s); err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(ledger.recomputed) != 1 || ledger.recomputed[0] != p.ID {
		t.Errorf("expected recompute for patient %s, got %v", p.ID, ledger.recomputed)
	}
}

func TestUpdate_PreservesPatientID(t *testing.T) {
	svc, repo, _, _, p := setup(t)

	s := &Session{PatientID: p.ID, Date: time.Now()}
	if err := svc.Create(context.Background(), s); err != nil {
		t.Fatalf("create: %v", err)
	}

	update := &Session{ID: s.ID, PatientID: uuid.New(), Price: 70, Date: s.Date}
	if err := svc.Update(context.Background(), update); err != nil {
		t.Fatalf("update: %v", err)
	}
	stored, _ := repo.GetByID(context.Background(), s.ID)
	if stored.PatientID != p.ID {
		t.Error("expected patient_id to be immutable on update")
	}
}

func TestUpdate_PreservesPriceWhenOmitted(t *testing.T) {
	svc, repo, _, _, p := setup(t)

	s := &Session{PatientID: p.ID, Date: time.Now(), Price: 120}
	if err := svc.Create(context.Background(), s); err != nil {
		t.Fatalf("create: %v", err)
	}

	// A PUT body without a price binds to the zero value.
	if err := svc.Update(context.Background(), &Session{ID: s.ID}); err != nil {
		t.Fatalf("update: %v", err)
	}
	stored, _ := repo.GetByID(context.Background(), s.ID)
	if stored.Price != 120 {
		t.Errorf("price after update without price = %v, want 120", stored.Price)
	}
	if stored.State != StatePending || stored.Type != TypeStandard || stored.Date.IsZero() {
		t.Errorf("omitted fields not preserved: %+v", stored)
	}
}

func TestUpdate_InvalidState(t *testing.T) {
	svc, _, _, _, p := setup(t)

	s := &Session{PatientID: p.ID, Date: time.Now()}
	if err := svc.Create(context.Background(), s); err != nil {
		t.Fatalf("create: %v", err)
	}
	s.State = "cancelled"
	if err := svc.Update(context.Background(), s); err == nil {
		t.Fatal("expected error for invalid state")
	}
}

func TestDelete_TriggersRecompute(t *testing.T) {
	svc, repo, _, ledger, p := setup(t)

	s := &Session{PatientID: p.ID, Date: time.Now()}
	if err := svc.Create(context.Background(), s); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Delete(context.Background(), s.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetByID(context.Background(), s.ID); err == nil {
		t.Error("expected session removed")
	}
	if len(ledger.recomputed) != 1 || ledger.recomputed[0] != p.ID {
		t.Errorf("expected recompute for patient %s, got %v", p.ID, ledger.recomputed)
	}
}

func TestDelete_UnknownSession(t *testing.T) {
	svc, _, _, _, _ := setup(t)
	if err := svc.Delete(context.Background(), uuid.New()); err == nil {
		t.Fatal("expected error for unknown session")
	}
}
