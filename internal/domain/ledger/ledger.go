// Package ledger implements the billing core: deterministic allocation of
// incoming payments across a patient's pending sessions and unsettled
// reports, and maintenance of the running debt/credit balance.
package ledger

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/practica/practica/internal/domain/patient"
	"github.com/practica/practica/internal/domain/report"
	"github.com/practica/practica/internal/domain/session"
	"github.com/practica/practica/pkg/money"
)

// Store is the persistence contract the ledger runs against. Implementations
// must return ErrPatientNotFound from GetPatient for unknown ids, order
// PendingSessions by date ascending with the id as tiebreak, and order
// UnsettledReports by creation time ascending.
type Store interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
	SavePatient(ctx context.Context, p *patient.Patient) error
	PendingSessions(ctx context.Context, patientID uuid.UUID) ([]*session.Session, error)
	UnsettledReports(ctx context.Context, patientID uuid.UUID) ([]*report.Report, error)
	SaveSession(ctx context.Context, s *session.Session) error
	SaveReport(ctx context.Context, r *report.Report) error
}

// Metrics receives settlement counters. The zero value of the service
// carries no metrics sink.
type Metrics interface {
	SettlementProcessed(amount float64)
	CreditCarried(amount float64)
	SettlementPartialFailure()
}

// SessionPaid describes one session settled by a payment.
type SessionPaid struct {
	ID    uuid.UUID `json:"id"`
	Type  string    `json:"session_type"`
	Date  time.Time `json:"date"`
	Price float64   `json:"price"`
}

// ReportApplication describes money applied to one report.
type ReportApplication struct {
	ID            uuid.UUID `json:"id"`
	Type          string    `json:"report_type"`
	AmountApplied float64   `json:"amount_applied"`
	PaymentState  string    `json:"payment_state"`
}

// Settlement summarizes what a payment did.
type Settlement struct {
	PatientID      uuid.UUID           `json:"patient_id"`
	Amount         float64             `json:"amount"`
	SessionsPaid   []SessionPaid       `json:"sessions_paid"`
	ReportsTouched []ReportApplication `json:"reports_touched"`
	CreditCarried  float64             `json:"credit_carried"`
	BalanceBefore  float64             `json:"balance_before"`
	BalanceAfter   float64             `json:"balance_after"`
}

type Service struct {
	store   Store
	metrics Metrics

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func NewService(store Store) *Service {
	return &Service{
		store: store,
		locks: make(map[uuid.UUID]*sync.Mutex),
	}
}

// SetMetrics attaches an optional metrics sink to the service.
func (s *Service) SetMetrics(m Metrics) {
	s.metrics = m
}

// patientLock returns the mutex guarding a single patient's ledger state.
// All ledger operations for one patient serialize on it so overlapping
// requests cannot interleave their read-modify-write cycles.
func (s *Service) patientLock(id uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// Settle allocates a payment across the patient's open items:
//
//  1. Pending sessions, oldest first. A session is either fully covered or
//     not at all; the walk halts at the first session the remainder cannot
//     cover, even if a cheaper one follows.
//  2. Unsettled reports, oldest first. Reports absorb whatever remains,
//     full cover first, then one partial application.
//  3. Anything left beyond tolerance is carried as credit (negative
//     balance).
//
// The final balance is always recomputed from freshly re-read state, never
// incrementally, so a settlement leaves the balance consistent even after a
// mid-walk storage failure. In that case the returned error is a
// *PartialFailure listing the items that were persisted.
func (s *Service) Settle(ctx context.Context, patientID uuid.UUID, amount float64) (*Settlement, error) {
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return nil, ErrInvalidAmount
	}

	l := s.patientLock(patientID)
	l.Lock()
	defer l.Unlock()

	p, err := s.store.GetPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	st := &Settlement{
		PatientID:     patientID,
		Amount:        money.Round2(amount),
		BalanceBefore: p.Balance,
	}

	remaining := money.Round2(amount)
	var pf *PartialFailure

	sessions, err := s.store.PendingSessions(ctx, patientID)
	if err != nil {
		return nil, err
	}
	for _, sess := range sessions {
		if !money.GTE(remaining, sess.Price) {
			// Strict halt: the oldest unpayable session blocks everything
			// behind it.
			break
		}
		sess.State = session.StatePaid
		if err := s.store.SaveSession(ctx, sess); err != nil {
			pf = &PartialFailure{Err: err}
			for _, sp := range st.SessionsPaid {
				pf.SessionsSaved = append(pf.SessionsSaved, sp.ID)
			}
			break
		}
		remaining = money.Round2(remaining - sess.Price)
		st.SessionsPaid = append(st.SessionsPaid, SessionPaid{
			ID: sess.ID, Type: sess.Type, Date: sess.Date, Price: sess.Price,
		})
	}

	if pf == nil && remaining > money.Epsilon {
		reports, err := s.store.UnsettledReports(ctx, patientID)
		if err != nil {
			return nil, err
		}
		for _, rep := range reports {
			if remaining <= money.Epsilon {
				break
			}
			applied := rep.Outstanding()
			if applied > remaining {
				applied = remaining
			}
			rep.AmountPaid = money.Round2(rep.AmountPaid + applied)
			rep.ResolvePaymentState()
			if err := s.store.SaveReport(ctx, rep); err != nil {
				pf = &PartialFailure{Err: err}
				for _, sp := range st.SessionsPaid {
					pf.SessionsSaved = append(pf.SessionsSaved, sp.ID)
				}
				for _, ra := range st.ReportsTouched {
					pf.ReportsSaved = append(pf.ReportsSaved, ra.ID)
				}
				break
			}
			remaining = money.Round2(remaining - applied)
			st.ReportsTouched = append(st.ReportsTouched, ReportApplication{
				ID: rep.ID, Type: rep.Type, AmountApplied: applied, PaymentState: rep.PaymentState,
			})
		}
	}

	if remaining > money.Epsilon {
		st.CreditCarried = remaining
	}

	// The closing balance comes from re-read state, not from the walk.
	balance, err := s.recomputeLocked(ctx, p, st.CreditCarried)
	if err != nil {
		if pf != nil {
			return st, pf
		}
		return st, err
	}
	st.BalanceAfter = balance

	if s.metrics != nil {
		s.metrics.SettlementProcessed(st.Amount)
		if st.CreditCarried > 0 {
			s.metrics.CreditCarried(st.CreditCarried)
		}
		if pf != nil {
			s.metrics.SettlementPartialFailure()
		}
	}

	if pf != nil {
		return st, pf
	}
	return st, nil
}

// RecomputeBalance recalculates and persists the patient's balance from the
// authoritative open items. It is idempotent and is invoked by every edit or
// delete path that can change what the patient owes.
func (s *Service) RecomputeBalance(ctx context.Context, patientID uuid.UUID) (float64, error) {
	l := s.patientLock(patientID)
	l.Lock()
	defer l.Unlock()

	p, err := s.store.GetPatient(ctx, patientID)
	if err != nil {
		return 0, err
	}
	return s.recomputeLocked(ctx, p, 0)
}

// recomputeLocked sums pending sessions and report outstandings, subtracts
// carried credit, and persists the result. Stored credit survives only while
// nothing is outstanding; once open items exist they define the balance.
// The caller must hold the patient lock.
func (s *Service) recomputeLocked(ctx context.Context, p *patient.Patient, credit float64) (float64, error) {
	sessions, err := s.store.PendingSessions(ctx, p.ID)
	if err != nil {
		return 0, err
	}
	reports, err := s.store.UnsettledReports(ctx, p.ID)
	if err != nil {
		return 0, err
	}

	var outstanding float64
	for _, sess := range sessions {
		outstanding += sess.Price
	}
	for _, rep := range reports {
		outstanding += rep.Outstanding()
	}
	outstanding = money.Round2(outstanding)

	var balance float64
	switch {
	case credit > money.Epsilon:
		balance = money.Round2(outstanding - credit)
	case outstanding > money.Epsilon:
		balance = outstanding
	case p.Balance < -money.Epsilon:
		// Nothing outstanding: keep existing credit.
		balance = p.Balance
	default:
		balance = 0
	}

	p.Balance = balance
	if err := s.store.SavePatient(ctx, p); err != nil {
		return 0, err
	}
	return balance, nil
}

// ApplyCreditToNewSession consumes stored credit against a just-created
// session. With enough credit the session is immediately paid and the
// remainder stays as credit; with partial credit the session stays pending
// and the balance becomes the uncovered part of its price. Without credit it
// is a no-op.
func (s *Service) ApplyCreditToNewSession(ctx context.Context, patientID uuid.UUID, sess *session.Session) error {
	l := s.patientLock(patientID)
	l.Lock()
	defer l.Unlock()

	p, err := s.store.GetPatient(ctx, patientID)
	if err != nil {
		return err
	}
	return s.applyCreditLocked(ctx, p, sess)
}

func (s *Service) applyCreditLocked(ctx context.Context, p *patient.Patient, sess *session.Session) error {
	credit := -p.Balance
	if credit <= money.Epsilon {
		return nil
	}

	if money.GTE(credit, sess.Price) {
		sess.State = session.StatePaid
		if err := s.store.SaveSession(ctx, sess); err != nil {
			return err
		}
	}

	// Covered or not, the session price eats into the stored credit; what
	// is not covered becomes debt.
	p.Balance = money.Round2(p.Balance + sess.Price)
	return s.store.SavePatient(ctx, p)
}

// SessionCreated is the hook the session service calls after persisting a
// new session. With stored credit the credit application runs; otherwise the
// balance is recomputed to absorb the new pending session.
func (s *Service) SessionCreated(ctx context.Context, sess *session.Session) error {
	l := s.patientLock(sess.PatientID)
	l.Lock()
	defer l.Unlock()

	p, err := s.store.GetPatient(ctx, sess.PatientID)
	if err != nil {
		return err
	}
	if p.Balance < -money.Epsilon {
		return s.applyCreditLocked(ctx, p, sess)
	}
	_, err = s.recomputeLocked(ctx, p, 0)
	return err
}
