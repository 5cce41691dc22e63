// Package stats aggregates monthly billing figures across patients.
package stats

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/practica/practica/internal/domain/patient"
	"github.com/practica/practica/internal/domain/payment"
	"github.com/practica/practica/internal/domain/report"
	"github.com/practica/practica/internal/domain/session"
	"github.com/practica/practica/pkg/money"
)

// PatientRow is the per-patient detail line of a monthly summary. Only
// patients who paid something in the month or carry debt are listed.
type PatientRow struct {
	PatientID   uuid.UUID `json:"patient_id"`
	Name        string    `json:"name"`
	BillingType string    `json:"billing_type"`
	Collected   float64   `json:"collected"`
	Debt        float64   `json:"debt"`
	SocialFee   bool      `json:"social_fee"`
}

// MonthlyStats summarizes a month of billing: money collected overall and
// per billing type, the outstanding report amount, and accumulated debt.
// Debt figures are point-in-time, not scoped to the month.
type MonthlyStats struct {
	Year              int                `json:"year"`
	Month             int                `json:"month"`
	TotalCollected    float64            `json:"total_collected"`
	CollectedByType   map[string]float64 `json:"collected_by_type"`
	ReportOutstanding float64            `json:"report_outstanding"`
	TotalDebt         float64            `json:"total_debt"`
	DebtByType        map[string]float64 `json:"debt_by_type"`
	Patients          []PatientRow       `json:"patients"`
}

type Service struct {
	patients patient.Repository
	sessions session.Repository
	payments payment.Repository
	reports  report.Repository
}

func NewService(patients patient.Repository, sessions session.Repository, payments payment.Repository, reports report.Repository) *Service {
	return &Service{patients: patients, sessions: sessions, payments: payments, reports: reports}
}

// Monthly computes the billing summary for the given month. Zero year or
// month defaults to the current one.
func (s *Service) Monthly(ctx context.Context, year, month int) (*MonthlyStats, error) {
	now := time.Now()
	if year == 0 {
		year = now.Year()
	}
	if month == 0 {
		month = int(now.Month())
	}

	st := &MonthlyStats{
		Year:  year,
		Month: month,
		CollectedByType: map[string]float64{
			patient.BillingStandard: 0, patient.BillingMonthly: 0, patient.BillingDiagnostic: 0,
		},
		DebtByType: map[string]float64{
			patient.BillingStandard: 0, patient.BillingMonthly: 0, patient.BillingDiagnostic: 0,
		},
	}

	monthPayments, err := s.payments.ListByMonth(ctx, year, month)
	if err != nil {
		return nil, err
	}
	collectedBy := make(map[uuid.UUID]float64)
	for _, p := range monthPayments {
		collectedBy[p.PatientID] += p.Amount
	}

	// Unsettled reports are fetched once across all patients and grouped,
	// instead of one query per patient in the loop below.
	unsettled, err := s.reports.ListUnsettled(ctx)
	if err != nil {
		return nil, err
	}
	reportDebtBy := make(map[uuid.UUID]float64)
	for _, r := range unsettled {
		reportDebtBy[r.PatientID] += r.Outstanding()
	}

	all, err := s.patients.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range all {
		collected := money.Round2(collectedBy[p.ID])
		if collected > 0 {
			st.TotalCollected += collected
			st.CollectedByType[p.BillingType] += collected
		}

		pending, err := s.sessions.ListPendingByPatient(ctx, p.ID)
		if err != nil {
			return nil, err
		}

		reportDebt := reportDebtBy[p.ID]
		st.ReportOutstanding += reportDebt

		debt := reportDebt
		for _, sess := range pending {
			debt += sess.Price
		}
		debt = money.Round2(debt)
		st.TotalDebt += debt
		st.DebtByType[p.BillingType] += debt

		if collected > 0 || debt > 0 {
			st.Patients = append(st.Patients, PatientRow{
				PatientID:   p.ID,
				Name:        p.Name,
				BillingType: p.BillingType,
				Collected:   collected,
				Debt:        debt,
				SocialFee:   p.SocialFee,
			})
		}
	}

	st.TotalCollected = money.Round2(st.TotalCollected)
	st.ReportOutstanding = money.Round2(st.ReportOutstanding)
	st.TotalDebt = money.Round2(st.TotalDebt)
	for k, v := range st.CollectedByType {
		st.CollectedByType[k] = money.Round2(v)
	}
	for k, v := range st.DebtByType {
		st.DebtByType[k] = money.Round2(v)
	}
	return st, nil
}
