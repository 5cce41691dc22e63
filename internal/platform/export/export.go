// Package export renders patient statements and monthly summaries as CSV
// and XLSX files. It is a thin read-only adapter over the domain
// repositories; nothing here mutates billing state.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/practica/practica/internal/domain/patient"
	"github.com/practica/practica/internal/domain/payment"
	"github.com/practica/practica/internal/domain/report"
	"github.com/practica/practica/internal/domain/session"
	"github.com/practica/practica/internal/domain/stats"
)

const dateLayout = "2006-01-02"

// statementFetchLimit bounds a single statement. A solo practice stays far
// below this.
const statementFetchLimit = 10000

// Statement is the full billing picture for one patient.
type Statement struct {
	Patient  *patient.Patient
	Sessions []*session.Session
	Payments []*payment.Payment
	Reports  []*report.Report
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

// Statement gathers everything needed to render one patient's statement.
func (s *Service) Statement(ctx context.Context, patientID uuid.UUID) (*Statement, error) {
	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return nil, err
	}
	sessions, _, err := s.sessions.ListByPatient(ctx, patientID, statementFetchLimit, 0)
	if err != nil {
		return nil, err
	}
	payments, _, err := s.payments.ListByPatient(ctx, patientID, statementFetchLimit, 0)
	if err != nil {
		return nil, err
	}
	reports, _, err := s.reports.ListByPatient(ctx, patientID, statementFetchLimit, 0)
	if err != nil {
		return nil, err
	}
	return &Statement{Patient: p, Sessions: sessions, Payments: payments, Reports: reports}, nil
}

// WriteStatementCSV renders the statement as three record groups (sessions,
// payments, reports) in a single CSV stream.
func WriteStatementCSV(w io.Writer, st *Statement) error {
	cw := csv.NewWriter(w)

	rows := [][]string{
		{"patient", st.Patient.Name},
		{"billing_type", st.Patient.BillingType},
		{"balance", money(st.Patient.Balance)},
		{},
		{"sessions"},
		{"date", "type", "price", "state"},
	}
	for _, s := range st.Sessions {
		rows = append(rows, []string{
			s.Date.Format(dateLayout), s.Type, money(s.Price), s.State,
		})
	}
	rows = append(rows, []string{}, []string{"payments"}, []string{"date", "amount", "concept"})
	for _, p := range st.Payments {
		rows = append(rows, []string{
			p.Date.Format(dateLayout), money(p.Amount), p.Concept,
		})
	}
	rows = append(rows, []string{}, []string{"reports"}, []string{"created", "type", "price", "amount_paid", "payment_state", "production_state"})
	for _, r := range st.Reports {
		rows = append(rows, []string{
			r.CreatedAt.Format(dateLayout), r.Type, money(r.Price),
			money(r.AmountPaid), r.PaymentState, r.ProductionState,
		})
	}

	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// WriteStatementXLSX renders the statement as a workbook with one sheet per
// record group.
func WriteStatementXLSX(w io.Writer, st *Statement) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := writeSheet(f, "Sessions", [][]interface{}{
		{"Date", "Type", "Price", "State"},
	}, func(rows [][]interface{}) [][]interface{} {
		for _, s := range st.Sessions {
			rows = append(rows, []interface{}{s.Date.Format(dateLayout), s.Type, s.Price, s.State})
		}
		return rows
	}); err != nil {
		return err
	}
	if err := writeSheet(f, "Payments", [][]interface{}{
		{"Date", "Amount", "Concept"},
	}, func(rows [][]interface{}) [][]interface{} {
		for _, p := range st.Payments {
			rows = append(rows, []interface{}{p.Date.Format(dateLayout), p.Amount, p.Concept})
		}
		return rows
	}); err != nil {
		return err
	}
	if err := writeSheet(f, "Reports", [][]interface{}{
		{"Created", "Type", "Price", "Amount Paid", "Payment State", "Production State"},
	}, func(rows [][]interface{}) [][]interface{} {
		for _, r := range st.Reports {
			rows = append(rows, []interface{}{
				r.CreatedAt.Format(dateLayout), r.Type, r.Price, r.AmountPaid, r.PaymentState, r.ProductionState,
			})
		}
		return rows
	}); err != nil {
		return err
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}
	return f.Write(w)
}

// WriteMonthlyCSV renders the monthly summary followed by per-patient rows.
func WriteMonthlyCSV(w io.Writer, ms *stats.MonthlyStats) error {
	cw := csv.NewWriter(w)

	rows := [][]string{
		{"year", strconv.Itoa(ms.Year)},
		{"month", strconv.Itoa(ms.Month)},
		{"total_collected", money(ms.TotalCollected)},
		{"collected_standard", money(ms.CollectedByType[patient.BillingStandard])},
		{"collected_monthly", money(ms.CollectedByType[patient.BillingMonthly])},
		{"collected_diagnostic", money(ms.CollectedByType[patient.BillingDiagnostic])},
		{"report_outstanding", money(ms.ReportOutstanding)},
		{"total_debt", money(ms.TotalDebt)},
		{},
		{"name", "billing_type", "collected", "debt", "social_fee"},
	}
	for _, row := range ms.Patients {
		rows = append(rows, []string{
			row.Name, row.BillingType, money(row.Collected), money(row.Debt),
			strconv.FormatBool(row.SocialFee),
		})
	}

	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// WriteMonthlyXLSX renders the monthly summary as a two-sheet workbook.
func WriteMonthlyXLSX(w io.Writer, ms *stats.MonthlyStats) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := writeSheet(f, "Summary", [][]interface{}{
		{"Year", ms.Year},
		{"Month", ms.Month},
		{"Total Collected", ms.TotalCollected},
		{"Collected (standard)", ms.CollectedByType[patient.BillingStandard]},
		{"Collected (monthly)", ms.CollectedByType[patient.BillingMonthly]},
		{"Collected (diagnostic)", ms.CollectedByType[patient.BillingDiagnostic]},
		{"Report Outstanding", ms.ReportOutstanding},
		{"Total Debt", ms.TotalDebt},
	}, nil); err != nil {
		return err
	}
	if err := writeSheet(f, "Patients", [][]interface{}{
		{"Name", "Billing Type", "Collected", "Debt", "Social Fee"},
	}, func(rows [][]interface{}) [][]interface{} {
		for _, row := range ms.Patients {
			rows = append(rows, []interface{}{row.Name, row.BillingType, row.Collected, row.Debt, row.SocialFee})
		}
		return rows
	}); err != nil {
		return err
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}
	return f.Write(w)
}

func writeSheet(f *excelize.File, name string, rows [][]interface{}, fill func([][]interface{}) [][]interface{}) error {
	if _, err := f.NewSheet(name); err != nil {
		return err
	}
	if fill != nil {
		rows = fill(rows)
	}
	for i, row := range rows {
		for j, val := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(name, cell, val); err != nil {
				return err
			}
		}
	}
	return nil
}

func money(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
