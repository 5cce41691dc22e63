package report

import (
	"time"

	"github.com/google/uuid"

	"github.com/practica/practica/pkg/money"
)

// Report types.
const (
	TypeLetter               = "letter"
	TypeTreatmentCertificate = "treatment_certificate"
	TypePsychAssessment      = "psych_assessment"
	TypeMeeting              = "meeting"
)

// Production states track the writing of the report itself, independent of
// payment.
const (
	ProductionPending      = "pending"
	ProductionMissingTests = "missing_tests"
	ProductionFinished     = "finished"
	ProductionDelivered    = "delivered"
)

// Payment states. Unlike sessions, reports can be partially paid.
const (
	PaymentPending = "pending"
	PaymentPartial = "partial"
	PaymentPaid    = "paid"
)

// Report maps to the reports table.
type Report struct {
	ID              uuid.UUID `db:"id" json:"id"`
	PatientID       uuid.UUID `db:"patient_id" json:"patient_id"`
	Type            string    `db:"report_type" json:"report_type"`
	ProductionState string    `db:"production_state" json:"production_state"`
	PaymentState    string    `db:"payment_state" json:"payment_state"`
	Price           float64   `db:"price" json:"price"`
	AmountPaid      float64   `db:"amount_paid" json:"amount_paid"`
	Notes           *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// Outstanding returns the unpaid remainder of the report price.
func (r *Report) Outstanding() float64 {
	out := money.Round2(r.Price - r.AmountPaid)
	if out < 0 {
		return 0
	}
	return out
}

// ResolvePaymentState derives the payment state from amount_paid vs price.
// It is the single source of truth for the paid/partial/pending transition.
func (r *Report) ResolvePaymentState() {
	switch {
	case money.GTE(r.AmountPaid, r.Price):
		r.AmountPaid = r.Price
		r.PaymentState = PaymentPaid
	case r.AmountPaid > money.Epsilon:
		r.PaymentState = PaymentPartial
	default:
		r.AmountPaid = 0
		r.PaymentState = PaymentPending
	}
}

// IsSettled reports whether the report is fully paid.
func (r *Report) IsSettled() bool {
	return r.PaymentState == PaymentPaid
}
