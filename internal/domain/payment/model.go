package payment

import (
	"time"

	"github.com/google/uuid"
)

// Payment concepts describe what a payment was handed over for. The concept
// is bookkeeping only; allocation across open items is the ledger's job.
const (
	ConceptSession    = "session"
	ConceptMonthly    = "monthly"
	ConceptDiagnostic = "diagnostic"
	ConceptReport     = "report"
)

type Payment struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PatientID uuid.UUID `db:"patient_id" json:"patient_id"`
	Date      time.Time `db:"date" json:"date"`
	Amount    float64   `db:"amount" json:"amount"`
	Concept   string    `db:"concept" json:"concept"`
	Notes     *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
