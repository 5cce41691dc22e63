package patient

import (
	"time"

	"github.com/google/uuid"
)

// Billing types determine how a patient is charged and how collected amounts
// are grouped in the monthly statistics.
const (
	BillingStandard   = "standard"
	BillingMonthly    = "monthly"
	BillingDiagnostic = "diagnostic"
)

// Patient maps to the patients table. Balance is the running debt/credit
// position: positive means the patient owes money, negative means the
// practice holds credit for them. It is written only by the ledger.
type Patient struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	BillingType  string    `db:"billing_type" json:"billing_type"`
	SessionPrice float64   `db:"session_price" json:"session_price"`
	Balance      float64   `db:"balance" json:"balance"`
	SocialFee    bool      `db:"social_fee" json:"social_fee"`
	Notes        *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// HasCredit reports whether the patient carries credit from overpayments.
func (p *Patient) HasCredit() bool {
	return p.Balance < -0.009
}

// HasDebt reports whether the patient owes money.
func (p *Patient) HasDebt() bool {
	return p.Balance > 0.009
}
