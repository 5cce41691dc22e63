package session

import (
	"time"

	"github.com/google/uuid"
)

// Session types.
const (
	TypeStandard   = "standard"
	TypeTrauma     = "trauma"
	TypeCouples    = "couples"
	TypeFamily     = "family"
	TypeDiagnostic = "diagnostic"
)

// Session payment states. A session is either fully pending or fully paid;
// there are no partially paid sessions.
const (
	StatePending = "pending"
	StatePaid    = "paid"
)

// Session maps to the sessions table.
type Session struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PatientID uuid.UUID `db:"patient_id" json:"patient_id"`
	Date      time.Time `db:"date" json:"date"`
	Price     float64   `db:"price" json:"price"`
	State     string    `db:"state" json:"state"`
	Type      string    `db:"session_type" json:"session_type"`
	Notes     *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// IsPending reports whether the session still awaits payment.
func (s *Session) IsPending() bool {
	return s.State == StatePending
}
