package ledger

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrPatientNotFound is returned when the patient a payment refers to
	// does not exist.
	ErrPatientNotFound = errors.New("patient not found")

	// ErrInvalidAmount is returned for zero or negative payment amounts.
	ErrInvalidAmount = errors.New("payment amount must be positive")
)

// PartialFailure is returned when a settlement was interrupted by a storage
// error after some items had already been persisted. It lists exactly which
// sessions and reports landed so the caller can reconcile.
type PartialFailure struct {
	SessionsSaved []uuid.UUID
	ReportsSaved  []uuid.UUID
	Err           error
}

func (e *PartialFailure) Error() string {
	return fmt.Sprintf("settlement partially applied (%d sessions, %d reports saved): %v",
		len(e.SessionsSaved), len(e.ReportsSaved), e.Err)
}

func (e *PartialFailure) Unwrap() error {
	return e.Err
}
