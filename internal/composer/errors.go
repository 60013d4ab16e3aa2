package composer

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/pkg/errors"
)

var (
	ErrLastMedication  = errors.New("a prescription keeps at least one medication entry")
	ErrIndexOutOfRange = errors.New("medication index out of range")
	ErrSubmitInFlight  = errors.New("submit already in progress")
	ErrLocked          = errors.New("composer is locked while submitting")
	ErrCommitted       = errors.New("prescription already committed")
)

// Step identifies which write of the commit failed.
type Step string

const (
	StepVisit        Step = "visit"
	StepPrescription Step = "prescription"
)

// CommitError reports a failed commit. When Step is StepPrescription the visit
// identified by VisitID was created and is left in place.
type CommitError struct {
	Step    Step
	VisitID uuid.UUID
	Err     error
}

func (e *CommitError) Error() string {
	if e.Step == StepPrescription {
		return fmt.Sprintf("create prescription (visit %s retained): %v", e.VisitID, e.Err)
	}
	return fmt.Sprintf("create visit: %v", e.Err)
}

func (e *CommitError) Unwrap() error {
	return e.Err
}

// OrphanedVisit reports whether the failure left a visit without its prescription.
func (e *CommitError) OrphanedVisit() bool {
	return e.Step == StepPrescription && e.VisitID != uuid.Nil
}
