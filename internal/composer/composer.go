// Package composer assembles a multi-medication prescription and commits it as a
// visit followed by the prescription that references it.
package composer

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/validation"
	"github.com/jwalitptl/clinic-api/pkg/errors"
)

type State int

const (
	StateEmpty State = iota
	StateEditing
	StateSubmitting
	StateCommitted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateEditing:
		return "editing"
	case StateSubmitting:
		return "submitting"
	case StateCommitted:
		return "committed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

type VisitWriter interface {
	Insert(ctx context.Context, visit *model.Visit) (uuid.UUID, error)
}

type PrescriptionWriter interface {
	Insert(ctx context.Context, rx *model.Prescription) (uuid.UUID, error)
}

type PrescriptionValidator interface {
	Prescription(in validation.PrescriptionInput) (*model.Prescription, error)
}

// MedicationPatch holds the fields to overwrite on one entry. Nil fields are kept.
type MedicationPatch struct {
	Name         *string `json:"name"`
	Dosage       *string `json:"dosage"`
	Frequency    *string `json:"frequency"`
	Duration     *string `json:"duration"`
	Instructions *string `json:"instructions"`
}

func (p MedicationPatch) apply(m *validation.MedicationInput) {
	if p.Name != nil {
		m.Name = *p.Name
	}
	if p.Dosage != nil {
		m.Dosage = *p.Dosage
	}
	if p.Frequency != nil {
		m.Frequency = *p.Frequency
	}
	if p.Duration != nil {
		m.Duration = *p.Duration
	}
	if p.Instructions != nil {
		m.Instructions = *p.Instructions
	}
}

// Result holds the records written by a successful Submit.
type Result struct {
	Visit        *model.Visit
	Prescription *model.Prescription
}

// Snapshot is a consistent copy of the composer's state.
type Snapshot struct {
	State       State
	Medications []validation.MedicationInput
	Err         error
}

// Composer is safe for concurrent use. Gateway calls are made without holding the lock;
// the Submitting state keeps a second submit or any edit from running alongside them.
type Composer struct {
	mu      sync.Mutex
	state   State
	entries []validation.MedicationInput
	err     error

	validator     PrescriptionValidator
	visits        VisitWriter
	prescriptions PrescriptionWriter
	now           func() time.Time
}

// New returns an Empty composer.
func New(v PrescriptionValidator, visits VisitWriter, prescriptions PrescriptionWriter) *Composer {
	return &Composer{
		validator:     v,
		visits:        visits,
		prescriptions: prescriptions,
		now:           time.Now,
	}
}

// WithClock replaces the clock used for the visit date.
func (c *Composer) WithClock(now func() time.Time) *Composer {
	c.now = now
	return c
}

func (c *Composer) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the reason for the last failed submit, or nil.
func (c *Composer) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Composer) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Medications returns a copy of the entries in order.
func (c *Composer) Medications() []validation.MedicationInput {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.copyEntries()
}

func (c *Composer) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{State: c.state, Medications: c.copyEntries(), Err: c.err}
}

func (c *Composer) copyEntries() []validation.MedicationInput {
	out := make([]validation.MedicationInput, len(c.entries))
	copy(out, c.entries)
	return out
}

// editable must be called with mu held.
func (c *Composer) editable() error {
	switch c.state {
	case StateSubmitting:
		return ErrLocked
	case StateCommitted:
		return ErrCommitted
	default:
		return nil
	}
}

// AddMedication appends a blank entry and returns its index.
func (c *Composer) AddMedication() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.editable(); err != nil {
		return 0, err
	}
	c.entries = append(c.entries, validation.MedicationInput{})
	c.state = StateEditing
	return len(c.entries) - 1, nil
}

// RemoveMedication deletes entry i. Removing the only entry is refused and leaves
// the list untouched.
func (c *Composer) RemoveMedication(i int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.editable(); err != nil {
		return err
	}
	if i < 0 || i >= len(c.entries) {
		return ErrIndexOutOfRange
	}
	if len(c.entries) == 1 {
		return ErrLastMedication
	}
	c.entries = append(c.entries[:i], c.entries[i+1:]...)
	c.state = StateEditing
	return nil
}

// EditMedication overwrites the patched fields of entry i in place.
func (c *Composer) EditMedication(i int, patch MedicationPatch) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.editable(); err != nil {
		return err
	}
	if i < 0 || i >= len(c.entries) {
		return ErrIndexOutOfRange
	}
	patch.apply(&c.entries[i])
	c.state = StateEditing
	return nil
}

// Reset discards all entries and returns to Empty.
func (c *Composer) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateSubmitting {
		return ErrLocked
	}
	c.entries = nil
	c.err = nil
	c.state = StateEmpty
	return nil
}

// Submit validates the composition, creates a visit for the patient and then the
// prescription referencing it. The prescription is only attempted once the visit
// exists. A failed prescription write leaves the visit in place and is reported as a
// *CommitError carrying its id. Entries survive any failure so the caller can retry.
func (c *Composer) Submit(ctx context.Context, patientID uuid.UUID, doctor, notes string) (*Result, error) {
	rx, err := c.begin(patientID, doctor, notes)
	if err != nil {
		return nil, err
	}

	visit := &model.Visit{
		PatientID: rx.PatientID,
		Doctor:    rx.Doctor,
		Complaint: model.PrescriptionVisitComplaint,
		Notes:     model.StringPtr(model.PrescriptionVisitNotes),
		VisitDate: c.now(),
	}
	visitID, err := c.visits.Insert(ctx, visit)
	if err != nil {
		return nil, c.fail(&CommitError{Step: StepVisit, Err: err})
	}
	visit.ID = visitID

	rx.VisitID = visitID
	rxID, err := c.prescriptions.Insert(ctx, rx)
	if err != nil {
		return nil, c.fail(&CommitError{Step: StepPrescription, VisitID: visitID, Err: err})
	}
	rx.ID = rxID

	c.mu.Lock()
	c.state = StateCommitted
	c.entries = nil
	c.err = nil
	c.mu.Unlock()

	return &Result{Visit: visit, Prescription: rx}, nil
}

// begin validates under the lock and moves to Submitting.
func (c *Composer) begin(patientID uuid.UUID, doctor, notes string) (*model.Prescription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateSubmitting:
		return nil, ErrSubmitInFlight
	case StateCommitted:
		return nil, ErrCommitted
	}

	in := validation.PrescriptionInput{
		Doctor:      doctor,
		Notes:       notes,
		Medications: c.copyEntries(),
	}
	if patientID != uuid.Nil {
		in.PatientID = patientID.String()
	}

	rx, err := c.validator.Prescription(in)
	if err != nil {
		if len(c.entries) == 0 {
			c.state = StateEmpty
		} else {
			c.state = StateEditing
		}
		if _, ok := errors.AsValidation(err); ok {
			c.err = nil
		} else {
			c.err = err
		}
		return nil, err
	}

	c.state = StateSubmitting
	c.err = nil
	return rx, nil
}

func (c *Composer) fail(err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateFailed
	c.err = err
	return err
}
