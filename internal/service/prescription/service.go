// Package prescription runs prescription drafts through the composer and serves
// committed prescriptions.
package prescription

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/jwalitptl/clinic-api/internal/composer"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/service/event"
	"github.com/jwalitptl/clinic-api/internal/validation"
	"github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
)

// Submission outcomes as counted by metrics.
const (
	OutcomeCommitted          = "committed"
	OutcomeInvalid            = "invalid"
	OutcomeRejected           = "rejected"
	OutcomeVisitFailed        = "visit_failed"
	OutcomePrescriptionFailed = "prescription_failed"
)

var tracer = otel.Tracer("github.com/jwalitptl/clinic-api/internal/service/prescription")

type Service struct {
	gw        *repository.Gateway
	validator *validation.Validator
	drafts    *DraftStore
	events    event.Emitter
	metrics   *metrics.Metrics
	log       *logger.Logger
	now       func() time.Time
}

func NewService(gw *repository.Gateway, v *validation.Validator, drafts *DraftStore, events event.Emitter, m *metrics.Metrics, log *logger.Logger) *Service {
	if events == nil {
		events = event.Nop()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		gw:        gw,
		validator: v,
		drafts:    drafts,
		events:    events,
		metrics:   m,
		log:       log,
		now:       time.Now,
	}
}

// WithClock replaces the clock used for draft and visit timestamps.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// DraftInput opens a draft for one patient.
type DraftInput struct {
	PatientID string `json:"patient_id"`
	Doctor    string `json:"doctor"`
	Notes     string `json:"notes"`
}

// SubmitInput overrides the draft's doctor and notes when set.
type SubmitInput struct {
	Doctor *string `json:"doctor"`
	Notes  *string `json:"notes"`
}

// DraftView is the client-facing copy of a draft.
type DraftView struct {
	ID          uuid.UUID                    `json:"id"`
	PatientID   uuid.UUID                    `json:"patient_id"`
	Doctor      string                       `json:"doctor"`
	Notes       string                       `json:"notes"`
	State       string                       `json:"state"`
	Medications []validation.MedicationInput `json:"medications"`
	Error       string                       `json:"error,omitempty"`
	CreatedAt   time.Time                    `json:"created_at"`
}

func viewOf(d *Draft) *DraftView {
	snap := d.Composer.Snapshot()
	v := &DraftView{
		ID:          d.ID,
		PatientID:   d.PatientID,
		Doctor:      d.Doctor,
		Notes:       d.Notes,
		State:       snap.State.String(),
		Medications: snap.Medications,
		CreatedAt:   d.CreatedAt,
	}
	if snap.Err != nil {
		v.Error = snap.Err.Error()
	}
	return v
}

// SubmitResult is a committed prescription with the visit created for it.
type SubmitResult struct {
	Visit        *model.Visit        `json:"visit"`
	Prescription *model.Prescription `json:"prescription"`
}

// Formulary lists the medication names and frequencies offered for selection.
type Formulary struct {
	Medications []string          `json:"medications"`
	Frequencies []model.Frequency `json:"frequencies"`
}

func (s *Service) Formulary() Formulary {
	return Formulary{
		Medications: append([]string(nil), model.Formulary...),
		Frequencies: append([]model.Frequency(nil), model.Frequencies...),
	}
}

// CreateDraft opens a draft holding one blank medication entry.
func (s *Service) CreateDraft(ctx context.Context, in DraftInput) (*DraftView, error) {
	patientID, err := uuid.Parse(in.PatientID)
	if err != nil {
		verr := errors.NewValidation("prescription")
		verr.Add("patient_id", "patient_id must be a valid id")
		return nil, verr
	}
	if _, err := s.gw.Patients.SelectByID(ctx, patientID); err != nil {
		return nil, fmt.Errorf("failed to resolve patient: %w", err)
	}

	c := composer.New(s.validator, s.gw.Visits, s.gw.Prescriptions).WithClock(s.now)
	if _, err := c.AddMedication(); err != nil {
		return nil, err
	}

	d := &Draft{
		ID:        uuid.New(),
		PatientID: patientID,
		Doctor:    in.Doctor,
		Notes:     in.Notes,
		Composer:  c,
		CreatedAt: s.now(),
	}
	s.drafts.Put(d)
	return viewOf(d), nil
}

func (s *Service) draft(id uuid.UUID) (*Draft, error) {
	d, ok := s.drafts.Get(id)
	if !ok {
		return nil, errors.NotFound("prescription draft", nil)
	}
	return d, nil
}

func (s *Service) GetDraft(id uuid.UUID) (*DraftView, error) {
	d, err := s.draft(id)
	if err != nil {
		return nil, err
	}
	return viewOf(d), nil
}

// DeleteDraft discards a draft. A draft that is mid-submit cannot be discarded.
func (s *Service) DeleteDraft(id uuid.UUID) error {
	d, err := s.draft(id)
	if err != nil {
		return err
	}
	if d.Composer.State() == composer.StateSubmitting {
		return composerError(composer.ErrLocked)
	}
	s.drafts.Delete(id)
	return nil
}

// AddMedication appends an entry, filled from patch when given.
func (s *Service) AddMedication(id uuid.UUID, patch *composer.MedicationPatch) (*DraftView, error) {
	d, err := s.draft(id)
	if err != nil {
		return nil, err
	}
	i, err := d.Composer.AddMedication()
	if err != nil {
		return nil, composerError(err)
	}
	if patch != nil {
		if err := d.Composer.EditMedication(i, *patch); err != nil {
			return nil, composerError(err)
		}
	}
	return viewOf(d), nil
}

func (s *Service) EditMedication(id uuid.UUID, index int, patch composer.MedicationPatch) (*DraftView, error) {
	d, err := s.draft(id)
	if err != nil {
		return nil, err
	}
	if err := d.Composer.EditMedication(index, patch); err != nil {
		return nil, composerError(err)
	}
	return viewOf(d), nil
}

// RemoveMedication deletes one entry. The last entry stays and is reported as a conflict.
func (s *Service) RemoveMedication(id uuid.UUID, index int) (*DraftView, error) {
	d, err := s.draft(id)
	if err != nil {
		return nil, err
	}
	if err := d.Composer.RemoveMedication(index); err != nil {
		return nil, composerError(err)
	}
	return viewOf(d), nil
}

// Submit commits the draft. On success the draft is discarded; on failure it is kept
// with its entries so the caller can correct or retry.
func (s *Service) Submit(ctx context.Context, id uuid.UUID, in SubmitInput) (*SubmitResult, error) {
	d, err := s.draft(id)
	if err != nil {
		return nil, err
	}

	doctor, notes := d.Doctor, d.Notes
	if in.Doctor != nil {
		doctor = *in.Doctor
	}
	if in.Notes != nil {
		notes = *in.Notes
	}

	ctx, span := tracer.Start(ctx, "prescription.submit")
	defer span.End()
	span.SetAttributes(
		attribute.String("draft.id", d.ID.String()),
		attribute.Int("draft.medications", d.Composer.Len()),
	)

	res, err := d.Composer.Submit(ctx, d.PatientID, doctor, notes)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "submit failed")
		return nil, s.submitFailed(d, err)
	}
	span.SetAttributes(
		attribute.String("visit.id", res.Visit.ID.String()),
		attribute.String("prescription.id", res.Prescription.ID.String()),
	)

	s.metrics.ComposerOutcome(OutcomeCommitted)
	s.drafts.Delete(id)

	s.emit(ctx, model.EventVisitCreated, map[string]interface{}{
		"visit_id":   res.Visit.ID,
		"patient_id": res.Visit.PatientID,
		"doctor":     res.Visit.Doctor,
	})
	s.emit(ctx, model.EventPrescriptionCommitted, map[string]interface{}{
		"prescription_id": res.Prescription.ID,
		"visit_id":        res.Prescription.VisitID,
		"patient_id":      res.Prescription.PatientID,
		"medications":     len(res.Prescription.Medications),
	})
	return &SubmitResult{Visit: res.Visit, Prescription: res.Prescription}, nil
}

func (s *Service) submitFailed(d *Draft, err error) error {
	if _, ok := errors.AsValidation(err); ok {
		s.metrics.ComposerOutcome(OutcomeInvalid)
		return err
	}

	var commitErr *composer.CommitError
	if errors.As(err, &commitErr) {
		if commitErr.OrphanedVisit() {
			s.metrics.ComposerOutcome(OutcomePrescriptionFailed)
			s.log.Warn("visit created without its prescription",
				"draft_id", d.ID, "patient_id", d.PatientID, "visit_id", commitErr.VisitID, "error", commitErr.Err.Error())
		} else {
			s.metrics.ComposerOutcome(OutcomeVisitFailed)
		}
		return err
	}

	s.metrics.ComposerOutcome(OutcomeRejected)
	return composerError(err)
}

func (s *Service) emit(ctx context.Context, eventType string, payload map[string]interface{}) {
	if err := s.events.Emit(ctx, eventType, payload); err != nil {
		s.log.Error(err, "failed to emit prescription event", "event_type", eventType)
	}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Prescription, error) {
	rx, err := s.gw.Prescriptions.SelectByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get prescription: %w", err)
	}
	return rx, nil
}

func (s *Service) List(ctx context.Context, order repository.OrderBy) ([]*model.Prescription, error) {
	list, err := s.gw.Prescriptions.SelectAll(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("failed to list prescriptions: %w", err)
	}
	return list, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, order repository.OrderBy) ([]*model.Prescription, error) {
	list, err := s.gw.Prescriptions.SelectByPatient(ctx, patientID, order)
	if err != nil {
		return nil, fmt.Errorf("failed to list prescriptions: %w", err)
	}
	return list, nil
}

// composerError maps composer sentinels to typed errors. The sentinel stays in the chain.
func composerError(err error) error {
	switch {
	case errors.Is(err, composer.ErrIndexOutOfRange):
		return errors.BadRequest("no medication at that position", err)
	case errors.Is(err, composer.ErrLastMedication):
		return errors.Conflict("a prescription keeps at least one medication", err)
	case errors.Is(err, composer.ErrSubmitInFlight), errors.Is(err, composer.ErrLocked):
		return errors.Conflict("prescription is being submitted", err)
	case errors.Is(err, composer.ErrCommitted):
		return errors.Conflict("prescription already committed", err)
	default:
		return err
	}
}
