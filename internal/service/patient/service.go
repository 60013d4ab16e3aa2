package patient

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/directory"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/service/event"
	"github.com/jwalitptl/clinic-api/internal/validation"
	"github.com/jwalitptl/clinic-api/pkg/logger"
)

type Service struct {
	gw        *repository.Gateway
	validator *validation.Validator
	events    event.Emitter
	log       *logger.Logger
}

func NewService(gw *repository.Gateway, v *validation.Validator, events event.Emitter, log *logger.Logger) *Service {
	if events == nil {
		events = event.Nop()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{gw: gw, validator: v, events: events, log: log}
}

func (s *Service) Create(ctx context.Context, in validation.PatientInput) (*model.Patient, error) {
	p, err := s.validator.Patient(in)
	if err != nil {
		return nil, err
	}

	if _, err := s.gw.Patients.Insert(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create patient: %w", err)
	}
	s.emit(ctx, model.EventPatientCreated, p)
	return p, nil
}

// Update replaces every editable field of an existing patient.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in validation.PatientInput) (*model.Patient, error) {
	p, err := s.validator.Patient(in)
	if err != nil {
		return nil, err
	}

	p.ID = id
	if err := s.gw.Patients.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to update patient: %w", err)
	}
	s.emit(ctx, model.EventPatientUpdated, p)
	return p, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	p, err := s.gw.Patients.SelectByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return p, nil
}

// List returns every patient in order, narrowed by term when it is not blank.
func (s *Service) List(ctx context.Context, term string, order repository.OrderBy) ([]*model.Patient, error) {
	patients, err := s.gw.Patients.SelectAll(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return directory.Search(patients, term), nil
}

// Detail loads a patient with its visits, prescriptions, payments and appointments,
// each newest first.
func (s *Service) Detail(ctx context.Context, id uuid.UUID) (*model.PatientDetail, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &model.PatientDetail{Patient: p}
	if detail.Visits, err = s.gw.Visits.SelectByPatient(ctx, id, repository.Desc("visit_date")); err != nil {
		return nil, fmt.Errorf("failed to list visits: %w", err)
	}
	if detail.Prescriptions, err = s.gw.Prescriptions.SelectByPatient(ctx, id, repository.Desc("created_at")); err != nil {
		return nil, fmt.Errorf("failed to list prescriptions: %w", err)
	}
	if detail.Payments, err = s.gw.Payments.SelectByPatient(ctx, id, repository.Desc("payment_date")); err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	if detail.Appointments, err = s.gw.Appointments.SelectByPatient(ctx, id, repository.Desc("appointment_date")); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return detail, nil
}

func (s *Service) emit(ctx context.Context, eventType string, p *model.Patient) {
	payload := map[string]interface{}{"patient_id": p.ID, "name": p.Name}
	if err := s.events.Emit(ctx, eventType, payload); err != nil {
		s.log.Error(err, "failed to emit patient event", "event_type", eventType, "patient_id", p.ID)
	}
}
