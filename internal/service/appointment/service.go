package appointment

import (
	"context"
	"fmt"

	"github.com/google/uuid"

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

func (s *Service) Create(ctx context.Context, in validation.AppointmentInput) (*model.Appointment, error) {
	a, err := s.validator.Appointment(in)
	if err != nil {
		return nil, err
	}
	if _, err := s.gw.Patients.SelectByID(ctx, a.PatientID); err != nil {
		return nil, fmt.Errorf("failed to resolve patient: %w", err)
	}

	if _, err := s.gw.Appointments.Insert(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to create appointment: %w", err)
	}
	s.emit(ctx, model.EventAppointmentScheduled, a)
	return a, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	a, err := s.gw.Appointments.SelectByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return a, nil
}

func (s *Service) List(ctx context.Context, order repository.OrderBy) ([]*model.Appointment, error) {
	list, err := s.gw.Appointments.SelectAll(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return list, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, order repository.OrderBy) ([]*model.Appointment, error) {
	list, err := s.gw.Appointments.SelectByPatient(ctx, patientID, order)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return list, nil
}

// UpdateStatus moves an appointment to any status in the closed set.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, raw string) (*model.Appointment, error) {
	status, err := s.validator.AppointmentStatus(raw)
	if err != nil {
		return nil, err
	}
	if err := s.gw.Appointments.UpdateStatus(ctx, id, status); err != nil {
		return nil, fmt.Errorf("failed to update appointment status: %w", err)
	}

	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, model.EventAppointmentStatusChanged, a)
	return a, nil
}

func (s *Service) emit(ctx context.Context, eventType string, a *model.Appointment) {
	payload := map[string]interface{}{
		"appointment_id":   a.ID,
		"patient_id":       a.PatientID,
		"appointment_date": a.AppointmentDate,
		"status":           a.Status,
	}
	if err := s.events.Emit(ctx, eventType, payload); err != nil {
		s.log.Error(err, "failed to emit appointment event", "event_type", eventType, "appointment_id", a.ID)
	}
}
