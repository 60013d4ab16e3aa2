package visit

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

// Create records a visit for an existing patient.
func (s *Service) Create(ctx context.Context, in validation.VisitInput) (*model.Visit, error) {
	v, err := s.validator.Visit(in)
	if err != nil {
		return nil, err
	}
	if _, err := s.gw.Patients.SelectByID(ctx, v.PatientID); err != nil {
		return nil, fmt.Errorf("failed to resolve patient: %w", err)
	}

	if _, err := s.gw.Visits.Insert(ctx, v); err != nil {
		return nil, fmt.Errorf("failed to create visit: %w", err)
	}

	payload := map[string]interface{}{"visit_id": v.ID, "patient_id": v.PatientID, "doctor": v.Doctor}
	if err := s.events.Emit(ctx, model.EventVisitCreated, payload); err != nil {
		s.log.Error(err, "failed to emit visit event", "visit_id", v.ID)
	}
	return v, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Visit, error) {
	v, err := s.gw.Visits.SelectByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get visit: %w", err)
	}
	return v, nil
}

func (s *Service) List(ctx context.Context, order repository.OrderBy) ([]*model.Visit, error) {
	visits, err := s.gw.Visits.SelectAll(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("failed to list visits: %w", err)
	}
	return visits, nil
}

// ListByPatient fails with NotFound for an unknown patient rather than returning nothing.
func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, order repository.OrderBy) ([]*model.Visit, error) {
	if _, err := s.gw.Patients.SelectByID(ctx, patientID); err != nil {
		return nil, fmt.Errorf("failed to resolve patient: %w", err)
	}
	visits, err := s.gw.Visits.SelectByPatient(ctx, patientID, order)
	if err != nil {
		return nil, fmt.Errorf("failed to list visits: %w", err)
	}
	return visits, nil
}
