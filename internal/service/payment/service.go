package payment

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/service/event"
	"github.com/jwalitptl/clinic-api/internal/validation"
	"github.com/jwalitptl/clinic-api/pkg/errors"
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

// Create records a payment against a visit of the same patient.
func (s *Service) Create(ctx context.Context, in validation.PaymentInput) (*model.Payment, error) {
	p, err := s.validator.Payment(in)
	if err != nil {
		return nil, err
	}

	if _, err := s.gw.Patients.SelectByID(ctx, p.PatientID); err != nil {
		return nil, fmt.Errorf("failed to resolve patient: %w", err)
	}
	visit, err := s.gw.Visits.SelectByID(ctx, p.VisitID)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.Constraint("payment references a visit that does not exist", err)
		}
		return nil, fmt.Errorf("failed to resolve visit: %w", err)
	}
	if visit.PatientID != p.PatientID {
		return nil, errors.Constraint("visit belongs to a different patient", nil)
	}

	if _, err := s.gw.Payments.Insert(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}

	payload := map[string]interface{}{
		"payment_id": p.ID,
		"patient_id": p.PatientID,
		"visit_id":   p.VisitID,
		"amount":     p.Amount.StringFixed(2),
		"status":     p.Status,
	}
	if err := s.events.Emit(ctx, model.EventPaymentRecorded, payload); err != nil {
		s.log.Error(err, "failed to emit payment event", "payment_id", p.ID)
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	p, err := s.gw.Payments.SelectByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return p, nil
}

func (s *Service) List(ctx context.Context, order repository.OrderBy) ([]*model.Payment, error) {
	payments, err := s.gw.Payments.SelectAll(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, order repository.OrderBy) ([]*model.Payment, error) {
	payments, err := s.gw.Payments.SelectByPatient(ctx, patientID, order)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}
