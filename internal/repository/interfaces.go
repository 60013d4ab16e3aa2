package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
)

// OrderBy names a sort column. Adapters only accept columns they whitelist.
type OrderBy struct {
	Column     string
	Descending bool
}

func Asc(column string) OrderBy {
	return OrderBy{Column: column}
}

func Desc(column string) OrderBy {
	return OrderBy{Column: column, Descending: true}
}

// Errors from every method are typed with pkg/errors: NotFound, Constraint or Transport.
// Two separate Inserts are never atomic.
type (
	PatientRepository interface {
		Insert(ctx context.Context, patient *model.Patient) (uuid.UUID, error)
		SelectAll(ctx context.Context, order OrderBy) ([]*model.Patient, error)
		SelectByID(ctx context.Context, id uuid.UUID) (*model.Patient, error)
		Update(ctx context.Context, patient *model.Patient) error
	}

	VisitRepository interface {
		Insert(ctx context.Context, visit *model.Visit) (uuid.UUID, error)
		SelectAll(ctx context.Context, order OrderBy) ([]*model.Visit, error)
		SelectByID(ctx context.Context, id uuid.UUID) (*model.Visit, error)
		SelectByPatient(ctx context.Context, patientID uuid.UUID, order OrderBy) ([]*model.Visit, error)
	}

	PrescriptionRepository interface {
		Insert(ctx context.Context, rx *model.Prescription) (uuid.UUID, error)
		SelectAll(ctx context.Context, order OrderBy) ([]*model.Prescription, error)
		SelectByID(ctx context.Context, id uuid.UUID) (*model.Prescription, error)
		SelectByPatient(ctx context.Context, patientID uuid.UUID, order OrderBy) ([]*model.Prescription, error)
	}

	PaymentRepository interface {
		Insert(ctx context.Context, payment *model.Payment) (uuid.UUID, error)
		SelectAll(ctx context.Context, order OrderBy) ([]*model.Payment, error)
		SelectByID(ctx context.Context, id uuid.UUID) (*model.Payment, error)
		SelectByPatient(ctx context.Context, patientID uuid.UUID, order OrderBy) ([]*model.Payment, error)
	}

	AppointmentRepository interface {
		Insert(ctx context.Context, appointment *model.Appointment) (uuid.UUID, error)
		SelectAll(ctx context.Context, order OrderBy) ([]*model.Appointment, error)
		SelectByID(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		SelectByPatient(ctx context.Context, patientID uuid.UUID, order OrderBy) ([]*model.Appointment, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus) error
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		MarkProcessed(ctx context.Context, id uuid.UUID) error
		MarkRetry(ctx context.Context, id uuid.UUID, errMsg string, retryAt time.Time) error
		MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)

// Gateway groups the per-table repositories.
type Gateway struct {
	Patients      PatientRepository
	Visits        VisitRepository
	Prescriptions PrescriptionRepository
	Payments      PaymentRepository
	Appointments  AppointmentRepository
	Outbox        OutboxRepository
}
