package postgres

import (
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
)

// NewGateway wires every table repository onto db.
func NewGateway(db *sqlx.DB, m *metrics.Metrics) *repository.Gateway {
	base := NewBaseRepository(db, m)
	return &repository.Gateway{
		Patients:      NewPatientRepository(base),
		Visits:        NewVisitRepository(base),
		Prescriptions: NewPrescriptionRepository(base),
		Payments:      NewPaymentRepository(base),
		Appointments:  NewAppointmentRepository(base),
		Outbox:        NewOutboxRepository(base),
	}
}
