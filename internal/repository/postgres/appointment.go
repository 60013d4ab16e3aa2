package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

const appointmentColumns = `id, patient_id, appointment_date, reason, notes, status, created_at`

var appointmentSort = sortColumns{
	"appointment_date": "appointment_date",
	"created_at":       "created_at",
	"status":           "status",
}

type appointmentRepository struct {
	BaseRepository
}

func NewAppointmentRepository(base BaseRepository) repository.AppointmentRepository {
	return &appointmentRepository{base}
}

func (r *appointmentRepository) Insert(ctx context.Context, appt *model.Appointment) (id uuid.UUID, err error) {
	defer func(start time.Time) { err = r.done("appointments", "insert", "appointment", start, err) }(time.Now())

	query := `
		INSERT INTO appointments (id, patient_id, appointment_date, reason, notes, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if appt.ID == uuid.Nil {
		appt.ID = uuid.New()
	}
	if appt.Status == "" {
		appt.Status = model.AppointmentStatusScheduled
	}
	appt.CreatedAt = r.now()

	_, err = r.db.ExecContext(ctx, query,
		appt.ID,
		appt.PatientID,
		appt.AppointmentDate,
		appt.Reason,
		appt.Notes,
		appt.Status,
		appt.CreatedAt,
	)
	if err != nil {
		return uuid.Nil, err
	}
	return appt.ID, nil
}

func (r *appointmentRepository) SelectAll(ctx context.Context, order repository.OrderBy) (appts []*model.Appointment, err error) {
	defer func(start time.Time) { err = r.done("appointments", "select_all", "appointment", start, err) }(time.Now())

	orderBy, err := appointmentSort.orderClause(order, repository.Desc("appointment_date"))
	if err != nil {
		return nil, err
	}
	appts = []*model.Appointment{}
	if err = r.db.SelectContext(ctx, &appts, `SELECT `+appointmentColumns+` FROM appointments`+orderBy); err != nil {
		return nil, err
	}
	return appts, nil
}

func (r *appointmentRepository) SelectByID(ctx context.Context, id uuid.UUID) (appt *model.Appointment, err error) {
	defer func(start time.Time) { err = r.done("appointments", "select_by_id", "appointment", start, err) }(time.Now())

	var a model.Appointment
	if err = r.db.GetContext(ctx, &a, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *appointmentRepository) SelectByPatient(ctx context.Context, patientID uuid.UUID, order repository.OrderBy) (appts []*model.Appointment, err error) {
	defer func(start time.Time) {
		err = r.done("appointments", "select_by_patient", "appointment", start, err)
	}(time.Now())

	orderBy, err := appointmentSort.orderClause(order, repository.Desc("appointment_date"))
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE patient_id = $1` + orderBy

	appts = []*model.Appointment{}
	if err = r.db.SelectContext(ctx, &appts, query, patientID); err != nil {
		return nil, err
	}
	return appts, nil
}

func (r *appointmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus) (err error) {
	defer func(start time.Time) { err = r.done("appointments", "update_status", "appointment", start, err) }(time.Now())

	res, err := r.db.ExecContext(ctx, `UPDATE appointments SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}
