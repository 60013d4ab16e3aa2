package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

const prescriptionColumns = `id, patient_id, visit_id, doctor, medications, notes, created_at`

var prescriptionSort = sortColumns{
	"created_at": "created_at",
	"doctor":     "doctor",
}

type prescriptionRepository struct {
	BaseRepository
}

func NewPrescriptionRepository(base BaseRepository) repository.PrescriptionRepository {
	return &prescriptionRepository{base}
}

// Insert relies on the (visit_id, patient_id) foreign key to reject a prescription
// whose visit is missing or belongs to another patient.
func (r *prescriptionRepository) Insert(ctx context.Context, rx *model.Prescription) (id uuid.UUID, err error) {
	defer func(start time.Time) { err = r.done("prescriptions", "insert", "prescription", start, err) }(time.Now())

	query := `
		INSERT INTO prescriptions (id, patient_id, visit_id, doctor, medications, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if rx.ID == uuid.Nil {
		rx.ID = uuid.New()
	}
	rx.CreatedAt = r.now()

	_, err = r.db.ExecContext(ctx, query,
		rx.ID,
		rx.PatientID,
		rx.VisitID,
		rx.Doctor,
		rx.Medications,
		rx.Notes,
		rx.CreatedAt,
	)
	if err != nil {
		return uuid.Nil, err
	}
	return rx.ID, nil
}

func (r *prescriptionRepository) SelectAll(ctx context.Context, order repository.OrderBy) (rxs []*model.Prescription, err error) {
	defer func(start time.Time) { err = r.done("prescriptions", "select_all", "prescription", start, err) }(time.Now())

	orderBy, err := prescriptionSort.orderClause(order, repository.Desc("created_at"))
	if err != nil {
		return nil, err
	}
	rxs = []*model.Prescription{}
	if err = r.db.SelectContext(ctx, &rxs, `SELECT `+prescriptionColumns+` FROM prescriptions`+orderBy); err != nil {
		return nil, err
	}
	return rxs, nil
}

func (r *prescriptionRepository) SelectByID(ctx context.Context, id uuid.UUID) (rx *model.Prescription, err error) {
	defer func(start time.Time) { err = r.done("prescriptions", "select_by_id", "prescription", start, err) }(time.Now())

	var p model.Prescription
	if err = r.db.GetContext(ctx, &p, `SELECT `+prescriptionColumns+` FROM prescriptions WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *prescriptionRepository) SelectByPatient(ctx context.Context, patientID uuid.UUID, order repository.OrderBy) (rxs []*model.Prescription, err error) {
	defer func(start time.Time) {
		err = r.done("prescriptions", "select_by_patient", "prescription", start, err)
	}(time.Now())

	orderBy, err := prescriptionSort.orderClause(order, repository.Desc("created_at"))
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + prescriptionColumns + ` FROM prescriptions WHERE patient_id = $1` + orderBy

	rxs = []*model.Prescription{}
	if err = r.db.SelectContext(ctx, &rxs, query, patientID); err != nil {
		return nil, err
	}
	return rxs, nil
}
