package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

const patientColumns = `id, name, age, gender, contact, email, address, medical_history, allergies,
	created_at, updated_at, deleted_at`

var patientSort = sortColumns{
	"name":       "name",
	"age":        "age",
	"created_at": "created_at",
}

type patientRepository struct {
	BaseRepository
}

func NewPatientRepository(base BaseRepository) repository.PatientRepository {
	return &patientRepository{base}
}

func (r *patientRepository) Insert(ctx context.Context, patient *model.Patient) (id uuid.UUID, err error) {
	defer func(start time.Time) { err = r.done("patients", "insert", "patient", start, err) }(time.Now())

	query := `
		INSERT INTO patients (
			id, name, age, gender, contact, email, address, medical_history, allergies,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	if patient.ID == uuid.Nil {
		patient.ID = uuid.New()
	}
	patient.CreatedAt = r.now()
	patient.UpdatedAt = patient.CreatedAt

	_, err = r.db.ExecContext(ctx, query,
		patient.ID,
		patient.Name,
		patient.Age,
		patient.Gender,
		patient.Contact,
		patient.Email,
		patient.Address,
		patient.MedicalHistory,
		patient.Allergies,
		patient.CreatedAt,
		patient.UpdatedAt,
	)
	if err != nil {
		return uuid.Nil, err
	}
	return patient.ID, nil
}

func (r *patientRepository) SelectAll(ctx context.Context, order repository.OrderBy) (patients []*model.Patient, err error) {
	defer func(start time.Time) { err = r.done("patients", "select_all", "patient", start, err) }(time.Now())

	orderBy, err := patientSort.orderClause(order, repository.Asc("name"))
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + patientColumns + ` FROM patients WHERE deleted_at IS NULL` + orderBy

	patients = []*model.Patient{}
	if err = r.db.SelectContext(ctx, &patients, query); err != nil {
		return nil, err
	}
	return patients, nil
}

func (r *patientRepository) SelectByID(ctx context.Context, id uuid.UUID) (patient *model.Patient, err error) {
	defer func(start time.Time) { err = r.done("patients", "select_by_id", "patient", start, err) }(time.Now())

	query := `SELECT ` + patientColumns + ` FROM patients WHERE id = $1 AND deleted_at IS NULL`
	var p model.Patient
	if err = r.db.GetContext(ctx, &p, query, id); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *patientRepository) Update(ctx context.Context, patient *model.Patient) (err error) {
	defer func(start time.Time) { err = r.done("patients", "update", "patient", start, err) }(time.Now())

	query := `
		UPDATE patients
		SET name = $1, age = $2, gender = $3, contact = $4, email = $5, address = $6,
			medical_history = $7, allergies = $8, updated_at = $9
		WHERE id = $10 AND deleted_at IS NULL
		RETURNING created_at
	`
	patient.UpdatedAt = r.now()
	return r.db.QueryRowxContext(ctx, query,
		patient.Name,
		patient.Age,
		patient.Gender,
		patient.Contact,
		patient.Email,
		patient.Address,
		patient.MedicalHistory,
		patient.Allergies,
		patient.UpdatedAt,
		patient.ID,
	).Scan(&patient.CreatedAt)
}
