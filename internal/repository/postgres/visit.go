package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

const visitColumns = `id, patient_id, doctor, complaint, diagnosis, treatment, notes, visit_date`

var visitSort = sortColumns{
	"visit_date": "visit_date",
	"doctor":     "doctor",
}

type visitRepository struct {
	BaseRepository
}

func NewVisitRepository(base BaseRepository) repository.VisitRepository {
	return &visitRepository{base}
}

func (r *visitRepository) Insert(ctx context.Context, visit *model.Visit) (id uuid.UUID, err error) {
	defer func(start time.Time) { err = r.done("visits", "insert", "visit", start, err) }(time.Now())

	query := `
		INSERT INTO visits (id, patient_id, doctor, complaint, diagnosis, treatment, notes, visit_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	if visit.ID == uuid.Nil {
		visit.ID = uuid.New()
	}
	if visit.VisitDate.IsZero() {
		visit.VisitDate = r.now()
	}

	_, err = r.db.ExecContext(ctx, query,
		visit.ID,
		visit.PatientID,
		visit.Doctor,
		visit.Complaint,
		visit.Diagnosis,
		visit.Treatment,
		visit.Notes,
		visit.VisitDate,
	)
	if err != nil {
		return uuid.Nil, err
	}
	return visit.ID, nil
}

func (r *visitRepository) SelectAll(ctx context.Context, order repository.OrderBy) (visits []*model.Visit, err error) {
	defer func(start time.Time) { err = r.done("visits", "select_all", "visit", start, err) }(time.Now())

	orderBy, err := visitSort.orderClause(order, repository.Desc("visit_date"))
	if err != nil {
		return nil, err
	}
	visits = []*model.Visit{}
	if err = r.db.SelectContext(ctx, &visits, `SELECT `+visitColumns+` FROM visits`+orderBy); err != nil {
		return nil, err
	}
	return visits, nil
}

func (r *visitRepository) SelectByID(ctx context.Context, id uuid.UUID) (visit *model.Visit, err error) {
	defer func(start time.Time) { err = r.done("visits", "select_by_id", "visit", start, err) }(time.Now())

	var v model.Visit
	if err = r.db.GetContext(ctx, &v, `SELECT `+visitColumns+` FROM visits WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *visitRepository) SelectByPatient(ctx context.Context, patientID uuid.UUID, order repository.OrderBy) (visits []*model.Visit, err error) {
	defer func(start time.Time) { err = r.done("visits", "select_by_patient", "visit", start, err) }(time.Now())

	orderBy, err := visitSort.orderClause(order, repository.Desc("visit_date"))
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + visitColumns + ` FROM visits WHERE patient_id = $1` + orderBy

	visits = []*model.Visit{}
	if err = r.db.SelectContext(ctx, &visits, query, patientID); err != nil {
		return nil, err
	}
	return visits, nil
}
