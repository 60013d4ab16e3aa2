package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

const paymentColumns = `id, patient_id, visit_id, amount, payment_date, status, notes`

var paymentSort = sortColumns{
	"payment_date": "payment_date",
	"amount":       "amount",
	"status":       "status",
}

type paymentRepository struct {
	BaseRepository
}

func NewPaymentRepository(base BaseRepository) repository.PaymentRepository {
	return &paymentRepository{base}
}

func (r *paymentRepository) Insert(ctx context.Context, payment *model.Payment) (id uuid.UUID, err error) {
	defer func(start time.Time) { err = r.done("payments", "insert", "payment", start, err) }(time.Now())

	query := `
		INSERT INTO payments (id, patient_id, visit_id, amount, payment_date, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	if payment.PaymentDate.IsZero() {
		payment.PaymentDate = r.now()
	}
	if payment.Status == "" {
		payment.Status = model.PaymentStatusPending
	}

	_, err = r.db.ExecContext(ctx, query,
		payment.ID,
		payment.PatientID,
		payment.VisitID,
		payment.Amount,
		payment.PaymentDate,
		payment.Status,
		payment.Notes,
	)
	if err != nil {
		return uuid.Nil, err
	}
	return payment.ID, nil
}

func (r *paymentRepository) SelectAll(ctx context.Context, order repository.OrderBy) (payments []*model.Payment, err error) {
	defer func(start time.Time) { err = r.done("payments", "select_all", "payment", start, err) }(time.Now())

	orderBy, err := paymentSort.orderClause(order, repository.Desc("payment_date"))
	if err != nil {
		return nil, err
	}
	payments = []*model.Payment{}
	if err = r.db.SelectContext(ctx, &payments, `SELECT `+paymentColumns+` FROM payments`+orderBy); err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *paymentRepository) SelectByID(ctx context.Context, id uuid.UUID) (payment *model.Payment, err error) {
	defer func(start time.Time) { err = r.done("payments", "select_by_id", "payment", start, err) }(time.Now())

	var p model.Payment
	if err = r.db.GetContext(ctx, &p, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepository) SelectByPatient(ctx context.Context, patientID uuid.UUID, order repository.OrderBy) (payments []*model.Payment, err error) {
	defer func(start time.Time) { err = r.done("payments", "select_by_patient", "payment", start, err) }(time.Now())

	orderBy, err := paymentSort.orderClause(order, repository.Desc("payment_date"))
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE patient_id = $1` + orderBy

	payments = []*model.Payment{}
	if err = r.db.SelectContext(ctx, &payments, query, patientID); err != nil {
		return nil, err
	}
	return payments, nil
}
