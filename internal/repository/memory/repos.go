package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/pkg/errors"
)

type patientRepo struct{ s *Store }

func (r *patientRepo) Insert(ctx context.Context, p *model.Patient) (uuid.UUID, error) {
	if err := ctxErr(ctx); err != nil {
		return uuid.Nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter("patients.insert"); err != nil {
		return uuid.Nil, err
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = r.s.now()
	p.UpdatedAt = p.CreatedAt
	r.s.patients[p.ID] = clonePatient(*p)
	return p.ID, nil
}

func (r *patientRepo) SelectAll(ctx context.Context, order repository.OrderBy) ([]*model.Patient, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter("patients.select_all"); err != nil {
		return nil, err
	}
	if order.Column == "" {
		order = repository.Asc("name")
	}

	out := make([]*model.Patient, 0, len(r.s.patients))
	for _, p := range r.s.patients {
		if p.DeletedAt != nil {
			continue
		}
		cp := clonePatient(p)
		out = append(out, &cp)
	}

	switch order.Column {
	case "name":
		sortBy(out, order, func(p *model.Patient) (string, uuid.UUID) { return p.Name, p.ID })
	case "age":
		sortBy(out, order, func(p *model.Patient) (string, uuid.UUID) {
			if p.Age == nil {
				return "", p.ID
			}
			return fmt.Sprintf("%04d", *p.Age), p.ID
		})
	case "created_at":
		sortBy(out, order, func(p *model.Patient) (string, uuid.UUID) { return timeKey(p.CreatedAt), p.ID })
	default:
		return nil, badSort(order.Column)
	}
	return out, nil
}

func (r *patientRepo) SelectByID(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter("patients.select_by_id"); err != nil {
		return nil, err
	}
	p, ok := r.s.patients[id]
	if !ok || p.DeletedAt != nil {
		return nil, errors.NotFound("patient", nil)
	}
	p = clonePatient(p)
	return &p, nil
}

func (r *patientRepo) Update(ctx context.Context, p *model.Patient) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter("patients.update"); err != nil {
		return err
	}
	existing, ok := r.s.patients[p.ID]
	if !ok || existing.DeletedAt != nil {
		return errors.NotFound("patient", nil)
	}
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = r.s.now()
	r.s.patients[p.ID] = clonePatient(*p)
	return nil
}

type visitRepo struct{ s *Store }

func (r *visitRepo) Insert(ctx context.Context, v *model.Visit) (uuid.UUID, error) {
	if err := ctxErr(ctx); err != nil {
		return uuid.Nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter("visits.insert"); err != nil {
		return uuid.Nil, err
	}
	if !r.s.patientExists(v.PatientID) {
		return uuid.Nil, danglingRef("visit")
	}
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	if v.VisitDate.IsZero() {
		v.VisitDate = r.s.now()
	}
	r.s.visits[v.ID] = cloneVisit(*v)
	return v.ID, nil
}

func (r *visitRepo) SelectAll(ctx context.Context, order repository.OrderBy) ([]*model.Visit, error) {
	return r.selectWhere(ctx, "visits.select_all", order, func(*model.Visit) bool { return true })
}

func (r *visitRepo) SelectByPatient(ctx context.Context, patientID uuid.UUID, order repository.OrderBy) ([]*model.Visit, error) {
	return r.selectWhere(ctx, "visits.select_by_patient", order, func(v *model.Visit) bool { return v.PatientID == patientID })
}

func (r *visitRepo) selectWhere(ctx context.Context, op string, order repository.OrderBy, keep func(*model.Visit) bool) ([]*model.Visit, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter(op); err != nil {
		return nil, err
	}
	if order.Column == "" {
		order = repository.Desc("visit_date")
	}

	out := []*model.Visit{}
	for _, v := range r.s.visits {
		cp := cloneVisit(v)
		if keep(&cp) {
			out = append(out, &cp)
		}
	}
	switch order.Column {
	case "visit_date":
		sortBy(out, order, func(v *model.Visit) (string, uuid.UUID) { return timeKey(v.VisitDate), v.ID })
	case "doctor":
		sortBy(out, order, func(v *model.Visit) (string, uuid.UUID) { return v.Doctor, v.ID })
	default:
		return nil, badSort(order.Column)
	}
	return out, nil
}

func (r *visitRepo) SelectByID(ctx context.Context, id uuid.UUID) (*model.Visit, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter("visits.select_by_id"); err != nil {
		return nil, err
	}
	v, ok := r.s.visits[id]
	if !ok {
		return nil, errors.NotFound("visit", nil)
	}
	v = cloneVisit(v)
	return &v, nil
}

type prescriptionRepo struct{ s *Store }

func (r *prescriptionRepo) Insert(ctx context.Context, rx *model.Prescription) (uuid.UUID, error) {
	if err := ctxErr(ctx); err != nil {
		return uuid.Nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter("prescriptions.insert"); err != nil {
		return uuid.Nil, err
	}
	if !r.s.patientExists(rx.PatientID) || !r.s.visitOwnedBy(rx.VisitID, rx.PatientID) {
		return uuid.Nil, danglingRef("prescription")
	}
	if len(rx.Medications) == 0 {
		return uuid.Nil, errors.Constraint("prescription has a value the store rejects", nil)
	}
	if rx.ID == uuid.Nil {
		rx.ID = uuid.New()
	}
	rx.CreatedAt = r.s.now()

	r.s.prescriptions[rx.ID] = clonePrescription(*rx)
	return rx.ID, nil
}

func (r *prescriptionRepo) SelectAll(ctx context.Context, order repository.OrderBy) ([]*model.Prescription, error) {
	return r.selectWhere(ctx, "prescriptions.select_all", order, func(*model.Prescription) bool { return true })
}

func (r *prescriptionRepo) SelectByPatient(ctx context.Context, patientID uuid.UUID, order repository.OrderBy) ([]*model.Prescription, error) {
	return r.selectWhere(ctx, "prescriptions.select_by_patient", order, func(rx *model.Prescription) bool {
		return rx.PatientID == patientID
	})
}

func (r *prescriptionRepo) selectWhere(ctx context.Context, op string, order repository.OrderBy, keep func(*model.Prescription) bool) ([]*model.Prescription, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter(op); err != nil {
		return nil, err
	}
	if order.Column == "" {
		order = repository.Desc("created_at")
	}

	out := []*model.Prescription{}
	for _, rx := range r.s.prescriptions {
		cp := clonePrescription(rx)
		if keep(&cp) {
			out = append(out, &cp)
		}
	}
	switch order.Column {
	case "created_at":
		sortBy(out, order, func(rx *model.Prescription) (string, uuid.UUID) { return timeKey(rx.CreatedAt), rx.ID })
	case "doctor":
		sortBy(out, order, func(rx *model.Prescription) (string, uuid.UUID) { return rx.Doctor, rx.ID })
	default:
		return nil, badSort(order.Column)
	}
	return out, nil
}

func (r *prescriptionRepo) SelectByID(ctx context.Context, id uuid.UUID) (*model.Prescription, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter("prescriptions.select_by_id"); err != nil {
		return nil, err
	}
	rx, ok := r.s.prescriptions[id]
	if !ok {
		return nil, errors.NotFound("prescription", nil)
	}
	rx = clonePrescription(rx)
	return &rx, nil
}

type paymentRepo struct{ s *Store }

func (r *paymentRepo) Insert(ctx context.Context, p *model.Payment) (uuid.UUID, error) {
	if err := ctxErr(ctx); err != nil {
		return uuid.Nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter("payments.insert"); err != nil {
		return uuid.Nil, err
	}
	if !r.s.patientExists(p.PatientID) || !r.s.visitOwnedBy(p.VisitID, p.PatientID) {
		return uuid.Nil, danglingRef("payment")
	}
	if !p.Amount.IsPositive() {
		return uuid.Nil, errors.Constraint("payment has a value the store rejects", nil)
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.PaymentDate.IsZero() {
		p.PaymentDate = r.s.now()
	}
	if p.Status == "" {
		p.Status = model.PaymentStatusPending
	}
	r.s.payments[p.ID] = clonePayment(*p)
	return p.ID, nil
}

func (r *paymentRepo) SelectAll(ctx context.Context, order repository.OrderBy) ([]*model.Payment, error) {
	return r.selectWhere(ctx, "payments.select_all", order, func(*model.Payment) bool { return true })
}

func (r *paymentRepo) SelectByPatient(ctx context.Context, patientID uuid.UUID, order repository.OrderBy) ([]*model.Payment, error) {
	return r.selectWhere(ctx, "payments.select_by_patient", order, func(p *model.Payment) bool { return p.PatientID == patientID })
}

func (r *paymentRepo) selectWhere(ctx context.Context, op string, order repository.OrderBy, keep func(*model.Payment) bool) ([]*model.Payment, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter(op); err != nil {
		return nil, err
	}
	if order.Column == "" {
		order = repository.Desc("payment_date")
	}

	out := []*model.Payment{}
	for _, p := range r.s.payments {
		cp := clonePayment(p)
		if keep(&cp) {
			out = append(out, &cp)
		}
	}
	switch order.Column {
	case "payment_date":
		sortBy(out, order, func(p *model.Payment) (string, uuid.UUID) { return timeKey(p.PaymentDate), p.ID })
	case "amount":
		sortBy(out, order, func(p *model.Payment) (string, uuid.UUID) { return amountKey(p.Amount), p.ID })
	case "status":
		sortBy(out, order, func(p *model.Payment) (string, uuid.UUID) { return string(p.Status), p.ID })
	default:
		return nil, badSort(order.Column)
	}
	return out, nil
}

func (r *paymentRepo) SelectByID(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter("payments.select_by_id"); err != nil {
		return nil, err
	}
	p, ok := r.s.payments[id]
	if !ok {
		return nil, errors.NotFound("payment", nil)
	}
	p = clonePayment(p)
	return &p, nil
}

type appointmentRepo struct{ s *Store }

func (r *appointmentRepo) Insert(ctx context.Context, a *model.Appointment) (uuid.UUID, error) {
	if err := ctxErr(ctx); err != nil {
		return uuid.Nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter("appointments.insert"); err != nil {
		return uuid.Nil, err
	}
	if !r.s.patientExists(a.PatientID) {
		return uuid.Nil, danglingRef("appointment")
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Status == "" {
		a.Status = model.AppointmentStatusScheduled
	}
	a.CreatedAt = r.s.now()
	r.s.appointments[a.ID] = cloneAppointment(*a)
	return a.ID, nil
}

func (r *appointmentRepo) SelectAll(ctx context.Context, order repository.OrderBy) ([]*model.Appointment, error) {
	return r.selectWhere(ctx, "appointments.select_all", order, func(*model.Appointment) bool { return true })
}

func (r *appointmentRepo) SelectByPatient(ctx context.Context, patientID uuid.UUID, order repository.OrderBy) ([]*model.Appointment, error) {
	return r.selectWhere(ctx, "appointments.select_by_patient", order, func(a *model.Appointment) bool {
		return a.PatientID == patientID
	})
}

func (r *appointmentRepo) selectWhere(ctx context.Context, op string, order repository.OrderBy, keep func(*model.Appointment) bool) ([]*model.Appointment, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter(op); err != nil {
		return nil, err
	}
	if order.Column == "" {
		order = repository.Desc("appointment_date")
	}

	out := []*model.Appointment{}
	for _, a := range r.s.appointments {
		cp := cloneAppointment(a)
		if keep(&cp) {
			out = append(out, &cp)
		}
	}
	switch order.Column {
	case "appointment_date":
		sortBy(out, order, func(a *model.Appointment) (string, uuid.UUID) { return timeKey(a.AppointmentDate), a.ID })
	case "created_at":
		sortBy(out, order, func(a *model.Appointment) (string, uuid.UUID) { return timeKey(a.CreatedAt), a.ID })
	case "status":
		sortBy(out, order, func(a *model.Appointment) (string, uuid.UUID) { return string(a.Status), a.ID })
	default:
		return nil, badSort(order.Column)
	}
	return out, nil
}

func (r *appointmentRepo) SelectByID(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter("appointments.select_by_id"); err != nil {
		return nil, err
	}
	a, ok := r.s.appointments[id]
	if !ok {
		return nil, errors.NotFound("appointment", nil)
	}
	a = cloneAppointment(a)
	return &a, nil
}

func (r *appointmentRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter("appointments.update_status"); err != nil {
		return err
	}
	a, ok := r.s.appointments[id]
	if !ok {
		return errors.NotFound("appointment", nil)
	}
	a.Status = status
	r.s.appointments[id] = a
	return nil
}

type outboxRepo struct{ s *Store }

func (r *outboxRepo) Create(ctx context.Context, e *model.OutboxEvent) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter("outbox.create"); err != nil {
		return err
	}
	if e == nil || e.Payload == nil {
		return fmt.Errorf("event payload cannot be nil")
	}
	e.ID = uuid.New()
	e.Status = model.OutboxStatusPending
	e.CreatedAt = r.s.now()
	e.UpdatedAt = e.CreatedAt
	r.s.outbox[e.ID] = cloneEvent(*e)
	return nil
}

func (r *outboxRepo) GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter("outbox.select_pending"); err != nil {
		return nil, err
	}

	now := r.s.now()
	out := []*model.OutboxEvent{}
	for _, e := range r.s.outbox {
		if e.Status != model.OutboxStatusPending && e.Status != model.OutboxStatusRetry {
			continue
		}
		if e.RetryAt != nil && e.RetryAt.After(now) {
			continue
		}
		cp := cloneEvent(e)
		out = append(out, &cp)
	}
	sortBy(out, repository.Asc("created_at"), func(e *model.OutboxEvent) (string, uuid.UUID) {
		return timeKey(e.CreatedAt), e.ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *outboxRepo) update(op string, id uuid.UUID, fn func(*model.OutboxEvent)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter(op); err != nil {
		return err
	}
	e, ok := r.s.outbox[id]
	if !ok {
		return errors.NotFound("outbox event", nil)
	}
	fn(&e)
	e.UpdatedAt = r.s.now()
	r.s.outbox[id] = e
	return nil
}

func (r *outboxRepo) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	return r.update("outbox.mark_processed", id, func(e *model.OutboxEvent) {
		now := r.s.now()
		e.Status = model.OutboxStatusProcessed
		e.ErrorMessage = nil
		e.RetryAt = nil
		e.ProcessedAt = &now
	})
}

func (r *outboxRepo) MarkRetry(ctx context.Context, id uuid.UUID, errMsg string, retryAt time.Time) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	return r.update("outbox.mark_retry", id, func(e *model.OutboxEvent) {
		e.Status = model.OutboxStatusRetry
		e.ErrorMessage = &errMsg
		e.RetryAt = &retryAt
		e.RetryCount++
	})
}

func (r *outboxRepo) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	return r.update("outbox.mark_failed", id, func(e *model.OutboxEvent) {
		e.Status = model.OutboxStatusFailed
		e.ErrorMessage = &errMsg
		e.RetryAt = nil
	})
}

func (r *outboxRepo) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	if err := ctxErr(ctx); err != nil {
		return 0, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter("outbox.delete_processed"); err != nil {
		return 0, err
	}
	var n int64
	for id, e := range r.s.outbox {
		if e.Status == model.OutboxStatusProcessed && e.ProcessedAt != nil && e.ProcessedAt.Before(before) {
			delete(r.s.outbox, id)
			n++
		}
	}
	return n, nil
}

// Events returns every stored outbox event of eventType, in insertion time order.
func (s *Store) Events(eventType string) []model.OutboxEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*model.OutboxEvent{}
	for _, e := range s.outbox {
		if eventType == "" || strings.EqualFold(e.EventType, eventType) {
			cp := cloneEvent(e)
			out = append(out, &cp)
		}
	}
	sortBy(out, repository.Asc("created_at"), func(e *model.OutboxEvent) (string, uuid.UUID) {
		return timeKey(e.CreatedAt), e.ID
	})
	res := make([]model.OutboxEvent, len(out))
	for i, e := range out {
		res[i] = *e
	}
	return res
}

// Visits returns a snapshot of every stored visit.
func (s *Store) Visits() []model.Visit {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Visit, 0, len(s.visits))
	for _, v := range s.visits {
		out = append(out, cloneVisit(v))
	}
	return out
}

// Prescriptions returns a snapshot of every stored prescription.
func (s *Store) Prescriptions() []model.Prescription {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Prescription, 0, len(s.prescriptions))
	for _, rx := range s.prescriptions {
		out = append(out, clonePrescription(rx))
	}
	return out
}

