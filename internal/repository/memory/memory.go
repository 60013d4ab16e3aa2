// Package memory is a process-local Gateway. It enforces the same references as the
// Postgres schema and is used for local runs and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/pkg/errors"
)

// Store holds every table behind one lock.
type Store struct {
	mu            sync.RWMutex
	patients      map[uuid.UUID]model.Patient
	visits        map[uuid.UUID]model.Visit
	prescriptions map[uuid.UUID]model.Prescription
	payments      map[uuid.UUID]model.Payment
	appointments  map[uuid.UUID]model.Appointment
	outbox        map[uuid.UUID]model.OutboxEvent

	calls    map[string]int
	failures map[string]error
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{
		patients:      map[uuid.UUID]model.Patient{},
		visits:        map[uuid.UUID]model.Visit{},
		prescriptions: map[uuid.UUID]model.Prescription{},
		payments:      map[uuid.UUID]model.Payment{},
		appointments:  map[uuid.UUID]model.Appointment{},
		outbox:        map[uuid.UUID]model.OutboxEvent{},
		calls:         map[string]int{},
		failures:      map[string]error{},
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// NewGateway returns a Gateway backed by a fresh Store.
func NewGateway() (*repository.Gateway, *Store) {
	s := NewStore()
	return s.Gateway(), s
}

func (s *Store) Gateway() *repository.Gateway {
	return &repository.Gateway{
		Patients:      &patientRepo{s},
		Visits:        &visitRepo{s},
		Prescriptions: &prescriptionRepo{s},
		Payments:      &paymentRepo{s},
		Appointments:  &appointmentRepo{s},
		Outbox:        &outboxRepo{s},
	}
}

// WithClock replaces the clock used for generated timestamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// FailNext makes the next call to op ("visits.insert", "prescriptions.insert", ...)
// return err. The failure is consumed by that call.
func (s *Store) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
}

// Calls reports how many times op was attempted, including failed attempts.
func (s *Store) Calls(op string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls[op]
}

// TotalCalls reports every attempted operation.
func (s *Store) TotalCalls() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

// enter must be called with mu held.
func (s *Store) enter(op string) error {
	s.calls[op]++
	if err, ok := s.failures[op]; ok {
		delete(s.failures, op)
		return err
	}
	return nil
}

func (s *Store) patientExists(id uuid.UUID) bool {
	p, ok := s.patients[id]
	return ok && p.DeletedAt == nil
}

// visitOwnedBy mirrors the (visit_id, patient_id) foreign key.
func (s *Store) visitOwnedBy(visitID, patientID uuid.UUID) bool {
	v, ok := s.visits[visitID]
	return ok && v.PatientID == patientID
}

func danglingRef(entity string) error {
	return errors.Constraint(entity+" references a record that does not exist", nil)
}

// less reports whether a sorts before b for the given key values.
func less(a, b string, aID, bID uuid.UUID, desc bool) bool {
	if a == b {
		return aID.String() < bID.String()
	}
	if desc {
		return a > b
	}
	return a < b
}

func sortBy[T any](items []*T, order repository.OrderBy, key func(*T) (string, uuid.UUID)) {
	sort.SliceStable(items, func(i, j int) bool {
		a, aID := key(items[i])
		b, bID := key(items[j])
		return less(a, b, aID, bID, order.Descending)
	})
}

// sortKeyLayout keeps every fractional digit so keys compare in time order.
const sortKeyLayout = "2006-01-02T15:04:05.000000000Z"

func timeKey(t time.Time) string {
	return t.UTC().Format(sortKeyLayout)
}

// amountKey renders whole cents at a fixed width. Amounts are never negative.
func amountKey(d decimal.Decimal) string {
	return fmt.Sprintf("%015d", d.Shift(2).Round(0).IntPart())
}

func badSort(column string) error {
	return errors.BadRequest("cannot sort by \""+column+"\"", nil)
}

func ctxErr(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.Transport(err)
	}
	return nil
}
