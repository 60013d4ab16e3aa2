package memory

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/pkg/errors"
)

var base = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func insertPatient(t *testing.T, gw *repository.Gateway) *model.Patient {
	t.Helper()
	age := 40
	allergies := "Penicillin"
	p := &model.Patient{Name: "Asha Rao", Age: &age, Allergies: &allergies}
	_, err := gw.Patients.Insert(context.Background(), p)
	require.NoError(t, err)
	return p
}

func TestTimeOrderingAcrossFractionalSeconds(t *testing.T) {
	gw, _ := NewGateway()
	ctx := context.Background()
	p := insertPatient(t, gw)

	// Whole second, millisecond, nanosecond and a later whole second.
	dates := []time.Time{
		base.Add(time.Millisecond),
		base,
		base.Add(time.Second),
		base.Add(time.Nanosecond),
	}
	for _, d := range dates {
		_, err := gw.Visits.Insert(ctx, &model.Visit{PatientID: p.ID, Doctor: "Dr. Shah", Complaint: "Cough", VisitDate: d})
		require.NoError(t, err)
	}

	desc, err := gw.Visits.SelectByPatient(ctx, p.ID, repository.Desc("visit_date"))
	require.NoError(t, err)
	require.Len(t, desc, 4)
	for i := 1; i < len(desc); i++ {
		assert.True(t, desc[i-1].VisitDate.After(desc[i].VisitDate), "position %d: %s then %s", i, desc[i-1].VisitDate, desc[i].VisitDate)
	}

	asc, err := gw.Visits.SelectAll(ctx, repository.Asc("visit_date"))
	require.NoError(t, err)
	assert.Equal(t, base, asc[0].VisitDate)
	assert.Equal(t, base.Add(time.Second), asc[3].VisitDate)
}

func TestTimeKeyIsFixedWidth(t *testing.T) {
	whole := timeKey(base)
	frac := timeKey(base.Add(time.Millisecond))
	assert.Len(t, frac, len(whole))
	assert.Less(t, whole, frac)
}

func TestPendingOutboxOrderedByCreation(t *testing.T) {
	clock := base
	gw, store := NewGateway()
	store.WithClock(func() time.Time { return clock })
	ctx := context.Background()

	steps := []time.Duration{0, time.Millisecond, 999 * time.Millisecond, time.Microsecond}
	var want []string
	for i, step := range steps {
		clock = clock.Add(step)
		eventType := []string{model.EventPatientCreated, model.EventVisitCreated, model.EventPaymentRecorded, model.EventAppointmentScheduled}[i]
		require.NoError(t, gw.Outbox.Create(ctx, &model.OutboxEvent{EventType: eventType, Payload: json.RawMessage(`{}`)}))
		want = append(want, eventType)
	}

	pending, err := gw.Outbox.GetPendingEvents(ctx, 10)
	require.NoError(t, err)
	var got []string
	for _, e := range pending {
		got = append(got, e.EventType)
	}
	assert.Equal(t, want, got)
}

func TestPaymentsSortByAmountNumerically(t *testing.T) {
	gw, _ := NewGateway()
	ctx := context.Background()
	p := insertPatient(t, gw)
	visitID, err := gw.Visits.Insert(ctx, &model.Visit{PatientID: p.ID, Doctor: "Dr. Shah", Complaint: "Fever"})
	require.NoError(t, err)

	for _, amount := range []string{"20.00", "100.00", "9.50"} {
		_, err := gw.Payments.Insert(ctx, &model.Payment{PatientID: p.ID, VisitID: visitID, Amount: decimal.RequireFromString(amount)})
		require.NoError(t, err)
	}

	payments, err := gw.Payments.SelectAll(ctx, repository.Asc("amount"))
	require.NoError(t, err)
	require.Len(t, payments, 3)
	assert.Equal(t, "9.50", payments[0].Amount.StringFixed(2))
	assert.Equal(t, "20.00", payments[1].Amount.StringFixed(2))
	assert.Equal(t, "100.00", payments[2].Amount.StringFixed(2))
}

func TestStoredRecordsDoNotShareMemory(t *testing.T) {
	gw, _ := NewGateway()
	ctx := context.Background()
	p := insertPatient(t, gw)

	*p.Age = 99
	*p.Allergies = "None"

	got, err := gw.Patients.SelectByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, *got.Age)
	assert.Equal(t, "Penicillin", *got.Allergies)

	*got.Age = 12
	again, err := gw.Patients.SelectByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, *again.Age)

	notes := "Follow up"
	v := &model.Visit{PatientID: p.ID, Doctor: "Dr. Shah", Complaint: "Cough", Notes: &notes}
	_, err = gw.Visits.Insert(ctx, v)
	require.NoError(t, err)
	notes = "changed"

	visits, err := gw.Visits.SelectByPatient(ctx, p.ID, repository.OrderBy{})
	require.NoError(t, err)
	require.Len(t, visits, 1)
	assert.Equal(t, "Follow up", *visits[0].Notes)
}

func TestUpdateKeepsCreatedAt(t *testing.T) {
	gw, store := NewGateway()
	created := base
	store.WithClock(func() time.Time { return created })
	ctx := context.Background()
	p := insertPatient(t, gw)

	created = base.Add(time.Hour)
	update := &model.Patient{Name: "Asha K. Rao"}
	update.ID = p.ID
	require.NoError(t, gw.Patients.Update(ctx, update))
	assert.Equal(t, base, update.CreatedAt)

	err := gw.Patients.Update(ctx, &model.Patient{Base: model.Base{ID: uuid.New()}, Name: "Nobody"})
	assert.True(t, errors.IsNotFound(err))
}
