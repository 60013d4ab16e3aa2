package composer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/validation"
	"github.com/jwalitptl/clinic-api/pkg/errors"
)

type fakeVisits struct {
	mu      sync.Mutex
	calls   []*model.Visit
	ids     []uuid.UUID
	err     error
	started chan struct{}
	release chan struct{}
}

func (f *fakeVisits) Insert(ctx context.Context, v *model.Visit) (uuid.UUID, error) {
	if f.started != nil {
		f.started <- struct{}{}
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *v
	f.calls = append(f.calls, &cp)
	if f.err != nil {
		return uuid.Nil, f.err
	}
	id := uuid.New()
	f.ids = append(f.ids, id)
	return id, nil
}

func (f *fakeVisits) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakePrescriptions struct {
	mu    sync.Mutex
	calls []*model.Prescription
	err   error
}

func (f *fakePrescriptions) Insert(ctx context.Context, rx *model.Prescription) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *rx
	f.calls = append(f.calls, &cp)
	if f.err != nil {
		return uuid.Nil, f.err
	}
	return uuid.New(), nil
}

func (f *fakePrescriptions) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func strPtr(s string) *string { return &s }

func ibuprofen() MedicationPatch {
	return MedicationPatch{
		Name:      strPtr("Ibuprofen 400mg"),
		Dosage:    strPtr("1 tablet"),
		Frequency: strPtr("Twice daily"),
		Duration:  strPtr("7 days"),
	}
}

func setup() (*Composer, *fakeVisits, *fakePrescriptions) {
	visits := &fakeVisits{}
	rxs := &fakePrescriptions{}
	c := New(validation.New(), visits, rxs).
		WithClock(func() time.Time { return time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC) })
	return c, visits, rxs
}

func TestNewComposerIsEmpty(t *testing.T) {
	c, _, _ := setup()
	assert.Equal(t, StateEmpty, c.State())
	assert.Equal(t, 0, c.Len())
	assert.NoError(t, c.Err())
}

func TestSubmitCommitsVisitThenPrescription(t *testing.T) {
	c, visits, rxs := setup()
	patientID := uuid.New()

	i, err := c.AddMedication()
	require.NoError(t, err)
	require.NoError(t, c.EditMedication(i, ibuprofen()))
	assert.Equal(t, StateEditing, c.State())

	res, err := c.Submit(context.Background(), patientID, "Dr. Smith", "")
	require.NoError(t, err)

	require.Equal(t, 1, visits.count())
	v := visits.calls[0]
	assert.Equal(t, patientID, v.PatientID)
	assert.Equal(t, "Dr. Smith", v.Doctor)
	assert.Equal(t, model.PrescriptionVisitComplaint, v.Complaint)
	assert.Equal(t, model.PrescriptionVisitNotes, model.StringValue(v.Notes))
	assert.Nil(t, v.Diagnosis)
	assert.Nil(t, v.Treatment)

	require.Equal(t, 1, rxs.count())
	rx := rxs.calls[0]
	assert.Equal(t, visits.ids[0], rx.VisitID)
	assert.Equal(t, patientID, rx.PatientID)
	assert.Equal(t, "Dr. Smith", rx.Doctor)
	require.Len(t, rx.Medications, 1)
	assert.Equal(t, model.Medication{
		Name:      "Ibuprofen 400mg",
		Dosage:    "1 tablet",
		Frequency: model.FrequencyTwiceDaily,
		Duration:  "7 days",
	}, rx.Medications[0])
	assert.Nil(t, rx.Notes)

	assert.Equal(t, visits.ids[0], res.Visit.ID)
	assert.Equal(t, res.Visit.ID, res.Prescription.VisitID)
	assert.NotEqual(t, uuid.Nil, res.Prescription.ID)

	assert.Equal(t, StateCommitted, c.State())
	assert.Equal(t, 0, c.Len())
}

func TestSubmitWithoutMedicationsMakesNoCalls(t *testing.T) {
	c, visits, rxs := setup()

	_, err := c.Submit(context.Background(), uuid.New(), "Dr. Smith", "")
	require.Error(t, err)

	verr, ok := errors.AsValidation(err)
	require.True(t, ok)
	_, found := verr.Field("medications")
	assert.True(t, found)

	assert.Zero(t, visits.count())
	assert.Zero(t, rxs.count())
	assert.Equal(t, StateEmpty, c.State())
}

func TestSubmitInvalidEntryReturnsToEditing(t *testing.T) {
	c, visits, rxs := setup()
	_, err := c.AddMedication()
	require.NoError(t, err)

	_, err = c.Submit(context.Background(), uuid.New(), "Dr. Smith", "")
	_, ok := errors.AsValidation(err)
	require.True(t, ok)

	assert.Equal(t, StateEditing, c.State())
	assert.Equal(t, 1, c.Len())
	assert.Zero(t, visits.count())
	assert.Zero(t, rxs.count())
}

func TestSubmitRequiresPatient(t *testing.T) {
	c, visits, _ := setup()
	i, _ := c.AddMedication()
	require.NoError(t, c.EditMedication(i, ibuprofen()))

	_, err := c.Submit(context.Background(), uuid.Nil, "Dr. Smith", "")
	verr, ok := errors.AsValidation(err)
	require.True(t, ok)
	_, found := verr.Field("patient_id")
	assert.True(t, found)
	assert.Zero(t, visits.count())
}

func TestPrescriptionFailureKeepsVisit(t *testing.T) {
	c, visits, rxs := setup()
	rxs.err = errors.Constraint("prescription rejected", nil)

	i, _ := c.AddMedication()
	require.NoError(t, c.EditMedication(i, ibuprofen()))

	_, err := c.Submit(context.Background(), uuid.New(), "Dr. Smith", "")
	require.Error(t, err)

	var cerr *CommitError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, StepPrescription, cerr.Step)
	assert.Equal(t, visits.ids[0], cerr.VisitID)
	assert.True(t, cerr.OrphanedVisit())
	assert.True(t, errors.IsConstraint(err))

	assert.Equal(t, StateFailed, c.State())
	assert.Equal(t, 1, visits.count())
	assert.Equal(t, 1, rxs.count())
	assert.Equal(t, err, c.Err())

	meds := c.Medications()
	require.Len(t, meds, 1)
	assert.Equal(t, "Ibuprofen 400mg", meds[0].Name)
}

func TestVisitFailureSkipsPrescription(t *testing.T) {
	c, visits, rxs := setup()
	visits.err = errors.Transport(context.DeadlineExceeded)

	i, _ := c.AddMedication()
	require.NoError(t, c.EditMedication(i, ibuprofen()))

	_, err := c.Submit(context.Background(), uuid.New(), "Dr. Smith", "")
	var cerr *CommitError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, StepVisit, cerr.Step)
	assert.False(t, cerr.OrphanedVisit())
	assert.True(t, errors.IsTransport(err))

	assert.Zero(t, rxs.count())
	assert.Equal(t, StateFailed, c.State())
	assert.Equal(t, 1, c.Len())
}

func TestRetryAfterFailureCreatesNewVisit(t *testing.T) {
	c, visits, rxs := setup()
	rxs.err = errors.Transport(nil)

	i, _ := c.AddMedication()
	require.NoError(t, c.EditMedication(i, ibuprofen()))
	_, err := c.Submit(context.Background(), uuid.New(), "Dr. Smith", "")
	require.Error(t, err)

	rxs.mu.Lock()
	rxs.err = nil
	rxs.mu.Unlock()

	res, err := c.Submit(context.Background(), uuid.New(), "Dr. Smith", "")
	require.NoError(t, err)
	assert.Equal(t, 2, visits.count())
	assert.Equal(t, visits.ids[1], res.Prescription.VisitID)
	assert.Equal(t, StateCommitted, c.State())
}

func TestRemoveOnlyEntryIsNoop(t *testing.T) {
	c, _, _ := setup()
	_, err := c.AddMedication()
	require.NoError(t, err)

	err = c.RemoveMedication(0)
	assert.ErrorIs(t, err, ErrLastMedication)
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, StateEditing, c.State())
}

func TestRemoveAndEditKeepOrder(t *testing.T) {
	c, _, _ := setup()
	for _, name := range []string{"A", "B", "C"} {
		i, err := c.AddMedication()
		require.NoError(t, err)
		n := name
		require.NoError(t, c.EditMedication(i, MedicationPatch{Name: &n}))
	}

	require.NoError(t, c.EditMedication(1, MedicationPatch{Dosage: strPtr("2 tablets")}))
	meds := c.Medications()
	assert.Equal(t, "B", meds[1].Name)
	assert.Equal(t, "2 tablets", meds[1].Dosage)

	require.NoError(t, c.RemoveMedication(0))
	meds = c.Medications()
	require.Len(t, meds, 2)
	assert.Equal(t, "B", meds[0].Name)
	assert.Equal(t, "C", meds[1].Name)
}

func TestIndexOutOfRange(t *testing.T) {
	c, _, _ := setup()
	c.AddMedication()

	assert.ErrorIs(t, c.RemoveMedication(3), ErrIndexOutOfRange)
	assert.ErrorIs(t, c.RemoveMedication(-1), ErrIndexOutOfRange)
	assert.ErrorIs(t, c.EditMedication(1, MedicationPatch{}), ErrIndexOutOfRange)
	assert.Equal(t, 1, c.Len())
}

func TestEditAfterFailureReturnsToEditing(t *testing.T) {
	c, visits, _ := setup()
	visits.err = errors.Transport(nil)
	i, _ := c.AddMedication()
	require.NoError(t, c.EditMedication(i, ibuprofen()))
	_, _ = c.Submit(context.Background(), uuid.New(), "Dr. Smith", "")
	require.Equal(t, StateFailed, c.State())

	require.NoError(t, c.EditMedication(0, MedicationPatch{Duration: strPtr("10 days")}))
	assert.Equal(t, StateEditing, c.State())
}

func TestCommittedRejectsEditsUntilReset(t *testing.T) {
	c, _, _ := setup()
	i, _ := c.AddMedication()
	require.NoError(t, c.EditMedication(i, ibuprofen()))
	_, err := c.Submit(context.Background(), uuid.New(), "Dr. Smith", "")
	require.NoError(t, err)

	_, err = c.AddMedication()
	assert.ErrorIs(t, err, ErrCommitted)
	_, err = c.Submit(context.Background(), uuid.New(), "Dr. Smith", "")
	assert.ErrorIs(t, err, ErrCommitted)

	require.NoError(t, c.Reset())
	assert.Equal(t, StateEmpty, c.State())
	_, err = c.AddMedication()
	assert.NoError(t, err)
}

func TestSubmitIsSingleFlight(t *testing.T) {
	visits := &fakeVisits{started: make(chan struct{}), release: make(chan struct{})}
	rxs := &fakePrescriptions{}
	c := New(validation.New(), visits, rxs)

	i, _ := c.AddMedication()
	require.NoError(t, c.EditMedication(i, ibuprofen()))

	done := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background(), uuid.New(), "Dr. Smith", "")
		done <- err
	}()

	<-visits.started
	assert.Equal(t, StateSubmitting, c.State())

	_, err := c.Submit(context.Background(), uuid.New(), "Dr. Smith", "")
	assert.ErrorIs(t, err, ErrSubmitInFlight)
	_, err = c.AddMedication()
	assert.ErrorIs(t, err, ErrLocked)
	assert.ErrorIs(t, c.EditMedication(0, MedicationPatch{}), ErrLocked)
	assert.ErrorIs(t, c.RemoveMedication(0), ErrLocked)
	assert.ErrorIs(t, c.Reset(), ErrLocked)

	close(visits.release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, visits.count())
	assert.Equal(t, 1, rxs.count())
	assert.Equal(t, StateCommitted, c.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "submitting", StateSubmitting.String())
	assert.Equal(t, "unknown", State(42).String())
}
