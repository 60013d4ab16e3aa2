package prescription

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/composer"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/repository/memory"
	"github.com/jwalitptl/clinic-api/internal/service/event"
	"github.com/jwalitptl/clinic-api/internal/validation"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

type fixture struct {
	svc     *Service
	store   *memory.Store
	metrics *metrics.Metrics
	patient uuid.UUID
}

func setup(t *testing.T) fixture {
	t.Helper()
	gw, store := memory.NewGateway()
	m := metrics.New("test")

	patientID, err := gw.Patients.Insert(context.Background(), &model.Patient{Name: "Asha Rao"})
	require.NoError(t, err)

	drafts := NewDraftStore(time.Hour, time.Hour, m)
	svc := NewService(gw, validation.New(), drafts, event.NewService(gw.Outbox), m, nil).
		WithClock(func() time.Time { return fixedNow })
	return fixture{svc: svc, store: store, metrics: m, patient: patientID}
}

func str(s string) *string { return &s }

func fullPatch(name string) composer.MedicationPatch {
	return composer.MedicationPatch{
		Name:      str(name),
		Dosage:    str("1 tablet"),
		Frequency: str("Twice daily"),
		Duration:  str("5 days"),
	}
}

func (f fixture) newDraft(t *testing.T) *DraftView {
	t.Helper()
	d, err := f.svc.CreateDraft(context.Background(), DraftInput{PatientID: f.patient.String(), Doctor: "Dr. Shah"})
	require.NoError(t, err)
	return d
}

func TestCreateDraftStartsWithOneBlankEntry(t *testing.T) {
	f := setup(t)
	d := f.newDraft(t)

	assert.Equal(t, "editing", d.State)
	require.Len(t, d.Medications, 1)
	assert.Equal(t, validation.MedicationInput{}, d.Medications[0])
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.DraftsActive))
}

func TestCreateDraftErrors(t *testing.T) {
	f := setup(t)

	_, err := f.svc.CreateDraft(context.Background(), DraftInput{PatientID: "x"})
	_, ok := apperrors.AsValidation(err)
	assert.True(t, ok)

	_, err = f.svc.CreateDraft(context.Background(), DraftInput{PatientID: uuid.NewString()})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestSubmitCommitsVisitThenPrescription(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	d := f.newDraft(t)

	_, err := f.svc.EditMedication(d.ID, 0, fullPatch("Paracetamol 500mg"))
	require.NoError(t, err)
	p := fullPatch("Amoxicillin 500mg")
	_, err = f.svc.AddMedication(d.ID, &p)
	require.NoError(t, err)

	res, err := f.svc.Submit(ctx, d.ID, SubmitInput{Notes: str("Review in a week")})
	require.NoError(t, err)

	assert.Equal(t, model.PrescriptionVisitComplaint, res.Visit.Complaint)
	assert.Equal(t, fixedNow, res.Visit.VisitDate)
	assert.Equal(t, res.Visit.ID, res.Prescription.VisitID)
	assert.Equal(t, "Review in a week", model.StringValue(res.Prescription.Notes))
	require.Len(t, res.Prescription.Medications, 2)
	assert.Equal(t, "Amoxicillin 500mg", res.Prescription.Medications[1].Name)

	_, err = f.svc.GetDraft(d.ID)
	assert.True(t, apperrors.IsNotFound(err), "draft is discarded after commit")

	assert.Len(t, f.store.Events(model.EventVisitCreated), 1)
	assert.Len(t, f.store.Events(model.EventPrescriptionCommitted), 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ComposerOutcomes.WithLabelValues(OutcomeCommitted)))

	list, err := f.svc.ListByPatient(ctx, f.patient, repository.OrderBy{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestSubmitInvalidMakesNoWrites(t *testing.T) {
	f := setup(t)
	d := f.newDraft(t)
	before := f.store.TotalCalls()

	_, err := f.svc.Submit(context.Background(), d.ID, SubmitInput{})
	verr, ok := apperrors.AsValidation(err)
	require.True(t, ok)
	_, found := verr.Field("medications[0].name")
	assert.True(t, found)

	assert.Equal(t, before, f.store.TotalCalls())
	view, err := f.svc.GetDraft(d.ID)
	require.NoError(t, err)
	assert.Equal(t, "editing", view.State)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ComposerOutcomes.WithLabelValues(OutcomeInvalid)))
}

func TestSubmitPrescriptionFailureKeepsVisitAndDraft(t *testing.T) {
	f := setup(t)
	d := f.newDraft(t)
	_, err := f.svc.EditMedication(d.ID, 0, fullPatch("Ibuprofen 400mg"))
	require.NoError(t, err)

	f.store.FailNext("prescriptions.insert", apperrors.Transport(assert.AnError))
	_, err = f.svc.Submit(context.Background(), d.ID, SubmitInput{})

	var commitErr *composer.CommitError
	require.ErrorAs(t, err, &commitErr)
	assert.True(t, commitErr.OrphanedVisit())
	assert.True(t, apperrors.IsTransport(err))
	assert.Len(t, f.store.Visits(), 1)
	assert.Empty(t, f.store.Prescriptions())

	view, err := f.svc.GetDraft(d.ID)
	require.NoError(t, err)
	assert.Equal(t, "failed", view.State)
	assert.NotEmpty(t, view.Error)
	assert.Len(t, view.Medications, 1)

	res, err := f.svc.Submit(context.Background(), d.ID, SubmitInput{})
	require.NoError(t, err)
	assert.NotEqual(t, commitErr.VisitID, res.Visit.ID, "a retry creates its own visit")
	assert.Len(t, f.store.Visits(), 2)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ComposerOutcomes.WithLabelValues(OutcomePrescriptionFailed)))
}

func TestRemoveLastMedicationIsConflict(t *testing.T) {
	f := setup(t)
	d := f.newDraft(t)

	_, err := f.svc.RemoveMedication(d.ID, 0)
	assert.Equal(t, apperrors.ErrConflict, apperrors.Code(err))
	assert.ErrorIs(t, err, composer.ErrLastMedication)

	view, err := f.svc.GetDraft(d.ID)
	require.NoError(t, err)
	assert.Len(t, view.Medications, 1)

	_, err = f.svc.EditMedication(d.ID, 3, fullPatch("x"))
	assert.Equal(t, apperrors.ErrBadRequest, apperrors.Code(err))
}

func TestRemoveKeepsOrder(t *testing.T) {
	f := setup(t)
	d := f.newDraft(t)
	for _, name := range []string{"A", "B", "C"} {
		p := fullPatch(name)
		_, err := f.svc.AddMedication(d.ID, &p)
		require.NoError(t, err)
	}

	view, err := f.svc.RemoveMedication(d.ID, 2)
	require.NoError(t, err)
	names := []string{}
	for _, m := range view.Medications {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"", "A", "C"}, names)
}

func TestDeleteDraft(t *testing.T) {
	f := setup(t)
	d := f.newDraft(t)

	require.NoError(t, f.svc.DeleteDraft(d.ID))
	assert.True(t, apperrors.IsNotFound(f.svc.DeleteDraft(d.ID)))
	assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.DraftsActive))
}

func TestDraftsExpire(t *testing.T) {
	store := NewDraftStore(20*time.Millisecond, 5*time.Millisecond, nil)
	d := &Draft{ID: uuid.New()}
	store.Put(d)

	_, ok := store.Get(d.ID)
	require.True(t, ok)

	// Len does not touch the entry, so the ttl is not extended while polling.
	assert.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 10*time.Millisecond)
	_, ok = store.Get(d.ID)
	assert.False(t, ok)
}

func TestFormulary(t *testing.T) {
	f := setup(t)
	fm := f.svc.Formulary()
	assert.Contains(t, fm.Medications, "Paracetamol 500mg")
	assert.Len(t, fm.Medications, 9)
	assert.Equal(t, model.Frequencies, fm.Frequencies)

	fm.Medications[0] = "changed"
	assert.NotEqual(t, "changed", model.Formulary[0])
}
