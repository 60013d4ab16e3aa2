package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/pkg/errors"
)

// These tests need a disposable database, e.g.
// CLINIC_TEST_DATABASE_DSN="host=localhost user=postgres password=postgres dbname=clinic_test sslmode=disable"
func testGateway(t *testing.T) *repository.Gateway {
	t.Helper()
	dsn := os.Getenv("CLINIC_TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("CLINIC_TEST_DATABASE_DSN not set")
	}

	ctx := context.Background()
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, Migrate(ctx, db))

	return NewGateway(db, nil)
}

func TestGatewayRoundTrip(t *testing.T) {
	gw := testGateway(t)
	ctx := context.Background()

	age := 34
	patient := &model.Patient{Name: "Integration " + uuid.NewString()[:8], Age: &age}
	patientID, err := gw.Patients.Insert(ctx, patient)
	require.NoError(t, err)

	got, err := gw.Patients.SelectByID(ctx, patientID)
	require.NoError(t, err)
	assert.Equal(t, patient.Name, got.Name)
	assert.Nil(t, got.Email)

	visitID, err := gw.Visits.Insert(ctx, &model.Visit{
		PatientID: patientID,
		Doctor:    "Dr. Smith",
		Complaint: model.PrescriptionVisitComplaint,
	})
	require.NoError(t, err)

	rxID, err := gw.Prescriptions.Insert(ctx, &model.Prescription{
		PatientID: patientID,
		VisitID:   visitID,
		Doctor:    "Dr. Smith",
		Medications: model.Medications{{
			Name: "Ibuprofen 400mg", Dosage: "1 tablet", Frequency: model.FrequencyTwiceDaily, Duration: "7 days",
		}},
	})
	require.NoError(t, err)

	rx, err := gw.Prescriptions.SelectByID(ctx, rxID)
	require.NoError(t, err)
	require.Len(t, rx.Medications, 1)
	assert.Equal(t, model.FrequencyTwiceDaily, rx.Medications[0].Frequency)

	_, err = gw.Payments.Insert(ctx, &model.Payment{
		PatientID:   patientID,
		VisitID:     visitID,
		Amount:      decimal.RequireFromString("120.50"),
		PaymentDate: time.Now(),
	})
	require.NoError(t, err)
}

func TestGatewayTypedErrors(t *testing.T) {
	gw := testGateway(t)
	ctx := context.Background()

	_, err := gw.Patients.SelectByID(ctx, uuid.New())
	assert.True(t, errors.IsNotFound(err))

	_, err = gw.Prescriptions.Insert(ctx, &model.Prescription{
		PatientID:   uuid.New(),
		VisitID:     uuid.New(),
		Doctor:      "Dr. Smith",
		Medications: model.Medications{{Name: "x", Dosage: "y", Frequency: model.FrequencyAsNeeded, Duration: "z"}},
	})
	assert.True(t, errors.IsConstraint(err))

	err = gw.Appointments.UpdateStatus(ctx, uuid.New(), model.AppointmentStatusCompleted)
	assert.True(t, errors.IsNotFound(err))
}

func TestPatientUpdateReturnsCreatedAt(t *testing.T) {
	gw := testGateway(t)
	ctx := context.Background()

	patient := &model.Patient{Name: "Update " + uuid.NewString()[:8]}
	patientID, err := gw.Patients.Insert(ctx, patient)
	require.NoError(t, err)
	stored, err := gw.Patients.SelectByID(ctx, patientID)
	require.NoError(t, err)

	update := &model.Patient{Name: patient.Name + " Jr"}
	update.ID = patientID
	require.NoError(t, gw.Patients.Update(ctx, update))
	assert.False(t, update.CreatedAt.IsZero())
	assert.True(t, stored.CreatedAt.Equal(update.CreatedAt))

	missing := &model.Patient{Name: "Nobody"}
	missing.ID = uuid.New()
	assert.True(t, errors.IsNotFound(gw.Patients.Update(ctx, missing)))
}
