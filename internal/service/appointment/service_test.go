package appointment

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository/memory"
	"github.com/jwalitptl/clinic-api/internal/service/event"
	"github.com/jwalitptl/clinic-api/internal/validation"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

func TestCreateAndUpdateStatus(t *testing.T) {
	ctx := context.Background()
	gw, store := memory.NewGateway()
	svc := NewService(gw, validation.New(), event.NewService(gw.Outbox), nil)

	patientID, err := gw.Patients.Insert(ctx, &model.Patient{Name: "Asha Rao"})
	require.NoError(t, err)

	a, err := svc.Create(ctx, validation.AppointmentInput{
		PatientID:       patientID.String(),
		AppointmentDate: "2026-05-02T09:00",
		Reason:          "Follow-up",
	})
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusScheduled, a.Status)

	updated, err := svc.UpdateStatus(ctx, a.ID, "completed")
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCompleted, updated.Status)

	assert.Len(t, store.Events(model.EventAppointmentScheduled), 1)
	assert.Len(t, store.Events(model.EventAppointmentStatusChanged), 1)
}

func TestUpdateStatusErrors(t *testing.T) {
	ctx := context.Background()
	gw, store := memory.NewGateway()
	svc := NewService(gw, validation.New(), nil, nil)

	_, err := svc.UpdateStatus(ctx, uuid.New(), "rescheduled")
	_, ok := apperrors.AsValidation(err)
	assert.True(t, ok)
	assert.Zero(t, store.Calls("appointments.update_status"))

	_, err = svc.UpdateStatus(ctx, uuid.New(), "cancelled")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestCreateUnknownPatient(t *testing.T) {
	gw, _ := memory.NewGateway()
	svc := NewService(gw, validation.New(), nil, nil)

	_, err := svc.Create(context.Background(), validation.AppointmentInput{
		PatientID:       uuid.NewString(),
		AppointmentDate: "2026-05-02",
	})
	assert.True(t, apperrors.IsNotFound(err))
}
