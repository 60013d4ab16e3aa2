package validation

import (
	"time"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/pkg/errors"
)

type AppointmentInput struct {
	PatientID       string `json:"patient_id" validate:"required,uuid"`
	AppointmentDate string `json:"appointment_date" validate:"required"`
	Reason          string `json:"reason"`
	Notes           string `json:"notes"`
	Status          string `json:"status" validate:"omitempty,appointment_status"`
}

func (in AppointmentInput) trimmed() AppointmentInput {
	return AppointmentInput{
		PatientID:       trim(in.PatientID),
		AppointmentDate: trim(in.AppointmentDate),
		Reason:          trim(in.Reason),
		Notes:           trim(in.Notes),
		Status:          trim(in.Status),
	}
}

// Appointment validates an appointment form. Status defaults to scheduled only when absent.
func (v *Validator) Appointment(in AppointmentInput) (*model.Appointment, error) {
	in = in.trimmed()
	verr := errors.NewValidation("appointment")
	v.check(verr, in)

	var date time.Time
	if in.AppointmentDate != "" {
		t, ok := parseDate(in.AppointmentDate)
		if !ok {
			verr.Add("appointment_date", "appointment_date must be a valid date")
		}
		date = t
	}

	if verr.HasErrors() {
		return nil, verr
	}

	status := model.AppointmentStatusScheduled
	if in.Status != "" {
		status = model.AppointmentStatus(in.Status)
	}

	return &model.Appointment{
		PatientID:       parseID(in.PatientID),
		AppointmentDate: date,
		Reason:          model.StringPtr(in.Reason),
		Notes:           model.StringPtr(in.Notes),
		Status:          status,
	}, nil
}

// AppointmentStatus validates a standalone status change.
func (v *Validator) AppointmentStatus(raw string) (model.AppointmentStatus, error) {
	status := model.AppointmentStatus(trim(raw))
	if !status.Valid() {
		verr := errors.NewValidation("appointment")
		verr.Add("status", "status must be one of: scheduled, completed, cancelled, no_show")
		return "", verr
	}
	return status, nil
}
