package validation

import (
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/pkg/errors"
)

type MedicationInput struct {
	Name         string `json:"name" validate:"required"`
	Dosage       string `json:"dosage" validate:"required"`
	Frequency    string `json:"frequency" validate:"required,frequency"`
	Duration     string `json:"duration" validate:"required"`
	Instructions string `json:"instructions"`
}

func (in MedicationInput) trimmed() MedicationInput {
	return MedicationInput{
		Name:         trim(in.Name),
		Dosage:       trim(in.Dosage),
		Frequency:    trim(in.Frequency),
		Duration:     trim(in.Duration),
		Instructions: trim(in.Instructions),
	}
}

// Normalize converts a valid entry to its stored form.
func (in MedicationInput) Normalize() model.Medication {
	in = in.trimmed()
	return model.Medication{
		Name:         in.Name,
		Dosage:       in.Dosage,
		Frequency:    model.Frequency(in.Frequency),
		Duration:     in.Duration,
		Instructions: in.Instructions,
	}
}

// PrescriptionInput is a composed prescription before it is tied to a visit.
type PrescriptionInput struct {
	PatientID   string            `json:"patient_id" validate:"required,uuid"`
	Doctor      string            `json:"doctor" validate:"required"`
	Notes       string            `json:"notes"`
	Medications []MedicationInput `json:"medications" validate:"min=1,dive"`
}

func (in PrescriptionInput) trimmed() PrescriptionInput {
	out := PrescriptionInput{
		PatientID: trim(in.PatientID),
		Doctor:    trim(in.Doctor),
		Notes:     trim(in.Notes),
	}
	if in.Medications != nil {
		out.Medications = make([]MedicationInput, len(in.Medications))
		for i, m := range in.Medications {
			out.Medications[i] = m.trimmed()
		}
	}
	return out
}

// Prescription validates the whole composition. The returned record has no visit id;
// the composer assigns it once the visit exists.
func (v *Validator) Prescription(in PrescriptionInput) (*model.Prescription, error) {
	in = in.trimmed()
	verr := errors.NewValidation("prescription")
	v.check(verr, in)

	if verr.HasErrors() {
		return nil, verr
	}

	meds := make(model.Medications, len(in.Medications))
	for i, m := range in.Medications {
		meds[i] = m.Normalize()
	}

	return &model.Prescription{
		PatientID:   parseID(in.PatientID),
		Doctor:      in.Doctor,
		Medications: meds,
		Notes:       model.StringPtr(in.Notes),
	}, nil
}
