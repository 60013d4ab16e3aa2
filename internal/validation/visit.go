package validation

import (
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/pkg/errors"
)

type VisitInput struct {
	PatientID string `json:"patient_id" validate:"required,uuid"`
	Doctor    string `json:"doctor" validate:"required"`
	Complaint string `json:"complaint" validate:"required"`
	Diagnosis string `json:"diagnosis"`
	Treatment string `json:"treatment"`
	Notes     string `json:"notes"`
	VisitDate string `json:"visit_date"`
}

func (in VisitInput) trimmed() VisitInput {
	return VisitInput{
		PatientID: trim(in.PatientID),
		Doctor:    trim(in.Doctor),
		Complaint: trim(in.Complaint),
		Diagnosis: trim(in.Diagnosis),
		Treatment: trim(in.Treatment),
		Notes:     trim(in.Notes),
		VisitDate: trim(in.VisitDate),
	}
}

// Visit validates a visit form. A missing visit date defaults to now.
func (v *Validator) Visit(in VisitInput) (*model.Visit, error) {
	in = in.trimmed()
	verr := errors.NewValidation("visit")
	v.check(verr, in)

	visitDate := v.now()
	if in.VisitDate != "" {
		t, ok := parseDate(in.VisitDate)
		if !ok {
			verr.Add("visit_date", "visit_date must be a valid date")
		}
		visitDate = t
	}

	if verr.HasErrors() {
		return nil, verr
	}

	return &model.Visit{
		PatientID: parseID(in.PatientID),
		Doctor:    in.Doctor,
		Complaint: in.Complaint,
		Diagnosis: model.StringPtr(in.Diagnosis),
		Treatment: model.StringPtr(in.Treatment),
		Notes:     model.StringPtr(in.Notes),
		VisitDate: visitDate,
	}, nil
}
