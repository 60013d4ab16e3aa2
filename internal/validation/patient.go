package validation

import (
	"strconv"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/pkg/errors"
)

type PatientInput struct {
	Name           string `json:"name" validate:"min=2"`
	Age            Text   `json:"age"`
	Gender         string `json:"gender"`
	Contact        string `json:"contact"`
	Email          string `json:"email" validate:"omitempty,email"`
	Address        string `json:"address"`
	MedicalHistory string `json:"medical_history"`
	Allergies      string `json:"allergies"`
}

func (in PatientInput) trimmed() PatientInput {
	return PatientInput{
		Name:           trim(in.Name),
		Age:            Text(trim(string(in.Age))),
		Gender:         trim(in.Gender),
		Contact:        trim(in.Contact),
		Email:          trim(in.Email),
		Address:        trim(in.Address),
		MedicalHistory: trim(in.MedicalHistory),
		Allergies:      trim(in.Allergies),
	}
}

// Patient validates a patient form. Empty optional fields come back as nil.
func (v *Validator) Patient(in PatientInput) (*model.Patient, error) {
	in = in.trimmed()
	verr := errors.NewValidation("patient")
	v.check(verr, in)

	var age *int
	if in.Age != "" {
		n, err := strconv.Atoi(string(in.Age))
		switch {
		case err != nil:
			verr.Add("age", "age must be a whole number")
		case n < 1:
			verr.Add("age", "age must be at least 1")
		default:
			age = &n
		}
	}

	if verr.HasErrors() {
		return nil, verr
	}

	return &model.Patient{
		Name:           in.Name,
		Age:            age,
		Gender:         model.StringPtr(in.Gender),
		Contact:        model.StringPtr(in.Contact),
		Email:          model.StringPtr(in.Email),
		Address:        model.StringPtr(in.Address),
		MedicalHistory: model.StringPtr(in.MedicalHistory),
		Allergies:      model.StringPtr(in.Allergies),
	}, nil
}
