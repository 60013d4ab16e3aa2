package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	// PrescriptionVisitComplaint marks a visit created as part of a prescription commit.
	PrescriptionVisitComplaint = "Prescription visit"
	PrescriptionVisitNotes     = "Visit created for prescription"
)

type Visit struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PatientID uuid.UUID `db:"patient_id" json:"patient_id"`
	Doctor    string    `db:"doctor" json:"doctor"`
	Complaint string    `db:"complaint" json:"complaint"`
	Diagnosis *string   `db:"diagnosis" json:"diagnosis"`
	Treatment *string   `db:"treatment" json:"treatment"`
	Notes     *string   `db:"notes" json:"notes"`
	VisitDate time.Time `db:"visit_date" json:"visit_date"`
}
