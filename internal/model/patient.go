package model

type Patient struct {
	Base
	Name           string  `db:"name" json:"name"`
	Age            *int    `db:"age" json:"age"`
	Gender         *string `db:"gender" json:"gender"`
	Contact        *string `db:"contact" json:"contact"`
	Email          *string `db:"email" json:"email"`
	Address        *string `db:"address" json:"address"`
	MedicalHistory *string `db:"medical_history" json:"medical_history"`
	Allergies      *string `db:"allergies" json:"allergies"`
}

// PatientDetail is a patient together with every record that references it.
type PatientDetail struct {
	Patient       *Patient        `json:"patient"`
	Visits        []*Visit        `json:"visits"`
	Prescriptions []*Prescription `json:"prescriptions"`
	Payments      []*Payment      `json:"payments"`
	Appointments  []*Appointment  `json:"appointments"`
}
