package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Frequency string

const (
	FrequencyOnceDaily       Frequency = "Once daily"
	FrequencyTwiceDaily      Frequency = "Twice daily"
	FrequencyThreeTimesDaily Frequency = "Three times daily"
	FrequencyFourTimesDaily  Frequency = "Four times daily"
	FrequencyAsNeeded        Frequency = "As needed"
)

// Frequencies lists the accepted frequencies in display order.
var Frequencies = []Frequency{
	FrequencyOnceDaily,
	FrequencyTwiceDaily,
	FrequencyThreeTimesDaily,
	FrequencyFourTimesDaily,
	FrequencyAsNeeded,
}

func (f Frequency) Valid() bool {
	for _, v := range Frequencies {
		if f == v {
			return true
		}
	}
	return false
}

// Formulary is the set of medication names offered during composition.
// Free-text names are still accepted.
var Formulary = []string{
	"Ibuprofen 400mg",
	"Naproxen 500mg",
	"Paracetamol 500mg",
	"Tramadol 50mg",
	"Amoxicillin 500mg",
	"Ciprofloxacin 250mg",
	"Metformin 500mg",
	"Atorvastatin 10mg",
	"Lisinopril 10mg",
}

type Medication struct {
	Name         string    `json:"name"`
	Dosage       string    `json:"dosage"`
	Frequency    Frequency `json:"frequency"`
	Duration     string    `json:"duration"`
	Instructions string    `json:"instructions,omitempty"`
}

// Medications is stored as a JSON array column.
type Medications []Medication

func (m Medications) Value() (driver.Value, error) {
	if m == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(m)
}

func (m *Medications) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*m = nil
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported medications type %T", src)
	}
	return json.Unmarshal(data, m)
}

type Prescription struct {
	ID          uuid.UUID   `db:"id" json:"id"`
	PatientID   uuid.UUID   `db:"patient_id" json:"patient_id"`
	VisitID     uuid.UUID   `db:"visit_id" json:"visit_id"`
	Doctor      string      `db:"doctor" json:"doctor"`
	Medications Medications `db:"medications" json:"medications"`
	Notes       *string     `db:"notes" json:"notes"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
}
