// Package directory filters the patient list shown to staff.
package directory

import (
	"strings"

	"github.com/jwalitptl/clinic-api/internal/model"
)

// Search returns the patients whose name, medical history or allergies contain term,
// ignoring case. Input order is kept. A blank term returns patients unchanged.
func Search(patients []*model.Patient, term string) []*model.Patient {
	term = strings.TrimSpace(term)
	if term == "" {
		return patients
	}

	needle := strings.ToLower(term)
	out := make([]*model.Patient, 0, len(patients))
	for _, p := range patients {
		if matches(p, needle) {
			out = append(out, p)
		}
	}
	return out
}

func matches(p *model.Patient, needle string) bool {
	if p == nil {
		return false
	}
	return contains(p.Name, needle) ||
		contains(model.StringValue(p.MedicalHistory), needle) ||
		contains(model.StringValue(p.Allergies), needle)
}

func contains(field, needle string) bool {
	return field != "" && strings.Contains(strings.ToLower(field), needle)
}
