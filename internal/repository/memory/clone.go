package memory

import (
	"encoding/json"

	"github.com/jwalitptl/clinic-api/internal/model"
)

// Records are stored and returned by value with their pointer fields copied, so
// callers never share memory with the store.

func ptr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneBase(b model.Base) model.Base {
	b.DeletedAt = ptr(b.DeletedAt)
	return b
}

func clonePatient(p model.Patient) model.Patient {
	p.Base = cloneBase(p.Base)
	p.Age = ptr(p.Age)
	p.Gender = ptr(p.Gender)
	p.Contact = ptr(p.Contact)
	p.Email = ptr(p.Email)
	p.Address = ptr(p.Address)
	p.MedicalHistory = ptr(p.MedicalHistory)
	p.Allergies = ptr(p.Allergies)
	return p
}

func cloneVisit(v model.Visit) model.Visit {
	v.Diagnosis = ptr(v.Diagnosis)
	v.Treatment = ptr(v.Treatment)
	v.Notes = ptr(v.Notes)
	return v
}

func clonePrescription(rx model.Prescription) model.Prescription {
	if rx.Medications != nil {
		rx.Medications = append(model.Medications(nil), rx.Medications...)
	}
	rx.Notes = ptr(rx.Notes)
	return rx
}

func clonePayment(p model.Payment) model.Payment {
	p.Notes = ptr(p.Notes)
	return p
}

func cloneAppointment(a model.Appointment) model.Appointment {
	a.Reason = ptr(a.Reason)
	a.Notes = ptr(a.Notes)
	return a
}

func cloneEvent(e model.OutboxEvent) model.OutboxEvent {
	if e.Payload != nil {
		e.Payload = append(json.RawMessage(nil), e.Payload...)
	}
	e.ErrorMessage = ptr(e.ErrorMessage)
	e.RetryAt = ptr(e.RetryAt)
	e.ProcessedAt = ptr(e.ProcessedAt)
	return e
}
