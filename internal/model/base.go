package model

import (
	"time"

	"github.com/google/uuid"
)

// Base contains common fields for root records
type Base struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// Kind names a persisted record kind.
type Kind string

const (
	KindPatient      Kind = "patient"
	KindVisit        Kind = "visit"
	KindPrescription Kind = "prescription"
	KindPayment      Kind = "payment"
	KindAppointment  Kind = "appointment"
)

// StringPtr returns nil for an empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// StringValue dereferences s, returning "" for nil.
func StringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
