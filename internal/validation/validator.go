// Package validation turns raw form input into normalized records.
//
// Every entity has an input struct whose fields are the strings a form would post. The
// Validator trims them, applies the field rules, and either returns the typed record or
// an *errors.ValidationError listing every failing field. Invalid user input never
// panics; only misuse of the API (an unknown kind) is reported as a plain error.
package validation

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/pkg/errors"
)

// ErrInputMismatch is returned by Validate when raw does not match the kind's input type.
// It also matches errors.ErrUnknownKind.
var ErrInputMismatch = errors.New("input type does not match entity kind")

// Text is a form value. It decodes from a JSON string, number or null so that numeric
// fields can be coerced during validation instead of failing at decode time.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*t = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("form value must be a string or a number")
	}
	*t = Text(n.String())
	return nil
}

func (t Text) String() string {
	return string(t)
}

type Validator struct {
	validate *validator.Validate
	now      func() time.Time
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	mustRegister(v, "frequency", func(fl validator.FieldLevel) bool {
		return model.Frequency(fl.Field().String()).Valid()
	})
	mustRegister(v, "payment_status", func(fl validator.FieldLevel) bool {
		return model.PaymentStatus(fl.Field().String()).Valid()
	})
	mustRegister(v, "appointment_status", func(fl validator.FieldLevel) bool {
		return model.AppointmentStatus(fl.Field().String()).Valid()
	})

	return &Validator{validate: v, now: time.Now}
}

// WithClock replaces the clock used for defaulted timestamps.
func (v *Validator) WithClock(now func() time.Time) *Validator {
	v.now = now
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

// Validate dispatches raw to the rules for kind.
func (v *Validator) Validate(kind model.Kind, raw any) (any, error) {
	switch kind {
	case model.KindPatient:
		in, ok := raw.(PatientInput)
		if !ok {
			return nil, mismatch(kind, raw)
		}
		return v.Patient(in)
	case model.KindVisit:
		in, ok := raw.(VisitInput)
		if !ok {
			return nil, mismatch(kind, raw)
		}
		return v.Visit(in)
	case model.KindPrescription:
		in, ok := raw.(PrescriptionInput)
		if !ok {
			return nil, mismatch(kind, raw)
		}
		return v.Prescription(in)
	case model.KindPayment:
		in, ok := raw.(PaymentInput)
		if !ok {
			return nil, mismatch(kind, raw)
		}
		return v.Payment(in)
	case model.KindAppointment:
		in, ok := raw.(AppointmentInput)
		if !ok {
			return nil, mismatch(kind, raw)
		}
		return v.Appointment(in)
	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnknownKind, kind)
	}
}

func mismatch(kind model.Kind, raw any) error {
	return fmt.Errorf("%w: %w: %s got %T", errors.ErrUnknownKind, ErrInputMismatch, kind, raw)
}

// check runs the struct tag rules and records each failure on verr.
func (v *Validator) check(verr *errors.ValidationError, in any) {
	err := v.validate.Struct(in)
	if err == nil {
		return
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		verr.Add("_", err.Error())
		return
	}
	for _, fe := range fieldErrs {
		verr.Add(fieldPath(fe.Namespace()), message(fe))
	}
}

// fieldPath drops the struct type prefix: "PrescriptionInput.medications[0].name"
// becomes "medications[0].name".
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		if fe.Kind() == reflect.Slice {
			return "at least one medication is required"
		}
		return field + " too short"
	case "max":
		return field + " too long"
	case "email":
		return "invalid email address"
	case "uuid":
		return field + " must be a valid id"
	case "frequency":
		return "frequency must be one of: " + joinFrequencies()
	case "payment_status":
		return "status must be one of: paid, pending, cancelled"
	case "appointment_status":
		return "status must be one of: scheduled, completed, cancelled, no_show"
	default:
		return fmt.Sprintf("%s failed %s rule", field, fe.Tag())
	}
}

func joinFrequencies() string {
	names := make([]string, len(model.Frequencies))
	for i, f := range model.Frequencies {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}

// parseID converts an already format-checked id. The tag rules report format errors,
// so a failure here only happens when the field was empty.
func parseID(s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil
	}
	return id
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseDate accepts RFC 3339 as well as the date and datetime-local formats browsers post.
func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func trim(s string) string {
	return strings.TrimSpace(s)
}
