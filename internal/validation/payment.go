package validation

import (
	"github.com/shopspring/decimal"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/pkg/errors"
)

type PaymentInput struct {
	PatientID   string `json:"patient_id" validate:"required,uuid"`
	VisitID     string `json:"visit_id" validate:"required,uuid"`
	Amount      Text   `json:"amount" validate:"required"`
	PaymentDate string `json:"payment_date"`
	Status      string `json:"status" validate:"omitempty,payment_status"`
	Notes       string `json:"notes"`
}

func (in PaymentInput) trimmed() PaymentInput {
	return PaymentInput{
		PatientID:   trim(in.PatientID),
		VisitID:     trim(in.VisitID),
		Amount:      Text(trim(string(in.Amount))),
		PaymentDate: trim(in.PaymentDate),
		Status:      trim(in.Status),
		Notes:       trim(in.Notes),
	}
}

// maxAmount is the first value NUMERIC(12,2) cannot hold.
var maxAmount = decimal.New(1, 10)

// Payment validates a payment form. Status defaults to pending only when absent.
func (v *Validator) Payment(in PaymentInput) (*model.Payment, error) {
	in = in.trimmed()
	verr := errors.NewValidation("payment")
	v.check(verr, in)

	var amount decimal.Decimal
	if in.Amount != "" {
		d, err := decimal.NewFromString(string(in.Amount))
		switch {
		case err != nil:
			verr.Add("amount", "amount must be a number")
		case !d.IsPositive():
			verr.Add("amount", "amount must be greater than zero")
		case !d.Equal(d.Round(2)):
			verr.Add("amount", "amount must have at most 2 decimal places")
		case d.GreaterThanOrEqual(maxAmount):
			verr.Add("amount", "amount is too large")
		default:
			amount = d
		}
	}

	paymentDate := v.now()
	if in.PaymentDate != "" {
		t, ok := parseDate(in.PaymentDate)
		if !ok {
			verr.Add("payment_date", "payment_date must be a valid date")
		}
		paymentDate = t
	}

	if verr.HasErrors() {
		return nil, verr
	}

	status := model.PaymentStatusPending
	if in.Status != "" {
		status = model.PaymentStatus(in.Status)
	}

	return &model.Payment{
		PatientID:   parseID(in.PatientID),
		VisitID:     parseID(in.VisitID),
		Amount:      amount,
		PaymentDate: paymentDate,
		Status:      status,
		Notes:       model.StringPtr(in.Notes),
	}, nil
}
