package model

import "github.com/shopspring/decimal"

// DashboardSummary backs the overview cards.
type DashboardSummary struct {
	TotalPatients          int             `json:"total_patients"`
	NewPatientsThisMonth   int             `json:"new_patients_this_month"`
	TodaysAppointments     int             `json:"todays_appointments"`
	VisitsThisMonth        int             `json:"visits_this_month"`
	PrescriptionsThisMonth int             `json:"prescriptions_this_month"`
	PendingPayments        int             `json:"pending_payments"`
	PendingPaymentsTotal   decimal.Decimal `json:"pending_payments_total"`
}
