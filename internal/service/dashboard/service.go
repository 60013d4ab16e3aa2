package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

type Service struct {
	gw  *repository.Gateway
	now func() time.Time
}

func NewService(gw *repository.Gateway) *Service {
	return &Service{gw: gw, now: time.Now}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Summary computes the overview totals. Months and days are taken in the clock's location.
func (s *Service) Summary(ctx context.Context) (*model.DashboardSummary, error) {
	now := s.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	inMonth := func(t time.Time) bool { return !t.Before(monthStart) && t.Before(monthStart.AddDate(0, 1, 0)) }

	patients, err := s.gw.Patients.SelectAll(ctx, repository.OrderBy{})
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	appointments, err := s.gw.Appointments.SelectAll(ctx, repository.OrderBy{})
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	visits, err := s.gw.Visits.SelectAll(ctx, repository.OrderBy{})
	if err != nil {
		return nil, fmt.Errorf("failed to list visits: %w", err)
	}
	prescriptions, err := s.gw.Prescriptions.SelectAll(ctx, repository.OrderBy{})
	if err != nil {
		return nil, fmt.Errorf("failed to list prescriptions: %w", err)
	}
	payments, err := s.gw.Payments.SelectAll(ctx, repository.OrderBy{})
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}

	pending := lo.Filter(payments, func(p *model.Payment, _ int) bool {
		return p.Status == model.PaymentStatusPending
	})

	return &model.DashboardSummary{
		TotalPatients: len(patients),
		NewPatientsThisMonth: lo.CountBy(patients, func(p *model.Patient) bool {
			return inMonth(p.CreatedAt)
		}),
		TodaysAppointments: lo.CountBy(appointments, func(a *model.Appointment) bool {
			return !a.AppointmentDate.Before(dayStart) && a.AppointmentDate.Before(dayEnd)
		}),
		VisitsThisMonth: lo.CountBy(visits, func(v *model.Visit) bool {
			return inMonth(v.VisitDate)
		}),
		PrescriptionsThisMonth: lo.CountBy(prescriptions, func(rx *model.Prescription) bool {
			return inMonth(rx.CreatedAt)
		}),
		PendingPayments: len(pending),
		PendingPaymentsTotal: lo.Reduce(pending, func(sum decimal.Decimal, p *model.Payment, _ int) decimal.Decimal {
			return sum.Add(p.Amount)
		}, decimal.Zero),
	}, nil
}
