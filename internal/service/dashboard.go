package service

import (
	"context"
	"strings"
	"time"

	"github.com/boddenberg/agenda-bfa-go/internal/domain"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var dashboardTracer = otel.Tracer("service/dashboard")

// DashboardService aggregates the company dashboard from the working set.
type DashboardService struct {
	data *TenantData
	now  func() time.Time
}

// NewDashboardService creates the dashboard service.
func NewDashboardService(d Deps) *DashboardService {
	return &DashboardService{data: d.Data, now: d.Now}
}

// Company builds the dashboard of the caller's company.
func (s *DashboardService) Company(ctx context.Context, ident domain.Identity) (domain.CompanyDashboard, error) {
	ctx, span := dashboardTracer.Start(ctx, "DashboardService.Company")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", ident.CompanyID))

	ws, err := s.data.ForIdentity(ctx, ident)
	if err != nil {
		return domain.CompanyDashboard{}, err
	}
	now := s.now()
	dash := companyDashboard(ws, now)
	if c, ok := ws.CompanyRecord(); ok {
		dash.Trial = c.Trial(now)
	}
	return dash, nil
}

// companyDashboard computes today's counts and the month's totals. Revenue
// only counts completed bookings.
func companyDashboard(ws *WorkingSet, now time.Time) domain.CompanyDashboard {
	today := now.Format(domain.DateLayout)
	month := now.Format("2006-01")
	clock := now.Format(domain.TimeLayout)

	dash := domain.CompanyDashboard{
		Date:          today,
		MonthRevenue:  decimal.Zero,
		MonthExpenses: decimal.Zero,
		GeneratedAt:   now.UTC(),
	}

	active := make(map[string]struct{})
	for _, a := range ws.Appointments.All() {
		if a.Date == today && a.Status != domain.AppointmentCancelled {
			dash.AppointmentsToday++
			if a.Status == domain.AppointmentScheduled && a.Time >= clock {
				dash.UpcomingToday++
			}
		}
		if !strings.HasPrefix(a.Date, month) || a.Status != domain.AppointmentCompleted {
			continue
		}
		dash.CompletedThisMonth++
		dash.MonthRevenue = dash.MonthRevenue.Add(a.Price)
		key := a.ClientID
		if key == "" {
			key = domain.NormalizePhone(a.ClientPhone)
		}
		if key != "" {
			active[key] = struct{}{}
		}
	}
	dash.ActiveClients = len(active)

	for _, e := range ws.Expenses.All() {
		if strings.HasPrefix(e.Date, month) {
			dash.MonthExpenses = dash.MonthExpenses.Add(e.Amount)
		}
	}
	dash.MonthProfit = dash.MonthRevenue.Sub(dash.MonthExpenses)
	dash.ActiveProfessionals = domain.CountActive(ws.Professionals.All())
	for _, sv := range ws.Services.All() {
		if sv.Active {
			dash.ActiveServices++
		}
	}
	return dash
}
