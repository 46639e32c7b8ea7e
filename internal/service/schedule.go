package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/boddenberg/agenda-bfa-go/internal/domain"
	"github.com/boddenberg/agenda-bfa-go/internal/port"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var scheduleTracer = otel.Tracer("service/schedule")

// ScheduleService manages the appointments of a company.
type ScheduleService struct {
	crud         *Crud[domain.Appointment]
	data         *TenantData
	toasts       port.Notifier
	rejectDouble bool
	logger       *zap.Logger
}

// Booking is a created or updated appointment with the bookings it overlaps.
type Booking struct {
	Appointment domain.Appointment
	Conflicts   []domain.Appointment
}

// NewScheduleService creates the schedule service.
func NewScheduleService(d Deps) *ScheduleService {
	return &ScheduleService{
		crud: NewCrud(CrudConfig[domain.Appointment]{
			Entity:   entityAppointment,
			Store:    d.Stores.Appointments,
			Validate: domain.Appointment.Validate,
		}, d.Gate, d.Toasts, d.Metrics, d.Logger),
		data:         d.Data,
		toasts:       d.Toasts,
		rejectDouble: d.Policy.RejectDoubleBooking,
		logger:       d.Logger,
	}
}

// List returns the bookings matching f, sorted by date and time. A
// professional only ever sees their own bookings.
func (s *ScheduleService) List(ctx context.Context, ident domain.Identity, f domain.AppointmentFilter) ([]domain.Appointment, error) {
	ws, err := s.data.ForIdentity(ctx, ident)
	if err != nil {
		return nil, err
	}
	if ident.Role == domain.RoleProfessional {
		me, err := ownProfessional(ws, ident)
		if err != nil {
			return nil, err
		}
		f.ProfessionalID = me.ID
	}
	return domain.FilterAppointments(ws.Appointments.All(), f), nil
}

// Create books an appointment. Duration and price are snapshotted from the
// service when not given, and the client is linked by phone. Overlapping
// bookings are rejected only when double booking is disabled; otherwise
// they are reported alongside the booking.
func (s *ScheduleService) Create(ctx context.Context, ident domain.Identity, a domain.Appointment) (Booking, error) {
	ctx, span := scheduleTracer.Start(ctx, "ScheduleService.Create")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", ident.CompanyID))

	ws, err := s.data.ForIdentity(ctx, ident)
	if err != nil {
		return Booking{}, err
	}
	scope := tenantScope(ident.CompanyID)
	title := "Erro ao criar agendamento"

	a.ID = uuid.New().String()
	a.CompanyID = ident.CompanyID
	a.ClientName = strings.TrimSpace(a.ClientName)
	if a.Status == "" {
		a.Status = domain.AppointmentScheduled
	}
	if ident.Role == domain.RoleProfessional {
		me, err := ownProfessional(ws, ident)
		if err != nil {
			return Booking{}, err
		}
		a.ProfessionalID = me.ID
	}
	if err := s.resolveRefs(ws, &a, true); err != nil {
		s.toasts.Error(scope, title, err.Error())
		return Booking{}, err
	}

	conflicts := domain.Conflicts(a, ws.Appointments.All())
	if err := s.checkConflicts(scope, title, a, conflicts); err != nil {
		return Booking{}, err
	}

	created, err := s.crud.Create(ctx, ws.Appointments, a)
	if err != nil {
		return Booking{}, err
	}
	return Booking{Appointment: created, Conflicts: conflicts}, nil
}

// Update patches an appointment. Status changes follow the booking
// lifecycle and the overlap check runs again on the result.
func (s *ScheduleService) Update(ctx context.Context, ident domain.Identity, id, version string, patch json.RawMessage) (Booking, error) {
	ws, err := s.data.ForIdentity(ctx, ident)
	if err != nil {
		return Booking{}, err
	}
	if err := s.ownsAppointment(ws, ident, id); err != nil {
		return Booking{}, err
	}
	scope := tenantScope(ident.CompanyID)

	var conflicts []domain.Appointment
	policy := PatchPolicy{Protected: []string{"clientId"}}
	if ident.Role == domain.RoleProfessional {
		policy.Protected = append(policy.Protected, "professionalId")
	}
	updated, err := s.crud.Update(ctx, ws.Appointments, ident.CompanyID, id, version,
		mergePatch(patch, policy, func(prev, next *domain.Appointment) error {
			if !prev.Status.CanTransitionTo(next.Status) {
				return &domain.ErrInvalidTransition{Entity: "agendamento", From: string(prev.Status), To: string(next.Status)}
			}
			if next.ServiceID != prev.ServiceID {
				// A new service brings its own duration and price.
				next.Duration, next.Price = 0, decimal.Zero
			}
			if err := s.resolveRefs(ws, next, next.ServiceID != prev.ServiceID); err != nil {
				return err
			}
			if next.ClientPhone != prev.ClientPhone {
				next.ClientID = ""
				s.linkClient(ws, next)
			}
			conflicts = domain.Conflicts(*next, ws.Appointments.All())
			return s.checkConflicts(scope, "", *next, conflicts)
		}))
	if err != nil {
		return Booking{}, err
	}
	return Booking{Appointment: updated, Conflicts: conflicts}, nil
}

// SetStatus moves an appointment to status.
func (s *ScheduleService) SetStatus(ctx context.Context, ident domain.Identity, id, version string, status domain.AppointmentStatus) (domain.Appointment, error) {
	if !status.Valid() {
		return domain.Appointment{}, &domain.ErrValidation{Field: "status", Message: "Status inválido"}
	}
	ws, err := s.data.ForIdentity(ctx, ident)
	if err != nil {
		return domain.Appointment{}, err
	}
	if err := s.ownsAppointment(ws, ident, id); err != nil {
		return domain.Appointment{}, err
	}
	return s.crud.Update(ctx, ws.Appointments, ident.CompanyID, id, version, func(a *domain.Appointment) error {
		if !a.Status.CanTransitionTo(status) {
			return &domain.ErrInvalidTransition{Entity: "agendamento", From: string(a.Status), To: string(status)}
		}
		a.Status = status
		return nil
	})
}

// Delete removes an appointment after confirmation.
func (s *ScheduleService) Delete(ctx context.Context, ident domain.Identity, id string) (bool, error) {
	ws, err := s.data.ForIdentity(ctx, ident)
	if err != nil {
		return false, err
	}
	name := ""
	if a, ok := ws.Appointments.Find(id); ok {
		name = fmt.Sprintf("o agendamento de %s em %s às %s", a.ClientName, a.Date, a.Time)
	}
	return s.crud.Remove(ctx, ws.Appointments, ident.CompanyID, id, name)
}

// resolveRefs checks that the professional and the service exist in the
// tenant and fills the duration and price snapshot when requested.
func (s *ScheduleService) resolveRefs(ws *WorkingSet, a *domain.Appointment, snapshot bool) error {
	if _, ok := ws.Professionals.Find(a.ProfessionalID); !ok {
		return &domain.ErrValidation{Field: "professionalId", Message: "Profissional não encontrado"}
	}
	sv, ok := ws.Services.Find(a.ServiceID)
	if !ok {
		return &domain.ErrValidation{Field: "serviceId", Message: "Serviço não encontrado"}
	}
	if snapshot {
		if a.Duration <= 0 {
			a.Duration = sv.Duration
		}
		if a.Price.IsZero() {
			a.Price = sv.Price
		}
	}
	if a.ClientID == "" {
		s.linkClient(ws, a)
	}
	return nil
}

// linkClient sets ClientID from the client with the same phone, if any.
func (s *ScheduleService) linkClient(ws *WorkingSet, a *domain.Appointment) {
	phone := domain.NormalizePhone(a.ClientPhone)
	if phone == "" {
		return
	}
	for _, c := range ws.Clients.All() {
		if domain.NormalizePhone(c.Phone) == phone {
			a.ClientID = c.ID
			return
		}
	}
}

func (s *ScheduleService) checkConflicts(scope, title string, a domain.Appointment, conflicts []domain.Appointment) error {
	if len(conflicts) == 0 {
		return nil
	}
	if !s.rejectDouble {
		s.logger.Warn("appointment overlaps existing bookings",
			zap.String("company_id", a.CompanyID),
			zap.String("professional_id", a.ProfessionalID),
			zap.String("date", a.Date),
			zap.String("time", a.Time),
			zap.Int("conflicts", len(conflicts)),
		)
		return nil
	}
	err := &domain.ErrConflict{
		Kind:    domain.ConflictOverlap,
		Message: fmt.Sprintf("Horário indisponível: o profissional já tem %d agendamento(s) neste intervalo", len(conflicts)),
	}
	if title != "" {
		s.toasts.Error(scope, title, err.Error())
	}
	return err
}

// ownsAppointment restricts professionals to their own bookings.
func (s *ScheduleService) ownsAppointment(ws *WorkingSet, ident domain.Identity, id string) error {
	if ident.Role != domain.RoleProfessional {
		return nil
	}
	me, err := ownProfessional(ws, ident)
	if err != nil {
		return err
	}
	a, ok := ws.Appointments.Find(id)
	if !ok || a.ProfessionalID != me.ID {
		return &domain.ErrNotFound{Resource: "agendamento", ID: id}
	}
	return nil
}
