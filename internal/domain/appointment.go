package domain

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Appointments
// ============================================================

// AppointmentStatus is the lifecycle state of a booking.
type AppointmentStatus string

const (
	AppointmentScheduled AppointmentStatus = "scheduled"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentCancelled AppointmentStatus = "cancelled"
	AppointmentNoShow    AppointmentStatus = "no_show"
)

// Valid reports whether s is a known status.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentScheduled, AppointmentCompleted, AppointmentCancelled, AppointmentNoShow:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s AppointmentStatus) Terminal() bool {
	return s == AppointmentCompleted || s == AppointmentCancelled || s == AppointmentNoShow
}

// CanTransitionTo allows only scheduled -> terminal.
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	if s == next {
		return true
	}
	return s == AppointmentScheduled && next.Terminal()
}

// Appointment links a client, a professional and a service on a date+time.
// Price is a snapshot and may differ from the service's current price.
type Appointment struct {
	ID             string            `json:"id"`
	CompanyID      string            `json:"companyId"`
	ClientID       string            `json:"clientId,omitempty"`
	ClientName     string            `json:"clientName"`
	ClientPhone    string            `json:"clientPhone"`
	ProfessionalID string            `json:"professionalId"`
	ServiceID      string            `json:"serviceId"`
	Date           string            `json:"date"` // YYYY-MM-DD
	Time           string            `json:"time"` // HH:MM
	Duration       int               `json:"duration"`
	Price          decimal.Decimal   `json:"price"`
	Status         AppointmentStatus `json:"status"`
	Notes          string            `json:"notes,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

func (a Appointment) RecordID() string { return a.ID }
func (a Appointment) Tenant() string   { return a.CompanyID }
func (a Appointment) Version() string  { return versionOf(a.UpdatedAt) }

// Start returns the wall-clock start (no timezone is attached to bookings).
func (a Appointment) Start() (time.Time, error) {
	return time.Parse(DateLayout+" "+TimeLayout, a.Date+" "+a.Time)
}

// Validate checks the booking fields that can be verified locally.
func (a Appointment) Validate() error {
	if a.ProfessionalID == "" {
		return &ErrValidation{Field: "professionalId", Message: "Profissional é obrigatório"}
	}
	if a.ServiceID == "" {
		return &ErrValidation{Field: "serviceId", Message: "Serviço é obrigatório"}
	}
	if strings.TrimSpace(a.ClientName) == "" {
		return &ErrValidation{Field: "clientName", Message: "Nome do cliente é obrigatório"}
	}
	if _, err := a.Start(); err != nil {
		return &ErrValidation{Field: "date", Message: "Data ou horário inválido"}
	}
	if a.Duration <= 0 {
		return &ErrValidation{Field: "duration", Message: "Duração deve ser maior que zero"}
	}
	if a.Price.IsNegative() {
		return &ErrValidation{Field: "price", Message: "Preço não pode ser negativo"}
	}
	if !a.Status.Valid() {
		return &ErrValidation{Field: "status", Message: "Status inválido"}
	}
	return nil
}

// Occupies reports whether the booking still holds its slot.
func (a Appointment) Occupies() bool {
	return a.Status == AppointmentScheduled || a.Status == AppointmentCompleted
}

// Overlaps reports whether a and b book the same professional for
// intersecting intervals. Cancelled and no-show bookings never overlap.
func (a Appointment) Overlaps(b Appointment) bool {
	if a.ID != "" && a.ID == b.ID {
		return false
	}
	if a.ProfessionalID != b.ProfessionalID || !a.Occupies() || !b.Occupies() {
		return false
	}
	as, err := a.Start()
	if err != nil {
		return false
	}
	bs, err := b.Start()
	if err != nil {
		return false
	}
	ae := as.Add(time.Duration(a.Duration) * time.Minute)
	be := bs.Add(time.Duration(b.Duration) * time.Minute)
	return as.Before(be) && bs.Before(ae)
}

// Conflicts returns the bookings in existing that overlap a.
func Conflicts(a Appointment, existing []Appointment) []Appointment {
	var out []Appointment
	for _, b := range existing {
		if a.Overlaps(b) {
			out = append(out, b)
		}
	}
	return out
}

// AppointmentFilter narrows an in-memory appointment list. Zero fields match all.
type AppointmentFilter struct {
	From           string // inclusive YYYY-MM-DD
	To             string // inclusive YYYY-MM-DD
	ProfessionalID string
	ClientID       string
	Status         AppointmentStatus
}

// Match reports whether a passes the filter.
func (f AppointmentFilter) Match(a Appointment) bool {
	if f.From != "" && a.Date < f.From {
		return false
	}
	if f.To != "" && a.Date > f.To {
		return false
	}
	if f.ProfessionalID != "" && a.ProfessionalID != f.ProfessionalID {
		return false
	}
	if f.ClientID != "" && a.ClientID != f.ClientID {
		return false
	}
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	return true
}

// FilterAppointments returns the matching bookings sorted by date then time.
func FilterAppointments(in []Appointment, f AppointmentFilter) []Appointment {
	out := make([]Appointment, 0, len(in))
	for _, a := range in {
		if f.Match(a) {
			out = append(out, a)
		}
	}
	SortAppointments(out)
	return out
}

// SortAppointments orders bookings by date, then time, then id.
func SortAppointments(list []Appointment) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Date != list[j].Date {
			return list[i].Date < list[j].Date
		}
		if list[i].Time != list[j].Time {
			return list[i].Time < list[j].Time
		}
		return list[i].ID < list[j].ID
	})
}
