package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Client is an end customer of a company, keyed by phone within the tenant.
type Client struct {
	ID        string    `json:"id"`
	CompanyID string    `json:"companyId"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	BirthDate string    `json:"birthDate,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (c Client) RecordID() string { return c.ID }
func (c Client) Tenant() string   { return c.CompanyID }
func (c Client) Version() string  { return versionOf(c.UpdatedAt) }

// Validate requires a name and a phone with at least 8 digits.
func (c Client) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return &ErrValidation{Field: "name", Message: "Nome do cliente é obrigatório"}
	}
	if len(NormalizePhone(c.Phone)) < 8 {
		return &ErrValidation{Field: "phone", Message: "Telefone inválido"}
	}
	return nil
}

// NormalizePhone keeps only the digits of a phone number.
func NormalizePhone(phone string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
}

// ClientStats are derived from appointment history and never stored.
type ClientStats struct {
	TotalAppointments int             `json:"totalAppointments"`
	LastVisit         string          `json:"lastVisit,omitempty"`
	TotalSpent        decimal.Decimal `json:"totalSpent"`
}

// ClientWithStats is the client list item returned to the dashboard.
type ClientWithStats struct {
	Client
	ClientStats
}

// belongsTo matches by client id, falling back to the phone key.
func (c Client) belongsTo(a Appointment) bool {
	if a.ClientID != "" {
		return a.ClientID == c.ID
	}
	p := NormalizePhone(a.ClientPhone)
	return p != "" && p == NormalizePhone(c.Phone)
}

// ComputeClientStats counts non-cancelled bookings; last visit and spend
// only consider completed ones.
func ComputeClientStats(c Client, appointments []Appointment) ClientStats {
	stats := ClientStats{TotalSpent: decimal.Zero}
	for _, a := range appointments {
		if !c.belongsTo(a) || a.Status == AppointmentCancelled {
			continue
		}
		stats.TotalAppointments++
		if a.Status != AppointmentCompleted {
			continue
		}
		stats.TotalSpent = stats.TotalSpent.Add(a.Price)
		if a.Date > stats.LastVisit {
			stats.LastVisit = a.Date
		}
	}
	return stats
}
