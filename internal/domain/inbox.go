package domain

import (
	"strings"
	"time"
)

// ============================================================
// Notifications & Support tickets (append-only)
// ============================================================

// Notification is an operational message for a company. Only the read flag
// ever changes.
type Notification struct {
	ID        string    `json:"id"`
	CompanyID string    `json:"companyId"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"` // info, warning, billing, trial
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (n Notification) RecordID() string { return n.ID }
func (n Notification) Tenant() string   { return n.CompanyID }
func (n Notification) Version() string  { return versionOf(n.UpdatedAt) }

// TicketStatus is the support workflow state.
type TicketStatus string

const (
	TicketOpen       TicketStatus = "open"
	TicketInProgress TicketStatus = "in_progress"
	TicketResolved   TicketStatus = "resolved"
	TicketClosed     TicketStatus = "closed"
)

// Valid reports whether s is a known ticket status.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketOpen, TicketInProgress, TicketResolved, TicketClosed:
		return true
	}
	return false
}

// Ticket is a support request from a company to the platform.
type Ticket struct {
	ID        string       `json:"id"`
	CompanyID string       `json:"companyId"`
	CreatedBy string       `json:"createdBy"`
	Subject   string       `json:"subject"`
	Message   string       `json:"message"`
	Priority  string       `json:"priority"` // low, medium, high
	Status    TicketStatus `json:"status"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

func (t Ticket) RecordID() string { return t.ID }
func (t Ticket) Tenant() string   { return t.CompanyID }
func (t Ticket) Version() string  { return versionOf(t.UpdatedAt) }

// Validate requires subject and message.
func (t Ticket) Validate() error {
	if strings.TrimSpace(t.Subject) == "" {
		return &ErrValidation{Field: "subject", Message: "Assunto é obrigatório"}
	}
	if strings.TrimSpace(t.Message) == "" {
		return &ErrValidation{Field: "message", Message: "Mensagem é obrigatória"}
	}
	if !t.Status.Valid() {
		return &ErrValidation{Field: "status", Message: "Status inválido"}
	}
	return nil
}
