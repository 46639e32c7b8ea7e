package service

import (
	"context"
	"sort"
	"strings"

	"github.com/boddenberg/agenda-bfa-go/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InboxService handles notifications to companies and support tickets from
// them. Both are append-only.
type InboxService struct {
	notifications *Crud[domain.Notification]
	tickets       *Crud[domain.Ticket]
	data          *TenantData
	logger        *zap.Logger
}

// NewInboxService creates the inbox service.
func NewInboxService(d Deps) *InboxService {
	return &InboxService{
		notifications: NewCrud(CrudConfig[domain.Notification]{
			Entity:     entityNotification,
			Store:      d.Stores.Notifications,
			Validate:   validateNotification,
			AppendOnly: true,
		}, d.Gate, d.Toasts, d.Metrics, d.Logger),
		tickets: NewCrud(CrudConfig[domain.Ticket]{
			Entity:     entityTicket,
			Store:      d.Stores.Tickets,
			Validate:   domain.Ticket.Validate,
			AppendOnly: true,
		}, d.Gate, d.Toasts, d.Metrics, d.Logger),
		data:   d.Data,
		logger: d.Logger,
	}
}

func validateNotification(n domain.Notification) error {
	if n.CompanyID == "" {
		return &domain.ErrValidation{Field: "companyId", Message: "Empresa é obrigatória"}
	}
	if strings.TrimSpace(n.Title) == "" {
		return &domain.ErrValidation{Field: "title", Message: "Título é obrigatório"}
	}
	return nil
}

// ============================================================
// Notifications
// ============================================================

// Notifications returns the caller's notifications, newest first.
func (s *InboxService) Notifications(ctx context.Context, ident domain.Identity, unreadOnly bool) ([]domain.Notification, error) {
	if !ident.HasTenant() {
		return nil, &domain.ErrForbidden{Action: "acessar notificações sem empresa vinculada"}
	}
	rows, err := s.notifications.Store().ListByCompany(ctx, ident.CompanyID)
	if err != nil {
		return nil, err
	}
	rows = isolate(s.data, ident.CompanyID, "notifications", rows)
	out := make([]domain.Notification, 0, len(rows))
	for _, n := range rows {
		if unreadOnly && n.Read {
			continue
		}
		out = append(out, n)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// MarkRead flags a notification as read. It is the only change a
// notification accepts.
func (s *InboxService) MarkRead(ctx context.Context, ident domain.Identity, id string) (domain.Notification, error) {
	if !ident.HasTenant() {
		return domain.Notification{}, &domain.ErrForbidden{Action: "acessar notificações sem empresa vinculada"}
	}
	return s.notifications.Update(ctx, nil, ident.CompanyID, id, "", func(n *domain.Notification) error {
		n.Read = true
		return nil
	})
}

// Notify appends a notification to a company.
func (s *InboxService) Notify(ctx context.Context, companyID, title, message, kind string) (domain.Notification, error) {
	if kind == "" {
		kind = "info"
	}
	n := domain.Notification{
		ID:        uuid.New().String(),
		CompanyID: companyID,
		Title:     strings.TrimSpace(title),
		Message:   message,
		Type:      kind,
	}
	return s.notifications.CreateAs(ctx, nil, PlatformScope, n)
}

// ============================================================
// Support tickets
// ============================================================

// OpenTicket files a support request from the caller's company.
func (s *InboxService) OpenTicket(ctx context.Context, ident domain.Identity, t domain.Ticket) (domain.Ticket, error) {
	if !ident.HasTenant() {
		return domain.Ticket{}, &domain.ErrForbidden{Action: "abrir chamado sem empresa vinculada"}
	}
	t.ID = uuid.New().String()
	t.CompanyID = ident.CompanyID
	t.CreatedBy = ident.UserID
	t.Status = domain.TicketOpen
	switch t.Priority {
	case "low", "medium", "high":
	default:
		t.Priority = "medium"
	}
	return s.tickets.Create(ctx, nil, t)
}

// CompanyTickets returns the caller's tickets, newest first.
func (s *InboxService) CompanyTickets(ctx context.Context, ident domain.Identity) ([]domain.Ticket, error) {
	if !ident.HasTenant() {
		return nil, &domain.ErrForbidden{Action: "acessar chamados sem empresa vinculada"}
	}
	rows, err := s.tickets.Store().ListByCompany(ctx, ident.CompanyID)
	if err != nil {
		return nil, err
	}
	return newestTickets(isolate(s.data, ident.CompanyID, "tickets", rows)), nil
}

// AllTickets returns every ticket of the platform. status narrows the list
// when set.
func (s *InboxService) AllTickets(ctx context.Context, status domain.TicketStatus) ([]domain.Ticket, error) {
	rows, err := s.tickets.Store().List(ctx)
	if err != nil {
		return nil, err
	}
	out := rows[:0]
	for _, t := range rows {
		if status == "" || t.Status == status {
			out = append(out, t)
		}
	}
	return newestTickets(out), nil
}

// SetTicketStatus moves a ticket through the support workflow and notifies
// the company.
func (s *InboxService) SetTicketStatus(ctx context.Context, id, version string, status domain.TicketStatus) (domain.Ticket, error) {
	if !status.Valid() {
		return domain.Ticket{}, &domain.ErrValidation{Field: "status", Message: "Status inválido"}
	}
	updated, err := s.tickets.Update(ctx, nil, "", id, version, func(t *domain.Ticket) error {
		t.Status = status
		return nil
	})
	if err != nil {
		return domain.Ticket{}, err
	}
	if status == domain.TicketResolved || status == domain.TicketClosed {
		if _, err := s.Notify(ctx, updated.CompanyID, "Chamado atualizado", "O chamado \""+updated.Subject+"\" foi marcado como "+string(status), "info"); err != nil {
			s.logger.Warn("ticket notification failed",
				zap.String("company_id", updated.CompanyID),
				zap.String("id", id),
				zap.Error(err),
			)
		}
	}
	return updated, nil
}

func newestTickets(list []domain.Ticket) []domain.Ticket {
	sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list
}
