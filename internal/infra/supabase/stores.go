package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/boddenberg/agenda-bfa-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// Stores groups the typed tables of the scheduling schema.
type Stores struct {
	Companies     *Table[domain.Company, companyRow]
	Services      *Table[domain.Service, serviceRow]
	Professionals *Table[domain.Professional, professionalRow]
	Clients       *Table[domain.Client, clientRow]
	Appointments  *Table[domain.Appointment, appointmentRow]
	Coupons       *Table[domain.Coupon, couponRow]
	Expenses      *Table[domain.Expense, expenseRow]
	Invoices      *Table[domain.Invoice, invoiceRow]
	Notifications *Table[domain.Notification, notificationRow]
	Tickets       *Table[domain.Ticket, ticketRow]
}

// NewStores binds every table to c.
func NewStores(c *Client) *Stores {
	return &Stores{
		Companies:     newTable(c, "companies", "empresa", "id", companyFromRow, companyToRow),
		Services:      newTable(c, "services", "serviço", "company_id", serviceFromRow, serviceToRow),
		Professionals: newTable(c, "professionals", "profissional", "company_id", professionalFromRow, professionalToRow),
		Clients:       newTable(c, "clients", "cliente", "company_id", clientFromRow, clientToRow),
		Appointments:  newTable(c, "appointments", "agendamento", "company_id", appointmentFromRow, appointmentToRow),
		Coupons:       newTable(c, "coupons", "cupom", "company_id", couponFromRow, couponToRow),
		Expenses:      newTable(c, "expenses", "despesa", "company_id", expenseFromRow, expenseToRow),
		Invoices:      newTable(c, "invoices", "fatura", "company_id", invoiceFromRow, invoiceToRow),
		Notifications: newTable(c, "notifications", "notificação", "company_id", notificationFromRow, notificationToRow),
		Tickets:       newTable(c, "tickets", "chamado", "company_id", ticketFromRow, ticketToRow),
	}
}

// ============================================================
// Profiles (auth user -> company/role): implements port.ProfileStore
// ============================================================

// GetProfile resolves the identity row of an auth user.
func (c *Client) GetProfile(ctx context.Context, userID string) (*domain.Identity, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetProfile")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	var rows []profileRow
	err := c.read(ctx, func() error {
		body, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("profiles?id=eq.%s&select=*&limit=1", url.QueryEscape(userID)))
		if err != nil {
			return err
		}
		if len(body) == 0 {
			rows = nil
			return nil
		}
		return json.Unmarshal(body, &rows)
	})
	if err != nil {
		return nil, classify(err, "perfil", userID)
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "perfil", ID: userID}
	}
	ident := identityFromRow(rows[0])
	return &ident, nil
}

// LinkProfile binds an auth user to a company with a role.
func (c *Client) LinkProfile(ctx context.Context, userID, companyID string, role domain.Role) error {
	ctx, span := tracer.Start(ctx, "Supabase.LinkProfile")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID), attribute.String("company.id", companyID))

	data := map[string]any{
		"company_id": companyID,
		"role":       string(role),
	}
	err := c.write(ctx, func() error {
		_, err := c.doPatch(ctx, fmt.Sprintf("profiles?id=eq.%s", url.QueryEscape(userID)), data)
		return err
	})
	return classify(err, "perfil", userID)
}

// ============================================================
// Edge Functions: implements port.ProfessionalProvisioner
// ============================================================

// CreateProfessionalUser invokes the create-professional function, which
// creates the auth user, the profile and the professional row.
func (c *Client) CreateProfessionalUser(ctx context.Context, invite domain.ProfessionalInvite) (*domain.ProfessionalInviteResult, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateProfessionalUser")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", invite.CompanyID))

	var result domain.ProfessionalInviteResult
	err := c.write(ctx, func() error {
		body, err := c.doFunction(ctx, "create-professional", invite)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(body, &result); err != nil {
			return fmt.Errorf("decode create-professional: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, classify(err, "profissional", "")
	}
	if !result.Success {
		msg := result.Error
		if msg == "" {
			msg = "falha ao criar usuário do profissional"
		}
		return nil, &domain.ErrExternalService{Service: "supabase/create-professional", Err: errors.New(msg)}
	}
	return &result, nil
}
