package service

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/boddenberg/agenda-bfa-go/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FinanceService manages company expenses and the platform's invoices.
type FinanceService struct {
	expenses *Crud[domain.Expense]
	invoices *Crud[domain.Invoice]
	data     *TenantData
	now      func() time.Time
	logger   *zap.Logger
}

// InvoiceView adds the status at the time of the request.
type InvoiceView struct {
	domain.Invoice
	EffectiveStatus domain.InvoiceStatus `json:"effectiveStatus"`
}

// NewFinanceService creates the finance service.
func NewFinanceService(d Deps) *FinanceService {
	return &FinanceService{
		expenses: NewCrud(CrudConfig[domain.Expense]{
			Entity:   entityExpense,
			Store:    d.Stores.Expenses,
			Validate: domain.Expense.Validate,
		}, d.Gate, d.Toasts, d.Metrics, d.Logger),
		invoices: NewCrud(CrudConfig[domain.Invoice]{
			Entity:   entityInvoice,
			Store:    d.Stores.Invoices,
			Validate: domain.Invoice.Validate,
		}, d.Gate, d.Toasts, d.Metrics, d.Logger),
		data:   d.Data,
		now:    d.Now,
		logger: d.Logger,
	}
}

// ============================================================
// Expenses (company)
// ============================================================

// ListExpenses returns the company's expenses, newest date first. month
// (YYYY-MM) narrows the list when set.
func (s *FinanceService) ListExpenses(ctx context.Context, ident domain.Identity, month string) ([]domain.Expense, error) {
	ws, err := s.data.ForIdentity(ctx, ident)
	if err != nil {
		return nil, err
	}
	all := ws.Expenses.All()
	out := make([]domain.Expense, 0, len(all))
	for _, e := range all {
		if month == "" || strings.HasPrefix(e.Date, month) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out, nil
}

// CreateExpense records an expense.
func (s *FinanceService) CreateExpense(ctx context.Context, ident domain.Identity, e domain.Expense) (domain.Expense, error) {
	ws, err := s.data.ForIdentity(ctx, ident)
	if err != nil {
		return domain.Expense{}, err
	}
	e.ID = uuid.New().String()
	e.CompanyID = ident.CompanyID
	if e.Date == "" {
		e.Date = s.now().Format(domain.DateLayout)
	}
	return s.expenses.Create(ctx, ws.Expenses, e)
}

// UpdateExpense patches an expense.
func (s *FinanceService) UpdateExpense(ctx context.Context, ident domain.Identity, id, version string, patch json.RawMessage) (domain.Expense, error) {
	ws, err := s.data.ForIdentity(ctx, ident)
	if err != nil {
		return domain.Expense{}, err
	}
	return s.expenses.Update(ctx, ws.Expenses, ident.CompanyID, id, version, mergePatch[domain.Expense](patch, PatchPolicy{}, nil))
}

// DeleteExpense removes an expense after confirmation.
func (s *FinanceService) DeleteExpense(ctx context.Context, ident domain.Identity, id string) (bool, error) {
	ws, err := s.data.ForIdentity(ctx, ident)
	if err != nil {
		return false, err
	}
	name := ""
	if e, ok := ws.Expenses.Find(id); ok {
		name = "a despesa " + e.Description
	}
	return s.expenses.Remove(ctx, ws.Expenses, ident.CompanyID, id, name)
}

// ============================================================
// Invoices
// ============================================================

// CompanyInvoices returns the caller's invoices, newest reference month first.
func (s *FinanceService) CompanyInvoices(ctx context.Context, ident domain.Identity) ([]InvoiceView, error) {
	if !ident.HasTenant() {
		return nil, &domain.ErrForbidden{Action: "acessar faturas sem empresa vinculada"}
	}
	rows, err := s.invoices.Store().ListByCompany(ctx, ident.CompanyID)
	if err != nil {
		return nil, err
	}
	return s.views(isolate(s.data, ident.CompanyID, "invoices", rows)), nil
}

// AllInvoices returns every invoice of the platform. companyID narrows the
// list when set.
func (s *FinanceService) AllInvoices(ctx context.Context, companyID string) ([]InvoiceView, error) {
	var (
		rows []domain.Invoice
		err  error
	)
	if companyID != "" {
		rows, err = s.invoices.Store().ListByCompany(ctx, companyID)
	} else {
		rows, err = s.invoices.Store().List(ctx)
	}
	if err != nil {
		return nil, err
	}
	return s.views(rows), nil
}

// CreateInvoice issues an invoice to a company.
func (s *FinanceService) CreateInvoice(ctx context.Context, inv domain.Invoice) (InvoiceView, error) {
	inv.ID = uuid.New().String()
	if inv.Status == "" {
		inv.Status = domain.InvoicePending
	}
	if inv.Status == domain.InvoicePaid && inv.PaidAt == nil {
		paid := s.now().UTC()
		inv.PaidAt = &paid
	}
	created, err := s.invoices.CreateAs(ctx, nil, PlatformScope, inv)
	if err != nil {
		return InvoiceView{}, err
	}
	return s.view(created), nil
}

// UpdateInvoice patches an invoice. Marking it paid stamps paidAt.
func (s *FinanceService) UpdateInvoice(ctx context.Context, id, version string, patch json.RawMessage) (InvoiceView, error) {
	updated, err := s.invoices.Update(ctx, nil, "", id, version,
		mergePatch(patch, PatchPolicy{}, func(_, next *domain.Invoice) error {
			switch {
			case next.Status == domain.InvoicePaid && next.PaidAt == nil:
				paid := s.now().UTC()
				next.PaidAt = &paid
			case next.Status != domain.InvoicePaid:
				next.PaidAt = nil
			}
			return nil
		}))
	if err != nil {
		return InvoiceView{}, err
	}
	return s.view(updated), nil
}

// DeleteInvoice removes an invoice after confirmation.
func (s *FinanceService) DeleteInvoice(ctx context.Context, id string) (bool, error) {
	return s.invoices.Remove(ctx, nil, "", id, "")
}

func (s *FinanceService) view(inv domain.Invoice) InvoiceView {
	return InvoiceView{Invoice: inv, EffectiveStatus: inv.Effective(s.now())}
}

func (s *FinanceService) views(rows []domain.Invoice) []InvoiceView {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].ReferenceMonth != rows[j].ReferenceMonth {
			return rows[i].ReferenceMonth > rows[j].ReferenceMonth
		}
		return rows[i].DueDate > rows[j].DueDate
	})
	out := make([]InvoiceView, 0, len(rows))
	for _, inv := range rows {
		out = append(out, s.view(inv))
	}
	return out
}
