package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Expenses (company) & Invoices (platform billing)
// ============================================================

// Expense is an operating cost recorded by a company.
type Expense struct {
	ID          string          `json:"id"`
	CompanyID   string          `json:"companyId"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Date        string          `json:"date"`
	Paid        bool            `json:"paid"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func (e Expense) RecordID() string { return e.ID }
func (e Expense) Tenant() string   { return e.CompanyID }
func (e Expense) Version() string  { return versionOf(e.UpdatedAt) }

// Validate requires a description, a non-negative amount and a valid date.
func (e Expense) Validate() error {
	if strings.TrimSpace(e.Description) == "" {
		return &ErrValidation{Field: "description", Message: "Descrição é obrigatória"}
	}
	if e.Amount.IsNegative() {
		return &ErrValidation{Field: "amount", Message: "Valor não pode ser negativo"}
	}
	if _, err := time.Parse(DateLayout, e.Date); err != nil {
		return &ErrValidation{Field: "date", Message: "Data inválida"}
	}
	return nil
}

// InvoiceStatus is the payment state of a platform invoice.
type InvoiceStatus string

const (
	InvoicePending   InvoiceStatus = "pending"
	InvoicePaid      InvoiceStatus = "paid"
	InvoiceOverdue   InvoiceStatus = "overdue"
	InvoiceCancelled InvoiceStatus = "cancelled"
)

// Invoice is a subscription charge issued by the platform to a company.
type Invoice struct {
	ID             string          `json:"id"`
	CompanyID      string          `json:"companyId"`
	Amount         decimal.Decimal `json:"amount"`
	ReferenceMonth string          `json:"referenceMonth"` // YYYY-MM
	DueDate        string          `json:"dueDate"`
	Status         InvoiceStatus   `json:"status"`
	PaidAt         *time.Time      `json:"paidAt,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

func (i Invoice) RecordID() string { return i.ID }
func (i Invoice) Tenant() string   { return i.CompanyID }
func (i Invoice) Version() string  { return versionOf(i.UpdatedAt) }

// Validate checks amount, dates and status.
func (i Invoice) Validate() error {
	if i.CompanyID == "" {
		return &ErrValidation{Field: "companyId", Message: "Empresa é obrigatória"}
	}
	if !i.Amount.IsPositive() {
		return &ErrValidation{Field: "amount", Message: "Valor deve ser maior que zero"}
	}
	if _, err := time.Parse("2006-01", i.ReferenceMonth); err != nil {
		return &ErrValidation{Field: "referenceMonth", Message: "Mês de referência inválido"}
	}
	if _, err := time.Parse(DateLayout, i.DueDate); err != nil {
		return &ErrValidation{Field: "dueDate", Message: "Vencimento inválido"}
	}
	switch i.Status {
	case InvoicePending, InvoicePaid, InvoiceOverdue, InvoiceCancelled:
	default:
		return &ErrValidation{Field: "status", Message: "Status inválido"}
	}
	return nil
}

// Effective returns the status at now: a pending invoice past due is overdue.
func (i Invoice) Effective(now time.Time) InvoiceStatus {
	if i.Status != InvoicePending {
		return i.Status
	}
	due, err := time.Parse(DateLayout, i.DueDate)
	if err == nil && now.After(due.Add(24*time.Hour)) {
		return InvoiceOverdue
	}
	return InvoicePending
}
