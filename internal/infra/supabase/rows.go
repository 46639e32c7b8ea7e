package supabase

import (
	"github.com/boddenberg/agenda-bfa-go/internal/domain"

	"github.com/shopspring/decimal"
)

// ============================================================
// Remote row shapes (snake_case columns)
// ============================================================
//
// Numeric columns come back from PostgREST as strings or numbers depending on
// the Postgres type; decimal.Decimal accepts both and always writes strings.
// Timestamps travel as RFC 3339 strings.

type companyRow struct {
	ID             string          `json:"id,omitempty"`
	Name           string          `json:"name"`
	Email          string          `json:"email"`
	Phone          string          `json:"phone"`
	Address        string          `json:"address"`
	Plan           string          `json:"plan"`
	Status         string          `json:"status"`
	TrialEndsAt    *string         `json:"trial_ends_at"`
	MonthlyRevenue decimal.Decimal `json:"monthly_revenue"`
	CustomURL      *string         `json:"custom_url"`
	WhatsappNumber string          `json:"whatsapp_number"`
	CreatedAt      string          `json:"created_at,omitempty"`
	UpdatedAt      string          `json:"updated_at,omitempty"`
}

type serviceRow struct {
	ID          string          `json:"id,omitempty"`
	CompanyID   string          `json:"company_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Duration    int             `json:"duration"`
	Active      bool            `json:"active"`
	ImageURL    *string         `json:"image_url"`
	CreatedAt   string          `json:"created_at,omitempty"`
	UpdatedAt   string          `json:"updated_at,omitempty"`
}

type professionalRow struct {
	ID           string              `json:"id,omitempty"`
	CompanyID    string              `json:"company_id"`
	UserID       *string             `json:"user_id"`
	Name         string              `json:"name"`
	Email        string              `json:"email"`
	Phone        string              `json:"phone"`
	Specialties  []string            `json:"specialties"`
	Commission   decimal.Decimal     `json:"commission"`
	Active       bool                `json:"active"`
	WorkingHours domain.WorkingHours `json:"working_hours"`
	CreatedAt    string              `json:"created_at,omitempty"`
	UpdatedAt    string              `json:"updated_at,omitempty"`
}

type clientRow struct {
	ID        string  `json:"id,omitempty"`
	CompanyID string  `json:"company_id"`
	Name      string  `json:"name"`
	Phone     string  `json:"phone"`
	Email     string  `json:"email"`
	Notes     string  `json:"notes"`
	BirthDate *string `json:"birth_date"`
	CreatedAt string  `json:"created_at,omitempty"`
	UpdatedAt string  `json:"updated_at,omitempty"`
}

type appointmentRow struct {
	ID             string          `json:"id,omitempty"`
	CompanyID      string          `json:"company_id"`
	ClientID       *string         `json:"client_id"`
	ClientName     string          `json:"client_name"`
	ClientPhone    string          `json:"client_phone"`
	ProfessionalID string          `json:"professional_id"`
	ServiceID      string          `json:"service_id"`
	Date           string          `json:"date"`
	Time           string          `json:"time"`
	Duration       int             `json:"duration"`
	Price          decimal.Decimal `json:"price"`
	Status         string          `json:"status"`
	Notes          string          `json:"notes"`
	CreatedAt      string          `json:"created_at,omitempty"`
	UpdatedAt      string          `json:"updated_at,omitempty"`
}

type couponRow struct {
	ID            string          `json:"id,omitempty"`
	CompanyID     string          `json:"company_id"`
	Code          string          `json:"code"`
	Description   string          `json:"description"`
	DiscountType  string          `json:"discount_type"`
	DiscountValue decimal.Decimal `json:"discount_value"`
	MaxUses       int             `json:"max_uses"`
	UsedCount     int             `json:"used_count"`
	ExpiresAt     *string         `json:"expires_at"`
	IsActive      bool            `json:"is_active"`
	CreatedAt     string          `json:"created_at,omitempty"`
	UpdatedAt     string          `json:"updated_at,omitempty"`
}

type expenseRow struct {
	ID          string          `json:"id,omitempty"`
	CompanyID   string          `json:"company_id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Date        string          `json:"date"`
	Paid        bool            `json:"paid"`
	CreatedAt   string          `json:"created_at,omitempty"`
	UpdatedAt   string          `json:"updated_at,omitempty"`
}

type invoiceRow struct {
	ID             string          `json:"id,omitempty"`
	CompanyID      string          `json:"company_id"`
	Amount         decimal.Decimal `json:"amount"`
	ReferenceMonth string          `json:"reference_month"`
	DueDate        string          `json:"due_date"`
	Status         string          `json:"status"`
	PaidAt         *string         `json:"paid_at"`
	CreatedAt      string          `json:"created_at,omitempty"`
	UpdatedAt      string          `json:"updated_at,omitempty"`
}

type notificationRow struct {
	ID        string `json:"id,omitempty"`
	CompanyID string `json:"company_id"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Type      string `json:"type"`
	Read      bool   `json:"read"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

type ticketRow struct {
	ID        string `json:"id,omitempty"`
	CompanyID string `json:"company_id"`
	CreatedBy string `json:"created_by"`
	Subject   string `json:"subject"`
	Message   string `json:"message"`
	Priority  string `json:"priority"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

type profileRow struct {
	ID        string  `json:"id"`
	Email     string  `json:"email"`
	FullName  string  `json:"full_name"`
	CompanyID *string `json:"company_id"`
	Role      string  `json:"role"`
}
