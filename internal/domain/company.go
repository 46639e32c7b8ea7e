package domain

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Company (tenant root)
// ============================================================

// Plan is the subscription plan of a company.
type Plan string

const (
	PlanBasic        Plan = "Basic"
	PlanProfessional Plan = "Professional"
	PlanEnterprise   Plan = "Enterprise"
)

// Valid reports whether p is a known plan.
func (p Plan) Valid() bool {
	switch p {
	case PlanBasic, PlanProfessional, PlanEnterprise:
		return true
	}
	return false
}

// SeatLimit returns the maximum number of active professionals, 0 meaning unlimited.
func (p Plan) SeatLimit() int {
	switch p {
	case PlanBasic:
		return 1
	case PlanProfessional:
		return 5
	default:
		return 0
	}
}

// CompanyStatus is the soft lifecycle state of a company.
type CompanyStatus string

const (
	CompanyTrial     CompanyStatus = "trial"
	CompanyActive    CompanyStatus = "active"
	CompanySuspended CompanyStatus = "suspended"
	CompanyCancelled CompanyStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s CompanyStatus) Valid() bool {
	switch s {
	case CompanyTrial, CompanyActive, CompanySuspended, CompanyCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether a company may move from s to next.
// Cancelled is terminal; nothing goes back to trial.
func (s CompanyStatus) CanTransitionTo(next CompanyStatus) bool {
	if s == next {
		return true
	}
	switch s {
	case CompanyTrial:
		return next == CompanyActive || next == CompanySuspended || next == CompanyCancelled
	case CompanyActive:
		return next == CompanySuspended || next == CompanyCancelled
	case CompanySuspended:
		return next == CompanyActive || next == CompanyCancelled
	}
	return false
}

// Company is the tenant root.
type Company struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Email          string          `json:"email"`
	Phone          string          `json:"phone"`
	Address        string          `json:"address"`
	Plan           Plan            `json:"plan"`
	Status         CompanyStatus   `json:"status"`
	TrialEndsAt    *time.Time      `json:"trialEndsAt"`
	MonthlyRevenue decimal.Decimal `json:"monthlyRevenue"`
	CustomURL      string          `json:"customUrl"`
	WhatsappNumber string          `json:"whatsappNumber"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

func (c Company) RecordID() string { return c.ID }
func (c Company) Tenant() string   { return c.ID }
func (c Company) Version() string  { return versionOf(c.UpdatedAt) }

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// NormalizeSlug lower-cases and trims a custom URL.
func NormalizeSlug(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Validate checks the company invariants that can be verified locally.
// customUrl uniqueness needs the full company list and is checked by the service.
func (c Company) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return &ErrValidation{Field: "name", Message: "Nome da empresa é obrigatório"}
	}
	if !c.Plan.Valid() {
		return &ErrValidation{Field: "plan", Message: "Plano inválido"}
	}
	if !c.Status.Valid() {
		return &ErrValidation{Field: "status", Message: "Status inválido"}
	}
	if c.Status == CompanyTrial && c.TrialEndsAt == nil {
		return &ErrValidation{Field: "trialEndsAt", Message: "Empresas em teste precisam de data de término"}
	}
	if c.CustomURL != "" && !slugPattern.MatchString(c.CustomURL) {
		return &ErrValidation{Field: "customUrl", Message: "URL personalizada deve conter apenas letras minúsculas, números e hífens"}
	}
	if c.MonthlyRevenue.IsNegative() {
		return &ErrValidation{Field: "monthlyRevenue", Message: "Receita mensal não pode ser negativa"}
	}
	return nil
}

// TrialState classifies a company for the trial-status view.
type TrialState string

const (
	TrialActive  TrialState = "trial_active"
	TrialExpired TrialState = "trial_expired"
	NotTrial     TrialState = "not_trial"
)

// TrialStatus is returned by GET /v1/company/trial.
type TrialStatus struct {
	Status        CompanyStatus `json:"status"`
	State         TrialState    `json:"state"`
	TrialDaysLeft int           `json:"trialDaysLeft"`
	TrialEndsAt   *time.Time    `json:"trialEndsAt,omitempty"`
}

// Trial computes the trial view at now. Partial days round up, so a trial
// ending in 36h has 2 days left.
func (c Company) Trial(now time.Time) TrialStatus {
	ts := TrialStatus{Status: c.Status, State: NotTrial, TrialEndsAt: c.TrialEndsAt}
	if c.Status != CompanyTrial || c.TrialEndsAt == nil {
		return ts
	}
	remaining := c.TrialEndsAt.Sub(now)
	if remaining <= 0 {
		ts.State = TrialExpired
		return ts
	}
	ts.State = TrialActive
	ts.TrialDaysLeft = int(math.Ceil(remaining.Hours() / 24))
	return ts
}

// BookingPage is the public view served at /agendar/{customUrl}.
type BookingPage struct {
	Company       PublicCompany  `json:"company"`
	Services      []Service      `json:"services"`
	Professionals []Professional `json:"professionals"`
}

// PublicCompany is the subset of a company exposed to end customers.
type PublicCompany struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Phone          string `json:"phone"`
	Address        string `json:"address"`
	CustomURL      string `json:"customUrl"`
	WhatsappNumber string `json:"whatsappNumber"`
}
