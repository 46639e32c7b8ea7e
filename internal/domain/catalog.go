package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Services & Professionals
// ============================================================

// Service is an offering sold by a company.
type Service struct {
	ID          string          `json:"id"`
	CompanyID   string          `json:"companyId"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Duration    int             `json:"duration"` // minutes
	Active      bool            `json:"active"`
	ImageURL    string          `json:"imageUrl,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func (s Service) RecordID() string { return s.ID }
func (s Service) Tenant() string   { return s.CompanyID }
func (s Service) Version() string  { return versionOf(s.UpdatedAt) }

// Validate enforces duration > 0 and price >= 0.
func (s Service) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return &ErrValidation{Field: "name", Message: "Nome do serviço é obrigatório"}
	}
	if s.Price.IsNegative() {
		return &ErrValidation{Field: "price", Message: "Preço não pode ser negativo"}
	}
	if s.Duration <= 0 {
		return &ErrValidation{Field: "duration", Message: "Duração deve ser maior que zero"}
	}
	return nil
}

// Weekdays in schedule order. Keys of WorkingHours must be one of these.
var Weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// WorkingDay is the schedule of one weekday.
type WorkingDay struct {
	Start     string `json:"start"`
	End       string `json:"end"`
	Available bool   `json:"available"`
}

// WorkingHours maps a weekday name to its schedule.
type WorkingHours map[string]WorkingDay

// Validate checks weekday keys and that available days have start < end.
func (wh WorkingHours) Validate() error {
	for day, wd := range wh {
		if !isWeekday(day) {
			return &ErrValidation{Field: "workingHours", Message: "Dia da semana inválido: " + day}
		}
		if !wd.Available {
			continue
		}
		start, err := time.Parse(TimeLayout, wd.Start)
		if err != nil {
			return &ErrValidation{Field: "workingHours." + day, Message: "Horário inicial inválido"}
		}
		end, err := time.Parse(TimeLayout, wd.End)
		if err != nil {
			return &ErrValidation{Field: "workingHours." + day, Message: "Horário final inválido"}
		}
		if !start.Before(end) {
			return &ErrValidation{Field: "workingHours." + day, Message: "Horário inicial deve ser anterior ao final"}
		}
	}
	return nil
}

func isWeekday(day string) bool {
	for _, d := range Weekdays {
		if d == day {
			return true
		}
	}
	return false
}

// Professional is a staff member linked 1:1 to an auth user.
type Professional struct {
	ID           string          `json:"id"`
	CompanyID    string          `json:"companyId"`
	UserID       string          `json:"userId"`
	Name         string          `json:"name"`
	Email        string          `json:"email"`
	Phone        string          `json:"phone"`
	Specialties  []string        `json:"specialties"`
	Commission   decimal.Decimal `json:"commission"` // percentage 0-100
	Active       bool            `json:"active"`
	WorkingHours WorkingHours    `json:"workingHours,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

func (p Professional) RecordID() string { return p.ID }
func (p Professional) Tenant() string   { return p.CompanyID }
func (p Professional) Version() string  { return versionOf(p.UpdatedAt) }

var hundred = decimal.NewFromInt(100)

// Validate enforces commission in [0,100] and a sane schedule.
func (p Professional) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return &ErrValidation{Field: "name", Message: "Nome do profissional é obrigatório"}
	}
	if p.Commission.IsNegative() || p.Commission.GreaterThan(hundred) {
		return &ErrValidation{Field: "commission", Message: "Comissão deve estar entre 0 e 100"}
	}
	return p.WorkingHours.Validate()
}

// NormalizeSpecialties trims, drops blanks and removes duplicates, keeping order.
func NormalizeSpecialties(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}

// CountActive returns how many professionals are active.
func CountActive(pros []Professional) int {
	n := 0
	for _, p := range pros {
		if p.Active {
			n++
		}
	}
	return n
}
