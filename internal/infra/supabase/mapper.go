package supabase

import (
	"strings"
	"time"

	"github.com/boddenberg/agenda-bfa-go/internal/domain"
)

// ============================================================
// Field mapper: remote rows <-> domain entities
// ============================================================
//
// The mapper only coerces types. Missing optional values default to their
// zero value (empty slices for arrays); business validation lives in domain.

func companyFromRow(r companyRow) domain.Company {
	return domain.Company{
		ID:             r.ID,
		Name:           r.Name,
		Email:          r.Email,
		Phone:          r.Phone,
		Address:        r.Address,
		Plan:           domain.Plan(r.Plan),
		Status:         domain.CompanyStatus(r.Status),
		TrialEndsAt:    parseTimePtr(r.TrialEndsAt),
		MonthlyRevenue: r.MonthlyRevenue,
		CustomURL:      deref(r.CustomURL),
		WhatsappNumber: r.WhatsappNumber,
		CreatedAt:      parseTime(r.CreatedAt),
		UpdatedAt:      parseTime(r.UpdatedAt),
	}
}

func companyToRow(c domain.Company) companyRow {
	return companyRow{
		ID:             c.ID,
		Name:           c.Name,
		Email:          c.Email,
		Phone:          c.Phone,
		Address:        c.Address,
		Plan:           string(c.Plan),
		Status:         string(c.Status),
		TrialEndsAt:    formatTimePtr(c.TrialEndsAt),
		MonthlyRevenue: c.MonthlyRevenue,
		CustomURL:      strPtr(c.CustomURL),
		WhatsappNumber: c.WhatsappNumber,
		CreatedAt:      formatTime(c.CreatedAt),
		UpdatedAt:      formatTime(c.UpdatedAt),
	}
}

func serviceFromRow(r serviceRow) domain.Service {
	return domain.Service{
		ID:          r.ID,
		CompanyID:   r.CompanyID,
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		Duration:    r.Duration,
		Active:      r.Active,
		ImageURL:    deref(r.ImageURL),
		CreatedAt:   parseTime(r.CreatedAt),
		UpdatedAt:   parseTime(r.UpdatedAt),
	}
}

func serviceToRow(s domain.Service) serviceRow {
	return serviceRow{
		ID:          s.ID,
		CompanyID:   s.CompanyID,
		Name:        s.Name,
		Description: s.Description,
		Price:       s.Price,
		Duration:    s.Duration,
		Active:      s.Active,
		ImageURL:    strPtr(s.ImageURL),
		CreatedAt:   formatTime(s.CreatedAt),
		UpdatedAt:   formatTime(s.UpdatedAt),
	}
}

func professionalFromRow(r professionalRow) domain.Professional {
	specialties := r.Specialties
	if specialties == nil {
		specialties = []string{}
	}
	return domain.Professional{
		ID:           r.ID,
		CompanyID:    r.CompanyID,
		UserID:       deref(r.UserID),
		Name:         r.Name,
		Email:        r.Email,
		Phone:        r.Phone,
		Specialties:  specialties,
		Commission:   r.Commission,
		Active:       r.Active,
		WorkingHours: r.WorkingHours,
		CreatedAt:    parseTime(r.CreatedAt),
		UpdatedAt:    parseTime(r.UpdatedAt),
	}
}

func professionalToRow(p domain.Professional) professionalRow {
	specialties := p.Specialties
	if specialties == nil {
		specialties = []string{}
	}
	return professionalRow{
		ID:           p.ID,
		CompanyID:    p.CompanyID,
		UserID:       strPtr(p.UserID),
		Name:         p.Name,
		Email:        p.Email,
		Phone:        p.Phone,
		Specialties:  specialties,
		Commission:   p.Commission,
		Active:       p.Active,
		WorkingHours: p.WorkingHours,
		CreatedAt:    formatTime(p.CreatedAt),
		UpdatedAt:    formatTime(p.UpdatedAt),
	}
}

func clientFromRow(r clientRow) domain.Client {
	return domain.Client{
		ID:        r.ID,
		CompanyID: r.CompanyID,
		Name:      r.Name,
		Phone:     r.Phone,
		Email:     r.Email,
		Notes:     r.Notes,
		BirthDate: deref(r.BirthDate),
		CreatedAt: parseTime(r.CreatedAt),
		UpdatedAt: parseTime(r.UpdatedAt),
	}
}

func clientToRow(c domain.Client) clientRow {
	return clientRow{
		ID:        c.ID,
		CompanyID: c.CompanyID,
		Name:      c.Name,
		Phone:     c.Phone,
		Email:     c.Email,
		Notes:     c.Notes,
		BirthDate: strPtr(c.BirthDate),
		CreatedAt: formatTime(c.CreatedAt),
		UpdatedAt: formatTime(c.UpdatedAt),
	}
}

func appointmentFromRow(r appointmentRow) domain.Appointment {
	return domain.Appointment{
		ID:             r.ID,
		CompanyID:      r.CompanyID,
		ClientID:       deref(r.ClientID),
		ClientName:     r.ClientName,
		ClientPhone:    r.ClientPhone,
		ProfessionalID: r.ProfessionalID,
		ServiceID:      r.ServiceID,
		Date:           r.Date,
		Time:           clockTime(r.Time),
		Duration:       r.Duration,
		Price:          r.Price,
		Status:         domain.AppointmentStatus(r.Status),
		Notes:          r.Notes,
		CreatedAt:      parseTime(r.CreatedAt),
		UpdatedAt:      parseTime(r.UpdatedAt),
	}
}

func appointmentToRow(a domain.Appointment) appointmentRow {
	return appointmentRow{
		ID:             a.ID,
		CompanyID:      a.CompanyID,
		ClientID:       strPtr(a.ClientID),
		ClientName:     a.ClientName,
		ClientPhone:    a.ClientPhone,
		ProfessionalID: a.ProfessionalID,
		ServiceID:      a.ServiceID,
		Date:           a.Date,
		Time:           a.Time,
		Duration:       a.Duration,
		Price:          a.Price,
		Status:         string(a.Status),
		Notes:          a.Notes,
		CreatedAt:      formatTime(a.CreatedAt),
		UpdatedAt:      formatTime(a.UpdatedAt),
	}
}

func couponFromRow(r couponRow) domain.Coupon {
	return domain.Coupon{
		ID:            r.ID,
		CompanyID:     r.CompanyID,
		Code:          r.Code,
		Description:   r.Description,
		DiscountType:  domain.DiscountType(r.DiscountType),
		DiscountValue: r.DiscountValue,
		MaxUses:       r.MaxUses,
		UsedCount:     r.UsedCount,
		ExpiresAt:     parseTimePtr(r.ExpiresAt),
		IsActive:      r.IsActive,
		CreatedAt:     parseTime(r.CreatedAt),
		UpdatedAt:     parseTime(r.UpdatedAt),
	}
}

func couponToRow(c domain.Coupon) couponRow {
	return couponRow{
		ID:            c.ID,
		CompanyID:     c.CompanyID,
		Code:          c.Code,
		Description:   c.Description,
		DiscountType:  string(c.DiscountType),
		DiscountValue: c.DiscountValue,
		MaxUses:       c.MaxUses,
		UsedCount:     c.UsedCount,
		ExpiresAt:     formatTimePtr(c.ExpiresAt),
		IsActive:      c.IsActive,
		CreatedAt:     formatTime(c.CreatedAt),
		UpdatedAt:     formatTime(c.UpdatedAt),
	}
}

func expenseFromRow(r expenseRow) domain.Expense {
	return domain.Expense{
		ID:          r.ID,
		CompanyID:   r.CompanyID,
		Description: r.Description,
		Amount:      r.Amount,
		Category:    r.Category,
		Date:        r.Date,
		Paid:        r.Paid,
		CreatedAt:   parseTime(r.CreatedAt),
		UpdatedAt:   parseTime(r.UpdatedAt),
	}
}

func expenseToRow(e domain.Expense) expenseRow {
	return expenseRow{
		ID:          e.ID,
		CompanyID:   e.CompanyID,
		Description: e.Description,
		Amount:      e.Amount,
		Category:    e.Category,
		Date:        e.Date,
		Paid:        e.Paid,
		CreatedAt:   formatTime(e.CreatedAt),
		UpdatedAt:   formatTime(e.UpdatedAt),
	}
}

func invoiceFromRow(r invoiceRow) domain.Invoice {
	return domain.Invoice{
		ID:             r.ID,
		CompanyID:      r.CompanyID,
		Amount:         r.Amount,
		ReferenceMonth: r.ReferenceMonth,
		DueDate:        r.DueDate,
		Status:         domain.InvoiceStatus(r.Status),
		PaidAt:         parseTimePtr(r.PaidAt),
		CreatedAt:      parseTime(r.CreatedAt),
		UpdatedAt:      parseTime(r.UpdatedAt),
	}
}

func invoiceToRow(i domain.Invoice) invoiceRow {
	return invoiceRow{
		ID:             i.ID,
		CompanyID:      i.CompanyID,
		Amount:         i.Amount,
		ReferenceMonth: i.ReferenceMonth,
		DueDate:        i.DueDate,
		Status:         string(i.Status),
		PaidAt:         formatTimePtr(i.PaidAt),
		CreatedAt:      formatTime(i.CreatedAt),
		UpdatedAt:      formatTime(i.UpdatedAt),
	}
}

func notificationFromRow(r notificationRow) domain.Notification {
	return domain.Notification{
		ID:        r.ID,
		CompanyID: r.CompanyID,
		Title:     r.Title,
		Message:   r.Message,
		Type:      r.Type,
		Read:      r.Read,
		CreatedAt: parseTime(r.CreatedAt),
		UpdatedAt: parseTime(r.UpdatedAt),
	}
}

func notificationToRow(n domain.Notification) notificationRow {
	return notificationRow{
		ID:        n.ID,
		CompanyID: n.CompanyID,
		Title:     n.Title,
		Message:   n.Message,
		Type:      n.Type,
		Read:      n.Read,
		CreatedAt: formatTime(n.CreatedAt),
		UpdatedAt: formatTime(n.UpdatedAt),
	}
}

func ticketFromRow(r ticketRow) domain.Ticket {
	return domain.Ticket{
		ID:        r.ID,
		CompanyID: r.CompanyID,
		CreatedBy: r.CreatedBy,
		Subject:   r.Subject,
		Message:   r.Message,
		Priority:  r.Priority,
		Status:    domain.TicketStatus(r.Status),
		CreatedAt: parseTime(r.CreatedAt),
		UpdatedAt: parseTime(r.UpdatedAt),
	}
}

func ticketToRow(t domain.Ticket) ticketRow {
	return ticketRow{
		ID:        t.ID,
		CompanyID: t.CompanyID,
		CreatedBy: t.CreatedBy,
		Subject:   t.Subject,
		Message:   t.Message,
		Priority:  t.Priority,
		Status:    string(t.Status),
		CreatedAt: formatTime(t.CreatedAt),
		UpdatedAt: formatTime(t.UpdatedAt),
	}
}

func identityFromRow(r profileRow) domain.Identity {
	return domain.Identity{
		UserID:    r.ID,
		Email:     r.Email,
		Name:      r.FullName,
		CompanyID: deref(r.CompanyID),
		Role:      domain.Role(r.Role),
	}
}

// --- coercion helpers ---

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999-07",
	"2006-01-02 15:04:05.999999",
	domain.DateLayout,
}

// parseTime accepts the timestamp shapes Postgres emits. Unparseable input
// yields the zero time.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func parseTimePtr(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t := parseTime(*s)
	if t.IsZero() {
		return nil
	}
	return &t
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil || t.IsZero() {
		return nil
	}
	s := formatTime(*t)
	return &s
}

// clockTime trims Postgres "HH:MM:SS" to "HH:MM".
func clockTime(s string) string {
	if len(s) >= 5 && strings.Count(s, ":") >= 1 {
		return s[:5]
	}
	return s
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
