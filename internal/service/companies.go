package service

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/boddenberg/agenda-bfa-go/internal/domain"
	"github.com/boddenberg/agenda-bfa-go/internal/port"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var companyTracer = otel.Tracer("service/companies")

// CompanyService handles signup, the platform's company administration,
// trial status and the public booking page.
type CompanyService struct {
	crud      *Crud[domain.Company]
	companies port.EntityStore[domain.Company]
	tickets   port.EntityStore[domain.Ticket]
	profiles  port.ProfileStore
	identity  *IdentityService
	data      *TenantData
	trialDays int
	now       func() time.Time
	logger    *zap.Logger
}

// NewCompanyService creates the company service.
func NewCompanyService(d Deps) *CompanyService {
	trialDays := d.Policy.TrialDays
	if trialDays <= 0 {
		trialDays = 14
	}
	return &CompanyService{
		crud: NewCrud(CrudConfig[domain.Company]{
			Entity:   entityCompany,
			Store:    d.Stores.Companies,
			Validate: domain.Company.Validate,
		}, d.Gate, d.Toasts, d.Metrics, d.Logger),
		companies: d.Stores.Companies,
		tickets:   d.Stores.Tickets,
		profiles:  d.Stores.Profiles,
		identity:  d.Identity,
		data:      d.Data,
		trialDays: trialDays,
		now:       d.Now,
		logger:    d.Logger,
	}
}

// ============================================================
// Signup & trial
// ============================================================

// Signup creates a trial company for the caller and links the caller's
// profile to it as company admin.
func (s *CompanyService) Signup(ctx context.Context, ident domain.Identity, req domain.SignupRequest) (domain.Company, error) {
	ctx, span := companyTracer.Start(ctx, "CompanyService.Signup")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", ident.UserID))

	if ident.HasTenant() {
		return domain.Company{}, &domain.ErrConflict{Kind: domain.ConflictDuplicate, Message: "Usuário já está vinculado a uma empresa"}
	}

	email := strings.TrimSpace(req.Email)
	if email == "" {
		email = ident.Email
	}
	plan := req.Plan
	if plan == "" {
		plan = domain.PlanBasic
	}
	trialEnds := s.now().UTC().Add(time.Duration(s.trialDays) * 24 * time.Hour)

	c := domain.Company{
		ID:             uuid.New().String(),
		Name:           strings.TrimSpace(req.CompanyName),
		Email:          email,
		Phone:          req.Phone,
		Plan:           plan,
		Status:         domain.CompanyTrial,
		TrialEndsAt:    &trialEnds,
		MonthlyRevenue: decimal.Zero,
		CustomURL:      domain.NormalizeSlug(req.CustomURL),
		WhatsappNumber: req.WhatsappNumber,
	}
	if err := s.ensureURLFree(ctx, c.CustomURL, ""); err != nil {
		return domain.Company{}, err
	}

	created, err := s.crud.Create(ctx, nil, c)
	if err != nil {
		return domain.Company{}, err
	}

	if err := s.profiles.LinkProfile(ctx, ident.UserID, created.ID, domain.RoleCompanyAdmin); err != nil {
		s.logger.Error("signup: failed to link profile",
			zap.String("user_id", ident.UserID),
			zap.String("company_id", created.ID),
			zap.Error(err),
		)
		return domain.Company{}, err
	}
	if s.identity != nil {
		s.identity.Forget(ident.UserID)
	}

	s.logger.Info("trial company created",
		zap.String("company_id", created.ID),
		zap.String("user_id", ident.UserID),
		zap.Time("trial_ends_at", trialEnds),
	)
	return created, nil
}

// Trial returns the trial view of the caller's company.
func (s *CompanyService) Trial(ctx context.Context, ident domain.Identity) (domain.TrialStatus, error) {
	ws, err := s.data.ForIdentity(ctx, ident)
	if err != nil {
		return domain.TrialStatus{}, err
	}
	c, ok := ws.CompanyRecord()
	if !ok {
		return domain.TrialStatus{}, &domain.ErrNotFound{Resource: "empresa", ID: ident.CompanyID}
	}
	return c.Trial(s.now()), nil
}

// Own returns the caller's company from the working set.
func (s *CompanyService) Own(ctx context.Context, ident domain.Identity) (domain.Company, error) {
	ws, err := s.data.ForIdentity(ctx, ident)
	if err != nil {
		return domain.Company{}, err
	}
	c, ok := ws.CompanyRecord()
	if !ok {
		return domain.Company{}, &domain.ErrNotFound{Resource: "empresa", ID: ident.CompanyID}
	}
	return c, nil
}

// UpdateOwn lets a company admin edit contact and booking fields. Plan,
// status, trial and revenue stay under platform control.
func (s *CompanyService) UpdateOwn(ctx context.Context, ident domain.Identity, version string, patch json.RawMessage) (domain.Company, error) {
	ws, err := s.data.ForIdentity(ctx, ident)
	if err != nil {
		return domain.Company{}, err
	}
	policy := PatchPolicy{Allowed: []string{"name", "email", "phone", "address", "customUrl", "whatsappNumber"}}
	return s.crud.Update(ctx, ws.Company, ident.CompanyID, ident.CompanyID, version,
		mergePatch(patch, policy, func(prev, next *domain.Company) error {
			next.CustomURL = domain.NormalizeSlug(next.CustomURL)
			if next.CustomURL != prev.CustomURL {
				return s.ensureURLFree(ctx, next.CustomURL, prev.ID)
			}
			return nil
		}))
}

// ============================================================
// Platform administration (super admin)
// ============================================================

// List returns every company ordered by name.
func (s *CompanyService) List(ctx context.Context) ([]domain.Company, error) {
	ctx, span := companyTracer.Start(ctx, "CompanyService.List")
	defer span.End()

	list, err := s.companies.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, j int) bool {
		return strings.ToLower(list[i].Name) < strings.ToLower(list[j].Name)
	})
	return list, nil
}

// Get returns one company.
func (s *CompanyService) Get(ctx context.Context, id string) (domain.Company, error) {
	return s.companies.Get(ctx, id)
}

// Create registers a company on behalf of the platform.
func (s *CompanyService) Create(ctx context.Context, c domain.Company) (domain.Company, error) {
	ctx, span := companyTracer.Start(ctx, "CompanyService.Create")
	defer span.End()

	c.ID = uuid.New().String()
	c.CustomURL = domain.NormalizeSlug(c.CustomURL)
	if c.Plan == "" {
		c.Plan = domain.PlanBasic
	}
	if c.Status == "" {
		c.Status = domain.CompanyTrial
	}
	if c.Status == domain.CompanyTrial && c.TrialEndsAt == nil {
		ends := s.now().UTC().Add(time.Duration(s.trialDays) * 24 * time.Hour)
		c.TrialEndsAt = &ends
	}
	if err := s.ensureURLFree(ctx, c.CustomURL, ""); err != nil {
		return domain.Company{}, err
	}
	return s.crud.CreateAs(ctx, nil, PlatformScope, c)
}

// Update applies an admin patch, enforcing status transitions and customUrl
// uniqueness. A cached working set of the company is kept in step.
func (s *CompanyService) Update(ctx context.Context, id, version string, patch json.RawMessage) (domain.Company, error) {
	ctx, span := companyTracer.Start(ctx, "CompanyService.Update")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", id))

	var col *Collection[domain.Company]
	if ws, ok := s.data.Peek(id); ok {
		col = ws.Company
	}
	return s.crud.Update(ctx, col, "", id, version,
		mergePatch(patch, PatchPolicy{}, func(prev, next *domain.Company) error {
			if !prev.Status.CanTransitionTo(next.Status) {
				return &domain.ErrInvalidTransition{Entity: "empresa", From: string(prev.Status), To: string(next.Status)}
			}
			if prev.Status == domain.CompanyTrial && next.Status != domain.CompanyTrial {
				next.TrialEndsAt = nil
			}
			next.CustomURL = domain.NormalizeSlug(next.CustomURL)
			if next.CustomURL != prev.CustomURL {
				return s.ensureURLFree(ctx, next.CustomURL, prev.ID)
			}
			return nil
		}))
}

// SetStatus moves a company through its lifecycle.
func (s *CompanyService) SetStatus(ctx context.Context, id, version string, status domain.CompanyStatus) (domain.Company, error) {
	raw, _ := json.Marshal(map[string]domain.CompanyStatus{"status": status})
	return s.Update(ctx, id, version, raw)
}

// Delete hard-deletes a company after confirmation.
func (s *CompanyService) Delete(ctx context.Context, id string) (bool, error) {
	ctx, span := companyTracer.Start(ctx, "CompanyService.Delete")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", id))

	c, err := s.companies.Get(ctx, id)
	if err != nil {
		return false, err
	}
	ok, err := s.crud.Remove(ctx, nil, "", id, "a empresa "+c.Name)
	if ok {
		s.data.Evict(id)
	}
	return ok, err
}

// URLAvailable reports whether slug is free, ignoring company excludeID.
func (s *CompanyService) URLAvailable(ctx context.Context, slug, excludeID string) (bool, error) {
	slug = domain.NormalizeSlug(slug)
	if slug == "" {
		return false, &domain.ErrValidation{Field: "url", Message: "URL é obrigatória"}
	}
	owner, err := s.findBySlug(ctx, slug)
	if err != nil {
		return false, err
	}
	return owner == nil || owner.ID == excludeID, nil
}

func (s *CompanyService) ensureURLFree(ctx context.Context, slug, excludeID string) error {
	if slug == "" {
		return nil
	}
	free, err := s.URLAvailable(ctx, slug, excludeID)
	if err != nil {
		return err
	}
	if !free {
		return &domain.ErrConflict{Kind: domain.ConflictDuplicate, Message: "URL personalizada já está em uso"}
	}
	return nil
}

// findBySlug scans every company for a custom URL.
func (s *CompanyService) findBySlug(ctx context.Context, slug string) (*domain.Company, error) {
	all, err := s.companies.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if domain.NormalizeSlug(all[i].CustomURL) == slug {
			return &all[i], nil
		}
	}
	return nil, nil
}

// ============================================================
// Public booking page
// ============================================================

// BookingPage resolves /agendar/{customUrl} to the company and its active
// services and professionals.
func (s *CompanyService) BookingPage(ctx context.Context, slug string) (domain.BookingPage, error) {
	ctx, span := companyTracer.Start(ctx, "CompanyService.BookingPage")
	defer span.End()
	span.SetAttributes(attribute.String("custom_url", slug))

	slug = domain.NormalizeSlug(slug)
	c, err := s.findBySlug(ctx, slug)
	if err != nil {
		return domain.BookingPage{}, err
	}
	if c == nil || slug == "" || c.Status == domain.CompanyCancelled || c.Status == domain.CompanySuspended {
		return domain.BookingPage{}, &domain.ErrNotFound{Resource: "página de agendamento", ID: slug}
	}

	ws, err := s.data.Ensure(ctx, c.ID)
	if err != nil {
		return domain.BookingPage{}, err
	}

	page := domain.BookingPage{
		Company: domain.PublicCompany{
			ID:             c.ID,
			Name:           c.Name,
			Phone:          c.Phone,
			Address:        c.Address,
			CustomURL:      c.CustomURL,
			WhatsappNumber: c.WhatsappNumber,
		},
		Services:      []domain.Service{},
		Professionals: []domain.Professional{},
	}
	for _, sv := range ws.Services.All() {
		if sv.Active {
			page.Services = append(page.Services, sv)
		}
	}
	for _, p := range ws.Professionals.All() {
		if p.Active {
			p.Email = ""
			p.Commission = decimal.Zero
			page.Professionals = append(page.Professionals, p)
		}
	}
	return page, nil
}

// ============================================================
// Platform stats
// ============================================================

// Stats aggregates the platform dashboard.
func (s *CompanyService) Stats(ctx context.Context) (domain.PlatformStats, error) {
	ctx, span := companyTracer.Start(ctx, "CompanyService.Stats")
	defer span.End()

	companies, err := s.companies.List(ctx)
	if err != nil {
		return domain.PlatformStats{}, err
	}
	tickets, err := s.tickets.List(ctx)
	if err != nil {
		return domain.PlatformStats{}, err
	}
	return platformStats(companies, tickets, s.now()), nil
}

func platformStats(companies []domain.Company, tickets []domain.Ticket, now time.Time) domain.PlatformStats {
	stats := domain.PlatformStats{
		TotalCompanies: len(companies),
		ByStatus:       make(map[domain.CompanyStatus]int),
		ByPlan:         make(map[domain.Plan]int),
		MonthlyRevenue: decimal.Zero,
	}
	soon := now.Add(7 * 24 * time.Hour)
	for _, c := range companies {
		stats.ByStatus[c.Status]++
		stats.ByPlan[c.Plan]++
		stats.MonthlyRevenue = stats.MonthlyRevenue.Add(c.MonthlyRevenue)
		if c.Status == domain.CompanyTrial && c.TrialEndsAt != nil && c.TrialEndsAt.After(now) && c.TrialEndsAt.Before(soon) {
			stats.TrialsEndingSoon++
		}
	}
	for _, t := range tickets {
		if t.Status == domain.TicketOpen || t.Status == domain.TicketInProgress {
			stats.OpenTickets++
		}
	}
	return stats
}
