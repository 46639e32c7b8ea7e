package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"

	"github.com/boddenberg/agenda-bfa-go/internal/domain"
	"github.com/boddenberg/agenda-bfa-go/internal/port"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var catalogTracer = otel.Tracer("service/catalog")

// CatalogService manages services and professionals of a company.
type CatalogService struct {
	services      *Crud[domain.Service]
	professionals *Crud[domain.Professional]
	provisioner   port.ProfessionalProvisioner
	data          *TenantData
	toasts        port.Notifier
	logger        *zap.Logger
}

// NewCatalogService creates the catalog service.
func NewCatalogService(d Deps) *CatalogService {
	return &CatalogService{
		services: NewCrud(CrudConfig[domain.Service]{
			Entity:   entityService,
			Store:    d.Stores.Services,
			Validate: domain.Service.Validate,
		}, d.Gate, d.Toasts, d.Metrics, d.Logger),
		professionals: NewCrud(CrudConfig[domain.Professional]{
			Entity:   entityProfessional,
			Store:    d.Stores.Professionals,
			Validate: domain.Professional.Validate,
		}, d.Gate, d.Toasts, d.Metrics, d.Logger),
		provisioner: d.Stores.Provisioner,
		data:        d.Data,
		toasts:      d.Toasts,
		logger:      d.Logger,
	}
}

// ============================================================
// Services
// ============================================================

// ListServices returns the company's services ordered by name.
func (s *CatalogService) ListServices(ctx context.Context, ident domain.Identity) ([]domain.Service, error) {
	ws, err := s.data.ForIdentity(ctx, ident)
	if err != nil {
		return nil, err
	}
	list := ws.Services.All()
	sort.SliceStable(list, func(i, j int) bool {
		return strings.ToLower(list[i].Name) < strings.ToLower(list[j].Name)
	})
	return list, nil
}

// CreateService adds a service. Negative prices and non-positive durations
// are rejected before any remote call.
func (s *CatalogService) CreateService(ctx context.Context, ident domain.Identity, sv domain.Service) (domain.Service, error) {
	ctx, span := catalogTracer.Start(ctx, "CatalogService.CreateService")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", ident.CompanyID))

	ws, err := s.data.ForIdentity(ctx, ident)
	if err != nil {
		return domain.Service{}, err
	}
	sv.ID = uuid.New().String()
	sv.CompanyID = ident.CompanyID
	sv.Name = strings.TrimSpace(sv.Name)
	return s.services.Create(ctx, ws.Services, sv)
}

// UpdateService patches a service.
func (s *CatalogService) UpdateService(ctx context.Context, ident domain.Identity, id, version string, patch json.RawMessage) (domain.Service, error) {
	ws, err := s.data.ForIdentity(ctx, ident)
	if err != nil {
		return domain.Service{}, err
	}
	return s.services.Update(ctx, ws.Services, ident.CompanyID, id, version, mergePatch[domain.Service](patch, PatchPolicy{}, nil))
}

// DeleteService removes a service after confirmation.
func (s *CatalogService) DeleteService(ctx context.Context, ident domain.Identity, id string) (bool, error) {
	ws, err := s.data.ForIdentity(ctx, ident)
	if err != nil {
		return false, err
	}
	name := ""
	if sv, ok := ws.Services.Find(id); ok {
		name = "o serviço " + sv.Name
	}
	return s.services.Remove(ctx, ws.Services, ident.CompanyID, id, name)
}

// ============================================================
// Professionals
// ============================================================

// ProfessionalDraft is the input for inviting a professional.
type ProfessionalDraft struct {
	Name         string              `json:"name"`
	Email        string              `json:"email"`
	Phone        string              `json:"phone"`
	Specialties  []string            `json:"specialties"`
	Commission   decimal.Decimal     `json:"commission"`
	WorkingHours domain.WorkingHours `json:"workingHours"`
}

// ListProfessionals returns the company's professionals ordered by name.
func (s *CatalogService) ListProfessionals(ctx context.Context, ident domain.Identity) ([]domain.Professional, error) {
	ws, err := s.data.ForIdentity(ctx, ident)
	if err != nil {
		return nil, err
	}
	list := ws.Professionals.All()
	sort.SliceStable(list, func(i, j int) bool {
		return strings.ToLower(list[i].Name) < strings.ToLower(list[j].Name)
	})
	return list, nil
}

// CreateProfessional checks the plan's seat limit, provisions the auth user
// through the create-professional function, then fetches the new row and
// appends it to the working set.
func (s *CatalogService) CreateProfessional(ctx context.Context, ident domain.Identity, draft ProfessionalDraft) (domain.CreatedProfessional, error) {
	ctx, span := catalogTracer.Start(ctx, "CatalogService.CreateProfessional")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", ident.CompanyID))

	scope := tenantScope(ident.CompanyID)
	title := "Erro ao criar profissional"

	ws, err := s.data.ForIdentity(ctx, ident)
	if err != nil {
		return domain.CreatedProfessional{}, err
	}

	candidate := domain.Professional{
		CompanyID:    ident.CompanyID,
		Name:         strings.TrimSpace(draft.Name),
		Email:        strings.TrimSpace(draft.Email),
		Phone:        draft.Phone,
		Specialties:  domain.NormalizeSpecialties(draft.Specialties),
		Commission:   draft.Commission,
		Active:       true,
		WorkingHours: draft.WorkingHours,
	}
	if err := candidate.Validate(); err != nil {
		s.toasts.Error(scope, title, err.Error())
		return domain.CreatedProfessional{}, err
	}
	if candidate.Email == "" {
		err := &domain.ErrValidation{Field: "email", Message: "E-mail do profissional é obrigatório"}
		s.toasts.Error(scope, title, err.Error())
		return domain.CreatedProfessional{}, err
	}
	if err := s.checkSeats(ws, ""); err != nil {
		s.toasts.Error(scope, title, err.Error())
		return domain.CreatedProfessional{}, err
	}

	res, err := s.provisioner.CreateProfessionalUser(ctx, domain.ProfessionalInvite{
		Name:      candidate.Name,
		Email:     candidate.Email,
		CompanyID: ident.CompanyID,
	})
	if err != nil {
		s.logger.Error("create-professional failed",
			zap.String("company_id", ident.CompanyID),
			zap.Error(err),
		)
		s.toasts.Error(scope, title, err.Error())
		return domain.CreatedProfessional{}, err
	}

	created, err := s.fetchProvisioned(ctx, ident.CompanyID, res.UserID)
	if err != nil {
		s.toasts.Error(scope, title, err.Error())
		return domain.CreatedProfessional{}, err
	}

	// The function only knows name and email; write the rest of the draft.
	created.Phone = candidate.Phone
	created.Specialties = candidate.Specialties
	created.Commission = candidate.Commission
	created.WorkingHours = candidate.WorkingHours
	created.Active = true
	stored, err := s.professionals.Store().Update(ctx, created, created.Version())
	if err != nil {
		s.logger.Warn("create-professional: details not saved",
			zap.String("company_id", ident.CompanyID),
			zap.String("id", created.ID),
			zap.Error(err),
		)
		stored = created
	}

	ws.Professionals.Upsert(stored)
	s.toasts.Success(scope, "Profissional criado com sucesso", "")
	s.logger.Info("professional provisioned",
		zap.String("company_id", ident.CompanyID),
		zap.String("id", stored.ID),
		zap.String("user_id", res.UserID),
	)
	return domain.CreatedProfessional{Professional: stored, TemporaryPassword: res.TemporaryPassword}, nil
}

func (s *CatalogService) fetchProvisioned(ctx context.Context, companyID, userID string) (domain.Professional, error) {
	if userID == "" {
		return domain.Professional{}, &domain.ErrExternalService{
			Service: "supabase/create-professional",
			Err:     errors.New("resposta sem userId"),
		}
	}
	rows, err := s.professionals.Store().FindBy(ctx, "user_id", userID)
	if err != nil {
		return domain.Professional{}, err
	}
	for _, p := range rows {
		if p.CompanyID == companyID {
			return p, nil
		}
	}
	return domain.Professional{}, &domain.ErrNotFound{Resource: "profissional", ID: userID}
}

// UpdateProfessional patches a professional. Re-activating one counts
// against the plan's seat limit.
func (s *CatalogService) UpdateProfessional(ctx context.Context, ident domain.Identity, id, version string, patch json.RawMessage) (domain.Professional, error) {
	ws, err := s.data.ForIdentity(ctx, ident)
	if err != nil {
		return domain.Professional{}, err
	}
	policy := PatchPolicy{Protected: []string{"userId"}}
	return s.professionals.Update(ctx, ws.Professionals, ident.CompanyID, id, version,
		mergePatch(patch, policy, func(prev, next *domain.Professional) error {
			next.Specialties = domain.NormalizeSpecialties(next.Specialties)
			if next.Active && !prev.Active {
				return s.checkSeats(ws, prev.ID)
			}
			return nil
		}))
}

// DeleteProfessional removes a professional after confirmation.
func (s *CatalogService) DeleteProfessional(ctx context.Context, ident domain.Identity, id string) (bool, error) {
	ws, err := s.data.ForIdentity(ctx, ident)
	if err != nil {
		return false, err
	}
	name := ""
	if p, ok := ws.Professionals.Find(id); ok {
		name = "o profissional " + p.Name
	}
	return s.professionals.Remove(ctx, ws.Professionals, ident.CompanyID, id, name)
}

// Me returns the professional linked to the caller.
func (s *CatalogService) Me(ctx context.Context, ident domain.Identity) (domain.Professional, error) {
	ws, err := s.data.ForIdentity(ctx, ident)
	if err != nil {
		return domain.Professional{}, err
	}
	return ownProfessional(ws, ident)
}

// UpdateMe lets a professional edit their own contact data and schedule.
func (s *CatalogService) UpdateMe(ctx context.Context, ident domain.Identity, version string, patch json.RawMessage) (domain.Professional, error) {
	ws, err := s.data.ForIdentity(ctx, ident)
	if err != nil {
		return domain.Professional{}, err
	}
	me, err := ownProfessional(ws, ident)
	if err != nil {
		return domain.Professional{}, err
	}
	policy := PatchPolicy{Allowed: []string{"phone", "specialties", "workingHours"}}
	return s.professionals.Update(ctx, ws.Professionals, ident.CompanyID, me.ID, version,
		mergePatch(patch, policy, func(_, next *domain.Professional) error {
			next.Specialties = domain.NormalizeSpecialties(next.Specialties)
			return nil
		}))
}

// checkSeats fails when activating one more professional would exceed the
// plan. excludeID is left out of the count. The check is not atomic across
// instances.
func (s *CatalogService) checkSeats(ws *WorkingSet, excludeID string) error {
	c, ok := ws.CompanyRecord()
	if !ok {
		return &domain.ErrNotFound{Resource: "empresa", ID: ws.CompanyID}
	}
	limit := c.Plan.SeatLimit()
	if limit == 0 {
		return nil
	}
	active := 0
	for _, p := range ws.Professionals.All() {
		if p.Active && p.ID != excludeID {
			active++
		}
	}
	if active >= limit {
		return &domain.ErrSeatLimit{Plan: c.Plan, Limit: limit}
	}
	return nil
}

func ownProfessional(ws *WorkingSet, ident domain.Identity) (domain.Professional, error) {
	for _, p := range ws.Professionals.All() {
		if p.UserID == ident.UserID {
			return p, nil
		}
	}
	return domain.Professional{}, &domain.ErrNotFound{Resource: "profissional", ID: ident.UserID}
}
