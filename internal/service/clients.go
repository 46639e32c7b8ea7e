package service

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/boddenberg/agenda-bfa-go/internal/domain"
	"github.com/boddenberg/agenda-bfa-go/internal/port"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ClientService manages the end customers of a company.
type ClientService struct {
	crud   *Crud[domain.Client]
	data   *TenantData
	toasts port.Notifier
	logger *zap.Logger
}

// NewClientService creates the client service.
func NewClientService(d Deps) *ClientService {
	return &ClientService{
		crud: NewCrud(CrudConfig[domain.Client]{
			Entity:   entityClient,
			Store:    d.Stores.Clients,
			Validate: domain.Client.Validate,
		}, d.Gate, d.Toasts, d.Metrics, d.Logger),
		data:   d.Data,
		toasts: d.Toasts,
		logger: d.Logger,
	}
}

// List returns the clients with their visit statistics, ordered by name.
// A non-empty query matches name or phone.
func (s *ClientService) List(ctx context.Context, ident domain.Identity, query string) ([]domain.ClientWithStats, error) {
	ws, err := s.data.ForIdentity(ctx, ident)
	if err != nil {
		return nil, err
	}
	query = strings.ToLower(strings.TrimSpace(query))
	digits := domain.NormalizePhone(query)
	appointments := ws.Appointments.All()

	out := make([]domain.ClientWithStats, 0, ws.Clients.Len())
	for _, c := range ws.Clients.All() {
		if query != "" && !strings.Contains(strings.ToLower(c.Name), query) &&
			(digits == "" || !strings.Contains(domain.NormalizePhone(c.Phone), digits)) {
			continue
		}
		out = append(out, domain.ClientWithStats{Client: c, ClientStats: domain.ComputeClientStats(c, appointments)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

// Create adds a client. The phone must be unique within the company.
func (s *ClientService) Create(ctx context.Context, ident domain.Identity, c domain.Client) (domain.Client, error) {
	ws, err := s.data.ForIdentity(ctx, ident)
	if err != nil {
		return domain.Client{}, err
	}
	c.ID = uuid.New().String()
	c.CompanyID = ident.CompanyID
	c.Name = strings.TrimSpace(c.Name)
	if err := phoneTaken(ws, c); err != nil {
		s.toasts.Error(tenantScope(ident.CompanyID), "Erro ao criar cliente", err.Error())
		return domain.Client{}, err
	}
	return s.crud.Create(ctx, ws.Clients, c)
}

// Update patches a client, keeping the phone unique.
func (s *ClientService) Update(ctx context.Context, ident domain.Identity, id, version string, patch json.RawMessage) (domain.Client, error) {
	ws, err := s.data.ForIdentity(ctx, ident)
	if err != nil {
		return domain.Client{}, err
	}
	return s.crud.Update(ctx, ws.Clients, ident.CompanyID, id, version,
		mergePatch(patch, PatchPolicy{}, func(prev, next *domain.Client) error {
			if domain.NormalizePhone(prev.Phone) == domain.NormalizePhone(next.Phone) {
				return nil
			}
			return phoneTaken(ws, *next)
		}))
}

// Delete removes a client after confirmation. Past bookings keep the
// client's name and phone.
func (s *ClientService) Delete(ctx context.Context, ident domain.Identity, id string) (bool, error) {
	ws, err := s.data.ForIdentity(ctx, ident)
	if err != nil {
		return false, err
	}
	name := ""
	if c, ok := ws.Clients.Find(id); ok {
		name = "o cliente " + c.Name
	}
	return s.crud.Remove(ctx, ws.Clients, ident.CompanyID, id, name)
}

func phoneTaken(ws *WorkingSet, c domain.Client) error {
	phone := domain.NormalizePhone(c.Phone)
	if phone == "" {
		return nil
	}
	for _, other := range ws.Clients.All() {
		if other.ID != c.ID && domain.NormalizePhone(other.Phone) == phone {
			return &domain.ErrConflict{Kind: domain.ConflictDuplicate, Message: "Já existe um cliente com este telefone"}
		}
	}
	return nil
}
