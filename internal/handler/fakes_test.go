package handler_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/boddenberg/agenda-bfa-go/internal/domain"
	"github.com/boddenberg/agenda-bfa-go/internal/handler"
	"github.com/boddenberg/agenda-bfa-go/internal/infra/cache"
	"github.com/boddenberg/agenda-bfa-go/internal/infra/notify"
	"github.com/boddenberg/agenda-bfa-go/internal/infra/observability"
	"github.com/boddenberg/agenda-bfa-go/internal/infra/prefs"
	"github.com/boddenberg/agenda-bfa-go/internal/port"
	"github.com/boddenberg/agenda-bfa-go/internal/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const jwtSecret = "handler-secret"

// --- Mocks ---

// store is an in-memory EntityStore. Every write moves the clock one
// second forward and stamps updatedAt, which is the version token.
type store[T domain.Record] struct {
	mu     sync.Mutex
	items  map[string]T
	stamp  func(T, time.Time) T
	clock  time.Time
	findBy func(T, string, string) bool
	err    error
}

func newStore[T domain.Record](stamp func(T, time.Time) T) *store[T] {
	return &store[T]{
		items: make(map[string]T),
		stamp: stamp,
		clock: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (s *store[T]) put(e T) T {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = s.clock.Add(time.Second)
	e = s.stamp(e, s.clock)
	s.items[e.RecordID()] = e
	return e
}

func (s *store[T]) all(keep func(T) bool) []T {
	out := make([]T, 0, len(s.items))
	for _, e := range s.items {
		if keep(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecordID() < out[j].RecordID() })
	return out
}

func (s *store[T]) List(context.Context) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.all(func(T) bool { return true }), nil
}

func (s *store[T]) ListByCompany(_ context.Context, companyID string) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.all(func(e T) bool { return e.Tenant() == companyID }), nil
}

func (s *store[T]) FindBy(_ context.Context, column, value string) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findBy == nil {
		return nil, nil
	}
	return s.all(func(e T) bool { return s.findBy(e, column, value) }), nil
}

func (s *store[T]) Get(_ context.Context, id string) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[id]
	if !ok {
		var zero T
		return zero, &domain.ErrNotFound{Resource: "registro", ID: id}
	}
	return e, nil
}

func (s *store[T]) Create(_ context.Context, e T) (T, error) {
	if _, err := s.Get(context.Background(), e.RecordID()); err == nil {
		var zero T
		return zero, &domain.ErrConflict{Kind: domain.ConflictDuplicate, Message: "duplicate"}
	}
	return s.put(e), nil
}

func (s *store[T]) Update(_ context.Context, e T, version string) (T, error) {
	cur, err := s.Get(context.Background(), e.RecordID())
	if err != nil {
		return cur, err
	}
	if cur.Version() != version {
		var zero T
		return zero, &domain.ErrConflict{Kind: domain.ConflictStale, Message: "Registro alterado por outro usuário"}
	}
	return s.put(e), nil
}

func (s *store[T]) Delete(_ context.Context, companyID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.items[id]
	if !ok || (companyID != "" && cur.Tenant() != companyID) {
		return &domain.ErrNotFound{Resource: "registro", ID: id}
	}
	delete(s.items, id)
	return nil
}

func (s *store[T]) has(id string) bool {
	_, err := s.Get(context.Background(), id)
	return err == nil
}

type profiles struct {
	mu   sync.Mutex
	byID map[string]domain.Identity
}

func (p *profiles) GetProfile(_ context.Context, userID string) (*domain.Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ident, ok := p.byID[userID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "perfil", ID: userID}
	}
	return &ident, nil
}

func (p *profiles) LinkProfile(_ context.Context, userID, companyID string, role domain.Role) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.byID[userID] = domain.Identity{UserID: userID, CompanyID: companyID, Role: role}
	return nil
}

type noProvisioner struct{}

func (noProvisioner) CreateProfessionalUser(context.Context, domain.ProfessionalInvite) (*domain.ProfessionalInviteResult, error) {
	return nil, errors.New("provisioning disabled in handler tests")
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func stamp[T any](set func(*T, time.Time)) func(T, time.Time) T {
	return func(e T, t time.Time) T {
		set(&e, t)
		return e
	}
}

// --- Fixture ---

const (
	companyA = "company-a"
	companyB = "company-b"
)

type fixture struct {
	t        *testing.T
	router   http.Handler
	svc      *service.Services
	feed     *notify.Feed
	metrics  *observability.Metrics
	queue    *service.ConfirmationQueue
	profiles *profiles

	companies     *store[domain.Company]
	services      *store[domain.Service]
	professionals *store[domain.Professional]
	appointments  *store[domain.Appointment]
	clients       *store[domain.Client]
	expenses      *store[domain.Expense]
	coupons       *store[domain.Coupon]
	invoices      *store[domain.Invoice]
	notifications *store[domain.Notification]
	tickets       *store[domain.Ticket]
}

type fixtureOption func(*service.Deps, *handler.Config)

func withHealth(name string, err error) fixtureOption {
	return func(_ *service.Deps, c *handler.Config) {
		if c.Health == nil {
			c.Health = map[string]port.HealthChecker{}
		}
		c.Health[name] = pinger{err: err}
	}
}

func withDoubleBookingRejected() fixtureOption {
	return func(d *service.Deps, _ *handler.Config) { d.Policy.RejectDoubleBooking = true }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	logger := zap.NewNop()
	trialEnds := time.Now().UTC().Add(5 * 24 * time.Hour)

	f := &fixture{
		t:             t,
		feed:          notify.NewFeed(50, logger),
		metrics:       observability.NewMetrics(),
		companies:     newStore(stamp(func(e *domain.Company, t time.Time) { e.UpdatedAt = t })),
		services:      newStore(stamp(func(e *domain.Service, t time.Time) { e.UpdatedAt = t })),
		professionals: newStore(stamp(func(e *domain.Professional, t time.Time) { e.UpdatedAt = t })),
		appointments:  newStore(stamp(func(e *domain.Appointment, t time.Time) { e.UpdatedAt = t })),
		clients:       newStore(stamp(func(e *domain.Client, t time.Time) { e.UpdatedAt = t })),
		expenses:      newStore(stamp(func(e *domain.Expense, t time.Time) { e.UpdatedAt = t })),
		coupons:       newStore(stamp(func(e *domain.Coupon, t time.Time) { e.UpdatedAt = t })),
		invoices:      newStore(stamp(func(e *domain.Invoice, t time.Time) { e.UpdatedAt = t })),
		notifications: newStore(stamp(func(e *domain.Notification, t time.Time) { e.UpdatedAt = t })),
		tickets:       newStore(stamp(func(e *domain.Ticket, t time.Time) { e.UpdatedAt = t })),
		profiles: &profiles{byID: map[string]domain.Identity{
			"user-super":   {Role: domain.RoleSuperAdmin},
			"user-admin-a": {CompanyID: companyA, Role: domain.RoleCompanyAdmin},
			"user-admin-b": {CompanyID: companyB, Role: domain.RoleCompanyAdmin},
			"user-pro-a":   {CompanyID: companyA, Role: domain.RoleProfessional},
		}},
	}
	f.professionals.findBy = func(p domain.Professional, column, value string) bool {
		return column == "user_id" && p.UserID == value
	}

	f.companies.put(domain.Company{ID: companyA, Name: "Barbearia A", Plan: domain.PlanBasic, Status: domain.CompanyTrial, TrialEndsAt: &trialEnds, CustomURL: "barbearia-a"})
	f.companies.put(domain.Company{ID: companyB, Name: "Salão B", Plan: domain.PlanProfessional, Status: domain.CompanyActive, CustomURL: "salao-b"})
	f.professionals.put(domain.Professional{ID: "pro-1", CompanyID: companyA, UserID: "user-pro-a", Name: "João", Active: true})
	f.services.put(domain.Service{ID: "svc-1", CompanyID: companyA, Name: "Corte", Price: dec("50"), Duration: 30, Active: true})

	f.queue = service.NewConfirmationQueue(5*time.Second, f.metrics, logger)
	memPrefs := prefs.NewMemory()
	tenantStores := service.TenantStores{
		Companies:     f.companies,
		Services:      f.services,
		Professionals: f.professionals,
		Appointments:  f.appointments,
		Clients:       f.clients,
		Expenses:      f.expenses,
	}
	deps := service.Deps{
		Stores: service.Stores{
			TenantStores:  tenantStores,
			Coupons:       f.coupons,
			Invoices:      f.invoices,
			Notifications: f.notifications,
			Tickets:       f.tickets,
			Profiles:      f.profiles,
			Provisioner:   noProvisioner{},
		},
		Data:     service.NewTenantData(tenantStores, cache.New[*service.WorkingSet](time.Minute), time.Second, f.feed, f.metrics, logger),
		Gate:     f.queue,
		Toasts:   f.feed,
		Policy:   service.Policy{TrialDays: 14},
		Metrics:  f.metrics,
		Logger:   logger,
		Identity: service.NewIdentityService(jwtSecret, f.profiles, cache.New[domain.Identity](time.Minute), logger),
		Platform: service.NewPlatformConfig(memPrefs, logger),
		Landing:  service.NewLandingDrafts(memPrefs, logger),
		Queue:    f.queue,
	}
	cfg := handler.Config{
		Toasts:         f.feed,
		Metrics:        f.metrics,
		Logger:         logger,
		AllowedOrigins: []string{"http://localhost:5173"},
	}
	for _, opt := range opts {
		opt(&deps, &cfg)
	}
	f.svc = service.NewServices(deps)
	cfg.Services = f.svc
	f.router = handler.NewRouter(cfg)
	return f
}

func token(t *testing.T, userID string) string {
	t.Helper()
	claims := service.AccessClaims{
		Email: userID + "@example.com",
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(jwtSecret))
	require.NoError(t, err)
	return signed
}

// do sends a request as userID ("" for anonymous) and returns the recorder.
func (f *fixture) do(method, path, userID, body string, headers ...string) *httptest.ResponseRecorder {
	f.t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+token(f.t, userID))
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}
