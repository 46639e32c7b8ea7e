package service_test

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/boddenberg/agenda-bfa-go/internal/domain"
	"github.com/boddenberg/agenda-bfa-go/internal/infra/cache"
	"github.com/boddenberg/agenda-bfa-go/internal/infra/notify"
	"github.com/boddenberg/agenda-bfa-go/internal/infra/observability"
	"github.com/boddenberg/agenda-bfa-go/internal/port"
	"github.com/boddenberg/agenda-bfa-go/internal/service"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// --- Mocks ---

// memStore is an in-memory EntityStore with the same version semantics as
// the PostgREST tables: updated_at is the version token.
type memStore[T domain.Record] struct {
	mu      sync.Mutex
	items   map[string]T
	stamp   func(T, time.Time) T
	clock   time.Time
	findBy  func(T, string, string) bool
	leak    []T // returned by ListByCompany regardless of tenant
	delay   time.Duration
	listErr error
	getErr  error
	newErr  error
	updErr  error
	delErr  error

	lists   atomic.Int32
	creates atomic.Int32
	updates atomic.Int32
	deletes atomic.Int32
	// beforeUpdate runs once before the version check, outside the lock.
	beforeUpdate func()
}

func newMemStore[T domain.Record](stamp func(T, time.Time) T, seed ...T) *memStore[T] {
	s := &memStore[T]{
		items: make(map[string]T),
		stamp: stamp,
		clock: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	for _, e := range seed {
		s.items[e.RecordID()] = s.tick(e)
	}
	return s
}

func (s *memStore[T]) tick(e T) T {
	s.clock = s.clock.Add(time.Second)
	return s.stamp(e, s.clock)
}

func (s *memStore[T]) List(ctx context.Context) ([]T, error) {
	s.lists.Add(1)
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.sorted(func(T) bool { return true }), nil
}

func (s *memStore[T]) ListByCompany(ctx context.Context, companyID string) ([]T, error) {
	s.lists.Add(1)
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := s.sorted(func(e T) bool { return e.Tenant() == companyID })
	return append(out, s.leak...), nil
}

func (s *memStore[T]) FindBy(_ context.Context, column, value string) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findBy == nil {
		return nil, nil
	}
	return s.sorted(func(e T) bool { return s.findBy(e, column, value) }), nil
}

func (s *memStore[T]) Get(_ context.Context, id string) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero T
	if s.getErr != nil {
		return zero, s.getErr
	}
	e, ok := s.items[id]
	if !ok {
		return zero, &domain.ErrNotFound{Resource: "registro", ID: id}
	}
	return e, nil
}

func (s *memStore[T]) Create(_ context.Context, e T) (T, error) {
	s.creates.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero T
	if s.newErr != nil {
		return zero, s.newErr
	}
	if _, ok := s.items[e.RecordID()]; ok {
		return zero, &domain.ErrConflict{Kind: domain.ConflictDuplicate, Message: "duplicate"}
	}
	e = s.tick(e)
	s.items[e.RecordID()] = e
	return e, nil
}

func (s *memStore[T]) Update(_ context.Context, e T, version string) (T, error) {
	s.updates.Add(1)
	if hook := s.takeHook(); hook != nil {
		hook()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero T
	if s.updErr != nil {
		return zero, s.updErr
	}
	cur, ok := s.items[e.RecordID()]
	if !ok || cur.Tenant() != e.Tenant() {
		return zero, &domain.ErrNotFound{Resource: "registro", ID: e.RecordID()}
	}
	if cur.Version() != version {
		return zero, &domain.ErrConflict{Kind: domain.ConflictStale, Message: "stale"}
	}
	e = s.tick(e)
	s.items[e.RecordID()] = e
	return e, nil
}

func (s *memStore[T]) Delete(_ context.Context, companyID, id string) error {
	s.deletes.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.delErr != nil {
		return s.delErr
	}
	cur, ok := s.items[id]
	if !ok || (companyID != "" && cur.Tenant() != companyID) {
		return &domain.ErrNotFound{Resource: "registro", ID: id}
	}
	delete(s.items, id)
	return nil
}

// put replaces a row directly, bumping its version.
func (s *memStore[T]) put(e T) T {
	s.mu.Lock()
	defer s.mu.Unlock()
	e = s.tick(e)
	s.items[e.RecordID()] = e
	return e
}

func (s *memStore[T]) row(id string) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[id]
	return e, ok
}

func (s *memStore[T]) takeHook() func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.beforeUpdate
	s.beforeUpdate = nil
	return h
}

func (s *memStore[T]) wait(ctx context.Context) error {
	if s.delay <= 0 {
		return nil
	}
	select {
	case <-time.After(s.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *memStore[T]) sorted(keep func(T) bool) []T {
	out := make([]T, 0, len(s.items))
	for _, e := range s.items {
		if keep(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecordID() < out[j].RecordID() })
	return out
}

// Version stamps per entity.

func stampCompany(c domain.Company, t time.Time) domain.Company {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = t
	}
	c.UpdatedAt = t
	return c
}

func stampService(e domain.Service, t time.Time) domain.Service {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = t
	}
	e.UpdatedAt = t
	return e
}

func stampProfessional(e domain.Professional, t time.Time) domain.Professional {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = t
	}
	e.UpdatedAt = t
	return e
}

func stampAppointment(e domain.Appointment, t time.Time) domain.Appointment {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = t
	}
	e.UpdatedAt = t
	return e
}

func stampClient(e domain.Client, t time.Time) domain.Client {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = t
	}
	e.UpdatedAt = t
	return e
}

func stampExpense(e domain.Expense, t time.Time) domain.Expense {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = t
	}
	e.UpdatedAt = t
	return e
}

func stampCoupon(e domain.Coupon, t time.Time) domain.Coupon {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = t
	}
	e.UpdatedAt = t
	return e
}

func stampInvoice(e domain.Invoice, t time.Time) domain.Invoice {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = t
	}
	e.UpdatedAt = t
	return e
}

func stampNotification(e domain.Notification, t time.Time) domain.Notification {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = t
	}
	e.UpdatedAt = t
	return e
}

func stampTicket(e domain.Ticket, t time.Time) domain.Ticket {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = t
	}
	e.UpdatedAt = t
	return e
}

type mockProfiles struct {
	mu       sync.Mutex
	profiles map[string]domain.Identity
	links    int
	err      error
}

func (m *mockProfiles) GetProfile(_ context.Context, userID string) (*domain.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.profiles[userID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "perfil", ID: userID}
	}
	return &p, nil
}

func (m *mockProfiles) LinkProfile(_ context.Context, userID, companyID string, role domain.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.profiles == nil {
		m.profiles = make(map[string]domain.Identity)
	}
	p := m.profiles[userID]
	p.UserID, p.CompanyID, p.Role = userID, companyID, role
	m.profiles[userID] = p
	m.links++
	return nil
}

// mockProvisioner mimics the create-professional function by inserting the
// professional row itself.
type mockProvisioner struct {
	pros  *memStore[domain.Professional]
	calls atomic.Int32
	err   error
}

func (m *mockProvisioner) CreateProfessionalUser(ctx context.Context, invite domain.ProfessionalInvite) (*domain.ProfessionalInviteResult, error) {
	m.calls.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	userID := "user-" + invite.Email
	_, err := m.pros.Create(ctx, domain.Professional{
		ID:        "pro-" + invite.Email,
		CompanyID: invite.CompanyID,
		UserID:    userID,
		Name:      invite.Name,
		Email:     invite.Email,
		Active:    true,
	})
	if err != nil {
		return nil, err
	}
	return &domain.ProfessionalInviteResult{Success: true, UserID: userID, TemporaryPassword: "tmp-123"}, nil
}

// answerGate answers every prompt with a fixed decision.
type answerGate struct {
	mu      sync.Mutex
	answer  bool
	err     error
	prompts []domain.Prompt
}

func (g *answerGate) Confirm(_ context.Context, p domain.Prompt) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, p)
	return g.answer, g.err
}

func (g *answerGate) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

// --- Harness ---

const (
	companyA = "company-a"
	companyB = "company-b"
)

var (
	adminA = domain.Identity{UserID: "user-admin-a", Email: "a@example.com", CompanyID: companyA, Role: domain.RoleCompanyAdmin}
	adminB = domain.Identity{UserID: "user-admin-b", Email: "b@example.com", CompanyID: companyB, Role: domain.RoleCompanyAdmin}
	super  = domain.Identity{UserID: "user-super", Email: "root@example.com", Role: domain.RoleSuperAdmin}
)

type harness struct {
	companies     *memStore[domain.Company]
	services      *memStore[domain.Service]
	professionals *memStore[domain.Professional]
	appointments  *memStore[domain.Appointment]
	clients       *memStore[domain.Client]
	expenses      *memStore[domain.Expense]
	coupons       *memStore[domain.Coupon]
	invoices      *memStore[domain.Invoice]
	notifications *memStore[domain.Notification]
	tickets       *memStore[domain.Ticket]
	profiles      *mockProfiles
	provisioner   *mockProvisioner

	gate    *answerGate
	feed    *notify.Feed
	metrics *observability.Metrics
	now     time.Time
	deps    service.Deps
	svc     *service.Services
}

type harnessOption func(*harness, *service.Deps)

func withDoubleBookingRejected() harnessOption {
	return func(_ *harness, d *service.Deps) { d.Policy.RejectDoubleBooking = true }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()

	trialEnds := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	h := &harness{
		companies: newMemStore(stampCompany,
			domain.Company{ID: companyA, Name: "Barbearia A", Plan: domain.PlanBasic, Status: domain.CompanyTrial, TrialEndsAt: &trialEnds, CustomURL: "barbearia-a"},
			domain.Company{ID: companyB, Name: "Salão B", Plan: domain.PlanProfessional, Status: domain.CompanyActive, CustomURL: "salao-b"},
		),
		services:      newMemStore(stampService),
		professionals: newMemStore(stampProfessional),
		appointments:  newMemStore(stampAppointment),
		clients:       newMemStore(stampClient),
		expenses:      newMemStore(stampExpense),
		coupons:       newMemStore(stampCoupon),
		invoices:      newMemStore(stampInvoice),
		notifications: newMemStore(stampNotification),
		tickets:       newMemStore(stampTicket),
		profiles:      &mockProfiles{profiles: map[string]domain.Identity{}},
		gate:          &answerGate{answer: true},
		feed:          notify.NewFeed(100, zap.NewNop()),
		metrics:       observability.NewMetrics(),
		now:           time.Date(2026, 3, 18, 12, 0, 0, 0, time.UTC),
	}
	h.professionals.findBy = func(p domain.Professional, column, value string) bool {
		return column == "user_id" && p.UserID == value
	}
	h.provisioner = &mockProvisioner{pros: h.professionals}
	h.build(opts...)
	return h
}

// build (re)creates the services over the current stores.
func (h *harness) build(opts ...harnessOption) {
	logger := zap.NewNop()
	tenantStores := service.TenantStores{
		Companies:     h.companies,
		Services:      h.services,
		Professionals: h.professionals,
		Appointments:  h.appointments,
		Clients:       h.clients,
		Expenses:      h.expenses,
	}
	data := service.NewTenantData(tenantStores, cache.New[*service.WorkingSet](time.Minute), time.Second, h.feed, h.metrics, logger)
	d := service.Deps{
		Stores: service.Stores{
			TenantStores:  tenantStores,
			Coupons:       h.coupons,
			Invoices:      h.invoices,
			Notifications: h.notifications,
			Tickets:       h.tickets,
			Profiles:      h.profiles,
			Provisioner:   h.provisioner,
		},
		Data:     data,
		Gate:     h.gate,
		Toasts:   h.feed,
		Policy:   service.Policy{TrialDays: 14},
		Metrics:  h.metrics,
		Logger:   logger,
		Now:      func() time.Time { return h.now },
		Identity: service.NewIdentityService("secret", h.profiles, cache.New[domain.Identity](time.Minute), logger),
	}
	for _, opt := range opts {
		opt(h, &d)
	}
	h.deps = d
	h.svc = service.NewServices(d)
}

// depsWithGate returns the harness dependencies with another confirmation gate.
func (h *harness) depsWithGate(gate port.Confirmer) service.Deps {
	d := h.deps
	d.Gate = gate
	if d.Now == nil {
		d.Now = func() time.Time { return h.now }
	}
	return d
}

// toasts returns the toasts of a scope, oldest first.
func (h *harness) toasts(scope string) []domain.Toast {
	return h.feed.Recent(scope, time.Time{})
}

func (h *harness) lastToast(scope string) domain.Toast {
	all := h.toasts(scope)
	if len(all) == 0 {
		return domain.Toast{}
	}
	return all[len(all)-1]
}
