package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/boddenberg/agenda-bfa-go/internal/domain"
	"github.com/boddenberg/agenda-bfa-go/internal/infra/cache"
	"github.com/boddenberg/agenda-bfa-go/internal/infra/observability"
	"github.com/boddenberg/agenda-bfa-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

var dataTracer = otel.Tracer("service/tenant_data")

// ============================================================
// Collection: copy-on-write list of one entity type
// ============================================================

// Collection holds one entity type of a working set. Writers build a new
// slice and swap it in, so a slice handed out by All is never mutated.
// A nil *Collection behaves as an empty, read-only collection.
type Collection[T domain.Record] struct {
	mu    sync.RWMutex
	items []T
}

// NewCollection wraps items.
func NewCollection[T domain.Record](items []T) *Collection[T] {
	return &Collection[T]{items: append([]T(nil), items...)}
}

// All returns a copy of the items.
func (c *Collection[T]) All() []T {
	if c == nil {
		return []T{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of items.
func (c *Collection[T]) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Find returns the item with the given id.
func (c *Collection[T]) Find(id string) (T, bool) {
	var zero T
	if c == nil {
		return zero, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, e := range c.items {
		if e.RecordID() == id {
			return e, true
		}
	}
	return zero, false
}

// Upsert replaces the item with e's id, or appends e.
func (c *Collection[T]) Upsert(e T) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	next := make([]T, 0, len(c.items)+1)
	replaced := false
	for _, cur := range c.items {
		if cur.RecordID() == e.RecordID() {
			if !replaced {
				next = append(next, e)
				replaced = true
			}
			continue
		}
		next = append(next, cur)
	}
	if !replaced {
		next = append(next, e)
	}
	c.items = next
}

// Remove drops the item with id and reports whether it was present.
func (c *Collection[T]) Remove(id string) bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	next := make([]T, 0, len(c.items))
	for _, cur := range c.items {
		if cur.RecordID() != id {
			next = append(next, cur)
		}
	}
	removed := len(next) != len(c.items)
	c.items = next
	return removed
}

// ============================================================
// WorkingSet: one tenant's in-memory collections
// ============================================================

// WorkingSet is the in-memory data of one company, shared by every session
// of that tenant in this process.
type WorkingSet struct {
	CompanyID     string
	Company       *Collection[domain.Company]
	Services      *Collection[domain.Service]
	Professionals *Collection[domain.Professional]
	Appointments  *Collection[domain.Appointment]
	Clients       *Collection[domain.Client]
	Expenses      *Collection[domain.Expense]
	LoadedAt      time.Time
}

// CompanyRecord returns the tenant root.
func (ws *WorkingSet) CompanyRecord() (domain.Company, bool) {
	return ws.Company.Find(ws.CompanyID)
}

// LoadError lists the collections that failed during a working-set load.
// Nothing is committed when it is returned.
type LoadError struct {
	CompanyID string
	Failed    map[string]error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("falha ao carregar dados da empresa %s: %s", e.CompanyID, strings.Join(e.Collections(), ", "))
}

// Unwrap exposes the per-collection causes to errors.Is/As.
func (e *LoadError) Unwrap() []error {
	out := make([]error, 0, len(e.Failed))
	for _, name := range e.Collections() {
		out = append(out, e.Failed[name])
	}
	return out
}

// Collections returns the failed collection names, sorted.
func (e *LoadError) Collections() []string {
	names := make([]string, 0, len(e.Failed))
	for name := range e.Failed {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TenantStores are the remote stores behind a working set.
type TenantStores struct {
	Companies     port.EntityStore[domain.Company]
	Services      port.EntityStore[domain.Service]
	Professionals port.EntityStore[domain.Professional]
	Appointments  port.EntityStore[domain.Appointment]
	Clients       port.EntityStore[domain.Client]
	Expenses      port.EntityStore[domain.Expense]
}

// ============================================================
// TenantData: the tenant data cache
// ============================================================

// TenantData loads, caches and hands out working sets.
type TenantData struct {
	stores      TenantStores
	sets        port.Cache[*WorkingSet]
	loads       singleflight.Group
	loadTimeout time.Duration
	toasts      port.Notifier
	metrics     *observability.Metrics
	logger      *zap.Logger

	mu       sync.Mutex
	status   map[string]domain.LoadStatus
	sessions port.Cache[string] // user id -> company id of the last request
}

// defaultSessionTTL is how long a user's last company is remembered.
const defaultSessionTTL = 15 * time.Minute

// TenantDataOption customizes a TenantData.
type TenantDataOption func(*TenantData)

// WithSessions sets the cache remembering each user's last company. An idle
// user is forgotten when the entry expires.
func WithSessions(sessions port.Cache[string]) TenantDataOption {
	return func(d *TenantData) {
		if sessions != nil {
			d.sessions = sessions
		}
	}
}

// NewTenantData creates the tenant data cache.
func NewTenantData(stores TenantStores, sets port.Cache[*WorkingSet], loadTimeout time.Duration, toasts port.Notifier, metrics *observability.Metrics, logger *zap.Logger, opts ...TenantDataOption) *TenantData {
	if loadTimeout <= 0 {
		loadTimeout = 15 * time.Second
	}
	d := &TenantData{
		stores:      stores,
		sets:        sets,
		loadTimeout: loadTimeout,
		toasts:      toasts,
		metrics:     metrics,
		logger:      logger,
		status:      make(map[string]domain.LoadStatus),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.sessions == nil {
		d.sessions = cache.New[string](defaultSessionTTL)
	}
	return d
}

// ForIdentity returns the caller's working set. When the caller's company
// differs from the one seen on their previous request the set is reloaded
// wholesale.
func (d *TenantData) ForIdentity(ctx context.Context, ident domain.Identity) (*WorkingSet, error) {
	if !ident.HasTenant() {
		return nil, &domain.ErrForbidden{Action: "acessar dados sem empresa vinculada"}
	}

	d.mu.Lock()
	prev, seen := d.sessions.Get(ident.UserID)
	d.sessions.Set(ident.UserID, ident.CompanyID)
	d.mu.Unlock()

	if seen && prev != ident.CompanyID {
		d.logger.Info("session company changed, reloading working set",
			zap.String("user_id", ident.UserID),
			zap.String("from_company_id", prev),
			zap.String("company_id", ident.CompanyID),
		)
		return d.Reload(ctx, ident.CompanyID)
	}
	return d.Ensure(ctx, ident.CompanyID)
}

// Ensure returns the cached working set, loading it on a miss.
func (d *TenantData) Ensure(ctx context.Context, companyID string) (*WorkingSet, error) {
	if ws, ok := d.sets.Get(companyID); ok {
		d.metrics.IncrCacheHit("working_set")
		return ws, nil
	}
	d.metrics.IncrCacheMiss("working_set")
	return d.load(ctx, companyID)
}

// Reload fetches the working set again, replacing the cached one only if
// every collection loads.
func (d *TenantData) Reload(ctx context.Context, companyID string) (*WorkingSet, error) {
	return d.load(ctx, companyID)
}

// Peek returns the cached working set without loading.
func (d *TenantData) Peek(companyID string) (*WorkingSet, bool) {
	return d.sets.Get(companyID)
}

// Evict drops the cached working set of a company.
func (d *TenantData) Evict(companyID string) {
	d.sets.Delete(companyID)
	d.metrics.SetWorkingSets(d.sets.Len())
}

// Status reports the load state of a company's working set.
func (d *TenantData) Status(companyID string) domain.LoadStatus {
	d.mu.Lock()
	defer d.mu.Unlock()

	st, ok := d.status[companyID]
	if !ok {
		return domain.LoadStatus{CompanyID: companyID}
	}
	return st
}

func (d *TenantData) setStatus(st domain.LoadStatus) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if prev, ok := d.status[st.CompanyID]; ok && st.LoadedAt == nil {
		st.LoadedAt = prev.LoadedAt
	}
	d.status[st.CompanyID] = st
}

// load collapses concurrent loads of the same company into one fetch. The
// fetch outlives a cancelled caller but not the load timeout.
func (d *TenantData) load(ctx context.Context, companyID string) (*WorkingSet, error) {
	v, err, _ := d.loads.Do(companyID, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.loadTimeout)
		defer cancel()
		return d.fetch(loadCtx, companyID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*WorkingSet), nil
}

func (d *TenantData) fetch(ctx context.Context, companyID string) (*WorkingSet, error) {
	ctx, span := dataTracer.Start(ctx, "TenantData.Load")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", companyID))

	start := time.Now()
	d.setStatus(domain.LoadStatus{CompanyID: companyID, Loading: true})

	var (
		mu            sync.Mutex
		failed        = make(map[string]error)
		company       domain.Company
		services      []domain.Service
		professionals []domain.Professional
		appointments  []domain.Appointment
		clients       []domain.Client
		expenses      []domain.Expense
	)
	fail := func(name string, err error) error {
		mu.Lock()
		failed[name] = err
		mu.Unlock()
		return err
	}

	// No shared cancellation: every collection reports its own outcome.
	var g errgroup.Group
	g.Go(func() error {
		c, err := d.stores.Companies.Get(ctx, companyID)
		if err != nil {
			return fail("company", err)
		}
		if c.ID != companyID {
			return fail("company", &domain.ErrNotFound{Resource: "empresa", ID: companyID})
		}
		company = c
		return nil
	})
	fetchInto(&g, ctx, d, companyID, "services", d.stores.Services, &services, fail)
	fetchInto(&g, ctx, d, companyID, "professionals", d.stores.Professionals, &professionals, fail)
	fetchInto(&g, ctx, d, companyID, "appointments", d.stores.Appointments, &appointments, fail)
	fetchInto(&g, ctx, d, companyID, "clients", d.stores.Clients, &clients, fail)
	fetchInto(&g, ctx, d, companyID, "expenses", d.stores.Expenses, &expenses, fail)
	_ = g.Wait()

	d.metrics.RecordRequestDuration("tenant_data.load", time.Since(start))

	var err error
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		err = &domain.ErrTimeout{Operation: "carregar dados da empresa " + companyID}
	case len(failed) > 0:
		err = &LoadError{CompanyID: companyID, Failed: failed}
	}
	if err != nil {
		d.logger.Error("working set load failed",
			zap.String("company_id", companyID),
			zap.Duration("latency", time.Since(start)),
			zap.Error(err),
		)
		d.metrics.IncrExternalError("supabase")
		d.toasts.Error(tenantScope(companyID), "Erro ao carregar dados", err.Error())
		st := domain.LoadStatus{CompanyID: companyID, Error: err.Error()}
		if len(failed) > 0 {
			st.Failed = make(map[string]string, len(failed))
			for name, cause := range failed {
				st.Failed[name] = cause.Error()
			}
		}
		d.setStatus(st)
		return nil, err
	}

	domain.SortAppointments(appointments)
	now := time.Now().UTC()
	ws := &WorkingSet{
		CompanyID:     companyID,
		Company:       NewCollection([]domain.Company{company}),
		Services:      NewCollection(services),
		Professionals: NewCollection(professionals),
		Appointments:  NewCollection(appointments),
		Clients:       NewCollection(clients),
		Expenses:      NewCollection(expenses),
		LoadedAt:      now,
	}
	d.sets.Set(companyID, ws)
	d.metrics.SetWorkingSets(d.sets.Len())
	d.setStatus(domain.LoadStatus{CompanyID: companyID, LoadedAt: &now})

	d.logger.Debug("working set loaded",
		zap.String("company_id", companyID),
		zap.Int("services", len(services)),
		zap.Int("professionals", len(professionals)),
		zap.Int("appointments", len(appointments)),
		zap.Int("clients", len(clients)),
		zap.Int("expenses", len(expenses)),
		zap.Duration("latency", time.Since(start)),
	)
	return ws, nil
}

func fetchInto[T domain.Record](g *errgroup.Group, ctx context.Context, d *TenantData, companyID, name string, store port.EntityStore[T], dst *[]T, fail func(string, error) error) {
	g.Go(func() error {
		rows, err := store.ListByCompany(ctx, companyID)
		if err != nil {
			return fail(name, err)
		}
		*dst = isolate(d, companyID, name, rows)
		return nil
	})
}

// isolate discards rows owned by another company.
func isolate[T domain.Record](d *TenantData, companyID, name string, rows []T) []T {
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		if r.Tenant() != companyID {
			d.metrics.IncrIsolationDrop(name)
			d.logger.Warn("dropping row of another company",
				zap.String("company_id", companyID),
				zap.String("entity", name),
				zap.String("id", r.RecordID()),
				zap.String("row_company_id", r.Tenant()),
			)
			continue
		}
		out = append(out, r)
	}
	return out
}
