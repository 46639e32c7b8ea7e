package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/boddenberg/agenda-bfa-go/internal/domain"
	"github.com/boddenberg/agenda-bfa-go/internal/infra/cache"
	"github.com/boddenberg/agenda-bfa-go/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func seedTenantA(h *harness) {
	h.services.put(domain.Service{ID: "svc-1", CompanyID: companyA, Name: "Corte", Price: dec("50"), Duration: 30, Active: true})
	h.services.put(domain.Service{ID: "svc-2", CompanyID: companyA, Name: "Barba", Price: dec("30"), Duration: 20, Active: false})
	h.services.put(domain.Service{ID: "svc-b", CompanyID: companyB, Name: "Escova", Price: dec("80"), Duration: 45, Active: true})
	h.professionals.put(domain.Professional{ID: "pro-1", CompanyID: companyA, UserID: "user-pro-1", Name: "João", Active: true})
	h.clients.put(domain.Client{ID: "cli-1", CompanyID: companyA, Name: "Maria", Phone: "(11) 99999-0000"})
}

func TestTenantData_LoadsOnlyOwnRows(t *testing.T) {
	h := newHarness(t)
	seedTenantA(h)
	h.services.leak = []domain.Service{{ID: "svc-leak", CompanyID: companyB, Name: "Intrusa", Duration: 10}}

	ws, err := h.svc.Data.ForIdentity(context.Background(), adminA)
	require.NoError(t, err)

	assert.Equal(t, companyA, ws.CompanyID)
	assert.Equal(t, 2, ws.Services.Len())
	_, leaked := ws.Services.Find("svc-leak")
	assert.False(t, leaked, "row of another company must be dropped")
	assert.Equal(t, 1, ws.Professionals.Len())
	assert.Equal(t, 1, ws.Clients.Len())

	c, ok := ws.CompanyRecord()
	require.True(t, ok)
	assert.Equal(t, "Barbearia A", c.Name)

	assert.Equal(t, int64(1), h.metrics.Snapshot().IsolationDrops)
	assert.NotNil(t, h.svc.Data.Status(companyA).LoadedAt)
}

func TestTenantData_EnsureUsesCache(t *testing.T) {
	h := newHarness(t)
	seedTenantA(h)

	first, err := h.svc.Data.Ensure(context.Background(), companyA)
	require.NoError(t, err)
	second, err := h.svc.Data.Ensure(context.Background(), companyA)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), h.services.lists.Load())
	assert.InDelta(t, 0.5, h.metrics.Snapshot().WorkingSetHitRate, 0.001)
	assert.Equal(t, int64(1), h.metrics.Snapshot().WorkingSets)

	h.svc.Data.Evict(companyA)
	assert.Equal(t, int64(0), h.metrics.Snapshot().WorkingSets)
}

func TestTenantData_ConcurrentLoadsShareOneFetch(t *testing.T) {
	h := newHarness(t)
	seedTenantA(h)
	h.services.delay = 50 * time.Millisecond

	var wg sync.WaitGroup
	sets := make([]*service.WorkingSet, 8)
	for i := range sets {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ws, err := h.svc.Data.Ensure(context.Background(), companyA)
			assert.NoError(t, err)
			sets[i] = ws
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), h.services.lists.Load())
	for _, ws := range sets {
		assert.Same(t, sets[0], ws)
	}
}

func TestTenantData_FailedLoadCommitsNothing(t *testing.T) {
	h := newHarness(t)
	seedTenantA(h)
	ctx := context.Background()

	before, err := h.svc.Data.Ensure(ctx, companyA)
	require.NoError(t, err)

	h.appointments.listErr = &domain.ErrExternalService{Service: "supabase", Err: errors.New("boom")}
	h.expenses.listErr = &domain.ErrTimeout{Operation: "expenses"}

	_, err = h.svc.Data.Reload(ctx, companyA)
	require.Error(t, err)

	var loadErr *service.LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, []string{"appointments", "expenses"}, loadErr.Collections())

	var ext *domain.ErrExternalService
	assert.ErrorAs(t, err, &ext, "causes stay reachable")

	after, ok := h.svc.Data.Peek(companyA)
	require.True(t, ok)
	assert.Same(t, before, after, "previous working set must survive a failed reload")

	st := h.svc.Data.Status(companyA)
	assert.False(t, st.Loading)
	assert.Contains(t, st.Failed, "appointments")
	assert.Contains(t, st.Failed, "expenses")
	assert.NotNil(t, st.LoadedAt)

	last := h.lastToast(companyA)
	assert.Equal(t, domain.ToastError, last.Kind)
	assert.Equal(t, "Erro ao carregar dados", last.Title)
}

func TestTenantData_FirstLoadFailureLeavesCacheEmpty(t *testing.T) {
	h := newHarness(t)
	h.clients.listErr = errors.New("connection reset")

	_, err := h.svc.Data.Ensure(context.Background(), companyA)
	require.Error(t, err)

	_, ok := h.svc.Data.Peek(companyA)
	assert.False(t, ok)
}

func TestTenantData_LoadTimeout(t *testing.T) {
	h := newHarness(t)
	h.services.delay = 500 * time.Millisecond

	data := service.NewTenantData(service.TenantStores{
		Companies:     h.companies,
		Services:      h.services,
		Professionals: h.professionals,
		Appointments:  h.appointments,
		Clients:       h.clients,
		Expenses:      h.expenses,
	}, cache.New[*service.WorkingSet](time.Minute), 30*time.Millisecond, h.feed, h.metrics, zap.NewNop())

	start := time.Now()
	_, err := data.Ensure(context.Background(), companyA)
	require.Error(t, err)

	var timeout *domain.ErrTimeout
	assert.ErrorAs(t, err, &timeout)
	assert.Less(t, time.Since(start), 400*time.Millisecond)
}

func TestTenantData_LoadOutlivesCancelledCaller(t *testing.T) {
	h := newHarness(t)
	seedTenantA(h)
	h.services.delay = 30 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ws, err := h.svc.Data.Ensure(ctx, companyA)
	require.NoError(t, err)
	assert.Equal(t, 2, ws.Services.Len())
}

func TestTenantData_CompanySwitchReloads(t *testing.T) {
	h := newHarness(t)
	seedTenantA(h)
	ctx := context.Background()
	user := adminA

	wsA, err := h.svc.Data.ForIdentity(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, companyA, wsA.CompanyID)

	user.CompanyID = companyB
	wsB, err := h.svc.Data.ForIdentity(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, companyB, wsB.CompanyID)
	assert.Equal(t, 1, wsB.Services.Len())
	_, found := wsB.Services.Find("svc-1")
	assert.False(t, found, "no data of the previous company")
}

func TestTenantData_IdleSessionsAreForgotten(t *testing.T) {
	tests := []struct {
		name      string
		ttl       time.Duration
		idle      time.Duration
		wantLists int32
	}{
		{"recent session reloads on switch", time.Minute, 0, 3},
		{"expired session uses the cached set", 20 * time.Millisecond, 80 * time.Millisecond, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			seedTenantA(h)
			ctx := context.Background()
			stores := service.TenantStores{
				Companies:     h.companies,
				Services:      h.services,
				Professionals: h.professionals,
				Appointments:  h.appointments,
				Clients:       h.clients,
				Expenses:      h.expenses,
			}
			data := service.NewTenantData(stores, cache.New[*service.WorkingSet](time.Minute), time.Second, h.feed, h.metrics, zap.NewNop(),
				service.WithSessions(cache.New[string](tt.ttl)))

			_, err := data.ForIdentity(ctx, adminA)
			require.NoError(t, err)
			_, err = data.Ensure(ctx, companyB)
			require.NoError(t, err)
			require.Equal(t, int32(2), h.services.lists.Load())

			time.Sleep(tt.idle)
			user := adminA
			user.CompanyID = companyB
			ws, err := data.ForIdentity(ctx, user)
			require.NoError(t, err)

			assert.Equal(t, companyB, ws.CompanyID)
			assert.Equal(t, tt.wantLists, h.services.lists.Load())
		})
	}
}

func TestTenantData_RequiresTenant(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.Data.ForIdentity(context.Background(), super)

	var forbidden *domain.ErrForbidden
	assert.ErrorAs(t, err, &forbidden)
}

func TestCollection_NilIsEmpty(t *testing.T) {
	var c *service.Collection[domain.Client]

	assert.Empty(t, c.All())
	assert.Equal(t, 0, c.Len())
	_, ok := c.Find("x")
	assert.False(t, ok)
	c.Upsert(domain.Client{ID: "x"})
	assert.False(t, c.Remove("x"))
}

func TestCollection_AllIsSnapshot(t *testing.T) {
	c := service.NewCollection([]domain.Client{{ID: "1", Name: "A"}})
	snap := c.All()

	c.Upsert(domain.Client{ID: "1", Name: "B"})
	c.Upsert(domain.Client{ID: "2", Name: "C"})

	assert.Equal(t, "A", snap[0].Name)
	assert.Len(t, snap, 1)
	assert.Equal(t, 2, c.Len())
	assert.True(t, c.Remove("1"))
	assert.False(t, c.Remove("1"))
}
