package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/boddenberg/agenda-bfa-go/internal/domain"
	"github.com/boddenberg/agenda-bfa-go/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCrud_CreateAppendsAndToasts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	created, err := h.svc.Catalog.CreateService(ctx, adminA, domain.Service{Name: " Corte ", Price: dec("45.50"), Duration: 30, Active: true})
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, companyA, created.CompanyID)
	assert.Equal(t, "Corte", created.Name)
	assert.NotEmpty(t, created.Version())

	list, err := h.svc.Catalog.ListServices(ctx, adminA)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, created, list[0])

	last := h.lastToast(companyA)
	assert.Equal(t, domain.ToastSuccess, last.Kind)
	assert.Equal(t, "Serviço criado com sucesso", last.Title)
	assert.Equal(t, int64(1), h.metrics.Snapshot().CrudSuccess)
}

func TestCrud_NegativePriceRejectedBeforeRemote(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.Catalog.CreateService(context.Background(), adminA, domain.Service{Name: "Corte", Price: dec("-1"), Duration: 30})

	var verr *domain.ErrValidation
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "price", verr.Field)
	assert.Equal(t, int32(0), h.services.creates.Load(), "no remote call")
	assert.Equal(t, "Erro ao criar serviço", h.lastToast(companyA).Title)
	assert.Equal(t, domain.ToastError, h.lastToast(companyA).Kind)
}

func TestCrud_RemoteFailureLeavesCollectionUntouched(t *testing.T) {
	h := newHarness(t)
	seedTenantA(h)
	ctx := context.Background()

	before, err := h.svc.Catalog.ListServices(ctx, adminA)
	require.NoError(t, err)

	h.services.newErr = &domain.ErrExternalService{Service: "supabase", Err: errors.New("500")}
	_, err = h.svc.Catalog.CreateService(ctx, adminA, domain.Service{Name: "Novo", Price: dec("10"), Duration: 15})
	require.Error(t, err)

	h.services.updErr = &domain.ErrExternalService{Service: "supabase", Err: errors.New("500")}
	_, err = h.svc.Catalog.UpdateService(ctx, adminA, "svc-1", "", json.RawMessage(`{"name":"Outro"}`))
	require.Error(t, err)

	h.services.delErr = &domain.ErrExternalService{Service: "supabase", Err: errors.New("500")}
	_, err = h.svc.Catalog.DeleteService(ctx, adminA, "svc-1")
	require.Error(t, err)

	after, err := h.svc.Catalog.ListServices(ctx, adminA)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, int64(3), h.metrics.Snapshot().CrudFailure)
}

func TestCrud_UpdateAppliesPatch(t *testing.T) {
	h := newHarness(t)
	seedTenantA(h)
	ctx := context.Background()

	ws, err := h.svc.Data.ForIdentity(ctx, adminA)
	require.NoError(t, err)
	cur, _ := ws.Services.Find("svc-1")

	updated, err := h.svc.Catalog.UpdateService(ctx, adminA, "svc-1", cur.Version(),
		json.RawMessage(`{"price":"60","companyId":"company-b","id":"hijack"}`))
	require.NoError(t, err)

	assert.Equal(t, "svc-1", updated.ID)
	assert.Equal(t, companyA, updated.CompanyID, "identity fields are ignored")
	assert.True(t, updated.Price.Equal(dec("60")))
	assert.Equal(t, "Corte", updated.Name)
	assert.NotEqual(t, cur.Version(), updated.Version())

	local, _ := ws.Services.Find("svc-1")
	assert.Equal(t, updated, local)
	assert.Equal(t, "Serviço atualizado com sucesso", h.lastToast(companyA).Title)
}

func TestCrud_StaleVersionIsConflict(t *testing.T) {
	h := newHarness(t)
	seedTenantA(h)
	ctx := context.Background()

	ws, err := h.svc.Data.ForIdentity(ctx, adminA)
	require.NoError(t, err)
	stale, _ := ws.Services.Find("svc-1")

	// Someone else edits the row remotely.
	remote, _ := h.services.row("svc-1")
	remote.Name = "Corte Premium"
	h.services.put(remote)

	_, err = h.svc.Catalog.UpdateService(ctx, adminA, "svc-1", stale.Version(), json.RawMessage(`{"price":"70"}`))

	var conflict *domain.ErrConflict
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, domain.ConflictStale, conflict.Kind)

	local, _ := ws.Services.Find("svc-1")
	assert.Equal(t, stale, local, "local copy unchanged on conflict")
}

func TestCrud_InvalidPatchIsRejected(t *testing.T) {
	h := newHarness(t)
	seedTenantA(h)

	_, err := h.svc.Catalog.UpdateService(context.Background(), adminA, "svc-1", "", json.RawMessage(`{"duration":0}`))

	var verr *domain.ErrValidation
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, int32(0), h.services.updates.Load())
}

func TestCrud_OtherTenantIsNotFound(t *testing.T) {
	h := newHarness(t)
	seedTenantA(h)
	ctx := context.Background()

	_, err := h.svc.Catalog.UpdateService(ctx, adminB, "svc-1", "", json.RawMessage(`{"name":"Roubado"}`))
	var nf *domain.ErrNotFound
	require.ErrorAs(t, err, &nf)

	_, err = h.svc.Catalog.DeleteService(ctx, adminB, "svc-1")
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, 0, h.gate.count(), "no prompt for a foreign row")

	row, ok := h.services.row("svc-1")
	require.True(t, ok)
	assert.Equal(t, "Corte", row.Name)
}

func TestCrud_DeclinedDeleteKeepsEverything(t *testing.T) {
	h := newHarness(t)
	seedTenantA(h)
	h.gate.answer = false
	ctx := context.Background()

	deleted, err := h.svc.Catalog.DeleteService(ctx, adminA, "svc-1")
	require.NoError(t, err)
	assert.False(t, deleted)

	assert.Equal(t, int32(0), h.services.deletes.Load())
	_, ok := h.services.row("svc-1")
	assert.True(t, ok)
	list, _ := h.svc.Catalog.ListServices(ctx, adminA)
	assert.Len(t, list, 2)
	assert.Equal(t, int64(0), h.metrics.Snapshot().CrudSuccess)
}

func TestCrud_ConfirmedDeleteRemoves(t *testing.T) {
	h := newHarness(t)
	seedTenantA(h)
	ctx := context.Background()

	deleted, err := h.svc.Catalog.DeleteService(ctx, adminA, "svc-1")
	require.NoError(t, err)
	assert.True(t, deleted)

	require.Equal(t, 1, h.gate.count())
	p := h.gate.prompts[0]
	assert.Equal(t, companyA, p.CompanyID)
	assert.Equal(t, "Excluir serviço", p.Title)
	assert.Contains(t, p.Description, "o serviço Corte")
	assert.True(t, p.Destructive)

	_, ok := h.services.row("svc-1")
	assert.False(t, ok)
	list, _ := h.svc.Catalog.ListServices(ctx, adminA)
	assert.Len(t, list, 1)
	assert.Equal(t, "Serviço excluído com sucesso", h.lastToast(companyA).Title)
	assert.Equal(t, int64(1), h.metrics.Snapshot().CrudSuccess)
}

func TestCrud_FeminineEntityMessages(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.Finance.CreateExpense(context.Background(), adminA, domain.Expense{Description: "Aluguel", Amount: dec("1200"), Date: "2026-03-05"})
	require.NoError(t, err)
	assert.Equal(t, "Despesa criada com sucesso", h.lastToast(companyA).Title)
}

func TestCrud_GateErrorAbortsDelete(t *testing.T) {
	h := newHarness(t)
	seedTenantA(h)
	h.gate.err = context.Canceled

	deleted, err := h.svc.Catalog.DeleteService(context.Background(), adminA, "svc-1")
	assert.False(t, deleted)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), h.services.deletes.Load())
}

func TestScopeOf(t *testing.T) {
	assert.Equal(t, service.PlatformScope, service.ScopeOf(super))
	assert.Equal(t, companyA, service.ScopeOf(adminA))
	assert.Equal(t, service.PlatformScope, service.ScopeOf(domain.Identity{UserID: "x"}))
}
