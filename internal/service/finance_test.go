package service_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/boddenberg/agenda-bfa-go/internal/domain"
	"github.com/boddenberg/agenda-bfa-go/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFinance_ExpensesByMonth(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for _, e := range []domain.Expense{
		{Description: "Aluguel", Amount: dec("1200"), Date: "2026-03-05"},
		{Description: "Produtos", Amount: dec("300"), Date: "2026-03-12"},
		{Description: "Luz", Amount: dec("180"), Date: "2026-02-20"},
		{Description: "Água", Amount: dec("90")},
	} {
		_, err := h.svc.Finance.CreateExpense(ctx, adminA, e)
		require.NoError(t, err)
	}

	march, err := h.svc.Finance.ListExpenses(ctx, adminA, "2026-03")
	require.NoError(t, err)
	require.Len(t, march, 3)
	assert.Equal(t, "Água", march[0].Description, "date defaults to today")
	assert.Equal(t, "2026-03-18", march[0].Date)
	assert.Equal(t, "Produtos", march[1].Description)

	all, err := h.svc.Finance.ListExpenses(ctx, adminA, "")
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestFinance_InvoicePaymentStamps(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	inv, err := h.svc.Finance.CreateInvoice(ctx, domain.Invoice{CompanyID: companyA, Amount: dec("49.90"), ReferenceMonth: "2026-03", DueDate: "2026-03-10"})
	require.NoError(t, err)
	assert.Equal(t, domain.InvoicePending, inv.Status)
	assert.Equal(t, domain.InvoiceOverdue, inv.EffectiveStatus)
	assert.Nil(t, inv.PaidAt)
	assert.Equal(t, "Fatura criada com sucesso", h.lastToast(service.PlatformScope).Title)
	assert.Empty(t, h.toasts(companyA), "platform actions toast to the platform")

	paid, err := h.svc.Finance.UpdateInvoice(ctx, inv.ID, inv.Version(), json.RawMessage(`{"status":"paid"}`))
	require.NoError(t, err)
	require.NotNil(t, paid.PaidAt)
	assert.True(t, paid.PaidAt.Equal(h.now))
	assert.Equal(t, domain.InvoicePaid, paid.EffectiveStatus)

	reopened, err := h.svc.Finance.UpdateInvoice(ctx, inv.ID, paid.Version(), json.RawMessage(`{"status":"pending"}`))
	require.NoError(t, err)
	assert.Nil(t, reopened.PaidAt)
}

func TestFinance_CompanySeesOnlyOwnInvoices(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Finance.CreateInvoice(ctx, domain.Invoice{CompanyID: companyA, Amount: dec("49.90"), ReferenceMonth: "2026-02", DueDate: "2026-02-10", Status: domain.InvoicePaid})
	require.NoError(t, err)
	_, err = h.svc.Finance.CreateInvoice(ctx, domain.Invoice{CompanyID: companyA, Amount: dec("49.90"), ReferenceMonth: "2026-03", DueDate: "2026-03-25"})
	require.NoError(t, err)
	_, err = h.svc.Finance.CreateInvoice(ctx, domain.Invoice{CompanyID: companyB, Amount: dec("99.90"), ReferenceMonth: "2026-03", DueDate: "2026-03-25"})
	require.NoError(t, err)

	own, err := h.svc.Finance.CompanyInvoices(ctx, adminA)
	require.NoError(t, err)
	require.Len(t, own, 2)
	assert.Equal(t, "2026-03", own[0].ReferenceMonth)
	assert.NotNil(t, own[1].PaidAt)

	all, err := h.svc.Finance.AllInvoices(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	onlyB, err := h.svc.Finance.AllInvoices(ctx, companyB)
	require.NoError(t, err)
	assert.Len(t, onlyB, 1)

	_, err = h.svc.Finance.CompanyInvoices(ctx, super)
	var forbidden *domain.ErrForbidden
	assert.ErrorAs(t, err, &forbidden)
}
