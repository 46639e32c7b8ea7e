package handler

import (
	"net/http"

	"github.com/boddenberg/agenda-bfa-go/internal/domain"
	"github.com/boddenberg/agenda-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Finance: company expenses and platform invoices
// ============================================================

func listExpensesHandler(finance *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/company/expenses")
		defer span.End()

		list, err := finance.ListExpenses(ctx, IdentityFromContext(ctx), r.URL.Query().Get("month"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func createExpenseHandler(finance *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/company/expenses")
		defer span.End()

		var req domain.Expense
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		created, err := finance.CreateExpense(ctx, IdentityFromContext(ctx), req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeRecord(w, http.StatusCreated, created)
	}
}

func updateExpenseHandler(finance *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/company/expenses/{id}")
		defer span.End()

		patch, version, err := readPatch(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		updated, err := finance.UpdateExpense(ctx, IdentityFromContext(ctx), chi.URLParam(r, "id"), version, patch)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeRecord(w, http.StatusOK, updated)
	}
}

func deleteExpenseHandler(finance *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/company/expenses/{id}")
		defer span.End()

		id := chi.URLParam(r, "id")
		ok, err := finance.DeleteExpense(ctx, IdentityFromContext(ctx), id)
		writeRemoved(w, ok, err, id, "excluir despesa", logger)
	}
}

func companyInvoicesHandler(finance *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/company/invoices")
		defer span.End()

		list, err := finance.CompanyInvoices(ctx, IdentityFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// ---- super admin ----

func listAllInvoicesHandler(finance *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/admin/invoices")
		defer span.End()

		list, err := finance.AllInvoices(ctx, r.URL.Query().Get("companyId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func createInvoiceHandler(finance *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/admin/invoices")
		defer span.End()

		var req domain.Invoice
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		created, err := finance.CreateInvoice(ctx, req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeRecord(w, http.StatusCreated, created)
	}
}

func updateInvoiceHandler(finance *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/admin/invoices/{id}")
		defer span.End()

		patch, version, err := readPatch(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		updated, err := finance.UpdateInvoice(ctx, chi.URLParam(r, "id"), version, patch)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeRecord(w, http.StatusOK, updated)
	}
}

func deleteInvoiceHandler(finance *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/admin/invoices/{id}")
		defer span.End()

		id := chi.URLParam(r, "id")
		ok, err := finance.DeleteInvoice(ctx, id)
		writeRemoved(w, ok, err, id, "excluir fatura", logger)
	}
}
