package handler

import (
	"encoding/json"
	"net/http"

	"github.com/boddenberg/agenda-bfa-go/internal/domain"
	"github.com/boddenberg/agenda-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Companies: signup, own profile, admin management, public page
// ============================================================

func bookingPageHandler(companies *service.CompanyService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/public/agendar/{customUrl}")
		defer span.End()

		page, err := companies.BookingPage(ctx, chi.URLParam(r, "customUrl"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

func signupHandler(companies *service.CompanyService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/signup")
		defer span.End()

		var req domain.SignupRequest
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		company, err := companies.Signup(ctx, IdentityFromContext(ctx), req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeRecord(w, http.StatusCreated, company)
	}
}

type urlAvailableResponse struct {
	URL       string `json:"url"`
	Available bool   `json:"available"`
}

func urlAvailableHandler(companies *service.CompanyService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		slug := r.URL.Query().Get("url")
		free, err := companies.URLAvailable(ctx, slug, r.URL.Query().Get("exclude"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, urlAvailableResponse{URL: domain.NormalizeSlug(slug), Available: free})
	}
}

func getOwnCompanyHandler(companies *service.CompanyService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		company, err := companies.Own(ctx, IdentityFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeRecord(w, http.StatusOK, company)
	}
}

func updateOwnCompanyHandler(companies *service.CompanyService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/company")
		defer span.End()

		patch, version, err := readPatch(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		company, err := companies.UpdateOwn(ctx, IdentityFromContext(ctx), version, patch)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeRecord(w, http.StatusOK, company)
	}
}

func trialHandler(companies *service.CompanyService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		trial, err := companies.Trial(ctx, IdentityFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, trial)
	}
}

func dashboardHandler(dashboard *service.DashboardService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/company/dashboard")
		defer span.End()

		dash, err := dashboard.Company(ctx, IdentityFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, dash)
	}
}

// ---- super admin ----

func platformStatsHandler(companies *service.CompanyService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/admin/stats")
		defer span.End()

		stats, err := companies.Stats(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func listCompaniesHandler(companies *service.CompanyService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/admin/companies")
		defer span.End()

		list, err := companies.List(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func getCompanyHandler(companies *service.CompanyService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		company, err := companies.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeRecord(w, http.StatusOK, company)
	}
}

func createCompanyHandler(companies *service.CompanyService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/admin/companies")
		defer span.End()

		var req domain.Company
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		company, err := companies.Create(ctx, req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeRecord(w, http.StatusCreated, company)
	}
}

func updateCompanyHandler(companies *service.CompanyService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/admin/companies/{id}")
		defer span.End()

		patch, version, err := readPatch(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		company, err := companies.Update(ctx, chi.URLParam(r, "id"), version, patch)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeRecord(w, http.StatusOK, company)
	}
}

type companyStatusRequest struct {
	Status domain.CompanyStatus `json:"status"`
}

func companyStatusHandler(companies *service.CompanyService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/admin/companies/{id}/status")
		defer span.End()

		raw, version, err := readPatch(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		var req companyStatusRequest
		if err := json.Unmarshal(raw, &req); err != nil || req.Status == "" {
			handleServiceError(w, &domain.ErrValidation{Field: "status", Message: "status é obrigatório"}, logger)
			return
		}
		company, err := companies.SetStatus(ctx, chi.URLParam(r, "id"), version, req.Status)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeRecord(w, http.StatusOK, company)
	}
}

func deleteCompanyHandler(companies *service.CompanyService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/admin/companies/{id}")
		defer span.End()

		id := chi.URLParam(r, "id")
		ok, err := companies.Delete(ctx, id)
		writeRemoved(w, ok, err, id, "excluir empresa", logger)
	}
}
