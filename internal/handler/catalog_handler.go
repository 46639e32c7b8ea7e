package handler

import (
	"net/http"

	"github.com/boddenberg/agenda-bfa-go/internal/domain"
	"github.com/boddenberg/agenda-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Catalog: services, professionals, professional self-service
// ============================================================

func listServicesHandler(catalog *service.CatalogService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/company/services")
		defer span.End()

		list, err := catalog.ListServices(ctx, IdentityFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func createServiceHandler(catalog *service.CatalogService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/company/services")
		defer span.End()

		var req domain.Service
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		created, err := catalog.CreateService(ctx, IdentityFromContext(ctx), req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeRecord(w, http.StatusCreated, created)
	}
}

func updateServiceHandler(catalog *service.CatalogService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/company/services/{id}")
		defer span.End()

		patch, version, err := readPatch(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		updated, err := catalog.UpdateService(ctx, IdentityFromContext(ctx), chi.URLParam(r, "id"), version, patch)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeRecord(w, http.StatusOK, updated)
	}
}

func deleteServiceHandler(catalog *service.CatalogService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/company/services/{id}")
		defer span.End()

		id := chi.URLParam(r, "id")
		ok, err := catalog.DeleteService(ctx, IdentityFromContext(ctx), id)
		writeRemoved(w, ok, err, id, "excluir serviço", logger)
	}
}

func listProfessionalsHandler(catalog *service.CatalogService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/company/professionals")
		defer span.End()

		list, err := catalog.ListProfessionals(ctx, IdentityFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// createProfessionalHandler provisions the auth user and answers with the
// temporary password, which is shown once and never stored by the BFA.
func createProfessionalHandler(catalog *service.CatalogService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/company/professionals")
		defer span.End()

		var req service.ProfessionalDraft
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		created, err := catalog.CreateProfessional(ctx, IdentityFromContext(ctx), req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, http.StatusCreated, created)
	}
}

func updateProfessionalHandler(catalog *service.CatalogService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/company/professionals/{id}")
		defer span.End()

		patch, version, err := readPatch(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		updated, err := catalog.UpdateProfessional(ctx, IdentityFromContext(ctx), chi.URLParam(r, "id"), version, patch)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeRecord(w, http.StatusOK, updated)
	}
}

func deleteProfessionalHandler(catalog *service.CatalogService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/company/professionals/{id}")
		defer span.End()

		id := chi.URLParam(r, "id")
		ok, err := catalog.DeleteProfessional(ctx, IdentityFromContext(ctx), id)
		writeRemoved(w, ok, err, id, "excluir profissional", logger)
	}
}

func getMeHandler(catalog *service.CatalogService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		me, err := catalog.Me(ctx, IdentityFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeRecord(w, http.StatusOK, me)
	}
}

func updateMeHandler(catalog *service.CatalogService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/professional/me")
		defer span.End()

		patch, version, err := readPatch(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		me, err := catalog.UpdateMe(ctx, IdentityFromContext(ctx), version, patch)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeRecord(w, http.StatusOK, me)
	}
}
