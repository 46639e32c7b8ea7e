package handler

import (
	"net/http"

	"github.com/boddenberg/agenda-bfa-go/internal/domain"
	"github.com/boddenberg/agenda-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func listClientsHandler(clients *service.ClientService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/company/clients")
		defer span.End()

		list, err := clients.List(ctx, IdentityFromContext(ctx), r.URL.Query().Get("q"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func createClientHandler(clients *service.ClientService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/company/clients")
		defer span.End()

		var req domain.Client
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		created, err := clients.Create(ctx, IdentityFromContext(ctx), req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeRecord(w, http.StatusCreated, created)
	}
}

func updateClientHandler(clients *service.ClientService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/company/clients/{id}")
		defer span.End()

		patch, version, err := readPatch(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		updated, err := clients.Update(ctx, IdentityFromContext(ctx), chi.URLParam(r, "id"), version, patch)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeRecord(w, http.StatusOK, updated)
	}
}

func deleteClientHandler(clients *service.ClientService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/company/clients/{id}")
		defer span.End()

		id := chi.URLParam(r, "id")
		ok, err := clients.Delete(ctx, IdentityFromContext(ctx), id)
		writeRemoved(w, ok, err, id, "excluir cliente", logger)
	}
}
