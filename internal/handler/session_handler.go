package handler

import (
	"net/http"
	"time"

	"github.com/boddenberg/agenda-bfa-go/internal/domain"
	"github.com/boddenberg/agenda-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Session, toasts & confirmations
// ============================================================

type sessionResponse struct {
	Identity domain.Identity    `json:"identity"`
	Data     *domain.LoadStatus `json:"data,omitempty"`
}

func sessionHandler(data *service.TenantData) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident := IdentityFromContext(r.Context())
		resp := sessionResponse{Identity: ident}
		if ident.HasTenant() {
			st := data.Status(ident.CompanyID)
			resp.Data = &st
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func sessionReloadHandler(data *service.TenantData, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/session/reload")
		defer span.End()

		ident := IdentityFromContext(ctx)
		if !ident.HasTenant() {
			handleServiceError(w, &domain.ErrForbidden{Action: "recarregar dados sem empresa vinculada"}, logger)
			return
		}
		if _, err := data.Reload(ctx, ident.CompanyID); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, data.Status(ident.CompanyID))
	}
}

func toastsHandler(feed ToastFeed) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident := IdentityFromContext(r.Context())
		var since time.Time
		if v := r.URL.Query().Get("since"); v != "" {
			t, err := time.Parse(time.RFC3339Nano, v)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, errorResponse{Error: "data inválida", Field: "since"})
				return
			}
			since = t
		}
		toasts := feed.Recent(service.ScopeOf(ident), since)
		if toasts == nil {
			toasts = []domain.Toast{}
		}
		writeJSON(w, http.StatusOK, toasts)
	}
}

func listConfirmationsHandler(queue *service.ConfirmationQueue) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident := IdentityFromContext(r.Context())
		writeJSON(w, http.StatusOK, queue.Pending(service.ScopeOf(ident)))
	}
}

type resolveConfirmationRequest struct {
	Confirmed *bool `json:"confirmed"`
}

func resolveConfirmationHandler(queue *service.ConfirmationQueue, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident := IdentityFromContext(r.Context())

		var req resolveConfirmationRequest
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if req.Confirmed == nil {
			handleServiceError(w, &domain.ErrValidation{Field: "confirmed", Message: "informe confirmed true ou false"}, logger)
			return
		}

		prompt, err := queue.Resolve(service.ScopeOf(ident), chi.URLParam(r, "promptId"), *req.Confirmed)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, prompt)
	}
}
