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
// Inbox: notifications and support tickets
// ============================================================

func listNotificationsHandler(inbox *service.InboxService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/company/notifications")
		defer span.End()

		unread := r.URL.Query().Get("unread") == "true"
		list, err := inbox.Notifications(ctx, IdentityFromContext(ctx), unread)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func markNotificationReadHandler(inbox *service.InboxService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/company/notifications/{id}/read")
		defer span.End()

		n, err := inbox.MarkRead(ctx, IdentityFromContext(ctx), chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeRecord(w, http.StatusOK, n)
	}
}

type notifyRequest struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

func notifyCompanyHandler(inbox *service.InboxService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/admin/companies/{id}/notifications")
		defer span.End()

		var req notifyRequest
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		n, err := inbox.Notify(ctx, chi.URLParam(r, "id"), req.Title, req.Message, req.Type)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeRecord(w, http.StatusCreated, n)
	}
}

func companyTicketsHandler(inbox *service.InboxService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/company/tickets")
		defer span.End()

		list, err := inbox.CompanyTickets(ctx, IdentityFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func openTicketHandler(inbox *service.InboxService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/company/tickets")
		defer span.End()

		var req domain.Ticket
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		t, err := inbox.OpenTicket(ctx, IdentityFromContext(ctx), req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeRecord(w, http.StatusCreated, t)
	}
}

func listAllTicketsHandler(inbox *service.InboxService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/admin/tickets")
		defer span.End()

		list, err := inbox.AllTickets(ctx, domain.TicketStatus(r.URL.Query().Get("status")))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

type ticketStatusRequest struct {
	Status domain.TicketStatus `json:"status"`
}

func ticketStatusHandler(inbox *service.InboxService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/admin/tickets/{id}/status")
		defer span.End()

		raw, version, err := readPatch(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		var req ticketStatusRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			handleServiceError(w, &domain.ErrValidation{Field: "status", Message: "Status inválido"}, logger)
			return
		}
		t, err := inbox.SetTicketStatus(ctx, chi.URLParam(r, "id"), version, req.Status)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeRecord(w, http.StatusOK, t)
	}
}
