package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/boddenberg/agenda-bfa-go/internal/domain"
	"github.com/boddenberg/agenda-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Appointments (company admins and professionals)
// ============================================================

// conflictsHeader lists the ids of the bookings a write overlaps.
const conflictsHeader = "X-Schedule-Conflicts"

func writeBooking(w http.ResponseWriter, status int, b service.Booking) {
	if len(b.Conflicts) > 0 {
		ids := make([]string, 0, len(b.Conflicts))
		for _, c := range b.Conflicts {
			ids = append(ids, c.ID)
		}
		w.Header().Set(conflictsHeader, strings.Join(ids, ","))
	}
	writeRecord(w, status, b.Appointment)
}

func listAppointmentsHandler(schedule *service.ScheduleService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/appointments")
		defer span.End()

		q := r.URL.Query()
		f := domain.AppointmentFilter{
			From:           q.Get("from"),
			To:             q.Get("to"),
			ProfessionalID: q.Get("professionalId"),
			ClientID:       q.Get("clientId"),
			Status:         domain.AppointmentStatus(q.Get("status")),
		}
		if date := q.Get("date"); date != "" {
			f.From, f.To = date, date
		}
		if f.Status != "" && !f.Status.Valid() {
			handleServiceError(w, &domain.ErrValidation{Field: "status", Message: "Status inválido"}, logger)
			return
		}

		list, err := schedule.List(ctx, IdentityFromContext(ctx), f)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func createAppointmentHandler(schedule *service.ScheduleService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/appointments")
		defer span.End()

		var req domain.Appointment
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		booking, err := schedule.Create(ctx, IdentityFromContext(ctx), req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeBooking(w, http.StatusCreated, booking)
	}
}

func updateAppointmentHandler(schedule *service.ScheduleService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/appointments/{id}")
		defer span.End()

		patch, version, err := readPatch(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		booking, err := schedule.Update(ctx, IdentityFromContext(ctx), chi.URLParam(r, "id"), version, patch)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeBooking(w, http.StatusOK, booking)
	}
}

type appointmentStatusRequest struct {
	Status domain.AppointmentStatus `json:"status"`
}

func appointmentStatusHandler(schedule *service.ScheduleService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/appointments/{id}/status")
		defer span.End()

		raw, version, err := readPatch(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		var req appointmentStatusRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			handleServiceError(w, &domain.ErrValidation{Field: "status", Message: "Status inválido"}, logger)
			return
		}
		appt, err := schedule.SetStatus(ctx, IdentityFromContext(ctx), chi.URLParam(r, "id"), version, req.Status)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeRecord(w, http.StatusOK, appt)
	}
}

func deleteAppointmentHandler(schedule *service.ScheduleService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/company/appointments/{id}")
		defer span.End()

		id := chi.URLParam(r, "id")
		ok, err := schedule.Delete(ctx, IdentityFromContext(ctx), id)
		writeRemoved(w, ok, err, id, "excluir agendamento", logger)
	}
}
