package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/boddenberg/agenda-bfa-go/internal/domain"
	"github.com/boddenberg/agenda-bfa-go/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Shared helper functions
// ============================================================

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
	Kind  string `json:"kind,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// decodeBody decodes the request body into dst.
func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst); err != nil {
		return &domain.ErrValidation{Field: "body", Message: "corpo da requisição inválido"}
	}
	return nil
}

// readPatch reads an update body and resolves its version token: the
// If-Match header wins, then the body's "version", then its "updatedAt".
func readPatch(r *http.Request) (json.RawMessage, string, error) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, "", &domain.ErrValidation{Field: "body", Message: "corpo da requisição inválido"}
	}
	var probe struct {
		Version   string `json:"version"`
		UpdatedAt string `json:"updatedAt"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, "", &domain.ErrValidation{Field: "body", Message: "JSON inválido"}
	}

	version := strings.Trim(strings.TrimSpace(r.Header.Get("If-Match")), `"`)
	if version == "" {
		version = probe.Version
	}
	if version == "" {
		version = probe.UpdatedAt
	}
	if version == "" {
		return nil, "", &domain.ErrValidation{Field: "version", Message: "versão é obrigatória (If-Match ou campo version)"}
	}
	return raw, normalizeVersion(version), nil
}

// normalizeVersion renders any RFC3339 timestamp the way record versions
// are rendered, so "updatedAt" echoed in another offset still matches.
func normalizeVersion(v string) string {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return v
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// writeRecord answers with a single entity and its version as ETag.
func writeRecord(w http.ResponseWriter, status int, rec domain.Record) {
	if v := rec.Version(); v != "" {
		w.Header().Set("ETag", `"`+v+`"`)
	}
	writeJSON(w, status, rec)
}

// writeRemoved answers a gated delete: a declined prompt becomes a 409.
func writeRemoved(w http.ResponseWriter, ok bool, err error, id, action string, logger *zap.Logger) {
	if err != nil {
		handleServiceError(w, err, logger)
		return
	}
	if !ok {
		handleServiceError(w, &domain.ErrConfirmationDeclined{Action: action}, logger)
		return
	}
	writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "Excluído com sucesso", ID: id})
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var loadErr *service.LoadError
	var notFound *domain.ErrNotFound
	var circuitOpen *domain.ErrCircuitOpen
	var timeout *domain.ErrTimeout
	var validation *domain.ErrValidation
	var conflict *domain.ErrConflict
	var declined *domain.ErrConfirmationDeclined
	var forbidden *domain.ErrForbidden
	var unauthorized *domain.ErrUnauthorized
	var external *domain.ErrExternalService
	var transition *domain.ErrInvalidTransition
	var seats *domain.ErrSeatLimit
	var coupon *domain.ErrCouponUnavailable

	switch {
	case errors.As(err, &loadErr):
		status := loadErrorStatus(loadErr)
		logger.Error("working set load failed",
			zap.Strings("collections", loadErr.Collections()),
			zap.Int("status", status),
			zap.Error(err),
		)
		writeError(w, status, err.Error())
	case errors.As(err, &notFound):
		logger.Debug("not found", zap.String("error", err.Error()))
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &validation):
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: validation.Message, Field: validation.Field})
	case errors.As(err, &conflict):
		logger.Debug("conflict", zap.String("kind", conflict.Kind), zap.String("error", err.Error()))
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error(), Kind: conflict.Kind})
	case errors.As(err, &declined):
		logger.Info("confirmation declined", zap.String("action", declined.Action))
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &forbidden):
		logger.Warn("forbidden access", zap.String("error", err.Error()))
		writeError(w, http.StatusForbidden, err.Error())
	case errors.As(err, &unauthorized):
		logger.Warn("unauthorized", zap.String("error", err.Error()))
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.As(err, &circuitOpen):
		logger.Error("circuit breaker open", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &timeout):
		logger.Error("request timeout", zap.Error(err))
		writeError(w, http.StatusGatewayTimeout, err.Error())
	case errors.As(err, &external):
		logger.Error("external service error", zap.String("service", external.Service), zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.As(err, &transition):
		logger.Debug("invalid transition", zap.String("error", err.Error()))
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &seats):
		logger.Warn("seat limit reached", zap.String("plan", string(seats.Plan)), zap.Int("limit", seats.Limit))
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &coupon):
		logger.Debug("coupon unavailable", zap.String("code", coupon.Code), zap.String("status", string(coupon.Status)))
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// loadErrorStatus answers 404 when the company row itself is gone, and the
// causes' status when every failed collection agrees on it. Anything else is
// a bad gateway.
func loadErrorStatus(e *service.LoadError) int {
	var notFound *domain.ErrNotFound
	if errors.As(e.Failed["company"], &notFound) {
		return http.StatusNotFound
	}
	status := 0
	for _, cause := range e.Failed {
		s := loadCauseStatus(cause)
		if status != 0 && s != status {
			return http.StatusBadGateway
		}
		status = s
	}
	if status == 0 {
		return http.StatusBadGateway
	}
	return status
}

func loadCauseStatus(err error) int {
	var notFound *domain.ErrNotFound
	var forbidden *domain.ErrForbidden
	var unauthorized *domain.ErrUnauthorized
	var circuitOpen *domain.ErrCircuitOpen
	var timeout *domain.ErrTimeout

	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &forbidden):
		return http.StatusForbidden
	case errors.As(err, &unauthorized):
		return http.StatusUnauthorized
	case errors.As(err, &circuitOpen):
		return http.StatusServiceUnavailable
	case errors.As(err, &timeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}
