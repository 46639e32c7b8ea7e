package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/boddenberg/agenda-bfa-go/internal/domain"
	"github.com/boddenberg/agenda-bfa-go/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Platform branding & landing drafts
// ============================================================

// sseKeepAlive is how often an idle branding stream sends a comment line.
var sseKeepAlive = 25 * time.Second

func getBrandingHandler(cfg *service.PlatformConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, cfg.Get())
	}
}

func updateBrandingHandler(cfg *service.PlatformConfig, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/admin/platform/branding")
		defer span.End()

		var req domain.Branding
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		saved, err := cfg.Update(ctx, req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, saved)
	}
}

// brandingEventsHandler streams the branding as server-sent events: the
// current value first, then every change until the client goes away.
func brandingEventsHandler(cfg *service.PlatformConfig, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, http.StatusInternalServerError, "streaming não suportado")
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		ctx := r.Context()
		updates := cfg.Subscribe(ctx)
		ticker := time.NewTicker(sseKeepAlive)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := io.WriteString(w, ": keep-alive\n\n"); err != nil {
					return
				}
				flusher.Flush()
			case b, open := <-updates:
				if !open {
					return
				}
				payload, err := json.Marshal(b)
				if err != nil {
					logger.Error("branding stream: marshal failed", zap.Error(err))
					return
				}
				if _, err := fmt.Fprintf(w, "event: branding\ndata: %s\n\n", payload); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}

func getLandingDraftHandler(drafts *service.LandingDrafts, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		draft, err := drafts.Get(ctx, IdentityFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(draft)
	}
}

func saveLandingDraftHandler(drafts *service.LandingDrafts, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/company/landing/draft")
		defer span.End()

		raw, err := io.ReadAll(io.LimitReader(r.Body, service.MaxLandingDraftBytes+1))
		if err != nil {
			writeError(w, http.StatusBadRequest, "corpo da requisição inválido")
			return
		}
		if err := drafts.Save(ctx, IdentityFromContext(ctx), raw); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "Rascunho salvo"})
	}
}
