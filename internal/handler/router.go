package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/boddenberg/agenda-bfa-go/internal/domain"
	"github.com/boddenberg/agenda-bfa-go/internal/infra/observability"
	"github.com/boddenberg/agenda-bfa-go/internal/port"
	"github.com/boddenberg/agenda-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// ToastFeed lists the recent toasts of a scope.
type ToastFeed interface {
	Recent(scope string, since time.Time) []domain.Toast
}

// Config carries the collaborators of the HTTP layer.
type Config struct {
	Services       *service.Services
	Toasts         ToastFeed
	Metrics        *observability.Metrics
	Logger         *zap.Logger
	Health         map[string]port.HealthChecker
	AllowedOrigins []string
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(cfg Config) http.Handler {
	svc, logger, metrics := cfg.Services, cfg.Logger, cfg.Metrics
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.MetricsMiddleware(metrics))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "If-Match", "X-Request-Id"},
		ExposedHeaders:   []string{"ETag", "X-Schedule-Conflicts", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(cfg.Health, logger))
	r.Get("/readyz", readyzHandler(svc))
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	if svc == nil {
		return r
	}

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// =============================================
		// Public: booking page and branding
		// =============================================
		r.Get("/public/agendar/{customUrl}", bookingPageHandler(svc.Companies, logger))
		r.Get("/platform/branding", getBrandingHandler(svc.Platform))
		r.Get("/platform/branding/events", brandingEventsHandler(svc.Platform, logger))

		// =============================================
		// Authenticated
		// =============================================
		r.Group(func(r chi.Router) {
			r.Use(JWTAuthMiddleware(svc.Identity, logger))

			r.Get("/session", sessionHandler(svc.Data))
			r.Post("/session/reload", sessionReloadHandler(svc.Data, logger))
			r.Get("/toasts", toastsHandler(cfg.Toasts))
			r.Get("/confirmations", listConfirmationsHandler(svc.Confirmations))
			r.Post("/confirmations/{promptId}", resolveConfirmationHandler(svc.Confirmations, logger))

			r.Post("/signup", signupHandler(svc.Companies, logger))
			r.Get("/signup/url-available", urlAvailableHandler(svc.Companies, logger))

			// =============================================
			// Super admin
			// =============================================
			r.Route("/admin", func(r chi.Router) {
				r.Use(RequireRole(logger, domain.RoleSuperAdmin))

				r.Get("/stats", platformStatsHandler(svc.Companies, logger))
				r.Get("/ops", opsHandler(metrics))
				r.Put("/platform/branding", updateBrandingHandler(svc.Platform, logger))

				r.Get("/companies", listCompaniesHandler(svc.Companies, logger))
				r.Post("/companies", createCompanyHandler(svc.Companies, logger))
				r.Get("/companies/url-available", urlAvailableHandler(svc.Companies, logger))
				r.Get("/companies/{id}", getCompanyHandler(svc.Companies, logger))
				r.Patch("/companies/{id}", updateCompanyHandler(svc.Companies, logger))
				r.Post("/companies/{id}/status", companyStatusHandler(svc.Companies, logger))
				r.Delete("/companies/{id}", deleteCompanyHandler(svc.Companies, logger))
				r.Post("/companies/{id}/notifications", notifyCompanyHandler(svc.Inbox, logger))

				r.Get("/invoices", listAllInvoicesHandler(svc.Finance, logger))
				r.Post("/invoices", createInvoiceHandler(svc.Finance, logger))
				r.Patch("/invoices/{id}", updateInvoiceHandler(svc.Finance, logger))
				r.Delete("/invoices/{id}", deleteInvoiceHandler(svc.Finance, logger))

				r.Get("/tickets", listAllTicketsHandler(svc.Inbox, logger))
				r.Post("/tickets/{id}/status", ticketStatusHandler(svc.Inbox, logger))
			})

			// =============================================
			// Company admin
			// =============================================
			r.Route("/company", func(r chi.Router) {
				r.Use(RequireRole(logger, domain.RoleCompanyAdmin))

				r.Get("/", getOwnCompanyHandler(svc.Companies, logger))
				r.Patch("/", updateOwnCompanyHandler(svc.Companies, logger))
				r.Get("/trial", trialHandler(svc.Companies, logger))
				r.Get("/dashboard", dashboardHandler(svc.Dashboard, logger))
				r.Get("/landing/draft", getLandingDraftHandler(svc.Landing, logger))
				r.Put("/landing/draft", saveLandingDraftHandler(svc.Landing, logger))

				r.Get("/services", listServicesHandler(svc.Catalog, logger))
				r.Post("/services", createServiceHandler(svc.Catalog, logger))
				r.Patch("/services/{id}", updateServiceHandler(svc.Catalog, logger))
				r.Delete("/services/{id}", deleteServiceHandler(svc.Catalog, logger))

				r.Get("/professionals", listProfessionalsHandler(svc.Catalog, logger))
				r.Post("/professionals", createProfessionalHandler(svc.Catalog, logger))
				r.Patch("/professionals/{id}", updateProfessionalHandler(svc.Catalog, logger))
				r.Delete("/professionals/{id}", deleteProfessionalHandler(svc.Catalog, logger))

				mountAppointments(r, svc.Schedule, logger)
				r.Delete("/appointments/{id}", deleteAppointmentHandler(svc.Schedule, logger))

				r.Get("/clients", listClientsHandler(svc.Clients, logger))
				r.Post("/clients", createClientHandler(svc.Clients, logger))
				r.Patch("/clients/{id}", updateClientHandler(svc.Clients, logger))
				r.Delete("/clients/{id}", deleteClientHandler(svc.Clients, logger))

				r.Get("/coupons", listCouponsHandler(svc.Coupons, logger))
				r.Post("/coupons", createCouponHandler(svc.Coupons, logger))
				r.Post("/coupons/quote", quoteCouponHandler(svc.Coupons, logger))
				r.Patch("/coupons/{id}", updateCouponHandler(svc.Coupons, logger))
				r.Delete("/coupons/{id}", deleteCouponHandler(svc.Coupons, logger))
				r.Post("/coupons/{id}/redeem", redeemCouponHandler(svc.Coupons, logger))

				r.Get("/expenses", listExpensesHandler(svc.Finance, logger))
				r.Post("/expenses", createExpenseHandler(svc.Finance, logger))
				r.Patch("/expenses/{id}", updateExpenseHandler(svc.Finance, logger))
				r.Delete("/expenses/{id}", deleteExpenseHandler(svc.Finance, logger))

				r.Get("/invoices", companyInvoicesHandler(svc.Finance, logger))

				r.Get("/notifications", listNotificationsHandler(svc.Inbox, logger))
				r.Post("/notifications/{id}/read", markNotificationReadHandler(svc.Inbox, logger))

				r.Get("/tickets", companyTicketsHandler(svc.Inbox, logger))
				r.Post("/tickets", openTicketHandler(svc.Inbox, logger))
			})

			// =============================================
			// Professional
			// =============================================
			r.Route("/professional", func(r chi.Router) {
				r.Use(RequireRole(logger, domain.RoleProfessional))

				r.Get("/me", getMeHandler(svc.Catalog, logger))
				r.Patch("/me", updateMeHandler(svc.Catalog, logger))
				mountAppointments(r, svc.Schedule, logger)
			})
		})
	})

	return r
}

// mountAppointments registers the appointment routes shared by company
// admins and professionals. The service narrows what a professional sees.
func mountAppointments(r chi.Router, schedule *service.ScheduleService, logger *zap.Logger) {
	r.Get("/appointments", listAppointmentsHandler(schedule, logger))
	r.Post("/appointments", createAppointmentHandler(schedule, logger))
	r.Patch("/appointments/{id}", updateAppointmentHandler(schedule, logger))
	r.Post("/appointments/{id}/status", appointmentStatusHandler(schedule, logger))
}

// ============================================================
// Operational
// ============================================================

func healthzHandler(checks map[string]port.HealthChecker, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "bfa-api", Status: "healthy", LatencyMs: 0, LastChecked: now},
		}
		for name, check := range checks {
			start := time.Now()
			err := check.Ping(ctx)
			status := "healthy"
			if err != nil {
				status = "degraded"
				logger.Warn("health check failed", zap.String("dependency", name), zap.Error(err))
			}
			services = append(services, domain.ServiceHealth{
				Name: name, Status: status, LatencyMs: time.Since(start).Milliseconds(), LastChecked: now,
			})
		}

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status != "healthy" {
				overallStatus = "degraded"
				break
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{Status: overallStatus, Services: services})
	}
}

func readyzHandler(svc *service.Services) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc != nil && svc.Platform == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "starting"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func opsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.Snapshot())
	}
}
