package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/agenda-bfa-go/internal/config"
	"github.com/boddenberg/agenda-bfa-go/internal/domain"
	"github.com/boddenberg/agenda-bfa-go/internal/handler"
	"github.com/boddenberg/agenda-bfa-go/internal/infra/cache"
	"github.com/boddenberg/agenda-bfa-go/internal/infra/notify"
	"github.com/boddenberg/agenda-bfa-go/internal/infra/observability"
	"github.com/boddenberg/agenda-bfa-go/internal/infra/prefs"
	"github.com/boddenberg/agenda-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/agenda-bfa-go/internal/infra/supabase"
	"github.com/boddenberg/agenda-bfa-go/internal/port"
	"github.com/boddenberg/agenda-bfa-go/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Duration("confirm_timeout", cfg.ConfirmTimeout),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Int("trial_days", cfg.TrialDays),
		zap.Bool("reject_double_booking", cfg.RejectDoubleBooking),
		zap.Bool("redis", cfg.RedisURL != ""),
	)

	if cfg.SupabaseURL == "" || cfg.SupabaseJWTSecret == "" {
		logger.Fatal("SUPABASE_URL and SUPABASE_JWT_SECRET are required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Tracing ---
	shutdownTracer, err := observability.InitTracer(ctx, "agenda-bfa", cfg.OTLPEndpoint)
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdownTracer(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Remote store ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	supabaseClient := supabase.NewClient(
		httpClient,
		cfg.SupabaseURL,
		cfg.SupabaseAnonKey,
		cfg.SupabaseServiceKey,
		resilience.NewCircuitBreaker("supabase"),
		resilience.Config{
			MaxRetries:     cfg.MaxRetries,
			InitialBackoff: cfg.InitialBackoff,
			MaxConcurrency: cfg.MaxConcurrency,
		},
		logger,
	)
	stores := supabase.NewStores(supabaseClient)
	health := map[string]port.HealthChecker{"supabase": supabaseClient}

	// --- Preferences (branding, landing drafts) ---
	var prefStore port.Prefs = prefs.NewMemory()
	if cfg.RedisURL != "" {
		redisPrefs, err := prefs.ConnectRedis(ctx, cfg.RedisURL, logger)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer redisPrefs.Close()
		prefStore = redisPrefs
		health["redis"] = redisPrefs
	} else {
		logger.Warn("REDIS_URL not set: branding and landing drafts are kept in memory")
	}

	// --- Services ---
	feed := notify.NewFeed(cfg.ToastBuffer, logger)
	queue := service.NewConfirmationQueue(cfg.ConfirmTimeout, metrics, logger)
	tenantStores := service.TenantStores{
		Companies:     stores.Companies,
		Services:      stores.Services,
		Professionals: stores.Professionals,
		Appointments:  stores.Appointments,
		Clients:       stores.Clients,
		Expenses:      stores.Expenses,
	}
	// A user's last company is remembered as long as a working set lives.
	tenantData := service.NewTenantData(tenantStores, cache.New[*service.WorkingSet](cfg.CacheTTL), cfg.LoadTimeout, feed, metrics, logger,
		service.WithSessions(cache.New[string](cfg.CacheTTL)))
	platform := service.NewPlatformConfig(prefStore, logger)
	if err := platform.Start(ctx); err != nil {
		logger.Fatal("failed to start platform config", zap.Error(err))
	}

	svc := service.NewServices(service.Deps{
		Stores: service.Stores{
			TenantStores:  tenantStores,
			Coupons:       stores.Coupons,
			Invoices:      stores.Invoices,
			Notifications: stores.Notifications,
			Tickets:       stores.Tickets,
			Profiles:      supabaseClient,
			Provisioner:   supabaseClient,
		},
		Data:    tenantData,
		Gate:    queue,
		Toasts:  feed,
		Policy:  service.Policy{TrialDays: cfg.TrialDays, RejectDoubleBooking: cfg.RejectDoubleBooking},
		Metrics: metrics,
		Logger:  logger,
		Identity: service.NewIdentityService(
			cfg.SupabaseJWTSecret,
			supabaseClient,
			cache.New[domain.Identity](cfg.IdentityCacheTTL),
			logger,
		),
		Platform: platform,
		Landing:  service.NewLandingDrafts(prefStore, logger),
		Queue:    queue,
	})

	sweeper := service.NewTrialSweeper(stores.Companies, svc.Inbox, metrics, logger)
	if err := sweeper.Start(cfg.TrialSweepSchedule); err != nil {
		logger.Fatal("failed to start trial sweeper", zap.Error(err))
	}

	// --- Router ---
	router := handler.NewRouter(handler.Config{
		Services:       svc,
		Toasts:         feed,
		Metrics:        metrics,
		Logger:         logger,
		Health:         health,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	// --- Server ---
	// No WriteTimeout: the branding stream is long-lived.
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("server shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	sweeper.Stop(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced shutdown", zap.Error(err))
		return
	}

	logger.Info("server stopped")
}
