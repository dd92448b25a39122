package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pkordes/trucklog/internal/config"
	"github.com/pkordes/trucklog/internal/handler"
	"github.com/pkordes/trucklog/internal/metrics"
	"github.com/pkordes/trucklog/internal/middleware"
	"github.com/pkordes/trucklog/internal/payment"
	"github.com/pkordes/trucklog/internal/repo"
	"github.com/pkordes/trucklog/internal/service"
	"github.com/pkordes/trucklog/spec"
)

// maxBodyBytes caps every request body; journeys and events are small.
const maxBodyBytes = 1 << 20

// runServe wires the API together and serves it until ctx is cancelled.
func runServe(ctx context.Context) error {
	// --- Config -----------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// --- Logger -----------------------------------------------------------
	logger := newLogger(cfg.LogLevel)

	// --- Storage ----------------------------------------------------------
	journeys, accounts, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	// --- Services ---------------------------------------------------------
	rec := metrics.New(prometheus.DefaultRegisterer)

	checkout := payment.NewCheckout(payment.Config{
		SecretKey:      cfg.Stripe.SecretKey,
		PriceIDMonthly: cfg.Stripe.PriceIDMonthly,
		PriceIDYearly:  cfg.Stripe.PriceIDYearly,
		SuccessURL:     cfg.AppBaseURL + "/dashboard?success=true&session_id={CHECKOUT_SESSION_ID}",
		CancelURL:      cfg.AppBaseURL + "/dashboard?canceled=true",
	})
	if !cfg.Stripe.Enabled() {
		slog.Warn("STRIPE_SECRET_KEY not set; billing endpoints will answer 503")
	}

	journeySvc := service.NewJourneyService(journeys, accounts, service.WithMetrics(rec))
	upgradeSvc := service.NewUpgradeService(accounts, checkout, rec)
	exportSvc := service.NewExportService(journeys)

	// --- Metrics ----------------------------------------------------------
	// Prometheus gets its own listener so the public API never exposes it.
	if cfg.MetricsEnabled() {
		startMetricsServer(ctx, cfg.MetricsAddr, newMetricsHandler(prometheus.DefaultGatherer))
	}

	// --- Router -----------------------------------------------------------
	r := newAPIRouter(cfg, logger, apiDeps{
		journeys: journeySvc,
		upgrades: upgradeSvc,
		export:   exportSvc,
		webhook:  payment.NewWebhookHandler(cfg.Stripe.WebhookSecret, upgradeSvc, logger, rec),
	})

	// --- HTTP Server ------------------------------------------------------
	// Explicit timeouts prevent slowloris and resource exhaustion attacks.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", srv.Addr, "storage", cfg.StorageDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Graceful shutdown: wait for a signal, then give in-flight requests
	// up to 15 seconds to complete before forcefully closing.
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	slog.Info("server stopped")
	return nil
}

// apiDeps are the services the public router dispatches to.
type apiDeps struct {
	journeys handler.JourneyServicer
	upgrades handler.UpgradeServicer
	export   handler.ExportServicer
	webhook  http.Handler
}

// newAPIRouter builds the public HTTP surface.
// Middleware is applied in order: RequestID → RealIP → Logger → Recoverer → CORS → body limit.
// The logger sits outside auth; the auth middleware reports the user id
// back to it through the request context.
func newAPIRouter(cfg config.Config, logger *slog.Logger, deps apiDeps) chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(maxBodyBytes))

	r.Mount("/", handler.NewRouter(
		handler.NewServer(deps.journeys, deps.upgrades, deps.export, logger),
		handler.Routes{
			Auth:    middleware.NewAuthHandler([]byte(cfg.JWTSecret)),
			Webhook: deps.webhook,
			OpenAPI: spec.OpenAPI,
		},
	))
	return r
}

// openStore returns the repositories for the configured storage driver and a
// function that releases them.
func openStore(ctx context.Context, cfg config.Config) (repo.JourneyRepo, repo.AccountRepo, func(), error) {
	if cfg.StorageDriver == config.StorageMemory {
		slog.Warn("using in-memory storage; data is lost on restart")
		store := repo.NewMemoryStore()
		return store, store, func() {}, nil
	}

	// pgxpool manages a pool of Postgres connections.
	// New() does not open connections immediately; the first query does.
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create database pool: %w", err)
	}

	// Verify the DB is reachable before accepting traffic.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	slog.Info("database connection established")

	if cfg.AutoMigrate {
		if err := migrateUp(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, nil, err
		}
	}
	return repo.NewJourneyRepo(pool), repo.NewAccountRepo(pool), pool.Close, nil
}
