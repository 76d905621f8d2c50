package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/boddenberg/finance-entry-bfa-go/internal/config"
	"github.com/boddenberg/finance-entry-bfa-go/internal/handler"
	"github.com/boddenberg/finance-entry-bfa-go/internal/infra/cache"
	"github.com/boddenberg/finance-entry-bfa-go/internal/infra/client"
	"github.com/boddenberg/finance-entry-bfa-go/internal/infra/memstore"
	"github.com/boddenberg/finance-entry-bfa-go/internal/infra/observability"
	"github.com/boddenberg/finance-entry-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/finance-entry-bfa-go/internal/port"
	"github.com/boddenberg/finance-entry-bfa-go/internal/service"
)

func serve(ctx context.Context, cfg *config.Config) error {
	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Bool("remote_ledger", cfg.LedgerAPIURL != ""),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Duration("submit_timeout", cfg.SubmitTimeout),
		zap.Bool("auth_enabled", cfg.JWTSecret != ""),
	)

	// --- Tracing ---
	shutdownTracer, err := observability.InitTracer(cfg.OTLPEndpoint, observability.ServiceName)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer shutdownTracer(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Ledger backend ---
	ledger, err := newLedger(cfg, metrics, logger)
	if err != nil {
		return err
	}

	// --- Data context ---
	catalogCache := cache.New[*service.CatalogSnapshot](cfg.CacheTTL)
	defer catalogCache.Close()

	catalog := service.NewCatalog(ledger, catalogCache, metrics, logger)
	if _, err := catalog.Refresh(ctx); err != nil {
		// The ledger may come up later; reads retry on the next cache miss.
		logger.Warn("initial catalog refresh failed", zap.Error(err))
	}

	// --- Toasts & confirmations ---
	toasts := service.NewNotificationQueue(service.NotificationConfig{
		Duration: cfg.ToastDuration,
		Grace:    cfg.ToastGrace,
	}, metrics, logger)
	defer toasts.Close()

	confirmations := service.NewConfirmationBroker(toasts, metrics, logger)
	defer confirmations.Close()

	// --- Wizard ---
	wizard := service.NewWizard(ledger, catalog, toasts, metrics, logger, service.WizardConfig{
		SuccessDelay:  cfg.WizardSuccessDelay,
		ExitDelay:     cfg.WizardExitDelay,
		SubmitTimeout: cfg.SubmitTimeout,
	})
	sessions := service.NewWizardSessions(wizard, catalog, resilience.NewBulkhead(cfg.MaxConcurrency), metrics, logger)
	defer sessions.CloseAll()

	// --- Router ---
	router := handler.NewRouter(&handler.Services{
		Sessions:      sessions,
		Toasts:        toasts,
		Confirmations: confirmations,
		Catalog:       catalog,
		Gateway:       ledger,
		PageSize:      cfg.PageSize,
	}, metrics, handler.RouterOptions{
		JWTSecret:      cfg.JWTSecret,
		AllowedOrigins: cfg.AllowedOrigins,
	}, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.SubmitTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("server shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// newLedger picks the remote ledger API when LEDGER_API_URL is set and the
// seeded in-memory store otherwise.
func newLedger(cfg *config.Config, metrics *observability.Metrics, logger *zap.Logger) (port.LedgerStore, error) {
	if cfg.LedgerAPIURL != "" {
		logger.Info("using HTTP ledger API as data backend", zap.String("ledger_api_url", cfg.LedgerAPIURL))
		return client.NewLedgerClient(
			&http.Client{Timeout: cfg.HTTPTimeout},
			cfg.LedgerAPIURL,
			resilience.NewCircuitBreaker("ledger-api", logger),
			resilience.Config{
				MaxRetries:     cfg.MaxRetries,
				InitialBackoff: cfg.InitialBackoff,
				MaxConcurrency: cfg.MaxConcurrency,
			},
			metrics,
			logger,
		), nil
	}

	var (
		seed *memstore.Seed
		err  error
	)
	if cfg.SeedFile != "" {
		seed, err = memstore.LoadSeed(cfg.SeedFile)
	} else {
		seed, err = memstore.ParseSeed([]byte(memstore.DefaultSeed))
	}
	if err != nil {
		return nil, fmt.Errorf("load seed: %w", err)
	}

	logger.Info("using in-memory ledger as data backend", zap.String("seed_file", cfg.SeedFile))
	store, err := memstore.New(seed, logger)
	if err != nil {
		return nil, fmt.Errorf("seed ledger: %w", err)
	}
	return store, nil
}
