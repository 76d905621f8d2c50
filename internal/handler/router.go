package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/boddenberg/finance-entry-bfa-go/internal/domain"
	"github.com/boddenberg/finance-entry-bfa-go/internal/infra/observability"
	"github.com/boddenberg/finance-entry-bfa-go/internal/port"
	"github.com/boddenberg/finance-entry-bfa-go/internal/service"
)

var tracer = otel.Tracer("handler")

// Services bundles the entry services exposed over HTTP.
type Services struct {
	Sessions      *service.WizardSessions
	Toasts        *service.NotificationQueue
	Confirmations *service.ConfirmationBroker
	Catalog       *service.Catalog
	Gateway       port.PersistenceGateway
	PageSize      int
}

// RouterOptions configures the cross-cutting HTTP concerns.
type RouterOptions struct {
	// JWTSecret, when set, protects every /v1 route with HS256 Bearer auth.
	JWTSecret string
	// AllowedOrigins enables CORS for the listed browser origins.
	AllowedOrigins []string
}

// NewRouter creates the HTTP router with all routes and middleware.
// A nil svc serves only the operational endpoints.
func NewRouter(svc *Services, metrics *observability.Metrics, opts RouterOptions, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
			ExposedHeaders: []string{"X-Request-Id"},
			MaxAge:         300,
		}))
	}

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svc))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		if opts.JWTSecret != "" {
			r.Use(JWTAuthMiddleware([]byte(opts.JWTSecret), logger))
		}

		r.Get("/metrics/entry", entryMetricsHandler(metrics))

		if svc == nil {
			return
		}

		// =============================================
		// Entry wizard
		// =============================================
		r.Post("/wizard/sessions", openSessionHandler(svc, logger))
		r.Route("/wizard/sessions/{sessionID}", func(r chi.Router) {
			r.Get("/", getSessionHandler(svc, logger))
			r.Delete("/", closeSessionHandler(svc, logger))
			r.Post("/advance", advanceHandler(svc, logger))
			r.Post("/retreat", retreatHandler(svc, logger))
			r.Patch("/fields", setFieldHandler(svc, logger))
			r.Post("/submit", submitHandler(svc, logger))
		})

		// =============================================
		// Toasts & confirmations
		// =============================================
		r.Get("/toasts", listToastsHandler(svc))
		r.Delete("/toasts/{toastID}", dismissToastHandler(svc))
		r.Get("/confirmations/current", currentConfirmationHandler(svc))
		r.Post("/confirmations/current", resolveConfirmationHandler(svc, logger))

		// =============================================
		// Transactions & lookups
		// =============================================
		r.Get("/transactions", listTransactionsHandler(svc, logger))
		r.Delete("/transactions/{transactionID}", deleteTransactionHandler(svc, logger))
		r.Get("/categories", listCategoriesHandler(svc, logger))
		r.Get("/wallets", listWalletsHandler(svc, logger))
	})

	return r
}

// ============================================================
// Operational
// ============================================================

func healthzHandler(svc *Services) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "entry-bfa", Status: "healthy", LatencyMs: 0, LastChecked: now},
		}

		if svc != nil && svc.Catalog != nil {
			start := time.Now()
			_, err := svc.Catalog.Snapshot(r.Context())
			status := "healthy"
			if err != nil {
				status = "degraded"
			}
			services = append(services, domain.ServiceHealth{
				Name: "ledger", Status: status, LatencyMs: time.Since(start).Milliseconds(), LastChecked: now,
			})
		}

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status != "healthy" {
				overallStatus = s.Status
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{Status: overallStatus, Services: services})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func entryMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetEntrySnapshot())
	}
}
