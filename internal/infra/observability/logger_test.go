package observability_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/boddenberg/finance-entry-bfa-go/internal/infra/observability"
)

func newLoggedRouter(logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Route("/v1", func(r chi.Router) {
		r.Get("/wizard/sessions/{sessionID}", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
		r.Delete("/transactions/{transactionID}", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusAccepted)
		})
		r.Get("/boom", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})
		r.Get("/quiet", func(http.ResponseWriter, *http.Request) {})
	})
	return r
}

func serve(h http.Handler, method, path string) {
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(method, path, nil))
}

func TestZapLoggerMiddleware_RouteFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	router := newLoggedRouter(zap.New(core))

	serve(router, http.MethodGet, "/v1/wizard/sessions/abc-123")
	serve(router, http.MethodDelete, "/v1/transactions/7")

	entries := logs.All()
	require.Len(t, entries, 2)

	missing := entries[0].ContextMap()
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "/v1/wizard/sessions/{sessionID}", missing["route"])
	assert.Equal(t, "abc-123", missing["session_id"])
	assert.Equal(t, int64(http.StatusNotFound), missing["status"])
	assert.NotEmpty(t, missing["request_id"])
	assert.NotContains(t, missing, "transaction_id")

	deleted := entries[1].ContextMap()
	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
	assert.Equal(t, "/v1/transactions/{transactionID}", deleted["route"])
	assert.Equal(t, "7", deleted["transaction_id"])
}

func TestZapLoggerMiddleware_Levels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	router := newLoggedRouter(zap.New(core))

	serve(router, http.MethodGet, "/v1/boom")
	serve(router, http.MethodGet, "/v1/quiet")
	serve(router, http.MethodGet, "/nowhere")

	entries := logs.All()
	require.Len(t, entries, 3)

	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)

	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
	assert.Equal(t, int64(http.StatusOK), entries[1].ContextMap()["status"], "handlers that never write report 200")

	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	assert.NotContains(t, entries[2].ContextMap(), "route", "unmatched paths have no pattern")
}

func TestZapLoggerMiddleware_RespectsLevel(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	router := newLoggedRouter(zap.New(core))

	serve(router, http.MethodDelete, "/v1/transactions/7")
	assert.Zero(t, logs.Len(), "info lines are dropped below the configured level")
}

func TestNewLogger_UnknownLevelFallsBackToInfo(t *testing.T) {
	logger := observability.NewLogger("shouting")
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))

	assert.True(t, observability.NewLogger("debug").Core().Enabled(zapcore.DebugLevel))
}
