package observability

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ServiceName tags every log line and exported span.
const ServiceName = "finance-entry-bfa"

// NewLogger builds the process logger. Unknown levels fall back to info;
// debug switches to the colored console encoder.
func NewLogger(level string) *zap.Logger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.InitialFields = map[string]any{"service": ServiceName}
	if lvl == zapcore.DebugLevel {
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	logger, err := cfg.Build()
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	return logger
}

// URL parameters that get a log field of their own.
var loggedParams = []struct{ param, field string }{
	{"sessionID", "session_id"},
	{"transactionID", "transaction_id"},
	{"toastID", "toast_id"},
}

// ZapLoggerMiddleware writes one line per request, tagged with the matched
// route and the wizard session, transaction or toast it addressed.
func ZapLoggerMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				if ce := logger.Check(levelFor(status), "http request"); ce != nil {
					ce.Write(requestFields(r, status, ww.BytesWritten(), time.Since(start))...)
				}
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// levelFor maps 5xx to Error, 4xx to Warn and everything else to Info.
func levelFor(status int) zapcore.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case status >= http.StatusBadRequest:
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}

// requestFields reads the chi route context after routing, so the pattern
// and URL parameters of nested routers are already filled in.
func requestFields(r *http.Request, status, bytes int, latency time.Duration) []zap.Field {
	fields := []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.Int("bytes", bytes),
		zap.Duration("latency", latency),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.String("remote_addr", r.RemoteAddr),
	}

	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return fields
	}
	if pattern := rctx.RoutePattern(); pattern != "" {
		fields = append(fields, zap.String("route", pattern))
	}
	for _, p := range loggedParams {
		if v := rctx.URLParam(p.param); v != "" {
			fields = append(fields, zap.String(p.field, v))
		}
	}
	return fields
}
