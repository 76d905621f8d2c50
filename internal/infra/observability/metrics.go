package observability

import (
	"time"

	"github.com/boddenberg/finance-entry-bfa-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Submission outcome labels.
const (
	SubmitSuccess     = "success"
	SubmitInvalid     = "invalid"
	SubmitStale       = "stale_reference"
	SubmitPersistence = "persistence_error"
)

// Metrics holds all Prometheus metrics for the entry service.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	externalErrors  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	submissions     *prometheus.CounterVec
	toasts          *prometheus.CounterVec
	confirmations   *prometheus.CounterVec
	openSessions    prometheus.Gauge
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "entry_operation_duration_seconds",
				Help:    "Duration of operations by name.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "entry_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "entry_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "entry_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		submissions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "entry_wizard_submissions_total",
				Help: "Wizard submissions by outcome.",
			},
			[]string{"outcome"},
		),
		toasts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "entry_toasts_total",
				Help: "Toasts issued by severity.",
			},
			[]string{"severity"},
		),
		confirmations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "entry_confirmations_total",
				Help: "Resolved confirmations by outcome.",
			},
			[]string{"outcome"},
		),
		openSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "entry_wizard_sessions_open",
				Help: "Wizard sessions currently open.",
			},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrSubmission counts a wizard submission by outcome.
func (m *Metrics) IncrSubmission(outcome string) {
	m.submissions.WithLabelValues(outcome).Inc()
}

// IncrToast counts an issued toast.
func (m *Metrics) IncrToast(severity domain.Severity) {
	m.toasts.WithLabelValues(string(severity)).Inc()
}

// IncrConfirmation counts a resolved confirmation.
func (m *Metrics) IncrConfirmation(confirmed bool) {
	outcome := "cancelled"
	if confirmed {
		outcome = "confirmed"
	}
	m.confirmations.WithLabelValues(outcome).Inc()
}

// SetOpenSessions records the number of open wizard sessions.
func (m *Metrics) SetOpenSessions(n int) {
	m.openSessions.Set(float64(n))
}

// GetEntrySnapshot returns a snapshot suitable for the GET /v1/metrics/entry endpoint.
func (m *Metrics) GetEntrySnapshot() *domain.EntryMetrics {
	success := getCounterValue(m.submissions, SubmitSuccess)
	invalid := getCounterValue(m.submissions, SubmitInvalid)
	stale := getCounterValue(m.submissions, SubmitStale)
	failed := getCounterValue(m.submissions, SubmitPersistence)
	total := success + invalid + stale + failed

	toasts := float64(0)
	for _, s := range []domain.Severity{domain.SeveritySuccess, domain.SeverityError, domain.SeverityWarning, domain.SeverityInfo} {
		toasts += getCounterValue(m.toasts, string(s))
	}

	hits := getCounterValue(m.cacheHits, "catalog")
	misses := getCounterValue(m.cacheMisses, "catalog")

	errorRate := float64(0)
	if total > 0 {
		errorRate = (stale + failed) / total
	}
	cacheHitRate := float64(0)
	if hits+misses > 0 {
		cacheHitRate = hits / (hits + misses)
	}

	return &domain.EntryMetrics{
		Submissions:     int64(total),
		SubmitErrorRate: errorRate,
		StaleReferences: int64(stale),
		ToastsIssued:    int64(toasts),
		Confirmed:       int64(getCounterValue(m.confirmations, "confirmed")),
		Cancelled:       int64(getCounterValue(m.confirmations, "cancelled")),
		CacheHitRate:    cacheHitRate,
		OpenSessions:    int64(getGaugeValue(m.openSessions)),
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}

func getGaugeValue(g prometheus.Gauge) float64 {
	m := &dto.Metric{}
	if err := g.Write(m); err != nil {
		return 0
	}
	if m.Gauge != nil && m.Gauge.Value != nil {
		return *m.Gauge.Value
	}
	return 0
}
