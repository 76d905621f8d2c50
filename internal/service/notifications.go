package service

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/boddenberg/finance-entry-bfa-go/internal/domain"
	"github.com/boddenberg/finance-entry-bfa-go/internal/infra/observability"
)

// Toast timing defaults.
const (
	DefaultToastDuration = 4 * time.Second
	DefaultToastGrace    = 300 * time.Millisecond
)

// NotificationConfig tunes toast lifetimes.
type NotificationConfig struct {
	Duration time.Duration // default visible time
	Grace    time.Duration // exit transition kept after Duration
}

// NotifyOption customizes a single toast.
type NotifyOption func(*domain.Toast)

// WithDuration overrides the visible time of one toast. Non-positive values are ignored.
func WithDuration(d time.Duration) NotifyOption {
	return func(t *domain.Toast) {
		if d > 0 {
			t.Duration = d
		}
	}
}

// WithTitle sets the toast title.
func WithTitle(title string) NotifyOption {
	return func(t *domain.Toast) { t.Title = title }
}

// NotificationQueue holds the visible toasts in insertion order.
// Each entry removes itself once its duration plus the grace period elapses.
type NotificationQueue struct {
	mu      sync.Mutex
	entries []domain.Toast
	timers  map[uint64]*time.Timer
	nextID  uint64
	closed  bool

	cfg     NotificationConfig
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewNotificationQueue creates an empty queue.
func NewNotificationQueue(cfg NotificationConfig, metrics *observability.Metrics, logger *zap.Logger) *NotificationQueue {
	if cfg.Duration <= 0 {
		cfg.Duration = DefaultToastDuration
	}
	if cfg.Grace < 0 {
		cfg.Grace = 0
	}
	return &NotificationQueue{
		timers:  make(map[uint64]*time.Timer),
		cfg:     cfg,
		metrics: metrics,
		logger:  logger,
	}
}

// Notify appends a toast and returns its id. Ids are unique for the queue's lifetime.
// After Close it returns 0 and drops the message.
func (q *NotificationQueue) Notify(message string, severity domain.Severity, opts ...NotifyOption) uint64 {
	toast := domain.Toast{
		Message:   message,
		Severity:  severity,
		CreatedAt: time.Now(),
		Duration:  q.cfg.Duration,
	}
	for _, opt := range opts {
		opt(&toast)
	}
	toast.DurationMs = toast.Duration.Milliseconds()

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.logger.Debug("toast dropped after shutdown", zap.String("message", message))
		return 0
	}
	q.nextID++
	toast.ID = q.nextID
	id := toast.ID
	q.entries = append(q.entries, toast)
	q.timers[id] = time.AfterFunc(toast.Duration+q.cfg.Grace, func() { q.remove(id) })
	q.mu.Unlock()

	q.metrics.IncrToast(severity)
	q.logger.Debug("toast issued",
		zap.Uint64("toast_id", id),
		zap.String("severity", string(severity)),
		zap.Duration("duration", toast.Duration),
	)
	return id
}

// Success, Error, Warning and Info are shorthands for Notify.
func (q *NotificationQueue) Success(message string, opts ...NotifyOption) uint64 {
	return q.Notify(message, domain.SeveritySuccess, opts...)
}

func (q *NotificationQueue) Error(message string, opts ...NotifyOption) uint64 {
	return q.Notify(message, domain.SeverityError, opts...)
}

func (q *NotificationQueue) Warning(message string, opts ...NotifyOption) uint64 {
	return q.Notify(message, domain.SeverityWarning, opts...)
}

func (q *NotificationQueue) Info(message string, opts ...NotifyOption) uint64 {
	return q.Notify(message, domain.SeverityInfo, opts...)
}

// Dismiss removes the toast early. It reports whether the toast was present;
// dismissing an unknown or already expired id is a no-op.
func (q *NotificationQueue) Dismiss(id uint64) bool {
	return q.remove(id)
}

// List returns the visible toasts, oldest first.
func (q *NotificationQueue) List() []domain.Toast {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]domain.Toast(nil), q.entries...)
}

// Close cancels every pending expiry and empties the queue.
func (q *NotificationQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for id, t := range q.timers {
		t.Stop()
		delete(q.timers, id)
	}
	q.entries = nil
	q.closed = true
}

// remove is shared by Dismiss and expiry; whichever runs second finds nothing.
func (q *NotificationQueue) remove(id uint64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if t, ok := q.timers[id]; ok {
		t.Stop()
		delete(q.timers, id)
	}
	for i, e := range q.entries {
		if e.ID == id {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return true
		}
	}
	return false
}
