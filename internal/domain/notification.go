package domain

import "time"

// ============================================================
// Toasts
// ============================================================

// Severity is the visual weight of a toast.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Toast is a transient notification entry.
type Toast struct {
	ID         uint64        `json:"id"`
	Message    string        `json:"message"`
	Severity   Severity      `json:"severity"`
	Title      string        `json:"title,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	Duration   time.Duration `json:"-"`
	DurationMs int64         `json:"duration_ms"`
}

// ============================================================
// Confirmations
// ============================================================

// ConfirmationSeverity styles a confirmation dialog.
type ConfirmationSeverity string

const (
	ConfirmationDanger  ConfirmationSeverity = "danger"
	ConfirmationWarning ConfirmationSeverity = "warning"
	ConfirmationInfo    ConfirmationSeverity = "info"
)

// ConfirmationConfig describes a yes/no question for the user.
type ConfirmationConfig struct {
	Title        string               `json:"title"`
	Message      string               `json:"message"`
	Severity     ConfirmationSeverity `json:"severity"`
	ConfirmLabel string               `json:"confirm_label"`
	CancelLabel  string               `json:"cancel_label"`
}

// ConfirmationRequest is a queued confirmation awaiting an outcome.
type ConfirmationRequest struct {
	ID          string             `json:"id"`
	Config      ConfirmationConfig `json:"config"`
	RequestedAt time.Time          `json:"requested_at"`
	Queued      int                `json:"queued"` // requests waiting behind this one
}
