package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual dependency.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
}

// EntryMetrics is returned by GET /v1/metrics/entry.
type EntryMetrics struct {
	Submissions     int64   `json:"submissions"`
	SubmitErrorRate float64 `json:"submitErrorRate"`
	StaleReferences int64   `json:"staleReferences"`
	ToastsIssued    int64   `json:"toastsIssued"`
	Confirmed       int64   `json:"confirmed"`
	Cancelled       int64   `json:"cancelled"`
	CacheHitRate    float64 `json:"cacheHitRate"`
	OpenSessions    int64   `json:"openSessions"`
}

// ============================================================
// Generic API Response wrapper
// ============================================================

// SuccessResponse wraps a successful single-entity response.
type SuccessResponse struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}
