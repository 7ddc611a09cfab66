package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /healthz and GET /readyz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services,omitempty"`
}

// ServiceHealth represents the health of a dependency of the client.
type ServiceHealth struct {
	Name      string `json:"name"`
	Status    string `json:"status"`
	LatencyMs int64  `json:"latencyMs"`
	Detail    string `json:"detail,omitempty"`
}

// ClientMetrics is returned by GET /v1/metrics/client.
type ClientMetrics struct {
	BackendRequests  int64   `json:"backendRequests"`
	BackendErrors    int64   `json:"backendErrors"`
	ErrorRate        float64 `json:"errorRate"`
	Logins           int64   `json:"logins"`
	Logouts          int64   `json:"logouts"`
	SessionsExpired  int64   `json:"sessionsExpired"`
	CartOperations   int64   `json:"cartOperations"`
	Checkouts        int64   `json:"checkouts"`
	ProfileUpdates   int64   `json:"profileUpdates"`
	CacheHitRate     float64 `json:"cacheHitRate"`
	CircuitOpenCount int64   `json:"circuitOpenCount"`
}

// SuccessResponse wraps a successful response with no entity body.
type SuccessResponse struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}
