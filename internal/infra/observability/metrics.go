package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"

	"github.com/boddenberg/artfy-client-go/internal/domain"
)

// Backend call outcomes used as the "outcome" label.
const (
	OutcomeOK          = "ok"
	OutcomeClientError = "client_error"
	OutcomeServerError = "server_error"
	OutcomeNetwork     = "network"
	OutcomeCircuitOpen = "circuit_open"
)

// Session events used as the "event" label.
const (
	EventLogin         = "login"
	EventLogout        = "logout"
	EventExpired       = "expired"
	EventProfileUpdate = "profile_update"
)

// Metrics holds all Prometheus metrics for the client.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	backendDuration *prometheus.HistogramVec
	backendRequests *prometheus.CounterVec
	backendErrors   *prometheus.CounterVec
	sessionEvents   *prometheus.CounterVec
	cartOperations  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// client metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		backendDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "artfy_backend_request_duration_seconds",
				Help:    "Duration of backend API calls by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		backendRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "artfy_backend_requests_total",
				Help: "Backend API calls by outcome.",
			},
			[]string{"outcome"},
		),
		backendErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "artfy_backend_errors_total",
				Help: "Failed backend API calls by operation.",
			},
			[]string{"operation"},
		),
		sessionEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "artfy_session_events_total",
				Help: "Session lifecycle events.",
			},
			[]string{"event"},
		),
		cartOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "artfy_cart_operations_total",
				Help: "Successful cart operations.",
			},
			[]string{"operation"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "artfy_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "artfy_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
	}
}

// RecordBackendCall records one backend call: its duration and outcome.
func (m *Metrics) RecordBackendCall(operation, outcome string, d time.Duration) {
	m.backendDuration.WithLabelValues(operation).Observe(d.Seconds())
	m.backendRequests.WithLabelValues(outcome).Inc()
	if outcome != OutcomeOK {
		m.backendErrors.WithLabelValues(operation).Inc()
	}
}

// IncrSessionEvent increments the session event counter.
func (m *Metrics) IncrSessionEvent(event string) {
	m.sessionEvents.WithLabelValues(event).Inc()
}

// IncrCartOperation increments the cart operation counter.
func (m *Metrics) IncrCartOperation(operation string) {
	m.cartOperations.WithLabelValues(operation).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// Snapshot returns the cumulative client metrics suitable for the
// GET /v1/metrics/client endpoint.
func (m *Metrics) Snapshot() *domain.ClientMetrics {
	var total, failed float64
	for _, outcome := range []string{OutcomeOK, OutcomeClientError, OutcomeServerError, OutcomeNetwork, OutcomeCircuitOpen} {
		v := getCounterValue(m.backendRequests, outcome)
		total += v
		if outcome != OutcomeOK {
			failed += v
		}
	}

	var cartOps float64
	for _, op := range []string{domain.OpFetchCart, domain.OpAddToCart, domain.OpRemoveFromCart, domain.OpCheckout} {
		cartOps += getCounterValue(m.cartOperations, op)
	}

	hits := getCounterValue(m.cacheHits, "catalog")
	misses := getCounterValue(m.cacheMisses, "catalog")

	errorRate := float64(0)
	cacheHitRate := float64(0)
	if total > 0 {
		errorRate = failed / total
	}
	if hits+misses > 0 {
		cacheHitRate = hits / (hits + misses)
	}

	return &domain.ClientMetrics{
		BackendRequests:  int64(total),
		BackendErrors:    int64(failed),
		ErrorRate:        errorRate,
		Logins:           int64(getCounterValue(m.sessionEvents, EventLogin)),
		Logouts:          int64(getCounterValue(m.sessionEvents, EventLogout)),
		SessionsExpired:  int64(getCounterValue(m.sessionEvents, EventExpired)),
		CartOperations:   int64(cartOps),
		Checkouts:        int64(getCounterValue(m.cartOperations, domain.OpCheckout)),
		ProfileUpdates:   int64(getCounterValue(m.sessionEvents, EventProfileUpdate)),
		CacheHitRate:     cacheHitRate,
		CircuitOpenCount: int64(getCounterValue(m.backendRequests, OutcomeCircuitOpen)),
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
