// Package handler is the local backend-for-frontend served by `artfy serve`.
// It exposes the client core to a UI shell as JSON on localhost.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/boddenberg/artfy-client-go/internal/domain"
	"github.com/boddenberg/artfy-client-go/internal/infra/observability"
	"github.com/boddenberg/artfy-client-go/internal/port"
	"github.com/boddenberg/artfy-client-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// HealthCheck reports the health of one dependency.
type HealthCheck func(ctx context.Context) domain.ServiceHealth

// Deps are the services the router serves.
type Deps struct {
	Sessions *service.SessionStore
	Auth     *service.AuthGateway
	Cart     *service.CartSyncEngine
	Orders   *service.OrderAggregator
	Profile  *service.ProfileEditPipeline
	Catalog  *service.Catalog
	Drafts   port.Cache[*domain.ProfileDraft]
	Reauth   *ReauthFlag
	Checks   []HealthCheck
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(deps Deps, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	drafts := newDraftStore(deps.Drafts)

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(deps.Checks))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		r.Get("/metrics/client", clientMetricsHandler(metrics))

		// Session & account
		r.Post("/session", loginHandler(deps.Auth, deps.Reauth, logger))
		r.Delete("/session", logoutHandler(deps.Auth, logger))
		r.Get("/session", currentSessionHandler(deps.Auth, deps.Reauth, logger))
		r.Post("/register", registerHandler(deps.Auth, logger))

		// Catalog
		r.Get("/products", listProductsHandler(deps.Catalog, logger))
		r.Get("/products/{productId}", getProductHandler(deps.Catalog, logger))
		r.Get("/storefront", storefrontHandler(deps.Catalog, logger))

		// Everything below needs a stored session.
		r.Group(func(r chi.Router) {
			r.Use(RequireSession(deps.Sessions, deps.Reauth, logger))

			r.Get("/cart", getCartHandler(deps.Cart, logger))
			r.Post("/cart/items", addCartItemHandler(deps.Cart, logger))
			r.Delete("/cart/items/{productId}", removeCartItemHandler(deps.Cart, logger))
			r.Post("/cart/checkout", checkoutHandler(deps.Cart, logger))
			r.Post("/cart/buy-now/{productId}", buyNowHandler(deps.Catalog, deps.Cart, logger))

			r.Get("/orders", listOrdersHandler(deps.Orders, logger))

			r.Post("/profile/drafts", openDraftHandler(deps.Profile, drafts, logger))
			r.Patch("/profile/drafts/{draftId}", changeDraftHandler(deps.Profile, drafts, logger))
			r.Post("/profile/drafts/{draftId}/submit", submitDraftHandler(deps.Profile, drafts, logger))
			r.Delete("/profile/drafts/{draftId}", discardDraftHandler(drafts, logger))
		})
	})

	return r
}

// ============================================================
// Operational
// ============================================================

func healthzHandler(checks []HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /healthz")
		defer span.End()

		services := []domain.ServiceHealth{
			{Name: "artfy-bff", Status: "healthy"},
		}
		for _, check := range checks {
			start := time.Now()
			h := check(ctx)
			h.LatencyMs = time.Since(start).Milliseconds()
			services = append(services, h)
		}

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status == "unhealthy" {
				overallStatus = "unhealthy"
				break
			}
			if s.Status == "degraded" {
				overallStatus = "degraded"
			}
		}

		status := http.StatusOK
		if overallStatus == "unhealthy" {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, domain.HealthStatus{
			Status:   overallStatus,
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func clientMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.Snapshot())
	}
}
