// Package app assembles the client core from configuration. Both the CLI
// commands and the local BFF server build their services through New.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/boddenberg/artfy-client-go/internal/config"
	"github.com/boddenberg/artfy-client-go/internal/domain"
	"github.com/boddenberg/artfy-client-go/internal/handler"
	"github.com/boddenberg/artfy-client-go/internal/infra/cache"
	"github.com/boddenberg/artfy-client-go/internal/infra/client"
	"github.com/boddenberg/artfy-client-go/internal/infra/observability"
	"github.com/boddenberg/artfy-client-go/internal/infra/resilience"
	"github.com/boddenberg/artfy-client-go/internal/infra/sessionstore"
	"github.com/boddenberg/artfy-client-go/internal/port"
	"github.com/boddenberg/artfy-client-go/internal/service"
)

// maxBackoff caps a single retry wait against the backend.
const maxBackoff = 5 * time.Second

// App holds the wired client core.
type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *observability.Metrics

	API      *client.Client
	Sessions *service.SessionStore
	Auth     *service.AuthGateway
	Cart     *service.CartSyncEngine
	Orders   *service.OrderAggregator
	Profile  *service.ProfileEditPipeline
	Catalog  *service.Catalog

	products *cache.InMemory[[]domain.Product]
	redis    *redis.Client
	closers  []func()
}

// New wires every service from cfg. prompter receives re-authentication
// prompts; nil discards them.
func New(ctx context.Context, cfg *config.Config, prompter port.ReauthPrompter, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: observability.NewMetrics(),
	}

	// --- Resilience ---
	resCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxBackoff:     maxBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}

	// --- Clients ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	a.API = client.New(
		httpClient,
		cfg.APIURL,
		client.NewCircuitBreaker(),
		resCfg,
		client.NewLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		a.Metrics,
		logger,
	)

	persister, err := a.newPersister(ctx)
	if err != nil {
		return nil, err
	}

	// --- Cache ---
	a.products = cache.New[[]domain.Product](cfg.CatalogCacheTTL)
	a.closers = append(a.closers, a.products.Close)

	// --- Services ---
	a.Sessions = service.NewSessionStore(persister, prompter, a.Metrics, logger)
	a.Auth = service.NewAuthGateway(a.API, a.Sessions, a.Metrics, logger)
	a.Cart = service.NewCartSyncEngine(a.API, a.Sessions, a.Metrics, logger)
	a.Orders = service.NewOrderAggregator(a.API, a.Sessions, a.Metrics, logger)
	a.Profile = service.NewProfileEditPipeline(a.API, a.Sessions, a.Metrics, logger)
	a.Catalog = service.NewCatalog(a.API, a.Cart, a.Sessions, a.products, a.Metrics, logger)

	logger.Debug("client core ready",
		zap.String("api_url", cfg.APIURL),
		zap.String("session_backend", cfg.SessionBackend),
	)
	return a, nil
}

func (a *App) newPersister(ctx context.Context) (port.SessionPersister, error) {
	switch a.Config.SessionBackend {
	case config.SessionBackendMemory:
		return sessionstore.NewMemory(), nil
	case config.SessionBackendRedis:
		rdb, err := sessionstore.NewRedisClient(ctx, a.Config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("session store: %w", err)
		}
		a.redis = rdb
		a.closers = append(a.closers, func() { rdb.Close() })
		return sessionstore.NewRedis(rdb, a.Config.RedisKeyPrefix), nil
	default:
		return sessionstore.NewFile(a.Config.SessionFile, a.Config.SessionSecret), nil
	}
}

// Router builds the BFF router. reauth must be the prompter the App was
// created with so expired sessions surface as session_expired.
func (a *App) Router(reauth *handler.ReauthFlag) (http.Handler, func()) {
	drafts := cache.New[*domain.ProfileDraft](a.Config.DraftTTL)

	deps := handler.Deps{
		Sessions: a.Sessions,
		Auth:     a.Auth,
		Cart:     a.Cart,
		Orders:   a.Orders,
		Profile:  a.Profile,
		Catalog:  a.Catalog,
		Drafts:   drafts,
		Reauth:   reauth,
		Checks:   a.healthChecks(),
	}
	return handler.NewRouter(deps, a.Metrics, a.Logger), drafts.Close
}

func (a *App) healthChecks() []handler.HealthCheck {
	checks := []handler.HealthCheck{
		func(context.Context) domain.ServiceHealth { return a.API.Health() },
	}
	if a.redis != nil {
		store := sessionstore.NewRedis(a.redis, a.Config.RedisKeyPrefix)
		checks = append(checks, func(ctx context.Context) domain.ServiceHealth {
			ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			if err := store.Health(ctx); err != nil {
				return domain.ServiceHealth{Name: "redis", Status: "unhealthy", Detail: err.Error()}
			}
			return domain.ServiceHealth{Name: "redis", Status: "healthy"}
		})
	}
	return checks
}

// Close releases caches and connections. It is safe to call more than once.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
