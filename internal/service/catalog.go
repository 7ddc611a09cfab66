package service

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/boddenberg/artfy-client-go/internal/domain"
	"github.com/boddenberg/artfy-client-go/internal/infra/observability"
	"github.com/boddenberg/artfy-client-go/internal/port"
)

var catalogTracer = otel.Tracer("service/catalog")

// AllCategories is the category filter value that matches every product.
const AllCategories = "Todos"

const (
	catalogCacheName = "catalog"
	catalogCacheKey  = "products"
)

var categories = []string{AllCategories, "Arte Digital", "Pinturas", "Esculturas"}

// Storefront is what the shop screen needs on first load.
type Storefront struct {
	Categories []string         `json:"categories"`
	Products   []domain.Product `json:"products"`
	LoggedIn   bool             `json:"loggedIn"`
	Cart       *CartView        `json:"cart,omitempty"`
}

// Catalog serves the product list and details and the buy-now shortcut.
type Catalog struct {
	api      port.CatalogAPI
	cart     *CartSyncEngine
	sessions *SessionStore
	cache    port.LoadingCache[[]domain.Product]
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewCatalog creates a Catalog.
func NewCatalog(
	api port.CatalogAPI,
	cart *CartSyncEngine,
	sessions *SessionStore,
	cache port.LoadingCache[[]domain.Product],
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Catalog {
	return &Catalog{
		api:      api,
		cart:     cart,
		sessions: sessions,
		cache:    cache,
		metrics:  metrics,
		logger:   logger,
	}
}

// Categories returns the category filter options, "Todos" first.
func (c *Catalog) Categories() []string {
	return append([]string(nil), categories...)
}

// ListProducts returns the products in category. "" and "Todos" return all.
func (c *Catalog) ListProducts(ctx context.Context, category string) ([]domain.Product, error) {
	ctx, span := catalogTracer.Start(ctx, "Catalog.ListProducts")
	defer span.End()
	span.SetAttributes(attribute.String("category", category))

	products, err := c.allProducts(ctx)
	if err != nil {
		return nil, err
	}
	return FilterByCategory(products, category), nil
}

func (c *Catalog) allProducts(ctx context.Context) ([]domain.Product, error) {
	products, hit, err := c.cache.GetOrLoad(ctx, catalogCacheKey, c.api.ListProducts)
	if hit {
		c.metrics.IncrCacheHit(catalogCacheName)
	} else {
		c.metrics.IncrCacheMiss(catalogCacheName)
	}
	if err != nil {
		c.logger.Error("failed to list products", zap.Error(err))
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// FilterByCategory keeps the products of one category, preserving order.
func FilterByCategory(products []domain.Product, category string) []domain.Product {
	if category == "" || category == AllCategories {
		return append([]domain.Product(nil), products...)
	}
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out
}

// GetProduct returns one product. An unknown id is *domain.ErrNotFound.
func (c *Catalog) GetProduct(ctx context.Context, id domain.ID) (*domain.Product, error) {
	ctx, span := catalogTracer.Start(ctx, "Catalog.GetProduct")
	defer span.End()
	span.SetAttributes(attribute.String("product.id", id.String()))

	product, err := c.api.GetProduct(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return product, nil
}

// BuyNow adds one unit of productID and returns the refreshed cart.
func (c *Catalog) BuyNow(ctx context.Context, productID domain.ID) (*domain.Cart, error) {
	ctx, span := catalogTracer.Start(ctx, "Catalog.BuyNow")
	defer span.End()

	if err := c.cart.Add(ctx, productID, 1); err != nil {
		return nil, err
	}
	return c.cart.Fetch(ctx)
}

// Overview loads the product list and, when logged in, the cart in
// parallel. A failed cart load leaves Cart describing the failure; only a
// failed product load fails the call.
func (c *Catalog) Overview(ctx context.Context, category string) (*Storefront, error) {
	ctx, span := catalogTracer.Start(ctx, "Catalog.Overview")
	defer span.End()

	sess, err := c.sessions.Get(ctx)
	if err != nil {
		return nil, err
	}

	front := &Storefront{Categories: c.Categories(), LoggedIn: sess != nil}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		products, err := c.ListProducts(gctx, category)
		if err != nil {
			return err
		}
		front.Products = products
		return nil
	})
	if sess != nil {
		g.Go(func() error {
			if _, err := c.cart.Fetch(gctx); err != nil {
				c.logger.Warn("storefront cart load failed", zap.Error(err))
			}
			view := c.cart.View()
			front.Cart = &view
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return front, nil
}
