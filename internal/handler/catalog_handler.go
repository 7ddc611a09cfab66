package handler

import (
	"net/http"

	"github.com/boddenberg/artfy-client-go/internal/domain"
	"github.com/boddenberg/artfy-client-go/internal/format"
	"github.com/boddenberg/artfy-client-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Catalog
// ============================================================

type productResponse struct {
	domain.Product
	FormattedPrice string `json:"formattedPrice"`
}

func toProductResponse(p domain.Product) productResponse {
	return productResponse{Product: p, FormattedPrice: format.Money(p.Price)}
}

type productListResponse struct {
	Category   string            `json:"category"`
	Categories []string          `json:"categories"`
	Products   []productResponse `json:"products"`
}

func listProductsHandler(catalog *service.Catalog, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/products")
		defer span.End()

		category := r.URL.Query().Get("category")
		if category == "" {
			category = service.AllCategories
		}
		span.SetAttributes(attribute.String("category", category))

		products, err := catalog.ListProducts(ctx, category)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		resp := productListResponse{
			Category:   category,
			Categories: catalog.Categories(),
			Products:   make([]productResponse, 0, len(products)),
		}
		for _, p := range products {
			resp.Products = append(resp.Products, toProductResponse(p))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func getProductHandler(catalog *service.Catalog, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/products/{productId}")
		defer span.End()

		productID := domain.ID(chi.URLParam(r, "productId"))
		span.SetAttributes(attribute.String("product.id", productID.String()))

		product, err := catalog.GetProduct(ctx, productID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, toProductResponse(*product))
	}
}

type storefrontResponse struct {
	Categories []string          `json:"categories"`
	Products   []productResponse `json:"products"`
	LoggedIn   bool              `json:"loggedIn"`
	Cart       *cartResponse     `json:"cart,omitempty"`
}

func storefrontHandler(catalog *service.Catalog, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/storefront")
		defer span.End()

		front, err := catalog.Overview(ctx, r.URL.Query().Get("category"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		resp := storefrontResponse{
			Categories: front.Categories,
			Products:   make([]productResponse, 0, len(front.Products)),
			LoggedIn:   front.LoggedIn,
		}
		for _, p := range front.Products {
			resp.Products = append(resp.Products, toProductResponse(p))
		}
		if front.Cart != nil {
			cart := toCartResponse(*front.Cart)
			resp.Cart = &cart
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
