package handler

import (
	"net/http"
	"time"

	"github.com/boddenberg/artfy-client-go/internal/domain"
	"github.com/boddenberg/artfy-client-go/internal/format"
	"github.com/boddenberg/artfy-client-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Cart & orders
// ============================================================

type cartItemResponse struct {
	domain.CartItem
	Subtotal          decimal.Decimal `json:"lineTotal"`
	FormattedSubtotal string          `json:"formattedLineTotal"`
}

type cartResponse struct {
	State          service.CartState  `json:"state"`
	Items          []cartItemResponse `json:"items"`
	Total          decimal.Decimal    `json:"total"`
	FormattedTotal string             `json:"formattedTotal"`
	Error          string             `json:"error,omitempty"`
}

func toCartResponse(v service.CartView) cartResponse {
	resp := cartResponse{
		State:          v.State,
		Items:          []cartItemResponse{},
		Total:          v.Total,
		FormattedTotal: v.FormattedTotal(),
	}
	if v.Cart != nil {
		for _, item := range v.Cart.Items {
			resp.Items = append(resp.Items, cartItemResponse{
				CartItem:          item,
				Subtotal:          item.LineTotal(),
				FormattedSubtotal: format.Money(item.LineTotal()),
			})
		}
	}
	if v.Err != nil {
		resp.Error = v.Err.Error()
	}
	return resp
}

type addItemRequest struct {
	ProductID domain.ID `json:"productId"`
	Quantity  *int      `json:"quantity,omitempty"`
}

func getCartHandler(cart *service.CartSyncEngine, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/cart")
		defer span.End()

		if _, err := cart.Fetch(ctx); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, toCartResponse(cart.View()))
	}
}

func addCartItemHandler(cart *service.CartSyncEngine, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/cart/items")
		defer span.End()

		var req addItemRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.ProductID.IsZero() {
			handleServiceError(w, domain.NewValidationError("productId", "Produto é obrigatório."), logger)
			return
		}
		quantity := 1
		if req.Quantity != nil {
			quantity = *req.Quantity
		}
		span.SetAttributes(attribute.String("product.id", req.ProductID.String()))

		if err := cart.Add(ctx, req.ProductID, quantity); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, domain.SuccessResponse{
			Message: "Item adicionado ao carrinho.",
			ID:      req.ProductID.String(),
		})
	}
}

func removeCartItemHandler(cart *service.CartSyncEngine, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/cart/items/{productId}")
		defer span.End()

		productID := domain.ID(chi.URLParam(r, "productId"))
		if _, err := cart.Remove(ctx, productID); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, toCartResponse(cart.View()))
	}
}

func checkoutHandler(cart *service.CartSyncEngine, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/cart/checkout")
		defer span.End()

		if err := cart.Checkout(ctx); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "Compra realizada com sucesso."})
	}
}

func buyNowHandler(catalog *service.Catalog, cart *service.CartSyncEngine, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/cart/buy-now/{productId}")
		defer span.End()

		productID := domain.ID(chi.URLParam(r, "productId"))
		if _, err := catalog.BuyNow(ctx, productID); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, toCartResponse(cart.View()))
	}
}

type orderResponse struct {
	ID                 domain.ID         `json:"id"`
	ProductName        string            `json:"productName"`
	UnitCount          int               `json:"unitCount"`
	LineTotal          decimal.Decimal   `json:"lineTotal"`
	FormattedLineTotal string            `json:"formattedLineTotal"`
	CompletedOn        time.Time         `json:"completedOn"`
	CompletedDate      string            `json:"completedDate"`
	Status             domain.CartStatus `json:"status"`
}

func listOrdersHandler(orders *service.OrderAggregator, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/orders")
		defer span.End()

		list, err := orders.ListOrders(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		resp := make([]orderResponse, 0, len(list))
		for _, o := range list {
			resp = append(resp, orderResponse{
				ID:                 o.ID,
				ProductName:        o.ProductName,
				UnitCount:          o.UnitCount,
				LineTotal:          o.LineTotal,
				FormattedLineTotal: format.Money(o.LineTotal),
				CompletedOn:        o.CompletedOn,
				CompletedDate:      o.CompletedDate(),
				Status:             o.Status,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
