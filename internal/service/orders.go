package service

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/boddenberg/artfy-client-go/internal/domain"
	"github.com/boddenberg/artfy-client-go/internal/infra/observability"
	"github.com/boddenberg/artfy-client-go/internal/port"
)

var ordersTracer = otel.Tracer("service/orders")

// OrderAggregator derives the order history from the user's completed carts.
// It holds no state between calls.
type OrderAggregator struct {
	api      port.CartAPI
	sessions *SessionStore
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewOrderAggregator creates an OrderAggregator.
func NewOrderAggregator(
	api port.CartAPI,
	sessions *SessionStore,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *OrderAggregator {
	return &OrderAggregator{
		api:      api,
		sessions: sessions,
		metrics:  metrics,
		logger:   logger,
	}
}

// ListOrders returns one row per item of every COMPLETED cart, in backend
// order. No completed carts yields an empty, non-nil slice.
func (a *OrderAggregator) ListOrders(ctx context.Context) ([]domain.Order, error) {
	ctx, span := ordersTracer.Start(ctx, "OrderAggregator.ListOrders")
	defer span.End()

	sess, err := a.sessions.Require(ctx, domain.OpListOrders)
	if err != nil {
		return nil, err
	}

	carts, err := a.api.ListCarts(ctx, sess.Token)
	if err != nil {
		span.SetStatus(codes.Error, "list carts failed")
		err = authFailure(ctx, a.sessions, sess, domain.OpListOrders, err)
		a.logger.Warn("order history fetch failed", zap.Error(err))
		return nil, err
	}

	orders := DeriveOrders(carts)
	span.SetAttributes(
		attribute.Int("carts", len(carts)),
		attribute.Int("orders", len(orders)),
	)
	return orders, nil
}

// DeriveOrders flattens completed carts into order rows. Items of one cart
// stay adjacent.
func DeriveOrders(carts []domain.Cart) []domain.Order {
	orders := make([]domain.Order, 0)
	for _, cart := range carts {
		if cart.Status != domain.CartCompleted {
			continue
		}
		for _, item := range cart.Items {
			orders = append(orders, domain.Order{
				ID:          item.ID,
				ProductName: item.Product.Name,
				UnitCount:   item.Quantity,
				LineTotal:   item.LineTotal(),
				CompletedOn: cart.UpdatedAt,
				Status:      cart.Status,
			})
		}
	}
	return orders
}
