package service

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/boddenberg/artfy-client-go/internal/domain"
	"github.com/boddenberg/artfy-client-go/internal/format"
	"github.com/boddenberg/artfy-client-go/internal/infra/observability"
	"github.com/boddenberg/artfy-client-go/internal/port"
)

var cartTracer = otel.Tracer("service/cart")

// CartState is the lifecycle of the local cart view.
type CartState string

const (
	CartIdle    CartState = "idle"
	CartLoading CartState = "loading"
	CartLoaded  CartState = "loaded"
	CartFailed  CartState = "failed"
)

// MsgQuantity is reported when an add asks for fewer than one unit.
const MsgQuantity = "Quantidade deve ser pelo menos 1."

// CartView is a point-in-time copy of the engine's view.
type CartView struct {
	State CartState       `json:"state"`
	Cart  *domain.Cart    `json:"cart,omitempty"`
	Total decimal.Decimal `json:"total"`
	Err   error           `json:"-"`
}

// FormattedTotal renders Total for display.
func (v CartView) FormattedTotal() string {
	return format.Money(v.Total)
}

// CartSyncEngine keeps a local view of the server-held cart. Every change
// is confirmed by reading the cart back; nothing is patched locally except
// the clear after a checkout.
type CartSyncEngine struct {
	api      port.CartAPI
	sessions *SessionStore
	metrics  *observability.Metrics
	logger   *zap.Logger

	mu    sync.Mutex
	state CartState
	cart  *domain.Cart
	err   error
}

// NewCartSyncEngine creates a CartSyncEngine in the Idle state.
func NewCartSyncEngine(
	api port.CartAPI,
	sessions *SessionStore,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *CartSyncEngine {
	return &CartSyncEngine{
		api:      api,
		sessions: sessions,
		metrics:  metrics,
		logger:   logger,
		state:    CartIdle,
	}
}

// View returns a copy of the current view.
func (e *CartSyncEngine) View() CartView {
	e.mu.Lock()
	defer e.mu.Unlock()

	v := CartView{State: e.state, Total: decimal.Zero, Err: e.err}
	if e.cart != nil {
		c := *e.cart
		c.Items = append([]domain.CartItem(nil), e.cart.Items...)
		v.Cart = &c
		v.Total = ComputeTotal(c.Items)
	}
	return v
}

func (e *CartSyncEngine) setState(state CartState, cart *domain.Cart, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state = state
	e.err = err
	if cart != nil {
		e.cart = cart
	}
}

// Fetch reads the authoritative cart and replaces the view with it.
// On failure the view moves to Failed and keeps the last loaded cart.
func (e *CartSyncEngine) Fetch(ctx context.Context) (*domain.Cart, error) {
	ctx, span := cartTracer.Start(ctx, "CartSyncEngine.Fetch")
	defer span.End()

	e.setState(CartLoading, nil, nil)

	sess, err := e.sessions.Require(ctx, domain.OpFetchCart)
	if err != nil {
		e.setState(CartFailed, nil, err)
		return nil, err
	}

	cart, err := e.api.GetCart(ctx, sess.Token)
	if err != nil {
		err = authFailure(ctx, e.sessions, sess, domain.OpFetchCart, err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.Warn("cart fetch failed", zap.Error(err))
		e.setState(CartFailed, nil, err)
		return nil, err
	}

	e.setState(CartLoaded, cart, nil)
	e.metrics.IncrCartOperation(domain.OpFetchCart)
	span.SetAttributes(attribute.Int("cart.items", len(cart.Items)))
	return cart, nil
}

// Add posts quantity units of productID. The view is not refreshed; callers
// that batch adds fetch once afterwards.
func (e *CartSyncEngine) Add(ctx context.Context, productID domain.ID, quantity int) error {
	ctx, span := cartTracer.Start(ctx, "CartSyncEngine.Add")
	defer span.End()
	span.SetAttributes(
		attribute.String("product.id", productID.String()),
		attribute.Int("quantity", quantity),
	)

	if quantity < 1 {
		return domain.NewValidationError("quantity", MsgQuantity)
	}

	sess, err := e.sessions.Require(ctx, domain.OpAddToCart)
	if err != nil {
		return err
	}

	err = e.api.AddItem(ctx, sess.Token, domain.AddToCartRequest{ProductID: productID, Quantity: quantity})
	if err != nil {
		span.SetStatus(codes.Error, "add failed")
		return authFailure(ctx, e.sessions, sess, domain.OpAddToCart, err)
	}

	e.metrics.IncrCartOperation(domain.OpAddToCart)
	e.logger.Debug("item added to cart",
		zap.String("product_id", productID.String()),
		zap.Int("quantity", quantity),
	)
	return nil
}

// Remove deletes productID's line and then re-reads the cart. A rejected
// delete does not trigger the re-read.
func (e *CartSyncEngine) Remove(ctx context.Context, productID domain.ID) (*domain.Cart, error) {
	ctx, span := cartTracer.Start(ctx, "CartSyncEngine.Remove")
	defer span.End()
	span.SetAttributes(attribute.String("product.id", productID.String()))

	sess, err := e.sessions.Require(ctx, domain.OpRemoveFromCart)
	if err != nil {
		return nil, err
	}

	if err := e.api.RemoveItem(ctx, sess.Token, productID); err != nil {
		span.SetStatus(codes.Error, "remove failed")
		return nil, authFailure(ctx, e.sessions, sess, domain.OpRemoveFromCart, err)
	}
	e.metrics.IncrCartOperation(domain.OpRemoveFromCart)

	return e.Fetch(ctx)
}

// Checkout completes the current cart. On success the view becomes an empty
// loaded cart without a re-read; on failure the view is left as it was.
func (e *CartSyncEngine) Checkout(ctx context.Context) error {
	ctx, span := cartTracer.Start(ctx, "CartSyncEngine.Checkout")
	defer span.End()

	sess, err := e.sessions.Require(ctx, domain.OpCheckout)
	if err != nil {
		return err
	}

	if err := e.api.Checkout(ctx, sess.Token); err != nil {
		span.SetStatus(codes.Error, "checkout failed")
		err = authFailure(ctx, e.sessions, sess, domain.OpCheckout, err)
		e.logger.Warn("checkout failed", zap.Error(err))
		return err
	}

	e.setState(CartLoaded, &domain.Cart{Items: []domain.CartItem{}}, nil)
	e.metrics.IncrCartOperation(domain.OpCheckout)
	e.logger.Info("checkout completed", zap.String("user_id", sess.User.ID.String()))
	return nil
}

// ComputeTotal sums price * quantity over items without rounding.
func ComputeTotal(items []domain.CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total
}
