package service_test

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/boddenberg/artfy-client-go/internal/domain"
	"github.com/boddenberg/artfy-client-go/internal/infra/cache"
	"github.com/boddenberg/artfy-client-go/internal/infra/observability"
	"github.com/boddenberg/artfy-client-go/internal/infra/sessionstore"
	"github.com/boddenberg/artfy-client-go/internal/service"
)

// --- Mocks ---

// fakeBackend is an in-memory stand-in for the shop API. It keeps one
// ACTIVE cart plus the completed ones and checks the bearer token.
type fakeBackend struct {
	mu sync.Mutex

	token       string
	user        domain.UserProfile
	loginResult *domain.LoginResult
	products    []domain.Product

	active     []domain.CartItem
	completed  []domain.Cart
	nextItemID int
	now        time.Time

	errs       map[string]error
	calls      map[string]int
	tokensSeen []string
	lastPatch  *domain.ProfilePatch
	lastSignup *domain.SignupRequest
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		token: "tok-1",
		user: domain.UserProfile{
			ID:        "5",
			Name:      "Ana Souza",
			Email:     "ana@example.com",
			CPF:       "12345678901",
			BirthDate: "1990-05-12",
			Phone:     "11987654321",
			Address:   "Rua A, 10",
		},
		products: []domain.Product{
			{ID: "7", Name: "Noite Estrelada", Price: decimal.RequireFromString("149.90"), Category: "Pinturas"},
			{ID: "8", Name: "Pixel Sunset", Price: decimal.RequireFromString("35.50"), Category: "Arte Digital"},
			{ID: "9", Name: "Busto em Bronze", Price: decimal.RequireFromString("820.00"), Category: "Esculturas"},
		},
		nextItemID: 100,
		now:        time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC),
		errs:       map[string]error{},
		calls:      map[string]int{},
	}
}

func (b *fakeBackend) failWith(op string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.errs[op] = err
}

func (b *fakeBackend) callCount(op string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[op]
}

// record counts the call and returns the injected failure, if any. Callers
// hold mu.
func (b *fakeBackend) record(op string) error {
	b.calls[op]++
	return b.errs[op]
}

// authorize records an authenticated call. Callers hold mu.
func (b *fakeBackend) authorize(op, token string) error {
	b.tokensSeen = append(b.tokensSeen, token)
	if err := b.record(op); err != nil {
		return err
	}
	if token != b.token {
		return &domain.ErrAPIStatus{Operation: op, StatusCode: http.StatusForbidden, Message: "Token inválido"}
	}
	return nil
}

func (b *fakeBackend) ListProducts(_ context.Context) ([]domain.Product, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record(domain.OpListProducts); err != nil {
		return nil, err
	}
	return append([]domain.Product(nil), b.products...), nil
}

func (b *fakeBackend) GetProduct(_ context.Context, id domain.ID) (*domain.Product, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record(domain.OpGetProduct); err != nil {
		return nil, err
	}
	for _, p := range b.products {
		if p.ID == id {
			p := p
			return &p, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "product", ID: id.String()}
}

func (b *fakeBackend) Login(_ context.Context, _ domain.LoginRequest) (*domain.LoginResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record(domain.OpLogin); err != nil {
		return nil, err
	}
	if b.loginResult != nil {
		return b.loginResult, nil
	}
	user := b.user
	return &domain.LoginResult{Token: b.token, User: &user}, nil
}

func (b *fakeBackend) Signup(_ context.Context, req domain.SignupRequest) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record(domain.OpRegister); err != nil {
		return err
	}
	b.lastSignup = &req
	return nil
}

func (b *fakeBackend) GetCart(_ context.Context, token string) (*domain.Cart, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.authorize(domain.OpFetchCart, token); err != nil {
		return nil, err
	}
	return &domain.Cart{
		ID:     "1",
		Status: domain.CartActive,
		Items:  append([]domain.CartItem{}, b.active...),
	}, nil
}

func (b *fakeBackend) AddItem(_ context.Context, token string, req domain.AddToCartRequest) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.authorize(domain.OpAddToCart, token); err != nil {
		return err
	}

	for i := range b.active {
		if b.active[i].ProductID == req.ProductID {
			b.active[i].Quantity += req.Quantity
			return nil
		}
	}
	for _, p := range b.products {
		if p.ID == req.ProductID {
			b.nextItemID++
			b.active = append(b.active, domain.CartItem{
				ID:        domain.ID(strconv.Itoa(b.nextItemID)),
				ProductID: p.ID,
				Price:     p.Price,
				Quantity:  req.Quantity,
				Product:   domain.ProductSummary{Name: p.Name},
			})
			return nil
		}
	}
	return &domain.ErrAPIStatus{Operation: domain.OpAddToCart, StatusCode: http.StatusNotFound, Message: "Produto não encontrado"}
}

func (b *fakeBackend) RemoveItem(_ context.Context, token string, productID domain.ID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.authorize(domain.OpRemoveFromCart, token); err != nil {
		return err
	}

	kept := b.active[:0]
	for _, item := range b.active {
		if item.ProductID != productID {
			kept = append(kept, item)
		}
	}
	b.active = kept
	return nil
}

func (b *fakeBackend) Checkout(_ context.Context, token string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.authorize(domain.OpCheckout, token); err != nil {
		return err
	}
	if len(b.active) == 0 {
		return &domain.ErrAPIStatus{Operation: domain.OpCheckout, StatusCode: http.StatusBadRequest, Message: "Carrinho vazio"}
	}

	b.completed = append(b.completed, domain.Cart{
		ID:        domain.ID(strconv.Itoa(len(b.completed) + 1)),
		Status:    domain.CartCompleted,
		Items:     b.active,
		UpdatedAt: b.now,
	})
	b.active = nil
	return nil
}

func (b *fakeBackend) ListCarts(_ context.Context, token string) ([]domain.Cart, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.authorize(domain.OpListOrders, token); err != nil {
		return nil, err
	}

	carts := append([]domain.Cart(nil), b.completed...)
	return append(carts, domain.Cart{ID: "99", Status: domain.CartActive, Items: append([]domain.CartItem{}, b.active...)}), nil
}

func (b *fakeBackend) UpdateUser(_ context.Context, token string, userID domain.ID, patch domain.ProfilePatch) (*domain.UserProfile, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.authorize(domain.OpUpdateProfile, token); err != nil {
		return nil, err
	}
	if userID != b.user.ID {
		return nil, &domain.ErrAPIStatus{Operation: domain.OpUpdateProfile, StatusCode: http.StatusNotFound, Message: "Usuário não encontrado"}
	}

	b.lastPatch = &patch
	apply := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	apply(&b.user.Name, patch.Name)
	apply(&b.user.CPF, patch.CPF)
	apply(&b.user.BirthDate, patch.BirthDate)
	apply(&b.user.Phone, patch.Phone)
	apply(&b.user.Address, patch.Address)

	user := b.user
	return &user, nil
}

type recordingPrompter struct {
	mu  sync.Mutex
	ops []string
}

func (p *recordingPrompter) PromptReauth(_ context.Context, operation string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ops = append(p.ops, operation)
}

func (p *recordingPrompter) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.ops)
}

// --- Harness ---

type harness struct {
	backend  *fakeBackend
	persist  *sessionstore.Memory
	prompter *recordingPrompter
	metrics  *observability.Metrics
	sessions *service.SessionStore
	auth     *service.AuthGateway
	cart     *service.CartSyncEngine
	orders   *service.OrderAggregator
	profile  *service.ProfileEditPipeline
	catalog  *service.Catalog
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		backend:  newFakeBackend(),
		persist:  sessionstore.NewMemory(),
		prompter: &recordingPrompter{},
		metrics:  observability.NewMetrics(),
	}
	logger := zap.NewNop()

	products := cache.New[[]domain.Product](5 * time.Minute)
	t.Cleanup(products.Close)

	h.sessions = service.NewSessionStore(h.persist, h.prompter, h.metrics, logger)
	h.auth = service.NewAuthGateway(h.backend, h.sessions, h.metrics, logger)
	h.cart = service.NewCartSyncEngine(h.backend, h.sessions, h.metrics, logger)
	h.orders = service.NewOrderAggregator(h.backend, h.sessions, h.metrics, logger)
	h.profile = service.NewProfileEditPipeline(h.backend, h.sessions, h.metrics, logger)
	h.catalog = service.NewCatalog(h.backend, h.cart, h.sessions, products, h.metrics, logger)
	return h
}

// login stores the backend's session directly, without counting a call.
func (h *harness) login(t *testing.T) {
	t.Helper()
	require.NoError(t, h.sessions.Set(context.Background(), domain.Session{
		Token: h.backend.token,
		User:  h.backend.user,
	}))
}
