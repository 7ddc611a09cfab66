package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/boddenberg/artfy-client-go/internal/domain"
	"github.com/boddenberg/artfy-client-go/internal/handler"
	"github.com/boddenberg/artfy-client-go/internal/infra/cache"
	"github.com/boddenberg/artfy-client-go/internal/infra/client"
	"github.com/boddenberg/artfy-client-go/internal/infra/observability"
	"github.com/boddenberg/artfy-client-go/internal/infra/resilience"
	"github.com/boddenberg/artfy-client-go/internal/infra/sessionstore"
	"github.com/boddenberg/artfy-client-go/internal/service"
)

const (
	shopEmail    = "ana@example.com"
	shopPassword = "segredo1"
)

// shopBackend is an httptest stand-in for the Artfy REST API.
type shopBackend struct {
	mu sync.Mutex

	token     string
	user      domain.UserProfile
	products  []domain.Product
	active    []domain.CartItem
	completed []domain.Cart
	nextID    int
	lastPatch map[string]any
	signups   int
}

func newShopBackend() *shopBackend {
	return &shopBackend{
		token: "tok-1",
		user: domain.UserProfile{
			ID:        "5",
			Name:      "Ana Souza",
			Email:     shopEmail,
			CPF:       "12345678901",
			BirthDate: "1990-05-12",
			Phone:     "11987654321",
			Address:   "Rua A, 10",
		},
		products: []domain.Product{
			{ID: "7", Name: "Noite Estrelada", Price: decimal.RequireFromString("149.90"), Category: "Pinturas"},
			{ID: "8", Name: "Pixel Sunset", Price: decimal.RequireFromString("35.50"), Category: "Arte Digital"},
		},
		nextID: 100,
	}
}

// rotateToken makes the backend reject the token the client holds.
func (b *shopBackend) rotateToken(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.token = token
}

func (b *shopBackend) patch() map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastPatch
}

func (b *shopBackend) signupCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.signups
}

func reply(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (b *shopBackend) authorized(w http.ResponseWriter, r *http.Request) bool {
	if strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ") != b.token {
		reply(w, http.StatusForbidden, map[string]string{"message": "Token inválido"})
		return false
	}
	return true
}

func (b *shopBackend) handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/products", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		reply(w, http.StatusOK, map[string]any{"products": b.products})
	})
	r.Get("/products/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		for _, p := range b.products {
			if p.ID.String() == chi.URLParam(r, "id") {
				reply(w, http.StatusOK, map[string]any{"product": p})
				return
			}
		}
		reply(w, http.StatusNotFound, map[string]string{"message": "Produto não encontrado"})
	})

	r.Post("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req domain.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		b.mu.Lock()
		defer b.mu.Unlock()
		if req.Email != shopEmail || req.Pass != shopPassword {
			reply(w, http.StatusUnauthorized, map[string]string{"message": "Credenciais inválidas"})
			return
		}
		reply(w, http.StatusOK, map[string]any{"accessToken": b.token, "user": b.user})
	})
	r.Post("/auth/signup", func(w http.ResponseWriter, r *http.Request) {
		var req domain.SignupRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		b.mu.Lock()
		defer b.mu.Unlock()
		if req.Email == shopEmail {
			reply(w, http.StatusConflict, map[string]string{"message": "E-mail já cadastrado"})
			return
		}
		b.signups++
		reply(w, http.StatusCreated, map[string]string{"message": "ok"})
	})

	r.Get("/cart", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		if !b.authorized(w, r) {
			return
		}
		reply(w, http.StatusOK, domain.Cart{ID: "1", Status: domain.CartActive, Items: b.active})
	})
	r.Post("/cart/add", func(w http.ResponseWriter, r *http.Request) {
		var req domain.AddToCartRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		b.mu.Lock()
		defer b.mu.Unlock()
		if !b.authorized(w, r) {
			return
		}
		for _, p := range b.products {
			if p.ID == req.ProductID {
				b.nextID++
				b.active = append(b.active, domain.CartItem{
					ID:        domain.ID(strconv.Itoa(b.nextID)),
					ProductID: p.ID,
					Price:     p.Price,
					Quantity:  req.Quantity,
					Product:   domain.ProductSummary{Name: p.Name},
				})
				reply(w, http.StatusCreated, map[string]string{"message": "ok"})
				return
			}
		}
		reply(w, http.StatusNotFound, map[string]string{"message": "Produto não encontrado"})
	})
	r.Delete("/cart/remove/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		if !b.authorized(w, r) {
			return
		}
		kept := b.active[:0]
		for _, item := range b.active {
			if item.ProductID.String() != chi.URLParam(r, "id") {
				kept = append(kept, item)
			}
		}
		b.active = kept
		w.WriteHeader(http.StatusNoContent)
	})
	r.Post("/cart/checkout", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		if !b.authorized(w, r) {
			return
		}
		if len(b.active) == 0 {
			reply(w, http.StatusBadRequest, map[string]string{"message": "Carrinho vazio"})
			return
		}
		b.completed = append(b.completed, domain.Cart{
			ID:        domain.ID(strconv.Itoa(len(b.completed) + 2)),
			Status:    domain.CartCompleted,
			Items:     b.active,
			UpdatedAt: time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC),
		})
		b.active = nil
		reply(w, http.StatusOK, map[string]string{"message": "ok"})
	})
	r.Get("/cart/user/me", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		if !b.authorized(w, r) {
			return
		}
		carts := append([]domain.Cart{{ID: "1", Status: domain.CartActive, Items: b.active}}, b.completed...)
		reply(w, http.StatusOK, map[string]any{"carts": carts})
	})

	r.Put("/user/{id}", func(w http.ResponseWriter, r *http.Request) {
		var patch map[string]any
		_ = json.NewDecoder(r.Body).Decode(&patch)

		b.mu.Lock()
		defer b.mu.Unlock()
		if !b.authorized(w, r) {
			return
		}
		b.lastPatch = patch
		for field, v := range patch {
			s, _ := v.(string)
			switch field {
			case "name":
				b.user.Name = s
			case "cpf":
				b.user.CPF = s
			case "birthDate":
				b.user.BirthDate = s
			case "phone":
				b.user.Phone = s
			case "address":
				b.user.Address = s
			}
		}
		reply(w, http.StatusOK, map[string]any{"user": b.user})
	})

	return r
}

// bff is the router under test wired to a real client and a shopBackend.
type bff struct {
	backend *shopBackend
	router  http.Handler
	metrics *observability.Metrics
	drafts  *cache.InMemory[*domain.ProfileDraft]
}

func newBFF(t *testing.T) *bff {
	t.Helper()

	backend := newShopBackend()
	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	api := client.New(
		srv.Client(),
		srv.URL,
		client.NewCircuitBreaker(),
		resilience.Config{MaxRetries: 1, InitialBackoff: time.Millisecond, MaxConcurrency: 4},
		nil,
		metrics,
		logger,
	)

	reauth := handler.NewReauthFlag(logger)
	sessions := service.NewSessionStore(sessionstore.NewMemory(), reauth, metrics, logger)
	cart := service.NewCartSyncEngine(api, sessions, metrics, logger)

	products := cache.New[[]domain.Product](time.Minute)
	drafts := cache.New[*domain.ProfileDraft](time.Minute)
	t.Cleanup(products.Close)
	t.Cleanup(drafts.Close)

	router := handler.NewRouter(handler.Deps{
		Sessions: sessions,
		Auth:     service.NewAuthGateway(api, sessions, metrics, logger),
		Cart:     cart,
		Orders:   service.NewOrderAggregator(api, sessions, metrics, logger),
		Profile:  service.NewProfileEditPipeline(api, sessions, metrics, logger),
		Catalog:  service.NewCatalog(api, cart, sessions, products, metrics, logger),
		Drafts:   drafts,
		Reauth:   reauth,
		Checks: []handler.HealthCheck{
			func(ctx context.Context) domain.ServiceHealth { return api.Health() },
		},
	}, metrics, logger)

	return &bff{backend: backend, router: router, metrics: metrics, drafts: drafts}
}

// do sends a request through the router and decodes a JSON reply into out
// when out is non-nil.
func (b *bff) do(t *testing.T, method, path string, body any, out any) int {
	t.Helper()

	var req *http.Request
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		req = httptest.NewRequest(method, path, strings.NewReader(string(raw)))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	b.router.ServeHTTP(rec, req)

	if out != nil && rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec.Code
}

func (b *bff) login(t *testing.T) {
	t.Helper()
	code := b.do(t, http.MethodPost, "/v1/session", map[string]string{"email": shopEmail, "password": shopPassword}, nil)
	require.Equal(t, http.StatusOK, code)
}

type apiError struct {
	Error     string            `json:"error"`
	Code      string            `json:"code"`
	Fields    map[string]string `json:"fields"`
	Retryable bool              `json:"retryable"`
}
