package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/boddenberg/artfy-client-go/internal/domain"
	"github.com/boddenberg/artfy-client-go/internal/handler"
	"github.com/boddenberg/artfy-client-go/internal/infra/observability"
)

// --- Operational ---

func TestHealthz(t *testing.T) {
	b := newBFF(t)

	var health domain.HealthStatus
	code := b.do(t, http.MethodGet, "/healthz", nil, &health)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", health.Status)
	require.Len(t, health.Services, 2)
	assert.Equal(t, "artfy-api", health.Services[1].Name)
}

func TestHealthz_UnhealthyDependency(t *testing.T) {
	router := handler.NewRouter(handler.Deps{
		Checks: []handler.HealthCheck{
			func(context.Context) domain.ServiceHealth {
				return domain.ServiceHealth{Name: "redis", Status: "unhealthy"}
			},
		},
	}, observability.NewMetrics(), zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"unhealthy"`)
}

func TestReadyzAndPing(t *testing.T) {
	b := newBFF(t)

	assert.Equal(t, http.StatusOK, b.do(t, http.MethodGet, "/readyz", nil, nil))
	assert.Equal(t, http.StatusOK, b.do(t, http.MethodGet, "/ping", nil, nil))
}

func TestMetricsEndpoint(t *testing.T) {
	b := newBFF(t)
	b.login(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	b.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), "artfy_backend_requests_total")
	assert.Contains(t, string(body), "artfy_session_events_total")

	var snapshot domain.ClientMetrics
	require.Equal(t, http.StatusOK, b.do(t, http.MethodGet, "/v1/metrics/client", nil, &snapshot))
	assert.EqualValues(t, 1, snapshot.Logins)
}

// --- Session ---

func TestLogin_ResponseOmitsToken(t *testing.T) {
	b := newBFF(t)

	var raw map[string]any
	code := b.do(t, http.MethodPost, "/v1/session", map[string]string{"email": " " + shopEmail + " ", "password": shopPassword}, &raw)

	require.Equal(t, http.StatusOK, code)
	assert.NotContains(t, raw, "token")
	user := raw["user"].(map[string]any)
	assert.Equal(t, "Ana Souza", user["name"])

	var sess struct {
		User domain.UserProfile `json:"user"`
	}
	require.Equal(t, http.StatusOK, b.do(t, http.MethodGet, "/v1/session", nil, &sess))
	assert.Equal(t, domain.ID("5"), sess.User.ID)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	b := newBFF(t)

	var apiErr apiError
	code := b.do(t, http.MethodPost, "/v1/session", map[string]string{"email": shopEmail, "password": "errada123"}, &apiErr)

	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, handler.CodeInvalidCredentials, apiErr.Code)
	assert.Equal(t, http.StatusUnauthorized, b.do(t, http.MethodGet, "/v1/session", nil, nil))
}

func TestLogin_MalformedBody(t *testing.T) {
	b := newBFF(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/session", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	b.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), handler.CodeBadRequest)
}

func TestLogout(t *testing.T) {
	b := newBFF(t)
	b.login(t)

	assert.Equal(t, http.StatusNoContent, b.do(t, http.MethodDelete, "/v1/session", nil, nil))
	assert.Equal(t, http.StatusNoContent, b.do(t, http.MethodDelete, "/v1/session", nil, nil))

	var apiErr apiError
	assert.Equal(t, http.StatusUnauthorized, b.do(t, http.MethodGet, "/v1/cart", nil, &apiErr))
	assert.Equal(t, handler.CodeUnauthenticated, apiErr.Code)
}

func TestRegister(t *testing.T) {
	form := map[string]string{
		"name":            "Bia Lima",
		"email":           "bia@example.com",
		"password":        "segredo12",
		"confirmPassword": "segredo12",
		"cpf":             "98765432100",
		"birthDate":       "01021985",
		"phone":           "21998765432",
	}

	t.Run("created", func(t *testing.T) {
		b := newBFF(t)

		var resp domain.SuccessResponse
		require.Equal(t, http.StatusCreated, b.do(t, http.MethodPost, "/v1/register", form, &resp))
		assert.Contains(t, resp.Message, "Cadastro realizado")
		assert.Equal(t, 1, b.backend.signupCount())
	})

	t.Run("rejected by backend", func(t *testing.T) {
		b := newBFF(t)
		taken := map[string]string{}
		for k, v := range form {
			taken[k] = v
		}
		taken["email"] = shopEmail

		var apiErr apiError
		assert.Equal(t, http.StatusUnprocessableEntity, b.do(t, http.MethodPost, "/v1/register", taken, &apiErr))
		assert.Equal(t, handler.CodeRegistrationRejected, apiErr.Code)
	})

	t.Run("invalid fields", func(t *testing.T) {
		b := newBFF(t)

		var apiErr apiError
		code := b.do(t, http.MethodPost, "/v1/register", map[string]string{
			"name":            "Bia",
			"email":           "bia@",
			"password":        "curta",
			"confirmPassword": "outra",
			"cpf":             "123",
			"birthDate":       "01/02",
			"phone":           "2199",
		}, &apiErr)

		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, handler.CodeValidation, apiErr.Code)
		assert.Len(t, apiErr.Fields, 6)
		assert.Equal(t, 0, b.backend.signupCount())
	})
}

// --- Catalog ---

func TestListProducts(t *testing.T) {
	b := newBFF(t)

	var resp struct {
		Category   string   `json:"category"`
		Categories []string `json:"categories"`
		Products   []struct {
			ID             domain.ID `json:"id"`
			FormattedPrice string    `json:"formattedPrice"`
		} `json:"products"`
	}
	require.Equal(t, http.StatusOK, b.do(t, http.MethodGet, "/v1/products?category=Pinturas", nil, &resp))

	assert.Equal(t, "Pinturas", resp.Category)
	assert.Contains(t, resp.Categories, "Todos")
	require.Len(t, resp.Products, 1)
	assert.Equal(t, domain.ID("7"), resp.Products[0].ID)
	assert.Equal(t, "R$ 149,90", resp.Products[0].FormattedPrice)

	require.Equal(t, http.StatusOK, b.do(t, http.MethodGet, "/v1/products", nil, &resp))
	assert.Equal(t, "Todos", resp.Category)
	assert.Len(t, resp.Products, 2)
}

func TestGetProduct(t *testing.T) {
	b := newBFF(t)

	var product struct {
		Name string `json:"name"`
	}
	require.Equal(t, http.StatusOK, b.do(t, http.MethodGet, "/v1/products/8", nil, &product))
	assert.Equal(t, "Pixel Sunset", product.Name)

	var apiErr apiError
	assert.Equal(t, http.StatusNotFound, b.do(t, http.MethodGet, "/v1/products/99", nil, &apiErr))
	assert.Equal(t, handler.CodeNotFound, apiErr.Code)
}

func TestStorefront(t *testing.T) {
	b := newBFF(t)

	var front struct {
		LoggedIn bool             `json:"loggedIn"`
		Products []map[string]any `json:"products"`
		Cart     *struct {
			State string `json:"state"`
		} `json:"cart"`
	}
	require.Equal(t, http.StatusOK, b.do(t, http.MethodGet, "/v1/storefront", nil, &front))
	assert.False(t, front.LoggedIn)
	assert.Nil(t, front.Cart)
	assert.Len(t, front.Products, 2)

	b.login(t)
	require.Equal(t, http.StatusOK, b.do(t, http.MethodGet, "/v1/storefront?category=Arte%20Digital", nil, &front))
	assert.True(t, front.LoggedIn)
	require.NotNil(t, front.Cart)
	assert.Equal(t, "loaded", front.Cart.State)
	assert.Len(t, front.Products, 1)
}

// --- Cart & orders ---

type cartBody struct {
	State          string `json:"state"`
	FormattedTotal string `json:"formattedTotal"`
	Items          []struct {
		ProductID          domain.ID `json:"productId"`
		Quantity           int       `json:"quantity"`
		FormattedLineTotal string    `json:"formattedLineTotal"`
	} `json:"items"`
}

func TestCart_RequiresSession(t *testing.T) {
	b := newBFF(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/v1/cart"},
		{http.MethodPost, "/v1/cart/checkout"},
		{http.MethodGet, "/v1/orders"},
		{http.MethodPost, "/v1/profile/drafts"},
	} {
		var apiErr apiError
		assert.Equal(t, http.StatusUnauthorized, b.do(t, tc.method, tc.path, nil, &apiErr), tc.path)
		assert.Equal(t, handler.CodeUnauthenticated, apiErr.Code, tc.path)
	}
}

func TestShoppingFlow(t *testing.T) {
	b := newBFF(t)
	b.login(t)

	var added domain.SuccessResponse
	require.Equal(t, http.StatusCreated, b.do(t, http.MethodPost, "/v1/cart/items", map[string]any{"productId": 7, "quantity": 2}, &added))
	assert.Equal(t, "7", added.ID)

	var cart cartBody
	require.Equal(t, http.StatusOK, b.do(t, http.MethodPost, "/v1/cart/buy-now/8", nil, &cart))
	assert.Equal(t, "loaded", cart.State)
	assert.Len(t, cart.Items, 2)
	assert.Equal(t, "R$ 335,30", cart.FormattedTotal)

	require.Equal(t, http.StatusOK, b.do(t, http.MethodDelete, "/v1/cart/items/8", nil, &cart))
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "R$ 299,80", cart.Items[0].FormattedLineTotal)
	assert.Equal(t, "R$ 299,80", cart.FormattedTotal)

	var done domain.SuccessResponse
	require.Equal(t, http.StatusOK, b.do(t, http.MethodPost, "/v1/cart/checkout", nil, &done))
	assert.Equal(t, "Compra realizada com sucesso.", done.Message)

	require.Equal(t, http.StatusOK, b.do(t, http.MethodGet, "/v1/cart", nil, &cart))
	assert.Empty(t, cart.Items)
	assert.Equal(t, "R$ 0,00", cart.FormattedTotal)

	var orders []struct {
		ProductName        string `json:"productName"`
		UnitCount          int    `json:"unitCount"`
		FormattedLineTotal string `json:"formattedLineTotal"`
		CompletedDate      string `json:"completedDate"`
		Status             string `json:"status"`
	}
	require.Equal(t, http.StatusOK, b.do(t, http.MethodGet, "/v1/orders", nil, &orders))
	require.Len(t, orders, 1)
	assert.Equal(t, "Noite Estrelada", orders[0].ProductName)
	assert.Equal(t, 2, orders[0].UnitCount)
	assert.Equal(t, "R$ 299,80", orders[0].FormattedLineTotal)
	assert.Equal(t, "15/03/2024", orders[0].CompletedDate)
	assert.Equal(t, "COMPLETED", orders[0].Status)
}

func TestAddItem_Validation(t *testing.T) {
	b := newBFF(t)
	b.login(t)

	var apiErr apiError
	assert.Equal(t, http.StatusBadRequest, b.do(t, http.MethodPost, "/v1/cart/items", map[string]any{"productId": 7, "quantity": 0}, &apiErr))
	assert.Equal(t, handler.CodeValidation, apiErr.Code)
	assert.Contains(t, apiErr.Fields, "quantity")

	apiErr = apiError{}
	assert.Equal(t, http.StatusBadRequest, b.do(t, http.MethodPost, "/v1/cart/items", map[string]any{"quantity": 1}, &apiErr))
	assert.Contains(t, apiErr.Fields, "productId")
}

func TestCheckout_EmptyCartRefused(t *testing.T) {
	b := newBFF(t)
	b.login(t)

	var apiErr apiError
	assert.Equal(t, http.StatusUnprocessableEntity, b.do(t, http.MethodPost, "/v1/cart/checkout", nil, &apiErr))
	assert.Equal(t, handler.CodeOperationFailed, apiErr.Code)
	assert.Equal(t, "Carrinho vazio", apiErr.Error)
	assert.False(t, apiErr.Retryable)
}

func TestSessionExpired(t *testing.T) {
	b := newBFF(t)
	b.login(t)
	b.backend.rotateToken("tok-2")

	var apiErr apiError
	assert.Equal(t, http.StatusUnauthorized, b.do(t, http.MethodGet, "/v1/cart", nil, &apiErr))
	assert.Equal(t, handler.CodeSessionExpired, apiErr.Code)

	// The pending prompt is reported once, then the session is simply absent.
	apiErr = apiError{}
	assert.Equal(t, http.StatusUnauthorized, b.do(t, http.MethodGet, "/v1/session", nil, &apiErr))
	assert.Equal(t, handler.CodeSessionExpired, apiErr.Code)

	apiErr = apiError{}
	assert.Equal(t, http.StatusUnauthorized, b.do(t, http.MethodGet, "/v1/session", nil, &apiErr))
	assert.Equal(t, handler.CodeUnauthenticated, apiErr.Code)
}

func TestSessionExpired_LoginClearsPrompt(t *testing.T) {
	b := newBFF(t)
	b.login(t)
	b.backend.rotateToken("tok-2")
	require.Equal(t, http.StatusUnauthorized, b.do(t, http.MethodGet, "/v1/orders", nil, nil))

	b.login(t)
	assert.Equal(t, http.StatusOK, b.do(t, http.MethodGet, "/v1/orders", nil, nil))
}

// --- Profile drafts ---

type draftBody struct {
	ID     string             `json:"id"`
	UserID domain.ID          `json:"userId"`
	Values domain.ProfileForm `json:"values"`
	Errors map[string]string  `json:"errors"`
}

func TestProfileDraftFlow(t *testing.T) {
	b := newBFF(t)
	b.login(t)

	var draft draftBody
	require.Equal(t, http.StatusCreated, b.do(t, http.MethodPost, "/v1/profile/drafts", nil, &draft))
	require.NotEmpty(t, draft.ID)
	assert.Equal(t, "123.456.789-01", draft.Values.CPF)
	assert.Equal(t, "12/05/1990", draft.Values.BirthDate)
	assert.Equal(t, "(11) 98765-4321", draft.Values.Phone)

	path := "/v1/profile/drafts/" + draft.ID
	require.Equal(t, http.StatusOK, b.do(t, http.MethodPatch, path, map[string]string{
		"name":  "Ana S.",
		"phone": "11912345678",
	}, &draft))
	assert.Equal(t, "(11) 91234-5678", draft.Values.Phone)

	var submitted struct {
		User  domain.UserProfile `json:"user"`
		Draft draftBody          `json:"draft"`
	}
	require.Equal(t, http.StatusOK, b.do(t, http.MethodPost, path+"/submit", nil, &submitted))
	assert.Equal(t, "Ana S.", submitted.User.Name)
	assert.Equal(t, "11912345678", submitted.User.Phone)
	assert.Equal(t, map[string]any{"name": "Ana S.", "phone": "11912345678"}, b.backend.patch())

	var sess struct {
		User domain.UserProfile `json:"user"`
	}
	require.Equal(t, http.StatusOK, b.do(t, http.MethodGet, "/v1/session", nil, &sess))
	assert.Equal(t, "Ana S.", sess.User.Name)

	assert.Equal(t, http.StatusNoContent, b.do(t, http.MethodDelete, path, nil, nil))
	assert.Equal(t, http.StatusNotFound, b.do(t, http.MethodPost, path+"/submit", nil, nil))
}

func TestProfileDraft_RejectedFields(t *testing.T) {
	b := newBFF(t)
	b.login(t)

	var draft draftBody
	require.Equal(t, http.StatusCreated, b.do(t, http.MethodPost, "/v1/profile/drafts", nil, &draft))
	path := "/v1/profile/drafts/" + draft.ID

	var apiErr apiError
	assert.Equal(t, http.StatusBadRequest, b.do(t, http.MethodPatch, path, map[string]string{
		"email":    "outra@example.com",
		"nickname": "ana",
		"address":  "Rua B, 20",
	}, &apiErr))
	assert.Equal(t, handler.CodeValidation, apiErr.Code)
	assert.Contains(t, apiErr.Fields, "email")
	assert.Contains(t, apiErr.Fields, "nickname")

	// Accepted fields in the same request still apply.
	require.Equal(t, http.StatusOK, b.do(t, http.MethodPatch, path, map[string]string{}, &draft))
	assert.Equal(t, "Rua B, 20", draft.Values.Address)
	assert.Equal(t, shopEmail, draft.Values.Email)

	require.Equal(t, http.StatusOK, b.do(t, http.MethodPatch, path, map[string]string{"cpf": "123"}, &draft))
	apiErr = apiError{}
	assert.Equal(t, http.StatusBadRequest, b.do(t, http.MethodPost, path+"/submit", nil, &apiErr))
	assert.Contains(t, apiErr.Fields, "cpf")
	assert.Nil(t, b.backend.patch())
}

func TestProfileDraft_DiscardChecksOwner(t *testing.T) {
	b := newBFF(t)
	b.login(t)
	b.drafts.Set("foreign", &domain.ProfileDraft{ID: "foreign", UserID: "99"})

	var apiErr apiError
	assert.Equal(t, http.StatusNotFound, b.do(t, http.MethodDelete, "/v1/profile/drafts/foreign", nil, &apiErr))
	assert.Equal(t, handler.CodeNotFound, apiErr.Code)

	_, ok := b.drafts.Get("foreign")
	assert.True(t, ok, "another user's draft must survive")
}

func TestProfileDraft_ConcurrentEdits(t *testing.T) {
	b := newBFF(t)
	b.login(t)

	var draft draftBody
	require.Equal(t, http.StatusCreated, b.do(t, http.MethodPost, "/v1/profile/drafts", nil, &draft))
	path := "/v1/profile/drafts/" + draft.ID

	names := []string{"Ana A.", "Ana B.", "Ana C.", "Ana D.", "Ana E.", "Ana F.", "Ana G.", "Ana H."}
	codes := make([]int, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			raw, _ := json.Marshal(map[string]string{"name": name})
			rec := httptest.NewRecorder()
			b.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, path, bytes.NewReader(raw)))
			codes[i] = rec.Code
		}(i, name)
	}
	wg.Wait()

	for i, code := range codes {
		assert.Equal(t, http.StatusOK, code, "edit %d", i)
	}
	require.Equal(t, http.StatusOK, b.do(t, http.MethodPatch, path, map[string]string{}, &draft))
	assert.Contains(t, names, draft.Values.Name)
}

func TestProfileDraft_UnknownDraft(t *testing.T) {
	b := newBFF(t)
	b.login(t)

	var apiErr apiError
	assert.Equal(t, http.StatusNotFound, b.do(t, http.MethodPatch, "/v1/profile/drafts/nope", map[string]string{"name": "X"}, &apiErr))
	assert.Equal(t, handler.CodeNotFound, apiErr.Code)
}
