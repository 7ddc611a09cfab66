package client

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/boddenberg/artfy-client-go/internal/domain"
)

// ListProducts fetches the full catalog (GET /products).
func (c *Client) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var resp struct {
		Products []domain.Product `json:"products"`
	}
	err := c.do(ctx, call{
		op:         domain.OpListProducts,
		method:     http.MethodGet,
		path:       "/products",
		out:        &resp,
		idempotent: true,
	})
	if err != nil {
		return nil, err
	}
	if resp.Products == nil {
		return []domain.Product{}, nil
	}
	return resp.Products, nil
}

// GetProduct fetches one product (GET /products/:id).
func (c *Client) GetProduct(ctx context.Context, productID domain.ID) (*domain.Product, error) {
	var resp struct {
		Product *domain.Product `json:"product"`
	}
	err := c.do(ctx, call{
		op:         domain.OpGetProduct,
		method:     http.MethodGet,
		path:       "/products/" + url.PathEscape(productID.String()),
		out:        &resp,
		idempotent: true,
	})
	if err != nil {
		var apiErr *domain.ErrAPIStatus
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, &domain.ErrNotFound{Resource: "product", ID: productID.String()}
		}
		return nil, err
	}
	if resp.Product == nil {
		return nil, &domain.ErrMalformedResponse{Operation: domain.OpGetProduct, Reason: "missing product"}
	}
	return resp.Product, nil
}

// Login exchanges credentials for a token (POST /auth/login). The token may
// arrive as accessToken or token; either may be missing, which the caller
// treats as a contract violation.
func (c *Client) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResult, error) {
	var resp struct {
		AccessToken string              `json:"accessToken"`
		Token       string              `json:"token"`
		User        *domain.UserProfile `json:"user"`
	}
	err := c.do(ctx, call{
		op:     domain.OpLogin,
		method: http.MethodPost,
		path:   "/auth/login",
		body:   req,
		out:    &resp,
	})
	if err != nil {
		return nil, err
	}

	token := resp.AccessToken
	if token == "" {
		token = resp.Token
	}
	return &domain.LoginResult{Token: token, User: resp.User}, nil
}

// Signup creates an account (POST /auth/signup).
func (c *Client) Signup(ctx context.Context, req domain.SignupRequest) error {
	return c.do(ctx, call{
		op:     domain.OpRegister,
		method: http.MethodPost,
		path:   "/auth/signup",
		body:   req,
	})
}

// GetCart fetches the caller's current cart (GET /cart).
func (c *Client) GetCart(ctx context.Context, token string) (*domain.Cart, error) {
	var cart domain.Cart
	err := c.do(ctx, call{
		op:         domain.OpFetchCart,
		method:     http.MethodGet,
		path:       "/cart",
		token:      token,
		out:        &cart,
		idempotent: true,
	})
	if err != nil {
		return nil, err
	}
	if cart.Items == nil {
		cart.Items = []domain.CartItem{}
	}
	return &cart, nil
}

// AddItem posts a cart line (POST /cart/add). Never retried.
func (c *Client) AddItem(ctx context.Context, token string, req domain.AddToCartRequest) error {
	return c.do(ctx, call{
		op:     domain.OpAddToCart,
		method: http.MethodPost,
		path:   "/cart/add",
		token:  token,
		body:   req,
	})
}

// RemoveItem deletes every unit of a product from the cart (DELETE /cart/remove/:productId).
func (c *Client) RemoveItem(ctx context.Context, token string, productID domain.ID) error {
	return c.do(ctx, call{
		op:         domain.OpRemoveFromCart,
		method:     http.MethodDelete,
		path:       "/cart/remove/" + url.PathEscape(productID.String()),
		token:      token,
		idempotent: true,
	})
}

// Checkout completes the active cart (POST /cart/checkout). Never retried.
func (c *Client) Checkout(ctx context.Context, token string) error {
	return c.do(ctx, call{
		op:     domain.OpCheckout,
		method: http.MethodPost,
		path:   "/cart/checkout",
		token:  token,
	})
}

// ListCarts fetches every cart the token's owner ever had (GET /cart/user/me).
func (c *Client) ListCarts(ctx context.Context, token string) ([]domain.Cart, error) {
	var resp struct {
		Carts *[]domain.Cart `json:"carts"`
	}
	err := c.do(ctx, call{
		op:         domain.OpListOrders,
		method:     http.MethodGet,
		path:       "/cart/user/me",
		token:      token,
		out:        &resp,
		idempotent: true,
	})
	if err != nil {
		return nil, err
	}
	if resp.Carts == nil {
		return nil, &domain.ErrMalformedResponse{Operation: domain.OpListOrders, Reason: "missing carts"}
	}
	return *resp.Carts, nil
}

// UpdateUser sends a partial profile update (PUT /user/:id) and returns the
// stored profile.
func (c *Client) UpdateUser(ctx context.Context, token string, userID domain.ID, patch domain.ProfilePatch) (*domain.UserProfile, error) {
	var resp struct {
		User *domain.UserProfile `json:"user"`
	}
	err := c.do(ctx, call{
		op:         domain.OpUpdateProfile,
		method:     http.MethodPut,
		path:       "/user/" + url.PathEscape(userID.String()),
		token:      token,
		body:       patch,
		out:        &resp,
		idempotent: true,
	})
	if err != nil {
		return nil, err
	}
	if resp.User == nil {
		return nil, &domain.ErrMalformedResponse{Operation: domain.OpUpdateProfile, Reason: "missing user"}
	}
	return resp.User, nil
}
