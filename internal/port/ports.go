// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"
	"errors"

	"github.com/boddenberg/artfy-client-go/internal/domain"
)

// CatalogAPI reads the public product catalog.
type CatalogAPI interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, productID domain.ID) (*domain.Product, error)
}

// AuthAPI performs the unauthenticated account calls.
type AuthAPI interface {
	Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResult, error)
	Signup(ctx context.Context, req domain.SignupRequest) error
}

// CartAPI operates on the server-held carts of the token's owner.
// Non-2xx responses surface as *domain.ErrAPIStatus.
type CartAPI interface {
	GetCart(ctx context.Context, token string) (*domain.Cart, error)
	AddItem(ctx context.Context, token string, req domain.AddToCartRequest) error
	RemoveItem(ctx context.Context, token string, productID domain.ID) error
	Checkout(ctx context.Context, token string) error
	ListCarts(ctx context.Context, token string) ([]domain.Cart, error)
}

// UserAPI updates the authenticated user's profile.
type UserAPI interface {
	UpdateUser(ctx context.Context, token string, userID domain.ID, patch domain.ProfilePatch) (*domain.UserProfile, error)
}

// SessionPersister stores the two session entries: the bearer token and the
// serialized user profile. Save must write both or neither; Load may observe
// a half-written pair left by a crash, which callers treat as absent.
type SessionPersister interface {
	Load(ctx context.Context) (token string, userInfo []byte, err error)
	Save(ctx context.Context, token string, userInfo []byte) error
	Delete(ctx context.Context) error
}

// ErrSessionCorrupt is returned (wrapped) by a SessionPersister whose stored
// data cannot be read back. Callers treat it like a half-written pair.
var ErrSessionCorrupt = errors.New("persisted session is unreadable")

// ReauthPrompter is notified once each time a stored session is invalidated.
type ReauthPrompter interface {
	PromptReauth(ctx context.Context, operation string)
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}

// LoadingCache is a Cache that shares one load between concurrent misses.
type LoadingCache[T any] interface {
	Cache[T]
	GetOrLoad(ctx context.Context, key string, load func(context.Context) (T, error)) (T, bool, error)
}
