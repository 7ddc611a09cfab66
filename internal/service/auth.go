package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/boddenberg/artfy-client-go/internal/domain"
	"github.com/boddenberg/artfy-client-go/internal/format"
	"github.com/boddenberg/artfy-client-go/internal/infra/observability"
	"github.com/boddenberg/artfy-client-go/internal/port"
	"github.com/boddenberg/artfy-client-go/internal/validation"
)

var authTracer = otel.Tracer("service/auth")

// AuthGateway logs the shopper in and out and registers new accounts.
type AuthGateway struct {
	api      port.AuthAPI
	sessions *SessionStore
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewAuthGateway creates an AuthGateway.
func NewAuthGateway(
	api port.AuthAPI,
	sessions *SessionStore,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *AuthGateway {
	return &AuthGateway{
		api:      api,
		sessions: sessions,
		metrics:  metrics,
		logger:   logger,
	}
}

// Login authenticates with email and password and stores the session before
// returning it.
func (g *AuthGateway) Login(ctx context.Context, email, password string) (*domain.Session, error) {
	ctx, span := authTracer.Start(ctx, "AuthGateway.Login")
	defer span.End()

	result, err := g.api.Login(ctx, domain.LoginRequest{
		Email: strings.TrimSpace(email),
		Pass:  password,
	})
	if err != nil {
		span.SetStatus(codes.Error, "login failed")
		return nil, g.loginFailure(err)
	}

	if result.Token == "" {
		return nil, &domain.ErrMalformedResponse{Operation: domain.OpLogin, Reason: "missing token"}
	}
	if result.User == nil || result.User.ID.IsZero() {
		return nil, &domain.ErrMalformedResponse{Operation: domain.OpLogin, Reason: "missing user"}
	}

	sess := domain.Session{Token: result.Token, User: *result.User}
	if err := g.sessions.Set(ctx, sess); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	span.SetAttributes(attribute.String("user.id", sess.User.ID.String()))
	g.metrics.IncrSessionEvent(observability.EventLogin)
	g.logger.Info("login succeeded", zap.String("user_id", sess.User.ID.String()))
	return &sess, nil
}

func (g *AuthGateway) loginFailure(err error) error {
	var apiErr *domain.ErrAPIStatus
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode < http.StatusInternalServerError {
			g.logger.Info("login rejected", zap.Int("status", apiErr.StatusCode))
			return &domain.ErrInvalidCredentials{Message: apiErr.Message}
		}
		return &domain.ErrNetwork{Operation: domain.OpLogin, Err: err}
	}
	g.logger.Error("login failed", zap.Error(err))
	return asNetworkFailure(domain.OpLogin, err)
}

// asNetworkFailure reports an open breaker as the transport failure it
// stands for. The breaker stays reachable through Unwrap.
func asNetworkFailure(op string, err error) error {
	var open *domain.ErrCircuitOpen
	if errors.As(err, &open) {
		return &domain.ErrNetwork{Operation: op, Err: err}
	}
	return err
}

// Register validates the signup form and creates the account. It does not
// log the shopper in.
func (g *AuthGateway) Register(ctx context.Context, in domain.RegisterInput) error {
	ctx, span := authTracer.Start(ctx, "AuthGateway.Register")
	defer span.End()

	in.CPF = strings.TrimSpace(in.CPF)
	in.Phone = strings.TrimSpace(in.Phone)
	in.BirthDate = format.DateInput(in.BirthDate)

	if err := validation.AsError(validation.Registration(in)); err != nil {
		return err
	}

	address := strings.TrimSpace(in.Address)
	if address == "" {
		address = domain.DefaultAddress
	}

	err := g.api.Signup(ctx, domain.SignupRequest{
		Name:      strings.TrimSpace(in.Name),
		Email:     strings.TrimSpace(in.Email),
		Pass:      in.Password,
		CPF:       format.Digits(in.CPF),
		BirthDate: format.DateToWire(in.BirthDate),
		Phone:     format.Digits(in.Phone),
		Address:   address,
	})
	if err == nil {
		g.logger.Info("account registered")
		return nil
	}

	span.SetStatus(codes.Error, "signup failed")
	var apiErr *domain.ErrAPIStatus
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode < http.StatusInternalServerError {
			return &domain.ErrRegistrationRejected{Message: apiErr.Message}
		}
		return &domain.ErrNetwork{Operation: domain.OpRegister, Err: err}
	}
	g.logger.Error("signup failed", zap.Error(err))
	return asNetworkFailure(domain.OpRegister, err)
}

// Logout clears the stored session. Logging out twice is not an error.
func (g *AuthGateway) Logout(ctx context.Context) error {
	ctx, span := authTracer.Start(ctx, "AuthGateway.Logout")
	defer span.End()

	if err := g.sessions.Clear(ctx); err != nil {
		return err
	}
	g.metrics.IncrSessionEvent(observability.EventLogout)
	return nil
}

// Current returns the stored session or ErrUnauthenticated.
func (g *AuthGateway) Current(ctx context.Context) (*domain.Session, error) {
	ctx, span := authTracer.Start(ctx, "AuthGateway.Current")
	defer span.End()

	return g.sessions.Require(ctx, domain.OpSession)
}
