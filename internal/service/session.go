package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/artfy-client-go/internal/domain"
	"github.com/boddenberg/artfy-client-go/internal/infra/observability"
	"github.com/boddenberg/artfy-client-go/internal/port"
)

var sessionTracer = otel.Tracer("service/session")

// IsAuthorizationRejected reports whether a status returned for an
// authenticated call means the stored session is no longer valid.
func IsAuthorizationRejected(status int) bool {
	return status == http.StatusForbidden || status == http.StatusUnauthorized
}

// SessionStore owns the persisted session. Every other component reads a
// copy of it per operation and never keeps one across calls.
type SessionStore struct {
	mu        sync.RWMutex
	persister port.SessionPersister
	prompter  port.ReauthPrompter
	metrics   *observability.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

// NewSessionStore creates a SessionStore. prompter may be nil.
func NewSessionStore(
	persister port.SessionPersister,
	prompter port.ReauthPrompter,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *SessionStore {
	return &SessionStore{
		persister: persister,
		prompter:  prompter,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// SetClock replaces the clock used for token expiry checks.
func (s *SessionStore) SetClock(now func() time.Time) {
	s.now = now
}

// IsAuthorizationRejected is the method form of the package function.
func (s *SessionStore) IsAuthorizationRejected(status int) bool {
	return IsAuthorizationRejected(status)
}

// Get returns the stored session, or nil when there is none. A half-written
// or unreadable state is removed and reported as absent.
func (s *SessionStore) Get(ctx context.Context) (*domain.Session, error) {
	ctx, span := sessionTracer.Start(ctx, "SessionStore.Get")
	defer span.End()

	s.mu.RLock()
	sess, broken, err := s.load(ctx)
	s.mu.RUnlock()
	if err != nil || !broken {
		return sess, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Re-check: a concurrent Set may have repaired it.
	sess, broken, err = s.load(ctx)
	if err != nil || !broken {
		return sess, err
	}
	s.logger.Warn("discarding incomplete persisted session")
	if err := s.persister.Delete(ctx); err != nil {
		return nil, fmt.Errorf("discard incomplete session: %w", err)
	}
	return nil, nil
}

// load reads and decodes the persisted pair. Callers hold mu.
func (s *SessionStore) load(ctx context.Context) (sess *domain.Session, broken bool, err error) {
	token, info, err := s.persister.Load(ctx)
	if errors.Is(err, port.ErrSessionCorrupt) {
		return nil, true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load session: %w", err)
	}

	if token == "" && len(info) == 0 {
		return nil, false, nil
	}
	if token == "" || len(info) == 0 {
		return nil, true, nil
	}

	var user domain.UserProfile
	if err := json.Unmarshal(info, &user); err != nil {
		return nil, true, nil
	}

	sess = &domain.Session{Token: token, User: user}
	if !sess.Complete() {
		return nil, true, nil
	}
	return sess, false, nil
}

// Set persists token and profile together.
func (s *SessionStore) Set(ctx context.Context, sess domain.Session) error {
	ctx, span := sessionTracer.Start(ctx, "SessionStore.Set")
	defer span.End()

	if !sess.Complete() {
		return domain.NewValidationError("session", "token and user are required")
	}

	info, err := json.Marshal(sess.User)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.persister.Save(ctx, sess.Token, info); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Clear removes the session. Clearing an absent session succeeds.
func (s *SessionStore) Clear(ctx context.Context) error {
	ctx, span := sessionTracer.Start(ctx, "SessionStore.Clear")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.persister.Delete(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Invalidate clears the session only if it still holds token. When it does,
// the re-auth prompt fires once and Invalidate reports true.
func (s *SessionStore) Invalidate(ctx context.Context, token, operation string) (bool, error) {
	ctx, span := sessionTracer.Start(ctx, "SessionStore.Invalidate")
	defer span.End()
	span.SetAttributes(attribute.String("operation", operation))

	s.mu.Lock()
	current, broken, err := s.load(ctx)
	if err != nil {
		s.mu.Unlock()
		return false, err
	}
	if broken || current == nil || current.Token != token {
		s.mu.Unlock()
		return false, nil
	}
	if err := s.persister.Delete(ctx); err != nil {
		s.mu.Unlock()
		return false, fmt.Errorf("clear session: %w", err)
	}
	s.mu.Unlock()

	s.metrics.IncrSessionEvent(observability.EventExpired)
	s.logger.Warn("session rejected by backend, cleared",
		zap.String("operation", operation),
		zap.String("user_id", current.User.ID.String()),
	)
	if s.prompter != nil {
		s.prompter.PromptReauth(ctx, operation)
	}
	return true, nil
}

// UpdateProfile replaces the cached profile under the current token.
func (s *SessionStore) UpdateProfile(ctx context.Context, user domain.UserProfile) error {
	ctx, span := sessionTracer.Start(ctx, "SessionStore.UpdateProfile")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	current, broken, err := s.load(ctx)
	if err != nil {
		return err
	}
	if broken || current == nil {
		return &domain.ErrUnauthenticated{Operation: domain.OpUpdateProfile}
	}
	if user.ID.IsZero() {
		user.ID = current.User.ID
	}

	info, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if err := s.persister.Save(ctx, current.Token, info); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Require returns a snapshot of the session for an authenticated operation.
// A token whose own expiry has passed is invalidated without a network call.
func (s *SessionStore) Require(ctx context.Context, operation string) (*domain.Session, error) {
	sess, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, &domain.ErrUnauthenticated{Operation: operation}
	}
	if sess.ExpiredAt(s.now()) {
		if _, err := s.Invalidate(ctx, sess.Token, operation); err != nil {
			s.logger.Error("failed to clear expired session", zap.Error(err))
		}
		return nil, &domain.ErrSessionExpired{Operation: operation}
	}
	return sess, nil
}
