package handler

import (
	"context"
	"net/http"
	"sync"

	"github.com/boddenberg/artfy-client-go/internal/domain"
	"github.com/boddenberg/artfy-client-go/internal/service"
	"go.uber.org/zap"
)

type contextKey string

const userIDKey contextKey = "userID"

// RequireSession rejects requests with 401 when no session is stored and
// injects the session's user id into the context.
func RequireSession(sessions *service.SessionStore, reauth *ReauthFlag, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := sessions.Get(r.Context())
			if err != nil {
				handleServiceError(w, err, logger)
				return
			}
			if sess == nil {
				logger.Debug("session required",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				if op, ok := reauth.Take(); ok {
					handleServiceError(w, &domain.ErrSessionExpired{Operation: op}, logger)
					return
				}
				handleServiceError(w, &domain.ErrUnauthenticated{Operation: r.URL.Path}, logger)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, sess.User.ID.String())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext extracts the session user id set by RequireSession.
func UserIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(userIDKey).(string)
	return v
}

// ReauthFlag remembers that a session was invalidated so the next
// unauthenticated request can tell the UI the session expired instead of
// simply being absent. It implements port.ReauthPrompter.
type ReauthFlag struct {
	mu        sync.Mutex
	pending   bool
	operation string
	logger    *zap.Logger
}

// NewReauthFlag creates an unset flag.
func NewReauthFlag(logger *zap.Logger) *ReauthFlag {
	return &ReauthFlag{logger: logger}
}

func (f *ReauthFlag) PromptReauth(_ context.Context, operation string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.pending = true
	f.operation = operation
	f.logger.Info("re-authentication required", zap.String("operation", operation))
}

// Take returns and clears the pending prompt. A nil flag never has one.
func (f *ReauthFlag) Take() (string, bool) {
	if f == nil {
		return "", false
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.pending {
		return "", false
	}
	op := f.operation
	f.pending, f.operation = false, ""
	return op, true
}

// Reset drops a pending prompt, e.g. after a new login.
func (f *ReauthFlag) Reset() {
	if f == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending, f.operation = false, ""
}
