package handler

import (
	"net/http"
	"time"

	"github.com/boddenberg/artfy-client-go/internal/domain"
	"github.com/boddenberg/artfy-client-go/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Session & registration
// ============================================================

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// sessionResponse never carries the token: it stays with the core.
type sessionResponse struct {
	User      domain.UserProfile `json:"user"`
	ExpiresAt *time.Time         `json:"expiresAt,omitempty"`
}

func newSessionResponse(sess *domain.Session) sessionResponse {
	resp := sessionResponse{User: sess.User}
	if exp, ok := sess.ExpiresAt(); ok {
		resp.ExpiresAt = &exp
	}
	return resp
}

func loginHandler(auth *service.AuthGateway, reauth *ReauthFlag, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/session")
		defer span.End()

		var req loginRequest
		if !decodeBody(w, r, &req) {
			return
		}

		sess, err := auth.Login(ctx, req.Email, req.Password)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		reauth.Reset()

		writeJSON(w, http.StatusOK, newSessionResponse(sess))
	}
}

func logoutHandler(auth *service.AuthGateway, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/session")
		defer span.End()

		if err := auth.Logout(ctx); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func currentSessionHandler(auth *service.AuthGateway, reauth *ReauthFlag, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/session")
		defer span.End()

		sess, err := auth.Current(ctx)
		if err != nil {
			if op, ok := reauth.Take(); ok {
				err = &domain.ErrSessionExpired{Operation: op}
			}
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, newSessionResponse(sess))
	}
}

func registerHandler(auth *service.AuthGateway, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/register")
		defer span.End()

		var req domain.RegisterInput
		if !decodeBody(w, r, &req) {
			return
		}

		if err := auth.Register(ctx, req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, domain.SuccessResponse{
			Message: "Cadastro realizado com sucesso! Faça login para continuar.",
		})
	}
}
