package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/boddenberg/artfy-client-go/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// Shared helper functions
// ============================================================

// Error codes returned in errorResponse.Code.
const (
	CodeUnauthenticated      = "unauthenticated"
	CodeSessionExpired       = "session_expired"
	CodeValidation           = "validation"
	CodeInvalidCredentials   = "invalid_credentials"
	CodeRegistrationRejected = "registration_rejected"
	CodeOperationFailed      = "operation_failed"
	CodeNetwork              = "network"
	CodeMalformedResponse    = "malformed_response"
	CodeNotFound             = "not_found"
	CodeCircuitOpen          = "circuit_open"
	CodeBadRequest           = "bad_request"
	CodeInternal             = "internal"
)

type errorResponse struct {
	Error     string            `json:"error"`
	Code      string            `json:"code"`
	Fields    map[string]string `json:"fields,omitempty"`
	Retryable bool              `json:"retryable"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body")
		return false
	}
	return true
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var unauthenticated *domain.ErrUnauthenticated
	var expired *domain.ErrSessionExpired
	var validation *domain.ErrValidation
	var invalidCredentials *domain.ErrInvalidCredentials
	var rejected *domain.ErrRegistrationRejected
	var failed *domain.ErrOperationFailed
	var notFound *domain.ErrNotFound
	var circuitOpen *domain.ErrCircuitOpen
	var network *domain.ErrNetwork
	var malformed *domain.ErrMalformedResponse

	retryable := domain.IsRetryable(err)
	respond := func(status int, code, msg string) {
		writeJSON(w, status, errorResponse{Error: msg, Code: code, Retryable: retryable})
	}

	switch {
	case errors.As(err, &unauthenticated):
		logger.Debug("login required", zap.String("operation", unauthenticated.Operation))
		respond(http.StatusUnauthorized, CodeUnauthenticated, "Faça login para continuar.")
	case errors.As(err, &expired):
		logger.Warn("session expired", zap.String("operation", expired.Operation))
		respond(http.StatusUnauthorized, CodeSessionExpired, "Sua sessão expirou. Faça login novamente.")
	case errors.As(err, &validation):
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:  "Verifique os campos destacados.",
			Code:   CodeValidation,
			Fields: validation.Fields,
		})
	case errors.As(err, &invalidCredentials):
		logger.Debug("invalid credentials")
		respond(http.StatusUnauthorized, CodeInvalidCredentials, invalidCredentials.Error())
	case errors.As(err, &rejected):
		logger.Debug("registration rejected", zap.String("error", err.Error()))
		respond(http.StatusUnprocessableEntity, CodeRegistrationRejected, rejected.Error())
	case errors.As(err, &failed) && retryable:
		logger.Error("operation failed upstream", zap.String("operation", failed.Operation), zap.Error(err))
		respond(http.StatusBadGateway, CodeNetwork, failed.Message)
	case errors.As(err, &failed):
		logger.Warn("operation refused", zap.String("operation", failed.Operation), zap.String("error", failed.Message))
		respond(http.StatusUnprocessableEntity, CodeOperationFailed, failed.Message)
	case errors.As(err, &notFound):
		logger.Debug("not found", zap.String("error", err.Error()))
		respond(http.StatusNotFound, CodeNotFound, err.Error())
	case errors.As(err, &circuitOpen):
		logger.Error("circuit breaker open", zap.Error(err))
		respond(http.StatusServiceUnavailable, CodeCircuitOpen, "Serviço temporariamente indisponível. Tente novamente.")
	case errors.As(err, &network):
		logger.Error("backend unreachable", zap.Error(err))
		respond(http.StatusBadGateway, CodeNetwork, "Não foi possível conectar ao servidor. Tente novamente.")
	case errors.As(err, &malformed):
		logger.Error("malformed backend response", zap.Error(err))
		respond(http.StatusBadGateway, CodeMalformedResponse, "Resposta inesperada do servidor.")
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, CodeInternal, "internal server error")
	}
}
