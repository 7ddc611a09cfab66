package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/boddenberg/artfy-client-go/internal/domain"
)

// Messages shown when the backend gives no message of its own.
var failureMessages = map[string]string{
	domain.OpFetchCart:      "Não foi possível carregar seu carrinho.",
	domain.OpAddToCart:      "Erro ao adicionar ao carrinho.",
	domain.OpRemoveFromCart: "Não foi possível remover o item.",
	domain.OpCheckout:       "Falha ao finalizar a compra.",
	domain.OpListOrders:     "Erro ao carregar pedidos.",
	domain.OpUpdateProfile:  "Erro ao atualizar os dados.",
}

const networkMessage = "Não foi possível conectar ao servidor. Tente novamente."

// authFailure turns the error of an authenticated backend call into the
// user-facing error. An authorization rejection invalidates sess first.
func authFailure(ctx context.Context, sessions *SessionStore, sess *domain.Session, op string, err error) error {
	var apiErr *domain.ErrAPIStatus
	if errors.As(err, &apiErr) {
		if IsAuthorizationRejected(apiErr.StatusCode) {
			if _, ierr := sessions.Invalidate(ctx, sess.Token, op); ierr != nil {
				sessions.logger.Error("failed to clear rejected session",
					zap.String("operation", op),
					zap.Error(ierr),
				)
			}
			return &domain.ErrSessionExpired{Operation: op}
		}
		msg := apiErr.Message
		if msg == "" {
			msg = failureMessages[op]
		}
		return &domain.ErrOperationFailed{Operation: op, Message: msg, Err: err}
	}
	return operationFailed(op, err)
}

// operationFailed wraps a non-status failure, keeping its cause for
// domain.IsRetryable.
func operationFailed(op string, err error) error {
	msg := failureMessages[op]
	var network *domain.ErrNetwork
	var circuitOpen *domain.ErrCircuitOpen
	if errors.As(err, &network) || errors.As(err, &circuitOpen) {
		msg = networkMessage
	}
	return &domain.ErrOperationFailed{Operation: op, Message: msg, Err: err}
}
