package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Error types for consistent error handling across the client core.

// Operation names used in error values, logs and metrics.
const (
	OpLogin          = "login"
	OpRegister       = "register"
	OpListProducts   = "list_products"
	OpGetProduct     = "get_product"
	OpFetchCart      = "fetch_cart"
	OpAddToCart      = "add_to_cart"
	OpRemoveFromCart = "remove_from_cart"
	OpCheckout       = "checkout"
	OpListOrders     = "list_orders"
	OpUpdateProfile  = "update_profile"
	OpSession        = "session"
)

// ErrUnauthenticated indicates an operation needs a session and none is stored.
// Callers must prompt for login; it is never retried automatically.
type ErrUnauthenticated struct {
	Operation string
}

func (e *ErrUnauthenticated) Error() string {
	return fmt.Sprintf("login required for %s", e.Operation)
}

// ErrSessionExpired indicates the backend (or the token's own expiry) rejected
// the stored session. By the time this error is returned the session is cleared.
type ErrSessionExpired struct {
	Operation string
}

func (e *ErrSessionExpired) Error() string {
	return fmt.Sprintf("session expired during %s", e.Operation)
}

// ErrValidation carries per-field messages for a failed local precondition.
// No network call is made when this error is returned.
type ErrValidation struct {
	Fields map[string]string
}

// NewValidationError builds an ErrValidation for a single field.
func NewValidationError(field, message string) *ErrValidation {
	return &ErrValidation{Fields: map[string]string{field: message}}
}

func (e *ErrValidation) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation error: " + strings.Join(parts, "; ")
}

// ErrNetwork indicates a transport failure talking to the backend.
type ErrNetwork struct {
	Operation string
	Err       error
}

func (e *ErrNetwork) Error() string {
	return fmt.Sprintf("network error [%s]: %v", e.Operation, e.Err)
}

func (e *ErrNetwork) Unwrap() error {
	return e.Err
}

// ErrMalformedResponse indicates a 2xx response that violates the API contract.
type ErrMalformedResponse struct {
	Operation string
	Reason    string
}

func (e *ErrMalformedResponse) Error() string {
	return fmt.Sprintf("malformed response [%s]: %s", e.Operation, e.Reason)
}

// ErrInvalidCredentials indicates the backend rejected a login attempt.
type ErrInvalidCredentials struct {
	Message string
}

func (e *ErrInvalidCredentials) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "Credenciais inválidas"
}

// ErrRegistrationRejected indicates the backend refused a signup (e.g. duplicate email).
type ErrRegistrationRejected struct {
	Message string
}

func (e *ErrRegistrationRejected) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "Erro ao cadastrar usuário"
}

// ErrOperationFailed indicates the backend explicitly refused an operation.
// Message is meant to be shown to the user verbatim.
type ErrOperationFailed struct {
	Operation string
	Message   string
	Err       error
}

func (e *ErrOperationFailed) Error() string {
	return e.Message
}

func (e *ErrOperationFailed) Unwrap() error {
	return e.Err
}

// ErrAPIStatus is a non-2xx response from the backend. The service layer turns
// it into one of the user-facing errors above; it should not reach surfaces.
type ErrAPIStatus struct {
	Operation  string
	StatusCode int
	Message    string
}

func (e *ErrAPIStatus) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend returned %d for %s: %s", e.StatusCode, e.Operation, e.Message)
	}
	return fmt.Sprintf("backend returned %d for %s", e.StatusCode, e.Operation)
}

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// IsRetryable reports whether the user may simply try err's operation again.
// Session, validation and explicit backend refusals are not retryable.
func IsRetryable(err error) bool {
	var network *ErrNetwork
	var malformed *ErrMalformedResponse
	var circuitOpen *ErrCircuitOpen
	return errors.As(err, &network) || errors.As(err, &malformed) || errors.As(err, &circuitOpen)
}
