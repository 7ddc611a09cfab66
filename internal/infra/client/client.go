// Package client is the only code that speaks HTTP to the Artfy backend.
// Every call goes through the rate limiter, a bulkhead, the circuit breaker
// and (for idempotent calls only) retry with backoff.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/boddenberg/artfy-client-go/internal/domain"
	"github.com/boddenberg/artfy-client-go/internal/infra/observability"
	"github.com/boddenberg/artfy-client-go/internal/infra/resilience"
)

var tracer = otel.Tracer("client")

// ServiceName identifies the backend in errors, logs and the breaker.
const ServiceName = "artfy-api"

const maxBodyBytes = 1 << 20

// RequestIDHeader carries a per-call correlation id to the backend.
const RequestIDHeader = "X-Request-ID"

// Client calls the Artfy backend REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
	limiter    *rate.Limiter
	bulkhead   *resilience.Bulkhead
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// New creates a Client. A nil limiter disables outbound throttling; nil
// metrics or logger are allowed.
func New(
	httpClient *http.Client,
	baseURL string,
	cb *gobreaker.CircuitBreaker,
	cfg resilience.Config,
	limiter *rate.Limiter,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		cb:         cb,
		cfg:        cfg,
		limiter:    limiter,
		bulkhead:   resilience.NewBulkhead(cfg.MaxConcurrency),
		metrics:    metrics,
		logger:     logger,
	}
}

// NewCircuitBreaker builds the breaker used by Client. Backend refusals (4xx)
// are answers, not outages, so they never count towards tripping it.
func NewCircuitBreaker() *gobreaker.CircuitBreaker {
	return resilience.NewCircuitBreaker(ServiceName, func(err error) bool {
		if err == nil {
			return true
		}
		var apiErr *domain.ErrAPIStatus
		return errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError
	})
}

// NewLimiter returns a token bucket for rps requests per second, or nil when rps <= 0.
func NewLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// Health reports the breaker state as a service health entry.
func (c *Client) Health() domain.ServiceHealth {
	status := "healthy"
	switch c.cb.State() {
	case gobreaker.StateOpen:
		status = "unhealthy"
	case gobreaker.StateHalfOpen:
		status = "degraded"
	}
	return domain.ServiceHealth{Name: ServiceName, Status: status, Detail: "circuit " + c.cb.State().String()}
}

// call describes one backend request.
type call struct {
	op         string
	method     string
	path       string
	token      string
	body       any
	out        any
	idempotent bool
}

// do executes a call. Non-2xx answers come back as *domain.ErrAPIStatus,
// transport failures as *domain.ErrNetwork, undecodable bodies as
// *domain.ErrMalformedResponse and an open breaker as *domain.ErrCircuitOpen.
func (c *Client) do(ctx context.Context, cl call) error {
	ctx, span := tracer.Start(ctx, "Client."+cl.op)
	defer span.End()

	requestID := uuid.NewString()
	span.SetAttributes(
		attribute.String("http.method", cl.method),
		attribute.String("http.path", cl.path),
		attribute.String("request.id", requestID),
		attribute.Bool("authenticated", cl.token != ""),
	)

	var payload []byte
	if cl.body != nil {
		var err error
		if payload, err = json.Marshal(cl.body); err != nil {
			return fmt.Errorf("encode %s request: %w", cl.op, err)
		}
	}

	retryCfg := c.cfg
	if !cl.idempotent {
		retryCfg.MaxRetries = 0
	}
	retryCfg.OnRetry = func(attempt int, wait time.Duration, err error) {
		c.logger.Warn("retrying backend call",
			zap.String("operation", cl.op),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	start := time.Now()
	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, retryCfg, func() error {
			return c.attempt(ctx, cl, payload, requestID)
		})
	})
	err = c.classify(cl.op, err)

	outcome := outcomeOf(err)
	if c.metrics != nil {
		c.metrics.RecordBackendCall(cl.op, outcome, time.Since(start))
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)

		fields := []zap.Field{
			zap.String("operation", cl.op),
			zap.String("method", cl.method),
			zap.String("path", cl.path),
			zap.String("request_id", requestID),
			zap.String("outcome", outcome),
			zap.Error(err),
		}
		if outcome == observability.OutcomeClientError {
			c.logger.Debug("backend refused request", fields...)
		} else {
			c.logger.Error("backend request failed", fields...)
		}
		return err
	}

	c.logger.Debug("backend request",
		zap.String("operation", cl.op),
		zap.String("request_id", requestID),
		zap.Duration("latency", time.Since(start)),
	)
	return nil
}

// attempt performs a single HTTP exchange. Errors that retrying cannot fix
// are wrapped with resilience.Permanent.
func (c *Client) attempt(ctx context.Context, cl call, payload []byte, requestID string) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return resilience.Permanent(&domain.ErrNetwork{Operation: cl.op, Err: err})
		}
	}
	if err := c.bulkhead.Acquire(ctx); err != nil {
		return resilience.Permanent(&domain.ErrNetwork{Operation: cl.op, Err: err})
	}
	defer c.bulkhead.Release()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, cl.method, c.baseURL+cl.path, body)
	if err != nil {
		return resilience.Permanent(fmt.Errorf("build %s request: %w", cl.op, err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cl.token != "" {
		req.Header.Set("Authorization", "Bearer "+cl.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.ErrNetwork{Operation: cl.op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &domain.ErrNetwork{Operation: cl.op, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &domain.ErrAPIStatus{
			Operation:  cl.op,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(raw),
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return apiErr
		}
		return resilience.Permanent(apiErr)
	}

	if cl.out == nil {
		return nil
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return resilience.Permanent(&domain.ErrMalformedResponse{Operation: cl.op, Reason: "empty body"})
	}
	if err := json.Unmarshal(raw, cl.out); err != nil {
		return resilience.Permanent(&domain.ErrMalformedResponse{Operation: cl.op, Reason: err.Error()})
	}
	return nil
}

// classify maps breaker and context failures onto the domain taxonomy.
func (c *Client) classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &domain.ErrCircuitOpen{Service: ServiceName}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		var netErr *domain.ErrNetwork
		if !errors.As(err, &netErr) {
			return &domain.ErrNetwork{Operation: op, Err: err}
		}
	}
	return err
}

func outcomeOf(err error) string {
	if err == nil {
		return observability.OutcomeOK
	}
	var apiErr *domain.ErrAPIStatus
	var open *domain.ErrCircuitOpen
	switch {
	case errors.As(err, &open):
		return observability.OutcomeCircuitOpen
	case errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError:
		return observability.OutcomeClientError
	case errors.As(err, &apiErr):
		return observability.OutcomeServerError
	default:
		return observability.OutcomeNetwork
	}
}

// errorMessage extracts the backend's {message} field. Validation failures
// may send a list of messages, which are joined.
func errorMessage(raw []byte) string {
	var body struct {
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || len(body.Message) == 0 {
		return ""
	}

	var msg string
	if err := json.Unmarshal(body.Message, &msg); err == nil {
		return msg
	}
	var msgs []string
	if err := json.Unmarshal(body.Message, &msgs); err == nil {
		return strings.Join(msgs, "; ")
	}
	return ""
}
