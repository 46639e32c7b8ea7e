// Package supabase provides a client for Supabase (PostgREST + Edge Functions).
// It is the remote store behind every tenant collection.
package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/boddenberg/agenda-bfa-go/internal/domain"
	"github.com/boddenberg/agenda-bfa-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("supabase")

// Client wraps HTTP calls to the Supabase REST and Functions APIs.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	serviceRoleKey string
	cb             *gobreaker.CircuitBreaker
	bulkhead       *resilience.Bulkhead
	cfg            resilience.Config
	logger         *zap.Logger
}

// NewClient creates a Supabase client.
func NewClient(httpClient *http.Client, baseURL, apiKey, serviceRoleKey string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *Client {
	maxConcurrency := cfg.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = 50
	}
	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		apiKey:         apiKey,
		serviceRoleKey: serviceRoleKey,
		cb:             cb,
		bulkhead:       resilience.NewBulkhead(maxConcurrency),
		cfg:            cfg,
		logger:         logger,
	}
}

// APIError is a non-2xx answer from PostgREST or a function.
type APIError struct {
	Method string
	Path   string
	Status int
	Code   string // Postgres SQLSTATE when PostgREST reports one
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("supabase %s %s returned %d: %s", e.Method, e.Path, e.Status, e.Body)
}

func newAPIError(method, path string, status int, body []byte) *APIError {
	apiErr := &APIError{Method: method, Path: path, Status: status, Body: string(body)}
	var pg struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &pg) == nil {
		apiErr.Code = pg.Code
		if pg.Message != "" {
			apiErr.Body = pg.Message
		}
	}
	return apiErr
}

// doRequest executes an authenticated GET against PostgREST.
func (c *Client) doRequest(ctx context.Context, method, path string) ([]byte, error) {
	url := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, path)
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		c.logger.Error("supabase: failed to create request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}
	c.authorize(req, "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("supabase: request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("supabase: failed to read response body",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("supabase: non-2xx response",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)),
		)
		return nil, markPermanent(newAPIError(method, path, resp.StatusCode, body))
	}

	c.logger.Debug("supabase: request OK",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
	)

	return body, nil
}

func (c *Client) authorize(req *http.Request, prefer string) {
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.serviceRoleKey))
	req.Header.Set("Content-Type", "application/json")
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}
}

// markPermanent flags client errors so they are neither retried nor counted
// against the circuit breaker.
func markPermanent(err *APIError) error {
	if err.Status < 500 {
		return resilience.Permanent(err)
	}
	return err
}

// read runs an idempotent call with retry, breaker and bulkhead.
func (c *Client) read(ctx context.Context, fn func() error) error {
	return c.guard(ctx, func() error {
		return resilience.RetryWithBackoff(ctx, c.cfg, fn)
	})
}

// write runs a mutating call once, with breaker and bulkhead.
func (c *Client) write(ctx context.Context, fn func() error) error {
	return c.guard(ctx, fn)
}

func (c *Client) guard(ctx context.Context, fn func() error) error {
	if err := c.bulkhead.Acquire(ctx); err != nil {
		return err
	}
	defer c.bulkhead.Release()

	_, err := c.cb.Execute(func() (any, error) {
		return nil, fn()
	})
	return err
}

// classify converts transport and PostgREST failures into domain errors.
func classify(err error, resource, id string) error {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return &domain.ErrCircuitOpen{Service: "supabase"}
	case errors.Is(err, context.DeadlineExceeded):
		return &domain.ErrTimeout{Operation: "supabase/" + resource}
	case errors.As(err, &apiErr):
		switch {
		case apiErr.Status == http.StatusConflict || apiErr.Code == "23505":
			return &domain.ErrConflict{Kind: domain.ConflictDuplicate, Message: fmt.Sprintf("%s já existe", resource)}
		case apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden:
			return &domain.ErrForbidden{Action: resource}
		case apiErr.Status == http.StatusNotFound:
			return &domain.ErrNotFound{Resource: resource, ID: id}
		case apiErr.Status == http.StatusBadRequest:
			return &domain.ErrValidation{Field: resource, Message: apiErr.Body}
		}
	}
	return &domain.ErrExternalService{Service: "supabase/" + resource, Err: err}
}

// Ping checks that PostgREST answers.
func (c *Client) Ping(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Supabase.Ping")
	defer span.End()

	_, err := c.doRequest(ctx, http.MethodGet, "companies?select=id&limit=1")
	return classify(err, "companies", "")
}
