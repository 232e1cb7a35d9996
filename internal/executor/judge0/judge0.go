// Package judge0 implements executor.Executor against a Judge0-compatible HTTP API.
package judge0

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/sakif/online-compiler/internal/executor"
	"github.com/sakif/online-compiler/internal/metrics"
)

// ErrNotConfigured is returned by Execute when no BaseURL is set.
var ErrNotConfigured = errors.New("judge0: base URL is not configured")

// StatusError is returned when the service answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("judge0: unexpected status %d: %s", e.StatusCode, e.Body)
}

// compile-time check
var _ executor.Executor = (*Client)(nil)

// Client submits code to Judge0 and waits for the result.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     *slog.Logger
	tracer     trace.Tracer
	breaker    *gobreaker.CircuitBreaker
}

// New creates a Client. A zero BaseURL is allowed; Configured reports it.
func New(cfg Config, logger *slog.Logger) *Client {
	defaults := DefaultConfig()
	if cfg.APIKeyHeader == "" {
		cfg.APIKeyHeader = defaults.APIKeyHeader
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.MaxResponseBytes <= 0 {
		cfg.MaxResponseBytes = defaults.MaxResponseBytes
	}

	settings := gobreaker.Settings{
		Name:        metrics.ServiceJudge0,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		// A caller that went away says nothing about Judge0's health.
		IsSuccessful: func(err error) bool {
			var gone *callerGoneError
			return err == nil || errors.As(err, &gone)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		config:     cfg,
		logger:     logger,
		tracer:     otel.Tracer("judge0-client"),
		breaker:    gobreaker.NewCircuitBreaker(settings),
	}
}

// Configured reports whether a submissions URL is set.
func (c *Client) Configured() bool {
	return c.config.BaseURL != ""
}

// Execute POSTs one submission and decodes the response.
func (c *Client) Execute(ctx context.Context, req executor.ExecutionRequest) (*executor.ExecutionResult, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	ctx, span := c.tracer.Start(ctx, "judge0.execute")
	defer span.End()
	span.SetAttributes(
		attribute.Int("judge0.language_id", req.LanguageID),
		attribute.Int("judge0.source_bytes", len(req.SourceCode)),
	)

	start := time.Now()
	out, err := c.breaker.Execute(func() (interface{}, error) {
		result, err := c.submit(ctx, req)
		if err != nil && ctx.Err() != nil {
			return nil, &callerGoneError{err: err}
		}
		return result, err
	})
	metrics.UpstreamLatency.WithLabelValues(metrics.ServiceJudge0).Observe(time.Since(start).Seconds())
	metrics.UpstreamRequestsTotal.WithLabelValues(metrics.ServiceJudge0, outcome(err)).Inc()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "submission failed")
		return nil, fmt.Errorf("judge0: submitting: %w", err)
	}

	result := out.(*executor.ExecutionResult)
	span.SetAttributes(attribute.String("judge0.status", result.StatusDescription()))
	return result, nil
}

func (c *Client) submit(ctx context.Context, req executor.ExecutionRequest) (*executor.ExecutionResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		httpReq.Header.Set(c.config.APIKeyHeader, c.config.APIKey)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, c.config.MaxResponseBytes)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(limited, 1024))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(snippet)}
	}

	var result executor.ExecutionResult
	if err := json.NewDecoder(limited).Decode(&result); err != nil {
		return nil, &decodeError{err: err}
	}

	c.logger.Debug("judge0 submission finished",
		slog.Int("languageId", req.LanguageID),
		slog.String("status", result.StatusDescription()),
	)

	return &result, nil
}

type decodeError struct{ err error }

func (e *decodeError) Error() string { return "decoding response: " + e.err.Error() }
func (e *decodeError) Unwrap() error { return e.err }

// callerGoneError marks a failure caused by the caller's context ending,
// not by the upstream.
type callerGoneError struct{ err error }

func (e *callerGoneError) Error() string { return "caller gone: " + e.err.Error() }
func (e *callerGoneError) Unwrap() error { return e.err }

func outcome(err error) string {
	var gone *callerGoneError
	var statusErr *StatusError
	var decErr *decodeError
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return metrics.OutcomeBreakerOpen
	case errors.As(err, &gone):
		return metrics.OutcomeCanceled
	case errors.As(err, &statusErr):
		return metrics.OutcomeHTTPError
	case errors.As(err, &decErr):
		return metrics.OutcomeDecodeError
	default:
		return metrics.OutcomeTransportError
	}
}
