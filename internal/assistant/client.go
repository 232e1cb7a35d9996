package assistant

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
	"go.opentelemetry.io/otel/trace"

	"github.com/sakif/online-compiler/internal/metrics"
)

// ErrNotConfigured is returned by Complete when no API key is set.
var ErrNotConfigured = errors.New("assistant: API key is not configured")

// RemoteError is returned when the response body carries an error payload,
// whatever the HTTP status.
type RemoteError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *RemoteError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("assistant: remote error (HTTP %d, %s): %s", e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("assistant: remote error (HTTP %d): %s", e.StatusCode, e.Message)
}

var _ Completer = (*Client)(nil)

// Client is a minimal OpenAI-compatible chat-completion client.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     *slog.Logger
	tracer     trace.Tracer
	breaker    *gobreaker.CircuitBreaker
}

// New creates a Client. Missing endpoint, model and limits fall back to DefaultConfig.
func New(cfg Config, logger *slog.Logger) *Client {
	defaults := DefaultConfig()
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaults.Endpoint
	}
	if cfg.Model == "" {
		cfg.Model = defaults.Model
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.MaxResponseBytes <= 0 {
		cfg.MaxResponseBytes = defaults.MaxResponseBytes
	}

	settings := gobreaker.Settings{
		Name:        metrics.ServiceAssistant,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		// A remote error payload (bad key, quota) is an answer, not an outage,
		// and a caller that went away says nothing about the endpoint.
		IsSuccessful: func(err error) bool {
			var remote *RemoteError
			var gone *callerGoneError
			return err == nil || errors.As(err, &remote) || errors.As(err, &gone)
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
		tracer:     otel.Tracer("assistant-client"),
		breaker:    gobreaker.NewCircuitBreaker(settings),
	}
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool {
	return c.config.APIKey != ""
}

// Model returns the model name sent with every request.
func (c *Client) Model() string {
	return c.config.Model
}

// Complete POSTs the conversation and returns choices[0].message.content.
func (c *Client) Complete(ctx context.Context, messages []ChatMessage) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	ctx, span := c.tracer.Start(ctx, "assistant.complete")
	defer span.End()
	span.SetAttributes(
		attribute.String("assistant.model", c.config.Model),
		attribute.Int("assistant.messages", len(messages)),
	)

	start := time.Now()
	out, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.send(ctx, messages)
		if err != nil && ctx.Err() != nil {
			return nil, &callerGoneError{err: err}
		}
		return resp, err
	})
	metrics.UpstreamLatency.WithLabelValues(metrics.ServiceAssistant).Observe(time.Since(start).Seconds())
	metrics.UpstreamRequestsTotal.WithLabelValues(metrics.ServiceAssistant, outcome(err)).Inc()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		return "", fmt.Errorf("assistant: completing: %w", err)
	}

	resp := out.(*ChatCompletionResponse)
	span.SetAttributes(attribute.Int("assistant.choices", len(resp.Choices)))
	return resp.FirstContent(), nil
}

func (c *Client) send(ctx context.Context, messages []ChatMessage) (*ChatCompletionResponse, error) {
	body, err := json.Marshal(ChatCompletionRequest{Model: c.config.Model, Messages: messages})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.config.MaxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	// The body is decoded whatever the status: error payloads arrive with 4xx/5xx.
	// Only an error payload is a remote error; a body that cannot be decoded
	// is a failed call, and anything else is read for its first choice.
	var parsed ChatCompletionResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, &decodeError{status: resp.StatusCode, err: err}
	}
	if failure, ok := parsed.Failure(); ok {
		return nil, &RemoteError{
			StatusCode: resp.StatusCode,
			Type:       failure.Type,
			Message:    failure.Message,
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("chat endpoint answered non-2xx without an error payload",
			slog.Int("status", resp.StatusCode),
		)
	}

	c.logger.Debug("chat completion finished",
		slog.String("model", c.config.Model),
		slog.Int("choices", len(parsed.Choices)),
	)

	return &parsed, nil
}

type decodeError struct {
	status int
	err    error
}

func (e *decodeError) Error() string {
	return fmt.Sprintf("decoding response (HTTP %d): %s", e.status, e.err.Error())
}
func (e *decodeError) Unwrap() error { return e.err }

// callerGoneError marks a failure caused by the caller's context ending,
// not by the upstream.
type callerGoneError struct{ err error }

func (e *callerGoneError) Error() string { return "caller gone: " + e.err.Error() }
func (e *callerGoneError) Unwrap() error { return e.err }

func outcome(err error) string {
	var gone *callerGoneError
	var remote *RemoteError
	var decErr *decodeError
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return metrics.OutcomeBreakerOpen
	case errors.As(err, &gone):
		return metrics.OutcomeCanceled
	case errors.As(err, &remote):
		return metrics.OutcomeRemoteError
	case errors.As(err, &decErr):
		return metrics.OutcomeDecodeError
	default:
		return metrics.OutcomeTransportError
	}
}
