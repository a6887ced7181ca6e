// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/morganforge/kestrel-tui/internal/model"
)

// Configuration constants for the Kestrel API.
const (
	// DefaultBaseURL is the base URL for the hosted Kestrel platform.
	DefaultBaseURL = "https://api.kestrel.chat/v1"

	// DefaultTimeout is the default timeout for non-streaming requests.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxRetries is the default number of retry attempts for
	// transient errors on non-streaming requests.
	DefaultMaxRetries = 3

	// retryBaseDelay is the base delay for exponential backoff.
	retryBaseDelay = 500 * time.Millisecond

	// retryMaxDelay is the maximum delay for exponential backoff.
	retryMaxDelay = 10 * time.Second

	// MaxResponseSize is the maximum allowed response body size.
	// Response size limit prevents memory exhaustion on a misbehaving server.
	MaxResponseSize = 10 * 1024 * 1024
)

var (
	// Shared HTTP client with connection pooling for request/response calls.
	sharedHTTPClient = &http.Client{
		Transport: poolingTransport(),
		Timeout:   DefaultTimeout,
	}

	// sharedStreamingClient is used for streaming requests. No client
	// timeout; stream lifetime is controlled by the request context.
	sharedStreamingClient = &http.Client{
		Transport: poolingTransport(),
	}
)

func poolingTransport() *http.Transport {
	return &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotConfigured indicates the client has no endpoint configured.
	ErrNotConfigured = errors.New("kestrel client not configured")

	// ErrRateLimited indicates the server rejected the request for rate.
	ErrRateLimited = errors.New("rate limited")
)

// APIError is a non-2xx response from the Kestrel API.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("kestrel api: %d %s", e.Status, e.Message)
	}
	return fmt.Sprintf("kestrel api: status %d", e.Status)
}

// Is allows APIError rate-limit responses to match ErrRateLimited.
func (e *APIError) Is(target error) bool {
	return target == ErrRateLimited && e.Status == http.StatusTooManyRequests
}

// =============================================================================
// REQUEST TYPES
// =============================================================================

// RequestContext is the opaque conversation continuity block replayed to the
// server on every request. The server is the source of truth for semantic
// conversation state; the client only echoes what it last received.
type RequestContext struct {
	ConversationID string          `json:"conversation_id,omitempty"`
	Signature      string          `json:"signature,omitempty"`
	State          json.RawMessage `json:"state,omitempty"`
	UserSettings   map[string]any  `json:"user_settings,omitempty"`
}

// ChatRequest is the payload for the streaming chat endpoint.
type ChatRequest struct {
	Message string         `json:"message"`
	History []model.Turn   `json:"history"`
	Context RequestContext `json:"context"`
}

// ConfirmationDecision is one user decision on a pending tool confirmation.
type ConfirmationDecision struct {
	ID       string `json:"id"`
	Decision string `json:"decision"`
}

// ConfirmationRequestBody is the payload for the silent-confirmation
// endpoint. No visible message is produced by this call.
type ConfirmationRequestBody struct {
	MessageID string                 `json:"message_id"`
	Decisions []ConfirmationDecision `json:"decisions"`
	Context   RequestContext         `json:"context"`
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the Kestrel platform API.
type Client struct {
	baseURL    string
	apiKey     string
	maxRetries int
	limiter    *rate.Limiter

	httpClient   *http.Client
	streamClient *http.Client
}

// NewClient creates a client for the hosted platform. The API key may be
// empty for self-hosted deployments that do not authenticate.
func NewClient(apiKey string) *Client {
	return &Client{
		baseURL:      DefaultBaseURL,
		apiKey:       apiKey,
		maxRetries:   DefaultMaxRetries,
		limiter:      rate.NewLimiter(rate.Limit(5), 10),
		httpClient:   sharedHTTPClient,
		streamClient: sharedStreamingClient,
	}
}

// WithBaseURL overrides the API endpoint (self-hosted deployments).
func (c *Client) WithBaseURL(url string) *Client {
	if url != "" {
		c.baseURL = url
	}
	return c
}

// WithMaxRetries sets the retry budget for non-streaming requests.
func (c *Client) WithMaxRetries(n int) *Client {
	c.maxRetries = n
	return c
}

// WithRateLimit replaces the client-side request limiter.
func (c *Client) WithRateLimit(perSecond float64, burst int) *Client {
	c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	return c
}

// WithHTTPClient swaps both underlying HTTP clients; used by tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	c.streamClient = hc
	return c
}

// IsConfigured reports whether the client has an endpoint.
func (c *Client) IsConfigured() bool {
	return c.baseURL != ""
}

// setHeaders applies the common request headers.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "kestrel-tui")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

// =============================================================================
// NON-STREAMING REQUESTS
// =============================================================================

// doWithRetry performs a request with exponential backoff.
// Client errors (4xx) are not retried; they will not heal on their own.
func (c *Client) doWithRetry(ctx context.Context, method, url string, body []byte) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(calculateBackoff(attempt)):
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		c.setHeaders(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		data, readErr := readResponse(resp)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return nil, parseAPIError(resp.StatusCode, data)
		}
		if resp.StatusCode != http.StatusOK {
			lastErr = parseAPIError(resp.StatusCode, data)
			continue
		}
		if readErr != nil {
			lastErr = readErr
			continue
		}
		return data, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// SendConfirmation submits tool-confirmation decisions without emitting a
// visible message.
func (c *Client) SendConfirmation(ctx context.Context, body ConfirmationRequestBody) error {
	if !c.IsConfigured() {
		return ErrNotConfigured
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal confirmation: %w", err)
	}
	_, err = c.doWithRetry(ctx, http.MethodPost, c.baseURL+"/confirmations", payload)
	return err
}

// FetchRawConfig fetches the startup feature configuration payload.
// Parsing lives in the config package; the transport returns bytes.
func (c *Client) FetchRawConfig(ctx context.Context) ([]byte, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}
	return c.doWithRetry(ctx, http.MethodGet, c.baseURL+"/config", nil)
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// readResponse reads a response body with the size cap applied.
func readResponse(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return data, nil
}

// parseAPIError decodes an error body into an APIError, falling back to the
// bare status when the body is not the documented error shape.
func parseAPIError(status int, body []byte) error {
	apiErr := &APIError{Status: status}
	var wire struct {
		Error APIError `json:"error"`
	}
	if err := json.Unmarshal(body, &wire); err == nil {
		apiErr.Code = wire.Error.Code
		apiErr.Message = wire.Error.Message
	}
	return apiErr
}

// calculateBackoff returns the delay before the given retry attempt.
func calculateBackoff(attempt int) time.Duration {
	delay := retryBaseDelay * time.Duration(1<<uint(attempt-1))
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	return delay
}
