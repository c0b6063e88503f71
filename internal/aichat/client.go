// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package aichat

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/chatwidget/internal/auth"
	"github.com/jeranaias/chatwidget/internal/model"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultTimeout bounds non-streamed requests.
	DefaultTimeout = 60 * time.Second

	// MaxResponseSize is the maximum allowed non-streamed response body size.
	MaxResponseSize = 10 * 1024 * 1024

	// userAgent identifies the widget to the backend.
	userAgent = "chatwidget/1.0"
)

// DefaultScopes are requested from the credential for every call.
var DefaultScopes = []string{"openid"}

var (
	// Shared HTTP client with connection pooling for all backend requests.
	sharedHTTPClient = &http.Client{
		Transport: newPooledTransport(),
		Timeout:   DefaultTimeout,
	}

	// sharedStreamingClient is used for streaming requests (no timeout, context-controlled).
	sharedStreamingClient = &http.Client{
		Transport: newPooledTransport(),
	}
)

func newPooledTransport() *http.Transport {
	return &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
	}
}

// =============================================================================
// WIRE TYPES
// =============================================================================

type wireMessage struct {
	Role         model.Role             `json:"role"`
	Content      string                 `json:"content"`
	Context      *model.ResponseContext `json:"context,omitempty"`
	SessionState model.SessionState     `json:"session_state,omitempty"`
}

type completionRequest struct {
	Messages     []wireMessage         `json:"messages"`
	Stream       bool                  `json:"stream"`
	Context      *model.RequestContext `json:"context,omitempty"`
	SessionState model.SessionState    `json:"session_state,omitempty"`
}

type completionResponse struct {
	Message      wireMessage            `json:"message"`
	SessionState model.SessionState     `json:"session_state,omitempty"`
	Context      *model.ResponseContext `json:"context,omitempty"`
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to an AI Chat Protocol backend. It implements Transport and
// ModelLister and is safe for concurrent use.
type Client struct {
	baseURL      string
	credential   auth.Credential
	scopes       []string
	httpClient   *http.Client
	streamClient *http.Client
	logger       *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces both the request and streaming HTTP clients.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
		c.streamClient = hc
	}
}

// WithTimeout bounds non-streamed requests. Streams stay bounded by their
// context only.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient = &http.Client{Transport: newPooledTransport(), Timeout: d}
		}
	}
}

// WithScopes sets the scopes requested from the credential.
func WithScopes(scopes ...string) Option {
	return func(c *Client) {
		c.scopes = scopes
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a client for baseURL. A nil credential sends every request
// without an Authorization header.
func NewClient(baseURL string, credential auth.Credential, opts ...Option) (*Client, error) {
	base, err := validateBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:      base,
		credential:   credential,
		scopes:       DefaultScopes,
		httpClient:   sharedHTTPClient,
		streamClient: sharedStreamingClient,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("aichat")
	return c, nil
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func validateBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrNotConfigured
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid base URL %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid base URL %q: missing host", raw)
	}
	return strings.TrimRight(u.String(), "/"), nil
}

// GetStreamedCompletion opens a streamed completion. The returned stream must
// be closed by the caller.
func (c *Client) GetStreamedCompletion(ctx context.Context, messages []model.Message, opts Options) (DeltaStream, error) {
	req, err := c.newCompletionRequest(ctx, "/chat/stream", messages, opts, true)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/x-ndjson")

	c.logger.Debug("Opening completion stream", zap.Int("messages", len(messages)))
	resp, err := c.streamClient.Do(req)
	req.Header.Del("Authorization")
	if err != nil {
		return nil, fmt.Errorf("stream request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
		httpErr := newHTTPError(resp.StatusCode, body)
		c.logger.Debug("Completion stream rejected", zap.Int("status", resp.StatusCode))
		return nil, httpErr
	}

	return newStream(resp.Body, c.logger), nil
}

// GetCompletion performs a single non-streamed completion.
func (c *Client) GetCompletion(ctx context.Context, messages []model.Message, opts Options) (*Completion, error) {
	req, err := c.newCompletionRequest(ctx, "/chat", messages, opts, false)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var parsed completionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse completion: %w", err)
	}
	c.logger.Debug("Completion received",
		zap.Duration("duration", time.Since(start)),
		zap.Int("content_length", len(parsed.Message.Content)))

	role := parsed.Message.Role
	if role == "" {
		role = model.RoleAssistant
	}
	msg := model.NewMessage(role, parsed.Message.Content)
	msg.Context = parsed.Message.Context
	if msg.Context == nil {
		msg.Context = parsed.Context
	}
	state := parsed.SessionState
	if !model.HasValue(state) {
		state = parsed.Message.SessionState
	}

	return &Completion{
		Message:      msg,
		SessionState: state,
		Context:      msg.Context,
	}, nil
}

// ListModels implements ModelLister via GET {base}/models.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if err := c.authorize(ctx, req); err != nil {
		return nil, err
	}

	body, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch models: %w", err)
	}

	var models []string
	if err := json.Unmarshal(body, &models); err != nil {
		return nil, fmt.Errorf("failed to parse models: %w", err)
	}
	c.logger.Debug("Available models fetched", zap.Strings("models", models))
	return models, nil
}

// newCompletionRequest builds an authorized POST for path.
func (c *Client) newCompletionRequest(ctx context.Context, path string, messages []model.Message, opts Options, stream bool) (*http.Request, error) {
	wire, err := toWire(messages)
	if err != nil {
		return nil, err
	}

	payload := completionRequest{
		Messages: wire,
		Stream:   stream,
		Context:  opts.Context,
	}
	if model.HasValue(opts.SessionState) {
		payload.SessionState = opts.SessionState
	}

	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if err := c.authorize(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// authorize sets the bearer token when the credential yields one.
func (c *Client) authorize(ctx context.Context, req *http.Request) error {
	req.Header.Set("User-Agent", userAgent)
	if c.credential == nil {
		return nil
	}
	tok, err := c.credential.GetToken(ctx, c.scopes, auth.GetTokenOptions{})
	if err != nil {
		return fmt.Errorf("failed to get access token: %w", err)
	}
	if tok == nil || tok.Token == "" {
		c.logger.Debug("No access token available, sending unauthenticated request")
		return nil
	}
	req.Header.Set("Authorization", "Bearer "+tok.Token)
	return nil
}

// do executes a non-streamed request and returns the body of a 2xx response.
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	req.Header.Del("Authorization")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := readResponse(resp)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newHTTPError(resp.StatusCode, body)
	}
	return body, nil
}

// readResponse reads the response body with a size limit.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if len(body) > MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// toWire validates roles and converts messages to the protocol shape.
func toWire(messages []model.Message) ([]wireMessage, error) {
	out := make([]wireMessage, 0, len(messages))
	for i, msg := range messages {
		if !msg.Role.IsValid() {
			return nil, fmt.Errorf("%w: message %d has role %q", ErrInvalidMessage, i, msg.Role)
		}
		out = append(out, wireMessage{
			Role:    msg.Role,
			Content: msg.Content,
			Context: msg.Context,
		})
	}
	return out, nil
}
