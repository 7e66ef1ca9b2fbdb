// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultChatURL is the base URL of the chat backend.
	DefaultChatURL = "http://localhost:5000"

	// DefaultUserURL is the base URL of the user and scanner backend.
	DefaultUserURL = "http://localhost:3000"

	// DefaultTimeout is the default timeout for non-streaming requests.
	// Scans run synchronously on the backend, so this is generous.
	DefaultTimeout = 120 * time.Second

	// DefaultListRetries is how many times the conversation list fetch is retried.
	DefaultListRetries = 3

	// DefaultListRetryDelay is the fixed delay between list retries.
	DefaultListRetryDelay = 500 * time.Millisecond

	// MaxResponseSize is the maximum allowed non-streaming response body size.
	// SECURITY: Response size limit prevents memory exhaustion.
	MaxResponseSize = 10 * 1024 * 1024

	// UserAgent identifies the client to both backends.
	UserAgent = "vscan/1.0"

	// userTokenPrefix is prepended to the token in the user backend's header.
	userTokenPrefix = "accessToken_"
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// Config holds configuration options for the API client.
type Config struct {
	// ChatURL is the chat backend base URL (default: http://localhost:5000)
	ChatURL string

	// UserURL is the user and scanner backend base URL (default: http://localhost:3000)
	UserURL string

	// Timeout for non-streaming requests (default: 120s)
	Timeout time.Duration

	// ListRetries for the conversation list fetch (default: 3)
	ListRetries int

	// ListRetryDelay between list retries (default: 500ms)
	ListRetryDelay time.Duration

	// RequestsPerSecond caps outgoing requests; 0 disables the limiter.
	RequestsPerSecond float64

	// Burst is the limiter burst size (default: 10 when limiting)
	Burst int

	// InsecureSkipVerify disables TLS verification for self-signed dev backends.
	InsecureSkipVerify bool
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *Config {
	return &Config{
		ChatURL:           DefaultChatURL,
		UserURL:           DefaultUserURL,
		Timeout:           DefaultTimeout,
		ListRetries:       DefaultListRetries,
		ListRetryDelay:    DefaultListRetryDelay,
		RequestsPerSecond: 10,
		Burst:             10,
	}
}

// TokenSource supplies the bearer token for authenticated calls.
type TokenSource interface {
	// Token returns the current token, or "" when signed out.
	Token() string

	// Invalidate discards the token after the backend rejected it.
	Invalidate() error
}

// =============================================================================
// CLIENT
// =============================================================================

// backend selects which service a request targets.
type backend int

const (
	chatBackend backend = iota
	userBackend
)

// Client talks to the chat and user backends.
//
// The Client is safe for concurrent use.
type Client struct {
	config       *Config
	httpClient   *http.Client
	streamClient *http.Client
	tokens       TokenSource
	limiter      *rate.Limiter
	logger       *log.Logger
}

// NewClient creates a client. tokens may be nil for unauthenticated use
// (sign-in, sign-up, password reset); logger may be nil.
func NewClient(config *Config, tokens TokenSource, logger *log.Logger) *Client {
	if config == nil {
		config = DefaultConfig()
	}

	// Fill in defaults for any zero values
	if config.ChatURL == "" {
		config.ChatURL = DefaultChatURL
	}
	if config.UserURL == "" {
		config.UserURL = DefaultUserURL
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	if config.ListRetries == 0 {
		config.ListRetries = DefaultListRetries
	}
	if config.ListRetryDelay == 0 {
		config.ListRetryDelay = DefaultListRetryDelay
	}
	if config.Burst == 0 {
		config.Burst = 10
	}
	config.ChatURL = strings.TrimSuffix(config.ChatURL, "/")
	config.UserURL = strings.TrimSuffix(config.UserURL, "/")

	if logger == nil {
		logger = log.New(io.Discard)
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: config.InsecureSkipVerify, //nolint:gosec // opt-in for dev backends
		},
	}
	rt := &loggingRoundTripper{inner: transport, logger: logger}

	c := &Client{
		config: config,
		httpClient: &http.Client{
			Timeout:   config.Timeout,
			Transport: rt,
		},
		// No timeout for streaming - controlled via context
		streamClient: &http.Client{Transport: rt},
		tokens:       tokens,
		logger:       logger,
	}
	if config.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.Burst)
	}
	return c
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return *c.config
}

// SetTokenSource replaces the token source.
func (c *Client) SetTokenSource(tokens TokenSource) {
	c.tokens = tokens
}

// =============================================================================
// REQUEST PLUMBING
// =============================================================================

// call describes one backend request.
type call struct {
	backend backend
	method  string
	path    string
	query   url.Values

	// body is JSON-encoded unless raw is set.
	body        any
	raw         io.Reader
	contentType string

	// auth requires a token; optionalAuth sends one when available.
	auth         bool
	optionalAuth bool
}

func (c *Client) baseURL(b backend) string {
	if b == userBackend {
		return c.config.UserURL
	}
	return c.config.ChatURL
}

func (c *Client) token() string {
	if c.tokens == nil {
		return ""
	}
	return c.tokens.Token()
}

// newRequest builds the HTTP request for a call.
func (c *Client) newRequest(ctx context.Context, cl call) (*http.Request, error) {
	if strings.Contains(cl.path, "?") {
		return nil, fmt.Errorf("api: path must not contain a query string: %s", cl.path)
	}
	base, err := url.Parse(c.baseURL(cl.backend))
	if err != nil {
		return nil, fmt.Errorf("api: invalid base URL: %w", err)
	}
	base.Path = path.Join(base.Path, cl.path)
	if cl.query != nil {
		base.RawQuery = cl.query.Encode()
	}

	var body io.Reader
	contentType := cl.contentType
	switch {
	case cl.raw != nil:
		body = cl.raw
	case cl.body != nil:
		data, err := json.Marshal(cl.body)
		if err != nil {
			return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, base.String(), body)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeNetwork, Message: "failed to create request", Cause: err}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", UserAgent)

	token := c.token()
	if cl.auth && token == "" {
		return nil, ErrSignInRequired
	}
	if token != "" && (cl.auth || cl.optionalAuth) {
		c.setAuthHeaders(req, cl.backend, token)
	}
	return req, nil
}

// setAuthHeaders attaches the token the way each backend expects it.
func (c *Client) setAuthHeaders(req *http.Request, b backend, token string) {
	req.Header.Set("Authorization", "Bearer "+token)
	if b == userBackend {
		req.Header.Set("accesstoken", userTokenPrefix+token)
	}
}

// wait blocks on the client-side rate limiter.
func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return wrapTransportError(err)
	}
	return nil
}

// do executes a call and decodes a 2xx JSON body into out (which may be nil).
func (c *Client) do(ctx context.Context, cl call, out any) error {
	resp, err := c.send(ctx, c.httpClient, cl)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// SECURITY: Read response with size limit to prevent memory exhaustion
	body, err := readResponse(resp)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.handleErrorResponse(cl, resp.StatusCode, body)
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}
	return nil
}

// send builds and performs the request, returning the raw response.
func (c *Client) send(ctx context.Context, hc *http.Client, cl call) (*http.Response, error) {
	req, err := c.newRequest(ctx, cl)
	if err != nil {
		return nil, err
	}
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, wrapTransportError(err)
	}
	return resp, nil
}

// readResponse reads the response body with size limits to prevent memory exhaustion.
func readResponse(resp *http.Response) ([]byte, error) {
	limitedReader := io.LimitReader(resp.Body, MaxResponseSize+1)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, wrapTransportError(fmt.Errorf("failed to read response: %w", err))
	}
	if int64(len(body)) > MaxResponseSize {
		return nil, &ClientError{
			Type:    ErrTypeInvalidResponse,
			Message: fmt.Sprintf("response exceeded maximum size of %d bytes", MaxResponseSize),
		}
	}
	return body, nil
}

// handleErrorResponse converts a non-2xx response into an error. Rejected
// tokens are invalidated so the UI routes back to sign-in.
func (c *Client) handleErrorResponse(cl call, status int, body []byte) error {
	apiErr := &APIError{
		Status:  status,
		Message: parseErrorMessage(body),
		Method:  cl.method,
		Path:    cl.path,
	}

	if cl.auth && isTokenRejected(cl.backend, status, apiErr.Message) {
		if c.tokens != nil {
			if err := c.tokens.Invalidate(); err != nil {
				c.logger.Warn("failed to clear rejected token", "err", err)
			}
		}
		c.logger.Info("token rejected by backend", "status", status, "path", cl.path)
		return &ClientError{Type: ErrTypeAuth, Message: "sign in required", Cause: apiErr}
	}
	return apiErr
}

// isTokenRejected decides whether a failure means the stored token is unusable.
// The chat backend answers 401 for missing or expired tokens, 422 for
// malformed ones, and 404 "User not found." when the token names a deleted
// account. Other 404s (missing conversation or file) are ordinary not-found.
func isTokenRejected(b backend, status int, msg string) bool {
	switch status {
	case http.StatusUnauthorized:
		return true
	case http.StatusUnprocessableEntity:
		return b == chatBackend
	case http.StatusNotFound:
		return b == chatBackend && strings.EqualFold(strings.TrimSpace(msg), "User not found.")
	default:
		return false
	}
}

// checkID rejects identifiers that would change the request path.
func checkID(kind, id string) error {
	if id == "" || strings.ContainsAny(id, "/?#") || id == "." || id == ".." {
		return &ClientError{Type: ErrTypeValidation, Message: fmt.Sprintf("invalid %s id %q", kind, id)}
	}
	return nil
}
