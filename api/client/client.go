// Package client is a typed REST client for the signal-analysis backend.
//
// Every POST or DELETE carries the CSRF token the backend issued in the csrftoken
// cookie, echoed in the X-CSRFToken header. Payload failures
// ({"success": false, "message": ...}) surface as *APIError; transport
// failures without a JSON body surface as *HTTPError.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// CSRFCookieName is the cookie the backend stores its CSRF token in
	CSRFCookieName = "csrftoken"
	// CSRFHeaderName is the header unsafe requests echo the token in
	CSRFHeaderName = "X-CSRFToken"

	maxResponseBytes = 64 << 20
)

// APIError is a well-formed response with success=false
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return e.Message
}

// HTTPError is a non-2xx response without a decodable JSON envelope
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// Message returns the user-facing text for an error from this package
func Message(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Error()
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return fmt.Sprintf("HTTP %d", httpErr.StatusCode)
	}
	return "network error"
}

// envelope is the common shape of every JSON response
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (e envelope) text() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

// Client talks to the backend's /api/* endpoints
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	csrfToken string
	logger    *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
// A cookie jar is attached when the client has none.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithCSRFToken pins the CSRF token instead of reading it from the cookie jar
func WithCSRFToken(token string) Option {
	return func(c *Client) { c.csrfToken = token }
}

// WithLogger sets the logger used for request tracing
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a client for the backend at baseURL
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: scheme and host required", baseURL)
	}

	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		c.http.Jar = jar
	}
	return c, nil
}

// CSRFToken returns the token POSTs will carry, if one is known
func (c *Client) CSRFToken() string {
	if c.csrfToken != "" {
		return c.csrfToken
	}
	for _, ck := range c.http.Jar.Cookies(c.baseURL) {
		if ck.Name == CSRFCookieName {
			return ck.Value
		}
	}
	return ""
}

// endpoint appends an already escaped API path to the base URL, keeping any
// path prefix the base URL carries
func (c *Client) endpoint(path string) string {
	base := *c.baseURL
	base.RawQuery, base.Fragment = "", ""
	return strings.TrimSuffix(base.String(), "/") + path
}

// primeCSRF fetches any GET page so the backend sets the CSRF cookie
func (c *Client) primeCSRF(ctx context.Context) {
	if c.CSRFToken() != "" {
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/api/csrf/"), nil)
	if err != nil {
		return
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("csrf priming failed", zap.Error(err))
		return
	}
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
	resp.Body.Close()
}

// do sends the request and returns the raw body after envelope checks
func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader) ([]byte, error) {
	unsafe := method != http.MethodGet && method != http.MethodHead
	if unsafe {
		c.primeCSRF(ctx)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	requestID := uuid.New().String()
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if unsafe {
		if token := c.CSRFToken(); token != "" {
			req.Header.Set(CSRFHeaderName, token)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	c.logger.Debug("api request",
		zap.String("request_id", requestID),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	var env envelope
	isJSON := strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json")
	if isJSON {
		if err := json.Unmarshal(raw, &env); err != nil {
			if resp.StatusCode >= 300 {
				return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
			}
			return nil, fmt.Errorf("decode response: %w", err)
		}
		if !env.Success {
			return nil, &APIError{StatusCode: resp.StatusCode, Message: env.text()}
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return raw, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	raw, err := c.do(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return err
	}
	return decode(raw, out)
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	raw, err := c.do(ctx, http.MethodPost, path, "application/json", body)
	if err != nil {
		return err
	}
	return decode(raw, out)
}

func decode(raw []byte, out any) error {
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
