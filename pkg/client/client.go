// Package client is a typed client for the portal API: the callable
// function gateway plus the REST routes a script or CLI needs.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	DefaultServer  = "http://localhost:8080"
	DefaultTimeout = 30 * time.Second
)

// Client talks to one portal server. It is safe for concurrent use.
type Client struct {
	server     string
	httpClient *http.Client

	mu             sync.RWMutex
	token          string
	onUnauthorized func()
}

// Option configures the client.
type Option func(*Client)

func New(opts ...Option) *Client {
	c := &Client{
		server: DefaultServer,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithServer sets a custom server URL.
func WithServer(server string) Option {
	return func(c *Client) {
		if server != "" {
			c.server = strings.TrimRight(server, "/")
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the HTTP timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithToken starts the client with a bearer token from an earlier login.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithUnauthorizedHandler registers fn to run when the server rejects the
// session. The token is already cleared when fn runs.
func WithUnauthorizedHandler(fn func()) Option {
	return func(c *Client) {
		c.onUnauthorized = fn
	}
}

// ServerURL returns the configured server URL.
func (c *Client) ServerURL() string {
	return c.server
}

// Token returns the current bearer token, empty when logged out.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) setToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// envelope mirrors the server's {code, message, data} reply.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// do sends body as JSON and decodes the envelope's data into out.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.server+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ConnectionError{Err: err}
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil && err != io.EOF {
		return &APIError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("unreadable response: %v", err)}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		if resp.StatusCode == http.StatusUnauthorized {
			c.logout()
		}
		msg := env.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}

func (c *Client) logout() {
	c.mu.Lock()
	c.token = ""
	fn := c.onUnauthorized
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Call invokes a named function of the callable gateway.
func (c *Client) Call(ctx context.Context, name string, payload, out interface{}) error {
	if payload == nil {
		payload = struct{}{}
	}
	return c.do(ctx, http.MethodPost, "/api/functions/"+name, payload, out)
}
