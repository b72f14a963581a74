// Package transport provides the authenticated HTTP client used by the REST
// store. Requests carry a per-call timeout and are retried with exponential
// backoff on rate limiting, and on server errors when the method is idempotent.
package transport

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"
	"time"

	"github.com/agentstation/casesync/pkg/constants"
	"github.com/agentstation/casesync/pkg/errors"
	"github.com/agentstation/casesync/pkg/logging"
)

// DefaultHTTPTimeout is the default timeout for HTTP requests.
var DefaultHTTPTimeout = constants.DefaultHTTPTimeout

// Client provides HTTP client functionality with authentication.
type Client struct {
	http       *http.Client
	auth       Authenticator
	token      string
	baseURL    string
	maxRetries int
	backoff    time.Duration
	maxBackoff time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// WithRetries sets how many times a retryable failure is retried.
func WithRetries(n int) Option {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithBackoff sets the first and the largest wait between retries.
func WithBackoff(first, limit time.Duration) Option {
	return func(c *Client) {
		c.backoff = first
		c.maxBackoff = limit
	}
}

// WithAuthenticator overrides how the token is applied.
func WithAuthenticator(auth Authenticator) Option {
	return func(c *Client) {
		c.auth = auth
	}
}

// New creates a client for baseURL authenticating with token. An empty
// token sends unauthenticated requests.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		http:       &http.Client{Timeout: DefaultHTTPTimeout},
		auth:       &BearerAuth{},
		token:      token,
		baseURL:    strings.TrimRight(baseURL, "/"),
		maxRetries: constants.MaxRetries,
		backoff:    constants.RetryBackoff,
		maxBackoff: constants.MaxRetryBackoff,
	}
	if token == "" {
		c.auth = &NoAuth{}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the URL every path is resolved against.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do sends method path with body encoded as JSON and decodes the response
// into target. Rate limiting is retried for every method; server errors only
// for idempotent ones, since a failed POST may already have been applied.
func (c *Client) Do(ctx context.Context, method, path string, body, target any) error {
	logger := logging.FromContext(ctx)
	wait := c.backoff

	for attempt := 0; ; attempt++ {
		err := c.do(ctx, method, path, body, target)
		if err == nil {
			return nil
		}

		var apiErr *errors.APIError
		if !stderrors.As(err, &apiErr) || !retryable(method, apiErr) || attempt >= c.maxRetries {
			return err
		}

		logger.Warn().
			Err(err).
			Str("method", method).
			Str("path", path).
			Int("attempt", attempt+1).
			Dur("wait", wait).
			Msg("Retrying request")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait = min(wait*2, c.maxBackoff)
	}
}

func retryable(method string, err *errors.APIError) bool {
	if !err.Retryable() {
		return false
	}
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions,
		http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return err.StatusCode == http.StatusTooManyRequests
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, target any) error {
	return c.Do(ctx, http.MethodGet, path, nil, target)
}

func (c *Client) do(ctx context.Context, method, path string, body, target any) error {
	req, err := NewRequest(ctx, method, c.url(path), body)
	if err != nil {
		return err
	}

	c.auth.Apply(req, c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &errors.APIError{Service: Service, Message: err.Error(), Endpoint: method + " " + path, Err: err}
	}
	return DecodeResponse(ctx, resp, target)
}

func (c *Client) url(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}
