// Package openlibrary provides a client for the Open Library lookup and
// covers services.
package openlibrary

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/lepinkainen/shelfkeeper/internal/ratelimit"
)

const (
	defaultBaseURL       = "https://openlibrary.org"
	defaultCoversURL     = "https://covers.openlibrary.org"
	defaultUserAgent     = "shelfkeeper/1.0"
	defaultMaxAttempts   = 2
	defaultBackoff       = 500 * time.Millisecond
	defaultTimeout       = 6 * time.Second
	defaultRatePerSecond = 5
	maxBackoff           = 10 * time.Second
)

// ErrNoResult wraps the last error when every attempt for a lookup failed.
var ErrNoResult = errors.New("openlibrary: no result")

// HTTPDoer is an interface for making HTTP requests.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Client is an Open Library API client. It is safe for concurrent use.
type Client struct {
	baseURL       string
	coversURL     string
	userAgent     string
	httpClient    HTTPDoer
	rateLimiter   *ratelimit.Limiter
	retryAttempts int
	backoff       time.Duration
	timeout       time.Duration
	useCache      bool
}

// NewClient creates a new Open Library client.
func NewClient(opts ...Option) *Client {
	client := &Client{
		baseURL:       defaultBaseURL,
		coversURL:     defaultCoversURL,
		userAgent:     defaultUserAgent,
		httpClient:    &http.Client{},
		rateLimiter:   ratelimit.New("openlibrary", defaultRatePerSecond),
		retryAttempts: defaultMaxAttempts,
		backoff:       defaultBackoff,
		timeout:       defaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Option is a functional option for configuring the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c HTTPDoer) Option {
	return func(client *Client) {
		if c != nil {
			client.httpClient = c
		}
	}
}

// WithBaseURL sets a custom base URL for the lookup API.
func WithBaseURL(base string) Option {
	return func(client *Client) {
		if base != "" {
			client.baseURL = strings.TrimSuffix(base, "/")
		}
	}
}

// WithCoversURL sets a custom base URL for cover images.
func WithCoversURL(base string) Option {
	return func(client *Client) {
		if base != "" {
			client.coversURL = strings.TrimSuffix(base, "/")
		}
	}
}

// WithRetryAttempts sets the number of attempts per request.
func WithRetryAttempts(attempts int) Option {
	return func(client *Client) {
		if attempts > 0 {
			client.retryAttempts = attempts
		}
	}
}

// WithBackoff sets the delay before the second attempt. It doubles for
// every further attempt.
func WithBackoff(d time.Duration) Option {
	return func(client *Client) {
		if d >= 0 {
			client.backoff = d
		}
	}
}

// WithTimeout sets the per-attempt request timeout.
func WithTimeout(d time.Duration) Option {
	return func(client *Client) {
		if d > 0 {
			client.timeout = d
		}
	}
}

// WithRateLimiter sets the limiter waited on before every attempt. A nil
// limiter disables rate limiting.
func WithRateLimiter(limiter *ratelimit.Limiter) Option {
	return func(client *Client) {
		client.rateLimiter = limiter
	}
}

// WithCache routes document lookups through the persistent cache.
func WithCache(enabled bool) Option {
	return func(client *Client) {
		client.useCache = enabled
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(client *Client) {
		if ua != "" {
			client.userAgent = ua
		}
	}
}
