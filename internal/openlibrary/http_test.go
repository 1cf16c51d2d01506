package openlibrary

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	shelferrors "github.com/lepinkainen/shelfkeeper/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

type testHTTPDoer struct {
	calls int
	agent string
}

func (t *testHTTPDoer) Do(req *http.Request) (*http.Response, error) {
	t.calls++
	t.agent = req.Header.Get("User-Agent")
	if t.calls == 1 {
		return nil, &url.Error{Err: timeoutError{}}
	}

	body := io.NopCloser(strings.NewReader(`{"status":"ok"}`))
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       body,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}, nil
}

func newTestClient(opts ...Option) *Client {
	base := []Option{WithRateLimiter(nil), WithBackoff(time.Millisecond)}
	return NewClient(append(base, opts...)...)
}

func TestGetJSONRetriesOnTimeout(t *testing.T) {
	doer := &testHTTPDoer{}
	client := newTestClient(WithHTTPClient(doer), WithRetryAttempts(2))

	var payload map[string]string
	err := client.getJSON(context.Background(), "http://example.test/", &payload)
	require.NoError(t, err)
	assert.Equal(t, "ok", payload["status"])
	assert.Equal(t, 2, doer.calls)
	assert.Equal(t, defaultUserAgent, doer.agent)
}

func TestGetGivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(WithHTTPClient(server.Client()), WithRetryAttempts(3))

	_, err := client.get(context.Background(), server.URL+"/x")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoResult)
	assert.Contains(t, err.Error(), "unexpected status 502: upstream down")
	assert.EqualValues(t, 3, calls.Load())
}

func TestGetNotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := newTestClient(WithHTTPClient(server.Client()), WithRetryAttempts(3))

	_, err := client.get(context.Background(), server.URL)
	assert.ErrorIs(t, err, errNotFound)
	assert.EqualValues(t, 1, calls.Load())
}

func TestGetRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newTestClient(WithHTTPClient(server.Client()))

	_, err := client.get(context.Background(), server.URL)
	require.True(t, shelferrors.IsRateLimitError(err))
	wait, ok := shelferrors.RetryAfter(err)
	require.True(t, ok)
	assert.Equal(t, 7*time.Second, wait)
}

func TestGetPerAttemptTimeout(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			select {
			case <-r.Context().Done():
			case <-release:
			}
			return
		}
		_, _ = w.Write([]byte(`{"docs":[]}`))
	}))
	defer server.Close()
	defer close(release)

	client := newTestClient(WithHTTPClient(server.Client()), WithTimeout(50*time.Millisecond), WithRetryAttempts(2))

	var resp searchResponse
	require.NoError(t, client.getJSON(context.Background(), server.URL, &resp))
	assert.EqualValues(t, 2, calls.Load())
}

func TestGetStopsOnCancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(WithHTTPClient(server.Client()), WithBackoff(time.Hour), WithRetryAttempts(5))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client.get(ctx, server.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestIsRetryable(t *testing.T) {
	retryErr := &url.Error{Err: timeoutError{}}
	assert.True(t, isRetryable(retryErr))

	connErr := &url.Error{Err: errors.New("connection reset by peer")}
	assert.True(t, isRetryable(connErr))

	assert.True(t, isRetryable(&statusError{code: 500}))

	nonRetryErr := &url.Error{Err: errors.New("bad request")}
	assert.False(t, isRetryable(nonRetryErr))
}

func TestBackoffDelay(t *testing.T) {
	base := 500 * time.Millisecond
	assert.Equal(t, 500*time.Millisecond, backoffDelay(base, 1))
	assert.Equal(t, time.Second, backoffDelay(base, 2))
	assert.Equal(t, 2*time.Second, backoffDelay(base, 3))
	assert.Equal(t, maxBackoff, backoffDelay(base, 12))
}

func TestOptionsIgnoreZeroValues(t *testing.T) {
	client := NewClient(
		WithBaseURL(""),
		WithCoversURL("https://covers.example/"),
		WithRetryAttempts(0),
		WithTimeout(0),
		WithUserAgent(""),
		WithHTTPClient(nil),
	)
	assert.Equal(t, defaultBaseURL, client.baseURL)
	assert.Equal(t, "https://covers.example", client.coversURL)
	assert.Equal(t, defaultMaxAttempts, client.retryAttempts)
	assert.Equal(t, defaultTimeout, client.timeout)
	assert.Equal(t, defaultUserAgent, client.userAgent)
	assert.NotNil(t, client.httpClient)
	assert.NotNil(t, client.rateLimiter)
}
