package openlibrary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	shelferrors "github.com/lepinkainen/shelfkeeper/internal/errors"
)

// errNotFound marks a 404; lookups turn it into a nil document.
var errNotFound = errors.New("openlibrary: not found")

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("openlibrary: unexpected status %d: %s", e.code, e.body)
}

func (c *Client) getJSON(ctx context.Context, endpoint string, target any) error {
	body, err := c.get(ctx, endpoint)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("openlibrary: decoding %s: %w", endpoint, err)
	}
	return nil
}

// get fetches endpoint, retrying transient failures. 404 yields errNotFound
// and 429 a RateLimitError; neither is retried.
func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= c.retryAttempts; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}

		body, err := c.doRequest(ctx, endpoint)
		if err == nil {
			return body, nil
		}
		if errors.Is(err, errNotFound) || shelferrors.IsRateLimitError(err) || ctx.Err() != nil {
			return nil, err
		}

		lastErr = err
		if !isRetryable(err) || attempt == c.retryAttempts {
			break
		}

		slog.Debug("Retrying lookup request", "url", endpoint, "attempt", attempt, "error", err)
		if err := sleepCtx(ctx, backoffDelay(c.backoff, attempt)); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: %w", ErrNoResult, lastErr)
}

func (c *Client) doRequest(ctx context.Context, endpoint string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, errNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, rateLimitError(resp)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(body))}
	}

	return io.ReadAll(resp.Body)
}

func rateLimitError(resp *http.Response) error {
	if secs, err := strconv.Atoi(strings.TrimSpace(resp.Header.Get("Retry-After"))); err == nil && secs > 0 {
		return shelferrors.NewRateLimitErrorWithRetry("openlibrary: rate limited", time.Duration(secs)*time.Second)
	}
	return shelferrors.NewRateLimitError("openlibrary: rate limited")
}

func isRetryable(err error) bool {
	var status *statusError
	if errors.As(err, &status) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return true
		}
		// Network errors (connection resets etc.)
		if strings.Contains(urlErr.Error(), "connection") {
			return true
		}
	}
	return false
}

// backoffDelay doubles base for every attempt after the first, capped at 10 seconds.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	delay := base * time.Duration(1<<uint(attempt-1))
	if delay > maxBackoff || delay < 0 {
		return maxBackoff
	}
	return delay
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
