package openlibrary

import (
	"github.com/lepinkainen/shelfkeeper/internal/config"
	"github.com/lepinkainen/shelfkeeper/internal/ratelimit"
)

// NewFromConfig builds a client from the global lookup configuration.
// Options in extra are applied last.
func NewFromConfig(extra ...Option) *Client {
	opts := []Option{
		WithBaseURL(config.LookupBaseURL),
		WithCoversURL(config.LookupCoversURL),
		WithTimeout(config.LookupTimeout),
		WithRetryAttempts(config.LookupRetries),
		WithBackoff(config.LookupBackoff),
		WithRateLimiter(ratelimit.New("openlibrary", config.LookupRate)),
		WithCache(config.CacheEnabled),
	}
	return NewClient(append(opts, extra...)...)
}
