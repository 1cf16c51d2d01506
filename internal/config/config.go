package config

import (
	"time"

	"github.com/spf13/viper"
)

// Defaults for the library and lookup settings.
const (
	DefaultDataDir         = "./library"
	DefaultSyncWorkers     = 8
	DefaultSyncDelay       = 30 * time.Millisecond
	DefaultLookupBaseURL   = "https://openlibrary.org"
	DefaultLookupCoversURL = "https://covers.openlibrary.org"
	DefaultLookupTimeout   = 6 * time.Second
	DefaultLookupRetries   = 2
	DefaultLookupBackoff   = 500 * time.Millisecond
	DefaultLookupRate      = 5
	DefaultCoverMinBytes   = 1500
)

// Global configuration variables
var (
	// DataDir holds catalog.json, the queue files and the covers directory
	DataDir string
	// SyncWorkers bounds concurrent enrichment workers
	SyncWorkers int
	// SyncDelay is the courtesy pause after each enriched book
	SyncDelay time.Duration

	// LookupBaseURL is the Open Library API root
	LookupBaseURL string
	// LookupCoversURL is the Open Library covers host
	LookupCoversURL string
	// LookupTimeout is the per-request timeout
	LookupTimeout time.Duration
	// LookupRetries is the number of attempts per request
	LookupRetries int
	// LookupBackoff is the delay before the second attempt; it doubles after that
	LookupBackoff time.Duration
	// LookupRate caps lookup requests per second
	LookupRate int

	// CoverMinBytes rejects placeholder images at or below this size
	CoverMinBytes int
	// CoverMaxWidth downscales wider covers; zero keeps the original
	CoverMaxWidth int

	// CacheEnabled turns on the persistent lookup document cache
	CacheEnabled bool
)

// SetDefaults registers default values with viper.
func SetDefaults() {
	viper.SetDefault("data_dir", DefaultDataDir)
	viper.SetDefault("sync.workers", DefaultSyncWorkers)
	viper.SetDefault("sync.delay", DefaultSyncDelay.String())
	viper.SetDefault("lookup.base_url", DefaultLookupBaseURL)
	viper.SetDefault("lookup.covers_url", DefaultLookupCoversURL)
	viper.SetDefault("lookup.timeout", DefaultLookupTimeout.String())
	viper.SetDefault("lookup.retries", DefaultLookupRetries)
	viper.SetDefault("lookup.backoff", DefaultLookupBackoff.String())
	viper.SetDefault("lookup.rate", DefaultLookupRate)
	viper.SetDefault("cover.min_bytes", DefaultCoverMinBytes)
	viper.SetDefault("cover.max_width", 0)
	viper.SetDefault("cache.enabled", true)
}

// InitConfig initializes the global configuration
func InitConfig() {
	SetDefaults()

	DataDir = viper.GetString("data_dir")
	SyncWorkers = positive(viper.GetInt("sync.workers"), DefaultSyncWorkers)
	SyncDelay = viper.GetDuration("sync.delay")

	LookupBaseURL = viper.GetString("lookup.base_url")
	LookupCoversURL = viper.GetString("lookup.covers_url")
	LookupTimeout = viper.GetDuration("lookup.timeout")
	if LookupTimeout <= 0 {
		LookupTimeout = DefaultLookupTimeout
	}
	LookupRetries = positive(viper.GetInt("lookup.retries"), DefaultLookupRetries)
	LookupBackoff = viper.GetDuration("lookup.backoff")
	LookupRate = positive(viper.GetInt("lookup.rate"), DefaultLookupRate)

	CoverMinBytes = viper.GetInt("cover.min_bytes")
	CoverMaxWidth = viper.GetInt("cover.max_width")

	CacheEnabled = viper.GetBool("cache.enabled")
}

// SetDataDir sets the DataDir value
func SetDataDir(dir string) {
	if dir != "" {
		DataDir = dir
	}
}

// SetSyncWorkers sets the SyncWorkers value when n is positive
func SetSyncWorkers(n int) {
	if n > 0 {
		SyncWorkers = n
	}
}

func positive(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
