package testutil

import (
	"testing"
	"time"

	"github.com/lepinkainen/shelfkeeper/internal/config"
	"github.com/spf13/viper"
)

// ConfigState holds the state of the config package variables.
type ConfigState struct {
	DataDir         string
	SyncWorkers     int
	SyncDelay       time.Duration
	LookupBaseURL   string
	LookupCoversURL string
	LookupTimeout   time.Duration
	LookupRetries   int
	LookupBackoff   time.Duration
	LookupRate      int
	CoverMinBytes   int
	CoverMaxWidth   int
	CacheEnabled    bool
}

// SaveConfigState captures the current state of config package variables.
func SaveConfigState() ConfigState {
	return ConfigState{
		DataDir:         config.DataDir,
		SyncWorkers:     config.SyncWorkers,
		SyncDelay:       config.SyncDelay,
		LookupBaseURL:   config.LookupBaseURL,
		LookupCoversURL: config.LookupCoversURL,
		LookupTimeout:   config.LookupTimeout,
		LookupRetries:   config.LookupRetries,
		LookupBackoff:   config.LookupBackoff,
		LookupRate:      config.LookupRate,
		CoverMinBytes:   config.CoverMinBytes,
		CoverMaxWidth:   config.CoverMaxWidth,
		CacheEnabled:    config.CacheEnabled,
	}
}

// RestoreConfigState restores the config package variables to a saved state.
func RestoreConfigState(state ConfigState) {
	config.DataDir = state.DataDir
	config.SyncWorkers = state.SyncWorkers
	config.SyncDelay = state.SyncDelay
	config.LookupBaseURL = state.LookupBaseURL
	config.LookupCoversURL = state.LookupCoversURL
	config.LookupTimeout = state.LookupTimeout
	config.LookupRetries = state.LookupRetries
	config.LookupBackoff = state.LookupBackoff
	config.LookupRate = state.LookupRate
	config.CoverMinBytes = state.CoverMinBytes
	config.CoverMaxWidth = state.CoverMaxWidth
	config.CacheEnabled = state.CacheEnabled
}

// ResetConfig saves the current config state and schedules restoration
// when the test completes. It also resets viper.
func ResetConfig(t *testing.T) {
	t.Helper()

	state := SaveConfigState()
	viper.Reset()

	t.Cleanup(func() {
		RestoreConfigState(state)
		viper.Reset()
	})
}

// SetTestConfig loads the default configuration with the data directory
// inside env, no courtesy delay and the persistent cache disabled.
func SetTestConfig(t *testing.T, env *TestEnv) {
	t.Helper()

	ResetConfig(t)
	config.InitConfig()
	config.DataDir = env.Path("library")
	config.SyncDelay = 0
	config.LookupBackoff = time.Millisecond
	config.CacheEnabled = false
}

// SetViperValue sets a viper configuration value and schedules cleanup.
func SetViperValue(t *testing.T, key string, value any) {
	t.Helper()

	oldValue := viper.Get(key)
	hadValue := viper.IsSet(key)

	viper.Set(key, value)

	t.Cleanup(func() {
		if hadValue {
			viper.Set(key, oldValue)
		}
	})
}

// SetupTestCache points the persistent cache at a database inside env.
func SetupTestCache(t *testing.T, env *TestEnv) string {
	t.Helper()

	env.MkdirAll("cache")
	dbPath := env.Path("cache", "test-cache.db")
	SetViperValue(t, "cache.dbfile", dbPath)
	SetViperValue(t, "cache.ttl", "24h")
	return dbPath
}
