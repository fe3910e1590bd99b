package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultHost, cfg.Host)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultAPIURL, cfg.Scanner.APIURL)
	assert.Equal(t, DefaultRateLimit, cfg.Scanner.RateLimit)
	assert.Equal(t, DefaultRetryAttempts, cfg.Scanner.RetryAttempts)
	assert.Equal(t, 10*time.Second, cfg.Scanner.GetRequestTimeoutDuration())
	assert.Equal(t, time.Second, cfg.Scanner.GetRetryBackoffDuration())
	assert.True(t, cfg.IsCacheEnabled())
	assert.Equal(t, 5*time.Minute, cfg.Cache.GetTTLDuration())
	assert.Equal(t, DefaultPLEXDecimals, cfg.Tokens.PLEX.Decimals)
	assert.Equal(t, DefaultUSDTDecimals, cfg.Tokens.USDT.Decimals)
	assert.False(t, cfg.IsFeedEnabled())
	assert.Equal(t, "localhost:8080", cfg.Addr())
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `{
		"port": 9090,
		"logLevel": "debug",
		"scanner": {
			"apiUrl": "https://api.bscscan.com/api",
			"apiKeys": {"AUTHORIZATION": "auth-key", "DEPOSITS": "dep-key"},
			"rateLimit": 2,
			"retryAttempts": 0
		},
		"cache": {"enabled": false},
		"feed": {"enabled": true}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "https://api.bscscan.com/api", cfg.Scanner.APIURL)
	assert.Equal(t, "auth-key", cfg.Scanner.APIKeys[CategoryAuthorization])
	assert.Equal(t, "dep-key", cfg.Scanner.APIKeys[CategoryDeposits])
	assert.Equal(t, 2.0, cfg.Scanner.RateLimit)
	assert.Equal(t, 0, cfg.Scanner.RetryAttempts, "explicit zero disables retries")
	assert.False(t, cfg.IsCacheEnabled())
	assert.True(t, cfg.IsFeedEnabled())
	assert.Equal(t, DefaultFeedSchedule, cfg.Feed.Schedule)
	assert.Equal(t, DefaultMaxAddressesPerClient, cfg.Feed.MaxAddressesPerClient)
}

func TestLoad_ExplicitZeroRateLimit(t *testing.T) {
	path := writeConfig(t, `{"scanner": {"rateLimit": 0, "retryBackoff": 0}}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.0, cfg.Scanner.RateLimit, "explicit zero disables limiting")
	assert.Equal(t, time.Second, cfg.Scanner.GetRetryBackoffDuration(), "zero backoff falls back to the default")

	path = writeConfig(t, `{"scanner": {"apiKeys": {}}}`)
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultRateLimit, cfg.Scanner.RateLimit)
}

func TestValidateLogLevel(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		assert.NoError(t, ValidateLogLevel(level))
	}
	assert.Error(t, ValidateLogLevel("verbose"))
	assert.Error(t, ValidateLogLevel(""))
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad port", `{"port": 70000}`},
		{"bad log level", `{"logLevel": "trace"}`},
		{"bad url", `{"scanner": {"apiUrl": "ftp://example.com"}}`},
		{"negative rate", `{"scanner": {"rateLimit": -1}}`},
		{"negative retries", `{"scanner": {"retryAttempts": -2}}`},
		{"bad token", `{"tokens": {"plex": {"address": "0x123"}}}`},
		{"bad system address", `{"addresses": {"system": "nope"}}`},
		{"bad schedule", `{"feed": {"enabled": true, "schedule": "every now and then"}}`},
		{"bad json", `{"port": `},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvKeyFallback:                      "fallback-key",
		EnvKeyPrefix + CategorySubscription: "sub-key",
		EnvAPIURL:                           "https://api.bscscan.com/api",
		EnvSystemAddr:                       "0x0000000000000000000000000000000000000001",
		EnvLogLevel:                         "WARN",
	}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	cfg := Default()
	applyEnv(cfg, lookup)

	assert.Equal(t, "fallback-key", cfg.Scanner.APIKeys[CategoryAuthorization])
	assert.Equal(t, "sub-key", cfg.Scanner.APIKeys[CategorySubscription])
	assert.Empty(t, cfg.Scanner.APIKeys[CategoryDeposits])
	assert.Equal(t, "https://api.bscscan.com/api", cfg.Scanner.APIURL)
	assert.Equal(t, "0x0000000000000000000000000000000000000001", cfg.Addresses.System)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestApplyEnv_CategoryKeyBeatsFallback(t *testing.T) {
	env := map[string]string{
		EnvKeyFallback:                       "fallback-key",
		EnvKeyPrefix + CategoryAuthorization: "auth-key",
	}
	cfg := Default()
	applyEnv(cfg, func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	})

	assert.Equal(t, "auth-key", cfg.Scanner.APIKeys[CategoryAuthorization])
}

func TestLoadEnvFile(t *testing.T) {
	require.NoError(t, LoadEnvFile(""))
	require.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), "absent.env")))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("SCANGOFER_TEST_ONLY_VAR=loaded\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("SCANGOFER_TEST_ONLY_VAR") })

	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "loaded", os.Getenv("SCANGOFER_TEST_ONLY_VAR"))
}
