package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// EnvKeyFallback is read into the primary category when no category-specific key is set
const EnvKeyFallback = "BSCSCAN_API_KEY"

// configWithExplicitZero is used for proper default handling of scanner.retryAttempts
// and scanner.rateLimit, where an explicit 0 means "no retries" and "no limiting"
type configWithExplicitZero struct {
	Scanner struct {
		RetryAttempts *int     `json:"retryAttempts"`
		RateLimit     *float64 `json:"rateLimit"`
	} `json:"scanner"`
}

// LoadEnvFile loads variables from a dotenv file into the process environment.
// Variables already set in the environment win. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// Load reads and parses the configuration file, overlays the environment and validates
// the result. An empty path yields the defaults plus environment.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	retryAttempts := DefaultRetryAttempts
	var rateLimit *float64

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}

		var raw configWithExplicitZero
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
		if raw.Scanner.RetryAttempts != nil {
			retryAttempts = *raw.Scanner.RetryAttempts
		}
		rateLimit = raw.Scanner.RateLimit
	}

	applyDefaults(cfg)
	cfg.Scanner.RetryAttempts = retryAttempts
	if rateLimit != nil {
		cfg.Scanner.RateLimit = *rateLimit
	}
	applyEnv(cfg, os.LookupEnv)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Default returns a validated configuration built from defaults only
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg.Scanner.RetryAttempts = DefaultRetryAttempts
	return cfg
}

// applyDefaults sets default values for unset fields
func applyDefaults(cfg *Config) {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}

	sc := &cfg.Scanner
	if sc.APIURL == "" {
		sc.APIURL = DefaultAPIURL
	}
	if sc.APIKeys == nil {
		sc.APIKeys = make(map[string]string)
	}
	if sc.RateLimit == 0 {
		sc.RateLimit = DefaultRateLimit
	}
	if sc.RequestTimeout == 0 {
		sc.RequestTimeout = DefaultRequestTimeout
	}
	if sc.RetryBackoff == 0 {
		sc.RetryBackoff = DefaultRetryBackoff
	}
	if sc.UserAgent == "" {
		sc.UserAgent = DefaultUserAgent
	}

	// Caching is on unless the file says otherwise
	if cfg.Cache == nil {
		cfg.Cache = &CacheConfig{Enabled: true}
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = DefaultCacheTTL
	}
	if cfg.Cache.Size == 0 {
		cfg.Cache.Size = DefaultCacheSize
	}

	if cfg.Tokens.PLEX.Address == "" {
		cfg.Tokens.PLEX.Address = DefaultPLEXAddress
	}
	if cfg.Tokens.PLEX.Decimals == 0 {
		cfg.Tokens.PLEX.Decimals = DefaultPLEXDecimals
	}
	if cfg.Tokens.USDT.Address == "" {
		cfg.Tokens.USDT.Address = DefaultUSDTAddress
	}
	if cfg.Tokens.USDT.Decimals == 0 {
		cfg.Tokens.USDT.Decimals = DefaultUSDTDecimals
	}

	if cfg.Addresses.System == "" {
		cfg.Addresses.System = DefaultSystemAddress
	}
	if cfg.Addresses.Access == "" {
		cfg.Addresses.Access = DefaultAccessAddress
	}

	if cfg.Feed != nil {
		if cfg.Feed.Schedule == "" {
			cfg.Feed.Schedule = DefaultFeedSchedule
		}
		if cfg.Feed.MaxAddressesPerClient == 0 {
			cfg.Feed.MaxAddressesPerClient = DefaultMaxAddressesPerClient
		}
	}
}

// applyEnv overlays environment variables on the loaded configuration
func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvAPIURL); ok && v != "" {
		cfg.Scanner.APIURL = v
	}

	for _, category := range []string{CategoryAuthorization, CategoryDeposits, CategorySubscription} {
		if v, ok := lookup(EnvKeyPrefix + category); ok && v != "" {
			cfg.Scanner.APIKeys[category] = v
		}
	}
	if cfg.Scanner.APIKeys[CategoryAuthorization] == "" {
		if v, ok := lookup(EnvKeyFallback); ok && v != "" {
			cfg.Scanner.APIKeys[CategoryAuthorization] = v
		}
	}

	if v, ok := lookup(EnvSystemAddr); ok && v != "" {
		cfg.Addresses.System = v
	}
	if v, ok := lookup(EnvAccessAddr); ok && v != "" {
		cfg.Addresses.Access = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// ValidateLogLevel reports whether level is one of the accepted log levels
func ValidateLogLevel(level string) error {
	if !validLogLevels[level] {
		return fmt.Errorf("logLevel must be one of: debug, info, warn, error")
	}
	return nil
}

// validate checks the configuration for errors
func validate(cfg *Config) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}

	if err := ValidateLogLevel(cfg.LogLevel); err != nil {
		return err
	}

	if !strings.HasPrefix(cfg.Scanner.APIURL, "http://") && !strings.HasPrefix(cfg.Scanner.APIURL, "https://") {
		return fmt.Errorf("scanner.apiUrl must be an http(s) URL")
	}

	if cfg.Scanner.RateLimit < 0 {
		return fmt.Errorf("scanner.rateLimit must be non-negative")
	}

	if cfg.Scanner.RetryAttempts < 0 {
		return fmt.Errorf("scanner.retryAttempts must be non-negative")
	}

	if cfg.Scanner.RequestTimeout <= 0 {
		return fmt.Errorf("scanner.requestTimeout must be positive")
	}

	if cfg.Scanner.RetryBackoff < 0 {
		return fmt.Errorf("scanner.retryBackoff must be non-negative")
	}

	if cfg.Cache != nil && cfg.Cache.Enabled {
		if cfg.Cache.TTL <= 0 {
			return fmt.Errorf("cache.ttl must be positive when cache is enabled")
		}
		if cfg.Cache.Size <= 0 {
			return fmt.Errorf("cache.size must be positive when cache is enabled")
		}
	}

	tokens := map[string]TokenConfig{"plex": cfg.Tokens.PLEX, "usdt": cfg.Tokens.USDT}
	for name, token := range tokens {
		if !common.IsHexAddress(token.Address) {
			return fmt.Errorf("tokens.%s.address '%s' is not a valid address", name, token.Address)
		}
		if token.Decimals < 0 || token.Decimals > 36 {
			return fmt.Errorf("tokens.%s.decimals must be between 0 and 36", name)
		}
	}

	if !common.IsHexAddress(cfg.Addresses.System) {
		return fmt.Errorf("addresses.system '%s' is not a valid address", cfg.Addresses.System)
	}
	if !common.IsHexAddress(cfg.Addresses.Access) {
		return fmt.Errorf("addresses.access '%s' is not a valid address", cfg.Addresses.Access)
	}

	if cfg.Feed != nil && cfg.Feed.Enabled {
		if _, err := cron.ParseStandard(cfg.Feed.Schedule); err != nil {
			return fmt.Errorf("feed.schedule: %w", err)
		}
		if cfg.Feed.MaxAddressesPerClient < 0 {
			return fmt.Errorf("feed.maxAddressesPerClient must be non-negative")
		}
	}

	return nil
}
