package config

import (
	"net"
	"strconv"
	"time"
)

// Config represents the main configuration structure
type Config struct {
	Host      string          `json:"host"`
	Port      int             `json:"port"`
	LogLevel  string          `json:"logLevel"`
	Scanner   ScannerConfig   `json:"scanner"`
	Cache     *CacheConfig    `json:"cache,omitempty"`
	Tokens    TokensConfig    `json:"tokens"`
	Addresses AddressesConfig `json:"addresses"`
	Feed      *FeedConfig     `json:"feed,omitempty"`
	PlansFile string          `json:"plansFile"`
	CORS      []string        `json:"corsOrigins"`
}

// ScannerConfig describes the explorer API endpoint and the client policy around it
type ScannerConfig struct {
	APIURL         string            `json:"apiUrl"`
	APIKeys        map[string]string `json:"apiKeys"`        // category -> key
	RateLimit      float64           `json:"rateLimit"`      // requests per second, 0 disables limiting
	RetryAttempts  int               `json:"retryAttempts"`  // retries after the first attempt
	RequestTimeout int               `json:"requestTimeout"` // ms
	RetryBackoff   int               `json:"retryBackoff"`   // ms, multiplied by attempt number; 0 means default
	UserAgent      string            `json:"userAgent"`
}

// CacheConfig represents cache configuration
type CacheConfig struct {
	Enabled         bool     `json:"enabled"`
	TTL             int      `json:"ttl"`             // seconds
	Size            int      `json:"size"`            // number of entries
	DisabledActions []string `json:"disabledActions"` // "module.action" pairs never cached
}

// TokenConfig identifies a BEP-20 token
type TokenConfig struct {
	Address  string `json:"address"`
	Decimals int    `json:"decimals"`
}

// TokensConfig holds the two tokens the platform accepts
type TokensConfig struct {
	PLEX TokenConfig `json:"plex"`
	USDT TokenConfig `json:"usdt"`
}

// AddressesConfig holds platform wallet addresses
type AddressesConfig struct {
	System string `json:"system"` // receives authorization payments and deposits
	Access string `json:"access"` // receives access (subscription) payments
}

// FeedConfig configures the websocket balance feed
type FeedConfig struct {
	Enabled               bool   `json:"enabled"`
	Schedule              string `json:"schedule"`
	MaxAddressesPerClient int    `json:"maxAddressesPerClient"`
}

// Credential categories
const (
	CategoryAuthorization = "AUTHORIZATION"
	CategoryDeposits      = "DEPOSITS"
	CategorySubscription  = "SUBSCRIPTION"
)

// Default values
const (
	DefaultHost                  = "localhost"
	DefaultPort                  = 8080
	DefaultLogLevel              = "info"
	DefaultAPIURL                = "https://api.etherscan.io/v2/api?chainid=56"
	DefaultRateLimit             = 5.0
	DefaultRetryAttempts         = 3
	DefaultRequestTimeout        = 10000 // ms
	DefaultRetryBackoff          = 1000  // ms
	DefaultUserAgent             = "scangofer/1.0"
	DefaultCacheTTL              = 300 // seconds
	DefaultCacheSize             = 10000
	DefaultFeedSchedule          = "@every 30s"
	DefaultMaxAddressesPerClient = 10
	DefaultPLEXAddress           = "0xdf179b6cAdBC61FFD86A3D2e55f6d6e083ade6c1"
	DefaultPLEXDecimals          = 9
	DefaultUSDTAddress           = "0x55d398326f99059ff775485246999027b3197955"
	DefaultUSDTDecimals          = 18
	DefaultSystemAddress         = "0x399B22170B0AC7BB20bdC86772bfF478f201fFCD"
	DefaultAccessAddress         = "0x28915a33562b58500cf8b5b682C89A3396B8Af76"
)

// Environment variables overlaid on top of the file
const (
	EnvAPIURL     = "BSCSCAN_API_URL"
	EnvKeyPrefix  = "BSCSCAN_API_KEY_"
	EnvSystemAddr = "SYSTEM_ADDRESS"
	EnvAccessAddr = "ACCESS_ADDRESS"
	EnvLogLevel   = "SCANGOFER_LOG_LEVEL"
)

// GetRequestTimeoutDuration returns request timeout as time.Duration
func (c *ScannerConfig) GetRequestTimeoutDuration() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Millisecond
}

// GetRetryBackoffDuration returns the base retry delay as time.Duration
func (c *ScannerConfig) GetRetryBackoffDuration() time.Duration {
	return time.Duration(c.RetryBackoff) * time.Millisecond
}

// IsCacheEnabled returns true if cache is configured and enabled
func (c *Config) IsCacheEnabled() bool {
	return c.Cache != nil && c.Cache.Enabled
}

// IsFeedEnabled returns true if the balance feed is configured and enabled
func (c *Config) IsFeedEnabled() bool {
	return c.Feed != nil && c.Feed.Enabled
}

// GetTTLDuration returns cache TTL as time.Duration
func (c *CacheConfig) GetTTLDuration() time.Duration {
	return time.Duration(c.TTL) * time.Second
}

// Addr returns the listen address of the gateway
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
