package scanner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"scangofer/internal/cache"
	"scangofer/internal/config"
)

const maxResponseSize = 32 * 1024 * 1024

// Token identifies a BEP-20 token and its decimal places
type Token struct {
	Address  common.Address
	Decimals int
}

// Tokens holds the tokens the client knows the decimals of
type Tokens struct {
	PLEX Token
	USDT Token
}

// Config for creating a new Client
type Config struct {
	BaseURL           string
	Credentials       Credentials
	RequestsPerSecond float64
	MaxRetries        int
	Timeout           time.Duration
	RetryBackoff      time.Duration
	UserAgent         string
	Tokens            Tokens
	Cache             cache.Cache // nil means a fresh MemoryCache with default size and TTL
	CachePolicy       *cache.Policy
	HTTPClient        *http.Client
	Metrics           *Metrics
	Logger            zerolog.Logger
}

// Client is a rate-limited, cached, retrying explorer API client. It is safe for
// concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *Limiter
	cache      cache.Cache
	policy     *cache.Policy
	stats      *Stats
	metrics    *Metrics
	maxRetries int
	timeout    time.Duration
	backoff    time.Duration
	userAgent  string
	tokens     Tokens
	logger     zerolog.Logger

	mu          sync.RWMutex
	credentials Credentials
	initialized bool
}

// New creates a new Client. Missing credentials are not an error here; requests fail
// with ErrNotInitialized until a primary key is supplied.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = config.DefaultAPIURL
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Duration(config.DefaultRequestTimeout) * time.Millisecond
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = time.Duration(config.DefaultRetryBackoff) * time.Millisecond
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = config.DefaultUserAgent
	}
	if cfg.Tokens == (Tokens{}) {
		cfg.Tokens = defaultTokens()
	}

	respCache := cfg.Cache
	if respCache == nil {
		mc, err := cache.NewMemoryCache(config.DefaultCacheSize, time.Duration(config.DefaultCacheTTL)*time.Second)
		if err != nil {
			return nil, fmt.Errorf("failed to create cache: %w", err)
		}
		respCache = mc
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		transport := &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     90 * time.Second,
		}
		httpClient = &http.Client{Transport: transport}
	}

	creds := cfg.Credentials
	if creds == nil {
		creds = Credentials{}
	}

	return &Client{
		baseURL:     cfg.BaseURL,
		httpClient:  httpClient,
		limiter:     NewLimiter(cfg.RequestsPerSecond),
		cache:       respCache,
		policy:      cfg.CachePolicy,
		stats:       &Stats{},
		metrics:     cfg.Metrics,
		maxRetries:  cfg.MaxRetries,
		timeout:     cfg.Timeout,
		backoff:     cfg.RetryBackoff,
		userAgent:   cfg.UserAgent,
		tokens:      cfg.Tokens,
		logger:      cfg.Logger.With().Str("component", "scanner").Logger(),
		credentials: creds.Clone(),
	}, nil
}

// NewFromConfig creates a Client from the application configuration
func NewFromConfig(cfg *config.Config, metrics *Metrics, logger zerolog.Logger) (*Client, error) {
	var respCache cache.Cache
	if cfg.IsCacheEnabled() {
		mc, err := cache.NewMemoryCache(cfg.Cache.Size, cfg.Cache.GetTTLDuration())
		if err != nil {
			return nil, fmt.Errorf("failed to create cache: %w", err)
		}
		respCache = mc
		logger.Info().
			Int("size", cfg.Cache.Size).
			Int("ttl", cfg.Cache.TTL).
			Msg("cache enabled")
	} else {
		respCache = cache.NewNoopCache()
		logger.Info().Msg("cache disabled")
	}

	var policy *cache.Policy
	if cfg.Cache != nil && len(cfg.Cache.DisabledActions) > 0 {
		policy = cache.NewPolicy(cfg.Cache.DisabledActions)
		logger.Info().
			Strs("disabledActions", cfg.Cache.DisabledActions).
			Msg("cache disabled for specific actions")
	}

	return New(Config{
		BaseURL:           cfg.Scanner.APIURL,
		Credentials:       NewCredentials(cfg.Scanner.APIKeys),
		RequestsPerSecond: cfg.Scanner.RateLimit,
		MaxRetries:        cfg.Scanner.RetryAttempts,
		Timeout:           cfg.Scanner.GetRequestTimeoutDuration(),
		RetryBackoff:      cfg.Scanner.GetRetryBackoffDuration(),
		UserAgent:         cfg.Scanner.UserAgent,
		Tokens: Tokens{
			PLEX: Token{Address: common.HexToAddress(cfg.Tokens.PLEX.Address), Decimals: cfg.Tokens.PLEX.Decimals},
			USDT: Token{Address: common.HexToAddress(cfg.Tokens.USDT.Address), Decimals: cfg.Tokens.USDT.Decimals},
		},
		Cache:       respCache,
		CachePolicy: policy,
		Metrics:     metrics,
		Logger:      logger,
	})
}

func defaultTokens() Tokens {
	return Tokens{
		PLEX: Token{Address: common.HexToAddress(config.DefaultPLEXAddress), Decimals: config.DefaultPLEXDecimals},
		USDT: Token{Address: common.HexToAddress(config.DefaultUSDTAddress), Decimals: config.DefaultUSDTDecimals},
	}
}

// Init performs the one-time setup. It fails while no primary credential is present and
// may be called again after SetCredentials.
func (c *Client) Init() error {
	c.mu.RLock()
	done := c.initialized
	c.mu.RUnlock()
	if done {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.initialized {
		return nil
	}
	if !c.credentials.Valid() {
		return fmt.Errorf("%w: no %s API key configured", ErrNotInitialized, PrimaryCategory)
	}
	c.initialized = true
	c.logger.Debug().Int("credentials", len(c.credentials)).Msg("client initialized")
	return nil
}

// SetCredentials replaces the credential table. The next request re-runs setup.
func (c *Client) SetCredentials(creds Credentials) {
	c.mu.Lock()
	c.credentials = creds.Clone()
	c.initialized = false
	c.mu.Unlock()
}

func (c *Client) credentialFor(category Category) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.credentials.Resolve(category)
}

// Tokens returns the configured tokens
func (c *Client) Tokens() Tokens {
	return c.tokens
}

// Stats returns a snapshot of the call counters
func (c *Client) Stats() StatsSnapshot {
	snap := c.stats.Snapshot()
	snap.CacheSize = c.cache.Len()
	return snap
}

// ResetStats zeroes the call counters
func (c *Client) ResetStats() {
	c.stats.Reset()
}

// ClearCache drops every cached response
func (c *Client) ClearCache() {
	c.cache.Clear()
	c.logger.Info().Msg("cache cleared")
}

// Close releases the cache
func (c *Client) Close() {
	c.cache.Close()
}

// Request sends a categorized request through the limiter, cache and retry policy.
// A nil category means the primary category.
func (c *Client) Request(ctx context.Context, params *Params, category Category) (*Response, error) {
	if err := c.Init(); err != nil {
		return nil, err
	}
	if category == "" {
		category = PrimaryCategory
	}
	if params == nil {
		params = NewParams()
	}

	apiKey, _ := c.credentialFor(category)
	reqURL := c.buildURL(params, apiKey)
	module, _ := params.Get("module")
	action, _ := params.Get("action")
	cacheable := c.policy.IsCacheable(module, action)

	logger := c.logger.With().
		Str("module", module).
		Str("action", action).
		Str("category", string(category)).
		Logger()

	if cacheable {
		if data, found := c.cache.Get(reqURL); found {
			if resp, err := ParseResponse(data); err == nil {
				c.stats.cacheHits.Add(1)
				c.metrics.observeCacheHit(category, action)
				logger.Debug().Msg("cache hit")
				return resp, nil
			}
		}
	}

	for attempt := 0; ; attempt++ {
		resp, body, err := c.attempt(ctx, reqURL, category, action)
		if err == nil {
			c.stats.successes.Add(1)
			if cacheable {
				c.cache.Set(reqURL, body)
			}
			logger.Debug().Int("attempt", attempt+1).Msg("request succeeded")
			return resp, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		if !IsRetryable(err) || errors.Is(err, errLimiterDeadline) || attempt >= c.maxRetries {
			logger.Error().
				Err(err).
				Int("attempts", attempt+1).
				Msg("request failed")
			return nil, err
		}

		// The provider-side rate limit is retried at once; the limiter still spaces it.
		delay := c.backoff * time.Duration(attempt+1)
		if errors.Is(err, ErrRateLimited) {
			delay = 0
		}

		logger.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Int("maxRetries", c.maxRetries).
			Dur("delay", delay).
			Msg("request failed, retrying")

		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			}
		}
	}
}

// attempt performs a single network round trip and updates the counters
func (c *Client) attempt(ctx context.Context, reqURL string, category Category, action string) (*Response, []byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, ctxErr
		}
		// the next slot lies beyond the context deadline
		return nil, nil, fmt.Errorf("%w: %w", ErrTimeout, errLimiterDeadline)
	}

	c.stats.requests.Add(1)
	start := time.Now()

	body, err := c.fetch(ctx, reqURL)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		c.stats.failures.Add(1)
		c.metrics.observeRequest(category, action, transportOutcome(err), elapsed)
		return nil, nil, err
	}

	resp, err := ParseResponse(body)
	if err != nil {
		c.stats.failures.Add(1)
		c.metrics.observeRequest(category, action, "failure", elapsed)
		return nil, nil, err
	}

	if perr := resp.Err(); perr != nil {
		c.stats.failures.Add(1)
		if errors.Is(perr, ErrRateLimited) {
			c.stats.rateLimitHits.Add(1)
			c.metrics.observeRateLimit(category)
		}
		c.metrics.observeRequest(category, action, "failure", elapsed)
		return nil, nil, perr
	}

	outcome := "success"
	if resp.IsEmptyResult() {
		outcome = "empty"
	}
	c.metrics.observeRequest(category, action, outcome, elapsed)
	return resp, body, nil
}

// fetch issues the HTTP GET bounded by the per-attempt timeout
func (c *Client) fetch(ctx context.Context, reqURL string) ([]byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.transportError(ctx, attemptCtx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, c.transportError(ctx, attemptCtx, err)
	}
	return body, nil
}

func (c *Client) transportError(parent, attemptCtx context.Context, err error) error {
	if parentErr := parent.Err(); parentErr != nil {
		return parentErr
	}
	if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", ErrTimeout, c.timeout)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrNetwork, err)
}

func transportOutcome(err error) string {
	if errors.Is(err, ErrTimeout) {
		return "timeout"
	}
	if errors.Is(err, ErrNetwork) {
		return "network"
	}
	return "failure"
}

// buildURL appends params in insertion order, then the credential
func (c *Client) buildURL(params *Params, apiKey string) string {
	var sb strings.Builder
	sb.WriteString(c.baseURL)

	sep := "?"
	switch {
	case strings.HasSuffix(c.baseURL, "?"), strings.HasSuffix(c.baseURL, "&"):
		sep = ""
	case strings.Contains(c.baseURL, "?"):
		sep = "&"
	}

	if q := params.Encode(); q != "" {
		sb.WriteString(sep)
		sb.WriteString(q)
		sep = "&"
	}
	sb.WriteString(sep)
	sb.WriteString("apikey=")
	sb.WriteString(url.QueryEscape(apiKey))
	return sb.String()
}
