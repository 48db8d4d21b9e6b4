// Package client provides the HTTP client used to talk to media servers
// (Jellyfin, Seerr) with auth headers, retries, response caching and
// server backpressure handling.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/jellyfin-pager/pkg/cache"
	"github.com/Sternrassler/jellyfin-pager/pkg/ratelimit"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultTokenHeader is the header Jellyfin reads API keys from.
const DefaultTokenHeader = "X-Emby-Token"

// maxErrorBody bounds how much of an error response ends up in APIError.
const maxErrorBody = 512

// Client is an HTTP client bound to one media server.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	tracker    *ratelimit.Tracker
	cache      *cache.Manager
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the server, e.g. "http://jellyfin.local:8096"
	BaseURL string

	// Token is sent in TokenHeader on every request (empty disables auth)
	Token string

	// TokenHeader defaults to X-Emby-Token; Seerr uses X-Api-Key
	TokenHeader string

	// UserAgent header
	UserAgent string

	// Namespace prefixes cache and backpressure keys in Redis
	Namespace string

	// UserID scopes cached responses to one server user
	UserID string

	// Redis enables the response cache and backpressure tracking (optional)
	Redis *redis.Client

	// ResponseCacheTTL applies to responses without freshness headers
	ResponseCacheTTL time.Duration

	// Timeout per HTTP attempt
	Timeout time.Duration

	// Retry
	MaxRetries     int           // attempts including the first, 0 keeps per-class defaults
	InitialBackoff time.Duration // 0 keeps per-class defaults
}

// DefaultConfig returns a safe default configuration for a Jellyfin server.
func DefaultConfig(baseURL, token string) Config {
	return Config{
		BaseURL:          baseURL,
		Token:            token,
		TokenHeader:      DefaultTokenHeader,
		UserAgent:        "jellyfin-pager/1.0",
		Namespace:        "jf",
		ResponseCacheTTL: 30 * time.Second,
		Timeout:          30 * time.Second,
		MaxRetries:       3,
	}
}

// New creates a new media server client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}

	baseURL, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if baseURL.Scheme != "http" && baseURL.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http or https (got %q)", cfg.BaseURL)
	}

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("max_retries must be >= 0 (got %d)", cfg.MaxRetries)
	}

	if cfg.InitialBackoff < 0 {
		return nil, fmt.Errorf("initial_backoff must be >= 0 (got %s)", cfg.InitialBackoff)
	}

	if cfg.TokenHeader == "" {
		cfg.TokenHeader = DefaultTokenHeader
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.ResponseCacheTTL <= 0 {
		cfg.ResponseCacheTTL = cache.DefaultTTL
	}

	logger := log.With().
		Str("component", "http-client").
		Str("namespace", cfg.Namespace).
		Logger()

	c := &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: baseURL,
		config:  cfg,
		logger:  logger,
	}

	if cfg.Redis != nil {
		c.tracker = ratelimit.NewTracker(cfg.Redis, cfg.Namespace, logger)
		c.cache = cache.NewManager(cfg.Redis)
	}

	return c, nil
}

// RequestOption customizes a single request.
type RequestOption func(*http.Request)

// WithNoCache bypasses the response cache lookup. The fresh response is
// still stored.
func WithNoCache() RequestOption {
	return func(req *http.Request) {
		req.Header.Set("Cache-Control", "no-cache")
	}
}

// WithHeader sets an extra request header.
func WithHeader(key, value string) RequestOption {
	return func(req *http.Request) {
		req.Header.Set(key, value)
	}
}

// Do performs an HTTP request with backpressure gating, caching and retries.
// Non-retriable 4xx responses are returned to the caller as-is.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	endpoint := req.URL.Path

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	// Step 1: Server backpressure
	if c.tracker != nil {
		allowed, err := c.tracker.ShouldAllowRequest(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			// Redis trouble must not take the client down with it
			c.logger.Warn().Err(err).Msg("Backpressure check failed")
		} else if !allowed {
			c.logger.Warn().
				Str("endpoint", endpoint).
				Msg("Request blocked by server backpressure")
			requestsTotal.WithLabelValues(endpoint, "backpressure").Inc()
			return nil, ErrBackpressure
		}
	}

	// Step 2: Response cache
	cacheable := c.cache != nil && req.Method == http.MethodGet
	cacheKey := cache.CacheKey{
		Namespace:   c.config.Namespace,
		Endpoint:    endpoint,
		QueryParams: req.URL.Query(),
		UserID:      c.config.UserID,
	}

	var cachedEntry *cache.CacheEntry
	if cacheable && !strings.Contains(req.Header.Get("Cache-Control"), "no-cache") {
		entry, err := c.cache.Get(ctx, cacheKey)
		if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache get error")
		}
		cachedEntry = entry
	}

	// Step 3: Fresh entries without validators are served directly;
	// entries with validators are revalidated.
	if cachedEntry != nil {
		if !cache.ShouldMakeConditionalRequest(cachedEntry) {
			requestsTotal.WithLabelValues(endpoint, "cache_hit").Inc()
			c.logger.Debug().
				Str("endpoint", endpoint).
				Dur("age", cachedEntry.Age()).
				Msg("Serving cached response")
			return cache.EntryToResponse(cachedEntry, req), nil
		}
		cache.AddConditionalHeaders(req, cachedEntry)
		c.logger.Debug().
			Str("endpoint", endpoint).
			Str("etag", cachedEntry.ETag).
			Msg("Making conditional request")
	}

	// Step 4: Auth and identification
	if c.config.Token != "" {
		req.Header.Set(c.config.TokenHeader, c.config.Token)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	// Step 5: Execute with retry
	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("method", req.Method).
		Msg("Executing request")

	var resp *http.Response
	var errClass ErrorClass

	retryErr := retryWithConfig(ctx, c.retryConfig, func() error {
		var reqErr error
		resp, reqErr = c.httpClient.Do(req)
		if reqErr != nil {
			resp = nil
			errClass = ErrorClassNetwork
			if ctx.Err() != nil {
				// caller gave up, nothing to retry
				errClass = ErrorClassClient
			}
			errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			c.logger.Error().Err(reqErr).Str("endpoint", endpoint).Msg("HTTP request failed")
			return reqErr
		}

		if c.tracker != nil {
			if err := c.tracker.UpdateFromResponse(ctx, resp.StatusCode, resp.Header); err != nil {
				c.logger.Warn().Err(err).Msg("Failed to record backpressure state")
			}
		}

		requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

		if resp.StatusCode < 400 {
			return nil
		}

		errClass = classifyStatus(resp.StatusCode)
		errorsTotal.WithLabelValues(string(errClass)).Inc()

		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("error_class", string(errClass)).
			Msg("Request error")

		if !shouldRetry(errClass) {
			// let the caller read the body
			return nil
		}

		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: errClass,
			Message:    readErrorBody(resp),
		}
		resp = nil
		return apiErr
	}, func(err error) ErrorClass {
		return errClass
	})

	if retryErr != nil {
		return nil, retryErr
	}

	// Step 6: 304 Not Modified
	if resp.StatusCode == http.StatusNotModified && cachedEntry != nil {
		c.logger.Debug().Str("endpoint", endpoint).Msg("304 Not Modified - using cache")

		newExpires := time.Now().Add(c.config.ResponseCacheTTL)
		if expiresStr := resp.Header.Get("Expires"); expiresStr != "" {
			if t, err := http.ParseTime(expiresStr); err == nil {
				newExpires = t
			}
		}
		if err := c.cache.Revalidate(ctx, cacheKey, cachedEntry, newExpires); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to revalidate cache entry")
		}

		resp.Body.Close()
		return cache.EntryToResponse(cachedEntry, req), nil
	}

	// Step 7: Store successful responses
	if cacheable && resp.StatusCode == http.StatusOK {
		entry, err := cache.ResponseToEntry(resp, c.config.ResponseCacheTTL)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Failed to create cache entry")
		} else if entry.TTL() > 0 {
			if err := c.cache.Set(ctx, cacheKey, entry); err != nil {
				c.logger.Warn().Err(err).Msg("Failed to cache response")
			} else {
				c.logger.Debug().
					Str("endpoint", endpoint).
					Dur("ttl", entry.TTL()).
					Msg("Cached response")
			}
		}
	}

	return resp, nil
}

// retryConfig applies the client's overrides on top of the per-class defaults.
func (c *Client) retryConfig(class ErrorClass) RetryConfig {
	rc := RetryConfigForErrorClass(class)
	if c.config.MaxRetries > 0 {
		rc.MaxAttempts = c.config.MaxRetries
	}
	if c.config.InitialBackoff > 0 {
		rc.InitialBackoff = c.config.InitialBackoff
		if rc.MaxBackoff < rc.InitialBackoff {
			rc.MaxBackoff = rc.InitialBackoff
		}
	}
	return rc
}

// URL resolves path and query against the base URL.
func (c *Client) URL(path string, query url.Values) string {
	u := c.baseURL.JoinPath(path)
	u.RawQuery = query.Encode()
	return u.String()
}

// Get performs a GET request to a server path.
func (c *Client) Get(ctx context.Context, path string, query url.Values, opts ...RequestOption) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(path, query), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for _, opt := range opts {
		opt(req)
	}

	return c.Do(req)
}

// GetJSON performs a GET request and decodes the JSON body into dst.
// Non-2xx responses are returned as *APIError.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, dst any, opts ...RequestOption) error {
	resp, err := c.Get(ctx, path, query, opts...)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: classifyStatus(resp.StatusCode),
			Message:    readErrorBody(resp),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// Close releases idle connections. The Redis client is owned by the caller.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// InvalidateCache drops every cached response of this client's namespace
// and user. Without Redis it does nothing.
func (c *Client) InvalidateCache(ctx context.Context) (int, error) {
	if c.cache == nil {
		return 0, nil
	}

	n, err := c.cache.Invalidate(ctx, cache.Scope{Namespace: c.config.Namespace, UserID: c.config.UserID})
	if err != nil {
		return 0, err
	}
	c.logger.Debug().Int("entries", n).Msg("Response cache invalidated")
	return n, nil
}

// GetCache returns the cache manager, nil without Redis.
func (c *Client) GetCache() *cache.Manager {
	return c.cache
}

// readErrorBody drains and closes resp.Body and returns a short message.
func readErrorBody(resp *http.Response) string {
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = resp.Status
	}
	return msg
}
