// Package client provides the reference-data HTTP client with request
// pacing, rate limit cooldowns, bounded transient retries, and error
// classification.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/akshay033333/stocks-API-extractor/pkg/cache"
	"github.com/akshay033333/stocks-API-extractor/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for fetch operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tickers_requests_total",
		Help: "Total page requests by status",
	}, []string{"status"})

	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tickers_request_duration_seconds",
		Help:    "Page request duration in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tickers_errors_total",
		Help: "Total fetch errors by class",
	}, []string{"class"})
)

// Page is one fetched page of records plus the continuation reference for
// the next page. An empty NextURL signals the end of data.
type Page struct {
	Results []Record
	NextURL string
}

// envelope is the wire shape of a listing response.
type envelope struct {
	Results   []Record `json:"results"`
	Status    string   `json:"status"`
	RequestID string   `json:"request_id"`
	Count     int      `json:"count"`
	NextURL   string   `json:"next_url"`
}

// Config holds the client configuration.
type Config struct {
	// APIKey authenticates requests via the apiKey query parameter.
	// It is treated as an opaque secret and never logged.
	APIKey string

	// BaseURL is the API origin. Continuation URLs must share its host.
	BaseURL string

	// UserAgent header sent with every request.
	UserAgent string

	// RequestTimeout bounds a single HTTP request so a hang classifies as a
	// network failure instead of blocking forever.
	RequestTimeout time.Duration

	// MinRequestInterval is the fixed pacing delay between requests.
	MinRequestInterval time.Duration

	// Retry is the retry and cooldown policy.
	Retry RetryConfig

	// Cache is the optional page cache. Nil disables caching.
	Cache *cache.Manager

	// CacheTTL is how long fetched pages stay cached.
	CacheTTL time.Duration

	// OnRateLimitWait, when set, is invoked with the cooldown duration each
	// time a rate limit wait begins.
	OnRateLimitWait func(wait time.Duration)
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:             apiKey,
		BaseURL:            "https://api.polygon.io",
		UserAgent:          "stocks-API-extractor/1.0",
		RequestTimeout:     30 * time.Second,
		MinRequestInterval: 500 * time.Millisecond,
		Retry:              DefaultRetryConfig(),
		CacheTTL:           1 * time.Hour,
	}
}

// Client fetches pages of the reference listing.
type Client struct {
	httpClient *http.Client
	config     Config
	baseHost   string
	pacer      *ratelimit.Pacer
	cache      *cache.Manager
	logger     zerolog.Logger
	sleep      sleepFunc
}

// New creates a new reference-data client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultRetryConfig()
	}

	logger := log.With().Str("component", "client").Logger()

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		config:   cfg,
		baseHost: base.Host,
		pacer:    ratelimit.NewPacer(cfg.MinRequestInterval, logger),
		cache:    cfg.Cache,
		logger:   logger,
		sleep:    sleepContext,
	}, nil
}

// FetchPage fetches one page. pageURL is either the initial listing URL or a
// server-supplied continuation URL; neither carries the API key, the client
// appends it here. Rate limit cooldowns and transient retries are fully
// absorbed; errors that surface are fatal for the page.
func (c *Client) FetchPage(ctx context.Context, pageURL string) (*Page, error) {
	reqURL, err := c.authorizeURL(pageURL)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassParse)).Inc()
		return nil, err
	}

	cacheKey := cache.Key(reqURL)
	if c.cache != nil {
		if payload, err := c.cache.Get(ctx, cacheKey); err == nil {
			page, perr := parseEnvelope(payload)
			if perr == nil {
				c.logger.Debug().Msg("Page served from cache")
				return page, nil
			}
			// Corrupt entry, drop it and refetch.
			_ = c.cache.Delete(ctx, cacheKey)
		}
	}

	var page *Page
	err = retryWithPolicy(ctx, c.config.Retry, c.logger, c.sleep, c.config.OnRateLimitWait, func() error {
		if err := c.pacer.Wait(ctx); err != nil {
			return err
		}

		p, payload, ferr := c.doFetch(ctx, reqURL)
		if ferr != nil {
			errorsTotal.WithLabelValues(string(Classify(ferr))).Inc()
			return ferr
		}
		page = p

		if c.cache != nil {
			if cerr := c.cache.Set(ctx, cacheKey, payload, c.config.CacheTTL); cerr != nil {
				c.logger.Warn().Err(cerr).Msg("Failed to cache page")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

// doFetch performs a single GET and parses the response envelope.
func (c *Client) doFetch(ctx context.Context, reqURL string) (*Page, []byte, error) {
	start := time.Now()
	defer func() {
		requestDuration.Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		requestsTotal.WithLabelValues("network_error").Inc()
		return nil, nil, &APIError{
			ErrorClass: ErrorClassNetwork,
			Message:    "request failed",
			Err:        err,
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		requestsTotal.WithLabelValues("network_error").Inc()
		return nil, nil, &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassNetwork,
			Message:    "read response body",
			Err:        err,
		}
	}

	requestsTotal.WithLabelValues(fmt.Sprintf("%d", resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusOK {
		errorClass := classifyStatus(resp.StatusCode)
		c.logger.Warn().
			Int("status", resp.StatusCode).
			Str("error_class", string(errorClass)).
			Msg("Request returned error status")
		return nil, nil, &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: errorClass,
			Message:    resp.Status,
		}
	}

	page, err := parseEnvelope(body)
	if err != nil {
		return nil, nil, err
	}

	if page.NextURL != "" {
		if err := c.checkContinuation(page.NextURL); err != nil {
			return nil, nil, err
		}
	}

	return page, body, nil
}

// authorizeURL validates the page URL against the configured origin and
// appends the API key when the server did not embed one.
func (c *Client) authorizeURL(pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", &APIError{
			ErrorClass: ErrorClassParse,
			Message:    "invalid page url",
			Err:        err,
		}
	}
	if u.Host != c.baseHost {
		return "", &APIError{
			ErrorClass: ErrorClassParse,
			Message:    fmt.Sprintf("page url host %q does not match endpoint host %q", u.Host, c.baseHost),
		}
	}

	q := u.Query()
	if q.Get("apiKey") == "" {
		q.Set("apiKey", c.config.APIKey)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// checkContinuation rejects continuation references pointing at a different
// endpoint than the one being traversed.
func (c *Client) checkContinuation(nextURL string) error {
	u, err := url.Parse(nextURL)
	if err != nil {
		return &APIError{
			ErrorClass: ErrorClassParse,
			Message:    "invalid continuation url",
			Err:        err,
		}
	}
	if !u.IsAbs() || u.Host != c.baseHost {
		return &APIError{
			ErrorClass: ErrorClassParse,
			Message:    fmt.Sprintf("continuation url %q does not belong to endpoint host %q", u.Redacted(), c.baseHost),
		}
	}
	return nil
}

// parseEnvelope decodes a listing response body into a Page.
func parseEnvelope(body []byte) (*Page, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &APIError{
			ErrorClass: ErrorClassParse,
			Message:    "malformed response envelope",
			Err:        err,
		}
	}
	return &Page{
		Results: env.Results,
		NextURL: env.NextURL,
	}, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(httpClient *http.Client) {
	c.httpClient = httpClient
}
