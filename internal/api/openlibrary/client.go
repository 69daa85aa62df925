package openlibrary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/time/rate"

	"github.com/drallgood/notion-book-sync/internal/cache"
	"github.com/drallgood/notion-book-sync/internal/logger"
)

const (
	DefaultBaseURL   = "https://openlibrary.org"
	DefaultCoversURL = "https://covers.openlibrary.org"
	DefaultUserAgent = "notion-book-sync (+https://github.com/drallgood/notion-book-sync)"
)

// ErrNotFound is returned when Open Library has no edition for an ISBN
var ErrNotFound = errors.New("edition not found")

// StatusError is a non-success response that was not a plain miss
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("open library returned status %d for %s", e.StatusCode, e.URL)
}

// Config configures a Client. Zero values fall back to sensible defaults.
type Config struct {
	BaseURL           string
	CoversURL         string
	UserAgent         string
	RequestsPerSecond float64
	Timeout           time.Duration
	RetryAttempts     uint
	RetryDelay        time.Duration
	// CacheTTL keeps looked up editions in memory. Zero disables the cache.
	CacheTTL time.Duration
}

// Client talks to the Open Library REST API
type Client struct {
	baseURL    string
	coversURL  string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
	attempts   uint
	delay      time.Duration
	editions   cache.Cache[string, *Edition]
	log        *logger.Logger
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for requests
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates an Open Library client
func NewClient(cfg Config, log *logger.Logger, opts ...Option) *Client {
	if log == nil {
		log = logger.Get()
	}
	log = log.Component("openlibrary")

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.CoversURL == "" {
		cfg.CoversURL = DefaultCoversURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.RetryAttempts == 0 {
		cfg.RetryAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}

	c := &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		coversURL: strings.TrimRight(cfg.CoversURL, "/"),
		userAgent: cfg.UserAgent,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: log.Transport(nil),
		},
		limiter:  rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		attempts: cfg.RetryAttempts,
		delay:    cfg.RetryDelay,
		log:      log,
	}
	if cfg.CacheTTL > 0 {
		c.editions = cache.WithTTL(cache.NewMemoryCache[string, *Edition]("openlibrary_editions", log), cfg.CacheTTL)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LookupISBN fetches the edition for an ISBN. It returns ErrNotFound when
// Open Library does not know the ISBN.
func (c *Client) LookupISBN(ctx context.Context, isbn string) (*Edition, error) {
	isbn = strings.TrimSpace(isbn)
	if isbn == "" {
		return nil, fmt.Errorf("%w: empty ISBN", ErrNotFound)
	}
	if c.editions != nil {
		if ed, ok := c.editions.Get(isbn); ok {
			return ed, nil
		}
	}

	endpoint := fmt.Sprintf("%s/isbn/%s.json", c.baseURL, url.PathEscape(isbn))

	var edition Edition
	err := retry.Do(
		func() error {
			return c.getJSON(ctx, endpoint, &edition)
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.log.Warn("Retrying Open Library lookup", map[string]interface{}{
				"isbn":    isbn,
				"attempt": n + 1,
				"error":   err.Error(),
			})
		}),
	)
	if err != nil {
		return nil, err
	}

	c.log.Debug("Fetched edition", map[string]interface{}{
		"isbn":  isbn,
		"key":   edition.Key,
		"title": edition.Title,
	})
	if c.editions != nil {
		c.editions.Set(isbn, &edition, 0)
	}
	return &edition, nil
}

// CoverURL returns the large cover image URL for an ISBN
func (c *Client) CoverURL(isbn string) string {
	return fmt.Sprintf("%s/b/isbn/%s-L.jpg", c.coversURL, url.PathEscape(strings.TrimSpace(isbn)))
}

// CoverExists probes the cover endpoint with default=false. Open Library
// answers 200 when it has an image for the ISBN and 404 otherwise.
func (c *Client) CoverExists(ctx context.Context, isbn string) (bool, error) {
	endpoint := c.CoverURL(isbn) + "?default=false"

	var exists bool
	err := retry.Do(
		func() error {
			if err := c.limiter.Wait(ctx); err != nil {
				return retry.Unrecoverable(err)
			}
			resp, err := c.do(ctx, endpoint)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			_, _ = io.Copy(io.Discard, resp.Body)

			if retryable(resp.StatusCode) {
				return &StatusError{StatusCode: resp.StatusCode, URL: endpoint}
			}
			exists = resp.StatusCode == http.StatusOK
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return false, fmt.Errorf("cover probe for ISBN %s failed: %w", isbn, err)
	}
	return exists, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, target interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return retry.Unrecoverable(err)
	}

	resp, err := c.do(ctx, endpoint)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case retryable(resp.StatusCode):
		return &StatusError{StatusCode: resp.StatusCode, URL: endpoint}
	default:
		return retry.Unrecoverable(fmt.Errorf("%w: status %d", ErrNotFound, resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return retry.Unrecoverable(fmt.Errorf("failed to decode %s: %w", endpoint, err))
	}
	return nil
}

func (c *Client) do(ctx context.Context, endpoint string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, retry.Unrecoverable(err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	return c.httpClient.Do(req)
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}
