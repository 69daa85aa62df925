package notion

import (
	"bytes"
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

	"github.com/drallgood/notion-book-sync/internal/logger"
	"github.com/drallgood/notion-book-sync/internal/util"
)

const (
	DefaultBaseURL = "https://api.notion.com/v1"
	// DefaultVersion is the first API version with multi-source databases
	DefaultVersion = "2025-09-03"
	// maxPageSize is the largest page Notion returns for a query
	maxPageSize = 100
)

// ErrNoDataSource is returned when a database has no data source to query
var ErrNoDataSource = errors.New("database has no data source")

// Config configures a Client
type Config struct {
	Token   string
	BaseURL string
	Version string
	// RateLimit is the number of requests per second
	RateLimit     float64
	Timeout       time.Duration
	RetryAttempts uint
	RetryDelay    time.Duration
}

// Client is a minimal Notion REST client for pages and data sources
type Client struct {
	baseURL    string
	token      string
	version    string
	httpClient *http.Client
	limiter    *util.RateLimiter
	attempts   uint
	delay      time.Duration
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

// NewClient creates a Notion client. The token is required.
func NewClient(cfg Config, log *logger.Logger, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("notion API token is required")
	}
	if log == nil {
		log = logger.Get()
	}
	log = log.Component("notion")

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Version == "" {
		cfg.Version = DefaultVersion
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryAttempts == 0 {
		cfg.RetryAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}

	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		version: cfg.Version,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: log.Transport(nil),
		},
		limiter:  util.NewRateLimiter(util.PerSecond(cfg.RateLimit), 1, log),
		attempts: cfg.RetryAttempts,
		delay:    cfg.RetryDelay,
		log:      log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// RetrievePage fetches a single page
func (c *Client) RetrievePage(ctx context.Context, pageID string) (*Page, error) {
	var page Page
	if err := c.call(ctx, http.MethodGet, "/pages/"+url.PathEscape(pageID), nil, &page); err != nil {
		return nil, fmt.Errorf("failed to retrieve page %s: %w", pageID, err)
	}
	return &page, nil
}

// RetrieveDatabase fetches a database with its data sources
func (c *Client) RetrieveDatabase(ctx context.Context, databaseID string) (*Database, error) {
	var db Database
	if err := c.call(ctx, http.MethodGet, "/databases/"+url.PathEscape(databaseID), nil, &db); err != nil {
		return nil, fmt.Errorf("failed to retrieve database %s: %w", databaseID, err)
	}
	return &db, nil
}

// PrimaryDataSource returns the ID of the database's first data source
func (c *Client) PrimaryDataSource(ctx context.Context, databaseID string) (string, error) {
	db, err := c.RetrieveDatabase(ctx, databaseID)
	if err != nil {
		return "", err
	}
	if len(db.DataSources) == 0 {
		return "", fmt.Errorf("%w: %s", ErrNoDataSource, databaseID)
	}
	return db.DataSources[0].ID, nil
}

// QueryDataSource returns every page of a data source, following cursors,
// in the order Notion returns them
func (c *Client) QueryDataSource(ctx context.Context, dataSourceID string) ([]Page, error) {
	var (
		pages  []Page
		cursor string
	)
	for {
		var resp queryResponse
		body := queryRequest{StartCursor: cursor, PageSize: maxPageSize}
		path := "/data_sources/" + url.PathEscape(dataSourceID) + "/query"
		if err := c.call(ctx, http.MethodPost, path, body, &resp); err != nil {
			return nil, fmt.Errorf("failed to query data source %s: %w", dataSourceID, err)
		}
		pages = append(pages, resp.Results...)

		if !resp.HasMore || resp.NextCursor == nil || *resp.NextCursor == "" {
			break
		}
		cursor = *resp.NextCursor
	}

	c.log.Debug("Queried data source", map[string]interface{}{
		"data_source_id": dataSourceID,
		"pages":          len(pages),
	})
	return pages, nil
}

// UpdatePage writes the given properties to a page in a single request
func (c *Client) UpdatePage(ctx context.Context, pageID string, properties any) (*Page, error) {
	var page Page
	body := updateRequest{Properties: properties}
	if err := c.call(ctx, http.MethodPatch, "/pages/"+url.PathEscape(pageID), body, &page); err != nil {
		return nil, fmt.Errorf("failed to update page %s: %w", pageID, err)
	}
	return &page, nil
}

// call sends one API request with rate limiting and retries
func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	}

	return retry.Do(
		func() error {
			return c.send(ctx, method, path, payload, out)
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return apiErr.Retryable()
			}
			return retry.IsRecoverable(err)
		}),
		retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
				return apiErr.RetryAfter
			}
			return retry.BackOffDelay(n, err, config)
		}),
		retry.OnRetry(func(n uint, err error) {
			c.log.Warn("Retrying Notion request", map[string]interface{}{
				"method":  method,
				"path":    path,
				"attempt": n + 1,
				"error":   err.Error(),
			})
		}),
	)
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return retry.Unrecoverable(err)
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return retry.Unrecoverable(err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", c.version)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		apiErr := &APIError{Status: resp.StatusCode}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		_ = json.Unmarshal(data, apiErr)
		apiErr.Status = resp.StatusCode
		if resp.StatusCode == http.StatusTooManyRequests {
			apiErr.RetryAfter = c.limiter.OnRateLimit(util.ParseRetryAfter(resp.Header))
		}
		return apiErr
	}
	c.limiter.OnSuccess()

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return retry.Unrecoverable(fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}
