// Package portal talks to the court records portal: document downloads and
// crawler triggers. Every request shares one rate limiter and retries once
// on transient failures.
package portal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/JaimeStill/bidwatch/internal/cases"
	"github.com/JaimeStill/bidwatch/pkg/retry"
)

// Fetcher downloads document files from the portal.
type Fetcher interface {
	Fetch(ctx context.Context, doc cases.Document) (io.ReadCloser, error)
}

// Client is the HTTP implementation of Fetcher and Crawler.
type Client struct {
	http       *http.Client
	crawlerURL string
	userAgent  string
	limiter    *rate.Limiter
	retry      retry.Policy
	logger     *slog.Logger
}

// NewClient creates a portal client. A nil http client uses the configured
// timeout; a nil limiter uses the configured rate.
func NewClient(cfg *Config, client *http.Client, limiter *rate.Limiter, logger *slog.Logger) *Client {
	if client == nil {
		client = &http.Client{Timeout: cfg.TimeoutDuration()}
	}
	if limiter == nil {
		limiter = cfg.Limiter()
	}

	policy := retry.Default()
	policy.BaseDelay = cfg.RetryDelayDuration()
	policy.Retryable = func(err error) bool { return errors.Is(err, ErrTransientFetch) }

	return &Client{
		http:       client,
		crawlerURL: cfg.CrawlerURL,
		userAgent:  cfg.UserAgent,
		limiter:    limiter,
		retry:      policy,
		logger:     logger.With("system", "portal"),
	}
}

// Fetch GETs the document's source URL. The caller must close the reader.
func (c *Client) Fetch(ctx context.Context, doc cases.Document) (io.ReadCloser, error) {
	if doc.SourceURL == nil || *doc.SourceURL == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoSource, doc.ID)
	}

	var body io.ReadCloser
	err := retry.Do(ctx, c.retry, func(ctx context.Context) error {
		rc, err := c.get(ctx, *doc.SourceURL)
		if err != nil {
			return err
		}
		body = rc
		return nil
	})
	if err != nil {
		c.logger.WarnContext(ctx, "document fetch failed", "document_id", doc.ID, "error", err)
		return nil, err
	}

	return body, nil
}

func (c *Client) get(ctx context.Context, url string) (io.ReadCloser, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create fetch request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %w", ErrTransientFetch, err)
	}

	if err := checkStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}

	return resp.Body, nil
}

func checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return fmt.Errorf("%w: %s", ErrNotFound, resp.Request.URL)
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: portal returned %d", ErrTransientFetch, resp.StatusCode)
	case resp.StatusCode >= 300:
		return fmt.Errorf("portal returned %d", resp.StatusCode)
	}
	return nil
}
