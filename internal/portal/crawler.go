package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/JaimeStill/bidwatch/pkg/retry"
)

// Crawler asks the crawler service to refresh a case's events and documents.
type Crawler interface {
	Crawl(ctx context.Context, caseNumber string) error
}

type crawlRequest struct {
	CaseNumber string `json:"case_number"`
}

// Crawl POSTs the case number to the crawler service. The crawler writes
// its results through the case API; Crawl only waits for acceptance.
func (c *Client) Crawl(ctx context.Context, caseNumber string) error {
	body, err := json.Marshal(crawlRequest{CaseNumber: caseNumber})
	if err != nil {
		return fmt.Errorf("marshal crawl request: %w", err)
	}

	return retry.Do(ctx, c.retry, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.crawlerURL, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create crawl request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: %w", ErrTransientFetch, err)
		}
		defer resp.Body.Close()

		if err := checkStatus(resp); err != nil {
			return err
		}

		c.logger.InfoContext(ctx, "crawl requested", "case_number", caseNumber)
		return nil
	})
}
