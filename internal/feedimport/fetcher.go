package feedimport

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/pders01/linkboard/internal/config"
)

const maxFeedSize = 10 << 20

type Fetcher struct {
	client    *http.Client
	userAgent string
}

func NewFetcher(cfg *config.Config) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: cfg.Import.FetchTimeout,
		},
		userAgent: cfg.API.UserAgent,
	}
}

// Fetch GETs feedURL. The caller closes the response body.
func (f *Fetcher) Fetch(ctx context.Context, feedURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching feed: %w", err)
	}

	if resp.StatusCode >= 400 {
		resp.Body.Close()
		if wait := retryAfter(resp); wait > 0 {
			return nil, fmt.Errorf("HTTP error: %d (retry after %s)", resp.StatusCode, wait)
		}
		return nil, fmt.Errorf("HTTP error: %d", resp.StatusCode)
	}

	return resp, nil
}

func retryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if seconds, err := time.ParseDuration(v + "s"); err == nil {
			return seconds
		}
	}
	return 0
}
