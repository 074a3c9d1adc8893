// Package feed polls upstream HTTP endpoints that serve the same
// newline-delimited JSON messages accepted on stdin.
package feed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rewired-gh/pulsegauge/internal/ingest"
	"github.com/rewired-gh/pulsegauge/internal/logger"
)

// Client fetches feeds with retry on transport failures and 5xx responses.
type Client struct {
	httpClient     *http.Client
	maxRetries     int
	retryDelayBase time.Duration
}

// NewClient creates a new feed client
func NewClient(timeout time.Duration, maxRetries int, retryDelayBase time.Duration) *Client {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}
}

// Fetch retrieves url and streams its body into sink.
func (c *Client) Fetch(ctx context.Context, url string, sink ingest.Sink) (ingest.Stats, error) {
	resp, err := c.doRequest(ctx, url)
	if err != nil {
		return ingest.Stats{}, fmt.Errorf("failed to fetch feed %s: %w", url, err)
	}
	defer resp.Body.Close()

	stats, err := ingest.Run(ctx, resp.Body, sink)
	if err != nil {
		return stats, fmt.Errorf("failed to read feed %s: %w", url, err)
	}
	return stats, nil
}

// doRequest performs HTTP request with retry logic
func (c *Client) doRequest(ctx context.Context, url string) (*http.Response, error) {
	var lastErr error

	for i := 0; i < c.maxRetries; i++ {
		if i > 0 {
			delay := time.Duration(i) * c.retryDelayBase
			logger.Debug("Retrying feed %s in %v (attempt %d/%d): %v", url, delay, i+1, c.maxRetries, lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/x-ndjson, application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
		}

		return resp, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// Poller fetches a fixed set of feeds into one sink.
type Poller struct {
	client *Client
	urls   []string
	sink   ingest.Sink
}

// NewPoller creates a Poller.
func NewPoller(client *Client, urls []string, sink ingest.Sink) *Poller {
	return &Poller{client: client, urls: urls, sink: sink}
}

// PollAll fetches every feed in order. A failing feed does not stop the others;
// all failures are returned joined.
func (p *Poller) PollAll(ctx context.Context) error {
	var errs []error
	for _, url := range p.urls {
		stats, err := p.client.Fetch(ctx, url, p.sink)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		logger.Debug("Polled %s: %d values, %d batches, %d skipped", url, stats.Values, stats.Batches, stats.Skipped)
	}
	return errors.Join(errs...)
}

// URLs returns the configured feeds.
func (p *Poller) URLs() []string {
	return p.urls
}
