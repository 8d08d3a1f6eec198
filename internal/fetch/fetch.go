// =============================================================================
// fetch.go - rate-limited HTTP fetcher
// =============================================================================
//
// One GET per call with a freshly randomized browser identity, a fixed
// timeout, and bounded retries with linearly increasing backoff. A 403 is a
// hard stop for the URL: the target has blocked us and hammering it again
// only makes that worse.
//
// =============================================================================
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrBlocked reports a 403-class response. It is never retried.
var ErrBlocked = errors.New("access blocked by target site")

// userAgents is rotated per request to reduce blocking by the target.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.3 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
}

// Client issues single-page GETs with retry and backoff.
type Client struct {
	httpClient *http.Client
	logger     *logrus.Logger
	delay      time.Duration
	maxRetries int

	// sleep is injectable so tests can observe backoff without waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

// New builds a Client. delay seeds the linear backoff (delay * attempt).
func New(logger *logrus.Logger, timeout, delay time.Duration, maxRetries int) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		delay:      delay,
		maxRetries: maxRetries,
		sleep:      sleepCtx,
	}
}

// Fetch GETs url and returns the body. Transient failures (network errors and
// non-403 error statuses) are retried up to the configured budget; exhausting
// it returns the last error. Callers treat any error here as a soft failure
// for that page only.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		body, err := c.fetchOnce(ctx, url)
		if err == nil {
			return body, nil
		}
		if errors.Is(err, ErrBlocked) {
			c.logger.WithField("url", url).Error("access blocked; not retrying")
			return nil, err
		}
		lastErr = err
		c.logger.WithFields(logrus.Fields{
			"url":     url,
			"attempt": attempt,
			"max":     c.maxRetries,
		}).WithError(err).Warn("fetch failed")

		if attempt < c.maxRetries {
			if err := c.sleep(ctx, c.delay*time.Duration(attempt)); err != nil {
				return nil, err
			}
		}
	}
	return nil, fmt.Errorf("all %d attempts failed: %w", c.maxRetries, lastErr)
}

func (c *Client) fetchOnce(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgents[rand.Intn(len(userAgents))])
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ko-KR,ko;q=0.9,en-US;q=0.8,en;q=0.7")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%s: %w", url, ErrBlocked)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
