// Package directory provides the retrying HTTP fetcher shared by the symbol directory providers.
package directory

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"quantpulse_backend/internal/feature/symbolimport/domain/entity"
	"quantpulse_backend/internal/feature/symbolimport/usecase"
)

// RetryPolicy bounds how often and how patiently a directory is fetched.
type RetryPolicy struct {
	MaxRetries int           // total number of attempts, at least 1
	BaseDelay  time.Duration // wait before the second attempt; doubles after each failure
}

// Backoff returns the wait after the given failed attempt (1-based):
// BaseDelay, 2*BaseDelay, 4*BaseDelay, ...
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return p.BaseDelay << (attempt - 1)
}

func (p RetryPolicy) attempts() int {
	if p.MaxRetries < 1 {
		return 1
	}
	return p.MaxRetries
}

// ParseFunc consumes a fully read response body. A parse error fails the attempt
// like a network error does, so a malformed payload consumes a retry.
type ParseFunc func(body []byte) error

// Fetcher downloads a directory and hands the body to a parser, retrying the
// fetch+parse unit with exponential backoff.
type Fetcher struct {
	source entity.Source
	client *http.Client
	policy RetryPolicy
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewFetcher creates a Fetcher. Request headers come from the client's transport.
func NewFetcher(source entity.Source, client *http.Client, policy RetryPolicy) *Fetcher {
	return &Fetcher{
		source: source,
		client: client,
		policy: policy,
		sleep:  sleepContext,
	}
}

// Fetch retrieves url and runs parse on the body. After the last failed attempt
// it returns a *usecase.ProviderError carrying the last underlying error.
func (f *Fetcher) Fetch(ctx context.Context, url string, parse ParseFunc) error {
	maxAttempts := f.policy.attempts()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		slog.Debug("directory fetch attempt", "exchange", f.source, "attempt", attempt, "url", url)

		lastErr = f.fetchOnce(ctx, url, parse)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return &usecase.ProviderError{Source: f.source, Attempts: attempt, Err: lastErr}
		}
		if attempt == maxAttempts {
			break
		}

		wait := f.policy.Backoff(attempt)
		slog.Warn("directory fetch attempt failed",
			"exchange", f.source,
			"attempt", attempt,
			"max_retries", maxAttempts,
			"wait", wait,
			"error", lastErr,
		)
		if err := f.sleep(ctx, wait); err != nil {
			return &usecase.ProviderError{Source: f.source, Attempts: attempt, Err: err}
		}
	}

	slog.Error("directory fetch failed after retries", "exchange", f.source, "attempts", maxAttempts, "error", lastErr)
	return &usecase.ProviderError{Source: f.source, Attempts: maxAttempts, Err: lastErr}
}

func (f *Fetcher) fetchOnce(ctx context.Context, url string, parse ParseFunc) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	res, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := res.Body.Close(); err != nil {
			slog.Warn("failed to close response body", "error", err)
		}
	}()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("%s directory http %d", f.source, res.StatusCode)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("read %s directory: %w", f.source, err)
	}
	slog.Debug("directory fetch successful", "exchange", f.source, "bytes", len(body))

	return parse(body)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
