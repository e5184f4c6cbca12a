package sec

import (
	"context"
	"log/slog"
	"net/http"

	"quantpulse_backend/internal/feature/symbolimport/domain/entity"
	"quantpulse_backend/internal/feature/symbolimport/usecase"
	"quantpulse_backend/internal/platform/externalapi/directory"
)

// Provider is the DirectoryProvider for the SEC company tickers file.
type Provider struct {
	cfg     Config
	fetcher *directory.Fetcher
}

var _ usecase.DirectoryProvider = (*Provider)(nil)

// Headers returns the request headers SEC expects. The client passed to
// NewProvider must send them, see http.NewHTTPClient.
func Headers(cfg Config) http.Header {
	headers := http.Header{}
	headers.Set("User-Agent", cfg.UserAgent)
	headers.Set("Accept", "application/json")
	return headers
}

// NewProvider creates a Provider that downloads through client.
func NewProvider(cfg Config, client *http.Client) *Provider {
	policy := directory.RetryPolicy{MaxRetries: cfg.MaxRetries, BaseDelay: cfg.Backoff}
	return &Provider{
		cfg:     cfg,
		fetcher: directory.NewFetcher(entity.SourceSEC, client, policy),
	}
}

// FetchDirectory downloads, parses and normalizes the SEC directory.
func (p *Provider) FetchDirectory(ctx context.Context) (entity.DirectoryBatch, error) {
	slog.Info("starting sec directory fetch", "url", p.cfg.URL)

	var parsed ParseResult
	err := p.fetcher.Fetch(ctx, p.cfg.URL, func(body []byte) error {
		res, err := Parse(body)
		if err != nil {
			return err
		}
		parsed = res
		return nil
	})
	if err != nil {
		return entity.DirectoryBatch{}, err
	}

	return entity.DirectoryBatch{
		Source:  entity.SourceSEC,
		Records: Normalize(parsed.Entries),
		RawRows: parsed.RawRows,
		Skipped: parsed.Skipped,
	}, nil
}
