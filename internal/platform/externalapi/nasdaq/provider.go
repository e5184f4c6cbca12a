package nasdaq

import (
	"context"
	"log/slog"
	"net/http"

	"quantpulse_backend/internal/feature/symbolimport/domain/entity"
	"quantpulse_backend/internal/feature/symbolimport/usecase"
	"quantpulse_backend/internal/platform/externalapi/directory"
)

// Provider is the DirectoryProvider for the NASDAQ listed-securities file.
type Provider struct {
	cfg     Config
	fetcher *directory.Fetcher
}

// Providerがusecase.DirectoryProviderを実装していることをコンパイル時に検証します。
var _ usecase.DirectoryProvider = (*Provider)(nil)

// NewProvider creates a Provider using the given HTTP client.
func NewProvider(cfg Config, client *http.Client) *Provider {
	policy := directory.RetryPolicy{MaxRetries: cfg.MaxRetries, BaseDelay: cfg.Backoff}
	return &Provider{
		cfg:     cfg,
		fetcher: directory.NewFetcher(entity.SourceNASDAQ, client, policy),
	}
}

// FetchDirectory downloads, parses and normalizes the NASDAQ directory.
// Fetch and parse are retried together; normalization runs once on the final parse.
func (p *Provider) FetchDirectory(ctx context.Context) (entity.DirectoryBatch, error) {
	slog.Info("starting nasdaq directory fetch", "url", p.cfg.URL)

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

	records, testIssues := Normalize(parsed.Rows)
	return entity.DirectoryBatch{
		Source:  entity.SourceNASDAQ,
		Records: records,
		RawRows: parsed.RawRows,
		Skipped: parsed.Skipped + testIssues,
	}, nil
}
