// Package di provides dependency injection factories for creating application components.
package di

import (
	"quantpulse_backend/internal/app/config"
	"quantpulse_backend/internal/feature/symbolimport/domain/entity"
	"quantpulse_backend/internal/feature/symbolimport/usecase"
	"quantpulse_backend/internal/platform/externalapi/nasdaq"
	"quantpulse_backend/internal/platform/externalapi/sec"
	infrahttp "quantpulse_backend/internal/platform/http"
)

// NewDirectoryProviders creates one provider per directory source, each with
// an HTTP client bounded by that source's per-attempt timeout. The SEC client
// carries the identifying User-Agent on its transport.
func NewDirectoryProviders(cfg config.DirectoryConfig) map[entity.Source]usecase.DirectoryProvider {
	return map[entity.Source]usecase.DirectoryProvider{
		entity.SourceNASDAQ: nasdaq.NewProvider(cfg.NASDAQ, infrahttp.NewHTTPClient(cfg.NASDAQ.Timeout, nil)),
		entity.SourceSEC:    sec.NewProvider(cfg.SEC, infrahttp.NewHTTPClient(cfg.SEC.Timeout, sec.Headers(cfg.SEC))),
	}
}
