// Package sec fetches and normalizes the SEC EDGAR company tickers directory.
package sec

import "time"

// DefaultURL is the official SEC company tickers file.
const DefaultURL = "https://www.sec.gov/files/company_tickers.json"

// Config holds configuration for the SEC directory provider.
//
// SEC EDGAR rejects browser-like or generic user agents with 403; UserAgent
// must identify the requester, e.g. "QuantPulse ops@example.com".
type Config struct {
	URL        string        `yaml:"url"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
	Backoff    time.Duration `yaml:"backoff"`
	UserAgent  string        `yaml:"user_agent"`
}

// DefaultConfig returns the production defaults. UserAgent has no default.
func DefaultConfig() Config {
	return Config{
		URL:        DefaultURL,
		Timeout:    30 * time.Second,
		MaxRetries: 3,
		Backoff:    time.Second,
	}
}
