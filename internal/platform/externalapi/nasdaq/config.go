// Package nasdaq fetches and normalizes the NASDAQ Trader listed-securities directory.
package nasdaq

import "time"

// DefaultURL is the official NASDAQ listed-securities file.
const DefaultURL = "https://www.nasdaqtrader.com/dynamic/symdir/nasdaqlisted.txt"

// Config holds configuration for the NASDAQ directory provider.
type Config struct {
	URL        string        `yaml:"url"`         // directory URL
	Timeout    time.Duration `yaml:"timeout"`     // per-attempt HTTP timeout
	MaxRetries int           `yaml:"max_retries"` // total attempts
	Backoff    time.Duration `yaml:"backoff"`     // wait before the second attempt
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		URL:        DefaultURL,
		Timeout:    30 * time.Second,
		MaxRetries: 3,
		Backoff:    time.Second,
	}
}
