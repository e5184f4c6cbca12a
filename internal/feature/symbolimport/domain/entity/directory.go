// Package entity defines the domain models for the symbolimport feature.
package entity

import (
	"fmt"
	"strings"
)

// Source identifies an external symbol directory.
type Source string

const (
	// SourceNASDAQ is the NASDAQ Trader listed-securities file.
	SourceNASDAQ Source = "NASDAQ"
	// SourceSEC is the SEC EDGAR company_tickers.json file.
	SourceSEC Source = "SEC"
)

// ParseSource converts a case-insensitive name ("nasdaq", "SEC") to a Source.
func ParseSource(s string) (Source, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(SourceNASDAQ):
		return SourceNASDAQ, nil
	case string(SourceSEC):
		return SourceSEC, nil
	}
	return "", fmt.Errorf("unknown directory source %q", s)
}

// Trigger records what started an import run. It is carried on the published event.
type Trigger string

const (
	TriggerAPI     Trigger = "api"
	TriggerStartup Trigger = "startup"
	TriggerCLI     Trigger = "cli"
)

// DirectoryRecord is a normalized directory row, ready to be upserted.
// MarketCategory and FinancialStatus are only populated by NASDAQ.
type DirectoryRecord struct {
	Symbol          string
	CompanyName     string
	YahooSymbol     string
	MarketCategory  string
	FinancialStatus string
}

// DirectoryBatch is the full normalized output of one fetch.
//
// RawRows counts every data row the parser read, including rows that were
// later skipped. Skipped counts malformed rows plus rows removed by the
// source's inclusion rules.
type DirectoryBatch struct {
	Source  Source
	Records []DirectoryRecord
	RawRows int
	Skipped int
}
