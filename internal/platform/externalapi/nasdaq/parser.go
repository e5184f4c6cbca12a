package nasdaq

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"quantpulse_backend/internal/feature/symbolimport/domain/entity"
	"quantpulse_backend/internal/feature/symbolimport/usecase"
)

// ヘッダー列名
const (
	colSymbol          = "Symbol"
	colSecurityName    = "Security Name"
	colMarketCategory  = "Market Category"
	colTestIssue       = "Test Issue"
	colFinancialStatus = "Financial Status"
	colETF             = "ETF"
)

// Row is one parsed line of the NASDAQ directory, values trimmed.
type Row struct {
	Symbol          string
	SecurityName    string
	MarketCategory  string
	TestIssue       string
	FinancialStatus string
	ETF             string
}

// ParseResult is the output of Parse.
type ParseResult struct {
	Rows    []Row
	RawRows int // data rows read, including skipped ones
	Skipped int // rows without a symbol or security name
}

// Parse reads a pipe-delimited NASDAQ directory with a header row.
// Rows lacking a symbol or a security name are skipped; a missing header
// (or one without a Symbol column) is ErrMalformedSource.
func Parse(body []byte) (ParseResult, error) {
	r := csv.NewReader(bytes.NewReader(body))
	r.Comma = '|'
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.ReuseRecord = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return ParseResult{}, fmt.Errorf("%w: nasdaq file has no header row", usecase.ErrMalformedSource)
	}
	if err != nil {
		return ParseResult{}, fmt.Errorf("%w: nasdaq header: %v", usecase.ErrMalformedSource, err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	if _, ok := index[colSymbol]; !ok {
		return ParseResult{}, fmt.Errorf("%w: nasdaq header has no %q column", usecase.ErrMalformedSource, colSymbol)
	}
	slog.Debug("nasdaq file columns", "columns", strings.Join(header, "|"))

	var res ParseResult
	for line := 1; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		res.RawRows++
		if err != nil {
			res.Skipped++
			slog.Warn("skipping nasdaq row", "error", &usecase.RowParseError{Row: line, Reason: err.Error()})
			continue
		}

		field := func(name string) string {
			i, ok := index[name]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}

		row := Row{
			Symbol:          field(colSymbol),
			SecurityName:    field(colSecurityName),
			MarketCategory:  field(colMarketCategory),
			TestIssue:       field(colTestIssue),
			FinancialStatus: field(colFinancialStatus),
			ETF:             field(colETF),
		}
		if row.Symbol == "" || row.SecurityName == "" {
			res.Skipped++
			slog.Debug("skipping nasdaq row", "error", &usecase.RowParseError{Row: line, Reason: "missing symbol or security name"})
			continue
		}
		res.Rows = append(res.Rows, row)
	}

	slog.Info("nasdaq parser finished", "rows", res.RawRows, "valid", len(res.Rows), "skipped", res.Skipped)
	return res, nil
}

// Normalize maps parsed rows to directory records. Test issues (flag "Y",
// case-insensitive) are dropped; every other instrument, ETFs included, is kept.
// It returns the records and the number of dropped test issues.
func Normalize(rows []Row) ([]entity.DirectoryRecord, int) {
	out := make([]entity.DirectoryRecord, 0, len(rows))
	testIssues := 0
	for _, row := range rows {
		symbol := strings.ToUpper(row.Symbol)
		if strings.EqualFold(row.TestIssue, "Y") {
			slog.Debug("skipping nasdaq test issue", "symbol", symbol)
			testIssues++
			continue
		}
		out = append(out, entity.DirectoryRecord{
			Symbol:          symbol,
			CompanyName:     row.SecurityName,
			YahooSymbol:     symbol,
			MarketCategory:  row.MarketCategory,
			FinancialStatus: row.FinancialStatus,
		})
	}
	slog.Info("nasdaq normalization finished", "included", len(out), "test_issues", testIssues)
	return out, testIssues
}
