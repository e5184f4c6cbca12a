package sec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"quantpulse_backend/internal/feature/symbolimport/domain/entity"
	"quantpulse_backend/internal/feature/symbolimport/usecase"
)

// Entry is one valid company from company_tickers.json.
type Entry struct {
	Key    string // top-level key in the file ("0", "1", ...)
	Ticker string // upper-cased
	Title  string
	CIK    string
}

// ParseResult is the output of Parse.
type ParseResult struct {
	Entries []Entry
	RawRows int // top-level values read, including skipped ones
	Skipped int
}

// rawEntry mirrors an object in company_tickers.json:
//
//	{"cik_str": 320193, "ticker": "AAPL", "title": "Apple Inc."}
type rawEntry struct {
	CIK    json.RawMessage `json:"cik_str"`
	Ticker string          `json:"ticker"`
	Title  string          `json:"title"`
}

// Parse decodes company_tickers.json in document order. The body must be exactly
// one complete JSON object (ErrMalformedSource otherwise); values that are not objects or
// lack a non-empty ticker or title are skipped.
func Parse(body []byte) (ParseResult, error) {
	dec := json.NewDecoder(bytes.NewReader(body))

	tok, err := dec.Token()
	if err != nil {
		return ParseResult{}, fmt.Errorf("%w: sec file: %v", usecase.ErrMalformedSource, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return ParseResult{}, fmt.Errorf("%w: sec file is not a JSON object", usecase.ErrMalformedSource)
	}

	var res ParseResult
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return ParseResult{}, fmt.Errorf("%w: decode sec key: %v", usecase.ErrMalformedSource, err)
		}
		key, _ := keyTok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return ParseResult{}, fmt.Errorf("%w: decode sec entry %q: %v", usecase.ErrMalformedSource, key, err)
		}
		res.RawRows++

		entry, err := parseEntry(key, raw)
		if err != nil {
			res.Skipped++
			slog.Debug("skipping sec entry", "key", key, "error", err)
			continue
		}
		res.Entries = append(res.Entries, entry)
	}

	// 途中で切れたボディを部分的な成功として扱わない
	if tok, err := dec.Token(); err != nil || tok != json.Delim('}') {
		return ParseResult{}, fmt.Errorf("%w: sec file is truncated", usecase.ErrMalformedSource)
	}
	if _, err := dec.Token(); err != io.EOF {
		return ParseResult{}, fmt.Errorf("%w: trailing data after sec object", usecase.ErrMalformedSource)
	}

	slog.Info("sec parser finished", "rows", res.RawRows, "valid", len(res.Entries), "skipped", res.Skipped)
	return res, nil
}

func parseEntry(key string, raw json.RawMessage) (Entry, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Entry{}, &usecase.RowParseError{Row: rowNumber(key), Reason: "entry is not an object"}
	}

	var e rawEntry
	if err := json.Unmarshal(trimmed, &e); err != nil {
		return Entry{}, &usecase.RowParseError{Row: rowNumber(key), Reason: err.Error()}
	}

	ticker := strings.ToUpper(strings.TrimSpace(e.Ticker))
	title := strings.TrimSpace(e.Title)
	if ticker == "" || title == "" {
		return Entry{}, &usecase.RowParseError{Row: rowNumber(key), Reason: "missing ticker or title"}
	}

	return Entry{Key: key, Ticker: ticker, Title: title, CIK: cikString(e.CIK)}, nil
}

// cikString accepts cik_str as a JSON number or string.
func cikString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func rowNumber(key string) int {
	var n int
	if _, err := fmt.Sscanf(key, "%d", &n); err != nil {
		return -1
	}
	return n
}

// Normalize maps parsed entries to directory records. Every entry is included.
func Normalize(entries []Entry) []entity.DirectoryRecord {
	out := make([]entity.DirectoryRecord, 0, len(entries))
	for _, e := range entries {
		symbol := strings.ToUpper(e.Ticker)
		out = append(out, entity.DirectoryRecord{
			Symbol:      symbol,
			CompanyName: e.Title,
			YahooSymbol: symbol,
		})
	}
	slog.Info("sec normalization finished", "included", len(out))
	return out
}
