package sec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quantpulse_backend/internal/feature/symbolimport/domain/entity"
	"quantpulse_backend/internal/feature/symbolimport/usecase"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		body        string
		wantTickers []string
		wantRaw     int
		wantSkipped int
	}{
		{
			name:        "success: single entry is upper-cased",
			body:        `{"0":{"ticker":"aapl","title":"Apple Inc.","cik_str":320193}}`,
			wantTickers: []string{"AAPL"},
			wantRaw:     1,
		},
		{
			name: "success: document order is preserved",
			body: `{"10":{"ticker":"ZZZ","title":"Zed Corp","cik_str":1},` +
				`"2":{"ticker":"AAA","title":"Alpha","cik_str":2},` +
				`"7":{"ticker":"MMM","title":"3M Co","cik_str":66740}}`,
			wantTickers: []string{"ZZZ", "AAA", "MMM"},
			wantRaw:     3,
		},
		{
			name: "success: invalid entries are skipped",
			body: `{"0":{"ticker":"AAPL","title":"Apple Inc.","cik_str":320193},` +
				`"1":"not an object",` +
				`"2":{"ticker":"","title":"Blank Ticker"},` +
				`"3":{"ticker":"NOTITLE"},` +
				`"4":{"ticker":123,"title":"Numeric Ticker"},` +
				`"5":null,` +
				`"6":{"ticker":"MSFT","title":"Microsoft Corp","cik_str":"789019"}}`,
			wantTickers: []string{"AAPL", "MSFT"},
			wantRaw:     7,
			wantSkipped: 5,
		},
		{
			name:        "success: trailing whitespace after object",
			body:        "{\"0\":{\"ticker\":\"AAPL\",\"title\":\"Apple Inc.\"}}\n\n",
			wantTickers: []string{"AAPL"},
			wantRaw:     1,
		},
		{
			name:        "success: empty object",
			body:        `{}`,
			wantTickers: nil,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res, err := Parse([]byte(tt.body))
			require.NoError(t, err)

			var tickers []string
			for _, e := range res.Entries {
				tickers = append(tickers, e.Ticker)
			}
			assert.Equal(t, tt.wantTickers, tickers)
			assert.Equal(t, tt.wantRaw, res.RawRows)
			assert.Equal(t, tt.wantSkipped, res.Skipped)
			assert.Equal(t, res.RawRows, len(res.Entries)+res.Skipped)
		})
	}
}

func TestParse_CIK(t *testing.T) {
	t.Parallel()

	res, err := Parse([]byte(`{"0":{"ticker":"AAPL","title":"Apple Inc.","cik_str":320193},` +
		`"1":{"ticker":"MSFT","title":"Microsoft","cik_str":"0000789019"},` +
		`"2":{"ticker":"NOCIK","title":"No Cik Inc."}}`))
	require.NoError(t, err)
	require.Len(t, res.Entries, 3)

	assert.Equal(t, Entry{Key: "0", Ticker: "AAPL", Title: "Apple Inc.", CIK: "320193"}, res.Entries[0])
	assert.Equal(t, "0000789019", res.Entries[1].CIK)
	assert.Empty(t, res.Entries[2].CIK)
}

func TestParse_MalformedSource(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"top-level array", `[{"ticker":"AAPL","title":"Apple Inc."}]`},
		{"top-level string", `"hello"`},
		{"top-level number", `42`},
		{"truncated object", `{"0":{"ticker":"AAPL","title":"Apple`},
		{"missing closing brace", `{"0":{"ticker":"AAPL","title":"Apple Inc."}`},
		{"cut after comma", `{"0":{"ticker":"AAPL","title":"Apple Inc."},`},
		{"trailing garbage", `{"0":{"ticker":"AAPL","title":"Apple Inc."}} trailing garbage`},
		{"second object", `{"0":{"ticker":"AAPL","title":"Apple Inc."}}{}`},
		{"html error page", `<html><body>Request Rate Threshold Exceeded</body></html>`},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Parse([]byte(tt.body))
			assert.ErrorIs(t, err, usecase.ErrMalformedSource)
		})
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	records := Normalize([]Entry{
		{Key: "0", Ticker: "aapl", Title: "Apple Inc.", CIK: "320193"},
		{Key: "1", Ticker: "BRK-B", Title: "Berkshire Hathaway Inc", CIK: "1067983"},
	})

	assert.Equal(t, []entity.DirectoryRecord{
		{Symbol: "AAPL", CompanyName: "Apple Inc.", YahooSymbol: "AAPL"},
		{Symbol: "BRK-B", CompanyName: "Berkshire Hathaway Inc", YahooSymbol: "BRK-B"},
	}, records)
}
