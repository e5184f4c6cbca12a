// Package dto defines data transfer objects for the symbollist HTTP API.
package dto

// SymbolItem represents a symbol in the API response.
// It contains only the public-facing fields needed by clients.
type SymbolItem struct {
	Symbol         string `json:"symbol"`
	CompanyName    string `json:"company_name"`
	YahooSymbol    string `json:"yahoo_symbol"`
	InstrumentType string `json:"instrument_type"`
	Exchange       string `json:"exchange"`
	Currency       string `json:"currency"`
	IsActive       bool   `json:"is_active"`
}

// SymbolListResponse is one page of GET /symbols.
type SymbolListResponse struct {
	Symbols []SymbolItem `json:"symbols"`
	Total   int64        `json:"total"`
}

// SelectSymbolRequest is the body of POST /symbols/select.
type SelectSymbolRequest struct {
	Symbol   string `json:"symbol" binding:"required"`
	Selected *bool  `json:"selected" binding:"required"`
}

// SelectSymbolResponse echoes the applied selection.
type SelectSymbolResponse struct {
	Symbol   string `json:"symbol"`
	Selected bool   `json:"selected"`
}

// SelectedSymbolsResponse lists the caller's selected symbols.
type SelectedSymbolsResponse struct {
	Symbols []string `json:"symbols"`
}
