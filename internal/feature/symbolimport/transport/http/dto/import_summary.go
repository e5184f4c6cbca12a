// Package dto defines data transfer objects for the symbolimport HTTP API.
package dto

import (
	"time"

	"quantpulse_backend/internal/feature/symbolimport/domain/entity"
	symbolentity "quantpulse_backend/internal/feature/symbollist/domain/entity"
)

// ImportSummaryResponse is the result of POST /symbols/import/:source.
type ImportSummaryResponse struct {
	Exchange  string    `json:"exchange"`
	Processed int       `json:"processed"`
	Inserted  int       `json:"inserted"`
	Updated   int       `json:"updated"`
	Skipped   int       `json:"skipped"`
	Published bool      `json:"published"` // false when the import event could not be delivered
	Timestamp time.Time `json:"timestamp"`
}

// NewImportSummaryResponse converts a use case summary for the wire.
func NewImportSummaryResponse(s entity.ImportSummary) ImportSummaryResponse {
	return ImportSummaryResponse{
		Exchange:  string(s.Exchange),
		Processed: s.Processed,
		Inserted:  s.Inserted,
		Updated:   s.Updated,
		Skipped:   s.Skipped,
		Published: s.Published,
		Timestamp: s.Timestamp,
	}
}

// ManualSymbolReq is one element of the POST /symbols/import body.
// IsActive defaults to true when omitted.
type ManualSymbolReq struct {
	Symbol         string `json:"symbol" binding:"required"`
	CompanyName    string `json:"company_name"`
	YahooSymbol    string `json:"yahoo_symbol"`
	InstrumentType string `json:"instrument_type"`
	Exchange       string `json:"exchange"`
	Currency       string `json:"currency"`
	IsActive       *bool  `json:"is_active"`
}

// ToEntity converts the request element for the use case.
func (r ManualSymbolReq) ToEntity() entity.ManualSymbol {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return entity.ManualSymbol{
		Symbol:         r.Symbol,
		CompanyName:    r.CompanyName,
		YahooSymbol:    r.YahooSymbol,
		InstrumentType: symbolentity.InstrumentType(r.InstrumentType),
		Exchange:       r.Exchange,
		Currency:       r.Currency,
		IsActive:       active,
	}
}

// ManualImportResponse is the result of POST /symbols/import.
type ManualImportResponse struct {
	Received int `json:"received"`
	Created  int `json:"created"`
	Skipped  int `json:"skipped"`
}

// ImportEventItem is one entry of GET /symbols/import/events.
type ImportEventItem struct {
	EventID   string    `json:"event_id"`
	Exchange  string    `json:"exchange"`
	Inserted  int       `json:"inserted"`
	Updated   int       `json:"updated"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

// ImportEventsResponse wraps the recent import events, newest first.
type ImportEventsResponse struct {
	Events []ImportEventItem `json:"events"`
}
