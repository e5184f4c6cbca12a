package entity

import symbolentity "quantpulse_backend/internal/feature/symbollist/domain/entity"

// ManualSymbol is a symbol submitted directly by an administrator rather than
// read from a directory.
type ManualSymbol struct {
	Symbol         string
	CompanyName    string
	YahooSymbol    string
	InstrumentType symbolentity.InstrumentType
	Exchange       string
	Currency       string
	IsActive       bool
}

// ManualImportResult counts the outcome of a manual import.
// Received equals Created + Skipped; a skipped symbol already existed or was
// repeated within the request.
type ManualImportResult struct {
	Received int
	Created  int
	Skipped  int
}
