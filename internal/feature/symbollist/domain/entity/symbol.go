// Package entity defines the domain models for the symbollist feature.
package entity

import "time"

// InstrumentType classifies what a symbol trades.
type InstrumentType string

const (
	InstrumentStock InstrumentType = "STOCK"
	InstrumentMetal InstrumentType = "METAL"
)

// Symbol represents a tradable ticker in the system.
// The ticker itself is the primary key: one row per symbol regardless of
// how many directories list it.
type Symbol struct {
	Symbol          string         `gorm:"primaryKey;size:20"`
	CompanyName     string         `gorm:"size:255;not null"`
	YahooSymbol     string         `gorm:"size:32;not null"`
	Exchange        string         `gorm:"size:20;not null;index"`
	MarketCategory  string         `gorm:"size:8"`
	FinancialStatus string         `gorm:"size:8"`
	Currency        string         `gorm:"size:8;not null;default:USD"`
	InstrumentType  InstrumentType `gorm:"size:16;not null;default:STOCK"`
	IsActive        bool           `gorm:"not null;default:true;index"`
	CreatedAt       time.Time      `gorm:"autoCreateTime"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime"`
}

// SelectedSymbol marks a symbol a user chose to follow.
type SelectedSymbol struct {
	UserID    uint      `gorm:"primaryKey"`
	Symbol    string    `gorm:"primaryKey;size:20"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// SymbolPage is one page of a symbol search. Total counts all matches, not just this page.
type SymbolPage struct {
	Symbols []Symbol
	Total   int64
}

// SymbolQuery filters and pages a symbol search.
type SymbolQuery struct {
	Search string
	Limit  int
	Offset int
}
