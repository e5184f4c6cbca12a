// Package usecase implements the symbol directory import pipeline.
package usecase

import (
	"errors"
	"fmt"

	"quantpulse_backend/internal/feature/symbolimport/domain/entity"
)

var (
	// ErrUnknownSource is returned when no provider is registered for a source.
	ErrUnknownSource = errors.New("unknown directory source")

	// ErrMalformedSource is returned when a directory payload cannot be parsed at all
	// (no NASDAQ header row, SEC payload not a JSON object). It is never returned
	// directly by ImportDirectory: the fetcher retries it and wraps it in ProviderError.
	ErrMalformedSource = errors.New("malformed directory source")
)

// ProviderError is returned when a directory could not be fetched and parsed
// within the configured number of attempts. Err is the last attempt's error.
type ProviderError struct {
	Source   entity.Source
	Attempts int
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("fetch %s directory failed after %d attempts: %v", e.Source, e.Attempts, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// RowParseError describes a single directory row that was skipped.
// It is logged, never returned to callers.
type RowParseError struct {
	Row    int
	Reason string
}

func (e *RowParseError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
}

// ErrInvalidSymbol is returned when a manually imported symbol record is invalid.
var ErrInvalidSymbol = errors.New("invalid symbol record")

// ErrEventsUnavailable is returned by ImportEvents implementations when no event bus is configured.
var ErrEventsUnavailable = errors.New("event bus unavailable")
