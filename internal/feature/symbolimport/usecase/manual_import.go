package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"quantpulse_backend/internal/feature/symbolimport/domain/entity"
	symbolentity "quantpulse_backend/internal/feature/symbollist/domain/entity"
)

const (
	// MaxManualSymbols caps the number of symbols accepted by one manual import.
	MaxManualSymbols = 5000

	defaultCurrency = "USD"
)

// ImportSymbols inserts administrator-supplied symbols that are not stored yet.
// Existing symbols are never modified. A symbol repeated within the request keeps
// its first occurrence. Any invalid record rejects the whole request.
func (u *ImportUsecase) ImportSymbols(ctx context.Context, symbols []entity.ManualSymbol) (entity.ManualImportResult, error) {
	if len(symbols) > MaxManualSymbols {
		return entity.ManualImportResult{}, fmt.Errorf("%w: at most %d symbols per request", ErrInvalidSymbol, MaxManualSymbols)
	}

	seen := make(map[string]struct{}, len(symbols))
	unique := make([]entity.ManualSymbol, 0, len(symbols))
	for i, s := range symbols {
		n, err := normalizeManual(s)
		if err != nil {
			return entity.ManualImportResult{}, fmt.Errorf("%w: item %d: %v", ErrInvalidSymbol, i, err)
		}
		if _, dup := seen[n.Symbol]; dup {
			continue
		}
		seen[n.Symbol] = struct{}{}
		unique = append(unique, n)
	}

	res := entity.ManualImportResult{Received: len(symbols)}
	if len(unique) > 0 {
		created, err := u.writer.CreateMissing(context.WithoutCancel(ctx), unique)
		if err != nil {
			return entity.ManualImportResult{}, fmt.Errorf("create symbols: %w", err)
		}
		res.Created = created
	}
	res.Skipped = res.Received - res.Created

	slog.Info("manual symbol import completed", "received", res.Received, "created", res.Created, "skipped", res.Skipped)
	return res, nil
}

func normalizeManual(s entity.ManualSymbol) (entity.ManualSymbol, error) {
	s.Symbol = strings.ToUpper(strings.TrimSpace(s.Symbol))
	if s.Symbol == "" {
		return s, errors.New("symbol is required")
	}
	if len(s.Symbol) > 20 {
		return s, fmt.Errorf("symbol %q is longer than 20 characters", s.Symbol)
	}

	s.CompanyName = strings.TrimSpace(s.CompanyName)
	s.Exchange = strings.ToUpper(strings.TrimSpace(s.Exchange))

	s.YahooSymbol = strings.TrimSpace(s.YahooSymbol)
	if s.YahooSymbol == "" {
		s.YahooSymbol = s.Symbol
	}

	s.Currency = strings.ToUpper(strings.TrimSpace(s.Currency))
	if s.Currency == "" {
		s.Currency = defaultCurrency
	}

	switch t := symbolentity.InstrumentType(strings.ToUpper(strings.TrimSpace(string(s.InstrumentType)))); t {
	case "":
		s.InstrumentType = symbolentity.InstrumentStock
	case symbolentity.InstrumentStock, symbolentity.InstrumentMetal:
		s.InstrumentType = t
	default:
		return s, fmt.Errorf("unknown instrument type %q", s.InstrumentType)
	}
	return s, nil
}
