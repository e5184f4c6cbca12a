// Package usecase implements the business logic for symbol-related operations.
package usecase

import (
	"context"
	"log/slog"
	"strings"

	"quantpulse_backend/internal/feature/symbollist/domain/entity"
)

const (
	// DefaultLimit is the page size when none is requested.
	DefaultLimit = 100
	// MaxLimit caps the page size.
	MaxLimit = 1000
)

// SymbolRepository abstracts the persistence layer for symbol (stock ticker) data.
// Following Go convention: interfaces are defined by the consumer (usecase), not the provider (adapters).
type SymbolRepository interface {
	// Search returns active symbols matching q, ranked exact > prefix > substring, then by symbol.
	Search(ctx context.Context, q entity.SymbolQuery) (entity.SymbolPage, error)
	Exists(ctx context.Context, symbol string) (bool, error)
}

// SelectionRepository stores the symbols each user follows.
type SelectionRepository interface {
	// Select adds the selection and reports whether it was newly created.
	Select(ctx context.Context, userID uint, symbol string) (bool, error)
	Deselect(ctx context.Context, userID uint, symbol string) error
	ListSelected(ctx context.Context, userID uint) ([]string, error)
}

// SelectionEvents announces newly selected symbols.
type SelectionEvents interface {
	PublishSymbolSelected(ctx context.Context, userID uint, symbol string) error
}

// SymbolUsecase provides business logic for symbol operations.
type SymbolUsecase struct {
	repo       SymbolRepository
	selections SelectionRepository
	events     SelectionEvents
}

// NewSymbolUsecase creates a new SymbolUsecase with the given repositories.
func NewSymbolUsecase(r SymbolRepository, s SelectionRepository, ev SelectionEvents) *SymbolUsecase {
	return &SymbolUsecase{repo: r, selections: s, events: ev}
}

// ListSymbols returns one page of active symbols. limit is clamped to [1, MaxLimit]
// with DefaultLimit for non-positive values; a negative offset is treated as 0.
func (u *SymbolUsecase) ListSymbols(ctx context.Context, search string, limit, offset int) (entity.SymbolPage, error) {
	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return u.repo.Search(ctx, entity.SymbolQuery{
		Search: strings.ToUpper(strings.TrimSpace(search)),
		Limit:  limit,
		Offset: offset,
	})
}

// SetSelected selects or deselects a symbol for the user. Selecting an already
// selected symbol is a no-op and publishes nothing.
func (u *SymbolUsecase) SetSelected(ctx context.Context, userID uint, symbol string, selected bool) error {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	ok, err := u.repo.Exists(ctx, symbol)
	if err != nil {
		return err
	}
	if !ok {
		return ErrSymbolNotFound
	}

	if !selected {
		if err := u.selections.Deselect(ctx, userID, symbol); err != nil {
			return err
		}
		slog.Info("symbol deselected", "user_id", userID, "symbol", symbol)
		return nil
	}

	created, err := u.selections.Select(ctx, userID, symbol)
	if err != nil {
		return err
	}
	if !created {
		return nil
	}
	slog.Info("symbol selected", "user_id", userID, "symbol", symbol)

	if err := u.events.PublishSymbolSelected(ctx, userID, symbol); err != nil {
		slog.Warn("failed to publish symbols_selected event", "symbol", symbol, "error", err)
	}
	return nil
}

// Selected returns the user's selected symbols in alphabetical order.
func (u *SymbolUsecase) Selected(ctx context.Context, userID uint) ([]string, error) {
	return u.selections.ListSelected(ctx, userID)
}
