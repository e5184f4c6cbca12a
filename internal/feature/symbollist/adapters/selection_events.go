package adapters

import (
	"context"
	"errors"

	"quantpulse_backend/internal/feature/symbollist/usecase"
	"quantpulse_backend/internal/platform/eventbus"
)

// Publisher is the subset of *eventbus.Bus used here.
type Publisher interface {
	Publish(ctx context.Context, typ eventbus.EventType, data any) (eventbus.Event, error)
}

type selectedData struct {
	Symbol string `json:"symbol"`
	Action string `json:"action"`
	UserID uint   `json:"user_id"`
}

type selectionEvents struct {
	bus Publisher
}

var _ usecase.SelectionEvents = (*selectionEvents)(nil)

// NewSelectionEvents creates a SelectionEvents backed by the event bus.
// A nil bus yields an implementation that reports every publish as failed.
func NewSelectionEvents(bus Publisher) *selectionEvents {
	return &selectionEvents{bus: bus}
}

func (s *selectionEvents) PublishSymbolSelected(ctx context.Context, userID uint, symbol string) error {
	if s.bus == nil {
		return errors.New("event bus unavailable")
	}
	_, err := s.bus.Publish(ctx, eventbus.SymbolsSelected, selectedData{Symbol: symbol, Action: "selected", UserID: userID})
	return err
}
