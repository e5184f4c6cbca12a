package adapters

import (
	"context"
	"encoding/json"
	"log/slog"

	"quantpulse_backend/internal/feature/symbolimport/domain/entity"
	"quantpulse_backend/internal/feature/symbolimport/usecase"
	"quantpulse_backend/internal/platform/eventbus"
)

// EventBus is the subset of *eventbus.Bus used here.
type EventBus interface {
	Publish(ctx context.Context, typ eventbus.EventType, data any) (eventbus.Event, error)
	Recent(ctx context.Context, typ eventbus.EventType, count int64) ([]eventbus.Event, error)
}

// importedData is the payload of a symbols_imported event.
// count mirrors inserted for consumers that predate the inserted/updated split.
type importedData struct {
	Exchange string `json:"exchange"`
	Count    int    `json:"count"`
	Inserted int    `json:"inserted"`
	Updated  int    `json:"updated"`
	Source   string `json:"source"`
}

// importEventPublisher publishes import events to the event bus.
type importEventPublisher struct {
	bus EventBus
}

var _ usecase.ImportEvents = (*importEventPublisher)(nil)

// NewImportEventPublisher creates an ImportEvents backed by the event bus.
func NewImportEventPublisher(bus EventBus) *importEventPublisher {
	return &importEventPublisher{bus: bus}
}

func (p *importEventPublisher) PublishSymbolsImported(ctx context.Context, ev entity.ImportEvent) error {
	published, err := p.bus.Publish(ctx, eventbus.SymbolsImported, importedData{
		Exchange: string(ev.Exchange),
		Count:    ev.Inserted,
		Inserted: ev.Inserted,
		Updated:  ev.Updated,
		Source:   string(ev.Trigger),
	})
	if err != nil {
		return err
	}
	slog.Info("symbols_imported event published", "event_id", published.ID, "exchange", ev.Exchange)
	return nil
}

func (p *importEventPublisher) RecentSymbolsImported(ctx context.Context, limit int) ([]entity.PublishedImport, error) {
	events, err := p.bus.Recent(ctx, eventbus.SymbolsImported, int64(limit))
	if err != nil {
		return nil, err
	}

	out := make([]entity.PublishedImport, 0, len(events))
	for _, ev := range events {
		var d importedData
		if err := json.Unmarshal(ev.Data, &d); err != nil {
			slog.Warn("skipping undecodable symbols_imported event", "event_id", ev.ID, "error", err)
			continue
		}
		out = append(out, entity.PublishedImport{
			ID:        ev.ID,
			Exchange:  entity.Source(d.Exchange),
			Inserted:  d.Inserted,
			Updated:   d.Updated,
			Trigger:   entity.Trigger(d.Source),
			Timestamp: ev.Timestamp,
		})
	}
	return out, nil
}

// unavailableImportEvents is used when Redis is not configured.
// Imports still succeed and report Published=false.
type unavailableImportEvents struct{}

var _ usecase.ImportEvents = unavailableImportEvents{}

// NewUnavailableImportEvents returns an ImportEvents that always reports ErrEventsUnavailable.
func NewUnavailableImportEvents() usecase.ImportEvents {
	return unavailableImportEvents{}
}

func (unavailableImportEvents) PublishSymbolsImported(ctx context.Context, ev entity.ImportEvent) error {
	return usecase.ErrEventsUnavailable
}

func (unavailableImportEvents) RecentSymbolsImported(ctx context.Context, limit int) ([]entity.PublishedImport, error) {
	return nil, usecase.ErrEventsUnavailable
}
