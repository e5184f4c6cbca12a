// Package eventbus publishes domain events to Redis Streams, one stream per event type.
package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultPrefix is prepended to the event type to form the stream key.
const DefaultPrefix = "quantpulse:events:"

// dataField is the stream entry field holding the JSON-encoded event.
const dataField = "data"

// EventType names a stream of events.
type EventType string

const (
	SymbolsSelected EventType = "symbols_selected"
	SymbolsImported EventType = "symbols_imported"
)

// Event is the envelope stored in the stream.
type Event struct {
	ID        string          `json:"event_id"`
	Type      EventType       `json:"event_type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`

	// StreamID is the Redis-assigned entry ID; it is not part of the payload.
	StreamID string `json:"-"`
}

// Config controls stream naming and retention.
type Config struct {
	Prefix string
	MaxLen int64 // approximate per-stream cap; 0 keeps everything
}

// Bus appends events with XADD and reads them back with XREVRANGE.
type Bus struct {
	rdb    *redis.Client
	prefix string
	maxLen int64
	now    func() time.Time
	newID  func() string
}

// NewBus creates a Bus on an existing Redis client.
func NewBus(rdb *redis.Client, cfg Config) *Bus {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Bus{
		rdb:    rdb,
		prefix: prefix,
		maxLen: cfg.MaxLen,
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
}

// Stream returns the stream key for an event type.
func (b *Bus) Stream(typ EventType) string {
	return b.prefix + string(typ)
}

// Publish encodes data into an Event and appends it to the type's stream.
func (b *Bus) Publish(ctx context.Context, typ EventType, data any) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s data: %w", typ, err)
	}
	ev := Event{
		ID:        b.newID(),
		Type:      typ,
		Data:      raw,
		Timestamp: b.now().UTC(),
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s event: %w", typ, err)
	}

	args := &redis.XAddArgs{
		Stream: b.Stream(typ),
		Values: map[string]any{dataField: string(payload)},
	}
	if b.maxLen > 0 {
		args.MaxLen = b.maxLen
		args.Approx = true
	}
	id, err := b.rdb.XAdd(ctx, args).Result()
	if err != nil {
		return Event{}, fmt.Errorf("xadd %s: %w", args.Stream, err)
	}
	ev.StreamID = id

	slog.Debug("event published", "event_type", typ, "event_id", ev.ID, "stream_id", id)
	return ev, nil
}

// Recent returns up to count events of the given type, newest first.
// Entries that cannot be decoded are skipped.
func (b *Bus) Recent(ctx context.Context, typ EventType, count int64) ([]Event, error) {
	stream := b.Stream(typ)
	msgs, err := b.rdb.XRevRangeN(ctx, stream, "+", "-", count).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("xrevrange %s: %w", stream, err)
	}

	out := make([]Event, 0, len(msgs))
	for _, m := range msgs {
		s, ok := m.Values[dataField].(string)
		if !ok {
			slog.Warn("stream entry without data field", "stream", stream, "stream_id", m.ID)
			continue
		}
		var ev Event
		if err := json.Unmarshal([]byte(s), &ev); err != nil {
			slog.Warn("undecodable stream entry", "stream", stream, "stream_id", m.ID, "error", err)
			continue
		}
		ev.StreamID = m.ID
		out = append(out, ev)
	}
	return out, nil
}
