// Package interactionlog implements C11: an append-only sink for
// user-interaction events (search issued, result clicked, track added to a
// playlist), optional for any caller that wants usage analytics without the
// core depending on them.
package interactionlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/musicfed/aggregator/internal/store"
)

// EventType names the kinds of interaction the sink accepts. The set is
// intentionally small — anything richer belongs in a downstream analytics
// consumer, not the core.
type EventType string

const (
	EventSearch       EventType = "search"
	EventResultClick  EventType = "result_click"
	EventTrackAdded   EventType = "track_added"
	EventPlaylistView EventType = "playlist_view"
)

// Event is one append-only row. Payload carries event-specific detail
// (query text, clicked URL, unified_id) as a flat string map so the sink
// doesn't need a schema migration for every new event shape.
type Event struct {
	ID        string
	Type      EventType
	UserID    string
	Payload   map[string]string
	CreatedAt time.Time
}

// Sink is the write-only interface the rest of the core depends on,
// letting tests substitute a no-op or in-memory implementation without
// pulling in Postgres.
type Sink interface {
	Append(ctx context.Context, evt Event) error
}

// PostgresSink is the production Sink, writing to the interaction_log
// table created by migrations/.
type PostgresSink struct {
	db *store.PostgresDB
}

func NewPostgresSink(db *store.PostgresDB) *PostgresSink {
	return &PostgresSink{db: db}
}

func (s *PostgresSink) Append(ctx context.Context, evt Event) error {
	if evt.ID == "" {
		evt.ID = uuid.New().String()
	}
	if evt.CreatedAt.IsZero() {
		evt.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO interaction_log (id, event_type, user_id, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := s.db.Pool.Exec(ctx, query, evt.ID, string(evt.Type), evt.UserID, string(payloadToJSON(evt.Payload)), evt.CreatedAt); err != nil {
		return fmt.Errorf("interactionlog: append event: %w", err)
	}
	return nil
}

// NoopSink discards every event. Used when interaction logging is disabled
// in configuration — callers never need a nil check.
type NoopSink struct{}

func (NoopSink) Append(context.Context, Event) error { return nil }

func payloadToJSON(payload map[string]string) []byte {
	if payload == nil {
		return []byte("{}")
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return []byte("{}")
	}
	return encoded
}
