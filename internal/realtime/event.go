package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
)

// EventKind is the closed set of change kinds this subsystem carries.
// Handling of events switches exhaustively on this set; a new kind needs
// an explicit case everywhere events are consumed.
type EventKind string

const (
	EventCreated      EventKind = "created"
	EventUpdated      EventKind = "updated"
	EventDeleted      EventKind = "deleted"
	EventAvailability EventKind = "availability_changed"
)

// Valid reports whether the kind is one of the known event kinds
func (k EventKind) Valid() bool {
	switch k {
	case EventCreated, EventUpdated, EventDeleted, EventAvailability:
		return true
	}
	return false
}

var (
	// ErrInvalidEvent is returned when an event is missing required fields
	ErrInvalidEvent = errors.New("invalid event")
)

// Event is an immutable fact about one entity change. The payload is
// minimal: enough to identify and coarsely describe the change, never a
// full denormalized view. Version is a monotonically increasing per-entity
// sequence used by consumers to discard stale and duplicate deliveries.
type Event struct {
	Kind     EventKind       `json:"kind"`
	Entity   string          `json:"entity"`
	EntityID string          `json:"entity_id"`
	Version  int64           `json:"version,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	// Room is stamped per delivery with the room the frame was matched on.
	Room Room `json:"room,omitempty"`
}

// Validate checks that the event carries the fields consumers rely on
func (e *Event) Validate() error {
	if !e.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidEvent, e.Kind)
	}
	if e.Entity == "" {
		return fmt.Errorf("%w: missing entity", ErrInvalidEvent)
	}
	if e.EntityID == "" {
		return fmt.Errorf("%w: missing entity id", ErrInvalidEvent)
	}
	switch e.Kind {
	case EventCreated, EventUpdated:
		if e.Version <= 0 {
			return fmt.Errorf("%w: missing version", ErrInvalidEvent)
		}
	}
	return nil
}
