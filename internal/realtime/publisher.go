package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/ihor-metko/RSP-sub004/internal/logger"
)

// Publisher is the internal call surface business mutations use to emit
// events. Callers invoke Publish only after the underlying change is
// durably committed, never speculatively.
type Publisher struct {
	broker *Broker
	seq    Sequencer
	log    *logger.Logger
}

// NewPublisher creates a new Publisher
func NewPublisher(broker *Broker, seq Sequencer, log *logger.Logger) *Publisher {
	return &Publisher{broker: broker, seq: seq, log: log}
}

// Publish emits one typed event to the given target rooms. An empty or
// nil room set is a silent no-op: the stream is an enhancement layer on
// top of authoritative refetch, not a required path. When version is zero
// for a create or update, a fresh marker is issued from the sequencer.
func (p *Publisher) Publish(ctx context.Context, kind EventKind, entity, entityID string, version int64, payload json.RawMessage, rooms []Room) error {
	if len(rooms) == 0 {
		return nil
	}

	if version == 0 && (kind == EventCreated || kind == EventUpdated) {
		if p.seq == nil {
			return fmt.Errorf("%w: no version and no sequencer", ErrInvalidEvent)
		}
		issued, err := p.seq.Next(ctx, entity, entityID)
		if err != nil {
			return err
		}
		version = issued
	}

	event := &Event{
		Kind:     kind,
		Entity:   entity,
		EntityID: entityID,
		Version:  version,
		Payload:  payload,
	}
	if err := event.Validate(); err != nil {
		return err
	}

	delivered := p.broker.Publish(ctx, event, rooms)
	p.log.Debug("event published",
		zap.String("kind", string(kind)),
		zap.String("entity", entity),
		zap.String("entity_id", entityID),
		zap.Int64("version", version),
		zap.Int("delivered", delivered),
	)
	return nil
}

// TargetRooms builds the typical target set for a club-scoped mutation:
// the owning club's room, the owning organization's room, and the
// personal room of each affected user. Empty identifiers are skipped.
func TargetRooms(clubID, orgID string, userIDs ...string) []Room {
	rooms := make([]Room, 0, 2+len(userIDs))
	if clubID != "" {
		rooms = append(rooms, ClubRoom(clubID))
	}
	if orgID != "" {
		rooms = append(rooms, OrgRoom(orgID))
	}
	for _, userID := range userIDs {
		if userID != "" {
			rooms = append(rooms, PlayerRoom(userID))
		}
	}
	return rooms
}
