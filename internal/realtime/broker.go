package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/ihor-metko/RSP-sub004/internal/logger"
)

// Subscriber is the delivery target for fan-out. Deliver must never block;
// it reports false when the frame was dropped (closed peer or full buffer).
type Subscriber interface {
	Deliver(frame []byte) bool
}

// Broker is the in-process pub/sub hub. It owns room membership
// exclusively; the router and publisher only call into Join, Leave and
// Publish. Membership is guarded by one RWMutex: fan-out takes the read
// lock, so publishes to unrelated rooms proceed concurrently, while joins,
// leaves and disconnect purges serialize against all in-flight publishes.
// A publish therefore never observes a half-removed connection.
type Broker struct {
	log     *logger.Logger
	metrics *Metrics

	mu    sync.RWMutex
	rooms map[Room]map[Subscriber]struct{}
	subs  map[Subscriber]map[Room]struct{}
}

// NewBroker creates an empty broker
func NewBroker(log *logger.Logger, metrics *Metrics) *Broker {
	return &Broker{
		log:     log,
		metrics: metrics,
		rooms:   make(map[Room]map[Subscriber]struct{}),
		subs:    make(map[Subscriber]map[Room]struct{}),
	}
}

// Register joins a subscriber to its initial room set in one step
func (b *Broker) Register(sub Subscriber, rooms []Room) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, room := range rooms {
		b.join(sub, room)
	}
}

// Join adds the subscriber to a room. Joining a room it is already in is
// a no-op.
func (b *Broker) Join(sub Subscriber, room Room) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.join(sub, room)
}

func (b *Broker) join(sub Subscriber, room Room) {
	if b.rooms[room] == nil {
		b.rooms[room] = make(map[Subscriber]struct{})
	}
	b.rooms[room][sub] = struct{}{}
	if b.subs[sub] == nil {
		b.subs[sub] = make(map[Room]struct{})
	}
	b.subs[sub][room] = struct{}{}
}

// Leave removes the subscriber from a room. Leaving a room it is not in
// is a no-op.
func (b *Broker) Leave(sub Subscriber, room Room) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.leave(sub, room)
}

func (b *Broker) leave(sub Subscriber, room Room) {
	delete(b.rooms[room], sub)
	if len(b.rooms[room]) == 0 {
		delete(b.rooms, room)
	}
	delete(b.subs[sub], room)
	if len(b.subs[sub]) == 0 {
		delete(b.subs, sub)
	}
}

// Unregister removes the subscriber from every room atomically with
// respect to concurrent publishes.
func (b *Broker) Unregister(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for room := range b.subs[sub] {
		delete(b.rooms[room], sub)
		if len(b.rooms[room]) == 0 {
			delete(b.rooms, room)
		}
	}
	delete(b.subs, sub)
}

// Rooms returns the rooms the subscriber is currently joined to
func (b *Broker) Rooms(sub Subscriber) []Room {
	b.mu.RLock()
	defer b.mu.RUnlock()
	rooms := make([]Room, 0, len(b.subs[sub]))
	for room := range b.subs[sub] {
		rooms = append(rooms, room)
	}
	return rooms
}

// Publish delivers the event to every current member of every target
// room, and only those. Delivery is at-most-once and best-effort: a
// recipient with a full buffer or a closing socket is skipped without
// affecting the other members. The event is stamped with the room it was
// matched on; a connection joined to several matching rooms receives one
// frame per matching room. Returns the number of frames delivered.
func (b *Broker) Publish(ctx context.Context, event *Event, rooms []Room) int {
	if len(rooms) == 0 {
		return 0
	}

	b.metrics.PublishReceived(ctx)

	seen := make(map[Room]struct{}, len(rooms))
	delivered := 0

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, room := range rooms {
		if _, dup := seen[room]; dup {
			continue
		}
		seen[room] = struct{}{}

		members := b.rooms[room]
		if len(members) == 0 {
			continue
		}

		stamped := *event
		stamped.Room = room
		frame, err := json.Marshal(Message{Type: MsgEvent, Event: &stamped})
		if err != nil {
			b.log.Error("failed to encode event frame",
				zap.String("entity_id", event.EntityID),
				zap.Error(err),
			)
			continue
		}

		for sub := range members {
			if sub.Deliver(frame) {
				delivered++
			} else {
				b.metrics.Dropped(ctx)
			}
		}
	}

	b.metrics.Delivered(ctx, int64(delivered))
	return delivered
}
