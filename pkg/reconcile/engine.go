// Package reconcile merges pushed booking events into a consistent local
// collection. Arrival order is untrusted: duplicates, reordering and stale
// deliveries are expected steady-state inputs, and the per-entity version
// marker, not arrival order, decides what is applied.
package reconcile

import (
	"encoding/json"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/ihor-metko/RSP-sub004/internal/realtime"
)

// Record is the engine's working copy of one domain entity: the payload
// plus the last-applied version marker.
type Record struct {
	ID      string          `json:"id"`
	Version int64           `json:"version"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Outcome describes what Apply did with one event
type Outcome string

const (
	// OutcomeApplied means the record was inserted or overwritten.
	OutcomeApplied Outcome = "applied"
	// OutcomeDiscarded means the event's version was not strictly newer.
	OutcomeDiscarded Outcome = "discarded"
	// OutcomeRemoved means a delete event removed the record.
	OutcomeRemoved Outcome = "removed"
	// OutcomeNoop means a delete event found nothing to remove.
	OutcomeNoop Outcome = "noop"
	// OutcomeStaleMarked means an availability hint marked a scope stale.
	OutcomeStaleMarked Outcome = "stale_marked"
	// OutcomeRejected means the event was malformed and dropped.
	OutcomeRejected Outcome = "rejected"
)

// availabilityHint is the coarse payload of availability events. It is a
// hint only: it identifies a scope to refetch, never enough data to
// rebuild availability locally.
type availabilityHint struct {
	CourtID string `json:"court_id"`
	Date    string `json:"date"`
}

// Engine owns one local collection for one mounted view. Instances are
// independent; two views never share an engine. The transport's delivery
// goroutine and the view's readers may race, so the engine locks
// internally anyway.
type Engine struct {
	log *zap.Logger

	mu      sync.Mutex
	records map[string]Record
	stale   map[string]struct{}
}

// New creates an empty engine. A nil logger disables diagnostics.
func New(log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		log:     log,
		records: make(map[string]Record),
		stale:   make(map[string]struct{}),
	}
}

// Apply folds one inbound event into the collection.
//
// Create and update events apply iff their version marker is strictly
// greater than the stored one, with absence counting as the lowest
// possible value; anything else is discarded silently. This makes apply
// idempotent and order-independent. Delete events remove unconditionally
// and tolerate absence. Availability events only mark a scope stale.
func (e *Engine) Apply(event *realtime.Event) Outcome {
	if err := event.Validate(); err != nil {
		e.log.Warn("malformed event dropped", zap.Error(err))
		return OutcomeRejected
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	switch event.Kind {
	case realtime.EventCreated, realtime.EventUpdated:
		current, exists := e.records[event.EntityID]
		if exists && event.Version <= current.Version {
			return OutcomeDiscarded
		}
		e.records[event.EntityID] = Record{
			ID:      event.EntityID,
			Version: event.Version,
			Data:    event.Payload,
		}
		return OutcomeApplied

	case realtime.EventDeleted:
		if _, exists := e.records[event.EntityID]; !exists {
			return OutcomeNoop
		}
		delete(e.records, event.EntityID)
		return OutcomeRemoved

	case realtime.EventAvailability:
		e.stale[availabilityScope(event)] = struct{}{}
		return OutcomeStaleMarked
	}

	return OutcomeRejected
}

// availabilityScope derives the stale-scope key, one court on one day
// when the hint carries both, the entity id otherwise.
func availabilityScope(event *realtime.Event) string {
	var hint availabilityHint
	if len(event.Payload) > 0 {
		if err := json.Unmarshal(event.Payload, &hint); err == nil && hint.CourtID != "" && hint.Date != "" {
			return "court:" + hint.CourtID + ":" + hint.Date
		}
	}
	return event.Entity + ":" + event.EntityID
}

// Merge reconciles a freshly fetched authoritative snapshot with the
// live-patched collection. Per entity the higher version wins; entities
// only in the snapshot are added; entities only in the live set are
// dropped, because the snapshot is complete for its query scope. The
// operation is commutative and idempotent, so it is safe whenever a
// background refetch lands, regardless of what arrived mid-flight.
func (e *Engine) Merge(fresh []Record) {
	e.mu.Lock()
	defer e.mu.Unlock()

	merged := make(map[string]Record, len(fresh))
	for _, rec := range fresh {
		if live, ok := e.records[rec.ID]; ok && live.Version > rec.Version {
			merged[rec.ID] = live
			continue
		}
		merged[rec.ID] = rec
	}
	e.records = merged
}

// Get returns the record for one entity
func (e *Engine) Get(id string) (Record, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec, ok := e.records[id]
	return rec, ok
}

// Len returns the number of records held
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.records)
}

// Snapshot returns a copy of the collection sorted by entity id
func (e *Engine) Snapshot() []Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Record, 0, len(e.records))
	for _, rec := range e.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// StaleScopes returns the scopes flagged by availability hints, sorted.
// The consumer decides whether and when to refetch them.
func (e *Engine) StaleScopes() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.stale))
	for scope := range e.stale {
		out = append(out, scope)
	}
	sort.Strings(out)
	return out
}

// ClearStale unmarks a scope, typically after its refetch completed
func (e *Engine) ClearStale(scope string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.stale, scope)
}
