package realtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Sequencer issues the monotonically increasing per-entity version markers
// attached to create and update events. A single issuing point keeps the
// markers comparable; wall clocks are deliberately not used.
type Sequencer interface {
	Next(ctx context.Context, entity, entityID string) (int64, error)
}

// RedisSequencer issues versions from a Redis counter per entity. All
// publishers in the process share the same counter, so markers stay
// monotonic across concurrent mutations.
type RedisSequencer struct {
	client *redis.Client
}

// NewRedisSequencer creates a new RedisSequencer
func NewRedisSequencer(client *redis.Client) *RedisSequencer {
	return &RedisSequencer{client: client}
}

// Next returns the next version marker for the entity
func (s *RedisSequencer) Next(ctx context.Context, entity, entityID string) (int64, error) {
	key := fmt.Sprintf("seq:%s:%s", entity, entityID)
	version, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to issue version for %s/%s: %w", entity, entityID, err)
	}
	return version, nil
}

// MemorySequencer issues versions from in-process counters, for tests and
// single-node development.
type MemorySequencer struct {
	mu       sync.Mutex
	counters map[string]int64
}

// NewMemorySequencer creates a new MemorySequencer
func NewMemorySequencer() *MemorySequencer {
	return &MemorySequencer{counters: make(map[string]int64)}
}

// Next returns the next version marker for the entity
func (s *MemorySequencer) Next(_ context.Context, entity, entityID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := entity + ":" + entityID
	s.counters[key]++
	return s.counters[key], nil
}
