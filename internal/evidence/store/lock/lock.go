// Package lock guards the single-writer-per-draft rule: only one in-flight
// mutation (attach, bind, seal, abandon) is permitted per draft at a time.
// A second concurrent attempt observes sentinel.ErrLocked and is surfaced
// as a state conflict, never allowed to race.
package lock

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	id "evigate/pkg/domain"
	"evigate/pkg/platform/sentinel"
)

// Store hands out short-lived exclusive draft locks.
type Store interface {
	// Acquire takes the lock for draftID or returns sentinel.ErrLocked.
	// The returned release function is idempotent.
	Acquire(ctx context.Context, draftID id.DraftID) (release func(), err error)
}

// InMemory tracks in-flight drafts in a map. Sufficient for a single node;
// multi-node deployments use the Redis store.
type InMemory struct {
	mu       sync.Mutex
	inFlight map[id.DraftID]struct{}
}

func NewInMemory() *InMemory {
	return &InMemory{inFlight: make(map[id.DraftID]struct{})}
}

func (s *InMemory) Acquire(ctx context.Context, draftID id.DraftID) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, busy := s.inFlight[draftID]; busy {
		return nil, sentinel.ErrLocked
	}
	s.inFlight[draftID] = struct{}{}

	var once sync.Once
	release := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.inFlight, draftID)
			s.mu.Unlock()
		})
	}
	return release, nil
}

// RedisStore takes draft locks with SET NX and a TTL so a crashed writer
// cannot hold a draft forever.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Acquire(ctx context.Context, draftID id.DraftID) (func(), error) {
	key := "evigate:draftlock:" + draftID.String()
	ok, err := s.client.SetNX(ctx, key, "1", s.ttl).Result()
	if err != nil {
		return nil, sentinel.ErrUnavailable
	}
	if !ok {
		return nil, sentinel.ErrLocked
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			// Best effort; the TTL reclaims the lock if this fails.
			_ = s.client.Del(context.WithoutCancel(ctx), key).Err()
		})
	}
	return release, nil
}
