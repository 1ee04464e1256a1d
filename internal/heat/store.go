package heat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// Store persists per-user heat state and the daily activation counter
type Store interface {
	Get(ctx context.Context, userID int64) (*HeatState, error)
	Set(ctx context.Context, state *HeatState, ttl time.Duration) error
	Delete(ctx context.Context, userID int64) error

	// IncrDailyCount bumps and returns the user's activation count for day
	IncrDailyCount(ctx context.Context, userID int64, day string) (int64, error)

	// SweepExpired removes states past their window, returning how many
	SweepExpired(ctx context.Context, now time.Time) (int, error)
}

// redisStore keeps heat state in Redis. The key TTL matches the heat window
// so Redis expiry physically deletes state shortly after it decays to zero;
// the hourly sweep is a no-op here.
type redisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) Store {
	return &redisStore{client: client}
}

func heatKey(userID int64) string {
	return fmt.Sprintf("heat:%d", userID)
}

func capKey(userID int64, day string) string {
	return fmt.Sprintf("heat:cap:%d:%s", userID, day)
}

func (s *redisStore) Get(ctx context.Context, userID int64) (*HeatState, error) {
	raw, err := s.client.Get(ctx, heatKey(userID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read heat state: %w", err)
	}

	var state HeatState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("failed to decode heat state: %w", err)
	}

	return &state, nil
}

func (s *redisStore) Set(ctx context.Context, state *HeatState, ttl time.Duration) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode heat state: %w", err)
	}

	if err := s.client.Set(ctx, heatKey(state.UserID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write heat state: %w", err)
	}

	return nil
}

func (s *redisStore) Delete(ctx context.Context, userID int64) error {
	return s.client.Del(ctx, heatKey(userID)).Err()
}

func (s *redisStore) IncrDailyCount(ctx context.Context, userID int64, day string) (int64, error) {
	key := capKey(userID, day)

	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to bump activation count: %w", err)
	}

	if count == 1 {
		// First activation of the day sets the counter's lifetime
		s.client.Expire(ctx, key, 25*time.Hour)
	}

	return count, nil
}

func (s *redisStore) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	// Redis key TTLs handle physical deletion
	return 0, nil
}

// MemoryStore is an in-memory Store for tests and development mode
type MemoryStore struct {
	mu     sync.Mutex
	states map[int64]*HeatState
	counts map[string]int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states: make(map[int64]*HeatState),
		counts: make(map[string]int64),
	}
}

func (s *MemoryStore) Get(ctx context.Context, userID int64) (*HeatState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[userID]
	if !ok {
		return nil, nil
	}
	cp := *state
	return &cp, nil
}

func (s *MemoryStore) Set(ctx context.Context, state *HeatState, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *state
	s.states[state.UserID] = &cp
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, userID)
	return nil
}

func (s *MemoryStore) IncrDailyCount(ctx context.Context, userID int64, day string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := capKey(userID, day)
	s.counts[key]++
	return s.counts[key], nil
}

func (s *MemoryStore) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, state := range s.states {
		if state.Expired(now) {
			delete(s.states, id)
			removed++
		}
	}

	// Daily counters for past days can no longer gate anything. Redis
	// expires these via TTL; here they are dropped by hand. Yesterday's
	// key is kept to mirror the 25h Redis lifetime.
	today := now.Format("2006-01-02")
	yesterday := now.AddDate(0, 0, -1).Format("2006-01-02")
	for key := range s.counts {
		day := key[strings.LastIndex(key, ":")+1:]
		if day != today && day != yesterday {
			delete(s.counts, key)
		}
	}

	return removed, nil
}
