package tiers

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-redis/redis/v8"
)

// Store remembers the last tier assigned to a user so tier changes can be
// reported to the notification pipeline. Assignment itself is always
// computed on demand; this is not primary truth.
type Store interface {
	GetLastTier(ctx context.Context, userID int64) (Tier, error)
	SetLastTier(ctx context.Context, userID int64, tier Tier) error
}

type redisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) Store {
	return &redisStore{client: client}
}

func tierKey(userID int64) string {
	return fmt.Sprintf("tier:last:%d", userID)
}

func (s *redisStore) GetLastTier(ctx context.Context, userID int64) (Tier, error) {
	val, err := s.client.Get(ctx, tierKey(userID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return Tier(val), nil
}

func (s *redisStore) SetLastTier(ctx context.Context, userID int64, tier Tier) error {
	return s.client.Set(ctx, tierKey(userID), string(tier), 0).Err()
}

// MemoryStore is an in-memory Store for tests and development mode
type MemoryStore struct {
	mu    sync.RWMutex
	tiers map[int64]Tier
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tiers: make(map[int64]Tier)}
}

func (s *MemoryStore) GetLastTier(ctx context.Context, userID int64) (Tier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tiers[userID], nil
}

func (s *MemoryStore) SetLastTier(ctx context.Context, userID int64, tier Tier) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tiers[userID] = tier
	return nil
}
