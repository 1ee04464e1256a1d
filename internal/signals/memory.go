package signals

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepository is an in-memory Repository used in tests and development
// mode. Not suitable for production: nothing is durable.
type MemoryRepository struct {
	mu       sync.RWMutex
	log      []*Signal
	profiles map[int64]*BehaviorProfile
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		profiles: make(map[int64]*BehaviorProfile),
	}
}

func (r *MemoryRepository) InsertSignal(ctx context.Context, s *Signal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.log = append(r.log, &cp)
	return nil
}

func (r *MemoryRepository) ListSignalsByActor(ctx context.Context, actorID int64, since time.Time) ([]*Signal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Signal
	for _, s := range r.log {
		if s.ActorID == actorID && !s.OccurredAt.Before(since) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OccurredAt.Before(out[j].OccurredAt) })
	return out, nil
}

func (r *MemoryRepository) ListSignalsByTarget(ctx context.Context, targetID int64, since time.Time) ([]*Signal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Signal
	for _, s := range r.log {
		if s.TargetID == targetID && !s.OccurredAt.Before(since) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OccurredAt.Before(out[j].OccurredAt) })
	return out, nil
}

func (r *MemoryRepository) CountSignalsByActorAndType(ctx context.Context, actorID int64, t SignalType) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var count int64
	for _, s := range r.log {
		if s.ActorID == actorID && s.Type == t {
			count++
		}
	}
	return count, nil
}

func (r *MemoryRepository) GetBehaviorProfile(ctx context.Context, userID int64) (*BehaviorProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[userID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *MemoryRepository) UpsertBehaviorProfile(ctx context.Context, p *BehaviorProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.profiles[p.UserID] = &cp
	return nil
}

func (r *MemoryRepository) ListActiveUserIDs(ctx context.Context, since time.Time) ([]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[int64]bool)
	var ids []int64
	for _, s := range r.log {
		if !s.OccurredAt.Before(since) && !seen[s.ActorID] {
			seen[s.ActorID] = true
			ids = append(ids, s.ActorID)
		}
	}
	return ids, nil
}
