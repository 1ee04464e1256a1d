package heat

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

var ErrUnknownTrigger = errors.New("unknown heat trigger")

// Activator is the narrow interface the signal cascade uses
type Activator interface {
	ActivateHeat(ctx context.Context, userID int64, trigger Trigger) (*HeatState, error)
}

type Service interface {
	Activator

	// GetCurrentHeat returns the decayed heat value, 0 if none or expired.
	// Store errors resolve to 0: heat is an enhancement, never a blocker.
	GetCurrentHeat(ctx context.Context, userID int64) float64

	// SweepExpired removes expired states (hourly maintenance job)
	SweepExpired(ctx context.Context) (int, error)
}

type service struct {
	store    Store
	window   time.Duration
	dailyCap int64
	locks    [64]sync.Mutex
	now      func() time.Time
}

func NewService(store Store, window time.Duration, dailyCap int) Service {
	return &service{
		store:    store,
		window:   window,
		dailyCap: int64(dailyCap),
		now:      time.Now,
	}
}

// ActivateHeat raises the user's heat for the trigger's window. Re-triggering
// before expiry replaces the state only when the new trigger starts hotter
// than the current one began; lower or equal triggers are ignored, so heat
// never stacks. A daily activation cap blocks rapid self-triggering.
func (s *service) ActivateHeat(ctx context.Context, userID int64, trigger Trigger) (*HeatState, error) {
	if !trigger.Valid() {
		return nil, ErrUnknownTrigger
	}

	mu := &s.locks[uint64(userID)%uint64(len(s.locks))]
	mu.Lock()
	defer mu.Unlock()

	now := s.now().UTC()

	current, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if current != nil && !current.Expired(now) && trigger.InitialHeat() <= current.InitialHeat {
		// No stacking: the existing hotter state stands
		return current, nil
	}

	day := now.Format("2006-01-02")
	count, err := s.store.IncrDailyCount(ctx, userID, day)
	if err != nil {
		return nil, err
	}
	if count > s.dailyCap {
		RecordCapHit()
		return current, nil
	}

	state := &HeatState{
		UserID:      userID,
		InitialHeat: trigger.InitialHeat(),
		TriggeredBy: trigger,
		ActivatedAt: now,
		ExpiresAt:   now.Add(s.window),
	}

	if err := s.store.Set(ctx, state, s.window); err != nil {
		return nil, err
	}

	RecordActivation(string(trigger))

	return state, nil
}

func (s *service) GetCurrentHeat(ctx context.Context, userID int64) float64 {
	state, err := s.store.Get(ctx, userID)
	if err != nil {
		log.Printf("heat: lookup failed for user %d, treating as cold: %v", userID, err)
		return 0
	}
	if state == nil {
		return 0
	}

	return state.HeatAt(s.now().UTC())
}

func (s *service) SweepExpired(ctx context.Context) (int, error) {
	return s.store.SweepExpired(ctx, s.now().UTC())
}
