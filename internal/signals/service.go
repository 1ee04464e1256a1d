package signals

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/imadgeboyega/kiekky-discovery/internal/heat"
)

var (
	ErrUnknownSignalType = errors.New("unknown signal type")
	ErrInvalidTarget     = errors.New("signal target must be another user")
)

// SwipeObserver is notified after a right-swipe signal has been aggregated,
// letting the preference learner detect threshold crossings.
type SwipeObserver interface {
	NotifyRightSwipe(ctx context.Context, userID int64)
}

type Service interface {
	RecordSignal(ctx context.Context, actorID int64, dto *RecordSignalDTO) (*Signal, error)
	GetBehaviorProfile(ctx context.Context, userID int64) (*BehaviorProfile, error)
	RecomputeProfile(ctx context.Context, userID int64, window time.Duration) (*BehaviorProfile, error)
	ListActiveUserIDs(ctx context.Context, window time.Duration) ([]int64, error)

	// Start launches the aggregate-update workers; Flush drains them (tests)
	Start(ctx context.Context)
	Flush()
}

type service struct {
	repo     Repository
	heat     heat.Activator
	swipes   SwipeObserver
	locks    userLocks
	tasks    chan *Signal
	inflight sync.WaitGroup
	workers  int
}

// NewService creates the signal service. heat and swipes may be nil when the
// corresponding cascade is not wired (tests).
func NewService(repo Repository, heatActivator heat.Activator, swipeObserver SwipeObserver) Service {
	return &service{
		repo:    repo,
		heat:    heatActivator,
		swipes:  swipeObserver,
		tasks:   make(chan *Signal, 1024),
		workers: 4,
	}
}

// Start launches the background update workers. The write path only inserts
// the signal row; aggregation and heat cascades run here so latency-sensitive
// writes are decoupled from slower aggregate recompute.
func (s *service) Start(ctx context.Context) {
	for i := 0; i < s.workers; i++ {
		go func() {
			for {
				select {
				case sig := <-s.tasks:
					s.processSignal(context.Background(), sig)
					s.inflight.Done()
				case <-ctx.Done():
					return
				}
			}
		}()
	}
}

// Flush waits until every task enqueued before the call has been processed
func (s *service) Flush() {
	s.inflight.Wait()
}

func (s *service) RecordSignal(ctx context.Context, actorID int64, dto *RecordSignalDTO) (*Signal, error) {
	sigType := SignalType(dto.Type)
	if !sigType.Valid() {
		return nil, ErrUnknownSignalType
	}

	if dto.TargetID == actorID || dto.TargetID <= 0 {
		return nil, ErrInvalidTarget
	}

	occurredAt := time.Now().UTC()
	if dto.OccurredAt != nil {
		occurredAt = dto.OccurredAt.UTC()
	}

	var metadata json.RawMessage
	if len(dto.Metadata) > 0 {
		raw, err := json.Marshal(dto.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to encode signal metadata: %w", err)
		}
		metadata = raw
	}

	sig := &Signal{
		ID:         uuid.New(),
		ActorID:    actorID,
		TargetID:   dto.TargetID,
		Type:       sigType,
		Weight:     sigType.Weight(),
		Metadata:   metadata,
		OccurredAt: occurredAt,
	}

	// The signal must be durable before the caller is acknowledged.
	if err := s.repo.InsertSignal(ctx, sig); err != nil {
		return nil, fmt.Errorf("failed to persist signal: %w", err)
	}

	RecordSignalWritten(string(sigType))

	// Aggregation is decoupled from the write path. If the queue is full the
	// task is processed inline rather than dropped.
	s.inflight.Add(1)
	select {
	case s.tasks <- sig:
	default:
		s.processSignal(ctx, sig)
		s.inflight.Done()
	}

	return sig, nil
}

// processSignal runs the incremental aggregate update and the event cascades.
// A failed incremental update is retried once; permanent failure is logged
// and left for the nightly batch recompute to correct.
func (s *service) processSignal(ctx context.Context, sig *Signal) {
	if err := s.applyIncremental(ctx, sig); err != nil {
		log.Printf("signals: incremental update failed for signal %s, retrying: %v", sig.ID, err)
		if err := s.applyIncremental(ctx, sig); err != nil {
			RecordAggregateFailure()
			log.Printf("signals: incremental update failed permanently for signal %s: %v", sig.ID, err)
		}
	}

	s.cascadeHeat(ctx, sig)

	if s.swipes != nil && sig.Type == SignalSwipeRight {
		s.swipes.NotifyRightSwipe(ctx, sig.ActorID)
	}
}

// applyIncremental folds one signal into both sides' profiles under
// per-user locks. Cross-user writes need no coordination.
func (s *service) applyIncremental(ctx context.Context, sig *Signal) error {
	if err := s.updateProfile(ctx, sig.ActorID, sig, true); err != nil {
		return err
	}
	return s.updateProfile(ctx, sig.TargetID, sig, false)
}

func (s *service) updateProfile(ctx context.Context, userID int64, sig *Signal, asActor bool) error {
	mu := s.locks.lock(userID)
	defer mu.Unlock()

	now := time.Now().UTC()

	profile, err := s.repo.GetBehaviorProfile(ctx, userID)
	if err != nil {
		return err
	}
	if profile == nil {
		// Stamped at creation so the snapshot never exposes a zero
		// time before the first batch recompute.
		profile = &BehaviorProfile{UserID: userID, LastRecomputedAt: now}
	}

	profile.applySignal(sig, asActor)
	profile.refreshRates(now)

	return s.repo.UpsertBehaviorProfile(ctx, profile)
}

// cascadeHeat maps emotionally salient signals onto heat activations
func (s *service) cascadeHeat(ctx context.Context, sig *Signal) {
	if s.heat == nil {
		return
	}

	switch sig.Type {
	case SignalMatchCreated:
		// A new match is salient for both sides of the pair.
		s.activateHeat(ctx, sig.ActorID, heat.TriggerMatchReceived)
		s.activateHeat(ctx, sig.TargetID, heat.TriggerMatchReceived)
	case SignalGiftSent:
		s.activateHeat(ctx, sig.TargetID, heat.TriggerGiftReceived)
	case SignalCallEnded:
		trigger := heat.TriggerCallEnded
		if isPaidSession(sig.Metadata) {
			trigger = heat.TriggerPaidSessionEnded
		}
		s.activateHeat(ctx, sig.ActorID, trigger)
		s.activateHeat(ctx, sig.TargetID, trigger)
	}
}

func (s *service) activateHeat(ctx context.Context, userID int64, trigger heat.Trigger) {
	if _, err := s.heat.ActivateHeat(ctx, userID, trigger); err != nil {
		log.Printf("signals: heat activation failed for user %d: %v", userID, err)
	}
}

func isPaidSession(metadata json.RawMessage) bool {
	if len(metadata) == 0 {
		return false
	}
	var m struct {
		Paid bool `json:"paid"`
	}
	if err := json.Unmarshal(metadata, &m); err != nil {
		return false
	}
	return m.Paid
}

func (s *service) GetBehaviorProfile(ctx context.Context, userID int64) (*BehaviorProfile, error) {
	profile, err := s.repo.GetBehaviorProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		// New user: zero-value profile, never an error
		return &BehaviorProfile{UserID: userID, LastRecomputedAt: time.Now().UTC()}, nil
	}

	// The stored recency score goes stale between recomputes
	profile.ActivityRecencyScore = recencyScore(profile.LastSignalAt, time.Now().UTC())

	return profile, nil
}

// RecomputeProfile is the authoritative batch path: it replays the signal
// log for the window and replaces the snapshot. Replaying the same log
// always yields the same profile.
func (s *service) RecomputeProfile(ctx context.Context, userID int64, window time.Duration) (*BehaviorProfile, error) {
	since := time.Now().UTC().Add(-window)

	asActor, err := s.repo.ListSignalsByActor(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load actor signals: %w", err)
	}

	asTarget, err := s.repo.ListSignalsByTarget(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load target signals: %w", err)
	}

	profile := &BehaviorProfile{UserID: userID}
	for _, sig := range asActor {
		profile.applySignal(sig, true)
	}
	for _, sig := range asTarget {
		profile.applySignal(sig, false)
	}
	now := time.Now().UTC()
	profile.refreshRates(now)
	profile.LastRecomputedAt = now

	mu := s.locks.lock(userID)
	defer mu.Unlock()

	if err := s.repo.UpsertBehaviorProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to store recomputed profile: %w", err)
	}

	RecordProfileRecompute()

	return profile, nil
}

func (s *service) ListActiveUserIDs(ctx context.Context, window time.Duration) ([]int64, error) {
	return s.repo.ListActiveUserIDs(ctx, time.Now().UTC().Add(-window))
}
