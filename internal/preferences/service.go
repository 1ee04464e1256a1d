package preferences

import (
	"context"
	"fmt"
	"log"

	"github.com/imadgeboyega/kiekky-discovery/internal/clients"
)

// recomputeStride is how many additional right swipes accumulate before an
// existing preference is re-derived outside the nightly batch.
const recomputeStride = 25

type Service interface {
	// GetLearnedPreference returns the user's preference and whether one exists
	GetLearnedPreference(ctx context.Context, userID int64) (*LearnedPreference, bool, error)

	// RecomputeFor re-derives the preference from the signal log (batch path)
	RecomputeFor(ctx context.Context, userID int64) error

	// NotifyRightSwipe is the signal-cascade hook for threshold crossings
	NotifyRightSwipe(ctx context.Context, userID int64)
}

type service struct {
	repo   Repository
	cfg    LearnerConfig
	notify clients.NotifyClient
}

func NewService(repo Repository, cfg LearnerConfig, notify clients.NotifyClient) Service {
	return &service{
		repo:   repo,
		cfg:    cfg,
		notify: notify,
	}
}

func (s *service) GetLearnedPreference(ctx context.Context, userID int64) (*LearnedPreference, bool, error) {
	pref, err := s.repo.GetPreference(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	if pref == nil {
		return nil, false, nil
	}
	return pref, true, nil
}

func (s *service) RecomputeFor(ctx context.Context, userID int64) error {
	rightSwipes, err := s.repo.CountRightSwipes(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to count right swipes: %w", err)
	}

	contexts, err := s.repo.ListRightSwipeContexts(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load swipe contexts: %w", err)
	}

	pref, ok := Learn(userID, contexts, rightSwipes, s.cfg)
	if !ok {
		// Below threshold or nothing usable: leave any existing preference
		// alone rather than degrading it.
		return nil
	}

	existing, err := s.repo.GetPreference(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to read existing preference: %w", err)
	}

	if err := s.repo.UpsertPreference(ctx, pref); err != nil {
		return fmt.Errorf("failed to store preference: %w", err)
	}

	RecordPreferenceLearned(string(pref.Confidence))

	// First crossing into "learned preferences active" is informational
	// for the notification pipeline.
	if existing == nil && s.notify != nil {
		s.notify.Dispatch(&clients.DispatchEvent{
			UserID: userID,
			Type:   clients.EventPreferencesActive,
			Attributes: map[string]string{
				"confidence": string(pref.Confidence),
			},
		})
	}

	return nil
}

// NotifyRightSwipe re-derives the preference when the user first crosses the
// learning threshold, then every recomputeStride swipes after that. The
// nightly batch remains authoritative for everything in between.
func (s *service) NotifyRightSwipe(ctx context.Context, userID int64) {
	rightSwipes, err := s.repo.CountRightSwipes(ctx, userID)
	if err != nil {
		log.Printf("preferences: swipe count failed for user %d: %v", userID, err)
		return
	}

	if rightSwipes < int64(s.cfg.MinSwipes) {
		return
	}

	existing, err := s.repo.GetPreference(ctx, userID)
	if err != nil {
		log.Printf("preferences: lookup failed for user %d: %v", userID, err)
		return
	}

	if existing != nil && rightSwipes-existing.SwipeSample < recomputeStride {
		return
	}

	if err := s.RecomputeFor(ctx, userID); err != nil {
		log.Printf("preferences: recompute failed for user %d: %v", userID, err)
	}
}
