package tiers

import (
	"context"
	"log"
	"time"

	"github.com/imadgeboyega/kiekky-discovery/internal/clients"
	"github.com/imadgeboyega/kiekky-discovery/internal/signals"
)

// ProfileSource is the slice of the signal service the classifier needs
type ProfileSource interface {
	GetBehaviorProfile(ctx context.Context, userID int64) (*signals.BehaviorProfile, error)
}

type Service interface {
	// GetTierBoost returns the user's exposure multiplier, 1.0 by default.
	// Lookup failures degrade individual inputs to nil rather than erroring:
	// a user with no reachable billing data simply cannot match the
	// monetization tier on this evaluation.
	GetTierBoost(ctx context.Context, userID int64) float64

	// GetTier exposes the assignment itself (observability, tests)
	GetTier(ctx context.Context, userID int64) (Tier, float64)
}

type service struct {
	classifier *Classifier
	profiles   ProfileSource
	directory  clients.DirectoryClient
	billing    clients.BillingClient
	store      Store
	notify     clients.NotifyClient
}

func NewService(
	classifier *Classifier,
	profiles ProfileSource,
	directory clients.DirectoryClient,
	billing clients.BillingClient,
	store Store,
	notify clients.NotifyClient,
) Service {
	return &service{
		classifier: classifier,
		profiles:   profiles,
		directory:  directory,
		billing:    billing,
		store:      store,
		notify:     notify,
	}
}

func (s *service) GetTierBoost(ctx context.Context, userID int64) float64 {
	_, multiplier := s.GetTier(ctx, userID)
	return multiplier
}

func (s *service) GetTier(ctx context.Context, userID int64) (Tier, float64) {
	in := Inputs{Now: time.Now().UTC()}

	if profile, err := s.profiles.GetBehaviorProfile(ctx, userID); err == nil {
		in.Profile = profile
	} else {
		log.Printf("tiers: behavior profile lookup failed for user %d: %v", userID, err)
	}

	if account, err := s.directory.GetAccountMetadata(ctx, userID); err == nil {
		in.Account = account
	} else {
		log.Printf("tiers: account metadata lookup failed for user %d: %v", userID, err)
	}

	if paid, err := s.billing.GetPaidActivity(ctx, userID); err == nil {
		in.Paid = paid
	} else {
		log.Printf("tiers: billing lookup failed for user %d: %v", userID, err)
	}

	tier, multiplier := s.classifier.Classify(in)
	RecordAssignment(string(tier))

	s.reportChange(ctx, userID, tier)

	return tier, multiplier
}

// reportChange tells the notification pipeline when a user's tier moves.
// Informational only: failures here never affect the assignment.
func (s *service) reportChange(ctx context.Context, userID int64, tier Tier) {
	if s.store == nil {
		return
	}

	last, err := s.store.GetLastTier(ctx, userID)
	if err != nil {
		log.Printf("tiers: last-tier lookup failed for user %d: %v", userID, err)
		return
	}

	if last == tier {
		return
	}

	if err := s.store.SetLastTier(ctx, userID, tier); err != nil {
		log.Printf("tiers: last-tier write failed for user %d: %v", userID, err)
		return
	}

	if last != "" && s.notify != nil {
		s.notify.Dispatch(&clients.DispatchEvent{
			UserID: userID,
			Type:   clients.EventTierChanged,
			Attributes: map[string]string{
				"from": string(last),
				"to":   string(tier),
			},
		})
	}
}
