package tiers

import (
	"time"

	"github.com/imadgeboyega/kiekky-discovery/internal/clients"
	"github.com/imadgeboyega/kiekky-discovery/internal/signals"
)

// Tier names the exposure classification assigned to a user
type Tier string

const (
	TierPremium          Tier = "premium"
	TierHighMonetization Tier = "high_monetization"
	TierHighEngagement   Tier = "high_engagement"
	TierNewAccount       Tier = "new_account"
	TierLowPopularity    Tier = "low_popularity_protected"
	TierStandard         Tier = "standard"
)

// Inputs is everything a tier rule may look at
type Inputs struct {
	Profile *signals.BehaviorProfile
	Account *clients.AccountMetadata
	Paid    *clients.PaidActivity
	Now     time.Time
}

// Rule is one entry in the ordered tier table
type Rule struct {
	Tier       Tier
	Multiplier float64
	Matches    func(in Inputs) bool
}

// DefaultRules is the production tier table, highest priority first.
// Exactly one rule applies per user: the first match wins, so multipliers
// never stack and no user can compound boosts.
func DefaultRules() []Rule {
	return []Rule{
		{
			Tier:       TierPremium,
			Multiplier: 1.50,
			Matches: func(in Inputs) bool {
				return in.Account != nil && in.Account.IsPremium
			},
		},
		{
			Tier:       TierHighMonetization,
			Multiplier: 1.35,
			Matches: func(in Inputs) bool {
				if in.Paid == nil {
					return false
				}
				return in.Paid.PaidInteractions >= 20 || in.Paid.MeetingsBooked >= 3
			},
		},
		{
			Tier:       TierHighEngagement,
			Multiplier: 1.25,
			Matches: func(in Inputs) bool {
				if in.Profile == nil {
					return false
				}
				return in.Profile.ResponseRate >= 0.6 && in.Profile.Matches >= 10
			},
		},
		{
			Tier:       TierNewAccount,
			Multiplier: 1.20,
			Matches: func(in Inputs) bool {
				if in.Account == nil || in.Account.CreatedAt.IsZero() {
					return false
				}
				return in.Now.Sub(in.Account.CreatedAt) < 14*24*time.Hour
			},
		},
		{
			// Counterweight against rich-get-richer feedback: users who give
			// out interest but receive little get a floor of exposure.
			Tier:       TierLowPopularity,
			Multiplier: 1.15,
			Matches: func(in Inputs) bool {
				if in.Profile == nil {
					return false
				}
				given := in.Profile.ProfileViews + in.Profile.SwipesRight + in.Profile.SwipesLeft
				return given >= 20 && in.Profile.RightSwipeReceivedRate() < 0.02
			},
		},
	}
}

// Classifier evaluates the ordered tier table
type Classifier struct {
	rules []Rule
}

func NewClassifier(rules []Rule) *Classifier {
	return &Classifier{rules: rules}
}

// Classify returns the first matching tier and its multiplier.
// Users matching no rule are standard with multiplier 1.0.
func (c *Classifier) Classify(in Inputs) (Tier, float64) {
	for _, rule := range c.rules {
		if rule.Matches(in) {
			return rule.Tier, rule.Multiplier
		}
	}
	return TierStandard, 1.0
}
