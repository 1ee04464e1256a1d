package tiers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imadgeboyega/kiekky-discovery/internal/clients"
	"github.com/imadgeboyega/kiekky-discovery/internal/signals"
)

var testNow = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

func oldAccount(premium bool) *clients.AccountMetadata {
	return &clients.AccountMetadata{
		UserID:    1,
		IsPremium: premium,
		CreatedAt: testNow.Add(-90 * 24 * time.Hour),
	}
}

func TestClassifyDefaultsToStandard(t *testing.T) {
	c := NewClassifier(DefaultRules())

	tier, multiplier := c.Classify(Inputs{Now: testNow})
	assert.Equal(t, TierStandard, tier)
	assert.Equal(t, 1.0, multiplier)
}

func TestPremiumOutranksEverything(t *testing.T) {
	c := NewClassifier(DefaultRules())

	// Premium member who would also qualify for monetization and engagement
	tier, multiplier := c.Classify(Inputs{
		Account: oldAccount(true),
		Paid:    &clients.PaidActivity{UserID: 1, PaidInteractions: 50, MeetingsBooked: 5},
		Profile: &signals.BehaviorProfile{UserID: 1, ResponseRate: 0.9, Matches: 40},
		Now:     testNow,
	})
	assert.Equal(t, TierPremium, tier)
	assert.Equal(t, 1.50, multiplier)
}

func TestHighMonetizationThresholds(t *testing.T) {
	c := NewClassifier(DefaultRules())

	tier, multiplier := c.Classify(Inputs{
		Account: oldAccount(false),
		Paid:    &clients.PaidActivity{UserID: 1, PaidInteractions: 20},
		Now:     testNow,
	})
	assert.Equal(t, TierHighMonetization, tier)
	assert.Equal(t, 1.35, multiplier)

	// Meetings alone also qualify
	tier, _ = c.Classify(Inputs{
		Account: oldAccount(false),
		Paid:    &clients.PaidActivity{UserID: 1, MeetingsBooked: 3},
		Now:     testNow,
	})
	assert.Equal(t, TierHighMonetization, tier)

	// Just under both thresholds does not
	tier, _ = c.Classify(Inputs{
		Account: oldAccount(false),
		Paid:    &clients.PaidActivity{UserID: 1, PaidInteractions: 19, MeetingsBooked: 2},
		Now:     testNow,
	})
	assert.Equal(t, TierStandard, tier)
}

func TestHighEngagementNeedsBothRateAndMatches(t *testing.T) {
	c := NewClassifier(DefaultRules())

	tier, multiplier := c.Classify(Inputs{
		Account: oldAccount(false),
		Profile: &signals.BehaviorProfile{UserID: 1, ResponseRate: 0.6, Matches: 10},
		Now:     testNow,
	})
	assert.Equal(t, TierHighEngagement, tier)
	assert.Equal(t, 1.25, multiplier)

	tier, _ = c.Classify(Inputs{
		Account: oldAccount(false),
		Profile: &signals.BehaviorProfile{UserID: 1, ResponseRate: 0.9, Matches: 9},
		Now:     testNow,
	})
	assert.Equal(t, TierStandard, tier)
}

func TestNewAccountRamp(t *testing.T) {
	c := NewClassifier(DefaultRules())

	tier, multiplier := c.Classify(Inputs{
		Account: &clients.AccountMetadata{UserID: 1, CreatedAt: testNow.Add(-13 * 24 * time.Hour)},
		Now:     testNow,
	})
	assert.Equal(t, TierNewAccount, tier)
	assert.Equal(t, 1.20, multiplier)

	tier, _ = c.Classify(Inputs{
		Account: &clients.AccountMetadata{UserID: 1, CreatedAt: testNow.Add(-14 * 24 * time.Hour)},
		Now:     testNow,
	})
	assert.Equal(t, TierStandard, tier)
}

func TestLowPopularityProtection(t *testing.T) {
	c := NewClassifier(DefaultRules())

	// Gives out plenty of interest, receives almost none
	protected := &signals.BehaviorProfile{
		UserID:              1,
		ProfileViews:        40,
		SwipesRight:         30,
		SwipesLeft:          30,
		RightSwipesReceived: 1,
	}
	tier, multiplier := c.Classify(Inputs{Account: oldAccount(false), Profile: protected, Now: testNow})
	assert.Equal(t, TierLowPopularity, tier)
	assert.Equal(t, 1.15, multiplier)

	// Identical activity but a normal received rate stays standard
	popular := &signals.BehaviorProfile{
		UserID:              2,
		ProfileViews:        40,
		SwipesRight:         30,
		SwipesLeft:          30,
		RightSwipesReceived: 10,
	}
	tier, _ = c.Classify(Inputs{Account: oldAccount(false), Profile: popular, Now: testNow})
	assert.Equal(t, TierStandard, tier)

	// Too little given-out activity cannot qualify for protection
	quiet := &signals.BehaviorProfile{UserID: 3, ProfileViews: 5, RightSwipesReceived: 0}
	tier, _ = c.Classify(Inputs{Account: oldAccount(false), Profile: quiet, Now: testNow})
	assert.Equal(t, TierStandard, tier)
}

func TestExactlyOneTierApplies(t *testing.T) {
	c := NewClassifier(DefaultRules())

	// New account that also qualifies for low-popularity protection:
	// the higher-priority new-account rule wins, multipliers never stack.
	tier, multiplier := c.Classify(Inputs{
		Account: &clients.AccountMetadata{UserID: 1, CreatedAt: testNow.Add(-24 * time.Hour)},
		Profile: &signals.BehaviorProfile{
			UserID:       1,
			ProfileViews: 30,
			SwipesRight:  20,
		},
		Now: testNow,
	})
	assert.Equal(t, TierNewAccount, tier)
	assert.Equal(t, 1.20, multiplier)
}

func TestServiceDegradesToStandardOnLookupFailures(t *testing.T) {
	svc := NewService(
		NewClassifier(DefaultRules()),
		failingProfileSource{},
		failingDirectory{},
		failingBilling{},
		NewMemoryStore(),
		nil,
	)

	boost := svc.GetTierBoost(context.Background(), 1)
	assert.Equal(t, 1.0, boost)
}

func TestServiceDispatchesTierChange(t *testing.T) {
	profiles := stubProfileSource{profile: &signals.BehaviorProfile{UserID: 1}}
	directory := clients.NewMockDirectoryClient()
	directory.Accounts[1] = &clients.AccountMetadata{UserID: 1, CreatedAt: time.Now().Add(-90 * 24 * time.Hour)}
	billing := clients.NewMockBillingClient()
	notify := clients.NewMockNotifyClient()

	svc := NewService(NewClassifier(DefaultRules()), profiles, directory, billing, NewMemoryStore(), notify)
	ctx := context.Background()

	// First classification establishes a baseline without an event
	tier, _ := svc.GetTier(ctx, 1)
	require.Equal(t, TierStandard, tier)
	assert.Empty(t, notify.Dispatched())

	// Becoming premium changes the tier and fires the event
	directory.Accounts[1].IsPremium = true
	tier, boost := svc.GetTier(ctx, 1)
	require.Equal(t, TierPremium, tier)
	assert.Equal(t, 1.50, boost)

	events := notify.Dispatched()
	require.Len(t, events, 1)
	assert.Equal(t, clients.EventTierChanged, events[0].Type)
	assert.Equal(t, string(TierStandard), events[0].Attributes["from"])
	assert.Equal(t, string(TierPremium), events[0].Attributes["to"])
}

// Failing stubs for degradation tests

type failingProfileSource struct{}

func (failingProfileSource) GetBehaviorProfile(ctx context.Context, userID int64) (*signals.BehaviorProfile, error) {
	return nil, context.DeadlineExceeded
}

type stubProfileSource struct {
	profile *signals.BehaviorProfile
}

func (s stubProfileSource) GetBehaviorProfile(ctx context.Context, userID int64) (*signals.BehaviorProfile, error) {
	return s.profile, nil
}

type failingDirectory struct{}

func (failingDirectory) FetchCandidatePool(ctx context.Context, requesterID int64, filters *clients.PoolFilters) ([]*clients.Candidate, error) {
	return nil, context.DeadlineExceeded
}

func (failingDirectory) GetAccountMetadata(ctx context.Context, userID int64) (*clients.AccountMetadata, error) {
	return nil, context.DeadlineExceeded
}

type failingBilling struct{}

func (failingBilling) GetPaidActivity(ctx context.Context, userID int64) (*clients.PaidActivity, error) {
	return nil, context.DeadlineExceeded
}
