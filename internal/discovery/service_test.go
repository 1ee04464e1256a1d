package discovery

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imadgeboyega/kiekky-discovery/internal/clients"
	"github.com/imadgeboyega/kiekky-discovery/internal/preferences"
	"github.com/imadgeboyega/kiekky-discovery/internal/signals"
)

// Stubbed score-input sources

type stubProfiles struct {
	profiles map[int64]*signals.BehaviorProfile
	err      error
}

func (s stubProfiles) GetBehaviorProfile(ctx context.Context, userID int64) (*signals.BehaviorProfile, error) {
	if s.err != nil {
		return nil, s.err
	}
	if p, ok := s.profiles[userID]; ok {
		return p, nil
	}
	return &signals.BehaviorProfile{UserID: userID}, nil
}

type stubPrefs struct {
	pref *preferences.LearnedPreference
	err  error
}

func (s stubPrefs) GetLearnedPreference(ctx context.Context, userID int64) (*preferences.LearnedPreference, bool, error) {
	if s.err != nil {
		return nil, false, s.err
	}
	return s.pref, s.pref != nil, nil
}

type stubHeat struct{ value float64 }

func (s stubHeat) GetCurrentHeat(ctx context.Context, userID int64) float64 { return s.value }

type stubTiers struct{ boost float64 }

func (s stubTiers) GetTierBoost(ctx context.Context, userID int64) float64 { return s.boost }

func testCandidate(id int64, popularity float64) *clients.Candidate {
	return &clients.Candidate{
		UserID:           id,
		DisplayName:      fmt.Sprintf("user-%d", id),
		Age:              28,
		DistanceKM:       10,
		Interests:        []string{"hiking"},
		CompletionScore:  0.8,
		LastActiveAt:     time.Now().Add(-30 * time.Minute),
		PopularitySignal: popularity,
	}
}

func newTestService(directory clients.DirectoryClient, trust clients.TrustClient, prefs PreferenceSource, heatSrc HeatSource, tierSrc TierSource) Service {
	return NewService(directory, trust, stubProfiles{}, prefs, heatSrc, tierSrc, Options{
		PoolSize:      200,
		FanoutTimeout: 300 * time.Millisecond,
		Scoring:       DefaultScoringConfig(),
	})
}

func TestFeedRanksHigherPopularityFirst(t *testing.T) {
	directory := clients.NewMockDirectoryClient()
	directory.Candidates = []*clients.Candidate{
		testCandidate(2, 20),
		testCandidate(3, 90),
	}
	svc := newTestService(directory, clients.NewMockTrustClient(), stubPrefs{}, stubHeat{}, stubTiers{boost: 1.0})

	page, err := svc.GetDiscoveryFeed(context.Background(), 1, 10, "", nil)
	require.NoError(t, err)
	require.Len(t, page.Candidates, 2)
	assert.Equal(t, int64(3), page.Candidates[0].UserID)
	assert.Equal(t, int64(2), page.Candidates[1].UserID)
}

// Two candidates identical except popularity must differ by exactly the
// weighted popularity delta in their composite scores.
func TestCompositeDifferenceIsWeightedPopularityDelta(t *testing.T) {
	cfg := DefaultScoringConfig()

	a := ComponentScores{Base: 70, Behavior: 50, Similarity: 50, Recency: 90, Popularity: popularityScore(90)}
	b := ComponentScores{Base: 70, Behavior: 50, Similarity: 50, Recency: 90, Popularity: popularityScore(20)}

	wantDelta := cfg.PopularityWeight * (popularityScore(90) - popularityScore(20))
	assert.InDelta(t, wantDelta, a.Composite(cfg)-b.Composite(cfg), 1e-9)
}

func TestPopularityIsLogScaled(t *testing.T) {
	// Equal absolute increases matter less at the top of the scale
	lowGain := popularityScore(20) - popularityScore(10)
	highGain := popularityScore(90) - popularityScore(80)
	assert.Greater(t, lowGain, highGain)
	assert.Zero(t, popularityScore(0))
	assert.InDelta(t, 100, popularityScore(100), 0.001)
}

func TestSafetyFilterDropsBannedAndBlocked(t *testing.T) {
	banned := testCandidate(2, 50)
	banned.BannedOrSuspended = true

	blockedBy := testCandidate(3, 50)
	blockedBy.BlockedBy = []int64{1}

	mutuallyBlocked := testCandidate(4, 50)
	clean := testCandidate(5, 50)

	directory := clients.NewMockDirectoryClient()
	directory.Candidates = []*clients.Candidate{banned, blockedBy, mutuallyBlocked, clean}

	trust := clients.NewMockTrustClient()
	trust.BlockPair(1, 4)

	svc := newTestService(directory, trust, stubPrefs{}, stubHeat{}, stubTiers{boost: 1.0})

	page, err := svc.GetDiscoveryFeed(context.Background(), 1, 10, "", nil)
	require.NoError(t, err)
	require.Len(t, page.Candidates, 1)
	assert.Equal(t, int64(5), page.Candidates[0].UserID)
}

// The directory's ban flag is only a snapshot: a ban recorded at the
// trust service after the pool was built must still drop the candidate.
func TestTrustReportedBanDropsCandidate(t *testing.T) {
	stale := testCandidate(2, 50) // directory still thinks this user is fine
	clean := testCandidate(3, 50)

	directory := clients.NewMockDirectoryClient()
	directory.Candidates = []*clients.Candidate{stale, clean}

	trust := clients.NewMockTrustClient()
	trust.Banned[2] = true

	svc := newTestService(directory, trust, stubPrefs{}, stubHeat{}, stubTiers{boost: 1.0})

	page, err := svc.GetDiscoveryFeed(context.Background(), 1, 10, "", nil)
	require.NoError(t, err)
	require.Len(t, page.Candidates, 1)
	assert.Equal(t, int64(3), page.Candidates[0].UserID)
}

func TestExcludeListIsHonored(t *testing.T) {
	directory := clients.NewMockDirectoryClient()
	directory.Candidates = []*clients.Candidate{
		testCandidate(2, 50),
		testCandidate(3, 50),
		testCandidate(4, 50),
	}
	svc := newTestService(directory, clients.NewMockTrustClient(), stubPrefs{}, stubHeat{}, stubTiers{boost: 1.0})

	page, err := svc.GetDiscoveryFeed(context.Background(), 1, 10, "", []int64{2, 4})
	require.NoError(t, err)
	require.Len(t, page.Candidates, 1)
	assert.Equal(t, int64(3), page.Candidates[0].UserID)
}

func TestFeedDegradesToNeutralWhenPreferenceLookupFails(t *testing.T) {
	directory := clients.NewMockDirectoryClient()
	directory.Candidates = []*clients.Candidate{testCandidate(2, 50), testCandidate(3, 80)}
	svc := newTestService(directory, clients.NewMockTrustClient(),
		stubPrefs{err: context.DeadlineExceeded}, stubHeat{}, stubTiers{boost: 1.0})

	page, err := svc.GetDiscoveryFeed(context.Background(), 1, 10, "", nil)
	require.NoError(t, err)
	assert.Len(t, page.Candidates, 2)
}

// hangingPrefs blocks until its context expires, simulating a stalled
// dependency that only the fan-out deadline can unblock.
type hangingPrefs struct{}

func (hangingPrefs) GetLearnedPreference(ctx context.Context, userID int64) (*preferences.LearnedPreference, bool, error) {
	<-ctx.Done()
	return nil, false, ctx.Err()
}

func TestStalledLookupIsBoundedByFanoutDeadline(t *testing.T) {
	directory := clients.NewMockDirectoryClient()
	directory.Candidates = []*clients.Candidate{testCandidate(2, 50)}

	svc := NewService(directory, clients.NewMockTrustClient(), stubProfiles{}, hangingPrefs{}, stubHeat{}, stubTiers{boost: 1.0}, Options{
		PoolSize:      200,
		FanoutTimeout: 50 * time.Millisecond,
		Scoring:       DefaultScoringConfig(),
	})

	started := time.Now()
	page, err := svc.GetDiscoveryFeed(context.Background(), 1, 10, "", nil)
	require.NoError(t, err)
	assert.Len(t, page.Candidates, 1)
	assert.Less(t, time.Since(started), 2*time.Second)
}

func TestSimilarityNeutralWithoutPreference(t *testing.T) {
	c := testCandidate(2, 50)
	assert.Equal(t, neutralScore, similarityScore(c, nil))
}

// For identical candidates, the similarity contribution moves further
// from neutral as preference confidence grows.
func TestSimilarityScalesWithConfidence(t *testing.T) {
	goodFit := testCandidate(2, 50) // age 28, 10km, hiking

	base := &preferences.LearnedPreference{
		AgeMin:             25,
		AgeMax:             31,
		MaxDistanceKM:      30,
		InterestAffinities: preferences.AffinityMap{"hiking": 10},
	}

	var prev float64
	for i, confidence := range []preferences.Confidence{
		preferences.ConfidenceLow,
		preferences.ConfidenceMedium,
		preferences.ConfidenceHigh,
	} {
		pref := *base
		pref.Confidence = confidence
		score := similarityScore(goodFit, &pref)

		assert.Greater(t, score, neutralScore)
		if i > 0 {
			assert.Greater(t, score, prev)
		}
		prev = score
	}
}

func TestSimilarityPenalizesPoorFitMoreAtHighConfidence(t *testing.T) {
	poorFit := testCandidate(2, 50)
	poorFit.Age = 55
	poorFit.DistanceKM = 400
	poorFit.Interests = []string{"opera"}

	pref := &preferences.LearnedPreference{
		AgeMin:             25,
		AgeMax:             31,
		MaxDistanceKM:      30,
		InterestAffinities: preferences.AffinityMap{"hiking": 10},
		Confidence:         preferences.ConfidenceLow,
	}
	lowScore := similarityScore(poorFit, pref)

	pref.Confidence = preferences.ConfidenceHigh
	highScore := similarityScore(poorFit, pref)

	assert.Less(t, lowScore, neutralScore)
	assert.Less(t, highScore, lowScore)
}

func TestHeatBoostsFinalScoreAtMostFiftyPercent(t *testing.T) {
	composite := 60.0
	assert.InDelta(t, 60.0, FinalScore(composite, 1.0, 0), 1e-9)
	assert.InDelta(t, 90.0, FinalScore(composite, 1.0, 100), 1e-9)
	assert.InDelta(t, 75.0, FinalScore(composite, 1.0, 50), 1e-9)
}

func TestFeedFlagsHeatedRequester(t *testing.T) {
	directory := clients.NewMockDirectoryClient()
	directory.Candidates = []*clients.Candidate{testCandidate(2, 50)}

	svc := newTestService(directory, clients.NewMockTrustClient(), stubPrefs{}, stubHeat{value: 80}, stubTiers{boost: 1.0})
	page, err := svc.GetDiscoveryFeed(context.Background(), 1, 10, "", nil)
	require.NoError(t, err)
	assert.True(t, page.IsHeated)

	svc = newTestService(directory, clients.NewMockTrustClient(), stubPrefs{}, stubHeat{}, stubTiers{boost: 1.0})
	page, err = svc.GetDiscoveryFeed(context.Background(), 1, 10, "", nil)
	require.NoError(t, err)
	assert.False(t, page.IsHeated)
}

func TestPaginationCoversPoolWithoutDuplicates(t *testing.T) {
	directory := clients.NewMockDirectoryClient()
	for i := int64(2); i <= 8; i++ {
		directory.Candidates = append(directory.Candidates, testCandidate(i, float64(i*10)))
	}
	svc := newTestService(directory, clients.NewMockTrustClient(), stubPrefs{}, stubHeat{}, stubTiers{boost: 1.0})
	ctx := context.Background()

	seen := make(map[int64]bool)
	cursor := ""
	pages := 0
	for {
		page, err := svc.GetDiscoveryFeed(ctx, 1, 3, cursor, nil)
		require.NoError(t, err)
		for _, c := range page.Candidates {
			assert.False(t, seen[c.UserID], "candidate %d served twice", c.UserID)
			seen[c.UserID] = true
		}
		pages++
		if !page.HasMore {
			assert.Empty(t, page.NextCursor)
			break
		}
		require.NotEmpty(t, page.NextCursor)
		cursor = page.NextCursor
	}

	assert.Len(t, seen, 7)
	assert.Equal(t, 3, pages)
}

func TestInvalidCursorIsRejected(t *testing.T) {
	directory := clients.NewMockDirectoryClient()
	directory.Candidates = []*clients.Candidate{testCandidate(2, 50)}
	svc := newTestService(directory, clients.NewMockTrustClient(), stubPrefs{}, stubHeat{}, stubTiers{boost: 1.0})

	_, err := svc.GetDiscoveryFeed(context.Background(), 1, 10, "not-a-cursor", nil)
	assert.ErrorIs(t, err, ErrInvalidCursor)
}

func TestTiedCandidatesOrderIsStablePerRequester(t *testing.T) {
	directory := clients.NewMockDirectoryClient()
	sharedActive := time.Now().Add(-time.Hour)
	for i := int64(2); i <= 6; i++ {
		c := testCandidate(i, 50)
		c.LastActiveAt = sharedActive
		directory.Candidates = append(directory.Candidates, c)
	}
	svc := newTestService(directory, clients.NewMockTrustClient(), stubPrefs{}, stubHeat{}, stubTiers{boost: 1.0})
	ctx := context.Background()

	first, err := svc.GetDiscoveryFeed(ctx, 1, 10, "", nil)
	require.NoError(t, err)
	second, err := svc.GetDiscoveryFeed(ctx, 1, 10, "", nil)
	require.NoError(t, err)

	require.Equal(t, len(first.Candidates), len(second.Candidates))
	for i := range first.Candidates {
		assert.Equal(t, first.Candidates[i].UserID, second.Candidates[i].UserID)
	}
}

func TestTieSeedDiffersAcrossRequesters(t *testing.T) {
	assert.NotEqual(t, tieSeed(1, 42), tieSeed(2, 42))
	assert.Equal(t, tieSeed(1, 42), tieSeed(1, 42))
}

func TestRecencyBucketsAreMonotone(t *testing.T) {
	now := time.Now()
	ages := []time.Duration{
		time.Minute,
		30 * time.Minute,
		12 * time.Hour,
		48 * time.Hour,
		5 * 24 * time.Hour,
		20 * 24 * time.Hour,
		60 * 24 * time.Hour,
	}

	prev := 101.0
	for _, age := range ages {
		score := candidateRecencyScore(now.Add(-age), now)
		assert.LessOrEqual(t, score, prev)
		prev = score
	}
}
