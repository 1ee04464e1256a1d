package discovery

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/imadgeboyega/kiekky-discovery/internal/clients"
	"github.com/imadgeboyega/kiekky-discovery/internal/preferences"
	"github.com/imadgeboyega/kiekky-discovery/internal/signals"
)

// Narrow read interfaces over the sibling services. The ranker only ever
// reads; every source has a documented neutral fallback.
type (
	ProfileSource interface {
		GetBehaviorProfile(ctx context.Context, userID int64) (*signals.BehaviorProfile, error)
	}

	PreferenceSource interface {
		GetLearnedPreference(ctx context.Context, userID int64) (*preferences.LearnedPreference, bool, error)
	}

	HeatSource interface {
		GetCurrentHeat(ctx context.Context, userID int64) float64
	}

	TierSource interface {
		GetTierBoost(ctx context.Context, userID int64) float64
	}
)

// Options bounds the ranking pipeline
type Options struct {
	PoolSize      int           // raw candidates fetched per request
	FanoutTimeout time.Duration // budget for the concurrent lookup stage
	Scoring       ScoringConfig
}

type Service interface {
	GetDiscoveryFeed(ctx context.Context, userID int64, limit int, cursor string, excludeIDs []int64) (*FeedPage, error)
}

type service struct {
	directory clients.DirectoryClient
	trust     clients.TrustClient
	profiles  ProfileSource
	prefs     PreferenceSource
	heat      HeatSource
	tiers     TierSource
	opts      Options
}

func NewService(
	directory clients.DirectoryClient,
	trust clients.TrustClient,
	profiles ProfileSource,
	prefs PreferenceSource,
	heatSource HeatSource,
	tierSource TierSource,
	opts Options,
) Service {
	return &service{
		directory: directory,
		trust:     trust,
		profiles:  profiles,
		prefs:     prefs,
		heat:      heatSource,
		tiers:     tierSource,
		opts:      opts,
	}
}

// requesterContext is the fan-in of the requester-side lookups
type requesterContext struct {
	preference *preferences.LearnedPreference
	heat       float64
	tierBoost  float64
}

type rankedCandidate struct {
	candidate *clients.Candidate
	profile   *signals.BehaviorProfile
	scores    ComponentScores
	final     float64
	seed      uint64
}

// GetDiscoveryFeed runs the full ranking pipeline: pool fetch, safety
// filter, concurrent score-input lookups, weighted scoring with tier and
// heat boosts, stable sort and cursor pagination. Individual lookup
// failures degrade to neutral defaults; only a failed pool fetch errors
// the request.
func (s *service) GetDiscoveryFeed(ctx context.Context, userID int64, limit int, cursor string, excludeIDs []int64) (*FeedPage, error) {
	started := time.Now()
	defer func() { ObserveFeedLatency(time.Since(started).Seconds()) }()
	RecordFeedRequest()

	cur, err := decodeCursor(cursor)
	if err != nil {
		return nil, err
	}

	// Score-input lookups share one deadline and degrade to neutral on
	// expiry. The pool fetch has no neutral fallback, so it runs on the
	// request context, overlapped with the requester-side lookups.
	fanCtx, cancel := context.WithTimeout(ctx, s.opts.FanoutTimeout)
	defer cancel()

	var (
		pool    []*clients.Candidate
		poolErr error
		req     requesterContext
	)

	var stage sync.WaitGroup
	stage.Add(2)
	go func() {
		defer stage.Done()
		pool, poolErr = s.directory.FetchCandidatePool(ctx, userID, &clients.PoolFilters{Limit: s.opts.PoolSize})
	}()
	go func() {
		defer stage.Done()
		req = s.fetchRequesterContext(fanCtx, userID)
	}()
	stage.Wait()

	if poolErr != nil {
		return nil, fmt.Errorf("failed to fetch candidate pool: %w", poolErr)
	}

	excluded := make(map[int64]struct{}, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = struct{}{}
	}

	ranked := s.scoreCandidates(fanCtx, userID, pool, excluded, req)

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].final != ranked[j].final {
			return ranked[i].final > ranked[j].final
		}
		if !ranked[i].candidate.LastActiveAt.Equal(ranked[j].candidate.LastActiveAt) {
			return ranked[i].candidate.LastActiveAt.After(ranked[j].candidate.LastActiveAt)
		}
		return ranked[i].seed < ranked[j].seed
	})

	return paginate(ranked, cur, limit, req.heat > 0), nil
}

// fetchRequesterContext resolves preference, heat and tier concurrently.
// Heat and tier degrade inside their services; the preference lookup
// degrades here to "no preference", which scores as the neutral midpoint.
func (s *service) fetchRequesterContext(ctx context.Context, userID int64) requesterContext {
	req := requesterContext{tierBoost: 1.0}

	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		pref, exists, err := s.prefs.GetLearnedPreference(ctx, userID)
		if err != nil {
			RecordDegradedLookup("preference")
			log.Printf("discovery: preference lookup failed for user %d: %v", userID, err)
			return
		}
		if exists {
			req.preference = pref
		}
	}()

	go func() {
		defer wg.Done()
		req.heat = s.heat.GetCurrentHeat(ctx, userID)
	}()

	go func() {
		defer wg.Done()
		req.tierBoost = s.tiers.GetTierBoost(ctx, userID)
	}()

	wg.Wait()
	return req
}

// scoreCandidates applies the safety filter and computes final scores.
// Per-candidate lookups run concurrently under the shared deadline.
//
// The safety filter reads behavioral and status attributes only: ban and
// suspension state, block relationships, and the caller's exclude list.
// Protected personal characteristics are never filter or scoring inputs.
func (s *service) scoreCandidates(ctx context.Context, userID int64, pool []*clients.Candidate, excluded map[int64]struct{}, req requesterContext) []*rankedCandidate {
	eligible := make([]*clients.Candidate, 0, len(pool))
	for _, c := range pool {
		if c.UserID == userID {
			continue
		}
		if _, skip := excluded[c.UserID]; skip {
			continue
		}
		if c.BannedOrSuspended {
			RecordSafetyFiltered("banned_or_suspended")
			continue
		}
		if containsID(c.BlockedBy, userID) {
			RecordSafetyFiltered("blocked")
			continue
		}
		eligible = append(eligible, c)
	}

	results := make([]*rankedCandidate, len(eligible))

	var wg sync.WaitGroup
	wg.Add(len(eligible))
	for i, c := range eligible {
		go func(i int, c *clients.Candidate) {
			defer wg.Done()

			// The directory's ban flag is a snapshot; the trust service
			// is authoritative, so both are consulted. Safety checks
			// fail closed: an unverifiable candidate is dropped, never
			// shown.
			banned, err := s.trust.IsBannedOrSuspended(ctx, c.UserID)
			if err != nil {
				RecordSafetyFiltered("trust_unavailable")
				return
			}
			if banned {
				RecordSafetyFiltered("banned_or_suspended")
				return
			}

			blocked, err := s.trust.IsMutuallyBlocked(ctx, userID, c.UserID)
			if err != nil {
				RecordSafetyFiltered("trust_unavailable")
				return
			}
			if blocked {
				RecordSafetyFiltered("blocked")
				return
			}

			profile, err := s.profiles.GetBehaviorProfile(ctx, c.UserID)
			if err != nil {
				RecordDegradedLookup("behavior_profile")
				profile = nil
			}

			results[i] = &rankedCandidate{
				candidate: c,
				profile:   profile,
			}
		}(i, c)
	}
	wg.Wait()

	now := time.Now().UTC()
	ranked := make([]*rankedCandidate, 0, len(results))
	for _, rc := range results {
		if rc == nil {
			continue
		}

		rc.scores = ComponentScores{
			Base:       baseScore(rc.candidate),
			Behavior:   behaviorScore(rc.profile),
			Similarity: similarityScore(rc.candidate, req.preference),
			Recency:    candidateRecencyScore(rc.candidate.LastActiveAt, now),
			Popularity: popularityScore(rc.candidate.PopularitySignal),
		}
		rc.final = FinalScore(rc.scores.Composite(s.opts.Scoring), req.tierBoost, req.heat)
		rc.seed = tieSeed(userID, rc.candidate.UserID)

		ranked = append(ranked, rc)
	}

	return ranked
}

func paginate(ranked []*rankedCandidate, cur feedCursor, limit int, isHeated bool) *FeedPage {
	start := cur.Offset
	if start > len(ranked) {
		start = len(ranked)
	}
	end := start + limit
	if end > len(ranked) {
		end = len(ranked)
	}

	page := &FeedPage{
		Candidates: make([]*FeedCandidate, 0, end-start),
		HasMore:    end < len(ranked),
		IsHeated:   isHeated,
	}

	for _, rc := range ranked[start:end] {
		page.Candidates = append(page.Candidates, &FeedCandidate{
			UserID:       rc.candidate.UserID,
			DisplayName:  rc.candidate.DisplayName,
			Age:          rc.candidate.Age,
			DistanceKM:   rc.candidate.DistanceKM,
			Interests:    rc.candidate.Interests,
			LastActiveAt: rc.candidate.LastActiveAt,
		})
	}

	if page.HasMore {
		page.NextCursor = encodeCursor(feedCursor{Offset: end})
	}

	return page
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
