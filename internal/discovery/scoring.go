package discovery

import (
	"hash/fnv"
	"math"
	"time"

	"github.com/imadgeboyega/kiekky-discovery/internal/clients"
	"github.com/imadgeboyega/kiekky-discovery/internal/preferences"
	"github.com/imadgeboyega/kiekky-discovery/internal/signals"
)

// neutralScore is the midpoint every component falls back to when its
// input is unavailable. Degraded candidates rank by the components that
// did resolve instead of sinking to the bottom.
const neutralScore = 50.0

// heatLift caps how much heat can raise a final score (+50% at heat 100)
const heatLift = 0.5

// ScoringConfig holds the component weights for the composite score.
// Weights are fixed at startup, never tuned per request.
type ScoringConfig struct {
	BaseWeight       float64
	BehaviorWeight   float64
	SimilarityWeight float64
	RecencyWeight    float64
	PopularityWeight float64
}

// DefaultScoringConfig returns the production weight mix
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		BaseWeight:       0.10,
		BehaviorWeight:   0.35,
		SimilarityWeight: 0.30,
		RecencyWeight:    0.15,
		PopularityWeight: 0.10,
	}
}

// ComponentScores are the five per-candidate components, each in [0,100]
type ComponentScores struct {
	Base       float64
	Behavior   float64
	Similarity float64
	Recency    float64
	Popularity float64
}

// Composite collapses the components into a single weighted score
func (s ComponentScores) Composite(cfg ScoringConfig) float64 {
	return s.Base*cfg.BaseWeight +
		s.Behavior*cfg.BehaviorWeight +
		s.Similarity*cfg.SimilarityWeight +
		s.Recency*cfg.RecencyWeight +
		s.Popularity*cfg.PopularityWeight
}

// FinalScore applies the requester's tier boost and heat lift on top of
// the composite. Heat contributes at most +50%, tier boosts never stack.
func FinalScore(composite, tierBoost, currentHeat float64) float64 {
	heatFactor := 1 + (currentHeat/100)*heatLift
	return composite * tierBoost * heatFactor
}

// baseScore is a requester-independent profile quality heuristic:
// completeness dominates, distance proximity and a plausible adult age
// round it out.
func baseScore(c *clients.Candidate) float64 {
	completeness := clampScore(c.CompletionScore * 100)

	var distance float64
	switch {
	case c.DistanceKM <= 5:
		distance = 100
	case c.DistanceKM <= 25:
		distance = 80
	case c.DistanceKM <= 50:
		distance = 60
	case c.DistanceKM <= 100:
		distance = 40
	case c.DistanceKM <= 200:
		distance = 20
	default:
		distance = 10
	}

	age := 0.0
	if c.Age >= 18 && c.Age <= 99 {
		age = 100
	}

	return 0.5*completeness + 0.3*distance + 0.2*age
}

// behaviorScore rates the candidate's own responsiveness and activity,
// independent of who is asking. A missing profile is neutral.
func behaviorScore(p *signals.BehaviorProfile) float64 {
	if p == nil {
		return neutralScore
	}
	return clampScore(0.5*p.ResponseRate*100 +
		0.3*p.ActivityRecencyScore +
		0.2*p.MatchConversionRate*100)
}

// similarityScore matches the candidate against the requester's learned
// preference. Without a preference every candidate gets the neutral
// midpoint. With one, the raw fit is pulled toward neutral in proportion
// to the confidence weight, so low-confidence preferences nudge rather
// than dominate.
func similarityScore(c *clients.Candidate, pref *preferences.LearnedPreference) float64 {
	if pref == nil {
		return neutralScore
	}

	ageFit := 100.0
	if c.Age < pref.AgeMin {
		ageFit = clampScore(100 - 10*float64(pref.AgeMin-c.Age))
	} else if c.Age > pref.AgeMax {
		ageFit = clampScore(100 - 10*float64(c.Age-pref.AgeMax))
	}

	distFit := 100.0
	if pref.MaxDistanceKM > 0 && c.DistanceKM > pref.MaxDistanceKM {
		distFit = clampScore(100 * pref.MaxDistanceKM / c.DistanceKM)
	}

	interestFit := neutralScore
	if len(pref.InterestAffinities) > 0 && len(c.Interests) > 0 {
		shared := 0
		for _, tag := range c.Interests {
			if _, ok := pref.InterestAffinities[tag]; ok {
				shared++
			}
		}
		interestFit = clampScore(100 * float64(shared) / float64(len(c.Interests)))
	}

	raw := 0.4*ageFit + 0.3*distFit + 0.3*interestFit

	return neutralScore + (raw-neutralScore)*pref.Confidence.Weight()
}

// candidateRecencyScore buckets the candidate's last-active time.
// Online-now scores highest and every later bucket scores strictly lower.
func candidateRecencyScore(lastActive, now time.Time) float64 {
	if lastActive.IsZero() {
		return 5
	}
	since := now.Sub(lastActive)
	switch {
	case since < 5*time.Minute:
		return 100
	case since < time.Hour:
		return 90
	case since < 24*time.Hour:
		return 75
	case since < 72*time.Hour:
		return 55
	case since < 7*24*time.Hour:
		return 35
	case since < 30*24*time.Hour:
		return 15
	default:
		return 5
	}
}

// popularityScore log-scales the received-interest bucket so extremely
// popular profiles cannot dominate the mix.
func popularityScore(signal float64) float64 {
	if signal <= 0 {
		return 0
	}
	return clampScore(100 * math.Log1p(signal) / math.Log1p(100))
}

// tieSeed derives a stable per-pair seed for final tie-breaking. The
// same requester sees tied candidates in the same order across requests,
// but different requesters see different orders, so no tied candidate is
// starved globally.
func tieSeed(requesterID, candidateID int64) uint64 {
	h := fnv.New64a()
	var buf [16]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(requesterID >> (8 * i))
		buf[8+i] = byte(candidateID >> (8 * i))
	}
	h.Write(buf[:])
	return h.Sum64()
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
