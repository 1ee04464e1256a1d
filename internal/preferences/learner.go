package preferences

import (
	"sort"
	"time"

	"github.com/imadgeboyega/kiekky-discovery/internal/signals"
)

// LearnerConfig holds the tunable knobs of preference derivation
type LearnerConfig struct {
	MinSwipes          int     // right-swipe volume required before learning
	AgeTolerance       int     // padding around the mean preferred age
	DistanceMultiplier float64 // multiple of the median right-swiped distance
	MinAffinityCount   int     // interest tags must recur this often
	MinAge             int     // lower bound for any learned age window
}

// DefaultLearnerConfig mirrors the production tuning
func DefaultLearnerConfig() LearnerConfig {
	return LearnerConfig{
		MinSwipes:          60,
		AgeTolerance:       5,
		DistanceMultiplier: 1.5,
		MinAffinityCount:   3,
		MinAge:             18,
	}
}

// Learn derives a preference from the swipe contexts of a user's right
// swipes. Returns false when the sample cannot support a preference:
// below the volume threshold, or no usable candidate context.
func Learn(userID int64, contexts []signals.SwipeContext, rightSwipes int64, cfg LearnerConfig) (*LearnedPreference, bool) {
	if rightSwipes < int64(cfg.MinSwipes) {
		return nil, false
	}

	var ages []int
	var distances []float64
	affinities := AffinityMap{}

	for _, sc := range contexts {
		if sc.TargetAge > 0 {
			ages = append(ages, sc.TargetAge)
		}
		if sc.DistanceKM > 0 {
			distances = append(distances, sc.DistanceKM)
		}
		for _, tag := range sc.SharedInterests {
			affinities[tag]++
		}
	}

	// All-left users meet the volume threshold with nothing to learn from
	if len(ages) == 0 {
		return nil, false
	}

	center := meanInt(ages)
	ageMin := center - cfg.AgeTolerance
	if ageMin < cfg.MinAge {
		ageMin = cfg.MinAge
	}
	ageMax := center + cfg.AgeTolerance

	maxDistance := 0.0
	if len(distances) > 0 {
		maxDistance = median(distances) * cfg.DistanceMultiplier
	}

	for tag, count := range affinities {
		if count < cfg.MinAffinityCount {
			delete(affinities, tag)
		}
	}

	return &LearnedPreference{
		UserID:             userID,
		AgeMin:             ageMin,
		AgeMax:             ageMax,
		MaxDistanceKM:      maxDistance,
		InterestAffinities: affinities,
		Confidence:         ConfidenceForVolume(rightSwipes),
		SwipeSample:        rightSwipes,
		LearnedAt:          time.Now().UTC(),
	}, true
}

func meanInt(values []int) int {
	sum := 0
	for _, v := range values {
		sum += v
	}
	return int(float64(sum)/float64(len(values)) + 0.5)
}

func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
