package preferences

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Confidence tiers scale how strongly a learned preference is applied in
// scoring. Never an on/off switch: each tier maps to a weight so ranking
// changes smoothly as swipe volume grows.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Weight returns the scoring multiplier for the confidence tier
func (c Confidence) Weight() float64 {
	switch c {
	case ConfidenceHigh:
		return 1.0
	case ConfidenceMedium:
		return 0.75
	default:
		return 0.5
	}
}

// ConfidenceForVolume tiers confidence by right-swipe volume.
// The tier never exceeds what the volume justifies.
func ConfidenceForVolume(swipes int64) Confidence {
	switch {
	case swipes > 300:
		return ConfidenceHigh
	case swipes >= 100:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// AffinityMap holds interest tag frequencies, stored as JSONB
type AffinityMap map[string]int

func (m AffinityMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func (m *AffinityMap) Scan(src interface{}) error {
	if src == nil {
		*m = AffinityMap{}
		return nil
	}
	raw, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into AffinityMap", src)
	}
	return json.Unmarshal(raw, m)
}

// LearnedPreference is a user's inferred attraction pattern, derived from
// right-swipe behavior. Overwritten on recompute, never versioned.
type LearnedPreference struct {
	UserID             int64       `json:"user_id" db:"user_id"`
	AgeMin             int         `json:"age_min" db:"age_min"`
	AgeMax             int         `json:"age_max" db:"age_max"`
	MaxDistanceKM      float64     `json:"max_distance_km" db:"max_distance_km"`
	InterestAffinities AffinityMap `json:"interest_affinities" db:"interest_affinities"`
	Confidence         Confidence  `json:"confidence" db:"confidence"`
	SwipeSample        int64       `json:"swipe_sample" db:"swipe_sample"`
	LearnedAt          time.Time   `json:"learned_at" db:"learned_at"`
}
