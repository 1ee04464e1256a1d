package clients

import "time"

// Candidate is a read-only profile record sourced from the profile
// directory service. The ranking engine never mutates candidates.
type Candidate struct {
	UserID            int64     `json:"user_id"`
	DisplayName       string    `json:"display_name"`
	Age               int       `json:"age"`
	Latitude          float64   `json:"latitude"`
	Longitude         float64   `json:"longitude"`
	DistanceKM        float64   `json:"distance_km"` // distance from the requester, computed by the directory
	Interests         []string  `json:"interests"`
	CompletionScore   float64   `json:"completion_score"` // 0..1
	IsPremium         bool      `json:"is_premium"`
	AccountCreatedAt  time.Time `json:"account_created_at"`
	LastActiveAt      time.Time `json:"last_active_at"`
	PopularitySignal  float64   `json:"popularity_signal"` // received-interest bucket, 0..100
	BlockedBy         []int64   `json:"blocked_by"`
	BannedOrSuspended bool      `json:"banned_or_suspended"`
}

// PoolFilters narrows the raw candidate pool at the directory side.
// Only behavioral and status attributes are permitted here; protected
// personal characteristics must never be added.
type PoolFilters struct {
	MinAge        int     `json:"min_age"`
	MaxAge        int     `json:"max_age"`
	MaxDistanceKM float64 `json:"max_distance_km"`
	Limit         int     `json:"limit"`
}

// AccountMetadata is the slice of directory data the tier classifier needs.
type AccountMetadata struct {
	UserID    int64     `json:"user_id"`
	IsPremium bool      `json:"is_premium"`
	CreatedAt time.Time `json:"created_at"`
}
