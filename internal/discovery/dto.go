package discovery

import "time"

// FeedCandidate is the client-facing view of a ranked candidate.
// The final score stays internal; only the heat flag is surfaced so
// clients can badge boosted profiles.
type FeedCandidate struct {
	UserID       int64     `json:"user_id"`
	DisplayName  string    `json:"display_name"`
	Age          int       `json:"age"`
	DistanceKM   float64   `json:"distance_km"`
	Interests    []string  `json:"interests,omitempty"`
	LastActiveAt time.Time `json:"last_active_at"`
}

// FeedPage is one page of the ranked discovery feed
type FeedPage struct {
	Candidates []*FeedCandidate `json:"candidates"`
	NextCursor string           `json:"next_cursor,omitempty"`
	HasMore    bool             `json:"has_more"`
	IsHeated   bool             `json:"is_heated"`
}
