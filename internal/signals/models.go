package signals

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SignalType identifies a kind of interaction event. The enum is closed:
// RecordSignal rejects anything not listed here.
type SignalType string

const (
	SignalProfileViewLong SignalType = "profile_view_long"
	SignalSwipeRight      SignalType = "swipe_right"
	SignalSwipeLeftFast   SignalType = "swipe_left_fast"
	SignalProfileIgnored  SignalType = "profile_ignored"
	SignalMessageSent     SignalType = "message_sent"
	SignalMessageReply    SignalType = "message_reply"
	SignalPaidChat        SignalType = "paid_chat"
	SignalCallStarted     SignalType = "call_started"
	SignalCallEnded       SignalType = "call_ended"
	SignalGiftSent        SignalType = "gift_sent"
	SignalMatchCreated    SignalType = "match_created"
	SignalMeetingBooked   SignalType = "meeting_booked"
)

// Fixed signed weights per signal type. Engagement positive, rejection negative.
var signalWeights = map[SignalType]float64{
	SignalProfileViewLong: 1,
	SignalSwipeRight:      3,
	SignalSwipeLeftFast:   -2,
	SignalProfileIgnored:  -1,
	SignalMessageSent:     2,
	SignalMessageReply:    4,
	SignalPaidChat:        6,
	SignalCallStarted:     5,
	SignalCallEnded:       5,
	SignalGiftSent:        6,
	SignalMatchCreated:    7,
	SignalMeetingBooked:   8,
}

// Valid reports whether t is part of the closed enum
func (t SignalType) Valid() bool {
	_, ok := signalWeights[t]
	return ok
}

// Weight returns the fixed signed weight for t (0 for unknown types)
func (t SignalType) Weight() float64 {
	return signalWeights[t]
}

// Signal is an immutable interaction event between two users.
// Append-only: signals are never edited or deleted after insert.
type Signal struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	ActorID    int64           `json:"actor_id" db:"actor_id"`
	TargetID   int64           `json:"target_id" db:"target_id"`
	Type       SignalType      `json:"type" db:"signal_type"`
	Weight     float64         `json:"weight" db:"weight"`
	Metadata   json.RawMessage `json:"metadata,omitempty" db:"metadata"`
	OccurredAt time.Time       `json:"occurred_at" db:"occurred_at"`
}

// SwipeContext is the candidate snapshot attached to swipe_right signals.
// The preference learner replays these instead of re-fetching historical
// candidate data from the directory.
type SwipeContext struct {
	TargetAge       int      `json:"target_age,omitempty"`
	DistanceKM      float64  `json:"distance_km,omitempty"`
	SharedInterests []string `json:"shared_interests,omitempty"`
}

// BehaviorProfile is the per-user aggregate rolled up from the signal log.
// Mutated only by the aggregator; always derivable by replaying signals.
type BehaviorProfile struct {
	UserID              int64      `json:"user_id" db:"user_id"`
	ProfileViews        int64      `json:"profile_views" db:"profile_views"`
	SwipesRight         int64      `json:"swipes_right" db:"swipes_right"`
	SwipesLeft          int64      `json:"swipes_left" db:"swipes_left"`
	MessagesSent        int64      `json:"messages_sent" db:"messages_sent"`
	MessagesReceived    int64      `json:"messages_received" db:"messages_received"`
	MessageReplies      int64      `json:"message_replies" db:"message_replies"`
	PaidInteractions    int64      `json:"paid_interactions" db:"paid_interactions"`
	MeetingsBooked      int64      `json:"meetings_booked" db:"meetings_booked"`
	Matches             int64      `json:"matches" db:"matches"`
	RightSwipesReceived int64      `json:"right_swipes_received" db:"right_swipes_received"`

	ResponseRate         float64 `json:"response_rate" db:"response_rate"`
	MatchConversionRate  float64 `json:"match_conversion_rate" db:"match_conversion_rate"`
	ActivityRecencyScore float64 `json:"activity_recency_score" db:"activity_recency_score"`

	LastSignalAt     *time.Time `json:"last_signal_at,omitempty" db:"last_signal_at"`
	LastRecomputedAt time.Time  `json:"last_recomputed_at" db:"last_recomputed_at"`
}

// RightSwipeReceivedRate is the share of received interest per profile view
// given out, used by the low-popularity protection tier.
func (p *BehaviorProfile) RightSwipeReceivedRate() float64 {
	total := p.ProfileViews + p.SwipesRight + p.SwipesLeft
	if total == 0 {
		return 0
	}
	return float64(p.RightSwipesReceived) / float64(total)
}

// applySignal folds a single signal into the profile counters.
// asActor distinguishes the two sides of the (actor, target) pair.
func (p *BehaviorProfile) applySignal(s *Signal, asActor bool) {
	if asActor {
		switch s.Type {
		case SignalProfileViewLong:
			p.ProfileViews++
		case SignalSwipeRight:
			p.SwipesRight++
		case SignalSwipeLeftFast, SignalProfileIgnored:
			p.SwipesLeft++
		case SignalMessageSent:
			p.MessagesSent++
		case SignalMessageReply:
			p.MessageReplies++
		case SignalPaidChat, SignalGiftSent:
			p.PaidInteractions++
		case SignalMeetingBooked:
			p.MeetingsBooked++
			p.PaidInteractions++
		case SignalMatchCreated:
			p.Matches++
		}
		if p.LastSignalAt == nil || s.OccurredAt.After(*p.LastSignalAt) {
			t := s.OccurredAt
			p.LastSignalAt = &t
		}
	} else {
		switch s.Type {
		case SignalMessageSent:
			p.MessagesReceived++
		case SignalSwipeRight:
			p.RightSwipesReceived++
		case SignalMatchCreated:
			p.Matches++
		}
	}
}

// refreshRates recomputes the derived rates from the counters
func (p *BehaviorProfile) refreshRates(now time.Time) {
	if p.MessagesReceived > 0 {
		p.ResponseRate = clamp01(float64(p.MessageReplies) / float64(p.MessagesReceived))
	} else {
		p.ResponseRate = 0
	}

	if p.SwipesRight > 0 {
		p.MatchConversionRate = clamp01(float64(p.Matches) / float64(p.SwipesRight))
	} else {
		p.MatchConversionRate = 0
	}

	p.ActivityRecencyScore = recencyScore(p.LastSignalAt, now)
}

// recencyScore buckets time since the last signal into a 0..100 scale
func recencyScore(last *time.Time, now time.Time) float64 {
	if last == nil {
		return 0
	}
	since := now.Sub(*last)
	switch {
	case since < time.Hour:
		return 100
	case since < 24*time.Hour:
		return 80
	case since < 72*time.Hour:
		return 60
	case since < 7*24*time.Hour:
		return 40
	case since < 30*24*time.Hour:
		return 20
	default:
		return 5
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
