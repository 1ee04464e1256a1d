package heat

import "time"

// Trigger identifies an emotionally salient event that raises heat
type Trigger string

const (
	TriggerMatchReceived    Trigger = "match_received"
	TriggerGiftReceived     Trigger = "gift_received"
	TriggerCallEnded        Trigger = "call_ended"
	TriggerPaidSessionEnded Trigger = "paid_session_ended"
)

// Initial heat intensity per trigger. All triggers share one decay window
// but differ in how hot they start.
var triggerHeat = map[Trigger]float64{
	TriggerMatchReceived:    80,
	TriggerGiftReceived:     90,
	TriggerCallEnded:        70,
	TriggerPaidSessionEnded: 100,
}

// Valid reports whether t is a known trigger
func (t Trigger) Valid() bool {
	_, ok := triggerHeat[t]
	return ok
}

// InitialHeat returns the starting intensity for t (0 for unknown triggers)
func (t Trigger) InitialHeat() float64 {
	return triggerHeat[t]
}

// HeatState is a user's current excitation state. Ephemeral: decays linearly
// to zero over its window and is physically removed after expiry.
type HeatState struct {
	UserID      int64     `json:"user_id"`
	InitialHeat float64   `json:"initial_heat"`
	TriggeredBy Trigger   `json:"triggered_by"`
	ActivatedAt time.Time `json:"activated_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// HeatAt computes the linearly decayed heat at time t.
// Zero at or after expiry regardless of storage cleanup timing.
func (h *HeatState) HeatAt(t time.Time) float64 {
	if !t.Before(h.ExpiresAt) {
		return 0
	}
	duration := h.ExpiresAt.Sub(h.ActivatedAt)
	if duration <= 0 {
		return 0
	}
	elapsed := t.Sub(h.ActivatedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	remaining := 1 - elapsed.Seconds()/duration.Seconds()
	if remaining < 0 {
		remaining = 0
	}
	return h.InitialHeat * remaining
}

// Expired reports whether the state is past its window at time t
func (h *HeatState) Expired(t time.Time) bool {
	return !t.Before(h.ExpiresAt)
}
