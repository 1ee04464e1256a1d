package heat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, window time.Duration, dailyCap int) (*service, *time.Time) {
	t.Helper()

	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	svc := NewService(NewMemoryStore(), window, dailyCap).(*service)
	svc.now = func() time.Time { return now }
	return svc, &now
}

func TestActivateHeatRejectsUnknownTrigger(t *testing.T) {
	svc, _ := newTestService(t, 10*time.Minute, 20)

	_, err := svc.ActivateHeat(context.Background(), 1, Trigger("went_viral"))
	assert.ErrorIs(t, err, ErrUnknownTrigger)
}

func TestHeatDecaysLinearlyToZero(t *testing.T) {
	svc, now := newTestService(t, 10*time.Minute, 20)
	ctx := context.Background()

	_, err := svc.ActivateHeat(ctx, 1, TriggerGiftReceived)
	require.NoError(t, err)

	assert.InDelta(t, 90.0, svc.GetCurrentHeat(ctx, 1), 0.001)

	*now = now.Add(5 * time.Minute)
	assert.InDelta(t, 45.0, svc.GetCurrentHeat(ctx, 1), 0.001)

	*now = now.Add(6 * time.Minute)
	assert.Zero(t, svc.GetCurrentHeat(ctx, 1))
}

func TestHeatDecayIsMonotonic(t *testing.T) {
	svc, now := newTestService(t, 10*time.Minute, 20)
	ctx := context.Background()

	_, err := svc.ActivateHeat(ctx, 1, TriggerPaidSessionEnded)
	require.NoError(t, err)

	prev := svc.GetCurrentHeat(ctx, 1)
	for i := 0; i < 12; i++ {
		*now = now.Add(time.Minute)
		cur := svc.GetCurrentHeat(ctx, 1)
		assert.LessOrEqual(t, cur, prev)
		prev = cur
	}
	assert.Zero(t, prev)
}

func TestHeatDoesNotStack(t *testing.T) {
	svc, now := newTestService(t, 10*time.Minute, 20)
	ctx := context.Background()

	_, err := svc.ActivateHeat(ctx, 1, TriggerGiftReceived) // 90
	require.NoError(t, err)

	*now = now.Add(2 * time.Minute)

	// A weaker trigger mid-window leaves the hotter state untouched
	state, err := svc.ActivateHeat(ctx, 1, TriggerCallEnded) // 70
	require.NoError(t, err)
	assert.Equal(t, TriggerGiftReceived, state.TriggeredBy)
	assert.InDelta(t, 72.0, svc.GetCurrentHeat(ctx, 1), 0.001)

	// A hotter trigger replaces the state
	state, err = svc.ActivateHeat(ctx, 1, TriggerPaidSessionEnded) // 100
	require.NoError(t, err)
	assert.Equal(t, TriggerPaidSessionEnded, state.TriggeredBy)
	assert.InDelta(t, 100.0, svc.GetCurrentHeat(ctx, 1), 0.001)
}

func TestHeatReactivatesAfterExpiry(t *testing.T) {
	svc, now := newTestService(t, 10*time.Minute, 20)
	ctx := context.Background()

	_, err := svc.ActivateHeat(ctx, 1, TriggerPaidSessionEnded)
	require.NoError(t, err)

	*now = now.Add(11 * time.Minute)
	require.Zero(t, svc.GetCurrentHeat(ctx, 1))

	// Even a weaker trigger takes over once the old window is done
	state, err := svc.ActivateHeat(ctx, 1, TriggerCallEnded)
	require.NoError(t, err)
	assert.Equal(t, TriggerCallEnded, state.TriggeredBy)
	assert.InDelta(t, 70.0, svc.GetCurrentHeat(ctx, 1), 0.001)
}

func TestDailyActivationCap(t *testing.T) {
	svc, now := newTestService(t, 10*time.Minute, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.ActivateHeat(ctx, 1, TriggerMatchReceived)
		require.NoError(t, err)
		*now = now.Add(11 * time.Minute)
	}

	// Fourth activation of the day is a no-op
	state, err := svc.ActivateHeat(ctx, 1, TriggerMatchReceived)
	require.NoError(t, err)
	assert.Zero(t, svc.GetCurrentHeat(ctx, 1))
	if state != nil {
		assert.True(t, state.Expired(*now))
	}

	// The cap resets on the next day
	*now = now.Add(24 * time.Hour)
	_, err = svc.ActivateHeat(ctx, 1, TriggerMatchReceived)
	require.NoError(t, err)
	assert.InDelta(t, 80.0, svc.GetCurrentHeat(ctx, 1), 0.001)
}

func TestSweepPrunesStaleDailyCounters(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	days := []string{
		now.AddDate(0, 0, -3).Format("2006-01-02"),
		now.AddDate(0, 0, -1).Format("2006-01-02"),
		now.Format("2006-01-02"),
	}
	for _, day := range days {
		_, err := store.IncrDailyCount(ctx, 1, day)
		require.NoError(t, err)
	}

	_, err := store.SweepExpired(ctx, now)
	require.NoError(t, err)

	// Today's and yesterday's counters survive; older days are purged
	assert.Len(t, store.counts, 2)
	assert.NotContains(t, store.counts, capKey(1, days[0]))
	assert.Contains(t, store.counts, capKey(1, days[1]))
	assert.Contains(t, store.counts, capKey(1, days[2]))
}

func TestSweepRemovesOnlyExpiredStates(t *testing.T) {
	svc, now := newTestService(t, 10*time.Minute, 20)
	ctx := context.Background()

	_, err := svc.ActivateHeat(ctx, 1, TriggerMatchReceived)
	require.NoError(t, err)

	*now = now.Add(5 * time.Minute)
	_, err = svc.ActivateHeat(ctx, 2, TriggerMatchReceived)
	require.NoError(t, err)

	*now = now.Add(6 * time.Minute) // user 1 expired, user 2 still live
	swept, err := svc.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, swept)
	assert.Greater(t, svc.GetCurrentHeat(ctx, 2), 0.0)
}
