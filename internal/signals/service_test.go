package signals

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imadgeboyega/kiekky-discovery/internal/heat"
)

type recordingActivator struct {
	mu          sync.Mutex
	activations []heat.Trigger
	users       []int64
}

func (a *recordingActivator) ActivateHeat(ctx context.Context, userID int64, trigger heat.Trigger) (*heat.HeatState, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.activations = append(a.activations, trigger)
	a.users = append(a.users, userID)
	return &heat.HeatState{UserID: userID, TriggeredBy: trigger}, nil
}

type recordingObserver struct {
	mu    sync.Mutex
	users []int64
}

func (o *recordingObserver) NotifyRightSwipe(ctx context.Context, userID int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.users = append(o.users, userID)
}

func newStartedService(t *testing.T, activator heat.Activator, observer SwipeObserver) (Service, *MemoryRepository) {
	t.Helper()

	repo := NewMemoryRepository()
	svc := NewService(repo, activator, observer)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	svc.Start(ctx)

	return svc, repo
}

func TestRecordSignalRejectsUnknownType(t *testing.T) {
	svc, _ := newStartedService(t, nil, nil)

	_, err := svc.RecordSignal(context.Background(), 1, &RecordSignalDTO{
		TargetID: 2,
		Type:     "poked",
	})
	assert.ErrorIs(t, err, ErrUnknownSignalType)
}

func TestRecordSignalRejectsSelfTarget(t *testing.T) {
	svc, _ := newStartedService(t, nil, nil)

	_, err := svc.RecordSignal(context.Background(), 1, &RecordSignalDTO{
		TargetID: 1,
		Type:     string(SignalSwipeRight),
	})
	assert.ErrorIs(t, err, ErrInvalidTarget)
}

func TestRecordSignalUpdatesBothSides(t *testing.T) {
	svc, _ := newStartedService(t, nil, nil)
	ctx := context.Background()

	_, err := svc.RecordSignal(ctx, 1, &RecordSignalDTO{TargetID: 2, Type: string(SignalSwipeRight)})
	require.NoError(t, err)
	svc.Flush()

	actor, err := svc.GetBehaviorProfile(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), actor.SwipesRight)

	target, err := svc.GetBehaviorProfile(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), target.RightSwipesReceived)
}

// Profiles first created by the incremental path must carry a real
// timestamp, not the zero time, before any batch recompute runs.
func TestIncrementalProfileCarriesRecomputeTimestamp(t *testing.T) {
	svc, repo := newStartedService(t, nil, nil)
	ctx := context.Background()

	_, err := svc.RecordSignal(ctx, 1, &RecordSignalDTO{TargetID: 2, Type: string(SignalSwipeRight)})
	require.NoError(t, err)
	svc.Flush()

	// Read the stored row directly so no service-level default masks it
	stored, err := repo.GetBehaviorProfile(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.False(t, stored.LastRecomputedAt.IsZero())

	target, err := repo.GetBehaviorProfile(ctx, 2)
	require.NoError(t, err)
	require.NotNil(t, target)
	assert.False(t, target.LastRecomputedAt.IsZero())
}

func TestNewUserGetsZeroValueProfile(t *testing.T) {
	svc, _ := newStartedService(t, nil, nil)

	profile, err := svc.GetBehaviorProfile(context.Background(), 99)
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, int64(99), profile.UserID)
	assert.Zero(t, profile.SwipesRight)
	assert.Zero(t, profile.ResponseRate)
}

func TestResponseRateDerivation(t *testing.T) {
	svc, _ := newStartedService(t, nil, nil)
	ctx := context.Background()

	// User 2 receives four messages from user 1 and replies to three
	for i := 0; i < 4; i++ {
		_, err := svc.RecordSignal(ctx, 1, &RecordSignalDTO{TargetID: 2, Type: string(SignalMessageSent)})
		require.NoError(t, err)
	}
	for i := 0; i < 3; i++ {
		_, err := svc.RecordSignal(ctx, 2, &RecordSignalDTO{TargetID: 1, Type: string(SignalMessageReply)})
		require.NoError(t, err)
	}
	svc.Flush()

	profile, err := svc.GetBehaviorProfile(ctx, 2)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, profile.ResponseRate, 0.001)
}

// The batch recompute must land on the same counters the incremental
// path produced, signal for signal.
func TestRecomputeMatchesIncrementalAggregation(t *testing.T) {
	svc, _ := newStartedService(t, nil, nil)
	ctx := context.Background()

	events := []struct {
		actor, target int64
		sigType       SignalType
	}{
		{1, 2, SignalProfileViewLong},
		{1, 2, SignalSwipeRight},
		{1, 3, SignalSwipeLeftFast},
		{1, 2, SignalMessageSent},
		{2, 1, SignalMessageReply},
		{1, 2, SignalMatchCreated},
		{1, 2, SignalGiftSent},
		{1, 2, SignalMeetingBooked},
	}
	for _, e := range events {
		_, err := svc.RecordSignal(ctx, e.actor, &RecordSignalDTO{TargetID: e.target, Type: string(e.sigType)})
		require.NoError(t, err)
	}
	svc.Flush()

	incremental, err := svc.GetBehaviorProfile(ctx, 1)
	require.NoError(t, err)

	recomputed, err := svc.RecomputeProfile(ctx, 1, 30*24*time.Hour)
	require.NoError(t, err)

	assert.Equal(t, incremental.ProfileViews, recomputed.ProfileViews)
	assert.Equal(t, incremental.SwipesRight, recomputed.SwipesRight)
	assert.Equal(t, incremental.SwipesLeft, recomputed.SwipesLeft)
	assert.Equal(t, incremental.MessagesSent, recomputed.MessagesSent)
	assert.Equal(t, incremental.MessagesReceived, recomputed.MessagesReceived)
	assert.Equal(t, incremental.MessageReplies, recomputed.MessageReplies)
	assert.Equal(t, incremental.PaidInteractions, recomputed.PaidInteractions)
	assert.Equal(t, incremental.MeetingsBooked, recomputed.MeetingsBooked)
	assert.Equal(t, incremental.Matches, recomputed.Matches)
	assert.Equal(t, incremental.RightSwipesReceived, recomputed.RightSwipesReceived)
	assert.InDelta(t, incremental.ResponseRate, recomputed.ResponseRate, 0.001)
	assert.InDelta(t, incremental.MatchConversionRate, recomputed.MatchConversionRate, 0.001)
}

func TestRecomputeIsIdempotent(t *testing.T) {
	svc, _ := newStartedService(t, nil, nil)
	ctx := context.Background()

	_, err := svc.RecordSignal(ctx, 1, &RecordSignalDTO{TargetID: 2, Type: string(SignalSwipeRight)})
	require.NoError(t, err)
	svc.Flush()

	first, err := svc.RecomputeProfile(ctx, 1, 24*time.Hour)
	require.NoError(t, err)
	second, err := svc.RecomputeProfile(ctx, 1, 24*time.Hour)
	require.NoError(t, err)

	assert.Equal(t, first.SwipesRight, second.SwipesRight)
	assert.Equal(t, first.SwipesLeft, second.SwipesLeft)
	assert.Equal(t, first.Matches, second.Matches)
}

func TestMatchCascadesHeatToBothSides(t *testing.T) {
	activator := &recordingActivator{}
	svc, _ := newStartedService(t, activator, nil)

	_, err := svc.RecordSignal(context.Background(), 1, &RecordSignalDTO{TargetID: 2, Type: string(SignalMatchCreated)})
	require.NoError(t, err)
	svc.Flush()

	assert.ElementsMatch(t, []int64{1, 2}, activator.users)
	for _, trigger := range activator.activations {
		assert.Equal(t, heat.TriggerMatchReceived, trigger)
	}
}

func TestGiftCascadesHeatToReceiverOnly(t *testing.T) {
	activator := &recordingActivator{}
	svc, _ := newStartedService(t, activator, nil)

	_, err := svc.RecordSignal(context.Background(), 1, &RecordSignalDTO{TargetID: 2, Type: string(SignalGiftSent)})
	require.NoError(t, err)
	svc.Flush()

	require.Len(t, activator.users, 1)
	assert.Equal(t, int64(2), activator.users[0])
	assert.Equal(t, heat.TriggerGiftReceived, activator.activations[0])
}

func TestPaidCallEndCascadesPaidSessionTrigger(t *testing.T) {
	activator := &recordingActivator{}
	svc, _ := newStartedService(t, activator, nil)

	_, err := svc.RecordSignal(context.Background(), 1, &RecordSignalDTO{
		TargetID: 2,
		Type:     string(SignalCallEnded),
		Metadata: map[string]interface{}{"paid": true},
	})
	require.NoError(t, err)
	svc.Flush()

	require.Len(t, activator.activations, 2)
	for _, trigger := range activator.activations {
		assert.Equal(t, heat.TriggerPaidSessionEnded, trigger)
	}
}

func TestRightSwipeNotifiesObserver(t *testing.T) {
	observer := &recordingObserver{}
	svc, _ := newStartedService(t, nil, observer)
	ctx := context.Background()

	_, err := svc.RecordSignal(ctx, 1, &RecordSignalDTO{TargetID: 2, Type: string(SignalSwipeRight)})
	require.NoError(t, err)
	_, err = svc.RecordSignal(ctx, 1, &RecordSignalDTO{TargetID: 2, Type: string(SignalMessageSent)})
	require.NoError(t, err)
	svc.Flush()

	assert.Equal(t, []int64{1}, observer.users)
}

func TestSignalWeightsAreStamped(t *testing.T) {
	svc, _ := newStartedService(t, nil, nil)

	sig, err := svc.RecordSignal(context.Background(), 1, &RecordSignalDTO{TargetID: 2, Type: string(SignalMeetingBooked)})
	require.NoError(t, err)
	assert.Equal(t, 8.0, sig.Weight)
	assert.NotEqual(t, "", sig.ID.String())
}
