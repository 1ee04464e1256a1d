package maintenance

import (
	"context"
	"log"
	"time"

	"github.com/imadgeboyega/kiekky-discovery/internal/heat"
	"github.com/imadgeboyega/kiekky-discovery/internal/preferences"
	"github.com/imadgeboyega/kiekky-discovery/internal/signals"
)

// Scheduler runs the periodic correction jobs: an hourly sweep of expired
// heat states and a nightly authoritative recompute of behavior profiles
// and learned preferences. Both jobs are idempotent; re-running them only
// re-derives the same state from the signal log.
type Scheduler struct {
	signals     signals.Service
	preferences preferences.Service
	heat        heat.Service

	sweepInterval   time.Duration
	recomputeHour   int
	recomputeWindow time.Duration
}

func NewScheduler(
	signalService signals.Service,
	preferenceService preferences.Service,
	heatService heat.Service,
	sweepInterval time.Duration,
	recomputeHour int,
	recomputeWindowDays int,
) *Scheduler {
	return &Scheduler{
		signals:         signalService,
		preferences:     preferenceService,
		heat:            heatService,
		sweepInterval:   sweepInterval,
		recomputeHour:   recomputeHour,
		recomputeWindow: time.Duration(recomputeWindowDays) * 24 * time.Hour,
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	go s.runInterval(ctx, s.sweepInterval, s.sweepHeat)
	go s.runDaily(ctx, s.recomputeHour, 0, s.RecomputeActiveUsers)
}

// sweepHeat drops expired heat states. Redis-backed stores expire via
// TTL, so this mostly matters for the in-memory store, but the job stays
// cheap either way.
func (s *Scheduler) sweepHeat(ctx context.Context) error {
	swept, err := s.heat.SweepExpired(ctx)
	if err != nil {
		return err
	}
	if swept > 0 {
		log.Printf("maintenance: swept %d expired heat states", swept)
	}
	RecordSweep(swept)
	return nil
}

// RecomputeActiveUsers replays the signal log for every user active in
// the trailing window, replacing incremental aggregates with the
// authoritative batch result. Per-user failures are logged and skipped
// so one bad row never stalls the batch.
func (s *Scheduler) RecomputeActiveUsers(ctx context.Context) error {
	started := time.Now()

	userIDs, err := s.signals.ListActiveUserIDs(ctx, s.recomputeWindow)
	if err != nil {
		return err
	}

	var failures int
	for _, userID := range userIDs {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if _, err := s.signals.RecomputeProfile(ctx, userID, s.recomputeWindow); err != nil {
			failures++
			log.Printf("maintenance: profile recompute failed for user %d: %v", userID, err)
			continue
		}

		if err := s.preferences.RecomputeFor(ctx, userID); err != nil {
			failures++
			log.Printf("maintenance: preference recompute failed for user %d: %v", userID, err)
		}
	}

	log.Printf("maintenance: nightly recompute covered %d users (%d failures) in %s",
		len(userIDs), failures, time.Since(started).Round(time.Millisecond))
	RecordRecomputeRun(len(userIDs), failures)

	return nil
}

func (s *Scheduler) runInterval(ctx context.Context, interval time.Duration, task func(context.Context) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := task(ctx); err != nil {
				log.Printf("Scheduled task failed: %v", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) runDaily(ctx context.Context, hour, minute int, task func(context.Context) error) {
	for {
		now := time.Now()
		next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
		if now.After(next) {
			next = next.Add(24 * time.Hour)
		}

		timer := time.NewTimer(next.Sub(now))

		select {
		case <-timer.C:
			if err := task(ctx); err != nil {
				log.Printf("Scheduled task failed: %v", err)
			}
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}
