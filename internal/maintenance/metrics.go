package maintenance

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	heatSweeps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "discovery_heat_sweeps_total",
		Help: "Hourly heat sweep runs",
	})

	heatStatesSwept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "discovery_heat_states_swept_total",
		Help: "Expired heat states removed by the sweep",
	})

	recomputeUsers = promauto.NewCounter(prometheus.CounterOpts{
		Name: "discovery_recompute_users_total",
		Help: "Users covered by the nightly batch recompute",
	})

	recomputeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "discovery_recompute_failures_total",
		Help: "Per-user failures during the nightly batch recompute",
	})
)

func RecordSweep(swept int) {
	heatSweeps.Inc()
	heatStatesSwept.Add(float64(swept))
}

func RecordRecomputeRun(users, failures int) {
	recomputeUsers.Add(float64(users))
	recomputeFailures.Add(float64(failures))
}
