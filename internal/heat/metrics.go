package heat

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	activationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discovery_heat_activations_total",
			Help: "Heat activations applied, by trigger",
		},
		[]string{"trigger"},
	)

	capHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "discovery_heat_cap_hits_total",
			Help: "Heat activations rejected by the daily cap",
		},
	)
)

func RecordActivation(trigger string) {
	activationsTotal.WithLabelValues(trigger).Inc()
}

func RecordCapHit() {
	capHitsTotal.Inc()
}
