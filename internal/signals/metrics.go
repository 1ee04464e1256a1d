package signals

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	signalsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discovery_signals_recorded_total",
			Help: "Total number of interaction signals recorded",
		},
		[]string{"type"},
	)

	aggregateFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "discovery_signal_aggregate_failures_total",
			Help: "Incremental profile updates that failed after retry",
		},
	)

	profileRecomputes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "discovery_profile_recomputes_total",
			Help: "Batch behavior profile recomputes",
		},
	)
)

func RecordSignalWritten(signalType string) {
	signalsWritten.WithLabelValues(signalType).Inc()
}

func RecordAggregateFailure() {
	aggregateFailures.Inc()
}

func RecordProfileRecompute() {
	profileRecomputes.Inc()
}
