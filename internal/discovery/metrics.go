package discovery

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	feedRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "discovery_feed_requests_total",
		Help: "Discovery feed requests served",
	})

	feedLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "discovery_feed_latency_seconds",
		Help:    "End-to-end feed ranking latency",
		Buckets: []float64{0.025, 0.05, 0.1, 0.2, 0.3, 0.5, 1, 2},
	})

	degradedLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "discovery_degraded_lookups_total",
		Help: "Score-input lookups that fell back to a neutral default",
	}, []string{"dependency"})

	safetyFiltered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "discovery_candidates_filtered_total",
		Help: "Candidates dropped by the safety filter",
	}, []string{"reason"})
)

func RecordFeedRequest() {
	feedRequests.Inc()
}

func ObserveFeedLatency(seconds float64) {
	feedLatency.Observe(seconds)
}

func RecordDegradedLookup(dependency string) {
	degradedLookups.WithLabelValues(dependency).Inc()
}

func RecordSafetyFiltered(reason string) {
	safetyFiltered.WithLabelValues(reason).Inc()
}
