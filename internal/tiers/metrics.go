package tiers

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var tierAssignments = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "discovery_tier_assignments_total",
		Help: "Tier assignments by resulting tier",
	},
	[]string{"tier"},
)

// RecordAssignment counts a tier classification result
func RecordAssignment(tier string) {
	tierAssignments.WithLabelValues(tier).Inc()
}
