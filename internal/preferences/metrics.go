package preferences

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var preferencesLearned = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "discovery_preferences_learned_total",
		Help: "Preference derivations stored, by confidence tier",
	},
	[]string{"confidence"},
)

func RecordPreferenceLearned(confidence string) {
	preferencesLearned.WithLabelValues(confidence).Inc()
}
