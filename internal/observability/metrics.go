// Package observability holds the sync-specific Prometheus instruments.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	gapFetchCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "backend",
		Subsystem: "sync",
		Name:      "gap_fetches_total",
		Help:      "Number of remote gap fetches, grouped by gap side.",
	}, []string{"side"})

	activitiesIngestedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "backend",
		Subsystem: "sync",
		Name:      "activities_ingested_total",
		Help:      "Number of activities newly persisted from the remote API.",
	})

	streamsSkippedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "backend",
		Subsystem: "sync",
		Name:      "streams_skipped_total",
		Help:      "Number of remote streams skipped because their key is not recognized.",
	}, []string{"key"})
)

func init() {
	prometheus.MustRegister(gapFetchCounter, activitiesIngestedCounter, streamsSkippedCounter)
}

// RecordGapFetch counts one remote fetch for the given gap side
// ("cold", "left" or "right").
func RecordGapFetch(side string) {
	gapFetchCounter.WithLabelValues(side).Inc()
}

// RecordActivitiesIngested counts newly persisted activities.
func RecordActivitiesIngested(n int) {
	if n > 0 {
		activitiesIngestedCounter.Add(float64(n))
	}
}

// RecordStreamSkipped counts a stream dropped for an unrecognized key.
func RecordStreamSkipped(key string) {
	streamsSkippedCounter.WithLabelValues(key).Inc()
}
