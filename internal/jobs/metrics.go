// Package jobs – sweep metrics
//
// Counters for the periodic sweeps, labelled by job name to keep cardinality
// fixed at three.
package jobs

import "github.com/prometheus/client_golang/prometheus"

var (
	// sweepRuns counts completed sweep cycles per job.
	sweepRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waitlist_sweep_runs_total",
			Help: "Total number of completed sweep cycles.",
		},
		[]string{"job"},
	)

	// sweepSkipped counts cycles skipped because the previous run of the same
	// job was still in flight.
	sweepSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waitlist_sweep_skipped_total",
			Help: "Total number of sweep cycles skipped due to an in-flight run.",
		},
		[]string{"job"},
	)

	// sweepFailures counts cycles that ended with an error.
	sweepFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waitlist_sweep_failures_total",
			Help: "Total number of sweep cycles that failed.",
		},
		[]string{"job"},
	)

	// entriesExpired counts entries moved to expired by the sweeps.
	entriesExpired = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "waitlist_entries_expired_total",
		Help: "Total number of waitlist entries expired by sweeps.",
	})
)

func init() {
	prometheus.MustRegister(sweepRuns, sweepSkipped, sweepFailures, entriesExpired)
}
