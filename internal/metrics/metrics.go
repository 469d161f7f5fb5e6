package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Submission outcome labels.
const (
	SubmissionRecorded         = "recorded"
	SubmissionPersistenceError = "persistence_error"
	SubmissionPartial          = "partial"
)

var (
	// SubmissionTotal tracks attempt submissions by outcome (recorded, persistence_error, partial)
	SubmissionTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_attempt_submission_total",
			Help: "Total number of attempt submissions by outcome",
		},
		[]string{"outcome"},
	)

	// AutoSubmissionTotal tracks submissions forced by an expired countdown
	AutoSubmissionTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quiz_attempt_auto_submission_total",
			Help: "Total number of submissions triggered by the countdown reaching zero",
		},
	)

	// SessionsActive tracks registered attempt sessions
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "quiz_attempt_sessions_active",
			Help: "Number of attempt sessions currently registered",
		},
	)

	// RollupFallbackTotal tracks aggregations recomputed from raw attempts
	RollupFallbackTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quiz_rollup_fallback_total",
			Help: "Total number of quiz performance queries served from raw attempts",
		},
	)
)

// RecordSubmission records a submission with the given outcome
func RecordSubmission(outcome string) {
	SubmissionTotal.WithLabelValues(outcome).Inc()
}

// RecordAutoSubmission records a deadline-triggered submission
func RecordAutoSubmission() {
	AutoSubmissionTotal.Inc()
}

// RecordRollupFallback records a fallback to raw attempt aggregation
func RecordRollupFallback() {
	RollupFallbackTotal.Inc()
}
