// Package metrics provides observability for the approval module.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the approval engine.
type Metrics struct {
	// Submissions by category.
	Submissions *prometheus.CounterVec

	// Review outcomes by derived status.
	ReviewOutcome *prometheus.CounterVec

	// Optimistic-write retries before a review settled.
	ReviewRetries prometheus.Counter

	// End-to-end operation latency by operation name.
	OperationLatency *prometheus.HistogramVec
}

// New creates and registers all approval module metrics.
func New() *Metrics {
	return &Metrics{
		Submissions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "reimbly_approval_submissions_total",
			Help: "Total case submissions by category",
		}, []string{"category"}),

		ReviewOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "reimbly_approval_review_outcomes_total",
			Help: "Total review decisions by resulting case status",
		}, []string{"status"}),

		ReviewRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "reimbly_approval_review_retries_total",
			Help: "Optimistic-concurrency retries performed by review operations",
		}),

		OperationLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "reimbly_approval_operation_duration_seconds",
			Help:    "Duration of approval engine operations",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"operation"}),
	}
}

// IncSubmission records a submitted case.
func (m *Metrics) IncSubmission(category string) {
	if m != nil {
		m.Submissions.WithLabelValues(category).Inc()
	}
}

// IncReviewOutcome records the status a review produced.
func (m *Metrics) IncReviewOutcome(status string) {
	if m != nil {
		m.ReviewOutcome.WithLabelValues(status).Inc()
	}
}

// IncReviewRetry records one lost optimistic write.
func (m *Metrics) IncReviewRetry() {
	if m != nil {
		m.ReviewRetries.Inc()
	}
}

// ObserveOperation records an operation's duration.
func (m *Metrics) ObserveOperation(operation string, d time.Duration) {
	if m != nil {
		m.OperationLatency.WithLabelValues(operation).Observe(d.Seconds())
	}
}
