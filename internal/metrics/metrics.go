// Package metrics holds Prometheus instruments for the contact form.  All
// collectors are registered with the global registry, so importing this
// package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ValidationFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contact_validation_failures_total",
			Help: "Cumulative number of failed field validations, by field.",
		}, []string{"field"})

	SubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contact_submissions_total",
			Help: "Cumulative number of finished submissions, by outcome.",
		}, []string{"outcome"})

	SubmissionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "contact_submission_duration_seconds",
			Help:    "Time from entering Submitting to leaving it.",
			Buckets: prometheus.DefBuckets,
		})

	NotificationsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "contact_notifications_active",
			Help: "Number of notifications currently on a render surface.",
		})

	RateLimitedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "contact_rate_limited_total",
			Help: "Cumulative number of submissions rejected by the rate limiter.",
		})
)

func init() {
	prometheus.MustRegister(
		ValidationFailuresTotal,
		SubmissionsTotal,
		SubmissionDuration,
		NotificationsActive,
		RateLimitedTotal,
	)
}
