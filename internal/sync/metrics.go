package sync

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	syncAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hearth_sync_attempts_total",
		Help: "Sync attempts per record type and outcome.",
	}, []string{"record_type", "outcome"})

	syncConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hearth_sync_conflicts_total",
		Help: "Resolved sync conflicts by winning side.",
	}, []string{"winner"})

	syncRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hearth_sync_retries_total",
		Help: "Retried pushes after transient transport failures.",
	})

	syncPassDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "hearth_sync_pass_duration_seconds",
		Help:    "Duration of full sync passes.",
		Buckets: prometheus.DefBuckets,
	})
)

const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
)
