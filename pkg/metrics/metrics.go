// Package metrics exposes prometheus instrumentation for the interview and
// decision flow.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder holds the collectors. Construct one per process against the
// default registerer, or against a fresh registry in tests.
type Recorder struct {
	SessionsCreated  prometheus.Counter
	SessionsExpired  prometheus.Counter
	SessionsRejected prometheus.Counter

	Extractions        *prometheus.CounterVec // outcome: ok, failed, cached
	ExtractionDuration prometheus.Histogram

	Decisions          *prometheus.CounterVec // mode, degraded
	ValidationFailures prometheus.Counter
	Fallbacks          prometheus.Counter
}

// NewRecorder registers the collectors with reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		SessionsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "maestro",
			Name:      "sessions_created_total",
			Help:      "Sessions created.",
		}),
		SessionsExpired: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "maestro",
			Name:      "sessions_expired_total",
			Help:      "Sessions removed by TTL sweeps.",
		}),
		SessionsRejected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "maestro",
			Name:      "sessions_rejected_total",
			Help:      "Session creations rejected at the concurrency cap.",
		}),
		Extractions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "maestro",
			Name:      "extractions_total",
			Help:      "Soul extraction attempts by outcome.",
		}, []string{"outcome"}),
		ExtractionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "maestro",
			Name:      "extraction_duration_seconds",
			Help:      "Wall-clock duration of soul extractions.",
			Buckets:   prometheus.DefBuckets,
		}),
		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "maestro",
			Name:      "decisions_total",
			Help:      "Decisions produced by mode.",
		}, []string{"mode", "degraded"}),
		ValidationFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "maestro",
			Name:      "validation_failures_total",
			Help:      "Answers rejected by a validator.",
		}),
		Fallbacks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "maestro",
			Name:      "fallbacks_total",
			Help:      "Sessions degraded from the soul flow to the static flow.",
		}),
	}
}
