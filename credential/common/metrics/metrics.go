// Package metrics provides Prometheus metrics for verification outcomes and
// DID resolution.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values.
const (
	OutcomeValid   = "valid"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"
)

// Metrics contains the verifier metrics.
type Metrics struct {
	VerificationsTotal          *prometheus.CounterVec   // by format, outcome and failure code
	VerificationDurationSeconds *prometheus.HistogramVec // by format
	DIDResolutionsTotal         *prometheus.CounterVec   // by outcome
}

// New creates the metrics and registers them on reg. A nil reg registers on
// the default registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		VerificationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vcverify_verifications_total",
			Help: "Total number of credential and presentation verifications",
		}, []string{"format", "outcome", "code"}),

		VerificationDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vcverify_verification_duration_seconds",
			Help:    "Duration of top level verifications",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"format"}),

		DIDResolutionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vcverify_did_resolutions_total",
			Help: "Total number of remote DID resolutions by outcome",
		}, []string{"outcome"}),
	}
}

// ObserveVerification records one verification. code is empty for valid
// results.
func (m *Metrics) ObserveVerification(format, outcome, code string, d time.Duration) {
	m.VerificationsTotal.WithLabelValues(format, outcome, code).Inc()
	m.VerificationDurationSeconds.WithLabelValues(format).Observe(d.Seconds())
}

// ObserveResolution records a DID resolution outcome.
func (m *Metrics) ObserveResolution(outcome string) {
	m.DIDResolutionsTotal.WithLabelValues(outcome).Inc()
}
