package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Expansion results.
const (
	ExpansionOK      = "ok"
	ExpansionRefused = "refused"
	ExpansionInvalid = "invalid"
)

// Submission outcomes.
const (
	SubmissionCreated    = "created"
	SubmissionUpdated    = "updated"
	SubmissionRejected   = "rejected"
	SubmissionIncomplete = "incomplete"
	SubmissionFailed     = "failed"
)

// Metrics holds the catalog collectors.
type Metrics struct {
	Expansions          *prometheus.CounterVec
	Submissions         *prometheus.CounterVec
	VariationsGenerated prometheus.Histogram
}

// New creates the collectors and registers them on reg. activeSessions backs the
// catalog_sessions_active gauge and may be nil.
func New(reg prometheus.Registerer, activeSessions func() int) *Metrics {
	m := &Metrics{
		Expansions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_expansions_total",
			Help: "Attribute matrix expansions by result.",
		}, []string{"result"}),
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_submissions_total",
			Help: "Book form submissions by outcome.",
		}, []string{"outcome"}),
		VariationsGenerated: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "catalog_variations_generated",
			Help:    "Variations added by a single expansion.",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500},
		}),
	}
	reg.MustRegister(m.Expansions, m.Submissions, m.VariationsGenerated)

	if activeSessions != nil {
		reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "catalog_sessions_active",
			Help: "Open form sessions.",
		}, func() float64 { return float64(activeSessions()) }))
	}
	return m
}

// ObserveExpansion records one expansion attempt; added is only used for ExpansionOK.
func (m *Metrics) ObserveExpansion(result string, added int) {
	if m == nil {
		return
	}
	m.Expansions.WithLabelValues(result).Inc()
	if result == ExpansionOK {
		m.VariationsGenerated.Observe(float64(added))
	}
}

// ObserveSubmission records one submission attempt.
func (m *Metrics) ObserveSubmission(outcome string) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(outcome).Inc()
}
