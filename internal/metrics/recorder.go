// Package metrics exposes collation activity to Prometheus: how often the
// user submits, how each representation request ends and how long it takes,
// and how many results arrived too late to be shown.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kingrea/collate/internal/collate"
)

// Outcome label values for collate_requests_total.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Recorder implements collate.Observer on top of a private registry.
type Recorder struct {
	registry    *prometheus.Registry
	submissions prometheus.Counter
	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	stale       *prometheus.CounterVec
}

var _ collate.Observer = (*Recorder)(nil)

// NewRecorder registers the collation metrics on a fresh registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		submissions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "collate_submissions_total",
			Help: "Collation runs started.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "collate_requests_total",
			Help: "Representation requests by outcome.",
		}, []string{"representation", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "collate_request_duration_seconds",
			Help:    "Time until the engine answered a representation request.",
			Buckets: prometheus.DefBuckets,
		}, []string{"representation"}),
		stale: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "collate_stale_results_total",
			Help: "Results discarded because a newer submission had started.",
		}, []string{"representation"}),
	}
	r.registry.MustRegister(r.submissions, r.requests, r.duration, r.stale)
	return r
}

// Registry returns the registry holding the collation metrics.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// SubmissionStarted counts a new collation run.
func (r *Recorder) SubmissionStarted(uint64) {
	r.submissions.Inc()
}

// RequestFinished records one representation request.
func (r *Recorder) RequestFinished(rep collate.Representation, elapsed time.Duration, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	r.requests.WithLabelValues(label(rep), outcome).Inc()
	r.duration.WithLabelValues(label(rep)).Observe(elapsed.Seconds())
}

// StaleResult counts a discarded late result.
func (r *Recorder) StaleResult(rep collate.Representation) {
	r.stale.WithLabelValues(label(rep)).Inc()
}

// label names a representation by its panel so label values stay free of
// slashes and plus signs.
func label(rep collate.Representation) string {
	switch rep {
	case collate.SVG:
		return "svg"
	case collate.JSON:
		return "table"
	case collate.DOT:
		return "dot"
	case collate.GraphML:
		return "graphml"
	case collate.TEI:
		return "tei"
	}
	return "unknown"
}
