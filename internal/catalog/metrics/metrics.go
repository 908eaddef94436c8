package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for catalog resolution and unknown recording.
type Metrics struct {
	// Resolution latency, bulk lookup included
	ResolveLatency prometheus.Histogram

	// Resolved items by outcome: "found", "unknown", "malformed"
	ResolvedItems *prometheus.CounterVec

	// Recorder outcomes per identity: "inserted", "conflict", "failed", "duplicate"
	RecordedItems *prometheus.CounterVec

	// Recorder jobs dropped because the queue was full
	DispatchDropped prometheus.Counter

	// Recorder jobs that ended in a store-level error
	RecordErrors prometheus.Counter

	// Discovery events that failed to publish
	PublishFailures prometheus.Counter
}

// New creates a Metrics instance registered on the given registerer. A nil
// registerer uses the default Prometheus registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		ResolveLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "chanfilter_resolve_duration_seconds",
			Help:    "Duration of bulk category resolution",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),

		ResolvedItems: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chanfilter_resolved_items_total",
			Help: "Resolved identities by outcome",
		}, []string{"outcome"}),

		RecordedItems: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chanfilter_recorded_items_total",
			Help: "Unknown identities processed by the recorder, by outcome",
		}, []string{"outcome"}),

		DispatchDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "chanfilter_recorder_dropped_jobs_total",
			Help: "Recorder jobs dropped because the queue was full",
		}),

		RecordErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "chanfilter_recorder_errors_total",
			Help: "Recorder jobs that failed at the store level",
		}),

		PublishFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "chanfilter_discovery_publish_failures_total",
			Help: "Discovery events that could not be published",
		}),
	}
}

// ObserveResolve records one resolution call.
func (m *Metrics) ObserveResolve(d time.Duration, found, unknown, malformed int) {
	if m == nil {
		return
	}
	m.ResolveLatency.Observe(d.Seconds())
	m.ResolvedItems.WithLabelValues("found").Add(float64(found))
	m.ResolvedItems.WithLabelValues("unknown").Add(float64(unknown))
	m.ResolvedItems.WithLabelValues("malformed").Add(float64(malformed))
}

// AddRecorded increments a recorder outcome counter.
func (m *Metrics) AddRecorded(outcome string, n int) {
	if m != nil && n > 0 {
		m.RecordedItems.WithLabelValues(outcome).Add(float64(n))
	}
}

// IncDispatchDropped counts a dropped recorder job.
func (m *Metrics) IncDispatchDropped() {
	if m != nil {
		m.DispatchDropped.Inc()
	}
}

// IncRecordErrors counts a recorder job that failed outright.
func (m *Metrics) IncRecordErrors() {
	if m != nil {
		m.RecordErrors.Inc()
	}
}

// IncPublishFailures counts a failed discovery publish.
func (m *Metrics) IncPublishFailures() {
	if m != nil {
		m.PublishFailures.Inc()
	}
}
