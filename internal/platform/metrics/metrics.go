package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the location privacy engine.
type Metrics struct {
	SessionsStarted     prometheus.Counter
	SessionsStopped     *prometheus.CounterVec
	ConsentChecks       *prometheus.CounterVec
	Classifications     *prometheus.CounterVec
	PersistenceFailures prometheus.Counter
	AuditFailures       prometheus.Counter
	PipelineDuration    prometheus.Histogram
	RequestLatency      *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		SessionsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "securyflex_tracking_sessions_started_total",
			Help: "Total number of tracking sessions started",
		}),
		SessionsStopped: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "securyflex_tracking_sessions_stopped_total",
			Help: "Total number of tracking sessions stopped, by reason",
		}, []string{"reason"}),
		ConsentChecks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "securyflex_consent_checks_total",
			Help: "Total number of consent gate checks, by outcome",
		}, []string{"outcome"}),
		Classifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "securyflex_proximity_classifications_total",
			Help: "Total number of proximity classifications, by status",
		}, []string{"status"}),
		PersistenceFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "securyflex_location_persistence_failures_total",
			Help: "Total number of guard location state write failures",
		}),
		AuditFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "securyflex_audit_write_failures_total",
			Help: "Total number of audit trail write failures",
		}),
		PipelineDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "securyflex_update_pipeline_duration_seconds",
			Help:    "Duration of one position update pipeline execution",
			Buckets: prometheus.DefBuckets,
		}),
		RequestLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "securyflex_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}

// ObservePipeline records one pipeline execution duration.
func (m *Metrics) ObservePipeline(d time.Duration) {
	if m == nil {
		return
	}
	m.PipelineDuration.Observe(d.Seconds())
}

// IncConsentCheck records a consent gate outcome ("granted", "denied", "error").
func (m *Metrics) IncConsentCheck(outcome string) {
	if m == nil {
		return
	}
	m.ConsentChecks.WithLabelValues(outcome).Inc()
}

// IncClassification records a classification status.
func (m *Metrics) IncClassification(status string) {
	if m == nil {
		return
	}
	m.Classifications.WithLabelValues(status).Inc()
}

// IncSessionStopped records a session stop with its reason.
func (m *Metrics) IncSessionStopped(reason string) {
	if m == nil {
		return
	}
	m.SessionsStopped.WithLabelValues(reason).Inc()
}

// IncSessionStarted records a session start.
func (m *Metrics) IncSessionStarted() {
	if m == nil {
		return
	}
	m.SessionsStarted.Inc()
}

// IncPersistenceFailure records a failed guard location state write.
func (m *Metrics) IncPersistenceFailure() {
	if m == nil {
		return
	}
	m.PersistenceFailures.Inc()
}

// IncAuditFailure records a failed audit trail write.
func (m *Metrics) IncAuditFailure() {
	if m == nil {
		return
	}
	m.AuditFailures.Inc()
}
