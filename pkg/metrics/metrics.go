package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all application metrics
type Metrics struct {
	// Outbox related metrics
	OutboxEventsProcessed   prometheus.Counter
	OutboxEventsFailed      prometheus.Counter
	OutboxProcessingLatency prometheus.Histogram
	OutboxQueueSize         prometheus.Gauge
	OutboxRetries           *prometheus.CounterVec

	// Database metrics
	DatabaseOperations *prometheus.CounterVec
	DatabaseLatency    *prometheus.HistogramVec

	// Redis metrics
	RedisOperations *prometheus.CounterVec
	RedisLatency    *prometheus.HistogramVec

	// Workflow metrics
	ComposerOutcomes *prometheus.CounterVec
	DraftsActive     prometheus.Gauge

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPLatency  *prometheus.HistogramVec
}

// New builds unregistered metrics. Call Register to expose them.
func New(namespace string) *Metrics {
	return &Metrics{
		OutboxEventsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_events_processed_total",
			Help:      "Total number of successfully published outbox events",
		}),
		OutboxEventsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_events_failed_total",
			Help:      "Total number of outbox events that failed to publish",
		}),
		OutboxProcessingLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "outbox_processing_duration_seconds",
			Help:      "Time spent processing one outbox batch",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		OutboxQueueSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "outbox_batch_size",
			Help:      "Number of events fetched in the last outbox poll",
		}),
		OutboxRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_retry_attempts_total",
			Help:      "Total number of rescheduled outbox events",
		}, []string{"event_type"}),

		DatabaseOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "database_operations_total",
			Help:      "Total number of gateway operations",
		}, []string{"table", "operation", "status"}),
		DatabaseLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "database_operation_duration_seconds",
			Help:      "Duration of gateway operations",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"table", "operation"}),

		RedisOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redis_operations_total",
			Help:      "Total number of Redis operations",
		}, []string{"operation", "status"}),
		RedisLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "redis_operation_duration_seconds",
			Help:      "Duration of Redis operations",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5},
		}, []string{"operation"}),

		ComposerOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prescription_submissions_total",
			Help:      "Prescription submissions by outcome",
		}, []string{"outcome"}),
		DraftsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "prescription_drafts_active",
			Help:      "Prescription drafts currently held in memory",
		}),

		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
}

// NewMetrics creates metrics and registers them with the default registry.
func NewMetrics(namespace string) *Metrics {
	m := New(namespace)
	m.MustRegister(prometheus.DefaultRegisterer)
	return m
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.OutboxEventsProcessed,
		m.OutboxEventsFailed,
		m.OutboxProcessingLatency,
		m.OutboxQueueSize,
		m.OutboxRetries,
		m.DatabaseOperations,
		m.DatabaseLatency,
		m.RedisOperations,
		m.RedisLatency,
		m.ComposerOutcomes,
		m.DraftsActive,
		m.HTTPRequests,
		m.HTTPLatency,
	}
}

func (m *Metrics) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(m.collectors()...)
}

// ObserveDB records one gateway call. A nil Metrics is a no-op.
func (m *Metrics) ObserveDB(table, operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.DatabaseOperations.WithLabelValues(table, operation, status).Inc()
	m.DatabaseLatency.WithLabelValues(table, operation).Observe(time.Since(start).Seconds())
}

// ObserveRedis records one broker call. A nil Metrics is a no-op.
func (m *Metrics) ObserveRedis(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.RedisOperations.WithLabelValues(operation, status).Inc()
	m.RedisLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// ComposerOutcome counts a prescription submission result. A nil Metrics is a no-op.
func (m *Metrics) ComposerOutcome(outcome string) {
	if m == nil {
		return
	}
	m.ComposerOutcomes.WithLabelValues(outcome).Inc()
}

// OutboxBatch records one poll of n events. A nil Metrics is a no-op.
func (m *Metrics) OutboxBatch(n int, start time.Time) {
	if m == nil {
		return
	}
	m.OutboxQueueSize.Set(float64(n))
	m.OutboxProcessingLatency.Observe(time.Since(start).Seconds())
}

// OutboxResult counts a published, rescheduled or abandoned event.
func (m *Metrics) OutboxResult(eventType string, published, rescheduled bool) {
	if m == nil {
		return
	}
	switch {
	case published:
		m.OutboxEventsProcessed.Inc()
	case rescheduled:
		m.OutboxRetries.WithLabelValues(eventType).Inc()
	default:
		m.OutboxEventsFailed.Inc()
	}
}
