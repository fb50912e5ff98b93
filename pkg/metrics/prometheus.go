// Package metrics provides Prometheus metrics for the posture service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Latency buckets in milliseconds.
var defaultBuckets = []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500}

// Manager manages all Prometheus metrics for the posture service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Core posture metrics
	classifications  *prometheus.CounterVec
	nudges           prometheus.Counter
	nudgesSuppressed prometheus.Counter
	eventsStored     *prometheus.CounterVec
	eventsRejected   *prometheus.CounterVec
	storedEvents     prometheus.Gauge
	consentEnabled   prometheus.Gauge
	summaryLatency   prometheus.Histogram

	// Frame loop metrics
	framesProcessed prometheus.Counter
	frameFailures   *prometheus.CounterVec
	trackSubmitted  *prometheus.CounterVec

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Repository Metrics
	repositoryAppendLatency prometheus.Histogram
	repositoryQueryLatency  prometheus.Histogram
	repositoryErrors        *prometheus.CounterVec

	// Queue Metrics
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter
	queueDropped       prometheus.Counter

	// Worker Metrics
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Error Metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "posture",
		histogramBuckets: defaultBuckets,
		constLabels:      map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

// NewMetricsManager is an alias of NewManager.
func NewMetricsManager(opts ...Option) *Manager {
	return NewManager(opts...)
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: buckets,
	})
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	m.classifications = m.counterVec("classifications_total", "Frame classifications by label", "label")
	m.nudges = m.counter("nudges_total", "Slouch nudges emitted")
	m.nudgesSuppressed = m.counter("nudges_suppressed_total", "Qualifying frames suppressed by the nudge cooldown")
	m.eventsStored = m.counterVec("events_stored_total", "Posture events appended to the store", "label")
	m.eventsRejected = m.counterVec("events_rejected_total", "Track requests that did not produce an event", "reason")
	m.storedEvents = m.gauge("stored_events", "Total events in the store")
	m.consentEnabled = m.gauge("consent_enabled", "1 when event persistence is opted in")
	m.summaryLatency = m.histogram("summary_latency_milliseconds", "Summary computation latency", m.histogramBuckets)

	m.framesProcessed = m.counter("frames_processed_total", "Frames run through the classifier")
	m.frameFailures = m.counterVec("frame_failures_total", "Keypoint estimation failures by kind", "kind")
	m.trackSubmitted = m.counterVec("track_submitted_total", "Track requests handed to the queue by outcome", "outcome")

	m.httpRequests = m.counterVec("http_requests_total",
		"Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		ConstLabels: m.constLabels,
		Buckets:     m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.repositoryAppendLatency = m.histogram("repository_append_latency_milliseconds",
		"Repository append latency", m.histogramBuckets)
	m.repositoryQueryLatency = m.histogram("repository_query_latency_milliseconds",
		"Repository window query latency", m.histogramBuckets)
	m.repositoryErrors = m.counterVec("repository_errors_total", "Repository failures by operation", "operation")

	m.queueSize = m.gauge("queue_size", "Pending track requests")
	m.queueCapacity = m.gauge("queue_capacity", "Track queue bound")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue size over capacity")
	m.queueEnqueued = m.counter("queue_enqueue_total", "Track requests accepted by the queue")
	m.queueDequeued = m.counter("queue_dequeue_total", "Track requests taken by workers")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Enqueue attempts on a closed queue or cancelled context")
	m.queueDropped = m.counter("queue_dropped_total", "Track requests dropped because the queue was full")

	m.workerActiveCount = m.gauge("worker_active_count", "Running track writers")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds",
		"Time to record one track request", m.histogramBuckets)
	m.workerErrors = m.counter("worker_errors_total", "Track requests whose write failed")

	m.errorRateByComponent = m.counterVec("errors_by_component_total",
		"Errors by component and type", "component", "error_type")
	m.errorRateByType = m.counterVec("errors_by_type_total", "Errors by type and severity", "error_type", "severity")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total",
		"Errors by endpoint, method and type", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// RecordClassification counts a classified frame.
func RecordClassification(label string) {
	globalManager.classifications.WithLabelValues(label).Inc()
}

// RecordNudge increments the nudge counter.
func RecordNudge() {
	globalManager.nudges.Inc()
}

// RecordNudgeSuppressed increments the suppressed nudge counter.
func RecordNudgeSuppressed() {
	globalManager.nudgesSuppressed.Inc()
}

// RecordEventStored counts an appended event.
func RecordEventStored(label string) {
	globalManager.eventsStored.WithLabelValues(label).Inc()
}

// RecordEventRejected counts a track request that stored nothing.
func RecordEventRejected(reason string) {
	globalManager.eventsRejected.WithLabelValues(reason).Inc()
}

// UpdateStoredEvents sets the stored event total.
func UpdateStoredEvents(count int) {
	globalManager.storedEvents.Set(float64(count))
}

// UpdateConsentEnabled mirrors the consent flag.
func UpdateConsentEnabled(enabled bool) {
	v := 0.0
	if enabled {
		v = 1
	}
	globalManager.consentEnabled.Set(v)
}

// RecordSummaryLatency records summary latency in milliseconds.
func RecordSummaryLatency(latencyMs float64) {
	globalManager.summaryLatency.Observe(latencyMs)
}

// RecordFrameProcessed counts a classified frame.
func RecordFrameProcessed() {
	globalManager.framesProcessed.Inc()
}

// RecordFrameFailure counts an estimation failure of the given kind.
func RecordFrameFailure(kind string) {
	globalManager.frameFailures.WithLabelValues(kind).Inc()
}

// RecordTrackSubmitted counts a track submission outcome.
func RecordTrackSubmitted(outcome string) {
	globalManager.trackSubmitted.WithLabelValues(outcome).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Repository Metrics Functions.

// RecordRepositoryAppendLatency records repository append latency.
func RecordRepositoryAppendLatency(latencyMs float64) {
	globalManager.repositoryAppendLatency.Observe(latencyMs)
}

// RecordRepositoryQueryLatency records repository query latency.
func RecordRepositoryQueryLatency(latencyMs float64) {
	globalManager.repositoryQueryLatency.Observe(latencyMs)
}

// RecordRepositoryError counts a failed repository operation.
func RecordRepositoryError(operation string) {
	globalManager.repositoryErrors.WithLabelValues(operation).Inc()
}

// Queue Metrics Functions.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// RecordQueueDropped increments the dropped request counter.
func RecordQueueDropped() {
	globalManager.queueDropped.Inc()
}

// Worker Metrics Functions.

// UpdateWorkerActiveCount sets the number of active workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// Error Metrics Functions.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System Performance Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
