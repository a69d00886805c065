// Package metrics provides Prometheus metrics for the ascend progression service.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Progression
	eventsRecorded     *prometheus.CounterVec
	eventsUnknown      prometheus.Counter
	eventsDuplicate    prometheus.Counter
	levelsUnlocked     *prometheus.CounterVec
	highestLevel       prometheus.Gauge
	evaluationLatency  prometheus.Histogram
	contractViolations prometheus.Counter

	// Notifications
	notifications *prometheus.CounterVec

	// Storage
	storageErrors    *prometheus.CounterVec
	malformedRecords *prometheus.CounterVec

	// Dispatch queue and workers
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueueErrors *prometheus.CounterVec
	dispatchErrors     *prometheus.CounterVec
	dispatched         prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "ascend",
		subsystem:        "tour",
		histogramBuckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.eventsRecorded = m.counterVec("events_recorded_total", "Events appended to the tour log, by type", "type")
	m.eventsUnknown = m.counter("events_unknown_total", "Events appended with an unrecognized type")
	m.eventsDuplicate = m.counter("events_duplicate_total", "Retried submissions dropped by request id")
	m.levelsUnlocked = m.counterVec("levels_unlocked_total", "First-time level unlocks persisted, by level", "level")
	m.highestLevel = m.gauge("highest_available_level", "Highest level currently available")
	m.evaluationLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "evaluation_latency_milliseconds",
		Help:      "Time to evaluate unlock criteria over the event log",
		Buckets:   m.histogramBuckets,
	})
	m.contractViolations = m.counter("contract_violations_total", "Previously unlocked levels no longer satisfied by the criteria")

	m.notifications = m.counterVec("notifications_total", "Unlock notification lifecycle transitions", "transition")

	m.storageErrors = m.counterVec("storage_errors_total", "Durable storage failures swallowed at the store boundary", "op")
	m.malformedRecords = m.counterVec("malformed_records_total", "Stored records that failed to decode", "record")

	m.queueSize = m.gauge("notify_queue_size", "Unlock notices waiting for dispatch")
	m.queueCapacity = m.gauge("notify_queue_capacity", "Capacity of the unlock notice queue")
	m.queueEnqueueErrors = m.counterVec("notify_enqueue_errors_total", "Unlock notices dropped at enqueue", "reason")
	m.dispatchErrors = m.counterVec("notify_dispatch_errors_total", "Notifier failures, by notifier", "notifier")
	m.dispatched = m.counter("notify_dispatched_total", "Unlock notices delivered to all notifiers")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	}, []string{"endpoint", "method", "status_code"})
	m.httpErrors = m.counterVec("http_errors_total", "HTTP error responses by endpoint and error type", "endpoint", "method", "error_type")
}

// RecordEventRecorded counts an appended event.
func RecordEventRecorded(eventType string) {
	globalManager.eventsRecorded.WithLabelValues(eventType).Inc()
}

// RecordUnknownEvent counts an appended event with an unrecognized type.
func RecordUnknownEvent() {
	globalManager.eventsUnknown.Inc()
}

// RecordEventDuplicate counts a retried submission.
func RecordEventDuplicate() {
	globalManager.eventsDuplicate.Inc()
}

// RecordLevelUnlocked counts a first-time unlock.
func RecordLevelUnlocked(level int) {
	globalManager.levelsUnlocked.WithLabelValues(strconv.Itoa(level)).Inc()
}

// UpdateHighestLevel sets the highest available level gauge.
func UpdateHighestLevel(level int) {
	globalManager.highestLevel.Set(float64(level))
}

// RecordEvaluationLatency records criteria evaluation time in milliseconds.
func RecordEvaluationLatency(latencyMs float64) {
	globalManager.evaluationLatency.Observe(latencyMs)
}

// RecordContractViolation counts a level regression.
func RecordContractViolation() {
	globalManager.contractViolations.Inc()
}

// RecordNotification counts a notification transition: raised, cleared or expired.
func RecordNotification(transition string) {
	globalManager.notifications.WithLabelValues(transition).Inc()
}

// RecordStorageError counts a swallowed storage failure.
func RecordStorageError(op string) {
	globalManager.storageErrors.WithLabelValues(op).Inc()
}

// RecordMalformedRecord counts a stored record that could not be decoded.
func RecordMalformedRecord(record string) {
	globalManager.malformedRecords.WithLabelValues(record).Inc()
}

// UpdateQueueSize sets the notice queue length.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the notice queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueueError counts a dropped notice.
func RecordQueueEnqueueError(reason string) {
	globalManager.queueEnqueueErrors.WithLabelValues(reason).Inc()
}

// RecordDispatchError counts a notifier failure.
func RecordDispatchError(notifier string) {
	globalManager.dispatchErrors.WithLabelValues(notifier).Inc()
}

// RecordDispatched counts a delivered notice.
func RecordDispatched() {
	globalManager.dispatched.Inc()
}

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordHTTPError counts an HTTP error response.
func RecordHTTPError(endpoint, method, errorType string) {
	globalManager.httpErrors.WithLabelValues(endpoint, method, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
