// Package metrics provides Prometheus metrics for the hypetrack engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const defaultRefreshInterval = 10 * time.Second

// Manager owns every Prometheus metric exposed by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// Ingestion metrics - the front door of the pipeline.
	articlesIngested  prometheus.Counter
	articlesDuplicate *prometheus.CounterVec
	articlesRejected  *prometheus.CounterVec
	articlesDeferred  prometheus.Counter

	// Embedding metrics.
	embeddingLatency prometheus.Histogram
	embeddingErrors  prometheus.Counter

	// Clustering metrics.
	assignments      *prometheus.CounterVec
	assignLatency    prometheus.Histogram
	clustersByState  *prometheus.GaugeVec
	clusterMerges    prometheus.Counter
	transitions      *prometheus.CounterVec
	corruptClusters  prometheus.Counter

	// Impact and scoring metrics.
	signalsNormalized *prometheus.CounterVec
	impactUndefined   prometheus.Counter
	hirRecords        *prometheus.CounterVec
	scoringLatency    prometheus.Histogram

	// Queue metrics.
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueUtilization prometheus.Gauge
	queueEnqueues    prometheus.Counter
	queueDequeues    prometheus.Counter
	queueErrors      *prometheus.CounterVec

	// Worker metrics.
	workerActive  prometheus.Gauge
	workerLatency prometheus.Histogram
	workerErrors  prometheus.Counter

	// Repository metrics.
	repoClusters         prometheus.Gauge
	repoEntities         prometheus.Gauge
	repoSnapshotDuration prometheus.Histogram
	repoSnapshotLastUnix prometheus.Gauge
	repoUpdateLatency    prometheus.Histogram

	// HTTP metrics.
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Cross-cutting error tracking.
	errorsByComponent *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid the default Go collectors.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // singleton registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "hypetrack",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		refreshInterval:  defaultRefreshInterval,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one metric per line, nothing to split
	auto := promauto.With(m.registry)

	m.articlesIngested = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "articles_ingested_total",
		Help:      "Total number of articles accepted into the pipeline",
	})

	m.articlesDuplicate = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "articles_duplicate_total",
		Help:      "Total number of articles dropped as duplicates, by detection kind",
	}, []string{"kind"})

	m.articlesRejected = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "articles_rejected_total",
		Help:      "Total number of articles rejected, by reason",
	}, []string{"reason"})

	m.articlesDeferred = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "articles_deferred_total",
		Help:      "Total number of articles deferred to the next batch after a timeout",
	})

	m.embeddingLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "embedding_latency_milliseconds",
		Help:      "Histogram of embedding provider latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.embeddingErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "embedding_errors_total",
		Help:      "Total number of embedding failures",
	})

	m.assignments = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "assignments_total",
		Help:      "Total number of cluster assignments, by outcome (existing or new)",
	}, []string{"outcome"})

	m.assignLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "assignment_latency_milliseconds",
		Help:      "Histogram of cluster assignment latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.clustersByState = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "clusters",
		Help:      "Current number of clusters, by lifecycle state",
	}, []string{"state"})

	m.clusterMerges = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cluster_merges_total",
		Help:      "Total number of cluster merges performed by the lifecycle manager",
	})

	m.transitions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "lifecycle_transitions_total",
		Help:      "Total number of lifecycle state transitions, by from/to state",
	}, []string{"from", "to"})

	m.corruptClusters = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "corrupt_clusters_total",
		Help:      "Total number of clusters frozen after an invariant violation",
	})

	m.signalsNormalized = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "impact_signals_normalized_total",
		Help:      "Total number of impact signals normalized, by signal type",
	}, []string{"type"})

	m.impactUndefined = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "impact_undefined_total",
		Help:      "Total number of entity/window pairs with no impact signals available",
	})

	m.hirRecords = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "hir_records_total",
		Help:      "Total number of HIR records emitted, by classification",
	}, []string{"classification"})

	m.scoringLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scoring_latency_milliseconds",
		Help:      "Histogram of HIR scoring latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_size",
		Help:      "Current size of the article queue",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_capacity",
		Help:      "Maximum capacity of the article queue",
	})

	m.queueUtilization = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_utilization",
		Help:      "Current queue utilization ratio (0-1)",
	})

	m.queueEnqueues = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_enqueues_total",
		Help:      "Total number of successful enqueues",
	})

	m.queueDequeues = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_dequeues_total",
		Help:      "Total number of successful dequeues",
	})

	m.queueErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_errors_total",
		Help:      "Total number of queue errors, by kind",
	}, []string{"kind"})

	m.workerActive = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_active",
		Help:      "Current number of active workers",
	})

	m.workerLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_latency_milliseconds",
		Help:      "Histogram of end-to-end article processing latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.workerErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_errors_total",
		Help:      "Total number of worker processing errors",
	})

	m.repoClusters = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "repository_clusters",
		Help:      "Total number of clusters held by the cluster store",
	})

	m.repoEntities = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "repository_entities",
		Help:      "Total number of entities with at least one cluster",
	})

	m.repoSnapshotDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "repository_snapshot_duration_milliseconds",
		Help:      "Histogram of snapshot rebuild duration in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.repoSnapshotLastUnix = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "repository_snapshot_last_unix",
		Help:      "Unix timestamp of the last published snapshot",
	})

	m.repoUpdateLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "repository_update_latency_milliseconds",
		Help:      "Histogram of cluster store mutation latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests by endpoint, method and status code",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "errors_by_component_total",
		Help:      "Total number of errors by component and error type",
	}, []string{"component", "error_type"})
}

// Ingestion helpers.

// RecordArticleIngested increments the accepted-article counter.
func RecordArticleIngested() {
	globalManager.articlesIngested.Inc()
}

// RecordArticleDuplicate counts a dropped duplicate by detection kind
// ("exact" or "near").
func RecordArticleDuplicate(kind string) {
	globalManager.articlesDuplicate.WithLabelValues(kind).Inc()
}

// RecordArticleRejected counts a rejected article by reason.
func RecordArticleRejected(reason string) {
	globalManager.articlesRejected.WithLabelValues(reason).Inc()
}

// RecordArticleDeferred counts an article pushed to the next batch.
func RecordArticleDeferred() {
	globalManager.articlesDeferred.Inc()
}

// Embedding helpers.

// RecordEmbeddingLatency records embedding provider latency in milliseconds.
func RecordEmbeddingLatency(ms float64) {
	globalManager.embeddingLatency.Observe(ms)
}

// RecordEmbeddingError increments the embedding failure counter.
func RecordEmbeddingError() {
	globalManager.embeddingErrors.Inc()
}

// Clustering helpers.

// RecordAssignment counts an assignment outcome ("existing" or "new").
func RecordAssignment(outcome string) {
	globalManager.assignments.WithLabelValues(outcome).Inc()
}

// RecordAssignmentLatency records assignment latency in milliseconds.
func RecordAssignmentLatency(ms float64) {
	globalManager.assignLatency.Observe(ms)
}

// UpdateClusters sets the current cluster count for a lifecycle state.
func UpdateClusters(state string, count int) {
	globalManager.clustersByState.WithLabelValues(state).Set(float64(count))
}

// RecordClusterMerge increments the merge counter.
func RecordClusterMerge() {
	globalManager.clusterMerges.Inc()
}

// RecordTransition counts a lifecycle state transition.
func RecordTransition(from, to string) {
	globalManager.transitions.WithLabelValues(from, to).Inc()
}

// RecordCorruptCluster counts a cluster frozen after an invariant violation.
func RecordCorruptCluster() {
	globalManager.corruptClusters.Inc()
}

// Impact and scoring helpers.

// RecordSignalNormalized counts a normalized impact signal by type.
func RecordSignalNormalized(signalType string) {
	globalManager.signalsNormalized.WithLabelValues(signalType).Inc()
}

// RecordImpactUndefined counts a window with no impact signals.
func RecordImpactUndefined() {
	globalManager.impactUndefined.Inc()
}

// RecordHIRRecord counts an emitted HIR record by classification.
func RecordHIRRecord(classification string) {
	globalManager.hirRecords.WithLabelValues(classification).Inc()
}

// RecordScoringLatency records HIR scoring latency in milliseconds.
func RecordScoringLatency(ms float64) {
	globalManager.scoringLatency.Observe(ms)
}

// Queue helpers.

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
	globalManager.queueEnqueues.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeues.Inc()
}

// RecordQueueError counts a queue error by kind.
func RecordQueueError(kind string) {
	globalManager.queueErrors.WithLabelValues(kind).Inc()
}

// Worker helpers.

// UpdateWorkerActive sets the number of active workers.
func UpdateWorkerActive(count int) {
	globalManager.workerActive.Set(float64(count))
}

// RecordWorkerLatency records end-to-end article processing latency.
func RecordWorkerLatency(ms float64) {
	globalManager.workerLatency.Observe(ms)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// Repository helpers.

// UpdateRepositoryClusters sets the total cluster count.
func UpdateRepositoryClusters(count int) {
	globalManager.repoClusters.Set(float64(count))
}

// UpdateRepositoryEntities sets the tracked entity count.
func UpdateRepositoryEntities(count int) {
	globalManager.repoEntities.Set(float64(count))
}

// RecordSnapshotDuration records snapshot rebuild duration and timestamp.
func RecordSnapshotDuration(ms float64) {
	globalManager.repoSnapshotDuration.Observe(ms)
	globalManager.repoSnapshotLastUnix.Set(float64(time.Now().Unix()))
}

// RecordRepositoryUpdateLatency records cluster store mutation latency.
func RecordRepositoryUpdateLatency(ms float64) {
	globalManager.repoUpdateLatency.Observe(ms)
}

// HTTP helpers.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, ms float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(ms)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry backing the metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
