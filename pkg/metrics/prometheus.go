// Package metrics provides Prometheus instrumentation for the minerscope
// reconciliation service.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns every Prometheus collector for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	registry         *prometheus.Registry

	// Ingestion
	challengesIngested  prometheus.Counter
	predictionsIngested prometheus.Counter
	ingestDuplicates    prometheus.Counter
	ingestErrors        *prometheus.CounterVec
	queueSize           prometheus.Gauge
	queueCapacity       prometheus.Gauge

	// Reconciliation
	reconcileRuns      prometheus.Counter
	reconcileDuration  prometheus.Histogram
	droppedChallenges  prometheus.Counter
	orphanPredictions  prometheus.Counter
	invalidPredictions prometheus.Gauge
	minersTracked      prometheus.Gauge

	// Dataset store
	storeChallenges  prometheus.Gauge
	storePredictions prometheus.Gauge

	// Boundary collaborators
	mediaDownloads      prometheus.Counter
	mediaDownloadErrors prometheus.Counter
	galleryRenders      prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global manager on a private registry, so default Go collectors stay out.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager()
}

// NewManager creates a metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "minerscope",
		subsystem:        "reconcile",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		registry:         prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initCollectors()
	return m
}

func (m *Manager) initCollectors() {
	factory := promauto.With(m.registry)
	opts := func(name, help string) prometheus.CounterOpts {
		return prometheus.CounterOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		}
	}
	gaugeOpts := func(name, help string) prometheus.GaugeOpts {
		return prometheus.GaugeOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		}
	}

	m.challengesIngested = factory.NewCounter(opts(
		"challenges_ingested_total", "Challenges accepted by the ingestion pipeline."))
	m.predictionsIngested = factory.NewCounter(opts(
		"predictions_ingested_total", "Predictions accepted by the ingestion pipeline."))
	m.ingestDuplicates = factory.NewCounter(opts(
		"ingest_duplicates_total", "Ingest records rejected as duplicates."))
	m.ingestErrors = factory.NewCounterVec(opts(
		"ingest_errors_total", "Ingest failures by component and reason."),
		[]string{"component", "reason"})
	m.queueSize = factory.NewGauge(gaugeOpts(
		"ingest_queue_size", "Records currently queued for ingestion."))
	m.queueCapacity = factory.NewGauge(gaugeOpts(
		"ingest_queue_capacity", "Configured ingestion queue capacity."))

	m.reconcileRuns = factory.NewCounter(opts(
		"runs_total", "Completed reconciliation passes."))
	m.reconcileDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "duration_seconds", Help: "Wall time of a full reconciliation pass.",
		Buckets: m.histogramBuckets,
	})
	m.droppedChallenges = factory.NewCounter(opts(
		"dropped_challenges_total", "Challenges dropped for unresolvable truth."))
	m.orphanPredictions = factory.NewCounter(opts(
		"orphan_predictions_total", "Predictions referencing unknown challenges."))
	m.invalidPredictions = factory.NewGauge(gaugeOpts(
		"invalid_predictions", "Invalid aligned records in the latest pass."))
	m.minersTracked = factory.NewGauge(gaugeOpts(
		"miners_tracked", "Distinct miners in the latest reconciliation."))

	m.storeChallenges = factory.NewGauge(gaugeOpts(
		"store_challenges", "Challenges held in the dataset store."))
	m.storePredictions = factory.NewGauge(gaugeOpts(
		"store_predictions", "Predictions held in the dataset store."))

	m.mediaDownloads = factory.NewCounter(opts(
		"media_downloads_total", "Media files downloaded."))
	m.mediaDownloadErrors = factory.NewCounter(opts(
		"media_download_errors_total", "Media download failures."))
	m.galleryRenders = factory.NewCounter(opts(
		"gallery_renders_total", "HTML galleries rendered."))

	m.httpRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "http",
		Name: "requests_total", Help: "HTTP requests by endpoint, method, and status.",
	}, []string{"endpoint", "method", "status"})
	m.httpRequestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: "http",
		Name: "request_duration_seconds", Help: "HTTP request latency by endpoint.",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint"})
}

// Handler exposes the manager's registry for a /metrics endpoint.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Package-level helpers on the global manager.

// Handler exposes the global registry.
func Handler() http.Handler { return globalManager.Handler() }

// RecordChallengeIngested counts one accepted challenge.
func RecordChallengeIngested() {
	if globalManager.enabled {
		globalManager.challengesIngested.Inc()
	}
}

// RecordPredictionIngested counts one accepted prediction.
func RecordPredictionIngested() {
	if globalManager.enabled {
		globalManager.predictionsIngested.Inc()
	}
}

// RecordIngestDuplicate counts one duplicate record.
func RecordIngestDuplicate() {
	if globalManager.enabled {
		globalManager.ingestDuplicates.Inc()
	}
}

// RecordIngestError counts one ingest failure.
func RecordIngestError(component, reason string) {
	if globalManager.enabled {
		globalManager.ingestErrors.WithLabelValues(component, reason).Inc()
	}
}

// UpdateQueueSize sets the current queue depth.
func UpdateQueueSize(n int) {
	if globalManager.enabled {
		globalManager.queueSize.Set(float64(n))
	}
}

// UpdateQueueCapacity sets the configured queue capacity.
func UpdateQueueCapacity(n int) {
	if globalManager.enabled {
		globalManager.queueCapacity.Set(float64(n))
	}
}

// RecordReconcileRun counts one completed reconciliation pass.
func RecordReconcileRun() {
	if globalManager.enabled {
		globalManager.reconcileRuns.Inc()
	}
}

// ObserveReconcileDuration records the wall time of one pass.
func ObserveReconcileDuration(seconds float64) {
	if globalManager.enabled {
		globalManager.reconcileDuration.Observe(seconds)
	}
}

// RecordDroppedChallenges counts challenges dropped for unresolvable truth.
func RecordDroppedChallenges(n int) {
	if globalManager.enabled && n > 0 {
		globalManager.droppedChallenges.Add(float64(n))
	}
}

// RecordOrphanPredictions counts predictions without a known challenge.
func RecordOrphanPredictions(n int) {
	if globalManager.enabled && n > 0 {
		globalManager.orphanPredictions.Add(float64(n))
	}
}

// UpdateInvalidPredictions sets the invalid record count of the latest pass.
func UpdateInvalidPredictions(n int) {
	if globalManager.enabled {
		globalManager.invalidPredictions.Set(float64(n))
	}
}

// UpdateMinersTracked sets the distinct miner count of the latest pass.
func UpdateMinersTracked(n int) {
	if globalManager.enabled {
		globalManager.minersTracked.Set(float64(n))
	}
}

// UpdateStoreCounts sets the dataset store gauges.
func UpdateStoreCounts(challenges, predictions int) {
	if globalManager.enabled {
		globalManager.storeChallenges.Set(float64(challenges))
		globalManager.storePredictions.Set(float64(predictions))
	}
}

// RecordMediaDownload counts one downloaded media file.
func RecordMediaDownload() {
	if globalManager.enabled {
		globalManager.mediaDownloads.Inc()
	}
}

// RecordMediaDownloadError counts one failed media download.
func RecordMediaDownloadError() {
	if globalManager.enabled {
		globalManager.mediaDownloadErrors.Inc()
	}
}

// RecordGalleryRender counts one rendered gallery.
func RecordGalleryRender() {
	if globalManager.enabled {
		globalManager.galleryRenders.Inc()
	}
}

// RecordHTTPRequest counts one HTTP request.
func RecordHTTPRequest(endpoint, method string, status int) {
	if globalManager.enabled {
		globalManager.httpRequests.WithLabelValues(endpoint, method, strconv.Itoa(status)).Inc()
	}
}

// ObserveHTTPRequestDuration records HTTP latency for an endpoint.
func ObserveHTTPRequestDuration(endpoint string, seconds float64) {
	if globalManager.enabled {
		globalManager.httpRequestDuration.WithLabelValues(endpoint).Observe(seconds)
	}
}
