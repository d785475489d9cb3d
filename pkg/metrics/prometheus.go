// Package metrics provides Prometheus metrics for the goalcast pipeline and API.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	defaultNamespace = "goalcast"
	defaultSubsystem = "pipeline"
)

// Manager owns every collector the pipeline reports.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Ingestion
	observationsIngested prometheus.Counter
	gamesIngested        prometheus.Counter
	gamesSkipped         *prometheus.CounterVec
	duplicatesRemoved    prometheus.Counter
	recordsTotal         prometheus.Gauge

	// Feature building
	featureRowsBuilt  prometheus.Gauge
	malformedGames    prometheus.Counter
	buildDuration     prometheus.Histogram
	lastBuildUnixTime prometheus.Gauge

	// Inference
	predictionsServed  prometheus.Counter
	playersSkipped     *prometheus.CounterVec
	contractMismatches prometheus.Counter
	resolveDuration    prometheus.Histogram

	// Schedule cache and upstream
	cacheLookups     *prometheus.CounterVec
	upstreamRequests *prometheus.CounterVec
	upstreamRetries  prometheus.Counter

	// Model artifact
	modelReloads prometheus.Counter
	modelAUC     prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// customRegistry keeps default Go collectors out of /metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        defaultNamespace,
		subsystem:        defaultSubsystem,
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      prometheus.Labels{},
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

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: m.histogramBuckets,
	})
}

func (m *Manager) initializeMetrics() {
	m.observationsIngested = m.counter("observations_ingested_total", "Player-game observations appended to the record store")
	m.gamesIngested = m.counter("games_ingested_total", "Games whose box score was ingested")
	m.gamesSkipped = m.counterVec("games_skipped_total", "Games skipped during ingestion by reason", "reason")
	m.duplicatesRemoved = m.counter("duplicates_removed_total", "Observations collapsed by keep-last deduplication")
	m.recordsTotal = m.gauge("records_total", "Observations currently held by the record store")

	m.featureRowsBuilt = m.gauge("feature_rows", "Rows in the most recently built feature table")
	m.malformedGames = m.counter("malformed_games_total", "Games excluded from opponent resolution for not having two teams")
	m.buildDuration = m.histogram("feature_build_duration_seconds", "Duration of a full feature table rebuild")
	m.lastBuildUnixTime = m.gauge("feature_build_last_unixtime", "Completion time of the last feature build")

	m.predictionsServed = m.counter("predictions_total", "Player probabilities produced by the resolver")
	m.playersSkipped = m.counterVec("players_skipped_total", "Players excluded from predictions by reason", "reason")
	m.contractMismatches = m.counter("feature_contract_mismatches_total", "Prediction requests failed on a feature contract mismatch")
	m.resolveDuration = m.histogram("resolve_duration_seconds", "Duration of inference-time feature resolution")

	m.cacheLookups = m.counterVec("slate_cache_lookups_total", "Schedule cache lookups by result", "result")
	m.upstreamRequests = m.counterVec("upstream_requests_total", "Upstream requests by endpoint and outcome", "endpoint", "outcome")
	m.upstreamRetries = m.counter("upstream_retries_total", "Upstream request retries after 429/5xx or transport errors")

	m.modelReloads = m.counter("artifact_reloads_total", "Times a file-backed artifact was (re)loaded")
	m.modelAUC = m.gauge("model_auc", "Hold-out AUC of the most recently trained model")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})
}

// RecordObservationsIngested adds n appended observations.
func RecordObservationsIngested(n int) {
	globalManager.observationsIngested.Add(float64(n))
}

// RecordGameIngested increments the ingested games counter.
func RecordGameIngested() {
	globalManager.gamesIngested.Inc()
}

// RecordGameSkipped counts a game skipped during ingestion.
func RecordGameSkipped(reason string) {
	globalManager.gamesSkipped.WithLabelValues(reason).Inc()
}

// RecordDuplicatesRemoved adds n collapsed duplicates.
func RecordDuplicatesRemoved(n int) {
	globalManager.duplicatesRemoved.Add(float64(n))
}

// UpdateRecordsTotal sets the record store size.
func UpdateRecordsTotal(n int) {
	globalManager.recordsTotal.Set(float64(n))
}

// RecordFeatureBuild records a completed feature build.
func RecordFeatureBuild(rows, malformed int, d time.Duration) {
	globalManager.featureRowsBuilt.Set(float64(rows))
	globalManager.malformedGames.Add(float64(malformed))
	globalManager.buildDuration.Observe(d.Seconds())
	globalManager.lastBuildUnixTime.Set(float64(time.Now().Unix()))
}

// RecordPredictions adds n served predictions.
func RecordPredictions(n int) {
	globalManager.predictionsServed.Add(float64(n))
}

// RecordPlayerSkipped counts a player excluded from a prediction request.
func RecordPlayerSkipped(reason string) {
	globalManager.playersSkipped.WithLabelValues(reason).Inc()
}

// RecordContractMismatch counts a fatal feature contract mismatch.
func RecordContractMismatch() {
	globalManager.contractMismatches.Inc()
}

// RecordResolveDuration observes one resolver run.
func RecordResolveDuration(d time.Duration) {
	globalManager.resolveDuration.Observe(d.Seconds())
}

// RecordCacheLookup counts a slate cache hit or miss.
func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	globalManager.cacheLookups.WithLabelValues(result).Inc()
}

// RecordUpstreamRequest counts an upstream call outcome.
func RecordUpstreamRequest(endpoint, outcome string) {
	globalManager.upstreamRequests.WithLabelValues(endpoint, outcome).Inc()
}

// RecordUpstreamRetry increments the upstream retry counter.
func RecordUpstreamRetry() {
	globalManager.upstreamRetries.Inc()
}

// RecordArtifactReload increments the artifact reload counter.
func RecordArtifactReload() {
	globalManager.modelReloads.Inc()
}

// UpdateModelAUC sets the hold-out AUC gauge.
func UpdateModelAUC(auc float64) {
	globalManager.modelAUC.Set(auc)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// GetRegistry returns the registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
