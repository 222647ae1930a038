package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for the synthesis pipeline.
type Metrics struct {
	config   MetricsConfig
	registry *prometheus.Registry

	jobsStarted     prometheus.Counter
	jobsCompleted   *prometheus.CounterVec
	stageDuration   *prometheus.HistogramVec
	samplerAttempts prometheus.Counter
	catalogRecords  prometheus.Gauge

	server *http.Server
}

// NewMetrics creates and registers the pipeline metrics.
func NewMetrics(cfg MetricsConfig) *Metrics {
	if cfg.Namespace == "" {
		cfg.Namespace = "stellarsynth"
	}
	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,
		jobsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "jobs_started_total",
			Help:      "Number of synthesis jobs started.",
		}),
		jobsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "jobs_completed_total",
			Help:      "Number of synthesis jobs completed, by outcome and failure reason.",
		}, []string{"outcome", "reason"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of external tool stages.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"stage"}),
		samplerAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "sampler_attempts_total",
			Help:      "Number of random-mode candidate draws, accepted or rejected.",
		}),
		catalogRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Name:      "catalog_records",
			Help:      "Number of model atmosphere records in the catalog.",
		}),
	}

	registry.MustRegister(
		m.jobsStarted,
		m.jobsCompleted,
		m.stageDuration,
		m.samplerAttempts,
		m.catalogRecords,
	)
	return m
}

// JobStarted records a job entering execution.
func (m *Metrics) JobStarted() {
	m.jobsStarted.Inc()
}

// JobCompleted records a terminal job outcome. reason is empty for
// successes.
func (m *Metrics) JobCompleted(outcome, reason string) {
	m.jobsCompleted.WithLabelValues(outcome, reason).Inc()
}

// ObserveStage records the wall-clock duration of an external tool stage.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// SamplerAttempt counts one candidate draw in random mode.
func (m *Metrics) SamplerAttempt() {
	m.samplerAttempts.Inc()
}

// SetCatalogSize records the catalog size for the run.
func (m *Metrics) SetCatalogSize(n int) {
	m.catalogRecords.Set(float64(n))
}

// Serve starts the metrics HTTP endpoint if exposition is enabled. It
// returns immediately; the listener runs until Shutdown.
func (m *Metrics) Serve() {
	if !m.config.Enabled || m.config.ListenAddress == "" {
		return
	}
	path := m.config.Path
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	m.server = &http.Server{Addr: m.config.ListenAddress, Handler: mux}
	go func() {
		_ = m.server.ListenAndServe()
	}()
}

// Shutdown stops the metrics endpoint if it was started.
func (m *Metrics) Shutdown() {
	if m.server != nil {
		_ = m.server.Close()
	}
}
