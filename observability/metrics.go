package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics receives pipeline measurements.
type Metrics interface {
	ObserveStage(stage string, d time.Duration)
	CountResult(operation, code string)
	ObserveArtifact(bytes int)
	CountImage(outcome string)
	CountAsset(kind, origin string)
}

type NopMetrics struct{}

func (NopMetrics) ObserveStage(string, time.Duration) {}
func (NopMetrics) CountResult(string, string)         {}
func (NopMetrics) ObserveArtifact(int)                {}
func (NopMetrics) CountImage(string)                  {}
func (NopMetrics) CountAsset(string, string)          {}

// PrometheusMetrics records pipeline metrics on a Prometheus registerer.
type PrometheusMetrics struct {
	StageDuration *prometheus.HistogramVec
	Results       *prometheus.CounterVec
	ArtifactBytes prometheus.Histogram
	ImageOutcomes *prometheus.CounterVec
	AssetOrigins  *prometheus.CounterVec
}

// NewPrometheusMetrics creates the collectors and registers them on reg.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	m := &PrometheusMetrics{
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricStageDuration,
			Help:    "Duration of certificate pipeline stages in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),
		Results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricResults,
			Help: "Certificate operations by outcome code",
		}, []string{"operation", "code"}),
		ArtifactBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricArtifactBytes,
			Help:    "Size of encoded certificate artifacts in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
		}),
		ImageOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricImageOutcomes,
			Help: "Embedded image settle outcomes",
		}, []string{"outcome"}),
		AssetOrigins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricAssetOrigins,
			Help: "Resolved assets by kind and origin",
		}, []string{"kind", "origin"}),
	}
	if reg != nil {
		reg.MustRegister(m.StageDuration, m.Results, m.ArtifactBytes, m.ImageOutcomes, m.AssetOrigins)
	}
	return m
}

func (m *PrometheusMetrics) ObserveStage(stage string, d time.Duration) {
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *PrometheusMetrics) CountResult(operation, code string) {
	if code == "" {
		code = "ok"
	}
	m.Results.WithLabelValues(operation, code).Inc()
}

func (m *PrometheusMetrics) ObserveArtifact(bytes int) {
	m.ArtifactBytes.Observe(float64(bytes))
}

func (m *PrometheusMetrics) CountImage(outcome string) {
	m.ImageOutcomes.WithLabelValues(outcome).Inc()
}

func (m *PrometheusMetrics) CountAsset(kind, origin string) {
	m.AssetOrigins.WithLabelValues(kind, origin).Inc()
}
