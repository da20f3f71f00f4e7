package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the gateway
type Metrics struct {
	registry *prometheus.Registry

	// Session metrics
	SessionsActive       prometheus.Gauge
	SessionsCreatedTotal prometheus.Counter
	LogoutsTotal         prometheus.Counter
	QRGeneratedTotal     prometheus.Counter

	// Send pipeline metrics
	SendsTotal      *prometheus.CounterVec
	TranscodesTotal prometheus.Counter
	SendDuration    prometheus.Histogram
	DownloadedBytes prometheus.Counter
}

// NewMetrics creates and registers all metrics
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		// Session metrics
		SessionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "wagate_sessions_active",
				Help: "Number of currently registered sessions",
			},
		),
		SessionsCreatedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "wagate_sessions_created_total",
				Help: "Total number of sessions created",
			},
		),
		LogoutsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "wagate_logouts_total",
				Help: "Total number of logouts performed",
			},
		),
		QRGeneratedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "wagate_qr_generated_total",
				Help: "Total number of QR challenges received",
			},
		),

		// Send pipeline metrics
		SendsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wagate_sends_total",
				Help: "Total number of media send attempts",
			},
			[]string{"result"},
		),
		TranscodesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "wagate_transcodes_total",
				Help: "Total number of media transcodes performed",
			},
		),
		SendDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "wagate_send_duration_seconds",
				Help:    "Duration of the full media send pipeline in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		DownloadedBytes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "wagate_downloaded_bytes_total",
				Help: "Total bytes downloaded by the media pipeline",
			},
		),
	}

	m.registerMetrics()

	return m
}

// registerMetrics registers all metrics with the registry
func (m *Metrics) registerMetrics() {
	m.registry.MustRegister(m.SessionsActive)
	m.registry.MustRegister(m.SessionsCreatedTotal)
	m.registry.MustRegister(m.LogoutsTotal)
	m.registry.MustRegister(m.QRGeneratedTotal)

	m.registry.MustRegister(m.SendsTotal)
	m.registry.MustRegister(m.TranscodesTotal)
	m.registry.MustRegister(m.SendDuration)
	m.registry.MustRegister(m.DownloadedBytes)
}

// Handler returns an HTTP handler for the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
