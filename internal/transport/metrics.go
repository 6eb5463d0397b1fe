package transport

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/muurk/smartcast/internal/wire"
)

// Metrics collects per-request transport metrics.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates transport metrics labelled with the device name
func NewMetrics(device string) *Metrics {
	constLabels := prometheus.Labels{"device": device}
	return &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "smartcast_transport_requests_total",
			Help:        "Device requests by method and outcome (success, rejected, text, error)",
			ConstLabels: constLabels,
		}, []string{"method", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "smartcast_transport_request_duration_seconds",
			Help:        "Device request latency",
			ConstLabels: constLabels,
			Buckets:     []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method"}),
	}
}

// Describe implements prometheus.Collector
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.requests.Describe(ch)
	m.duration.Describe(ch)
}

// Collect implements prometheus.Collector
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.requests.Collect(ch)
	m.duration.Collect(ch)
}

func (m *Metrics) observe(method string, body *wire.Body, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, outcome(body, err)).Inc()
	m.duration.WithLabelValues(method).Observe(elapsed.Seconds())
}

func outcome(body *wire.Body, err error) string {
	if err != nil {
		return "error"
	}
	if body.IsText() {
		return "text"
	}
	if result, ok := body.Result(); ok && result == wire.ResultSuccess {
		return "success"
	}
	return "rejected"
}
