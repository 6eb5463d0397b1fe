package bridge

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/muurk/smartcast/internal/speaker"
	"github.com/muurk/smartcast/internal/version"
)

// Collector exposes the polled speaker state as Prometheus metrics
type Collector struct {
	powerOn       prometheus.Gauge
	volume        prometheus.Gauge
	muted         prometheus.Gauge
	input         *prometheus.GaugeVec
	changes       prometheus.Counter
	pollErrors    prometheus.Counter
	settingsReady prometheus.Gauge
	buildInfo     prometheus.Gauge
}

// NewCollector creates metrics labelled with the device name
func NewCollector(device string) *Collector {
	constLabels := prometheus.Labels{"device": device}
	return &Collector{
		powerOn: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "smartcast_power_on",
			Help:        "1 if the speaker reports power on",
			ConstLabels: constLabels,
		}),
		volume: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "smartcast_volume",
			Help:        "Current volume (0-100)",
			ConstLabels: constLabels,
		}),
		muted: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "smartcast_muted",
			Help:        "1 if the speaker is muted",
			ConstLabels: constLabels,
		}),
		input: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "smartcast_input_info",
			Help:        "Selected input (1 for the current input)",
			ConstLabels: constLabels,
		}, []string{"input"}),
		changes: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "smartcast_poll_changes_total",
			Help:        "State changes observed by the poller",
			ConstLabels: constLabels,
		}),
		pollErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "smartcast_poll_errors_total",
			Help:        "Polls that failed to read the device",
			ConstLabels: constLabels,
		}),
		settingsReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "smartcast_settings_ready",
			Help:        "1 once the whole settings tree has been discovered",
			ConstLabels: constLabels,
		}),
		buildInfo: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "smartcast_bridge_build_info",
			Help:        "Build information",
			ConstLabels: prometheus.Labels(version.Labels()),
		}),
	}
}

// Describe implements prometheus.Collector
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, m := range c.metrics() {
		m.Describe(ch)
	}
}

// Collect implements prometheus.Collector
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.buildInfo.Set(1)
	for _, m := range c.metrics() {
		m.Collect(ch)
	}
}

func (c *Collector) metrics() []prometheus.Collector {
	return []prometheus.Collector{
		c.powerOn, c.volume, c.muted, c.input,
		c.changes, c.pollErrors, c.settingsReady, c.buildInfo,
	}
}

// Observe records a changed snapshot
func (c *Collector) Observe(snap speaker.Snapshot) {
	c.powerOn.Set(boolValue(snap.Power == speaker.PowerOn))
	c.volume.Set(float64(snap.Volume))
	c.muted.Set(boolValue(snap.Mute))
	c.input.Reset()
	if snap.Input != "" {
		c.input.WithLabelValues(snap.Input).Set(1)
	}
	c.changes.Inc()
}

// PollFailed counts a failed poll
func (c *Collector) PollFailed() {
	c.pollErrors.Inc()
}

// SetSettingsReady records whether the settings tree is complete
func (c *Collector) SetSettingsReady(ready bool) {
	c.settingsReady.Set(boolValue(ready))
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
