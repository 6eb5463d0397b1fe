package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/muurk/smartcast/internal/logging"
	"github.com/muurk/smartcast/internal/speaker"
	"github.com/muurk/smartcast/internal/transport"
)

const (
	refreshTimeout  = 10 * time.Second
	discoverTimeout = time.Minute

	// DefaultSettingsRefresh is how often the settings tree is traversed again
	// once it is ready
	DefaultSettingsRefresh = 5 * time.Minute

	// DefaultDiscoveryRetry is the first wait before retrying a discovery that
	// left the tree not ready. Later retries double up to the refresh interval.
	DefaultDiscoveryRetry = 5 * time.Second
)

// Bridge relays one speaker's state to websocket clients, MQTT and
// Prometheus.
type Bridge struct {
	spk      *speaker.Speaker
	name     string
	interval time.Duration
	logger   *zap.Logger

	settingsRefresh time.Duration
	discoveryRetry  time.Duration

	hub       *Hub
	mqtt      *MQTTPublisher
	collector *Collector
	registry  *prometheus.Registry

	mu        sync.RWMutex
	latest    speaker.Snapshot
	hasLatest bool
	state     State

	now func() time.Time
}

// Option configures a Bridge
type Option func(*Bridge)

// WithInterval sets the poll interval (default speaker.DefaultPollInterval)
func WithInterval(interval time.Duration) Option {
	return func(b *Bridge) { b.interval = interval }
}

// WithSettingsRefresh sets how often the settings tree is traversed again
// (default DefaultSettingsRefresh). A non-positive interval disables periodic
// traversal; a tree that is not ready is still retried.
func WithSettingsRefresh(interval time.Duration) Option {
	return func(b *Bridge) { b.settingsRefresh = interval }
}

// WithMQTT publishes state through p and accepts its set commands
func WithMQTT(p *MQTTPublisher) Option {
	return func(b *Bridge) { b.mqtt = p }
}

// WithLogger sets the bridge logger
func WithLogger(logger *zap.Logger) Option {
	return func(b *Bridge) { b.logger = logger }
}

// WithTransportMetrics registers per-request device metrics alongside the
// state metrics
func WithTransportMetrics(m *transport.Metrics) Option {
	return func(b *Bridge) { b.registry.MustRegister(m) }
}

// New creates a bridge for spk. name identifies the device in messages,
// topics and metric labels.
func New(spk *speaker.Speaker, name string, opts ...Option) *Bridge {
	b := &Bridge{
		spk:       spk,
		name:      name,
		interval:  speaker.DefaultPollInterval,
		collector: NewCollector(name),
		registry:  prometheus.NewRegistry(),
		now:       time.Now,

		settingsRefresh: DefaultSettingsRefresh,
		discoveryRetry:  DefaultDiscoveryRetry,
	}
	b.registry.MustRegister(b.collector)
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = logging.Named("bridge")
	}
	b.logger = b.logger.With(zap.String("device", name))
	b.hub = NewHub(b.logger.Named("hub"))
	return b
}

// Run discovers the settings tree, then polls the speaker and fans every
// change out until ctx is cancelled. The tree is traversed again every
// settings refresh interval so topology changes reach /settings. While a
// traversal leaves it not ready, smartcast_settings_ready stays 0 and
// discovery is retried with exponential backoff; the state relay runs
// throughout.
func (b *Bridge) Run(ctx context.Context) error {
	retry := b.newDiscoveryBackoff()
	ready := b.discover(ctx)

	if b.mqtt != nil {
		if err := b.mqtt.Subscribe(func() { b.refresh(ctx) }); err != nil {
			return err
		}
	}

	sub := b.spk.Subscribe(b.interval)
	defer sub.Close()
	defer b.hub.Close()

	discoverTimer := time.NewTimer(time.Hour)
	discoverTimer.Stop()
	defer discoverTimer.Stop()
	if next := b.nextDiscovery(ready, retry); next > 0 {
		discoverTimer.Reset(next)
	}

	b.logger.Info("Bridge running",
		zap.Duration("interval", b.interval),
		zap.Duration("settings_refresh", b.settingsRefresh))
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Bridge stopping")
			return nil
		case snap := <-sub.C:
			b.publish(snap)
		case err := <-sub.Errors:
			b.collector.PollFailed()
			b.logger.Warn("Poll failed", zap.Error(err))
		case <-discoverTimer.C:
			ready = b.discover(ctx)
			if next := b.nextDiscovery(ready, retry); next > 0 {
				discoverTimer.Reset(next)
			}
		}
	}
}

// discover traverses the settings tree and reports whether it is ready
func (b *Bridge) discover(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, discoverTimeout)
	defer cancel()

	if _, err := b.spk.Discover(ctx); err != nil {
		b.logger.Warn("Settings discovery incomplete", zap.Error(err))
	}
	ready := b.spk.Settings().IsReady()
	b.collector.SetSettingsReady(ready)
	return ready
}

func (b *Bridge) newDiscoveryBackoff() *backoff.ExponentialBackOff {
	ceiling := b.settingsRefresh
	if ceiling <= 0 {
		ceiling = DefaultSettingsRefresh
	}
	retry := &backoff.ExponentialBackOff{
		InitialInterval: min(b.discoveryRetry, ceiling),
		Multiplier:      2,
		MaxInterval:     ceiling,
		Clock:           backoff.SystemClock,
	}
	retry.Reset()
	return retry
}

// nextDiscovery returns the wait before the next traversal, or 0 for none.
// A ready tree waits the refresh interval and resets the retry backoff.
func (b *Bridge) nextDiscovery(ready bool, retry *backoff.ExponentialBackOff) time.Duration {
	if ready {
		retry.Reset()
		if b.settingsRefresh <= 0 {
			return 0
		}
		return b.settingsRefresh
	}
	return retry.NextBackOff()
}

// refresh reads the device straight after an MQTT command so subscribers
// do not wait for the next poll
func (b *Bridge) refresh(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()

	snap, err := b.spk.Snapshot(ctx)
	if err != nil {
		b.logger.Debug("Refresh after command failed", zap.Error(err))
		return
	}
	b.publish(snap)
}

// publish records snap and sends it everywhere unless it equals the last
// published snapshot
func (b *Bridge) publish(snap speaker.Snapshot) {
	b.mu.Lock()
	if b.hasLatest && b.latest == snap {
		b.mu.Unlock()
		return
	}
	b.latest, b.hasLatest = snap, true
	b.state = NewState(b.name, snap, b.now())
	state := b.state
	b.mu.Unlock()

	payload, err := json.Marshal(state)
	if err != nil {
		b.logger.Error("Failed to encode state", zap.Error(err))
		return
	}

	b.collector.Observe(snap)
	b.collector.SetSettingsReady(b.spk.Settings().IsReady())
	b.hub.Broadcast(payload)
	if b.mqtt != nil {
		if err := b.mqtt.Publish(payload); err != nil {
			b.logger.Warn("MQTT publish failed", zap.Error(err))
		}
	}
	b.logger.Debug("State changed",
		zap.String("power", state.Power),
		zap.String("input", state.Input),
		zap.Int("volume", state.Volume),
		zap.Bool("mute", state.Mute))
}

// State returns the last published state
func (b *Bridge) State() (State, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state, b.hasLatest
}

// Handler serves /events, /metrics, /state and /settings
func (b *Bridge) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/events", b.hub)
	mux.Handle("/metrics", promhttp.HandlerFor(b.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/state", b.handleState)
	mux.HandleFunc("/settings", b.handleSettings)
	return mux
}

func (b *Bridge) handleState(w http.ResponseWriter, r *http.Request) {
	state, ok := b.State()
	if !ok {
		http.Error(w, "no state yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, state)
}

func (b *Bridge) handleSettings(w http.ResponseWriter, r *http.Request) {
	tree := b.spk.Settings()
	if tree.IsReady() {
		w.Header().Set("X-Settings-Ready", "true")
	} else {
		w.Header().Set("X-Settings-Ready", "false")
	}
	writeJSON(w, tree.View())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
