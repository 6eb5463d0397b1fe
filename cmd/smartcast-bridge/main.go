// Smartcast-bridge relays the state of one SmartCast speaker to other systems.
//
// It polls the speaker and publishes every change of power, input, volume and
// mute to websocket clients on /events, as Prometheus metrics on /metrics,
// and optionally as retained MQTT messages. MQTT set topics control the
// speaker.
//
// Usage:
//
//	smartcast-bridge --device "Living Room" [flags]
//
// Defaults come from the bridge section of the smartcast config file.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/smartcast/internal/bridge"
	"github.com/muurk/smartcast/internal/config"
	"github.com/muurk/smartcast/internal/logging"
	"github.com/muurk/smartcast/internal/speaker"
	"github.com/muurk/smartcast/internal/transport"
	"github.com/muurk/smartcast/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		logging.Sync()
		os.Exit(1)
	}
	logging.Sync()
}

var (
	deviceFlag   string
	devicePort   int
	listenAddr   string
	mqttBroker   string
	mqttUsername string
	topicPrefix  string
	interval     time.Duration
	refresh      time.Duration
	logLevel     string
)

var rootCmd = &cobra.Command{
	Use:   "smartcast-bridge",
	Short: "Relay SmartCast speaker state over websocket, Prometheus and MQTT",
	Long: `Poll one SmartCast speaker and relay every state change.

Endpoints on --listen:
  /events    websocket; the current state on connect, then one JSON message per change
  /metrics   Prometheus metrics for the speaker and its HTTP traffic
  /state     the latest state as JSON
  /settings  the cached settings tree as JSON

With --mqtt-broker, state is also published retained to
<prefix>/<device>/state and <prefix>/<device>/set/{power,volume,mute,input}
accept commands. The broker password is read from ` + bridge.MQTTPasswordEnvVar + `.`,
	Example: `  # Bridge a paired speaker known to the config file
  smartcast-bridge --device "Living Room"

  # Publish to a local broker and poll every 10 seconds
  smartcast-bridge --device 192.168.1.40 --mqtt-broker tcp://localhost:1883 --interval 10s`,
	Version:       version.Full(),
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runBridge,
}

func init() {
	rootCmd.Flags().StringVarP(&deviceFlag, "device", "d", "", "Device name, nickname or address (required)")
	rootCmd.Flags().IntVar(&devicePort, "port", transport.DefaultPort, "Device control port")
	rootCmd.Flags().StringVar(&listenAddr, "listen", "", "HTTP listen address (default from config, "+config.DefaultBridgeListen+")")
	rootCmd.Flags().StringVar(&mqttBroker, "mqtt-broker", "", "MQTT broker URL, e.g. tcp://localhost:1883 (disabled when empty)")
	rootCmd.Flags().StringVar(&mqttUsername, "mqtt-username", "", "MQTT username")
	rootCmd.Flags().StringVar(&topicPrefix, "topic-prefix", "", "MQTT topic prefix (default "+config.DefaultTopicPrefix+")")
	rootCmd.Flags().DurationVar(&interval, "interval", 0, "Poll interval (default from config, 60s; minimum 5s)")
	rootCmd.Flags().DurationVar(&refresh, "settings-refresh", bridge.DefaultSettingsRefresh, "How often to traverse the settings tree again (0 disables)")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	_ = rootCmd.MarkFlagRequired("device")
}

// options are the effective bridge settings after merging flags over config
type options struct {
	Name      string
	IP        string
	Port      int
	AuthToken string
	Listen    string
	Interval  time.Duration
	Refresh   time.Duration
	MQTT      *bridge.MQTTConfig
}

func resolveOptions(cmd *cobra.Command, reg *config.Registry) options {
	o := options{
		Name:    deviceFlag,
		IP:      deviceFlag,
		Port:    devicePort,
		Listen:  config.DefaultBridgeListen,
		Refresh: refresh,
	}

	if key, entry, ok := reg.ResolveDevice(deviceFlag); ok {
		o.Name = key
		if entry.Nickname != "" {
			o.Name = entry.Nickname
		}
		if entry.LastIP != "" {
			o.IP = entry.LastIP
		}
		if entry.Port != 0 && !cmd.Flags().Changed("port") {
			o.Port = entry.Port
		}
		o.AuthToken = entry.AuthToken
	}

	prefs := reg.Preferences
	o.Interval = prefs.PollIntervalDuration()
	if interval > 0 {
		o.Interval = interval
	}
	if o.Interval == 0 {
		o.Interval = speaker.DefaultPollInterval
	}

	var mqttPrefs *config.MQTTPrefs
	if prefs != nil && prefs.Bridge != nil {
		if prefs.Bridge.Listen != "" {
			o.Listen = prefs.Bridge.Listen
		}
		mqttPrefs = prefs.Bridge.MQTT
	}
	if listenAddr != "" {
		o.Listen = listenAddr
	}

	mq := bridge.MQTTConfig{Device: o.Name}
	if mqttPrefs != nil {
		mq.Broker = mqttPrefs.Broker
		mq.Username = mqttPrefs.Username
		mq.TopicPrefix = mqttPrefs.TopicPrefix
	}
	if mqttBroker != "" {
		mq.Broker = mqttBroker
	}
	if mqttUsername != "" {
		mq.Username = mqttUsername
	}
	if topicPrefix != "" {
		mq.TopicPrefix = topicPrefix
	}
	if strings.TrimSpace(mq.Broker) != "" {
		o.MQTT = &mq
	}
	return o
}

func runBridge(cmd *cobra.Command, args []string) error {
	if err := logging.Initialize(logLevel); err != nil {
		return fmt.Errorf("invalid --log-level: %w", err)
	}
	logger := logging.Named("bridge")

	reg, err := config.LoadRegistry()
	if err != nil {
		logger.Warn("Failed to load config, using defaults", zap.Error(err))
		reg = config.NewRegistry()
	}
	o := resolveOptions(cmd, reg)
	if o.AuthToken == "" {
		logger.Warn("Device is not paired; state reads may be refused", zap.String("device", o.Name))
	}

	metrics := transport.NewMetrics(o.Name)
	spkOpts := []speaker.Option{
		speaker.WithPort(o.Port),
		speaker.WithLogger(logging.Named("speaker")),
		speaker.WithMetrics(metrics),
	}
	if o.AuthToken != "" {
		spkOpts = append(spkOpts, speaker.WithAuthToken(o.AuthToken))
	}
	spk := speaker.New(o.IP, spkOpts...)

	bridgeOpts := []bridge.Option{
		bridge.WithInterval(o.Interval),
		bridge.WithSettingsRefresh(o.Refresh),
		bridge.WithLogger(logger),
		bridge.WithTransportMetrics(metrics),
	}
	if o.MQTT != nil {
		pub, err := bridge.NewMQTTPublisher(*o.MQTT, spk, logging.Named("mqtt"))
		if err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
		defer pub.Close()
		bridgeOpts = append(bridgeOpts, bridge.WithMQTT(pub))
	}
	b := bridge.New(spk, o.Name, bridgeOpts...)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting bridge",
		zap.String("device", o.Name),
		zap.String("address", fmt.Sprintf("%s:%d", o.IP, o.Port)),
		zap.String("listen", o.Listen),
		zap.Bool("mqtt", o.MQTT != nil),
		zap.String("version", version.Full()),
	)

	// A failed listener stops the poller too
	serveErr := make(chan error, 1)
	go func() {
		err := bridge.Serve(ctx, o.Listen, b.Handler(), logger)
		if err != nil {
			stop()
		}
		serveErr <- err
	}()

	runErr := b.Run(ctx)
	stop()
	if err := <-serveErr; err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	return runErr
}
