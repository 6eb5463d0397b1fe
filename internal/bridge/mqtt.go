package bridge

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/muurk/smartcast/internal/logging"
	"github.com/muurk/smartcast/internal/speaker"
	"github.com/muurk/smartcast/internal/transport"
)

// MQTTPasswordEnvVar holds the broker password; it is never stored in the registry
const MQTTPasswordEnvVar = "SMARTCAST_MQTT_PASSWORD"

const (
	mqttQoS        = 1
	setTimeout     = 10 * time.Second
	connectTimeout = 10 * time.Second
)

// Controls accepted under <prefix>/<device>/set/
var Controls = []string{"power", "volume", "mute", "input"}

// MQTTConfig configures the publisher
type MQTTConfig struct {
	Broker      string
	Username    string
	Password    string
	ClientID    string
	TopicPrefix string
	Device      string
}

// MQTTPublisher publishes retained device state and maps set commands onto
// speaker calls.
type MQTTPublisher struct {
	client mqtt.Client
	spk    *speaker.Speaker
	prefix string
	device string
	logger *zap.Logger
}

// NewMQTTPublisher connects to the broker. The connection retries in the
// background after the first success.
func NewMQTTPublisher(cfg MQTTConfig, spk *speaker.Speaker, logger *zap.Logger) (*MQTTPublisher, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("mqtt broker is required")
	}
	if logger == nil {
		logger = logging.Named("mqtt")
	}
	if cfg.Password == "" {
		cfg.Password = os.Getenv(MQTTPasswordEnvVar)
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "smartcast-" + TopicSegment(cfg.Device)
	}

	p := newPublisher(spk, cfg.TopicPrefix, cfg.Device, logger)

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetClientID(cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetWill(p.availabilityTopic(), "offline", mqttQoS, true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("MQTT connection lost", zap.Error(err))
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("connect to %s: timed out", cfg.Broker)
	} else if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.Broker, err)
	}
	p.client = client

	if err := p.publish(p.availabilityTopic(), []byte("online")); err != nil {
		logger.Warn("Failed to publish availability", zap.Error(err))
	}
	logger.Info("Connected to MQTT broker", zap.String("broker", cfg.Broker), zap.String("topic", p.StateTopic()))
	return p, nil
}

func newPublisher(spk *speaker.Speaker, prefix, device string, logger *zap.Logger) *MQTTPublisher {
	if prefix == "" {
		prefix = "smartcast"
	}
	return &MQTTPublisher{
		spk:    spk,
		prefix: strings.TrimSuffix(prefix, "/"),
		device: TopicSegment(device),
		logger: logger,
	}
}

// TopicSegment makes name safe for use as one MQTT topic level
func TopicSegment(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "speaker"
	}
	return b.String()
}

// StateTopic is where retained state is published
func (p *MQTTPublisher) StateTopic() string {
	return p.prefix + "/" + p.device + "/state"
}

// SetTopic is the command topic for control
func (p *MQTTPublisher) SetTopic(control string) string {
	return p.prefix + "/" + p.device + "/set/" + control
}

func (p *MQTTPublisher) availabilityTopic() string {
	return p.prefix + "/" + p.device + "/availability"
}

// Publish sends payload as the retained state
func (p *MQTTPublisher) Publish(payload []byte) error {
	return p.publish(p.StateTopic(), payload)
}

func (p *MQTTPublisher) publish(topic string, payload []byte) error {
	token := p.client.Publish(topic, mqttQoS, true, payload)
	if !token.WaitTimeout(setTimeout) {
		return fmt.Errorf("publish %s: timed out", topic)
	}
	return token.Error()
}

// Subscribe starts listening on the set topics. applied is called after each
// command the device accepts.
func (p *MQTTPublisher) Subscribe(applied func()) error {
	for _, control := range Controls {
		topic := p.SetTopic(control)
		token := p.client.Subscribe(topic, mqttQoS, func(_ mqtt.Client, msg mqtt.Message) {
			ctx, cancel := context.WithTimeout(context.Background(), setTimeout)
			defer cancel()

			if err := p.Apply(ctx, control, string(msg.Payload())); err != nil {
				p.logger.Warn("MQTT command failed",
					zap.String("topic", msg.Topic()),
					zap.String("payload", string(msg.Payload())),
					zap.Error(err))
				return
			}
			if applied != nil {
				applied()
			}
		})
		if !token.WaitTimeout(setTimeout) {
			return fmt.Errorf("subscribe %s: timed out", topic)
		}
		if err := token.Error(); err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
	}
	return nil
}

// Apply runs one set command.
//
//	power   on | off | toggle
//	volume  0-100 | up | down
//	mute    on | off | toggle
//	input   input name
func (p *MQTTPublisher) Apply(ctx context.Context, control, payload string) error {
	value := strings.TrimSpace(payload)
	word := strings.ToLower(value)

	var err error
	switch control {
	case "power":
		switch word {
		case "on", "1", "true":
			_, err = p.spk.Power.On(ctx)
		case "off", "0", "false":
			_, err = p.spk.Power.Off(ctx)
		case "toggle":
			_, err = p.spk.Power.Toggle(ctx)
		default:
			return invalidPayload(control, payload)
		}

	case "volume":
		switch word {
		case "up":
			_, err = p.spk.Volume.Up(ctx)
		case "down":
			_, err = p.spk.Volume.Down(ctx)
		default:
			level, perr := speaker.ParseVolume(value)
			if perr != nil {
				return perr
			}
			_, err = p.spk.Volume.Set(ctx, level)
		}

	case "mute":
		switch word {
		case "on", "1", "true":
			_, err = p.spk.Volume.Mute(ctx)
		case "off", "0", "false":
			_, err = p.spk.Volume.Unmute(ctx)
		case "toggle":
			_, err = p.spk.Volume.ToggleMute(ctx)
		default:
			return invalidPayload(control, payload)
		}

	case "input":
		_, err = p.spk.Input.Set(ctx, value)

	default:
		return transport.NewInvalidArgumentError(fmt.Sprintf("unknown control %q", control))
	}
	return err
}

func invalidPayload(control, payload string) error {
	return transport.NewInvalidArgumentError(fmt.Sprintf("invalid %s payload %q", control, payload))
}

// Close marks the device offline and disconnects
func (p *MQTTPublisher) Close() {
	if p.client == nil {
		return
	}
	if err := p.publish(p.availabilityTopic(), []byte("offline")); err != nil {
		p.logger.Debug("Failed to publish availability", zap.Error(err))
	}
	p.client.Disconnect(250)
}
