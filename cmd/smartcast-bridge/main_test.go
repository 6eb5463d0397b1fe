package main

import (
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/muurk/smartcast/internal/bridge"
	"github.com/muurk/smartcast/internal/config"
	"github.com/muurk/smartcast/internal/speaker"
	"github.com/muurk/smartcast/internal/transport"
)

func parseFlags(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	deviceFlag, devicePort, listenAddr = "", transport.DefaultPort, ""
	mqttBroker, mqttUsername, topicPrefix = "", "", ""
	interval, refresh, logLevel = 0, bridge.DefaultSettingsRefresh, "info"
	rootCmd.Flags().VisitAll(func(f *pflag.Flag) { f.Changed = false })

	if err := rootCmd.ParseFlags(args); err != nil {
		t.Fatalf("ParseFlags(%v) error = %v", args, err)
	}
	return rootCmd
}

func TestResolveOptions_Defaults(t *testing.T) {
	cmd := parseFlags(t, "--device", "192.168.1.40")
	o := resolveOptions(cmd, config.NewRegistry())

	if o.IP != "192.168.1.40" || o.Port != transport.DefaultPort {
		t.Errorf("address = %s:%d", o.IP, o.Port)
	}
	if o.Listen != config.DefaultBridgeListen {
		t.Errorf("Listen = %q", o.Listen)
	}
	if o.Interval != time.Duration(config.DefaultPollInterval)*time.Second {
		t.Errorf("Interval = %v", o.Interval)
	}
	if o.Refresh != bridge.DefaultSettingsRefresh {
		t.Errorf("Refresh = %v, want %v", o.Refresh, bridge.DefaultSettingsRefresh)
	}
	if o.MQTT != nil {
		t.Errorf("MQTT = %+v, want disabled", o.MQTT)
	}
}

func TestResolveOptions_RegistryAndFlags(t *testing.T) {
	reg := config.NewRegistry()
	reg.UpdateDeviceLastSeen("SB3651-E6", "192.168.1.41", 7345)
	reg.SetDeviceNickname("SB3651-E6", "Kitchen")
	reg.SetPairing("SB3651-E6", "smartcast-1", "Zm9vYmFyYmF6")
	reg.Preferences.PollInterval = 0
	reg.Preferences.Bridge.MQTT = &config.MQTTPrefs{Broker: "tcp://broker:1883", TopicPrefix: "home"}

	cmd := parseFlags(t, "--device", "kitchen", "--listen", ":9000", "--interval", "10s", "--settings-refresh", "0", "--mqtt-username", "bridge")
	o := resolveOptions(cmd, reg)

	if o.Name != "Kitchen" || o.IP != "192.168.1.41" || o.Port != 7345 {
		t.Errorf("device = %s at %s:%d", o.Name, o.IP, o.Port)
	}
	if o.AuthToken != "Zm9vYmFyYmF6" {
		t.Errorf("AuthToken = %q", o.AuthToken)
	}
	if o.Listen != ":9000" || o.Interval != 10*time.Second || o.Refresh != 0 {
		t.Errorf("Listen = %q, Interval = %v, Refresh = %v", o.Listen, o.Interval, o.Refresh)
	}
	if o.MQTT == nil {
		t.Fatal("MQTT disabled, want broker from config")
	}
	if o.MQTT.Broker != "tcp://broker:1883" || o.MQTT.TopicPrefix != "home" || o.MQTT.Username != "bridge" || o.MQTT.Device != "Kitchen" {
		t.Errorf("MQTT = %+v", *o.MQTT)
	}
}

func TestResolveOptions_PortFlagWins(t *testing.T) {
	reg := config.NewRegistry()
	reg.UpdateDeviceLastSeen("SB3651-E6", "192.168.1.41", 7345)
	reg.Preferences.PollInterval = 0

	cmd := parseFlags(t, "--device", "192.168.1.41", "--port", "9000")
	o := resolveOptions(cmd, reg)

	if o.Port != 9000 {
		t.Errorf("Port = %d, want 9000", o.Port)
	}
	if o.Interval != speaker.DefaultPollInterval {
		t.Errorf("Interval = %v, want %v", o.Interval, speaker.DefaultPollInterval)
	}
}
