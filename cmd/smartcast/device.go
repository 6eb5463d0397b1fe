package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/smartcast/internal/config"
	"github.com/muurk/smartcast/internal/discovery"
	"github.com/muurk/smartcast/internal/logging"
	"github.com/muurk/smartcast/internal/speaker"
	"github.com/muurk/smartcast/internal/ui"
)

const (
	formatText = "text"
	formatJSON = "json"

	// commandTimeout bounds one CLI command's device traffic
	commandTimeout = 30 * time.Second
)

// target is the device a command talks to
type target struct {
	// Key is the registry key (the advertised name, or the address for hand-added devices)
	Key  string
	Name string
	IP   string
	Port int

	Registry *config.Registry
	Entry    *config.Device
}

// loadRegistry returns the user registry, or an empty one when it cannot be read
func loadRegistry() *config.Registry {
	reg, err := config.LoadRegistry()
	if err != nil {
		logging.Warn("Failed to load config, using defaults", zap.Error(err))
		return config.NewRegistry()
	}
	return reg
}

// resolveTarget picks the device from --device (registry name, nickname or
// address) or, when unset, from a discovery scan that finds exactly one device.
func resolveTarget(cmd *cobra.Command) (*target, error) {
	reg := loadRegistry()
	portSet := cmd.Flags().Changed("port")

	if deviceFlag != "" {
		key, entry, ok := reg.ResolveDevice(deviceFlag)
		if !ok {
			return &target{Key: deviceFlag, Name: deviceFlag, IP: deviceFlag, Port: devicePort, Registry: reg}, nil
		}
		t := &target{Key: key, Name: displayName(key, entry), IP: entry.LastIP, Port: entry.Port, Registry: reg, Entry: entry}
		if t.IP == "" {
			t.IP = deviceFlag
		}
		if portSet || t.Port == 0 {
			t.Port = devicePort
		}
		return t, nil
	}

	if !reg.Preferences.AutoDiscover {
		return nil, fmt.Errorf("no device specified and auto-discovery is disabled. Use --device")
	}

	timeout := reg.Preferences.DiscoverTimeoutDuration()
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "No device specified, attempting auto-discovery...")
	devices, err := discovery.ScanForDevices(timeout)
	if err != nil {
		return nil, fmt.Errorf("discovery failed: %w", err)
	}

	switch len(devices) {
	case 0:
		return nil, fmt.Errorf("no devices found. Use --device flag to specify an address")
	case 1:
	default:
		var b strings.Builder
		for i, device := range devices {
			fmt.Fprintf(&b, "\n  %d. %s", i+1, device)
		}
		return nil, fmt.Errorf("multiple devices found, use --device to pick one:%s", b.String())
	}

	device := devices[0]
	key := deviceKey(device)
	reg.UpdateDeviceLastSeen(key, device.IP, device.Port)
	if err := reg.Save(); err != nil {
		logging.Warn("Failed to save config", zap.Error(err))
	}
	entry := reg.GetDevice(key)
	fmt.Fprintf(cmd.ErrOrStderr(), "Found device: %s\n\n", device)

	return &target{Key: key, Name: displayName(key, entry), IP: device.IP, Port: device.Port, Registry: reg, Entry: entry}, nil
}

func deviceKey(device *discovery.Device) string {
	if device.Name != "" {
		return device.Name
	}
	return device.IP
}

func displayName(key string, entry *config.Device) string {
	if entry != nil && entry.Nickname != "" {
		return entry.Nickname
	}
	return key
}

// newSpeaker builds a client for t, applying the stored pairing token
func (t *target) newSpeaker() *speaker.Speaker {
	opts := []speaker.Option{speaker.WithPort(t.Port), speaker.WithLogger(logging.Named("cli"))}
	if t.Entry != nil && t.Entry.AuthToken != "" {
		opts = append(opts, speaker.WithAuthToken(t.Entry.AuthToken))
	}
	return speaker.New(t.IP, opts...)
}

func (t *target) paired() bool {
	return t.Entry != nil && t.Entry.AuthToken != ""
}

func (t *target) address() string {
	return fmt.Sprintf("%s:%d", t.IP, t.Port)
}

// connect resolves the target and builds its speaker
func connect(cmd *cobra.Command) (*target, *speaker.Speaker, error) {
	t, err := resolveTarget(cmd)
	if err != nil {
		return nil, nil, err
	}
	return t, t.newSpeaker(), nil
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, commandTimeout)
}

// newPrinter styles output only when writing to an interactive stdout
func newPrinter(cmd *cobra.Command) *ui.Printer {
	if w := cmd.OutOrStdout(); w != os.Stdout {
		return ui.NewPrinter(w)
	}
	return ui.NewPrinter(nil)
}

// emit prints a command result as a result box, plain lines or a JSON object
func emit(cmd *cobra.Command, title string, details ...ui.Detail) error {
	if outputFormat == formatJSON {
		obj := make(map[string]string, len(details))
		for _, d := range details {
			obj[jsonKey(d.Key)] = d.Value
		}
		return writeJSON(cmd.OutOrStdout(), obj)
	}
	newPrinter(cmd).PrintSuccess(title, details...)
	return nil
}

func jsonKey(key string) string {
	return strings.ReplaceAll(strings.ToLower(key), " ", "_")
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func header(cmd *cobra.Command, title string, t *target) {
	if outputFormat == formatJSON {
		return
	}
	newPrinter(cmd).PrintHeader(title, cmd.CommandPath(),
		ui.Param{Key: "Device", Value: t.Name},
		ui.Param{Key: "Address", Value: t.address()},
	)
}
