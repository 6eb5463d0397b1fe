package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/muurk/smartcast/internal/bridge"
	"github.com/muurk/smartcast/internal/config"
	"github.com/muurk/smartcast/internal/discovery"
	"github.com/muurk/smartcast/internal/speaker"
	"github.com/muurk/smartcast/internal/wizard/tui"
)

var (
	watchInterval time.Duration
	watchTUI      bool
)

// watchCmd follows state changes
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow power, input, volume and mute changes",
	Long: `Poll the device and print a line whenever power, input, volume or
mute changes. The first line is the current state.

Polling never runs faster than every 5 seconds. With --tui the live
dashboard is shown instead, with keys for power, volume, mute and input.`,
	Example: `  smartcast watch
  smartcast watch --interval 10s --format json
  smartcast watch --tui`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

// wizardCmd launches the interactive TUI wizard
var wizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Launch the interactive wizard",
	Long: `Launch an interactive TUI for finding, pairing and controlling speakers.

The wizard provides:
- Discovery of speakers on the network (or a hand-typed address)
- PIN pairing, with the token saved to the config file
- A live dashboard for power, volume, mute, inputs and playback`,
	Example: `  # Launch wizard with auto-discovery
  smartcast wizard
  # Or simply (wizard is default):
  smartcast

  # Launch wizard for a specific device
  smartcast wizard --device 192.168.1.40`,
	Args: cobra.NoArgs,
	RunE: runWizard,
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "Poll interval (default from config, 60s)")
	watchCmd.Flags().BoolVar(&watchTUI, "tui", false, "Show the live dashboard")

	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(wizardCmd)
}

func pollInterval(reg *config.Registry, flag time.Duration) time.Duration {
	if flag > 0 {
		return flag
	}
	if d := reg.Preferences.PollIntervalDuration(); d > 0 {
		return d
	}
	return speaker.DefaultPollInterval
}

func runWatch(cmd *cobra.Command, args []string) error {
	t, spk, err := connect(cmd)
	if err != nil {
		return err
	}
	interval := pollInterval(t.Registry, watchInterval)

	if watchTUI {
		device := &discovery.Device{Name: t.Name, IP: t.IP, Port: t.Port}
		return runProgram(tui.NewAppModel(tui.Options{
			Device:   device,
			Interval: interval,
			Connect:  func(*discovery.Device) (*speaker.Speaker, bool) { return spk, true },
		}))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return watchChanges(ctx, cmd, spk, t.Name, interval)
}

// watchChanges prints one line per change until ctx is cancelled
func watchChanges(ctx context.Context, cmd *cobra.Command, spk *speaker.Speaker, name string, interval time.Duration) error {
	out := cmd.OutOrStdout()
	enc := json.NewEncoder(out)

	sub := spk.Subscribe(interval)
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case snap := <-sub.C:
			state := bridge.NewState(name, snap, time.Now())
			if outputFormat == formatJSON {
				if err := enc.Encode(state); err != nil {
					return err
				}
				continue
			}
			fmt.Fprintln(out, formatStateLine(state))
		case err := <-sub.Errors:
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: poll failed: %v\n", err)
		}
	}
}

func formatStateLine(state bridge.State) string {
	mute := "off"
	if state.Mute {
		mute = "on"
	}
	return fmt.Sprintf("%s  power=%s  input=%s  volume=%d  mute=%s",
		state.At.Local().Format("15:04:05"), state.Power, state.Input, state.Volume, mute)
}

func runWizard(cmd *cobra.Command, args []string) error {
	reg := loadRegistry()

	opts := tui.Options{
		Scan:        discovery.ScanForDevices,
		ScanTimeout: reg.Preferences.DiscoverTimeoutDuration(),
		Interval:    pollInterval(reg, 0),
		Connect: func(dev *discovery.Device) (*speaker.Speaker, bool) {
			key, entry, ok := reg.ResolveDevice(dev.Name)
			if !ok {
				key, entry, ok = reg.ResolveDevice(dev.IP)
			}
			if !ok {
				key = deviceKey(dev)
			}
			t := &target{Key: key, IP: dev.IP, Port: dev.Port, Registry: reg, Entry: entry}
			return t.newSpeaker(), t.paired()
		},
		OnPaired: func(dev *discovery.Device, deviceID, token string) error {
			key := deviceKey(dev)
			if existing, _, ok := reg.ResolveDevice(dev.Name); ok {
				key = existing
			}
			reg.UpdateDeviceLastSeen(key, dev.IP, dev.Port)
			reg.SetPairing(key, deviceID, token)
			return reg.Save()
		},
	}

	if deviceFlag != "" {
		t, err := resolveTarget(cmd)
		if err != nil {
			return err
		}
		opts.Device = &discovery.Device{Name: t.Name, IP: t.IP, Port: t.Port}
	}

	return runProgram(tui.NewAppModel(opts))
}

func runProgram(model tea.Model) error {
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("wizard error: %w", err)
	}
	return nil
}
