package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/muurk/smartcast/internal/discovery"
	"github.com/muurk/smartcast/internal/logging"
	"github.com/muurk/smartcast/internal/speaker"
	"github.com/muurk/smartcast/internal/transport"
	"github.com/muurk/smartcast/internal/ui"
	"github.com/muurk/smartcast/internal/wire"
)

// Command flags
var (
	scanTimeout int
	pairPIN     string
	pairToken   int64
	pairID      string
)

func init() {
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(pairCmd)
	rootCmd.AddCommand(powerCmd)
	rootCmd.AddCommand(volumeCmd)
	rootCmd.AddCommand(inputCmd)
	rootCmd.AddCommand(mediaCmd)
	rootCmd.AddCommand(keyCmd)
	rootCmd.AddCommand(nickCmd)
}

// scanCmd discovers devices on the network
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for SmartCast devices on the network",
	Long: `Scan for SmartCast devices using mDNS/DNS-SD discovery.

Listens for _viziocast._tcp advertisements and lists every device found
with its address and model. Found devices are remembered in the config
file so later commands can refer to them by name.`,
	Example: `  # Scan for 10 seconds (default)
  smartcast scan

  # Quick 3-second scan
  smartcast scan --timeout 3`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().IntVar(&scanTimeout, "timeout", 10, "Scan timeout in seconds")
}

func runScan(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if outputFormat == formatText {
		fmt.Fprintf(out, "Scanning for SmartCast devices (timeout: %ds)...\n\n", scanTimeout)
	}

	devices, err := discovery.ScanForDevices(time.Duration(scanTimeout) * time.Second)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	reg := loadRegistry()
	for _, device := range devices {
		reg.UpdateDeviceLastSeen(deviceKey(device), device.IP, device.Port)
	}
	if len(devices) > 0 {
		if err := reg.Save(); err != nil {
			logging.Warn("Failed to save config", zap.Error(err))
		}
	}

	if outputFormat == formatJSON {
		type row struct {
			Name     string `json:"name"`
			Nickname string `json:"nickname,omitempty"`
			Model    string `json:"model,omitempty"`
			IP       string `json:"ip"`
			Port     int    `json:"port"`
			Paired   bool   `json:"paired"`
		}
		rows := make([]row, 0, len(devices))
		for _, device := range devices {
			entry := reg.GetDevice(deviceKey(device))
			rows = append(rows, row{
				Name:     device.Name,
				Nickname: entry.Nickname,
				Model:    device.Model,
				IP:       device.IP,
				Port:     device.Port,
				Paired:   entry.AuthToken != "",
			})
		}
		return writeJSON(out, rows)
	}

	if len(devices) == 0 {
		fmt.Fprintln(out, "No devices found.")
		fmt.Fprintln(out, "\nTroubleshooting:")
		fmt.Fprintln(out, "  - Ensure the speaker is powered on and on the same network")
		fmt.Fprintln(out, "  - Multicast DNS may be blocked by the router or a firewall")
		fmt.Fprintln(out, "  - Try increasing --timeout for slower networks")
		fmt.Fprintln(out, "  - Use --device flag to specify an address manually")
		return nil
	}

	fmt.Fprintf(out, "Found %d device(s):\n\n", len(devices))
	for i, device := range devices {
		entry := reg.GetDevice(deviceKey(device))
		fmt.Fprintf(out, "%d. %s\n", i+1, displayName(deviceKey(device), entry))
		if device.Model != "" {
			fmt.Fprintf(out, "   Model:   %s\n", device.Model)
		}
		fmt.Fprintf(out, "   Address: %s\n", device.Address())
		if entry.AuthToken != "" {
			fmt.Fprintln(out, "   Paired:  yes")
		}
		fmt.Fprintln(out)
	}

	fmt.Fprintln(out, "Use 'smartcast pair --device <name>' to pair with a device")
	fmt.Fprintln(out, "Use 'smartcast wizard' for interactive control")
	return nil
}

// pairCmd runs the PIN pairing exchange
var pairCmd = &cobra.Command{
	Use:   "pair",
	Short: "Pair with a device",
	Long: `Pair with a SmartCast device and store the access token.

The device shows a PIN (or announces it) once pairing starts. When run
interactively the PIN is read from the terminal. Otherwise the command
prints the pairing id and token; finish with --pin, --token and --id.`,
	Example: `  # Interactive pairing
  smartcast pair --device 192.168.1.40

  # Two-step pairing for scripts
  smartcast pair --device 192.168.1.40 < /dev/null
  smartcast pair --device 192.168.1.40 --id smartcast-1714557600000 --token 584217 --pin 1234`,
	Args: cobra.NoArgs,
	RunE: runPair,
}

func init() {
	pairCmd.Flags().StringVar(&pairPIN, "pin", "", "PIN shown by the device (completes a started pairing)")
	pairCmd.Flags().Int64Var(&pairToken, "token", 0, "Pairing request token printed by the first step")
	pairCmd.Flags().StringVar(&pairID, "id", "", "Pairing id printed by the first step")
}

func runPair(cmd *cobra.Command, args []string) error {
	t, spk, err := connect(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	header(cmd, "Pair Device", t)

	var pending *speaker.PairResult
	pin := pairPIN

	if pin != "" {
		if pairID == "" {
			return transport.NewInvalidArgumentError("--pin needs the --id printed when pairing started")
		}
		pending = &speaker.PairResult{DeviceID: pairID, Token: pairToken, ChallengeType: 1}
	} else {
		pending, err = spk.Pair(ctx)
		if err != nil {
			return fmt.Errorf("pairing start failed: %w", err)
		}
		if pending.Result != wire.ResultSuccess {
			return fmt.Errorf("pairing start failed: device answered %s", pending.Result)
		}

		if !term.IsTerminal(int(os.Stdin.Fd())) || outputFormat == formatJSON {
			return emit(cmd, "Pairing started",
				ui.Detail{Key: "ID", Value: pending.DeviceID},
				ui.Detail{Key: "Token", Value: strconv.FormatInt(pending.Token, 10)},
				ui.Detail{Key: "Next", Value: fmt.Sprintf("smartcast pair --device %s --id %s --token %d --pin <PIN>", t.IP, pending.DeviceID, pending.Token)},
			)
		}

		pin, err = promptPIN(cmd.InOrStdin(), cmd.OutOrStdout())
		if err != nil {
			return err
		}
	}

	token, err := spk.CompletePair(ctx, pending, pin)
	if err != nil {
		return fmt.Errorf("pairing failed: %w", err)
	}

	t.Registry.UpdateDeviceLastSeen(t.Key, t.IP, t.Port)
	t.Registry.SetPairing(t.Key, pending.DeviceID, token)
	if err := t.Registry.Save(); err != nil {
		return fmt.Errorf("paired, but saving the token failed: %w", err)
	}

	return emit(cmd, "Paired",
		ui.Detail{Key: "Device", Value: t.Name},
		ui.Detail{Key: "ID", Value: pending.DeviceID},
	)
}

func promptPIN(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, "Enter the PIN shown on the device: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("no PIN entered")
	}
	pin := strings.TrimSpace(line)
	if pin == "" {
		return "", fmt.Errorf("no PIN entered")
	}
	return pin, nil
}

// powerCmd reads or switches power
var powerCmd = &cobra.Command{
	Use:       "power [get|on|off|toggle]",
	Short:     "Show or change power state",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"get", "on", "off", "toggle"},
	Example: `  smartcast power
  smartcast power on --device "Living Room"`,
	RunE: runPower,
}

func runPower(cmd *cobra.Command, args []string) error {
	_, spk, err := connect(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	action := "get"
	if len(args) == 1 {
		action = args[0]
	}

	var result string
	switch action {
	case "get":
		state, err := spk.Power.Get(ctx)
		if err != nil {
			return err
		}
		return emit(cmd, "Power", ui.Detail{Key: "Power", Value: state.String()})
	case "on":
		result, err = spk.Power.On(ctx)
	case "off":
		result, err = spk.Power.Off(ctx)
	case "toggle":
		result, err = spk.Power.Toggle(ctx)
	}
	if err != nil {
		return err
	}
	return emit(cmd, "Power "+action, ui.Detail{Key: "Result", Value: result})
}

// volumeCmd reads or changes volume and mute
var volumeCmd = &cobra.Command{
	Use:   "volume [get|set N|up|down|mute|unmute|toggle-mute]",
	Short: "Show or change volume and mute",
	Long: `Show or change the volume (0-100) and mute state.

set rounds fractional values to the nearest step. up and down press the
remote volume keys once.`,
	Example: `  smartcast volume
  smartcast volume set 35
  smartcast volume toggle-mute`,
	Args: cobra.RangeArgs(0, 2),
	RunE: runVolume,
}

func runVolume(cmd *cobra.Command, args []string) error {
	action := "get"
	if len(args) > 0 {
		action = args[0]
	}

	var level float64
	switch action {
	case "set":
		if len(args) != 2 {
			return transport.NewInvalidArgumentError("volume set needs a value, e.g. 'volume set 35'")
		}
		var err error
		if level, err = speaker.ParseVolume(args[1]); err != nil {
			return err
		}
	case "get", "up", "down", "mute", "unmute", "toggle-mute":
		if len(args) > 1 {
			return transport.NewInvalidArgumentError(fmt.Sprintf("volume %s takes no value", action))
		}
	default:
		return transport.NewInvalidArgumentError(fmt.Sprintf("unknown volume action %q", action))
	}

	_, spk, err := connect(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	var result string
	switch action {
	case "get":
		volume, err := spk.Volume.Get(ctx)
		if err != nil {
			return err
		}
		muted, err := spk.Volume.GetMute(ctx)
		if err != nil {
			return err
		}
		return emit(cmd, "Volume",
			ui.Detail{Key: "Volume", Value: strconv.Itoa(volume)},
			ui.Detail{Key: "Muted", Value: strconv.FormatBool(muted)},
		)
	case "set":
		result, err = spk.Volume.Set(ctx, level)
	case "up":
		result, err = spk.Volume.Up(ctx)
	case "down":
		result, err = spk.Volume.Down(ctx)
	case "mute":
		result, err = spk.Volume.Mute(ctx)
	case "unmute":
		result, err = spk.Volume.Unmute(ctx)
	case "toggle-mute":
		result, err = spk.Volume.ToggleMute(ctx)
	}
	if err != nil {
		return err
	}
	return emit(cmd, "Volume "+action, ui.Detail{Key: "Result", Value: result})
}

// inputCmd lists and selects inputs
var inputCmd = &cobra.Command{
	Use:   "input [list|get|set NAME]",
	Short: "List, show or select inputs",
	Long: `List, show or select the active input.

Inputs match by display name or underlying input name, ignoring case.`,
	Example: `  smartcast input list
  smartcast input set aux`,
	Args: cobra.RangeArgs(0, 2),
	RunE: runInput,
}

func runInput(cmd *cobra.Command, args []string) error {
	action := "get"
	if len(args) > 0 {
		action = args[0]
	}
	switch action {
	case "list", "get":
		if len(args) > 1 {
			return transport.NewInvalidArgumentError(fmt.Sprintf("input %s takes no value", action))
		}
	case "set":
		if len(args) != 2 {
			return transport.NewInvalidArgumentError("input set needs a name, e.g. 'input set AUX'")
		}
	default:
		return transport.NewInvalidArgumentError(fmt.Sprintf("unknown input action %q", action))
	}

	_, spk, err := connect(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	switch action {
	case "list":
		names, err := spk.Input.List(ctx)
		if err != nil {
			return err
		}
		current, err := spk.Input.Get(ctx)
		if err != nil {
			return err
		}
		if outputFormat == formatJSON {
			return writeJSON(cmd.OutOrStdout(), map[string]any{"inputs": names, "current": current})
		}
		out := cmd.OutOrStdout()
		for _, name := range names {
			marker := "  "
			if strings.EqualFold(name, current) {
				marker = "* "
			}
			fmt.Fprintln(out, marker+name)
		}
		return nil
	case "get":
		current, err := spk.Input.Get(ctx)
		if err != nil {
			return err
		}
		return emit(cmd, "Input", ui.Detail{Key: "Input", Value: current})
	default:
		result, err := spk.Input.Set(ctx, args[1])
		if err != nil {
			return err
		}
		return emit(cmd, "Input set", ui.Detail{Key: "Input", Value: args[1]}, ui.Detail{Key: "Result", Value: result})
	}
}

// mediaCmd sends playback keys
var mediaCmd = &cobra.Command{
	Use:       "media play|pause",
	Short:     "Play or pause playback",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"play", "pause"},
	RunE: func(cmd *cobra.Command, args []string) error {
		_, spk, err := connect(cmd)
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()

		var result string
		if args[0] == "play" {
			result, err = spk.Media.Play(ctx)
		} else {
			result, err = spk.Media.Pause(ctx)
		}
		if err != nil {
			return err
		}
		return emit(cmd, "Media "+args[0], ui.Detail{Key: "Result", Value: result})
	},
}

// keyCmd sends a raw remote key
var keyCmd = &cobra.Command{
	Use:   "key CODESET CODE | key NAME",
	Short: "Send a remote-control key",
	Long: `Send one remote-control key press, either as a codeset/code pair or by name.

Known names: ` + strings.Join(keyNames(), ", "),
	Example: `  smartcast key 5 1
  smartcast key mute-toggle`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := parseKey(args)
		if err != nil {
			return err
		}
		_, spk, err := connect(cmd)
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()

		result, err := spk.KeyCommand(ctx, key)
		if err != nil {
			return err
		}
		return emit(cmd, "Key sent",
			ui.Detail{Key: "Key", Value: fmt.Sprintf("%d/%d", key.Codeset, key.Code)},
			ui.Detail{Key: "Result", Value: result},
		)
	},
}

func keyNames() []string {
	names := make([]string, 0, len(speaker.Keys))
	for name := range speaker.Keys {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// parseKey accepts "CODESET CODE" or a key name
func parseKey(args []string) (speaker.Key, error) {
	if len(args) == 1 {
		key, ok := speaker.Keys[strings.ToLower(args[0])]
		if !ok {
			return speaker.Key{}, transport.NewInvalidArgumentError(fmt.Sprintf("unknown key %q (known: %s)", args[0], strings.Join(keyNames(), ", ")))
		}
		return key, nil
	}

	codeset, err := strconv.Atoi(args[0])
	if err != nil || codeset < 0 {
		return speaker.Key{}, transport.NewInvalidArgumentError(fmt.Sprintf("invalid codeset %q", args[0]))
	}
	code, err := strconv.Atoi(args[1])
	if err != nil || code < 0 {
		return speaker.Key{}, transport.NewInvalidArgumentError(fmt.Sprintf("invalid code %q", args[1]))
	}
	return speaker.Key{Codeset: codeset, Code: code}, nil
}

// nickCmd names a device in the registry
var nickCmd = &cobra.Command{
	Use:   "nick NAME",
	Short: "Set a nickname for a device",
	Long: `Store a nickname for a device in the config file.

The nickname can then be passed to --device in place of the address.`,
	Example: `  smartcast nick kitchen --device 192.168.1.41`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := resolveTarget(cmd)
		if err != nil {
			return err
		}
		nickname := strings.TrimSpace(args[0])
		if nickname == "" {
			return transport.NewInvalidArgumentError("nickname must not be empty")
		}

		t.Registry.UpdateDeviceLastSeen(t.Key, t.IP, t.Port)
		t.Registry.SetDeviceNickname(t.Key, nickname)
		if err := t.Registry.Save(); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		return emit(cmd, "Nickname saved",
			ui.Detail{Key: "Device", Value: t.Key},
			ui.Detail{Key: "Nickname", Value: nickname},
		)
	},
}
