// Smartcast is a command-line client for SmartCast audio devices.
//
// It discovers speakers over mDNS, pairs with them, and controls power,
// volume, inputs and media playback. The settings command browses and edits
// the device's full settings tree, and watch follows state changes live.
//
// Usage:
//
//	smartcast [command] [flags]
//
// Running without arguments launches the interactive wizard.
// See 'smartcast --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/smartcast/internal/logging"
	"github.com/muurk/smartcast/internal/transport"
	"github.com/muurk/smartcast/internal/ui"
	"github.com/muurk/smartcast/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		printer := ui.NewPrinter(nil)
		if printer.Styled() {
			printer.PrintError("Command failed", err)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		logging.Sync()
		os.Exit(1)
	}
	logging.Sync()
}

// Global flags
var (
	deviceFlag   string
	devicePort   int
	outputFormat string
	logLevel     string
)

var rootCmd = &cobra.Command{
	Use:   "smartcast",
	Short: "SmartCast Speaker Control Utility",
	Long: `A command-line client for SmartCast sound bars and speakers.

Discovers devices on the local network, pairs with them, and controls
power, volume, inputs and playback. The settings command exposes the
device's whole settings tree.

If no command is specified, the interactive wizard will launch automatically.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch outputFormat {
		case formatText, formatJSON:
		default:
			return fmt.Errorf("unknown --format %q (use text or json)", outputFormat)
		}
		return logging.Initialize(logLevel)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default behavior: run wizard when no subcommand provided
		return runWizard(cmd, args)
	},
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVarP(&deviceFlag, "device", "d", "", "Device IP, hostname or registry name (skips discovery)")
	rootCmd.PersistentFlags().IntVar(&devicePort, "port", transport.DefaultPort, "Device control port")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", formatText, "Output format (text, json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); silent when unset")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "smartcast %s\n", version.Full())
	},
}
