package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/muurk/smartcast/internal/settings"
	"github.com/muurk/smartcast/internal/transport"
	"github.com/muurk/smartcast/internal/ui"
)

var assumeYes bool

var settingsCmd = &cobra.Command{
	Use:   "settings [dump|get PATH|set PATH VALUE|do PATH]",
	Short: "Browse and change the device settings tree",
	Long: `Browse and change the device's settings tree.

The whole tree under audio_settings is discovered first. PATH is relative
to the root, e.g. "audio/volume", or the full device path.

  dump             print every menu, setting and action
  get PATH         print one setting (re-read from the device) or a menu
  set PATH VALUE   write a setting using its current write token
  do PATH          trigger an action, after confirmation`,
	Example: `  smartcast settings dump
  smartcast settings get audio/bass
  smartcast settings set audio/bass 2
  smartcast settings do speaker_test --yes`,
	Args: cobra.RangeArgs(0, 3),
	RunE: runSettings,
}

func init() {
	settingsCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Trigger actions without asking")
	rootCmd.AddCommand(settingsCmd)
}

func runSettings(cmd *cobra.Command, args []string) error {
	action := "dump"
	if len(args) > 0 {
		action = args[0]
	}
	want := map[string]int{"dump": 1, "get": 2, "set": 3, "do": 2}
	n, ok := want[action]
	if !ok {
		return transport.NewInvalidArgumentError(fmt.Sprintf("unknown settings action %q", action))
	}
	if len(args) == 0 {
		args = []string{"dump"}
	}
	if len(args) != n {
		return transport.NewInvalidArgumentError(fmt.Sprintf("usage: settings %s", settingsUsage[action]))
	}

	t, spk, err := connect(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	header(cmd, "Settings", t)
	// A partial tree is still usable; the error is reported alongside it
	_, discoverErr := spk.Discover(ctx)

	switch action {
	case "dump":
		return settingsDump(cmd, spk.Settings(), discoverErr)
	case "get":
		node, err := findNode(spk.Settings(), args[1], discoverErr)
		if err != nil {
			return err
		}
		return settingsGet(ctx, cmd, spk.Settings(), node)
	case "set":
		node, err := findNode(spk.Settings(), args[1], discoverErr)
		if err != nil {
			return err
		}
		return settingsSet(ctx, cmd, node, args[2])
	default:
		node, err := findNode(spk.Settings(), args[1], discoverErr)
		if err != nil {
			return err
		}
		return settingsDo(ctx, cmd, node)
	}
}

var settingsUsage = map[string]string{
	"dump": "dump",
	"get":  "get PATH",
	"set":  "set PATH VALUE",
	"do":   "do PATH",
}

func findNode(tree *settings.Tree, path string, discoverErr error) (settings.Node, error) {
	node, ok := tree.Find(path)
	if ok {
		return node, nil
	}
	if discoverErr != nil {
		return nil, fmt.Errorf("setting %q not found (discovery incomplete: %w)", path, discoverErr)
	}
	return nil, transport.NewNotFoundError(fmt.Sprintf("no setting at %q", path))
}

func settingsDump(cmd *cobra.Command, tree *settings.Tree, discoverErr error) error {
	if discoverErr != nil && len(tree.Root().Children()) == 0 {
		return discoverErr
	}

	if outputFormat == formatJSON {
		if err := writeJSON(cmd.OutOrStdout(), tree.View()); err != nil {
			return err
		}
	} else {
		p := newPrinter(cmd)
		p.Print(ui.RenderTree(tree, p.Styled()))
	}

	if discoverErr != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: settings tree is incomplete: %v\n", discoverErr)
	}
	return nil
}

func settingsGet(ctx context.Context, cmd *cobra.Command, tree *settings.Tree, node settings.Node) error {
	switch n := node.(type) {
	case *settings.Setting:
		value, err := n.Fetch(ctx)
		if err != nil {
			return err
		}
		item := n.Item()
		if outputFormat == formatJSON {
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"path":  n.Path(),
				"name":  item.Name,
				"type":  item.Type,
				"value": value,
			})
		}
		return emit(cmd, item.Name,
			ui.Detail{Key: "Path", Value: n.Path()},
			ui.Detail{Key: "Type", Value: item.Type},
			ui.Detail{Key: "Value", Value: ui.FormatValue(value)},
		)

	case *settings.Action:
		return emit(cmd, n.Item().Name,
			ui.Detail{Key: "Path", Value: n.Path()},
			ui.Detail{Key: "Type", Value: "action (run with 'settings do')"},
		)

	default:
		if outputFormat == formatJSON {
			return writeJSON(cmd.OutOrStdout(), node.View())
		}
		var walker ui.TreeWalker = subtree{tree: tree, root: node.Path()}
		if node == settings.Node(tree.Root()) {
			walker = tree
		}
		p := newPrinter(cmd)
		p.Print(ui.RenderTree(walker, p.Styled()))
		return nil
	}
}

func settingsSet(ctx context.Context, cmd *cobra.Command, node settings.Node, raw string) error {
	setting, ok := node.(*settings.Setting)
	if !ok {
		return transport.NewInvalidArgumentError(fmt.Sprintf("%s is a %s, not a setting", node.Path(), node.Kind()))
	}

	value := parseSettingValue(raw, setting.Item().Value)
	body, err := setting.Set(ctx, value)
	if err != nil {
		return err
	}
	result, _ := body.Result()
	return emit(cmd, "Setting updated",
		ui.Detail{Key: "Path", Value: setting.Path()},
		ui.Detail{Key: "Value", Value: ui.FormatValue(value)},
		ui.Detail{Key: "Result", Value: result},
	)
}

func settingsDo(ctx context.Context, cmd *cobra.Command, node settings.Node) error {
	action, ok := node.(*settings.Action)
	if !ok {
		return transport.NewInvalidArgumentError(fmt.Sprintf("%s is a %s, not an action", node.Path(), node.Kind()))
	}

	if !assumeYes && !ui.ConfirmAction(cmd.InOrStdin(), cmd.ErrOrStderr(), action.Path()) {
		return nil
	}

	body, err := action.Trigger(ctx)
	if err != nil {
		return err
	}
	result, _ := body.Result()
	return emit(cmd, "Action triggered",
		ui.Detail{Key: "Path", Value: action.Path()},
		ui.Detail{Key: "Result", Value: result},
	)
}

// parseSettingValue converts raw to the type of the setting's current value.
// Values that do not parse as that type are sent as strings.
func parseSettingValue(raw string, current any) any {
	raw = strings.TrimSpace(raw)
	switch current.(type) {
	case float64, float32, int, int64:
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f
		}
	case bool:
		if b, err := strconv.ParseBool(raw); err == nil {
			return b
		}
	}
	return raw
}

// subtree walks the nodes under root only, with depths relative to root's
// children
type subtree struct {
	tree *settings.Tree
	root string
}

func (s subtree) Walk(fn func(node settings.Node, depth int) bool) {
	base := -1
	s.tree.Walk(func(node settings.Node, depth int) bool {
		switch {
		case node.Path() == s.root:
			base = depth + 1
			return true
		case base < 0:
			return true
		case !strings.HasPrefix(node.Path(), s.root+"/"):
			return false
		}
		return fn(node, depth-base)
	})
}
