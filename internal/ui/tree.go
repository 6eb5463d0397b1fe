package ui

import (
	"fmt"
	"strings"

	"github.com/muurk/smartcast/internal/settings"
)

// TreeWalker is the part of *settings.Tree the renderer needs
type TreeWalker interface {
	Walk(fn func(node settings.Node, depth int) bool)
}

// RenderTree renders every node reachable through current listings as an
// indented outline. Menus are marked with a trailing slash, actions with "!".
func RenderTree(tree TreeWalker, styled bool) string {
	var b strings.Builder
	tree.Walk(func(node settings.Node, depth int) bool {
		b.WriteString(strings.Repeat("  ", depth))
		b.WriteString(renderNode(node, styled))
		b.WriteString("\n")
		return true
	})
	return b.String()
}

func renderNode(node settings.Node, styled bool) string {
	style := func(s string, render func(...string) string) string {
		if !styled {
			return s
		}
		return render(s)
	}

	switch n := node.(type) {
	case *settings.Menu:
		label := n.Name() + "/"
		if !n.Ready() {
			label += " (incomplete)"
		}
		return style(label, TreeMenuStyle.Render)
	case *settings.Action:
		return style(n.Name()+" !", TreeActionStyle.Render)
	case *settings.Setting:
		item := n.Item()
		line := style(n.Name(), TreeSettingStyle.Render) + " = " + style(FormatValue(n.View()), TreeValueStyle.Render)
		if item.Type != "" {
			line += "  " + style("["+item.Type+"]", TreeTypeStyle.Render)
		}
		return line
	default:
		return node.Name()
	}
}

// FormatValue renders a cached setting value for display
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "-"
	case string:
		if val == "" {
			return `""`
		}
		return val
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%g", val)
	case map[string]any:
		if name, ok := val["NAME"].(string); ok {
			return name
		}
		return fmt.Sprintf("%v", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
