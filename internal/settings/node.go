package settings

import (
	"strings"

	"github.com/muurk/smartcast/internal/wire"
)

// Kind is the closed set of node variants in a settings tree
type Kind int

const (
	// KindSetting is a readable/writable leaf value
	KindSetting Kind = iota
	// KindMenu is a container of further nodes
	KindMenu
	// KindAction is a write-only leaf that triggers a device command
	KindAction
)

// String returns a human-readable name for the kind
func (k Kind) String() string {
	switch k {
	case KindMenu:
		return "menu"
	case KindAction:
		return "action"
	default:
		return "setting"
	}
}

// settingMarkers are TYPE fragments known to describe value nodes
var settingMarkers = []string{"VALUE", "LIST", "STRING", "HEADER", "BOOL", "SLIDER", "IP", "MATRIX", "DEVICE", "X_"}

// Classify maps a device TYPE string to exactly one kind.
// Anything that is neither a menu nor an action is a setting; the second result
// reports whether the type was recognised at all.
func Classify(typ string) (Kind, bool) {
	upper := strings.ToUpper(typ)
	switch {
	case strings.Contains(upper, "MENU"):
		return KindMenu, true
	case strings.Contains(upper, "ACTION"):
		return KindAction, true
	}
	for _, marker := range settingMarkers {
		if strings.Contains(upper, marker) {
			return KindSetting, true
		}
	}
	return KindSetting, false
}

// Node is one path in the settings hierarchy: *Menu, *Setting or *Action
type Node interface {
	// Path is the device endpoint path of the node
	Path() string
	// Name is the last segment of Path (the item's CNAME)
	Name() string
	Kind() Kind
	// Ready reports whether the node has completed at least one full population
	Ready() bool
	// View returns the read-only cache view of the node
	View() any

	sealed()
}

func baseName(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}

// isEmptyView reports whether a cache view carries nothing worth exposing
func isEmptyView(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case map[string]any:
		return len(val) == 0
	default:
		return false
	}
}

// itemView applies the device's named-option convention: a VALUE record whose
// NAME is empty stands for the item's own NAME.
func itemView(item wire.Item) any {
	if name, ok := item.ValueName(); ok && name == "" {
		return item.Name
	}
	return item.Value
}
