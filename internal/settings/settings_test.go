package settings

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/muurk/smartcast/internal/devicetest"
	"github.com/muurk/smartcast/internal/transport"
)

func newTestTree(t *testing.T, dev *devicetest.Device) (*Tree, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	return NewTree(dev, devicetest.RootPath, WithLogger(zap.New(core))), logs
}

func standardView() map[string]any {
	return map[string]any{
		"audio": map[string]any{
			"volume": float64(22),
			"mute":   "Off",
			"eq":     "Music",
			"bass":   float64(0),
		},
		"input": map[string]any{
			"current_input": "HDMI-ARC",
			"hdmi":          map[string]any{"NAME": "HDMI-ARC", "METADATA": ""},
			"aux":           map[string]any{"NAME": "AUX", "METADATA": ""},
			"bt":            map[string]any{"NAME": "BT", "METADATA": ""},
		},
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		typ       string
		wantKind  Kind
		wantKnown bool
	}{
		{"T_MENU_V1", KindMenu, true},
		{"T_ACTION_V1", KindAction, true},
		{"T_VALUE_ABS_V1", KindSetting, true},
		{"T_LIST_X_V1", KindSetting, true},
		{"T_STRING_V1", KindSetting, true},
		{"T_HEADER_V1", KindSetting, true},
		{"T_DEVICE_V1", KindSetting, true},
		{"t_menu_v1", KindMenu, true},
		{"T_WIDGET_V9", KindSetting, false},
		{"", KindSetting, false},
	}

	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			kind, known := Classify(tt.typ)
			if kind != tt.wantKind || known != tt.wantKnown {
				t.Errorf("Classify(%q) = (%v, %v), want (%v, %v)", tt.typ, kind, known, tt.wantKind, tt.wantKnown)
			}
		})
	}
}

func TestTreeFetch_View(t *testing.T) {
	tree, _ := newTestTree(t, devicetest.Standard())

	view, err := tree.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if !reflect.DeepEqual(view, standardView()) {
		t.Errorf("Fetch() view = %#v\nwant %#v", view, standardView())
	}
	if !reflect.DeepEqual(tree.View(), view) {
		t.Error("View() differs from the view returned by Fetch()")
	}
}

func TestTreeFetch_Readiness(t *testing.T) {
	tree, logs := newTestTree(t, devicetest.Standard())

	if tree.IsReady() {
		t.Fatal("tree ready before first fetch")
	}
	if tree.Root().Ready() {
		t.Fatal("root ready before first fetch")
	}

	if _, err := tree.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	select {
	case <-tree.Ready():
	default:
		t.Fatal("Ready() not closed after a complete fetch")
	}

	// Every ready container has only ready children
	tree.Walk(func(n Node, depth int) bool {
		if !n.Ready() {
			t.Errorf("node %s not ready after complete fetch", n.Path())
		}
		return true
	})

	// Re-fetching never reverts readiness nor signals again
	for i := 0; i < 3; i++ {
		if _, err := tree.Fetch(context.Background()); err != nil {
			t.Fatalf("Fetch() #%d error = %v", i+2, err)
		}
		if !tree.IsReady() || !tree.Root().Ready() {
			t.Fatalf("readiness reverted after fetch #%d", i+2)
		}
	}
	if n := logs.FilterMessage("Settings discovery complete").Len(); n != 1 {
		t.Errorf("ready signalled %d times, want 1", n)
	}
}

func TestTreeFetch_Idempotent(t *testing.T) {
	tree, _ := newTestTree(t, devicetest.Standard())
	ctx := context.Background()

	first, err := tree.Fetch(ctx)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	volume, _ := tree.Lookup("audio", "volume")
	audio, _ := tree.Lookup("audio")

	second, err := tree.Fetch(ctx)
	if err != nil {
		t.Fatalf("second Fetch() error = %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("views differ across identical fetches:\n%#v\n%#v", first, second)
	}

	volume2, _ := tree.Lookup("audio", "volume")
	audio2, _ := tree.Lookup("audio")
	if volume != volume2 {
		t.Error("setting node was replaced on re-fetch")
	}
	if audio != audio2 {
		t.Error("menu node was replaced on re-fetch")
	}
}

func TestTreeFetch_RequestOrder(t *testing.T) {
	dev := devicetest.Standard()
	tree, _ := newTestTree(t, dev)

	if _, err := tree.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	want := []string{devicetest.RootPath, devicetest.AudioPath, devicetest.InputPath}
	calls := dev.Calls()
	if len(calls) != len(want) {
		t.Fatalf("made %d requests, want %d: %+v", len(calls), len(want), calls)
	}
	for i, call := range calls {
		if call.Method != http.MethodGet || call.Path != want[i] {
			t.Errorf("request %d = %s %s, want GET %s", i, call.Method, call.Path, want[i])
		}
	}
}

func TestTreeFetch_RootFailure(t *testing.T) {
	dev := devicetest.Standard()
	dev.Fail(devicetest.RootPath, devicetest.ErrDropped)
	tree, _ := newTestTree(t, dev)

	_, err := tree.Fetch(context.Background())
	if !errors.Is(err, devicetest.ErrDropped) {
		t.Fatalf("Fetch() error = %v, want ErrDropped", err)
	}
	if tree.IsReady() {
		t.Error("tree ready after root failure")
	}
	if len(tree.View()) != 0 {
		t.Errorf("View() = %v, want empty", tree.View())
	}
}

func TestTreeFetch_ChildFailureLeavesPartialTree(t *testing.T) {
	dev := devicetest.Standard()
	dev.Fail(devicetest.InputPath, devicetest.ErrDropped)
	tree, _ := newTestTree(t, dev)
	ctx := context.Background()

	view, err := tree.Fetch(ctx)
	if err != nil {
		t.Fatalf("Fetch() error = %v, want nil for a child failure", err)
	}
	if _, ok := view["audio"]; !ok {
		t.Error("sibling branch missing from partial view")
	}
	if _, ok := view["input"]; ok {
		t.Error("failed branch should have an empty (omitted) view")
	}
	if tree.IsReady() {
		t.Error("tree ready with a failed branch")
	}
	if audio, _ := tree.Lookup("audio"); !audio.Ready() {
		t.Error("healthy sibling should be ready")
	}

	dev.Fail(devicetest.InputPath, nil)
	view, err = tree.Fetch(ctx)
	if err != nil {
		t.Fatalf("recovery Fetch() error = %v", err)
	}
	if !tree.IsReady() {
		t.Error("tree not ready after the failed branch recovered")
	}
	if !reflect.DeepEqual(view, standardView()) {
		t.Errorf("recovered view = %#v", view)
	}
}

func TestTreeFetch_VanishedChildIsHiddenAndReused(t *testing.T) {
	dev := devicetest.Standard()
	tree, _ := newTestTree(t, dev)
	ctx := context.Background()

	if _, err := tree.Fetch(ctx); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	bass, ok := tree.Lookup("audio", "bass")
	if !ok {
		t.Fatal("bass missing after first fetch")
	}

	dev.RemoveItem(devicetest.AudioPath, "bass")
	view, err := tree.Fetch(ctx)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if _, ok := view["audio"].(map[string]any)["bass"]; ok {
		t.Error("vanished child still in view")
	}
	if _, ok := tree.Lookup("audio", "bass"); ok {
		t.Error("vanished child still reachable")
	}
	audio, _ := tree.Lookup("audio")
	for _, name := range audio.(*Menu).Children() {
		if name == "bass" {
			t.Error("vanished child still listed")
		}
	}

	dev.AddItem(devicetest.AudioPath, devicetest.ValueItem("bass", "T_VALUE_V1", "Bass", 3, 999))
	if _, err := tree.Fetch(ctx); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	again, ok := tree.Lookup("audio", "bass")
	if !ok {
		t.Fatal("returning child not reachable")
	}
	if again != bass {
		t.Error("returning child was not reused")
	}
	if got := again.View(); got != float64(3) {
		t.Errorf("returning child view = %v, want 3", got)
	}
}

func TestTreeFetch_KindChangeReplacesNode(t *testing.T) {
	dev := devicetest.Standard()
	tree, _ := newTestTree(t, dev)
	ctx := context.Background()

	if _, err := tree.Fetch(ctx); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	dev.RemoveItem(devicetest.AudioPath, "bass")
	dev.AddItem(devicetest.AudioPath, devicetest.MenuItem("bass", "Bass"))
	dev.SetListing(devicetest.AudioPath+"/bass", devicetest.MenuResponse(
		devicetest.ValueItem("level", "T_VALUE_V1", "Level", 4, 501),
	))

	view, err := tree.Fetch(ctx)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	node, _ := tree.Lookup("audio", "bass")
	if node.Kind() != KindMenu {
		t.Fatalf("bass kind = %v, want menu", node.Kind())
	}
	want := map[string]any{"level": float64(4)}
	if got := view["audio"].(map[string]any)["bass"]; !reflect.DeepEqual(got, want) {
		t.Errorf("bass view = %#v, want %#v", got, want)
	}
}

func TestTreeFetch_UnknownTypeBecomesSetting(t *testing.T) {
	dev := devicetest.Standard()
	dev.AddItem(devicetest.AudioPath, devicetest.ValueItem("mystery", "T_WIDGET_V9", "Mystery", "x", 77))
	tree, logs := newTestTree(t, dev)

	if _, err := tree.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	node, ok := tree.Find("audio/mystery")
	if !ok {
		t.Fatal("unknown-type node missing")
	}
	if _, isSetting := node.(*Setting); !isSetting {
		t.Errorf("unknown-type node is %T, want *Setting", node)
	}
	if logs.FilterMessage("Unrecognised settings node type, treating as setting").Len() != 1 {
		t.Error("expected one warning for the unknown type")
	}
	if !tree.IsReady() {
		t.Error("unknown types must not block readiness")
	}
}

func TestTreeFetch_NonMenuResponseKeepsChildren(t *testing.T) {
	dev := devicetest.Standard()
	tree, _ := newTestTree(t, dev)
	ctx := context.Background()

	if _, err := tree.Fetch(ctx); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	dev.SetRaw(devicetest.AudioPath, "<html>busy</html>")
	view, err := tree.Fetch(ctx)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if got := view["audio"].(map[string]any)["volume"]; got != float64(22) {
		t.Errorf("volume after text response = %v, want 22", got)
	}
	audio, _ := tree.Lookup("audio")
	if raw := audio.(*Menu).Raw(); !raw.IsText() || raw.Text != "<html>busy</html>" {
		t.Errorf("Raw() = %+v, want the text body", raw)
	}
}

func TestSetting_ViewConvention(t *testing.T) {
	tree, _ := newTestTree(t, devicetest.Standard())
	if _, err := tree.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	tests := []struct {
		path string
		want any
	}{
		{"audio/eq", "Music"},
		{"audio/mute", "Off"},
		{"audio/volume", float64(22)},
		{"input/aux", map[string]any{"NAME": "AUX", "METADATA": ""}},
		{"speaker_test", nil},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			node, ok := tree.Find(tt.path)
			if !ok {
				t.Fatalf("Find(%q) failed", tt.path)
			}
			if got := node.View(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("View() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestSetting_Fetch(t *testing.T) {
	dev := devicetest.Standard()
	tree, _ := newTestTree(t, dev)
	ctx := context.Background()

	if _, err := tree.Fetch(ctx); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	dev.SetValue(devicetest.VolumePath, 41)

	node, _ := tree.Find("audio/volume")
	got, err := node.(*Setting).Fetch(ctx)
	if err != nil {
		t.Fatalf("Setting.Fetch() error = %v", err)
	}
	if got != float64(41) {
		t.Errorf("Setting.Fetch() = %v, want 41", got)
	}
	if dev.CallCount(http.MethodGet, devicetest.VolumePath) != 1 {
		t.Error("Setting.Fetch() should request its own path once")
	}
}

func TestSetting_SetUsesCachedToken(t *testing.T) {
	dev := devicetest.Standard()
	tree, _ := newTestTree(t, dev)
	ctx := context.Background()

	if _, err := tree.Fetch(ctx); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	node, _ := tree.Find("audio/volume")
	volume := node.(*Setting)

	dev.ResetCalls()
	if _, err := volume.Set(ctx, 30); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	calls := dev.Calls()
	if len(calls) != 1 {
		t.Fatalf("Set() made %d requests, want 1", len(calls))
	}
	call := calls[0]
	if call.Method != http.MethodPut || call.Path != devicetest.VolumePath {
		t.Errorf("Set() sent %s %s", call.Method, call.Path)
	}
	if call.Body["REQUEST"] != "MODIFY" || call.Body["HASHVAL"] != float64(101) || call.Body["VALUE"] != float64(30) {
		t.Errorf("Set() payload = %v", call.Body)
	}

	// The device rotated the token; the cached one is now stale
	body, err := volume.Set(ctx, 31)
	if !transport.IsRejected(err) {
		t.Fatalf("Set() with stale token error = %v, want rejection", err)
	}
	if result, _ := body.Result(); result != "HASHVAL_ERROR" {
		t.Errorf("rejection result = %q, want HASHVAL_ERROR", result)
	}
	if got := volume.View(); got != float64(22) {
		t.Errorf("cached view changed by Set(): %v", got)
	}

	// A refresh picks up the new token and value
	if _, err := tree.Fetch(ctx); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if got := volume.View(); got != float64(30) {
		t.Errorf("view after refresh = %v, want 30", got)
	}
	if _, err := volume.Set(ctx, 31); err != nil {
		t.Errorf("Set() after refresh error = %v", err)
	}
}

func TestAction_Trigger(t *testing.T) {
	dev := devicetest.Standard()
	tree, _ := newTestTree(t, dev)
	ctx := context.Background()

	if _, err := tree.Fetch(ctx); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	node, ok := tree.Find("speaker_test")
	if !ok {
		t.Fatal("action not found")
	}
	action, ok := node.(*Action)
	if !ok {
		t.Fatalf("speaker_test is %T, want *Action", node)
	}

	dev.ResetCalls()
	if _, err := action.Trigger(ctx); err != nil {
		t.Fatalf("Trigger() error = %v", err)
	}
	calls := dev.Calls()
	if len(calls) != 1 {
		t.Fatalf("Trigger() made %d requests, want 1", len(calls))
	}
	if calls[0].Body["REQUEST"] != "ACTION" || calls[0].Body["HASHVAL"] != float64(301) {
		t.Errorf("Trigger() payload = %v", calls[0].Body)
	}
}

func TestTreeFind(t *testing.T) {
	tree, _ := newTestTree(t, devicetest.Standard())
	if _, err := tree.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	tests := []struct {
		path     string
		wantPath string
		wantOK   bool
	}{
		{"", devicetest.RootPath, true},
		{"audio", devicetest.AudioPath, true},
		{"audio/volume", devicetest.VolumePath, true},
		{"/audio/volume/", devicetest.VolumePath, true},
		{devicetest.VolumePath, devicetest.VolumePath, true},
		{devicetest.RootPath, devicetest.RootPath, true},
		{devicetest.RootPath + "/", devicetest.RootPath, true},
		{devicetest.RootPath + "audio", "", false},
		{devicetest.RootPath + "X/audio", "", false},
		{"audio/volume/deeper", "", false},
		{"nope", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			node, ok := tree.Find(tt.path)
			if ok != tt.wantOK {
				t.Fatalf("Find(%q) ok = %v, want %v", tt.path, ok, tt.wantOK)
			}
			if ok && node.Path() != tt.wantPath {
				t.Errorf("Find(%q) path = %s, want %s", tt.path, node.Path(), tt.wantPath)
			}
		})
	}
}

func TestTreeWalk(t *testing.T) {
	tree, _ := newTestTree(t, devicetest.Standard())
	if _, err := tree.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	var visited []string
	tree.Walk(func(n Node, depth int) bool {
		visited = append(visited, n.Name())
		return n.Name() != "input"
	})

	want := []string{"audio", "volume", "mute", "eq", "bass", "input", "speaker_test"}
	if !reflect.DeepEqual(visited, want) {
		t.Errorf("Walk() visited %v, want %v", visited, want)
	}
}

func TestTreeFetch_OverHTTPS(t *testing.T) {
	server := httptest.NewTLSServer(devicetest.Standard())
	defer server.Close()

	client := transport.NewClientWithURL(server.URL)
	tree := NewTree(client, devicetest.RootPath, WithLogger(zap.NewNop()))

	view, err := tree.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if !reflect.DeepEqual(view, standardView()) {
		t.Errorf("Fetch() view = %#v", view)
	}
	if !tree.IsReady() {
		t.Error("tree not ready")
	}
}
