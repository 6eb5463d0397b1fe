package ui

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/muurk/smartcast/internal/devicetest"
	"github.com/muurk/smartcast/internal/settings"
	"github.com/muurk/smartcast/internal/transport"
)

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"nil", nil, "-"},
		{"empty string", "", `""`},
		{"string", "HDMI-ARC", "HDMI-ARC"},
		{"whole number", float64(22), "22"},
		{"fraction", 2.5, "2.5"},
		{"named option", map[string]any{"NAME": "AUX"}, "AUX"},
		{"bool", true, "true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatValue(tt.value); got != tt.want {
				t.Errorf("FormatValue(%v) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}

func TestRenderTree_Plain(t *testing.T) {
	tree := settings.NewTree(devicetest.Standard(), devicetest.RootPath)
	if _, err := tree.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	out := RenderTree(tree, false)

	for _, want := range []string{
		"audio/\n",
		"  volume = 22  [T_VALUE_ABS_V1]\n",
		"  eq = Music  [T_LIST_V1]\n",
		"input/\n",
		"  current_input = HDMI-ARC  [T_STRING_V1]\n",
		"speaker_test !\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("RenderTree() missing %q in:\n%s", want, out)
		}
	}
	if strings.Index(out, "audio/") > strings.Index(out, "input/") {
		t.Error("RenderTree() does not follow device order")
	}
}

func TestResult_Plain(t *testing.T) {
	r := NewSuccessResult("Volume set").
		AddDetail("Device", "192.168.1.40").
		AddDetail("Volume", "30")

	want := "Volume set\ndevice: 192.168.1.40\nvolume: 30\n"
	if got := r.Plain(); got != want {
		t.Errorf("Plain() = %q, want %q", got, want)
	}
}

func TestFailureResult_UsesDeviceHints(t *testing.T) {
	err := transport.NewNetworkError("request failed", "192.168.1.40", errors.New("boom"))
	r := NewFailureResult("Power on failed", err, nil)

	if len(r.Troubleshooting) == 0 {
		t.Error("failure result has no troubleshooting hints for a device error")
	}

	out := r.SetWidth(80).Render()
	if !strings.Contains(out, "FAILED") || !strings.Contains(out, "Troubleshooting:") {
		t.Errorf("Render() = %q", out)
	}
}

func TestPrinter_PlainSkipsHeader(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	if p.Styled() {
		t.Fatal("printer on a buffer should default to plain output")
	}
	p.PrintHeader("Settings", "smartcast settings dump", Param{"Device", "x"})
	p.PrintSuccess("Done", Detail{"Result", "SUCCESS"})

	if got, want := buf.String(), "Done\nresult: SUCCESS\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"y", true},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			var out bytes.Buffer
			if got := ConfirmAction(strings.NewReader(tt.input), &out, "audio_settings/reset"); got != tt.want {
				t.Errorf("ConfirmAction(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if !strings.Contains(out.String(), "audio_settings/reset") {
				t.Error("warning box does not name the action")
			}
		})
	}
}
