package bridge

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/muurk/smartcast/internal/speaker"
)

func TestCollector_Observe(t *testing.T) {
	c := NewCollector("Living Room")

	c.Observe(speaker.Snapshot{Power: speaker.PowerOn, Input: "HDMI-ARC", Volume: 22})
	c.Observe(speaker.Snapshot{Power: speaker.PowerOff, Input: "AUX", Volume: 35, Mute: true})

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"power_on", testutil.ToFloat64(c.powerOn), 0},
		{"volume", testutil.ToFloat64(c.volume), 35},
		{"muted", testutil.ToFloat64(c.muted), 1},
		{"input AUX", testutil.ToFloat64(c.input.WithLabelValues("AUX")), 1},
		{"changes", testutil.ToFloat64(c.changes), 2},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}

	// Only the current input is exported
	if n := testutil.CollectAndCount(c.input); n != 1 {
		t.Errorf("input series = %d, want 1", n)
	}
}

func TestCollector_Registers(t *testing.T) {
	c := NewCollector("Living Room")
	c.SetSettingsReady(true)
	c.PollFailed()

	// The input vector has no series before Observe
	if n := testutil.CollectAndCount(c); n != 7 {
		t.Errorf("CollectAndCount() = %d, want 7", n)
	}
	if got := testutil.ToFloat64(c.settingsReady); got != 1 {
		t.Errorf("settings ready = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.pollErrors); got != 1 {
		t.Errorf("poll errors = %v, want 1", got)
	}
}
