package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/smartcast/internal/devicetest"
	"github.com/muurk/smartcast/internal/discovery"
	"github.com/muurk/smartcast/internal/speaker"
)

func TestParseManualAddress(t *testing.T) {
	tests := []struct {
		input    string
		wantIP   string
		wantPort int
		wantErr  bool
	}{
		{"192.168.1.40", "192.168.1.40", discovery.DefaultPort, false},
		{" 192.168.1.40:7345 ", "192.168.1.40", 7345, false},
		{"soundbar.local", "soundbar.local", discovery.DefaultPort, false},
		{"[fe80::1]:9000", "fe80::1", 9000, false},
		{"192.168.1.40:0", "", 0, true},
		{"192.168.1.40:http", "", 0, true},
		{"", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			device, err := ParseManualAddress(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseManualAddress(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if device.IP != tt.wantIP || device.Port != tt.wantPort {
				t.Errorf("ParseManualAddress(%q) = %s:%d, want %s:%d", tt.input, device.IP, device.Port, tt.wantIP, tt.wantPort)
			}
		})
	}
}

func TestNextInput(t *testing.T) {
	inputs := []string{"TV", "AUX", "Bluetooth"}

	tests := []struct {
		current string
		want    string
	}{
		{"TV", "AUX"},
		{"aux", "Bluetooth"},
		{"Bluetooth", "TV"},
		{"HDMI-ARC", "TV"},
	}
	for _, tt := range tests {
		if got := NextInput(inputs, tt.current); got != tt.want {
			t.Errorf("NextInput(%q) = %q, want %q", tt.current, got, tt.want)
		}
	}
	if got := NextInput(nil, "TV"); got != "" {
		t.Errorf("NextInput(nil) = %q, want empty", got)
	}
}

func TestDiscoveryModel_ScanComplete(t *testing.T) {
	m := NewDiscoveryModel(func(time.Duration) ([]*discovery.Device, error) { return nil, nil }, time.Second)

	updated, _ := m.Update(scanStartMsg{})
	m = updated.(DiscoveryModel)
	if !m.Scanning {
		t.Fatal("model not scanning after scanStartMsg")
	}

	devices := []*discovery.Device{{Name: "Living Room", IP: "192.168.1.40", Port: 9000}}
	updated, _ = m.Update(scanCompleteMsg{devices: devices})
	m = updated.(DiscoveryModel)

	if m.Scanning || len(m.DeviceList.Items()) != 1 {
		t.Fatalf("after scan: scanning=%v items=%d", m.Scanning, len(m.DeviceList.Items()))
	}

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(DiscoveryModel)
	if got := m.GetSelectedDevice(); got != devices[0] {
		t.Errorf("GetSelectedDevice() = %v, want %v", got, devices[0])
	}
}

func TestDashboardModel_Snapshot(t *testing.T) {
	spk := speaker.New("127.0.0.1", speaker.WithTransport(devicetest.Standard()))
	m := NewDashboardModel(spk, "Living Room", time.Hour)
	defer m.Close()

	snap := speaker.Snapshot{Power: speaker.PowerOn, Input: "HDMI-ARC", Volume: 22}
	updated, cmd := m.Update(snapshotMsg(snap))
	m = updated.(DashboardModel)

	if !m.HasSnapshot || m.Snapshot != snap {
		t.Errorf("Snapshot = %+v, want %+v", m.Snapshot, snap)
	}
	if cmd == nil {
		t.Error("snapshot update did not wait for the next change")
	}

	view := m.View()
	for _, want := range []string{"LIVING ROOM", "HDMI-ARC", "22"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q", want)
		}
	}
}

func TestDashboardModel_BusyIgnoresControls(t *testing.T) {
	spk := speaker.New("127.0.0.1", speaker.WithTransport(devicetest.Standard()))
	m := NewDashboardModel(spk, "Living Room", time.Hour)
	defer m.Close()

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("p")})
	m = updated.(DashboardModel)
	if m.Busy == "" || cmd == nil {
		t.Fatal("power key did not start an action")
	}

	updated, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("m")})
	m = updated.(DashboardModel)
	if cmd != nil || m.Busy != "Power toggled" {
		t.Errorf("second control ran while busy: busy=%q", m.Busy)
	}

	updated, _ = m.Update(actionDoneMsg{label: "Power toggled"})
	m = updated.(DashboardModel)
	if m.Busy != "" || m.Status != "Power toggled" {
		t.Errorf("after completion busy=%q status=%q", m.Busy, m.Status)
	}
}
