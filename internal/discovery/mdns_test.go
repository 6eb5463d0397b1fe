package discovery

import (
	"net"
	"testing"
	"time"

	"github.com/grandcat/zeroconf"
)

func newEntry(instance, host string, port int, v4, v6 []net.IP, text ...string) *zeroconf.ServiceEntry {
	entry := zeroconf.NewServiceEntry(instance, ServiceType, ServiceDomain)
	entry.HostName = host
	entry.Port = port
	entry.AddrIPv4 = v4
	entry.AddrIPv6 = v6
	entry.Text = text
	return entry
}

func TestScanner_parseServiceEntry(t *testing.T) {
	scanner := NewScanner()

	tests := []struct {
		name      string
		entry     *zeroconf.ServiceEntry
		wantNil   bool
		wantName  string
		wantModel string
		wantIP    string
		wantPort  int
	}{
		{
			name: "soundbar with TXT name and model",
			entry: newEntry("Living Room", "Living-Room.local.", 9000,
				[]net.IP{net.ParseIP("192.168.1.40")}, nil,
				"name=Living Room", "mdl=SB36512-F6", "id=0x1f2e"),
			wantName:  "Living Room",
			wantModel: "SB36512-F6",
			wantIP:    "192.168.1.40",
			wantPort:  9000,
		},
		{
			name: "legacy port",
			entry: newEntry("Den", "Den.local.", 7345,
				[]net.IP{net.ParseIP("10.0.0.5")}, nil),
			wantName: "Den",
			wantIP:   "10.0.0.5",
			wantPort: 7345,
		},
		{
			name: "no port specified (should default to 9000)",
			entry: newEntry("Kitchen", "Kitchen.local.", 0,
				[]net.IP{net.ParseIP("172.16.0.1")}, nil),
			wantName: "Kitchen",
			wantIP:   "172.16.0.1",
			wantPort: 9000,
		},
		{
			name: "escaped instance name used when TXT has no name",
			entry: newEntry(`Office\ Bar`, "office.local.", 9000,
				[]net.IP{net.ParseIP("192.168.1.41")}, nil, "model=M51ax-J6"),
			wantName:  "Office Bar",
			wantModel: "M51ax-J6",
			wantIP:    "192.168.1.41",
			wantPort:  9000,
		},
		{
			name:    "no IP address",
			entry:   newEntry("Ghost", "ghost.local.", 9000, nil, nil),
			wantNil: true,
		},
		{
			name: "IPv6 only device",
			entry: newEntry("Six", "six.local.", 9000,
				nil, []net.IP{net.ParseIP("fe80::1")}),
			wantName: "Six",
			wantIP:   "fe80::1",
			wantPort: 9000,
		},
		{
			name: "device with both IPv4 and IPv6 (should prefer IPv4)",
			entry: newEntry("Both", "both.local.", 9000,
				[]net.IP{net.ParseIP("192.168.1.50")}, []net.IP{net.ParseIP("fe80::2")}),
			wantName: "Both",
			wantIP:   "192.168.1.50",
			wantPort: 9000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			device := scanner.parseServiceEntry(tt.entry)

			if tt.wantNil {
				if device != nil {
					t.Errorf("parseServiceEntry() = %v, want nil", device)
				}
				return
			}

			if device == nil {
				t.Fatal("parseServiceEntry() = nil, want non-nil device")
			}

			if device.Name != tt.wantName {
				t.Errorf("device.Name = %v, want %v", device.Name, tt.wantName)
			}

			if device.Model != tt.wantModel {
				t.Errorf("device.Model = %v, want %v", device.Model, tt.wantModel)
			}

			if device.IP != tt.wantIP {
				t.Errorf("device.IP = %v, want %v", device.IP, tt.wantIP)
			}

			if device.Port != tt.wantPort {
				t.Errorf("device.Port = %v, want %v", device.Port, tt.wantPort)
			}

			if device.Hostname != tt.entry.HostName {
				t.Errorf("device.Hostname = %v, want %v", device.Hostname, tt.entry.HostName)
			}

			// Check that DiscoveredAt is recent (within last second)
			if time.Since(device.DiscoveredAt) > time.Second {
				t.Errorf("device.DiscoveredAt is not recent: %v", device.DiscoveredAt)
			}
		})
	}
}

func TestScanner_parseServiceEntry_Nil(t *testing.T) {
	if device := NewScanner().parseServiceEntry(nil); device != nil {
		t.Errorf("parseServiceEntry(nil) = %v, want nil", device)
	}
}

func TestScanner_parseServiceEntry_Metadata(t *testing.T) {
	scanner := NewScanner()

	entry := newEntry("Living Room", "Living-Room.local.", 9000,
		[]net.IP{net.ParseIP("192.168.1.40")}, nil,
		"name=Living Room", "mdl=SB36512-F6", "flag", "path=/a=b")

	device := scanner.parseServiceEntry(entry)
	if device == nil {
		t.Fatal("parseServiceEntry() = nil, want device")
	}

	// Check metadata parsing
	expectedMetadata := map[string]string{
		"name": "Living Room",
		"mdl":  "SB36512-F6",
		"flag": "", // Key without value
		"path": "/a=b",
	}

	if len(device.Metadata) != len(expectedMetadata) {
		t.Errorf("device.Metadata has %d entries, want %d", len(device.Metadata), len(expectedMetadata))
	}

	for key, expectedValue := range expectedMetadata {
		if actualValue, ok := device.Metadata[key]; !ok {
			t.Errorf("device.Metadata missing key %q", key)
		} else if actualValue != expectedValue {
			t.Errorf("device.Metadata[%q] = %q, want %q", key, actualValue, expectedValue)
		}
	}
}

func TestNewScanner(t *testing.T) {
	scanner := NewScanner()

	if scanner == nil {
		t.Fatal("NewScanner() = nil, want scanner")
	}

	if scanner.Timeout != DefaultScanTimeout {
		t.Errorf("scanner.Timeout = %v, want %v", scanner.Timeout, DefaultScanTimeout)
	}
}

func TestUnescapeInstance(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`Living\ Room`, "Living Room"},
		{`SB\ 36\.5`, "SB 36.5"},
		{"Plain", "Plain"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := unescapeInstance(tt.in); got != tt.want {
			t.Errorf("unescapeInstance(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// Note: live mDNS discovery needs multicast on a real network segment and is
// exercised manually with `smartcast scan`.
