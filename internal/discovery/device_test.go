package discovery

import (
	"testing"
)

func TestDevice_String(t *testing.T) {
	tests := []struct {
		name     string
		device   *Device
		expected string
	}{
		{
			name: "with model",
			device: &Device{
				Name:  "Living Room",
				Model: "SB36512-F6",
				IP:    "192.168.1.40",
				Port:  9000,
			},
			expected: "SmartCast Living Room [SB36512-F6] at 192.168.1.40:9000",
		},
		{
			name: "instance fallback",
			device: &Device{
				Instance: "Den",
				IP:       "10.0.0.5",
				Port:     7345,
			},
			expected: "SmartCast Den at 10.0.0.5:7345",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.device.String(); got != tt.expected {
				t.Errorf("Device.String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestDevice_BaseURL(t *testing.T) {
	tests := []struct {
		name     string
		device   *Device
		expected string
	}{
		{
			name: "standard port",
			device: &Device{
				IP:   "192.168.1.40",
				Port: 9000,
			},
			expected: "https://192.168.1.40:9000",
		},
		{
			name: "IPv6",
			device: &Device{
				IP:   "fe80::1",
				Port: 9000,
			},
			expected: "https://[fe80::1]:9000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.device.BaseURL(); got != tt.expected {
				t.Errorf("Device.BaseURL() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestDevice_GetMetadata(t *testing.T) {
	device := &Device{
		Metadata: map[string]string{
			"name": "Living Room",
			"mdl":  "SB36512-F6",
		},
	}

	if got := device.GetMetadata("mdl"); got != "SB36512-F6" {
		t.Errorf("Device.GetMetadata(mdl) = %v", got)
	}
	if got := device.GetMetadata("missing"); got != "" {
		t.Errorf("Device.GetMetadata(missing) = %v, want empty string", got)
	}
}

func TestDevice_GetMetadata_NilMap(t *testing.T) {
	device := &Device{
		Metadata: nil,
	}

	if got := device.GetMetadata("anything"); got != "" {
		t.Errorf("Device.GetMetadata() with nil map = %v, want empty string", got)
	}
}

func TestDevice_Matches(t *testing.T) {
	device := &Device{
		Name:     "Living Room",
		Instance: `Living\ Room`,
		ID:       "0x1f2e",
		Hostname: "Living-Room.local.",
		IP:       "192.168.1.40",
	}

	tests := []struct {
		query string
		want  bool
	}{
		{"living room", true},
		{"0X1F2E", true},
		{"living-room.local", true},
		{"Living-Room.local.", true},
		{"192.168.1.40", true},
		{"192.168.1.4", false},
		{"kitchen", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := device.Matches(tt.query); got != tt.want {
			t.Errorf("Matches(%q) = %v, want %v", tt.query, got, tt.want)
		}
	}
}
