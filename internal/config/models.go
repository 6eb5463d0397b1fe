package config

import (
	"net"
	"strings"
	"time"
)

// Registry represents the entire user configuration file.
// This stores user-defined metadata for devices and application preferences.
type Registry struct {
	Version     int                `yaml:"version"`
	Devices     map[string]*Device `yaml:"devices,omitempty"` // Keyed by device name as advertised over mDNS (or IP when added by hand)
	Preferences *Preferences       `yaml:"preferences,omitempty"`
}

// Device represents user-defined metadata for a single SmartCast device.
type Device struct {
	Nickname  string    `yaml:"nickname,omitempty"`   // User-friendly name
	LastIP    string    `yaml:"last_ip,omitempty"`    // Last known IP address
	Port      int       `yaml:"port,omitempty"`       // Control port (0 means the default 9000)
	DeviceID  string    `yaml:"device_id,omitempty"`  // Client id used when pairing
	AuthToken string    `yaml:"auth_token,omitempty"` // Pairing token sent in the AUTH header
	LastSeen  time.Time `yaml:"last_seen,omitempty"`  // Last discovery/connection time
}

// Preferences represents application-wide user preferences.
type Preferences struct {
	AutoDiscover    bool         `yaml:"auto_discover"`    // Enable automatic mDNS discovery when no device is given
	DiscoverTimeout int          `yaml:"discover_timeout"` // mDNS discovery timeout in seconds
	PollInterval    int          `yaml:"poll_interval"`    // State poll interval in seconds for watch and the bridge
	Bridge          *BridgePrefs `yaml:"bridge,omitempty"` // Bridge daemon settings
}

// BridgePrefs configures smartcast-bridge.
type BridgePrefs struct {
	Listen string     `yaml:"listen"`         // HTTP listen address for /events, /metrics, /state, /settings
	MQTT   *MQTTPrefs `yaml:"mqtt,omitempty"` // MQTT publishing (disabled when nil or Broker is empty)
}

// MQTTPrefs configures the MQTT publisher.
// Note: the broker password is never stored; it is read from SMARTCAST_MQTT_PASSWORD.
type MQTTPrefs struct {
	Broker      string `yaml:"broker"`             // e.g. "tcp://localhost:1883"
	Username    string `yaml:"username,omitempty"` // Broker username
	TopicPrefix string `yaml:"topic_prefix"`       // Topic root, e.g. "smartcast"
}

// Defaults for new registries
const (
	DefaultDiscoverTimeout = 10
	DefaultPollInterval    = 60
	DefaultBridgeListen    = ":9464"
	DefaultTopicPrefix     = "smartcast"
)

func defaultPreferences() *Preferences {
	return &Preferences{
		AutoDiscover:    true,
		DiscoverTimeout: DefaultDiscoverTimeout,
		PollInterval:    DefaultPollInterval,
		Bridge: &BridgePrefs{
			Listen: DefaultBridgeListen,
		},
	}
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version:     1,
		Devices:     make(map[string]*Device),
		Preferences: defaultPreferences(),
	}
}

// GetDevice retrieves device metadata by key.
// Returns nil if the device doesn't exist in the registry.
func (r *Registry) GetDevice(key string) *Device {
	return r.Devices[key]
}

// EnsureDevice ensures a device entry exists in the registry.
// If the device doesn't exist, creates a new entry with default values.
// Returns the device entry (existing or newly created).
func (r *Registry) EnsureDevice(key string) *Device {
	if r.Devices == nil {
		r.Devices = make(map[string]*Device)
	}

	if device, exists := r.Devices[key]; exists {
		return device
	}

	device := &Device{}
	r.Devices[key] = device
	return device
}

// UpdateDeviceLastSeen updates the last seen timestamp and address for a device.
func (r *Registry) UpdateDeviceLastSeen(key, ip string, port int) {
	device := r.EnsureDevice(key)
	device.LastSeen = time.Now()
	device.LastIP = ip
	device.Port = port
}

// SetDeviceNickname sets a user-friendly nickname for a device.
func (r *Registry) SetDeviceNickname(key, nickname string) {
	device := r.EnsureDevice(key)
	device.Nickname = nickname
}

// SetPairing records the pairing identity and token for a device.
func (r *Registry) SetPairing(key, deviceID, authToken string) {
	device := r.EnsureDevice(key)
	device.DeviceID = deviceID
	device.AuthToken = authToken
}

// ResolveDevice looks up a device by key, nickname (both case-insensitive) or
// last known IP. It returns the registry key and entry.
func (r *Registry) ResolveDevice(nameOrIP string) (string, *Device, bool) {
	query := strings.TrimSpace(nameOrIP)
	if query == "" {
		return "", nil, false
	}

	if device, ok := r.Devices[query]; ok {
		return query, device, true
	}
	for key, device := range r.Devices {
		if strings.EqualFold(key, query) || (device.Nickname != "" && strings.EqualFold(device.Nickname, query)) {
			return key, device, true
		}
	}
	if ip := net.ParseIP(query); ip != nil {
		for key, device := range r.Devices {
			if device.LastIP == ip.String() {
				return key, device, true
			}
		}
	}
	return "", nil, false
}

// PollIntervalDuration returns the configured poll interval, or zero when unset.
func (p *Preferences) PollIntervalDuration() time.Duration {
	if p == nil || p.PollInterval <= 0 {
		return 0
	}
	return time.Duration(p.PollInterval) * time.Second
}

// DiscoverTimeoutDuration returns the mDNS timeout, or zero when unset.
func (p *Preferences) DiscoverTimeoutDuration() time.Duration {
	if p == nil || p.DiscoverTimeout <= 0 {
		return 0
	}
	return time.Duration(p.DiscoverTimeout) * time.Second
}
