package discovery

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// Device represents a SmartCast device found on the network
type Device struct {
	// Name is the friendly name set in the SmartCast app (e.g., "Living Room")
	Name string

	// Model is the model number advertised in TXT records (e.g., "SB36512-F6")
	Model string

	// ID is the device identifier advertised in TXT records, if any
	ID string

	// Instance is the raw mDNS service instance name
	Instance string

	// Hostname is the mDNS hostname (e.g., "Living-Room.local.")
	Hostname string

	// IP is the device address, IPv4 when one is advertised
	IP string

	// Port is the HTTPS control port (9000 on current firmware)
	Port int

	// Metadata contains all mDNS TXT record data
	Metadata map[string]string

	// DiscoveredAt is when the device was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the device
func (d *Device) String() string {
	name := d.Name
	if name == "" {
		name = d.Instance
	}
	if d.Model != "" {
		return fmt.Sprintf("SmartCast %s [%s] at %s", name, d.Model, d.Address())
	}
	return fmt.Sprintf("SmartCast %s at %s", name, d.Address())
}

// Address returns host:port for the control API
func (d *Device) Address() string {
	return net.JoinHostPort(d.IP, strconv.Itoa(d.Port))
}

// BaseURL returns the HTTPS base URL for the device
func (d *Device) BaseURL() string {
	return "https://" + d.Address()
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (d *Device) GetMetadata(key string) string {
	if d.Metadata == nil {
		return ""
	}
	return d.Metadata[key]
}

// Matches reports whether query names this device by friendly name, instance,
// id, hostname or IP, ignoring case
func (d *Device) Matches(query string) bool {
	query = strings.TrimSuffix(strings.TrimSpace(query), ".")
	if query == "" {
		return false
	}
	for _, candidate := range []string{d.Name, d.Instance, d.ID, strings.TrimSuffix(d.Hostname, "."), d.IP} {
		if candidate != "" && strings.EqualFold(candidate, query) {
			return true
		}
	}
	return false
}
