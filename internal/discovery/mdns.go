package discovery

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/smartcast/internal/logging"
)

const (
	// ServiceType is the mDNS service type SmartCast devices advertise
	ServiceType = "_viziocast._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for device discovery
	DefaultScanTimeout = 10 * time.Second

	// DefaultPort is the control port assumed when the advertisement has none
	DefaultPort = 9000
)

// Scanner handles mDNS device discovery
type Scanner struct {
	// Timeout is the maximum time to wait for device discovery
	Timeout time.Duration
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

// ScanForDevices discovers all SmartCast devices on the local network
func (s *Scanner) ScanForDevices() ([]*Device, error) {
	return s.ScanForDevicesWithContext(context.Background())
}

// ScanForDevicesWithContext discovers devices with a custom context.
// It always waits for the full timeout; devices answering twice are reported once.
func (s *Scanner) ScanForDevicesWithContext(ctx context.Context) ([]*Device, error) {
	var (
		mu      sync.Mutex
		devices []*Device
		seen    = make(map[string]bool)
	)

	err := s.browse(ctx, func(device *Device) bool {
		mu.Lock()
		defer mu.Unlock()
		key := device.Address()
		if !seen[key] {
			seen[key] = true
			devices = append(devices, device)
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	mu.Lock()
	defer mu.Unlock()
	return append([]*Device(nil), devices...), nil
}

// WaitForDevice waits for a device matching query (friendly name, id, hostname or IP)
func (s *Scanner) WaitForDevice(query string) (*Device, error) {
	return s.WaitForDeviceWithContext(context.Background(), query)
}

// WaitForDeviceWithContext waits for a matching device with a custom context.
// It returns as soon as the device answers.
func (s *Scanner) WaitForDeviceWithContext(ctx context.Context, query string) (*Device, error) {
	found := make(chan *Device, 1)

	err := s.browse(ctx, func(device *Device) bool {
		if !device.Matches(query) {
			return true
		}
		select {
		case found <- device:
		default:
		}
		return false
	})
	if err != nil {
		return nil, err
	}

	select {
	case device := <-found:
		return device, nil
	default:
		return nil, fmt.Errorf("device %q not found within %s", query, s.Timeout)
	}
}

// browse runs one mDNS browse session until the timeout elapses or onDevice
// returns false. It returns once the session is over.
func (s *Scanner) browse(ctx context.Context, onDevice func(*Device) bool) error {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	logger := logging.Named("discovery")
	entries := make(chan *zeroconf.ServiceEntry)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for entry := range entries {
			device := s.parseServiceEntry(entry)
			if device == nil {
				logger.Debug("Ignoring incomplete mDNS entry", zap.String("instance", entry.Instance))
				continue
			}
			logger.Debug("Found device",
				zap.String("name", device.Name),
				zap.String("address", device.Address()),
			)
			if !onDevice(device) {
				cancel()
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()
	// The resolver closes entries once the context is done
	select {
	case <-done:
	case <-time.After(time.Second):
	}
	return nil
}

// parseServiceEntry converts a zeroconf service entry to a Device.
// Returns nil if the entry carries no usable address.
func (s *Scanner) parseServiceEntry(entry *zeroconf.ServiceEntry) *Device {
	if entry == nil {
		return nil
	}

	// Get IP address (prefer IPv4)
	var ip string
	for _, addr := range entry.AddrIPv4 {
		ip = addr.String()
		break
	}

	// Fallback to IPv6 if no IPv4
	if ip == "" && len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}

	if ip == "" {
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}

	// Parse TXT records into metadata
	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		// TXT records are in "key=value" format
		parts := strings.SplitN(txt, "=", 2)
		if len(parts) == 2 {
			metadata[parts[0]] = parts[1]
		} else {
			// Key without value
			metadata[parts[0]] = ""
		}
	}

	name := metadata["name"]
	if name == "" {
		name = unescapeInstance(entry.Instance)
	}

	model := metadata["mdl"]
	if model == "" {
		model = metadata["model"]
	}

	return &Device{
		Name:         name,
		Model:        model,
		ID:           metadata["id"],
		Instance:     entry.Instance,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         port,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}

// unescapeInstance undoes DNS-SD escaping of spaces and dots in instance names
func unescapeInstance(instance string) string {
	return strings.NewReplacer(`\ `, " ", `\.`, ".", `\\`, `\`).Replace(instance)
}

// ScanForDevices is a convenience function to scan for devices with a custom timeout
func ScanForDevices(timeout time.Duration) ([]*Device, error) {
	scanner := NewScanner()
	scanner.Timeout = timeout
	return scanner.ScanForDevices()
}

// QuickScan performs a fast scan with a 3-second timeout
func QuickScan() ([]*Device, error) {
	scanner := NewScanner()
	scanner.Timeout = 3 * time.Second
	return scanner.ScanForDevices()
}

// FindDevice searches for a device by name, id, hostname or IP with the default timeout
func FindDevice(query string) (*Device, error) {
	scanner := NewScanner()
	return scanner.WaitForDevice(query)
}
