// Package config provides user configuration management for smartcast.
//
// This package manages a YAML-based configuration file that stores user-defined
// metadata for SmartCast devices (nicknames, last known address, pairing
// identity) and preferences for the CLI and the bridge daemon. The configuration
// follows OS-specific conventions for storage location.
//
// # Configuration File Location
//
// The configuration file is stored in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/smartcast/config.yaml or $HOME/.config/smartcast/config.yaml
//   - macOS: $HOME/.config/smartcast/config.yaml
//   - Windows: %LOCALAPPDATA%\smartcast\config.yaml
//
// # Security
//
// Pairing tokens are stored so that paired commands keep working between runs;
// the file is written with 0600 permissions. MQTT broker passwords are never
// stored and are read from SMARTCAST_MQTT_PASSWORD instead.
//
// # Usage Example
//
//	registry, err := config.LoadRegistry()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Remember a device under a nickname
//	registry.UpdateDeviceLastSeen("Living Room", "192.168.1.40", 9000)
//	registry.SetDeviceNickname("Living Room", "lounge")
//
//	// Later: resolve by nickname, key or IP
//	if _, dev, ok := registry.ResolveDevice("lounge"); ok {
//	    fmt.Println(dev.LastIP)
//	}
//
//	// Save changes atomically
//	if err := registry.Save(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Thread Safety
//
// The global registry uses sync.Once for safe initialization across goroutines.
// File operations are protected by a mutex to ensure atomic writes.
package config
