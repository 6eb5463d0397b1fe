// Package discovery provides mDNS-based discovery of SmartCast audio devices.
//
// SmartCast soundbars and speakers advertise themselves on the local network
// using the "_viziocast._tcp" service type. The advertisement carries the
// control port and TXT records with the friendly name and model number.
//
// # Discovery Process
//
// The discovery process works as follows:
//  1. Broadcasts mDNS queries for "_viziocast._tcp" on the local network
//  2. Listens for service advertisements until the timeout elapses
//  3. Collects device information (friendly name, model, IP, port)
//  4. Returns every device that advertised a usable address
//
// # Usage Example
//
//	// Discover devices with 5-second timeout
//	devices, err := discovery.ScanForDevices(5 * time.Second)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, device := range devices {
//	    fmt.Printf("Found: %s (%s) at %s\n", device.Name, device.Model, device.Address())
//	}
//
//	// Or wait for one device by name
//	device, err := discovery.FindDevice("Living Room")
//
// # Network Requirements
//
//   - Requires multicast support on the network interface
//   - Devices must be on the same local network segment
//   - Firewall must allow mDNS (UDP port 5353)
//
// # Thread Safety
//
// This package is safe for concurrent use. Multiple discovery sessions can run
// simultaneously without interference.
package discovery
