// Package mixer implements the OSC mixing-console bridge for StageLink.
//
// This package provides connectivity to X32/M32-family digital mixing
// consoles over UDP. It translates between StageLink's internal
// representation and the console's OSC parameter tree.
//
// # Architecture
//
// The bridge operates as a translator between two buses:
//
//	┌─────────────────┐          ┌─────────────────┐
//	│    StageLink    │   MQTT   │  Mixer Bridge   │  OSC/UDP
//	│      Core       │◄────────►│   (this pkg)    │◄─────────► Console
//	└─────────────────┘          └─────────────────┘
//
// # Key Responsibilities
//
//   - Open and supervise the UDP session to the console
//   - Correlate request/reply pairs over a fire-and-forget transport
//   - Renew remote-update subscriptions so the console pushes changes
//   - Translate console updates to MQTT state messages
//   - Translate MQTT commands to console parameter writes
//   - Convert between human units (dB, percent, colour names) and wire values
//   - Publish health status and metrics
//
// # Parameter Addresses
//
// Consoles expose their state as a tree of slash-separated parameter
// addresses. Strip addresses embed a zero-padded index:
//
//	addr, err := profile.BuildAddress(mixer.TemplateChannel, 7)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(addr) // "/ch/07"
//
// # Device Profiles
//
// Capabilities differ by console family. A DeviceProfile captures the strip
// counts, default port, and address templates for one family:
//
//   - x32: 32 channels, 16 buses, UDP 10023 (also sold as M32)
//   - xr18: 16 channels, 6 buses, UDP 10024 (also sold as MR18)
//   - xr16: 16 channels, 4 buses, UDP 10024
//   - xr12: 12 channels, 2 buses, UDP 10024 (also sold as MR12)
//
// # Thread Safety
//
// All exported types are safe for concurrent use from multiple goroutines.
//
// # References
//
//   - OSC 1.0 specification: https://opensoundcontrol.stanford.edu/spec-1_0
package mixer
