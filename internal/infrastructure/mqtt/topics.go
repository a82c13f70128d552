package mqtt

import "fmt"

// Topic prefixes for the StageLink MQTT namespace.
//
// All bridge topics use the flat scheme: stagelink/{category}/{bridge}/{address}
// This matches the mixer bridge's messages.go and all runtime subscribers.
const (
	// TopicPrefixBridge is the base for all bridge topics.
	// Flat scheme: stagelink/{category}/{bridge}/{address_or_id}
	TopicPrefixBridge = "stagelink"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "stagelink/system"
)

// Topics provides builders for StageLink MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
// Bridge topics use the flat scheme matching the mixer bridge's messages.go:
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.BridgeState("mixer", "ch.01.mix.fader")
//	// Returns: "stagelink/state/mixer/ch.01.mix.fader"
type Topics struct{}

// BridgeState returns the topic for parameter state updates from a bridge.
//
// Example: stagelink/state/mixer/ch.01.mix.fader
func (Topics) BridgeState(bridge, address string) string {
	return fmt.Sprintf("%s/state/%s/%s", TopicPrefixBridge, bridge, address)
}

// BridgeCommand returns the topic for commands to a bridge.
//
// Example: stagelink/command/mixer
func (Topics) BridgeCommand(bridge string) string {
	return fmt.Sprintf("%s/command/%s", TopicPrefixBridge, bridge)
}

// BridgeAck returns the topic for command acknowledgements from a bridge.
//
// Example: stagelink/ack/mixer
func (Topics) BridgeAck(bridge string) string {
	return fmt.Sprintf("%s/ack/%s", TopicPrefixBridge, bridge)
}

// BridgeHealth returns the topic for bridge health status.
//
// Example: stagelink/health/mixer
func (Topics) BridgeHealth(bridge string) string {
	return fmt.Sprintf("%s/health/%s", TopicPrefixBridge, bridge)
}

// SystemStatus returns the system status topic. Used for the core's
// online/offline announcements and the broker LWT.
//
// Example: stagelink/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// SystemShutdown returns the shutdown signal topic.
//
// Example: stagelink/system/shutdown
func (Topics) SystemShutdown() string {
	return fmt.Sprintf("%s/shutdown", TopicPrefixSystem)
}

// AllBridgeStates returns a pattern matching all bridge state updates.
//
// Pattern: stagelink/state/+/+
func (Topics) AllBridgeStates() string {
	return fmt.Sprintf("%s/state/+/+", TopicPrefixBridge)
}

// AllBridgeCommands returns a pattern matching all commands to bridges.
//
// Pattern: stagelink/command/+
func (Topics) AllBridgeCommands() string {
	return fmt.Sprintf("%s/command/+", TopicPrefixBridge)
}

// AllBridgeHealth returns a pattern matching all bridge health updates.
//
// Pattern: stagelink/health/+
func (Topics) AllBridgeHealth() string {
	return fmt.Sprintf("%s/health/+", TopicPrefixBridge)
}

// AllTopics returns a pattern matching all StageLink topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: stagelink/#
func (Topics) AllTopics() string {
	return "stagelink/#"
}
