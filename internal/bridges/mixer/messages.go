package mixer

import (
	"encoding/json"
	"fmt"
	"time"
)

// MQTT message types for communication between StageLink Core and the mixer
// bridge.

// ProtocolName identifies the wire protocol in bridge messages.
const ProtocolName = "osc"

// Target section types for commands.
const (
	TargetChannel = "channel"
	TargetBus     = "bus"
	TargetFX      = "fx"
	TargetDCA     = "dca"
	TargetMain    = "main"
)

// CommandTarget identifies the console section a command addresses.
type CommandTarget struct {
	// Type is the section kind: "channel", "bus", "fx", "dca", or "main".
	Type string `json:"type"`

	// Index is the 1-based section index. Ignored for "main".
	Index int `json:"index,omitempty"`
}

// CommandMessage is sent from Core to the bridge to execute a console command.
// Topic: stagelink/command/mixer
type CommandMessage struct {
	// ID uniquely identifies this command for correlation with acknowledgments.
	ID string `json:"id"`

	// Timestamp is when the command was issued (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	// Command is the command name (e.g., "set_fader", "set_mute", "connect").
	Command string `json:"command"`

	// Target identifies the console section for parameter commands.
	// Connection and status commands omit it.
	Target *CommandTarget `json:"target,omitempty"`

	// Parameters contains command-specific values.
	// Examples:
	//   {"db": -6.0} for set_fader
	//   {"muted": true} for set_mute
	//   {"pan": "L50"} for set_pan
	Parameters map[string]any `json:"parameters,omitempty"`

	// Source indicates where the command originated.
	// Values: "api", "automation", "agent"
	Source string `json:"source,omitempty"`
}

// AckStatus represents the acknowledgment status of a command.
type AckStatus string

const (
	// AckAccepted indicates the command was executed against the console.
	AckAccepted AckStatus = "accepted"

	// AckFailed indicates the command could not be executed.
	AckFailed AckStatus = "failed"

	// AckTimeout indicates the console did not reply within the timeout.
	AckTimeout AckStatus = "timeout"
)

// AckMessage is sent from the bridge to Core to acknowledge a command.
// Topic: stagelink/ack/mixer
type AckMessage struct {
	// CommandID is the ID from the original command.
	CommandID string `json:"command_id"`

	// Timestamp is when the acknowledgment was sent (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	// Status indicates the acknowledgment status.
	Status AckStatus `json:"status"`

	// Protocol is the protocol identifier ("osc").
	Protocol string `json:"protocol"`

	// Address is the wire address the command touched, if any.
	Address string `json:"address,omitempty"`

	// Result contains read-back values for query commands
	// (get_parameter, get_status, get_info).
	Result map[string]any `json:"result,omitempty"`

	// Error contains details if status is "failed" or "timeout".
	Error *AckError `json:"error,omitempty"`
}

// AckError contains error details for failed commands.
type AckError struct {
	// Code is the error code (e.g., "NOT_CONNECTED", "OUT_OF_RANGE").
	Code string `json:"code"`

	// Message is a human-readable error description.
	Message string `json:"message"`
}

// Error codes for command failures.
const (
	ErrCodeNotConnected      = "NOT_CONNECTED"
	ErrCodeAlreadyConnected  = "ALREADY_CONNECTED"
	ErrCodeConnectionFailed  = "CONNECTION_FAILED"
	ErrCodeInvalidCommand    = "INVALID_COMMAND"
	ErrCodeInvalidParameters = "INVALID_PARAMETERS"
	ErrCodeOutOfRange        = "OUT_OF_RANGE"
	ErrCodeRequestPending    = "REQUEST_PENDING"
	ErrCodeProtocolError     = "PROTOCOL_ERROR"
	ErrCodeTimeout           = "TIMEOUT"
	ErrCodeBridgeError       = "BRIDGE_ERROR"
)

// StateMessage is sent from the bridge to Core when a console parameter
// changes.
// Topic: stagelink/state/mixer/{address}
// QoS: 1, Retained: Yes
type StateMessage struct {
	// Address is the wire address that changed (e.g., "/ch/01/mix/fader").
	Address string `json:"address"`

	// Timestamp is when the change was observed (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	// Value is the new parameter value.
	Value any `json:"value"`

	// ValueType is the value's wire kind: "int", "float", "string", "bool",
	// or "blob".
	ValueType string `json:"value_type"`

	// Protocol is the protocol identifier ("osc").
	Protocol string `json:"protocol"`

	// Source indicates what produced the change ("console" for updates
	// pushed by the desk).
	Source string `json:"source"`
}

// HealthStatus represents the operational status of the bridge.
type HealthStatus string

const (
	// HealthHealthy indicates the bridge is operating normally.
	HealthHealthy HealthStatus = "healthy"

	// HealthDegraded indicates the bridge is up but the console link is down.
	HealthDegraded HealthStatus = "degraded"

	// HealthOffline indicates the bridge is not connected (from LWT).
	HealthOffline HealthStatus = "offline"

	// HealthStarting indicates the bridge is starting up.
	HealthStarting HealthStatus = "starting"

	// HealthStopping indicates the bridge is shutting down.
	HealthStopping HealthStatus = "stopping"
)

// HealthMessage is sent from the bridge to Core to report operational status.
// Topic: stagelink/health/mixer
// QoS: 1, Retained: Yes
type HealthMessage struct {
	// Bridge is the bridge identifier (e.g., "mixer").
	Bridge string `json:"bridge"`

	// Timestamp is when the health status was generated (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	// Status indicates the current operational status.
	Status HealthStatus `json:"status"`

	// Version is the bridge software version.
	Version string `json:"version"`

	// UptimeSeconds is how long the bridge has been running.
	UptimeSeconds int64 `json:"uptime_seconds"`

	// Connection contains console connection details.
	Connection *ConnectionStatusInfo `json:"connection,omitempty"`

	// Statistics contains operational metrics.
	Statistics *BridgeStatistics `json:"statistics,omitempty"`

	// Reason explains the status (especially for offline/degraded).
	Reason string `json:"reason,omitempty"`
}

// ConnectionStatusInfo describes the console connection state.
type ConnectionStatusInfo struct {
	// Status is the connection status ("connected", "connecting",
	// "disconnected").
	Status string `json:"status"`

	// Host is the console address, if connected.
	Host string `json:"host,omitempty"`

	// DeviceType is the active device profile, if connected.
	DeviceType string `json:"device_type,omitempty"`

	// LastActivity is the time of the last datagram in either direction.
	LastActivity *time.Time `json:"last_activity,omitempty"`
}

// BridgeStatistics contains operational metrics.
type BridgeStatistics struct {
	// MessagesReceived is the total number of console messages received.
	MessagesReceived uint64 `json:"messages_received"`

	// MessagesSent is the total number of console messages sent.
	MessagesSent uint64 `json:"messages_sent"`

	// RepliesMatched is the number of replies correlated to requests.
	RepliesMatched uint64 `json:"replies_matched"`

	// RequestsTimedOut is the number of requests that expired unanswered.
	RequestsTimedOut uint64 `json:"requests_timed_out"`

	// Errors is the total number of errors encountered.
	Errors uint64 `json:"errors"`
}

// JSON marshalling helpers

// MarshalJSON marshals a CommandMessage to JSON.
func (m *CommandMessage) MarshalJSON() ([]byte, error) {
	type Alias CommandMessage
	return json.Marshal(&struct {
		*Alias
		Timestamp string `json:"timestamp"`
	}{
		Alias:     (*Alias)(m),
		Timestamp: m.Timestamp.UTC().Format(time.RFC3339),
	})
}

// UnmarshalJSON unmarshals a CommandMessage from JSON.
func (m *CommandMessage) UnmarshalJSON(data []byte) error {
	type Alias CommandMessage
	aux := &struct {
		*Alias
		Timestamp string `json:"timestamp"`
	}{
		Alias: (*Alias)(m),
	}
	if err := json.Unmarshal(data, aux); err != nil {
		return fmt.Errorf("unmarshal command message: %w", err)
	}
	if aux.Timestamp != "" {
		t, err := time.Parse(time.RFC3339, aux.Timestamp)
		if err != nil {
			return fmt.Errorf("parse timestamp: %w", err)
		}
		m.Timestamp = t
	}
	return nil
}

// NewAckMessage creates an acknowledgment message for a command.
func NewAckMessage(cmd CommandMessage, status AckStatus, address string) AckMessage {
	return AckMessage{
		CommandID: cmd.ID,
		Timestamp: time.Now().UTC(),
		Status:    status,
		Protocol:  ProtocolName,
		Address:   address,
	}
}

// NewAckResult creates a successful acknowledgment carrying read-back data.
func NewAckResult(cmd CommandMessage, address string, result map[string]any) AckMessage {
	ack := NewAckMessage(cmd, AckAccepted, address)
	ack.Result = result
	return ack
}

// NewAckError creates an acknowledgment with error details.
func NewAckError(cmd CommandMessage, address, code, message string) AckMessage {
	status := AckFailed
	if code == ErrCodeTimeout {
		status = AckTimeout
	}
	return AckMessage{
		CommandID: cmd.ID,
		Timestamp: time.Now().UTC(),
		Status:    status,
		Protocol:  ProtocolName,
		Address:   address,
		Error: &AckError{
			Code:    code,
			Message: message,
		},
	}
}

// NewStateMessage creates a state message for a parameter change.
func NewStateMessage(address string, value any, valueType, source string) StateMessage {
	return StateMessage{
		Address:   address,
		Timestamp: time.Now().UTC(),
		Value:     value,
		ValueType: valueType,
		Protocol:  ProtocolName,
		Source:    source,
	}
}

// NewHealthMessage creates a health status message.
func NewHealthMessage(bridgeID, version string, status HealthStatus, stats TransportStats, host, deviceType string, startTime time.Time) HealthMessage {
	msg := HealthMessage{
		Bridge:        bridgeID,
		Timestamp:     time.Now().UTC(),
		Status:        status,
		Version:       version,
		UptimeSeconds: int64(time.Since(startTime).Seconds()),
	}

	if stats.Connected {
		lastActivity := stats.LastActivity
		msg.Connection = &ConnectionStatusInfo{
			Status:       string(stats.State),
			Host:         host,
			DeviceType:   deviceType,
			LastActivity: &lastActivity,
		}
	} else {
		msg.Connection = &ConnectionStatusInfo{
			Status: string(stats.State),
		}
	}

	msg.Statistics = &BridgeStatistics{
		MessagesReceived: stats.MessagesRx,
		MessagesSent:     stats.MessagesTx,
		RepliesMatched:   stats.RepliesMatched,
		RequestsTimedOut: stats.RequestsTimedOut,
		Errors:           stats.ErrorsTotal,
	}

	return msg
}

// NewLWTMessage creates a Last Will and Testament message for MQTT.
// This message is published by the broker if the bridge disconnects unexpectedly.
func NewLWTMessage(bridgeID string) HealthMessage {
	return HealthMessage{
		Bridge:    bridgeID,
		Timestamp: time.Now().UTC(),
		Status:    HealthOffline,
		Reason:    "unexpected_disconnect",
	}
}

// Topic helpers

const (
	// TopicPrefix is the base topic for all StageLink messages.
	TopicPrefix = "stagelink"

	// topicComponent is the bridge's segment in every topic.
	topicComponent = "mixer"
)

// CommandTopic returns the MQTT topic the bridge consumes commands from.
// Example: stagelink/command/mixer
func CommandTopic() string {
	return fmt.Sprintf("%s/command/%s", TopicPrefix, topicComponent)
}

// AckTopic returns the MQTT topic for command acknowledgments.
// Example: stagelink/ack/mixer
func AckTopic() string {
	return fmt.Sprintf("%s/ack/%s", TopicPrefix, topicComponent)
}

// StateTopic returns the MQTT topic for a parameter's state updates.
// Example: stagelink/state/mixer/ch%2F01%2Fmix%2Ffader
func StateTopic(address string) string {
	return fmt.Sprintf("%s/state/%s/%s", TopicPrefix, topicComponent, EncodeTopicAddress(address))
}

// HealthTopic returns the MQTT topic for health status.
// Example: stagelink/health/mixer
func HealthTopic() string {
	return fmt.Sprintf("%s/health/%s", TopicPrefix, topicComponent)
}

// encodedSlashLen is the length of URL-encoded slash (%2F).
const encodedSlashLen = 3

// EncodeTopicAddress URL-encodes a wire address for use in MQTT topics.
// OSC addresses contain slashes which must be encoded; the leading slash is
// dropped.
// Example: "/ch/01/mix/fader" → "ch%2F01%2Fmix%2Ffader"
func EncodeTopicAddress(address string) string {
	if len(address) > 0 && address[0] == '/' {
		address = address[1:]
	}
	result := make([]byte, 0, len(address)*encodedSlashLen)
	for i := 0; i < len(address); i++ {
		if address[i] == '/' {
			result = append(result, '%', '2', 'F')
		} else {
			result = append(result, address[i])
		}
	}
	return string(result)
}

// DecodeTopicAddress decodes a URL-encoded address from an MQTT topic,
// restoring the leading slash.
// Example: "ch%2F01%2Fmix%2Ffader" → "/ch/01/mix/fader"
func DecodeTopicAddress(encoded string) string {
	result := make([]byte, 0, len(encoded)+1)
	result = append(result, '/')
	for i := 0; i < len(encoded); i++ {
		if i+2 < len(encoded) && encoded[i] == '%' && encoded[i+1] == '2' && encoded[i+2] == 'F' {
			result = append(result, '/')
			i += 2
		} else {
			result = append(result, encoded[i])
		}
	}
	return string(result)
}
