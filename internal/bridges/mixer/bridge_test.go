package mixer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
)

// MockMQTTClient is a mock implementation of MQTTClient for testing.
type MockMQTTClient struct {
	mu            sync.Mutex
	published     []mockPublish
	subscriptions map[string]byte
	handlers      map[string]func(topic string, payload []byte)
	connected     bool
	publishErr    error
}

type mockPublish struct {
	Topic    string
	Payload  []byte
	QoS      byte
	Retained bool
}

func NewMockMQTTClient() *MockMQTTClient {
	return &MockMQTTClient{
		subscriptions: make(map[string]byte),
		handlers:      make(map[string]func(string, []byte)),
		connected:     true,
	}
}

func (m *MockMQTTClient) Publish(topic string, payload []byte, qos byte, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publishErr != nil {
		return m.publishErr
	}
	m.published = append(m.published, mockPublish{
		Topic:    topic,
		Payload:  append([]byte(nil), payload...),
		QoS:      qos,
		Retained: retained,
	})
	return nil
}

func (m *MockMQTTClient) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions[topic] = qos
	m.handlers[topic] = handler
	return nil
}

func (m *MockMQTTClient) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *MockMQTTClient) Disconnect(_ uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
}

// SimulateMessage delivers a payload to the registered topic handler, as the
// broker would.
func (m *MockMQTTClient) SimulateMessage(topic string, payload []byte) {
	m.mu.Lock()
	handler, ok := m.handlers[topic]
	m.mu.Unlock()
	if ok {
		handler(topic, payload)
	}
}

// GetPublished returns a copy of all published messages.
func (m *MockMQTTClient) GetPublished() []mockPublish {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]mockPublish, len(m.published))
	copy(result, m.published)
	return result
}

// ClearPublished removes all recorded publishes.
func (m *MockMQTTClient) ClearPublished() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = nil
}

// HasSubscription reports whether Subscribe was called for a topic.
func (m *MockMQTTClient) HasSubscription(topic string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.subscriptions[topic]
	return ok
}

// mockJournal records parameter changes in memory.
type mockJournal struct {
	mu      sync.Mutex
	records []journalRecord
	err     error
}

type journalRecord struct {
	address   string
	value     any
	valueType string
	source    string
}

func (j *mockJournal) Record(_ context.Context, address string, value any, valueType, source string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return j.err
	}
	j.records = append(j.records, journalRecord{
		address:   address,
		value:     value,
		valueType: valueType,
		source:    source,
	})
	return nil
}

func (j *mockJournal) count() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.records)
}

func (j *mockJournal) last(t *testing.T) journalRecord {
	t.Helper()
	j.mu.Lock()
	defer j.mu.Unlock()
	if len(j.records) == 0 {
		t.Fatal("no journal records")
	}
	return j.records[len(j.records)-1]
}

// mockMetrics records parameter-change points in memory.
type mockMetrics struct {
	mu     sync.Mutex
	points []metricPoint
}

type metricPoint struct {
	address    string
	value      any
	source     string
	deviceType string
}

func (m *mockMetrics) WriteParameterChange(address string, value any, source, deviceType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.points = append(m.points, metricPoint{
		address:    address,
		value:      value,
		source:     source,
		deviceType: deviceType,
	})
}

func (m *mockMetrics) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.points)
}

func (m *mockMetrics) last(t *testing.T) metricPoint {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.points) == 0 {
		t.Fatal("no metric points")
	}
	return m.points[len(m.points)-1]
}

// bridgeFixture wires a bridge to mock collaborators.
type bridgeFixture struct {
	bridge  *Bridge
	console *mockConsole
	mqtt    *MockMQTTClient
	journal *mockJournal
	metrics *mockMetrics
}

func newBridgeFixture(t *testing.T) *bridgeFixture {
	t.Helper()

	f := &bridgeFixture{
		console: newMockConsole("x32"),
		mqtt:    NewMockMQTTClient(),
		journal: &mockJournal{},
		metrics: &mockMetrics{},
	}

	bridge, err := NewBridge(BridgeOptions{
		Console:    f.console,
		MQTTClient: f.mqtt,
		Journal:    f.journal,
		Metrics:    f.metrics,
	})
	if err != nil {
		t.Fatalf("NewBridge() error: %v", err)
	}
	if err := bridge.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	t.Cleanup(bridge.Stop)

	f.bridge = bridge
	return f
}

// sendCommand delivers a command to the bridge through the mock broker.
func (f *bridgeFixture) sendCommand(t *testing.T, cmd CommandMessage) {
	t.Helper()
	payload, err := json.Marshal(&cmd)
	if err != nil {
		t.Fatalf("marshal command: %v", err)
	}
	f.mqtt.SimulateMessage(CommandTopic(), payload)
}

// ackFor returns the acknowledgment published for a command ID.
func (f *bridgeFixture) ackFor(t *testing.T, commandID string) AckMessage {
	t.Helper()
	for _, pub := range f.mqtt.GetPublished() {
		if pub.Topic != AckTopic() {
			continue
		}
		var ack AckMessage
		if err := json.Unmarshal(pub.Payload, &ack); err != nil {
			t.Fatalf("unmarshal ack: %v", err)
		}
		if ack.CommandID == commandID {
			if pub.Retained {
				t.Error("ack published retained, want non-retained")
			}
			if pub.QoS != 1 {
				t.Errorf("ack QoS = %d, want 1", pub.QoS)
			}
			return ack
		}
	}
	t.Fatalf("no ack published for command %q", commandID)
	return AckMessage{}
}

// statePublishes returns all state messages published for an address.
func (f *bridgeFixture) statePublishes(t *testing.T, address string) []StateMessage {
	t.Helper()
	topic := StateTopic(address)
	var states []StateMessage
	for _, pub := range f.mqtt.GetPublished() {
		if pub.Topic != topic {
			continue
		}
		if !pub.Retained {
			t.Errorf("state publish on %s not retained", topic)
		}
		var state StateMessage
		if err := json.Unmarshal(pub.Payload, &state); err != nil {
			t.Fatalf("unmarshal state: %v", err)
		}
		states = append(states, state)
	}
	return states
}

// expectAccepted asserts a command was acked as accepted.
func (f *bridgeFixture) expectAccepted(t *testing.T, commandID, wantAddress string) AckMessage {
	t.Helper()
	ack := f.ackFor(t, commandID)
	if ack.Status != AckAccepted {
		t.Errorf("ack status = %q, want accepted (error: %+v)", ack.Status, ack.Error)
	}
	if wantAddress != "" && ack.Address != wantAddress {
		t.Errorf("ack address = %q, want %q", ack.Address, wantAddress)
	}
	if ack.Protocol != ProtocolName {
		t.Errorf("ack protocol = %q, want %q", ack.Protocol, ProtocolName)
	}
	return ack
}

// expectFailed asserts a command was acked with an error code.
func (f *bridgeFixture) expectFailed(t *testing.T, commandID, wantCode string) AckMessage {
	t.Helper()
	ack := f.ackFor(t, commandID)
	if ack.Status == AckAccepted {
		t.Fatalf("ack status = accepted, want failure")
	}
	if ack.Error == nil {
		t.Fatal("ack has no error details")
	}
	if ack.Error.Code != wantCode {
		t.Errorf("error code = %q, want %q (message: %s)", ack.Error.Code, wantCode, ack.Error.Message)
	}
	return ack
}

// floatArg builds a float32 wire argument for console echo simulation.
func floatArg(v float32) Argument {
	return Argument{Tag: TagFloat32, Value: v}
}

func TestNewBridgeRequiresConsole(t *testing.T) {
	if _, err := NewBridge(BridgeOptions{}); err == nil {
		t.Error("NewBridge() without console succeeded, want error")
	}
}

func TestBridgeStartSubscribesToCommands(t *testing.T) {
	f := newBridgeFixture(t)

	if !f.mqtt.HasSubscription(CommandTopic()) {
		t.Errorf("bridge not subscribed to %s", CommandTopic())
	}

	// A "starting" health status must be announced.
	var sawStarting bool
	for _, pub := range f.mqtt.GetPublished() {
		if pub.Topic != HealthTopic() {
			continue
		}
		var health HealthMessage
		if err := json.Unmarshal(pub.Payload, &health); err != nil {
			t.Fatalf("unmarshal health: %v", err)
		}
		if health.Status == HealthStarting {
			sawStarting = true
			if !pub.Retained {
				t.Error("health publish not retained")
			}
		}
	}
	if !sawStarting {
		t.Error("no starting health status published")
	}
}

func TestBridgeSetFaderFromDB(t *testing.T) {
	f := newBridgeFixture(t)

	f.sendCommand(t, CommandMessage{
		ID:         "cmd-1",
		Command:    "set_fader",
		Target:     &CommandTarget{Type: TargetChannel, Index: 7},
		Parameters: map[string]any{"db": 0.0},
		Source:     "api",
	})

	call := f.console.lastSet(t)
	if call.address != "/ch/07/mix/fader" {
		t.Errorf("address = %q, want /ch/07/mix/fader", call.address)
	}
	position, ok := call.value.(float64)
	if !ok || math.Abs(position-0.75) > 1e-9 {
		t.Errorf("position = %v, want 0.75", call.value)
	}

	f.expectAccepted(t, "cmd-1", "/ch/07/mix/fader")

	states := f.statePublishes(t, "/ch/07/mix/fader")
	if len(states) != 1 {
		t.Fatalf("got %d state publishes, want 1", len(states))
	}
	if states[0].Source != "api" {
		t.Errorf("state source = %q, want api", states[0].Source)
	}
	if states[0].ValueType != ValueTypeFloat {
		t.Errorf("state value type = %q, want float", states[0].ValueType)
	}

	rec := f.journal.last(t)
	if rec.address != "/ch/07/mix/fader" || rec.source != "api" {
		t.Errorf("journal record = %+v", rec)
	}

	point := f.metrics.last(t)
	if point.deviceType != "x32" {
		t.Errorf("metric device type = %q, want x32", point.deviceType)
	}
}

func TestBridgeSetFaderFromPosition(t *testing.T) {
	f := newBridgeFixture(t)

	f.sendCommand(t, CommandMessage{
		ID:         "cmd-2",
		Command:    "set_fader",
		Target:     &CommandTarget{Type: TargetBus, Index: 3},
		Parameters: map[string]any{"fader": 0.42},
	})

	call := f.console.lastSet(t)
	if call.address != "/bus/03/mix/fader" {
		t.Errorf("address = %q, want /bus/03/mix/fader", call.address)
	}
	position, ok := call.value.(float64)
	if !ok || math.Abs(position-0.42) > 1e-9 {
		t.Errorf("position = %v, want 0.42", call.value)
	}

	f.expectAccepted(t, "cmd-2", "/bus/03/mix/fader")
}

func TestBridgeSetFaderDCA(t *testing.T) {
	f := newBridgeFixture(t)

	f.sendCommand(t, CommandMessage{
		ID:         "cmd-3",
		Command:    "set_fader",
		Target:     &CommandTarget{Type: TargetDCA, Index: 3},
		Parameters: map[string]any{"db": -90.0},
	})

	// DCA groups carry the fader directly, without the mix/ prefix.
	call := f.console.lastSet(t)
	if call.address != "/dca/03/fader" {
		t.Errorf("address = %q, want /dca/03/fader", call.address)
	}

	f.expectAccepted(t, "cmd-3", "/dca/03/fader")
}

func TestBridgeSetFaderValidation(t *testing.T) {
	tests := []struct {
		name     string
		cmd      CommandMessage
		wantCode string
	}{
		{
			name: "fader above range",
			cmd: CommandMessage{
				ID:         "v-1",
				Command:    "set_fader",
				Target:     &CommandTarget{Type: TargetChannel, Index: 1},
				Parameters: map[string]any{"fader": 1.5},
			},
			wantCode: ErrCodeOutOfRange,
		},
		{
			name: "fader below range",
			cmd: CommandMessage{
				ID:         "v-2",
				Command:    "set_fader",
				Target:     &CommandTarget{Type: TargetChannel, Index: 1},
				Parameters: map[string]any{"fader": -0.1},
			},
			wantCode: ErrCodeOutOfRange,
		},
		{
			name: "missing level parameters",
			cmd: CommandMessage{
				ID:      "v-3",
				Command: "set_fader",
				Target:  &CommandTarget{Type: TargetChannel, Index: 1},
			},
			wantCode: ErrCodeInvalidParameters,
		},
		{
			name: "channel out of range",
			cmd: CommandMessage{
				ID:         "v-4",
				Command:    "set_fader",
				Target:     &CommandTarget{Type: TargetChannel, Index: 99},
				Parameters: map[string]any{"db": 0.0},
			},
			wantCode: ErrCodeOutOfRange,
		},
		{
			name: "fx has no fader",
			cmd: CommandMessage{
				ID:         "v-5",
				Command:    "set_fader",
				Target:     &CommandTarget{Type: TargetFX, Index: 1},
				Parameters: map[string]any{"db": 0.0},
			},
			wantCode: ErrCodeInvalidParameters,
		},
		{
			name: "missing target",
			cmd: CommandMessage{
				ID:         "v-6",
				Command:    "set_fader",
				Parameters: map[string]any{"db": 0.0},
			},
			wantCode: ErrCodeInvalidParameters,
		},
		{
			name: "unknown target type",
			cmd: CommandMessage{
				ID:         "v-7",
				Command:    "set_fader",
				Target:     &CommandTarget{Type: "matrix", Index: 1},
				Parameters: map[string]any{"db": 0.0},
			},
			wantCode: ErrCodeInvalidParameters,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newBridgeFixture(t)
			f.sendCommand(t, tt.cmd)
			f.expectFailed(t, tt.cmd.ID, tt.wantCode)
			if n := f.console.setCallCount(); n != 0 {
				t.Errorf("console received %d writes, want 0", n)
			}
		})
	}
}

func TestBridgeSetMute(t *testing.T) {
	f := newBridgeFixture(t)

	f.sendCommand(t, CommandMessage{
		ID:         "mute-1",
		Command:    "set_mute",
		Target:     &CommandTarget{Type: TargetChannel, Index: 5},
		Parameters: map[string]any{"muted": true},
	})

	call := f.console.lastSet(t)
	if call.address != "/ch/05/mix/on" {
		t.Errorf("address = %q, want /ch/05/mix/on", call.address)
	}
	if got, ok := call.value.(int); !ok || got != 0 {
		t.Errorf("value = %v, want 0 (muted writes on=0)", call.value)
	}
	f.expectAccepted(t, "mute-1", "/ch/05/mix/on")

	rec := f.journal.last(t)
	if rec.valueType != ValueTypeInt {
		t.Errorf("journal value type = %q, want int", rec.valueType)
	}
	if rec.value != int64(0) {
		t.Errorf("journal value = %v (%T), want 0", rec.value, rec.value)
	}

	// Unmute.
	f.sendCommand(t, CommandMessage{
		ID:         "mute-2",
		Command:    "set_mute",
		Target:     &CommandTarget{Type: TargetChannel, Index: 5},
		Parameters: map[string]any{"muted": false},
	})
	if got, ok := f.console.lastSet(t).value.(int); !ok || got != 1 {
		t.Errorf("value = %v, want 1", f.console.lastSet(t).value)
	}

	// DCA mutes skip the mix/ prefix.
	f.sendCommand(t, CommandMessage{
		ID:         "mute-3",
		Command:    "set_mute",
		Target:     &CommandTarget{Type: TargetDCA, Index: 2},
		Parameters: map[string]any{"muted": true},
	})
	if addr := f.console.lastSet(t).address; addr != "/dca/02/on" {
		t.Errorf("address = %q, want /dca/02/on", addr)
	}

	// Missing flag.
	f.sendCommand(t, CommandMessage{
		ID:      "mute-4",
		Command: "set_mute",
		Target:  &CommandTarget{Type: TargetChannel, Index: 5},
	})
	f.expectFailed(t, "mute-4", ErrCodeInvalidParameters)
}

func TestBridgeSetPan(t *testing.T) {
	f := newBridgeFixture(t)

	f.sendCommand(t, CommandMessage{
		ID:         "pan-1",
		Command:    "set_pan",
		Target:     &CommandTarget{Type: TargetChannel, Index: 1},
		Parameters: map[string]any{"pan": "L50"},
	})

	call := f.console.lastSet(t)
	if call.address != "/ch/01/mix/pan" {
		t.Errorf("address = %q, want /ch/01/mix/pan", call.address)
	}
	position, ok := call.value.(float64)
	if !ok || math.Abs(position-0.25) > 1e-9 {
		t.Errorf("position = %v, want 0.25", call.value)
	}
	f.expectAccepted(t, "pan-1", "/ch/01/mix/pan")

	// Percentages arrive as JSON numbers.
	f.sendCommand(t, CommandMessage{
		ID:         "pan-2",
		Command:    "set_pan",
		Target:     &CommandTarget{Type: TargetChannel, Index: 1},
		Parameters: map[string]any{"pan": 100.0},
	})
	position, ok = f.console.lastSet(t).value.(float64)
	if !ok || math.Abs(position-1.0) > 1e-9 {
		t.Errorf("position = %v, want 1.0", f.console.lastSet(t).value)
	}

	f.sendCommand(t, CommandMessage{
		ID:         "pan-3",
		Command:    "set_pan",
		Target:     &CommandTarget{Type: TargetChannel, Index: 1},
		Parameters: map[string]any{"pan": "sideways"},
	})
	f.expectFailed(t, "pan-3", ErrCodeOutOfRange)

	// DCAs have no pan.
	f.sendCommand(t, CommandMessage{
		ID:         "pan-4",
		Command:    "set_pan",
		Target:     &CommandTarget{Type: TargetDCA, Index: 1},
		Parameters: map[string]any{"pan": "C"},
	})
	f.expectFailed(t, "pan-4", ErrCodeInvalidParameters)
}

func TestBridgeSetColor(t *testing.T) {
	f := newBridgeFixture(t)

	f.sendCommand(t, CommandMessage{
		ID:         "color-1",
		Command:    "set_color",
		Target:     &CommandTarget{Type: TargetBus, Index: 3},
		Parameters: map[string]any{"color": "cyan"},
	})

	call := f.console.lastSet(t)
	if call.address != "/bus/03/config/color" {
		t.Errorf("address = %q, want /bus/03/config/color", call.address)
	}
	if got, ok := call.value.(int); !ok || got != 6 {
		t.Errorf("value = %v, want 6", call.value)
	}
	f.expectAccepted(t, "color-1", "/bus/03/config/color")

	f.sendCommand(t, CommandMessage{
		ID:         "color-2",
		Command:    "set_color",
		Target:     &CommandTarget{Type: TargetChannel, Index: 1},
		Parameters: map[string]any{"color": "chartreuse"},
	})
	f.expectFailed(t, "color-2", ErrCodeOutOfRange)

	f.sendCommand(t, CommandMessage{
		ID:         "color-3",
		Command:    "set_color",
		Target:     &CommandTarget{Type: TargetFX, Index: 1},
		Parameters: map[string]any{"color": "red"},
	})
	f.expectFailed(t, "color-3", ErrCodeInvalidParameters)
}

func TestBridgeSetName(t *testing.T) {
	f := newBridgeFixture(t)

	f.sendCommand(t, CommandMessage{
		ID:         "name-1",
		Command:    "set_name",
		Target:     &CommandTarget{Type: TargetChannel, Index: 2},
		Parameters: map[string]any{"name": "Drums"},
	})

	call := f.console.lastSet(t)
	if call.address != "/ch/02/config/name" {
		t.Errorf("address = %q, want /ch/02/config/name", call.address)
	}
	if got, ok := call.value.(string); !ok || got != "Drums" {
		t.Errorf("value = %v, want Drums", call.value)
	}
	f.expectAccepted(t, "name-1", "/ch/02/config/name")

	rec := f.journal.last(t)
	if rec.valueType != ValueTypeString || rec.value != "Drums" {
		t.Errorf("journal record = %+v", rec)
	}

	f.sendCommand(t, CommandMessage{
		ID:      "name-2",
		Command: "set_name",
		Target:  &CommandTarget{Type: TargetChannel, Index: 2},
	})
	f.expectFailed(t, "name-2", ErrCodeInvalidParameters)
}

func TestBridgeSetParameterRaw(t *testing.T) {
	f := newBridgeFixture(t)

	// Raw writes bypass the typed surface for unmapped addresses.
	f.sendCommand(t, CommandMessage{
		ID:      "raw-1",
		Command: "set_parameter",
		Parameters: map[string]any{
			"address": "/ch/01/mix/06/level",
			"value":   0.5,
		},
	})

	call := f.console.lastSet(t)
	if call.address != "/ch/01/mix/06/level" {
		t.Errorf("address = %q, want /ch/01/mix/06/level", call.address)
	}
	if got, ok := call.value.(float64); !ok || got != 0.5 {
		t.Errorf("value = %v, want 0.5", call.value)
	}
	f.expectAccepted(t, "raw-1", "/ch/01/mix/06/level")
}

func TestBridgeSetParameterTypeHint(t *testing.T) {
	f := newBridgeFixture(t)

	// JSON numbers decode as float64; the hint coerces to a wire int.
	f.sendCommand(t, CommandMessage{
		ID:      "raw-2",
		Command: "set_parameter",
		Parameters: map[string]any{
			"address": "/ch/01/config/icon",
			"value":   3.0,
			"type":    "int",
		},
	})

	call := f.console.lastSet(t)
	if got, ok := call.value.(int); !ok || got != 3 {
		t.Errorf("value = %v (%T), want int 3", call.value, call.value)
	}

	rec := f.journal.last(t)
	if rec.valueType != ValueTypeInt {
		t.Errorf("journal value type = %q, want int", rec.valueType)
	}
}

func TestBridgeSetParameterValidation(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]any
	}{
		{"missing address", map[string]any{"value": 0.5}},
		{"relative address", map[string]any{"address": "ch/01/mix/fader", "value": 0.5}},
		{"missing value", map[string]any{"address": "/ch/01/mix/fader"}},
		{"bad type hint", map[string]any{"address": "/ch/01/mix/fader", "value": 0.5, "type": "complex"}},
		{"string for int hint", map[string]any{"address": "/ch/01/mix/fader", "value": "three", "type": "int"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newBridgeFixture(t)
			f.sendCommand(t, CommandMessage{
				ID:         "raw-bad",
				Command:    "set_parameter",
				Parameters: tt.params,
			})
			f.expectFailed(t, "raw-bad", ErrCodeInvalidParameters)
			if n := f.console.setCallCount(); n != 0 {
				t.Errorf("console received %d writes, want 0", n)
			}
		})
	}
}

func TestBridgeGetParameter(t *testing.T) {
	f := newBridgeFixture(t)
	f.console.setReply("/ch/01/mix/fader", float32(0.5))

	f.sendCommand(t, CommandMessage{
		ID:         "get-1",
		Command:    "get_parameter",
		Parameters: map[string]any{"address": "/ch/01/mix/fader"},
	})

	ack := f.expectAccepted(t, "get-1", "/ch/01/mix/fader")
	if ack.Result == nil {
		t.Fatal("ack has no result")
	}
	if got, ok := ack.Result["value"].(float64); !ok || math.Abs(got-0.5) > 1e-6 {
		t.Errorf("result value = %v, want 0.5", ack.Result["value"])
	}
	if ack.Result["value_type"] != ValueTypeFloat {
		t.Errorf("result value_type = %v, want float", ack.Result["value_type"])
	}

	// Reads are observations, not changes: nothing may hit the journal.
	if n := f.journal.count(); n != 0 {
		t.Errorf("journal has %d records after a read, want 0", n)
	}
}

func TestBridgeGetParameterNotConnected(t *testing.T) {
	f := newBridgeFixture(t)
	f.console.Disconnect()

	f.sendCommand(t, CommandMessage{
		ID:         "get-2",
		Command:    "get_parameter",
		Parameters: map[string]any{"address": "/ch/01/mix/fader"},
	})

	ack := f.expectFailed(t, "get-2", ErrCodeNotConnected)
	if ack.Status != AckFailed {
		t.Errorf("ack status = %q, want failed", ack.Status)
	}
}

func TestBridgeGetParameterTimeout(t *testing.T) {
	f := newBridgeFixture(t)
	f.console.requestErr = fmt.Errorf("%w: no reply within 5s", ErrTimeout)

	f.sendCommand(t, CommandMessage{
		ID:         "get-3",
		Command:    "get_parameter",
		Parameters: map[string]any{"address": "/ch/01/mix/fader"},
	})

	ack := f.expectFailed(t, "get-3", ErrCodeTimeout)
	if ack.Status != AckTimeout {
		t.Errorf("ack status = %q, want timeout", ack.Status)
	}
}

func TestBridgeGetStatus(t *testing.T) {
	f := newBridgeFixture(t)
	f.console.status = ConsoleStatus{State: "active", IP: "192.168.48.20", ServerName: "osc-server"}

	f.sendCommand(t, CommandMessage{ID: "status-1", Command: "get_status"})

	ack := f.expectAccepted(t, "status-1", "/status")
	if ack.Result["state"] != "active" || ack.Result["ip"] != "192.168.48.20" {
		t.Errorf("result = %v", ack.Result)
	}
}

func TestBridgeGetInfo(t *testing.T) {
	f := newBridgeFixture(t)
	f.console.info = ConsoleInfo{
		ServerVersion:   "V2.07",
		ServerName:      "osc-server",
		Model:           "X32",
		FirmwareVersion: "4.06",
	}

	f.sendCommand(t, CommandMessage{ID: "info-1", Command: "get_info"})

	ack := f.expectAccepted(t, "info-1", "/info")
	if ack.Result["model"] != "X32" || ack.Result["firmware_version"] != "4.06" {
		t.Errorf("result = %v", ack.Result)
	}
}

func TestBridgeUnknownCommand(t *testing.T) {
	f := newBridgeFixture(t)

	f.sendCommand(t, CommandMessage{ID: "bad-1", Command: "reticulate_splines"})

	ack := f.expectFailed(t, "bad-1", ErrCodeInvalidCommand)
	if ack.Error.Message == "" {
		t.Error("error message empty")
	}
}

func TestBridgeMalformedCommandPayload(t *testing.T) {
	f := newBridgeFixture(t)
	f.mqtt.ClearPublished()

	f.mqtt.SimulateMessage(CommandTopic(), []byte("{not json"))

	// Unparseable payloads are dropped: no ack can be correlated.
	for _, pub := range f.mqtt.GetPublished() {
		if pub.Topic == AckTopic() {
			t.Errorf("ack published for malformed payload: %s", pub.Payload)
		}
	}
}

func TestBridgeGeneratesCommandID(t *testing.T) {
	f := newBridgeFixture(t)
	f.mqtt.ClearPublished()

	// No id field at all.
	f.mqtt.SimulateMessage(CommandTopic(), []byte(`{"command":"get_status"}`))

	var found bool
	for _, pub := range f.mqtt.GetPublished() {
		if pub.Topic != AckTopic() {
			continue
		}
		var ack AckMessage
		if err := json.Unmarshal(pub.Payload, &ack); err != nil {
			t.Fatalf("unmarshal ack: %v", err)
		}
		found = true
		if ack.CommandID == "" {
			t.Error("ack has empty command_id, want generated ID")
		}
	}
	if !found {
		t.Fatal("no ack published")
	}
}

func TestBridgeConnectCommand(t *testing.T) {
	console := newMockConsole("x32")
	console.Disconnect()
	mqttClient := NewMockMQTTClient()

	bridge, err := NewBridge(BridgeOptions{
		Console:    console,
		MQTTClient: mqttClient,
		Connection: ConnectionConfig{Host: "192.168.48.20", Port: 10023, DeviceType: "x32"},
	})
	if err != nil {
		t.Fatalf("NewBridge() error: %v", err)
	}
	if err := bridge.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	t.Cleanup(bridge.Stop)

	f := &bridgeFixture{bridge: bridge, console: console, mqtt: mqttClient}

	// Overrides merge onto the configured defaults.
	f.sendCommand(t, CommandMessage{
		ID:      "conn-1",
		Command: "connect",
		Parameters: map[string]any{
			"host":        "10.0.0.5",
			"device_type": "xr18",
		},
	})

	f.expectAccepted(t, "conn-1", "")
	if !console.IsConnected() {
		t.Fatal("console not connected")
	}

	cfg := console.lastConnect()
	if cfg.Host != "10.0.0.5" {
		t.Errorf("host = %q, want 10.0.0.5", cfg.Host)
	}
	if cfg.Port != 10023 {
		t.Errorf("port = %d, want 10023 (default)", cfg.Port)
	}
	if cfg.DeviceType != "xr18" {
		t.Errorf("device type = %q, want xr18", cfg.DeviceType)
	}

	// Connecting again fails with the transport's sentinel.
	f.sendCommand(t, CommandMessage{ID: "conn-2", Command: "connect"})
	f.expectFailed(t, "conn-2", ErrCodeAlreadyConnected)

	// Disconnect.
	f.sendCommand(t, CommandMessage{ID: "conn-3", Command: "disconnect"})
	f.expectAccepted(t, "conn-3", "")
	if console.IsConnected() {
		t.Error("console still connected after disconnect command")
	}
}

func TestBridgeConnectUnknownDeviceType(t *testing.T) {
	console := newMockConsole("x32")
	console.Disconnect()
	mqttClient := NewMockMQTTClient()

	bridge, err := NewBridge(BridgeOptions{Console: console, MQTTClient: mqttClient})
	if err != nil {
		t.Fatalf("NewBridge() error: %v", err)
	}
	if err := bridge.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	t.Cleanup(bridge.Stop)

	f := &bridgeFixture{bridge: bridge, console: console, mqtt: mqttClient}

	f.sendCommand(t, CommandMessage{
		ID:         "conn-bad",
		Command:    "connect",
		Parameters: map[string]any{"host": "10.0.0.5", "device_type": "z99"},
	})

	f.expectFailed(t, "conn-bad", ErrCodeInvalidParameters)
}

func TestBridgeConsoleEchoPipeline(t *testing.T) {
	f := newBridgeFixture(t)

	f.console.simulateMessage(Message{
		Address:   "/ch/01/mix/fader",
		Arguments: []Argument{floatArg(0.5)},
	})

	states := f.statePublishes(t, "/ch/01/mix/fader")
	if len(states) != 1 {
		t.Fatalf("got %d state publishes, want 1", len(states))
	}
	if states[0].Source != StateSourceConsole {
		t.Errorf("state source = %q, want console", states[0].Source)
	}
	if got, ok := states[0].Value.(float64); !ok || math.Abs(got-0.5) > 1e-6 {
		t.Errorf("state value = %v, want 0.5", states[0].Value)
	}

	rec := f.journal.last(t)
	if rec.address != "/ch/01/mix/fader" || rec.source != StateSourceConsole {
		t.Errorf("journal record = %+v", rec)
	}

	point := f.metrics.last(t)
	if point.address != "/ch/01/mix/fader" || point.deviceType != "x32" {
		t.Errorf("metric point = %+v", point)
	}
}

func TestBridgeStateDeduplication(t *testing.T) {
	f := newBridgeFixture(t)

	echo := Message{Address: "/ch/01/mix/on", Arguments: []Argument{{Tag: TagInt32, Value: int32(0)}}}

	f.console.simulateMessage(echo)
	f.console.simulateMessage(echo)

	if states := f.statePublishes(t, "/ch/01/mix/on"); len(states) != 1 {
		t.Errorf("got %d state publishes for repeated value, want 1", len(states))
	}
	if n := f.journal.count(); n != 1 {
		t.Errorf("journal has %d records for repeated value, want 1", n)
	}

	// A genuine change passes through.
	f.console.simulateMessage(Message{Address: "/ch/01/mix/on", Arguments: []Argument{{Tag: TagInt32, Value: int32(1)}}})
	if states := f.statePublishes(t, "/ch/01/mix/on"); len(states) != 2 {
		t.Errorf("got %d state publishes after change, want 2", len(states))
	}

	// Clearing the cache forces a republish of the same value.
	f.bridge.ClearStateCache()
	f.console.simulateMessage(Message{Address: "/ch/01/mix/on", Arguments: []Argument{{Tag: TagInt32, Value: int32(1)}}})
	if states := f.statePublishes(t, "/ch/01/mix/on"); len(states) != 3 {
		t.Errorf("got %d state publishes after cache clear, want 3", len(states))
	}
}

func TestBridgeReconnectClearsStateCache(t *testing.T) {
	f := newBridgeFixture(t)

	echo := Message{Address: "/ch/01/mix/fader", Arguments: []Argument{floatArg(0.5)}}
	f.console.simulateMessage(echo)

	if states := f.statePublishes(t, "/ch/01/mix/fader"); len(states) != 1 {
		t.Fatalf("got %d state publishes before reconnect, want 1", len(states))
	}

	// New session. The desk may have been swapped or its values changed
	// while we were away, so the first update must not be suppressed even
	// when it matches the old session's cached value.
	f.console.simulateStateChange(StateDisconnected)
	f.console.simulateStateChange(StateConnected)

	f.console.simulateMessage(echo)

	if states := f.statePublishes(t, "/ch/01/mix/fader"); len(states) != 2 {
		t.Errorf("got %d state publishes after reconnect, want 2", len(states))
	}
	if n := f.journal.count(); n != 2 {
		t.Errorf("journal has %d records after reconnect, want 2", n)
	}
}

func TestBridgeLocalWriteEchoSuppressed(t *testing.T) {
	f := newBridgeFixture(t)

	f.sendCommand(t, CommandMessage{
		ID:         "echo-1",
		Command:    "set_fader",
		Target:     &CommandTarget{Type: TargetChannel, Index: 1},
		Parameters: map[string]any{"fader": 0.42},
	})

	if states := f.statePublishes(t, "/ch/01/mix/fader"); len(states) != 1 {
		t.Fatalf("got %d state publishes after write, want 1", len(states))
	}

	// The console echoes the write back through the update subscription at
	// wire precision. That echo carries no new information.
	f.console.simulateMessage(Message{
		Address:   "/ch/01/mix/fader",
		Arguments: []Argument{floatArg(float32(0.42))},
	})

	if states := f.statePublishes(t, "/ch/01/mix/fader"); len(states) != 1 {
		t.Errorf("got %d state publishes after echo, want 1 (echo must dedupe)", len(states))
	}
	if n := f.journal.count(); n != 1 {
		t.Errorf("journal has %d records after echo, want 1", n)
	}
}

func TestBridgeZeroArgConsoleMessageIgnored(t *testing.T) {
	f := newBridgeFixture(t)
	f.mqtt.ClearPublished()

	f.console.simulateMessage(Message{Address: "/ch/01/mix/fader"})

	if states := f.statePublishes(t, "/ch/01/mix/fader"); len(states) != 0 {
		t.Errorf("got %d state publishes for zero-arg message, want 0", len(states))
	}
	if n := f.journal.count(); n != 0 {
		t.Errorf("journal has %d records, want 0", n)
	}
}

func TestBridgeWithoutMQTT(t *testing.T) {
	console := newMockConsole("x32")
	journal := &mockJournal{}

	var mu sync.Mutex
	var observed []StateMessage

	bridge, err := NewBridge(BridgeOptions{
		Console: console,
		Journal: journal,
		OnState: func(state StateMessage) {
			mu.Lock()
			observed = append(observed, state)
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("NewBridge() error: %v", err)
	}
	if err := bridge.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	t.Cleanup(bridge.Stop)

	// The pipeline still journals and notifies without a broker.
	console.simulateMessage(Message{
		Address:   "/ch/09/mix/fader",
		Arguments: []Argument{floatArg(0.25)},
	})

	if n := journal.count(); n != 1 {
		t.Errorf("journal has %d records, want 1", n)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(observed) != 1 {
		t.Fatalf("got %d state callbacks, want 1", len(observed))
	}
	if observed[0].Address != "/ch/09/mix/fader" {
		t.Errorf("observed address = %q, want /ch/09/mix/fader", observed[0].Address)
	}
}

func TestBridgeJournalFailureDoesNotBlockPipeline(t *testing.T) {
	f := newBridgeFixture(t)
	f.journal.err = errors.New("database is locked")

	f.console.simulateMessage(Message{
		Address:   "/bus/01/mix/fader",
		Arguments: []Argument{floatArg(0.6)},
	})

	// State and metrics still flow when the journal write fails.
	if states := f.statePublishes(t, "/bus/01/mix/fader"); len(states) != 1 {
		t.Errorf("got %d state publishes, want 1", len(states))
	}
	if n := f.metrics.count(); n != 1 {
		t.Errorf("metrics has %d points, want 1", n)
	}
}

func TestBridgeMQTTDisconnectedSkipsStatePublish(t *testing.T) {
	f := newBridgeFixture(t)
	f.mqtt.Disconnect(0)
	f.mqtt.ClearPublished()

	f.console.simulateMessage(Message{
		Address:   "/ch/01/mix/fader",
		Arguments: []Argument{floatArg(0.5)},
	})

	if states := f.statePublishes(t, "/ch/01/mix/fader"); len(states) != 0 {
		t.Errorf("got %d state publishes while broker down, want 0", len(states))
	}

	// The journal keeps the change even when the broker is unreachable.
	if n := f.journal.count(); n != 1 {
		t.Errorf("journal has %d records, want 1", n)
	}
}

func TestBridgeConnectionStateChanges(t *testing.T) {
	console := newMockConsole("x32")
	mqttClient := NewMockMQTTClient()

	var mu sync.Mutex
	var transitions []ConnectionState

	bridge, err := NewBridge(BridgeOptions{
		Console:    console,
		MQTTClient: mqttClient,
		OnConnectionState: func(state ConnectionState) {
			mu.Lock()
			transitions = append(transitions, state)
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("NewBridge() error: %v", err)
	}
	if err := bridge.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	t.Cleanup(bridge.Stop)

	console.simulateStateChange(StateDisconnected)
	console.simulateStateChange(StateConnecting)
	console.simulateStateChange(StateConnected)

	mu.Lock()
	got := append([]ConnectionState(nil), transitions...)
	mu.Unlock()

	want := []ConnectionState{StateDisconnected, StateConnecting, StateConnected}
	if len(got) != len(want) {
		t.Fatalf("got %d transitions, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("transition[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestBridgeStopIdempotent(t *testing.T) {
	f := newBridgeFixture(t)

	f.bridge.Stop()
	f.bridge.Stop()

	// A final stopping status must have been announced.
	var sawStopping bool
	for _, pub := range f.mqtt.GetPublished() {
		if pub.Topic != HealthTopic() {
			continue
		}
		var health HealthMessage
		if err := json.Unmarshal(pub.Payload, &health); err != nil {
			t.Fatalf("unmarshal health: %v", err)
		}
		if health.Status == HealthStopping {
			sawStopping = true
		}
	}
	if !sawStopping {
		t.Error("no stopping health status published")
	}
}

func TestErrorCodeMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"not connected", ErrNotConnected, ErrCodeNotConnected},
		{"connection closed", ErrConnectionClosed, ErrCodeNotConnected},
		{"already connected", ErrAlreadyConnected, ErrCodeAlreadyConnected},
		{"connection failed", ErrConnectionFailed, ErrCodeConnectionFailed},
		{"timeout", ErrTimeout, ErrCodeTimeout},
		{"request pending", ErrRequestPending, ErrCodeRequestPending},
		{"range validation", ErrRangeValidation, ErrCodeOutOfRange},
		{"unknown device type", ErrUnknownDeviceType, ErrCodeInvalidParameters},
		{"unsupported template", ErrUnsupportedTemplate, ErrCodeInvalidParameters},
		{"unknown target", errUnknownTarget, ErrCodeInvalidParameters},
		{"protocol parse", ErrProtocolParse, ErrCodeProtocolError},
		{"no value returned", ErrNoValueReturned, ErrCodeProtocolError},
		{"wrapped timeout", fmt.Errorf("request failed: %w", ErrTimeout), ErrCodeTimeout},
		{"wrapped range", fmt.Errorf("%w: channel must be between 1 and 32", ErrRangeValidation), ErrCodeOutOfRange},
		{"unmapped error", errors.New("disk on fire"), ErrCodeBridgeError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorCode(tt.err); got != tt.want {
				t.Errorf("errorCode(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestBridgeConnectionDefaults(t *testing.T) {
	console := newMockConsole("x32")
	defaults := ConnectionConfig{Host: "192.168.48.20", Port: 10024, DeviceType: "xr18"}

	bridge, err := NewBridge(BridgeOptions{Console: console, Connection: defaults})
	if err != nil {
		t.Fatalf("NewBridge() error: %v", err)
	}

	got := bridge.ConnectionDefaults()
	if got.Host != defaults.Host || got.Port != defaults.Port || got.DeviceType != defaults.DeviceType {
		t.Errorf("ConnectionDefaults() = %+v, want %+v", got, defaults)
	}
}
