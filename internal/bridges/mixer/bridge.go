package mixer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Bridge operation constants.
const (
	// commandTimeout bounds command execution. It must exceed the
	// transport's request timeout so request-level timeouts surface first.
	commandTimeout = 10 * time.Second

	// dcaFaderParam and dcaOnParam are the DCA parameter paths. DCA groups
	// carry fader and on directly, without the "mix/" prefix the channel
	// strips use.
	dcaFaderParam = "fader"
	dcaOnParam    = "on"
)

// Value kinds carried in state messages and journal entries.
const (
	ValueTypeInt    = "int"
	ValueTypeFloat  = "float"
	ValueTypeString = "string"
	ValueTypeBool   = "bool"
	ValueTypeBlob   = "blob"
)

// State sources.
const (
	// StateSourceConsole marks changes pushed by the desk itself.
	StateSourceConsole = "console"

	// StateSourceMQTT marks changes driven by MQTT commands that did not
	// declare a source.
	StateSourceMQTT = "mqtt"
)

// errUnknownTarget is raised for command targets outside the known sections.
var errUnknownTarget = errors.New("mixer: unknown target type")

// MQTTClient is the interface for MQTT operations.
// This allows mocking in tests and flexibility in implementation.
type MQTTClient interface {
	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool

	// Disconnect closes the connection gracefully.
	Disconnect(quiesce uint)
}

// JournalRecorder persists parameter changes. Satisfied by the journal
// repository (via adapter in main). Optional — if nil, the bridge operates
// without a journal.
type JournalRecorder interface {
	// Record appends one parameter change.
	Record(ctx context.Context, address string, value any, valueType, source string) error
}

// MetricsWriter emits parameter-change points to the metrics backend.
// Optional — if nil, the bridge operates without metrics.
type MetricsWriter interface {
	// WriteParameterChange records one parameter change.
	WriteParameterChange(address string, value any, source, deviceType string)
}

// BridgeOptions holds configuration for creating a bridge.
type BridgeOptions struct {
	// BridgeID identifies the bridge in health messages. Default: "mixer".
	BridgeID string

	// Version is the bridge software version for health messages.
	Version string

	// Console is the mixer transport. Required.
	Console Console

	// MQTTClient is the MQTT client implementation. Optional — without it
	// the bridge still runs the journal/metrics pipeline and serves the
	// connect/disconnect methods.
	MQTTClient MQTTClient

	// Connection is the default console target used by connect commands.
	// Individual commands may override host, port, and device type.
	Connection ConnectionConfig

	// Journal is optional parameter-change persistence.
	Journal JournalRecorder

	// Metrics is optional parameter-change metrics.
	Metrics MetricsWriter

	// HealthInterval is how often to publish health status.
	HealthInterval time.Duration

	// OnState is invoked for every recorded state change (after MQTT,
	// journal, and metrics processing). Used to feed the API event stream.
	OnState func(StateMessage)

	// OnConnectionState is invoked on console lifecycle transitions.
	OnConnectionState func(ConnectionState)

	// Logger is optional structured logger.
	Logger Logger
}

// Bridge orchestrates bidirectional translation between a mixing console
// and MQTT. It handles:
//   - Receiving commands via MQTT and executing them against the console
//   - Receiving console parameter updates and publishing state to MQTT,
//     the journal, and the metrics backend
//   - Health reporting and graceful shutdown
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	bridgeID string
	console  Console
	params   *ParameterClient
	mqtt     MQTTClient
	health   *HealthReporter
	journal  JournalRecorder
	metrics  MetricsWriter

	onState           func(StateMessage)
	onConnectionState func(ConnectionState)

	// Default console target for connect commands
	connCfg   ConnectionConfig
	connCfgMu sync.RWMutex

	// State cache for change detection
	stateCache   map[string]any
	stateCacheMu sync.Mutex

	// Shutdown coordination
	done      chan struct{}
	stopOnce  sync.Once
	ctx       context.Context    // Bridge-level context, cancelled on Stop()
	ctxCancel context.CancelFunc // Cancel function for ctx

	// Logger
	logger   Logger
	loggerMu sync.RWMutex
}

// NewBridge creates a new bridge instance.
// Call Start() to begin operation.
func NewBridge(opts BridgeOptions) (*Bridge, error) {
	if opts.Console == nil {
		return nil, fmt.Errorf("console is required")
	}
	if opts.BridgeID == "" {
		opts.BridgeID = topicComponent
	}

	// Create bridge-level context for command cancellation on shutdown
	ctx, ctxCancel := context.WithCancel(context.Background())

	b := &Bridge{
		bridgeID:          opts.BridgeID,
		console:           opts.Console,
		params:            NewParameterClient(opts.Console),
		mqtt:              opts.MQTTClient,
		journal:           opts.Journal,
		metrics:           opts.Metrics,
		onState:           opts.OnState,
		onConnectionState: opts.OnConnectionState,
		connCfg:           opts.Connection,
		stateCache:        make(map[string]any),
		done:              make(chan struct{}),
		ctx:               ctx,
		ctxCancel:         ctxCancel,
		logger:            opts.Logger,
	}

	// Health reporting requires a publisher
	if opts.MQTTClient != nil {
		b.health = NewHealthReporter(HealthReporterConfig{
			BridgeID:  opts.BridgeID,
			Version:   opts.Version,
			Interval:  opts.HealthInterval,
			Publisher: opts.MQTTClient,
			Console:   opts.Console,
		})
		if opts.Logger != nil {
			b.health.SetLogger(opts.Logger)
		}
	}

	return b, nil
}

// Start begins bridge operation.
// This wires the console callbacks, subscribes to the command topic, and
// starts health reporting.
func (b *Bridge) Start(ctx context.Context) error {
	// Publish starting status
	if b.health != nil {
		if err := b.health.PublishStarting(); err != nil {
			b.logError("failed to publish starting status", err)
		}
	}

	// Wire console callbacks
	b.console.SetOnMessage(b.HandleConsoleMessage)
	b.console.SetOnError(b.handleConsoleError)
	b.console.SetOnStateChange(b.handleConnectionState)

	// Subscribe to the command topic
	if b.mqtt != nil {
		commandTopic := CommandTopic()
		if err := b.mqtt.Subscribe(commandTopic, 1, b.handleMQTTMessage); err != nil {
			return fmt.Errorf("subscribe to commands: %w", err)
		}
		b.logInfo("subscribed to commands", "topic", commandTopic)
	}

	// Start health reporting
	if b.health != nil {
		b.health.Start(ctx)
	}

	b.logInfo("bridge started", "bridge_id", b.bridgeID)

	return nil
}

// Stop gracefully shuts down the bridge.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		close(b.done)

		// Cancel bridge context to abort in-flight commands
		b.ctxCancel()

		// Stop health reporting (publishes "stopping" status)
		if b.health != nil {
			b.health.Stop()
		}

		b.logInfo("bridge stopped")
	})
}

// ConnectConsole connects the transport to the configured console. Zero
// fields in overrides fall back to the bridge's default connection config.
//
// Used by both the MQTT connect command and the API.
func (b *Bridge) ConnectConsole(ctx context.Context, overrides ConnectionConfig) error {
	b.connCfgMu.RLock()
	cfg := b.connCfg
	b.connCfgMu.RUnlock()

	if overrides.Host != "" {
		cfg.Host = overrides.Host
	}
	if overrides.Port != 0 {
		cfg.Port = overrides.Port
	}
	if overrides.DeviceType != "" {
		cfg.DeviceType = overrides.DeviceType
	}
	if overrides.RequestTimeout != 0 {
		cfg.RequestTimeout = overrides.RequestTimeout
	}

	if err := b.console.Connect(ctx, cfg); err != nil {
		return err
	}

	if b.health != nil {
		b.health.SetTarget(cfg.Host, cfg.DeviceType)
	}

	return nil
}

// DisconnectConsole disconnects the transport from the console.
//
// Used by both the MQTT disconnect command and the API.
func (b *Bridge) DisconnectConsole() error {
	return b.console.Disconnect()
}

// ConnectionDefaults returns the bridge's default console target.
func (b *Bridge) ConnectionDefaults() ConnectionConfig {
	b.connCfgMu.RLock()
	defer b.connCfgMu.RUnlock()
	return b.connCfg
}

// handleMQTTMessage parses and executes a command message.
func (b *Bridge) handleMQTTMessage(_ string, payload []byte) {
	var cmd CommandMessage
	if err := json.Unmarshal(payload, &cmd); err != nil {
		b.logError("failed to parse command", err)
		return
	}

	// Acks need a correlation ID even when the sender omitted one
	if cmd.ID == "" {
		cmd.ID = uuid.NewString()
	}

	b.logInfo("received command",
		"command_id", cmd.ID,
		"command", cmd.Command,
		"source", cmd.Source)

	b.executeCommand(cmd)
}

// executeCommand dispatches a command to its executor.
func (b *Bridge) executeCommand(cmd CommandMessage) {
	switch cmd.Command {
	case "connect":
		b.executeConnect(cmd)
	case "disconnect":
		b.executeDisconnect(cmd)
	case "set_fader":
		b.executeSetFader(cmd)
	case "set_mute":
		b.executeSetMute(cmd)
	case "set_pan":
		b.executeSetPan(cmd)
	case "set_color":
		b.executeSetColor(cmd)
	case "set_name":
		b.executeSetName(cmd)
	case "set_parameter":
		b.executeSetParameter(cmd)
	case "get_parameter":
		b.executeGetParameter(cmd)
	case "get_status":
		b.executeGetStatus(cmd)
	case "get_info":
		b.executeGetInfo(cmd)
	default:
		b.publishAckError(cmd, "", ErrCodeInvalidCommand,
			fmt.Sprintf("unknown command: %s", cmd.Command))
	}
}

// executeConnect connects to the console, honouring host/port/device_type
// overrides in the command parameters.
func (b *Bridge) executeConnect(cmd CommandMessage) {
	ctx, cancel := context.WithTimeout(b.ctx, commandTimeout)
	defer cancel()

	var overrides ConnectionConfig
	if host, ok := stringParam(cmd.Parameters, "host"); ok {
		overrides.Host = host
	}
	if port, ok := numberParam(cmd.Parameters, "port"); ok {
		overrides.Port = int(port)
	}
	if deviceType, ok := stringParam(cmd.Parameters, "device_type"); ok {
		overrides.DeviceType = deviceType
	}

	if err := b.ConnectConsole(ctx, overrides); err != nil {
		b.publishAckError(cmd, "", errorCode(err), err.Error())
		return
	}

	b.publishAck(cmd, "", AckAccepted)
}

// executeDisconnect disconnects from the console.
func (b *Bridge) executeDisconnect(cmd CommandMessage) {
	if err := b.DisconnectConsole(); err != nil {
		b.publishAckError(cmd, "", errorCode(err), err.Error())
		return
	}
	b.publishAck(cmd, "", AckAccepted)
}

// executeSetFader sets a fader from a "db" level or a raw "fader" position.
func (b *Bridge) executeSetFader(cmd CommandMessage) {
	target, ok := b.requireTarget(cmd)
	if !ok {
		return
	}

	param, ok := faderParamFor(target.Type)
	if !ok {
		b.publishAckError(cmd, "", ErrCodeInvalidParameters,
			fmt.Sprintf("target %q has no fader", target.Type))
		return
	}

	var position float64
	if db, found := numberParam(cmd.Parameters, "db"); found {
		position = DBToFader(db)
	} else if fader, found := numberParam(cmd.Parameters, "fader"); found {
		if fader < 0 || fader > 1 {
			b.publishAckError(cmd, "", ErrCodeOutOfRange,
				fmt.Sprintf("'fader' must be 0.0-1.0, got %v", fader))
			return
		}
		position = fader
	} else {
		b.publishAckError(cmd, "", ErrCodeInvalidParameters,
			"missing 'db' or 'fader' parameter")
		return
	}

	b.writeParameter(cmd, target, param, position, ValueTypeFloat)
}

// executeSetMute sets the mute state from a "muted" flag.
func (b *Bridge) executeSetMute(cmd CommandMessage) {
	target, ok := b.requireTarget(cmd)
	if !ok {
		return
	}

	param, ok := onParamFor(target.Type)
	if !ok {
		b.publishAckError(cmd, "", ErrCodeInvalidParameters,
			fmt.Sprintf("target %q has no mute", target.Type))
		return
	}

	muted, found := boolParam(cmd.Parameters, "muted")
	if !found {
		b.publishAckError(cmd, "", ErrCodeInvalidParameters, "missing 'muted' parameter")
		return
	}

	b.writeParameter(cmd, target, param, onValue(muted), ValueTypeInt)
}

// executeSetPan sets the pan position from a "pan" value (percentage or LR
// notation).
func (b *Bridge) executeSetPan(cmd CommandMessage) {
	target, ok := b.requireTarget(cmd)
	if !ok {
		return
	}

	if target.Type != TargetChannel && target.Type != TargetBus && target.Type != TargetMain {
		b.publishAckError(cmd, "", ErrCodeInvalidParameters,
			fmt.Sprintf("target %q has no pan", target.Type))
		return
	}

	raw, found := cmd.Parameters["pan"]
	if !found {
		b.publishAckError(cmd, "", ErrCodeInvalidParameters, "missing 'pan' parameter")
		return
	}

	position, ok := ParsePan(raw)
	if !ok {
		b.publishAckError(cmd, "", ErrCodeOutOfRange,
			fmt.Sprintf("invalid pan value: %v", raw))
		return
	}

	b.writeParameter(cmd, target, ParamPan, position, ValueTypeFloat)
}

// executeSetColor sets the scribble-strip colour from a "color" name.
func (b *Bridge) executeSetColor(cmd CommandMessage) {
	target, ok := b.requireTarget(cmd)
	if !ok {
		return
	}
	if target.Type == TargetFX {
		b.publishAckError(cmd, "", ErrCodeInvalidParameters, "fx slots have no colour")
		return
	}

	color, found := stringParam(cmd.Parameters, "color")
	if !found {
		b.publishAckError(cmd, "", ErrCodeInvalidParameters, "missing 'color' parameter")
		return
	}

	code, ok := ColorValue(color)
	if !ok {
		b.publishAckError(cmd, "", ErrCodeOutOfRange,
			fmt.Sprintf("unknown color: %s", color))
		return
	}

	b.writeParameter(cmd, target, ParamColor, code, ValueTypeInt)
}

// executeSetName sets the scribble-strip name from a "name" string.
func (b *Bridge) executeSetName(cmd CommandMessage) {
	target, ok := b.requireTarget(cmd)
	if !ok {
		return
	}
	if target.Type == TargetFX {
		b.publishAckError(cmd, "", ErrCodeInvalidParameters, "fx slots have no name")
		return
	}

	name, found := stringParam(cmd.Parameters, "name")
	if !found {
		b.publishAckError(cmd, "", ErrCodeInvalidParameters, "missing 'name' parameter")
		return
	}

	b.writeParameter(cmd, target, ParamName, name, ValueTypeString)
}

// executeSetParameter writes a raw wire address. This is the escape hatch
// for parameters without a typed command; it bypasses range validation.
func (b *Bridge) executeSetParameter(cmd CommandMessage) {
	address, found := stringParam(cmd.Parameters, "address")
	if !found || !strings.HasPrefix(address, "/") {
		b.publishAckError(cmd, "", ErrCodeInvalidParameters,
			"missing or invalid 'address' parameter")
		return
	}

	raw, found := cmd.Parameters["value"]
	if !found {
		b.publishAckError(cmd, "", ErrCodeInvalidParameters, "missing 'value' parameter")
		return
	}

	hint, _ := stringParam(cmd.Parameters, "type")
	value, valueType, err := coerceParameterValue(raw, hint)
	if err != nil {
		b.publishAckError(cmd, address, ErrCodeInvalidParameters, err.Error())
		return
	}

	if err := b.console.SetParameter(address, value); err != nil {
		b.publishAckError(cmd, address, errorCode(err), err.Error())
		return
	}

	b.publishAck(cmd, address, AckAccepted)
	b.recordChange(address, value, valueType, commandSource(cmd))
}

// executeGetParameter reads a raw wire address and returns the value in the
// acknowledgment.
func (b *Bridge) executeGetParameter(cmd CommandMessage) {
	address, found := stringParam(cmd.Parameters, "address")
	if !found || !strings.HasPrefix(address, "/") {
		b.publishAckError(cmd, "", ErrCodeInvalidParameters,
			"missing or invalid 'address' parameter")
		return
	}

	ctx, cancel := context.WithTimeout(b.ctx, commandTimeout)
	defer cancel()

	arg, err := b.console.GetParameter(ctx, address)
	if err != nil {
		b.publishAckError(cmd, address, errorCode(err), err.Error())
		return
	}

	value, valueType := argumentValue(arg)
	b.publishAckResult(cmd, address, map[string]any{
		"address":    address,
		"value":      value,
		"value_type": valueType,
	})
}

// executeGetStatus queries console liveness and returns it in the
// acknowledgment.
func (b *Bridge) executeGetStatus(cmd CommandMessage) {
	ctx, cancel := context.WithTimeout(b.ctx, commandTimeout)
	defer cancel()

	status, err := b.console.GetStatus(ctx)
	if err != nil {
		b.publishAckError(cmd, statusAddress, errorCode(err), err.Error())
		return
	}

	b.publishAckResult(cmd, statusAddress, map[string]any{
		"state":       status.State,
		"ip":          status.IP,
		"server_name": status.ServerName,
	})
}

// executeGetInfo queries console identity and returns it in the
// acknowledgment.
func (b *Bridge) executeGetInfo(cmd CommandMessage) {
	ctx, cancel := context.WithTimeout(b.ctx, commandTimeout)
	defer cancel()

	info, err := b.console.GetInfo(ctx)
	if err != nil {
		b.publishAckError(cmd, infoAddress, errorCode(err), err.Error())
		return
	}

	b.publishAckResult(cmd, infoAddress, map[string]any{
		"server_version":   info.ServerVersion,
		"server_name":      info.ServerName,
		"model":            info.Model,
		"firmware_version": info.FirmwareVersion,
	})
}

// writeParameter resolves the target's address, writes the value, acks, and
// records the change.
func (b *Bridge) writeParameter(cmd CommandMessage, target CommandTarget, param string, value any, valueType string) {
	address, err := b.sectionAddress(target, param)
	if err != nil {
		b.publishAckError(cmd, "", errorCode(err), err.Error())
		return
	}

	if err := b.console.SetParameter(address, value); err != nil {
		b.publishAckError(cmd, address, errorCode(err), err.Error())
		return
	}

	b.publishAck(cmd, address, AckAccepted)
	b.recordChange(address, value, valueType, commandSource(cmd))
}

// sectionAddress builds the parameter address for a command target,
// validating the index against the active profile.
func (b *Bridge) sectionAddress(target CommandTarget, param string) (string, error) {
	switch target.Type {
	case TargetChannel:
		return b.params.channelAddress(target.Index, param)
	case TargetBus:
		return b.params.busAddress(target.Index, param)
	case TargetFX:
		return b.params.fxAddress(target.Index, param)
	case TargetDCA:
		return b.params.dcaAddress(target.Index, param)
	case TargetMain:
		return b.params.mainAddress(param)
	default:
		return "", fmt.Errorf("%w: %q", errUnknownTarget, target.Type)
	}
}

// requireTarget extracts the command target, acking an error when missing.
func (b *Bridge) requireTarget(cmd CommandMessage) (CommandTarget, bool) {
	if cmd.Target == nil || cmd.Target.Type == "" {
		b.publishAckError(cmd, "", ErrCodeInvalidParameters, "missing command target")
		return CommandTarget{}, false
	}
	return *cmd.Target, true
}

// HandleConsoleMessage processes an unsolicited message from the console
// (remote-update notifications). Wired as the transport's message callback.
//
// The first argument is treated as the parameter value; messages without
// arguments carry no state and are ignored.
func (b *Bridge) HandleConsoleMessage(msg Message) {
	if len(msg.Arguments) == 0 {
		return
	}

	value, valueType := argumentValue(msg.Arguments[0])
	b.recordChange(msg.Address, value, valueType, StateSourceConsole)
}

// recordChange runs one parameter change through the state pipeline:
// change detection, MQTT state publish, journal, metrics, and the local
// state sink. The journal and metrics run even when MQTT is down.
func (b *Bridge) recordChange(address string, value any, valueType, source string) {
	value = normalizeValue(value)

	if b.stateUnchanged(address, value) {
		return
	}

	state := NewStateMessage(address, value, valueType, source)

	b.publishState(state)

	if b.journal != nil {
		if err := b.journal.Record(b.ctx, address, value, valueType, source); err != nil {
			b.logError("journal record failed", err)
		}
	}

	if b.metrics != nil {
		b.metrics.WriteParameterChange(address, value, source, b.deviceTypeName())
	}

	if b.onState != nil {
		b.onState(state)
	}
}

// publishState publishes a retained state message if MQTT is up.
func (b *Bridge) publishState(state StateMessage) {
	if b.mqtt == nil || !b.mqtt.IsConnected() {
		return
	}

	payload, err := json.Marshal(state)
	if err != nil {
		b.logError("failed to marshal state", err)
		return
	}

	topic := StateTopic(state.Address)
	if err := b.mqtt.Publish(topic, payload, 1, true); err != nil {
		b.logError("failed to publish state", err)
	}
}

// handleConsoleError logs transport errors. Wired as the transport's error
// callback; errors never stop the bridge.
func (b *Bridge) handleConsoleError(err error) {
	b.logError("console transport error", err)
}

// handleConnectionState reacts to console lifecycle transitions. Wired as
// the transport's state-change callback.
func (b *Bridge) handleConnectionState(state ConnectionState) {
	b.logInfo("console connection state changed", "state", string(state))

	// A fresh session may be a different desk, or the same desk with
	// changed values. Drop the change-detection cache so the first update
	// for every address makes it through the pipeline.
	if state == StateConnected {
		b.ClearStateCache()
	}

	if b.health != nil {
		if err := b.health.PublishNow(); err != nil {
			b.logError("failed to publish health on state change", err)
		}
	}

	if b.onConnectionState != nil {
		b.onConnectionState(state)
	}
}

// stateUnchanged checks if the new value matches the cached state.
// Returns true if unchanged (should skip the pipeline).
func (b *Bridge) stateUnchanged(address string, value any) bool {
	b.stateCacheMu.Lock()
	defer b.stateCacheMu.Unlock()

	if valuesEqual(b.stateCache[address], value) {
		return true // Unchanged
	}

	b.stateCache[address] = value
	return false
}

// ClearStateCache removes all entries from the state cache. Called on
// reconnect so the first update for every address republishes.
func (b *Bridge) ClearStateCache() {
	b.stateCacheMu.Lock()
	defer b.stateCacheMu.Unlock()

	// Replace with fresh map to allow GC of old entries
	b.stateCache = make(map[string]any)
}

// publishAck publishes a command acknowledgment.
func (b *Bridge) publishAck(cmd CommandMessage, address string, status AckStatus) {
	b.sendAck(NewAckMessage(cmd, status, address))
}

// publishAckResult publishes a successful acknowledgment with read-back data.
func (b *Bridge) publishAckResult(cmd CommandMessage, address string, result map[string]any) {
	b.sendAck(NewAckResult(cmd, address, result))
}

// publishAckError publishes a failed command acknowledgment.
func (b *Bridge) publishAckError(cmd CommandMessage, address, code, message string) {
	b.sendAck(NewAckError(cmd, address, code, message))

	b.logError("command failed",
		fmt.Errorf("command_id=%s code=%s message=%s", cmd.ID, code, message))
}

// sendAck marshals and publishes an acknowledgment.
func (b *Bridge) sendAck(ack AckMessage) {
	if b.mqtt == nil {
		return
	}

	payload, err := json.Marshal(ack)
	if err != nil {
		b.logError("failed to marshal ack", err)
		return
	}

	if err := b.mqtt.Publish(AckTopic(), payload, 1, false); err != nil {
		b.logError("failed to publish ack", err)
	}
}

// deviceTypeName returns the active profile's type, or empty when
// disconnected.
func (b *Bridge) deviceTypeName() string {
	profile, err := b.console.Profile()
	if err != nil {
		return ""
	}
	return string(profile.Type)
}

// errorCode maps a mixer error to a bridge acknowledgment code.
func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrNotConnected), errors.Is(err, ErrConnectionClosed):
		return ErrCodeNotConnected
	case errors.Is(err, ErrAlreadyConnected):
		return ErrCodeAlreadyConnected
	case errors.Is(err, ErrConnectionFailed):
		return ErrCodeConnectionFailed
	case errors.Is(err, ErrTimeout):
		return ErrCodeTimeout
	case errors.Is(err, ErrRequestPending):
		return ErrCodeRequestPending
	case errors.Is(err, ErrRangeValidation):
		return ErrCodeOutOfRange
	case errors.Is(err, ErrUnknownDeviceType),
		errors.Is(err, ErrUnsupportedTemplate),
		errors.Is(err, errUnknownTarget):
		return ErrCodeInvalidParameters
	case errors.Is(err, ErrProtocolParse), errors.Is(err, ErrNoValueReturned):
		return ErrCodeProtocolError
	default:
		return ErrCodeBridgeError
	}
}

// commandSource returns the command's declared source, defaulting to "mqtt".
func commandSource(cmd CommandMessage) string {
	if cmd.Source != "" {
		return cmd.Source
	}
	return StateSourceMQTT
}

// faderParamFor returns the fader parameter path for a target type.
func faderParamFor(targetType string) (string, bool) {
	switch targetType {
	case TargetChannel, TargetBus, TargetMain:
		return ParamFader, true
	case TargetDCA:
		return dcaFaderParam, true
	default:
		return "", false
	}
}

// onParamFor returns the channel-on parameter path for a target type.
func onParamFor(targetType string) (string, bool) {
	switch targetType {
	case TargetChannel, TargetBus, TargetMain:
		return ParamOn, true
	case TargetDCA:
		return dcaOnParam, true
	default:
		return "", false
	}
}

// argumentValue maps a wire argument to a JSON-friendly value and its kind.
func argumentValue(arg Argument) (any, string) {
	switch v := arg.Value.(type) {
	case int32:
		return int64(v), ValueTypeInt
	case float32:
		return float64(v), ValueTypeFloat
	case string:
		return v, ValueTypeString
	case bool:
		return v, ValueTypeBool
	case []byte:
		return v, ValueTypeBlob
	default:
		return nil, ""
	}
}

// coerceParameterValue converts a JSON parameter value to a wire value.
// The optional hint ("int", "float", "string", "bool") disambiguates JSON
// numbers, which always decode as float64.
func coerceParameterValue(raw any, hint string) (any, string, error) {
	switch hint {
	case "":
		switch v := raw.(type) {
		case float64:
			return v, ValueTypeFloat, nil
		case string:
			return v, ValueTypeString, nil
		case bool:
			return v, ValueTypeBool, nil
		default:
			return nil, "", fmt.Errorf("unsupported value type %T", raw)
		}
	case ValueTypeInt:
		v, ok := raw.(float64)
		if !ok {
			return nil, "", fmt.Errorf("'value' must be a number for type int")
		}
		return int(v), ValueTypeInt, nil
	case ValueTypeFloat:
		v, ok := raw.(float64)
		if !ok {
			return nil, "", fmt.Errorf("'value' must be a number for type float")
		}
		return v, ValueTypeFloat, nil
	case ValueTypeString:
		v, ok := raw.(string)
		if !ok {
			return nil, "", fmt.Errorf("'value' must be a string for type string")
		}
		return v, ValueTypeString, nil
	case ValueTypeBool:
		v, ok := raw.(bool)
		if !ok {
			return nil, "", fmt.Errorf("'value' must be a boolean for type bool")
		}
		return v, ValueTypeBool, nil
	default:
		return nil, "", fmt.Errorf("unknown value type %q", hint)
	}
}

// normalizeValue rounds float values through the wire's 32-bit precision so
// locally written values compare equal to their console echoes.
func normalizeValue(value any) any {
	switch v := value.(type) {
	case float64:
		return float64(float32(v))
	case int:
		return int64(v)
	case int32:
		return int64(v)
	default:
		return value
	}
}

// valuesEqual compares two values for equality, handling []byte specially
// since Go's == operator cannot compare slices directly.
func valuesEqual(a, b any) bool {
	// Handle nil cases
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}

	// Handle []byte specially - cannot use == on slices
	aBytes, aIsBytes := a.([]byte)
	bBytes, bIsBytes := b.([]byte)
	if aIsBytes && bIsBytes {
		if len(aBytes) != len(bBytes) {
			return false
		}
		for i := range aBytes {
			if aBytes[i] != bBytes[i] {
				return false
			}
		}
		return true
	}

	// For all other types, use direct comparison
	return a == b
}

// stringParam extracts a string parameter.
func stringParam(params map[string]any, key string) (string, bool) {
	raw, ok := params[key]
	if !ok {
		return "", false
	}
	v, ok := raw.(string)
	return v, ok
}

// numberParam extracts a numeric parameter (JSON numbers decode as float64).
func numberParam(params map[string]any, key string) (float64, bool) {
	raw, ok := params[key]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

// boolParam extracts a boolean parameter.
func boolParam(params map[string]any, key string) (bool, bool) {
	raw, ok := params[key]
	if !ok {
		return false, false
	}
	v, ok := raw.(bool)
	return v, ok
}

// SetLogger sets the logger for the bridge.
func (b *Bridge) SetLogger(logger Logger) {
	b.loggerMu.Lock()
	b.logger = logger
	b.loggerMu.Unlock()

	if b.health != nil {
		b.health.SetLogger(logger)
	}
}

// logInfo logs an info message if logger is set.
func (b *Bridge) logInfo(msg string, keysAndValues ...any) {
	b.loggerMu.RLock()
	logger := b.logger
	b.loggerMu.RUnlock()

	if logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

// logError logs an error message if logger is set.
func (b *Bridge) logError(msg string, err error) {
	b.loggerMu.RLock()
	logger := b.logger
	b.loggerMu.RUnlock()

	if logger != nil {
		logger.Error(msg, "error", err)
	}
}
