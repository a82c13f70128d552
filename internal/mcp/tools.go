package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/nerrad567/stagelink-core/internal/bridges/mixer"
	"github.com/nerrad567/stagelink-core/internal/journal"
)

// queryTimeout bounds console round-trips made on behalf of a tool call.
const queryTimeout = 3 * time.Second

// registerTools wires every tool onto the MCP server.
func (s *Server) registerTools() {
	s.registerConnectionTools()
	s.registerChannelTools()
	s.registerParameterTools()
	s.registerJournalTools()
}

func (s *Server) registerConnectionTools() {
	connectTool := mcp.NewTool("mixer_connect",
		mcp.WithDescription("Connect to the mixing console. Omitted fields fall back to the configured defaults."),
		mcp.WithString("host",
			mcp.Description("Console IP address or hostname"),
		),
		mcp.WithNumber("port",
			mcp.Description("UDP port (defaults to the device profile's port)"),
		),
		mcp.WithString("device_type",
			mcp.Description("Device type: x32, xr18, xr16 or xr12"),
		),
		mcp.WithNumber("timeout_seconds",
			mcp.Description("Request timeout in seconds"),
		),
	)
	s.mcpServer.AddTool(connectTool, s.handleConnect)

	disconnectTool := mcp.NewTool("mixer_disconnect",
		mcp.WithDescription("Disconnect from the mixing console"),
	)
	s.mcpServer.AddTool(disconnectTool, s.handleDisconnect)

	statusTool := mcp.NewTool("mixer_status",
		mcp.WithDescription("Get console connection state, device profile and firmware info"),
	)
	s.mcpServer.AddTool(statusTool, s.handleStatus)
}

func (s *Server) registerChannelTools() {
	getChannelTool := mcp.NewTool("get_channel",
		mcp.WithDescription("Read a channel's fader level, mute state, pan, name and colour"),
		mcp.WithNumber("channel",
			mcp.Required(),
			mcp.Description("Channel number (1-based)"),
		),
	)
	s.mcpServer.AddTool(getChannelTool, s.handleGetChannel)

	setFaderTool := mcp.NewTool("set_channel_fader",
		mcp.WithDescription("Set a channel fader. Provide db (decibels, -90 to +10) or fader (raw position 0.0-1.0)."),
		mcp.WithNumber("channel",
			mcp.Required(),
			mcp.Description("Channel number (1-based)"),
		),
		mcp.WithNumber("db",
			mcp.Description("Level in decibels"),
		),
		mcp.WithNumber("fader",
			mcp.Description("Raw fader position 0.0-1.0"),
		),
	)
	s.mcpServer.AddTool(setFaderTool, s.handleSetChannelFader)

	setMuteTool := mcp.NewTool("set_channel_mute",
		mcp.WithDescription("Mute or unmute a channel"),
		mcp.WithNumber("channel",
			mcp.Required(),
			mcp.Description("Channel number (1-based)"),
		),
		mcp.WithBoolean("muted",
			mcp.Required(),
			mcp.Description("true to mute, false to unmute"),
		),
	)
	s.mcpServer.AddTool(setMuteTool, s.handleSetChannelMute)

	setPanTool := mcp.NewTool("set_channel_pan",
		mcp.WithDescription("Pan a channel. Accepts a percentage (-100 left to +100 right) or LR notation like L50, C, R25."),
		mcp.WithNumber("channel",
			mcp.Required(),
			mcp.Description("Channel number (1-based)"),
		),
		mcp.WithString("pan",
			mcp.Required(),
			mcp.Description("Pan position: percentage or LR notation"),
		),
	)
	s.mcpServer.AddTool(setPanTool, s.handleSetChannelPan)

	setConfigTool := mcp.NewTool("set_channel_config",
		mcp.WithDescription("Set a channel's scribble-strip name and/or colour"),
		mcp.WithNumber("channel",
			mcp.Required(),
			mcp.Description("Channel number (1-based)"),
		),
		mcp.WithString("name",
			mcp.Description("Scribble-strip name"),
		),
		mcp.WithString("color",
			mcp.Description("Colour name (red, green, cyan, ...) or inverted variant (red_inverted)"),
		),
	)
	s.mcpServer.AddTool(setConfigTool, s.handleSetChannelConfig)

	setBusFaderTool := mcp.NewTool("set_bus_fader",
		mcp.WithDescription("Set a mix bus fader. Provide db (decibels) or fader (raw position 0.0-1.0)."),
		mcp.WithNumber("bus",
			mcp.Required(),
			mcp.Description("Bus number (1-based)"),
		),
		mcp.WithNumber("db",
			mcp.Description("Level in decibels"),
		),
		mcp.WithNumber("fader",
			mcp.Description("Raw fader position 0.0-1.0"),
		),
	)
	s.mcpServer.AddTool(setBusFaderTool, s.handleSetBusFader)

	setMainFaderTool := mcp.NewTool("set_main_fader",
		mcp.WithDescription("Set the main mix fader. Provide db (decibels) or fader (raw position 0.0-1.0)."),
		mcp.WithNumber("db",
			mcp.Description("Level in decibels"),
		),
		mcp.WithNumber("fader",
			mcp.Description("Raw fader position 0.0-1.0"),
		),
	)
	s.mcpServer.AddTool(setMainFaderTool, s.handleSetMainFader)
}

func (s *Server) registerParameterTools() {
	getParamTool := mcp.NewTool("get_parameter",
		mcp.WithDescription("Read any console parameter by its OSC address, e.g. /ch/01/mix/fader"),
		mcp.WithString("address",
			mcp.Required(),
			mcp.Description("OSC parameter address"),
		),
	)
	s.mcpServer.AddTool(getParamTool, s.handleGetParameter)

	setParamTool := mcp.NewTool("set_parameter",
		mcp.WithDescription("Write any console parameter by its OSC address. Value type must match the parameter (float, int or string)."),
		mcp.WithString("address",
			mcp.Required(),
			mcp.Description("OSC parameter address"),
		),
		mcp.WithString("value",
			mcp.Required(),
			mcp.Description("Value to write; numeric strings are sent as numbers"),
		),
	)
	s.mcpServer.AddTool(setParamTool, s.handleSetParameter)
}

func (s *Server) registerJournalTools() {
	journalTool := mcp.NewTool("journal_recent",
		mcp.WithDescription("Read recent parameter changes from the journal, newest first"),
		mcp.WithString("address",
			mcp.Description("Filter by exact OSC address"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum entries to return (default 50, max 200)"),
		),
	)
	s.mcpServer.AddTool(journalTool, s.handleJournalRecent)
}

// ============================================================================
// Tool handlers
// ============================================================================

func (s *Server) handleConnect(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	overrides := mixer.ConnectionConfig{
		Host:       request.GetString("host", ""),
		Port:       request.GetInt("port", 0),
		DeviceType: request.GetString("device_type", ""),
	}
	if timeout := request.GetFloat("timeout_seconds", 0); timeout > 0 {
		overrides.RequestTimeout = time.Duration(timeout * float64(time.Second))
	}

	if err := s.controller.ConnectConsole(ctx, overrides); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("connect failed: %v", err)), nil
	}

	return s.statusResult(ctx)
}

func (s *Server) handleDisconnect(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.controller.DisconnectConsole(); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("disconnect failed: %v", err)), nil
	}
	return mcp.NewToolResultText(`{"state":"disconnected"}`), nil
}

func (s *Server) handleStatus(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.statusResult(ctx)
}

// statusResult builds the connection status payload shared by mixer_connect
// and mixer_status.
func (s *Server) statusResult(ctx context.Context) (*mcp.CallToolResult, error) {
	result := map[string]any{
		"state":     string(s.console.State()),
		"connected": s.console.IsConnected(),
	}

	if profile, err := s.console.Profile(); err == nil && profile != nil {
		result["device_type"] = string(profile.Type)
		result["model"] = profile.Model
		result["channels"] = profile.ChannelCount
		result["buses"] = profile.BusCount
	}

	if s.console.IsConnected() {
		queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
		defer cancel()
		if info, err := s.console.GetInfo(queryCtx); err == nil {
			result["firmware"] = info.FirmwareVersion
			result["server_version"] = info.ServerVersion
		}
	}

	return jsonResult(result)
}

func (s *Server) handleGetChannel(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	channel, err := request.RequireInt("channel")
	if err != nil {
		return mcp.NewToolResultError("channel is required and must be a number"), nil
	}

	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	db, err := s.client.GetChannelFaderDB(queryCtx, channel)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("read channel %d failed: %v", channel, err)), nil
	}

	result := map[string]any{
		"channel": channel,
		"db":      db,
		"fader":   mixer.DBToFader(db),
	}

	// Best effort for the remaining parameters; a partial read is still
	// useful to the caller.
	if muted, err := s.client.GetChannelMute(queryCtx, channel); err == nil {
		result["muted"] = muted
	}
	if pan, err := s.client.GetChannelPan(queryCtx, channel); err == nil {
		result["pan"] = pan
	}
	if name, err := s.client.GetChannelName(queryCtx, channel); err == nil {
		result["name"] = name
	}
	if color, err := s.client.GetChannelColor(queryCtx, channel); err == nil {
		result["color"] = color
	}

	return jsonResult(result)
}

func (s *Server) handleSetChannelFader(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	channel, err := request.RequireInt("channel")
	if err != nil {
		return mcp.NewToolResultError("channel is required and must be a number"), nil
	}

	args := request.GetArguments()
	if db, ok := floatArg(args, "db"); ok {
		if err := s.client.SetChannelFaderDB(channel, db); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("channel %d fader set to %.1f dB", channel, db)), nil
	}
	if fader, ok := floatArg(args, "fader"); ok {
		if err := s.client.SetChannelParameter(channel, mixer.ParamFader, fader); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("channel %d fader set to position %.3f", channel, fader)), nil
	}
	return mcp.NewToolResultError("either db or fader is required"), nil
}

func (s *Server) handleSetChannelMute(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	channel, err := request.RequireInt("channel")
	if err != nil {
		return mcp.NewToolResultError("channel is required and must be a number"), nil
	}
	muted, err := request.RequireBool("muted")
	if err != nil {
		return mcp.NewToolResultError("muted is required and must be a boolean"), nil
	}

	if err := s.client.SetChannelMute(channel, muted); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if muted {
		return mcp.NewToolResultText(fmt.Sprintf("channel %d muted", channel)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("channel %d unmuted", channel)), nil
}

func (s *Server) handleSetChannelPan(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	channel, err := request.RequireInt("channel")
	if err != nil {
		return mcp.NewToolResultError("channel is required and must be a number"), nil
	}

	pan, ok := request.GetArguments()["pan"]
	if !ok {
		return mcp.NewToolResultError("pan is required"), nil
	}

	if err := s.client.SetChannelPan(channel, pan); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("channel %d panned to %v", channel, pan)), nil
}

func (s *Server) handleSetChannelConfig(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	channel, err := request.RequireInt("channel")
	if err != nil {
		return mcp.NewToolResultError("channel is required and must be a number"), nil
	}

	name := request.GetString("name", "")
	color := request.GetString("color", "")
	if name == "" && color == "" {
		return mcp.NewToolResultError("name or color is required"), nil
	}

	if name != "" {
		if err := s.client.SetChannelName(channel, name); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	if color != "" {
		if err := s.client.SetChannelColor(channel, color); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	return mcp.NewToolResultText(fmt.Sprintf("channel %d config updated", channel)), nil
}

func (s *Server) handleSetBusFader(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	bus, err := request.RequireInt("bus")
	if err != nil {
		return mcp.NewToolResultError("bus is required and must be a number"), nil
	}

	args := request.GetArguments()
	if db, ok := floatArg(args, "db"); ok {
		if err := s.client.SetBusFaderDB(bus, db); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("bus %d fader set to %.1f dB", bus, db)), nil
	}
	if fader, ok := floatArg(args, "fader"); ok {
		if err := s.client.SetBusParameter(bus, mixer.ParamFader, fader); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("bus %d fader set to position %.3f", bus, fader)), nil
	}
	return mcp.NewToolResultError("either db or fader is required"), nil
}

func (s *Server) handleSetMainFader(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	if db, ok := floatArg(args, "db"); ok {
		if err := s.client.SetMainFaderDB(db); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("main fader set to %.1f dB", db)), nil
	}
	if fader, ok := floatArg(args, "fader"); ok {
		if err := s.client.SetMainParameter(mixer.ParamFader, fader); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("main fader set to position %.3f", fader)), nil
	}
	return mcp.NewToolResultError("either db or fader is required"), nil
}

func (s *Server) handleGetParameter(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	address, err := request.RequireString("address")
	if err != nil {
		return mcp.NewToolResultError("address is required and must be a string"), nil
	}

	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	arg, err := s.console.GetParameter(queryCtx, address)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("read %s failed: %v", address, err)), nil
	}

	return jsonResult(map[string]any{
		"address": address,
		"value":   arg.Value,
		"type":    string(arg.Tag),
	})
}

func (s *Server) handleSetParameter(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	address, err := request.RequireString("address")
	if err != nil {
		return mcp.NewToolResultError("address is required and must be a string"), nil
	}
	value, ok := request.GetArguments()["value"]
	if !ok {
		return mcp.NewToolResultError("value is required"), nil
	}

	if err := s.console.SetParameter(address, coerceValue(value)); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("write %s failed: %v", address, err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s set to %v", address, value)), nil
}

func (s *Server) handleJournalRecent(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.journal == nil {
		return mcp.NewToolResultError("journal is not enabled"), nil
	}

	address := request.GetString("address", "")
	limit := request.GetInt("limit", 0)

	entries, err := s.journal.Recent(ctx, address, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("journal read failed: %v", err)), nil
	}
	if entries == nil {
		entries = []journal.Entry{}
	}

	return jsonResult(map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}

// jsonResult marshals a payload into a text tool result.
func jsonResult(payload any) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}

// floatArg reads a numeric argument, reporting whether it was present.
func floatArg(args map[string]any, key string) (float64, bool) {
	raw, ok := args[key]
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

// coerceValue converts JSON string arguments into the numeric types the
// console expects. MCP clients often quote numbers; "0.75" should reach the
// console as a float and "1" as an int.
func coerceValue(value any) any {
	str, ok := value.(string)
	if !ok {
		return value
	}
	var n json.Number
	if err := json.Unmarshal([]byte(str), &n); err != nil {
		return str
	}
	if i, err := n.Int64(); err == nil {
		return int(i)
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return str
}
