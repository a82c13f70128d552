// Package mcp exposes the mixing console to AI assistants over the Model
// Context Protocol.
//
// The server speaks MCP over stdio, so stagelink-core can be registered
// directly as a tool provider in any MCP-capable client. Tools cover
// connection management (mixer_connect, mixer_disconnect, mixer_status),
// typed channel/bus/main control (set_channel_fader, set_channel_mute,
// set_channel_pan, set_channel_config, set_bus_fader, set_main_fader,
// get_channel), raw parameter access (get_parameter, set_parameter), and
// the change journal (journal_recent).
//
// Tool handlers reuse the same ParameterClient as the HTTP API, so range
// validation and value conversion behave identically across surfaces.
//
// When the stdio server is active, stdout belongs to the MCP transport.
// The process must log to stderr or a file; wiring that up is the
// caller's responsibility.
package mcp
