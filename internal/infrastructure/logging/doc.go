// Package logging provides structured logging for StageLink Core,
// built on log/slog.
//
// Every record carries the service name and version. Output is JSON for
// production and text for development, configured via the logging
// section of config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Usage:
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("console connected", "model", "X32")
//	oscLogger := logger.With("component", "osc")
//
// When the MCP server runs, output must go to stderr because stdout
// carries the MCP protocol. The bootstrap flips the config before
// building the logger.
//
// Never log secrets: API keys, JWT secrets, or broker passwords.
package logging
