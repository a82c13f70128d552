package journal

import (
	"context"
	"time"
)

// Journal source values.
const (
	SourceConsole = "console"
	SourceAPI     = "api"
	SourceMQTT    = "mqtt"
	SourceMCP     = "mcp"
)

// Entry represents a single recorded parameter change.
//
// Each entry stores the decoded parameter value at the time the change was
// observed. This provides a local audit trail even when the time-series
// database is unavailable.
type Entry struct {
	// ID is the auto-incremented primary key for the journal row.
	ID int64 `json:"id"`

	// Address is the OSC address of the parameter (e.g., "/ch/01/mix/fader").
	Address string `json:"address"`

	// Value is the decoded parameter value (float, int, string, or bool).
	Value any `json:"value"`

	// ValueType names the OSC type of the value (float, int, string, bool, blob).
	ValueType string `json:"value_type"`

	// Source identifies who initiated the change (console, api, mqtt, mcp).
	Source string `json:"source"`

	// CreatedAt is the timestamp of the change (UTC).
	CreatedAt time.Time `json:"created_at"`
}

// Repository stores and retrieves parameter change history.
//
// Implementations must be thread-safe and use UTC timestamps.
type Repository interface {
	// Record persists a parameter change.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - address: OSC address of the parameter
	//   - value: Decoded value to persist
	//   - valueType: OSC type name of the value
	//   - source: Origin of the change (console, api, mqtt, mcp)
	//
	// Returns:
	//   - error: nil on success, otherwise the underlying persistence error
	Record(ctx context.Context, address string, value any, valueType, source string) error

	// Recent returns recent journal entries, ordered newest first.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - address: Filter to a single OSC address; empty matches all
	//   - limit: Maximum entries to return (implementation may clamp bounds)
	//
	// Returns:
	//   - []Entry: Ordered newest-first entries (may be empty)
	//   - error: nil on success, otherwise the underlying query error
	Recent(ctx context.Context, address string, limit int) ([]Entry, error)
}
