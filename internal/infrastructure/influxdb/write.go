package influxdb

import (
	"fmt"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteParameterChange records a single console parameter change.
//
// This is the primary method for recording mixer telemetry. Numeric values
// land in the "value" field; everything else is stringified into
// "value_text" so non-numeric parameters (names, colours) remain queryable.
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - address: OSC address of the parameter (e.g., "/ch/01/mix/fader")
//   - value: The decoded parameter value
//   - source: Who initiated the change ("api", "mqtt", "mcp", "console")
//   - deviceType: Console model identifier (e.g., "x32", "m32")
//
// Example:
//
//	client.WriteParameterChange("/ch/01/mix/fader", 0.75, "api", "x32")
func (c *Client) WriteParameterChange(address string, value any, source, deviceType string) {
	if !c.IsConnected() {
		return
	}

	fields := map[string]interface{}{}
	switch v := value.(type) {
	case float32:
		fields["value"] = float64(v)
	case float64:
		fields["value"] = v
	case int:
		fields["value"] = float64(v)
	case int32:
		fields["value"] = float64(v)
	case int64:
		fields["value"] = float64(v)
	case bool:
		if v {
			fields["value"] = 1.0
		} else {
			fields["value"] = 0.0
		}
	default:
		fields["value_text"] = fmt.Sprintf("%v", v)
	}

	point := write.NewPoint(
		"parameter_change",
		map[string]string{
			"address":     address,
			"source":      source,
			"device_type": deviceType,
		},
		fields,
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteTransportStats records OSC transport counters.
//
// Called periodically by the bridge health loop so dashboards can track
// message throughput, timeout rates, and drop counts per console.
//
// Parameters:
//   - deviceType: Console model identifier
//   - sent, received: Cumulative message counters
//   - timeouts: Requests that expired without a reply
//   - dropped: Inbound messages discarded due to a full callback queue
func (c *Client) WriteTransportStats(deviceType string, sent, received, timeouts, dropped uint64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"transport_stats",
		map[string]string{
			"device_type": deviceType,
		},
		map[string]interface{}{
			"messages_tx": int64(sent),
			"messages_rx": int64(received),
			"timeouts":    int64(timeouts),
			"dropped":     int64(dropped),
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("system_stats",
//	    map[string]string{"host": "core-01"},
//	    map[string]interface{}{"cpu_percent": 45.2, "memory_mb": 512})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
