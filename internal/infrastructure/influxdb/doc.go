// Package influxdb writes StageLink's time-series telemetry to InfluxDB
// v2: console parameter changes tagged by source, and OSC transport
// throughput and timeout counters.
//
// It wraps the official influxdb-client-go v2 library. Writes go through
// the non-blocking batched write API, so a slow or absent InfluxDB never
// stalls the OSC path; batch failures surface through the SetOnError
// callback instead of a return value.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// One point per parameter write, tagged with the origin
//	client.WriteParameterChange("/ch/01/mix/fader", 0.75, "api", "x32")
//
// Batching follows the config section (batch_size, flush_interval). All
// methods are safe for concurrent use.
package influxdb
