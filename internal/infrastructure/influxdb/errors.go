package influxdb

import "errors"

// Sentinel errors, matched with errors.Is.
var (
	// ErrDisabled means the influxdb config section is turned off.
	// Callers treat this as "run without metrics", not a failure.
	ErrDisabled = errors.New("influxdb: disabled in configuration")

	// ErrNotConnected means the client has been closed or never connected.
	ErrNotConnected = errors.New("influxdb: not connected")

	// ErrConnectionFailed means the startup ping did not succeed.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrWriteFailed covers synchronous write errors. Batched writes fail
	// asynchronously and arrive through the SetOnError callback instead.
	ErrWriteFailed = errors.New("influxdb: write failed")
)
