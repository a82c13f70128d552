package mixer

import "errors"

// Domain errors for the mixer package.
var (
	// ErrNotConnected is returned when an operation requires a connection
	// but the transport is not connected to a console.
	ErrNotConnected = errors.New("mixer: not connected to console")

	// ErrAlreadyConnected is returned when Connect is called while a
	// connection is already established or being established.
	ErrAlreadyConnected = errors.New("mixer: already connected")

	// ErrConnectionFailed is returned when the console socket cannot be
	// opened (address resolution or local bind failure).
	ErrConnectionFailed = errors.New("mixer: connection failed")

	// ErrConnectionClosed is returned to pending requests when the
	// connection is torn down before a reply arrives.
	ErrConnectionClosed = errors.New("mixer: connection closed")

	// ErrTimeout is returned when a request receives no matching reply
	// within the response timeout.
	ErrTimeout = errors.New("mixer: request timed out")

	// ErrRequestPending is returned when a request is issued for an address
	// that already has a reply outstanding.
	ErrRequestPending = errors.New("mixer: request already pending")

	// ErrNoValueReturned is returned when a reply arrives with an empty
	// argument list where a value was expected.
	ErrNoValueReturned = errors.New("mixer: no value returned")

	// ErrRangeValidation is returned when a channel, bus, fx, or dca index
	// is outside the profile's valid range.
	ErrRangeValidation = errors.New("mixer: value out of range")

	// ErrUnknownDeviceType is returned when a device type string matches no
	// catalog profile.
	ErrUnknownDeviceType = errors.New("mixer: unknown device type")

	// ErrUnsupportedTemplate is returned when an address template is
	// requested that the device profile does not provide.
	ErrUnsupportedTemplate = errors.New("mixer: unsupported address template")

	// ErrProtocolParse is returned when an inbound datagram or a reply
	// layout cannot be decoded, or an outbound argument cannot be encoded.
	ErrProtocolParse = errors.New("mixer: protocol parse failed")

	// ErrSendFailed is returned when writing a datagram to the socket fails.
	ErrSendFailed = errors.New("mixer: send failed")
)
