package mixer

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// OSC wire format constants.
const (
	// oscAlignment is the byte alignment of every OSC field. Strings and
	// blobs are NUL/zero padded to the next 4-byte boundary.
	oscAlignment = 4

	// int32Size is the wire size of int32 and float32 arguments.
	int32Size = 4
)

// TypeTag identifies the wire type of a message argument.
type TypeTag byte

// Supported OSC type tags. The console uses i/f/s/b; T/F/N appear in a few
// firmware replies and cost nothing to handle.
const (
	// TagInt32 is a 32-bit big-endian signed integer.
	TagInt32 TypeTag = 'i'

	// TagFloat32 is a 32-bit big-endian IEEE 754 float.
	TagFloat32 TypeTag = 'f'

	// TagString is a NUL-terminated, 4-byte padded string.
	TagString TypeTag = 's'

	// TagBlob is a length-prefixed, 4-byte padded byte sequence.
	TagBlob TypeTag = 'b'

	// TagTrue and TagFalse carry no payload bytes.
	TagTrue  TypeTag = 'T'
	TagFalse TypeTag = 'F'

	// TagNil carries no payload bytes.
	TagNil TypeTag = 'N'
)

// Argument is a single typed value in a wire message.
type Argument struct {
	// Tag is the OSC type tag.
	Tag TypeTag

	// Value holds the decoded Go value: int32, float32, string, []byte,
	// bool, or nil, matching Tag.
	Value any
}

// AsInt returns the argument as an int64. Only integer arguments qualify.
func (a Argument) AsInt() (int64, bool) {
	if v, ok := a.Value.(int32); ok {
		return int64(v), true
	}
	return 0, false
}

// AsFloat returns the argument as a float64. Integer arguments widen, so a
// console replying 'i' where 'f' was expected still reads cleanly.
func (a Argument) AsFloat() (float64, bool) {
	switch v := a.Value.(type) {
	case float32:
		return float64(v), true
	case int32:
		return float64(v), true
	default:
		return 0, false
	}
}

// AsString returns the argument as a string.
func (a Argument) AsString() (string, bool) {
	v, ok := a.Value.(string)
	return v, ok
}

// AsBool returns the argument as a bool. Integer arguments map zero to false,
// matching the console's use of 0/1 for toggles.
func (a Argument) AsBool() (bool, bool) {
	switch v := a.Value.(type) {
	case bool:
		return v, true
	case int32:
		return v != 0, true
	default:
		return false, false
	}
}

// Message is a typed OSC datagram: an address and an ordered argument list.
type Message struct {
	// Address is the wire address (e.g., "/ch/01/mix/fader").
	Address string

	// Arguments is the ordered argument list (may be empty).
	Arguments []Argument
}

// NewArgument builds an Argument from a Go value, inferring the wire tag.
//
// Supported kinds: integers ('i'), floats ('f'), string ('s'), []byte ('b'),
// bool ('T'/'F'), nil ('N'), and Argument (passed through).
//
// Returns:
//   - Argument: Typed argument ready to encode
//   - error: ErrProtocolParse for unsupported Go types or int32 overflow
func NewArgument(value any) (Argument, error) {
	switch v := value.(type) {
	case Argument:
		return v, nil
	case int32:
		return Argument{Tag: TagInt32, Value: v}, nil
	case int:
		return intArgument(int64(v))
	case int64:
		return intArgument(v)
	case float32:
		return Argument{Tag: TagFloat32, Value: v}, nil
	case float64:
		return Argument{Tag: TagFloat32, Value: float32(v)}, nil
	case string:
		return Argument{Tag: TagString, Value: v}, nil
	case []byte:
		return Argument{Tag: TagBlob, Value: v}, nil
	case bool:
		if v {
			return Argument{Tag: TagTrue, Value: true}, nil
		}
		return Argument{Tag: TagFalse, Value: false}, nil
	case nil:
		return Argument{Tag: TagNil, Value: nil}, nil
	default:
		return Argument{}, fmt.Errorf("%w: unsupported argument type %T", ErrProtocolParse, value)
	}
}

// intArgument narrows an int64 to the wire's int32 with a range check.
func intArgument(v int64) (Argument, error) {
	if v > math.MaxInt32 || v < math.MinInt32 {
		return Argument{}, fmt.Errorf("%w: integer %d overflows int32", ErrProtocolParse, v)
	}
	return Argument{Tag: TagInt32, Value: int32(v)}, nil
}

// NewMessage builds a Message from Go values, inferring each argument's tag.
//
// Parameters:
//   - address: Wire address (must start with '/')
//   - args: Argument values (see NewArgument for supported kinds)
//
// Returns:
//   - Message: Ready to encode
//   - error: ErrProtocolParse for an invalid address or argument type
func NewMessage(address string, args ...any) (Message, error) {
	if !strings.HasPrefix(address, "/") {
		return Message{}, fmt.Errorf("%w: address %q must start with '/'", ErrProtocolParse, address)
	}

	arguments := make([]Argument, 0, len(args))
	for _, raw := range args {
		arg, err := NewArgument(raw)
		if err != nil {
			return Message{}, err
		}
		arguments = append(arguments, arg)
	}

	return Message{Address: address, Arguments: arguments}, nil
}

// Encode serialises the message to OSC wire format.
//
// Layout: padded address string, padded type-tag string (","-prefixed),
// then each argument's payload, all 4-byte aligned and big-endian.
//
// Returns:
//   - []byte: Encoded datagram
//   - error: ErrProtocolParse if the message is malformed
func (m Message) Encode() ([]byte, error) {
	if !strings.HasPrefix(m.Address, "/") {
		return nil, fmt.Errorf("%w: address %q must start with '/'", ErrProtocolParse, m.Address)
	}

	buf := appendPaddedString(nil, m.Address)

	tags := make([]byte, 0, len(m.Arguments)+1)
	tags = append(tags, ',')
	for _, arg := range m.Arguments {
		tags = append(tags, byte(arg.Tag))
	}
	buf = appendPaddedString(buf, string(tags))

	for _, arg := range m.Arguments {
		var err error
		buf, err = appendArgument(buf, arg)
		if err != nil {
			return nil, err
		}
	}

	return buf, nil
}

// appendArgument appends one argument's payload bytes.
func appendArgument(buf []byte, arg Argument) ([]byte, error) {
	switch arg.Tag {
	case TagInt32:
		v, ok := arg.Value.(int32)
		if !ok {
			return nil, fmt.Errorf("%w: tag 'i' holds %T", ErrProtocolParse, arg.Value)
		}
		return binary.BigEndian.AppendUint32(buf, uint32(v)), nil

	case TagFloat32:
		v, ok := arg.Value.(float32)
		if !ok {
			return nil, fmt.Errorf("%w: tag 'f' holds %T", ErrProtocolParse, arg.Value)
		}
		return binary.BigEndian.AppendUint32(buf, math.Float32bits(v)), nil

	case TagString:
		v, ok := arg.Value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: tag 's' holds %T", ErrProtocolParse, arg.Value)
		}
		return appendPaddedString(buf, v), nil

	case TagBlob:
		v, ok := arg.Value.([]byte)
		if !ok {
			return nil, fmt.Errorf("%w: tag 'b' holds %T", ErrProtocolParse, arg.Value)
		}
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(v))) //nolint:gosec // blob sizes are bounded by datagram size
		buf = append(buf, v...)
		for len(buf)%oscAlignment != 0 {
			buf = append(buf, 0)
		}
		return buf, nil

	case TagTrue, TagFalse, TagNil:
		return buf, nil

	default:
		return nil, fmt.Errorf("%w: unknown type tag %q", ErrProtocolParse, arg.Tag)
	}
}

// ParseMessage parses a raw datagram into a Message.
//
// A datagram with no bytes after the address is a zero-argument message
// (the console omits the type-tag string on some notifications). Bundles
// ("#bundle") are not supported.
//
// Parameters:
//   - data: Raw datagram bytes
//
// Returns:
//   - Message: Parsed message
//   - error: ErrProtocolParse if the datagram is malformed
func ParseMessage(data []byte) (Message, error) {
	if len(data) == 0 {
		return Message{}, fmt.Errorf("%w: empty datagram", ErrProtocolParse)
	}
	if data[0] == '#' {
		return Message{}, fmt.Errorf("%w: bundles are not supported", ErrProtocolParse)
	}

	address, rest, err := readPaddedString(data)
	if err != nil {
		return Message{}, fmt.Errorf("%w: reading address: %s", ErrProtocolParse, err)
	}
	if !strings.HasPrefix(address, "/") {
		return Message{}, fmt.Errorf("%w: address %q must start with '/'", ErrProtocolParse, address)
	}

	if len(rest) == 0 {
		return Message{Address: address}, nil
	}

	tags, rest, err := readPaddedString(rest)
	if err != nil {
		return Message{}, fmt.Errorf("%w: reading type tags: %s", ErrProtocolParse, err)
	}
	if !strings.HasPrefix(tags, ",") {
		return Message{}, fmt.Errorf("%w: type-tag string %q must start with ','", ErrProtocolParse, tags)
	}

	arguments := make([]Argument, 0, len(tags)-1)
	for _, tag := range []byte(tags[1:]) {
		var arg Argument
		arg, rest, err = parseArgument(TypeTag(tag), rest)
		if err != nil {
			return Message{}, err
		}
		arguments = append(arguments, arg)
	}

	return Message{Address: address, Arguments: arguments}, nil
}

// parseArgument decodes one argument's payload for the given tag.
func parseArgument(tag TypeTag, data []byte) (Argument, []byte, error) {
	switch tag {
	case TagInt32:
		if len(data) < int32Size {
			return Argument{}, nil, fmt.Errorf("%w: int32 argument truncated (%d bytes)", ErrProtocolParse, len(data))
		}
		v := int32(binary.BigEndian.Uint32(data[:int32Size])) //nolint:gosec // intentional bit reinterpretation
		return Argument{Tag: tag, Value: v}, data[int32Size:], nil

	case TagFloat32:
		if len(data) < int32Size {
			return Argument{}, nil, fmt.Errorf("%w: float32 argument truncated (%d bytes)", ErrProtocolParse, len(data))
		}
		v := math.Float32frombits(binary.BigEndian.Uint32(data[:int32Size]))
		return Argument{Tag: tag, Value: v}, data[int32Size:], nil

	case TagString:
		s, rest, err := readPaddedString(data)
		if err != nil {
			return Argument{}, nil, fmt.Errorf("%w: string argument: %s", ErrProtocolParse, err)
		}
		return Argument{Tag: tag, Value: s}, rest, nil

	case TagBlob:
		if len(data) < int32Size {
			return Argument{}, nil, fmt.Errorf("%w: blob length truncated", ErrProtocolParse)
		}
		size := int(int32(binary.BigEndian.Uint32(data[:int32Size]))) //nolint:gosec // validated below
		if size < 0 || size > len(data)-int32Size {
			return Argument{}, nil, fmt.Errorf("%w: blob length %d exceeds datagram", ErrProtocolParse, size)
		}
		blob := make([]byte, size)
		copy(blob, data[int32Size:int32Size+size])
		end := int32Size + align4(size)
		if end > len(data) {
			end = len(data)
		}
		return Argument{Tag: tag, Value: blob}, data[end:], nil

	case TagTrue:
		return Argument{Tag: tag, Value: true}, data, nil
	case TagFalse:
		return Argument{Tag: tag, Value: false}, data, nil
	case TagNil:
		return Argument{Tag: tag, Value: nil}, data, nil

	default:
		return Argument{}, nil, fmt.Errorf("%w: unknown type tag %q", ErrProtocolParse, tag)
	}
}

// readPaddedString reads a NUL-terminated, 4-byte padded string and returns
// the remaining bytes. Trailing padding truncated by the sender is tolerated
// when the string itself is complete.
func readPaddedString(data []byte) (string, []byte, error) {
	nul := bytes.IndexByte(data, 0)
	if nul < 0 {
		return "", nil, fmt.Errorf("unterminated string")
	}
	end := align4(nul + 1)
	if end > len(data) {
		end = len(data)
	}
	return string(data[:nul]), data[end:], nil
}

// appendPaddedString appends a string with its NUL terminator and padding.
func appendPaddedString(buf []byte, s string) []byte {
	buf = append(buf, s...)
	buf = append(buf, 0)
	for len(buf)%oscAlignment != 0 {
		buf = append(buf, 0)
	}
	return buf
}

// align4 rounds n up to the next multiple of 4.
func align4(n int) int {
	return (n + oscAlignment - 1) &^ (oscAlignment - 1)
}

// String returns a compact human-readable form for logging.
func (m Message) String() string {
	if len(m.Arguments) == 0 {
		return fmt.Sprintf("Message{%s}", m.Address)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Message{%s", m.Address)
	for _, arg := range m.Arguments {
		switch v := arg.Value.(type) {
		case []byte:
			fmt.Fprintf(&b, " b[%d bytes]", len(v))
		case string:
			fmt.Fprintf(&b, " %q", v)
		default:
			fmt.Fprintf(&b, " %c[%v]", arg.Tag, v)
		}
	}
	b.WriteString("}")
	return b.String()
}
