package mixer

import "fmt"

// Field counts for the console's identity replies.
const (
	infoFieldCount   = 4
	statusFieldCount = 3
)

// ConsoleInfo is the console's reply to an /info query.
type ConsoleInfo struct {
	// ServerVersion is the OSC server version (e.g., "V2.07").
	ServerVersion string `json:"server_version"`

	// ServerName is the OSC server name (e.g., "osc-server").
	ServerName string `json:"server_name"`

	// Model is the console model (e.g., "X32", "XR18").
	Model string `json:"model"`

	// FirmwareVersion is the console firmware version (e.g., "4.06").
	FirmwareVersion string `json:"firmware_version"`
}

// ConsoleStatus is the console's reply to a /status query.
type ConsoleStatus struct {
	// State is the console's reported state (e.g., "active").
	State string `json:"state"`

	// IP is the console's reported IP address.
	IP string `json:"ip"`

	// ServerName is the OSC server name.
	ServerName string `json:"server_name"`
}

// parseInfoArgs maps an /info reply's arguments onto ConsoleInfo.
//
// The reply carries exactly four string fields: server version, server name,
// console model, firmware version.
func parseInfoArgs(args []Argument) (ConsoleInfo, error) {
	fields, err := stringFields("/info", args, infoFieldCount)
	if err != nil {
		return ConsoleInfo{}, err
	}
	return ConsoleInfo{
		ServerVersion:   fields[0],
		ServerName:      fields[1],
		Model:           fields[2],
		FirmwareVersion: fields[3],
	}, nil
}

// parseStatusArgs maps a /status reply's arguments onto ConsoleStatus.
//
// The reply carries exactly three string fields: state, IP address, server
// name.
func parseStatusArgs(args []Argument) (ConsoleStatus, error) {
	fields, err := stringFields("/status", args, statusFieldCount)
	if err != nil {
		return ConsoleStatus{}, err
	}
	return ConsoleStatus{
		State:      fields[0],
		IP:         fields[1],
		ServerName: fields[2],
	}, nil
}

// stringFields extracts exactly count string arguments from a reply.
func stringFields(address string, args []Argument, count int) ([]string, error) {
	if len(args) != count {
		return nil, fmt.Errorf("%w: %s reply has %d arguments, want %d",
			ErrProtocolParse, address, len(args), count)
	}

	fields := make([]string, count)
	for i, arg := range args {
		s, ok := arg.AsString()
		if !ok {
			return nil, fmt.Errorf("%w: %s reply argument %d is %c, want string",
				ErrProtocolParse, address, i, arg.Tag)
		}
		fields[i] = s
	}
	return fields, nil
}
