package mixer

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
)

// mockConsole is an in-memory Console implementation for exercising the
// layers above the transport without a socket.
type mockConsole struct {
	mu         sync.Mutex
	connected  bool
	profile    *DeviceProfile
	lastConfig ConnectionConfig
	setCalls   []setCall
	sendCalls  []string
	replies    map[string]Argument
	info       ConsoleInfo
	status     ConsoleStatus
	connectErr error
	setErr     error
	requestErr error

	onMessage     func(Message)
	onError       func(error)
	onStateChange func(ConnectionState)
}

type setCall struct {
	address string
	value   any
}

// newMockConsole returns a mock already connected with the given profile.
func newMockConsole(deviceType string) *mockConsole {
	profile, _ := GetProfile(deviceType)
	return &mockConsole{
		connected: true,
		profile:   profile,
		replies:   make(map[string]Argument),
	}
}

func (m *mockConsole) Connect(_ context.Context, cfg ConnectionConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.connectErr != nil {
		return m.connectErr
	}
	if m.connected {
		return ErrAlreadyConnected
	}
	profile, err := GetProfile(cfg.DeviceType)
	if err != nil {
		return err
	}
	m.connected = true
	m.profile = profile
	m.lastConfig = cfg
	return nil
}

func (m *mockConsole) Disconnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
	m.profile = nil
	return nil
}

func (m *mockConsole) Send(address string, _ ...any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return ErrNotConnected
	}
	m.sendCalls = append(m.sendCalls, address)
	return nil
}

func (m *mockConsole) Request(_ context.Context, address string, _ ...any) ([]Argument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return nil, ErrNotConnected
	}
	if m.requestErr != nil {
		return nil, m.requestErr
	}
	if arg, ok := m.replies[address]; ok {
		return []Argument{arg}, nil
	}
	return nil, ErrTimeout
}

func (m *mockConsole) GetParameter(ctx context.Context, address string) (Argument, error) {
	args, err := m.Request(ctx, address)
	if err != nil {
		return Argument{}, err
	}
	return args[0], nil
}

func (m *mockConsole) SetParameter(address string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return ErrNotConnected
	}
	if m.setErr != nil {
		return m.setErr
	}
	m.setCalls = append(m.setCalls, setCall{address: address, value: value})
	return nil
}

func (m *mockConsole) GetInfo(_ context.Context) (ConsoleInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return ConsoleInfo{}, ErrNotConnected
	}
	return m.info, nil
}

func (m *mockConsole) GetStatus(_ context.Context) (ConsoleStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return ConsoleStatus{}, ErrNotConnected
	}
	return m.status, nil
}

func (m *mockConsole) State() ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.connected {
		return StateConnected
	}
	return StateDisconnected
}

func (m *mockConsole) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *mockConsole) Profile() (*DeviceProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.profile == nil {
		return nil, ErrNotConnected
	}
	return m.profile, nil
}

func (m *mockConsole) Stats() TransportStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	state := StateDisconnected
	if m.connected {
		state = StateConnected
	}
	return TransportStats{Connected: m.connected, State: state}
}

func (m *mockConsole) SetOnMessage(callback func(Message)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onMessage = callback
}

func (m *mockConsole) SetOnError(callback func(error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onError = callback
}

func (m *mockConsole) SetOnStateChange(callback func(ConnectionState)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onStateChange = callback
}

func (m *mockConsole) Close() error {
	return m.Disconnect()
}

// setReply configures the value returned for queries to an address.
func (m *mockConsole) setReply(address string, value any) {
	arg, _ := NewArgument(value)
	m.mu.Lock()
	m.replies[address] = arg
	m.mu.Unlock()
}

// simulateMessage invokes the registered message callback, as the transport
// does for unsolicited console updates.
func (m *mockConsole) simulateMessage(msg Message) {
	m.mu.Lock()
	callback := m.onMessage
	m.mu.Unlock()
	if callback != nil {
		callback(msg)
	}
}

// simulateStateChange invokes the registered state-change callback.
func (m *mockConsole) simulateStateChange(state ConnectionState) {
	m.mu.Lock()
	callback := m.onStateChange
	m.mu.Unlock()
	if callback != nil {
		callback(state)
	}
}

// lastConnect returns the config from the most recent Connect call.
func (m *mockConsole) lastConnect() ConnectionConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastConfig
}

// lastSet returns the most recent parameter write.
func (m *mockConsole) lastSet(t *testing.T) setCall {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.setCalls) == 0 {
		t.Fatal("no parameter writes recorded")
	}
	return m.setCalls[len(m.setCalls)-1]
}

// setCallCount returns the number of parameter writes recorded.
func (m *mockConsole) setCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.setCalls)
}

// assertFloatWrite checks that the last write went to address with a float
// value close to want.
func assertFloatWrite(t *testing.T, console *mockConsole, address string, want float64) {
	t.Helper()
	call := console.lastSet(t)
	if call.address != address {
		t.Errorf("address = %q, want %q", call.address, address)
	}
	got, ok := call.value.(float64)
	if !ok {
		t.Fatalf("value type = %T, want float64", call.value)
	}
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("value = %v, want %v", got, want)
	}
}

func TestParameterClientChannelAddressing(t *testing.T) {
	console := newMockConsole("x32")
	client := NewParameterClient(console)

	if err := client.SetChannelParameter(7, ParamFader, 0.5); err != nil {
		t.Fatalf("SetChannelParameter() error: %v", err)
	}

	call := console.lastSet(t)
	if call.address != "/ch/07/mix/fader" {
		t.Errorf("address = %q, want /ch/07/mix/fader", call.address)
	}
}

func TestParameterClientSectionAddressing(t *testing.T) {
	console := newMockConsole("x32")
	client := NewParameterClient(console)

	tests := []struct {
		name        string
		write       func() error
		wantAddress string
	}{
		{
			name:        "bus fader",
			write:       func() error { return client.SetBusParameter(7, ParamFader, 0.5) },
			wantAddress: "/bus/07/mix/fader",
		},
		{
			name:        "fx parameter",
			write:       func() error { return client.SetFXParameter(2, "par/01", 0.5) },
			wantAddress: "/fx/02/par/01",
		},
		{
			name:        "dca fader",
			write:       func() error { return client.SetDCAParameter(3, "fader", 0.5) },
			wantAddress: "/dca/03/fader",
		},
		{
			name:        "main fader",
			write:       func() error { return client.SetMainParameter(ParamFader, 0.5) },
			wantAddress: "/main/st/mix/fader",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.write(); err != nil {
				t.Fatalf("write error: %v", err)
			}
			call := console.lastSet(t)
			if call.address != tt.wantAddress {
				t.Errorf("address = %q, want %q", call.address, tt.wantAddress)
			}
		})
	}
}

func TestParameterClientXR18MainAddress(t *testing.T) {
	console := newMockConsole("xr18")
	client := NewParameterClient(console)

	if err := client.SetMainParameter(ParamFader, 0.5); err != nil {
		t.Fatalf("SetMainParameter() error: %v", err)
	}

	call := console.lastSet(t)
	if call.address != "/lr/mix/fader" {
		t.Errorf("address = %q, want /lr/mix/fader", call.address)
	}
}

func TestParameterClientRangeValidation(t *testing.T) {
	console := newMockConsole("x32")
	client := NewParameterClient(console)

	tests := []struct {
		name  string
		write func() error
	}{
		{"channel zero", func() error { return client.SetChannelParameter(0, ParamFader, 0.5) }},
		{"channel above max", func() error { return client.SetChannelParameter(33, ParamFader, 0.5) }},
		{"bus above max", func() error { return client.SetBusParameter(17, ParamFader, 0.5) }},
		{"fx above max", func() error { return client.SetFXParameter(9, "par/01", 0.5) }},
		{"dca above max", func() error { return client.SetDCAParameter(9, "fader", 0.5) }},
		{"negative channel", func() error { return client.SetChannelParameter(-1, ParamFader, 0.5) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.write(); !errors.Is(err, ErrRangeValidation) {
				t.Errorf("error = %v, want ErrRangeValidation", err)
			}
		})
	}

	// Nothing may reach the console when validation fails.
	if n := console.setCallCount(); n != 0 {
		t.Errorf("console received %d writes, want 0", n)
	}
}

func TestParameterClientXR12BusRange(t *testing.T) {
	console := newMockConsole("xr12")
	client := NewParameterClient(console)

	// XR12 has two buses: 2 is valid, 3 is not.
	if err := client.SetBusParameter(2, ParamFader, 0.5); err != nil {
		t.Errorf("SetBusParameter(2) error: %v", err)
	}
	if err := client.SetBusParameter(3, ParamFader, 0.5); !errors.Is(err, ErrRangeValidation) {
		t.Errorf("SetBusParameter(3) error = %v, want ErrRangeValidation", err)
	}
}

func TestParameterClientNotConnected(t *testing.T) {
	console := newMockConsole("x32")
	console.Disconnect()
	client := NewParameterClient(console)

	if err := client.SetChannelParameter(1, ParamFader, 0.5); !errors.Is(err, ErrNotConnected) {
		t.Errorf("SetChannelParameter() error = %v, want ErrNotConnected", err)
	}
	if _, err := client.GetChannelParameter(context.Background(), 1, ParamFader); !errors.Is(err, ErrNotConnected) {
		t.Errorf("GetChannelParameter() error = %v, want ErrNotConnected", err)
	}
	if err := client.SetMainMute(true); !errors.Is(err, ErrNotConnected) {
		t.Errorf("SetMainMute() error = %v, want ErrNotConnected", err)
	}
}

func TestParameterClientFaderDB(t *testing.T) {
	console := newMockConsole("x32")
	client := NewParameterClient(console)

	// Unity gain maps to 3/4 of fader travel.
	if err := client.SetChannelFaderDB(1, 0.0); err != nil {
		t.Fatalf("SetChannelFaderDB() error: %v", err)
	}
	assertFloatWrite(t, console, "/ch/01/mix/fader", 0.75)

	// Out-of-range levels clamp instead of failing.
	if err := client.SetChannelFaderDB(1, -200); err != nil {
		t.Fatalf("SetChannelFaderDB(-200) error: %v", err)
	}
	assertFloatWrite(t, console, "/ch/01/mix/fader", 0.0)

	console.setReply("/ch/02/mix/fader", float32(0.75))
	db, err := client.GetChannelFaderDB(context.Background(), 2)
	if err != nil {
		t.Fatalf("GetChannelFaderDB() error: %v", err)
	}
	if math.Abs(db-0.0) > 1e-6 {
		t.Errorf("GetChannelFaderDB() = %v, want 0.0", db)
	}
}

func TestParameterClientBusAndMainFaderDB(t *testing.T) {
	console := newMockConsole("x32")
	client := NewParameterClient(console)

	if err := client.SetBusFaderDB(3, -90); err != nil {
		t.Fatalf("SetBusFaderDB() error: %v", err)
	}
	assertFloatWrite(t, console, "/bus/03/mix/fader", 0.0)

	if err := client.SetMainFaderDB(10); err != nil {
		t.Fatalf("SetMainFaderDB() error: %v", err)
	}
	assertFloatWrite(t, console, "/main/st/mix/fader", 1.0)

	console.setReply("/main/st/mix/fader", float32(1.0))
	db, err := client.GetMainFaderDB(context.Background())
	if err != nil {
		t.Fatalf("GetMainFaderDB() error: %v", err)
	}
	if math.Abs(db-10.0) > 1e-6 {
		t.Errorf("GetMainFaderDB() = %v, want 10.0", db)
	}
}

func TestParameterClientMuteInversion(t *testing.T) {
	console := newMockConsole("x32")
	client := NewParameterClient(console)

	// The console models mutes as channel-on: muted writes 0.
	if err := client.SetChannelMute(4, true); err != nil {
		t.Fatalf("SetChannelMute(true) error: %v", err)
	}
	call := console.lastSet(t)
	if call.address != "/ch/04/mix/on" {
		t.Errorf("address = %q, want /ch/04/mix/on", call.address)
	}
	if got, ok := call.value.(int); !ok || got != 0 {
		t.Errorf("value = %v, want 0", call.value)
	}

	if err := client.SetChannelMute(4, false); err != nil {
		t.Fatalf("SetChannelMute(false) error: %v", err)
	}
	if got, ok := console.lastSet(t).value.(int); !ok || got != 1 {
		t.Errorf("value = %v, want 1", console.lastSet(t).value)
	}

	// Reading inverts back: on=1 means not muted.
	console.setReply("/ch/04/mix/on", 1)
	muted, err := client.GetChannelMute(context.Background(), 4)
	if err != nil {
		t.Fatalf("GetChannelMute() error: %v", err)
	}
	if muted {
		t.Error("GetChannelMute() = true for on=1, want false")
	}

	console.setReply("/ch/04/mix/on", 0)
	muted, err = client.GetChannelMute(context.Background(), 4)
	if err != nil {
		t.Fatalf("GetChannelMute() error: %v", err)
	}
	if !muted {
		t.Error("GetChannelMute() = false for on=0, want true")
	}
}

func TestParameterClientMainMute(t *testing.T) {
	console := newMockConsole("x32")
	client := NewParameterClient(console)

	if err := client.SetMainMute(true); err != nil {
		t.Fatalf("SetMainMute() error: %v", err)
	}
	call := console.lastSet(t)
	if call.address != "/main/st/mix/on" {
		t.Errorf("address = %q, want /main/st/mix/on", call.address)
	}
	if got, ok := call.value.(int); !ok || got != 0 {
		t.Errorf("value = %v, want 0", call.value)
	}
}

func TestParameterClientPan(t *testing.T) {
	console := newMockConsole("x32")
	client := NewParameterClient(console)

	tests := []struct {
		name string
		pan  any
		want float64
	}{
		{"lr notation left", "L50", 0.25},
		{"lr notation centre", "C", 0.5},
		{"percent hard left", -100, 0.0},
		{"percent hard right", float64(100), 1.0},
		{"percent string", "25", 0.625},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := client.SetChannelPan(9, tt.pan); err != nil {
				t.Fatalf("SetChannelPan(%v) error: %v", tt.pan, err)
			}
			assertFloatWrite(t, console, "/ch/09/mix/pan", tt.want)
		})
	}

	if err := client.SetChannelPan(9, "X50"); !errors.Is(err, ErrRangeValidation) {
		t.Errorf("SetChannelPan(X50) error = %v, want ErrRangeValidation", err)
	}

	console.setReply("/ch/09/mix/pan", float32(0.75))
	percent, err := client.GetChannelPan(context.Background(), 9)
	if err != nil {
		t.Fatalf("GetChannelPan() error: %v", err)
	}
	if math.Abs(percent-50.0) > 1e-6 {
		t.Errorf("GetChannelPan() = %v, want 50", percent)
	}
}

func TestParameterClientColor(t *testing.T) {
	console := newMockConsole("x32")
	client := NewParameterClient(console)

	if err := client.SetChannelColor(11, "red"); err != nil {
		t.Fatalf("SetChannelColor() error: %v", err)
	}
	call := console.lastSet(t)
	if call.address != "/ch/11/config/color" {
		t.Errorf("address = %q, want /ch/11/config/color", call.address)
	}
	if got, ok := call.value.(int); !ok || got != 1 {
		t.Errorf("value = %v, want 1", call.value)
	}

	if err := client.SetChannelColor(11, "chartreuse"); !errors.Is(err, ErrRangeValidation) {
		t.Errorf("SetChannelColor(chartreuse) error = %v, want ErrRangeValidation", err)
	}

	console.setReply("/ch/11/config/color", 9)
	name, err := client.GetChannelColor(context.Background(), 11)
	if err != nil {
		t.Fatalf("GetChannelColor() error: %v", err)
	}
	if name != "red_inverted" {
		t.Errorf("GetChannelColor() = %q, want red_inverted", name)
	}
}

func TestParameterClientName(t *testing.T) {
	console := newMockConsole("x32")
	client := NewParameterClient(console)

	if err := client.SetChannelName(1, "Lead Vox"); err != nil {
		t.Fatalf("SetChannelName() error: %v", err)
	}
	call := console.lastSet(t)
	if call.address != "/ch/01/config/name" {
		t.Errorf("address = %q, want /ch/01/config/name", call.address)
	}
	if got, ok := call.value.(string); !ok || got != "Lead Vox" {
		t.Errorf("value = %v, want \"Lead Vox\"", call.value)
	}

	console.setReply("/ch/01/config/name", "Lead Vox")
	name, err := client.GetChannelName(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetChannelName() error: %v", err)
	}
	if name != "Lead Vox" {
		t.Errorf("GetChannelName() = %q, want \"Lead Vox\"", name)
	}
}

func TestParameterClientReplyTypeMismatch(t *testing.T) {
	console := newMockConsole("x32")
	client := NewParameterClient(console)

	// A string where a float is expected is a protocol violation.
	console.setReply("/ch/01/mix/fader", "loud")
	if _, err := client.GetChannelFaderDB(context.Background(), 1); !errors.Is(err, ErrProtocolParse) {
		t.Errorf("GetChannelFaderDB() error = %v, want ErrProtocolParse", err)
	}

	console.setReply("/ch/01/config/color", "red")
	if _, err := client.GetChannelColor(context.Background(), 1); !errors.Is(err, ErrProtocolParse) {
		t.Errorf("GetChannelColor() error = %v, want ErrProtocolParse", err)
	}

	console.setReply("/ch/01/config/name", 42)
	if _, err := client.GetChannelName(context.Background(), 1); !errors.Is(err, ErrProtocolParse) {
		t.Errorf("GetChannelName() error = %v, want ErrProtocolParse", err)
	}
}

func TestParameterClientGetParameterBySection(t *testing.T) {
	console := newMockConsole("x32")
	client := NewParameterClient(console)

	console.setReply("/bus/05/mix/fader", float32(0.42))
	arg, err := client.GetBusParameter(context.Background(), 5, ParamFader)
	if err != nil {
		t.Fatalf("GetBusParameter() error: %v", err)
	}
	v, ok := arg.AsFloat()
	if !ok || math.Abs(v-0.42) > 1e-6 {
		t.Errorf("value = %v, want 0.42", v)
	}

	console.setReply("/dca/01/fader", float32(0.5))
	if _, err := client.GetDCAParameter(context.Background(), 1, "fader"); err != nil {
		t.Fatalf("GetDCAParameter() error: %v", err)
	}

	console.setReply("/fx/01/par/02", 64)
	if _, err := client.GetFXParameter(context.Background(), 1, "par/02"); err != nil {
		t.Fatalf("GetFXParameter() error: %v", err)
	}
}
