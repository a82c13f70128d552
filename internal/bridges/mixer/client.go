package mixer

import (
	"context"
	"fmt"
)

// Wire parameter paths shared by channels, buses, and mains.
const (
	// ParamFader is the fader position (float, 0.0-1.0).
	ParamFader = "mix/fader"

	// ParamOn is the channel-on state (int). The console models mutes as
	// "on", so 0 means muted.
	ParamOn = "mix/on"

	// ParamPan is the pan position (float, 0.0 left - 1.0 right).
	ParamPan = "mix/pan"

	// ParamColor is the scribble-strip colour code (int, 0-15).
	ParamColor = "config/color"

	// ParamName is the scribble-strip name (string).
	ParamName = "config/name"
)

// Wire values for the channel-on state.
const (
	wireOn  = 1
	wireOff = 0
)

// ParameterClient provides validated, profile-aware parameter access on top
// of a Console transport.
//
// Every operation requires a connected transport: the device profile drives
// both address construction and index range checks, and it is only available
// while connected. Index validation happens before any I/O.
type ParameterClient struct {
	console Console
}

// NewParameterClient creates a parameter client over the given console.
func NewParameterClient(console Console) *ParameterClient {
	return &ParameterClient{console: console}
}

// GetChannelParameter reads one parameter of an input channel.
//
// Parameters:
//   - ctx: Context for cancellation
//   - channel: Channel number (1-based, validated against the profile)
//   - param: Parameter path relative to the channel (e.g., "mix/fader")
//
// Returns:
//   - Argument: The reply's first argument
//   - error: ErrNotConnected, ErrRangeValidation, or a transport error
func (c *ParameterClient) GetChannelParameter(ctx context.Context, channel int, param string) (Argument, error) {
	address, err := c.channelAddress(channel, param)
	if err != nil {
		return Argument{}, err
	}
	return c.console.GetParameter(ctx, address)
}

// SetChannelParameter writes one parameter of an input channel,
// fire-and-forget.
//
// Parameters:
//   - channel: Channel number (1-based, validated against the profile)
//   - param: Parameter path relative to the channel
//   - value: New value (wire tag inferred from the Go kind)
//
// Returns:
//   - error: ErrNotConnected, ErrRangeValidation, or a transport error
func (c *ParameterClient) SetChannelParameter(channel int, param string, value any) error {
	address, err := c.channelAddress(channel, param)
	if err != nil {
		return err
	}
	return c.console.SetParameter(address, value)
}

// GetBusParameter reads one parameter of a mix bus.
func (c *ParameterClient) GetBusParameter(ctx context.Context, bus int, param string) (Argument, error) {
	address, err := c.busAddress(bus, param)
	if err != nil {
		return Argument{}, err
	}
	return c.console.GetParameter(ctx, address)
}

// SetBusParameter writes one parameter of a mix bus, fire-and-forget.
func (c *ParameterClient) SetBusParameter(bus int, param string, value any) error {
	address, err := c.busAddress(bus, param)
	if err != nil {
		return err
	}
	return c.console.SetParameter(address, value)
}

// GetFXParameter reads one parameter of an effects slot.
func (c *ParameterClient) GetFXParameter(ctx context.Context, slot int, param string) (Argument, error) {
	address, err := c.fxAddress(slot, param)
	if err != nil {
		return Argument{}, err
	}
	return c.console.GetParameter(ctx, address)
}

// SetFXParameter writes one parameter of an effects slot, fire-and-forget.
func (c *ParameterClient) SetFXParameter(slot int, param string, value any) error {
	address, err := c.fxAddress(slot, param)
	if err != nil {
		return err
	}
	return c.console.SetParameter(address, value)
}

// GetDCAParameter reads one parameter of a DCA group.
func (c *ParameterClient) GetDCAParameter(ctx context.Context, dca int, param string) (Argument, error) {
	address, err := c.dcaAddress(dca, param)
	if err != nil {
		return Argument{}, err
	}
	return c.console.GetParameter(ctx, address)
}

// SetDCAParameter writes one parameter of a DCA group, fire-and-forget.
func (c *ParameterClient) SetDCAParameter(dca int, param string, value any) error {
	address, err := c.dcaAddress(dca, param)
	if err != nil {
		return err
	}
	return c.console.SetParameter(address, value)
}

// GetMainParameter reads one parameter of the main mix.
func (c *ParameterClient) GetMainParameter(ctx context.Context, param string) (Argument, error) {
	address, err := c.mainAddress(param)
	if err != nil {
		return Argument{}, err
	}
	return c.console.GetParameter(ctx, address)
}

// SetMainParameter writes one parameter of the main mix, fire-and-forget.
func (c *ParameterClient) SetMainParameter(param string, value any) error {
	address, err := c.mainAddress(param)
	if err != nil {
		return err
	}
	return c.console.SetParameter(address, value)
}

// SetChannelFaderDB sets a channel fader from a decibel level. Levels are
// clamped to the fader range (-90 to +10 dB).
func (c *ParameterClient) SetChannelFaderDB(channel int, db float64) error {
	return c.SetChannelParameter(channel, ParamFader, DBToFader(db))
}

// GetChannelFaderDB reads a channel fader as a decibel level.
func (c *ParameterClient) GetChannelFaderDB(ctx context.Context, channel int) (float64, error) {
	arg, err := c.GetChannelParameter(ctx, channel, ParamFader)
	if err != nil {
		return 0, err
	}
	return faderReplyDB(arg)
}

// SetChannelMute mutes or unmutes a channel.
func (c *ParameterClient) SetChannelMute(channel int, muted bool) error {
	return c.SetChannelParameter(channel, ParamOn, onValue(muted))
}

// GetChannelMute reads a channel's mute state.
func (c *ParameterClient) GetChannelMute(ctx context.Context, channel int) (bool, error) {
	arg, err := c.GetChannelParameter(ctx, channel, ParamOn)
	if err != nil {
		return false, err
	}
	return muteReply(arg)
}

// SetChannelPan positions a channel's pan. Accepts a percentage (-100 left
// to +100 right) or an LR notation string ("L50", "C", "R25").
func (c *ParameterClient) SetChannelPan(channel int, pan any) error {
	position, ok := ParsePan(pan)
	if !ok {
		return fmt.Errorf("%w: invalid pan value %v", ErrRangeValidation, pan)
	}
	return c.SetChannelParameter(channel, ParamPan, position)
}

// GetChannelPan reads a channel's pan as a percentage (-100 left to +100
// right, 0 centre).
func (c *ParameterClient) GetChannelPan(ctx context.Context, channel int) (float64, error) {
	arg, err := c.GetChannelParameter(ctx, channel, ParamPan)
	if err != nil {
		return 0, err
	}
	position, ok := arg.AsFloat()
	if !ok {
		return 0, fmt.Errorf("%w: pan reply is %c, want float", ErrProtocolParse, arg.Tag)
	}
	return PanToPercent(position), nil
}

// SetChannelColor sets a channel's scribble-strip colour by name ("red",
// "cyan_inverted", ...) or numeric code ("0"-"15").
func (c *ParameterClient) SetChannelColor(channel int, color string) error {
	code, ok := ColorValue(color)
	if !ok {
		return fmt.Errorf("%w: unknown color %q", ErrRangeValidation, color)
	}
	return c.SetChannelParameter(channel, ParamColor, code)
}

// GetChannelColor reads a channel's scribble-strip colour name.
func (c *ParameterClient) GetChannelColor(ctx context.Context, channel int) (string, error) {
	arg, err := c.GetChannelParameter(ctx, channel, ParamColor)
	if err != nil {
		return "", err
	}
	code, ok := arg.AsInt()
	if !ok {
		return "", fmt.Errorf("%w: color reply is %c, want int", ErrProtocolParse, arg.Tag)
	}
	name, ok := ColorName(int(code))
	if !ok {
		return "", fmt.Errorf("%w: color code %d out of range", ErrProtocolParse, code)
	}
	return name, nil
}

// SetChannelName sets a channel's scribble-strip name.
func (c *ParameterClient) SetChannelName(channel int, name string) error {
	return c.SetChannelParameter(channel, ParamName, name)
}

// GetChannelName reads a channel's scribble-strip name.
func (c *ParameterClient) GetChannelName(ctx context.Context, channel int) (string, error) {
	arg, err := c.GetChannelParameter(ctx, channel, ParamName)
	if err != nil {
		return "", err
	}
	name, ok := arg.AsString()
	if !ok {
		return "", fmt.Errorf("%w: name reply is %c, want string", ErrProtocolParse, arg.Tag)
	}
	return name, nil
}

// SetBusFaderDB sets a bus fader from a decibel level.
func (c *ParameterClient) SetBusFaderDB(bus int, db float64) error {
	return c.SetBusParameter(bus, ParamFader, DBToFader(db))
}

// GetBusFaderDB reads a bus fader as a decibel level.
func (c *ParameterClient) GetBusFaderDB(ctx context.Context, bus int) (float64, error) {
	arg, err := c.GetBusParameter(ctx, bus, ParamFader)
	if err != nil {
		return 0, err
	}
	return faderReplyDB(arg)
}

// SetMainFaderDB sets the main fader from a decibel level.
func (c *ParameterClient) SetMainFaderDB(db float64) error {
	return c.SetMainParameter(ParamFader, DBToFader(db))
}

// GetMainFaderDB reads the main fader as a decibel level.
func (c *ParameterClient) GetMainFaderDB(ctx context.Context) (float64, error) {
	arg, err := c.GetMainParameter(ctx, ParamFader)
	if err != nil {
		return 0, err
	}
	return faderReplyDB(arg)
}

// SetMainMute mutes or unmutes the main mix.
func (c *ParameterClient) SetMainMute(muted bool) error {
	return c.SetMainParameter(ParamOn, onValue(muted))
}

// channelAddress validates the channel index and builds its parameter
// address.
func (c *ParameterClient) channelAddress(channel int, param string) (string, error) {
	profile, err := c.console.Profile()
	if err != nil {
		return "", err
	}
	if channel < 1 || channel > profile.ChannelCount {
		return "", fmt.Errorf("%w: channel must be between 1 and %d, got %d",
			ErrRangeValidation, profile.ChannelCount, channel)
	}
	return parameterAddress(profile, TemplateChannel, param, channel)
}

// busAddress validates the bus index and builds its parameter address.
func (c *ParameterClient) busAddress(bus int, param string) (string, error) {
	profile, err := c.console.Profile()
	if err != nil {
		return "", err
	}
	if bus < 1 || bus > profile.BusCount {
		return "", fmt.Errorf("%w: bus must be between 1 and %d, got %d",
			ErrRangeValidation, profile.BusCount, bus)
	}
	return parameterAddress(profile, TemplateBus, param, bus)
}

// fxAddress validates the effects slot index and builds its parameter
// address.
func (c *ParameterClient) fxAddress(slot int, param string) (string, error) {
	profile, err := c.console.Profile()
	if err != nil {
		return "", err
	}
	if slot < 1 || slot > profile.FXSlotCount {
		return "", fmt.Errorf("%w: fx slot must be between 1 and %d, got %d",
			ErrRangeValidation, profile.FXSlotCount, slot)
	}
	return parameterAddress(profile, TemplateFX, param, slot)
}

// dcaAddress validates the DCA index and builds its parameter address.
func (c *ParameterClient) dcaAddress(dca int, param string) (string, error) {
	profile, err := c.console.Profile()
	if err != nil {
		return "", err
	}
	if dca < 1 || dca > profile.DCACount {
		return "", fmt.Errorf("%w: dca must be between 1 and %d, got %d",
			ErrRangeValidation, profile.DCACount, dca)
	}
	return parameterAddress(profile, TemplateDCA, param, dca)
}

// mainAddress builds a main-mix parameter address (no index).
func (c *ParameterClient) mainAddress(param string) (string, error) {
	profile, err := c.console.Profile()
	if err != nil {
		return "", err
	}
	return parameterAddress(profile, TemplateMain, param)
}

// parameterAddress builds the full wire address for a section parameter.
func parameterAddress(profile *DeviceProfile, key TemplateKey, param string, values ...any) (string, error) {
	base, err := BuildAddress(profile, key, values...)
	if err != nil {
		return "", err
	}
	return ParameterAddress(base, param), nil
}

// faderReplyDB converts a fader-position reply to decibels.
func faderReplyDB(arg Argument) (float64, error) {
	position, ok := arg.AsFloat()
	if !ok {
		return 0, fmt.Errorf("%w: fader reply is %c, want float", ErrProtocolParse, arg.Tag)
	}
	return FaderToDB(position), nil
}

// muteReply converts a channel-on reply to a muted flag.
func muteReply(arg Argument) (bool, error) {
	on, ok := arg.AsBool()
	if !ok {
		return false, fmt.Errorf("%w: mute reply is %c, want int", ErrProtocolParse, arg.Tag)
	}
	return !on, nil
}

// onValue maps a muted flag to the wire's channel-on value.
func onValue(muted bool) int {
	if muted {
		return wireOff
	}
	return wireOn
}
