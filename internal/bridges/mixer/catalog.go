package mixer

import (
	"fmt"
	"sort"
	"strings"
)

// DeviceType identifies a console family in the catalog.
type DeviceType string

// Supported console types.
const (
	// DeviceX32 is the full-size 32-channel console (also sold as M32).
	DeviceX32 DeviceType = "x32"

	// DeviceXR18 is the 18-input rack console (also sold as MR18).
	DeviceXR18 DeviceType = "xr18"

	// DeviceXR16 is the 16-input rack console.
	DeviceXR16 DeviceType = "xr16"

	// DeviceXR12 is the 12-input rack console (also sold as MR12).
	DeviceXR12 DeviceType = "xr12"
)

// Default OSC ports per console family.
const (
	// DefaultPortX32 is the UDP port used by the full-size console.
	DefaultPortX32 = 10023

	// DefaultPortXAir is the UDP port used by the rack variants.
	DefaultPortXAir = 10024
)

// TemplateKey names an address template within a device profile.
type TemplateKey string

// Address template keys. FXSend and AuxIn exist only on rack profiles.
const (
	TemplateMain     TemplateKey = "main"
	TemplateChannel  TemplateKey = "channel"
	TemplateBus      TemplateKey = "bus"
	TemplateFX       TemplateKey = "fx"
	TemplateDCA      TemplateKey = "dca"
	TemplateFXReturn TemplateKey = "fxreturn"
	TemplateFXSend   TemplateKey = "fxsend"
	TemplateAuxIn    TemplateKey = "auxin"
)

// DeviceProfile describes one console model: its counts, default port, and
// the address templates its firmware exposes.
//
// Profiles are constructed once at package initialisation and must be
// treated as read-only; GetProfile returns a pointer into the catalog.
type DeviceProfile struct {
	// Type is the canonical device type identifier.
	Type DeviceType

	// Model is the human-readable model name (e.g., "X32").
	Model string

	// DefaultPort is the UDP port the console listens on.
	DefaultPort int

	// ChannelCount is the number of input channels.
	ChannelCount int

	// BusCount is the number of mix buses.
	BusCount int

	// FXSlotCount is the number of effect slots (8 on every profile).
	FXSlotCount int

	// DCACount is the number of DCA groups.
	DCACount int

	// Templates maps template keys to parametric wire-address patterns.
	// Placeholders ({n}) are expanded by BuildAddress.
	Templates map[TemplateKey]string
}

// HasTemplate reports whether the profile provides the named template.
func (p *DeviceProfile) HasTemplate(key TemplateKey) bool {
	_, ok := p.Templates[key]
	return ok
}

// rack templates are shared by all three rack variants.
func rackTemplates() map[TemplateKey]string {
	return map[TemplateKey]string{
		TemplateMain:     "/lr",
		TemplateChannel:  "/ch/{n}",
		TemplateBus:      "/bus/{n}",
		TemplateFX:       "/fx/{n}",
		TemplateDCA:      "/dca/{n}",
		TemplateFXReturn: "/rtn/{n}",
		TemplateFXSend:   "/fxsend/{n}",
		TemplateAuxIn:    "/rtn/aux",
	}
}

// catalog holds the four canonical profiles. Initialised once, never mutated.
var catalog = map[DeviceType]*DeviceProfile{
	DeviceX32: {
		Type:         DeviceX32,
		Model:        "X32",
		DefaultPort:  DefaultPortX32,
		ChannelCount: 32,
		BusCount:     16,
		FXSlotCount:  8,
		DCACount:     8,
		Templates: map[TemplateKey]string{
			TemplateMain:     "/main/st",
			TemplateChannel:  "/ch/{n}",
			TemplateBus:      "/bus/{n}",
			TemplateFX:       "/fx/{n}",
			TemplateDCA:      "/dca/{n}",
			TemplateFXReturn: "/fxrtn/{n}",
		},
	},
	DeviceXR18: {
		Type:         DeviceXR18,
		Model:        "XR18",
		DefaultPort:  DefaultPortXAir,
		ChannelCount: 16,
		BusCount:     6,
		FXSlotCount:  8,
		DCACount:     4,
		Templates:    rackTemplates(),
	},
	DeviceXR16: {
		Type:         DeviceXR16,
		Model:        "XR16",
		DefaultPort:  DefaultPortXAir,
		ChannelCount: 16,
		BusCount:     4,
		FXSlotCount:  8,
		DCACount:     4,
		Templates:    rackTemplates(),
	},
	DeviceXR12: {
		Type:         DeviceXR12,
		Model:        "XR12",
		DefaultPort:  DefaultPortXAir,
		ChannelCount: 12,
		BusCount:     2,
		FXSlotCount:  8,
		DCACount:     4,
		Templates:    rackTemplates(),
	},
}

// aliases maps alternative model spellings to canonical device types.
// The M-series consoles speak the same protocol as their X-series twins.
var aliases = map[string]DeviceType{
	"m32":  DeviceX32,
	"mr18": DeviceXR18,
	"mr12": DeviceXR12,
}

// GetProfile returns the device profile for the given type string.
//
// Lookup is case-insensitive, ignores surrounding whitespace, and resolves
// model aliases (e.g., "M32" resolves to the x32 profile).
//
// Parameters:
//   - deviceType: Device type or model alias (e.g., "x32", "M32", "xr18")
//
// Returns:
//   - *DeviceProfile: Matching profile (read-only, shared)
//   - error: ErrUnknownDeviceType if no profile matches
func GetProfile(deviceType string) (*DeviceProfile, error) {
	key := strings.ToLower(strings.TrimSpace(deviceType))

	if canonical, ok := aliases[key]; ok {
		key = string(canonical)
	}

	profile, ok := catalog[DeviceType(key)]
	if !ok {
		return nil, fmt.Errorf("%w: %q (supported: %s)", ErrUnknownDeviceType, deviceType, supportedTypes())
	}
	return profile, nil
}

// Profiles returns all catalog profiles ordered by type.
// Useful for API listings and tool descriptions.
func Profiles() []*DeviceProfile {
	out := make([]*DeviceProfile, 0, len(catalog))
	for _, p := range catalog {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// supportedTypes returns a comma-separated list of device types and aliases
// for error messages.
func supportedTypes() string {
	names := make([]string, 0, len(catalog)+len(aliases))
	for t := range catalog {
		names = append(names, string(t))
	}
	for a := range aliases {
		names = append(names, a)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
