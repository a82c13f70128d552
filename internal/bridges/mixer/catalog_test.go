package mixer

import (
	"errors"
	"strings"
	"testing"
)

func TestGetProfile(t *testing.T) {
	tests := []struct {
		name       string
		deviceType string
		wantType   DeviceType
		wantErr    bool
	}{
		{
			name:       "x32",
			deviceType: "x32",
			wantType:   DeviceX32,
		},
		{
			name:       "uppercase",
			deviceType: "X32",
			wantType:   DeviceX32,
		},
		{
			name:       "surrounding whitespace",
			deviceType: "  xr18  ",
			wantType:   DeviceXR18,
		},
		{
			name:       "m32 alias resolves to x32",
			deviceType: "m32",
			wantType:   DeviceX32,
		},
		{
			name:       "mr18 alias resolves to xr18",
			deviceType: "MR18",
			wantType:   DeviceXR18,
		},
		{
			name:       "mr12 alias resolves to xr12",
			deviceType: "mr12",
			wantType:   DeviceXR12,
		},
		{
			name:       "xr16",
			deviceType: "xr16",
			wantType:   DeviceXR16,
		},
		{
			name:       "unknown type",
			deviceType: "x99",
			wantErr:    true,
		},
		{
			name:       "empty type",
			deviceType: "",
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile, err := GetProfile(tt.deviceType)

			if tt.wantErr {
				if !errors.Is(err, ErrUnknownDeviceType) {
					t.Errorf("GetProfile(%q) error = %v, want ErrUnknownDeviceType", tt.deviceType, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("GetProfile(%q) unexpected error: %v", tt.deviceType, err)
			}
			if profile.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", profile.Type, tt.wantType)
			}
		})
	}
}

func TestProfileCapabilities(t *testing.T) {
	tests := []struct {
		deviceType   string
		wantChannels int
		wantBuses    int
		wantDCAs     int
		wantPort     int
		wantMain     string
	}{
		{"x32", 32, 16, 8, 10023, "/main/st"},
		{"xr18", 16, 6, 4, 10024, "/lr"},
		{"xr16", 16, 4, 4, 10024, "/lr"},
		{"xr12", 12, 2, 4, 10024, "/lr"},
	}

	for _, tt := range tests {
		t.Run(tt.deviceType, func(t *testing.T) {
			profile, err := GetProfile(tt.deviceType)
			if err != nil {
				t.Fatalf("GetProfile() error: %v", err)
			}

			if profile.ChannelCount != tt.wantChannels {
				t.Errorf("ChannelCount = %d, want %d", profile.ChannelCount, tt.wantChannels)
			}
			if profile.BusCount != tt.wantBuses {
				t.Errorf("BusCount = %d, want %d", profile.BusCount, tt.wantBuses)
			}
			if profile.DCACount != tt.wantDCAs {
				t.Errorf("DCACount = %d, want %d", profile.DCACount, tt.wantDCAs)
			}
			if profile.FXSlotCount != 8 {
				t.Errorf("FXSlotCount = %d, want 8", profile.FXSlotCount)
			}
			if profile.DefaultPort != tt.wantPort {
				t.Errorf("DefaultPort = %d, want %d", profile.DefaultPort, tt.wantPort)
			}
			if profile.Templates[TemplateMain] != tt.wantMain {
				t.Errorf("main template = %q, want %q", profile.Templates[TemplateMain], tt.wantMain)
			}
		})
	}
}

func TestProfileTemplateAvailability(t *testing.T) {
	x32, err := GetProfile("x32")
	if err != nil {
		t.Fatalf("GetProfile(x32) error: %v", err)
	}
	xr18, err := GetProfile("xr18")
	if err != nil {
		t.Fatalf("GetProfile(xr18) error: %v", err)
	}

	// Rack-only sections must not leak onto the full-size profile.
	if x32.HasTemplate(TemplateFXSend) {
		t.Error("x32 should not have fxsend template")
	}
	if x32.HasTemplate(TemplateAuxIn) {
		t.Error("x32 should not have auxin template")
	}
	if !xr18.HasTemplate(TemplateFXSend) {
		t.Error("xr18 should have fxsend template")
	}
	if !xr18.HasTemplate(TemplateAuxIn) {
		t.Error("xr18 should have auxin template")
	}

	// Core sections exist everywhere.
	for _, key := range []TemplateKey{TemplateMain, TemplateChannel, TemplateBus, TemplateFX, TemplateDCA} {
		if !x32.HasTemplate(key) {
			t.Errorf("x32 missing %q template", key)
		}
		if !xr18.HasTemplate(key) {
			t.Errorf("xr18 missing %q template", key)
		}
	}
}

func TestProfilesOrdered(t *testing.T) {
	profiles := Profiles()
	if len(profiles) != 4 {
		t.Fatalf("Profiles() returned %d profiles, want 4", len(profiles))
	}

	for i := 1; i < len(profiles); i++ {
		if profiles[i-1].Type >= profiles[i].Type {
			t.Errorf("Profiles() not ordered: %q before %q", profiles[i-1].Type, profiles[i].Type)
		}
	}
}

func TestGetProfileErrorListsSupportedTypes(t *testing.T) {
	_, err := GetProfile("behringer")
	if err == nil {
		t.Fatal("GetProfile() expected error")
	}

	// The error should help the caller correct their config.
	msg := err.Error()
	for _, want := range []string{"x32", "xr18", "m32"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q does not mention %q", msg, want)
		}
	}
}
