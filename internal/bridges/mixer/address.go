package mixer

import (
	"fmt"
	"strconv"
	"strings"
)

// indexPadWidth is the zero-padded width of numeric address segments.
// Console firmware expects two digits everywhere ("/ch/01", "/bus/16").
const indexPadWidth = 2

// BuildAddress expands the profile's template for the given key into a
// concrete wire address.
//
// Each "{...}" placeholder is replaced, left to right, by the next value.
// Integer values (and strings containing integers) are zero-padded to two
// digits; any other string substitutes verbatim. Templates without
// placeholders (main, auxin) are returned unchanged and ignore values.
//
// Parameters:
//   - profile: Device profile providing the templates
//   - key: Template key (e.g., TemplateChannel)
//   - values: Substitution values, one per placeholder
//
// Returns:
//   - string: Concrete wire address (e.g., "/ch/01")
//   - error: ErrUnsupportedTemplate if the profile lacks the template
//
// Example:
//
//	addr, err := BuildAddress(profile, TemplateChannel, 1)
//	// addr == "/ch/01"
func BuildAddress(profile *DeviceProfile, key TemplateKey, values ...any) (string, error) {
	template, ok := profile.Templates[key]
	if !ok {
		return "", fmt.Errorf("%w: %q not available on device type %s", ErrUnsupportedTemplate, key, profile.Type)
	}

	address := template
	for _, value := range values {
		open := strings.Index(address, "{")
		if open < 0 {
			break
		}
		end := strings.Index(address[open:], "}")
		if end < 0 {
			break
		}
		address = address[:open] + formatSegment(value) + address[open+end+1:]
	}

	return address, nil
}

// formatSegment renders a substitution value as an address segment.
// Numeric values are zero-padded to indexPadWidth digits.
func formatSegment(value any) string {
	switch v := value.(type) {
	case int:
		return fmt.Sprintf("%0*d", indexPadWidth, v)
	case int32:
		return fmt.Sprintf("%0*d", indexPadWidth, v)
	case int64:
		return fmt.Sprintf("%0*d", indexPadWidth, v)
	case uint:
		return fmt.Sprintf("%0*d", indexPadWidth, v)
	case float64:
		// JSON numbers arrive as float64; whole numbers are indices.
		if v == float64(int64(v)) {
			return fmt.Sprintf("%0*d", indexPadWidth, int64(v))
		}
		return strconv.FormatFloat(v, 'g', -1, 64)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return fmt.Sprintf("%0*d", indexPadWidth, n)
		}
		return v
	default:
		return fmt.Sprint(v)
	}
}

// ParameterAddress joins a built base address and a parameter path.
//
// The parameter path may be given with or without a leading slash:
// ParameterAddress("/ch/01", "mix/fader") == "/ch/01/mix/fader".
func ParameterAddress(base, param string) string {
	param = strings.TrimPrefix(param, "/")
	if param == "" {
		return base
	}
	return base + "/" + param
}
